package codec

import (
	"testing"
)

type benchEngine struct {
	Name    string  `json:"name"`
	Seconds float64 `json:"seconds"`
}

type benchPayload struct {
	RefNb     int               `json:"ref_nb"`
	QueryNb   int               `json:"query_nb"`
	Dim       int               `json:"dim"`
	K         int               `json:"k"`
	Accuracy  float64           `json:"accuracy"`
	Labels    map[string]string `json:"labels"`
	Distances []float32         `json:"distances"`
	Engines   []benchEngine     `json:"engines"`
}

func benchmarkCodecMarshal(b *testing.B, c Codec, v any) {
	b.Helper()
	b.ReportAllocs()

	warm, err := c.Marshal(v)
	if err != nil {
		b.Fatal(err)
	}
	b.SetBytes(int64(len(warm)))

	var sink []byte
	b.ResetTimer()
	for b.Loop() {
		out, err := c.Marshal(v)
		if err != nil {
			b.Fatal(err)
		}
		sink = out
	}
	_ = sink
}

func benchmarkCodecUnmarshal[T any](b *testing.B, c Codec, data []byte, dst *T) {
	b.Helper()
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))

	var v T
	b.ResetTimer()
	for b.Loop() {
		if err := c.Unmarshal(data, &v); err != nil {
			b.Fatal(err)
		}
	}
	if dst != nil {
		*dst = v
	}
}

func benchReport() benchPayload {
	return benchPayload{
		RefNb:    4096,
		QueryNb:  4096,
		Dim:      68,
		K:        20,
		Accuracy: 0.99995,
		Labels: map[string]string{
			"isa":   "avx2",
			"tile":  "16",
			"block": "256",
		},
		Distances: make([]float32, 256),
		Engines: []benchEngine{
			{Name: "pipeline", Seconds: 0.021},
			{Name: "sequential", Seconds: 3.4},
		},
	}
}

func BenchmarkCodec_Marshal_Payload(b *testing.B) {
	payload := benchReport()

	b.Run("stdlib", func(b *testing.B) { benchmarkCodecMarshal(b, JSON{}, payload) })
	b.Run("go-json", func(b *testing.B) { benchmarkCodecMarshal(b, GoJSON{}, payload) })
}

func BenchmarkCodec_Unmarshal_Payload(b *testing.B) {
	payload := benchReport()

	jsonData := MustMarshal(JSON{}, payload)

	b.Run("stdlib", func(b *testing.B) {
		var sink benchPayload
		benchmarkCodecUnmarshal(b, JSON{}, jsonData, &sink)
		_ = sink
	})
	b.Run("go-json", func(b *testing.B) {
		var sink benchPayload
		benchmarkCodecUnmarshal(b, GoJSON{}, jsonData, &sink)
		_ = sink
	})
}
