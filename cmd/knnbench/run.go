package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/knn"
	"github.com/hupe1980/knn/codec"
	"github.com/hupe1980/knn/dataset"
	"github.com/hupe1980/knn/resource"
	"github.com/hupe1980/knn/testutil"
	"github.com/spf13/cobra"
)

// maxPrintedMismatches bounds the mismatch lines of the text report.
const maxPrintedMismatches = 10

func newRunCmd(cfg *Config) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Time both engines and compare their results",
		Long: `Run generates (or loads) a reference and a query point set, computes
the ground truth with the sequential engine, then times the parallel
engine and reports how many neighbours agree with the ground truth.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := runBenchmark(cmd.Context(), cmd.ErrOrStderr(), cfg)
			if err != nil {
				return err
			}
			if jsonOutput {
				data, err := codec.GoJSON{}.MarshalIndent(report)
				if err != nil {
					return fmt.Errorf("encode report: %w", err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			return report.WriteText(cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.IntVar(&cfg.RefNb, "ref-nb", cfg.RefNb, "number of reference points")
	f.IntVar(&cfg.QueryNb, "query-nb", cfg.QueryNb, "number of query points")
	f.IntVar(&cfg.Dim, "dim", cfg.Dim, "dimension of the points")
	f.IntVar(&cfg.K, "k", cfg.K, "number of neighbours per query")
	f.IntVar(&cfg.Iterations, "iterations", cfg.Iterations, "timed runs of the parallel engine")
	f.IntVar(&cfg.CPUIterations, "cpu-iterations", cfg.CPUIterations, "timed runs of the sequential engine")
	f.Int64Var(&cfg.Seed, "seed", cfg.Seed, "seed for generated point sets")
	f.IntVar(&cfg.TileSize, "tile-size", cfg.TileSize, "side of the distance tiles")
	f.IntVar(&cfg.SelectBlock, "select-block", cfg.SelectBlock, "query columns per selection block")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "blocks executed in parallel (0 = GOMAXPROCS)")
	f.Int64Var(&cfg.MemoryLimit, "memory-limit", cfg.MemoryLimit, "buffer memory limit in bytes (0 = unlimited)")
	f.Int64Var(&cfg.TransferLimit, "transfer-limit", cfg.TransferLimit, "copy throughput limit in bytes per second (0 = unlimited)")
	f.Float64Var(&cfg.Precision, "precision", cfg.Precision, "largest distance difference counted as correct")
	f.StringVar(&cfg.RefFile, "ref", cfg.RefFile, "load the reference points from a dataset file")
	f.StringVar(&cfg.QueryFile, "query", cfg.QueryFile, "load the query points from a dataset file")
	f.BoolVar(&jsonOutput, "json", false, "print the report as JSON")

	return cmd
}

// Report is the outcome of one benchmark run.
type Report struct {
	RefNb      int `json:"ref_nb"`
	QueryNb    int `json:"query_nb"`
	Dim        int `json:"dim"`
	K          int `json:"k"`
	Iterations struct {
		Sequential int `json:"sequential"`
		Pipeline   int `json:"pipeline"`
	} `json:"iterations"`

	SequentialSeconds float64 `json:"sequential_seconds"`
	PipelineSeconds   float64 `json:"pipeline_seconds"`

	Accuracy       knn.Accuracy          `json:"accuracy"`
	Stages         map[string]float64    `json:"stage_seconds"`
	Stats          knn.BasicMetricsStats `json:"stats"`
	PeakMemoryUsed int64                 `json:"peak_memory_bytes"`
}

// SequentialPerIteration returns the mean time of one sequential search.
func (r *Report) SequentialPerIteration() float64 {
	return r.SequentialSeconds / float64(max(r.Iterations.Sequential, 1))
}

// PipelinePerIteration returns the mean time of one parallel search.
func (r *Report) PipelinePerIteration() float64 {
	return r.PipelineSeconds / float64(max(r.Iterations.Pipeline, 1))
}

// WriteText prints the report in a human readable layout.
func (r *Report) WriteText(w io.Writer) error {
	p := &printer{w: w}
	p.printf("Number of reference points      : %6d\n", r.RefNb)
	p.printf("Number of query points          : %6d\n", r.QueryNb)
	p.printf("Dimension of points             : %6d\n", r.Dim)
	p.printf("Number of neighbours to search  : %6d\n", r.K)
	p.printf("\n")
	p.printf("Sequential : %9.6f s for %d iterations (%9.6f s by iteration)\n",
		r.SequentialSeconds, r.Iterations.Sequential, r.SequentialPerIteration())
	p.printf("Pipeline   : %9.6f s for %d iterations (%9.6f s by iteration)\n",
		r.PipelineSeconds, r.Iterations.Pipeline, r.PipelinePerIteration())
	for _, stage := range []string{knn.StageDistance, knn.StageSelect, knn.StageNormalize} {
		p.printf("  %-9s: %9.6f s\n", stage, r.Stages[stage])
	}
	p.printf("\n")
	p.printf("Precision accuracy    : %.6f\n", r.Accuracy.PrecisionAccuracy)
	p.printf("Index accuracy        : %.6f\n", r.Accuracy.IndexAccuracy)
	p.printf("Tie tolerant accuracy : %.6f (%d ties)\n", r.Accuracy.TieTolerantAccuracy, r.Accuracy.Ties)

	for i, m := range r.Accuracy.Mismatches {
		if i == maxPrintedMismatches {
			p.printf("  ... %d more\n", len(r.Accuracy.Mismatches)-i)
			break
		}
		kind := "mismatch"
		if m.Tie {
			kind = "tie"
		}
		p.printf("  %-8s query %d rank %d: got %d (%g), want %d (%g)\n",
			kind, m.Query, m.Rank, m.Got.Index, m.Got.Distance, m.Want.Index, m.Want.Distance)
	}
	return p.err
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func runBenchmark(ctx context.Context, progress io.Writer, cfg *Config) (*Report, error) {
	logger := NewLogger(cfg)

	ref, query, err := loadInputs(cfg)
	if err != nil {
		return nil, err
	}

	stats := &knn.BasicMetricsCollector{}
	var collector knn.MetricsCollector = stats
	if cfg.MetricsAddr != "" {
		prom, stop, err := startMetrics(cfg.MetricsAddr, logger)
		if err != nil {
			return nil, fmt.Errorf("start metrics server: %w", err)
		}
		defer stop()
		collector = fanOut{stats, prom}
	}

	rc := resource.NewController(resource.Config{
		MemoryLimitBytes:         cfg.MemoryLimit,
		TransferLimitBytesPerSec: cfg.TransferLimit,
	})
	opts := []knn.Option{
		knn.WithLogger(logger),
		knn.WithMetricsCollector(collector),
		knn.WithWorkers(cfg.Workers),
		knn.WithTileSize(cfg.TileSize),
		knn.WithSelectBlock(cfg.SelectBlock),
		knn.WithResourceController(rc),
	}

	report := &Report{RefNb: ref.Width, QueryNb: query.Width, Dim: ref.Dim, K: cfg.K}
	report.Iterations.Sequential = cfg.CPUIterations
	report.Iterations.Pipeline = cfg.Iterations

	fmt.Fprintln(progress, "Ground truth computation in progress...")
	var want *knn.Result
	start := time.Now()
	for range cfg.CPUIterations {
		if want, err = knn.SearchSequential(ctx, ref, query, cfg.K, opts...); err != nil {
			return nil, fmt.Errorf("sequential search: %w", err)
		}
	}
	report.SequentialSeconds = time.Since(start).Seconds()

	fmt.Fprintln(progress, "Pipeline search in progress...")
	var got *knn.Result
	start = time.Now()
	for range cfg.Iterations {
		if got, err = knn.Search(ctx, ref, query, cfg.K, opts...); err != nil {
			return nil, fmt.Errorf("pipeline search: %w", err)
		}
	}
	report.PipelineSeconds = time.Since(start).Seconds()

	if err := knn.Verify(got, ref.Width); err != nil {
		return nil, err
	}
	if report.Accuracy, err = knn.Compare(got, want, float32(cfg.Precision)); err != nil {
		return nil, err
	}

	report.Stats = stats.GetStats()
	report.Stages = map[string]float64{
		knn.StageDistance:  time.Duration(report.Stats.DistanceNanos).Seconds(),
		knn.StageSelect:    time.Duration(report.Stats.SelectNanos).Seconds(),
		knn.StageNormalize: time.Duration(report.Stats.NormalizeNanos).Seconds(),
	}
	report.PeakMemoryUsed = rc.PeakMemoryUsage()

	logger.Info("benchmark completed",
		"index_accuracy", report.Accuracy.IndexAccuracy,
		"precision_accuracy", report.Accuracy.PrecisionAccuracy,
	)
	return report, nil
}

// loadInputs reads the point sets named in cfg and generates the others.
// Generated sets are drawn from one generator, reference points first.
func loadInputs(cfg *Config) (ref, query knn.PointSet, err error) {
	rng := testutil.NewRNG(cfg.Seed)

	if cfg.RefFile != "" {
		if ref, err = dataset.Load(cfg.RefFile); err != nil {
			return ref, query, fmt.Errorf("load reference points: %w", err)
		}
	} else {
		ref = rng.UniformPointSet(cfg.RefNb, cfg.Dim)
	}

	if cfg.QueryFile != "" {
		if query, err = dataset.Load(cfg.QueryFile); err != nil {
			return ref, query, fmt.Errorf("load query points: %w", err)
		}
	} else {
		query = rng.UniformPointSet(cfg.QueryNb, ref.Dim)
	}
	return ref, query, nil
}

// fanOut forwards every measurement to each collector in turn.
type fanOut []knn.MetricsCollector

func (f fanOut) RecordSearch(engine string, k, queries int, d time.Duration, err error) {
	for _, c := range f {
		c.RecordSearch(engine, k, queries, d, err)
	}
}

func (f fanOut) RecordStage(stage string, d time.Duration) {
	for _, c := range f {
		c.RecordStage(stage, d)
	}
}

func (f fanOut) RecordAllocation(bytes int64, err error) {
	for _, c := range f {
		c.RecordAllocation(bytes, err)
	}
}
