package pipeline

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/knn/internal/device"
	"github.com/hupe1980/knn/internal/reference"
	"github.com/hupe1980/knn/model"
	"github.com/hupe1980/knn/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomSet(rng *rand.Rand, width, dim int) model.PointSet {
	data := make([]float32, width*dim)
	for i := range data {
		data[i] = rng.Float32()
	}
	return model.NewPointSet(data, width, dim)
}

func run(t *testing.T, dev *device.Device, ref, query model.PointSet, k, tile int) ([]float32, []int32) {
	t.Helper()
	dist := make([]float32, k*query.Width)
	ind := make([]int32, k*query.Width)
	err := Run(context.Background(), dev, Request{
		Ref: ref, Query: query, K: k, Tile: tile, Dist: dist, Ind: ind,
	}, nil)
	require.NoError(t, err)
	return dist, ind
}

func oracle(t *testing.T, ref, query model.PointSet, k int) ([]float32, []int32) {
	t.Helper()
	dist := make([]float32, k*query.Width)
	ind := make([]int32, k*query.Width)
	require.NoError(t, reference.Run(context.Background(), nil, reference.Request{
		Ref: ref, Query: query, K: k, Dist: dist, Ind: ind,
	}))
	return dist, ind
}

func TestRun_KnownScenario(t *testing.T) {
	dev := device.New(device.Config{})
	ref := model.FromRows([][]float32{{0, 0}, {1, 0}, {0, 1}, {5, 5}})
	query := model.FromRows([][]float32{{0, 0}})

	dist, ind := run(t, dev, ref, query, 4, 0)

	assert.Equal(t, []int32{0, 1, 2, 3}, ind)
	assert.Equal(t, float32(0), dist[0])
	assert.Equal(t, float32(1), dist[1])
	assert.Equal(t, float32(1), dist[2])
	assert.InDelta(t, 7.0710678, dist[3], 1e-6)
}

func TestRun_MatchesReference(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	dev := device.New(device.Config{Workers: 4})

	shapes := []struct {
		ref, query, dim, k int
	}{
		{1, 1, 1, 1},
		{17, 5, 3, 17},
		{100, 33, 68, 20},
		{257, 300, 7, 5},
		{64, 64, 16, 1},
	}
	for _, s := range shapes {
		ref := randomSet(rng, s.ref, s.dim)
		query := randomSet(rng, s.query, s.dim)

		gotD, gotI := run(t, dev, ref, query, s.k, 0)
		wantD, wantI := oracle(t, ref, query, s.k)

		assert.Equal(t, wantI, gotI, "shape %+v", s)
		assert.InDeltaSlice(t, wantD, gotD, 1e-6, "shape %+v", s)
	}
}

func TestRun_TileSizesAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	dev := device.New(device.Config{})
	ref := randomSet(rng, 70, 9)
	query := randomSet(rng, 45, 9)

	baseD, baseI := run(t, dev, ref, query, 8, 16)
	for _, tile := range []int{1, 7, 32} {
		d, i := run(t, dev, ref, query, 8, tile)
		assert.Equal(t, baseD, d, "tile %d", tile)
		assert.Equal(t, baseI, i, "tile %d", tile)
	}
}

func TestRun_WorkersAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	ref := randomSet(rng, 90, 12)
	query := randomSet(rng, 600, 12)

	d1, i1 := run(t, device.New(device.Config{Workers: 1}), ref, query, 10, 0)
	d8, i8 := run(t, device.New(device.Config{Workers: 8}), ref, query, 10, 0)
	assert.Equal(t, d1, d8)
	assert.Equal(t, i1, i8)
}

func TestRun_SelectBlockBoundaries(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	dev := device.New(device.Config{})
	ref := randomSet(rng, 20, 4)
	query := randomSet(rng, 11, 4)

	wantD, wantI := run(t, dev, ref, query, 3, 0)
	for _, sb := range []int{1, 3, 256} {
		dist := make([]float32, 3*query.Width)
		ind := make([]int32, 3*query.Width)
		require.NoError(t, Run(context.Background(), dev, Request{
			Ref: ref, Query: query, K: 3, SelectBlock: sb, Dist: dist, Ind: ind,
		}, nil))
		assert.Equal(t, wantD, dist, "select block %d", sb)
		assert.Equal(t, wantI, ind, "select block %d", sb)
	}
}

func TestRun_ReleasesBuffers(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 20})
	dev := device.New(device.Config{Resources: rc})
	rng := rand.New(rand.NewSource(9))

	run(t, dev, randomSet(rng, 30, 3), randomSet(rng, 10, 3), 5, 0)

	assert.Equal(t, int64(0), rc.MemoryUsage())
	assert.Equal(t, Footprint(30, 10, 3, 5), rc.PeakMemoryUsage())
	assert.Equal(t, int64(0), dev.Stats().BytesLive)
	assert.Equal(t, int64(5), dev.Stats().Allocations)
	assert.Equal(t, int64(3), dev.Stats().Launches)
}

func TestRun_AllocationFailure(t *testing.T) {
	// Fits the inputs but not the distance matrix.
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 4 * (30*3 + 10*3)})
	dev := device.New(device.Config{Resources: rc})
	rng := rand.New(rand.NewSource(10))

	dist := []float32{-1, -1, -1}
	ind := []int32{-1, -1, -1}
	err := Run(context.Background(), dev, Request{
		Ref: randomSet(rng, 30, 3), Query: randomSet(rng, 1, 3), K: 3, Dist: dist, Ind: ind,
	}, nil)

	assert.ErrorIs(t, err, device.ErrAllocation)
	assert.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)
	assert.Equal(t, []float32{-1, -1, -1}, dist)
	assert.Equal(t, []int32{-1, -1, -1}, ind)
	assert.Equal(t, int64(0), rc.MemoryUsage())
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rng := rand.New(rand.NewSource(12))

	dist := []float32{-1}
	ind := []int32{-1}
	err := Run(ctx, device.New(device.Config{}), Request{
		Ref: randomSet(rng, 4, 2), Query: randomSet(rng, 1, 2), K: 1, Dist: dist, Ind: ind,
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []float32{-1}, dist)
	assert.Equal(t, []int32{-1}, ind)
}

func TestRun_Observer(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	var (
		mu     sync.Mutex
		stages []string
	)
	obs := func(stage string, d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		stages = append(stages, stage)
		assert.GreaterOrEqual(t, d, time.Duration(0))
	}

	err := Run(context.Background(), device.New(device.Config{}), Request{
		Ref: randomSet(rng, 8, 2), Query: randomSet(rng, 3, 2), K: 2,
		Dist: make([]float32, 6), Ind: make([]int32, 6),
	}, obs)
	require.NoError(t, err)

	assert.Equal(t, []string{StageUpload, StageDistance, StageSelect, StageNormalize, StageDownload}, stages)
}

func BenchmarkRun(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	ref := randomSet(rng, 4096, 68)
	query := randomSet(rng, 256, 68)
	k := 20
	dev := device.New(device.Config{})
	dist := make([]float32, k*query.Width)
	ind := make([]int32, k*query.Width)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := Run(context.Background(), dev, Request{
			Ref: ref, Query: query, K: k, Dist: dist, Ind: ind,
		}, nil); err != nil {
			b.Fatal(err)
		}
	}
}
