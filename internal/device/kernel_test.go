package device

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/hupe1980/knn/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridFor(t *testing.T) {
	tests := []struct {
		name          string
		extent, block Dims
		want          Dims
	}{
		{"Exact", Dim2(32, 16), Dim2(16, 16), Dim2(2, 1)},
		{"RoundUp", Dim2(17, 5), Dim2(16, 16), Dim2(2, 1)},
		{"OneDim", Dim1(300), Dim1(256), Dim2(2, 1)},
		{"Small", Dim2(1, 1), Dim2(16, 16), Dim2(1, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GridFor(tt.extent, tt.block))
		})
	}
}

func TestBlock_Origin(t *testing.T) {
	b := Block{X: 2, Y: 3, Shape: Dim2(16, 8)}
	x, y := b.Origin()
	assert.Equal(t, 32, x)
	assert.Equal(t, 24, y)
}

func TestLaunch_VisitsEveryBlockOnce(t *testing.T) {
	d := New(Config{Workers: 4})
	grid := Dim2(7, 5)
	hits := make([]atomic.Int32, grid.Size())

	err := d.Launch(context.Background(), Kernel{Name: "visit", Grid: grid, Block: Dim2(1, 1)},
		func(_ context.Context, b Block) error {
			hits[b.Y*grid.X+b.X].Add(1)
			return nil
		})
	require.NoError(t, err)

	for i := range hits {
		assert.Equal(t, int32(1), hits[i].Load(), "block %d", i)
	}
	st := d.Stats()
	assert.Equal(t, int64(1), st.Launches)
	assert.Equal(t, int64(grid.Size()), st.BlocksExecuted)
}

// Launch is a barrier: nothing of the second launch may observe an
// unfinished first launch.
func TestLaunch_Barrier(t *testing.T) {
	d := New(Config{Workers: 8})
	grid := Dim1(64)
	stage := make([]int32, grid.X)

	require.NoError(t, d.Launch(context.Background(), Kernel{Name: "first", Grid: grid, Block: Dim1(1)},
		func(_ context.Context, b Block) error {
			stage[b.X] = 1
			return nil
		}))

	var seen atomic.Int32
	require.NoError(t, d.Launch(context.Background(), Kernel{Name: "second", Grid: grid, Block: Dim1(1)},
		func(_ context.Context, _ Block) error {
			for _, v := range stage {
				seen.Add(v)
			}
			return nil
		}))
	assert.Equal(t, int32(64*64), seen.Load())
}

func TestLaunch_Error(t *testing.T) {
	d := New(Config{Workers: 2})
	boom := errors.New("boom")

	err := d.Launch(context.Background(), Kernel{Name: "fail", Grid: Dim1(100), Block: Dim1(1)},
		func(_ context.Context, b Block) error {
			if b.X == 3 {
				return boom
			}
			return nil
		})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `"fail"`)
}

func TestLaunch_Canceled(t *testing.T) {
	d := New(Config{Workers: 2})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Int32
	err := d.Launch(ctx, Kernel{Name: "noop", Grid: Dim1(10), Block: Dim1(1)},
		func(_ context.Context, _ Block) error {
			ran.Add(1)
			return nil
		})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), ran.Load())
}

func TestLaunch_InvalidShape(t *testing.T) {
	d := New(Config{})
	noop := func(context.Context, Block) error { return nil }

	assert.Error(t, d.Launch(context.Background(), Kernel{Name: "g", Grid: Dim2(0, 1), Block: Dim1(1)}, noop))
	assert.Error(t, d.Launch(context.Background(), Kernel{Name: "b", Grid: Dim1(1), Block: Dim2(1, 0)}, noop))
}

func TestLaunch_RespectsWorkerBudget(t *testing.T) {
	rc := resource.NewController(resource.Config{MaxWorkers: 1})
	d := New(Config{Workers: 8, Resources: rc})

	var active, peak atomic.Int32
	err := d.Launch(context.Background(), Kernel{Name: "serial", Grid: Dim1(32), Block: Dim1(1)},
		func(_ context.Context, _ Block) error {
			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			active.Add(-1)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, int32(1), peak.Load())
}
