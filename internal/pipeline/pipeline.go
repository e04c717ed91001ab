// Package pipeline runs the three-stage parallel k-NN search on a device:
//
//  1. distance: all-pairs squared distances, one launch over a 2-D grid of
//     output tiles;
//  2. select: per-query top-k, one launch over a 1-D grid of column blocks;
//  3. sqrt: square root of the k selected distances per query, one launch
//     over a 2-D grid.
//
// Each stage is a separate launch, and a launch returns only when all of its
// blocks are done. The pipeline owns every device buffer for the duration of
// one Run and releases them before returning.
package pipeline

import (
	"context"
	"time"

	"github.com/hupe1980/knn/internal/device"
	"github.com/hupe1980/knn/internal/pool"
	"github.com/hupe1980/knn/internal/simd"
	"github.com/hupe1980/knn/internal/tile"
	"github.com/hupe1980/knn/internal/topk"
	"github.com/hupe1980/knn/model"
)

// DefaultSelectBlock is the number of query columns one select block covers.
const DefaultSelectBlock = 256

// Stage names, as passed to Observer.
const (
	StageUpload    = "upload"
	StageDistance  = "distance"
	StageSelect    = "select"
	StageNormalize = "sqrt"
	StageDownload  = "download"
)

// Request is one search. The caller guarantees the shapes are valid:
// both point sets share Dim, 1 <= K <= Ref.Width, and Dist and Ind hold at
// least K*Query.Width elements.
type Request struct {
	Ref   model.PointSet
	Query model.PointSet
	K     int

	// Tile is the distance tile edge. If <= 0, tile.DefaultSize.
	Tile int

	// SelectBlock is the number of columns per select block.
	// If <= 0, DefaultSelectBlock.
	SelectBlock int

	// Dist and Ind receive the K x Query.Width result at i*Query.Width+q.
	// They are written only after every stage has succeeded.
	Dist []float32
	Ind  []int32
}

// Footprint is the device memory Run allocates for a request.
func Footprint(refWidth, queryWidth, dim, k int) int64 {
	rw, qw := int64(refWidth), int64(queryWidth)
	return 4 * (rw*int64(dim) + qw*int64(dim) + rw*qw + 2*int64(k)*qw)
}

// Observer is notified after each stage with its wall time.
type Observer func(stage string, d time.Duration)

type buffers struct {
	ref, query, dist, knnDist *device.Buffer[float32]
	knnInd                    *device.Buffer[int32]
}

func (b *buffers) release() {
	b.ref.Release()
	b.query.Release()
	b.dist.Release()
	b.knnDist.Release()
	b.knnInd.Release()
}

// Run executes the request on dev.
func Run(ctx context.Context, dev *device.Device, req Request, obs Observer) error {
	if obs == nil {
		obs = func(string, time.Duration) {}
	}
	t := req.Tile
	if t <= 0 {
		t = tile.DefaultSize
	}
	sb := req.SelectBlock
	if sb <= 0 {
		sb = DefaultSelectBlock
	}

	rw, qw, dim, k := req.Ref.Width, req.Query.Width, req.Ref.Dim, req.K

	var bufs buffers
	defer bufs.release()

	var err error
	if bufs.ref, err = device.Alloc[float32](dev, "ref", rw*dim); err != nil {
		return err
	}
	if bufs.query, err = device.Alloc[float32](dev, "query", qw*dim); err != nil {
		return err
	}
	if bufs.dist, err = device.Alloc[float32](dev, "dist", rw*qw); err != nil {
		return err
	}
	if bufs.knnDist, err = device.Alloc[float32](dev, "knn_dist", k*qw); err != nil {
		return err
	}
	if bufs.knnInd, err = device.Alloc[int32](dev, "knn_ind", k*qw); err != nil {
		return err
	}

	start := time.Now()
	if err := device.CopyIn(ctx, bufs.ref, req.Ref.Data); err != nil {
		return err
	}
	if err := device.CopyIn(ctx, bufs.query, req.Query.Data); err != nil {
		return err
	}
	obs(StageUpload, time.Since(start))

	start = time.Now()
	if err := computeDistances(ctx, dev, &bufs, rw, qw, dim, t); err != nil {
		return err
	}
	obs(StageDistance, time.Since(start))

	start = time.Now()
	if err := selectTopK(ctx, dev, &bufs, rw, qw, k, sb); err != nil {
		return err
	}
	obs(StageSelect, time.Since(start))

	start = time.Now()
	if err := normalize(ctx, dev, bufs.knnDist, qw, k, t); err != nil {
		return err
	}
	obs(StageNormalize, time.Since(start))

	start = time.Now()
	if err := device.CopyOut(ctx, req.Dist[:k*qw], bufs.knnDist); err != nil {
		return err
	}
	if err := device.CopyOut(ctx, req.Ind[:k*qw], bufs.knnInd); err != nil {
		return err
	}
	obs(StageDownload, time.Since(start))

	return nil
}

func computeDistances(ctx context.Context, dev *device.Device, bufs *buffers, rw, qw, dim, t int) error {
	p := &tile.Problem{
		Ref:        bufs.ref.Data(),
		RefWidth:   rw,
		Query:      bufs.query.Data(),
		QueryWidth: qw,
		Dim:        dim,
		Out:        bufs.dist.Data(),
		Tile:       t,
	}

	k := device.Kernel{Name: StageDistance, Grid: p.Grid(), Block: p.Block()}
	return dev.Launch(ctx, k, func(_ context.Context, b device.Block) error {
		tc := pool.GetTile(t)
		defer pool.PutTile(tc)
		tile.Compute(p, tc, b.X, b.Y)
		return nil
	})
}

func selectTopK(ctx context.Context, dev *device.Device, bufs *buffers, rw, qw, k, sb int) error {
	dist := bufs.dist.Data()
	outDist := bufs.knnDist.Data()
	outInd := bufs.knnInd.Data()

	kern := device.Kernel{
		Name:  StageSelect,
		Grid:  device.GridFor(device.Dim1(qw), device.Dim1(sb)),
		Block: device.Dim1(sb),
	}
	return dev.Launch(ctx, kern, func(_ context.Context, b device.Block) error {
		sc := pool.GetSelect(k)
		defer pool.PutSelect(sc)

		q0, _ := b.Origin()
		q1 := min(q0+sb, qw)
		for q := q0; q < q1; q++ {
			topk.SelectStrided(sc.List, dist, q, qw, rw)
			topk.WriteStrided(sc.List, outDist, outInd, q, qw)
		}
		return nil
	})
}

func normalize(ctx context.Context, dev *device.Device, knnDist *device.Buffer[float32], qw, k, t int) error {
	data := knnDist.Data()
	block := device.Dim2(t, t)

	kern := device.Kernel{
		Name:  StageNormalize,
		Grid:  device.GridFor(device.Dim2(qw, k), block),
		Block: block,
	}
	return dev.Launch(ctx, kern, func(_ context.Context, b device.Block) error {
		x0, y0 := b.Origin()
		x1 := min(x0+t, qw)
		y1 := min(y0+t, k)
		for i := y0; i < y1; i++ {
			simd.SqrtInPlace(data[i*qw+x0 : i*qw+x1])
		}
		return nil
	})
}
