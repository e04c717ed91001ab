package knn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/knn/internal/conv"
	"github.com/hupe1980/knn/internal/device"
	"github.com/hupe1980/knn/internal/pipeline"
	"github.com/hupe1980/knn/internal/reference"
	"github.com/hupe1980/knn/model"
)

// Re-exported data model.
type (
	PointSet = model.PointSet
	Neighbor = model.Neighbor
	Result   = model.Result
)

// Pipeline stage names, as reported to Logger.LogStage and
// MetricsCollector.RecordStage.
const (
	StageUpload    = pipeline.StageUpload
	StageDistance  = pipeline.StageDistance
	StageSelect    = pipeline.StageSelect
	StageNormalize = pipeline.StageNormalize
	StageDownload  = pipeline.StageDownload
)

// Search returns, for every query, the k nearest reference points under
// Euclidean distance, computed by the parallel pipeline.
func Search(ctx context.Context, ref, query PointSet, k int, opts ...Option) (*Result, error) {
	o := applyOptions(opts)
	if err := validate(ref, query, k); err != nil {
		o.logger.LogSearch(ctx, EnginePipeline, k, query.Width, err)
		return nil, err
	}
	res := model.NewResult(k, query.Width)
	if err := runPipeline(ctx, ref, query, k, res.Distances, res.Indices, &o); err != nil {
		return nil, err
	}
	return res, nil
}

// SearchInto is Search writing into caller buffers. dist and ind must hold
// at least k*query.Width elements; rank i of query q lands at i*query.Width+q.
// If the call fails before the search completes, the buffers are not
// modified, except on context cancellation where their content is
// unspecified.
func SearchInto(ctx context.Context, ref, query PointSet, k int, dist []float32, ind []int32, opts ...Option) error {
	o := applyOptions(opts)
	if err := validateInto(ref, query, k, dist, ind); err != nil {
		o.logger.LogSearch(ctx, EnginePipeline, k, query.Width, err)
		return err
	}
	return runPipeline(ctx, ref, query, k, dist, ind, &o)
}

// SearchSequential computes the same result as Search with the sequential
// reference engine.
func SearchSequential(ctx context.Context, ref, query PointSet, k int, opts ...Option) (*Result, error) {
	o := applyOptions(opts)
	if err := validate(ref, query, k); err != nil {
		o.logger.LogSearch(ctx, EngineSequential, k, query.Width, err)
		return nil, err
	}
	res := model.NewResult(k, query.Width)
	if err := runSequential(ctx, ref, query, k, res.Distances, res.Indices, &o); err != nil {
		return nil, err
	}
	return res, nil
}

// SequentialInto is SearchSequential writing into caller buffers, with the
// same layout and guarantees as SearchInto.
func SequentialInto(ctx context.Context, ref, query PointSet, k int, dist []float32, ind []int32, opts ...Option) error {
	o := applyOptions(opts)
	if err := validateInto(ref, query, k, dist, ind); err != nil {
		o.logger.LogSearch(ctx, EngineSequential, k, query.Width, err)
		return err
	}
	return runSequential(ctx, ref, query, k, dist, ind, &o)
}

func runPipeline(ctx context.Context, ref, query PointSet, k int, dist []float32, ind []int32, o *options) error {
	start := time.Now()
	dev := device.New(device.Config{Workers: o.workers, Resources: o.resources})

	err := pipeline.Run(ctx, dev, pipeline.Request{
		Ref:         ref,
		Query:       query,
		K:           k,
		Tile:        o.tileSize,
		SelectBlock: o.selectBlock,
		Dist:        dist,
		Ind:         ind,
	}, func(stage string, d time.Duration) {
		o.logger.LogStage(ctx, stage, d)
		o.metricsCollector.RecordStage(stage, d)
	})
	err = translateError(err)

	recordAllocation(o, pipeline.Footprint(ref.Width, query.Width, ref.Dim, k), err)
	o.metricsCollector.RecordSearch(EnginePipeline, k, query.Width, time.Since(start), err)
	o.logger.LogSearch(ctx, EnginePipeline, k, query.Width, err)
	return err
}

func runSequential(ctx context.Context, ref, query PointSet, k int, dist []float32, ind []int32, o *options) error {
	start := time.Now()

	err := reference.Run(ctx, o.resources, reference.Request{
		Ref:   ref,
		Query: query,
		K:     k,
		Dist:  dist,
		Ind:   ind,
	})
	err = translateError(err)

	recordAllocation(o, reference.ScratchBytes(ref.Width, ref.Dim), err)
	o.metricsCollector.RecordSearch(EngineSequential, k, query.Width, time.Since(start), err)
	o.logger.LogSearch(ctx, EngineSequential, k, query.Width, err)
	return err
}

func recordAllocation(o *options, bytes int64, err error) {
	if errors.Is(err, ErrAllocation) {
		o.metricsCollector.RecordAllocation(bytes, err)
		return
	}
	o.metricsCollector.RecordAllocation(bytes, nil)
}

func validate(ref, query PointSet, k int) error {
	if err := ref.Validate(); err != nil {
		return &ErrInvalidPointSet{Name: "reference", cause: err}
	}
	if err := query.Validate(); err != nil {
		return &ErrInvalidPointSet{Name: "query", cause: err}
	}
	if query.Dim != ref.Dim {
		return &ErrDimensionMismatch{Expected: ref.Dim, Actual: query.Dim}
	}
	if _, err := conv.IntToInt32(ref.Width); err != nil {
		return fmt.Errorf("%w: %w", ErrTooManyPoints, err)
	}
	if k < 1 || k > ref.Width {
		return &ErrKOutOfRange{K: k, Max: ref.Width}
	}
	return nil
}

func validateInto(ref, query PointSet, k int, dist []float32, ind []int32) error {
	if err := validate(ref, query, k); err != nil {
		return err
	}
	need := k * query.Width
	if len(dist) < need {
		return &ErrBufferSize{Name: "distance", Need: need, Got: len(dist)}
	}
	if len(ind) < need {
		return &ErrBufferSize{Name: "index", Need: need, Got: len(ind)}
	}
	return nil
}
