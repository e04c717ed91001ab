package knn

import (
	"sync/atomic"
	"time"
)

// Engine names passed to MetricsCollector.RecordSearch and Logger.LogSearch.
const (
	EnginePipeline   = "pipeline"
	EngineSequential = "sequential"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// prommetrics package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordSearch is called after each search call.
	// engine is EnginePipeline or EngineSequential, err is nil if successful.
	RecordSearch(engine string, k, queries int, duration time.Duration, err error)

	// RecordStage is called after each pipeline stage.
	RecordStage(stage string, duration time.Duration)

	// RecordAllocation is called once per call with the working memory it
	// needed. err is non-nil if the memory could not be obtained.
	RecordAllocation(bytes int64, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSearch(string, int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordStage(string, time.Duration)                   {}
func (NoopMetricsCollector) RecordAllocation(int64, error)                       {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	PipelineCount      atomic.Int64
	PipelineErrors     atomic.Int64
	PipelineTotalNanos atomic.Int64
	SequentialCount    atomic.Int64
	SequentialErrors   atomic.Int64
	SequentialNanos    atomic.Int64
	QueriesTotal       atomic.Int64
	DistanceNanos      atomic.Int64
	SelectNanos        atomic.Int64
	NormalizeNanos     atomic.Int64
	TransferNanos      atomic.Int64
	AllocatedBytes     atomic.Int64
	AllocationErrors   atomic.Int64
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(engine string, k, queries int, duration time.Duration, err error) {
	b.QueriesTotal.Add(int64(queries))
	switch engine {
	case EngineSequential:
		b.SequentialCount.Add(1)
		b.SequentialNanos.Add(duration.Nanoseconds())
		if err != nil {
			b.SequentialErrors.Add(1)
		}
	default:
		b.PipelineCount.Add(1)
		b.PipelineTotalNanos.Add(duration.Nanoseconds())
		if err != nil {
			b.PipelineErrors.Add(1)
		}
	}
}

// RecordStage implements MetricsCollector.
func (b *BasicMetricsCollector) RecordStage(stage string, duration time.Duration) {
	switch stage {
	case StageDistance:
		b.DistanceNanos.Add(duration.Nanoseconds())
	case StageSelect:
		b.SelectNanos.Add(duration.Nanoseconds())
	case StageNormalize:
		b.NormalizeNanos.Add(duration.Nanoseconds())
	default:
		b.TransferNanos.Add(duration.Nanoseconds())
	}
}

// RecordAllocation implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAllocation(bytes int64, err error) {
	if err != nil {
		b.AllocationErrors.Add(1)
		return
	}
	b.AllocatedBytes.Add(bytes)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		PipelineCount:      b.PipelineCount.Load(),
		PipelineErrors:     b.PipelineErrors.Load(),
		PipelineAvgNanos:   avg(b.PipelineTotalNanos.Load(), b.PipelineCount.Load()),
		SequentialCount:    b.SequentialCount.Load(),
		SequentialErrors:   b.SequentialErrors.Load(),
		SequentialAvgNanos: avg(b.SequentialNanos.Load(), b.SequentialCount.Load()),
		QueriesTotal:       b.QueriesTotal.Load(),
		DistanceNanos:      b.DistanceNanos.Load(),
		SelectNanos:        b.SelectNanos.Load(),
		NormalizeNanos:     b.NormalizeNanos.Load(),
		TransferNanos:      b.TransferNanos.Load(),
		AllocatedBytes:     b.AllocatedBytes.Load(),
		AllocationErrors:   b.AllocationErrors.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	PipelineCount      int64
	PipelineErrors     int64
	PipelineAvgNanos   int64
	SequentialCount    int64
	SequentialErrors   int64
	SequentialAvgNanos int64
	QueriesTotal       int64
	DistanceNanos      int64
	SelectNanos        int64
	NormalizeNanos     int64
	TransferNanos      int64
	AllocatedBytes     int64
	AllocationErrors   int64
}
