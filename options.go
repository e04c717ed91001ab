package knn

import (
	"log/slog"

	"github.com/hupe1980/knn/internal/pipeline"
	"github.com/hupe1980/knn/internal/tile"
	"github.com/hupe1980/knn/resource"
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	workers          int
	tileSize         int
	selectBlock      int
	resources        *resource.Controller
}

// Option configures a search call.
type Option func(*options)

// WithLogger sets the logger. If nil, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithLogLevel installs a text logger to stderr at the given level.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector sets the metrics collector.
// If nil, metrics are discarded.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithWorkers bounds the number of blocks of one stage that run at once.
// Values <= 0 select runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithTileSize sets the edge of the square distance tiles (default 16).
// Any positive value gives the same result; it only affects speed.
func WithTileSize(t int) Option {
	return func(o *options) {
		o.tileSize = t
	}
}

// WithSelectBlock sets how many queries one selection task covers
// (default 256).
func WithSelectBlock(n int) Option {
	return func(o *options) {
		o.selectBlock = n
	}
}

// WithResourceController charges buffers, workers and copies to rc.
// Sharing one controller between calls bounds their combined footprint.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithMemoryLimit is shorthand for a private controller that only limits
// memory. It replaces any controller set earlier.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.resources = resource.NewController(resource.Config{MemoryLimitBytes: bytes})
	}
}

func applyOptions(opts []Option) options {
	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		tileSize:         tile.DefaultSize,
		selectBlock:      pipeline.DefaultSelectBlock,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tileSize <= 0 {
		o.tileSize = tile.DefaultSize
	}
	if o.selectBlock <= 0 {
		o.selectBlock = pipeline.DefaultSelectBlock
	}
	return o
}
