package coordinator

import (
	"log/slog"
	"runtime"
	"time"
)

// DefaultTileTimeout is the tile limit of a coordinator created without
// WithTileTimeout.
var DefaultTileTimeout = 30 * time.Second

// Option configures a Coordinator.
type Option func(*options)

type options struct {
	workers     int
	tileTimeout time.Duration
	retries     int
	logger      *slog.Logger
}

func defaultOptions() options {
	return options{
		workers:     runtime.GOMAXPROCS(0),
		tileTimeout: DefaultTileTimeout,
		retries:     1,
	}
}

// WithWorkers sets the pool size and therefore the number of row bands per
// render. Zero or negative means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n <= 0 {
			n = runtime.GOMAXPROCS(0)
		}
		o.workers = n
	}
}

// WithTileTimeout bounds how long a single tile may take. A tile exceeding
// it counts as failed and the worker moves on, even if the renderer ignores
// its context. The default is DefaultTileTimeout; zero disables the limit.
func WithTileTimeout(d time.Duration) Option {
	return func(o *options) {
		o.tileTimeout = d
	}
}

// WithRetries sets how many times a failed tile is rescheduled before it is
// reported to the sink as failed. The default is 1.
func WithRetries(n int) Option {
	return func(o *options) {
		o.retries = max(0, n)
	}
}

// WithLogger overrides the module-wide logger for this coordinator.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
