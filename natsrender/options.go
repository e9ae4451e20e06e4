package natsrender

import (
	"log/slog"
	"time"
)

const (
	// DefaultSubject is the subject tile requests are published on.
	DefaultSubject = "fractal.tile"
	// DefaultQueue is the queue group workers join.
	DefaultQueue = "workers"
	// DefaultRequestTimeout applies to requests whose context has no deadline.
	DefaultRequestTimeout = 30 * time.Second
)

// Option configures a Client or a Service.
type Option func(*options)

type options struct {
	subject     string
	queue       string
	timeout     time.Duration
	concurrency int
	logger      *slog.Logger
}

func defaultOptions() options {
	return options{
		subject:     DefaultSubject,
		queue:       DefaultQueue,
		timeout:     DefaultRequestTimeout,
		concurrency: 1,
	}
}

func newOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithSubject sets the request subject.
func WithSubject(subject string) Option {
	return func(o *options) {
		if subject != "" {
			o.subject = subject
		}
	}
}

// WithQueue sets the queue group a Service subscribes in.
func WithQueue(queue string) Option {
	return func(o *options) {
		if queue != "" {
			o.queue = queue
		}
	}
}

// WithRequestTimeout sets the Client timeout used when the caller's context
// carries no deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithConcurrency sets how many tiles a Service renders at once. Each slot
// is a separate queue subscription.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithLogger overrides the package logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
