package mfind

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Option configures [Search] and [Find].
// Options are applied in order.
type Option func(*options)

// SkipFunc decides whether an entry is pruned. A pruned entry is neither
// matched nor, if it is a directory, descended into. path is the full entry
// path as it would be reported. SkipFunc is called concurrently.
type SkipFunc func(path string, typ EntryType) bool

// WithWorkers sets the number of concurrent workers.
//
// Workers are started once and live for the whole search; the pool never
// grows or shrinks. A pool larger than the number of directories is valid:
// surplus workers stay blocked until the search completes and then exit.
//
// # Default
//
// 1.
//
// # Tuning guidance
//
// Directory scanning is dominated by getdents64 and fstatat. Throughput
// typically scales up to the number of cores on wide trees and flattens
// earlier on deep narrow ones, where few directories are queued at a time.
// cmd/mfindbench measures this for a given tree.
//
// Values < 1 make [Search] fail with [ErrInvalidWorkers].
func WithWorkers(n int) Option {
	return func(o *options) {
		o.Workers = n
		o.workersSet = true
	}
}

// WithOnError registers a handler for [IOError]s.
//
// Failures to open a directory, read its entries or resolve an entry's
// metadata never stop the search. Each one is passed to fn together with the
// cumulative count including the current error. The handler is serialized
// across workers, so it may write to a shared stream without extra locking.
//
// If nil, errors are logged at warn level on the configured logger.
func WithOnError(fn func(err error, count int)) Option {
	return func(o *options) {
		o.OnError = fn
	}
}

// WithLogger sets the structured logger. Defaults to discarding output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.Logger = l
	}
}

// WithTracer sets the tracer used for the search span. Defaults to a no-op
// tracer.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		o.Tracer = t
	}
}

// WithSkip registers an exclusion predicate. See [SkipFunc].
func WithSkip(fn SkipFunc) Option {
	return func(o *options) {
		o.Skip = fn
	}
}

// WithHidden controls whether entries whose name starts with "." are
// visited. By default they are skipped: not matched and not descended into.
// Start paths are always visited.
func WithHidden(include bool) Option {
	return func(o *options) {
		o.Hidden = include
	}
}

type options struct {
	// Workers is the worker pool size.
	Workers int
	// OnError handles IO errors.
	OnError func(err error, count int)
	// Logger receives structured logs.
	Logger *slog.Logger
	// Tracer creates the search span.
	Tracer trace.Tracer
	// Skip prunes entries.
	Skip SkipFunc
	// Hidden includes dot-entries.
	Hidden bool

	workersSet  bool
	beforeClaim func()
}

const defaultWorkers = 1

// applyOptions merges option values and applies defaults.
func applyOptions(opts []Option) options {
	cfg := options{}

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if !cfg.workersSet {
		cfg.Workers = defaultWorkers
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	if cfg.Tracer == nil {
		cfg.Tracer = noop.NewTracerProvider().Tracer("")
	}

	return cfg
}
