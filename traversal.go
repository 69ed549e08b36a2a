package mfind

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// worker owns everything one pool member touches without synchronization:
// its read buffer, its name arena and its statistics.
type worker struct {
	id       int
	state    *runState
	target   Target
	report   MatchFunc
	skip     SkipFunc
	hidden   bool
	notifier *errNotifier
	logger   *slog.Logger

	buf   []byte
	batch nameBatch
	stats WorkerStats
}

// run claims and scans tasks until the run state declares termination.
func (w *worker) run() error {
	w.logger.Debug("worker started", "worker", w.id)

	for {
		t, ok := w.state.next()
		if !ok {
			break
		}

		w.stats.DirsRead += w.scan(t)
	}

	w.logger.Debug("worker stopped",
		"worker", w.id,
		"dirs_read", w.stats.DirsRead,
		"matches", w.stats.Matches,
	)

	return nil
}

// search seeds the queue, runs the pool to completion and aggregates the
// per-worker statistics. Inputs are already validated.
func search(ctx context.Context, roots []string, target Target, report MatchFunc, cfg options) Summary {
	start := time.Now()

	_, span := cfg.Tracer.Start(ctx, "mfind.Search", trace.WithAttributes(
		attribute.Int("mfind.workers", cfg.Workers),
		attribute.Int("mfind.roots", len(roots)),
		attribute.String("mfind.target", target.Name),
		attribute.String("mfind.type", target.Type.String()),
	))
	defer span.End()

	logger := cfg.Logger

	// Start paths are compared as directories before anything is scanned.
	seedMatches := 0
	seeds := make([]task, 0, len(roots))

	for _, root := range roots {
		if target.Matches(root, TypeDir) {
			seedMatches++
			report(Match{Path: displayPath(root), Type: TypeDir})
		}

		seeds = append(seeds, task{path: withTrailingSep(root)})
	}

	state := newRunState(seeds)
	state.beforeClaim = cfg.beforeClaim
	notifier := newErrNotifier(cfg.OnError, logger)

	workers := make([]*worker, cfg.Workers)

	var g errgroup.Group

	for i := range workers {
		w := &worker{
			id:       i,
			state:    state,
			target:   target,
			report:   report,
			skip:     cfg.Skip,
			hidden:   cfg.Hidden,
			notifier: notifier,
			logger:   logger,
			buf:      make([]byte, dirBufSize),
			stats:    WorkerStats{ID: i},
		}
		workers[i] = w

		g.Go(w.run)
	}

	// Workers never return an error; Wait is the join.
	_ = g.Wait()

	summary := Summary{
		Workers:  make([]WorkerStats, 0, len(workers)),
		Matches:  seedMatches,
		Duration: time.Since(start),
	}

	for _, w := range workers {
		summary.Workers = append(summary.Workers, w.stats)
		summary.DirsRead += w.stats.DirsRead
		summary.Matches += w.stats.Matches
		summary.Errors += w.stats.Errors
	}

	span.SetAttributes(
		attribute.Int("mfind.dirs_read", summary.DirsRead),
		attribute.Int("mfind.matches", summary.Matches),
		attribute.Int("mfind.errors", summary.Errors),
		attribute.Int64("mfind.terminations", state.terminations.Load()),
	)

	logger.Info("search complete",
		"workers", cfg.Workers,
		"dirs_read", summary.DirsRead,
		"matches", summary.Matches,
		"errors", summary.Errors,
		"duration", summary.Duration,
	)

	return summary
}
