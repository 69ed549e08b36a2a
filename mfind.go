// Package mfind finds files, directories and symbolic links by name across
// one or more directory trees using a fixed pool of concurrent workers.
//
// # Matching
//
// A [Target] has a name and an [EntryType]. Only the tail component of the
// target name takes part in matching, so "a/b" and "b/" both look for entries
// called "b". Comparison is byte for byte. [TypeAny] accepts every entry
// type.
//
// # Traversal
//
// Traversal is breadth-first from the start paths. Each start path is first
// compared against the target as a directory and reported (without a trailing
// separator) if it matches; it is then scanned whether or not it matched.
//
// Entries whose name starts with "." are skipped unless [WithHidden] is set.
//
// # Symlinks
//
// A start path that is a symlink to a directory is followed. Entries found
// during the scan are classified without following symlinks: a symlink is
// reported as [TypeLink] and never descended into.
//
// # Errors
//
// Only configuration problems make [Search] return an error, and they are
// detected before any worker starts. Filesystem failures are reported as
// [IOError] through [WithOnError] and never stop the search.
//
// # Concurrency
//
// Workers pull directories from a shared FIFO queue. A counting signal holds
// one unit per queued directory; a worker blocks on it while no work is
// available. Completion is declared by the first worker that observes an
// empty queue with no worker mid-scan, and it wakes exactly one more blocked
// worker on its way out. Each woken worker does the same, so the whole pool
// drains without a broadcast. See controller.go for the protocol.
//
// Matches are reported as they are found, concurrently and in no particular
// order.
//
// # Cancellation
//
// There is none. The context passed to [Search] parents the trace span and
// nothing else; a search always runs to natural completion.
package mfind

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
)

// Configuration errors returned by [Search] before any work starts.
var (
	ErrNoRoots        = errors.New("no starting directory")
	ErrInvalidRoot    = errors.New("invalid starting directory")
	ErrNoTarget       = errors.New("no target")
	ErrInvalidType    = errors.New("invalid type")
	ErrInvalidWorkers = errors.New("worker count must be a positive integer")
)

// Match is one reported entry.
type Match struct {
	// Path is the start path joined with the entry's relative path.
	Path string
	// Type is the entry's own type; symlinks are never resolved.
	Type EntryType
}

// MatchFunc receives matches. It is called concurrently from all workers and
// must be safe for concurrent use.
type MatchFunc func(Match)

// WorkerStats describes one worker's share of a search.
type WorkerStats struct {
	// ID is the worker index, starting at 0.
	ID int
	// DirsRead counts directories this worker opened and scanned.
	DirsRead int
	// Matches counts entries this worker reported.
	Matches int
	// Errors counts IOErrors this worker raised.
	Errors int
}

// Summary aggregates a completed search.
type Summary struct {
	// Workers holds per-worker statistics ordered by ID.
	Workers []WorkerStats
	// DirsRead is the total number of directories scanned.
	DirsRead int
	// Matches includes start paths that matched.
	Matches int
	// Errors is the total number of IOErrors.
	Errors int
	// Duration is the wall time from seeding to the last worker exiting.
	Duration time.Duration
}

// Search scans roots for entries matching target and passes each match to
// report. report may be nil when only the [Summary] is of interest.
//
// Search returns an error only for invalid configuration: no roots, an empty
// root, a target without a name or with an unsupported type, or a worker
// count below one. Such errors wrap [ErrNoRoots], [ErrInvalidRoot],
// [ErrNoTarget], [ErrInvalidType] or [ErrInvalidWorkers].
func Search(ctx context.Context, roots []string, target Target, report MatchFunc, opts ...Option) (Summary, error) {
	cfg := applyOptions(opts)

	err := validate(roots, target, cfg)
	if err != nil {
		return Summary{}, err
	}

	if target.tail == "" {
		target.tail = tailComponent(target.Name)
	}

	if report == nil {
		report = func(Match) {}
	}

	return search(ctx, roots, target, report, cfg), nil
}

// Find is [Search] with matches collected and sorted by path.
func Find(ctx context.Context, roots []string, target Target, opts ...Option) ([]Match, Summary, error) {
	var (
		mu      sync.Mutex
		matches []Match
	)

	summary, err := Search(ctx, roots, target, func(m Match) {
		mu.Lock()
		matches = append(matches, m)
		mu.Unlock()
	}, opts...)
	if err != nil {
		return nil, Summary{}, err
	}

	slices.SortFunc(matches, func(a, b Match) int {
		return strings.Compare(a.Path, b.Path)
	})

	return matches, summary, nil
}

func validate(roots []string, target Target, cfg options) error {
	if len(roots) == 0 {
		return ErrNoRoots
	}

	for _, root := range roots {
		if root == "" {
			return fmt.Errorf("%w: empty path", ErrInvalidRoot)
		}

		if strings.IndexByte(root, 0) >= 0 {
			return fmt.Errorf("%w: %q contains NUL", ErrInvalidRoot, root)
		}
	}

	if target.Name == "" {
		return ErrNoTarget
	}

	if target.Type > TypeLink {
		return fmt.Errorf("%w: %s cannot be searched for", ErrInvalidType, target.Type)
	}

	if cfg.Workers < 1 {
		return fmt.Errorf("%w, %d is not", ErrInvalidWorkers, cfg.Workers)
	}

	return nil
}

// IOError is reported when a filesystem operation fails during a search.
type IOError struct {
	// Path is the directory or entry the operation was applied to, as it
	// would be printed for a match.
	Path string
	// Op is the operation that failed: "open", "readdir" or "lstat".
	Op string
	// Err is the underlying error.
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ============================================================================
// Error notification
// ============================================================================

// errNotifier counts IO errors and forwards them to the OnError callback,
// or to the logger when no callback is set. Safe for concurrent use.
type errNotifier struct {
	mu      sync.Mutex
	count   int
	onError func(err error, count int)
	logger  *slog.Logger
}

func newErrNotifier(onError func(err error, count int), logger *slog.Logger) *errNotifier {
	return &errNotifier{onError: onError, logger: logger}
}

func (n *errNotifier) ioErr(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.count++

	if n.onError != nil {
		n.onError(err, n.count)

		return
	}

	var ioErr *IOError
	if errors.As(err, &ioErr) {
		n.logger.Warn("io error", "op", ioErr.Op, "path", ioErr.Path, "err", ioErr.Err)

		return
	}

	n.logger.Warn("io error", "err", err)
}
