package mfind

import (
	"sync"
	"sync/atomic"
)

// ============================================================================
// Run state: work signal, active-worker counter, termination
// ============================================================================
//
// Workers coordinate through three pieces of shared state:
//
//	queue   pending directories (workQueue, own lock)
//	signal  one unit per queued task, plus shutdown tokens (countingSignal)
//	active  workers currently inside a directory scan (guarded by mu)
//
// Lock order is mu, then queue.mu. enqueue takes queue.mu alone.
//
// Worker loop (next):
//
//	acquire a unit
//	lock mu, dequeue under queue.mu
//	  got a task   -> active++, unlock, scan it, finish()
//	  queue empty  -> if active == 0: release one unit, exit
//	                  else:           unlock, acquire again
//
// finish (end of every scan):
//
//	lock mu, active--, check queue under queue.mu
//	  queue empty and active == 0 -> release one unit
//
// Dequeue and active++ happen under the same mu critical section. A task is
// therefore always visible either in the queue or in the active count, and
// "queue empty and active == 0" can only be observed once no task exists
// anywhere and none can be produced again.
//
// Until that point, units in the signal never exceed queued tasks, so a
// worker that acquires a unit always finds a task. After it, the end-of-scan
// release wakes one waiter, which sees the empty state, releases a unit for
// the next waiter, and exits. Each exiting worker passes the token on exactly
// once, so every blocked worker wakes, including pools larger than the
// number of directories.
type runState struct {
	queue  *workQueue
	signal *countingSignal

	mu     sync.Mutex
	active int

	terminations atomic.Int64

	// beforeClaim runs between acquire and the claim. Tests use it to widen
	// the window in which other workers can race the claim.
	beforeClaim func()
}

// newRunState seeds the queue with one task per root and the signal with one
// unit per task.
func newRunState(seeds []task) *runState {
	q := newWorkQueue(max(len(seeds), 64))
	for _, t := range seeds {
		q.enqueue(t)
	}

	return &runState{
		queue:  q,
		signal: newCountingSignal(len(seeds)),
	}
}

// next blocks until the caller owns a task (and is counted active) or the
// run is over. ok is false exactly once per worker, on termination.
func (r *runState) next() (t task, ok bool) {
	for {
		r.signal.acquire()

		if r.beforeClaim != nil {
			r.beforeClaim()
		}

		r.mu.Lock()
		r.queue.mu.Lock()
		t, ok = r.queue.dequeueLocked()
		r.queue.mu.Unlock()

		if ok {
			r.active++
			r.mu.Unlock()

			return t, true
		}

		if r.active == 0 {
			r.mu.Unlock()
			r.terminations.Add(1)
			r.signal.release(1)

			return task{}, false
		}

		r.mu.Unlock()
	}
}

// push queues a discovered directory and makes one more unit available.
func (r *runState) push(t task) {
	r.queue.enqueue(t)
	r.signal.release(1)
}

// finish ends a scan started by next. It must run exactly once per task.
func (r *runState) finish() {
	r.mu.Lock()
	r.active--

	if r.active < 0 {
		r.mu.Unlock()
		panic("mfind: finish called without a claimed task")
	}

	r.queue.mu.Lock()
	done := r.queue.emptyLocked() && r.active == 0
	r.queue.mu.Unlock()
	r.mu.Unlock()

	if done {
		r.signal.release(1)
	}
}

func (r *runState) activeWorkers() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.active
}
