package mfind

import "sync"

// countingSignal is a counting semaphore without an upper bound. Producers
// release units as work appears; consumers block in acquire until one is
// available.
//
// x/sync/semaphore.Weighted is not usable here: it is sized up front and
// panics when released beyond what was acquired, while this protocol
// releases freely (one unit per discovered directory plus shutdown tokens).
type countingSignal struct {
	mu    sync.Mutex
	cond  sync.Cond
	units int
}

func newCountingSignal(initial int) *countingSignal {
	s := &countingSignal{units: initial}
	s.cond.L = &s.mu

	return s
}

// acquire blocks until a unit is available and takes it.
func (s *countingSignal) acquire() {
	s.mu.Lock()
	for s.units == 0 {
		s.cond.Wait()
	}

	s.units--
	s.mu.Unlock()
}

// release adds n units and wakes up to n waiters.
func (s *countingSignal) release(n int) {
	if n <= 0 {
		return
	}

	s.mu.Lock()
	s.units += n
	s.mu.Unlock()

	if n == 1 {
		s.cond.Signal()

		return
	}

	s.cond.Broadcast()
}

// available returns the current unit count. Only meaningful once workers
// have stopped.
func (s *countingSignal) available() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.units
}
