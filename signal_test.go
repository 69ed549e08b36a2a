package mfind

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_CountingSignal_Acquire_Blocks_Until_Release(t *testing.T) {
	t.Parallel()

	s := newCountingSignal(0)

	acquired := make(chan struct{})

	go func() {
		s.acquire()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("acquire returned without a unit")
	case <-time.After(20 * time.Millisecond):
	}

	s.release(1)

	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("acquire did not return after release")
	}

	assert.Equal(t, 0, s.available())
}

func Test_CountingSignal_Initial_Units_Are_Available_Without_Release(t *testing.T) {
	t.Parallel()

	s := newCountingSignal(3)

	for range 3 {
		s.acquire()
	}

	assert.Equal(t, 0, s.available())
}

func Test_CountingSignal_Release_N_Wakes_N_Waiters(t *testing.T) {
	t.Parallel()

	const waiters = 16

	s := newCountingSignal(0)

	var (
		wg   sync.WaitGroup
		done atomic.Int32
	)

	for range waiters {
		wg.Go(func() {
			s.acquire()
			done.Add(1)
		})
	}

	s.release(waiters / 2)

	require.Eventually(t, func() bool {
		return done.Load() == waiters/2
	}, 5*time.Second, time.Millisecond)

	// The other half must still be blocked.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(waiters/2), done.Load())

	s.release(waiters / 2)
	wg.Wait()

	assert.Equal(t, int32(waiters), done.Load())
	assert.Equal(t, 0, s.available())
}

func Test_CountingSignal_Ignores_Non_Positive_Release(t *testing.T) {
	t.Parallel()

	s := newCountingSignal(1)
	s.release(0)
	s.release(-3)

	assert.Equal(t, 1, s.available())
}
