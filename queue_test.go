package mfind

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_WorkQueue_Dequeues_In_FIFO_Order(t *testing.T) {
	t.Parallel()

	q := newWorkQueue(0)
	require.True(t, q.isEmpty())

	for i := range 5 {
		q.enqueue(task{path: fmt.Sprintf("d%d/", i)})
	}

	require.Equal(t, 5, q.size())

	for i := range 5 {
		got, ok := q.dequeue()
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("d%d/", i), got.path)
	}

	_, ok := q.dequeue()
	assert.False(t, ok)
	assert.True(t, q.isEmpty())
	assert.Equal(t, 0, q.size())
}

func Test_WorkQueue_Keeps_Order_When_Consumed_Prefix_Is_Reclaimed(t *testing.T) {
	t.Parallel()

	q := newWorkQueue(0)

	const total = 5000

	next := 0
	for i := range total {
		q.enqueue(task{path: fmt.Sprint(i)})

		// Drain two for every three pushed so head keeps advancing past
		// the reclaim threshold while the queue is never empty.
		if i%3 == 2 {
			for range 2 {
				got, ok := q.dequeue()
				require.True(t, ok)
				require.Equal(t, fmt.Sprint(next), got.path)
				next++
			}
		}
	}

	for !q.isEmpty() {
		got, ok := q.dequeue()
		require.True(t, ok)
		require.Equal(t, fmt.Sprint(next), got.path)
		next++
	}

	assert.Equal(t, total, next)
}

func Test_WorkQueue_Delivers_Each_Task_Once_When_Used_Concurrently(t *testing.T) {
	t.Parallel()

	const (
		producers   = 8
		perProducer = 500
	)

	q := newWorkQueue(0)

	var wg sync.WaitGroup
	for p := range producers {
		wg.Go(func() {
			for i := range perProducer {
				q.enqueue(task{path: fmt.Sprintf("%d/%d", p, i)})
			}
		})
	}

	var (
		mu   sync.Mutex
		seen = make(map[string]int)
	)

	for range producers {
		wg.Go(func() {
			for range perProducer {
				for {
					got, ok := q.dequeue()
					if !ok {
						continue
					}

					mu.Lock()
					seen[got.path]++
					mu.Unlock()

					break
				}
			}
		})
	}

	wg.Wait()

	require.Len(t, seen, producers*perProducer)

	for path, n := range seen {
		require.Equal(t, 1, n, "task %s delivered %d times", path, n)
	}

	assert.True(t, q.isEmpty())
}
