package mfind

import "sync"

// task is one directory awaiting expansion. path always ends with a
// separator once queued.
type task struct {
	path string
}

// workQueue is an unbounded FIFO of pending directory tasks, safe for
// concurrent use. A task is held by exactly one owner at a time: the queue,
// or the worker that dequeued it.
type workQueue struct {
	mu    sync.Mutex
	items []task
	head  int
}

func newWorkQueue(capacity int) *workQueue {
	return &workQueue{items: make([]task, 0, capacity)}
}

// enqueue appends t. It never blocks beyond lock contention.
func (q *workQueue) enqueue(t task) {
	q.mu.Lock()
	q.items = append(q.items, t)
	q.mu.Unlock()
}

// dequeue removes and returns the head task, or reports false when empty.
func (q *workQueue) dequeue() (task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.dequeueLocked()
}

// dequeueLocked is dequeue for callers that already hold q.mu.
func (q *workQueue) dequeueLocked() (task, bool) {
	if q.emptyLocked() {
		return task{}, false
	}

	t := q.items[q.head]
	q.items[q.head] = task{}
	q.head++

	// Reclaim the consumed prefix once it dominates the backing array.
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head >= 1024 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}

	return t, true
}

func (q *workQueue) isEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.emptyLocked()
}

func (q *workQueue) emptyLocked() bool {
	return q.head == len(q.items)
}

func (q *workQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items) - q.head
}
