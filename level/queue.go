package level

import (
	"sync"
	"sync/atomic"
)

// task is a function scheduled to run on the level goroutine at a tick.
type task struct {
	// tick is the tick the task runs at.
	tick uint64
	// seq orders tasks scheduled for the same tick.
	seq uint64

	fn   func(l *Level)
	done chan struct{}

	cancelled atomic.Bool

	// index is the heap index of the task.
	index int
}

// TaskHandle allows cancelling a scheduled task.
type TaskHandle struct {
	t *task
}

// Cancel prevents the task from running if it has not run yet.
func (h *TaskHandle) Cancel() {
	if h != nil && h.t != nil {
		h.t.cancelled.Store(true)
	}
}

// taskQueue is a priority queue of tasks ordered by tick, then by the order
// they were pushed in. It is the only state of a level guarded by a lock.
type taskQueue struct {
	mu    sync.Mutex
	heap  []*task
	seq   uint64
	notif chan struct{}
	// closed is set by Drain. A closed queue rejects new tasks.
	closed bool
}

func newTaskQueue() *taskQueue {
	return &taskQueue{
		heap:  make([]*task, 0, 64),
		notif: make(chan struct{}, 1),
	}
}

// Push adds a task to the queue and wakes up the level goroutine. It returns
// false without queueing the task once the queue was drained.
func (q *taskQueue) Push(t *task) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	if len(q.heap) > 100 && len(q.heap)%100 == 0 {
		q.compact()
	}
	q.seq++
	t.seq = q.seq
	t.index = len(q.heap)
	q.heap = append(q.heap, t)
	q.up(t.index)
	q.mu.Unlock()

	select {
	case q.notif <- struct{}{}:
	default:
	}
	return true
}

// PopDue removes and returns all tasks due at or before tick, in order.
// Cancelled tasks are dropped.
func (q *taskQueue) PopDue(tick uint64) []*task {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []*task
	for len(q.heap) > 0 && q.heap[0].tick <= tick {
		t := q.pop()
		if t.cancelled.Load() {
			continue
		}
		due = append(due, t)
	}
	return due
}

// Len returns the number of queued tasks, including cancelled ones not yet
// dropped.
func (q *taskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}

// Drain closes the queue, then removes and returns all tasks that were not
// cancelled.
func (q *taskQueue) Drain() []*task {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true

	var out []*task
	for len(q.heap) > 0 {
		if t := q.pop(); !t.cancelled.Load() {
			out = append(out, t)
		}
	}
	return out
}

// Notify returns the channel signalled when a task is pushed.
func (q *taskQueue) Notify() <-chan struct{} {
	return q.notif
}

// compact removes cancelled tasks and restores the heap property. Caller
// must hold the lock.
func (q *taskQueue) compact() {
	write := 0
	for read := 0; read < len(q.heap); read++ {
		if !q.heap[read].cancelled.Load() {
			q.heap[write] = q.heap[read]
			q.heap[write].index = write
			write++
		}
	}
	for i := write; i < len(q.heap); i++ {
		q.heap[i] = nil
	}
	q.heap = q.heap[:write]
	for i := len(q.heap)/2 - 1; i >= 0; i-- {
		q.down(i, len(q.heap))
	}
}

// pop removes and returns the first task. Caller must hold the lock.
func (q *taskQueue) pop() *task {
	n := len(q.heap) - 1
	q.swap(0, n)
	q.down(0, n)
	t := q.heap[n]
	q.heap[n] = nil
	q.heap = q.heap[:n]
	t.index = -1
	return t
}

func (q *taskQueue) less(i, j int) bool {
	a, b := q.heap[i], q.heap[j]
	if a.tick != b.tick {
		return a.tick < b.tick
	}
	return a.seq < b.seq
}

func (q *taskQueue) up(i int) {
	for {
		parent := (i - 1) / 2
		if parent == i || !q.less(i, parent) {
			break
		}
		q.swap(i, parent)
		i = parent
	}
}

func (q *taskQueue) down(i, n int) {
	for {
		left := 2*i + 1
		if left >= n || left < 0 {
			break
		}
		j := left
		if right := left + 1; right < n && q.less(right, left) {
			j = right
		}
		if !q.less(j, i) {
			break
		}
		q.swap(i, j)
		i = j
	}
}

func (q *taskQueue) swap(i, j int) {
	q.heap[i], q.heap[j] = q.heap[j], q.heap[i]
	q.heap[i].index = i
	q.heap[j].index = j
}
