package solo

import (
	"sync"

	"github.com/solo-rt/solo/internal/reactor"
	"github.com/solo-rt/solo/internal/task"
	"github.com/solo-rt/solo/metrics"
)

// readyQueue is the executor's single-consumer, multi-producer
// ready-queue. It is a plain mutex-guarded FIFO slice rather than a Go
// channel: the executor needs a drain-everything-available operation
// once per turn, which a channel does not offer directly, and task
// identity (a *task.Header), not a value, is what circulates.
type readyQueue struct {
	mu  sync.Mutex
	buf []*task.Header
	r   *reactor.Reactor
}

func newReadyQueue(r *reactor.Reactor) *readyQueue {
	return &readyQueue{r: r}
}

// Schedule implements task.Scheduler. Safe to call from any goroutine;
// if the executor is currently blocked inside the reactor's epoll_wait,
// Trigger wakes it.
func (q *readyQueue) Schedule(h *task.Header) {
	metrics.Add(metrics.TasksScheduled, 1)
	q.mu.Lock()
	q.buf = append(q.buf, h)
	q.mu.Unlock()
	q.r.Trigger()
}

// drain removes and returns every header currently queued. Called once
// per executor turn, from the executor goroutine only.
func (q *readyQueue) drain() []*task.Header {
	q.mu.Lock()
	out := q.buf
	q.buf = nil
	q.mu.Unlock()
	return out
}

// requeue pushes headers back onto the front of the queue, for the
// unpolled remainder of a turn's batch limit.
func (q *readyQueue) requeue(headers []*task.Header) {
	if len(headers) == 0 {
		return
	}
	q.mu.Lock()
	q.buf = append(headers, q.buf...)
	q.mu.Unlock()
}

func (q *readyQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}
