// Package semaphore is a counting semaphore whose Acquire is a Future,
// used by package mpsc to implement bounded-channel backpressure without
// blocking the executor thread.
package semaphore

import (
	"container/list"
	"sync"

	"github.com/solo-rt/solo/internal/task"
)

// Semaphore guards a fixed number of permits. Acquire parks on an
// intrusive FIFO waiter list when none are available, rather than
// busy-polling; Release hands a freed permit directly to the
// longest-waiting Acquire, if any, so permits are not subject to
// starvation.
type Semaphore struct {
	mu      sync.Mutex
	permits int
	waiters *list.List
}

type waiter struct {
	w     *task.Waker
	woken bool
}

// New constructs a Semaphore with the given number of initial permits.
func New(permits int) *Semaphore {
	return &Semaphore{permits: permits, waiters: list.New()}
}

// Acquire returns a Future resolving once a permit has been granted.
func (s *Semaphore) Acquire() *AcquireFuture {
	return &AcquireFuture{sem: s}
}

// Release returns one permit. If a waiter is parked, the permit is
// handed directly to it (it is woken, not re-queued to compete for the
// freed count); otherwise the permit count is incremented.
func (s *Semaphore) Release() {
	s.mu.Lock()
	front := s.waiters.Front()
	if front == nil {
		s.permits++
		s.mu.Unlock()
		return
	}
	wt := front.Value.(*waiter)
	s.waiters.Remove(front)
	wt.woken = true
	s.mu.Unlock()
	wt.w.Wake()
}

// AcquireFuture resolves once its Semaphore grants it a permit.
type AcquireFuture struct {
	sem     *Semaphore
	element *list.Element
}

// Poll implements task.Future[struct{}].
func (f *AcquireFuture) Poll(w *task.Waker) (struct{}, bool) {
	f.sem.mu.Lock()
	if f.element == nil {
		if f.sem.permits > 0 {
			f.sem.permits--
			f.sem.mu.Unlock()
			return struct{}{}, true
		}
		f.element = f.sem.waiters.PushBack(&waiter{w: w.Clone()})
		f.sem.mu.Unlock()
		return struct{}{}, false
	}
	wt := f.element.Value.(*waiter)
	woken := wt.woken
	f.sem.mu.Unlock()
	return struct{}{}, woken
}
