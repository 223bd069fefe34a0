package task

import "sync"

// vtable holds the operations the ready-queue and Waker need to reach
// into a generically-typed rawTask[T] without knowing T. Unlike the
// allocation-level vtable in SPEC_FULL.md's Rust source, this table is
// three closures created once at Spawn time, each closing over the
// concrete *rawTask[T] pointer — see raw.go.
type vtable struct {
	poll     func()
	schedule func()
	dropTask func()
}

// Header is the common, non-generic prefix of every task. It is the only
// type the ready-queue, the Waker, and the reactor ever need to hold:
// JoinHandle[T], by contrast, keeps the concrete *rawTask[T] directly,
// since the caller constructing a JoinHandle[T] already knows T.
type Header struct {
	state  *state
	vtable *vtable

	mu        sync.Mutex
	joinWaker *Waker
}

// Poll drives the underlying future once.
func (h *Header) Poll() { h.vtable.poll() }

// Schedule enqueues the task through its stored scheduler handle. Safe to
// call from any goroutine; it is the mechanism by which a Waker fired
// off the executor goroutine gets the task back onto the ready-queue.
func (h *Header) Schedule() { h.vtable.schedule() }

// Scheduled reports whether the task currently sits on a ready-queue.
func (h *Header) Scheduled() bool { return h.state.scheduled() }

// Complete reports whether the task's future has produced its output.
func (h *Header) Complete() bool { return h.state.complete() }

// RefCount returns the task's current reference count, for tests.
func (h *Header) RefCount() uint32 { return h.state.refCount() }

// TransitionToRunning clears SCHEDULED and sets RUNNING. Called by the
// executor immediately before it polls a dequeued task.
func (h *Header) TransitionToRunning() { h.state.transitionToRunning() }

// registerJoinWaker stores w as the waker to notify on completion,
// replacing (and dropping the reference held by) any waker already
// registered — only one JoinHandle may await a given task at a time.
func (h *Header) registerJoinWaker(w *Waker) {
	h.mu.Lock()
	prev := h.joinWaker
	h.joinWaker = w
	h.mu.Unlock()
	if prev != nil {
		prev.Drop()
	}
	h.state.setJoinWaker(true)
}

// wakeJoinHandle fires and clears any registered JoinHandle waker. Called
// once, when the task transitions to Complete.
func (h *Header) wakeJoinHandle() {
	h.mu.Lock()
	w := h.joinWaker
	h.joinWaker = nil
	h.mu.Unlock()
	if w != nil {
		h.state.setJoinWaker(false)
		w.WakeByRef()
		w.Drop()
	}
}
