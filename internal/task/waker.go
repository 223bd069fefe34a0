package task

import "github.com/solo-rt/solo/metrics"

// Waker is a reference-counted, clonable handle that reschedules its
// target task when invoked. It plays the role of Rust's Waker/RawWaker
// vtable from SPEC_FULL.md §4.3, but since Go needs no manual vtable to
// call a method on an interface value, Waker is simply a struct over
// *Header. A nil header makes Waker a no-op, used by the root runtime to
// poll the top-level future (see SPEC_FULL.md §4.5).
type Waker struct {
	header *Header
}

// newWaker constructs a Waker over h. The caller is responsible for the
// reference count it represents (newState already accounts for the
// executor's own implicit waker use; explicit Clone calls increment
// further).
func newWaker(h *Header) *Waker {
	return &Waker{header: h}
}

// NewNoopWaker returns a Waker whose Clone/Wake/WakeByRef/Drop do nothing.
func NewNoopWaker() *Waker {
	return &Waker{header: nil}
}

// Clone increments the target task's reference count and returns a new
// Waker sharing it.
func (w *Waker) Clone() *Waker {
	if w.header == nil {
		return w
	}
	w.header.state.incrRef()
	metrics.Add(metrics.WakerClones, 1)
	return &Waker{header: w.header}
}

// Wake consumes w: it schedules the task (unless it is already scheduled
// or complete) and then drops the reference count w held. Callers that
// still need the waker afterward should use WakeByRef instead.
func (w *Waker) Wake() {
	w.wake()
	w.Drop()
}

// WakeByRef schedules the task without consuming w's reference count.
func (w *Waker) WakeByRef() {
	w.wake()
}

func (w *Waker) wake() {
	if w.header == nil {
		return
	}
	metrics.Add(metrics.WakerWakes, 1)
	if w.header.state.complete() {
		return
	}
	if w.header.state.trySchedule() {
		w.header.Schedule()
	}
}

// Drop releases the reference count this Waker holds. When the count
// reaches zero, the task's dropTask hook runs — see raw.go.
func (w *Waker) Drop() {
	if w.header == nil {
		return
	}
	if w.header.state.decrRef() == 0 {
		w.header.vtable.dropTask()
	}
}
