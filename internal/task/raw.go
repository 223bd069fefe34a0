package task

import (
	"runtime/debug"

	"github.com/solo-rt/solo/log"
	"github.com/solo-rt/solo/metrics"
)

// Future is the minimal suspendable computation the runtime drives. Poll
// returns the output and true once ready, or a zero value and false when
// the future should be polled again after w fires.
type Future[T any] interface {
	Poll(w *Waker) (T, bool)
}

// Scheduler enqueues a task's Header back onto its owning runtime's
// ready-queue. The root package's internal queue type implements this.
type Scheduler interface {
	Schedule(h *Header)
}

// PanicHandler is invoked with the recovered value and the stack captured
// at the moment of recovery when a spawned task's future panics during
// Poll. The default handler logs and lets the panic surface to the
// awaiting JoinHandle as a *TaskPanicError.
type PanicHandler func(recovered any, stack []byte)

type statusKind uint8

const (
	statusRunning statusKind = iota
	statusFinished
	statusConsumed
)

// rawTask is the concrete, generically-typed allocation backing one
// spawned future. Only Header — the state word and the three vtable
// closures below — is ever exposed outside this package in type-erased
// form; JoinHandle[T] holds *rawTask[T] directly since its own caller
// already knows T.
type rawTask[T any] struct {
	header       Header
	future       Future[T]
	scheduler    Scheduler
	panicHandler PanicHandler

	kind   statusKind
	output T
	err    error
}

// Spawn allocates a task wrapping future, wires it to sched, and returns
// the task's Header (for the ready-queue) and a typed JoinHandle for
// awaiting its eventual output.
func Spawn[T any](sched Scheduler, future Future[T], panicHandler PanicHandler) (*Header, *JoinHandle[T]) {
	if panicHandler == nil {
		panicHandler = defaultPanicHandler
	}
	rt := &rawTask[T]{
		future:       future,
		scheduler:    sched,
		panicHandler: panicHandler,
		kind:         statusRunning,
	}
	rt.header.state = newState()
	rt.header.vtable = &vtable{
		poll:     rt.poll,
		schedule: func() { rt.scheduler.Schedule(&rt.header) },
		dropTask: rt.dropTask,
	}
	allocated.Inc()
	return &rt.header, &JoinHandle[T]{task: rt}
}

var defaultPanicHandler PanicHandler = func(recovered any, stack []byte) {
	log.TaskPanic(recovered, stack)
}

// poll drives the future once. It is only ever invoked through
// Header.Poll, which the executor calls after TransitionToRunning.
func (rt *rawTask[T]) poll() {
	if rt.kind != statusRunning {
		return
	}
	metrics.Add(metrics.TasksPolled, 1)

	w := newWaker(&rt.header)
	var (
		out       T
		ready     bool
		panicked  bool
		recovered any
		stack     []byte
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicked = true
				recovered = r
				stack = debug.Stack()
			}
		}()
		out, ready = rt.future.Poll(w)
	}()

	switch {
	case panicked:
		metrics.Add(metrics.TasksPanicked, 1)
		rt.panicHandler(recovered, stack)
		rt.kind = statusFinished
		rt.err = &TaskPanicError{Value: recovered}
		rt.header.state.transitionToComplete()
		rt.header.wakeJoinHandle()
		if rt.header.state.decrRef() == 0 {
			rt.dropTask()
		}
	case ready:
		rt.output = out
		rt.kind = statusFinished
		metrics.Add(metrics.TasksCompleted, 1)
		rt.header.state.transitionToComplete()
		rt.header.wakeJoinHandle()
		if rt.header.state.decrRef() == 0 {
			rt.dropTask()
		}
	default:
		// Clears RUNNING. If a Wake raced in while this poll was in
		// flight, SCHEDULED is already set again and the waker that set
		// it already called Schedule — nothing further to do here.
		rt.header.state.transitionToIdle()
	}
}

// getOutput returns the task's output and error once kind is
// statusFinished, transitioning to statusConsumed so a second call
// panics rather than silently handing back a zero value.
func (rt *rawTask[T]) getOutput() (T, error, bool) {
	switch rt.kind {
	case statusFinished:
		out := rt.output
		var zero T
		rt.output = zero
		rt.kind = statusConsumed
		return out, rt.err, true
	case statusConsumed:
		panic("solo: join handle output already taken")
	default:
		var zero T
		return zero, nil, false
	}
}

// dropJoinHandle clears the JOIN_HANDLE flag and releases the reference
// count the JoinHandle held.
func (rt *rawTask[T]) dropJoinHandle() {
	rt.header.state.clearJoinHandle()
	if rt.header.state.decrRef() == 0 {
		rt.dropTask()
	}
}

// dropTask runs once the reference count reaches zero. Go's GC reclaims
// the allocation itself; this hook's job is purely bookkeeping — release
// a possibly-large output value early and record the teardown for tests.
func (rt *rawTask[T]) dropTask() {
	var zero T
	rt.output = zero
	freed.Inc()
}
