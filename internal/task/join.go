package task

// JoinHandle is a Future over a spawned task's eventual output. Only one
// JoinHandle may usefully await a given task — registering a second
// waker displaces (and drops) the first, matching the single-owner
// JoinHandle contract of spec.md §4.1.
type JoinHandle[T any] struct {
	task    *rawTask[T]
	err     error
	dropped bool
}

// Poll implements task.Future[T]. Once the wrapped task completes, Poll
// returns its output and true; any panic recovered from the task's
// future is available afterward from Err.
func (jh *JoinHandle[T]) Poll(w *Waker) (T, bool) {
	out, err, ready := jh.task.getOutput()
	if ready {
		jh.err = err
		return out, true
	}
	jh.task.header.registerJoinWaker(w.Clone())
	var zero T
	return zero, false
}

// Err returns the error recovered from a panicking task. Valid only once
// Poll has returned ready=true; nil if the task completed normally.
func (jh *JoinHandle[T]) Err() error { return jh.err }

// Header exposes the underlying task's type-erased Header, e.g. for a
// select-style wait over several JoinHandles.
func (jh *JoinHandle[T]) Header() *Header { return &jh.task.header }

// Drop detaches the JoinHandle without waiting for the task's output. If
// the task is still running, the executor keeps driving it to
// completion; any output it eventually produces is simply discarded.
// Drop is idempotent.
func (jh *JoinHandle[T]) Drop() {
	if jh.dropped {
		return
	}
	jh.dropped = true
	jh.task.dropJoinHandle()
}
