package task

import "fmt"

// TaskPanicError wraps the value recovered from a spawned task's Poll
// panic. A JoinHandle[T] awaiting a task that panicked observes this
// error from Err() once Poll reports ready.
type TaskPanicError struct {
	Value any
}

func (e *TaskPanicError) Error() string {
	return fmt.Sprintf("solo: task panicked: %v", e.Value)
}
