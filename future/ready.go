// Package future holds small Future combinators that don't belong to any
// one I/O-bound package: Ready (a future that resolves immediately) and
// Join2 for combining two futures into one.
package future

import "github.com/solo-rt/solo/internal/task"

// Ready is a Future[T] that resolves to Value on its very first Poll.
type Ready[T any] struct {
	Value T
}

// NewReady wraps value as an already-resolved Future[T].
func NewReady[T any](value T) Ready[T] {
	return Ready[T]{Value: value}
}

// Poll implements task.Future[T].
func (r Ready[T]) Poll(w *task.Waker) (T, bool) {
	return r.Value, true
}
