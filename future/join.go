package future

import "github.com/solo-rt/solo/internal/task"

// Pair is the combined output of Join2.
type Pair[A, B any] struct {
	A A
	B B
}

// Join2 drives two futures concurrently, resolving once both have. Each
// Poll call advances whichever sub-future has not yet completed,
// sharing the same Waker — a sub-future that needs to retain it across
// a Pending result is responsible for cloning it, the same discipline
// task.JoinHandle follows.
type Join2[A, B any] struct {
	a     task.Future[A]
	b     task.Future[B]
	aDone bool
	bDone bool
	aVal  A
	bVal  B
}

// NewJoin2 begins joining a and b.
func NewJoin2[A, B any](a task.Future[A], b task.Future[B]) *Join2[A, B] {
	return &Join2[A, B]{a: a, b: b}
}

// Poll implements task.Future[Pair[A, B]].
func (j *Join2[A, B]) Poll(w *task.Waker) (Pair[A, B], bool) {
	if !j.aDone {
		if v, ok := j.a.Poll(w); ok {
			j.aVal, j.aDone = v, true
		}
	}
	if !j.bDone {
		if v, ok := j.b.Poll(w); ok {
			j.bVal, j.bDone = v, true
		}
	}
	if j.aDone && j.bDone {
		return Pair[A, B]{A: j.aVal, B: j.bVal}, true
	}
	var zero Pair[A, B]
	return zero, false
}
