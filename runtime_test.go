package solo_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/solo-rt/solo"
	"github.com/solo-rt/solo/future"
	"github.com/solo-rt/solo/internal/task"
)

// yieldOnce returns Pending exactly once, waking itself immediately, then
// resolves to value. Used to exercise the ready-queue without any real
// I/O.
type yieldOnce[T any] struct {
	yielded bool
	value   T
}

func (y *yieldOnce[T]) Poll(w *task.Waker) (T, bool) {
	if !y.yielded {
		y.yielded = true
		w.WakeByRef()
		var zero T
		return zero, false
	}
	return y.value, true
}

func newRuntime(t *testing.T) *solo.Runtime {
	t.Helper()
	rt, err := solo.NewRuntime()
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, rt.Close()) })
	return rt
}

func TestSpawnAndJoin(t *testing.T) {
	rt := newRuntime(t)
	h := rt.Handle()

	freedBefore := task.Freed()
	jh := solo.Spawn[string](h, &yieldOnce[string]{value: "ok"})
	out := solo.Run[string](rt, jh)
	require.Equal(t, "ok", out)

	// Run drove the task to completion, releasing the executor's unit
	// of ownership; dropping the JoinHandle releases the other, freeing
	// the task's allocation exactly once (spec.md §8 invariants 2/3).
	require.EqualValues(t, freedBefore, task.Freed())
	jh.Drop()
	require.EqualValues(t, freedBefore+1, task.Freed())
}

func TestRunReturnsImmediatelyForReadyFuture(t *testing.T) {
	rt := newRuntime(t)
	out := solo.Run[int](rt, future.NewReady(5))
	require.Equal(t, 5, out)
}

func TestJoin2OverTwoSpawnedTasks(t *testing.T) {
	rt := newRuntime(t)
	h := rt.Handle()

	jh1 := solo.Spawn[int](h, &yieldOnce[int]{value: 1})
	jh2 := solo.Spawn[string](h, &yieldOnce[string]{value: "two"})

	pair := solo.Run[future.Pair[int, string]](rt, future.NewJoin2[int, string](jh1, jh2))
	require.Equal(t, 1, pair.A)
	require.Equal(t, "two", pair.B)
}

func TestRunPanicsOnReentry(t *testing.T) {
	rt := newRuntime(t)
	h := rt.Handle()

	inner := &reentrantFuture{rt: rt, h: h}
	require.Panics(t, func() {
		solo.Run[int](rt, inner)
	})
}

// reentrantFuture calls solo.Run on the same Runtime from inside its own
// Poll, which must panic rather than deadlock or corrupt state.
type reentrantFuture struct {
	rt *solo.Runtime
	h  solo.Handle
}

func (r *reentrantFuture) Poll(w *task.Waker) (int, bool) {
	return solo.Run[int](r.rt, future.NewReady(1)), true
}

func TestWakeFromAnotherGoroutineIsObserved(t *testing.T) {
	rt := newRuntime(t)
	h := rt.Handle()

	gw := newGoroutineWoken[string]()
	jh := solo.Spawn[string](h, gw)

	go func() {
		time.Sleep(20 * time.Millisecond)
		gw.resolve("done")
	}()

	out := solo.Run[string](rt, jh)
	require.Equal(t, "done", out)
}

// goroutineWoken parks a cloned Waker until resolve is called from a
// different goroutine, exercising the reactor's Trigger-based wake path
// (see queue.go's Schedule and internal/reactor's Trigger).
type goroutineWoken[T any] struct {
	mu     sync.Mutex
	waker  *task.Waker
	signal chan T
}

func newGoroutineWoken[T any]() *goroutineWoken[T] {
	return &goroutineWoken[T]{signal: make(chan T, 1)}
}

func (g *goroutineWoken[T]) Poll(w *task.Waker) (T, bool) {
	select {
	case v := <-g.signal:
		return v, true
	default:
	}
	g.mu.Lock()
	prev := g.waker
	g.waker = w.Clone()
	g.mu.Unlock()
	if prev != nil {
		prev.Drop()
	}
	var zero T
	return zero, false
}

// resolve is called from a goroutine other than the executor's.
func (g *goroutineWoken[T]) resolve(v T) {
	g.signal <- v
	g.mu.Lock()
	waker := g.waker
	g.waker = nil
	g.mu.Unlock()
	if waker != nil {
		waker.Wake()
	}
}
