package task

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeScheduler records every Header scheduled onto it, standing in for
// the root runtime's ready-queue in isolation tests.
type fakeScheduler struct {
	queue []*Header
}

func (f *fakeScheduler) Schedule(h *Header) { f.queue = append(f.queue, h) }

func (f *fakeScheduler) drain() *Header {
	if len(f.queue) == 0 {
		return nil
	}
	h := f.queue[0]
	f.queue = f.queue[1:]
	return h
}

// readyFuture completes on its first poll with value.
type readyFuture[T any] struct{ value T }

func (r readyFuture[T]) Poll(w *Waker) (T, bool) { return r.value, true }

// pendingNFuture returns Pending n times, waking itself via w each time,
// then completes with value.
type pendingNFuture[T any] struct {
	remaining int
	value     T
}

func (p *pendingNFuture[T]) Poll(w *Waker) (T, bool) {
	if p.remaining > 0 {
		p.remaining--
		w.WakeByRef()
		var zero T
		return zero, false
	}
	return p.value, true
}

// panicFuture panics on its first poll.
type panicFuture[T any] struct{}

func (panicFuture[T]) Poll(w *Waker) (T, bool) {
	panic("boom")
}

func TestSpawnAndPollReadyFuture(t *testing.T) {
	sched := &fakeScheduler{}
	header, jh := Spawn[int](sched, readyFuture[int]{value: 7}, nil)

	header.TransitionToRunning()
	header.Poll()

	require.True(t, header.Complete())
	out, ok := jh.Poll(NewNoopWaker())
	require.True(t, ok)
	require.Equal(t, 7, out)
	require.NoError(t, jh.Err())
}

func TestSpawnPendingThenReady(t *testing.T) {
	sched := &fakeScheduler{}
	header, jh := Spawn[string](sched, &pendingNFuture[string]{remaining: 2, value: "done"}, nil)

	for i := 0; i < 2; i++ {
		header.TransitionToRunning()
		header.Poll()
		// Poll's own wake re-set SCHEDULED; the fake scheduler received a
		// Schedule call synchronously from within Poll.
		require.NotNil(t, sched.drain())
		require.False(t, header.Complete())
	}

	header.TransitionToRunning()
	header.Poll()
	require.True(t, header.Complete())

	out, ok := jh.Poll(NewNoopWaker())
	require.True(t, ok)
	require.Equal(t, "done", out)
}

func TestJoinHandleRegistersWakerAndGetsWoken(t *testing.T) {
	sched := &fakeScheduler{}
	header, jh := Spawn[int](sched, &pendingNFuture[int]{remaining: 1, value: 42}, nil)

	var woken bool
	awaitingHeader, awaitingJH := Spawn[struct{}](sched, waiterFuture{jh: jh, onReady: func() { woken = true }}, nil)
	_ = awaitingJH

	awaitingHeader.TransitionToRunning()
	awaitingHeader.Poll() // registers a waker on jh's task, since jh isn't ready yet
	require.False(t, woken)

	header.TransitionToRunning()
	header.Poll() // first poll: still pending, wakes itself
	sched.drain()
	header.TransitionToRunning()
	header.Poll() // second poll: completes, fires the registered join waker

	require.NotNil(t, sched.drain()) // the join waker rescheduled awaitingHeader
	awaitingHeader.TransitionToRunning()
	awaitingHeader.Poll()
	require.True(t, woken)
}

// waiterFuture polls an inner JoinHandle[int] and calls onReady once it
// completes; used only to exercise registerJoinWaker/wakeJoinHandle.
type waiterFuture struct {
	jh      *JoinHandle[int]
	onReady func()
}

func (w waiterFuture) Poll(waker *Waker) (struct{}, bool) {
	if _, ok := w.jh.Poll(waker); ok {
		w.onReady()
		return struct{}{}, true
	}
	return struct{}{}, false
}

func TestTaskPanicSurfacesAsJoinError(t *testing.T) {
	sched := &fakeScheduler{}
	var handled any
	var handledStack []byte
	header, jh := Spawn[int](sched, panicFuture[int]{}, func(recovered any, stack []byte) {
		handled = recovered
		handledStack = stack
	})

	header.TransitionToRunning()
	header.Poll()

	require.True(t, header.Complete())
	require.Equal(t, "boom", handled)
	require.NotEmpty(t, handledStack)

	_, ok := jh.Poll(NewNoopWaker())
	require.True(t, ok)
	var panicErr *TaskPanicError
	require.ErrorAs(t, jh.Err(), &panicErr)
	require.Equal(t, "boom", panicErr.Value)
}

func TestGetOutputTakenTwicePanics(t *testing.T) {
	sched := &fakeScheduler{}
	header, jh := Spawn[int](sched, readyFuture[int]{value: 1}, nil)
	header.TransitionToRunning()
	header.Poll()

	_, ok := jh.Poll(NewNoopWaker())
	require.True(t, ok)

	require.Panics(t, func() { jh.Poll(NewNoopWaker()) })
}

func TestDropJoinHandleReleasesReference(t *testing.T) {
	sched := &fakeScheduler{}
	header, jh := Spawn[int](sched, &pendingNFuture[int]{remaining: 100, value: 0}, nil)
	require.EqualValues(t, 2, header.RefCount())

	jh.Drop()
	require.EqualValues(t, 1, header.RefCount())

	jh.Drop() // idempotent
	require.EqualValues(t, 1, header.RefCount())
}

// TestTaskFreedOnceBothOwnersRelease covers spec.md §8 invariants 2/3:
// the refcount reaches zero exactly once, and only once both the
// executor's completion and the JoinHandle's Drop have released their
// unit, does dropTask run and Freed() advance.
func TestTaskFreedOnceBothOwnersRelease(t *testing.T) {
	sched := &fakeScheduler{}
	allocatedBefore := Allocated()
	freedBefore := Freed()

	header, jh := Spawn[int](sched, readyFuture[int]{value: 9}, nil)
	require.EqualValues(t, allocatedBefore+1, Allocated())
	require.EqualValues(t, 2, header.RefCount())

	header.TransitionToRunning()
	header.Poll()
	require.True(t, header.Complete())
	// The executor's own unit of ownership is released on completion,
	// but the JoinHandle's unit is still outstanding.
	require.EqualValues(t, 1, header.RefCount())
	require.EqualValues(t, freedBefore, Freed())

	jh.Drop()
	require.EqualValues(t, 0, header.RefCount())
	require.EqualValues(t, freedBefore+1, Freed())

	jh.Drop() // idempotent: must not free a second time
	require.EqualValues(t, freedBefore+1, Freed())
}

// TestTaskFreedAfterDropBeforeComplete covers spec.md §8 scenario F: a
// JoinHandle dropped before its task completes does not cancel the
// task, and the task's allocation is still freed exactly once once the
// executor finishes driving it.
func TestTaskFreedAfterDropBeforeComplete(t *testing.T) {
	sched := &fakeScheduler{}
	freedBefore := Freed()

	header, jh := Spawn[int](sched, &pendingNFuture[int]{remaining: 1, value: 0}, nil)
	require.EqualValues(t, 2, header.RefCount())

	jh.Drop()
	require.EqualValues(t, 1, header.RefCount())
	require.EqualValues(t, freedBefore, Freed())

	header.TransitionToRunning()
	header.Poll() // still pending, wakes itself
	sched.drain()
	require.EqualValues(t, freedBefore, Freed())

	header.TransitionToRunning()
	header.Poll() // completes; the executor's unit was the last one held
	require.True(t, header.Complete())
	require.EqualValues(t, 0, header.RefCount())
	require.EqualValues(t, freedBefore+1, Freed())
}
