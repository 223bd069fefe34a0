package semaphore_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/solo-rt/solo/internal/task"
	"github.com/solo-rt/solo/semaphore"
)

func TestAcquireSucceedsImmediatelyWhenPermitsAvailable(t *testing.T) {
	sem := semaphore.New(2)

	_, ready := sem.Acquire().Poll(task.NewNoopWaker())
	require.True(t, ready)

	_, ready = sem.Acquire().Poll(task.NewNoopWaker())
	require.True(t, ready)
}

func TestAcquireBlocksAtZeroThenWakesOnRelease(t *testing.T) {
	sem := semaphore.New(1)

	first := sem.Acquire()
	_, ready := first.Poll(task.NewNoopWaker())
	require.True(t, ready)

	second := sem.Acquire()
	_, ready = second.Poll(task.NewNoopWaker())
	require.False(t, ready)

	sem.Release()

	_, ready = second.Poll(task.NewNoopWaker())
	require.True(t, ready)
}

func TestReleaseWakesWaitersInFIFOOrder(t *testing.T) {
	sem := semaphore.New(0)

	first := sem.Acquire()
	_, ready := first.Poll(task.NewNoopWaker())
	require.False(t, ready)

	second := sem.Acquire()
	_, ready = second.Poll(task.NewNoopWaker())
	require.False(t, ready)

	sem.Release()

	_, firstReady := first.Poll(task.NewNoopWaker())
	_, secondReady := second.Poll(task.NewNoopWaker())
	require.True(t, firstReady)
	require.False(t, secondReady)

	sem.Release()
	_, secondReady = second.Poll(task.NewNoopWaker())
	require.True(t, secondReady)
}

func TestReleaseWithNoWaitersIncrementsPermitCount(t *testing.T) {
	sem := semaphore.New(0)
	sem.Release()

	_, ready := sem.Acquire().Poll(task.NewNoopWaker())
	require.True(t, ready)
}
