//go:build linux

package reactor_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/solo-rt/solo/internal/epoll"
	"github.com/solo-rt/solo/internal/reactor"
	"github.com/solo-rt/solo/internal/task"
)

func TestRegisterAndReactDeliversReadable(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	defer r.Close()

	efd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	require.NoError(t, err)
	defer unix.Close(efd)

	_, src, err := r.Register(epoll.RawSource(efd), epoll.Readable)
	require.NoError(t, err)

	waker := task.NewNoopWaker()
	require.False(t, src.PollReadable(waker))

	_, err = unix.Write(efd, []byte{1, 0, 0, 0, 0, 0, 0, 0})
	require.NoError(t, err)

	require.NoError(t, r.React(time.Second))
	require.True(t, src.PollReadable(task.NewNoopWaker()))
}

func TestTriggerInterruptsReact(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	defer r.Close()

	done := make(chan error, 1)
	go func() {
		done <- r.React(5 * time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	r.Trigger()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("React did not return after Trigger")
	}
}

func TestDeregisterWakesParkedWaiters(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	defer r.Close()

	efd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	require.NoError(t, err)
	defer unix.Close(efd)

	tok, src, err := r.Register(epoll.RawSource(efd), epoll.ReadWrite)
	require.NoError(t, err)

	require.False(t, src.PollReadable(task.NewNoopWaker()))
	require.NoError(t, r.Deregister(epoll.RawSource(efd), tok))
	// After Deregister, the cached HangUp bit is set; a fresh poll call
	// observes it immediately rather than blocking forever.
	require.True(t, src.PollReadable(task.NewNoopWaker()))
}
