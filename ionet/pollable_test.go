//go:build linux

package ionet_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/solo-rt/solo/internal/epoll"
	"github.com/solo-rt/solo/internal/reactor"
	"github.com/solo-rt/solo/internal/task"
	"github.com/solo-rt/solo/ionet"
)

func TestReadReturnsPendingThenReady(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	defer r.Close()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	a, b := fds[0], fds[1]
	defer unix.Close(b)

	p, err := ionet.New(r, a, epoll.Readable)
	require.NoError(t, err)
	defer p.Close()

	buf := make([]byte, 1024)
	n, ready, err := p.Read(task.NewNoopWaker(), buf)
	require.NoError(t, err)
	require.False(t, ready)
	require.Zero(t, n)

	_, err = unix.Write(b, []byte("hello"))
	require.NoError(t, err)
	require.NoError(t, r.React(0))

	n, ready, err = p.Read(task.NewNoopWaker(), buf)
	require.NoError(t, err)
	require.True(t, ready)
	require.Equal(t, "hello", string(buf[:n]))
}
