//go:build linux

package tcp

import (
	"net"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/solo-rt/solo"
	"github.com/solo-rt/solo/internal/epoll"
	"github.com/solo-rt/solo/internal/task"
	"github.com/solo-rt/solo/ionet"
)

// Stream is a connected, non-blocking TCP socket registered with a
// Reactor for both read and write readiness.
type Stream struct {
	fd       int
	pollable *ionet.Pollable
}

// Dial begins connecting to addr and returns a Future resolving to the
// connected Stream once connect() completes (possibly synchronously).
func Dial(h solo.Handle, addr string) (*DialFuture, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "resolve")
	}
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, errors.Wrap(err, "socket")
	}
	var sa unix.SockaddrInet4
	sa.Port = tcpAddr.Port
	if ip4 := tcpAddr.IP.To4(); ip4 != nil {
		copy(sa.Addr[:], ip4)
	}

	connecting := false
	switch err := unix.Connect(fd, &sa); {
	case err == nil:
		// Connected synchronously, e.g. to localhost.
	case err == unix.EINPROGRESS:
		connecting = true
	default:
		unix.Close(fd)
		return nil, errors.Wrap(err, "connect")
	}

	p, err := ionet.New(h.Reactor(), fd, epoll.ReadWrite)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	return &DialFuture{stream: &Stream{fd: fd, pollable: p}, connecting: connecting}, nil
}

// DialFuture resolves to a connected *Stream, or a *Stream plus a
// non-nil Err() if the connection failed asynchronously.
type DialFuture struct {
	stream     *Stream
	connecting bool
	done       bool
	err        error
}

// Poll implements task.Future[*Stream].
func (d *DialFuture) Poll(w *task.Waker) (*Stream, bool) {
	if d.done {
		return d.stream, true
	}
	if !d.connecting {
		d.done = true
		return d.stream, true
	}
	if !d.stream.pollable.PollWritable(w) {
		return nil, false
	}
	errno, err := unix.GetsockoptInt(d.stream.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	d.done = true
	if err != nil {
		d.err = errors.Wrap(err, "getsockopt so_error")
		return d.stream, true
	}
	if errno != 0 {
		d.err = errors.Wrap(unix.Errno(errno), "connect")
	}
	return d.stream, true
}

// Err returns the connection's error, if any. Valid only once Poll has
// returned ready=true.
func (d *DialFuture) Err() error { return d.err }

// Read attempts a single non-blocking read; see ionet.Pollable.Read.
func (s *Stream) Read(w *task.Waker, buf []byte) (int, bool, error) {
	return s.pollable.Read(w, buf)
}

// Write attempts a single non-blocking write; see ionet.Pollable.Write.
func (s *Stream) Write(w *task.Waker, buf []byte) (int, bool, error) {
	return s.pollable.Write(w, buf)
}

// Close deregisters and closes the underlying socket.
func (s *Stream) Close() error { return s.pollable.Close() }
