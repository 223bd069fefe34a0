//go:build linux

// Package ionet adapts a raw, non-blocking file descriptor to the task
// system: Pollable offers poll_readable/poll_writable plus Read/Write
// helpers that loop over "attempt the syscall, fall back to Pending on
// WouldBlock, re-register the waker" exactly once per call.
package ionet

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/solo-rt/solo/internal/epoll"
	"github.com/solo-rt/solo/internal/reactor"
	"github.com/solo-rt/solo/internal/task"
)

// Pollable wraps a raw fd registered with a Reactor. The fd is put into
// non-blocking mode on construction; the caller retains ownership of it
// until Close.
type Pollable struct {
	fd      int
	token   epoll.Token
	source  *reactor.IOSource
	reactor *reactor.Reactor
	closed  bool
}

// New registers fd with r under the given interest, after switching fd
// to non-blocking mode.
func New(r *reactor.Reactor, fd int, interest epoll.Interest) (*Pollable, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, errors.Wrapf(err, "set nonblock fd=%d", fd)
	}
	tok, src, err := r.Register(epoll.RawSource(fd), interest)
	if err != nil {
		return nil, err
	}
	return &Pollable{fd: fd, token: tok, source: src, reactor: r}, nil
}

// Fd returns the wrapped file descriptor.
func (p *Pollable) Fd() int { return p.fd }

// PollReadable reports whether the descriptor is currently known
// readable, registering w to be woken on the next transition otherwise.
func (p *Pollable) PollReadable(w *task.Waker) bool { return p.source.PollReadable(w) }

// PollWritable is PollReadable's write-side counterpart.
func (p *Pollable) PollWritable(w *task.Waker) bool { return p.source.PollWritable(w) }

// Read attempts a single non-blocking read into buf. It returns
// (n, true, nil) on success, (0, false, nil) if the descriptor is not
// yet readable (w has been registered to be woken), or (0, true, err)
// on a real error. End of stream is reported as (0, true, nil); the
// caller detects it by checking n == 0.
func (p *Pollable) Read(w *task.Waker, buf []byte) (int, bool, error) {
	for {
		if !p.source.PollReadable(w) {
			return 0, false, nil
		}
		n, err := unix.Read(p.fd, buf)
		if err == nil {
			return n, true, nil
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			// Spurious wakeup: PollReadable already cleared the cached
			// bit, so looping re-checks it and, finding nothing new,
			// registers w and returns Pending.
			continue
		}
		return 0, true, errors.Wrapf(err, "read fd=%d", p.fd)
	}
}

// Write attempts a single non-blocking write of buf, with the same
// Pending/error contract as Read.
func (p *Pollable) Write(w *task.Waker, buf []byte) (int, bool, error) {
	for {
		if !p.source.PollWritable(w) {
			return 0, false, nil
		}
		n, err := unix.Write(p.fd, buf)
		if err == nil {
			return n, true, nil
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			continue
		}
		return 0, true, errors.Wrapf(err, "write fd=%d", p.fd)
	}
}

// Close deregisters the source from its reactor and closes the fd. Safe
// to call more than once.
func (p *Pollable) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	_ = p.reactor.Deregister(epoll.RawSource(p.fd), p.token)
	return unix.Close(p.fd)
}
