//go:build linux

// Package epoll is a thin, safe facade over epoll_create1, epoll_ctl,
// epoll_wait and close. It defines the Interest bitset, the Event record,
// the Token type, and the Source capability — the leaf layer of the solo
// runtime (see SPEC_FULL.md §2).
package epoll

import (
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Source is anything that can yield a raw file descriptor for epoll to
// monitor. Raw ints satisfy it trivially via RawSource.
type Source interface {
	Fd() int
}

// RawSource adapts a bare file descriptor to Source.
type RawSource int

// Fd implements Source.
func (s RawSource) Fd() int { return int(s) }

func interestToEpollBits(i Interest) uint32 {
	var bits uint32
	if i&Readable != 0 {
		bits |= unix.EPOLLIN | unix.EPOLLRDHUP | unix.EPOLLET
	}
	if i&Writable != 0 {
		bits |= unix.EPOLLOUT | unix.EPOLLET
	}
	// Hang-up/error delivery is always requested regardless of interest so
	// that a source's reader and writer can both be woken on connection
	// teardown without an explicit MOD call.
	bits |= unix.EPOLLHUP | unix.EPOLLERR
	return bits
}

// Poll wraps a single epoll instance. All operations are safe for the
// caller, but Poll itself is not safe for concurrent use — the reactor
// that owns a Poll is responsible for serializing access to it.
type Poll struct {
	fd int
}

// Create creates a new epoll instance with the close-on-exec flag set.
func Create() (*Poll, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, errors.Wrap(err, "epoll_create1")
	}
	return &Poll{fd: fd}, nil
}

// Add registers source with the given interest and token.
func (p *Poll) Add(source Source, interest Interest, token Token) error {
	event := &unix.EpollEvent{Events: interestToEpollBits(interest)}
	*(*uint64)(eventData(event)) = uint64(token)
	if err := unix.EpollCtl(p.fd, unix.EPOLL_CTL_ADD, source.Fd(), event); err != nil {
		return errors.Wrapf(err, "epoll_ctl add fd=%d", source.Fd())
	}
	return nil
}

// Modify changes the interest and/or token registered for source.
func (p *Poll) Modify(source Source, interest Interest, token Token) error {
	event := &unix.EpollEvent{Events: interestToEpollBits(interest)}
	*(*uint64)(eventData(event)) = uint64(token)
	if err := unix.EpollCtl(p.fd, unix.EPOLL_CTL_MOD, source.Fd(), event); err != nil {
		return errors.Wrapf(err, "epoll_ctl mod fd=%d", source.Fd())
	}
	return nil
}

// Delete deregisters source from the epoll instance.
func (p *Poll) Delete(source Source) error {
	if err := unix.EpollCtl(p.fd, unix.EPOLL_CTL_DEL, source.Fd(), nil); err != nil {
		return errors.Wrapf(err, "epoll_ctl del fd=%d", source.Fd())
	}
	return nil
}

// Wait calls epoll_wait, rounding timeout to milliseconds; a negative
// timeout blocks indefinitely. buf's full length is passed as maxevents;
// Wait returns one decoded Event for each kernel event written into buf,
// and does not reslice buf itself.
func (p *Poll) Wait(buf []unix.EpollEvent, timeout time.Duration) ([]Event, error) {
	msec := -1
	if timeout >= 0 {
		msec = int(timeout.Milliseconds())
	}
	n, err := unix.EpollWait(p.fd, buf, msec)
	if err != nil {
		return nil, err // EINTR included; caller (reactor) decides how to treat it.
	}
	out := make([]Event, n)
	for i := 0; i < n; i++ {
		bits := buf[i].Events
		out[i] = Event{
			Readable: bits&(unix.EPOLLIN|unix.EPOLLPRI) != 0,
			Writable: bits&unix.EPOLLOUT != 0,
			HangUp:   bits&(unix.EPOLLHUP|unix.EPOLLRDHUP|unix.EPOLLERR) != 0,
			Token:    Token(*(*uint64)(eventData(&buf[i]))),
		}
	}
	return out, nil
}

// Close closes the epoll file descriptor. Double-close is a bug in the
// caller; Close does not guard against it.
func (p *Poll) Close() error {
	if err := unix.Close(p.fd); err != nil {
		return errors.Wrap(err, "close epoll fd")
	}
	return nil
}
