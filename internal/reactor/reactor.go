//go:build linux

// Package reactor owns the epoll instance, the slab of registered
// IOSources, and the self-pipe trigger used to interrupt epoll_wait when
// a task is woken from outside the executor goroutine.
package reactor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/solo-rt/solo/internal/epoll"
	"github.com/solo-rt/solo/log"
	"github.com/solo-rt/solo/metrics"
)

// triggerToken is reserved for the self-pipe eventfd and never handed
// out by Register.
const triggerToken = epoll.Token(^uint64(0))

// Reactor owns one epoll instance and the sources registered against it.
type Reactor struct {
	poll *epoll.Poll

	mu      sync.Mutex
	sources map[epoll.Token]*IOSource
	nextTok uint64
	tick    uint64

	triggerFd int
	notified  int32 // CAS gate; mirrors trpc-group/tnet's poller "notified" field
	buf       []unix.EpollEvent
}

// New creates a Reactor with its own epoll instance and trigger eventfd.
func New() (*Reactor, error) {
	p, err := epoll.Create()
	if err != nil {
		return nil, err
	}
	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		p.Close()
		return nil, errors.Wrap(err, "eventfd")
	}
	r := &Reactor{
		poll:      p,
		sources:   make(map[epoll.Token]*IOSource),
		triggerFd: fd,
		buf:       make([]unix.EpollEvent, 256),
	}
	if err := p.Add(epoll.RawSource(fd), epoll.Readable, triggerToken); err != nil {
		p.Close()
		unix.Close(fd)
		return nil, err
	}
	return r, nil
}

// Register adds fd to the epoll instance under interest and returns the
// Token and IOSource tracking its readiness and parked wakers.
func (r *Reactor) Register(fd epoll.Source, interest epoll.Interest) (epoll.Token, *IOSource, error) {
	r.mu.Lock()
	r.nextTok++
	tok := epoll.Token(r.nextTok)
	tick := r.tick
	r.mu.Unlock()

	if err := r.poll.Add(fd, interest, tok); err != nil {
		return 0, nil, err
	}
	src := newIOSource(fd, tok, tick)
	r.mu.Lock()
	r.sources[tok] = src
	r.mu.Unlock()
	return tok, src, nil
}

// Reregister changes the interest registered for token, e.g. to add the
// write side once an in-progress connect() completes.
func (r *Reactor) Reregister(fd epoll.Source, token epoll.Token, interest epoll.Interest) error {
	return r.poll.Modify(fd, interest, token)
}

// Deregister removes token's source from the epoll instance. Any Waker
// still parked on it is woken so the awaiting future observes
// cancellation instead of hanging forever.
func (r *Reactor) Deregister(fd epoll.Source, token epoll.Token) error {
	r.mu.Lock()
	src := r.sources[token]
	delete(r.sources, token)
	r.mu.Unlock()
	if src != nil {
		src.deliver(Readiness{Readable: true, Writable: true, HangUp: true})
	}
	return r.poll.Delete(fd)
}

// React blocks for at most timeout waiting for epoll events and delivers
// each to its IOSource. A negative timeout blocks indefinitely.
func (r *Reactor) React(timeout time.Duration) error {
	events, err := r.poll.Wait(r.buf, timeout)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil
		}
		return errors.Wrap(err, "epoll_wait")
	}
	if timeout == 0 {
		metrics.Add(metrics.EpollNoWait, 1)
	} else {
		metrics.Add(metrics.EpollWait, 1)
	}
	metrics.Add(metrics.EpollEvents, uint64(len(events)))

	r.mu.Lock()
	r.tick++
	r.mu.Unlock()

	for _, ev := range events {
		if ev.Token == triggerToken {
			r.drainTrigger()
			continue
		}
		r.mu.Lock()
		src := r.sources[ev.Token]
		r.mu.Unlock()
		if src == nil {
			continue // raced with Deregister; nothing left to wake
		}
		src.deliver(fromEvent(ev))
	}
	return nil
}

func (r *Reactor) drainTrigger() {
	var buf [8]byte
	for {
		if _, err := unix.Read(r.triggerFd, buf[:]); err != nil {
			break
		}
	}
	atomic.StoreInt32(&r.notified, 0)
}

// Trigger interrupts a React call currently blocked in epoll_wait. Safe
// to call from any goroutine — this is how a Waker fired off the
// executor goroutine makes sure the executor notices a newly-scheduled
// task without waiting out whatever timeout React was given.
func (r *Reactor) Trigger() {
	if !atomic.CompareAndSwapInt32(&r.notified, 0, 1) {
		return // a trigger write is already in flight; nothing more to do
	}
	buf := [8]byte{1}
	if _, err := unix.Write(r.triggerFd, buf[:]); err != nil {
		log.Errorf("solo: reactor trigger write failed: %v", err)
	}
}

// Close releases the epoll instance and the trigger eventfd.
func (r *Reactor) Close() error {
	unix.Close(r.triggerFd)
	return r.poll.Close()
}
