package reactor

import (
	"sync"

	"github.com/solo-rt/solo/internal/epoll"
	"github.com/solo-rt/solo/internal/task"
)

// IOSource is the reactor's bookkeeping for one registered file
// descriptor: its cached readiness plus the Wakers parked on a read or
// write Poll* call awaiting the next change, per the io_source/reactor
// split this module generalizes.
type IOSource struct {
	mu    sync.Mutex
	fd    epoll.Source
	token epoll.Token
	tick  uint64

	readiness  Readiness
	readWaker  *task.Waker
	writeWaker *task.Waker
}

func newIOSource(fd epoll.Source, token epoll.Token, tick uint64) *IOSource {
	return &IOSource{fd: fd, token: token, tick: tick}
}

// Token returns the slab token this source was registered under.
func (s *IOSource) Token() epoll.Token { return s.token }

// PollReadable reports whether the source is currently known readable
// (clearing that cached bit, since it is edge-triggered and only valid
// for one consumption), and otherwise parks w to be woken on the next
// readable transition.
func (s *IOSource) PollReadable(w *task.Waker) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readiness.Readable || s.readiness.HangUp {
		s.readiness.Readable = false
		return true
	}
	if s.readWaker != nil {
		s.readWaker.Drop()
	}
	s.readWaker = w.Clone()
	return false
}

// PollWritable is PollReadable's write-side counterpart.
func (s *IOSource) PollWritable(w *task.Waker) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readiness.Writable || s.readiness.HangUp {
		s.readiness.Writable = false
		return true
	}
	if s.writeWaker != nil {
		s.writeWaker.Drop()
	}
	s.writeWaker = w.Clone()
	return false
}

// deliver merges a freshly observed event into the cached readiness and
// wakes whichever side(s) were waiting on it.
func (s *IOSource) deliver(ev Readiness) {
	s.mu.Lock()
	s.readiness.merge(ev)
	var rw, ww *task.Waker
	if (ev.Readable || ev.HangUp) && s.readWaker != nil {
		rw, s.readWaker = s.readWaker, nil
	}
	if (ev.Writable || ev.HangUp) && s.writeWaker != nil {
		ww, s.writeWaker = s.writeWaker, nil
	}
	s.mu.Unlock()

	if rw != nil {
		rw.Wake()
	}
	if ww != nil {
		ww.Wake()
	}
}
