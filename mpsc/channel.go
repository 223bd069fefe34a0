// Package mpsc is a single-receiver, multi-sender in-memory queue: the
// waker-based rescheduling vehicle for futures that communicate without
// touching the reactor (scenario C of SPEC_FULL.md §8).
package mpsc

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/solo-rt/solo/internal/task"
)

// Item is the result of a Recv: either a value with OK true, or a zero
// value with OK false once the channel is closed and drained.
type Item[T any] struct {
	Value T
	OK    bool
}

type shared[T any] struct {
	mu        sync.Mutex
	queue     []T
	closed    bool
	recvWaker *task.Waker
	senders   atomic.Int64
}

func (s *shared[T]) send(v T) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.queue = append(s.queue, v)
	w := s.recvWaker
	s.recvWaker = nil
	s.mu.Unlock()
	if w != nil {
		w.Wake()
	}
	return nil
}

func (s *shared[T]) closeOneSender() {
	if s.senders.Dec() > 0 {
		return
	}
	s.mu.Lock()
	s.closed = true
	w := s.recvWaker
	s.recvWaker = nil
	s.mu.Unlock()
	if w != nil {
		w.Wake()
	}
}

// Sender is a cloneable handle for pushing values onto an unbounded
// channel. The channel closes once every clone (the original plus every
// result of Clone) has called Close.
type Sender[T any] struct {
	s *shared[T]
}

// Receiver is the single consuming end of a channel.
type Receiver[T any] struct {
	s *shared[T]
}

// NewUnbounded constructs an unbounded channel and its single Sender and
// Receiver handle.
func NewUnbounded[T any]() (Sender[T], Receiver[T]) {
	s := &shared[T]{}
	s.senders.Store(1)
	return Sender[T]{s: s}, Receiver[T]{s: s}
}

// Clone returns a new Sender handle sharing the same channel.
func (s Sender[T]) Clone() Sender[T] {
	s.s.senders.Inc()
	return s
}

// Send pushes v onto the channel, waking a parked Receiver if any.
// Returns ErrClosed if every Sender clone has already closed.
func (s Sender[T]) Send(v T) error { return s.s.send(v) }

// Close drops this Sender handle.
func (s Sender[T]) Close() { s.s.closeOneSender() }

// Recv returns a Future resolving to the next queued value, or to
// Item{OK: false} once the channel is closed and the queue is drained.
func (r Receiver[T]) Recv() *RecvFuture[T] { return &RecvFuture[T]{s: r.s} }

// RecvFuture is the Future returned by Receiver.Recv.
type RecvFuture[T any] struct{ s *shared[T] }

// Poll implements task.Future[Item[T]].
func (f *RecvFuture[T]) Poll(w *task.Waker) (Item[T], bool) {
	f.s.mu.Lock()
	if len(f.s.queue) > 0 {
		v := f.s.queue[0]
		f.s.queue = f.s.queue[1:]
		f.s.mu.Unlock()
		return Item[T]{Value: v, OK: true}, true
	}
	if f.s.closed {
		f.s.mu.Unlock()
		return Item[T]{}, true
	}
	if f.s.recvWaker != nil {
		f.s.recvWaker.Drop()
	}
	f.s.recvWaker = w.Clone()
	f.s.mu.Unlock()
	return Item[T]{}, false
}
