package mpsc

import (
	"github.com/solo-rt/solo/internal/task"
	"github.com/solo-rt/solo/semaphore"
)

// BoundedSender is a Sender whose Send must first acquire a semaphore
// permit, providing backpressure: once capacity outstanding messages are
// unread, further sends park until the Receiver catches up.
type BoundedSender[T any] struct {
	Sender[T]
	sem *semaphore.Semaphore
}

// BoundedReceiver is a Receiver that releases a permit back to the
// semaphore each time it consumes a value.
type BoundedReceiver[T any] struct {
	Receiver[T]
	sem *semaphore.Semaphore
}

// NewBounded constructs a channel that holds at most capacity
// outstanding values.
func NewBounded[T any](capacity int) (BoundedSender[T], BoundedReceiver[T]) {
	sender, receiver := NewUnbounded[T]()
	sem := semaphore.New(capacity)
	return BoundedSender[T]{Sender: sender, sem: sem}, BoundedReceiver[T]{Receiver: receiver, sem: sem}
}

// Clone returns a new BoundedSender handle sharing the same channel and
// semaphore.
func (s BoundedSender[T]) Clone() BoundedSender[T] {
	return BoundedSender[T]{Sender: s.Sender.Clone(), sem: s.sem}
}

// Send returns a Future that acquires a permit (waiting if the channel
// is at capacity) before pushing v. This shadows the embedded
// Sender[T].Send, which is not backpressured.
func (s BoundedSender[T]) Send(v T) *BoundedSendFuture[T] {
	return &BoundedSendFuture[T]{sender: s.Sender, value: v, acquire: s.sem.Acquire()}
}

// BoundedSendFuture is the Future returned by BoundedSender.Send.
type BoundedSendFuture[T any] struct {
	sender  Sender[T]
	value   T
	acquire *semaphore.AcquireFuture
	sent    bool
	err     error
}

// Poll implements task.Future[struct{}].
func (f *BoundedSendFuture[T]) Poll(w *task.Waker) (struct{}, bool) {
	if !f.sent {
		if _, ok := f.acquire.Poll(w); !ok {
			return struct{}{}, false
		}
		f.err = f.sender.Send(f.value)
		f.sent = true
	}
	return struct{}{}, true
}

// Err returns the error from the underlying Send. Valid only once Poll
// has returned ready=true.
func (f *BoundedSendFuture[T]) Err() error { return f.err }

// Recv returns a Future resolving to the next value; once a value is
// consumed, its permit is released back to the semaphore, unblocking a
// parked Send.
func (r BoundedReceiver[T]) Recv() *BoundedRecvFuture[T] {
	return &BoundedRecvFuture[T]{inner: r.Receiver.Recv(), sem: r.sem}
}

// BoundedRecvFuture is the Future returned by BoundedReceiver.Recv.
type BoundedRecvFuture[T any] struct {
	inner *RecvFuture[T]
	sem   *semaphore.Semaphore
}

// Poll implements task.Future[Item[T]].
func (f *BoundedRecvFuture[T]) Poll(w *task.Waker) (Item[T], bool) {
	item, ready := f.inner.Poll(w)
	if ready && item.OK {
		f.sem.Release()
	}
	return item, ready
}
