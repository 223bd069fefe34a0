package task

import "sync/atomic"

// state is the bit-packed state word described in SPEC_FULL.md §3/§4.3.
// The low bits are flags; the reference count occupies the remaining
// high bits. A plain struct-of-flags would suffice if Waker invocations
// only ever happened on the executor goroutine, but in Go a cloned Waker
// routinely crosses goroutines (an mpsc Sender, an ants pool worker, a
// user goroutine) so the word is mutated through compare-and-swap rather
// than bare arithmetic. This mirrors the low-level atomic flag trpc-go/tnet
// itself uses for its epoll "notified" field in poller_epoll.go, rather
// than the heavier go.uber.org/atomic used by this module's higher-level
// packages (mpsc, metrics) — see DESIGN.md.
type state struct {
	bits uint32
}

const (
	flagScheduled uint32 = 1 << iota
	flagRunning
	flagComplete
	flagJoinHandle
	flagJoinWaker

	refCountShift = 5
	refCountUnit  = 1 << refCountShift
)

// newState returns the initial state for a freshly spawned task: refcount
// 2 (executor + JoinHandle), SCHEDULED and JOIN_HANDLE set.
func newState() *state {
	return &state{bits: flagScheduled | flagJoinHandle | 2<<refCountShift}
}

func (s *state) load() uint32 { return atomic.LoadUint32(&s.bits) }

func (s *state) cas(old, new uint32) bool {
	return atomic.CompareAndSwapUint32(&s.bits, old, new)
}

// update applies f to the current bits in a CAS loop and returns the bits
// observed immediately before the update took effect.
func (s *state) update(f func(bits uint32) uint32) uint32 {
	for {
		old := s.load()
		next := f(old)
		if s.cas(old, next) {
			return old
		}
	}
}

func (s *state) scheduled() bool  { return s.load()&flagScheduled != 0 }
func (s *state) running() bool    { return s.load()&flagRunning != 0 }
func (s *state) complete() bool   { return s.load()&flagComplete != 0 }
func (s *state) joinHandle() bool { return s.load()&flagJoinHandle != 0 }
func (s *state) joinWaker() bool  { return s.load()&flagJoinWaker != 0 }
func (s *state) refCount() uint32 { return s.load() >> refCountShift }

// transitionToRunning clears SCHEDULED and sets RUNNING. Called by the
// executor when it dequeues a task.
func (s *state) transitionToRunning() {
	s.update(func(b uint32) uint32 {
		return (b &^ flagScheduled) | flagRunning
	})
}

// transitionToIdle clears RUNNING. Called after every Poll that returns
// Pending, whether or not a wake occurred during the poll; SCHEDULED is
// left as it is. Returns the bits observed so the caller can tell whether
// a wake raced in and already re-set SCHEDULED.
func (s *state) transitionToIdle() uint32 {
	return s.update(func(b uint32) uint32 {
		return b &^ flagRunning
	})
}

// transitionToComplete clears RUNNING and sets COMPLETE.
func (s *state) transitionToComplete() {
	s.update(func(b uint32) uint32 {
		return (b &^ flagRunning) | flagComplete
	})
}

// trySchedule sets SCHEDULED if it is not already set and the task is not
// yet COMPLETE, returning true if this call is the one that set it (i.e.
// the caller is responsible for enqueueing the task). This is the
// coalescing mechanism of invariant 5 in spec.md §8: a task woken N times
// between polls is enqueued at most once.
func (s *state) trySchedule() bool {
	scheduled := false
	s.update(func(b uint32) uint32 {
		if b&flagComplete != 0 || b&flagScheduled != 0 {
			scheduled = false
			return b
		}
		scheduled = true
		return b | flagScheduled
	})
	return scheduled
}

func (s *state) setJoinWaker(v bool) {
	s.update(func(b uint32) uint32 {
		if v {
			return b | flagJoinWaker
		}
		return b &^ flagJoinWaker
	})
}

func (s *state) clearJoinHandle() {
	s.update(func(b uint32) uint32 { return b &^ flagJoinHandle })
}

// incrRef increments the reference count by one and returns the new
// count. Called when a Waker is cloned.
func (s *state) incrRef() uint32 {
	return atomic.AddUint32(&s.bits, refCountUnit) >> refCountShift
}

// decrRef decrements the reference count by one and returns the new
// count. Called when a Waker is dropped or a task leaves the ready-queue
// for the last time.
func (s *state) decrRef() uint32 {
	return atomic.AddUint32(&s.bits, ^uint32(refCountUnit-1)) >> refCountShift
}
