package solo

import (
	"github.com/solo-rt/solo/internal/task"
	"github.com/solo-rt/solo/log"
)

// Run drives root to completion on rt, interleaving its progress with
// every task spawned (directly or transitively) onto rt's Handle and
// with the reactor's I/O readiness. It returns root's output once ready.
//
// Run polls root with a no-op Waker on every turn rather than waiting
// for a wake notification targeting it specifically: root is expected to
// be a JoinHandle or a combinator over spawned JoinHandles (e.g.
// future.Join2), and those inner futures are what the ready-queue
// and reactor actually drive.
//
// Run is not reentrant: calling it recursively on the same Runtime, for
// instance from within a task it is driving, panics.
func Run[T any](rt *Runtime, root task.Future[T]) T {
	rt.mu.Lock()
	if rt.running {
		rt.mu.Unlock()
		panic("solo: Run called recursively on the same Runtime")
	}
	rt.running = true
	rt.mu.Unlock()
	defer func() {
		rt.mu.Lock()
		rt.running = false
		rt.mu.Unlock()
	}()

	waker := task.NewNoopWaker()
	for {
		if out, ready := root.Poll(waker); ready {
			return out
		}
		if rt.queue.len() == 0 {
			// No busy-wait: nothing is runnable, so park until the
			// reactor has something to report.
			if err := rt.reactor.React(-1); err != nil {
				log.Errorf("solo: reactor error: %v", err)
			}
			continue
		}
		rt.drainAndPoll()
	}
}

// drainAndPoll processes every task currently on the ready-queue (up to
// maxPollBatch, so a self-waking storm cannot starve the top-level
// future indefinitely) without calling into the reactor — matching the
// "fairness within a turn" property: every queued task is serviced
// before the top-level future is re-polled.
func (rt *Runtime) drainAndPoll() {
	headers := rt.queue.drain()
	if len(headers) > rt.opts.maxPollBatch {
		leftover := headers[rt.opts.maxPollBatch:]
		headers = headers[:rt.opts.maxPollBatch]
		rt.queue.requeue(leftover)
	}
	for _, h := range headers {
		h.TransitionToRunning()
		h.Poll()
	}
}
