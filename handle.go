package solo

import (
	"github.com/solo-rt/solo/internal/reactor"
	"github.com/solo-rt/solo/internal/task"
)

// Handle is a cheap, copyable reference to a Runtime's ready-queue, used
// to spawn tasks onto it from any goroutine, including from another task
// already running on it.
type Handle struct {
	rt *Runtime
}

// Handle returns a Handle for spawning further tasks onto rt.
func (rt *Runtime) Handle() Handle { return Handle{rt: rt} }

// Reactor exposes the runtime's reactor, for packages (such as tcp) that
// need to register file descriptors against it directly.
func (h Handle) Reactor() *reactor.Reactor { return h.rt.reactor }

// Spawn schedules future to run on the runtime behind h and returns a
// JoinHandle for awaiting its eventual output or detaching from it.
func Spawn[T any](h Handle, future task.Future[T]) *task.JoinHandle[T] {
	header, jh := task.Spawn[T](h.rt.queue, future, h.rt.opts.panicHandler)
	h.rt.queue.Schedule(header)
	return jh
}
