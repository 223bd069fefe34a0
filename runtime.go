// Package solo is a single-threaded, cooperatively scheduled async
// runtime: a task/waker system (internal/task) driven by an epoll
// reactor (internal/reactor), exposed through Runtime, Handle, Spawn and
// Run. See SPEC_FULL.md for the full design.
package solo

import (
	"sync"

	"github.com/solo-rt/solo/internal/reactor"
	"github.com/solo-rt/solo/internal/task"
)

// Option configures a Runtime constructed by NewRuntime.
type Option func(*options)

type options struct {
	panicHandler task.PanicHandler
	maxPollBatch int
}

func defaultOptions() *options {
	return &options{maxPollBatch: 256}
}

// WithPanicHandler installs a handler invoked with the value recovered and
// its stack trace whenever a spawned task's future panics. The task's
// JoinHandle still observes the panic as a *task.TaskPanicError from
// Err() regardless of this handler; the default handler only logs.
func WithPanicHandler(h func(recovered any, stack []byte)) Option {
	return func(o *options) { o.panicHandler = h }
}

// WithMaxPollBatch bounds how many ready tasks are polled in a single
// executor turn before the top-level future is polled again; tasks
// beyond the bound are put back at the front of the ready-queue. The
// reactor is only entered once the ready-queue is empty, so the bound
// does not by itself give I/O a turn while tasks keep waking themselves.
func WithMaxPollBatch(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxPollBatch = n
		}
	}
}

// Runtime owns one reactor and one ready-queue. Run must only ever be
// called by a single goroutine at a time; Spawn (via Handle) is safe
// from any goroutine, including from inside a task the Runtime is
// itself driving.
type Runtime struct {
	queue    *readyQueue
	reactor  *reactor.Reactor
	opts     *options

	mu      sync.Mutex
	running bool
}

// NewRuntime constructs a Runtime with its own epoll-backed reactor.
func NewRuntime(opts ...Option) (*Runtime, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	r, err := reactor.New()
	if err != nil {
		return nil, err
	}
	return &Runtime{
		queue:   newReadyQueue(r),
		reactor: r,
		opts:    o,
	}, nil
}

// Close releases the runtime's reactor. Must not be called while Run is
// in progress.
func (rt *Runtime) Close() error {
	return rt.reactor.Close()
}
