// Package dns offloads blocking hostname resolution onto a bounded
// goroutine pool, completing a Future once the lookup returns rather
// than blocking the executor goroutine. The standard library offers no
// non-blocking resolution path, so this package is the offload-and-wake
// substitute for a runtime that cannot suspend a blocking syscall.
package dns

import (
	"context"
	"net"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"

	"github.com/solo-rt/solo/internal/task"
	"github.com/solo-rt/solo/log"
)

// defaultPoolSize bounds how many concurrent blocking lookups may be in
// flight; further requests queue for a free worker rather than
// unboundedly spawning OS threads.
const defaultPoolSize = 32

var (
	poolOnce sync.Once
	pool     *ants.Pool
	poolErr  error
)

func sharedPool() (*ants.Pool, error) {
	poolOnce.Do(func() {
		pool, poolErr = ants.NewPool(defaultPoolSize, ants.WithNonblocking(false))
		if poolErr != nil {
			poolErr = errors.Wrap(poolErr, "dns: create resolver pool")
		}
	})
	return pool, poolErr
}

// Resolve returns a Future that resolves host (a bare host name or IP
// literal) to its IP addresses on a pool goroutine, waking the caller's
// task once the lookup completes. A "host:port" string is not split; it
// is looked up as a whole. Errors are surfaced through ResolveFuture.Err.
func Resolve(host string) *ResolveFuture {
	return &ResolveFuture{host: host}
}

// ResolveFuture is the Future returned by Resolve.
type ResolveFuture struct {
	host string

	mu        sync.Mutex
	submitted bool
	done      bool
	addrs     []net.IPAddr
	err       error
}

// Poll implements task.Future[[]net.IPAddr]. The first call submits the
// lookup to the shared ants.Pool; subsequent calls observe completion.
func (f *ResolveFuture) Poll(w *task.Waker) ([]net.IPAddr, bool) {
	f.mu.Lock()
	if f.done {
		addrs, err := f.addrs, f.err
		f.mu.Unlock()
		f.err = err
		return addrs, true
	}
	if f.submitted {
		f.mu.Unlock()
		return nil, false
	}
	f.submitted = true
	f.mu.Unlock()

	p, err := sharedPool()
	if err != nil {
		f.mu.Lock()
		f.done, f.err = true, err
		f.mu.Unlock()
		return nil, true
	}

	waker := w.Clone()
	host := f.host
	submitErr := p.Submit(func() {
		defer waker.Wake()
		addrs, lookupErr := net.DefaultResolver.LookupIPAddr(context.Background(), host)
		f.mu.Lock()
		f.done = true
		f.addrs = addrs
		if lookupErr != nil {
			f.err = errors.Wrapf(lookupErr, "dns: resolve %q", host)
		}
		f.mu.Unlock()
	})
	if submitErr != nil {
		waker.Drop()
		log.Errorf("dns: submit resolve(%q) to pool: %v", host, submitErr)
		f.mu.Lock()
		f.done, f.err = true, errors.Wrap(submitErr, "dns: submit to resolver pool")
		f.mu.Unlock()
		return nil, true
	}
	return nil, false
}

// Err returns the resolution error, if any. Valid only once Poll has
// returned ready=true.
func (f *ResolveFuture) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}
