package reactor

import "github.com/solo-rt/solo/internal/epoll"

// Readiness caches the readiness bits observed for an IOSource, merged
// across events until PollReadable/PollWritable consume them. Edge
// triggering means epoll only reports a transition once; PollReadable
// and PollWritable consult (and clear) this cache rather than re-asking
// the kernel.
type Readiness struct {
	Readable bool
	Writable bool
	HangUp   bool
}

func fromEvent(ev epoll.Event) Readiness {
	return Readiness{Readable: ev.Readable, Writable: ev.Writable, HangUp: ev.HangUp}
}

func (r *Readiness) merge(other Readiness) {
	if other.Readable {
		r.Readable = true
	}
	if other.Writable {
		r.Writable = true
	}
	if other.HangUp {
		r.HangUp = true
	}
}
