package epoll

// Interest is a bitset capturing the readiness transitions a registrant
// cares about. Edge-triggered semantics are used throughout: a consumer
// that gets EAGAIN/EWOULDBLOCK must drain until WouldBlock and clear its
// cached readiness bit to re-arm, per the Pollable contract in package
// ionet.
type Interest uint32

const (
	// Readable requests notification when the descriptor has data to read,
	// the peer has half-closed the connection (RDHUP), or an error/hangup
	// occurred. Mirrors trpc-group/tnet's rflags constant.
	Readable Interest = 1 << iota
	// Writable requests notification when the descriptor can accept more
	// data, or an error/hangup occurred.
	Writable
)

// ReadWrite is a convenience combination of Readable and Writable.
const ReadWrite = Readable | Writable

// Token is a slab-slot identifier threaded through epoll_data so that an
// epoll event can be correlated back to the reactor's I/O source. Tokens
// are allocated on registration from an ever-increasing counter; the
// reactor does not hand a deregistered token out again.
type Token uint64

// Event is the result of a single readiness notification: which
// directions are ready, and the token of the source that produced it.
type Event struct {
	Readable bool
	Writable bool
	HangUp   bool
	Token    Token
}
