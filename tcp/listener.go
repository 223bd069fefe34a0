//go:build linux

// Package tcp is a raw-syscall, non-blocking TCP listener and stream
// built directly on ionet.Pollable — the consumer-level networking
// surface §6 of SPEC_FULL.md describes as depending on, but not part
// of, the core.
package tcp

import (
	"net"

	"github.com/kavu/go_reuseport"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/solo-rt/solo"
	"github.com/solo-rt/solo/internal/epoll"
	"github.com/solo-rt/solo/internal/reactor"
	"github.com/solo-rt/solo/internal/task"
	"github.com/solo-rt/solo/ionet"
)

// ListenOption configures Listen.
type ListenOption func(*listenOptions)

type listenOptions struct {
	reusePort bool
}

// WithReusePort binds with SO_REUSEPORT, letting multiple independent
// Listeners share one address (e.g. one Runtime per OS thread).
func WithReusePort() ListenOption {
	return func(o *listenOptions) { o.reusePort = true }
}

// Listener is a non-blocking TCP listener registered with a Reactor.
type Listener struct {
	pollable *ionet.Pollable
	reactor  *reactor.Reactor
	addr     net.Addr
}

// Listen binds addr ("host:port") and registers the resulting socket
// for READABLE (connection-pending) events on h's reactor.
func Listen(h solo.Handle, addr string, opts ...ListenOption) (*Listener, error) {
	o := &listenOptions{}
	for _, opt := range opts {
		opt(o)
	}

	fd, resolved, err := listenFd(addr, o)
	if err != nil {
		return nil, err
	}
	p, err := ionet.New(h.Reactor(), fd, epoll.Readable)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	return &Listener{pollable: p, reactor: h.Reactor(), addr: resolved}, nil
}

// listenFd builds the listening socket. With WithReusePort, go_reuseport
// is used to apply SO_REUSEPORT the way the rest of the ecosystem does;
// its net.Listener is then discarded in favor of a dup'd raw descriptor,
// since Go's net package always leaves the underlying fd itself in
// non-blocking mode (even though it also registers it with the runtime's
// own poller) and dup preserves that file-status flag, making the
// duplicate immediately usable with our own reactor. Without
// WithReusePort, the socket is built directly via raw syscalls.
func listenFd(addr string, o *listenOptions) (int, net.Addr, error) {
	if !o.reusePort {
		return plainListenFd(addr)
	}
	ln, err := go_reuseport.Listen("tcp", addr)
	if err != nil {
		return 0, nil, errors.Wrap(err, "reuseport listen")
	}
	defer ln.Close()

	tcpLn, ok := ln.(*net.TCPListener)
	if !ok {
		return 0, nil, errors.New("solo/tcp: reuseport listener is not a *net.TCPListener")
	}
	raw, err := tcpLn.SyscallConn()
	if err != nil {
		return 0, nil, errors.Wrap(err, "syscallconn")
	}
	var dupFd int
	var dupErr error
	if ctrlErr := raw.Control(func(fd uintptr) {
		dupFd, dupErr = unix.Dup(int(fd))
	}); ctrlErr != nil {
		return 0, nil, errors.Wrap(ctrlErr, "control")
	}
	if dupErr != nil {
		return 0, nil, errors.Wrap(dupErr, "dup listener fd")
	}
	return dupFd, ln.Addr(), nil
}

func plainListenFd(addr string) (int, net.Addr, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return 0, nil, errors.Wrap(err, "resolve")
	}
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return 0, nil, errors.Wrap(err, "socket")
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return 0, nil, errors.Wrap(err, "setsockopt reuseaddr")
	}
	var sa unix.SockaddrInet4
	sa.Port = tcpAddr.Port
	if ip4 := tcpAddr.IP.To4(); ip4 != nil {
		copy(sa.Addr[:], ip4)
	}
	if err := unix.Bind(fd, &sa); err != nil {
		unix.Close(fd)
		return 0, nil, errors.Wrap(err, "bind")
	}
	if err := unix.Listen(fd, 1024); err != nil {
		unix.Close(fd)
		return 0, nil, errors.Wrap(err, "listen")
	}
	boundAddr, err := localAddr(fd)
	if err != nil {
		unix.Close(fd)
		return 0, nil, err
	}
	return fd, boundAddr, nil
}

func localAddr(fd int) (net.Addr, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return nil, errors.Wrap(err, "getsockname")
	}
	sa4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return nil, errors.New("solo/tcp: unexpected sockaddr type")
	}
	ip := make(net.IP, 4)
	copy(ip, sa4.Addr[:])
	return &net.TCPAddr{IP: ip, Port: sa4.Port}, nil
}

// Addr returns the listener's bound address.
func (l *Listener) Addr() net.Addr { return l.addr }

// Accept returns a Future resolving to the next connection.
func (l *Listener) Accept() *AcceptFuture { return &AcceptFuture{l: l} }

// Close deregisters and closes the listening socket.
func (l *Listener) Close() error { return l.pollable.Close() }

func (l *Listener) acceptOnce(w *task.Waker) (*Stream, bool, error) {
	if !l.pollable.PollReadable(w) {
		return nil, false, nil
	}
	connFd, _, err := unix.Accept4(l.pollable.Fd(), unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return nil, false, nil
		}
		return nil, true, errors.Wrap(err, "accept4")
	}
	p, err := ionet.New(l.reactor, connFd, epoll.ReadWrite)
	if err != nil {
		unix.Close(connFd)
		return nil, true, err
	}
	return &Stream{fd: connFd, pollable: p}, true, nil
}

// AcceptFuture resolves to the next connection pending on a Listener.
type AcceptFuture struct {
	l   *Listener
	err error
}

// Poll implements task.Future[*Stream].
func (f *AcceptFuture) Poll(w *task.Waker) (*Stream, bool) {
	stream, ready, err := f.l.acceptOnce(w)
	if !ready {
		return nil, false
	}
	f.err = err
	return stream, true
}

// Err returns any error from the accept that just completed. Valid only
// once Poll has returned ready=true.
func (f *AcceptFuture) Err() error { return f.err }
