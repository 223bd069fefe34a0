//go:build linux

package epoll

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// eventData returns a pointer to the 8-byte epoll_data union carried by a
// raw kernel event. golang.org/x/sys/unix.EpollEvent represents that union
// as two adjacent int32 fields (Fd, Pad) rather than a single uint64,
// matching the kernel's packed 12-byte epoll_event layout on amd64/arm64.
// We only ever store a Token in this field, never a pointer, so treating
// the two fields as one little-endian uint64 is safe on every Linux
// architecture this module targets.
func eventData(e *unix.EpollEvent) unsafe.Pointer {
	return unsafe.Pointer(&e.Fd)
}
