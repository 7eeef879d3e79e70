package ftp

import (
	"io"
	"net/netip"
)

// Socket is the byte stream the engine drives. Read must never block: it
// returns whatever is immediately available, (0, nil) when nothing is
// pending, and (0, io.EOF) once the peer has closed and all buffered bytes
// have been consumed. Write may block briefly for kernel buffering.
type Socket interface {
	io.ReadWriteCloser

	// Available reports how many bytes can be read without waiting.
	Available() int

	// Connected reports whether the peer is still reachable, or buffered
	// bytes remain to be read after the peer has gone.
	Connected() bool
}

// Listener exposes inbound connections without blocking. The engine calls
// HasPending on every poll and Accept only after HasPending reported true.
type Listener interface {
	HasPending() bool
	Accept() (Socket, error)
	Close() error
}

// Dialer opens the outbound data connection for active (PORT) mode.
type Dialer interface {
	Dial(addr netip.Addr, port uint16) (Socket, error)
}
