package transport

import (
	"net"
)

// DatagramHandler processes one received datagram. data is owned by the
// handler.
type DatagramHandler func(data []byte, addr net.Addr)

// Transport moves opaque datagrams between peers. The session layer sits on
// top and never sees sockets.
type Transport interface {
	// Send writes one datagram to addr.
	Send(data []byte, addr net.Addr) error

	// Close shuts down the transport.
	Close() error

	// LocalAddr returns the local address the transport is listening on.
	LocalAddr() net.Addr

	// SetHandler installs the handler for incoming datagrams, replacing any
	// previous one.
	SetHandler(handler DatagramHandler)
}
