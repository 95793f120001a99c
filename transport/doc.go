// Package transport carries opaque datagrams for the session layer.
//
// UDPTransport owns one UDP socket and a receive loop that hands every
// datagram within the packet size limits to a single DatagramHandler on its
// own goroutine:
//
//	t, err := transport.NewUDPTransport(":9993")
//	if err != nil {
//	    return err
//	}
//	defer t.Close()
//	t.SetHandler(func(data []byte, addr net.Addr) {
//	    // pass data to session.Receive
//	})
package transport
