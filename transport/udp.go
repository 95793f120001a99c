package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/opd-ai/zssp/limits"
	"github.com/sirupsen/logrus"
)

// readTimeout bounds each blocking read so Close is noticed promptly.
const readTimeout = 100 * time.Millisecond

// UDPTransport implements Transport over a single UDP socket.
type UDPTransport struct {
	conn    net.PacketConn
	handler DatagramHandler
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewUDPTransport listens on listenAddr and starts the receive loop.
func NewUDPTransport(listenAddr string) (*UDPTransport, error) {
	conn, err := net.ListenPacket("udp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", listenAddr, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &UDPTransport{
		conn:   conn,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go t.processPackets()

	logrus.WithFields(logrus.Fields{
		"function": "NewUDPTransport",
		"addr":     conn.LocalAddr().String(),
	}).Info("UDP transport listening")
	return t, nil
}

func (t *UDPTransport) SetHandler(handler DatagramHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

// Send writes data to addr. Datagrams larger than limits.MaxPacketSize are
// refused rather than left to IP fragmentation.
func (t *UDPTransport) Send(data []byte, addr net.Addr) error {
	if len(data) > limits.MaxPacketSize {
		return fmt.Errorf("%w: datagram of %d bytes", limits.ErrMessageTooLarge, len(data))
	}
	_, err := t.conn.WriteTo(data, addr)
	return err
}

// Close stops the receive loop and closes the socket.
func (t *UDPTransport) Close() error {
	t.cancel()
	err := t.conn.Close()
	<-t.done
	return err
}

func (t *UDPTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

func (t *UDPTransport) processPackets() {
	defer close(t.done)
	buffer := make([]byte, limits.MaxPacketSize+1)

	for {
		select {
		case <-t.ctx.Done():
			return
		default:
			t.processIncomingPacket(buffer)
		}
	}
}

func (t *UDPTransport) processIncomingPacket(buffer []byte) {
	_ = t.conn.SetReadDeadline(time.Now().Add(readTimeout))

	n, addr, err := t.conn.ReadFrom(buffer)
	if err != nil {
		t.handleReadError(err)
		return
	}
	if err := limits.ValidatePacket(buffer[:n]); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "processIncomingPacket",
			"from":     addr.String(),
			"size":     n,
		}).Debug("Dropped datagram outside packet size limits")
		return
	}

	t.mu.RLock()
	handler := t.handler
	t.mu.RUnlock()
	if handler == nil {
		return
	}

	data := make([]byte, n)
	copy(data, buffer[:n])
	go handler(data, addr)
}

func (t *UDPTransport) handleReadError(err error) {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return
	}
	if t.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
		return
	}
	logrus.WithFields(logrus.Fields{
		"function": "processIncomingPacket",
		"error":    err.Error(),
	}).Warn("UDP read failed")
}
