package node

import (
	"errors"
	"net"

	"github.com/opd-ai/zssp/limits"
	"github.com/opd-ai/zssp/session"
	"github.com/sirupsen/logrus"
)

var (
	errSessionIDCollision = errors.New("session id collision")
	errReplayed           = errors.New("replayed packet")
)

// handleDatagram is the transport handler. It runs on its own goroutine
// per datagram.
func (n *Node) handleDatagram(data []byte, addr net.Addr) {
	now := n.clock.Now()
	n.metrics.packetsIn.Inc()

	out := make([]byte, limits.MaxPacketSize)
	res, err := session.Receive(rng, n.identity, n, data, out, n.opts.Jedi, now.UnixMilli())
	if err != nil {
		n.metrics.drop(err)
		logrus.WithFields(logrus.Fields{
			"function": "handleDatagram",
			"addr":     addr.String(),
			"error":    err.Error(),
		}).Debug("Dropped packet")
		return
	}

	switch res.Kind {
	case session.ResultIgnored:
		return
	case session.ResultOkNewSession:
		n.acceptSession(res, addr)
		return
	}

	s := res.Session
	n.mu.Lock()
	e, ok := n.sessions[s.ID()]
	if !ok {
		n.mu.Unlock()
		return
	}
	if res.Kind == session.ResultOkData && !e.replay.CheckAndStore(res.Counter) {
		n.mu.Unlock()
		n.metrics.drop(errReplayed)
		logrus.WithFields(logrus.Fields{
			"function":   "handleDatagram",
			"session_id": s.ID().String(),
			"counter":    res.Counter,
		}).Warn("Replay detected: counter already delivered")
		return
	}
	e.addr = addr
	e.lastRecv = now
	established := !e.established && s.Established()
	createdAt := e.createdAt
	if established {
		e.established = true
		n.metrics.handshakes.Inc()
	}
	if res.Reply != nil {
		if err := n.sendLocked(res.Reply, addr); err != nil {
			logrus.WithFields(logrus.Fields{
				"function":   "handleDatagram",
				"session_id": s.ID().String(),
				"error":      err.Error(),
			}).Warn("Failed to send reply")
		}
		e.lastSend = now
	}
	onData, onSession := n.onData, n.onSession
	n.mu.Unlock()

	if established {
		logrus.WithFields(logrus.Fields{
			"function":   "handleDatagram",
			"session_id": s.ID().String(),
			"remote_id":  s.RemoteSessionID().String(),
			"addr":       addr.String(),
			"handshake":  n.clock.Since(createdAt).String(),
		}).Info("Session established")
		if onSession != nil {
			onSession(s.ID(), addr)
		}
	}
	if res.Kind == session.ResultOkData && onData != nil {
		onData(s.ID(), addr, res.Data)
	}
}

// acceptSession registers a session opened by a peer's offer and sends the
// counter-offer.
func (n *Node) acceptSession(res session.ReceiveResult, addr net.Addr) {
	s := res.Session
	now := n.clock.Now()
	e := &entry{
		session:   s,
		addr:      addr,
		createdAt: now,
		lastSend:  now,
		lastRecv:  now,
	}
	if !n.register(s, e) {
		n.metrics.drop(errSessionIDCollision)
		return
	}

	n.mu.Lock()
	err := n.sendLocked(res.Reply, addr)
	n.mu.Unlock()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "acceptSession",
			"session_id": s.ID().String(),
			"error":      err.Error(),
		}).Warn("Failed to send counter-offer")
		return
	}
	logrus.WithFields(logrus.Fields{
		"function":   "acceptSession",
		"session_id": s.ID().String(),
		"addr":       addr.String(),
	}).Debug("Accepted new session")
}
