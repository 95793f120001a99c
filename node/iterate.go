package node

import (
	"time"

	"github.com/opd-ai/zssp/crypto"
	"github.com/opd-ai/zssp/limits"
	"github.com/opd-ai/zssp/session"
	"github.com/sirupsen/logrus"
)

// Iterate performs the node's periodic work at time now: it drops
// handshakes older than HandshakeTimeout and sessions idle for longer than
// IdleTimeout, sends rekey offers that are due and keepalives on quiet
// sessions. Peers from the configuration whose session was dropped are
// dialed again.
func (n *Node) Iterate(now time.Time) {
	n.mu.Lock()
	if !n.running {
		n.mu.Unlock()
		return
	}

	var redial []*peer
	buf := make([]byte, limits.MaxPacketSize)
	for id, e := range n.sessions {
		logger := crypto.NewPackageLogger("node", "Iterate").WithField("session_id", id.String())

		if !e.established {
			if now.Sub(e.createdAt) > n.opts.HandshakeTimeout {
				delete(n.sessions, id)
				n.metrics.handshakeTimeouts.Inc()
				logger.Info("Handshake timed out")
				if e.persistent != nil {
					redial = append(redial, e.persistent)
				}
			}
			continue
		}

		if n.opts.IdleTimeout > 0 && now.Sub(e.lastRecv) > n.opts.IdleTimeout {
			delete(n.sessions, id)
			logger.Info("Session idle, dropping")
			if e.persistent != nil {
				redial = append(redial, e.persistent)
			}
			continue
		}

		offer, err := e.session.RekeyCheck(rng, buf, now.UnixMilli(), false)
		if err != nil {
			logger.WithError(err, "rekey").Warn("Rekey failed")
		} else if offer != nil {
			if err := n.sendLocked(offer, e.addr); err == nil {
				n.metrics.rekeys.Inc()
				e.lastSend = now
			}
			continue
		}

		if n.opts.KeepaliveInterval > 0 && now.Sub(e.lastSend) >= n.opts.KeepaliveInterval {
			n.keepaliveLocked(e, buf, now, logger)
		}
	}
	n.metrics.sessions.Set(float64(len(n.sessions)))
	n.mu.Unlock()

	for _, p := range redial {
		if _, err := n.connectPeer(p, true); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Iterate",
				"peer":     p.addr,
				"error":    err.Error(),
			}).Warn("Reconnect failed")
		}
	}
}

func (n *Node) keepaliveLocked(e *entry, buf []byte, now time.Time, logger *crypto.LoggerHelper) {
	nop, err := e.session.SendNOP(rng, buf)
	if err != nil {
		logger.WithError(err, "keepalive").Warn("Keepalive failed")
		return
	}
	if err := n.sendLocked(nop, e.addr); err != nil {
		logger.WithError(err, "send keepalive").Debug("Keepalive not sent")
		return
	}
	e.lastSend = now
}

// Rekey forces a rekey offer on session id.
func (n *Node) Rekey(id session.SessionID) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	e, ok := n.sessions[id]
	if !ok {
		return ErrUnknownSession
	}
	offer, err := e.session.RekeyCheck(rng, make([]byte, limits.MaxPacketSize), crypto.NowMillis(n.clock), true)
	if err != nil {
		return err
	}
	if offer == nil {
		return session.ErrSessionNotEstablished
	}
	if err := n.sendLocked(offer, e.addr); err != nil {
		return err
	}
	n.metrics.rekeys.Inc()
	e.lastSend = n.clock.Now()
	return nil
}
