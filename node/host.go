package node

import (
	"crypto/rand"

	"github.com/opd-ai/zssp/crypto"
	"github.com/opd-ai/zssp/session"
)

// ExtractP384Static implements session.Host.
func (n *Node) ExtractP384Static(identity []byte) ([]byte, bool) {
	return extractP384(identity)
}

// LookupSession implements session.Host.
func (n *Node) LookupSession(id session.SessionID) (*session.Session, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	e, ok := n.sessions[id]
	if !ok {
		return nil, false
	}
	return e.session, true
}

// AcceptNewSession implements session.Host. Configured peers get their own
// PSK. Unknown identities are rejected unless AcceptUnknownPeers is set.
func (n *Node) AcceptNewSession(identity []byte) (session.NewSessionGrant, bool) {
	key := peerKey(crypto.SHA384(identity))

	n.mu.RLock()
	p, known := n.peers[key]
	running := n.running
	n.mu.RUnlock()

	if !running {
		return session.NewSessionGrant{}, false
	}

	logger := crypto.NewPackageLogger("node", "AcceptNewSession").
		WithFields(crypto.SecureFieldHash(identity, "identity"))

	var psk [session.PSKSize]byte
	switch {
	case known:
		psk = p.psk
	case n.opts.AcceptUnknownPeers:
		psk = n.defaultPSK
	default:
		logger.Debug("Rejecting session from unknown peer")
		return session.NewSessionGrant{}, false
	}

	n.mu.RLock()
	id, err := n.allocateIDLocked()
	n.mu.RUnlock()
	if err != nil {
		logger.WithError(err, "allocate session id").Warn("Failed to allocate session id")
		return session.NewSessionGrant{}, false
	}

	logger.WithField("session_id", id.String()).Debug("Accepting new session")
	return session.NewSessionGrant{ID: id, PSK: psk, AssociatedObject: key}, true
}

// register adds a session created by an inbound offer. A colliding id
// (another session took it between grant and registration) drops the new
// session.
func (n *Node) register(s *session.Session, e *entry) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, taken := n.sessions[s.ID()]; taken {
		return false
	}
	n.sessions[s.ID()] = e
	n.metrics.sessions.Set(float64(len(n.sessions)))
	return true
}

var _ session.Host = (*Node)(nil)

// rng is the randomness source for every session call the node makes.
var rng = rand.Reader
