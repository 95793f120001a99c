package node

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/flynn/noise"
	"github.com/opd-ai/zssp/crypto"
	"github.com/opd-ai/zssp/limits"
	"github.com/opd-ai/zssp/session"
	"github.com/opd-ai/zssp/transport"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNotRunning indicates an operation that needs a started node.
	ErrNotRunning = errors.New("node is not running")

	// ErrUnknownSession indicates a session id that is not in the table.
	ErrUnknownSession = errors.New("unknown session")
)

// DataCallback receives decrypted payloads.
type DataCallback func(id session.SessionID, from net.Addr, data []byte)

// SessionCallback is called once per session when its handshake completes.
type SessionCallback func(id session.SessionID, from net.Addr)

type peerKey [crypto.SHA384Size]byte

// peer is a known remote identity.
type peer struct {
	identity []byte
	psk      [session.PSKSize]byte
	addr     string
}

// entry is a session table row.
type entry struct {
	session     *session.Session
	addr        net.Addr
	established bool
	persistent  *peer
	createdAt   time.Time
	lastSend    time.Time
	lastRecv    time.Time
	replay      replayWindow
}

// Node owns a local identity, a UDP transport and a session table, and
// drives the session layer: it answers handshakes, delivers data, rekeys,
// sends keepalives and expires dead sessions. It implements session.Host.
type Node struct {
	opts     *Options
	identity *session.Identity
	metrics  *Metrics
	clock    crypto.TimeProvider

	transport transport.Transport

	mu         sync.RWMutex
	sessions   map[session.SessionID]*entry
	peers      map[peerKey]*peer
	onData     DataCallback
	onSession  SessionCallback
	running    bool
	defaultPSK [session.PSKSize]byte
}

// New creates a node for the given static key pair. Peers from opts are
// registered but not contacted until Start.
func New(opts *Options, static noise.DHKey) (*Node, error) {
	if opts == nil {
		opts = NewOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	identity, err := session.NewIdentity(static, static.Public)
	if err != nil {
		return nil, err
	}
	defaultPSK, _ := ParsePSK(opts.DefaultPSK)

	n := &Node{
		opts:       opts,
		identity:   identity,
		metrics:    NewMetrics(),
		clock:      opts.TimeProvider,
		sessions:   make(map[session.SessionID]*entry),
		peers:      make(map[peerKey]*peer),
		defaultPSK: defaultPSK,
	}
	for _, pc := range opts.Peers {
		id, _ := ParseIdentity(pc.Identity)
		psk, _ := ParsePSK(pc.PSK)
		n.AddPeer(id, psk, pc.Address)
	}
	return n, nil
}

// Identity returns the public identity blob peers use to reach this node.
func (n *Node) Identity() []byte {
	return n.identity.Public()
}

// Metrics returns the node's instruments.
func (n *Node) Metrics() *Metrics {
	return n.metrics
}

// OnData sets the callback for decrypted payloads.
func (n *Node) OnData(cb DataCallback) {
	n.mu.Lock()
	n.onData = cb
	n.mu.Unlock()
}

// OnSession sets the callback for completed handshakes.
func (n *Node) OnSession(cb SessionCallback) {
	n.mu.Lock()
	n.onSession = cb
	n.mu.Unlock()
}

// AddPeer registers a remote identity that may open sessions to this node
// with psk. A non-empty addr makes the node keep a session to the peer.
func (n *Node) AddPeer(identity []byte, psk [session.PSKSize]byte, addr string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.peers[crypto.SHA384(identity)] = &peer{
		identity: append([]byte(nil), identity...),
		psk:      psk,
		addr:     addr,
	}
}

// Start binds the UDP transport and connects to every peer with an address.
func (n *Node) Start() error {
	t, err := transport.NewUDPTransport(n.opts.ListenAddr)
	if err != nil {
		return err
	}
	return n.StartWithTransport(t)
}

// StartWithTransport is Start over an existing transport.
func (n *Node) StartWithTransport(t transport.Transport) error {
	n.mu.Lock()
	if n.running {
		n.mu.Unlock()
		return errors.New("node already running")
	}
	n.transport = t
	n.running = true
	var dial []*peer
	for _, p := range n.peers {
		if p.addr != "" {
			dial = append(dial, p)
		}
	}
	n.mu.Unlock()

	t.SetHandler(n.handleDatagram)

	for _, p := range dial {
		if _, err := n.connectPeer(p, true); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Start",
				"peer":     p.addr,
				"error":    err.Error(),
			}).Warn("Initial connect failed")
		}
	}
	return nil
}

// LocalAddr returns the transport address, or nil before Start.
func (n *Node) LocalAddr() net.Addr {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.transport == nil {
		return nil
	}
	return n.transport.LocalAddr()
}

// Close stops the transport and drops every session.
func (n *Node) Close() error {
	n.mu.Lock()
	if !n.running {
		n.mu.Unlock()
		return nil
	}
	n.running = false
	t := n.transport
	n.sessions = make(map[session.SessionID]*entry)
	n.mu.Unlock()

	n.metrics.sessions.Set(0)
	return t.Close()
}

// Connect starts a handshake with the peer at addr and returns the local
// id of the new session. The session becomes usable once the OnSession
// callback fires for it.
func (n *Node) Connect(addr string, remoteIdentity []byte, psk [session.PSKSize]byte) (session.SessionID, error) {
	if _, ok := extractP384(remoteIdentity); !ok {
		return 0, crypto.ErrInvalidPublicKey
	}
	n.mu.Lock()
	key := crypto.SHA384(remoteIdentity)
	p, ok := n.peers[key]
	if !ok {
		p = &peer{identity: append([]byte(nil), remoteIdentity...), psk: psk}
		n.peers[key] = p
	}
	n.mu.Unlock()
	return n.connectPeer(&peer{identity: p.identity, psk: psk, addr: addr}, false)
}

func (n *Node) connectPeer(p *peer, persistent bool) (session.SessionID, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", p.addr)
	if err != nil {
		return 0, err
	}
	remoteP384, _ := extractP384(p.identity)

	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.running {
		return 0, ErrNotRunning
	}
	id, err := n.allocateIDLocked()
	if err != nil {
		return 0, err
	}

	now := n.clock.Now()
	buf := make([]byte, limits.MaxPacketSize)
	s, offer, err := session.New(rng, session.Config{
		Local:          n.identity,
		RemoteIdentity: p.identity,
		RemoteP384:     remoteP384,
		PSK:            p.psk,
		LocalID:        id,
		Jedi:           n.opts.Jedi,
	}, buf, now.UnixMilli())
	if err != nil {
		return 0, err
	}

	e := &entry{
		session:   s,
		addr:      udpAddr,
		createdAt: now,
		lastSend:  now,
		lastRecv:  now,
	}
	if persistent {
		e.persistent = p
	}
	n.sessions[id] = e
	n.metrics.sessions.Set(float64(len(n.sessions)))

	if err := n.sendLocked(offer, udpAddr); err != nil {
		delete(n.sessions, id)
		return 0, err
	}
	logrus.WithFields(logrus.Fields{
		"function":   "Connect",
		"session_id": id.String(),
		"addr":       udpAddr.String(),
	}).Info("Connecting to peer")
	return id, nil
}

func (n *Node) allocateIDLocked() (session.SessionID, error) {
	for {
		id, err := session.NewRandomSessionID(rng)
		if err != nil {
			return 0, err
		}
		if _, taken := n.sessions[id]; !taken {
			return id, nil
		}
	}
}

// SendTo encrypts data on session id and sends it to the peer's last known
// address.
func (n *Node) SendTo(id session.SessionID, data []byte) error {
	n.mu.RLock()
	e, ok := n.sessions[id]
	running := n.running
	n.mu.RUnlock()
	if !running {
		return ErrNotRunning
	}
	if !ok {
		return ErrUnknownSession
	}

	pkt, err := e.session.Send(make([]byte, limits.MaxPacketSize), data)
	if err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	e.lastSend = n.clock.Now()
	return n.sendLocked(pkt, e.addr)
}

// Sessions returns the ids of all established sessions.
func (n *Node) Sessions() []session.SessionID {
	n.mu.RLock()
	defer n.mu.RUnlock()
	ids := make([]session.SessionID, 0, len(n.sessions))
	for id, e := range n.sessions {
		if e.established {
			ids = append(ids, id)
		}
	}
	return ids
}

// Session returns the session with the given id.
func (n *Node) Session(id session.SessionID) (*session.Session, bool) {
	return n.LookupSession(id)
}

func (n *Node) sendLocked(pkt []byte, addr net.Addr) error {
	if n.transport == nil {
		return ErrNotRunning
	}
	if err := n.transport.Send(pkt, addr); err != nil {
		return fmt.Errorf("send to %s: %w", addr, err)
	}
	n.metrics.packetsOut.Inc()
	return nil
}

// Run calls Iterate every IterationInterval until ctx is done.
func (n *Node) Run(ctx context.Context) error {
	ticker := time.NewTicker(n.opts.IterationInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n.Iterate(n.clock.Now())
		}
	}
}
