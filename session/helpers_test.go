package session

import (
	"bytes"
	"crypto/rand"
	"sync"
	"testing"

	"github.com/flynn/noise"
	"github.com/opd-ai/zssp/crypto"
	"github.com/opd-ai/zssp/limits"
	"github.com/stretchr/testify/require"
)

// testPeer is a minimal Host: identity blobs are raw P-384 public keys and
// the session table is a map.
type testPeer struct {
	static   noise.DHKey
	identity *Identity
	psk      [PSKSize]byte
	reject   bool

	mu       sync.Mutex
	sessions map[SessionID]*Session
}

func newTestPeer(t testing.TB) *testPeer {
	t.Helper()
	static, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	id, err := NewIdentity(static, static.Public)
	require.NoError(t, err)
	return &testPeer{static: static, identity: id, sessions: make(map[SessionID]*Session)}
}

func (p *testPeer) add(s *Session) {
	p.mu.Lock()
	p.sessions[s.ID()] = s
	p.mu.Unlock()
}

func (p *testPeer) remove(id SessionID) {
	p.mu.Lock()
	delete(p.sessions, id)
	p.mu.Unlock()
}

func (p *testPeer) host() Host {
	return HostFuncs{
		Extract: func(identity []byte) ([]byte, bool) {
			if crypto.ValidatePublicKey(identity) != nil {
				return nil, false
			}
			return identity, true
		},
		Lookup: func(id SessionID) (*Session, bool) {
			p.mu.Lock()
			defer p.mu.Unlock()
			s, ok := p.sessions[id]
			return s, ok
		},
		Accept: func(identity []byte) (NewSessionGrant, bool) {
			if p.reject {
				return NewSessionGrant{}, false
			}
			id, err := NewRandomSessionID(rand.Reader)
			if err != nil {
				return NewSessionGrant{}, false
			}
			return NewSessionGrant{ID: id, PSK: p.psk, AssociatedObject: "accepted"}, true
		},
	}
}

func (p *testPeer) receive(t testing.TB, packet []byte, jedi bool, now int64) (ReceiveResult, error) {
	t.Helper()
	out := make([]byte, limits.MaxPacketSize)
	return Receive(rand.Reader, p.identity, p.host(), bytes.Clone(packet), out, jedi, now)
}

func packetBuf() []byte {
	return make([]byte, limits.MaxPacketSize)
}

// startSession creates alice's side and returns it with its KEY_OFFER.
func startSession(t testing.TB, alice, bob *testPeer, jedi bool, now int64) (*Session, []byte) {
	t.Helper()
	id, err := NewRandomSessionID(rand.Reader)
	require.NoError(t, err)
	s, offer, err := New(rand.Reader, Config{
		Local:          alice.identity,
		RemoteIdentity: bob.identity.Public(),
		RemoteP384:     bob.static.Public,
		PSK:            alice.psk,
		LocalID:        id,
		Jedi:           jedi,
	}, packetBuf(), now)
	require.NoError(t, err)
	alice.add(s)
	return s, offer
}

// handshake runs a full KEY_OFFER, KEY_COUNTER_OFFER, NOP exchange.
func handshake(t testing.TB, alice, bob *testPeer, jedi bool, now int64) (*Session, *Session) {
	t.Helper()
	as, offer := startSession(t, alice, bob, jedi, now)

	res, err := bob.receive(t, offer, jedi, now)
	require.NoError(t, err)
	require.Equal(t, ResultOkNewSession, res.Kind)
	bs := res.Session
	bob.add(bs)
	require.False(t, bs.Established())

	res, err = alice.receive(t, res.Reply, jedi, now)
	require.NoError(t, err)
	require.Equal(t, ResultOkSendReply, res.Kind)
	require.True(t, as.Established())

	res, err = bob.receive(t, res.Reply, jedi, now)
	require.NoError(t, err)
	require.Equal(t, ResultOk, res.Kind)
	require.True(t, bs.Established())
	return as, bs
}

func send(t testing.TB, s *Session, data []byte) []byte {
	t.Helper()
	pkt, err := s.Send(packetBuf(), data)
	require.NoError(t, err)
	return bytes.Clone(pkt)
}

func exchange(t testing.TB, from *Session, to *testPeer, data []byte, now int64) ReceiveResult {
	t.Helper()
	res, err := to.receive(t, send(t, from, data), true, now)
	require.NoError(t, err)
	require.Equal(t, ResultOkData, res.Kind)
	require.Equal(t, data, res.Data)
	return res
}
