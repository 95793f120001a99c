package session

import (
	"fmt"
	"io"
	"sync"

	"github.com/opd-ai/zssp/crypto"
	"github.com/opd-ai/zssp/limits"
	"github.com/sirupsen/logrus"
)

// Config describes an outgoing session.
type Config struct {
	// Local is this node's identity.
	Local *Identity

	// RemoteIdentity is the peer's opaque identity blob. It keys outbound
	// obfuscation and is what the peer's host authenticates.
	RemoteIdentity []byte

	// RemoteP384 is the peer's uncompressed static P-384 public key.
	RemoteP384 []byte

	PSK              [PSKSize]byte
	AssociatedObject any

	// LocalID is the id the peer will address packets for this session to.
	LocalID SessionID

	// Jedi enables the Kyber512 hybrid exchange for handshakes this side
	// initiates.
	Jedi bool
}

// state is the part of a Session guarded by Session.mu.
type state struct {
	remoteID SessionID
	keys     [2]*SessionKey
	offer    *ephemeralOffer

	// previous is the key replaced by a send-side promotion. It only
	// decrypts, until the peer is heard from under keys[0].
	previous *SessionKey
}

// Session is one end of a secure session. It is safe for concurrent use.
type Session struct {
	id               SessionID
	counter          Counter
	remoteStaticHash [HMACSize]byte
	psk              [PSKSize]byte
	ss               []byte
	outgoing         *Obfuscator
	local            *Identity
	remoteP384       []byte
	remoteIdentity   []byte
	associatedObject any
	jedi             bool

	mu    sync.RWMutex
	state state
}

// SecurityInfo describes the key a session currently sends under.
type SecurityInfo struct {
	KeyCreatedAt int64
	Role         Role
	Jedi         bool
}

// New starts an outgoing session. It writes the first KEY_OFFER into buf and
// returns the session, which stays in the handshaking state until Receive
// processes the peer's counter-offer, along with the packet to send.
func New(rng io.Reader, cfg Config, buf []byte, now int64) (*Session, []byte, error) {
	if cfg.Local == nil || cfg.LocalID == 0 {
		return nil, nil, fmt.Errorf("%w: missing local identity or id", ErrInvalidParameter)
	}
	if err := limits.ValidateIdentity(cfg.RemoteIdentity); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	s, err := newSession(cfg.Local, cfg.LocalID, cfg.RemoteIdentity, cfg.RemoteP384, cfg.PSK, cfg.AssociatedObject, cfg.Jedi, nil)
	if err != nil {
		return nil, nil, err
	}

	offer, n, err := s.createOffer(rng, buf, now, 0)
	if err != nil {
		return nil, nil, err
	}
	s.state.offer = offer

	logrus.WithFields(logrus.Fields{
		"function":   "New",
		"session_id": s.id.String(),
		"jedi":       cfg.Jedi,
	}).Debug("Sent initial key offer")
	return s, buf[:n], nil
}

// newSession builds a session without any key material beyond the static
// secret. ss may be passed in when the caller already computed it.
func newSession(local *Identity, id SessionID, remoteIdentity, remoteP384 []byte, psk [PSKSize]byte, assoc any, jedi bool, ss []byte) (*Session, error) {
	if ss == nil {
		var err error
		ss, err = crypto.DeriveSharedSecret(remoteP384, local.static.Private)
		if err != nil {
			return nil, fmt.Errorf("%w: static agreement failed: %v", ErrInvalidParameter, err)
		}
	}
	outgoing, err := NewObfuscator(remoteIdentity)
	if err != nil {
		return nil, err
	}
	return &Session{
		id:               id,
		remoteStaticHash: crypto.SHA384(remoteIdentity),
		psk:              psk,
		ss:               ss,
		outgoing:         outgoing,
		local:            local,
		remoteP384:       append([]byte(nil), remoteP384...),
		remoteIdentity:   append([]byte(nil), remoteIdentity...),
		associatedObject: assoc,
		jedi:             jedi,
	}, nil
}

// RekeyCheck starts a rekey when one is due and returns the KEY_OFFER to
// send, or nil when there is nothing to do. A rekey is due when force is set
// or the current key reached a soft threshold and no offer went out in the
// last OfferRateLimitMs.
func (s *Session) RekeyCheck(rng io.Reader, buf []byte, now int64, force bool) ([]byte, error) {
	s.mu.RLock()
	due := s.rekeyDueLocked(now, force)
	remoteID := s.state.remoteID
	s.mu.RUnlock()
	if !due {
		return nil, nil
	}

	offer, n, err := s.createOffer(rng, buf, now, remoteID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if !s.rekeyDueLocked(now, force) {
		s.mu.Unlock()
		offer.wipe()
		return nil, nil
	}
	s.state.offer = offer
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":   "RekeyCheck",
		"session_id": s.id.String(),
		"forced":     force,
	}).Debug("Sent rekey offer")
	return buf[:n], nil
}

func (s *Session) rekeyDueLocked(now int64, force bool) bool {
	st := &s.state
	if st.keys[0] == nil || st.remoteID == 0 {
		return false
	}
	if force {
		return true
	}
	if st.keys[1] != nil && now-st.keys[1].createdAt < PendingKeyTimeoutMs {
		return false
	}
	if !st.keys[0].lifetime.ShouldRekey(s.counter.Current(), now) {
		return false
	}
	return st.offer == nil || now-st.offer.createdAt >= OfferRateLimitMs
}

// Send frames and encrypts data as a DATA packet in buf and returns the
// packet. buf needs room for HeaderSize+len(data)+AESGCMTagSize bytes.
func (s *Session) Send(buf, data []byte) ([]byte, error) {
	if err := limits.ValidatePayload(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	if len(buf) < HeaderSize+len(data)+AESGCMTagSize {
		return nil, fmt.Errorf("%w: buffer of %d bytes", ErrInvalidParameter, len(buf))
	}
	key, remoteID := s.sendKey()
	if key == nil || remoteID == 0 {
		return nil, ErrSessionNotEstablished
	}
	copy(buf[HeaderSize:], data)
	return s.seal(key, remoteID, PacketTypeData, buf, len(data))
}

// SendNOP builds an authenticated NOP packet with random length and content
// in buf. Peers accept it without delivering anything, so it serves as a
// keepalive and as the handshake completion acknowledgement.
func (s *Session) SendNOP(rng io.Reader, buf []byte) ([]byte, error) {
	key, remoteID := s.sendKey()
	if key == nil || remoteID == 0 {
		return nil, ErrSessionNotEstablished
	}
	return s.sealNOP(rng, key, remoteID, buf)
}

func (s *Session) sealNOP(rng io.Reader, key *SessionKey, remoteID SessionID, buf []byte) ([]byte, error) {
	room := min(len(buf), limits.MaxPacketSize) - HeaderSize - AESGCMTagSize
	if room < 1 {
		return nil, fmt.Errorf("%w: buffer of %d bytes", ErrInvalidParameter, len(buf))
	}
	n, err := crypto.RandomBelow(rng, uint32(room))
	if err != nil {
		return nil, err
	}
	n++
	if _, err := io.ReadFull(rng, buf[HeaderSize:HeaderSize+int(n)]); err != nil {
		return nil, err
	}
	return s.seal(key, remoteID, PacketTypeNOP, buf, int(n))
}

// sendKey returns the key to send under, first promoting a rekey this side
// initiated and the peer already confirmed.
func (s *Session) sendKey() (*SessionKey, SessionID) {
	s.mu.RLock()
	key, next, remoteID := s.state.keys[0], s.state.keys[1], s.state.remoteID
	s.mu.RUnlock()
	if next == nil || next.role != RoleAlice {
		return key, remoteID
	}

	s.mu.Lock()
	if s.state.keys[1] == next {
		s.state.previous = s.state.keys[0]
		s.state.keys[0] = next
		s.state.keys[1] = nil
		logrus.WithFields(logrus.Fields{
			"function":   "Send",
			"session_id": s.id.String(),
		}).Debug("Promoted rekeyed session key")
	}
	key, remoteID = s.state.keys[0], s.state.remoteID
	s.mu.Unlock()
	return key, remoteID
}

// seal encrypts buf[HeaderSize:HeaderSize+n] in place and obfuscates the
// header block.
func (s *Session) seal(key *SessionKey, remoteID SessionID, packetType byte, buf []byte, n int) ([]byte, error) {
	counter := s.counter.Next()
	gcm, err := key.GetSendCipher(counter)
	if err != nil {
		return nil, err
	}
	writeHeader(buf, packetType, remoteID, counter)
	payload := buf[HeaderSize : HeaderSize+n]
	sealed := gcm.Seal(payload[:0], headerNonce(buf), payload, nil)
	key.ReturnSendCipher(gcm)

	packet := buf[:HeaderSize+len(sealed)]
	s.outgoing.Obfuscate(packet, obfuscatedBlocksData)
	return packet, nil
}

// ID returns the local session id.
func (s *Session) ID() SessionID { return s.id }

// RemoteSessionID returns the peer's id for this session, or zero while the
// handshake is still running.
func (s *Session) RemoteSessionID() SessionID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.remoteID
}

// Established reports whether the session can send.
func (s *Session) Established() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.keys[0] != nil && s.state.remoteID != 0
}

// AssociatedObject returns the caller value attached at creation.
func (s *Session) AssociatedObject() any { return s.associatedObject }

// RemoteStaticHash returns SHA-384 of the peer's identity blob.
func (s *Session) RemoteStaticHash() [HMACSize]byte { return s.remoteStaticHash }

// RemoteIdentity returns the peer's identity blob.
func (s *Session) RemoteIdentity() []byte { return s.remoteIdentity }

// SendCounter returns the next counter value this session will use.
func (s *Session) SendCounter() CounterValue { return s.counter.Current() }

// SecurityInfo describes the current key. It returns false before the
// handshake completes.
func (s *Session) SecurityInfo() (SecurityInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k := s.state.keys[0]
	if k == nil {
		return SecurityInfo{}, false
	}
	return SecurityInfo{KeyCreatedAt: k.createdAt, Role: k.role, Jedi: k.jedi}, true
}

// PendingOfferAge returns how long ago this side sent a still unanswered
// offer, and false when there is none.
func (s *Session) PendingOfferAge(now int64) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.offer == nil {
		return 0, false
	}
	return now - s.state.offer.createdAt, true
}
