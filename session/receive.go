package session

import (
	"crypto/subtle"
	"fmt"
	"io"

	"github.com/opd-ai/zssp/crypto"
	"github.com/opd-ai/zssp/limits"
	"github.com/sirupsen/logrus"
)

// ResultKind tells the caller what to do after a successful Receive.
type ResultKind int

const (
	// ResultOk means the packet was valid and needs no further action.
	ResultOk ResultKind = iota
	// ResultOkData carries a decrypted payload in Data.
	ResultOkData
	// ResultOkSendReply asks the caller to transmit Reply to the sender.
	ResultOkSendReply
	// ResultOkNewSession hands over a new Session that the caller must
	// register, and a Reply to transmit.
	ResultOkNewSession
	// ResultIgnored means the packet was dropped without error, for example
	// a counter-offer that matches no pending offer.
	ResultIgnored
)

func (k ResultKind) String() string {
	switch k {
	case ResultOk:
		return "ok"
	case ResultOkData:
		return "data"
	case ResultOkSendReply:
		return "send-reply"
	case ResultOkNewSession:
		return "new-session"
	case ResultIgnored:
		return "ignored"
	default:
		return fmt.Sprintf("ResultKind(%d)", int(k))
	}
}

// ReceiveResult is the outcome of a successful Receive.
type ReceiveResult struct {
	Kind ResultKind

	// Data aliases the out buffer passed to Receive.
	Data []byte

	// Counter is the sender's 32-bit wire counter of a DATA packet.
	Counter uint32

	// Reply aliases the out buffer passed to Receive.
	Reply []byte

	// Session is the session the packet belonged to, when known.
	Session *Session
}

// Receive authenticates and processes one incoming packet addressed to
// local. incoming is deobfuscated in place and must not be reused. out
// receives decrypted data or the reply packet; it should be at least
// limits.MaxPacketSize bytes long. jedi allows answering offers with the
// Kyber512 hybrid exchange. now is the current time in milliseconds.
//
// Errors are the sentinels of this package. None of them leaves partial
// state behind; every one is safe to treat as a dropped packet.
func Receive(rng io.Reader, local *Identity, host Host, incoming, out []byte, jedi bool, now int64) (ReceiveResult, error) {
	if local == nil || host == nil {
		return ReceiveResult{}, ErrInvalidParameter
	}
	if err := limits.ValidatePacket(incoming); err != nil {
		return ReceiveResult{}, ErrInvalidPacket
	}

	local.obfuscator.Deobfuscate(incoming, obfuscatedBlocksData)
	h := parseHeader(incoming)

	switch h.packetType {
	case PacketTypeData, PacketTypeNOP:
		return receiveData(host, h, incoming, out)
	case PacketTypeKeyOffer:
		if len(incoming) < offerMinSize {
			return ReceiveResult{}, ErrInvalidPacket
		}
		local.obfuscator.deobfuscateRange(incoming, obfuscatedBlocksData, obfuscatedBlocksHello)
		return receiveOffer(rng, local, host, h, incoming, out, jedi, now)
	case PacketTypeKeyCounterOffer:
		if len(incoming) < counterOfferMinSize {
			return ReceiveResult{}, ErrInvalidPacket
		}
		local.obfuscator.deobfuscateRange(incoming, obfuscatedBlocksData, obfuscatedBlocksHello)
		return receiveCounterOffer(rng, local, host, h, incoming, out, now)
	default:
		return ReceiveResult{}, ErrInvalidPacket
	}
}

func lookup(host Host, rawID uint64) (*Session, error) {
	id, ok := SessionIDFromUint64(rawID)
	if !ok {
		return nil, ErrInvalidPacket
	}
	s, ok := host.LookupSession(id)
	if !ok || s == nil {
		return nil, ErrUnknownLocalSessionID
	}
	return s, nil
}

func receiveData(host Host, h header, incoming, out []byte) (ReceiveResult, error) {
	s, err := lookup(host, h.rawID)
	if err != nil {
		return ReceiveResult{}, err
	}
	if len(out) < len(incoming)-HeaderSize-AESGCMTagSize {
		return ReceiveResult{}, fmt.Errorf("%w: output buffer of %d bytes", ErrInvalidParameter, len(out))
	}

	s.mu.RLock()
	current, next, previous := s.state.keys[0], s.state.keys[1], s.state.previous
	s.mu.RUnlock()

	nonce := headerNonce(incoming)
	ciphertext := incoming[HeaderSize:]

	var data []byte
	matched := false
	for _, key := range [3]*SessionKey{current, next, previous} {
		if key == nil {
			continue
		}
		gcm, err := key.GetReceiveCipher()
		if err != nil {
			return ReceiveResult{}, err
		}
		data, err = gcm.Open(out[:0], nonce, ciphertext, nil)
		key.ReturnReceiveCipher(gcm)
		if err == nil {
			matched = true
			switch {
			case key == next:
				s.promote(next)
			case key == current && previous != nil:
				s.retire(previous)
			}
			break
		}
	}
	if !matched {
		return ReceiveResult{}, ErrFailedAuthentication
	}

	if h.packetType == PacketTypeNOP {
		return ReceiveResult{Kind: ResultOk, Session: s}, nil
	}
	return ReceiveResult{Kind: ResultOkData, Data: data, Counter: h.counter, Session: s}, nil
}

// retire drops the receive-only fallback key once the peer has sent under
// the current key.
func (s *Session) retire(previous *SessionKey) {
	s.mu.Lock()
	if s.state.previous == previous {
		s.state.previous = nil
	}
	s.mu.Unlock()
}

// promote makes next the current key if it is still the pending one.
func (s *Session) promote(next *SessionKey) {
	s.mu.Lock()
	promoted := s.state.keys[1] == next
	if promoted {
		s.state.keys[0] = next
		s.state.keys[1] = nil
	}
	s.mu.Unlock()

	if promoted {
		logrus.WithFields(logrus.Fields{
			"function":   "Receive",
			"session_id": s.id.String(),
			"role":       next.role.String(),
		}).Debug("Promoted session key on receive")
	}
}

func receiveOffer(rng io.Reader, local *Identity, host Host, h header, incoming, out []byte, jedi bool, now int64) (ReceiveResult, error) {
	var existing *Session
	if h.rawID != 0 {
		s, err := lookup(host, h.rawID)
		if err != nil {
			return ReceiveResult{}, err
		}
		s.mu.RLock()
		limited := s.state.offer != nil && now-s.state.offer.createdAt < OfferRateLimitMs
		s.mu.RUnlock()
		if limited {
			logrus.WithFields(logrus.Fields{
				"function":   "Receive",
				"session_id": s.id.String(),
			}).Debug("Dropped key offer crossing our own")
			return ReceiveResult{}, ErrRateLimited
		}
		existing = s
	}

	body := incoming[:len(incoming)-HMACSize]
	aliceE0 := incoming[HeaderSize:handshakeBodyOffset]
	es, err := crypto.DHP384.DH(local.static.Private, aliceE0)
	if err != nil {
		return ReceiveResult{}, ErrFailedAuthentication
	}
	key := mix(initialKey, aliceE0)
	key = mix(key, es)
	crypto.ZeroBytes(es)

	plain, err := openHandshake(key, labelAliceToBob, body)
	if err != nil {
		return ReceiveResult{}, err
	}

	r := newReader(plain)
	bobClaimed := r.readUint48()
	aliceRawID := r.readUint48()
	identity := r.readBytes(int(r.readUint16()))
	kemType := r.readByte()
	var kyberPublic []byte
	if kemType == kemTypeKyber512 {
		kyberPublic = r.readBytes(crypto.KyberPublicKeySize)
	} else if kemType != kemTypeNone {
		return ReceiveResult{}, ErrInvalidPacket
	}
	r.readBytes(reservedSize)
	if r.err != nil || bobClaimed != h.rawID || len(identity) == 0 || len(identity) > limits.MaxIdentitySize {
		return ReceiveResult{}, ErrInvalidPacket
	}
	aliceID, ok := SessionIDFromUint64(aliceRawID)
	if !ok {
		return ReceiveResult{}, ErrInvalidPacket
	}

	aliceStatic, ok := host.ExtractP384Static(identity)
	if !ok {
		return ReceiveResult{}, ErrInvalidPacket
	}

	var ss []byte
	if existing != nil {
		hash := crypto.SHA384(identity)
		if subtle.ConstantTimeCompare(hash[:], existing.remoteStaticHash[:]) != 1 {
			return ReceiveResult{}, ErrFailedAuthentication
		}
		ss = existing.ss
	} else {
		if ss, err = crypto.DeriveSharedSecret(aliceStatic, local.static.Private); err != nil {
			return ReceiveResult{}, ErrInvalidPacket
		}
	}

	key = mix(key, ss)
	tag := transcriptTag(key, body)
	if subtle.ConstantTimeCompare(tag[:], incoming[len(body):]) != 1 {
		return ReceiveResult{}, ErrFailedAuthentication
	}

	s := existing
	if s == nil {
		grant, ok := host.AcceptNewSession(identity)
		if !ok {
			return ReceiveResult{}, ErrNewSessionRejected
		}
		if grant.ID == 0 {
			return ReceiveResult{}, fmt.Errorf("%w: host granted session id 0", ErrInvalidParameter)
		}
		if s, err = newSession(local, grant.ID, identity, aliceStatic, grant.PSK, grant.AssociatedObject, jedi, ss); err != nil {
			return ReceiveResult{}, err
		}
	}

	useKyber := jedi && kyberPublic != nil
	sessionKey, reply, err := s.counterOffer(rng, key, aliceE0, aliceStatic, aliceID, kyberPublic, useKyber, out, now)
	if err != nil {
		return ReceiveResult{}, err
	}

	s.mu.Lock()
	s.state.remoteID = aliceID
	s.state.keys[1] = sessionKey
	s.state.offer = nil
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":   "Receive",
		"session_id": s.id.String(),
		"new":        existing == nil,
		"jedi":       useKyber,
	}).Debug("Answered key offer")

	if existing == nil {
		return ReceiveResult{Kind: ResultOkNewSession, Reply: reply, Session: s}, nil
	}
	return ReceiveResult{Kind: ResultOkSendReply, Reply: reply, Session: s}, nil
}

// counterOffer completes the responder side of a handshake. key is the
// chain after the static-static mix. It writes the KEY_COUNTER_OFFER into
// out and returns the resulting Bob-role key.
func (s *Session) counterOffer(rng io.Reader, key [64]byte, aliceE0, aliceStatic []byte, aliceID SessionID, kyberPublic []byte, useKyber bool, out []byte, now int64) (*SessionKey, []byte, error) {
	limit := min(len(out), limits.MaxPacketSize) - handshakeTagsSize
	if limit < counterOfferMinSize-handshakeTagsSize {
		return nil, nil, fmt.Errorf("%w: output buffer of %d bytes", ErrInvalidParameter, len(out))
	}

	bobE0, err := crypto.DHP384.GenerateKeypair(rng)
	if err != nil {
		return nil, nil, err
	}
	defer crypto.WipeKeyPair(&bobE0)

	ee, err := crypto.DHP384.DH(bobE0.Private, aliceE0)
	if err != nil {
		return nil, nil, ErrFailedAuthentication
	}
	se, err := crypto.DHP384.DH(bobE0.Private, aliceStatic)
	if err != nil {
		return nil, nil, ErrInvalidPacket
	}
	key = mix(key, bobE0.Public)
	key = mix(key, ee)
	key = mix(key, se)
	key = mix(key, s.psk[:])
	crypto.ZeroBytes(ee)
	crypto.ZeroBytes(se)

	var kemCiphertext, kemSecret []byte
	if useKyber {
		if kemCiphertext, kemSecret, err = crypto.KyberEncapsulate(rng, kyberPublic); err != nil {
			return nil, nil, ErrInvalidPacket
		}
		defer crypto.ZeroBytes(kemSecret)
	} else {
		kemSecret = make([]byte, crypto.KyberSharedSecretSize)
	}

	writeHeader(out, PacketTypeKeyCounterOffer, aliceID, s.counter.Next())
	w := newWriter(out[:limit], HeaderSize)
	w.writeBytes(bobE0.Public)
	w.writeUint48(uint64(s.id))
	if useKyber {
		w.writeByte(kemTypeKyber512)
		w.writeBytes(kemCiphertext)
	} else {
		w.writeByte(kemTypeNone)
	}
	w.zero(reservedSize)
	pad, err := paddingLength(rng, w.remaining())
	if err != nil {
		return nil, nil, err
	}
	w.zero(pad)
	if w.err != nil {
		return nil, nil, w.err
	}

	end, err := sealHandshake(key, labelBobToAlice, out, w.off)
	if err != nil {
		return nil, nil, err
	}
	key = mix(key, kemSecret)
	tag := transcriptTag(key, out[:end])
	end += copy(out[end:], tag[:])

	sessionKey, err := NewSessionKey(rng, key[:], RoleBob, now, s.counter.Current(), useKyber)
	crypto.ZeroBytes(key[:])
	if err != nil {
		return nil, nil, err
	}

	s.outgoing.Obfuscate(out, obfuscatedBlocksHello)
	return sessionKey, out[:end], nil
}

func receiveCounterOffer(rng io.Reader, local *Identity, host Host, h header, incoming, out []byte, now int64) (ReceiveResult, error) {
	s, err := lookup(host, h.rawID)
	if err != nil {
		return ReceiveResult{}, err
	}

	s.mu.RLock()
	offer := s.state.offer
	s.mu.RUnlock()
	if offer == nil {
		return ReceiveResult{Kind: ResultIgnored, Session: s}, nil
	}

	body := incoming[:len(incoming)-HMACSize]
	bobE0 := incoming[HeaderSize:handshakeBodyOffset]
	ee, err := crypto.DHP384.DH(offer.ephemeral.Private, bobE0)
	if err != nil {
		return ReceiveResult{}, ErrFailedAuthentication
	}
	se, err := crypto.DHP384.DH(local.static.Private, bobE0)
	if err != nil {
		crypto.ZeroBytes(ee)
		return ReceiveResult{}, ErrFailedAuthentication
	}
	key := mix(offer.key, bobE0)
	key = mix(key, ee)
	key = mix(key, se)
	key = mix(key, s.psk[:])
	crypto.ZeroBytes(ee)
	crypto.ZeroBytes(se)

	plain, err := openHandshake(key, labelBobToAlice, body)
	if err != nil {
		return ReceiveResult{}, err
	}

	r := newReader(plain)
	bobID, ok := SessionIDFromUint64(r.readUint48())
	kemType := r.readByte()
	var kemCiphertext []byte
	switch kemType {
	case kemTypeNone:
	case kemTypeKyber512:
		if offer.kyber == nil {
			return ReceiveResult{}, ErrInvalidPacket
		}
		kemCiphertext = r.readBytes(crypto.KyberCiphertextSize)
	default:
		return ReceiveResult{}, ErrInvalidPacket
	}
	r.readBytes(reservedSize)
	if r.err != nil || !ok {
		return ReceiveResult{}, ErrInvalidPacket
	}

	kemSecret := make([]byte, crypto.KyberSharedSecretSize)
	if kemCiphertext != nil {
		if kemSecret, err = crypto.KyberDecapsulate(offer.kyber, kemCiphertext); err != nil {
			return ReceiveResult{}, ErrInvalidPacket
		}
	}
	key = mix(key, kemSecret)
	crypto.ZeroBytes(kemSecret)

	tag := transcriptTag(key, body)
	if subtle.ConstantTimeCompare(tag[:], incoming[len(body):]) != 1 {
		return ReceiveResult{}, ErrFailedAuthentication
	}

	sessionKey, err := NewSessionKey(rng, key[:], RoleAlice, now, s.counter.Current(), kemCiphertext != nil)
	crypto.ZeroBytes(key[:])
	if err != nil {
		return ReceiveResult{}, err
	}

	s.mu.Lock()
	if s.state.offer != offer {
		s.mu.Unlock()
		return ReceiveResult{Kind: ResultIgnored, Session: s}, nil
	}
	s.state.offer = nil
	s.state.remoteID = bobID
	initial := s.state.keys[0] == nil
	if initial {
		s.state.keys[0] = sessionKey
	} else {
		s.state.keys[1] = sessionKey
	}
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":   "Receive",
		"session_id": s.id.String(),
		"initial":    initial,
		"jedi":       sessionKey.jedi,
	}).Debug("Handshake completed")

	if !initial {
		return ReceiveResult{Kind: ResultOk, Session: s}, nil
	}

	nop, err := s.sealNOP(rng, sessionKey, bobID, out)
	if err != nil {
		return ReceiveResult{}, err
	}
	return ReceiveResult{Kind: ResultOkSendReply, Reply: nop, Session: s}, nil
}
