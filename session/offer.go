package session

import (
	"fmt"
	"io"

	"github.com/flynn/noise"
	"github.com/opd-ai/zssp/crypto"
	"github.com/opd-ai/zssp/limits"
)

// ephemeralOffer is the initiator state kept between sending a KEY_OFFER and
// validating the matching KEY_COUNTER_OFFER.
type ephemeralOffer struct {
	createdAt int64
	key       [64]byte
	ephemeral noise.DHKey
	kyber     *crypto.KyberKeyPair
}

func (o *ephemeralOffer) wipe() {
	crypto.ZeroBytes(o.key[:])
	crypto.WipeKeyPair(&o.ephemeral)
}

// createOffer builds a KEY_OFFER into buf and returns the offer state and
// the packet length. bobID is the peer's session id for rekeys and zero for
// the initial handshake.
func (s *Session) createOffer(rng io.Reader, buf []byte, now int64, bobID SessionID) (*ephemeralOffer, int, error) {
	limit := min(len(buf), limits.MaxPacketSize) - handshakeTagsSize
	if limit < offerMinSize-handshakeTagsSize {
		return nil, 0, fmt.Errorf("%w: buffer of %d bytes", ErrInvalidParameter, len(buf))
	}

	e0, err := crypto.DHP384.GenerateKeypair(rng)
	if err != nil {
		return nil, 0, err
	}
	es, err := crypto.DHP384.DH(e0.Private, s.remoteP384)
	if err != nil {
		crypto.WipeKeyPair(&e0)
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	key := mix(initialKey, e0.Public)
	key = mix(key, es)
	crypto.ZeroBytes(es)

	offer := &ephemeralOffer{createdAt: now, ephemeral: e0}
	if s.jedi {
		if offer.kyber, err = crypto.GenerateKyberKeyPair(rng); err != nil {
			offer.wipe()
			return nil, 0, err
		}
	}

	writeHeader(buf, PacketTypeKeyOffer, bobID, s.counter.Next())
	w := newWriter(buf[:limit], HeaderSize)
	w.writeBytes(e0.Public)
	w.writeUint48(uint64(bobID))
	w.writeUint48(uint64(s.id))
	w.writeUint16(uint16(len(s.local.public)))
	w.writeBytes(s.local.public)
	if offer.kyber != nil {
		w.writeByte(kemTypeKyber512)
		w.writeBytes(offer.kyber.Public)
	} else {
		w.writeByte(kemTypeNone)
	}
	w.zero(reservedSize)
	pad, err := paddingLength(rng, w.remaining())
	if err != nil {
		offer.wipe()
		return nil, 0, err
	}
	w.zero(pad)
	if w.err != nil {
		offer.wipe()
		return nil, 0, fmt.Errorf("%w: offer does not fit in %d bytes", w.err, len(buf))
	}

	end, err := sealHandshake(key, labelAliceToBob, buf, w.off)
	if err != nil {
		offer.wipe()
		return nil, 0, err
	}

	key = mix(key, s.ss)
	tag := transcriptTag(key, buf[:end])
	end += copy(buf[end:], tag[:])

	offer.key = key
	s.outgoing.Obfuscate(buf, obfuscatedBlocksHello)
	return offer, end, nil
}
