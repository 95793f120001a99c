package session

import (
	"github.com/opd-ai/zssp/crypto"
	"github.com/opd-ai/zssp/limits"
)

// Packet types carried in the first header byte.
const (
	PacketTypeData            byte = 0
	PacketTypeNOP             byte = 1
	PacketTypeKeyOffer        byte = 2
	PacketTypeKeyCounterOffer byte = 3
)

const (
	HeaderSize        = limits.HeaderSize
	SessionIDSize     = 6
	AESGCMTagSize     = crypto.AESGCMTagSize
	HMACSize          = crypto.SHA384Size
	PSKSize           = 64
	P384PublicKeySize = crypto.P384PublicKeySize
	MinPacketSize     = limits.MinPacketSize
)

const (
	// RekeyAfterUses is the number of packets after which a key should be
	// replaced. A random jitter below RekeyAfterUsesMaxJitter is added.
	RekeyAfterUses          = uint64(1) << 29
	RekeyAfterUsesMaxJitter = uint32(1) << 20

	// ExpireAfterUses is the hard usage ceiling of one key. It keeps the 32
	// bit wire counter from ever wrapping under the same key.
	ExpireAfterUses = uint64(1)<<32 - 1 - 1024

	// RekeyAfterTimeMs is the key age after which a rekey is due. A random
	// jitter below RekeyAfterTimeMsMaxJitter is added.
	RekeyAfterTimeMs          = int64(60 * 60 * 1000)
	RekeyAfterTimeMsMaxJitter = uint32(5 * 60 * 1000)

	// OfferRateLimitMs is the minimum spacing between handshake offers on
	// one session.
	OfferRateLimitMs = int64(1000)

	// PendingKeyTimeoutMs is how long a staged rekey result may wait for
	// promotion before it stops holding back further rekeys.
	PendingKeyTimeoutMs = int64(60 * 1000)
)

const (
	protocolName = "ZSSP_Noise_IKpsk2_NISTP384_?KYBER512_AESGCM_SHA512"

	kemTypeNone           byte = 0
	kemTypeKyber512       byte = 1
	reservedSize               = 2
	identityLenSize            = 2
	handshakeTagsSize          = AESGCMTagSize + HMACSize
	handshakeBodyOffset        = HeaderSize + P384PublicKeySize
	obfuscatedBlocksData       = 1
	obfuscatedBlocksHello      = 4

	labelAliceToBob byte = 'A'
	labelBobToAlice byte = 'B'
	labelHMAC       byte = 'M'

	// smallest encodings of each handshake packet, with a one byte identity
	offerMinSize        = handshakeBodyOffset + 2*SessionIDSize + identityLenSize + 1 + 1 + reservedSize + handshakeTagsSize
	counterOfferMinSize = handshakeBodyOffset + SessionIDSize + 1 + reservedSize + handshakeTagsSize
)

var initialKey = crypto.SHA512([]byte(protocolName))
