package limits

import (
	"errors"
	"fmt"
)

const (
	// HeaderSize is the fixed packet header: type (1), recipient session
	// id (6) and the low 32 bits of the sender's counter (4).
	HeaderSize = 11

	// TagSize is the AES-GCM authentication tag appended to every packet.
	TagSize = 16

	// MinPacketSize is the smallest well-formed packet: a header, at least
	// one byte of ciphertext and a tag.
	MinPacketSize = HeaderSize + 1 + TagSize

	// MaxPacketSize is the largest packet this implementation will build or
	// accept. It is the largest UDP payload assumed to cross common paths
	// without IP fragmentation.
	MaxPacketSize = 1432

	// MaxPayloadSize is the largest application payload carried by a single
	// DATA packet.
	MaxPayloadSize = MaxPacketSize - HeaderSize - TagSize

	// MaxIdentitySize bounds the opaque static identity blob a peer may
	// present in a KEY_OFFER.
	MaxIdentitySize = 256
)

var (
	// ErrMessageEmpty indicates an empty message was provided
	ErrMessageEmpty = errors.New("empty message")

	// ErrMessageTooLarge indicates message exceeds maximum size
	ErrMessageTooLarge = errors.New("message too large")

	// ErrMessageTooSmall indicates a packet shorter than MinPacketSize
	ErrMessageTooSmall = errors.New("message too small")
)

// ValidateMessageSize validates a message against the specified maximum size.
// Returns an error with context including the actual and maximum sizes.
func ValidateMessageSize(message []byte, maxSize int) error {
	if len(message) == 0 {
		return ErrMessageEmpty
	}
	if len(message) > maxSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrMessageTooLarge, len(message), maxSize)
	}
	return nil
}

// ValidatePacket checks a received datagram against MinPacketSize and
// MaxPacketSize.
func ValidatePacket(packet []byte) error {
	if len(packet) < MinPacketSize {
		return fmt.Errorf("%w: size %d below minimum %d", ErrMessageTooSmall, len(packet), MinPacketSize)
	}
	return ValidateMessageSize(packet, MaxPacketSize)
}

// ValidatePayload checks an application payload before it is framed into a
// DATA packet.
func ValidatePayload(data []byte) error {
	return ValidateMessageSize(data, MaxPayloadSize)
}

// ValidateIdentity checks a static identity blob against MaxIdentitySize.
func ValidateIdentity(identity []byte) error {
	return ValidateMessageSize(identity, MaxIdentitySize)
}
