package session

import (
	"encoding/binary"
	"io"

	"github.com/opd-ai/zssp/crypto"
)

// header is the decoded form of the 11-byte packet header.
type header struct {
	packetType byte
	rawID      uint64
	counter    uint32
}

func writeHeader(buf []byte, packetType byte, id SessionID, counter CounterValue) {
	buf[0] = packetType
	id.CopyTo(buf[1:7])
	binary.LittleEndian.PutUint32(buf[7:HeaderSize], counter.Nonce())
}

func parseHeader(buf []byte) header {
	return header{
		packetType: buf[0],
		rawID:      decodeUint48(buf[1:7]),
		counter:    binary.LittleEndian.Uint32(buf[7:HeaderSize]),
	}
}

// headerNonce returns the AEAD nonce of a packet: its header followed by
// zeros up to one cipher block.
func headerNonce(buf []byte) []byte {
	nonce := make([]byte, crypto.AESGCMNonceSize)
	copy(nonce, buf[:HeaderSize])
	return nonce
}

// mix folds input into the handshake chain. The chain key is the HMAC key
// and the new input is the message; peers must agree on this order.
func mix(key [64]byte, input []byte) [64]byte {
	return crypto.HMACSHA512(key[:], input)
}

// sealHandshake encrypts buf[handshakeBodyOffset:end] in place under the
// label's subkey and returns the new end offset, which includes the tag.
func sealHandshake(key [64]byte, label byte, buf []byte, end int) (int, error) {
	sub := crypto.KBKDF512(key[:], label)
	defer crypto.ZeroBytes(sub[:])
	gcm, err := crypto.NewAESGCM(sub[:crypto.AESKeySize])
	if err != nil {
		return 0, err
	}
	payload := buf[handshakeBodyOffset:end]
	sealed := gcm.Seal(payload[:0], headerNonce(buf), payload, buf[:handshakeBodyOffset])
	return handshakeBodyOffset + len(sealed), nil
}

// openHandshake authenticates and decrypts the body of a received handshake
// packet into a fresh slice. packet excludes the trailing transcript tag.
func openHandshake(key [64]byte, label byte, packet []byte) ([]byte, error) {
	sub := crypto.KBKDF512(key[:], label)
	defer crypto.ZeroBytes(sub[:])
	gcm, err := crypto.NewAESGCM(sub[:crypto.AESKeySize])
	if err != nil {
		return nil, err
	}
	plain, err := gcm.Open(nil, headerNonce(packet), packet[handshakeBodyOffset:], packet[:handshakeBodyOffset])
	if err != nil {
		return nil, ErrFailedAuthentication
	}
	return plain, nil
}

// transcriptTag computes the HMAC-SHA384 tag over a handshake packet.
func transcriptTag(key [64]byte, packet []byte) [HMACSize]byte {
	sub := crypto.KBKDF512(key[:], labelHMAC)
	defer crypto.ZeroBytes(sub[:])
	return crypto.HMACSHA384(sub[:HMACSize], packet)
}

// paddingLength draws a padding length uniformly from [0, room].
func paddingLength(rng io.Reader, room int) (int, error) {
	if room <= 0 {
		return 0, nil
	}
	n, err := crypto.RandomBelow(rng, uint32(room)+1)
	return int(n), err
}
