package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

const (
	// AESGCMTagSize is the size of the GCM authentication tag.
	AESGCMTagSize = 16

	// AESGCMNonceSize is the nonce size used on the wire: one full AES
	// block holding the packet header followed by zero padding.
	AESGCMNonceSize = aes.BlockSize

	// AESKeySize is the AES-256 key size.
	AESKeySize = 32
)

// NewAESGCM returns an AES-256-GCM AEAD that takes block-sized nonces.
func NewAESGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != AESKeySize {
		return nil, fmt.Errorf("AES-GCM key must be %d bytes, got %d", AESKeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, AESGCMNonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// NewAESBlock returns a raw AES-256 block cipher.
func NewAESBlock(key []byte) (cipher.Block, error) {
	if len(key) != AESKeySize {
		return nil, fmt.Errorf("AES key must be %d bytes, got %d", AESKeySize, len(key))
	}
	return aes.NewCipher(key)
}
