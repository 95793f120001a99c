package crypto

import (
	"errors"
	"fmt"
	"io"

	"github.com/cloudflare/circl/kem/kyber/kyber512"
)

const (
	// KyberPublicKeySize is the size of a packed Kyber512 public key.
	KyberPublicKeySize = kyber512.PublicKeySize

	// KyberCiphertextSize is the size of a Kyber512 encapsulation.
	KyberCiphertextSize = kyber512.CiphertextSize

	// KyberSharedSecretSize is the size of the encapsulated secret.
	KyberSharedSecretSize = kyber512.SharedKeySize
)

// ErrInvalidKEMInput indicates a KEM public key or ciphertext of the wrong size.
var ErrInvalidKEMInput = errors.New("invalid KEM input")

// KyberKeyPair is an ephemeral Kyber512 key pair. The private half never
// leaves the process.
type KyberKeyPair struct {
	Public  []byte
	private *kyber512.PrivateKey
}

// GenerateKyberKeyPair creates a fresh Kyber512 key pair using rng.
func GenerateKyberKeyPair(rng io.Reader) (*KyberKeyPair, error) {
	pub, priv, err := kyber512.GenerateKeyPair(rng)
	if err != nil {
		return nil, fmt.Errorf("generate Kyber512 key: %w", err)
	}
	packed := make([]byte, KyberPublicKeySize)
	pub.Pack(packed)
	return &KyberKeyPair{Public: packed, private: priv}, nil
}

// KyberDecapsulate recovers the shared secret that a peer encapsulated to
// kp's public key.
func KyberDecapsulate(kp *KyberKeyPair, ciphertext []byte) ([]byte, error) {
	if kp == nil || kp.private == nil {
		return nil, ErrInvalidKEMInput
	}
	if len(ciphertext) != KyberCiphertextSize {
		return nil, fmt.Errorf("%w: ciphertext is %d bytes", ErrInvalidKEMInput, len(ciphertext))
	}
	ss := make([]byte, KyberSharedSecretSize)
	kp.private.DecapsulateTo(ss, ciphertext)
	return ss, nil
}

// KyberEncapsulate encapsulates a fresh secret to public, drawing the
// encapsulation seed from rng.
func KyberEncapsulate(rng io.Reader, public []byte) (ciphertext, sharedSecret []byte, err error) {
	if len(public) != KyberPublicKeySize {
		return nil, nil, fmt.Errorf("%w: public key is %d bytes", ErrInvalidKEMInput, len(public))
	}
	var pk kyber512.PublicKey
	pk.Unpack(public)

	seed := make([]byte, kyber512.EncapsulationSeedSize)
	defer ZeroBytes(seed)
	if _, err := io.ReadFull(rng, seed); err != nil {
		return nil, nil, fmt.Errorf("read encapsulation seed: %w", err)
	}

	ciphertext = make([]byte, KyberCiphertextSize)
	sharedSecret = make([]byte, KyberSharedSecretSize)
	pk.EncapsulateTo(ciphertext, sharedSecret, seed)
	return ciphertext, sharedSecret, nil
}
