package crypto

import (
	"crypto/ecdh"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/flynn/noise"
)

const (
	// P384PublicKeySize is the size of an uncompressed SEC1 P-384 point.
	P384PublicKeySize = 97

	// P384PrivateKeySize is the size of a P-384 scalar.
	P384PrivateKeySize = 48

	// P384SharedSecretSize is the size of the x coordinate returned by ECDH.
	P384SharedSecretSize = 48
)

var (
	// ErrInvalidPublicKey indicates bytes that do not encode a P-384 point.
	ErrInvalidPublicKey = errors.New("invalid P-384 public key")

	// ErrInvalidPrivateKey indicates bytes that do not encode a P-384 scalar.
	ErrInvalidPrivateKey = errors.New("invalid P-384 private key")
)

type p384DH struct{}

// DHP384 is NIST P-384 ECDH behind the Noise DHFunc interface. Key pairs are
// noise.DHKey values holding the raw scalar and the uncompressed point.
var DHP384 noise.DHFunc = p384DH{}

// GenerateKeypair creates a fresh P-384 key pair using random as entropy.
func (p384DH) GenerateKeypair(random io.Reader) (noise.DHKey, error) {
	if random == nil {
		random = rand.Reader
	}
	priv, err := ecdh.P384().GenerateKey(random)
	if err != nil {
		return noise.DHKey{}, fmt.Errorf("generate P-384 key: %w", err)
	}
	return noise.DHKey{
		Private: priv.Bytes(),
		Public:  priv.PublicKey().Bytes(),
	}, nil
}

// DH performs P-384 ECDH and returns the 48-byte shared x coordinate.
func (p384DH) DH(privkey, pubkey []byte) ([]byte, error) {
	priv, err := ecdh.P384().NewPrivateKey(privkey)
	if err != nil {
		return nil, ErrInvalidPrivateKey
	}
	pub, err := ecdh.P384().NewPublicKey(pubkey)
	if err != nil {
		return nil, ErrInvalidPublicKey
	}
	return priv.ECDH(pub)
}

func (p384DH) DHLen() int { return P384SharedSecretSize }

func (p384DH) DHName() string { return "P384" }

// GenerateKeyPair creates a new random P-384 static key pair.
func GenerateKeyPair() (noise.DHKey, error) {
	return DHP384.GenerateKeypair(rand.Reader)
}

// FromSecretKey rebuilds a key pair from an existing private scalar.
func FromSecretKey(secretKey []byte) (noise.DHKey, error) {
	if isZeroKey(secretKey) {
		return noise.DHKey{}, errors.New("invalid secret key: all zeros")
	}
	priv, err := ecdh.P384().NewPrivateKey(secretKey)
	if err != nil {
		return noise.DHKey{}, ErrInvalidPrivateKey
	}
	return noise.DHKey{
		Private: priv.Bytes(),
		Public:  priv.PublicKey().Bytes(),
	}, nil
}

// ValidatePublicKey reports whether pub is a usable P-384 point.
func ValidatePublicKey(pub []byte) error {
	if len(pub) != P384PublicKeySize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidPublicKey, len(pub), P384PublicKeySize)
	}
	if _, err := ecdh.P384().NewPublicKey(pub); err != nil {
		return ErrInvalidPublicKey
	}
	return nil
}

func isZeroKey(key []byte) bool {
	for _, b := range key {
		if b != 0 {
			return false
		}
	}
	return true
}
