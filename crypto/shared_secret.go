package crypto

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// DeriveSharedSecret computes the long-lived static-static P-384 secret
// between a local private key and a peer's public key.
//
// The caller owns the returned slice and should wipe it with ZeroBytes when
// it is no longer needed.
func DeriveSharedSecret(peerPublicKey, privateKey []byte) ([]byte, error) {
	logrus.WithFields(logrus.Fields{
		"function":        "DeriveSharedSecret",
		"peer_key_prefix": fmt.Sprintf("%x", prefix(peerPublicKey, 8)),
	}).Debug("Computing static ECDH secret")

	privateKeyCopy := make([]byte, len(privateKey))
	copy(privateKeyCopy, privateKey)
	defer ZeroBytes(privateKeyCopy)

	sharedSecret, err := DHP384.DH(privateKeyCopy, peerPublicKey)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "DeriveSharedSecret",
			"error":    err.Error(),
		}).Warn("P-384 agreement failed")
		return nil, fmt.Errorf("failed to compute shared secret: %w", err)
	}

	return sharedSecret, nil
}

func prefix(b []byte, n int) []byte {
	if len(b) < n {
		return b
	}
	return b[:n]
}
