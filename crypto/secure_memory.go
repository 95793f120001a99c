package crypto

import (
	"crypto/subtle"
	"errors"
	"runtime"

	"github.com/flynn/noise"
)

// SecureWipe overwrites data with zeros. It returns an error for nil input.
func SecureWipe(data []byte) error {
	if data == nil {
		return errors.New("cannot wipe nil data")
	}

	zeros := make([]byte, len(data))
	subtle.ConstantTimeCompare(data, zeros)
	copy(data, zeros)

	// Keep the compiler from eliding the store.
	runtime.KeepAlive(data)
	runtime.KeepAlive(zeros)

	return nil
}

// ZeroBytes is SecureWipe without the nil check error.
func ZeroBytes(data []byte) {
	_ = SecureWipe(data)
}

// WipeKeyPair zeroes the private half of a key pair.
func WipeKeyPair(kp *noise.DHKey) error {
	if kp == nil {
		return errors.New("cannot wipe nil key pair")
	}
	if kp.Private == nil {
		return nil
	}
	return SecureWipe(kp.Private)
}
