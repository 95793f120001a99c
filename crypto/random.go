package crypto

import (
	"encoding/binary"
	"fmt"
	"io"
)

// SecureRandom reads size random bytes from rng.
func SecureRandom(rng io.Reader, size int) ([]byte, error) {
	out := make([]byte, size)
	if _, err := io.ReadFull(rng, out); err != nil {
		return nil, fmt.Errorf("read random bytes: %w", err)
	}
	return out, nil
}

// RandomUint32 returns a uniformly distributed uint32 read from rng.
func RandomUint32(rng io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(rng, b[:]); err != nil {
		return 0, fmt.Errorf("read random bytes: %w", err)
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// RandomUint64 returns a uniformly distributed uint64 read from rng.
func RandomUint64(rng io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(rng, b[:]); err != nil {
		return 0, fmt.Errorf("read random bytes: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// RandomBelow returns a value in [0, n). The modulo bias is negligible for
// the small bounds used for padding lengths and jitter.
func RandomBelow(rng io.Reader, n uint32) (uint32, error) {
	if n == 0 {
		return 0, nil
	}
	v, err := RandomUint32(rng)
	if err != nil {
		return 0, err
	}
	return v % n, nil
}
