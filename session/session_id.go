package session

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/opd-ai/zssp/crypto"
)

// SessionIDMask is the largest valid session id.
const SessionIDMask = uint64(1)<<48 - 1

// SessionID identifies a session in the scope of the peer that allocated it.
// Valid ids are in [1, SessionIDMask]; the zero value means "none".
type SessionID uint64

// NewRandomSessionID draws a random nonzero id from rng.
func NewRandomSessionID(rng io.Reader) (SessionID, error) {
	for {
		v, err := crypto.RandomUint64(rng)
		if err != nil {
			return 0, err
		}
		if id := SessionID(v & SessionIDMask); id != 0 {
			return id, nil
		}
	}
}

// SessionIDFromBytes decodes a 6-byte little-endian id. It returns false when
// b is short or the value is zero.
func SessionIDFromBytes(b []byte) (SessionID, bool) {
	if len(b) < SessionIDSize {
		return 0, false
	}
	v := decodeUint48(b)
	if v == 0 || v > SessionIDMask {
		return 0, false
	}
	return SessionID(v), true
}

// SessionIDFromUint64 validates an integer id.
func SessionIDFromUint64(v uint64) (SessionID, bool) {
	if v == 0 || v > SessionIDMask {
		return 0, false
	}
	return SessionID(v), true
}

// CopyTo writes the 6-byte little-endian encoding of id into b.
func (id SessionID) CopyTo(b []byte) {
	encodeUint48(b, uint64(id))
}

func (id SessionID) String() string {
	return fmt.Sprintf("%012x", uint64(id))
}

func decodeUint48(b []byte) uint64 {
	var tmp [8]byte
	copy(tmp[:], b[:SessionIDSize])
	return binary.LittleEndian.Uint64(tmp[:])
}

func encodeUint48(b []byte, v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	copy(b[:SessionIDSize], tmp[:SessionIDSize])
}
