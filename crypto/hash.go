package crypto

import (
	"crypto/hmac"
	"crypto/sha512"
	"hash"

	"github.com/flynn/noise"
)

const (
	// SHA384Size is the digest size of SHA-384 and HMAC-SHA384.
	SHA384Size = sha512.Size384

	// SHA512Size is the digest size of SHA-512 and HMAC-SHA512.
	SHA512Size = sha512.Size
)

type sha384Hash struct{}

// HashSHA384 is SHA-384 behind the Noise HashFunc interface, alongside the
// SHA-512 implementation flynn/noise already ships.
var HashSHA384 noise.HashFunc = sha384Hash{}

func (sha384Hash) Hash() hash.Hash { return sha512.New384() }

func (sha384Hash) HashName() string { return "SHA384" }

// SHA384 hashes the concatenation of parts.
func SHA384(parts ...[]byte) [SHA384Size]byte {
	return digest384(HashSHA384.Hash(), parts)
}

// SHA512 hashes the concatenation of parts.
func SHA512(parts ...[]byte) [SHA512Size]byte {
	h := noise.HashSHA512.Hash()
	for _, p := range parts {
		h.Write(p)
	}
	var out [SHA512Size]byte
	h.Sum(out[:0])
	return out
}

// HMACSHA512 returns HMAC-SHA512 keyed by key over msg.
//
// The handshake chain calls this with the running chain key as the HMAC key
// and the freshly agreed secret as the message. That argument order is part
// of the wire protocol and must not be swapped.
func HMACSHA512(key, msg []byte) [SHA512Size]byte {
	m := hmac.New(noise.HashSHA512.Hash, key)
	m.Write(msg)
	var out [SHA512Size]byte
	m.Sum(out[:0])
	return out
}

// HMACSHA384 returns HMAC-SHA384 keyed by key over the concatenation of parts.
func HMACSHA384(key []byte, parts ...[]byte) [SHA384Size]byte {
	return digest384(hmac.New(HashSHA384.Hash, key), parts)
}

// KBKDF512 derives a 64-byte usage-specific subkey from key using a single
// block of NIST SP 800-108 counter mode with HMAC-SHA512 as the PRF.
func KBKDF512(key []byte, label byte) [SHA512Size]byte {
	return HMACSHA512(key, []byte{
		0x00, 0x00, 0x00, 0x01, // counter
		'Z', 'S', 'S', 'P', // context
		0x00,
		label,
		0x00,
		0x00, 0x00, 0x02, 0x00, // output length in bits (512)
	})
}

func digest384(h hash.Hash, parts [][]byte) [SHA384Size]byte {
	for _, p := range parts {
		h.Write(p)
	}
	var out [SHA384Size]byte
	h.Sum(out[:0])
	return out
}
