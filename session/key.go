package session

import (
	"crypto/cipher"
	"io"
	"sync"

	"github.com/opd-ai/zssp/crypto"
)

// Role is the part a side played in the handshake that produced a key.
type Role int

const (
	RoleAlice Role = iota
	RoleBob
)

func (r Role) String() string {
	if r == RoleAlice {
		return "alice"
	}
	return "bob"
}

const cipherPoolSize = 4

// cipherPool caches AEAD instances for one key so the AES key schedule is
// not recomputed on every packet.
type cipherPool struct {
	mu   sync.Mutex
	key  [crypto.AESKeySize]byte
	free []cipher.AEAD
}

func (p *cipherPool) get() (cipher.AEAD, error) {
	p.mu.Lock()
	if n := len(p.free); n > 0 {
		c := p.free[n-1]
		p.free = p.free[:n-1]
		p.mu.Unlock()
		return c, nil
	}
	p.mu.Unlock()
	return crypto.NewAESGCM(p.key[:])
}

func (p *cipherPool) put(c cipher.AEAD) {
	p.mu.Lock()
	if len(p.free) < cipherPoolSize {
		p.free = append(p.free, c)
	}
	p.mu.Unlock()
}

// SessionKey is the pair of directional AES-256-GCM keys produced by one
// completed handshake, together with its lifetime policy.
type SessionKey struct {
	lifetime    KeyLifetime
	receiveKey  [crypto.AESKeySize]byte
	sendKey     [crypto.AESKeySize]byte
	receivePool cipherPool
	sendPool    cipherPool
	role        Role
	jedi        bool
	createdAt   int64
}

// NewSessionKey derives the directional keys from a final 64-byte handshake
// secret. Alice sends under the 'A' subkey and receives under 'B'; Bob does
// the opposite, so both ends agree without exchanging the mapping.
func NewSessionKey(rng io.Reader, key []byte, role Role, now int64, counter CounterValue, jedi bool) (*SessionKey, error) {
	lifetime, err := NewKeyLifetime(rng, counter, now)
	if err != nil {
		return nil, err
	}
	a := crypto.KBKDF512(key, labelAliceToBob)
	b := crypto.KBKDF512(key, labelBobToAlice)
	defer crypto.ZeroBytes(a[:])
	defer crypto.ZeroBytes(b[:])

	sk := &SessionKey{
		lifetime:  lifetime,
		role:      role,
		jedi:      jedi,
		createdAt: now,
	}
	if role == RoleAlice {
		copy(sk.sendKey[:], a[:crypto.AESKeySize])
		copy(sk.receiveKey[:], b[:crypto.AESKeySize])
	} else {
		copy(sk.sendKey[:], b[:crypto.AESKeySize])
		copy(sk.receiveKey[:], a[:crypto.AESKeySize])
	}
	sk.sendPool.key = sk.sendKey
	sk.receivePool.key = sk.receiveKey
	return sk, nil
}

// GetSendCipher returns a cipher for encrypting the packet numbered counter,
// or ErrMaxKeyLifetimeExceeded once the key has hit its usage ceiling.
func (k *SessionKey) GetSendCipher(counter CounterValue) (cipher.AEAD, error) {
	if k.lifetime.Expired(counter) {
		return nil, ErrMaxKeyLifetimeExceeded
	}
	return k.sendPool.get()
}

func (k *SessionKey) ReturnSendCipher(c cipher.AEAD) {
	k.sendPool.put(c)
}

func (k *SessionKey) GetReceiveCipher() (cipher.AEAD, error) {
	return k.receivePool.get()
}

func (k *SessionKey) ReturnReceiveCipher(c cipher.AEAD) {
	k.receivePool.put(c)
}

// Lifetime returns the key's rekey and expiry thresholds.
func (k *SessionKey) Lifetime() KeyLifetime {
	return k.lifetime
}

func (k *SessionKey) Role() Role { return k.role }

func (k *SessionKey) Jedi() bool { return k.jedi }

// CreatedAt is the handshake completion time in milliseconds.
func (k *SessionKey) CreatedAt() int64 { return k.createdAt }
