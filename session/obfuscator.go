package session

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/opd-ai/zssp/crypto"
)

// Obfuscator encrypts the leading 16-byte blocks of packets addressed to one
// identity so that they cannot be classified by observers who do not know
// that identity. It provides neither confidentiality nor integrity.
type Obfuscator struct {
	block cipher.Block
}

// NewObfuscator keys an obfuscator from the recipient's public identity.
func NewObfuscator(identity []byte) (*Obfuscator, error) {
	digest := crypto.SHA384(identity)
	block, err := crypto.NewAESBlock(digest[:crypto.AESKeySize])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	return &Obfuscator{block: block}, nil
}

// Obfuscate encrypts the first blocks 16-byte blocks of buf in place.
func (o *Obfuscator) Obfuscate(buf []byte, blocks int) {
	for i := 0; i < blocks; i++ {
		b := buf[i*aes.BlockSize : (i+1)*aes.BlockSize]
		o.block.Encrypt(b, b)
	}
}

// Deobfuscate reverses Obfuscate.
func (o *Obfuscator) Deobfuscate(buf []byte, blocks int) {
	o.deobfuscateRange(buf, 0, blocks)
}

func (o *Obfuscator) deobfuscateRange(buf []byte, first, last int) {
	for i := first; i < last; i++ {
		b := buf[i*aes.BlockSize : (i+1)*aes.BlockSize]
		o.block.Decrypt(b, b)
	}
}
