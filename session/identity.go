package session

import (
	"fmt"

	"github.com/flynn/noise"
	"github.com/opd-ai/zssp/crypto"
	"github.com/opd-ai/zssp/limits"
)

// Identity is the local side of every session: the static P-384 key pair,
// the opaque public identity blob peers know us by, and the obfuscator for
// packets addressed to us.
type Identity struct {
	static     noise.DHKey
	public     []byte
	obfuscator *Obfuscator
}

// NewIdentity builds a local identity. public is the blob sent to peers in
// KEY_OFFER packets; it is hashed to key inbound obfuscation.
func NewIdentity(static noise.DHKey, public []byte) (*Identity, error) {
	if err := crypto.ValidatePublicKey(static.Public); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	if len(static.Private) != crypto.P384PrivateKeySize {
		return nil, fmt.Errorf("%w: static private key", ErrInvalidParameter)
	}
	if err := limits.ValidateIdentity(public); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	obf, err := NewObfuscator(public)
	if err != nil {
		return nil, err
	}
	return &Identity{
		static:     static,
		public:     append([]byte(nil), public...),
		obfuscator: obf,
	}, nil
}

// Public returns the identity blob.
func (i *Identity) Public() []byte {
	return i.public
}

// StaticPublic returns the uncompressed P-384 static public key.
func (i *Identity) StaticPublic() []byte {
	return i.static.Public
}
