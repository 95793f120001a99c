package node

import (
	"fmt"

	"github.com/flynn/noise"
	"github.com/opd-ai/zssp/crypto"
)

// IdentityKeyName is the key store record holding the static private key.
const IdentityKeyName = "identity.key"

// LoadOrCreateIdentity opens the encrypted key store in home and returns
// the node's static key pair, generating and saving one on first use. The
// passphrase slice is wiped.
func LoadOrCreateIdentity(home string, passphrase []byte) (noise.DHKey, bool, error) {
	ks, err := crypto.NewEncryptedKeyStore(home, passphrase)
	if err != nil {
		return noise.DHKey{}, false, err
	}
	defer ks.Close()

	if ks.Exists(IdentityKeyName) {
		static, err := ks.LoadStaticKey(IdentityKeyName)
		if err != nil {
			return noise.DHKey{}, false, fmt.Errorf("load identity: %w", err)
		}
		return static, false, nil
	}

	static, err := crypto.GenerateKeyPair()
	if err != nil {
		return noise.DHKey{}, false, err
	}
	if err := ks.SaveStaticKey(IdentityKeyName, static); err != nil {
		return noise.DHKey{}, false, fmt.Errorf("save identity: %w", err)
	}
	crypto.NewPackageLogger("node", "LoadOrCreateIdentity").
		WithField("home", home).
		WithFields(crypto.SecureFieldHash(static.Public, "identity")).
		Info("Created new node identity")
	return static, true, nil
}
