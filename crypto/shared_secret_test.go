package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveSharedSecret(t *testing.T) {
	alice, err := GenerateKeyPair()
	require.NoError(t, err)
	bob, err := GenerateKeyPair()
	require.NoError(t, err)

	s1, err := DeriveSharedSecret(bob.Public, alice.Private)
	require.NoError(t, err)
	s2, err := DeriveSharedSecret(alice.Public, bob.Private)
	require.NoError(t, err)
	assert.Equal(t, s1, s2)

	// The caller's private key must be left intact.
	again, err := DeriveSharedSecret(bob.Public, alice.Private)
	require.NoError(t, err)
	assert.Equal(t, s1, again)
}

func TestDeriveSharedSecretInvalidPeer(t *testing.T) {
	alice, err := GenerateKeyPair()
	require.NoError(t, err)

	_, err = DeriveSharedSecret([]byte("not a point"), alice.Private)
	assert.ErrorIs(t, err, ErrInvalidPublicKey)
}
