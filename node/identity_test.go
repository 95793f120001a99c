package node

import (
	"testing"

	"github.com/opd-ai/zssp/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateIdentity(t *testing.T) {
	home := t.TempDir()

	created, isNew, err := LoadOrCreateIdentity(home, []byte("correct horse"))
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.NoError(t, crypto.ValidatePublicKey(created.Public))

	loaded, isNew, err := LoadOrCreateIdentity(home, []byte("correct horse"))
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, created.Public, loaded.Public)
	assert.Equal(t, created.Private, loaded.Private)
}

func TestLoadOrCreateIdentityWrongPassphrase(t *testing.T) {
	home := t.TempDir()
	_, _, err := LoadOrCreateIdentity(home, []byte("correct horse"))
	require.NoError(t, err)

	_, _, err = LoadOrCreateIdentity(home, []byte("battery staple"))
	assert.ErrorIs(t, err, crypto.ErrKeyStoreLocked)
}
