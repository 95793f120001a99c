package crypto

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDHP384Agreement(t *testing.T) {
	a, err := DHP384.GenerateKeypair(rand.Reader)
	require.NoError(t, err)
	b, err := DHP384.GenerateKeypair(nil)
	require.NoError(t, err)

	assert.Len(t, a.Public, P384PublicKeySize)
	assert.Len(t, a.Private, P384PrivateKeySize)
	assert.Equal(t, "P384", DHP384.DHName())
	assert.Equal(t, P384SharedSecretSize, DHP384.DHLen())

	ab, err := DHP384.DH(a.Private, b.Public)
	require.NoError(t, err)
	ba, err := DHP384.DH(b.Private, a.Public)
	require.NoError(t, err)

	assert.Len(t, ab, P384SharedSecretSize)
	assert.Equal(t, ab, ba)
}

func TestDHP384RejectsBadKeys(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	_, err = DHP384.DH(kp.Private, make([]byte, P384PublicKeySize))
	assert.ErrorIs(t, err, ErrInvalidPublicKey)

	_, err = DHP384.DH([]byte{1, 2, 3}, kp.Public)
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)
}

func TestFromSecretKey(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	restored, err := FromSecretKey(kp.Private)
	require.NoError(t, err)
	assert.Equal(t, kp.Public, restored.Public)

	_, err = FromSecretKey(make([]byte, P384PrivateKeySize))
	assert.Error(t, err)
}

func TestValidatePublicKey(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	assert.NoError(t, ValidatePublicKey(kp.Public))
	assert.ErrorIs(t, ValidatePublicKey(kp.Public[:96]), ErrInvalidPublicKey)

	bad := bytes.Clone(kp.Public)
	bad[50] ^= 0xff
	assert.ErrorIs(t, ValidatePublicKey(bad), ErrInvalidPublicKey)
}

func TestHashSizes(t *testing.T) {
	h384 := SHA384([]byte("abc"))
	h512 := SHA512([]byte("a"), []byte("bc"))

	assert.Len(t, h384, 48)
	assert.Len(t, h512, 64)
	assert.Equal(t, SHA512([]byte("abc")), h512, "parts are concatenated")
	assert.Equal(t, "SHA384", HashSHA384.HashName())
}

func TestHMACArgumentOrderMatters(t *testing.T) {
	k := []byte("chain key")
	m := []byte("new secret")

	assert.NotEqual(t, HMACSHA512(k, m), HMACSHA512(m, k))
	assert.Equal(t, HMACSHA384(k, []byte("new "), []byte("secret")), HMACSHA384(k, m))
}

func TestKBKDFLabelsAreIndependent(t *testing.T) {
	key := SHA512([]byte("session"))

	a := KBKDF512(key[:], 'A')
	b := KBKDF512(key[:], 'B')
	m := KBKDF512(key[:], 'M')

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, m)
	assert.NotEqual(t, b, m)
	assert.Equal(t, a, KBKDF512(key[:], 'A'))
}

func TestAESGCM(t *testing.T) {
	key := make([]byte, AESKeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)

	gcm, err := NewAESGCM(key)
	require.NoError(t, err)
	assert.Equal(t, AESGCMNonceSize, gcm.NonceSize())
	assert.Equal(t, AESGCMTagSize, gcm.Overhead())

	nonce := make([]byte, AESGCMNonceSize)
	ct := gcm.Seal(nil, nonce, []byte("hello"), []byte("hdr"))
	pt, err := gcm.Open(nil, nonce, ct, []byte("hdr"))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), pt)

	_, err = gcm.Open(nil, nonce, ct, []byte("HDR"))
	assert.Error(t, err)

	_, err = NewAESGCM(key[:16])
	assert.Error(t, err)
	_, err = NewAESBlock(key[:31])
	assert.Error(t, err)
}

func TestKyberRoundTrip(t *testing.T) {
	kp, err := GenerateKyberKeyPair(rand.Reader)
	require.NoError(t, err)
	require.Len(t, kp.Public, KyberPublicKeySize)

	ct, ss, err := KyberEncapsulate(rand.Reader, kp.Public)
	require.NoError(t, err)
	assert.Len(t, ct, KyberCiphertextSize)
	assert.Len(t, ss, KyberSharedSecretSize)

	got, err := KyberDecapsulate(kp, ct)
	require.NoError(t, err)
	assert.Equal(t, ss, got)
}

func TestKyberRejectsWrongLengths(t *testing.T) {
	kp, err := GenerateKyberKeyPair(rand.Reader)
	require.NoError(t, err)

	_, _, err = KyberEncapsulate(rand.Reader, kp.Public[:10])
	assert.ErrorIs(t, err, ErrInvalidKEMInput)

	_, err = KyberDecapsulate(kp, make([]byte, KyberCiphertextSize-1))
	assert.ErrorIs(t, err, ErrInvalidKEMInput)

	_, err = KyberDecapsulate(nil, make([]byte, KyberCiphertextSize))
	assert.ErrorIs(t, err, ErrInvalidKEMInput)
}

func TestRandomHelpers(t *testing.T) {
	b, err := SecureRandom(rand.Reader, 32)
	require.NoError(t, err)
	assert.Len(t, b, 32)

	for i := 0; i < 100; i++ {
		v, err := RandomBelow(rand.Reader, 7)
		require.NoError(t, err)
		assert.Less(t, v, uint32(7))
	}

	v, err := RandomBelow(rand.Reader, 0)
	require.NoError(t, err)
	assert.Zero(t, v)

	_, err = RandomUint64(bytes.NewReader([]byte{1, 2}))
	assert.Error(t, err)
}
