package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirk1998/secure-bank/pkg/errors"
)

var testParams = Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLength: 32, SaltLen: 16}

const testSecret = "0123456789abcdef0123456789abcdef"

func TestPasswordHasher_RoundTrip(t *testing.T) {
	h := NewPasswordHasherWithParams(testParams)

	encoded, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$"))

	ok, err := h.Verify("correct horse", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("wrong horse", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordHasher_SaltsDiffer(t *testing.T) {
	h := NewPasswordHasherWithParams(testParams)
	a, _ := h.Hash("same")
	b, _ := h.Hash("same")
	assert.NotEqual(t, a, b)
}

func TestPasswordHasher_MalformedHash(t *testing.T) {
	h := NewPasswordHasherWithParams(testParams)
	_, err := h.Verify("x", "plaintext")
	assert.Error(t, err)
	h.VerifyDummy("x")
}

func TestFieldEncryptor_RoundTrip(t *testing.T) {
	km, err := NewKeyManager(testSecret, testSecret)
	require.NoError(t, err)

	fe, err := NewFieldEncryptor(km.FieldKey())
	require.NoError(t, err)

	sealed, err := fe.Encrypt("open sesame")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "open sesame")

	plain, err := fe.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "open sesame", plain)

	empty, err := fe.Encrypt("")
	require.NoError(t, err)
	assert.Equal(t, "", empty)
}

func TestFieldEncryptor_Tampered(t *testing.T) {
	fe, err := NewFieldEncryptor(make([]byte, 32))
	require.NoError(t, err)

	_, err = fe.Decrypt("not-base64!!")
	assert.ErrorIs(t, err, errors.ErrDecryptionFailed)

	_, err = NewFieldEncryptor([]byte("short"))
	assert.ErrorIs(t, err, errors.ErrInvalidKey)
}

func TestKeyManager_HashToken(t *testing.T) {
	km, err := NewKeyManager(testSecret, testSecret)
	require.NoError(t, err)

	assert.Equal(t, km.HashToken("abc"), km.HashToken("abc"))
	assert.NotEqual(t, km.HashToken("abc"), km.HashToken("abd"))
	assert.NotEqual(t, km.FieldKey(), deriveKey(testSecret, "session-token"))

	_, err = NewKeyManager("short", testSecret)
	assert.Error(t, err)
}

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken()
	require.NoError(t, err)
	b, _ := GenerateToken()
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestGenerateMnemonic(t *testing.T) {
	m, err := GenerateMnemonic()
	require.NoError(t, err)

	words := strings.Fields(m)
	require.Len(t, words, MnemonicLength)
	for _, w := range words {
		assert.True(t, IsMnemonicWord(w), w)
	}
	assert.Len(t, mnemonicWords, 50)
}
