package crypto

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKeyLength(t *testing.T) {
	key, err := GenerateKey(16)
	require.NoError(t, err)
	assert.Len(t, key, 16)
}

func TestGenerateKeyRejectsNonPositiveLength(t *testing.T) {
	_, err := GenerateKey(0)
	assert.Error(t, err)
	_, err = GenerateKey(-1)
	assert.Error(t, err)
}

func TestGenerateKeyBase64Decodes32Bytes(t *testing.T) {
	encoded, err := GenerateKeyBase64()
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}

func TestGenerateAdminTokenIsHex(t *testing.T) {
	token, err := GenerateAdminToken()
	require.NoError(t, err)
	assert.Len(t, token, 48) // 24 bytes hex-encoded
}

func TestUnconfiguredManagerIsPassthrough(t *testing.T) {
	m := &Manager{}
	assert.False(t, m.Configured())

	out, err := m.Encrypt("plaintext")
	require.NoError(t, err)
	assert.Equal(t, "plaintext", out)

	back, err := m.Decrypt("plaintext")
	require.NoError(t, err)
	assert.Equal(t, "plaintext", back)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, err := GenerateKey(32)
	require.NoError(t, err)
	m := &Manager{key: key}
	require.True(t, m.Configured())

	ciphertext, err := m.Encrypt("super secret value")
	require.NoError(t, err)
	assert.Contains(t, ciphertext, sentinel)
	assert.NotEqual(t, "super secret value", ciphertext)

	plaintext, err := m.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "super secret value", plaintext)
}

func TestEncryptProducesDistinctCiphertextsEachCall(t *testing.T) {
	key, err := GenerateKey(32)
	require.NoError(t, err)
	m := &Manager{key: key}

	a, err := m.Encrypt("same value")
	require.NoError(t, err)
	b, err := m.Encrypt("same value")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "fresh nonce must make ciphertexts differ")
}

func TestDecryptTreatsUnsentineledValueAsPlaintext(t *testing.T) {
	key, err := GenerateKey(32)
	require.NoError(t, err)
	m := &Manager{key: key}

	out, err := m.Decrypt("not encrypted")
	require.NoError(t, err)
	assert.Equal(t, "not encrypted", out)
}

func TestDecryptWithoutKeyReturnsStoredValueUnchanged(t *testing.T) {
	key, err := GenerateKey(32)
	require.NoError(t, err)
	configured := &Manager{key: key}
	ciphertext, err := configured.Encrypt("secret")
	require.NoError(t, err)

	unconfigured := &Manager{}
	out, err := unconfigured.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, ciphertext, out)
}

func TestLoadFromEnvVar(t *testing.T) {
	encoded, err := GenerateKeyBase64()
	require.NoError(t, err)
	t.Setenv("CUSTOM_ENC_KEY", encoded)

	m, err := Load("CUSTOM_ENC_KEY")
	require.NoError(t, err)
	assert.True(t, m.Configured())
}

func TestLoadRejectsMalformedKey(t *testing.T) {
	t.Setenv("CUSTOM_ENC_KEY", "not-base64-and-wrong-length")
	_, err := Load("CUSTOM_ENC_KEY")
	assert.Error(t, err)
}

func TestLoadUnconfiguredWhenNoKeySource(t *testing.T) {
	t.Setenv("PROXY_ENCRYPTION_KEY", "")
	m, err := Load("")
	require.NoError(t, err)
	assert.False(t, m.Configured())
}
