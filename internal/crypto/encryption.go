// Package crypto implements the encryption manager: AES-GCM authenticated
// encryption of column values, plus key-generation helpers.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"
)

const sentinel = "ENC:"

const secretsFilePath = "/run/secrets/encryption_key"

// Manager performs authenticated encryption of column values. A Manager
// with no key loaded is "not configured": Encrypt and Decrypt become no-ops.
type Manager struct {
	key []byte // nil ⇒ not configured
}

// Load resolves the 32-byte key from, in order: the named environment
// variable (base64), then the fixed secrets file path. Neither present ⇒
// a Manager that performs no encryption.
func Load(envVar string) (*Manager, error) {
	if envVar == "" {
		envVar = "PROXY_ENCRYPTION_KEY"
	}

	if raw := os.Getenv(envVar); raw != "" {
		key, err := decodeKey(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", envVar, err)
		}
		return &Manager{key: key}, nil
	}

	if data, err := os.ReadFile(secretsFilePath); err == nil {
		key, err := decodeKey(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", secretsFilePath, err)
		}
		return &Manager{key: key}, nil
	}

	return &Manager{}, nil
}

func decodeKey(b64 string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// Configured reports whether a key was loaded.
func (m *Manager) Configured() bool { return m != nil && len(m.key) > 0 }

// Encrypt authenticates and encrypts a UTF-8 string with a fresh 96-bit
// nonce, returning "ENC:" + base64(nonce||ciphertext). A no-op when the
// manager is not configured (the value is stored as plaintext).
func (m *Manager) Encrypt(plaintext string) (string, error) {
	if !m.Configured() {
		return plaintext, nil
	}

	block, err := aes.NewCipher(m.key)
	if err != nil {
		return "", fmt.Errorf("encryption: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("encryption: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("encryption: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return sentinel + base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt. Payloads lacking the "ENC:" sentinel are
// tolerated unchanged (migration from an unencrypted deployment, or a read
// with no key configured). Callers on the read path should fall back to
// the raw stored string rather than propagate a decrypt error.
func (m *Manager) Decrypt(stored string) (string, error) {
	if !strings.HasPrefix(stored, sentinel) {
		return stored, nil
	}
	if !m.Configured() {
		return stored, nil
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, sentinel))
	if err != nil {
		return "", fmt.Errorf("decryption: %w", err)
	}

	block, err := aes.NewCipher(m.key)
	if err != nil {
		return "", fmt.Errorf("decryption: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("decryption: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(raw) < nonceSize {
		return "", fmt.Errorf("decryption: ciphertext too short")
	}
	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decryption: %w", err)
	}
	return string(plaintext), nil
}
