package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// GenerateKey produces a cryptographically secure key of length bytes.
func GenerateKey(length int) ([]byte, error) {
	if length <= 0 {
		return nil, fmt.Errorf("key length must be positive, got %d", length)
	}
	key := make([]byte, length)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate random key: %w", err)
	}
	return key, nil
}

// GenerateKeyBase64 generates a 32-byte key and returns it base64-encoded,
// ready to assign to PROXY_ENCRYPTION_KEY.
func GenerateKeyBase64() (string, error) {
	key, err := GenerateKey(32)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// GenerateAdminToken generates a fresh admin bearer token for instance
// bootstrap.
func GenerateAdminToken() (string, error) {
	key, err := GenerateKey(24)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(key), nil
}
