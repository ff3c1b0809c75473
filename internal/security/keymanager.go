package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

type KeyManager struct {
	dbKey    string
	fieldKey []byte
	tokenKey []byte
}

// NewKeyManager derives purpose-bound keys from the configured secrets.
func NewKeyManager(dbKeyStr, appKeyStr string) (*KeyManager, error) {
	if len(dbKeyStr) < 32 || len(appKeyStr) < 32 {
		return nil, fmt.Errorf("key too short (minimum 32 characters)")
	}

	return &KeyManager{
		dbKey:    dbKeyStr,
		fieldKey: deriveKey(appKeyStr, "field-encryption"),
		tokenKey: deriveKey(appKeyStr, "session-token"),
	}, nil
}

// DBKey is passed to SQLCipher as the page key.
func (km *KeyManager) DBKey() string {
	return km.dbKey
}

// FieldKey is the AES-256 key for encrypted columns.
func (km *KeyManager) FieldKey() []byte {
	return km.fieldKey
}

// HashToken returns the keyed digest under which a session token is stored.
func (km *KeyManager) HashToken(token string) string {
	mac := hmac.New(sha256.New, km.tokenKey)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// deriveKey derives a 32-byte key for one purpose from a master secret.
func deriveKey(secret, purpose string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(purpose))
	return mac.Sum(nil)
}

// GenerateToken returns a random 32-byte token, hex encoded.
func GenerateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
