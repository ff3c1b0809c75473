package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/amirk1998/secure-bank/pkg/errors"
)

// FieldEncryptor seals individual columns (voice enrollment material) with
// AES-256-GCM. Ciphertext is nonce||sealed, base64 encoded.
type FieldEncryptor struct {
	gcm cipher.AEAD
}

// NewFieldEncryptor creates a new field encryptor with AES-256-GCM
func NewFieldEncryptor(key []byte) (*FieldEncryptor, error) {
	if len(key) != 32 {
		return nil, errors.ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &FieldEncryptor{gcm: gcm}, nil
}

// Encrypt encrypts plaintext and returns base64 encoded ciphertext
func (fe *FieldEncryptor) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, fe.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := fe.gcm.Seal(nonce, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts base64 encoded ciphertext
func (fe *FieldEncryptor) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrDecryptionFailed, err)
	}

	nonceSize := fe.gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", errors.ErrDecryptionFailed)
	}

	nonce, encryptedData := data[:nonceSize], data[nonceSize:]

	plaintext, err := fe.gcm.Open(nil, nonce, encryptedData, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrDecryptionFailed, err)
	}

	return string(plaintext), nil
}
