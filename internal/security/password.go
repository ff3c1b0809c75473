package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// CredentialVerifier hashes and checks secrets: passwords, security answers,
// recovery mnemonics. Callers only see the equality outcome.
type CredentialVerifier interface {
	Hash(secret string) (string, error)
	Verify(secret, encodedHash string) (bool, error)
	// VerifyDummy burns the same work as Verify for an unknown account.
	VerifyDummy(secret string)
}

// Params are the Argon2id cost parameters.
type Params struct {
	Time      uint32
	Memory    uint32
	Threads   uint8
	KeyLength uint32
	SaltLen   int
}

// DefaultParams follow the OWASP Argon2id recommendation.
var DefaultParams = Params{
	Time:      3,
	Memory:    64 * 1024,
	Threads:   2,
	KeyLength: 32,
	SaltLen:   16,
}

type PasswordHasher struct {
	params    Params
	dummyHash string
}

var _ CredentialVerifier = (*PasswordHasher)(nil)

func NewPasswordHasher() *PasswordHasher {
	return NewPasswordHasherWithParams(DefaultParams)
}

// NewPasswordHasherWithParams is used by tests to keep hashing cheap.
func NewPasswordHasherWithParams(p Params) *PasswordHasher {
	ph := &PasswordHasher{params: p}
	ph.dummyHash, _ = ph.Hash("dummy-credential")
	return ph
}

// Hash generates an encoded Argon2id hash of secret.
func (ph *PasswordHasher) Hash(secret string) (string, error) {
	salt := make([]byte, ph.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(secret), salt, ph.params.Time, ph.params.Memory, ph.params.Threads, ph.params.KeyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		ph.params.Memory,
		ph.params.Time,
		ph.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Verify checks secret against an encoded hash in constant time.
func (ph *PasswordHasher) Verify(secret, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, fmt.Errorf("invalid hash format")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, fmt.Errorf("failed to parse version: %w", err)
	}
	if version != argon2.Version {
		return false, fmt.Errorf("incompatible argon2 version")
	}

	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, fmt.Errorf("failed to parse parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("failed to decode salt: %w", err)
	}

	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("failed to decode hash: %w", err)
	}

	testHash := argon2.IDKey([]byte(secret), salt, time, memory, threads, uint32(len(hash)))

	return subtle.ConstantTimeCompare(hash, testHash) == 1, nil
}

func (ph *PasswordHasher) VerifyDummy(secret string) {
	_, _ = ph.Verify(secret, ph.dummyHash)
}
