package container

import (
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

// Key derivation parameters. They are part of the container format and must
// not change without breaking every container already produced.
const (
	// Salt is the shared PBKDF2 salt. It is intentionally fixed and is not
	// stored in the container, so equal passwords always derive equal keys.
	Salt = "flashcard-salt-2023"

	// Iterations is the PBKDF2 iteration count.
	Iterations = 100000

	// KeySize is the derived key length in bytes (AES-256).
	KeySize = 32
)

// KeyParams groups the PBKDF2 inputs other than the password.
type KeyParams struct {
	Salt       []byte
	Iterations int
	KeyLength  int
}

// DefaultKeyParams returns the parameters every producer and consumer uses.
func DefaultKeyParams() KeyParams {
	return KeyParams{
		Salt:       []byte(Salt),
		Iterations: Iterations,
		KeyLength:  KeySize,
	}
}

// DeriveKey derives an AES key from password using PBKDF2-HMAC-SHA-256.
// The password is used as its UTF-8 bytes.
func DeriveKey(password string, params KeyParams) []byte {
	return pbkdf2.Key([]byte(password), params.Salt, params.Iterations, params.KeyLength, sha256.New)
}
