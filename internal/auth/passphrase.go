package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// Cost is the bcrypt work factor used for every passphrase hash.
const Cost = 12

// generatedLength is the number of characters produced by GeneratePassphrase.
const generatedLength = 8

// passphraseAlphabet is the character set for generated passphrases.
const passphraseAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// ErrInvalidHash is returned when a stored hash is not a bcrypt hash.
var ErrInvalidHash = errors.New("auth: invalid passphrase hash")

// HashPassphrase hashes a plaintext passphrase with bcrypt at Cost.
func HashPassphrase(passphrase string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(passphrase), Cost)
	if err != nil {
		return "", fmt.Errorf("hashing passphrase: %w", err)
	}
	return string(hash), nil
}

// VerifyPassphrase reports whether passphrase matches the bcrypt hash.
// A malformed hash never verifies.
func VerifyPassphrase(passphrase, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(passphrase)) == nil
}

// ValidateHash checks that hash is a well-formed bcrypt hash.
// Used when a hash arrives from configuration or a snapshot rather than
// from HashPassphrase.
func ValidateHash(hash string) error {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidHash, err)
	}
	return nil
}

// GeneratePassphrase returns a random eight character alphanumeric passphrase.
func GeneratePassphrase() (string, error) {
	limit := big.NewInt(int64(len(passphraseAlphabet)))
	out := make([]byte, generatedLength)
	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generating passphrase: %w", err)
		}
		out[i] = passphraseAlphabet[n.Int64()]
	}
	return string(out), nil
}
