package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// saltBytes is the amount of randomness in a per-account salt.
const saltBytes = 16

// NewSalt returns a random hex-encoded salt.
func NewSalt() (string, error) {
	b := make([]byte, saltBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// prehash folds password and salt into a fixed 64-byte key, which keeps
// long passwords under bcrypt's 72-byte input limit.
func prehash(password, salt string) []byte {
	sum := sha256.Sum256([]byte(password + salt))
	return []byte(hex.EncodeToString(sum[:]))
}

// HashPassword hashes password concatenated with salt. Passwords of any
// length are accepted.
func HashPassword(password, salt string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(prehash(password, salt), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password and salt match hash.
// bcrypt.CompareHashAndPassword is constant time.
func CheckPassword(hash, password, salt string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), prehash(password, salt)) == nil
}
