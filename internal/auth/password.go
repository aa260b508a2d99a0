package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plaintext password with bcrypt. All newly stored
// credentials use this form; the salt column stays empty for them.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}

// VerifyPassword checks password against a stored hash. Hashes with a bcrypt
// prefix tag are verified with bcrypt; anything else is treated as a legacy
// hex SHA-256 digest of salt||password, kept only to verify records created
// before the bcrypt migration. needsRehash reports that the caller should
// overwrite the stored hash with a bcrypt one.
func VerifyPassword(password, storedHash, storedSalt string) (ok, needsRehash bool) {
	if isBcrypt(storedHash) {
		return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)) == nil, false
	}
	sum := sha256.Sum256([]byte(storedSalt + password))
	digest := hex.EncodeToString(sum[:])
	ok = subtle.ConstantTimeCompare([]byte(digest), []byte(storedHash)) == 1
	return ok, ok
}
