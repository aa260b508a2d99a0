package util

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// RandomToken returns a hex token with n random bytes of entropy.
func RandomToken(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("token size must be > 0")
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate random token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
