package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	ok, rehash := VerifyPassword("correct horse battery staple", hash, "")
	if !ok {
		t.Fatalf("expected password verification to pass")
	}
	if rehash {
		t.Fatalf("bcrypt hash must not request a rehash")
	}
	if ok, _ := VerifyPassword("bad pass", hash, ""); ok {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestVerifyLegacyHashRequestsRehash(t *testing.T) {
	sum := sha256.Sum256([]byte("pepper" + "hunter2"))
	legacy := hex.EncodeToString(sum[:])

	ok, rehash := VerifyPassword("hunter2", legacy, "pepper")
	if !ok {
		t.Fatalf("expected legacy verification to pass")
	}
	if !rehash {
		t.Fatalf("legacy hash must request a rehash")
	}
	ok, rehash = VerifyPassword("wrong", legacy, "pepper")
	if ok || rehash {
		t.Fatalf("wrong legacy password must fail without rehash, got ok=%v rehash=%v", ok, rehash)
	}
}

func TestParseRole(t *testing.T) {
	if _, err := ParseRole("admin"); err != nil {
		t.Fatalf("admin should parse: %v", err)
	}
	if _, err := ParseRole("user"); err != nil {
		t.Fatalf("user should parse: %v", err)
	}
	if _, err := ParseRole("root"); err == nil {
		t.Fatalf("unknown role must be rejected")
	}
}
