package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("pw1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "pw1" {
		t.Fatal("hash must not equal the password")
	}
	if !CheckPassword(hash, "pw1") {
		t.Error("expected password to match")
	}
	if CheckPassword(hash, "pw2") {
		t.Error("wrong password matched")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	now := time.Now()
	raw, issued, err := MakeToken("alice", "secret", time.Hour, now)
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	c, err := ParseToken(raw, "secret")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Username() != "alice" {
		t.Errorf("expected alice, got %q", c.Username())
	}
	if c.ID != issued.ID || c.ID == "" {
		t.Errorf("token id mismatch: %q vs %q", c.ID, issued.ID)
	}
}

func TestTokenRejections(t *testing.T) {
	expired, _, _ := MakeToken("alice", "secret", time.Minute, time.Now().Add(-time.Hour))
	good, _, _ := MakeToken("alice", "secret", time.Hour, time.Now())

	// alg none must never be accepted
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "alice"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name   string
		raw    string
		secret string
	}{
		{"expired", expired, "secret"},
		{"wrong secret", good, "other"},
		{"garbage", "not-a-token", "secret"},
		{"alg none", none, "secret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(tt.raw, tt.secret)
			if !errors.Is(err, ErrBadToken) {
				t.Errorf("expected ErrBadToken, got %v", err)
			}
		})
	}
}
