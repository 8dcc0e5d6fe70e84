package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndParseToken(t *testing.T) {
	secret := []byte("secret")
	issued, err := IssueToken(secret, NewClaims("user-1", "Avery", "editor", "jti-1", time.Now(), time.Hour))
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	claims, err := ParseToken(secret, issued, nil)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "user-1" || claims.Name != "Avery" || claims.Role != "editor" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	secret := []byte("secret")
	issued, err := IssueToken(secret, NewClaims("user-1", "Avery", "editor", "jti-1", time.Now().Add(-2*time.Hour), time.Hour))
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	_, err = ParseToken(secret, issued, nil)
	if !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("ParseToken() error = %v, want ErrExpiredToken", err)
	}
}

func TestParseTokenUsesSuppliedClock(t *testing.T) {
	secret := []byte("secret")
	issuedAt := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	issued, err := IssueToken(secret, NewClaims("user-1", "Avery", "editor", "jti-1", issuedAt, time.Hour))
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if _, err := ParseToken(secret, issued, func() time.Time { return issuedAt.Add(30 * time.Minute) }); err != nil {
		t.Fatalf("ParseToken() within ttl error = %v", err)
	}
	if _, err := ParseToken(secret, issued, func() time.Time { return issuedAt.Add(2 * time.Hour) }); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("ParseToken() after ttl error = %v, want ErrExpiredToken", err)
	}
}

func TestParseTokenRejectsTampering(t *testing.T) {
	issued, err := IssueToken([]byte("secret"), NewClaims("user-1", "Avery", "editor", "jti-1", time.Now(), time.Hour))
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if _, err := ParseToken([]byte("other"), issued, nil); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("ParseToken() with wrong secret error = %v", err)
	}
	if _, err := ParseToken([]byte("secret"), "not-a-token", nil); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("ParseToken() garbage error = %v", err)
	}
	anonymous, err := IssueToken([]byte("secret"), NewClaims("", "Avery", "editor", "jti-1", time.Now(), time.Hour))
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if _, err := ParseToken([]byte("secret"), anonymous, nil); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("ParseToken() without subject error = %v", err)
	}
}

func TestBridgeKey(t *testing.T) {
	hash, err := HashBridgeKey("suggest-key")
	if err != nil {
		t.Fatalf("HashBridgeKey() error = %v", err)
	}
	if err := CheckBridgeKey(hash, "suggest-key"); err != nil {
		t.Fatalf("CheckBridgeKey() error = %v", err)
	}
	if err := CheckBridgeKey(hash, "wrong"); !errors.Is(err, ErrBridgeKey) {
		t.Fatalf("CheckBridgeKey(wrong) error = %v", err)
	}
	if err := CheckBridgeKey("", "suggest-key"); !errors.Is(err, ErrBridgeKey) {
		t.Fatalf("CheckBridgeKey(no hash) error = %v", err)
	}
}
