package auth

import (
	"errors"
	"testing"
	"time"
)

var testSecret = []byte("test-secret-0123456789abcdef")

func TestTokenIssuer_IssueAndVerify(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)

	token, err := issuer.Issue("user-123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if token == "" {
		t.Fatal("expected a non-empty token")
	}

	userID, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if userID != "user-123" {
		t.Errorf("expected user-123, got %s", userID)
	}
}

func TestTokenIssuer_DefaultTTL(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, 0)
	if issuer.TTL() != DefaultSessionTTL {
		t.Errorf("expected default TTL %v, got %v", DefaultSessionTTL, issuer.TTL())
	}

	issuer = NewTokenIssuer(testSecret, 30*time.Minute)
	if issuer.TTL() != 30*time.Minute {
		t.Errorf("expected 30m TTL, got %v", issuer.TTL())
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)
	other := NewTokenIssuer([]byte("another-secret-entirely-here"), time.Hour)

	token, err := issuer.Issue("user-123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_Expired(t *testing.T) {
	// NewTokenIssuer clamps non-positive TTLs, so build one directly.
	issuer := &TokenIssuer{secret: testSecret, ttl: -time.Minute}

	token, err := issuer.Issue("user-123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if _, err := NewTokenIssuer(testSecret, time.Hour).Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerify_MutatedToken(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)

	token, err := issuer.Issue("user-123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Flip one bit in each byte of the token. The final character is
	// skipped: its low base64 bits are unused encoding padding and can
	// decode to the same signature bytes.
	for i := 0; i < len(token)-1; i++ {
		mutated := []byte(token)
		mutated[i] ^= 0x01
		if _, err := issuer.Verify(string(mutated)); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("byte %d mutated: expected ErrInvalidToken, got %v", i, err)
		}
	}
}

func TestVerify_Garbage(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)

	for _, token := range []string{"", "garbage", "a.b.c", "eyJhbGciOiJub25lIn0.e30."} {
		if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Verify(%q): expected ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestVerify_EmptyUserID(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)

	// A structurally valid token with no user claim is still rejected.
	token, err := issuer.Issue("")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}
