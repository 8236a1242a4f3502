package auth

import (
	"errors"
	"testing"
	"time"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	token, err := SignSessionToken("sess-123", "secret", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("SignSessionToken: %v", err)
	}

	sessionID, err := ParseSessionToken(token, "secret")
	if err != nil {
		t.Fatalf("ParseSessionToken: %v", err)
	}
	if sessionID != "sess-123" {
		t.Errorf("session ID = %q, want sess-123", sessionID)
	}
}

func TestSignSessionTokenDistinctPerMint(t *testing.T) {
	// Claim timestamps have one-second precision, so distinctness must not
	// depend on the clock: two mints of the same session and expiry in the
	// same instant still may not collide, or a same-second rotation would
	// leave the superseded refresh token equal to its replacement.
	expiry := time.Now().Add(time.Hour)
	first, err := SignSessionToken("sess-123", "secret", expiry)
	if err != nil {
		t.Fatalf("SignSessionToken: %v", err)
	}
	second, err := SignSessionToken("sess-123", "secret", expiry)
	if err != nil {
		t.Fatalf("SignSessionToken: %v", err)
	}

	if first == second {
		t.Error("two mints produced identical tokens")
	}
}

func TestParseSessionTokenExpired(t *testing.T) {
	token, err := SignSessionToken("sess-123", "secret", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("SignSessionToken: %v", err)
	}

	if _, err := ParseSessionToken(token, "secret"); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expired token: got %v, want ErrTokenExpired", err)
	}
}

func TestParseSessionTokenWrongSecret(t *testing.T) {
	token, err := SignSessionToken("sess-123", "secret", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("SignSessionToken: %v", err)
	}

	if _, err := ParseSessionToken(token, "other-secret"); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("wrong secret: got %v, want ErrTokenInvalid", err)
	}
}

func TestParseSessionTokenGarbage(t *testing.T) {
	tests := []string{"", "not-a-jwt", "a.b.c"}
	for _, raw := range tests {
		if _, err := ParseSessionToken(raw, "secret"); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("ParseSessionToken(%q): got %v, want ErrTokenInvalid", raw, err)
		}
	}
}

func TestParseSessionTokenMissingSessionID(t *testing.T) {
	token, err := SignSessionToken("", "secret", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("SignSessionToken: %v", err)
	}

	if _, err := ParseSessionToken(token, "secret"); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("missing session ID: got %v, want ErrTokenInvalid", err)
	}
}
