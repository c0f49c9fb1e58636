package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const testSecret = "unit-test-secret"

func newTokenService(t *testing.T, opts ...TokenOption) *TokenService {
	t.Helper()
	svc, err := NewTokenService(testSecret, opts...)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return svc
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := newTokenService(t)
	identity := Identity{ID: "u1", Email: "ana@example.com", Role: RoleDoctor}

	token, expiresAt, err := svc.IssueAccessToken(identity)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expected future expiration, got %v", expiresAt)
	}
	if len(strings.Split(token, ".")) != 3 {
		t.Fatalf("expected three token segments, got %q", token)
	}

	claims, err := svc.VerifyAccessToken(token)
	if err != nil {
		t.Fatalf("VerifyAccessToken: %v", err)
	}
	if claims.Subject != "u1" || claims.Email != "ana@example.com" || claims.Role != RoleDoctor {
		t.Fatalf("claims do not match identity: %+v", claims)
	}
}

func TestVerifyAccessTokenMissing(t *testing.T) {
	svc := newTokenService(t)
	for _, token := range []string{"", "   "} {
		if _, err := svc.VerifyAccessToken(token); !errors.Is(err, ErrTokenMissing) {
			t.Fatalf("VerifyAccessToken(%q) = %v, want ErrTokenMissing", token, err)
		}
	}
}

func TestVerifyAccessTokenExpired(t *testing.T) {
	past := func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }
	issuer := newTokenService(t, WithClock(past))
	token, _, err := issuer.IssueAccessToken(Identity{ID: "u1", Email: "a@b.c", Role: RolePatient})
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	verifier := newTokenService(t)
	if _, err := verifier.VerifyAccessToken(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyAccessTokenTampered(t *testing.T) {
	svc := newTokenService(t)
	token, _, err := svc.IssueAccessToken(Identity{ID: "u1", Email: "a@b.c", Role: RolePatient})
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	cases := map[string]string{
		"garbage":           "not-a-token",
		"altered signature": token[:len(token)-4] + "AAAA",
		"altered payload":   swapPayload(t, token),
	}
	for name, tampered := range cases {
		if _, err := svc.VerifyAccessToken(tampered); !errors.Is(err, ErrTokenMalformed) {
			t.Fatalf("%s: expected ErrTokenMalformed, got %v", name, err)
		}
	}
}

func TestVerifyAccessTokenWrongSecret(t *testing.T) {
	other, err := NewTokenService("another-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	token, _, err := other.IssueAccessToken(Identity{ID: "u1", Email: "a@b.c", Role: RolePatient})
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	svc := newTokenService(t)
	if _, err := svc.VerifyAccessToken(token); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestResetTokenRoundTrip(t *testing.T) {
	svc := newTokenService(t)
	identity := Identity{ID: "u1", Email: "ana@example.com", Role: RolePatient, PasswordHash: "$2a$12$hash"}

	token, expiresAt, err := svc.IssueResetToken(identity)
	if err != nil {
		t.Fatalf("IssueResetToken: %v", err)
	}
	if until := time.Until(expiresAt); until <= 0 || until > time.Hour {
		t.Fatalf("unexpected reset expiry window: %v", until)
	}

	claims, err := svc.VerifyResetToken(token)
	if err != nil {
		t.Fatalf("VerifyResetToken: %v", err)
	}
	if claims.Subject != "u1" || claims.Purpose != PurposeReset {
		t.Fatalf("unexpected reset claims: %+v", claims)
	}
	if claims.Fingerprint != PasswordFingerprint(identity.PasswordHash) {
		t.Fatalf("fingerprint not bound to password hash")
	}
}

func TestVerifyResetTokenRejectsAccessToken(t *testing.T) {
	svc := newTokenService(t)
	token, _, err := svc.IssueAccessToken(Identity{ID: "u1", Email: "a@b.c", Role: RolePatient})
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if _, err := svc.VerifyResetToken(token); !errors.Is(err, ErrTokenInvalidPurpose) {
		t.Fatalf("expected ErrTokenInvalidPurpose, got %v", err)
	}
}

func TestVerifyResetTokenPurposeCheckedBeforeExpiry(t *testing.T) {
	// An expired token with the wrong purpose must still report the purpose
	// failure, not expiry.
	past := func() time.Time { return time.Now().Add(-2 * time.Hour) }
	issuer := newTokenService(t, WithClock(past))
	accessAsReset, _, err := issuer.IssueAccessToken(Identity{ID: "u1", Email: "a@b.c", Role: RolePatient})
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	verifier := newTokenService(t)
	if _, err := verifier.VerifyResetToken(accessAsReset); !errors.Is(err, ErrTokenInvalidPurpose) {
		t.Fatalf("expected ErrTokenInvalidPurpose, got %v", err)
	}
}

func TestVerifyResetTokenExpired(t *testing.T) {
	past := func() time.Time { return time.Now().Add(-2 * time.Hour) }
	issuer := newTokenService(t, WithClock(past))
	token, _, err := issuer.IssueResetToken(Identity{ID: "u1", Email: "a@b.c", PasswordHash: "h"})
	if err != nil {
		t.Fatalf("IssueResetToken: %v", err)
	}

	verifier := newTokenService(t)
	if _, err := verifier.VerifyResetToken(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

// swapPayload replaces the claims segment while keeping header and signature.
func swapPayload(t *testing.T, token string) string {
	t.Helper()
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", token)
	}
	// Valid base64url for {"sub":"evil"} so parsing reaches the signature check.
	parts[1] = "eyJzdWIiOiJldmlsIn0"
	return strings.Join(parts, ".")
}
