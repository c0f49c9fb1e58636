package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultIssuer    = "vidaplus"
	defaultAccessTTL = 7 * 24 * time.Hour
	defaultResetTTL  = time.Hour

	// PurposeReset tags reset tokens. A token lacking this tag must never be
	// honored for a password reset, regardless of signature or expiry.
	PurposeReset = "password_reset"
)

// AccessClaims is embedded verbatim inside a signed access token. The role is
// a snapshot taken at issuance and may be stale relative to a later role
// change; expiry is the only invalidation mechanism.
type AccessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// ResetClaims is the payload of a password-reset token. Fingerprint binds the
// token to the password hash current at issuance, so a token is implicitly
// consumed by the reset it authorizes.
type ResetClaims struct {
	Email       string `json:"email"`
	Purpose     string `json:"purpose"`
	Fingerprint string `json:"pwd_fp,omitempty"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies the two bearer token kinds. It is pure and
// stateless; concurrent use requires no locking.
type TokenService struct {
	secret    []byte
	issuer    string
	accessTTL time.Duration
	resetTTL  time.Duration
	now       func() time.Time
}

// TokenOption configures TokenService behavior.
type TokenOption func(*TokenService)

// WithAccessTTL overrides the access token validity window.
func WithAccessTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithResetTTL overrides the reset token validity window.
func WithResetTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) {
		if ttl > 0 {
			s.resetTTL = ttl
		}
	}
}

// WithIssuer overrides the issuer claim.
func WithIssuer(issuer string) TokenOption {
	return func(s *TokenService) {
		if strings.TrimSpace(issuer) != "" {
			s.issuer = strings.TrimSpace(issuer)
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) TokenOption {
	return func(s *TokenService) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewTokenService constructs a TokenService signing with HS256.
func NewTokenService(secret string, opts ...TokenOption) (*TokenService, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	s := &TokenService{
		secret:    []byte(secret),
		issuer:    defaultIssuer,
		accessTTL: defaultAccessTTL,
		resetTTL:  defaultResetTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// IssueAccessToken signs an access token for the identity. The embedded role
// reflects the role held now, not necessarily at verification time.
func (s *TokenService) IssueAccessToken(identity Identity) (string, time.Time, error) {
	if strings.TrimSpace(identity.ID) == "" {
		return "", time.Time{}, ErrInvalidInput
	}
	now := s.now().UTC()
	exp := now.Add(s.accessTTL)
	claims := AccessClaims{
		Email: identity.Email,
		Role:  identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// VerifyAccessToken parses and validates an access token. Failures are
// classified as ErrTokenMissing, ErrTokenExpired or ErrTokenMalformed.
func (s *TokenService) VerifyAccessToken(token string) (*AccessClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenMissing
	}
	parser := jwt.NewParser(jwt.WithTimeFunc(s.now))
	parsed, err := parser.ParseWithClaims(token, &AccessClaims{}, s.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}
	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenMalformed
	}
	if err := s.validateCommon(&claims.RegisteredClaims); err != nil {
		return nil, err
	}
	return claims, nil
}

// IssueResetToken signs a short-lived password-reset token bound to the
// identity's current password hash.
func (s *TokenService) IssueResetToken(identity Identity) (string, time.Time, error) {
	if strings.TrimSpace(identity.ID) == "" {
		return "", time.Time{}, ErrInvalidInput
	}
	now := s.now().UTC()
	exp := now.Add(s.resetTTL)
	claims := ResetClaims{
		Email:       identity.Email,
		Purpose:     PurposeReset,
		Fingerprint: PasswordFingerprint(identity.PasswordHash),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// VerifyResetToken parses and validates a reset token. The purpose tag is
// checked before expiry: a well-signed token with the wrong purpose yields
// ErrTokenInvalidPurpose even when it has also expired.
func (s *TokenService) VerifyResetToken(token string) (*ResetClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenMissing
	}
	// Claims validation is deferred so the purpose guard runs first; the
	// signature is still verified during parsing.
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	parsed, err := parser.ParseWithClaims(token, &ResetClaims{}, s.keyFunc)
	if err != nil {
		return nil, ErrTokenMalformed
	}
	claims, ok := parsed.Claims.(*ResetClaims)
	if !ok {
		return nil, ErrTokenMalformed
	}
	if claims.Purpose != PurposeReset {
		return nil, ErrTokenInvalidPurpose
	}
	if claims.ExpiresAt == nil || s.now().After(claims.ExpiresAt.Time) {
		return nil, ErrTokenExpired
	}
	if err := s.validateCommon(&claims.RegisteredClaims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *TokenService) keyFunc(t *jwt.Token) (any, error) {
	if t.Method != jwt.SigningMethodHS256 {
		return nil, ErrTokenMalformed
	}
	return s.secret, nil
}

func (s *TokenService) validateCommon(claims *jwt.RegisteredClaims) error {
	if strings.TrimSpace(claims.Subject) == "" {
		return ErrTokenMalformed
	}
	if claims.Issuer != s.issuer {
		return ErrTokenMalformed
	}
	return nil
}

// PasswordFingerprint derives a short stable digest of a password hash. Reset
// tokens carry it so that changing the password invalidates any outstanding
// token without server-side state.
func PasswordFingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:])[:12]
}
