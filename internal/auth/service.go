package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Mailer delivers password-reset messages. Delivery is an external
// collaborator concern; this subsystem only hands the token over.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, token string, expiresAt time.Time) error
}

// Service wires the token and password primitives to the credential store and
// implements the account flows exposed over HTTP.
type Service struct {
	creds  CredentialStore
	tokens *TokenService
	mailer Mailer
	now    func() time.Time
}

// NewService constructs Service. The mailer may be nil, in which case the
// reset flow still succeeds but nothing is delivered.
func NewService(creds CredentialStore, tokens *TokenService, mailer Mailer) (*Service, error) {
	if creds == nil {
		return nil, errors.New("auth: credential store is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token service is required")
	}
	return &Service{creds: creds, tokens: tokens, mailer: mailer, now: time.Now}, nil
}

// Tokens exposes the underlying token service.
func (s *Service) Tokens() *TokenService { return s.tokens }

// Register creates a new identity. Role defaults to patient when empty; role
// validation is the caller's concern only insofar as elevation requires an
// admin, which the HTTP layer enforces.
func (s *Service) Register(ctx context.Context, email, password, role string) (Identity, error) {
	email = normalizeEmail(email)
	if email == "" {
		return Identity{}, ErrInvalidInput
	}
	if len(password) < 8 {
		return Identity{}, ErrInvalidInput
	}
	role = NormalizeRole(role)
	if role == "" {
		role = RolePatient
	}
	if !ValidRole(role) {
		return Identity{}, ErrInvalidInput
	}

	if _, err := s.creds.FindByEmail(ctx, email); err == nil {
		return Identity{}, ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return Identity{}, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return Identity{}, err
	}
	now := s.now().UTC()
	identity := Identity{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.creds.Insert(ctx, identity); err != nil {
		return Identity{}, err
	}
	return identity, nil
}

// Login verifies credentials and issues an access token. Invalid email and
// invalid password both yield ErrWrongCredential so the response never
// discloses which half of the pair was wrong.
func (s *Service) Login(ctx context.Context, email, password string) (Identity, string, time.Time, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Identity{}, "", time.Time{}, ErrWrongCredential
	}
	identity, err := s.creds.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Identity{}, "", time.Time{}, ErrWrongCredential
		}
		return Identity{}, "", time.Time{}, err
	}
	ok, err := VerifyPassword(identity.PasswordHash, password)
	if err != nil {
		return Identity{}, "", time.Time{}, err
	}
	if !ok {
		return Identity{}, "", time.Time{}, ErrWrongCredential
	}

	token, expiresAt, err := s.tokens.IssueAccessToken(identity)
	if err != nil {
		return Identity{}, "", time.Time{}, err
	}
	loginAt := s.now().UTC()
	if err := s.creds.UpdateLastLogin(ctx, identity.ID, loginAt); err != nil {
		return Identity{}, "", time.Time{}, err
	}
	identity.LastLoginAt = &loginAt
	return identity, token, expiresAt, nil
}

// Authenticate resolves a bearer token to a live identity. A verified token
// whose subject no longer exists yields ErrTokenInvalid; store failures
// propagate untouched so they surface as 5xx, never as 401.
func (s *Service) Authenticate(ctx context.Context, token string) (Identity, error) {
	claims, err := s.tokens.VerifyAccessToken(token)
	if err != nil {
		return Identity{}, err
	}
	identity, err := s.creds.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Identity{}, ErrTokenInvalid
		}
		return Identity{}, err
	}
	return identity, nil
}

// RequestPasswordReset issues a reset token and hands it to the mailer. An
// unknown email returns nil: the endpoint must not act as an existence oracle.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return ErrInvalidInput
	}
	identity, err := s.creds.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	token, expiresAt, err := s.tokens.IssueResetToken(identity)
	if err != nil {
		return err
	}
	if s.mailer == nil {
		return nil
	}
	return s.mailer.SendPasswordReset(ctx, identity.Email, token, expiresAt)
}

// ResetPassword verifies a reset token and persists the new password hash.
// The fingerprint check makes a token single-use: once the password changes,
// a replayed token no longer matches and is rejected as invalid.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	claims, err := s.tokens.VerifyResetToken(token)
	if err != nil {
		return err
	}
	identity, err := s.creds.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrTokenInvalid
		}
		return err
	}
	if claims.Fingerprint != "" && claims.Fingerprint != PasswordFingerprint(identity.PasswordHash) {
		return ErrTokenInvalid
	}
	if len(newPassword) < 8 {
		return ErrInvalidInput
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.creds.UpdatePassword(ctx, identity.ID, hash)
}

// UpdatePassword runs the change-password flow for an authenticated user and
// persists the resulting hash.
func (s *Service) UpdatePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	identity, err := s.creds.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	hash, err := ChangePassword(identity, oldPassword, newPassword)
	if err != nil {
		return err
	}
	return s.creds.UpdatePassword(ctx, identity.ID, hash)
}

// Identity fetches a single identity by ID.
func (s *Service) Identity(ctx context.Context, userID string) (Identity, error) {
	return s.creds.FindByID(ctx, userID)
}

// ListIdentities returns every identity. Intended for admin use; the HTTP
// layer gates it behind the admin role.
func (s *Service) ListIdentities(ctx context.Context) ([]Identity, error) {
	return s.creds.List(ctx)
}

func normalizeEmail(email string) string {
	email = strings.TrimSpace(strings.ToLower(email))
	if !strings.Contains(email, "@") {
		return ""
	}
	return email
}
