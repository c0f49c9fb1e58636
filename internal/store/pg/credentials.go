package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"vidaplus.org/internal/auth"
)

var _ auth.CredentialStore = (*CredentialStore)(nil)

// CredentialStore implements auth.CredentialStore on PostgreSQL.
type CredentialStore struct {
	db *sql.DB
}

const identityColumns = `id, email, password_hash, role, last_login_at, created_at, updated_at`

func (s *CredentialStore) FindByID(ctx context.Context, id string) (auth.Identity, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+identityColumns+` from users where id = $1`, id)
	return scanIdentity(row)
}

func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (auth.Identity, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+identityColumns+` from users where email = $1`, email)
	return scanIdentity(row)
}

func (s *CredentialStore) Insert(ctx context.Context, identity auth.Identity) error {
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, email, password_hash, role, created_at, updated_at)
		 values($1, $2, $3, $4, $5, $6)`,
		identity.ID, identity.Email, identity.PasswordHash, identity.Role,
		identity.CreatedAt, identity.UpdatedAt,
	)
	if err != nil && uniqueViolation(err) {
		return auth.ErrAlreadyExists
	}
	return err
}

func (s *CredentialStore) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`update users set last_login_at = $2, updated_at = $2 where id = $1`, id, at)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *CredentialStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`update users set password_hash = $2, updated_at = now() where id = $1`, id, passwordHash)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *CredentialStore) List(ctx context.Context) ([]auth.Identity, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+identityColumns+` from users order by created_at asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []auth.Identity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, identity)
	}
	return res, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (auth.Identity, error) {
	var (
		identity  auth.Identity
		lastLogin sql.NullTime
	)
	err := row.Scan(&identity.ID, &identity.Email, &identity.PasswordHash,
		&identity.Role, &lastLogin, &identity.CreatedAt, &identity.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.Identity{}, auth.ErrNotFound
		}
		return auth.Identity{}, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		identity.LastLoginAt = &t
	}
	return identity, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return auth.ErrNotFound
	}
	return nil
}
