package pg

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Store bundles the PostgreSQL-backed repositories over one connection pool.
type Store struct {
	db *sql.DB
}

// Open connects to PostgreSQL and tunes the pool.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing handle; used by tests with sqlmock.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the handle for readiness probes and the migration runner.
func (s *Store) DB() *sql.DB { return s.db }

// Credentials returns the identity repository.
func (s *Store) Credentials() *CredentialStore { return &CredentialStore{db: s.db} }

// Patients returns the patient directory.
func (s *Store) Patients() *PatientDirectory { return &PatientDirectory{db: s.db} }

// Doctors returns the doctor directory.
func (s *Store) Doctors() *DoctorDirectory { return &DoctorDirectory{db: s.db} }

// uniqueViolation matches the PostgreSQL error class raised on duplicate keys.
func uniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
