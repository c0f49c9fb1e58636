package auth

import (
	"context"
	"time"
)

// CredentialStore is the persistence seam for identities. Implementations
// return ErrNotFound for missing records and plain errors for infrastructure
// failures; callers rely on that distinction to keep 5xx out of 401/403.
type CredentialStore interface {
	FindByID(ctx context.Context, id string) (Identity, error)
	FindByEmail(ctx context.Context, email string) (Identity, error)
	Insert(ctx context.Context, identity Identity) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	List(ctx context.Context) ([]Identity, error)
}

// PatientDirectory resolves patient records for assignment checks. Read-only.
type PatientDirectory interface {
	FindByID(ctx context.Context, patientID string) (Patient, error)
}

// DoctorDirectory resolves the clinician record owned by a user. Read-only.
type DoctorDirectory interface {
	FindByUserID(ctx context.Context, userID string) (Doctor, error)
}
