package auth

import (
	"strings"
	"time"
)

// Roles recognized by the access gate. The set is closed: authorization
// decisions default-deny anything outside it.
const (
	RolePatient   = "patient"
	RoleDoctor    = "doctor"
	RoleSecretary = "secretary"
	RoleAdmin     = "admin"
)

// ValidRole reports whether role belongs to the closed role set.
func ValidRole(role string) bool {
	switch role {
	case RolePatient, RoleDoctor, RoleSecretary, RoleAdmin:
		return true
	}
	return false
}

// NormalizeRole lower-cases and trims a role string; it does not validate it.
func NormalizeRole(role string) string {
	return strings.TrimSpace(strings.ToLower(role))
}

// Identity is a credential-store record. PasswordHash never leaves the
// process: it is excluded from JSON serialization.
type Identity struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Patient links a patient record to its owning user and, optionally, to the
// assigned clinician. Read-only from this subsystem's perspective.
type Patient struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	DoctorID string `json:"doctor_id,omitempty"`
}

// Doctor links a clinician record to its owning user.
type Doctor struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
}
