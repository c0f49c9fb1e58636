package pg

import (
	"context"
	"database/sql"
	"errors"

	"vidaplus.org/internal/auth"
)

var (
	_ auth.PatientDirectory = (*PatientDirectory)(nil)
	_ auth.DoctorDirectory  = (*DoctorDirectory)(nil)
)

// PatientDirectory implements auth.PatientDirectory on PostgreSQL.
type PatientDirectory struct {
	db *sql.DB
}

func (d *PatientDirectory) FindByID(ctx context.Context, patientID string) (auth.Patient, error) {
	row := d.db.QueryRowContext(ctx,
		`select id, user_id, coalesce(doctor_id, '') from patients where id = $1`, patientID)
	var p auth.Patient
	if err := row.Scan(&p.ID, &p.UserID, &p.DoctorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.Patient{}, auth.ErrNotFound
		}
		return auth.Patient{}, err
	}
	return p, nil
}

// DoctorDirectory implements auth.DoctorDirectory on PostgreSQL.
type DoctorDirectory struct {
	db *sql.DB
}

func (d *DoctorDirectory) FindByUserID(ctx context.Context, userID string) (auth.Doctor, error) {
	row := d.db.QueryRowContext(ctx,
		`select id, user_id from doctors where user_id = $1`, userID)
	var doc auth.Doctor
	if err := row.Scan(&doc.ID, &doc.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.Doctor{}, auth.ErrNotFound
		}
		return auth.Doctor{}, err
	}
	return doc, nil
}
