package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vidaplus.org/internal/auth"
)

const testSecret = "httpapi-test-secret"

type memCreds struct {
	byID map[string]auth.Identity
	err  error
}

func (m *memCreds) FindByID(_ context.Context, id string) (auth.Identity, error) {
	if m.err != nil {
		return auth.Identity{}, m.err
	}
	identity, ok := m.byID[id]
	if !ok {
		return auth.Identity{}, auth.ErrNotFound
	}
	return identity, nil
}

func (m *memCreds) FindByEmail(_ context.Context, email string) (auth.Identity, error) {
	if m.err != nil {
		return auth.Identity{}, m.err
	}
	for _, identity := range m.byID {
		if identity.Email == email {
			return identity, nil
		}
	}
	return auth.Identity{}, auth.ErrNotFound
}

func (m *memCreds) Insert(_ context.Context, identity auth.Identity) error {
	if m.err != nil {
		return m.err
	}
	m.byID[identity.ID] = identity
	return nil
}

func (m *memCreds) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	if m.err != nil {
		return m.err
	}
	identity, ok := m.byID[id]
	if !ok {
		return auth.ErrNotFound
	}
	identity.LastLoginAt = &at
	m.byID[id] = identity
	return nil
}

func (m *memCreds) UpdatePassword(_ context.Context, id, hash string) error {
	if m.err != nil {
		return m.err
	}
	identity, ok := m.byID[id]
	if !ok {
		return auth.ErrNotFound
	}
	identity.PasswordHash = hash
	m.byID[id] = identity
	return nil
}

func (m *memCreds) List(_ context.Context) ([]auth.Identity, error) {
	if m.err != nil {
		return nil, m.err
	}
	res := make([]auth.Identity, 0, len(m.byID))
	for _, identity := range m.byID {
		res = append(res, identity)
	}
	return res, nil
}

type memPatients struct {
	byID map[string]auth.Patient
	err  error
}

func (m *memPatients) FindByID(_ context.Context, id string) (auth.Patient, error) {
	if m.err != nil {
		return auth.Patient{}, m.err
	}
	patient, ok := m.byID[id]
	if !ok {
		return auth.Patient{}, auth.ErrNotFound
	}
	return patient, nil
}

type memDoctors struct {
	byUserID map[string]auth.Doctor
	err      error
}

func (m *memDoctors) FindByUserID(_ context.Context, userID string) (auth.Doctor, error) {
	if m.err != nil {
		return auth.Doctor{}, m.err
	}
	doctor, ok := m.byUserID[userID]
	if !ok {
		return auth.Doctor{}, auth.ErrNotFound
	}
	return doctor, nil
}

// fixture is a fully wired API over in-memory stores. The directory models a
// clinic with one assigned doctor/patient pair, one unassigned doctor, and a
// doctor identity with no directory record.
type fixture struct {
	api      *API
	creds    *memCreds
	patients *memPatients
	doctors  *memDoctors
	svc      *auth.Service
}

var (
	userPatient   = auth.Identity{ID: "u-patient", Email: "paciente@vidaplus.org", PasswordHash: "$2a$12$unused", Role: auth.RolePatient}
	userPatient2  = auth.Identity{ID: "u-patient2", Email: "paciente2@vidaplus.org", PasswordHash: "$2a$12$unused", Role: auth.RolePatient}
	userDoctor    = auth.Identity{ID: "u-doctor", Email: "medico@vidaplus.org", PasswordHash: "$2a$12$unused", Role: auth.RoleDoctor}
	userDoctor2   = auth.Identity{ID: "u-doctor2", Email: "medico2@vidaplus.org", PasswordHash: "$2a$12$unused", Role: auth.RoleDoctor}
	userGhostDoc  = auth.Identity{ID: "u-ghostdoc", Email: "fantasma@vidaplus.org", PasswordHash: "$2a$12$unused", Role: auth.RoleDoctor}
	userSecretary = auth.Identity{ID: "u-sec", Email: "secretaria@vidaplus.org", PasswordHash: "$2a$12$unused", Role: auth.RoleSecretary}
	userAdmin     = auth.Identity{ID: "u-admin", Email: "admin@vidaplus.org", PasswordHash: "$2a$12$unused", Role: auth.RoleAdmin}
)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	creds := &memCreds{byID: map[string]auth.Identity{
		userPatient.ID:   userPatient,
		userPatient2.ID:  userPatient2,
		userDoctor.ID:    userDoctor,
		userDoctor2.ID:   userDoctor2,
		userGhostDoc.ID:  userGhostDoc,
		userSecretary.ID: userSecretary,
		userAdmin.ID:     userAdmin,
	}}
	patients := &memPatients{byID: map[string]auth.Patient{
		"p1": {ID: "p1", UserID: userPatient.ID, DoctorID: "d1"},
		"p2": {ID: "p2", UserID: userPatient2.ID, DoctorID: "d2"},
	}}
	doctors := &memDoctors{byUserID: map[string]auth.Doctor{
		userDoctor.ID:  {ID: "d1", UserID: userDoctor.ID},
		userDoctor2.ID: {ID: "d2", UserID: userDoctor2.ID},
	}}

	tokens, err := auth.NewTokenService(testSecret)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	svc, err := auth.NewService(creds, tokens, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	api := New(Config{
		Auth:     svc,
		Patients: patients,
		Doctors:  doctors,
		Version:  "test",
	})
	return &fixture{api: api, creds: creds, patients: patients, doctors: doctors, svc: svc}
}

func (f *fixture) token(t *testing.T, identity auth.Identity) string {
	t.Helper()
	token, _, err := f.svc.Tokens().IssueAccessToken(identity)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	return token
}

// expiredToken mints a token that was valid an hour ago and is expired now.
func expiredToken(t *testing.T, identity auth.Identity) string {
	t.Helper()
	past := func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, err := auth.NewTokenService(testSecret,
		auth.WithClock(past), auth.WithAccessTTL(time.Hour))
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	token, _, err := stale.IssueAccessToken(identity)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	return token
}

func (f *fixture) do(t *testing.T, method, target, bearer string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	rec := httptest.NewRecorder()
	f.api.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeFailure(t *testing.T, rec *httptest.ResponseRecorder) failureResponse {
	t.Helper()
	var body failureResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode failure body: %v (raw %q)", err, rec.Body.String())
	}
	return body
}

func wantFailure(t *testing.T, rec *httptest.ResponseRecorder, status int, message, detail string, code ErrorCode) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %q)", rec.Code, status, rec.Body.String())
	}
	body := decodeFailure(t, rec)
	if body.Success {
		t.Fatal("failure envelope must carry success=false")
	}
	if body.Message != message {
		t.Errorf("message = %q, want %q", body.Message, message)
	}
	if body.Error != detail {
		t.Errorf("error = %q, want %q", body.Error, detail)
	}
	if body.Code != code {
		t.Errorf("code = %q, want %q", body.Code, code)
	}
	if status == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") != "Bearer" {
		t.Error("401 response is missing WWW-Authenticate: Bearer")
	}
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode success body: %v (raw %q)", err, rec.Body.String())
	}
	if !envelope.Success {
		t.Fatalf("expected success=true, raw %q", rec.Body.String())
	}
	if dst != nil {
		if err := json.Unmarshal(envelope.Data, dst); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
}
