package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vidaplus.org/internal/audit"
	"vidaplus.org/internal/auth"
	"vidaplus.org/internal/obs"
)

// RequireRole allows only callers whose role is in the allow list.
func RequireRole(allowed ...string) func(http.Handler) http.Handler {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[auth.NormalizeRole(role)] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				obs.RecordAuthDecision("role", "deny")
				writeFailure(w, http.StatusUnauthorized,
					"Autenticação necessária", "Token não fornecido", CodeAuthUnauthorized)
				return
			}
			if _, ok := allowedSet[identity.Role]; !ok {
				obs.RecordAuthDecision("role", "deny")
				_ = audit.LogEvent(r.Context(), "authz.denied", map[string]any{
					"gate": "role",
					"path": r.URL.Path,
				})
				writeFailure(w, http.StatusForbidden,
					"Acesso negado", "Permissões insuficientes", CodeAuthzInsufficientPermission)
				return
			}
			obs.RecordAuthDecision("role", "allow")
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSelfOrAdmin allows a caller to act on their own user resource, or on
// any resource when they hold the admin role. param names the route parameter
// carrying the target user ID and defaults to "userId".
func RequireSelfOrAdmin(param string) func(http.Handler) http.Handler {
	if param == "" {
		param = "userId"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				obs.RecordAuthDecision("self_or_admin", "deny")
				writeFailure(w, http.StatusUnauthorized,
					"Autenticação necessária", "Token não fornecido", CodeAuthUnauthorized)
				return
			}
			if identity.Role == auth.RoleAdmin || identity.ID == chi.URLParam(r, param) {
				obs.RecordAuthDecision("self_or_admin", "allow")
				next.ServeHTTP(w, r)
				return
			}
			obs.RecordAuthDecision("self_or_admin", "deny")
			_ = audit.LogEvent(r.Context(), "authz.denied", map[string]any{
				"gate": "self_or_admin",
				"path": r.URL.Path,
			})
			writeFailure(w, http.StatusForbidden,
				"Acesso negado", "Você só pode acessar seus próprios dados", CodeAuthzForbidden)
		})
	}
}

// RequireAssignedPatient gates patient-scoped routes on the relationship
// between the caller and the patient named by the "patientId" route param.
// Admins and secretaries bypass the check; patients must own the record;
// doctors must be the assigned clinician. Any other role is denied.
func (a *API) RequireAssignedPatient() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				a.denyPatient(w, r, http.StatusUnauthorized,
					"Autenticação necessária", "Token não fornecido", CodeAuthUnauthorized)
				return
			}

			switch identity.Role {
			case auth.RoleAdmin, auth.RoleSecretary:
				obs.RecordAuthDecision("assigned_patient", "allow")
				next.ServeHTTP(w, r)
				return
			case auth.RolePatient:
				a.checkPatientSelf(w, r, identity, next)
				return
			case auth.RoleDoctor:
				a.checkDoctorAssignment(w, r, identity, next)
				return
			}
			a.denyPatient(w, r, http.StatusForbidden,
				"Acesso negado", "Permissões insuficientes", CodeAuthzForbidden)
		})
	}
}

func (a *API) checkPatientSelf(w http.ResponseWriter, r *http.Request, identity auth.Identity, next http.Handler) {
	patientID := chi.URLParam(r, "patientId")
	patient, err := a.patients.FindByID(r.Context(), patientID)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			a.denyPatient(w, r, http.StatusNotFound,
				"Paciente não encontrado", "Verifique o identificador informado", CodePatientNotFound)
			return
		}
		writeInternalError(w)
		return
	}
	if patient.UserID != identity.ID {
		a.denyPatient(w, r, http.StatusForbidden,
			"Acesso negado", "Você só pode acessar seus próprios dados", CodeAuthzForbidden)
		return
	}
	obs.RecordAuthDecision("assigned_patient", "allow")
	next.ServeHTTP(w, r)
}

func (a *API) checkDoctorAssignment(w http.ResponseWriter, r *http.Request, identity auth.Identity, next http.Handler) {
	doctor, err := a.doctors.FindByUserID(r.Context(), identity.ID)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			// Data-integrity drift: an authenticated doctor without a
			// directory record still may not act, so this is 403, not 500.
			a.denyPatient(w, r, http.StatusForbidden,
				"Acesso negado", "Registro de médico não encontrado", CodeAuthzForbidden)
			return
		}
		writeInternalError(w)
		return
	}

	patientID := chi.URLParam(r, "patientId")
	patient, err := a.patients.FindByID(r.Context(), patientID)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			a.denyPatient(w, r, http.StatusNotFound,
				"Paciente não encontrado", "Verifique o identificador informado", CodePatientNotFound)
			return
		}
		writeInternalError(w)
		return
	}
	if patient.DoctorID != doctor.ID {
		a.denyPatient(w, r, http.StatusForbidden,
			"Acesso negado", "Médico não autorizado para este paciente", CodeAuthzDoctorNotAssigned)
		return
	}
	obs.RecordAuthDecision("assigned_patient", "allow")
	next.ServeHTTP(w, r)
}

func (a *API) denyPatient(w http.ResponseWriter, r *http.Request, status int, message, detail string, code ErrorCode) {
	obs.RecordAuthDecision("assigned_patient", "deny")
	if status == http.StatusForbidden {
		_ = audit.LogEvent(r.Context(), "authz.denied", map[string]any{
			"gate": "assigned_patient",
			"path": r.URL.Path,
			"code": string(code),
		})
	}
	writeFailure(w, status, message, detail, code)
}
