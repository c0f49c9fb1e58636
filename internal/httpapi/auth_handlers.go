package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vidaplus.org/internal/audit"
	"vidaplus.org/internal/auth"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	User      auth.Identity `json:"user"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest,
			"Dados inválidos", err.Error(), CodeValidation)
		return
	}

	// Registering with a privileged role requires an admin caller; the route
	// runs under optional auth so anonymous patient signup still works.
	role := auth.NormalizeRole(req.Role)
	if role != "" && role != auth.RolePatient {
		identity, ok := auth.IdentityFromContext(r.Context())
		if !ok || identity.Role != auth.RoleAdmin {
			writeFailure(w, http.StatusForbidden,
				"Acesso negado", "Permissões insuficientes", CodeAuthzInsufficientPermission)
			return
		}
	}

	identity, err := a.auth.Register(r.Context(), req.Email, req.Password, role)
	if err != nil {
		a.handleAuthError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.register", map[string]any{
		"user_id": identity.ID,
		"role":    identity.Role,
	})
	w.Header().Set("Location", "/v1/users/"+identity.ID+"/profile")
	writeData(w, http.StatusCreated, identity)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest,
			"Dados inválidos", err.Error(), CodeValidation)
		return
	}

	identity, token, expiresAt, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrWrongCredential) {
			_ = audit.LogEvent(r.Context(), "auth.login.denied", nil)
		}
		a.handleAuthError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id": identity.ID,
	})
	writeData(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      identity,
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeFailure(w, http.StatusUnauthorized,
			"Autenticação necessária", "Token não fornecido", CodeAuthUnauthorized)
		return
	}
	writeData(w, http.StatusOK, identity)
}

func (a *API) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeFailure(w, http.StatusUnauthorized,
			"Autenticação necessária", "Token não fornecido", CodeAuthUnauthorized)
		return
	}
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest,
			"Dados inválidos", err.Error(), CodeValidation)
		return
	}
	if err := a.auth.UpdatePassword(r.Context(), identity.ID, req.OldPassword, req.NewPassword); err != nil {
		a.handleAuthError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.password.change", map[string]any{
		"user_id": identity.ID,
	})
	writeData(w, http.StatusOK, map[string]string{"message": "Senha alterada com sucesso"})
}

func (a *API) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest,
			"Dados inválidos", err.Error(), CodeValidation)
		return
	}
	if err := a.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		a.handleAuthError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.password.reset.request", nil)
	// Uniform response whether or not the email is registered.
	writeData(w, http.StatusOK, map[string]string{
		"message": "Se o e-mail estiver cadastrado, enviaremos instruções de recuperação",
	})
}

func (a *API) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest,
			"Dados inválidos", err.Error(), CodeValidation)
		return
	}
	if err := a.auth.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		a.handleAuthError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.password.reset", nil)
	writeData(w, http.StatusOK, map[string]string{"message": "Senha redefinida com sucesso"})
}

func (a *API) handleUserProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	identity, err := a.auth.Identity(r.Context(), userID)
	if err != nil {
		a.handleAuthError(w, err)
		return
	}
	writeData(w, http.StatusOK, identity)
}

func (a *API) handlePatientRecords(w http.ResponseWriter, r *http.Request) {
	// Clinical record retrieval itself lives outside this subsystem; the
	// gate having passed is the contract this endpoint demonstrates.
	writeData(w, http.StatusOK, map[string]any{
		"patient_id": chi.URLParam(r, "patientId"),
		"records":    []any{},
	})
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	identities, err := a.auth.ListIdentities(r.Context())
	if err != nil {
		writeInternalError(w)
		return
	}
	writeData(w, http.StatusOK, identities)
}

// handleAuthError maps the closed auth error taxonomy onto the failure
// envelope. The switch is exhaustive over the sentinels; anything else is an
// infrastructure failure and surfaces as 500.
func (a *API) handleAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrWrongCredential):
		writeFailure(w, http.StatusUnauthorized,
			"Credenciais inválidas", "E-mail ou senha incorretos", CodeAuthUnauthorized)
	case errors.Is(err, auth.ErrAlreadyExists):
		writeFailure(w, http.StatusConflict,
			"Cadastro inválido", "Não foi possível criar a conta com estes dados", CodeValidation)
	case errors.Is(err, auth.ErrInvalidInput):
		writeFailure(w, http.StatusBadRequest,
			"Dados inválidos", "Verifique os campos informados", CodeValidation)
	case errors.Is(err, auth.ErrTokenExpired):
		writeFailure(w, http.StatusUnauthorized,
			"Token expirado", "Solicite uma nova recuperação de senha", CodeAuthTokenExpired)
	case errors.Is(err, auth.ErrTokenInvalidPurpose),
		errors.Is(err, auth.ErrTokenMalformed),
		errors.Is(err, auth.ErrTokenMissing),
		errors.Is(err, auth.ErrTokenInvalid):
		writeFailure(w, http.StatusUnauthorized,
			"Token inválido", "Solicite uma nova recuperação de senha", CodeAuthTokenInvalid)
	case errors.Is(err, auth.ErrNotFound):
		writeFailure(w, http.StatusNotFound,
			"Recurso não encontrado", "Verifique o identificador informado", CodeValidation)
	default:
		writeInternalError(w)
	}
}
