package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// ErrorCode is the machine-readable code carried by every failure response.
type ErrorCode string

const (
	CodeAuthUnauthorized            ErrorCode = "AUTH_UNAUTHORIZED"
	CodeAuthTokenInvalid            ErrorCode = "AUTH_TOKEN_INVALID"
	CodeAuthTokenExpired            ErrorCode = "AUTH_TOKEN_EXPIRED"
	CodeAuthzInsufficientPermission ErrorCode = "AUTHZ_INSUFFICIENT_PERMISSIONS"
	CodeAuthzForbidden              ErrorCode = "AUTHZ_FORBIDDEN"
	CodeAuthzDoctorNotAssigned      ErrorCode = "AUTHZ_DOCTOR_NOT_ASSIGNED"
	CodePatientNotFound             ErrorCode = "BUSINESS_PATIENT_NOT_FOUND"
	CodeValidation                  ErrorCode = "VALIDATION_ERROR"
	CodeInternal                    ErrorCode = "INTERNAL_ERROR"
)

// failureResponse is the wire shape of every non-2xx response.
type failureResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Error   string    `json:"error"`
	Code    ErrorCode `json:"code"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeFailure emits the failure envelope. 401 responses also carry
// WWW-Authenticate so conforming clients know the scheme.
func writeFailure(w http.ResponseWriter, status int, message, detail string, code ErrorCode) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeJSON(w, status, failureResponse{
		Success: false,
		Message: message,
		Error:   detail,
		Code:    code,
	})
}

func writeInternalError(w http.ResponseWriter) {
	writeFailure(w, http.StatusInternalServerError,
		"Erro interno do servidor", "Tente novamente mais tarde", CodeInternal)
}

// successResponse wraps 2xx payloads symmetrically with the failure envelope.
type successResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, successResponse{Success: true, Data: data})
}

// decodeJSON reads a single JSON document, rejecting unknown fields and
// trailing garbage.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeFailure(w, http.StatusNotFound,
		"Recurso não encontrado", "Verifique o caminho informado", CodeValidation)
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeFailure(w, http.StatusMethodNotAllowed,
		"Método não permitido", "Verifique o método HTTP", CodeValidation)
}
