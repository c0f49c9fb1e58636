package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"vidaplus.org/internal/auth"
	"vidaplus.org/internal/obs"
)

const (
	authHeader   = "Authorization"
	bearerPrefix = "Bearer "
)

// Authenticate builds the authentication gate. In required mode any failure
// terminates the request with the failure envelope; in optional mode every
// failure class is swallowed and the request proceeds anonymously, leaving
// the route to decide whether anonymous access is acceptable.
func (a *API) Authenticate(required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r.Header.Get(authHeader))
			if token == "" {
				if !required {
					next.ServeHTTP(w, r)
					return
				}
				obs.RecordAuthDecision("authn", "deny")
				writeFailure(w, http.StatusUnauthorized,
					"Autenticação necessária", "Token não fornecido", CodeAuthUnauthorized)
				return
			}

			identity, err := a.auth.Authenticate(r.Context(), token)
			if err != nil {
				if !required {
					obs.RecordAuthDecision("authn", "anonymous")
					next.ServeHTTP(w, r)
					return
				}
				obs.RecordAuthDecision("authn", "deny")
				switch {
				case errors.Is(err, auth.ErrTokenExpired):
					writeFailure(w, http.StatusUnauthorized,
						"Token expirado", "Faça login novamente", CodeAuthTokenExpired)
				case errors.Is(err, auth.ErrTokenInvalid):
					// Deliberately the same code as a malformed token: the
					// response must not distinguish a forged token from a
					// deleted user.
					writeFailure(w, http.StatusUnauthorized,
						"Token inválido", "Usuário não encontrado", CodeAuthTokenInvalid)
				case errors.Is(err, auth.ErrTokenMalformed), errors.Is(err, auth.ErrTokenMissing):
					writeFailure(w, http.StatusUnauthorized,
						"Autenticação falhou", "Token inválido ou malformado", CodeAuthTokenInvalid)
				default:
					// Store failure, not a credential problem.
					writeInternalError(w)
				}
				return
			}

			obs.RecordAuthDecision("authn", "allow")
			ctx := auth.ContextWithIdentity(r.Context(), identity)
			ctx = auth.ContextWithToken(ctx, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken accepts both "Bearer <token>" and a bare token. The bare form
// is intentionally permissive for non-conforming clients.
func extractToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearerPrefix)) {
		return strings.TrimSpace(header[len(bearerPrefix):])
	}
	return header
}
