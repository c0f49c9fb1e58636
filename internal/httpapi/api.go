package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vidaplus.org/internal/auth"
	"vidaplus.org/internal/obs"
)

const serviceName = "vidaplus-api"

// ReadyProbe reports whether downstream dependencies are reachable.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Config carries the collaborators the HTTP layer depends on.
type Config struct {
	Auth          *auth.Service
	Patients      auth.PatientDirectory
	Doctors       auth.DoctorDirectory
	ReadyProbe    ReadyProbe
	Version       string
	RateBurst     int
	RatePerSecond int
}

// API is the HTTP layer.
type API struct {
	mux        *chi.Mux
	auth       *auth.Service
	patients   auth.PatientDirectory
	doctors    auth.DoctorDirectory
	readyProbe ReadyProbe
	version    string
}

// New wires the router. All dependencies are explicit; there is no package
// state beyond the metrics registry.
func New(cfg Config) *API {
	a := &API{
		mux:        chi.NewRouter(),
		auth:       cfg.Auth,
		patients:   cfg.Patients,
		doctors:    cfg.Doctors,
		readyProbe: cfg.ReadyProbe,
		version:    cfg.Version,
	}

	burst, perSecond := cfg.RateBurst, cfg.RatePerSecond
	if burst <= 0 {
		burst = 20
	}
	if perSecond <= 0 {
		perSecond = 10
	}

	r := a.mux
	r.Use(RequestID, LoggingJSON, SecurityHeaders, CORS, MaxBodyBytes(1<<20))
	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	r.Get("/healthz", a.Healthz)
	r.Get("/readyz", a.Ready)
	r.Get("/v1/info", a.Info)
	r.Handle("/metrics", obs.Handler())

	r.Route("/v1/auth", func(r chi.Router) {
		// Credential endpoints are throttled against online guessing.
		limited := RateLimit(burst, perSecond)
		r.With(limited, a.Authenticate(false)).Post("/register", a.handleRegister)
		r.With(limited).Post("/login", a.handleLogin)
		r.With(limited).Post("/forgot", a.handleForgotPassword)
		r.With(limited).Post("/reset", a.handleResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(a.Authenticate(true))
			r.Get("/me", a.handleMe)
			r.Put("/password", a.handleChangePassword)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(a.Authenticate(true))
		r.With(RequireSelfOrAdmin("userId")).
			Get("/v1/users/{userId}/profile", a.handleUserProfile)
		r.With(a.RequireAssignedPatient()).
			Get("/v1/patients/{patientId}/records", a.handlePatientRecords)
		r.With(RequireRole(auth.RoleAdmin)).
			Get("/v1/admin/users", a.handleListUsers)
	})

	return a
}

// Handler returns the fully instrumented handler for the server.
func (a *API) Handler() http.Handler {
	return obs.Instrument(a.mux)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
