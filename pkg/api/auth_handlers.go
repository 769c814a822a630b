package api

import (
	"net/http"

	"github.com/x6galixia/server/pkg/auth"
	"github.com/x6galixia/server/pkg/httputil"
	"github.com/x6galixia/server/pkg/middleware"
	"github.com/x6galixia/server/pkg/observability"
	"github.com/x6galixia/server/pkg/session"
)

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	registrar *auth.Registrar
	verifier  *auth.Verifier
	sessions  *session.Manager
	metrics   *observability.Metrics
}

// NewAuthHandlers creates a new auth handlers instance. metrics may be nil.
func NewAuthHandlers(registrar *auth.Registrar, verifier *auth.Verifier, sessions *session.Manager, metrics *observability.Metrics) *AuthHandlers {
	return &AuthHandlers{
		registrar: registrar,
		verifier:  verifier,
		sessions:  sessions,
		metrics:   metrics,
	}
}

// signup handles POST /signup
func (h *AuthHandlers) signup(w http.ResponseWriter, r *http.Request) {
	var in auth.RegistrationInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	user, err := h.registrar.Register(r.Context(), in)
	if err != nil {
		h.rejectRegistration(w, r, err)
		return
	}

	h.countRegistration(observability.OutcomeSuccess)
	observability.FromContext(r.Context()).WithFields(map[string]interface{}{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     user.Role,
	}).Info("user registered")

	httputil.WriteCreated(w, user)
}

func (h *AuthHandlers) rejectRegistration(w http.ResponseWriter, r *http.Request, err error) {
	if ve, ok := auth.AsValidation(err); ok {
		h.countRegistration(observability.OutcomeFailure)
		httputil.WriteValidationErrors(w, ve.Fields)
		return
	}
	if ce, ok := auth.AsConflict(err); ok {
		h.countRegistration(observability.OutcomeFailure)
		httputil.WriteConflict(w, ce.Error(), ce.Field)
		return
	}

	h.countRegistration(observability.OutcomeError)
	observability.FromContext(r.Context()).WithError(err).Error("registration failed")
	httputil.WriteInternalError(w)
}

// login handles POST /login
func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	user, err := h.verifier.Verify(r.Context(), req.Email, req.Password)
	if err == auth.ErrInvalidCredentials {
		// Unknown email and wrong password are identical outward.
		h.countLogin(observability.OutcomeFailure)
		httputil.WriteUnauthorized(w, auth.ErrInvalidCredentials.Error())
		return
	}
	if err != nil {
		h.countLogin(observability.OutcomeError)
		observability.FromContext(r.Context()).WithError(err).Error("credential verification failed")
		httputil.WriteInternalError(w)
		return
	}

	if err := h.sessions.Establish(r.Context(), w, user); err != nil {
		h.countLogin(observability.OutcomeError)
		observability.FromContext(r.Context()).WithError(err).Error("failed to establish session")
		httputil.WriteInternalError(w)
		return
	}

	h.countLogin(observability.OutcomeSuccess)
	observability.FromContext(r.Context()).WithField("user_id", user.ID).Info("login succeeded")

	httputil.WriteSuccess(w, loginResponse{User: user})
}

// logout handles GET /logout. It succeeds regardless of whether a live
// session existed.
func (h *AuthHandlers) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(r.Context(), w, r); err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to destroy session")
		httputil.WriteInternalError(w)
		return
	}

	if h.metrics != nil {
		h.metrics.SessionsDestroyed.Inc()
	}

	httputil.WriteSuccess(w, map[string]string{"status": "logged out"})
}

// dashboard handles GET /dashboard, any authenticated principal
func (h *AuthHandlers) dashboard(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetPrincipal(r)
	httputil.WriteSuccess(w, dashboardResponse{User: user})
}

// admin handles GET /admin, admin principals only
func (h *AuthHandlers) admin(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetPrincipal(r)
	httputil.WriteSuccess(w, map[string]interface{}{
		"message": "admin area",
		"user":    user,
	})
}

func (h *AuthHandlers) countLogin(outcome string) {
	if h.metrics != nil {
		h.metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}

func (h *AuthHandlers) countRegistration(outcome string) {
	if h.metrics != nil {
		h.metrics.RegistrationsTotal.WithLabelValues(outcome).Inc()
	}
}
