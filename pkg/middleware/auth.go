package middleware

import (
	"net/http"

	"github.com/x6galixia/server/pkg/auth"
	"github.com/x6galixia/server/pkg/contextkeys"
	"github.com/x6galixia/server/pkg/httputil"
	"github.com/x6galixia/server/pkg/observability"
	"github.com/x6galixia/server/pkg/session"
)

// AuthMiddleware is the authentication gate. It reconstitutes the session
// principal for each request and attaches it to the request context.
type AuthMiddleware struct {
	sessions *session.Manager
	metrics  *observability.Metrics
}

// NewAuthMiddleware creates the authentication gate. metrics may be nil.
func NewAuthMiddleware(sessions *session.Manager, metrics *observability.Metrics) *AuthMiddleware {
	return &AuthMiddleware{
		sessions: sessions,
		metrics:  metrics,
	}
}

// RequireAuth wraps a handler so it only runs with a valid, live session.
// Missing, expired and malformed tokens all produce the same generic 401;
// the distinction lives only in server-side logs. Session store failures are
// a 500, not a 401: an outage must not read as "logged out".
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := m.sessions.Reconstitute(r.Context(), r)
		if err == session.ErrNoSession {
			observability.FromContext(r.Context()).
				WithField("path", r.URL.Path).
				Debug("unauthenticated request rejected")
			m.denied(observability.GateAuthentication)
			httputil.WriteUnauthorized(w, "authentication required")
			return
		}
		if err != nil {
			observability.FromContext(r.Context()).WithError(err).Error("session reconstitution failed")
			httputil.WriteInternalError(w)
			return
		}

		ctx := contextkeys.WithPrincipal(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole wraps a handler so it only runs for principals with exactly
// the given role. Must be ordered after RequireAuth.
func (m *AuthMiddleware) RequireRole(role auth.Role) func(http.Handler) http.Handler {
	return m.RequireAnyRole(role)
}

// RequireAnyRole wraps a handler so it only runs for principals whose role is
// in the given set. A missing principal means the gate was reached without
// the authentication gate and is rejected as unauthenticated.
func (m *AuthMiddleware) RequireAnyRole(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetPrincipal(r)
			if user == nil {
				m.denied(observability.GateAuthentication)
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}

			if !hasAnyRole(user, roles) {
				observability.FromContext(r.Context()).WithFields(map[string]interface{}{
					"user_id": user.ID,
					"role":    user.Role,
					"path":    r.URL.Path,
				}).Warn("role authorization denied")
				m.denied(observability.GateRole)
				httputil.WriteForbidden(w, "insufficient role")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func hasAnyRole(user *auth.User, roles []auth.Role) bool {
	for _, role := range roles {
		if user.Role == role {
			return true
		}
	}
	return false
}

func (m *AuthMiddleware) denied(gate string) {
	if m.metrics != nil {
		m.metrics.AuthDenialsTotal.WithLabelValues(gate).Inc()
	}
}

// GetPrincipal extracts the authenticated user from the request context.
// Returns nil when the authentication gate has not run.
func GetPrincipal(r *http.Request) *auth.User {
	val := r.Context().Value(contextkeys.PrincipalKey)
	if val == nil {
		return nil
	}
	user, ok := val.(*auth.User)
	if !ok {
		return nil
	}
	return user
}
