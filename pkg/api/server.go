package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/x6galixia/server/pkg/auth"
	"github.com/x6galixia/server/pkg/httputil"
	"github.com/x6galixia/server/pkg/middleware"
	"github.com/x6galixia/server/pkg/observability"
	"github.com/x6galixia/server/pkg/session"
)

// Server represents the API server
type Server struct {
	router       *mux.Router
	authHandlers *AuthHandlers
	gate         *middleware.AuthMiddleware
	logger       *observability.Logger
	metrics      *observability.Metrics
}

// Deps holds the server's constructed dependencies
type Deps struct {
	Registrar *auth.Registrar
	Verifier  *auth.Verifier
	Sessions  *session.Manager
	Logger    *observability.Logger
	Metrics   *observability.Metrics // may be nil
}

// NewServer creates the API server and wires routes and middleware
func NewServer(deps Deps) *Server {
	s := &Server{
		router:       mux.NewRouter(),
		authHandlers: NewAuthHandlers(deps.Registrar, deps.Verifier, deps.Sessions, deps.Metrics),
		gate:         middleware.NewAuthMiddleware(deps.Sessions, deps.Metrics),
		logger:       deps.Logger,
		metrics:      deps.Metrics,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.Use(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.logger, s.metrics),
		httputil.RecoveryMiddleware(s.logger),
		httputil.MaxBytesMiddleware(1<<20),
	)

	// Public routes
	s.router.HandleFunc("/signup", s.authHandlers.signup).Methods("POST")
	s.router.HandleFunc("/login", s.authHandlers.login).Methods("POST")
	s.router.HandleFunc("/logout", s.authHandlers.logout).Methods("GET")

	// Protected routes: authentication gate, then role gate where required
	s.router.Handle("/dashboard",
		s.gate.RequireAuth(http.HandlerFunc(s.authHandlers.dashboard))).Methods("GET")
	s.router.Handle("/admin",
		s.gate.RequireAuth(
			s.gate.RequireRole(auth.RoleAdmin)(http.HandlerFunc(s.authHandlers.admin)))).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
