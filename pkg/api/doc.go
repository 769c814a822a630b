// Package api exposes the HTTP surface: signup, login, logout and the
// role-gated sample resources, wired through the authentication and role
// gates in pkg/middleware.
package api
