package api

import "github.com/x6galixia/server/pkg/auth"

// loginRequest is the POST /login body
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse confirms a successful login; the session token travels only
// in the cookie, never in the body
type loginResponse struct {
	User *auth.User `json:"user"`
}

// dashboardResponse returns the reconstituted principal
type dashboardResponse struct {
	User *auth.User `json:"user"`
}
