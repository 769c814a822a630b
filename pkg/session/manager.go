package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/x6galixia/server/pkg/auth"
)

// CookieConfig controls how the session cookie is written
type CookieConfig struct {
	Name   string
	Secure bool
}

// Manager is the session principal codec. Establish serializes an
// authenticated identity down to its user id behind an opaque token;
// Reconstitute turns a request's cookie back into the full live User.
type Manager struct {
	store  *Store
	users  auth.CredentialStore
	cookie CookieConfig
}

// NewManager creates a session manager
func NewManager(store *Store, users auth.CredentialStore, cookie CookieConfig) *Manager {
	return &Manager{
		store:  store,
		users:  users,
		cookie: cookie,
	}
}

// Establish creates a session for the user and sets the session cookie
func (m *Manager) Establish(ctx context.Context, w http.ResponseWriter, user *auth.User) error {
	token, err := m.store.Create(ctx, user.ID)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie.Name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(m.store.ttl),
	})

	return nil
}

// Reconstitute resolves the request's session cookie to the live User. The
// user is re-fetched from the credential store on every request, so role or
// identity changes made after the session was established are honored.
// Returns ErrNoSession for missing, expired or malformed tokens, and for
// sessions whose user no longer exists.
func (m *Manager) Reconstitute(ctx context.Context, r *http.Request) (*auth.User, error) {
	cookie, err := r.Cookie(m.cookie.Name)
	if err != nil {
		return nil, ErrNoSession
	}

	userID, err := m.store.Get(ctx, cookie.Value)
	if err != nil {
		return nil, err
	}

	user, err := m.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session user: %w", err)
	}
	if user == nil {
		// User destroyed out of band; the session is dead weight.
		m.store.Destroy(ctx, cookie.Value)
		return nil, ErrNoSession
	}

	return user.WithoutHash(), nil
}

// Destroy removes the request's session record and expires the cookie. It is
// idempotent: requests without a session, or with an already-destroyed one,
// succeed the same way.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	cookie, err := r.Cookie(m.cookie.Name)
	if err == nil {
		if err := m.store.Destroy(ctx, cookie.Value); err != nil {
			return err
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie.Name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   m.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})

	return nil
}
