package auth

import (
	"context"
	"fmt"
)

// CredentialStore is the read side of the credential store needed for login.
// Lookups match email case-insensitively and return (nil, nil) when no user
// exists; a non-nil error always means the store itself failed.
type CredentialStore interface {
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id int64) (*User, error)
}

// Verifier resolves email+password credentials to a User
type Verifier struct {
	store  CredentialStore
	hasher *PasswordHasher
}

// NewVerifier creates a credential verifier
func NewVerifier(store CredentialStore, hasher *PasswordHasher) *Verifier {
	return &Verifier{
		store:  store,
		hasher: hasher,
	}
}

// Verify looks up the user by email and checks the password against the
// stored hash. Empty credentials fail fast before any store lookup or hash
// computation. Unknown email and wrong password both return
// ErrInvalidCredentials; store and hasher failures propagate distinctly.
// The returned User carries no password hash.
func (v *Verifier) Verify(ctx context.Context, email, password string) (*User, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := v.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	match, err := v.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password for user %d: %w", user.ID, err)
	}
	if !match {
		return nil, ErrInvalidCredentials
	}

	return user.WithoutHash(), nil
}
