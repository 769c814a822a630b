package auth

import (
	"context"
	"fmt"
	"net/mail"
)

// RegistrationStore is the store surface the registration workflow needs:
// uniqueness lookups plus the insert. CreateUser must return a *ConflictError
// when the store's unique constraint fires, so that a duplicate racing past
// the pre-check still surfaces as a conflict rather than a server error.
type RegistrationStore interface {
	CredentialStore
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	CreateUser(ctx context.Context, nu *NewUser) (*User, error)
}

// RegistrationInput is the raw signup request body
type RegistrationInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Registrar runs the registration workflow:
// validate, check uniqueness, hash, persist.
type Registrar struct {
	store             RegistrationStore
	hasher            *PasswordHasher
	minPasswordLength int
}

// NewRegistrar creates a registration workflow
func NewRegistrar(store RegistrationStore, hasher *PasswordHasher, minPasswordLength int) *Registrar {
	return &Registrar{
		store:             store,
		hasher:            hasher,
		minPasswordLength: minPasswordLength,
	}
}

// Register creates a new user. It returns *ValidationError for malformed
// input, *ConflictError for duplicate email/username, and a wrapped store
// error otherwise. The returned User carries no password hash and the
// plaintext never leaves this method.
func (r *Registrar) Register(ctx context.Context, in RegistrationInput) (*User, error) {
	role, err := r.validate(in)
	if err != nil {
		return nil, err
	}

	// Pre-check uniqueness for friendly errors. The unique constraints in
	// the store remain the final authority under concurrent duplicates.
	existing, err := r.store.GetUserByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email uniqueness: %w", err)
	}
	if existing != nil {
		return nil, &ConflictError{Field: "email"}
	}

	existing, err = r.store.GetUserByUsername(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username uniqueness: %w", err)
	}
	if existing != nil {
		return nil, &ConflictError{Field: "username"}
	}

	hash, err := r.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user, err := r.store.CreateUser(ctx, &NewUser{
		Name:         in.Name,
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		if _, ok := AsConflict(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("failed to persist user: %w", err)
	}

	return user.WithoutHash(), nil
}

// validate collects the full set of field errors so the caller sees every
// problem at once. The result is deterministic for a given input.
func (r *Registrar) validate(in RegistrationInput) (Role, error) {
	fields := make(map[string]string)

	if in.Name == "" {
		fields["name"] = "name is required"
	}
	if in.Username == "" {
		fields["username"] = "username is required"
	}
	if in.Email == "" {
		fields["email"] = "email is required"
	} else if _, err := mail.ParseAddress(in.Email); err != nil {
		fields["email"] = "email is not a valid address"
	}
	if len(in.Password) < r.minPasswordLength {
		fields["password"] = fmt.Sprintf("password must be at least %d characters", r.minPasswordLength)
	}

	role, ok := ParseRole(in.Role)
	if !ok {
		fields["role"] = fmt.Sprintf("role must be one of %q, %q", RoleAdmin, RoleUser)
	}

	if len(fields) > 0 {
		return "", &ValidationError{Fields: fields}
	}
	return role, nil
}
