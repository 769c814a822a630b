package users

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/x6galixia/server/pkg/auth"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations
const uniqueViolation = "23505"

// Store handles user persistence
type Store struct {
	db *sql.DB
}

// NewStore creates a new user store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const userColumns = "id, name, email, username, password_hash, role, created_at"

// scanUser scans a single user row
func scanUser(row *sql.Row) (*auth.User, error) {
	var user auth.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email, matched case-insensitively.
// Returns (nil, nil) when no user exists.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`
	return scanUser(s.db.QueryRowContext(ctx, query, email))
}

// GetUserByUsername retrieves a user by username.
// Returns (nil, nil) when no user exists.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*auth.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE username = $1
	`
	return scanUser(s.db.QueryRowContext(ctx, query, username))
}

// GetUserByID retrieves a user by id. Returns (nil, nil) when no user exists.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*auth.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`
	return scanUser(s.db.QueryRowContext(ctx, query, id))
}

// CreateUser inserts a new user and returns it with the generated id. A
// unique constraint violation is mapped to *auth.ConflictError naming the
// conflicting field, so duplicates racing past the workflow's pre-check still
// surface as conflicts.
func (s *Store) CreateUser(ctx context.Context, nu *auth.NewUser) (*auth.User, error) {
	query := `
		INSERT INTO users (name, email, username, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns + `
	`
	user, err := scanUser(s.db.QueryRowContext(ctx, query,
		nu.Name,
		nu.Email,
		nu.Username,
		nu.PasswordHash,
		nu.Role,
	))
	if err != nil {
		if pqErr, ok := unwrapPQError(err); ok && pqErr.Code == uniqueViolation {
			return nil, &auth.ConflictError{Field: conflictField(pqErr.Constraint)}
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("insert returned no row")
	}
	return user, nil
}

// unwrapPQError extracts a *pq.Error from a wrapped error chain
func unwrapPQError(err error) (*pq.Error, bool) {
	for err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			return pqErr, true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = unwrapper.Unwrap()
	}
	return nil, false
}

// conflictField maps a unique constraint name to the user-facing field name
func conflictField(constraint string) string {
	switch {
	case strings.Contains(constraint, "email"):
		return "email"
	case strings.Contains(constraint, "username"):
		return "username"
	default:
		return "user"
	}
}
