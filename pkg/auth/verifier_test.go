package auth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// fakeStore is an in-memory RegistrationStore for tests
type fakeStore struct {
	users   map[int64]*User
	nextID  int64
	failErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[int64]*User), nextID: 1}
}

func (s *fakeStore) add(u *User) *User {
	u.ID = s.nextID
	s.nextID++
	s.users[u.ID] = u
	return u
}

func (s *fakeStore) GetUserByEmail(_ context.Context, email string) (*User, error) {
	if s.failErr != nil {
		return nil, s.failErr
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) GetUserByUsername(_ context.Context, username string) (*User, error) {
	if s.failErr != nil {
		return nil, s.failErr
	}
	for _, u := range s.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) GetUserByID(_ context.Context, id int64) (*User, error) {
	if s.failErr != nil {
		return nil, s.failErr
	}
	if u, ok := s.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, nil
}

func (s *fakeStore) CreateUser(_ context.Context, nu *NewUser) (*User, error) {
	if s.failErr != nil {
		return nil, s.failErr
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Email, nu.Email) {
			return nil, &ConflictError{Field: "email"}
		}
		if u.Username == nu.Username {
			return nil, &ConflictError{Field: "username"}
		}
	}
	return s.add(&User{
		Name:         nu.Name,
		Email:        nu.Email,
		Username:     nu.Username,
		PasswordHash: nu.PasswordHash,
		Role:         nu.Role,
	}), nil
}

func seedUser(t *testing.T, store *fakeStore, email, password string, role Role) *User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	return store.add(&User{
		Name:         "Test User",
		Email:        email,
		Username:     strings.Split(email, "@")[0],
		PasswordHash: string(hash),
		Role:         role,
	})
}

func TestVerifier_Success(t *testing.T) {
	store := newFakeStore()
	seeded := seedUser(t, store, "a@x.com", "secret1", RoleUser)
	verifier := NewVerifier(store, NewPasswordHasher(bcrypt.MinCost))

	user, err := verifier.Verify(context.Background(), "a@x.com", "secret1")

	require.NoError(t, err)
	assert.Equal(t, seeded.ID, user.ID)
	assert.Equal(t, "a@x.com", user.Email)
	assert.Empty(t, user.PasswordHash, "returned user must not carry the hash")
}

func TestVerifier_EmailMatchIsCaseInsensitive(t *testing.T) {
	store := newFakeStore()
	seedUser(t, store, "a@x.com", "secret1", RoleUser)
	verifier := NewVerifier(store, NewPasswordHasher(bcrypt.MinCost))

	user, err := verifier.Verify(context.Background(), "A@X.COM", "secret1")

	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)
}

func TestVerifier_FailuresAreIndistinguishable(t *testing.T) {
	store := newFakeStore()
	seedUser(t, store, "a@x.com", "secret1", RoleUser)
	verifier := NewVerifier(store, NewPasswordHasher(bcrypt.MinCost))

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "wrong password", email: "a@x.com", password: "wrong"},
		{name: "unknown email", email: "nobody@x.com", password: "secret1"},
		{name: "empty email", email: "", password: "secret1"},
		{name: "empty password", email: "a@x.com", password: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := verifier.Verify(context.Background(), tt.email, tt.password)
			assert.Nil(t, user)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestVerifier_StoreErrorIsNotAVerificationFailure(t *testing.T) {
	store := newFakeStore()
	store.failErr = errors.New("connection refused")
	verifier := NewVerifier(store, NewPasswordHasher(bcrypt.MinCost))

	user, err := verifier.Verify(context.Background(), "a@x.com", "secret1")

	assert.Nil(t, user)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}
