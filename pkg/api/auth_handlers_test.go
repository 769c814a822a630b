package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/x6galixia/server/pkg/auth"
	"github.com/x6galixia/server/pkg/observability"
	"github.com/x6galixia/server/pkg/session"
)

// memStore is an in-memory auth.RegistrationStore backing the handler tests
type memStore struct {
	mu     sync.Mutex
	users  map[int64]*auth.User
	nextID int64
}

func newMemStore() *memStore {
	return &memStore{users: make(map[int64]*auth.User), nextID: 1}
}

func (s *memStore) GetUserByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *memStore) GetUserByUsername(_ context.Context, username string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *memStore) GetUserByID(_ context.Context, id int64) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, nil
}

func (s *memStore) CreateUser(_ context.Context, nu *auth.NewUser) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, nu.Email) {
			return nil, &auth.ConflictError{Field: "email"}
		}
		if u.Username == nu.Username {
			return nil, &auth.ConflictError{Field: "username"}
		}
	}
	user := &auth.User{
		ID:           s.nextID,
		Name:         nu.Name,
		Email:        nu.Email,
		Username:     nu.Username,
		PasswordHash: nu.PasswordHash,
		Role:         nu.Role,
		CreatedAt:    time.Now().UTC(),
	}
	s.nextID++
	s.users[user.ID] = user
	clone := *user
	return &clone, nil
}

func newTestServer(t *testing.T) (*Server, *memStore) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := newMemStore()
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	sessions := session.NewManager(
		session.NewStore(client, 24*time.Hour),
		store,
		session.CookieConfig{Name: "authd_session"},
	)

	srv := NewServer(Deps{
		Registrar: auth.NewRegistrar(store, hasher, 8),
		Verifier:  auth.NewVerifier(store, hasher),
		Sessions:  sessions,
		Logger:    observability.NewLogger(observability.ErrorLevel, io.Discard),
	})

	return srv, store
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "authd_session" {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

func signupBody() map[string]string {
	return map[string]string{
		"name":     "Jordan Mills",
		"email":    "jordan@example.com",
		"username": "jmills",
		"password": "hunter2hunter2",
		"role":     "user",
	}
}

func TestSignup_CreatesUser(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, "POST", "/signup", signupBody(), nil)

	require.Equal(t, http.StatusCreated, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "jordan@example.com", body["email"])
	assert.Equal(t, "user", body["role"])
	assert.NotContains(t, rec.Body.String(), "hunter2")
	assert.NotContains(t, body, "password_hash")
}

func TestSignup_ValidationFailureListsEveryBadField(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, "POST", "/signup", map[string]string{
		"email":    "not-an-address",
		"password": "short",
		"role":     "superuser",
	}, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation failed", body.Error)
	assert.Len(t, body.Fields, 5)
	for _, field := range []string{"name", "email", "username", "password", "role"} {
		assert.Contains(t, body.Fields, field)
	}
}

func TestSignup_MalformedJSON(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/signup", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignup_DuplicateEmailConflicts(t *testing.T) {
	srv, store := newTestServer(t)

	require.Equal(t, http.StatusCreated, doJSON(t, srv, "POST", "/signup", signupBody(), nil).Code)

	dup := signupBody()
	dup["username"] = "other"
	rec := doJSON(t, srv, "POST", "/signup", dup, nil)

	require.Equal(t, http.StatusConflict, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "email", body["field"])
	assert.Len(t, store.users, 1)
}

func TestLogin_UnknownAndWrongPasswordLookTheSame(t *testing.T) {
	srv, _ := newTestServer(t)
	doJSON(t, srv, "POST", "/signup", signupBody(), nil)

	unknown := doJSON(t, srv, "POST", "/login", map[string]string{
		"email": "nobody@example.com", "password": "hunter2hunter2",
	}, nil)
	wrong := doJSON(t, srv, "POST", "/login", map[string]string{
		"email": "jordan@example.com", "password": "wrong-password",
	}, nil)

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, unknown.Body.String(), wrong.Body.String())
	assert.Empty(t, wrong.Result().Cookies())
}

func TestLogout_AlwaysSucceeds(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, "GET", "/logout", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "logged out")
}

func TestDashboard_RequiresAuthentication(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, "GET", "/dashboard", nil, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// Full credential lifecycle: register, duplicate rejected, login, visit a
// protected page, wrong password rejected, logout, replayed token rejected.
func TestAuthLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	created := doJSON(t, srv, "POST", "/signup", signupBody(), nil)
	require.Equal(t, http.StatusCreated, created.Code)

	require.Equal(t, http.StatusConflict,
		doJSON(t, srv, "POST", "/signup", signupBody(), nil).Code)

	login := doJSON(t, srv, "POST", "/login", map[string]string{
		"email": "jordan@example.com", "password": "hunter2hunter2",
	}, nil)
	require.Equal(t, http.StatusOK, login.Code)
	cookie := sessionCookie(t, login)
	assert.True(t, strings.HasPrefix(cookie.Value, "sess_"))

	dashboard := doJSON(t, srv, "GET", "/dashboard", nil, cookie)
	require.Equal(t, http.StatusOK, dashboard.Code)
	assert.Contains(t, dashboard.Body.String(), "jmills")

	require.Equal(t, http.StatusUnauthorized, doJSON(t, srv, "POST", "/login", map[string]string{
		"email": "jordan@example.com", "password": "not-the-password",
	}, nil).Code)

	logout := doJSON(t, srv, "GET", "/logout", nil, cookie)
	require.Equal(t, http.StatusOK, logout.Code)

	replay := doJSON(t, srv, "GET", "/dashboard", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, replay.Code)
}

func TestAdmin_RoleGate(t *testing.T) {
	srv, _ := newTestServer(t)

	member := signupBody()
	require.Equal(t, http.StatusCreated, doJSON(t, srv, "POST", "/signup", member, nil).Code)

	operator := map[string]string{
		"name":     "Avery Ronan",
		"email":    "avery@example.com",
		"username": "aronan",
		"password": "correct-horse-battery",
		"role":     "admin",
	}
	require.Equal(t, http.StatusCreated, doJSON(t, srv, "POST", "/signup", operator, nil).Code)

	memberLogin := doJSON(t, srv, "POST", "/login", map[string]string{
		"email": member["email"], "password": member["password"],
	}, nil)
	require.Equal(t, http.StatusOK, memberLogin.Code)

	operatorLogin := doJSON(t, srv, "POST", "/login", map[string]string{
		"email": operator["email"], "password": operator["password"],
	}, nil)
	require.Equal(t, http.StatusOK, operatorLogin.Code)

	assert.Equal(t, http.StatusForbidden,
		doJSON(t, srv, "GET", "/admin", nil, sessionCookie(t, memberLogin)).Code)
	assert.Equal(t, http.StatusOK,
		doJSON(t, srv, "GET", "/admin", nil, sessionCookie(t, operatorLogin)).Code)
	assert.Equal(t, http.StatusUnauthorized,
		doJSON(t, srv, "GET", "/admin", nil, nil).Code)
}
