package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// tokenPrefix identifies session tokens
	tokenPrefix = "sess_"
	// tokenLength is the number of random bytes per token (256 bits)
	tokenLength = 32
	// keyPrefix namespaces session records in Redis
	keyPrefix = "session:"
)

// ErrNoSession is returned when a token resolves to no live session record,
// whether the token is absent, expired, malformed or already destroyed.
var ErrNoSession = errors.New("no live session")

// Store persists session records in Redis. Record lifetime is enforced by
// Redis key expiration, so no sweeper is needed.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore creates a session store with the given fixed session lifetime
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{
		client: client,
		ttl:    ttl,
	}
}

// generateToken creates a new opaque session token.
// Format: sess_<base64url(32 random bytes)>
func generateToken() (string, error) {
	randomBytes := make([]byte, tokenLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return tokenPrefix + base64.RawURLEncoding.EncodeToString(randomBytes), nil
}

// validTokenFormat checks the token shape before hitting Redis
func validTokenFormat(token string) bool {
	if !strings.HasPrefix(token, tokenPrefix) {
		return false
	}
	encoded := strings.TrimPrefix(token, tokenPrefix)
	if encoded == "" {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(encoded)
	return err == nil
}

// Create stores a new session record for the user and returns its token.
// The TTL starts now and is never extended.
func (s *Store) Create(ctx context.Context, userID int64) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}

	key := keyPrefix + token
	if err := s.client.Set(ctx, key, strconv.FormatInt(userID, 10), s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	return token, nil
}

// Get resolves a token to the user id it was established for. Absent,
// expired and malformed tokens all return ErrNoSession.
func (s *Store) Get(ctx context.Context, token string) (int64, error) {
	if !validTokenFormat(token) {
		return 0, ErrNoSession
	}

	val, err := s.client.Get(ctx, keyPrefix+token).Result()
	if err == redis.Nil {
		return 0, ErrNoSession
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read session: %w", err)
	}

	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		// Corrupt record; drop it and treat as absent.
		s.client.Del(ctx, keyPrefix+token)
		return 0, ErrNoSession
	}

	return userID, nil
}

// Destroy removes the session record immediately. Destroying an unknown or
// already-destroyed token is not an error.
func (s *Store) Destroy(ctx context.Context, token string) error {
	if !validTokenFormat(token) {
		return nil
	}
	if err := s.client.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}
