package oauthstate

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "oauthstate:"
	// TTL bounds how long a login redirect stays redeemable
	TTL = 5 * time.Minute
)

// Store hands out single-use state nonces tying an authorize redirect to
// its callback. Redis expiry reaps abandoned handshakes.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore creates a Redis-backed state store
func NewStore(client *redis.Client) *Store {
	return &Store{client: client, ttl: TTL}
}

func (s *Store) key(state string) string {
	return keyPrefix + state
}

// Issue generates a nonce and stores it with the configured TTL
func (s *Store) Issue(ctx context.Context) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(b)

	if err := s.client.Set(ctx, s.key(state), "1", s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store state: %w", err)
	}

	return state, nil
}

// Consume deletes the nonce and reports whether it existed. Each state is
// redeemable exactly once; unknown, expired, and replayed states all
// report false.
func (s *Store) Consume(ctx context.Context, state string) (bool, error) {
	if state == "" {
		return false, nil
	}

	deleted, err := s.client.Del(ctx, s.key(state)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to consume state: %w", err)
	}

	return deleted > 0, nil
}
