package redis

// Package redis provides Redis-based adapters for the campus portal.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRevocationPrefix = "portal:revoked:"

// RevocationStore records logged-out session artifact ids in Redis.
// Entries expire with the artifact they revoke.
type RevocationStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRevocationStore creates a new Redis-based revocation store.
func NewRevocationStore(client redis.UniversalClient) *RevocationStore {
	return NewRevocationStoreWithPrefix(client, defaultRevocationPrefix)
}

// NewRevocationStoreWithPrefix creates a Redis revocation store with a custom key prefix.
func NewRevocationStoreWithPrefix(client redis.UniversalClient, prefix string) *RevocationStore {
	if prefix == "" {
		prefix = defaultRevocationPrefix
	}
	return &RevocationStore{client: client, prefix: prefix}
}

func (s *RevocationStore) Revoke(ctx context.Context, id string, until time.Time) error {
	if id == "" {
		return errors.New("session ID cannot be empty")
	}
	ttl := time.Until(until)
	if ttl <= 0 {
		// The artifact has already expired and can no longer be presented.
		return nil
	}
	if err := s.client.Set(ctx, s.prefix+id, "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RevocationStore) IsRevoked(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	n, err := s.client.Exists(ctx, s.prefix+id).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}
