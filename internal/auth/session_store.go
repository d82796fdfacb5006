package auth

import (
	"context"
	"time"

	"tasktracker/internal/cache"
)

const revokedSessionKeyPrefix = "revoked_session:"

// SessionStoreInterface defines the interface for session revocation.
type SessionStoreInterface interface {
	Revoke(ctx context.Context, sessionID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

// SessionStore keeps logged out session ids in Redis until their tokens expire.
type SessionStore struct {
	cache *cache.Client
}

// Ensure SessionStore implements SessionStoreInterface
var _ SessionStoreInterface = (*SessionStore)(nil)

// NewSessionStore creates a new session store.
func NewSessionStore(cache *cache.Client) *SessionStore {
	return &SessionStore{cache: cache}
}

// Revoke marks a session id as logged out for ttl.
func (s *SessionStore) Revoke(ctx context.Context, sessionID string, ttl time.Duration) error {
	if sessionID == "" || ttl <= 0 {
		return nil
	}
	s.cache.Set(ctx, revokedSessionKeyPrefix+sessionID, []byte("1"), ttl)
	return nil
}

// IsRevoked checks whether a session id was logged out.
func (s *SessionStore) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	return s.cache.Exists(ctx, revokedSessionKeyPrefix+sessionID), nil
}
