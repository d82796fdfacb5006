package auth

import (
	"time"

	"tasktracker/internal/errors"
)

// Session is the per-client authentication state.
// It is either anonymous (zero value) or carries Authenticated, Email and Username together.
type Session struct {
	ID            string    `json:"-"`
	Authenticated bool      `json:"authenticated"`
	Email         string    `json:"email,omitempty"`
	Username      string    `json:"username,omitempty"`
	ExpiresAt     time.Time `json:"expires_at,omitempty"`
}

// Clear drops every field, leaving an anonymous session.
func (s *Session) Clear() {
	if s == nil {
		return
	}
	*s = Session{}
}

// RequireAuthenticated is the gate in front of every task operation.
func RequireAuthenticated(s *Session) error {
	if s == nil || !s.Authenticated {
		return errors.ErrUnauthenticated
	}
	return nil
}
