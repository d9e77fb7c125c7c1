// Package auth integrates the external authentication collaborator. It
// supplies a stable opaque user id and email for the session; credentials
// are never managed by the client core.
package auth

import (
	"context"
	"time"
)

// Session is the authenticated identity handed to the rest of the client.
type Session struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	IDToken      string    `json:"idToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Expired reports whether the id token needs a refresh. A small margin keeps
// a token from expiring mid-request.
func (s *Session) Expired() bool {
	return time.Now().After(s.ExpiresAt.Add(-30 * time.Second))
}

// Provider is the authentication collaborator.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
}
