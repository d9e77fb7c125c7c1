package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mpetrovs/tabchat/internal/client/auth"
	"github.com/mpetrovs/tabchat/internal/client/repositories/metadata"
	"github.com/mpetrovs/tabchat/internal/common"
	"github.com/mpetrovs/tabchat/internal/logging"
)

// SessionService owns the authenticated session: sign-in/sign-up through
// the auth collaborator, durable caching in the local store so a restart
// keeps the user signed in, and expiry-driven token refresh.
type SessionService struct {
	provider auth.Provider
	meta     metadata.Repository
	log      logging.Logger

	mu      sync.Mutex
	current *auth.Session
}

func NewSessionService(provider auth.Provider, meta metadata.Repository, log logging.Logger) *SessionService {
	return &SessionService{provider: provider, meta: meta, log: log}
}

func (s *SessionService) SignIn(ctx context.Context, email, password string) (*auth.Session, error) {
	session, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SessionService) SignUp(ctx context.Context, email, password string) (*auth.Session, error) {
	session, err := s.provider.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Current returns the live session, restoring it from the local cache and
// refreshing the token when expired. Returns common.ErrNotSignedIn when no
// session exists.
func (s *SessionService) Current(ctx context.Context) (*auth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		cached, err := s.load(ctx)
		if err != nil {
			return nil, err
		}
		s.current = cached
	}

	if s.current.Expired() {
		refreshed, err := s.provider.Refresh(ctx, s.current.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", common.ErrSessionExpired, err)
		}
		// The refresh response has no email claim of its own sometimes;
		// keep the one we know.
		if refreshed.Email == "" {
			refreshed.Email = s.current.Email
		}
		if err := s.saveLocked(ctx, refreshed); err != nil {
			return nil, err
		}
	}
	return s.current, nil
}

func (s *SessionService) SignOut(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	return s.meta.Delete(ctx, metadata.KeySession)
}

func (s *SessionService) save(ctx context.Context, session *auth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx, session)
}

func (s *SessionService) saveLocked(ctx context.Context, session *auth.Session) error {
	b, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	if err := s.meta.Set(ctx, metadata.KeySession, b); err != nil {
		return err
	}
	s.current = session
	return nil
}

func (s *SessionService) load(ctx context.Context) (*auth.Session, error) {
	b, err := s.meta.Get(ctx, metadata.KeySession)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, common.ErrNotSignedIn
	}
	var session auth.Session
	if err := json.Unmarshal(b, &session); err != nil {
		return nil, fmt.Errorf("decoding cached session: %w", err)
	}
	return &session, nil
}
