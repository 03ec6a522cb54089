package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hallgard/authgate/internal/domain/session"
	"github.com/hallgard/authgate/internal/domain/user"
)

// SessionAuthService handles silent re-authentication from an existing
// session id: token re-issuance and sliding session refresh.
type SessionAuthService struct {
	users    user.Repository
	sessions session.Store
	tokens   *TokenService
}

// NewSessionAuthService creates a new session auth service
func NewSessionAuthService(users user.Repository, sessions session.Store, tokens *TokenService) *SessionAuthService {
	return &SessionAuthService{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
	}
}

// SignInBySession issues a fresh token bound to an existing session.
// Session expiry is not extended here.
func (s *SessionAuthService) SignInBySession(ctx context.Context, sessionID string) (*AuthData, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			slog.Debug("Session not found", "session_id", sessionID)
			return nil, ErrTokenExpired
		}
		return nil, err
	}

	u, err := s.users.FindByID(sess.UserID)
	if err != nil {
		slog.Debug("User not found", "user_id", sess.UserID)
		return nil, ErrTokenExpired
	}

	token, err := s.tokens.Issue(u, sessionID)
	if err != nil {
		return nil, err
	}

	return &AuthData{
		AccessToken: token,
		Roles:       u.Roles,
		IsRoot:      u.IsRoot,
		SessionID:   sessionID,
	}, nil
}

// RefreshUserSession extends the session expiry by one TTL. No new token
// is issued.
func (s *SessionAuthService) RefreshUserSession(ctx context.Context, sessionID string) error {
	_, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			slog.Debug("Session not found", "session_id", sessionID)
			return ErrTokenExpired
		}
		return err
	}

	if err := s.sessions.Refresh(ctx, sessionID); err != nil {
		return err
	}

	slog.Debug("Session refreshed", "session_id", sessionID)
	return nil
}
