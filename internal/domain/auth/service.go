package auth

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"github.com/hallgard/authgate/internal/domain/attempt"
	"github.com/hallgard/authgate/internal/domain/session"
	"github.com/hallgard/authgate/internal/domain/user"
)

// Service orchestrates password-based sign-in: attempt throttling,
// credential check, session creation and token issuance.
type Service struct {
	users    user.Repository
	sessions session.Store
	attempts attempt.Tracker
	tokens   *TokenService
}

// NewService creates a new auth service
func NewService(users user.Repository, sessions session.Store, attempts attempt.Tracker, tokens *TokenService) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		attempts: attempts,
		tokens:   tokens,
	}
}

// Login performs credential sign-in. The step order is deliberate: the
// brute-force gate fires before any lookup so repeated attackers get a
// fixed-cost rejection, an unknown login and a wrong password are
// indistinguishable, and the blocked-account check runs only after the
// password succeeded so a wrong password against a blocked account still
// looks like invalid credentials.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthData, error) {
	if s.attempts.IsBlocked(ctx, req.Login) {
		return nil, ErrBruteForceBlocked
	}

	u, err := s.users.FindByLogin(req.Login)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.VerifyPassword(req.Password, u.Password) {
		s.attempts.RecordAttempt(ctx, req.Login)
		return nil, ErrInvalidCredentials
	}

	if u.IsBlocked {
		return nil, ErrAccountBlocked
	}

	s.attempts.Reset(ctx, req.Login)

	sessionID, err := s.sessions.Create(ctx, u.ID, u.RoleNames(), req.Device)
	if err != nil {
		return nil, err
	}
	slog.Debug("Session created", "session_id", sessionID, "user_id", u.ID)

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

// Logout blocks the presented token and deletes the session it references
func (s *Service) Logout(ctx context.Context, raw string) error {
	return s.tokens.Revoke(ctx, raw)
}

// GlobalLogout deletes every session of the user
func (s *Service) GlobalLogout(ctx context.Context, userID uint) error {
	sessions, err := s.sessions.UserSessions(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.sessions.DeleteAllUserSessions(ctx, userID); err != nil {
		return err
	}

	slog.Debug("Deleted all user sessions", "count", len(sessions), "user_id", userID)
	return nil
}
