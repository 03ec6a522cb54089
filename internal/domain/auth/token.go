package auth

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/hallgard/authgate/internal/domain/session"
	"github.com/hallgard/authgate/internal/domain/user"
)

// TokenService signs and verifies access tokens. Token lifetime is not
// coupled to session lifetime: a session may outlive several successive
// tokens, and the referenced session's continued existence is what makes
// a structurally valid token acceptable.
type TokenService struct {
	keys      *KeyStore
	users     user.Repository
	sessions  session.Store
	blacklist BlacklistRepository
	issuer    string
	ttl       time.Duration
}

// NewTokenService creates a TokenService
func NewTokenService(keys *KeyStore, users user.Repository, sessions session.Store, blacklist BlacklistRepository, issuer string, ttl time.Duration) *TokenService {
	return &TokenService{
		keys:      keys,
		users:     users,
		sessions:  sessions,
		blacklist: blacklist,
		issuer:    issuer,
		ttl:       ttl,
	}
}

// Issue signs a token embedding the identity snapshot and the session id
func (s *TokenService) Issue(u *user.User, sessionID string) (string, error) {
	now := time.Now()

	builder := jwt.NewBuilder().
		Subject(strconv.FormatUint(uint64(u.ID), 10)).
		Issuer(s.issuer).
		IssuedAt(now).
		Expiration(now.Add(s.ttl)).
		Claim("login", u.Login).
		Claim("name", u.Name).
		Claim("email", u.Email).
		Claim("roles", u.RoleNames()).
		Claim("is_root", u.IsRoot).
		Claim("sid", sessionID)

	if u.TelegramID != nil {
		builder = builder.Claim("telegram_id", *u.TelegramID)
	}

	token, err := builder.Build()
	if err != nil {
		return "", err
	}

	return s.keys.Sign(token)
}

// Verify validates a raw token and resolves the identity behind it.
// The revocation list wins over signature validity; a token bound to a
// session additionally needs that session to still exist and the user to
// still resolve. Tokens without a sid claim (legacy) skip the session check.
func (s *TokenService) Verify(ctx context.Context, raw string) (*Identity, error) {
	revoked, err := s.blacklist.Exists(raw)
	if err != nil {
		return nil, err
	}
	if revoked {
		slog.Debug("Token is on the revocation list")
		return nil, ErrTokenRevoked
	}

	token, err := s.keys.Verify(raw)
	if err != nil {
		slog.Debug("Token verification failed", "error", err)
		return nil, ErrTokenInvalid
	}

	exp, ok := token.Expiration()
	if !ok || time.Now().After(exp) {
		return nil, ErrTokenInvalid
	}

	if s.issuer != "" {
		if iss, ok := token.Issuer(); !ok || iss != s.issuer {
			return nil, ErrTokenInvalid
		}
	}

	sid := claimString(token, "sid")
	if sid != "" {
		if _, err := s.sessions.Get(ctx, sid); err != nil {
			if errors.Is(err, session.ErrNotFound) {
				slog.Debug("Session not found during token validation", "session_id", sid)
				return nil, ErrTokenExpired
			}
			return nil, err
		}
	}

	userID, err := subjectID(token)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	u, err := s.users.FindByID(userID)
	if err != nil {
		slog.Debug("User not found during token validation", "user_id", userID)
		return nil, ErrTokenExpired
	}

	return &Identity{User: u, SessionID: sid}, nil
}

// Revoke idempotently puts the token on the revocation list and deletes
// the session it is bound to, if any. The existence check before the
// insert makes retries safe.
func (s *TokenService) Revoke(ctx context.Context, raw string) error {
	revoked, err := s.blacklist.Exists(raw)
	if err != nil {
		return err
	}
	if !revoked {
		if err := s.blacklist.Insert(raw); err != nil {
			return err
		}
	}

	// The token may already be expired; revocation only needs its claims.
	token, err := jwt.ParseInsecure([]byte(raw))
	if err != nil {
		return nil
	}

	if sid := claimString(token, "sid"); sid != "" {
		if err := s.sessions.Delete(ctx, sid); err != nil {
			return err
		}
		slog.Debug("Session deleted on revoke", "session_id", sid)
	}

	return nil
}

func claimString(token jwt.Token, name string) string {
	var v any
	if token.Get(name, &v) != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func subjectID(token jwt.Token) (uint, error) {
	sub, ok := token.Subject()
	if !ok {
		return 0, errors.New("token has no subject")
	}
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
