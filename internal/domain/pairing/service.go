package pairing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hallgard/authgate/internal/domain/auth"
	"github.com/hallgard/authgate/internal/domain/role"
	"github.com/hallgard/authgate/internal/domain/session"
	"github.com/hallgard/authgate/internal/domain/user"
)

// TxManager runs a confirmation unit of work atomically. The production
// implementation binds the repositories to one database transaction so a
// half-provisioned identity can never end up without an attached chat id.
type TxManager interface {
	Do(ctx context.Context, fn func(pairings Repository, users user.Repository, roles role.Repository) error) error
}

type gormTxManager struct {
	db       *gorm.DB
	pairings Repository
	users    user.Repository
	roles    role.Repository
}

// NewTxManager creates a TxManager over the given database handle
func NewTxManager(db *gorm.DB, pairings Repository, users user.Repository, roles role.Repository) TxManager {
	return &gormTxManager{db: db, pairings: pairings, users: users, roles: roles}
}

func (m *gormTxManager) Do(ctx context.Context, fn func(Repository, user.Repository, role.Repository) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(m.pairings.WithTx(tx), m.users.WithTx(tx), m.roles.WithTx(tx))
	})
}

// Service manages the two-party bot handshake that ends in a session and
// token exactly like the password flow. A confirmed key stays readable by
// CompleteLogin; no consumed or expired terminal state is enforced.
type Service struct {
	tx       TxManager
	pairings Repository
	users    user.Repository
	sessions session.Store
	tokens   *auth.TokenService
	botName  string
}

// NewService creates a new pairing service
func NewService(tx TxManager, pairings Repository, users user.Repository, sessions session.Store, tokens *auth.TokenService, botName string) *Service {
	return &Service{
		tx:       tx,
		pairings: pairings,
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		botName:  botName,
	}
}

// Generate creates a pairing record with a fresh key and returns the key
// together with the deep link that embeds it
func (s *Service) Generate(ctx context.Context) (string, string, error) {
	authKey := uuid.NewString()
	if err := s.pairings.Create(authKey); err != nil {
		return "", "", err
	}

	link := fmt.Sprintf("https://t.me/%s?start=%s", s.botName, authKey)
	return authKey, link, nil
}

// Confirm is called by the bot once the user has opened the deep link.
// It binds the chat id to the pairing and auto-provisions a minimal
// identity on first contact, all inside one transaction.
func (s *Service) Confirm(ctx context.Context, authKey, chatID string) error {
	return s.tx.Do(ctx, func(pairings Repository, users user.Repository, roles role.Repository) error {
		p, err := pairings.FindByKey(authKey)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return auth.ErrPairingNotFound
			}
			return err
		}

		u, err := users.FindByTelegramID(chatID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			u, err = provisionUser(users, roles, chatID)
			if err != nil {
				return err
			}
			slog.Debug("Auto-provisioned identity for chat", "user_id", u.ID, "chat_id", chatID)
		} else {
			u.TelegramID = &chatID
			if err := users.Update(u); err != nil {
				return err
			}
		}

		return pairings.AttachChat(p.ID, chatID)
	})
}

// CompleteLogin exchanges a confirmed pairing key for a session and token.
// A key the bot has not confirmed yet fails as identity-not-found so the
// client can keep polling until the confirmation lands.
func (s *Service) CompleteLogin(ctx context.Context, authKey string) (string, error) {
	p, err := s.pairings.FindByKey(authKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", auth.ErrTokenInvalid
		}
		return "", err
	}

	if p.ChatID == nil {
		return "", auth.ErrIdentityNotFound
	}

	u, err := s.users.FindByTelegramID(*p.ChatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", auth.ErrIdentityNotFound
		}
		return "", err
	}

	sessionID, err := s.sessions.Create(ctx, u.ID, u.RoleNames(), botDevice(*p.ChatID))
	if err != nil {
		return "", err
	}
	slog.Debug("Session created via pairing", "session_id", sessionID, "user_id", u.ID)

	return s.tokens.Issue(u, sessionID)
}

func provisionUser(users user.Repository, roles role.Repository, chatID string) (*user.User, error) {
	defaultRole, err := roles.FindByName(role.DefaultName)
	if err != nil {
		return nil, fmt.Errorf("default role missing: %w", err)
	}

	password, err := user.HashPassword(uuid.NewString())
	if err != nil {
		return nil, err
	}

	u := &user.User{
		Login:        uuid.NewString() + "@tg.local",
		Password:     password,
		Name:         "user_" + chatID,
		TelegramID:   &chatID,
		TelegramName: chatID,
		Roles:        []role.Role{*defaultRole},
	}

	if err := users.Create(u); err != nil {
		return nil, err
	}
	return u, nil
}

func botDevice(chatID string) session.DeviceInfo {
	return session.DeviceInfo{
		DeviceID:   "telegram_" + chatID,
		DeviceName: "Telegram Bot",
		DeviceType: "mobile",
		Browser:    "Telegram",
		OS:         "Telegram",
	}
}
