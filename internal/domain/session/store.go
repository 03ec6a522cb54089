package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hallgard/authgate/internal/cache"
)

const (
	sessionKeyPrefix      = "session:"
	userSessionsKeyPrefix = "user_sessions:"
)

// ErrNotFound is returned when a session does not exist or has expired
var ErrNotFound = errors.New("session not found")

// Store manages session records in the cache and the per-user index set
type Store interface {
	Create(ctx context.Context, userID uint, roles []string, device DeviceInfo) (string, error)
	Get(ctx context.Context, id string) (*Session, error)
	Refresh(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	UserSessions(ctx context.Context, userID uint) ([]Session, error)
	DeleteAllUserSessions(ctx context.Context, userID uint) error
}

type store struct {
	cache       cache.Store
	ttl         time.Duration
	maxSessions int
}

// NewStore creates a session Store over the given cache with the configured
// TTL and per-user session cap.
func NewStore(c cache.Store, ttl time.Duration, maxSessions int) Store {
	return &store{
		cache:       c,
		ttl:         ttl,
		maxSessions: maxSessions,
	}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func userSessionsKey(userID uint) string {
	return fmt.Sprintf("%s%d", userSessionsKeyPrefix, userID)
}

// Create stores a new session for the user. When the user already holds the
// maximum number of sessions, the one with the oldest creation time is
// evicted first. The count check and the write are not atomic; near the cap
// two concurrent creates can both pass, so the cap is soft.
func (s *store) Create(ctx context.Context, userID uint, roles []string, device DeviceInfo) (string, error) {
	existing, err := s.UserSessions(ctx, userID)
	if err != nil {
		return "", err
	}

	if len(existing) >= s.maxSessions {
		oldest := existing[0]
		for _, sess := range existing[1:] {
			if sess.CreatedAt.Before(oldest.CreatedAt) {
				oldest = sess
			}
		}
		if err := s.Delete(ctx, oldest.ID); err != nil {
			return "", err
		}
		slog.Debug("Evicted oldest session", "session_id", oldest.ID, "user_id", userID)
	}

	now := time.Now()
	sess := Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Roles:     roles,
		Device:    device,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.write(ctx, &sess, s.ttl); err != nil {
		return "", err
	}

	if err := s.cache.SAdd(ctx, userSessionsKey(userID), sess.ID); err != nil {
		return "", err
	}

	return sess.ID, nil
}

// Get reads a session. A record whose expiry has passed is deleted and
// reported as not found even if the cache TTL has not fired yet.
func (s *store) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := s.cache.Get(ctx, sessionKey(id))
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}

	if time.Now().After(sess.ExpiresAt) {
		slog.Debug("Session expired", "session_id", id)
		if err := s.Delete(ctx, id); err != nil {
			slog.Warn("Failed to delete expired session", "error", err, "session_id", id)
		}
		return nil, ErrNotFound
	}

	return &sess, nil
}

// Refresh slides the session expiry forward by one TTL. Missing sessions
// are silently ignored.
func (s *store) Refresh(ctx context.Context, id string) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}

	sess.ExpiresAt = time.Now().Add(s.ttl)
	return s.write(ctx, sess, s.ttl)
}

// Delete removes the session record and its entry in the user's index
func (s *store) Delete(ctx context.Context, id string) error {
	raw, err := s.cache.Get(ctx, sessionKey(id))
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil
		}
		return err
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return fmt.Errorf("failed to decode session %s: %w", id, err)
	}

	if err := s.cache.Del(ctx, sessionKey(id)); err != nil {
		return err
	}

	return s.cache.SRem(ctx, userSessionsKey(sess.UserID), id)
}

// UserSessions resolves every id in the user's index set. Ids that no
// longer resolve are pruned from the index as a side effect.
func (s *store) UserSessions(ctx context.Context, userID uint) ([]Session, error) {
	ids, err := s.cache.SMembers(ctx, userSessionsKey(userID))
	if err != nil {
		return nil, err
	}

	sessions := make([]Session, 0, len(ids))
	var stale []string

	for _, id := range ids {
		sess, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				stale = append(stale, id)
				continue
			}
			return nil, err
		}
		sessions = append(sessions, *sess)
	}

	if len(stale) > 0 {
		slog.Debug("Cleaning up stale session ids", "count", len(stale), "user_id", userID)
		for _, id := range stale {
			if err := s.cache.SRem(ctx, userSessionsKey(userID), id); err != nil {
				slog.Warn("Failed to prune stale session id", "error", err, "session_id", id)
			}
		}
	}

	return sessions, nil
}

// DeleteAllUserSessions removes every session in the user's index
func (s *store) DeleteAllUserSessions(ctx context.Context, userID uint) error {
	ids, err := s.cache.SMembers(ctx, userSessionsKey(userID))
	if err != nil {
		return err
	}

	for _, id := range ids {
		if err := s.Delete(ctx, id); err != nil {
			return err
		}
	}

	return nil
}

func (s *store) write(ctx context.Context, sess *Session, ttl time.Duration) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", sess.ID, err)
	}
	return s.cache.Set(ctx, sessionKey(sess.ID), string(data), ttl)
}
