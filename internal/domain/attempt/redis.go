package attempt

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hallgard/authgate/internal/cache"
)

const attemptKeyPrefix = "login_attempts:"

// redisTracker shares attempt counters through the cache store so every
// instance of the service sees the same counts. Records carry a TTL of one
// block window, so an idle counter expires at the window boundary instead
// of lingering like the in-memory tracker's does.
type redisTracker struct {
	store       cache.Store
	maxAttempts int
	blockWindow time.Duration
}

// NewRedisTracker creates a tracker backed by the shared cache store
func NewRedisTracker(store cache.Store, maxAttempts int, blockWindow time.Duration) Tracker {
	return &redisTracker{
		store:       store,
		maxAttempts: maxAttempts,
		blockWindow: blockWindow,
	}
}

func (t *redisTracker) key(login string) string {
	return attemptKeyPrefix + login
}

func (t *redisTracker) load(ctx context.Context, login string) *record {
	raw, err := t.store.Get(ctx, t.key(login))
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			slog.Warn("Failed to read attempt record", "error", err, "login", login)
		}
		return nil
	}

	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil
	}
	return &rec
}

func (t *redisTracker) RecordAttempt(ctx context.Context, login string) {
	now := time.Now()

	rec := t.load(ctx, login)
	if rec == nil {
		rec = &record{LastAttempt: now}
	}

	if now.Sub(rec.LastAttempt) > t.blockWindow {
		rec.Count = 0
	}

	rec.Count++
	rec.LastAttempt = now

	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := t.store.Set(ctx, t.key(login), string(data), t.blockWindow); err != nil {
		slog.Warn("Failed to store attempt record", "error", err, "login", login)
	}
}

func (t *redisTracker) IsBlocked(ctx context.Context, login string) bool {
	rec := t.load(ctx, login)
	if rec == nil {
		return false
	}
	return rec.Count >= t.maxAttempts
}

func (t *redisTracker) Reset(ctx context.Context, login string) {
	if err := t.store.Del(ctx, t.key(login)); err != nil {
		slog.Warn("Failed to reset attempt record", "error", err, "login", login)
	}
}
