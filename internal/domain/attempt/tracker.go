package attempt

import (
	"context"
	"sync"
	"time"
)

// Tracker counts failed login attempts per login and decides blocking.
// Implementations are pluggable: the in-memory tracker enforces throttling
// per process instance, the redis tracker shares counters across instances.
type Tracker interface {
	// RecordAttempt registers one failed attempt for the login. If the
	// previous attempt is older than the block window the counter restarts
	// at one.
	RecordAttempt(ctx context.Context, login string)
	// IsBlocked reports whether the login has reached the attempt cap.
	// It does not apply window expiry itself; only RecordAttempt does.
	IsBlocked(ctx context.Context, login string) bool
	// Reset clears the counter after a successful credential check.
	Reset(ctx context.Context, login string)
}

type record struct {
	Count       int       `json:"count"`
	LastAttempt time.Time `json:"lastAttempt"`
}

// memoryTracker keeps counters in process memory with no persistence.
// Staleness is resolved lazily inside RecordAttempt; there is no sweep.
type memoryTracker struct {
	mu          sync.Mutex
	attempts    map[string]*record
	maxAttempts int
	blockWindow time.Duration
}

// NewMemoryTracker creates a process-local tracker
func NewMemoryTracker(maxAttempts int, blockWindow time.Duration) Tracker {
	return &memoryTracker{
		attempts:    make(map[string]*record),
		maxAttempts: maxAttempts,
		blockWindow: blockWindow,
	}
}

func (t *memoryTracker) RecordAttempt(_ context.Context, login string) {
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.attempts[login]
	if !ok {
		rec = &record{LastAttempt: now}
		t.attempts[login] = rec
	}

	if now.Sub(rec.LastAttempt) > t.blockWindow {
		rec.Count = 0
	}

	rec.Count++
	rec.LastAttempt = now
}

func (t *memoryTracker) IsBlocked(_ context.Context, login string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.attempts[login]
	if !ok {
		return false
	}

	return rec.Count >= t.maxAttempts
}

func (t *memoryTracker) Reset(_ context.Context, login string) {
	t.mu.Lock()
	delete(t.attempts, login)
	t.mu.Unlock()
}
