package auth

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Limiter counts failed logins per key and locks a key once it reaches the
// attempt limit.
type Limiter interface {
	// Locked returns how long key stays locked, or 0.
	Locked(ctx context.Context, key string) (time.Duration, error)
	// Fail records a failure and returns the attempt count so far. When the
	// limit is reached the key locks and lock is the lockout duration.
	Fail(ctx context.Context, key string) (attempts int, lock time.Duration, err error)
	// Reset clears the count after a successful login.
	Reset(ctx context.Context, key string) error
}

type attemptState struct {
	attempts    int
	lockedUntil time.Time
}

// MemoryLimiter keeps counters in process.
type MemoryLimiter struct {
	mu          sync.Mutex
	clock       clockwork.Clock
	maxAttempts int
	lockout     time.Duration
	state       map[string]*attemptState
}

func NewMemoryLimiter(clock clockwork.Clock, maxAttempts int, lockout time.Duration) *MemoryLimiter {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if lockout <= 0 {
		lockout = DefaultLockout
	}
	return &MemoryLimiter{
		clock:       clock,
		maxAttempts: maxAttempts,
		lockout:     lockout,
		state:       make(map[string]*attemptState),
	}
}

var _ Limiter = (*MemoryLimiter)(nil)

func (l *MemoryLimiter) Locked(ctx context.Context, key string) (time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lockedLocked(key), nil
}

func (l *MemoryLimiter) lockedLocked(key string) time.Duration {
	st, ok := l.state[key]
	if !ok || st.lockedUntil.IsZero() {
		return 0
	}
	remaining := st.lockedUntil.Sub(l.clock.Now())
	if remaining <= 0 {
		delete(l.state, key)
		return 0
	}
	return remaining
}

func (l *MemoryLimiter) Fail(ctx context.Context, key string) (int, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if remaining := l.lockedLocked(key); remaining > 0 {
		return l.maxAttempts, remaining, nil
	}
	st, ok := l.state[key]
	if !ok {
		st = &attemptState{}
		l.state[key] = st
	}
	st.attempts++
	if st.attempts >= l.maxAttempts {
		st.lockedUntil = l.clock.Now().Add(l.lockout)
		return st.attempts, l.lockout, nil
	}
	return st.attempts, 0, nil
}

func (l *MemoryLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.state, key)
	return nil
}
