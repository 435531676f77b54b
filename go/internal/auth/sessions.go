package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/courtside/livescore/go/internal/tree"
)

const SessionDuration = 12 * time.Hour

// Session is an issued login.
type Session struct {
	Token     string    `json:"token"`
	Role      Role      `json:"role"`
	Court     string    `json:"court,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Allows reports whether the session may act as role on court. Admin
// sessions may do anything; court-bound scorers only touch their court.
func (s *Session) Allows(role Role, court string) bool {
	if s.Role == RoleAdmin {
		return true
	}
	if s.Role != role {
		return false
	}
	if court != "" && s.Court != "" && tree.CourtKey(court) != tree.CourtKey(s.Court) {
		return false
	}
	return true
}

// Sessions keeps issued tokens in memory.
type Sessions struct {
	mu     sync.Mutex
	clock  clockwork.Clock
	ttl    time.Duration
	tokens map[string]*Session
}

func NewSessions(clock clockwork.Clock, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = SessionDuration
	}
	return &Sessions{clock: clock, ttl: ttl, tokens: make(map[string]*Session)}
}

// Create issues a new token.
func (s *Sessions) Create(role Role, court string) *Session {
	now := s.clock.Now()
	sess := &Session{
		Token:     uuid.NewString(),
		Role:      role,
		Court:     court,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	s.mu.Lock()
	s.tokens[sess.Token] = sess
	s.mu.Unlock()
	cp := *sess
	return &cp
}

// Lookup returns the live session for token.
func (s *Sessions) Lookup(token string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.tokens[token]
	if !ok {
		return nil, false
	}
	if !s.clock.Now().Before(sess.ExpiresAt) {
		delete(s.tokens, token)
		return nil, false
	}
	cp := *sess
	return &cp, true
}

// Logout revokes token. Unknown tokens are ignored.
func (s *Sessions) Logout(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}
