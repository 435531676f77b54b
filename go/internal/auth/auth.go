// Package auth gates the scorer, scheduler and admin surfaces behind shared
// passwords with a per-client lockout after repeated failures.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/courtside/livescore/go/internal/tree"
)

// Role is what a session may do.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleScorer    Role = "scorer"
	RoleScheduler Role = "scheduler"
)

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleScorer, RoleScheduler:
		return r, true
	}
	return "", false
}

const (
	DefaultMaxAttempts = 5
	DefaultLockout     = 15 * time.Minute
	MinPasswordLength  = 3
)

var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrLocked          = errors.New("locked out")
	ErrUnknownRole     = errors.New("unknown role")
)

// LoginError carries the user-facing message for a failed login.
type LoginError struct {
	Err     error
	Message string
}

func (e *LoginError) Error() string { return e.Message }
func (e *LoginError) Unwrap() error { return e.Err }

// Config holds the configured passwords. Empty passwords never match.
type Config struct {
	AdminPassword     string
	ScorerPassword    string
	SchedulerPassword string
	// CourtPasswords maps court display names to scorer passwords.
	CourtPasswords map[string]string
	MaxAttempts    int
	Lockout        time.Duration
}

// LoginRequest is one password attempt.
type LoginRequest struct {
	Role     Role
	Court    string
	Password string
	// Client identifies the caller for lockout accounting, e.g. a remote IP.
	Client string
}

type Authenticator struct {
	cfg      Config
	limiter  Limiter
	sessions *Sessions
	courts   map[string]string
}

func NewAuthenticator(cfg Config, limiter Limiter, sessions *Sessions) *Authenticator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Lockout <= 0 {
		cfg.Lockout = DefaultLockout
	}
	courts := make(map[string]string, len(cfg.CourtPasswords))
	for name, pw := range cfg.CourtPasswords {
		courts[tree.CourtKey(name)] = pw
	}
	return &Authenticator{cfg: cfg, limiter: limiter, sessions: sessions, courts: courts}
}

// Sessions returns the token store logins are issued from.
func (a *Authenticator) Sessions() *Sessions { return a.sessions }

// Login checks a password and issues a session token. Failures count toward
// a lockout keyed by role, court and client.
func (a *Authenticator) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	if _, ok := ParseRole(string(req.Role)); !ok {
		return nil, &LoginError{Err: ErrUnknownRole, Message: "Unknown role."}
	}
	password := strings.TrimSpace(req.Password)
	if len(password) < MinPasswordLength {
		return nil, &LoginError{
			Err:     ErrInvalidPassword,
			Message: fmt.Sprintf("Password must be at least %d characters.", MinPasswordLength),
		}
	}

	key := limiterKey(req)
	remaining, err := a.limiter.Locked(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check lockout: %w", err)
	}
	if remaining > 0 {
		return nil, lockedError(remaining)
	}

	role, ok := a.match(req.Role, req.Court, password)
	if !ok {
		attempts, lock, err := a.limiter.Fail(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to record login attempt: %w", err)
		}
		log.Warn().
			Str("role", string(req.Role)).
			Str("court", req.Court).
			Int("attempts", attempts).
			Msg("failed login")
		if lock > 0 {
			return nil, &LoginError{
				Err:     ErrLocked,
				Message: fmt.Sprintf("Too many failed attempts. Locked out for %d minutes.", minutes(lock)),
			}
		}
		return nil, &LoginError{
			Err:     ErrInvalidPassword,
			Message: fmt.Sprintf("Invalid password. %d attempts remaining.", a.cfg.MaxAttempts-attempts),
		}
	}

	if err := a.limiter.Reset(ctx, key); err != nil {
		log.Error().Err(err).Msg("failed to reset login attempts")
	}
	s := a.sessions.Create(role, req.Court)
	log.Info().Str("role", string(role)).Str("court", req.Court).Msg("login")
	return s, nil
}

// match reports the role granted by password. The admin password grants
// admin on every surface.
func (a *Authenticator) match(role Role, court, password string) (Role, bool) {
	if equal(password, a.cfg.AdminPassword) {
		return RoleAdmin, true
	}
	switch role {
	case RoleScorer:
		if court != "" && equal(password, a.courts[tree.CourtKey(court)]) {
			return RoleScorer, true
		}
		if equal(password, a.cfg.ScorerPassword) {
			return RoleScorer, true
		}
	case RoleScheduler:
		if equal(password, a.cfg.SchedulerPassword) {
			return RoleScheduler, true
		}
	}
	return "", false
}

func equal(given, want string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(want)) == 1
}

func limiterKey(req LoginRequest) string {
	court := tree.CourtKey(req.Court)
	if court == "" {
		court = "-"
	}
	client := req.Client
	if client == "" {
		client = "-"
	}
	return fmt.Sprintf("%s:%s:%s", req.Role, court, client)
}

func lockedError(remaining time.Duration) error {
	return &LoginError{
		Err:     ErrLocked,
		Message: fmt.Sprintf("Too many failed attempts. Locked out for %d more minutes.", minutes(remaining)),
	}
}

func minutes(d time.Duration) int {
	return int(math.Ceil(d.Minutes()))
}
