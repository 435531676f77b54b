package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func newTestAuthenticator(clock clockwork.Clock) *Authenticator {
	cfg := Config{
		AdminPassword:     "admin-secret",
		ScorerPassword:    "scorer-secret",
		SchedulerPassword: "schedule-secret",
		CourtPasswords:    map[string]string{"Court A": "courtA123", "Court B": "courtB123"},
		MaxAttempts:       5,
		Lockout:           15 * time.Minute,
	}
	return NewAuthenticator(cfg,
		NewMemoryLimiter(clock, cfg.MaxAttempts, cfg.Lockout),
		NewSessions(clock, time.Hour),
	)
}

func TestLoginRoles(t *testing.T) {
	a := newTestAuthenticator(clockwork.NewFakeClock())
	tests := []struct {
		name     string
		req      LoginRequest
		wantRole Role
		wantErr  error
	}{
		{"court password", LoginRequest{Role: RoleScorer, Court: "Court A", Password: "courtA123"}, RoleScorer, nil},
		{"court key form", LoginRequest{Role: RoleScorer, Court: "court_b", Password: "courtB123"}, RoleScorer, nil},
		{"wrong court", LoginRequest{Role: RoleScorer, Court: "Court A", Password: "courtB123"}, "", ErrInvalidPassword},
		{"global scorer", LoginRequest{Role: RoleScorer, Password: "scorer-secret"}, RoleScorer, nil},
		{"admin everywhere", LoginRequest{Role: RoleScheduler, Password: "admin-secret"}, RoleAdmin, nil},
		{"scheduler", LoginRequest{Role: RoleScheduler, Password: " schedule-secret "}, RoleScheduler, nil},
		{"scorer cannot schedule", LoginRequest{Role: RoleScheduler, Password: "scorer-secret"}, "", ErrInvalidPassword},
		{"too short", LoginRequest{Role: RoleAdmin, Password: " ab "}, "", ErrInvalidPassword},
		{"unknown role", LoginRequest{Role: "referee", Password: "admin-secret"}, "", ErrUnknownRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := a.Login(context.Background(), tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s.Role != tt.wantRole {
				t.Fatalf("role = %s, want %s", s.Role, tt.wantRole)
			}
			if _, ok := a.Sessions().Lookup(s.Token); !ok {
				t.Fatal("issued token not found")
			}
		})
	}
}

func TestLockoutAfterFiveFailures(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a := newTestAuthenticator(clock)
	ctx := context.Background()
	bad := LoginRequest{Role: RoleScorer, Court: "Court A", Password: "nope", Client: "10.0.0.1"}

	wantMessages := []string{
		"Invalid password. 4 attempts remaining.",
		"Invalid password. 3 attempts remaining.",
		"Invalid password. 2 attempts remaining.",
		"Invalid password. 1 attempts remaining.",
		"Too many failed attempts. Locked out for 15 minutes.",
	}
	for _, want := range wantMessages {
		_, err := a.Login(ctx, bad)
		if err == nil || err.Error() != want {
			t.Fatalf("error = %v, want %q", err, want)
		}
	}

	good := bad
	good.Password = "courtA123"
	clock.Advance(5 * time.Minute)
	_, err := a.Login(ctx, good)
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("error = %v, want ErrLocked", err)
	}
	if err.Error() != "Too many failed attempts. Locked out for 10 more minutes." {
		t.Fatalf("message = %q", err.Error())
	}

	other := good
	other.Client = "10.0.0.2"
	if _, err := a.Login(ctx, other); err != nil {
		t.Fatalf("other client should not be locked: %v", err)
	}

	clock.Advance(10 * time.Minute)
	if _, err := a.Login(ctx, good); err != nil {
		t.Fatalf("login after lockout expired: %v", err)
	}
}

func TestSuccessResetsAttempts(t *testing.T) {
	a := newTestAuthenticator(clockwork.NewFakeClock())
	ctx := context.Background()
	bad := LoginRequest{Role: RoleAdmin, Password: "wrong"}
	for i := 0; i < 4; i++ {
		_, _ = a.Login(ctx, bad)
	}
	if _, err := a.Login(ctx, LoginRequest{Role: RoleAdmin, Password: "admin-secret"}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	_, err := a.Login(ctx, bad)
	if err == nil || err.Error() != "Invalid password. 4 attempts remaining." {
		t.Fatalf("counter not reset: %v", err)
	}
}

func TestSessionsExpireAndAllow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sessions := NewSessions(clock, time.Hour)

	scorer := sessions.Create(RoleScorer, "Court A")
	if !scorer.Allows(RoleScorer, "court_a") {
		t.Fatal("scorer should reach own court")
	}
	if scorer.Allows(RoleScorer, "Court B") {
		t.Fatal("scorer reached another court")
	}
	if scorer.Allows(RoleScheduler, "") {
		t.Fatal("scorer reached scheduler role")
	}
	admin := sessions.Create(RoleAdmin, "")
	if !admin.Allows(RoleScheduler, "") || !admin.Allows(RoleScorer, "Court C") {
		t.Fatal("admin should be allowed everywhere")
	}

	sessions.Logout(admin.Token)
	if _, ok := sessions.Lookup(admin.Token); ok {
		t.Fatal("token survived logout")
	}

	clock.Advance(time.Hour)
	if _, ok := sessions.Lookup(scorer.Token); ok {
		t.Fatal("token survived expiry")
	}
}
