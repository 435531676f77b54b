package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "courtside.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Fatalf("cfg = %+v", cfg)
	}
	if got := cfg.SessionPaths(); !reflect.DeepEqual(got, []string{"matches/current"}) {
		t.Fatalf("paths = %v", got)
	}
	r := cfg.Registry()
	if r.ScoreDelay != 3*time.Second || r.Settings.QuarterMinutes != 10 {
		t.Fatalf("registry = %+v", r)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
courts: ["Court A", "Center Court"]
match:
  quarter_minutes: 8
  score_delay_ms: 1500
auth:
  lockout_minutes: 5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	s := cfg.Settings()
	if s.QuarterMinutes != 8 || s.FoulLimit != 5 || !reflect.DeepEqual(s.TimeoutBudget, []int{2, 2, 2, 4}) {
		t.Fatalf("settings = %+v", s)
	}
	if cfg.Registry().ScoreDelay != 1500*time.Millisecond {
		t.Fatalf("delay = %v", cfg.Registry().ScoreDelay)
	}
	if cfg.Lockout() != 5*time.Minute || cfg.Auth.MaxAttempts != 5 {
		t.Fatalf("auth = %+v", cfg.Auth)
	}
	want := []string{"matches/court_a", "matches/center_court"}
	if got := cfg.SessionPaths(); !reflect.DeepEqual(got, want) {
		t.Fatalf("paths = %v, want %v", got, want)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"quarter too long", "match:\n  quarter_minutes: 25\n", "quarter_minutes"},
		{"bad mode", "default_court_mode: arena\n", "default_court_mode"},
		{"short budget", "match:\n  timeouts_per_quarter: [2, 2]\n", "timeouts_per_quarter"},
		{"clashing courts", "courts: [\"Court A\", \"court a\"]\n", "share the key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestCourtPasswords(t *testing.T) {
	t.Setenv("COURT_COURT_A_PASSWORD", "alpha1")
	t.Setenv("COURT_CENTER_COURT_PASSWORD", "center1")
	got := CourtPasswords([]string{"Court A", "Center Court", "Court B"})
	want := map[string]string{"Court A": "alpha1", "Center Court": "center1"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("passwords = %v", got)
	}
}
