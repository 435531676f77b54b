// Package config loads the tournament file and the env settings shared by
// the API server, the relay and the gateway.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/courtside/livescore/go/internal/match"
	"github.com/courtside/livescore/go/internal/scoring"
	"github.com/courtside/livescore/go/internal/tree"
)

const DefaultPath = "config/courtside.yaml"

// File is the tournament configuration.
type File struct {
	Courts           []string    `yaml:"courts"`
	DefaultCourtMode string      `yaml:"default_court_mode"`
	Match            MatchConfig `yaml:"match"`
	Auth             AuthConfig  `yaml:"auth"`
}

type MatchConfig struct {
	QuarterMinutes     int   `yaml:"quarter_minutes"`
	OvertimeMinutes    int   `yaml:"overtime_minutes"`
	TimeoutSeconds     int   `yaml:"timeout_seconds"`
	TimeoutsPerQuarter []int `yaml:"timeouts_per_quarter"`
	OvertimeTimeouts   int   `yaml:"overtime_timeouts"`
	ScoreDelayMS       int   `yaml:"score_delay_ms"`
	FoulLimit          int   `yaml:"foul_limit"`
	TeamFoulBonus      int   `yaml:"team_foul_bonus"`
}

type AuthConfig struct {
	MaxAttempts    int `yaml:"max_attempts"`
	LockoutMinutes int `yaml:"lockout_minutes"`
}

// Default is the configuration used when no file exists.
func Default() *File {
	s := match.DefaultSettings()
	return &File{
		DefaultCourtMode: string(scoring.ModeCourt),
		Match: MatchConfig{
			QuarterMinutes:     s.QuarterMinutes,
			OvertimeMinutes:    s.OvertimeMinutes,
			TimeoutSeconds:     s.TimeoutSeconds,
			TimeoutsPerQuarter: s.TimeoutBudget,
			OvertimeTimeouts:   s.OvertimeTimeouts,
			ScoreDelayMS:       3000,
			FoulLimit:          s.FoulLimit,
			TeamFoulBonus:      s.TeamFoulBonus,
		},
		Auth: AuthConfig{MaxAttempts: 5, LockoutMinutes: 15},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*File, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("path", path).Msg("config file not found, using defaults")
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (f *File) validate() error {
	switch scoring.Mode(f.DefaultCourtMode) {
	case scoring.ModeCurrent, scoring.ModeCourt:
	default:
		return fmt.Errorf("invalid default_court_mode %q", f.DefaultCourtMode)
	}
	if m := f.Match.QuarterMinutes; m < 1 || m > 20 {
		return fmt.Errorf("quarter_minutes must be between 1 and 20, got %d", m)
	}
	if len(f.Match.TimeoutsPerQuarter) != 4 {
		return fmt.Errorf("timeouts_per_quarter needs 4 entries, got %d", len(f.Match.TimeoutsPerQuarter))
	}
	if f.Match.ScoreDelayMS < 0 {
		return fmt.Errorf("score_delay_ms must not be negative")
	}
	seen := make(map[string]string, len(f.Courts))
	for _, c := range f.Courts {
		key := tree.CourtKey(c)
		if key == "" {
			return fmt.Errorf("court names must not be blank")
		}
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("courts %q and %q share the key %s", prev, c, key)
		}
		seen[key] = c
	}
	return nil
}

// Settings converts the match section into match rules.
func (f *File) Settings() match.Settings {
	s := match.DefaultSettings()
	m := f.Match
	s.QuarterMinutes = m.QuarterMinutes
	if m.OvertimeMinutes > 0 {
		s.OvertimeMinutes = m.OvertimeMinutes
	}
	if m.TimeoutSeconds > 0 {
		s.TimeoutSeconds = m.TimeoutSeconds
	}
	s.TimeoutBudget = append([]int(nil), m.TimeoutsPerQuarter...)
	if m.OvertimeTimeouts > 0 {
		s.OvertimeTimeouts = m.OvertimeTimeouts
	}
	if m.FoulLimit > 0 {
		s.FoulLimit = m.FoulLimit
	}
	if m.TeamFoulBonus > 0 {
		s.TeamFoulBonus = m.TeamFoulBonus
	}
	return s
}

// Registry is the controller registry configuration.
func (f *File) Registry() scoring.RegistryConfig {
	return scoring.RegistryConfig{
		Mode:       scoring.Mode(f.DefaultCourtMode),
		Courts:     append([]string(nil), f.Courts...),
		Settings:   f.Settings(),
		ScoreDelay: time.Duration(f.Match.ScoreDelayMS) * time.Millisecond,
	}
}

// SessionPaths lists the tree paths scorers write sessions to.
func (f *File) SessionPaths() []string {
	return scoring.NewRegistry(scoring.Deps{}, f.Registry()).SessionPaths()
}

func (f *File) Lockout() time.Duration {
	return time.Duration(f.Auth.LockoutMinutes) * time.Minute
}

// CourtPasswords reads COURT_<KEY>_PASSWORD for each court, e.g.
// COURT_COURT_A_PASSWORD for "Court A".
func CourtPasswords(courts []string) map[string]string {
	out := make(map[string]string, len(courts))
	for _, c := range courts {
		env := fmt.Sprintf("COURT_%s_PASSWORD", strings.ToUpper(tree.CourtKey(c)))
		if pw := os.Getenv(env); pw != "" {
			out[c] = pw
		}
	}
	return out
}

func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// SetupLogging points the global logger at the console with LOG_LEVEL.
func SetupLogging() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	level, err := zerolog.ParseLevel(GetEnv("LOG_LEVEL", "info"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
