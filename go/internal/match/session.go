package match

import (
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/courtside/livescore/go/internal/models"
)

// Settings are the tournament rules a session is played under.
type Settings struct {
	QuarterMinutes   int
	OvertimeMinutes  int
	TimeoutSeconds   int
	TimeoutBudget    []int // per regulation quarter, q1..q4
	OvertimeTimeouts int   // per overtime period
	FoulLimit        int
	TeamFoulBonus    int
	OnCourt          int
}

// DefaultSettings returns the standard tournament rules.
func DefaultSettings() Settings {
	return Settings{
		QuarterMinutes:   models.DefaultQuarterMinutes,
		OvertimeMinutes:  3,
		TimeoutSeconds:   models.DefaultTimeoutSeconds,
		TimeoutBudget:    append([]int{}, models.DefaultTimeoutBudget...),
		OvertimeTimeouts: 1,
		FoulLimit:        5,
		TeamFoulBonus:    5,
		OnCourt:          5,
	}
}

// Rejection is a validation failure. The session is unchanged when an
// operation returns one.
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string { return r.Reason }

func reject(format string, args ...any) error {
	return &Rejection{Reason: fmt.Sprintf(format, args...)}
}

// IsRejection reports whether err is a validation rejection.
func IsRejection(err error) bool {
	var r *Rejection
	return errors.As(err, &r)
}

// Session is the scorer-side state machine for one live match. It performs
// no I/O; callers persist State() after every successful operation.
//
// Session is not safe for concurrent use.
type Session struct {
	settings Settings
	clock    clockwork.Clock
	state    *models.MatchSession
	selected string
	notices  []string
}

// NewSession returns a session in the menu stage.
func NewSession(settings Settings, clock clockwork.Clock) *Session {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s := &Session{settings: settings, clock: clock}
	s.state = s.blank(models.DefaultCourt)
	return s
}

// Restore rebuilds a session from a previously stored state.
func Restore(settings Settings, clock clockwork.Clock, state *models.MatchSession) *Session {
	s := NewSession(settings, clock)
	if state == nil {
		return s
	}
	s.state = state.Clone()
	s.carryUnledgeredPoints()
	s.recompute()
	return s
}

func (s *Session) blank(court string) *models.MatchSession {
	m := models.NewMatchSession()
	m.Court = court
	m.QuarterDuration = s.settings.QuarterMinutes
	m.TimerSeconds = s.settings.QuarterMinutes * 60
	m.TimeoutSeconds = s.settings.TimeoutSeconds
	m.Timeouts = models.NewTeamCounters()
	models.SeedTimeouts(&m.Timeouts, s.settings.TimeoutBudget)
	return m
}

// State returns a copy of the current match state.
func (s *Session) State() *models.MatchSession {
	return s.state.Clone()
}

// Snapshot captures everything an operation may change.
type Snapshot struct {
	state    *models.MatchSession
	selected string
}

// Snapshot returns a copy of the session for a later Rollback.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{state: s.state.Clone(), selected: s.selected}
}

// Rollback returns the session to snap and drops pending notices.
func (s *Session) Rollback(snap Snapshot) {
	s.state = snap.state.Clone()
	s.selected = snap.selected
	s.notices = nil
}

// Settings returns the rules in effect.
func (s *Session) Settings() Settings {
	return s.settings
}

// Selected returns the player currently selected for scoring, if any.
func (s *Session) Selected() string {
	return s.selected
}

// Notices returns and clears the user-facing messages produced since the
// last call.
func (s *Session) Notices() []string {
	out := s.notices
	s.notices = nil
	return out
}

func (s *Session) notify(format string, args ...any) {
	s.notices = append(s.notices, fmt.Sprintf(format, args...))
}

func (s *Session) requireStage(stage models.Stage) error {
	if s.state.MatchStage != stage {
		return reject("Not available during %s", s.state.MatchStage)
	}
	return nil
}

func (s *Session) periodSeconds() int {
	if s.state.IsOvertime {
		return s.settings.OvertimeMinutes * 60
	}
	return s.state.QuarterDuration * 60
}

// carryUnledgeredPoints covers snapshots written without a ledger: points
// with no backing events are kept as a single period-less event.
func (s *Session) carryUnledgeredPoints() {
	for id, p := range s.state.Players {
		sum := 0
		for _, ev := range s.state.Ledger[id] {
			if ev.Kind == models.LedgerPoints {
				sum += ev.Delta
			}
		}
		if p.Points > sum {
			s.state.Ledger[id] = append([]models.LedgerEvent{{
				Kind:  models.LedgerPoints,
				Delta: p.Points - sum,
			}}, s.state.Ledger[id]...)
		}
	}
}
