package models

import (
	"fmt"
	"strings"
)

// Stage is the match stage of a live session.
type Stage string

const (
	StageMenu           Stage = "menu"
	StageSetup          Stage = "setup"
	StageSelectPlaying5 Stage = "selectPlaying5"
	StageMatch          Stage = "match"
	StageFinished       Stage = "finished"
)

// Valid reports whether s is one of the known stages.
func (s Stage) Valid() bool {
	switch s {
	case StageMenu, StageSetup, StageSelectPlaying5, StageMatch, StageFinished:
		return true
	}
	return false
}

// Team identifies one side of a match.
type Team string

const (
	TeamA Team = "A"
	TeamB Team = "B"
)

// ParseTeam accepts "A"/"B" in any case, plus "teamA"/"teamB".
func ParseTeam(s string) (Team, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A", "TEAMA":
		return TeamA, true
	case "B", "TEAMB":
		return TeamB, true
	}
	return "", false
}

// Key returns the field key used in snapshots ("teamA" or "teamB").
func (t Team) Key() string {
	if t == TeamB {
		return "teamB"
	}
	return "teamA"
}

// Other returns the opposing team.
func (t Team) Other() Team {
	if t == TeamA {
		return TeamB
	}
	return TeamA
}

// PeriodKey returns the snapshot key for a period: q1..q4, then ot1, ot2...
func PeriodKey(quarter int) string {
	if quarter > RegulationPeriods {
		return fmt.Sprintf("ot%d", quarter-RegulationPeriods)
	}
	return fmt.Sprintf("q%d", quarter)
}

// RegulationPeriods is the number of regulation quarters.
const RegulationPeriods = 4

// PeriodScore is a per-team score for one period.
type PeriodScore struct {
	TeamA int `json:"teamA"`
	TeamB int `json:"teamB"`
}

// Get returns the score for team t.
func (p PeriodScore) Get(t Team) int {
	if t == TeamB {
		return p.TeamB
	}
	return p.TeamA
}

// Set returns a copy with team t's value replaced.
func (p PeriodScore) Set(t Team, v int) PeriodScore {
	if t == TeamB {
		p.TeamB = v
	} else {
		p.TeamA = v
	}
	return p
}

// TeamCounters holds one counter per period key for each team.
// Used for both timeout budgets and team foul tallies.
type TeamCounters struct {
	TeamA map[string]int `json:"teamA"`
	TeamB map[string]int `json:"teamB"`
}

// NewTeamCounters returns counters with empty maps.
func NewTeamCounters() TeamCounters {
	return TeamCounters{TeamA: map[string]int{}, TeamB: map[string]int{}}
}

// Get returns the counter for team t and period key.
func (c TeamCounters) Get(t Team, period string) int {
	if t == TeamB {
		return c.TeamB[period]
	}
	return c.TeamA[period]
}

// Set stores the counter for team t and period key.
func (c *TeamCounters) Set(t Team, period string, v int) {
	if c.TeamA == nil {
		c.TeamA = map[string]int{}
	}
	if c.TeamB == nil {
		c.TeamB = map[string]int{}
	}
	if t == TeamB {
		c.TeamB[period] = v
	} else {
		c.TeamA[period] = v
	}
}

func (c TeamCounters) clone() TeamCounters {
	out := NewTeamCounters()
	for k, v := range c.TeamA {
		out.TeamA[k] = v
	}
	for k, v := range c.TeamB {
		out.TeamB[k] = v
	}
	return out
}

// SessionPlayer is a player's live stat line inside a session.
type SessionPlayer struct {
	Name   string `json:"name"`
	Jersey string `json:"jersey"`
	Team   Team   `json:"team"`
	Points int    `json:"points"`
	Fouls  int    `json:"fouls"`
}

// LedgerKind is the type of a ledger entry.
type LedgerKind string

const (
	LedgerPoints LedgerKind = "points"
	LedgerFoul   LedgerKind = "foul"
)

// LedgerEvent is one scoring or foul event recorded against a player.
type LedgerEvent struct {
	Kind   LedgerKind `json:"kind"`
	Delta  int        `json:"delta"`
	Period string     `json:"period"`
	At     int64      `json:"at"`
}

// Bonus flags whether a team is in the team-foul penalty for the current period.
type Bonus struct {
	TeamA bool `json:"teamA"`
	TeamB bool `json:"teamB"`
}

// Substitution is an in-progress two-step substitution.
type Substitution struct {
	Team   Team   `json:"team"`
	OutID  string `json:"outId,omitempty"`
	Forced bool   `json:"forced"`
	// ResumeClock is set when the clock was running as the substitution began.
	ResumeClock bool `json:"resumeClock"`
}

// MatchSession is the full live state of one match, as stored under a
// session path in the tree.
type MatchSession struct {
	MatchID    string `json:"matchId,omitempty"`
	ScheduleID string `json:"scheduleId,omitempty"`
	Court      string `json:"court"`
	MatchType  string `json:"matchType"`
	RoundType  string `json:"roundType"`

	TeamA  string `json:"teamA"`
	TeamB  string `json:"teamB"`
	ScoreA int    `json:"scoreA"`
	ScoreB int    `json:"scoreB"`

	Quarter         int  `json:"quarter"`
	IsOvertime      bool `json:"isOvertime"`
	TimerSeconds    int  `json:"timerSeconds"`
	QuarterDuration int  `json:"quarterDuration"`
	IsRunning       bool `json:"isRunning"`

	QuarterScores map[string]PeriodScore `json:"quarterScores"`
	Timeouts      TeamCounters           `json:"timeouts"`
	TeamFouls     TeamCounters           `json:"teamFouls"`
	Bonus         Bonus                  `json:"bonus"`

	TimeoutActive  bool `json:"timeoutActive"`
	TimeoutTeam    Team `json:"timeoutTeam,omitempty"`
	TimeoutSeconds int  `json:"timeoutSeconds"`

	Players      map[string]SessionPlayer `json:"players"`
	TeamAPlaying []string                 `json:"teamAPlaying"`
	TeamBPlaying []string                 `json:"teamBPlaying"`
	Disqualified []string                 `json:"disqualified"`
	Ledger       map[string][]LedgerEvent `json:"ledger"`

	PendingSubstitution *Substitution `json:"pendingSubstitution,omitempty"`

	MatchStage    Stage `json:"matchStage"`
	PreviousStage Stage `json:"previousStage,omitempty"`
	LastUpdated   int64 `json:"lastUpdated"`
}

// Score returns the team score for t.
func (m *MatchSession) Score(t Team) int {
	if t == TeamB {
		return m.ScoreB
	}
	return m.ScoreA
}

// TeamName returns the display name for t.
func (m *MatchSession) TeamName(t Team) string {
	if t == TeamB {
		return m.TeamB
	}
	return m.TeamA
}

// Playing returns the on-court set for t.
func (m *MatchSession) Playing(t Team) []string {
	if t == TeamB {
		return m.TeamBPlaying
	}
	return m.TeamAPlaying
}

// SetPlaying replaces the on-court set for t.
func (m *MatchSession) SetPlaying(t Team, ids []string) {
	if t == TeamB {
		m.TeamBPlaying = ids
	} else {
		m.TeamAPlaying = ids
	}
}

// IsOnCourt reports whether the player is in their team's on-court set.
func (m *MatchSession) IsOnCourt(id string) bool {
	p, ok := m.Players[id]
	if !ok {
		return false
	}
	for _, pid := range m.Playing(p.Team) {
		if pid == id {
			return true
		}
	}
	return false
}

// IsDisqualified reports whether the player has fouled out.
func (m *MatchSession) IsDisqualified(id string) bool {
	for _, d := range m.Disqualified {
		if d == id {
			return true
		}
	}
	return false
}

// PeriodKey returns the key of the current period.
func (m *MatchSession) PeriodKey() string {
	return PeriodKey(m.Quarter)
}

// Roster returns the ids of every player on team t, ordered by jersey then id.
func (m *MatchSession) Roster(t Team) []string {
	var ids []string
	for id, p := range m.Players {
		if p.Team == t {
			ids = append(ids, id)
		}
	}
	sortRoster(ids, m.Players)
	return ids
}

// Clone returns a deep copy of the session.
func (m *MatchSession) Clone() *MatchSession {
	out := *m
	out.QuarterScores = make(map[string]PeriodScore, len(m.QuarterScores))
	for k, v := range m.QuarterScores {
		out.QuarterScores[k] = v
	}
	out.Timeouts = m.Timeouts.clone()
	out.TeamFouls = m.TeamFouls.clone()
	out.Players = make(map[string]SessionPlayer, len(m.Players))
	for k, v := range m.Players {
		out.Players[k] = v
	}
	out.TeamAPlaying = append([]string{}, m.TeamAPlaying...)
	out.TeamBPlaying = append([]string{}, m.TeamBPlaying...)
	out.Disqualified = append([]string{}, m.Disqualified...)
	out.Ledger = make(map[string][]LedgerEvent, len(m.Ledger))
	for k, v := range m.Ledger {
		out.Ledger[k] = append([]LedgerEvent{}, v...)
	}
	if m.PendingSubstitution != nil {
		sub := *m.PendingSubstitution
		out.PendingSubstitution = &sub
	}
	return &out
}
