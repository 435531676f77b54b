package models

import (
	"time"
)

// MatchStatus is the lifecycle state of a scheduled match.
type MatchStatus string

const (
	MatchStatusScheduled MatchStatus = "scheduled"
	MatchStatusLive      MatchStatus = "live"
	MatchStatusCompleted MatchStatus = "completed"
)

// CanTransition reports whether a scheduled match may move from s to next.
// Transitions only go forward; completed is terminal.
func (s MatchStatus) CanTransition(next MatchStatus) bool {
	switch s {
	case MatchStatusScheduled:
		return next == MatchStatusLive || next == MatchStatusCompleted
	case MatchStatusLive:
		return next == MatchStatusCompleted
	}
	return false
}

// ScheduledMatch is a fixture in the scheduledMatches collection.
type ScheduledMatch struct {
	ID            string                   `json:"id"`
	MatchID       string                   `json:"matchId"`
	TeamA         string                   `json:"teamA"`
	TeamB         string                   `json:"teamB"`
	Date          string                   `json:"date"`
	Time          string                   `json:"time"`
	Venue         string                   `json:"venue"`
	MatchType     string                   `json:"matchType"`
	Gender        string                   `json:"gender"`
	Status        MatchStatus              `json:"status"`
	FinalScore    *PeriodScore             `json:"finalScore,omitempty"`
	QuarterScores map[string]PeriodScore   `json:"quarterScores,omitempty"`
	Winner        string                   `json:"winner,omitempty"`
	PlayerStats   map[string]SessionPlayer `json:"playerStats,omitempty"`
	LiveStartedAt *time.Time               `json:"liveStartedAt,omitempty"`
	CompletedAt   *time.Time               `json:"completedAt,omitempty"`
	CreatedAt     time.Time                `json:"createdAt"`
	UpdatedAt     time.Time                `json:"updatedAt"`
}

// MatchResult is the final record written when a scheduled match completes.
type MatchResult struct {
	FinalScore    PeriodScore
	QuarterScores map[string]PeriodScore
	Winner        string
	PlayerStats   map[string]SessionPlayer
	CompletedAt   time.Time
}

// RosterPlayer is a document in the players collection.
type RosterPlayer struct {
	ID           string    `json:"id"`
	MatchID      string    `json:"matchId"`
	Team         Team      `json:"team"`
	JerseyNumber string    `json:"jerseyNumber"`
	PlayerName   string    `json:"playerName"`
	CreatedAt    time.Time `json:"createdAt"`
}

// PastMatch is the summary saved under matches/past when a match ends.
type PastMatch struct {
	ID            string                   `json:"id"`
	MatchID       string                   `json:"matchId,omitempty"`
	ScheduleID    string                   `json:"scheduleId,omitempty"`
	Court         string                   `json:"court"`
	TeamA         string                   `json:"teamA"`
	TeamB         string                   `json:"teamB"`
	ScoreA        int                      `json:"scoreA"`
	ScoreB        int                      `json:"scoreB"`
	Winner        string                   `json:"winner"`
	MatchType     string                   `json:"matchType"`
	RoundType     string                   `json:"roundType"`
	QuarterScores map[string]PeriodScore   `json:"quarterScores"`
	Players       map[string]SessionPlayer `json:"players"`
	SavedAt       int64                    `json:"savedAt"`
}

// Winner returns the winning team name, or "Tie".
func Winner(m *MatchSession) string {
	switch {
	case m.ScoreA > m.ScoreB:
		return m.TeamA
	case m.ScoreB > m.ScoreA:
		return m.TeamB
	}
	return "Tie"
}
