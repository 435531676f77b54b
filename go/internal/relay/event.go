package relay

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/courtside/livescore/go/internal/models"
	"github.com/courtside/livescore/go/internal/tree"
)

// EventType is the kind of scoreboard event.
type EventType string

const (
	EventTypeSessionUpdated EventType = "SessionUpdated"
	EventTypeSessionCleared EventType = "SessionCleared"
)

// Message headers set on every published event.
const (
	HeaderEventType = "Event-Type"
	HeaderCourt     = "Court"
	HeaderEventID   = "Event-ID"
)

// Event is the envelope published to JetStream and pushed to websocket
// viewers. Data is the encoded MatchSession.
type Event struct {
	ID        string          `json:"id"`
	Court     string          `json:"court"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// CourtKeyForPath returns the court key of a session path:
// "matches/court_a" -> "court_a", "matches/current" -> "current".
func CourtKeyForPath(path string) string {
	return strings.TrimPrefix(tree.Clean(path), tree.MatchesRoot+"/")
}

// NewSessionEvent wraps a session snapshot. A session without teams is a
// cleared court.
func NewSessionEvent(courtKey string, s *models.MatchSession, at time.Time) (*Event, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	typ := EventTypeSessionUpdated
	if s.TeamA == "" && s.TeamB == "" {
		typ = EventTypeSessionCleared
	}
	return &Event{
		ID:        MessageID(courtKey, s.LastUpdated),
		Court:     courtKey,
		Type:      typ,
		Timestamp: at.UTC(),
		Data:      data,
	}, nil
}

// MessageID lets JetStream drop republished snapshots of the same write.
func MessageID(courtKey string, lastUpdated int64) string {
	return fmt.Sprintf("%s-%d", courtKey, lastUpdated)
}
