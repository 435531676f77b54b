package gateway

import (
	"context"

	"github.com/courtside/livescore/go/internal/relay"
)

// ScoreboardEvent is what viewers receive: {id, court, type, timestamp, data}
// with data holding the full session.
type ScoreboardEvent = relay.Event

// EventSource feeds scoreboard events into a ConnectionManager.
type EventSource interface {
	// Start blocks until ctx is cancelled.
	Start(ctx context.Context) error
	Stop() error
}
