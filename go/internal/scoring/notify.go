package scoring

import (
	"sync"
	"time"
)

// Level is the severity of a Notification.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Notification is a short-lived message for the scorer's screen.
type Notification struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

const notificationBuffer = 32

// notifier fans notifications out to subscribers. Slow subscribers miss
// messages rather than block the controller.
type notifier struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Notification
}

func (n *notifier) subscribe() (<-chan Notification, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = make(map[int]chan Notification)
	}
	id := n.next
	n.next++
	ch := make(chan Notification, notificationBuffer)
	n.subs[id] = ch

	return ch, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if ch, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(ch)
		}
	}
}

func (n *notifier) publish(note Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- note:
		default:
		}
	}
}

func (n *notifier) closeAll() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, ch := range n.subs {
		close(ch)
		delete(n.subs, id)
	}
}
