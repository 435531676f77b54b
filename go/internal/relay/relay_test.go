package relay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/courtside/livescore/go/internal/livesync"
	"github.com/courtside/livescore/go/internal/models"
	"github.com/courtside/livescore/go/internal/tree"
)

type fakePublisher struct {
	mu     sync.Mutex
	fail   int
	events chan *Event
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{events: make(chan *Event, 16)}
}

func (p *fakePublisher) Publish(ctx context.Context, ev *Event) error {
	p.mu.Lock()
	if p.fail > 0 {
		p.fail--
		p.mu.Unlock()
		return errors.New("nats: no responders")
	}
	p.mu.Unlock()
	p.events <- ev
	return nil
}

func (p *fakePublisher) next(t *testing.T) *Event {
	t.Helper()
	select {
	case ev := <-p.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for publish")
		return nil
	}
}

func (p *fakePublisher) none(t *testing.T) {
	t.Helper()
	select {
	case ev := <-p.events:
		t.Fatalf("unexpected publish %s", ev.ID)
	case <-time.After(50 * time.Millisecond):
	}
}

func session(t *testing.T, teamA, teamB string, scoreA int, at int64) map[string]any {
	t.Helper()
	s := models.NewMatchSession()
	s.TeamA, s.TeamB, s.ScoreA, s.LastUpdated = teamA, teamB, scoreA, at
	s.MatchStage = models.StageMatch
	enc, err := s.Encode()
	if err != nil {
		t.Fatal(err)
	}
	return enc
}

func TestRelayPublishesCourtSnapshots(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := tree.NewMemory()
	if err := store.Set(ctx, "matches/court_a", session(t, "Hawks", "Owls", 4, 1000)); err != nil {
		t.Fatal(err)
	}

	pub := newFakePublisher()
	r := New(store, pub, clockwork.NewFakeClock(), Config{Paths: []string{"matches/court_a"}})
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	ev := pub.next(t)
	if ev.Court != "court_a" || ev.ID != "court_a-1000" || ev.Type != EventTypeSessionUpdated {
		t.Fatalf("event = %+v", ev)
	}
	var got models.MatchSession
	if err := json.Unmarshal(ev.Data, &got); err != nil {
		t.Fatal(err)
	}
	if got.TeamA != "Hawks" || got.ScoreA != 4 {
		t.Fatalf("data = %+v", got)
	}

	// a redelivery of the same write is not republished
	if err := store.Set(ctx, "matches/court_a/lastUpdated", 1000); err != nil {
		t.Fatal(err)
	}
	pub.none(t)

	if err := store.Set(ctx, "matches/court_a", nil); err != nil {
		t.Fatal(err)
	}
	ev = pub.next(t)
	if ev.Type != EventTypeSessionCleared || ev.ID != "court_a-0" {
		t.Fatalf("cleared event = %+v", ev)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestRelayRetriesFailedPublish(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := tree.NewMemory()
	if err := store.Set(ctx, "matches/current", session(t, "Hawks", "Owls", 2, 2000)); err != nil {
		t.Fatal(err)
	}

	clock := clockwork.NewFakeClock()
	pub := newFakePublisher()
	pub.fail = 1
	r := New(store, pub, clock, Config{Paths: []string{"matches/current"}, RetryInterval: time.Second})
	go r.Run(ctx)

	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatal(err)
	}
	pub.none(t)
	clock.Advance(time.Second)

	ev := pub.next(t)
	if ev.Court != "current" || ev.ID != "current-2000" {
		t.Fatalf("event = %+v", ev)
	}
}

func TestRelayPublishesDelayedScore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := tree.NewMemory()
	scorerClock := clockwork.NewFakeClock()
	engine := livesync.NewEngine(store, scorerClock, livesync.Config{Base: "matches/court_a", ScoreDelay: 3 * time.Second})

	s := models.NewMatchSession()
	s.TeamA, s.TeamB, s.LastUpdated = "Hawks", "Owls", 1000
	s.MatchStage = models.StageMatch
	if err := engine.Push(ctx, s); err != nil {
		t.Fatal(err)
	}

	pub := newFakePublisher()
	r := New(store, pub, clockwork.NewFakeClock(), Config{Paths: []string{"matches/court_a"}})
	go r.Run(ctx)
	first := pub.next(t)

	s.ScoreA, s.LastUpdated = 3, 2000
	if err := engine.Push(ctx, s); err != nil {
		t.Fatal(err)
	}
	if err := scorerClock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatal(err)
	}
	scorerClock.Advance(3 * time.Second)

	seen := map[string]bool{first.ID: true}
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-pub.events:
			if seen[ev.ID] {
				t.Fatalf("message id %s reused", ev.ID)
			}
			seen[ev.ID] = true
			var got models.MatchSession
			if err := json.Unmarshal(ev.Data, &got); err != nil {
				t.Fatal(err)
			}
			if got.ScoreA == 3 {
				return
			}
		case <-deadline:
			t.Fatal("relay never published the delayed score")
		}
	}
}

func TestCourtKeyForPath(t *testing.T) {
	tests := map[string]string{
		"matches/court_a":  "court_a",
		"/matches/current": "current",
		"matches/center/":  "center",
	}
	for path, want := range tests {
		if got := CourtKeyForPath(path); got != want {
			t.Errorf("CourtKeyForPath(%q) = %q, want %q", path, got, want)
		}
	}
}
