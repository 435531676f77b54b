package viewer

import (
	"context"
	"testing"
	"time"

	"github.com/courtside/livescore/go/internal/models"
	"github.com/courtside/livescore/go/internal/tree"
)

func session(teamA, teamB string, stage models.Stage, scoreA int) *models.MatchSession {
	s := models.NewMatchSession()
	s.TeamA, s.TeamB = teamA, teamB
	s.MatchStage = stage
	s.ScoreA = scoreA
	return s
}

func put(t *testing.T, m *tree.Memory, path string, v any) {
	t.Helper()
	if err := m.Set(context.Background(), path, v); err != nil {
		t.Fatalf("Set(%s) error = %v", path, err)
	}
}

func next(t *testing.T, ch <-chan *models.MatchSession) *models.MatchSession {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			t.Fatal("watch closed")
		}
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return nil
}

func TestWatchDeliversLatestSnapshot(t *testing.T) {
	m := tree.NewMemory()
	sub := NewSubscriber(m, []string{"matches/court_a"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := sub.Watch(ctx, "matches/court_a")
	if s := next(t, ch); s.MatchStage != models.StageMenu || s.TeamA != "" {
		t.Fatalf("empty path snapshot = %+v", s)
	}

	put(t, m, "matches/court_a", session("Hawks", "Owls", models.StageMatch, 12))
	for {
		s := next(t, ch)
		if s.ScoreA == 12 {
			if s.TeamA != "Hawks" {
				t.Fatalf("snapshot = %+v", s)
			}
			break
		}
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			// a snapshot may already have been in flight
			if _, ok := <-ch; ok {
				t.Fatal("watch still open after cancel")
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not close")
	}
}

func TestLiveSkipsIdleAndFinished(t *testing.T) {
	m := tree.NewMemory()
	put(t, m, "matches/court_a", session("Hawks", "Owls", models.StageMatch, 4))
	put(t, m, "matches/court_b", session("Bears", "Lions", models.StageFinished, 50))
	put(t, m, "matches/court_c", session("", "", models.StageMenu, 0))

	paused := session("Foxes", "Wolves", models.StageMenu, 9)
	paused.PreviousStage = models.StageMatch
	put(t, m, "matches/court_d", paused)

	sub := NewSubscriber(m, []string{"matches/court_a", "matches/court_b", "matches/court_c", "matches/court_d", "matches/court_e"})
	live, err := sub.Live(context.Background())
	if err != nil {
		t.Fatalf("Live() error = %v", err)
	}
	if len(live) != 2 || live[0].Path != "matches/court_a" || live[1].Path != "matches/court_d" {
		t.Fatalf("live = %+v", live)
	}
}

func TestCompletedNewestFirst(t *testing.T) {
	m := tree.NewMemory()
	older := map[string]any{"teamA": "Hawks", "teamB": "Owls", "finalScoreA": 40, "finalScoreB": 42, "completedAt": 1000}
	newer := map[string]any{"teamA": "Bears", "teamB": "Lions", "finalScoreA": 30, "finalScoreB": 20, "completedAt": 2000}
	put(t, m, tree.CompletedPath("match_1"), older)
	put(t, m, tree.CompletedPath("match_2"), newer)

	got, err := NewSubscriber(m, nil).Completed(context.Background())
	if err != nil {
		t.Fatalf("Completed() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "match_2" {
		t.Fatalf("completed = %+v", got)
	}
	if got[1].Winner != "Owls" || got[1].Session.ScoreB != 42 {
		t.Fatalf("older match = %+v", got[1])
	}
}
