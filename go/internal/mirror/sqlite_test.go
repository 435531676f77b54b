package mirror

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/courtside/livescore/go/internal/models"
)

func openTestMirror(t *testing.T) *SQLite {
	t.Helper()
	m, err := Open(filepath.Join(t.TempDir(), "mirror.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := openTestMirror(t)

	s := models.NewMatchSession()
	s.MatchID = "match_1"
	s.TeamA, s.TeamB = "Hawks", "Owls"
	s.MatchStage = models.StageMatch
	s.Players["p1"] = models.SessionPlayer{Name: "Ana", Jersey: "7", Team: models.TeamA, Points: 3}
	s.Ledger["p1"] = []models.LedgerEvent{{Kind: models.LedgerPoints, Delta: 3, Period: "q1"}}
	s.ScoreA = 3

	if err := m.SaveSession(ctx, "court_a", s); err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}
	s.ScoreA = 5
	if err := m.SaveSession(ctx, "court_a", s); err != nil {
		t.Fatalf("SaveSession() overwrite error = %v", err)
	}

	got, err := m.LoadSession(ctx, "court_a")
	if err != nil {
		t.Fatalf("LoadSession() error = %v", err)
	}
	if got == nil || got.TeamA != "Hawks" || got.ScoreA != 5 || got.MatchStage != models.StageMatch {
		t.Fatalf("LoadSession() = %+v", got)
	}
	if got.Players["p1"].Name != "Ana" || len(got.Ledger["p1"]) != 1 {
		t.Fatalf("players/ledger lost: %+v %+v", got.Players, got.Ledger)
	}

	byMatch, err := m.LoadSessionByMatchID(ctx, "match_1")
	if err != nil || byMatch == nil {
		t.Fatalf("LoadSessionByMatchID() = %v, %v", byMatch, err)
	}

	if err := m.DeleteSession(ctx, "court_a"); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	gone, err := m.LoadSession(ctx, "court_a")
	if err != nil || gone != nil {
		t.Fatalf("after delete = %v, %v", gone, err)
	}
}

func TestPastMatchesNewestFirst(t *testing.T) {
	ctx := context.Background()
	m := openTestMirror(t)

	for i, id := range []string{"old", "new"} {
		pm := models.PastMatch{ID: id, TeamA: "Hawks", TeamB: "Owls", Winner: "Hawks", SavedAt: int64(1000 + i)}
		if err := m.SavePastMatch(ctx, pm); err != nil {
			t.Fatalf("SavePastMatch() error = %v", err)
		}
	}

	list, err := m.ListPastMatches(ctx)
	if err != nil {
		t.Fatalf("ListPastMatches() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != "new" {
		t.Fatalf("ListPastMatches() = %+v", list)
	}

	if err := m.DeletePastMatch(ctx, "old"); err != nil {
		t.Fatalf("DeletePastMatch() error = %v", err)
	}
	list, _ = m.ListPastMatches(ctx)
	if len(list) != 1 {
		t.Fatalf("after delete = %+v", list)
	}
}
