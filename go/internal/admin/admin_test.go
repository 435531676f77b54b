package admin

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/jonboulle/clockwork"

	"github.com/courtside/livescore/go/internal/docstore"
	"github.com/courtside/livescore/go/internal/match"
	"github.com/courtside/livescore/go/internal/models"
	"github.com/courtside/livescore/go/internal/scoring"
	"github.com/courtside/livescore/go/internal/tree"
)

type memArchive struct{ deleted []string }

func (a *memArchive) DeletePastMatch(ctx context.Context, id string) error {
	a.deleted = append(a.deleted, id)
	return nil
}

type env struct {
	svc      *Service
	docs     *docstore.Memory
	tree     *tree.Memory
	registry *scoring.Registry
	archive  *memArchive
}

func newEnv(t *testing.T) *env {
	t.Helper()
	clock := clockwork.NewFakeClock()
	e := &env{
		docs:    docstore.NewMemory(clock),
		tree:    tree.NewMemory(),
		archive: &memArchive{},
	}
	e.registry = scoring.NewRegistry(scoring.Deps{
		Tree:  e.tree,
		Docs:  e.docs,
		Clock: clock,
	}, scoring.RegistryConfig{
		Mode:     scoring.ModeCourt,
		Courts:   []string{"Court A", "Court B"},
		Settings: match.DefaultSettings(),
	})
	t.Cleanup(func() { e.registry.Close(context.Background()) })
	e.svc = New(e.docs, e.tree, e.registry, e.archive, clock)
	return e
}

func (e *env) get(t *testing.T, path string) any {
	t.Helper()
	v, err := e.tree.Get(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestCreateMatchMirrorsScheduledNode(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	sm, err := e.svc.CreateMatch(ctx, docstore.CreateMatchRequest{TeamA: "Hawks", TeamB: "Owls", Venue: "Main Hall"})
	if err != nil {
		t.Fatal(err)
	}
	node, _ := e.get(t, tree.ScheduledPath(sm.ID)).(map[string]any)
	if node["matchId"] != sm.MatchID || node["status"] != "scheduled" || node["venue"] != "Main Hall" {
		t.Fatalf("scheduled node = %v", node)
	}

	if _, err := e.svc.CreateMatch(ctx, docstore.CreateMatchRequest{TeamA: "Hawks", TeamB: "hawks"}); !errors.Is(err, docstore.ErrInvalid) {
		t.Fatalf("same teams error = %v", err)
	}
}

func TestDeleteMatchCascades(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	sm, err := e.svc.CreateMatch(ctx, docstore.CreateMatchRequest{TeamA: "Hawks", TeamB: "Owls"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.svc.AddPlayers(ctx, sm.MatchID, []docstore.PlayerInput{
		{Team: models.TeamA, JerseyNumber: "4", PlayerName: "Ana"},
		{Team: models.TeamB, JerseyNumber: "9", PlayerName: "Ben"},
	}); err != nil {
		t.Fatal(err)
	}
	court, err := e.registry.Controller(ctx, "Court A")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := court.LoadScheduled(ctx, sm.ID); err != nil {
		t.Fatal(err)
	}
	if err := e.tree.Set(ctx, tree.CompletedPath(sm.MatchID), map[string]any{"teamA": "Hawks"}); err != nil {
		t.Fatal(err)
	}

	if err := e.svc.DeleteMatch(ctx, sm.MatchID); err != nil {
		t.Fatal(err)
	}
	if _, err := e.docs.GetScheduledMatch(ctx, sm.ID); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("fixture still present: %v", err)
	}
	if players, _ := e.svc.ListPlayers(ctx, sm.MatchID); len(players) != 0 {
		t.Fatalf("players = %v", players)
	}
	if v := e.get(t, tree.ScheduledPath(sm.ID)); v != nil {
		t.Fatalf("scheduled node = %v", v)
	}
	if v := e.get(t, tree.CompletedPath(sm.MatchID)); v != nil {
		t.Fatalf("completed node = %v", v)
	}
	if st := court.View().Session; st.MatchID != "" || st.TeamA != "" {
		t.Fatalf("court session not cleared: %+v", st)
	}

	if err := e.svc.DeleteMatch(ctx, sm.MatchID); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("second delete error = %v", err)
	}
}

func TestPastMatchesNewestFirstAndDelete(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	for _, pm := range []models.PastMatch{
		{ID: "match_1", TeamA: "Hawks", TeamB: "Owls", SavedAt: 1},
		{ID: "match_3", TeamA: "Bees", TeamB: "Ants", SavedAt: 3},
		{ID: "match_2", TeamA: "Cats", TeamB: "Dogs", SavedAt: 2},
	} {
		if err := e.tree.Set(ctx, tree.PastPath(pm.ID), pm); err != nil {
			t.Fatal(err)
		}
	}

	list, err := e.svc.PastMatches(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, pm := range list {
		ids = append(ids, pm.ID)
	}
	if !reflect.DeepEqual(ids, []string{"match_3", "match_2", "match_1"}) {
		t.Fatalf("order = %v", ids)
	}

	n, err := e.svc.DeletePaths(ctx, KindPast, []string{"match_1", " ", "match_3"})
	if err != nil || n != 2 {
		t.Fatalf("DeletePaths = %d, %v", n, err)
	}
	if list, _ := e.svc.PastMatches(ctx); len(list) != 1 || list[0].ID != "match_2" {
		t.Fatalf("remaining = %+v", list)
	}
	if !reflect.DeepEqual(e.archive.deleted, []string{"match_1", "match_3"}) {
		t.Fatalf("archive deletes = %v", e.archive.deleted)
	}
}

func TestCleanupOrphans(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	kept, err := e.svc.CreateMatch(ctx, docstore.CreateMatchRequest{TeamA: "Hawks", TeamB: "Owls"})
	if err != nil {
		t.Fatal(err)
	}

	// court A scores an ad-hoc pairing nobody scheduled
	courtA, _ := e.registry.Controller(ctx, "Court A")
	if _, err := courtA.EnterSetup(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := courtA.SetTeams(ctx, "Bees", "Ants"); err != nil {
		t.Fatal(err)
	}
	// court B scores the scheduled pairing by team names alone
	courtB, _ := e.registry.Controller(ctx, "Court B")
	if _, err := courtB.EnterSetup(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := courtB.SetTeams(ctx, "owls", "HAWKS"); err != nil {
		t.Fatal(err)
	}

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(e.tree.Set(ctx, tree.CompletedPath(kept.MatchID), map[string]any{"matchId": kept.MatchID, "teamA": "Hawks", "teamB": "Owls"}))
	must(e.tree.Set(ctx, tree.CompletedPath("match_gone"), map[string]any{"matchId": "match_gone", "teamA": "Hawks", "teamB": "Owls"}))
	must(e.tree.Set(ctx, tree.ScheduledPath("stale-doc"), map[string]any{"status": "scheduled"}))

	report, err := e.svc.CleanupOrphans(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := &CleanupReport{
		Sessions:  []string{"matches/court_a"},
		Completed: []string{"match_gone"},
		Scheduled: []string{"stale-doc"},
	}
	if !reflect.DeepEqual(report, want) {
		t.Fatalf("report = %+v, want %+v", report, want)
	}
	if courtA.View().Session.TeamA != "" || courtB.View().Session.TeamA != "owls" {
		t.Fatal("wrong court cleared")
	}
	if e.get(t, tree.CompletedPath(kept.MatchID)) == nil || e.get(t, tree.ScheduledPath(kept.ID)) == nil {
		t.Fatal("known nodes were removed")
	}
}

func TestParseKind(t *testing.T) {
	for _, s := range []string{"past", " Scheduled ", "COMPLETED"} {
		if _, err := ParseKind(s); err != nil {
			t.Errorf("ParseKind(%q) error = %v", s, err)
		}
	}
	if _, err := ParseKind("current"); !errors.Is(err, docstore.ErrInvalid) {
		t.Errorf("ParseKind(current) error = %v", err)
	}
}
