package docstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/courtside/livescore/go/internal/models"
)

func newTestStore(t *testing.T) (*Memory, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	return NewMemory(clock), clock
}

func createMatch(t *testing.T, s Store, a, b string) *models.ScheduledMatch {
	t.Helper()
	sm, err := s.CreateScheduledMatch(context.Background(), CreateMatchRequest{
		TeamA: a, TeamB: b, Date: "2026-03-14", Time: "10:00", Venue: "Main Hall",
		MatchType: "Boys", Gender: "Male",
	})
	if err != nil {
		t.Fatalf("CreateScheduledMatch() error = %v", err)
	}
	return sm
}

func TestCreateScheduledMatchValidation(t *testing.T) {
	s, _ := newTestStore(t)
	tests := []struct {
		name    string
		req     CreateMatchRequest
		wantErr bool
	}{
		{"valid", CreateMatchRequest{TeamA: "Hawks", TeamB: "Owls"}, false},
		{"missing team", CreateMatchRequest{TeamA: "Hawks"}, true},
		{"same team", CreateMatchRequest{TeamA: "Hawks", TeamB: " hawks "}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm, err := s.CreateScheduledMatch(context.Background(), tt.req)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalid) {
					t.Fatalf("error = %v, want ErrInvalid", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if sm.Status != models.MatchStatusScheduled || sm.MatchID == "" {
				t.Fatalf("created match = %+v", sm)
			}
		})
	}
}

func TestStatusTransitionsOnlyMoveForward(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	sm := createMatch(t, s, "Hawks", "Owls")

	if err := s.SetMatchStatus(ctx, sm.ID, models.MatchStatusLive); err != nil {
		t.Fatalf("scheduled -> live: %v", err)
	}
	if err := s.SetMatchStatus(ctx, sm.ID, models.MatchStatusLive); err != nil {
		t.Fatalf("live -> live should be a no-op: %v", err)
	}
	if err := s.SetMatchStatus(ctx, sm.ID, models.MatchStatusScheduled); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("live -> scheduled error = %v, want ErrInvalidTransition", err)
	}

	got, _ := s.GetScheduledMatch(ctx, sm.ID)
	if got.LiveStartedAt == nil {
		t.Fatal("LiveStartedAt not set")
	}
}

func TestCompletedMatchIsImmutable(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t)
	sm := createMatch(t, s, "Hawks", "Owls")

	result := models.MatchResult{
		FinalScore:    models.PeriodScore{TeamA: 40, TeamB: 38},
		QuarterScores: map[string]models.PeriodScore{"q1": {TeamA: 10, TeamB: 9}},
		Winner:        "Hawks",
		PlayerStats:   map[string]models.SessionPlayer{"p1": {Name: "Ana", Points: 12}},
		CompletedAt:   clock.Now(),
	}
	if err := s.CompleteMatch(ctx, sm.ID, result); err != nil {
		t.Fatalf("CompleteMatch() error = %v", err)
	}

	got, _ := s.GetScheduledMatch(ctx, sm.ID)
	if got.Status != models.MatchStatusCompleted || got.FinalScore.TeamA != 40 || got.Winner != "Hawks" {
		t.Fatalf("completed match = %+v", got)
	}

	if err := s.CompleteMatch(ctx, sm.ID, result); !errors.Is(err, ErrCompleted) {
		t.Fatalf("second CompleteMatch error = %v, want ErrCompleted", err)
	}
	if err := s.SetMatchStatus(ctx, sm.ID, models.MatchStatusLive); !errors.Is(err, ErrCompleted) {
		t.Fatalf("SetMatchStatus error = %v, want ErrCompleted", err)
	}
	if _, err := s.UpdateScheduledMatch(ctx, sm.ID, UpdateMatchRequest{TeamA: "X", TeamB: "Y"}); !errors.Is(err, ErrCompleted) {
		t.Fatalf("UpdateScheduledMatch error = %v, want ErrCompleted", err)
	}
	if err := s.DeleteScheduledMatch(ctx, sm.ID); err != nil {
		t.Fatalf("delete of completed match should succeed: %v", err)
	}
}

func TestListScheduledMatchesOrder(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t)

	first, _ := s.CreateScheduledMatch(ctx, CreateMatchRequest{TeamA: "A1", TeamB: "B1", Date: "2026-03-15", Time: "09:00"})
	clock.Advance(time.Minute)
	second, _ := s.CreateScheduledMatch(ctx, CreateMatchRequest{TeamA: "A2", TeamB: "B2", Date: "2026-03-14", Time: "18:00"})

	byCreated, _ := s.ListScheduledMatches(ctx, OrderCreatedDesc)
	if byCreated[0].ID != second.ID {
		t.Fatalf("newest first: got %s", byCreated[0].TeamA)
	}
	byDate, _ := s.ListScheduledMatches(ctx, OrderDateAsc)
	if byDate[0].ID != second.ID || byDate[1].ID != first.ID {
		t.Fatalf("date order wrong: %s, %s", byDate[0].TeamA, byDate[1].TeamA)
	}
}

func TestPlayersReplaceAndCascade(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	sm := createMatch(t, s, "Hawks", "Owls")

	added, err := s.AddPlayers(ctx, sm.MatchID, []PlayerInput{
		{Team: models.TeamA, JerseyNumber: "10", PlayerName: "Ana"},
		{Team: models.TeamB, JerseyNumber: "4", PlayerName: "Bo"},
		{Team: "", JerseyNumber: "2", PlayerName: "Cy"},
		{JerseyNumber: "7", PlayerName: "  "},
	})
	if err != nil {
		t.Fatalf("AddPlayers() error = %v", err)
	}
	if len(added) != 3 {
		t.Fatalf("added %d players, want 3", len(added))
	}

	list, _ := s.ListPlayersByMatch(ctx, sm.MatchID)
	wantOrder := []string{"Cy", "Ana", "Bo"}
	for i, name := range wantOrder {
		if list[i].PlayerName != name {
			t.Fatalf("player %d = %s, want %s", i, list[i].PlayerName, name)
		}
	}

	if _, err := s.ReplacePlayers(ctx, sm.MatchID, []PlayerInput{{Team: models.TeamB, JerseyNumber: "1", PlayerName: "Di"}}); err != nil {
		t.Fatalf("ReplacePlayers() error = %v", err)
	}
	list, _ = s.ListPlayersByMatch(ctx, sm.MatchID)
	if len(list) != 1 || list[0].PlayerName != "Di" {
		t.Fatalf("after replace = %+v", list)
	}

	if err := s.DeleteScheduledMatch(ctx, sm.ID); err != nil {
		t.Fatalf("DeleteScheduledMatch() error = %v", err)
	}
	list, _ = s.ListPlayersByMatch(ctx, sm.MatchID)
	if len(list) != 0 {
		t.Fatalf("players survived match delete: %+v", list)
	}
	if _, err := s.GetScheduledMatch(ctx, sm.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetScheduledMatch error = %v, want ErrNotFound", err)
	}
}
