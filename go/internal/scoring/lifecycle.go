package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/courtside/livescore/go/internal/docstore"
	"github.com/courtside/livescore/go/internal/match"
	"github.com/courtside/livescore/go/internal/models"
	"github.com/courtside/livescore/go/internal/tree"
)

// Resume loads the session from the match store, falling back to the local
// mirror when the store has nothing for this path. The loaded session is
// written back so the store and the engine agree on its contents.
func (c *Controller) Resume(ctx context.Context) (*View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	source := "store"
	raw, err := c.deps.Tree.Get(ctx, c.cfg.Base)
	if err != nil {
		log.Warn().Err(err).Str("path", c.cfg.Base).Msg("failed to read session from store")
	}
	state := models.DecodeSession(raw)
	if state == nil && c.deps.Mirror != nil {
		source = "mirror"
		state, err = c.deps.Mirror.LoadSession(ctx, c.cfg.Base)
		if err != nil {
			log.Warn().Err(err).Str("path", c.cfg.Base).Msg("failed to read session from mirror")
		}
	}
	if state == nil {
		return c.viewLocked(), nil
	}

	c.stopTickerLocked()
	c.session = match.Restore(c.cfg.Settings, c.deps.Clock, state)
	c.engine.Reset()
	if err := c.engine.Replace(ctx, c.session.State()); err != nil {
		log.Error().Err(err).Str("path", c.cfg.Base).Msg("failed to write resumed session")
	}
	c.reconcileTickerLocked()

	log.Info().
		Str("court", c.cfg.Court).
		Str("source", source).
		Str("stage", string(state.MatchStage)).
		Msg("resumed session")
	return c.viewLocked(), nil
}

// LoadScheduled moves into setup with a scheduled fixture and its roster.
// id may be the document id or the fixture's matchId.
func (c *Controller) LoadScheduled(ctx context.Context, id string) (*View, error) {
	sm, err := c.deps.Docs.GetScheduledMatch(ctx, id)
	if errors.Is(err, docstore.ErrNotFound) {
		sm, err = c.deps.Docs.GetScheduledMatchByMatchID(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load scheduled match %s: %w", id, err)
	}
	if sm.Status == models.MatchStatusCompleted {
		c.notify(LevelWarn, "This match has already been completed")
		return nil, &match.Rejection{Reason: "This match has already been completed"}
	}
	roster, err := c.deps.Docs.ListPlayersByMatch(ctx, sm.MatchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load players for %s: %w", sm.MatchID, err)
	}

	players := make([]match.PlayerInput, 0, len(roster))
	for _, p := range roster {
		players = append(players, match.PlayerInput{
			Name:   p.PlayerName,
			Jersey: p.JerseyNumber,
			Team:   p.Team,
		})
	}
	info := match.MatchInfo{
		MatchID:    sm.MatchID,
		ScheduleID: sm.ID,
		TeamA:      sm.TeamA,
		TeamB:      sm.TeamB,
		MatchType:  sm.MatchType,
	}
	return c.apply(ctx, "load_scheduled", func(s *match.Session) error {
		if s.State().MatchStage != models.StageSetup {
			if err := s.EnterSetup(); err != nil {
				return err
			}
		}
		if err := s.Load(info, players); err != nil {
			return err
		}
		return s.SetMatchDetails("", "", c.cfg.Court)
	})
}

// StartMatch starts play and marks a scheduled fixture live.
func (c *Controller) StartMatch(ctx context.Context) (*View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.applyLocked(ctx, "start_match", (*match.Session).StartMatch); err != nil {
		return nil, err
	}
	if id := c.session.State().ScheduleID; id != "" {
		c.markLiveLocked(ctx, id)
	}
	return c.viewLocked(), nil
}

func (c *Controller) markLiveLocked(ctx context.Context, scheduleID string) {
	now := c.deps.Clock.Now()
	base := tree.ScheduledPath(scheduleID)
	err := c.deps.Tree.Update(ctx, map[string]any{
		tree.Join(base, "status"):        string(models.MatchStatusLive),
		tree.Join(base, "liveStartedAt"): now.UnixMilli(),
	})
	if err != nil {
		log.Error().Err(err).Str("schedule_id", scheduleID).Msg("failed to mark scheduled node live")
	}
	if err := c.deps.Docs.SetMatchStatus(ctx, scheduleID, models.MatchStatusLive); err != nil {
		log.Error().Err(err).Str("schedule_id", scheduleID).Msg("failed to mark scheduled match live")
		c.notify(LevelWarn, "Match started, but the schedule could not be updated")
	}
}

// SaveAndEnd records the finished match and resets the court. A match
// still in play is finished first.
func (c *Controller) SaveAndEnd(ctx context.Context) (*models.PastMatch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.session.State().MatchStage {
	case models.StageMatch:
		if err := c.applyLocked(ctx, "finish", (*match.Session).Finish); err != nil {
			return nil, err
		}
	case models.StageFinished:
	default:
		c.notify(LevelWarn, "No match to save")
		return nil, &match.Rejection{Reason: "No match to save"}
	}

	st := c.session.State()
	now := c.deps.Clock.Now()
	pm := pastMatch(st, now)

	completedID := st.MatchID
	if completedID == "" {
		completedID = pm.ID
	}
	completed, err := completedNode(st, now)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{
		tree.PastPath(pm.ID):            pm,
		tree.CompletedPath(completedID): completed,
	}
	if st.ScheduleID != "" {
		base := tree.ScheduledPath(st.ScheduleID)
		updates[tree.Join(base, "hasScore")] = true
		updates[tree.Join(base, "status")] = string(models.MatchStatusCompleted)
		updates[tree.Join(base, "finalScoreA")] = st.ScoreA
		updates[tree.Join(base, "finalScoreB")] = st.ScoreB
		updates[tree.Join(base, "completedAt")] = now.UnixMilli()
	}
	if err := c.deps.Tree.Update(ctx, updates); err != nil {
		log.Error().Err(err).Str("court", c.cfg.Court).Msg("failed to save match")
		c.notify(LevelError, "Failed to save match")
		return nil, fmt.Errorf("%w: %w", ErrSyncFailed, err)
	}

	if st.ScheduleID != "" {
		err := c.deps.Docs.CompleteMatch(ctx, st.ScheduleID, models.MatchResult{
			FinalScore:    models.PeriodScore{TeamA: st.ScoreA, TeamB: st.ScoreB},
			QuarterScores: st.QuarterScores,
			Winner:        pm.Winner,
			PlayerStats:   st.Players,
			CompletedAt:   now,
		})
		if err != nil {
			log.Error().Err(err).Str("schedule_id", st.ScheduleID).Msg("failed to complete scheduled match")
			c.notify(LevelWarn, "Match saved, but the schedule could not be updated")
		}
	}
	if c.deps.Mirror != nil {
		if err := c.deps.Mirror.SavePastMatch(ctx, pm); err != nil {
			log.Warn().Err(err).Str("past_id", pm.ID).Msg("failed to back up past match")
		}
	}

	c.resetLocked(ctx)
	log.Info().
		Str("court", c.cfg.Court).
		Str("match_id", st.MatchID).
		Int("score_a", st.ScoreA).
		Int("score_b", st.ScoreB).
		Msg("match saved")
	c.notify(LevelInfo, "Match saved successfully!")
	return &pm, nil
}

// Discard ends the match without saving anything.
func (c *Controller) Discard(ctx context.Context) *View {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked(ctx)
	c.notify(LevelInfo, "Match ended without saving.")
	return c.viewLocked()
}

// resetLocked returns the court to an empty menu. The local reset stands
// even when the store write fails; the next push rewrites the fields.
func (c *Controller) resetLocked(ctx context.Context) {
	c.stopTickerLocked()
	c.session.Reset()
	c.session.Notices()
	blank := c.session.State()
	blank.LastUpdated = c.deps.Clock.Now().UnixMilli()
	if err := c.engine.Replace(ctx, blank); err != nil {
		log.Error().Err(err).Str("path", c.cfg.Base).Msg("failed to reset session in store")
		c.notify(LevelError, "Failed to reset match in store")
	}
	if c.deps.Mirror != nil {
		if err := c.deps.Mirror.DeleteSession(ctx, c.cfg.Base); err != nil {
			log.Warn().Err(err).Str("path", c.cfg.Base).Msg("failed to clear mirrored session")
		}
	}
}

// CancelPendingScore drops a buffered score write before viewers see it.
func (c *Controller) CancelPendingScore() bool {
	cancelled := c.engine.CancelPendingScore()
	if cancelled {
		c.notify(LevelInfo, "Pending score update cancelled")
	} else {
		c.notify(LevelWarn, "No pending score update")
	}
	return cancelled
}

func pastMatch(st *models.MatchSession, now time.Time) models.PastMatch {
	return models.PastMatch{
		ID:            fmt.Sprintf("match_%d", now.UnixMilli()),
		MatchID:       st.MatchID,
		ScheduleID:    st.ScheduleID,
		Court:         st.Court,
		TeamA:         st.TeamA,
		TeamB:         st.TeamB,
		ScoreA:        st.ScoreA,
		ScoreB:        st.ScoreB,
		Winner:        models.Winner(st),
		MatchType:     st.MatchType,
		RoundType:     st.RoundType,
		QuarterScores: st.QuarterScores,
		Players:       st.Players,
		SavedAt:       now.UnixMilli(),
	}
}

// completedNode is the final session snapshot viewers open from the
// results list.
func completedNode(st *models.MatchSession, now time.Time) (map[string]any, error) {
	node, err := st.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode completed match: %w", err)
	}
	node["finalScoreA"] = st.ScoreA
	node["finalScoreB"] = st.ScoreB
	node["winner"] = models.Winner(st)
	node["completedAt"] = now.UnixMilli()
	return node, nil
}
