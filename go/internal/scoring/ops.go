package scoring

import (
	"context"

	"github.com/courtside/livescore/go/internal/match"
	"github.com/courtside/livescore/go/internal/models"
)

// Scorer operations. Each one goes through apply, so a rejection leaves the
// session untouched and a failed store write undoes it.

func (c *Controller) EnterSetup(ctx context.Context) (*View, error) {
	return c.apply(ctx, "enter_setup", (*match.Session).EnterSetup)
}

func (c *Controller) SetTeams(ctx context.Context, teamA, teamB string) (*View, error) {
	return c.apply(ctx, "set_teams", func(s *match.Session) error {
		return s.SetTeams(teamA, teamB)
	})
}

func (c *Controller) SetMatchDetails(ctx context.Context, matchType, roundType string) (*View, error) {
	return c.apply(ctx, "set_match_details", func(s *match.Session) error {
		return s.SetMatchDetails(matchType, roundType, "")
	})
}

func (c *Controller) AddPlayer(ctx context.Context, in match.PlayerInput) (*View, error) {
	return c.apply(ctx, "add_player", func(s *match.Session) error {
		_, err := s.AddPlayer(in)
		return err
	})
}

// ImportPlayers adds a parsed roster sheet during setup.
func (c *Controller) ImportPlayers(ctx context.Context, in []match.PlayerInput) (*View, error) {
	var n int
	v, err := c.apply(ctx, "import_players", func(s *match.Session) error {
		var err error
		n, err = s.ImportPlayers(in)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.notify(LevelInfo, "Imported %d players", n)
	return v, nil
}

func (c *Controller) RemovePlayer(ctx context.Context, id string) (*View, error) {
	return c.apply(ctx, "remove_player", func(s *match.Session) error {
		return s.RemovePlayer(id)
	})
}

func (c *Controller) ProceedToSelectPlaying5(ctx context.Context) (*View, error) {
	return c.apply(ctx, "select_playing5", (*match.Session).ProceedToSelectPlaying5)
}

func (c *Controller) TogglePlaying(ctx context.Context, id string) (*View, error) {
	return c.apply(ctx, "toggle_playing", func(s *match.Session) error {
		return s.TogglePlaying(id)
	})
}

// Clock and periods.

func (c *Controller) StartClock(ctx context.Context) (*View, error) {
	return c.apply(ctx, "start_clock", (*match.Session).StartClock)
}

func (c *Controller) PauseClock(ctx context.Context) (*View, error) {
	return c.apply(ctx, "pause_clock", (*match.Session).PauseClock)
}

func (c *Controller) ResetClock(ctx context.Context) (*View, error) {
	return c.apply(ctx, "reset_clock", (*match.Session).ResetClock)
}

func (c *Controller) SetQuarterDuration(ctx context.Context, minutes int) (*View, error) {
	return c.apply(ctx, "set_quarter_duration", func(s *match.Session) error {
		return s.SetQuarterDuration(minutes)
	})
}

func (c *Controller) EndPeriodEarly(ctx context.Context) (*View, error) {
	return c.apply(ctx, "end_period", (*match.Session).EndPeriodEarly)
}

func (c *Controller) StartOvertime(ctx context.Context) (*View, error) {
	return c.apply(ctx, "start_overtime", (*match.Session).StartOvertime)
}

func (c *Controller) ChangeQuarter(ctx context.Context, quarter int) (*View, error) {
	return c.apply(ctx, "change_quarter", func(s *match.Session) error {
		return s.ChangeQuarter(quarter)
	})
}

// Timeouts.

func (c *Controller) StartTimeout(ctx context.Context, team models.Team) (*View, error) {
	return c.apply(ctx, "start_timeout", func(s *match.Session) error {
		return s.StartTimeout(team)
	})
}

func (c *Controller) EndTimeout(ctx context.Context) (*View, error) {
	return c.apply(ctx, "end_timeout", (*match.Session).EndTimeout)
}

// Scoring and fouls.

func (c *Controller) SelectForScoring(ctx context.Context, id string) (*View, error) {
	return c.apply(ctx, "select_player", func(s *match.Session) error {
		return s.SelectForScoring(id)
	})
}

func (c *Controller) AddPoints(ctx context.Context, delta int) (*View, error) {
	return c.apply(ctx, "add_points", func(s *match.Session) error {
		return s.AddPoints(delta)
	})
}

func (c *Controller) UndoLastScore(ctx context.Context) (*View, error) {
	return c.apply(ctx, "undo_score", (*match.Session).UndoLastScore)
}

func (c *Controller) AddFoul(ctx context.Context) (*View, error) {
	return c.apply(ctx, "add_foul", (*match.Session).AddFoul)
}

func (c *Controller) UndoFoul(ctx context.Context) (*View, error) {
	return c.apply(ctx, "undo_foul", (*match.Session).UndoFoul)
}

// Substitutions.

func (c *Controller) BeginSubstitution(ctx context.Context, team models.Team) (*View, error) {
	return c.apply(ctx, "begin_substitution", func(s *match.Session) error {
		return s.BeginSubstitution(team)
	})
}

func (c *Controller) ChooseOut(ctx context.Context, id string) (*View, error) {
	return c.apply(ctx, "choose_out", func(s *match.Session) error {
		return s.ChooseOut(id)
	})
}

func (c *Controller) ChooseIn(ctx context.Context, id string) (*View, error) {
	return c.apply(ctx, "choose_in", func(s *match.Session) error {
		return s.ChooseIn(id)
	})
}

func (c *Controller) CancelSubstitution(ctx context.Context) (*View, error) {
	return c.apply(ctx, "cancel_substitution", (*match.Session).CancelSubstitution)
}

// Navigation.

// BackToMenu pauses and leaves the match in place for ContinueMatch.
func (c *Controller) BackToMenu(ctx context.Context) (*View, error) {
	return c.apply(ctx, "back_to_menu", (*match.Session).BackToMenu)
}

// ContinueMatch returns from the menu to the stage that was left.
func (c *Controller) ContinueMatch(ctx context.Context) (*View, error) {
	return c.apply(ctx, "continue", (*match.Session).Resume)
}

// Finish ends play without saving; SaveAndEnd or Discard follow.
func (c *Controller) Finish(ctx context.Context) (*View, error) {
	return c.apply(ctx, "finish", (*match.Session).Finish)
}
