package api

import (
	"context"

	"github.com/courtside/livescore/go/internal/auth"
	"github.com/courtside/livescore/go/internal/match"
	"github.com/courtside/livescore/go/internal/scoring"
)

type viewFunc func(ctx context.Context, c *scoring.Controller, in args) (*scoring.View, error)

// controller resolves the court a scoring call targets. The court argument
// wins; otherwise a court-bound scorer gets their own court.
func (s *Server) controller(ctx context.Context, in args) (*scoring.Controller, error) {
	caller := callerFrom(ctx)
	if caller == nil {
		return nil, errUnauthenticated
	}
	court := in.str("court")
	if court == "" {
		court = caller.Court
	}
	if !caller.Allows(auth.RoleScorer, court) {
		return nil, errPermissionDenied
	}
	return s.registry.Controller(ctx, court)
}

func (s *Server) scorer(method string, fn viewFunc) procedure {
	return procedure{ScoringServiceName, method, accessScorer, func(ctx context.Context, in args) (any, error) {
		c, err := s.controller(ctx, in)
		if err != nil {
			return nil, err
		}
		v, err := fn(ctx, c, in)
		if err != nil {
			return nil, err
		}
		return v, nil
	}}
}

// noArgs adapts a controller operation that takes no request fields.
func noArgs(op func(*scoring.Controller, context.Context) (*scoring.View, error)) viewFunc {
	return func(ctx context.Context, c *scoring.Controller, _ args) (*scoring.View, error) {
		return op(c, ctx)
	}
}

// byID adapts a controller operation keyed by a player id.
func byID(op func(*scoring.Controller, context.Context, string) (*scoring.View, error)) viewFunc {
	return func(ctx context.Context, c *scoring.Controller, in args) (*scoring.View, error) {
		id, err := in.requireStr("playerId")
		if err != nil {
			return nil, err
		}
		return op(c, ctx, id)
	}
}

func (s *Server) scoringProcedures() []procedure {
	return []procedure{
		s.scorer("GetSession", func(ctx context.Context, c *scoring.Controller, _ args) (*scoring.View, error) {
			return c.View(), nil
		}),
		s.scorer("LoadScheduled", func(ctx context.Context, c *scoring.Controller, in args) (*scoring.View, error) {
			id, err := in.requireStr("scheduleId")
			if err != nil {
				return nil, err
			}
			return c.LoadScheduled(ctx, id)
		}),

		// setup
		s.scorer("EnterSetup", noArgs((*scoring.Controller).EnterSetup)),
		s.scorer("SetTeams", func(ctx context.Context, c *scoring.Controller, in args) (*scoring.View, error) {
			return c.SetTeams(ctx, in.str("teamA"), in.str("teamB"))
		}),
		s.scorer("SetMatchDetails", func(ctx context.Context, c *scoring.Controller, in args) (*scoring.View, error) {
			return c.SetMatchDetails(ctx, in.str("matchType"), in.str("roundType"))
		}),
		s.scorer("AddPlayer", func(ctx context.Context, c *scoring.Controller, in args) (*scoring.View, error) {
			team, err := in.team("team")
			if err != nil {
				return nil, err
			}
			return c.AddPlayer(ctx, match.PlayerInput{Name: in.str("name"), Jersey: in.str("jersey"), Team: team})
		}),
		s.scorer("ImportPlayers", func(ctx context.Context, c *scoring.Controller, in args) (*scoring.View, error) {
			rows := in.list("players")
			players := make([]match.PlayerInput, 0, len(rows))
			for _, row := range rows {
				team, err := row.team("team")
				if err != nil {
					return nil, err
				}
				players = append(players, match.PlayerInput{Name: row.str("name"), Jersey: row.str("jersey"), Team: team})
			}
			return c.ImportPlayers(ctx, players)
		}),
		s.scorer("RemovePlayer", byID((*scoring.Controller).RemovePlayer)),
		s.scorer("ProceedToSelectPlaying5", noArgs((*scoring.Controller).ProceedToSelectPlaying5)),
		s.scorer("TogglePlaying", byID((*scoring.Controller).TogglePlaying)),
		s.scorer("StartMatch", noArgs((*scoring.Controller).StartMatch)),

		// clock and periods
		s.scorer("StartClock", noArgs((*scoring.Controller).StartClock)),
		s.scorer("PauseClock", noArgs((*scoring.Controller).PauseClock)),
		s.scorer("ResetClock", noArgs((*scoring.Controller).ResetClock)),
		s.scorer("SetQuarterDuration", func(ctx context.Context, c *scoring.Controller, in args) (*scoring.View, error) {
			minutes, err := in.int("minutes")
			if err != nil {
				return nil, err
			}
			return c.SetQuarterDuration(ctx, minutes)
		}),
		s.scorer("EndPeriodEarly", noArgs((*scoring.Controller).EndPeriodEarly)),
		s.scorer("StartOvertime", noArgs((*scoring.Controller).StartOvertime)),
		s.scorer("ChangeQuarter", func(ctx context.Context, c *scoring.Controller, in args) (*scoring.View, error) {
			quarter, err := in.int("quarter")
			if err != nil {
				return nil, err
			}
			return c.ChangeQuarter(ctx, quarter)
		}),

		// timeouts
		s.scorer("StartTimeout", func(ctx context.Context, c *scoring.Controller, in args) (*scoring.View, error) {
			team, err := in.team("team")
			if err != nil {
				return nil, err
			}
			return c.StartTimeout(ctx, team)
		}),
		s.scorer("EndTimeout", noArgs((*scoring.Controller).EndTimeout)),

		// scoring and fouls
		s.scorer("SelectForScoring", byID((*scoring.Controller).SelectForScoring)),
		s.scorer("AddPoints", func(ctx context.Context, c *scoring.Controller, in args) (*scoring.View, error) {
			delta, err := in.int("points")
			if err != nil {
				return nil, err
			}
			return c.AddPoints(ctx, delta)
		}),
		s.scorer("UndoLastScore", noArgs((*scoring.Controller).UndoLastScore)),
		s.scorer("AddFoul", noArgs((*scoring.Controller).AddFoul)),
		s.scorer("UndoFoul", noArgs((*scoring.Controller).UndoFoul)),
		s.scorer("CancelPendingScore", func(ctx context.Context, c *scoring.Controller, _ args) (*scoring.View, error) {
			c.CancelPendingScore()
			return c.View(), nil
		}),

		// substitutions
		s.scorer("BeginSubstitution", func(ctx context.Context, c *scoring.Controller, in args) (*scoring.View, error) {
			team, err := in.team("team")
			if err != nil {
				return nil, err
			}
			return c.BeginSubstitution(ctx, team)
		}),
		s.scorer("ChooseOut", byID((*scoring.Controller).ChooseOut)),
		s.scorer("ChooseIn", byID((*scoring.Controller).ChooseIn)),
		s.scorer("CancelSubstitution", noArgs((*scoring.Controller).CancelSubstitution)),

		// menu and end of match
		s.scorer("BackToMenu", noArgs((*scoring.Controller).BackToMenu)),
		s.scorer("ContinueMatch", noArgs((*scoring.Controller).ContinueMatch)),
		s.scorer("Finish", noArgs((*scoring.Controller).Finish)),
		s.scorer("Discard", func(ctx context.Context, c *scoring.Controller, _ args) (*scoring.View, error) {
			return c.Discard(ctx), nil
		}),
		{ScoringServiceName, "SaveAndEnd", accessScorer, func(ctx context.Context, in args) (any, error) {
			c, err := s.controller(ctx, in)
			if err != nil {
				return nil, err
			}
			pm, err := c.SaveAndEnd(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{"pastMatch": pm, "view": c.View()}, nil
		}},
	}
}
