package api

import (
	"context"

	"github.com/courtside/livescore/go/internal/admin"
	"github.com/courtside/livescore/go/internal/docstore"
)

func (s *Server) scheduleProcedures() []procedure {
	return []procedure{
		{ScheduleServiceName, "CreateMatch", accessScheduler, s.createMatch},
		{ScheduleServiceName, "UpdateMatch", accessScheduler, s.updateMatch},
		{ScheduleServiceName, "GetMatch", accessAny, s.getMatch},
		{ScheduleServiceName, "ListMatches", accessAny, s.listMatches},
		{ScheduleServiceName, "DeleteMatch", accessScheduler, s.deleteMatch},
		{ScheduleServiceName, "AddPlayers", accessScheduler, s.addPlayers},
		{ScheduleServiceName, "ListPlayers", accessAny, s.listPlayers},
		{ScheduleServiceName, "DeletePlayer", accessScheduler, s.deletePlayer},
	}
}

func (s *Server) createMatch(ctx context.Context, in args) (any, error) {
	sm, err := s.admin.CreateMatch(ctx, docstore.CreateMatchRequest{
		MatchID:   in.str("matchId"),
		TeamA:     in.str("teamA"),
		TeamB:     in.str("teamB"),
		Date:      in.str("date"),
		Time:      in.str("time"),
		Venue:     in.str("venue"),
		MatchType: in.str("matchType"),
		Gender:    in.str("gender"),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"match": sm}, nil
}

func (s *Server) updateMatch(ctx context.Context, in args) (any, error) {
	id, err := in.requireStr("id")
	if err != nil {
		return nil, err
	}
	sm, err := s.admin.UpdateMatch(ctx, id, docstore.UpdateMatchRequest{
		TeamA:     in.str("teamA"),
		TeamB:     in.str("teamB"),
		Date:      in.str("date"),
		Time:      in.str("time"),
		Venue:     in.str("venue"),
		MatchType: in.str("matchType"),
		Gender:    in.str("gender"),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"match": sm}, nil
}

func (s *Server) getMatch(ctx context.Context, in args) (any, error) {
	id, err := in.requireStr("id")
	if err != nil {
		return nil, err
	}
	sm, err := s.admin.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	return map[string]any{"match": sm}, nil
}

func (s *Server) listMatches(ctx context.Context, in args) (any, error) {
	order := docstore.OrderCreatedDesc
	if in.str("order") == "date" {
		order = docstore.OrderDateAsc
	}
	list, err := s.admin.ListMatches(ctx, order)
	if err != nil {
		return nil, err
	}
	return map[string]any{"matches": list}, nil
}

func (s *Server) deleteMatch(ctx context.Context, in args) (any, error) {
	id, err := in.requireStr("id")
	if err != nil {
		return nil, err
	}
	if err := s.admin.DeleteMatch(ctx, id); err != nil {
		return nil, err
	}
	return map[string]any{}, nil
}

func (s *Server) addPlayers(ctx context.Context, in args) (any, error) {
	matchID, err := in.requireStr("matchId")
	if err != nil {
		return nil, err
	}
	rows := in.list("players")
	players := make([]docstore.PlayerInput, 0, len(rows))
	for _, row := range rows {
		team, err := row.team("team")
		if err != nil {
			return nil, err
		}
		players = append(players, docstore.PlayerInput{
			Team:         team,
			JerseyNumber: row.str("jerseyNumber"),
			PlayerName:   row.str("playerName"),
		})
	}
	out, err := s.admin.AddPlayers(ctx, matchID, players)
	if err != nil {
		return nil, err
	}
	return map[string]any{"players": out}, nil
}

func (s *Server) listPlayers(ctx context.Context, in args) (any, error) {
	matchID, err := in.requireStr("matchId")
	if err != nil {
		return nil, err
	}
	out, err := s.admin.ListPlayers(ctx, matchID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"players": out}, nil
}

func (s *Server) deletePlayer(ctx context.Context, in args) (any, error) {
	id, err := in.requireStr("id")
	if err != nil {
		return nil, err
	}
	if err := s.admin.DeletePlayer(ctx, id); err != nil {
		return nil, err
	}
	return map[string]any{}, nil
}

func (s *Server) adminProcedures() []procedure {
	return []procedure{
		{AdminServiceName, "ListPastMatches", accessAdmin, func(ctx context.Context, in args) (any, error) {
			list, err := s.admin.PastMatches(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{"pastMatches": list}, nil
		}},
		{AdminServiceName, "DeletePaths", accessAdmin, func(ctx context.Context, in args) (any, error) {
			kind, err := admin.ParseKind(in.str("kind"))
			if err != nil {
				return nil, err
			}
			n, err := s.admin.DeletePaths(ctx, kind, in.strs("ids"))
			if err != nil {
				return nil, err
			}
			return map[string]any{"deleted": n}, nil
		}},
		{AdminServiceName, "CleanupOrphans", accessAdmin, func(ctx context.Context, in args) (any, error) {
			return s.admin.CleanupOrphans(ctx)
		}},
	}
}
