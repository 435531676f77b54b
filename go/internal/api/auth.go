package api

import (
	"context"

	"github.com/courtside/livescore/go/internal/auth"
	"github.com/courtside/livescore/go/internal/tree"
)

type courtInfo struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

func (s *Server) authProcedures() []procedure {
	return []procedure{
		{AuthServiceName, "ListCourts", accessPublic, s.listCourts},
		{AuthServiceName, "Login", accessPublic, s.login},
		{AuthServiceName, "Logout", accessAny, s.logout},
		{AuthServiceName, "WhoAmI", accessAny, func(ctx context.Context, in args) (any, error) {
			return map[string]any{"session": callerFrom(ctx)}, nil
		}},
	}
}

func (s *Server) listCourts(ctx context.Context, in args) (any, error) {
	courts := make([]courtInfo, 0)
	for _, name := range s.registry.Courts() {
		courts = append(courts, courtInfo{Name: name, Key: tree.CourtKey(name)})
	}
	return map[string]any{"mode": s.registry.Mode(), "courts": courts}, nil
}

func (s *Server) login(ctx context.Context, in args) (any, error) {
	role, ok := auth.ParseRole(in.str("role"))
	if !ok {
		role = auth.Role(in.str("role"))
	}
	sess, err := s.auth.Login(ctx, auth.LoginRequest{
		Role:     role,
		Court:    in.str("court"),
		Password: in.str("password"),
		Client:   in.str("client"),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"session": sess}, nil
}

func (s *Server) logout(ctx context.Context, in args) (any, error) {
	s.auth.Sessions().Logout(callerFrom(ctx).Token)
	return map[string]any{}, nil
}
