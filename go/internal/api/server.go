// Package api serves the scorer, scheduler and admin surfaces over Connect.
// Requests and responses are google.protobuf.Struct values whose fields
// follow the JSON shapes of the models package.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"connectrpc.com/grpcreflect"
	"github.com/go-chi/chi/v5"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/courtside/livescore/go/internal/admin"
	"github.com/courtside/livescore/go/internal/auth"
	"github.com/courtside/livescore/go/internal/scoring"
)

type access int

const (
	accessPublic access = iota
	accessAny
	accessScorer
	accessScheduler
	accessAdmin
)

type procedure struct {
	service string
	method  string
	access  access
	call    func(ctx context.Context, in args) (any, error)
}

func (p procedure) path() string {
	return "/" + p.service + "/" + p.method
}

type Server struct {
	auth     *auth.Authenticator
	registry *scoring.Registry
	admin    *admin.Service
}

func NewServer(authenticator *auth.Authenticator, registry *scoring.Registry, adminSvc *admin.Service) *Server {
	return &Server{auth: authenticator, registry: registry, admin: adminSvc}
}

func (s *Server) procedures() []procedure {
	var procs []procedure
	procs = append(procs, s.authProcedures()...)
	procs = append(procs, s.scoringProcedures()...)
	procs = append(procs, s.scheduleProcedures()...)
	procs = append(procs, s.adminProcedures()...)
	return procs
}

// Mount registers every RPC, the reflection service, the roster import
// routes and the scorer notification socket on r.
func (s *Server) Mount(r chi.Router) error {
	procs := s.procedures()
	fd, err := registerSchema(procs)
	if err != nil {
		return err
	}

	for _, p := range procs {
		md := methodDescriptor(fd, p.service, p.method)
		if md == nil {
			return fmt.Errorf("failed to find schema for %s", p.path())
		}
		r.Handle(p.path(), connect.NewUnaryHandler(
			p.path(),
			s.unary(p),
			connect.WithSchema(md),
			connect.WithInterceptors(s.authorize(p.access)),
		))
	}

	reflector := grpcreflect.NewStaticReflector(ServiceNames...)
	r.Handle(grpcreflect.NewHandlerV1(reflector))
	r.Handle(grpcreflect.NewHandlerV1Alpha(reflector))

	r.Get("/import/template.csv", s.handleTemplate)
	r.Post("/import/{matchId}", s.handleImport)
	r.Get("/ws/notifications", s.handleNotifications)
	return nil
}

func (s *Server) unary(p procedure) func(context.Context, *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	return func(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
		in := newArgs(req.Msg)
		if p.service == AuthServiceName && p.method == "Login" {
			in["client"] = clientHost(req.Peer().Addr)
		}
		out, err := p.call(ctx, in)
		if err != nil {
			return nil, toConnectError(p.path(), err)
		}
		msg, err := toStruct(out)
		if err != nil {
			return nil, toConnectError(p.path(), err)
		}
		return connect.NewResponse(msg), nil
	}
}

type callerKey struct{}

func withCaller(ctx context.Context, sess *auth.Session) context.Context {
	return context.WithValue(ctx, callerKey{}, sess)
}

func callerFrom(ctx context.Context) *auth.Session {
	sess, _ := ctx.Value(callerKey{}).(*auth.Session)
	return sess
}

// authorize resolves the bearer token and checks the caller's role. Court
// checks happen once the court argument is known.
func (s *Server) authorize(level access) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if level == accessPublic {
				return next(ctx, req)
			}
			sess, err := s.caller(req.Header().Get("Authorization"), level)
			if err != nil {
				return nil, toConnectError(req.Spec().Procedure, err)
			}
			return next(withCaller(ctx, sess), req)
		}
	}
}

func (s *Server) caller(header string, level access) (*auth.Session, error) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil, errUnauthenticated
	}
	return s.lookup(strings.TrimSpace(token), level)
}

func (s *Server) lookup(token string, level access) (*auth.Session, error) {
	sess, ok := s.auth.Sessions().Lookup(token)
	if !ok {
		return nil, errUnauthenticated
	}
	var role auth.Role
	switch level {
	case accessScorer:
		role = auth.RoleScorer
	case accessScheduler:
		role = auth.RoleScheduler
	case accessAdmin:
		role = auth.RoleAdmin
	default:
		return sess, nil
	}
	if !sess.Allows(role, "") {
		return nil, errPermissionDenied
	}
	return sess, nil
}

func clientHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

func bearerToken(r *http.Request) string {
	token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return strings.TrimSpace(token)
}
