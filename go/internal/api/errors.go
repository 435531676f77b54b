package api

import (
	"context"
	"errors"
	"net/http"

	"connectrpc.com/connect"
	"github.com/rs/zerolog/log"

	"github.com/courtside/livescore/go/internal/auth"
	"github.com/courtside/livescore/go/internal/docstore"
	"github.com/courtside/livescore/go/internal/match"
	"github.com/courtside/livescore/go/internal/roster"
	"github.com/courtside/livescore/go/internal/scoring"
)

var (
	errUnauthenticated  = errors.New("sign in required")
	errPermissionDenied = errors.New("not allowed for this role or court")
)

// classify maps a domain error to a status code and the message safe to
// show the caller.
func classify(err error) (connect.Code, string) {
	var rejection *match.Rejection
	var loginErr *auth.LoginError
	switch {
	case errors.As(err, &rejection):
		return connect.CodeFailedPrecondition, rejection.Reason
	case errors.As(err, &loginErr):
		if errors.Is(err, auth.ErrLocked) {
			return connect.CodeResourceExhausted, loginErr.Message
		}
		return connect.CodeUnauthenticated, loginErr.Message
	case errors.Is(err, errUnauthenticated):
		return connect.CodeUnauthenticated, err.Error()
	case errors.Is(err, errPermissionDenied):
		return connect.CodePermissionDenied, err.Error()
	case errors.Is(err, scoring.ErrSyncFailed):
		return connect.CodeUnavailable, "Could not reach the match store. The change was undone."
	case errors.Is(err, docstore.ErrNotFound), errors.Is(err, scoring.ErrUnknownCourt):
		return connect.CodeNotFound, err.Error()
	case errors.Is(err, errInvalidArgument), errors.Is(err, docstore.ErrInvalid), errors.Is(err, roster.ErrNoPlayers):
		return connect.CodeInvalidArgument, err.Error()
	case errors.Is(err, docstore.ErrCompleted), errors.Is(err, docstore.ErrInvalidTransition):
		return connect.CodeFailedPrecondition, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded, "request timed out"
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled, "request canceled"
	}
	return connect.CodeInternal, "internal error"
}

func toConnectError(procedure string, err error) *connect.Error {
	code, msg := classify(err)
	if code == connect.CodeInternal || code == connect.CodeUnavailable {
		log.Error().Err(err).Str("procedure", procedure).Msg("request failed")
	}
	return connect.NewError(code, errors.New(msg))
}

func httpStatus(code connect.Code) int {
	switch code {
	case connect.CodeInvalidArgument:
		return http.StatusBadRequest
	case connect.CodeUnauthenticated:
		return http.StatusUnauthorized
	case connect.CodePermissionDenied:
		return http.StatusForbidden
	case connect.CodeNotFound:
		return http.StatusNotFound
	case connect.CodeFailedPrecondition:
		return http.StatusConflict
	case connect.CodeResourceExhausted:
		return http.StatusTooManyRequests
	case connect.CodeUnavailable:
		return http.StatusServiceUnavailable
	case connect.CodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
