package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/courtside/livescore/go/internal/models"
)

var errInvalidArgument = errors.New("invalid argument")

// args reads request fields out of a google.protobuf.Struct.
type args map[string]any

func newArgs(s *structpb.Struct) args {
	if s == nil {
		return args{}
	}
	return s.AsMap()
}

func (a args) str(key string) string {
	s, _ := a[key].(string)
	return strings.TrimSpace(s)
}

func (a args) requireStr(key string) (string, error) {
	s := a.str(key)
	if s == "" {
		return "", fmt.Errorf("%w: %s is required", errInvalidArgument, key)
	}
	return s, nil
}

func (a args) int(key string) (int, error) {
	f, ok := a[key].(float64)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be a number", errInvalidArgument, key)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %s must be a whole number", errInvalidArgument, key)
	}
	return int(f), nil
}

func (a args) team(key string) (models.Team, error) {
	t, ok := models.ParseTeam(a.str(key))
	if !ok {
		return "", fmt.Errorf("%w: %s must be A or B", errInvalidArgument, key)
	}
	return t, nil
}

func (a args) strs(key string) []string {
	list, _ := a[key].([]any)
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (a args) list(key string) []args {
	list, _ := a[key].([]any)
	out := make([]args, 0, len(list))
	for _, v := range list {
		if m, ok := v.(map[string]any); ok {
			out = append(out, args(m))
		}
	}
	return out
}

// toStruct encodes v through its JSON form. v must encode as an object.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	return structpb.NewStruct(m)
}
