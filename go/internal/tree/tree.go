// Package tree is the remote match store: a JSON tree addressed by
// slash-separated paths, with atomic multi-path updates and path
// subscriptions that always deliver the latest snapshot.
package tree

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Tree is the store contract shared by scorers, relays and viewers.
type Tree interface {
	Reader
	// Update writes several paths in one atomic step. A nil value deletes.
	Update(ctx context.Context, updates map[string]any) error
	// Set overwrites (or, with nil, deletes) the subtree at path.
	Set(ctx context.Context, path string, value any) error
}

// Reader is the read-only half of Tree.
type Reader interface {
	// Subscribe calls fn with the current value at path, then again after
	// changes. Rapid changes may be coalesced into one call.
	Subscribe(path string, fn func(value any)) (unsubscribe func())
	// Get reads the value at path once. Missing paths read as nil.
	Get(ctx context.Context, path string) (any, error)
}

// ErrInvalidPath is returned for empty path segments.
var ErrInvalidPath = errors.New("invalid tree path")

// Well-known roots.
const (
	MatchesRoot   = "matches"
	CurrentKey    = "current"
	CompletedRoot = "matches/completed"
	ScheduledRoot = "matches/scheduled"
	PastRoot      = "matches/past"
)

// CurrentPath is the single-session path used when courts are not split.
func CurrentPath() string { return MatchesRoot + "/" + CurrentKey }

// CourtKey turns a court display name into its tree key: "Court A" -> "court_a".
func CourtKey(court string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(court)), " ", "_")
}

// CourtPath is the session path for a court.
func CourtPath(court string) string { return MatchesRoot + "/" + CourtKey(court) }

// CompletedPath is the completed-match node for id.
func CompletedPath(id string) string { return CompletedRoot + "/" + id }

// ScheduledPath is the scheduled-match node for id.
func ScheduledPath(id string) string { return ScheduledRoot + "/" + id }

// PastPath is the saved past-match node for id.
func PastPath(id string) string { return PastRoot + "/" + id }

// Join joins path segments with "/".
func Join(parts ...string) string {
	return Clean(strings.Join(parts, "/"))
}

// Clean trims surrounding slashes.
func Clean(path string) string {
	return strings.Trim(path, "/")
}

// Validate rejects paths with empty segments. The root path "" is valid.
func Validate(path string) error {
	path = Clean(path)
	if path == "" {
		return nil
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || strings.ContainsAny(seg, ".#$[]") {
			return fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return nil
}

// Overlaps reports whether a change at one path affects a subscription at
// the other.
func Overlaps(a, b string) bool {
	a, b = Clean(a), Clean(b)
	if a == "" || b == "" || a == b {
		return true
	}
	return strings.HasPrefix(a, b+"/") || strings.HasPrefix(b, a+"/")
}

// Ancestors returns the proper ancestors of path, nearest last.
func Ancestors(path string) []string {
	segs := strings.Split(Clean(path), "/")
	out := make([]string, 0, len(segs))
	for i := 1; i < len(segs); i++ {
		out = append(out, strings.Join(segs[:i], "/"))
	}
	return out
}

// Normalize converts v into plain JSON values (map[string]any, []any,
// float64, string, bool, nil).
func Normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tree value: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode tree value: %w", err)
	}
	return out, nil
}

// Flatten maps every leaf under value to its full path. Empty objects have
// no leaves and so vanish, matching delete semantics.
func Flatten(path string, value any, out map[string]any) {
	path = Clean(path)
	m, ok := value.(map[string]any)
	if !ok {
		if value != nil {
			out[path] = value
		}
		return
	}
	for k, v := range m {
		Flatten(Join(path, k), v, out)
	}
}

// Inflate rebuilds a nested value from leaves keyed relative to a base path.
// An entry with the empty key is the value itself.
func Inflate(leaves map[string]any) any {
	if v, ok := leaves[""]; ok {
		return v
	}
	if len(leaves) == 0 {
		return nil
	}
	keys := make([]string, 0, len(leaves))
	for k := range leaves {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	root := map[string]any{}
	for _, k := range keys {
		segs := strings.Split(k, "/")
		node := root
		for _, seg := range segs[:len(segs)-1] {
			child, ok := node[seg].(map[string]any)
			if !ok {
				child = map[string]any{}
				node[seg] = child
			}
			node = child
		}
		node[segs[len(segs)-1]] = leaves[k]
	}
	return root
}

// sortedPaths orders update keys so parents are written before children.
func sortedPaths(updates map[string]any) []string {
	paths := make([]string, 0, len(updates))
	for p := range updates {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool {
		di, dj := strings.Count(Clean(paths[i]), "/"), strings.Count(Clean(paths[j]), "/")
		if di != dj {
			return di < dj
		}
		return paths[i] < paths[j]
	})
	return paths
}
