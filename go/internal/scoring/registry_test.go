package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/courtside/livescore/go/internal/docstore"
	"github.com/courtside/livescore/go/internal/match"
	"github.com/courtside/livescore/go/internal/tree"
)

func TestRegistrySessionPaths(t *testing.T) {
	tests := []struct {
		name    string
		cfg     RegistryConfig
		court   string
		want    string
		wantErr error
	}{
		{"court mode", RegistryConfig{Mode: ModeCourt, Courts: []string{"Court A", "Court B"}}, "court b", "matches/court_b", nil},
		{"display name", RegistryConfig{Mode: ModeCourt, Courts: []string{"Center Court"}}, "Center Court", "matches/center_court", nil},
		{"empty court picks first", RegistryConfig{Mode: ModeCourt, Courts: []string{"Court B"}}, "", "matches/court_b", nil},
		{"unknown court", RegistryConfig{Mode: ModeCourt, Courts: []string{"Court A"}}, "Court Z", "", ErrUnknownCourt},
		{"open court list", RegistryConfig{Mode: ModeCourt}, "Court Z", "matches/court_z", nil},
		{"current mode", RegistryConfig{Mode: ModeCurrent, Courts: []string{"Court A"}}, "Court A", "matches/current", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(Deps{}, tt.cfg)
			got, err := r.SessionPath(tt.court)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("path = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRegistryReusesControllers(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	r := NewRegistry(Deps{
		Tree:  tree.NewMemory(),
		Docs:  docstore.NewMemory(clock),
		Clock: clock,
	}, RegistryConfig{
		Mode:     ModeCourt,
		Courts:   []string{"Court A", "Court B"},
		Settings: match.DefaultSettings(),
	})
	defer r.Close(ctx)

	a1, err := r.Controller(ctx, "Court A")
	if err != nil {
		t.Fatal(err)
	}
	a2, err := r.Controller(ctx, "court_a")
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Controller(ctx, "Court B")
	if err != nil {
		t.Fatal(err)
	}
	if a1 != a2 {
		t.Fatal("same court returned two controllers")
	}
	if a1 == b || b.Base() != "matches/court_b" || b.Court() != "Court B" {
		t.Fatalf("court B controller = %s (%s)", b.Base(), b.Court())
	}
	if got := len(r.SessionPaths()); got != 2 {
		t.Fatalf("session paths = %d", got)
	}
}

// slowTree holds reads of one path until release is closed.
type slowTree struct {
	*tree.Memory
	path    string
	entered chan struct{}
	release chan struct{}
}

func (s *slowTree) Get(ctx context.Context, path string) (any, error) {
	if path == s.path {
		s.entered <- struct{}{}
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.Memory.Get(ctx, path)
}

func TestRegistrySlowCourtDoesNotBlockOthers(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	st := &slowTree{
		Memory:  tree.NewMemory(),
		path:    "matches/court_a",
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	r := NewRegistry(Deps{Tree: st, Docs: docstore.NewMemory(clock), Clock: clock}, RegistryConfig{
		Mode:     ModeCourt,
		Courts:   []string{"Court A", "Court B"},
		Settings: match.DefaultSettings(),
	})
	defer r.Close(ctx)

	type result struct {
		c   *Controller
		err error
	}
	first := make(chan result, 1)
	second := make(chan result, 1)
	go func() {
		c, err := r.Controller(ctx, "Court A")
		first <- result{c, err}
	}()
	select {
	case <-st.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("court A never started resuming")
	}
	go func() {
		c, err := r.Controller(ctx, "court_a")
		second <- result{c, err}
	}()

	done := make(chan error, 1)
	go func() {
		_, err := r.Controller(ctx, "Court B")
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("court B waited on court A")
	}

	close(st.release)
	a, b := <-first, <-second
	if a.err != nil || b.err != nil {
		t.Fatalf("errors = %v, %v", a.err, b.err)
	}
	if a.c != b.c {
		t.Fatal("concurrent callers got two court A controllers")
	}
}
