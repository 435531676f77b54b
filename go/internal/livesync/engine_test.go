package livesync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/courtside/livescore/go/internal/models"
	"github.com/courtside/livescore/go/internal/tree"
)

const base = "matches/court_a"

// recordingTree wraps the in-memory tree, reports score-only writes on a
// channel and can be told to fail.
type recordingTree struct {
	*tree.Memory

	mu     sync.Mutex
	fail   error
	writes int
	scores chan ScorePair
}

func newRecordingTree() *recordingTree {
	return &recordingTree{Memory: tree.NewMemory(), scores: make(chan ScorePair, 16)}
}

func (r *recordingTree) Update(ctx context.Context, updates map[string]any) error {
	r.mu.Lock()
	fail := r.fail
	r.mu.Unlock()
	if fail != nil {
		return fail
	}
	if err := r.Memory.Update(ctx, updates); err != nil {
		return err
	}

	r.mu.Lock()
	r.writes++
	r.mu.Unlock()

	if p, ok := scoreOnly(updates); ok {
		r.scores <- p
	}
	return nil
}

// scoreOnly reports whether updates is a delayed score write: both scores
// plus the refreshed lastUpdated and nothing else.
func scoreOnly(updates map[string]any) (ScorePair, bool) {
	a, hasA := updates[base+"/scoreA"].(int)
	b, hasB := updates[base+"/scoreB"].(int)
	_, hasStamp := updates[base+"/lastUpdated"]
	if !hasA || !hasB || !hasStamp || len(updates) != 3 {
		return ScorePair{}, false
	}
	return ScorePair{A: a, B: b}, true
}

func (r *recordingTree) setFail(err error) {
	r.mu.Lock()
	r.fail = err
	r.mu.Unlock()
}

func (r *recordingTree) writeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

func (r *recordingTree) remoteScore(t *testing.T) ScorePair {
	t.Helper()
	v, err := r.Get(context.Background(), base)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	s := models.DecodeSession(v)
	return ScorePair{A: s.ScoreA, B: s.ScoreB}
}

func (r *recordingTree) lastUpdated(t *testing.T) int64 {
	t.Helper()
	v, err := r.Get(context.Background(), base+"/lastUpdated")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	f, _ := v.(float64)
	return int64(f)
}

func newTestEngine(t *testing.T, delay time.Duration) (*Engine, *recordingTree, *clockwork.FakeClock, chan error) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	rt := newRecordingTree()
	errs := make(chan error, 4)
	e := NewEngine(rt, clock, Config{
		Base:       base,
		ScoreDelay: delay,
		OnError:    func(err error) { errs <- err },
	})
	return e, rt, clock, errs
}

func push(t *testing.T, e *Engine, s *models.MatchSession) {
	t.Helper()
	s.LastUpdated++
	if err := e.Push(context.Background(), s); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
}

func expectNoScoreWrite(t *testing.T, rt *recordingTree) {
	t.Helper()
	select {
	case p := <-rt.scores:
		t.Fatalf("unexpected score write %+v", p)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDelayedScoreWritesOnlyFinalValue(t *testing.T) {
	e, rt, clock, _ := newTestEngine(t, 3*time.Second)
	s := models.NewMatchSession()
	push(t, e, s)

	for _, score := range []int{2, 5, 8} {
		s.ScoreA = score
		push(t, e, s)
		clock.Advance(time.Second)
	}

	if got := rt.remoteScore(t); got != (ScorePair{}) {
		t.Fatalf("remote score before delay = %+v, want zero", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("pending timer never registered: %v", err)
	}
	clock.Advance(3 * time.Second)

	select {
	case p := <-rt.scores:
		if p != (ScorePair{A: 8}) {
			t.Fatalf("delayed write = %+v, want {8 0}", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("delayed score never written")
	}
	expectNoScoreWrite(t, rt)

	if got := e.Committed(); got != (ScorePair{A: 8}) {
		t.Fatalf("Committed() = %+v", got)
	}
	if _, ok := e.PendingScore(); ok {
		t.Fatal("score still pending after flush")
	}
}

func TestCancelPendingScoreWritesNothing(t *testing.T) {
	e, rt, clock, _ := newTestEngine(t, 3*time.Second)
	s := models.NewMatchSession()
	s.ScoreA = 18
	push(t, e, s)

	s.ScoreA = 21
	push(t, e, s)
	if p, ok := e.PendingScore(); !ok || p.A != 21 {
		t.Fatalf("PendingScore() = %+v, %v", p, ok)
	}

	if !e.CancelPendingScore() {
		t.Fatal("CancelPendingScore() = false, want true")
	}
	if e.CancelPendingScore() {
		t.Fatal("second cancel reported a pending score")
	}
	clock.Advance(10 * time.Second)
	expectNoScoreWrite(t, rt)

	if got := rt.remoteScore(t); got.A != 18 {
		t.Fatalf("remote scoreA = %d, want 18", got.A)
	}

	// Pushing the same local score again does not revive the cancelled write.
	push(t, e, s)
	if _, ok := e.PendingScore(); ok {
		t.Fatal("cancelled score was re-buffered")
	}
}

func TestNonScoreFieldsAreImmediate(t *testing.T) {
	e, rt, _, _ := newTestEngine(t, 3*time.Second)
	s := models.NewMatchSession()
	push(t, e, s)

	s.Quarter = 2
	s.TimerSeconds = 321
	s.ScoreB = 3
	push(t, e, s)

	v, _ := rt.Get(context.Background(), base)
	got := models.DecodeSession(v)
	if got.Quarter != 2 || got.TimerSeconds != 321 {
		t.Fatalf("remote quarter/timer = %d/%d, want 2/321", got.Quarter, got.TimerSeconds)
	}
	if got.ScoreB != 0 {
		t.Fatalf("remote scoreB = %d before delay, want 0", got.ScoreB)
	}
}

func TestPushSkipsUnchangedSession(t *testing.T) {
	e, rt, _, _ := newTestEngine(t, 3*time.Second)
	s := models.NewMatchSession()
	push(t, e, s)
	before := rt.writeCount()

	if err := e.Push(context.Background(), s); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if rt.writeCount() != before {
		t.Fatalf("unchanged session caused a write")
	}
}

func TestPushFailureRetriesSameFields(t *testing.T) {
	e, rt, _, _ := newTestEngine(t, 3*time.Second)
	s := models.NewMatchSession()
	push(t, e, s)

	rt.setFail(errors.New("store offline"))
	s.Quarter = 3
	s.ScoreA = 2
	s.LastUpdated++
	if err := e.Push(context.Background(), s); err == nil {
		t.Fatal("expected push error")
	}
	if _, ok := e.PendingScore(); ok {
		t.Fatal("score buffered despite failed push")
	}

	rt.setFail(nil)
	if err := e.Push(context.Background(), s); err != nil {
		t.Fatalf("Push() retry error = %v", err)
	}
	v, _ := rt.Get(context.Background(), base+"/quarter")
	if v != float64(3) {
		t.Fatalf("remote quarter = %v, want 3", v)
	}
	if p, ok := e.PendingScore(); !ok || p.A != 2 {
		t.Fatalf("PendingScore() = %+v, %v", p, ok)
	}
}

func TestDelayedWriteFailureKeepsCommittedScore(t *testing.T) {
	e, rt, clock, errs := newTestEngine(t, 3*time.Second)
	s := models.NewMatchSession()
	s.ScoreA = 10
	push(t, e, s)

	s.ScoreA = 12
	push(t, e, s)
	rt.setFail(errors.New("store offline"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("pending timer never registered: %v", err)
	}
	clock.Advance(3 * time.Second)

	select {
	case err := <-errs:
		if err == nil {
			t.Fatal("OnError called with nil")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("delayed write failure not reported")
	}
	if got := e.Committed(); got.A != 10 {
		t.Fatalf("Committed().A = %d, want 10", got.A)
	}
}

func TestZeroDelayWritesInline(t *testing.T) {
	e, rt, _, _ := newTestEngine(t, 0)
	s := models.NewMatchSession()
	push(t, e, s)

	s.ScoreA = 7
	push(t, e, s)
	if got := rt.remoteScore(t); got.A != 7 {
		t.Fatalf("remote scoreA = %d, want 7", got.A)
	}
	if _, ok := e.PendingScore(); ok {
		t.Fatal("zero delay left a pending score")
	}
}

func TestFlushWritesPendingNow(t *testing.T) {
	e, rt, _, _ := newTestEngine(t, time.Minute)
	s := models.NewMatchSession()
	push(t, e, s)
	s.ScoreB = 4
	push(t, e, s)

	if err := e.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if got := rt.remoteScore(t); got.B != 4 {
		t.Fatalf("remote scoreB = %d, want 4", got.B)
	}
	if _, ok := e.PendingScore(); ok {
		t.Fatal("score pending after Flush")
	}
}

func TestDelayedScoreRefreshesLastUpdated(t *testing.T) {
	e, rt, clock, _ := newTestEngine(t, 3*time.Second)
	s := models.NewMatchSession()
	s.LastUpdated = clock.Now().UnixMilli()
	push(t, e, s)
	s.ScoreA = 3
	push(t, e, s)
	pushed := rt.lastUpdated(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("pending timer never registered: %v", err)
	}
	clock.Advance(3 * time.Second)
	select {
	case <-rt.scores:
	case <-time.After(2 * time.Second):
		t.Fatal("delayed score never written")
	}

	if got := rt.lastUpdated(t); got <= pushed {
		t.Fatalf("lastUpdated after delayed write = %d, want > %d", got, pushed)
	}

	// a later push with an older local stamp still moves lastUpdated forward
	before := rt.lastUpdated(t)
	s.Quarter = 2
	if err := e.Push(context.Background(), s); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if got := rt.lastUpdated(t); got <= before {
		t.Fatalf("lastUpdated after push = %d, want > %d", got, before)
	}
}

// gatedTree blocks delayed score writes until release is closed.
type gatedTree struct {
	*tree.Memory
	entered chan struct{}
	release chan struct{}
}

func (g *gatedTree) Update(ctx context.Context, updates map[string]any) error {
	if _, ok := scoreOnly(updates); ok {
		close(g.entered)
		<-g.release
	}
	return g.Memory.Update(ctx, updates)
}

func TestReplaceWaitsForInFlightScore(t *testing.T) {
	clock := clockwork.NewFakeClock()
	gt := &gatedTree{Memory: tree.NewMemory(), entered: make(chan struct{}), release: make(chan struct{})}
	e := NewEngine(gt, clock, Config{Base: base, ScoreDelay: 3 * time.Second})

	s := models.NewMatchSession()
	s.TeamA = "Hawks"
	push(t, e, s)
	s.ScoreA = 21
	push(t, e, s)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("pending timer never registered: %v", err)
	}
	clock.Advance(3 * time.Second)
	select {
	case <-gt.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("delayed write never started")
	}

	done := make(chan error, 1)
	go func() { done <- e.Replace(context.Background(), models.NewMatchSession()) }()
	select {
	case err := <-done:
		t.Fatalf("Replace() returned before the in-flight write finished: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	close(gt.release)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Replace() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Replace() never returned")
	}

	v, err := gt.Get(context.Background(), base)
	if err != nil {
		t.Fatal(err)
	}
	got := models.DecodeSession(v)
	if got.TeamA != "" || got.ScoreA != 0 {
		t.Fatalf("after replace: teamA=%q scoreA=%d, want blank", got.TeamA, got.ScoreA)
	}
	if got := e.Committed(); got != (ScorePair{}) {
		t.Fatalf("Committed() = %+v, want zero", got)
	}
}
