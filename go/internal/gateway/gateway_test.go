package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/courtside/livescore/go/internal/models"
	"github.com/courtside/livescore/go/internal/relay"
	"github.com/courtside/livescore/go/internal/tree"
	"github.com/courtside/livescore/go/internal/viewer"
)

func putSession(t *testing.T, store *tree.Memory, path string, scoreA int, at int64) {
	t.Helper()
	s := models.NewMatchSession()
	s.TeamA, s.TeamB = "Hawks", "Owls"
	s.MatchStage = models.StageMatch
	s.ScoreA, s.LastUpdated = scoreA, at
	enc, err := s.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Set(context.Background(), path, enc); err != nil {
		t.Fatal(err)
	}
}

func startGateway(t *testing.T, store *tree.Memory, paths ...string) (*Service, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := DefaultConfig()
	cfg.Paths = paths
	svc, err := NewService(cfg, store, clockwork.NewFakeClock())
	if err != nil {
		t.Fatal(err)
	}
	go svc.Start(ctx)

	r := chi.NewRouter()
	svc.RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return svc, srv
}

func dial(t *testing.T, srv *httptest.Server, court string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/scoreboard?court=" + court
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUntil(t *testing.T, conn *websocket.Conn, id string) *ScoreboardEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", id, err)
		}
		var ev ScoreboardEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatal(err)
		}
		if ev.ID == id {
			return &ev
		}
	}
}

func TestScoreboardSocketStreamsCourt(t *testing.T) {
	store := tree.NewMemory()
	putSession(t, store, "matches/court_a", 2, 1000)
	putSession(t, store, "matches/court_b", 9, 1000)
	svc, srv := startGateway(t, store, "matches/court_a", "matches/court_b")

	conn := dial(t, srv, "Court A")
	ev := readUntil(t, conn, "court_a-1000")
	if ev.Court != "court_a" || ev.Type != relay.EventTypeSessionUpdated {
		t.Fatalf("first event = %+v", ev)
	}

	putSession(t, store, "matches/court_a", 5, 2000)
	ev = readUntil(t, conn, "court_a-2000")
	var s models.MatchSession
	if err := json.Unmarshal(ev.Data, &s); err != nil {
		t.Fatal(err)
	}
	if s.ScoreA != 5 {
		t.Fatalf("score = %d", s.ScoreA)
	}

	deadline := time.Now().Add(2 * time.Second)
	for svc.Stats().Courts["court_a"] != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("stats = %+v", svc.Stats())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestUnknownCourtIsRejected(t *testing.T) {
	_, srv := startGateway(t, tree.NewMemory(), "matches/court_a")

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/scoreboard?court=court_z"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("dial succeeded for unknown court")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("response = %v", resp)
	}
}

func TestSnapshotRoutes(t *testing.T) {
	store := tree.NewMemory()
	putSession(t, store, "matches/court_a", 7, 1000)
	_, srv := startGateway(t, store, "matches/court_a", "matches/court_b")

	tests := []struct {
		path   string
		status int
	}{
		{"/scoreboard/court_a", http.StatusOK},
		{"/scoreboard/court_z", http.StatusNotFound},
		{"/scoreboard", http.StatusOK},
		{"/scoreboard/completed", http.StatusOK},
		{"/ws/stats", http.StatusOK},
	}
	for _, tt := range tests {
		resp, err := http.Get(srv.URL + tt.path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != tt.status {
			t.Errorf("GET %s = %d, want %d", tt.path, resp.StatusCode, tt.status)
		}
	}

	resp, err := http.Get(srv.URL + "/scoreboard")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var live []viewer.LiveMatch
	if err := json.NewDecoder(resp.Body).Decode(&live); err != nil {
		t.Fatal(err)
	}
	if len(live) != 1 || live[0].Path != "matches/court_a" || live[0].Session.ScoreA != 7 {
		t.Fatalf("live = %+v", live)
	}
}

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		header  string
		wantErr bool
	}{
		{"updated", `{"id":"court_a-1","court":"court_a","type":"SessionUpdated","data":{}}`, "", false},
		{"cleared", `{"id":"court_a-0","court":"court_a","type":"SessionCleared","data":{}}`, "", false},
		{"court from header", `{"id":"x","type":"SessionUpdated"}`, "court_b", false},
		{"no court", `{"id":"x","type":"SessionUpdated"}`, "", true},
		{"unknown type", `{"id":"x","court":"court_a","type":"PickMade"}`, "", true},
		{"not json", `nope`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := decodeEvent([]byte(tt.data), tt.header)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && ev.Court == "" {
				t.Fatal("decoded event has no court")
			}
		})
	}
}

func TestConsumerSkipsStaleSequences(t *testing.T) {
	ec := &EventConsumer{lastSeq: make(map[string]uint64)}
	steps := []struct {
		court string
		seq   uint64
		want  bool
	}{
		{"court_a", 5, true},
		{"court_a", 4, false},
		{"court_a", 5, false},
		{"court_b", 3, true},
		{"court_a", 9, true},
	}
	for i, s := range steps {
		if got := ec.advance(s.court, s.seq); got != s.want {
			t.Errorf("step %d: advance(%s, %d) = %v, want %v", i, s.court, s.seq, got, s.want)
		}
	}
}
