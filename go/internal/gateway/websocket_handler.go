package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/courtside/livescore/go/internal/relay"
	"github.com/courtside/livescore/go/internal/tree"
	"github.com/courtside/livescore/go/internal/viewer"
)

// Handler serves the viewer websocket and the read-only scoreboard routes.
type Handler struct {
	connectionManager *ConnectionManager
	viewer            *viewer.Subscriber
	paths             map[string]string // court key -> session path
}

func NewHandler(cm *ConnectionManager, sub *viewer.Subscriber) *Handler {
	paths := make(map[string]string)
	for _, p := range sub.Paths() {
		paths[relay.CourtKeyForPath(p)] = p
	}
	return &Handler{connectionManager: cm, viewer: sub, paths: paths}
}

// resolve maps a court key or display name to its key and session path. An
// empty court picks the only court when there is just one.
func (h *Handler) resolve(court string) (string, string, bool) {
	key := tree.CourtKey(court)
	if key == "" && len(h.paths) == 1 {
		for k, p := range h.paths {
			return k, p, true
		}
	}
	p, ok := h.paths[key]
	return key, p, ok
}

// HandleScoreboard upgrades /ws/scoreboard?court=<key>.
func (h *Handler) HandleScoreboard(w http.ResponseWriter, r *http.Request) {
	key, _, ok := h.resolve(r.URL.Query().Get("court"))
	if !ok {
		http.Error(w, "unknown court", http.StatusNotFound)
		return
	}
	if err := h.connectionManager.UpgradeConnection(w, r, key); err != nil {
		// the upgrader has already replied
		log.Error().Err(err).Str("court", key).Msg("failed to upgrade WebSocket connection")
	}
}

// HandleSnapshot returns one court's current session.
func (h *Handler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	key, path, ok := h.resolve(chi.URLParam(r, "court"))
	if !ok {
		http.Error(w, "unknown court", http.StatusNotFound)
		return
	}
	snap, err := h.viewer.Get(r.Context(), path)
	if err != nil {
		log.Error().Err(err).Str("court", key).Msg("failed to read scoreboard")
		http.Error(w, "failed to read scoreboard", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, viewer.LiveMatch{Path: path, Session: snap})
}

// HandleLive lists the courts with a match in progress.
func (h *Handler) HandleLive(w http.ResponseWriter, r *http.Request) {
	live, err := h.viewer.Live(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list live matches")
		http.Error(w, "failed to list live matches", http.StatusBadGateway)
		return
	}
	if live == nil {
		live = []viewer.LiveMatch{}
	}
	writeJSON(w, http.StatusOK, live)
}

// HandleCompleted lists finished matches, newest first.
func (h *Handler) HandleCompleted(w http.ResponseWriter, r *http.Request) {
	done, err := h.viewer.Completed(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list completed matches")
		http.Error(w, "failed to list completed matches", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, done)
}

func (h *Handler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.connectionManager.Stats())
}

// RegisterRoutes mounts the gateway on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/scoreboard", h.HandleScoreboard)
	r.Get("/ws/stats", h.HandleConnectionStats)
	r.Get("/scoreboard", h.HandleLive)
	r.Get("/scoreboard/completed", h.HandleCompleted)
	r.Get("/scoreboard/{court}", h.HandleSnapshot)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write JSON response")
	}
}
