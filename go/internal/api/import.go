package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/courtside/livescore/go/internal/docstore"
	"github.com/courtside/livescore/go/internal/roster"
)

const maxUploadBytes = 10 << 20

type importResponse struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	TeamA    int `json:"teamA"`
	TeamB    int `json:"teamB"`
}

// handleImport replaces a fixture's roster with an uploaded .xlsx or .csv
// sheet sent as the multipart field "file".
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if _, err := s.lookup(bearerToken(r), accessScheduler); err != nil {
		writeError(w, err)
		return
	}
	matchID := chi.URLParam(r, "matchId")

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, fmt.Errorf("%w: file upload is required", errInvalidArgument))
		return
	}
	defer file.Close()

	var result *roster.Result
	if strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		result, err = roster.ParseXLSX(file)
	} else {
		result, err = roster.ParseCSV(file)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	players := make([]docstore.PlayerInput, 0, len(result.Entries))
	for _, e := range result.Entries {
		players = append(players, docstore.PlayerInput{Team: e.Team, JerseyNumber: e.JerseyNumber, PlayerName: e.PlayerName})
	}
	if _, err := s.admin.ReplacePlayers(r.Context(), matchID, players); err != nil {
		writeError(w, err)
		return
	}

	a, b := result.Counts()
	log.Info().
		Str("match_id", matchID).
		Str("file", header.Filename).
		Int("imported", len(players)).
		Int("skipped", result.Skipped).
		Msg("roster sheet imported")
	writeJSON(w, http.StatusOK, importResponse{Imported: len(players), Skipped: result.Skipped, TeamA: a, TeamB: b})
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="roster_template.csv"`)
	if _, err := w.Write(roster.TemplateCSV()); err != nil {
		log.Error().Err(err).Msg("failed to write roster template")
	}
}

func writeError(w http.ResponseWriter, err error) {
	code, msg := classify(err)
	writeJSON(w, httpStatus(code), map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}
