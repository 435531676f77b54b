package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/courtside/livescore/go/internal/auth"
)

var notifyUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const notifyWriteWait = 10 * time.Second

// handleNotifications streams a court's scorer notifications. Browsers
// cannot set headers on a websocket, so the token comes in the query.
func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = bearerToken(r)
	}
	caller, err := s.lookup(token, accessScorer)
	if err != nil {
		writeError(w, err)
		return
	}
	court := r.URL.Query().Get("court")
	if court == "" {
		court = caller.Court
	}
	if !caller.Allows(auth.RoleScorer, court) {
		writeError(w, errPermissionDenied)
		return
	}
	c, err := s.registry.Controller(r.Context(), court)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := notifyUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade notification socket")
		return
	}
	defer conn.Close()

	notes, cancel := c.Notifications()
	defer cancel()

	// the read side only notices the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case note, ok := <-notes:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(notifyWriteWait))
			if err := conn.WriteJSON(note); err != nil {
				log.Debug().Err(err).Str("court", c.Court()).Msg("notification socket closed")
				return
			}
		}
	}
}
