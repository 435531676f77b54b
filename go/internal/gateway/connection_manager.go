package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ConnectionManager fans scoreboard events out to viewers, grouped by court.
type ConnectionManager struct {
	courts map[string]map[*Connection]bool
	// latest holds the last event per court so a new viewer starts from
	// the current scoreboard instead of waiting for the next write.
	latest map[string][]byte
	mu     sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	broadcastCh chan *ScoreboardEvent
}

// Connection is one viewer websocket.
type Connection struct {
	ID      string
	Court   string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time
}

type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			// scoreboards are public and embedded on other sites
			return true
		},
	}
}

func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		courts: make(map[string]map[*Connection]bool),
		latest: make(map[string][]byte),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan *ScoreboardEvent, 256),
	}
}

// Start processes broadcasts until ctx is cancelled.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			cm.closeAll()
			log.Info().Msg("connection manager shutting down")
			return
		case ev := <-cm.broadcastCh:
			cm.handleBroadcast(ev)
		}
	}
}

// UpgradeConnection upgrades the request and registers the viewer on court.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, court string) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	c := &Connection{
		ID:          uuid.New().String(),
		Court:       court,
		Conn:        conn,
		Send:        make(chan []byte, 64),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}
	cm.registerConnection(c)

	go c.writePump()
	go c.readPump()

	log.Info().
		Str("connection_id", c.ID).
		Str("court", court).
		Msg("viewer connected")
	return nil
}

func (cm *ConnectionManager) registerConnection(c *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.courts[c.Court] == nil {
		cm.courts[c.Court] = make(map[*Connection]bool)
	}
	cm.courts[c.Court][c] = true
	if data, ok := cm.latest[c.Court]; ok {
		c.Send <- data
	}
}

func (cm *ConnectionManager) unregisterConnection(c *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	conns, ok := cm.courts[c.Court]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	close(c.Send)
	if len(conns) == 0 {
		delete(cm.courts, c.Court)
	}

	log.Info().
		Str("connection_id", c.ID).
		Str("court", c.Court).
		Msg("viewer disconnected")
}

// Broadcast queues ev for the viewers of ev.Court.
func (cm *ConnectionManager) Broadcast(ev *ScoreboardEvent) {
	select {
	case cm.broadcastCh <- ev:
	default:
		log.Warn().Str("court", ev.Court).Msg("broadcast channel full, dropping event")
	}
}

func (cm *ConnectionManager) handleBroadcast(ev *ScoreboardEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	cm.mu.Lock()
	cm.latest[ev.Court] = data
	targets := make([]*Connection, 0, len(cm.courts[ev.Court]))
	for c := range cm.courts[ev.Court] {
		targets = append(targets, c)
	}
	cm.mu.Unlock()

	for _, c := range targets {
		if !c.trySend(data) {
			log.Warn().
				Str("connection_id", c.ID).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(c)
			c.Conn.Close()
		}
	}

	log.Debug().
		Str("event_type", string(ev.Type)).
		Str("court", ev.Court).
		Int("connections", len(targets)).
		Msg("event broadcasted")
}

// trySend reports false when the viewer is too slow to keep up. A send on a
// connection that was just unregistered is dropped.
func (c *Connection) trySend(data []byte) (ok bool) {
	c.Manager.mu.RLock()
	defer c.Manager.mu.RUnlock()
	if !c.Manager.courts[c.Court][c] {
		return true
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

func (cm *ConnectionManager) closeAll() {
	cm.mu.Lock()
	var all []*Connection
	for _, conns := range cm.courts {
		for c := range conns {
			all = append(all, c)
		}
	}
	cm.mu.Unlock()
	for _, c := range all {
		cm.unregisterConnection(c)
	}
}

// Stats summarises open connections.
type Stats struct {
	TotalConnections int            `json:"total_connections"`
	ActiveCourts     int            `json:"active_courts"`
	Courts           map[string]int `json:"court_connections"`
}

func (cm *ConnectionManager) Stats() Stats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	s := Stats{Courts: make(map[string]int, len(cm.courts))}
	for court, conns := range cm.courts {
		s.TotalConnections += len(conns)
		s.Courts[court] = len(conns)
	}
	s.ActiveCourts = len(cm.courts)
	return s
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump only services pings and close frames; viewers never send
// commands.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			return
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
