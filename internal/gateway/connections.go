// Package gateway is the presentation layer: the HTTP API, the WebSocket
// fan-out, and the NATS consumer that feeds it. It holds no draft state of
// its own; every response is rendered from an engine snapshot.
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

// ConnectionManager fans draft events out to the WebSocket clients of each
// room.
type ConnectionManager struct {
	roomConnections map[string]map[*Connection]bool
	mu              sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	picks    PickSubmitter

	broadcastCh chan broadcastMessage
}

// PickSubmitter accepts pick submissions arriving over a WebSocket.
type PickSubmitter interface {
	SubmitPick(ctx context.Context, roomID, identity string, playerID uuid.UUID) error
	SubmitPickByName(ctx context.Context, roomID, identity, playerName string) error
}

// Connection is one WebSocket client subscribed to a room.
type Connection struct {
	ID       string
	Identity string
	RoomID   string
	Conn     *websocket.Conn
	Send     chan []byte
	Manager  *ConnectionManager

	ConnectedAt time.Time
	LastPing    time.Time
}

// ConnectionConfig holds WebSocket tuning knobs.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

type broadcastMessage struct {
	RoomID   string
	Identity string // if set, only this identity receives the event
	Data     []byte
}

// DefaultConnectionConfig returns the WebSocket defaults.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager builds a manager. picks may be nil, which disables
// pick submission over the socket.
func NewConnectionManager(config ConnectionConfig, picks PickSubmitter) *ConnectionManager {
	return &ConnectionManager{
		roomConnections: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		picks:       picks,
		broadcastCh: make(chan broadcastMessage, 1000),
	}
}

// Start processes the broadcast queue until ctx is cancelled.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.deliver(message)
		}
	}
}

// Upgrade promotes an HTTP request to a WebSocket subscribed to roomID.
func (cm *ConnectionManager) Upgrade(w http.ResponseWriter, r *http.Request, identity, roomID string) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Identity:    identity,
		RoomID:      roomID,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	cm.register(connection)
	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("identity", identity).
		Str("room_id", roomID).
		Msg("websocket connection established")
	return nil
}

func (cm *ConnectionManager) register(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.roomConnections[conn.RoomID] == nil {
		cm.roomConnections[conn.RoomID] = make(map[*Connection]bool)
	}
	cm.roomConnections[conn.RoomID][conn] = true
}

func (cm *ConnectionManager) unregister(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	connections, exists := cm.roomConnections[conn.RoomID]
	if !exists {
		return
	}
	if _, exists := connections[conn]; !exists {
		return
	}
	delete(connections, conn)
	close(conn.Send)
	if len(connections) == 0 {
		delete(cm.roomConnections, conn.RoomID)
	}
	log.Info().
		Str("connection_id", conn.ID).
		Str("identity", conn.Identity).
		Str("room_id", conn.RoomID).
		Msg("websocket connection closed")
}

// BroadcastToRoom queues data for every client of roomID. Drops when the
// queue is full rather than blocking the caller.
func (cm *ConnectionManager) BroadcastToRoom(roomID string, data []byte) {
	select {
	case cm.broadcastCh <- broadcastMessage{RoomID: roomID, Data: data}:
	default:
		log.Warn().Str("room_id", roomID).Msg("broadcast channel full, dropping message")
	}
}

// BroadcastToIdentity queues data for one identity within roomID.
func (cm *ConnectionManager) BroadcastToIdentity(roomID, identity string, data []byte) {
	select {
	case cm.broadcastCh <- broadcastMessage{RoomID: roomID, Identity: identity, Data: data}:
	default:
		log.Warn().Str("room_id", roomID).Str("identity", identity).Msg("broadcast channel full, dropping message")
	}
}

func (cm *ConnectionManager) deliver(message broadcastMessage) {
	cm.mu.RLock()
	connections, exists := cm.roomConnections[message.RoomID]
	if !exists {
		cm.mu.RUnlock()
		return
	}
	var targets []*Connection
	for conn := range connections {
		if message.Identity != "" && conn.Identity != message.Identity {
			continue
		}
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	for _, conn := range targets {
		select {
		case conn.Send <- message.Data:
		default:
			// Slow consumer; drop the connection rather than the room.
			log.Warn().
				Str("connection_id", conn.ID).
				Str("identity", conn.Identity).
				Msg("connection send buffer full, closing connection")
			cm.unregister(conn)
			conn.Conn.Close()
		}
	}
}

// Stats summarizes the active connections.
func (cm *ConnectionManager) Stats() (totalConnections, activeRooms int) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	for _, connections := range cm.roomConnections {
		totalConnections += len(connections)
	}
	return totalConnections, len(cm.roomConnections)
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregister(c)
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
				log.Error().Err(err).Str("connection_id", c.ID).Msg("websocket write failed")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("websocket ping failed")
				return
			}
			c.LastPing = time.Now()
		}
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("unexpected websocket close")
			}
			break
		}
		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

// clientCommand is the envelope clients send over the socket.
type clientCommand struct {
	Action     string `json:"action"`
	PlayerID   string `json:"player_id,omitempty"`
	PlayerName string `json:"player_name,omitempty"`
}

type commandResult struct {
	Action string `json:"action"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

// handleClientMessage accepts pick submissions over the socket; everything
// else is logged and ignored.
func (c *Connection) handleClientMessage(message []byte) {
	var cmd clientCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		log.Debug().Str("connection_id", c.ID).Msg("unparseable client message dropped")
		return
	}

	if c.Manager.picks == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	switch cmd.Action {
	case "submit_pick":
		var playerID uuid.UUID
		playerID, err = uuid.Parse(cmd.PlayerID)
		if err == nil {
			err = c.Manager.picks.SubmitPick(ctx, c.RoomID, c.Identity, playerID)
		}
	case "submit_pick_by_name":
		err = c.Manager.picks.SubmitPickByName(ctx, c.RoomID, c.Identity, cmd.PlayerName)
	default:
		log.Debug().
			Str("connection_id", c.ID).
			Str("action", cmd.Action).
			Msg("unknown client action")
		return
	}

	result := commandResult{Action: cmd.Action, OK: err == nil}
	if err != nil {
		result.Error = err.Error()
	}
	if data, marshalErr := json.Marshal(result); marshalErr == nil {
		select {
		case c.Send <- data:
		default:
		}
	}
}
