package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/quizbowl/go/internal/events"
	"github.com/mcdev12/quizbowl/go/internal/game"
	"github.com/rs/zerolog/log"
)

// Dispatcher runs room commands on behalf of a connection.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd game.Command) (any, error)
}

// ConnectionManager manages WebSocket connections grouped by room and fans
// room notifications out to them.
type ConnectionManager struct {
	// Connection pools organized by room ID
	rooms map[string]map[*Connection]bool
	mu    sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	clock    clockwork.Clock

	dispatcher Dispatcher

	broadcastCh chan *RoomEvent
	dropped     int64
}

// Connection represents a WebSocket connection to one room participant
type Connection struct {
	ID      string
	UserID  string
	RoomID  string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time

	mu       sync.Mutex
	closed   bool
	joined   bool
	lastPing time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBuffer      int
	BroadcastBuffer int
	CheckOrigin     func(r *http.Request) bool
}

// ConnectParams identifies who is connecting and to which room.
type ConnectParams struct {
	RoomID string
	UserID string
	Role   string
	TeamID string
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBuffer:      256,
		BroadcastBuffer: 1000,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager. A nil
// clock means the real clock.
func NewConnectionManager(config ConnectionConfig, clock clockwork.Clock) *ConnectionManager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if config.SendBuffer <= 0 {
		config.SendBuffer = 256
	}
	if config.BroadcastBuffer <= 0 {
		config.BroadcastBuffer = 1000
	}
	return &ConnectionManager{
		rooms: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		clock:       clock,
		broadcastCh: make(chan *RoomEvent, config.BroadcastBuffer),
	}
}

// SetDispatcher binds the command handler. It must be called before the
// manager accepts connections.
func (cm *ConnectionManager) SetDispatcher(d Dispatcher) {
	cm.dispatcher = d
}

// Start begins processing broadcast messages
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case event := <-cm.broadcastCh:
			cm.handleBroadcast(event)
		}
	}
}

// Notify implements game.Broadcaster for a single-instance deployment.
func (cm *ConnectionManager) Notify(n events.Notification) {
	event, err := NewRoomEvent(n, cm.clock.Now())
	if err != nil {
		log.Error().Err(err).Str("room_id", n.RoomID).Msg("failed to build room event")
		return
	}
	cm.Deliver(event)
}

// Deliver queues an envelope for the room's connections. The queue never
// blocks the caller; when it is full the event is dropped.
func (cm *ConnectionManager) Deliver(event *RoomEvent) {
	select {
	case cm.broadcastCh <- event:
	default:
		cm.mu.Lock()
		cm.dropped++
		cm.mu.Unlock()
		log.Warn().
			Str("room_id", event.RoomID).
			Str("event_type", string(event.Type)).
			Msg("broadcast channel full, dropping message")
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and joins the
// user to the room.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, params ConnectParams) (*Connection, error) {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	now := cm.clock.Now()
	connection := &Connection{
		ID:          uuid.New().String(),
		UserID:      params.UserID,
		RoomID:      params.RoomID,
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBuffer),
		Manager:     cm,
		ConnectedAt: now,
		lastPing:    now,
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("user_id", params.UserID).
		Str("room_id", params.RoomID).
		Msg("WebSocket connection established")

	if err := connection.join(r.Context(), params); err != nil {
		log.Warn().
			Err(err).
			Str("connection_id", connection.ID).
			Str("user_id", params.UserID).
			Str("room_id", params.RoomID).
			Msg("join rejected, closing connection")
		connection.sendError(err)
		cm.unregisterConnection(connection)
		return connection, nil
	}
	return connection, nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.rooms[conn.RoomID] == nil {
		cm.rooms[conn.RoomID] = make(map[*Connection]bool)
	}
	cm.rooms[conn.RoomID][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("room_id", conn.RoomID).
		Int("total_connections", len(cm.rooms[conn.RoomID])).
		Msg("connection registered")
}

// unregisterConnection removes a connection and, when it was the user's last
// joined connection in the room, leaves the room for them.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	connections, exists := cm.rooms[conn.RoomID]
	if !exists || !connections[conn] {
		cm.mu.Unlock()
		return
	}
	delete(connections, conn)
	stillPresent := false
	for other := range connections {
		if other.UserID == conn.UserID && other.isJoined() {
			stillPresent = true
			break
		}
	}
	if len(connections) == 0 {
		delete(cm.rooms, conn.RoomID)
	}
	cm.mu.Unlock()

	wasJoined := conn.isJoined()
	conn.closeSend()

	log.Info().
		Str("connection_id", conn.ID).
		Str("user_id", conn.UserID).
		Str("room_id", conn.RoomID).
		Msg("connection unregistered")

	if wasJoined && !stillPresent && cm.dispatcher != nil {
		_, err := cm.dispatcher.Dispatch(context.Background(), game.Command{
			Type:   game.CommandLeave,
			RoomID: conn.RoomID,
			Sender: conn.UserID,
		})
		if err != nil && !errors.Is(err, game.ErrNotJoined) && !errors.Is(err, game.ErrRoomNotFound) {
			log.Error().Err(err).Str("room_id", conn.RoomID).Str("user_id", conn.UserID).Msg("failed to leave room")
		}
	}
}

func (cm *ConnectionManager) handleBroadcast(event *RoomEvent) {
	cm.mu.RLock()
	connections, exists := cm.rooms[event.RoomID]
	if !exists {
		cm.mu.RUnlock()
		return
	}

	var targets []*Connection
	for conn := range connections {
		if event.Target != "" && conn.UserID != event.Target {
			continue
		}
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targets {
		if !conn.enqueue(data) {
			log.Warn().
				Str("connection_id", conn.ID).
				Str("user_id", conn.UserID).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(conn)
			conn.Conn.Close()
		}
	}

	log.Debug().
		Str("event_type", string(event.Type)).
		Str("room_id", event.RoomID).
		Int("connections", len(targets)).
		Msg("event broadcasted")
}

// ConnectionStats summarizes live connections.
type ConnectionStats struct {
	TotalConnections int            `json:"total_connections"`
	ActiveRooms      int            `json:"active_rooms"`
	RoomConnections  map[string]int `json:"room_connections"`
	Dropped          int64          `json:"dropped_events"`
	StalestPing      time.Duration  `json:"stalest_ping_ns"` // Longest time since any peer answered a ping
}

// Stats returns statistics about active connections
func (cm *ConnectionManager) Stats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{
		ActiveRooms:     len(cm.rooms),
		RoomConnections: make(map[string]int, len(cm.rooms)),
		Dropped:         cm.dropped,
	}
	now := cm.clock.Now()
	for roomID, connections := range cm.rooms {
		stats.TotalConnections += len(connections)
		stats.RoomConnections[roomID] = len(connections)
		for c := range connections {
			if age := now.Sub(c.LastPing()); age > stats.StalestPing {
				stats.StalestPing = age
			}
		}
	}
	return stats
}

func (c *Connection) join(ctx context.Context, params ConnectParams) error {
	if c.Manager.dispatcher == nil {
		return nil
	}
	data, err := json.Marshal(map[string]string{"role": params.Role, "team_id": params.TeamID})
	if err != nil {
		return err
	}
	if _, err := c.Manager.dispatcher.Dispatch(ctx, game.Command{
		Type:   game.CommandJoin,
		RoomID: c.RoomID,
		Sender: c.UserID,
		Data:   data,
	}); err != nil {
		return err
	}
	c.mu.Lock()
	c.joined = true
	c.mu.Unlock()
	return nil
}

func (c *Connection) isJoined() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.joined
}

// enqueue reports false when the send buffer is full. Sends after close are
// discarded.
func (c *Connection) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

func (c *Connection) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// LastPing is the last time the peer answered a ping.
func (c *Connection) LastPing() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPing
}

func (c *Connection) touch() {
	now := c.Manager.clock.Now()
	c.mu.Lock()
	c.lastPing = now
	c.mu.Unlock()
}

// sendDirect writes one envelope to this connection only.
func (c *Connection) sendDirect(t events.NotificationType, payload any) {
	event, err := NewRoomEvent(events.Notification{Type: t, RoomID: c.RoomID, Target: c.UserID, Data: payload}, c.Manager.clock.Now())
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to build direct event")
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to marshal direct event")
		return
	}
	if !c.enqueue(data) {
		log.Warn().Str("connection_id", c.ID).Str("event_type", string(t)).Msg("connection send buffer full, dropping reply")
	}
}

func (c *Connection) sendError(err error) {
	c.sendDirect(events.Error, events.ErrorPayload{Code: game.ErrorCode(err), Message: err.Error()})
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
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.touch()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

// handleClientMessage runs a client command as this connection's user.
// Failures are answered on this connection only.
func (c *Connection) handleClientMessage(message []byte) {
	var msg clientMessage
	if err := json.Unmarshal(message, &msg); err != nil || msg.Type == "" {
		c.sendError(fmt.Errorf("%w: expected {\"type\",\"data\"}", game.ErrMalformedCommand))
		return
	}

	log.Debug().
		Str("connection_id", c.ID).
		Str("user_id", c.UserID).
		Str("command", msg.Type).
		Msg("received client command")

	if c.Manager.dispatcher == nil {
		c.sendError(fmt.Errorf("%w: %q", game.ErrUnknownCommand, msg.Type))
		return
	}
	result, err := c.Manager.dispatcher.Dispatch(context.Background(), game.Command{
		Type:   game.CommandType(msg.Type),
		RoomID: c.RoomID,
		Sender: c.UserID,
		Data:   msg.Data,
	})
	if err != nil {
		log.Warn().
			Err(err).
			Str("room_id", c.RoomID).
			Str("user_id", c.UserID).
			Str("command", msg.Type).
			Msg("command rejected")
		c.sendError(err)
		return
	}
	c.sendDirect(TypeAck, AckPayload{Command: msg.Type, Result: result})
}
