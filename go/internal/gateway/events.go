package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/quizbowl/go/internal/events"
)

// TypeAck is sent to the originating connection when a command succeeds.
const TypeAck events.NotificationType = "ack"

// RoomEvent is the wire envelope for everything pushed to room clients and
// published on JetStream.
type RoomEvent struct {
	ID        string                  `json:"id"`               // Event UUID
	RoomID    string                  `json:"room_id"`          // Room the event belongs to
	Type      events.NotificationType `json:"type"`             // Notification type
	Target    string                  `json:"target,omitempty"` // Single recipient, empty for the whole room
	Timestamp time.Time               `json:"timestamp"`        // Event creation time
	Data      json.RawMessage         `json:"data"`             // Notification payload
}

// AckPayload answers a successful command.
type AckPayload struct {
	Command string `json:"command"`
	Result  any    `json:"result,omitempty"`
}

// NewRoomEvent wraps a notification in an envelope.
func NewRoomEvent(n events.Notification, now time.Time) (*RoomEvent, error) {
	data, err := json.Marshal(n.Data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", n.Type, err)
	}
	return &RoomEvent{
		ID:        uuid.NewString(),
		RoomID:    n.RoomID,
		Type:      n.Type,
		Target:    n.Target,
		Timestamp: now.UTC(),
		Data:      data,
	}, nil
}

// clientMessage is what clients send over the socket.
type clientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}
