package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Envelope wraps every published event.
type Envelope struct {
	EventType string          `json:"event_type"`
	RoomID    string          `json:"room_id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Publisher pushes draft events onto the message bus.
type Publisher interface {
	Publish(eventType, roomID string, payload any) error
}

// SubjectPrefix is the NATS subject root for draft events; the full subject
// is "<prefix>.<roomID>.<eventType>".
const SubjectPrefix = "draft.events"

// NATSPublisher publishes event envelopes over a core NATS connection.
type NATSPublisher struct {
	nc *nats.Conn
}

var _ Publisher = (*NATSPublisher)(nil)

func NewNATSPublisher(nc *nats.Conn) *NATSPublisher {
	return &NATSPublisher{nc: nc}
}

func (p *NATSPublisher) Publish(eventType, roomID string, payload any) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	envelope, err := json.Marshal(Envelope{
		EventType: eventType,
		RoomID:    roomID,
		Timestamp: time.Now(),
		Payload:   payloadBytes,
	})
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", eventType, err)
	}

	subject := fmt.Sprintf("%s.%s.%s", SubjectPrefix, roomID, eventType)
	if err := p.nc.Publish(subject, envelope); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// NopPublisher drops events; used in tests and local single-process mode.
type NopPublisher struct{}

var _ Publisher = (*NopPublisher)(nil)

func (NopPublisher) Publish(eventType, roomID string, payload any) error {
	log.Debug().Str("event_type", eventType).Str("room_id", roomID).Msg("event dropped (nop publisher)")
	return nil
}
