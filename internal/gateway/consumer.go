package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/gridironlabs/draftroom/internal/events"
)

// ConsumerConfig holds configuration for the NATS event consumer.
type ConsumerConfig struct {
	URL           string
	SubjectFilter string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultConsumerConfig returns the consumer defaults.
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		URL:           nats.DefaultURL,
		SubjectFilter: events.SubjectPrefix + ".>",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// EventConsumer relays draft events from NATS to the WebSocket clients of
// the room each event belongs to.
type EventConsumer struct {
	connectionManager *ConnectionManager
	nc                *nats.Conn
	sub               *nats.Subscription
	config            ConsumerConfig
}

// NewEventConsumer connects to NATS. Call Start to begin relaying.
func NewEventConsumer(cm *ConnectionManager, config ConsumerConfig) (*EventConsumer, error) {
	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &EventConsumer{
		connectionManager: cm,
		nc:                nc,
		config:            config,
	}, nil
}

// Start subscribes to the event subjects and relays until ctx is cancelled.
func (ec *EventConsumer) Start(ctx context.Context) error {
	sub, err := ec.nc.Subscribe(ec.config.SubjectFilter, ec.relay)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", ec.config.SubjectFilter, err)
	}
	ec.sub = sub

	log.Info().Str("subject", ec.config.SubjectFilter).Msg("event consumer started")
	<-ctx.Done()
	log.Info().Msg("event consumer shutting down")
	return nil
}

func (ec *EventConsumer) relay(msg *nats.Msg) {
	var envelope events.Envelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		log.Error().Err(err).Str("subject", msg.Subject).Msg("unparseable event envelope")
		return
	}
	if envelope.RoomID == "" {
		log.Warn().Str("subject", msg.Subject).Msg("event envelope missing room id")
		return
	}

	ec.connectionManager.BroadcastToRoom(envelope.RoomID, msg.Data)

	log.Debug().
		Str("event_type", envelope.EventType).
		Str("room_id", envelope.RoomID).
		Msg("event relayed to websocket clients")
}

// Stop drains the subscription and closes the NATS connection.
func (ec *EventConsumer) Stop() {
	if ec.sub != nil {
		if err := ec.sub.Drain(); err != nil {
			log.Error().Err(err).Msg("drain event subscription failed")
		}
	}
	if ec.nc != nil {
		ec.nc.Close()
	}
}
