// Package notify forwards committed events to NATS JetStream so other
// services can consume them without polling the store. The relay is a
// best-effort fan-out: the event log stays the source of truth, and
// consumers that must not miss events replay from the store.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/identra/identra/pkg/eventstore"
)

const (
	// DefaultStreamName holds the relayed events in JetStream.
	DefaultStreamName = "IDENTRA_EVENTS"

	defaultMaxAge = 7 * 24 * time.Hour
)

// Envelope is the JSON wire form of a relayed event.
type Envelope struct {
	InstanceID    string          `json:"instanceId"`
	AggregateType string          `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	ResourceOwner string          `json:"resourceOwner"`
	EventType     string          `json:"eventType"`
	Sequence      uint64          `json:"sequence"`
	Position      uint64          `json:"position"`
	InTxOrder     uint32          `json:"inTxOrder"`
	Creator       string          `json:"creator"`
	CreatedAt     time.Time       `json:"createdAt"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// Config holds the relay's connection and stream settings.
type Config struct {
	// URL is the NATS server URL.
	URL string

	// StreamName is the JetStream stream relayed events land in.
	StreamName string

	// MaxAge bounds retention of relayed events.
	MaxAge time.Duration

	// AggregateTypes selects which aggregates to relay.
	AggregateTypes []eventstore.AggregateType

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		URL:        nats.DefaultURL,
		StreamName: DefaultStreamName,
		MaxAge:     defaultMaxAge,
		AggregateTypes: []eventstore.AggregateType{
			"instance", "org", "user", "project", "auth_request", "session",
		},
		Logger: slog.Default(),
	}
}

// Relay bridges the in-process bus to JetStream. Events are published to
// "events.{aggregateType}.{eventType}" with a deduplication id derived
// from the event's coordinates, so redelivery after a reconnect is safe.
type Relay struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	stream string
	logger *slog.Logger

	sub  *eventstore.Subscription
	once sync.Once
	done chan struct{}
}

// NewRelay connects to NATS and ensures the stream exists.
func NewRelay(config Config) (*Relay, error) {
	if config.StreamName == "" {
		config.StreamName = DefaultStreamName
	}
	if config.MaxAge <= 0 {
		config.MaxAge = defaultMaxAge
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	nc, err := nats.Connect(config.URL)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("creating jetstream context: %w", err)
	}

	r := &Relay{
		nc:     nc,
		js:     js,
		stream: config.StreamName,
		logger: config.Logger,
		done:   make(chan struct{}),
	}
	if err := r.ensureStream(config); err != nil {
		nc.Close()
		return nil, err
	}
	return r, nil
}

func (r *Relay) ensureStream(config Config) error {
	streamConfig := &nats.StreamConfig{
		Name:     config.StreamName,
		Subjects: []string{"events.>"},
		MaxAge:   config.MaxAge,
		Storage:  nats.FileStorage,
		Replicas: 1,
	}
	if _, err := r.js.StreamInfo(config.StreamName); err != nil {
		if _, err := r.js.AddStream(streamConfig); err != nil {
			return fmt.Errorf("creating stream %s: %w", config.StreamName, err)
		}
		return nil
	}
	if _, err := r.js.UpdateStream(streamConfig); err != nil {
		return fmt.Errorf("updating stream %s: %w", config.StreamName, err)
	}
	return nil
}

// ErrNoPubSub reports a Start against an eventstore built without a bus.
var ErrNoPubSub = errors.New("eventstore has no pubsub to relay from")

// Start subscribes to the bus and relays until Close.
func (r *Relay) Start(ctx context.Context, es *eventstore.Eventstore, config Config) error {
	ps := es.PubSub()
	if ps == nil {
		return ErrNoPubSub
	}
	r.sub = ps.SubscribeAggregates(0, config.AggregateTypes...)
	go r.loop(ctx)
	return nil
}

func (r *Relay) loop(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-r.sub.Events:
			if !ok {
				return
			}
			if err := r.publish(event); err != nil {
				r.logger.Error("relaying event failed",
					"event_type", event.Type(), "error", err)
			}
		}
	}
}

func (r *Relay) publish(event eventstore.Event) error {
	aggregate := event.Aggregate()
	envelope := Envelope{
		InstanceID:    aggregate.InstanceID,
		AggregateType: string(aggregate.Type),
		AggregateID:   aggregate.ID,
		ResourceOwner: aggregate.ResourceOwner,
		EventType:     string(event.Type()),
		Sequence:      event.Sequence(),
		Position:      event.Position().Position,
		InTxOrder:     event.Position().InTxOrder,
		Creator:       event.Creator(),
		CreatedAt:     event.CreatedAt(),
		Payload:       json.RawMessage(event.DataAsBytes()),
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshaling envelope: %w", err)
	}

	subject := fmt.Sprintf("events.%s.%s", aggregate.Type, event.Type())
	msgID := fmt.Sprintf("%s/%s/%s/%d", aggregate.InstanceID, aggregate.Type, aggregate.ID, event.Sequence())
	_, err = r.js.Publish(subject, data, nats.MsgId(msgID))
	return err
}

// Close unsubscribes from the bus, waits for the loop to drain, and
// closes the NATS connection.
func (r *Relay) Close() {
	r.once.Do(func() {
		if r.sub != nil {
			r.sub.Unsubscribe()
			<-r.done
		}
		r.nc.Close()
	})
}
