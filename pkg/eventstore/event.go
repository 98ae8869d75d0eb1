// Package eventstore implements the append-only event log the whole write
// side is built on: typed events with per-aggregate versions and a global
// position, atomic multi-event pushes guarded by optimistic concurrency and
// unique constraints, filtered queries, streaming reads into reducers, and
// an in-process subscription bus.
package eventstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/identra/identra/pkg/authz"
)

type AggregateType string

// EventType is the dotted wire name of an event, e.g. "user.human.added".
type EventType string

// Aggregate identifies the entity an event belongs to. Aggregates are not
// stored; their state is the fold of their events.
type Aggregate struct {
	ID            string        `json:"id"`
	Type          AggregateType `json:"type"`
	ResourceOwner string        `json:"resourceOwner"`
	InstanceID    string        `json:"instanceID"`
}

// NewAggregate scopes an aggregate to the instance and actor in ctx. The
// resource owner defaults to the aggregate's own id for root entities
// (orgs, instances).
func NewAggregate(ctx context.Context, id string, typ AggregateType, resourceOwner string) *Aggregate {
	if resourceOwner == "" {
		resourceOwner = id
	}
	return &Aggregate{
		ID:            id,
		Type:          typ,
		ResourceOwner: resourceOwner,
		InstanceID:    authz.InstanceID(ctx),
	}
}

// Position is the global ordering of committed events within an instance.
// All events of one transactional push share the Position value and are
// tie-broken by InTxOrder.
type Position struct {
	Position  uint64 `json:"position"`
	InTxOrder uint32 `json:"inTxOrder"`
}

func (p Position) IsZero() bool {
	return p.Position == 0 && p.InTxOrder == 0
}

// After reports whether p sorts strictly after other.
func (p Position) After(other Position) bool {
	if p.Position != other.Position {
		return p.Position > other.Position
	}
	return p.InTxOrder > other.InTxOrder
}

// Event is a committed, immutable fact.
type Event interface {
	Aggregate() *Aggregate
	Type() EventType
	// Sequence is the aggregate version after this event, starting at 1.
	Sequence() uint64
	Position() Position
	CreatedAt() time.Time
	// Creator is the acting principal, "system" when absent.
	Creator() string
	// DataAsBytes returns the raw payload.
	DataAsBytes() []byte
	// UnmarshalData decodes the payload into ptr. Unknown payload fields
	// are tolerated for forward compatibility.
	UnmarshalData(ptr any) error
}

// Command is the write-side intent handed to Push. Concrete event structs
// implement both Command (before storage) and Event (after).
type Command interface {
	Aggregate() *Aggregate
	Type() EventType
	Creator() string
	// Payload returns the value to persist, nil for payload-free events.
	Payload() any
	// UniqueConstraints declares constraint intents applied atomically
	// with the event.
	UniqueConstraints() []*UniqueConstraint
	// RequiredSequence returns the aggregate version the caller observed;
	// ok is false when the command accepts any current version.
	RequiredSequence() (sequence uint64, ok bool)
}

// BaseEvent carries the envelope shared by every event. Domain event types
// embed it and add their payload fields.
type BaseEvent struct {
	aggregate        *Aggregate
	eventType        EventType
	sequence         uint64
	position         Position
	createdAt        time.Time
	creator          string
	data             []byte
	requiredSequence *uint64
}

// BaseEventOption configures a new BaseEvent.
type BaseEventOption func(*BaseEvent)

// WithRequiredSequence makes the push fail with a concurrency conflict
// unless the aggregate is exactly at sequence.
func WithRequiredSequence(sequence uint64) BaseEventOption {
	return func(b *BaseEvent) {
		b.requiredSequence = &sequence
	}
}

// NewBaseEvent builds the envelope for a command. The creator is taken
// from the authorization context.
func NewBaseEvent(ctx context.Context, aggregate *Aggregate, typ EventType, opts ...BaseEventOption) *BaseEvent {
	b := &BaseEvent{
		aggregate: aggregate,
		eventType: typ,
		creator:   authz.ActorID(ctx),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewBaseEventFromStorage rebuilds the envelope of a stored event row.
func NewBaseEventFromStorage(
	aggregate *Aggregate,
	typ EventType,
	sequence uint64,
	position Position,
	createdAt time.Time,
	creator string,
	data []byte,
) *BaseEvent {
	return &BaseEvent{
		aggregate: aggregate,
		eventType: typ,
		sequence:  sequence,
		position:  position,
		createdAt: createdAt,
		creator:   creator,
		data:      data,
	}
}

func (b *BaseEvent) Aggregate() *Aggregate { return b.aggregate }
func (b *BaseEvent) Type() EventType       { return b.eventType }
func (b *BaseEvent) Sequence() uint64      { return b.sequence }
func (b *BaseEvent) Position() Position    { return b.position }
func (b *BaseEvent) CreatedAt() time.Time  { return b.createdAt }
func (b *BaseEvent) Creator() string       { return b.creator }
func (b *BaseEvent) DataAsBytes() []byte   { return b.data }

func (b *BaseEvent) UnmarshalData(ptr any) error {
	if len(b.data) == 0 {
		return nil
	}
	if err := json.Unmarshal(b.data, ptr); err != nil {
		return fmt.Errorf("unmarshaling %s payload: %w", b.eventType, err)
	}
	return nil
}

// Payload is overridden by event types carrying data.
func (b *BaseEvent) Payload() any { return nil }

// UniqueConstraints is overridden by event types declaring intents.
func (b *BaseEvent) UniqueConstraints() []*UniqueConstraint { return nil }

func (b *BaseEvent) RequiredSequence() (uint64, bool) {
	if b.requiredSequence == nil {
		return 0, false
	}
	return *b.requiredSequence, true
}

// SetBaseEvent is used by the mapper registry to hydrate typed events from
// storage.
func (b *BaseEvent) SetBaseEvent(base *BaseEvent) { *b = *base }

var (
	_ Event   = (*BaseEvent)(nil)
	_ Command = (*BaseEvent)(nil)
)
