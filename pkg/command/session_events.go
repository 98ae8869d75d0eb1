package command

import (
	"context"

	"github.com/identra/identra/pkg/eventstore"
)

const SessionAggregateType eventstore.AggregateType = "session"

const (
	SessionAddedType      eventstore.EventType = "session.added"
	SessionTerminatedType eventstore.EventType = "session.terminated"
)

func init() {
	eventstore.RegisterEventMapper(SessionAddedType, eventstore.GenericEventMapper[SessionAddedEvent])
	eventstore.RegisterEventMapper(SessionTerminatedType, eventstore.GenericEventMapper[SessionTerminatedEvent])
}

type SessionAddedEvent struct {
	eventstore.BaseEvent

	UserID string `json:"userId"`

	// TokenHash is the SHA-256 digest of the session token; the token
	// itself is handed to the caller once and never stored.
	TokenHash string `json:"tokenHash"`
}

func NewSessionAddedEvent(ctx context.Context, aggregate *eventstore.Aggregate, userID, tokenHash string) *SessionAddedEvent {
	return &SessionAddedEvent{
		BaseEvent: *eventstore.NewBaseEvent(ctx, aggregate, SessionAddedType),
		UserID:    userID,
		TokenHash: tokenHash,
	}
}

func (e *SessionAddedEvent) Payload() any { return e }

type SessionTerminatedEvent struct {
	eventstore.BaseEvent
}

func NewSessionTerminatedEvent(ctx context.Context, aggregate *eventstore.Aggregate) *SessionTerminatedEvent {
	return &SessionTerminatedEvent{BaseEvent: *eventstore.NewBaseEvent(ctx, aggregate, SessionTerminatedType)}
}
