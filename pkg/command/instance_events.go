package command

import (
	"context"

	"github.com/identra/identra/pkg/eventstore"
)

const InstanceAggregateType eventstore.AggregateType = "instance"

const (
	InstanceAddedType   eventstore.EventType = "instance.added"
	InstanceRemovedType eventstore.EventType = "instance.removed"
)

func init() {
	eventstore.RegisterEventMapper(InstanceAddedType, eventstore.GenericEventMapper[InstanceAddedEvent])
	eventstore.RegisterEventMapper(InstanceRemovedType, eventstore.GenericEventMapper[InstanceRemovedEvent])
}

type InstanceAddedEvent struct {
	eventstore.BaseEvent

	Name string `json:"name"`
}

func NewInstanceAddedEvent(ctx context.Context, aggregate *eventstore.Aggregate, name string) *InstanceAddedEvent {
	return &InstanceAddedEvent{
		BaseEvent: *eventstore.NewBaseEvent(ctx, aggregate, InstanceAddedType),
		Name:      name,
	}
}

func (e *InstanceAddedEvent) Payload() any { return e }

// InstanceRemovedEvent tears down the instance. Projections drop the
// instance's rows when they see it.
type InstanceRemovedEvent struct {
	eventstore.BaseEvent
}

func NewInstanceRemovedEvent(ctx context.Context, aggregate *eventstore.Aggregate) *InstanceRemovedEvent {
	return &InstanceRemovedEvent{BaseEvent: *eventstore.NewBaseEvent(ctx, aggregate, InstanceRemovedType)}
}
