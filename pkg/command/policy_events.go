package command

import (
	"context"

	"github.com/identra/identra/pkg/eventstore"
)

const (
	LoginPolicyAddedType   eventstore.EventType = "org.policy.login.added"
	LoginPolicyChangedType eventstore.EventType = "org.policy.login.changed"
	LoginPolicyRemovedType eventstore.EventType = "org.policy.login.removed"

	InstanceLoginPolicyAddedType eventstore.EventType = "instance.policy.login.added"
)

func init() {
	eventstore.RegisterEventMapper(LoginPolicyAddedType, eventstore.GenericEventMapper[LoginPolicyAddedEvent])
	eventstore.RegisterEventMapper(LoginPolicyChangedType, eventstore.GenericEventMapper[LoginPolicyChangedEvent])
	eventstore.RegisterEventMapper(LoginPolicyRemovedType, eventstore.GenericEventMapper[LoginPolicyRemovedEvent])
	eventstore.RegisterEventMapper(InstanceLoginPolicyAddedType, eventstore.GenericEventMapper[InstanceLoginPolicyAddedEvent])
}

type LoginPolicyAddedEvent struct {
	eventstore.BaseEvent

	AllowUsernamePassword bool `json:"allowUsernamePassword"`
	ForceMFA              bool `json:"forceMfa"`
}

func NewLoginPolicyAddedEvent(ctx context.Context, aggregate *eventstore.Aggregate, allowUsernamePassword, forceMFA bool) *LoginPolicyAddedEvent {
	return &LoginPolicyAddedEvent{
		BaseEvent:             *eventstore.NewBaseEvent(ctx, aggregate, LoginPolicyAddedType),
		AllowUsernamePassword: allowUsernamePassword,
		ForceMFA:              forceMFA,
	}
}

func (e *LoginPolicyAddedEvent) Payload() any { return e }

type LoginPolicyChangedEvent struct {
	eventstore.BaseEvent

	AllowUsernamePassword bool `json:"allowUsernamePassword"`
	ForceMFA              bool `json:"forceMfa"`
}

func NewLoginPolicyChangedEvent(ctx context.Context, aggregate *eventstore.Aggregate, allowUsernamePassword, forceMFA bool) *LoginPolicyChangedEvent {
	return &LoginPolicyChangedEvent{
		BaseEvent:             *eventstore.NewBaseEvent(ctx, aggregate, LoginPolicyChangedType),
		AllowUsernamePassword: allowUsernamePassword,
		ForceMFA:              forceMFA,
	}
}

func (e *LoginPolicyChangedEvent) Payload() any { return e }

// LoginPolicyRemovedEvent reverts the org to the instance default.
type LoginPolicyRemovedEvent struct {
	eventstore.BaseEvent
}

func NewLoginPolicyRemovedEvent(ctx context.Context, aggregate *eventstore.Aggregate) *LoginPolicyRemovedEvent {
	return &LoginPolicyRemovedEvent{BaseEvent: *eventstore.NewBaseEvent(ctx, aggregate, LoginPolicyRemovedType)}
}

type InstanceLoginPolicyAddedEvent struct {
	eventstore.BaseEvent

	AllowUsernamePassword bool `json:"allowUsernamePassword"`
	ForceMFA              bool `json:"forceMfa"`
}

func NewInstanceLoginPolicyAddedEvent(ctx context.Context, aggregate *eventstore.Aggregate, allowUsernamePassword, forceMFA bool) *InstanceLoginPolicyAddedEvent {
	return &InstanceLoginPolicyAddedEvent{
		BaseEvent:             *eventstore.NewBaseEvent(ctx, aggregate, InstanceLoginPolicyAddedType),
		AllowUsernamePassword: allowUsernamePassword,
		ForceMFA:              forceMFA,
	}
}

func (e *InstanceLoginPolicyAddedEvent) Payload() any { return e }
