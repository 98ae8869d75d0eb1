package command

import (
	"context"

	"github.com/identra/identra/pkg/domain"
	"github.com/identra/identra/pkg/eventstore"
)

const AuthRequestAggregateType eventstore.AggregateType = "auth_request"

const (
	AuthRequestAddedType               eventstore.EventType = "auth_request.added"
	AuthRequestUserSelectedType        eventstore.EventType = "auth_request.user.selected"
	AuthRequestPasswordCheckedType     eventstore.EventType = "auth_request.password.checked"
	AuthRequestPasswordCheckFailedType eventstore.EventType = "auth_request.password.check.failed"
	AuthRequestTOTPCheckedType         eventstore.EventType = "auth_request.totp.checked"
	AuthRequestCodeAddedType           eventstore.EventType = "auth_request.code.added"
	AuthRequestSucceededType           eventstore.EventType = "auth_request.succeeded"
	AuthRequestFailedType              eventstore.EventType = "auth_request.failed"
)

func init() {
	eventstore.RegisterEventMapper(AuthRequestAddedType, eventstore.GenericEventMapper[AuthRequestAddedEvent])
	eventstore.RegisterEventMapper(AuthRequestUserSelectedType, eventstore.GenericEventMapper[AuthRequestUserSelectedEvent])
	eventstore.RegisterEventMapper(AuthRequestPasswordCheckedType, eventstore.GenericEventMapper[AuthRequestPasswordCheckedEvent])
	eventstore.RegisterEventMapper(AuthRequestPasswordCheckFailedType, eventstore.GenericEventMapper[AuthRequestPasswordCheckFailedEvent])
	eventstore.RegisterEventMapper(AuthRequestTOTPCheckedType, eventstore.GenericEventMapper[AuthRequestTOTPCheckedEvent])
	eventstore.RegisterEventMapper(AuthRequestCodeAddedType, eventstore.GenericEventMapper[AuthRequestCodeAddedEvent])
	eventstore.RegisterEventMapper(AuthRequestSucceededType, eventstore.GenericEventMapper[AuthRequestSucceededEvent])
	eventstore.RegisterEventMapper(AuthRequestFailedType, eventstore.GenericEventMapper[AuthRequestFailedEvent])
}

type AuthRequestAddedEvent struct {
	eventstore.BaseEvent

	ClientID     string                  `json:"clientId"`
	RedirectURI  string                  `json:"redirectUri"`
	ResponseType domain.OIDCResponseType `json:"responseType"`
}

func NewAuthRequestAddedEvent(ctx context.Context, aggregate *eventstore.Aggregate, clientID, redirectURI string, responseType domain.OIDCResponseType) *AuthRequestAddedEvent {
	return &AuthRequestAddedEvent{
		BaseEvent:    *eventstore.NewBaseEvent(ctx, aggregate, AuthRequestAddedType),
		ClientID:     clientID,
		RedirectURI:  redirectURI,
		ResponseType: responseType,
	}
}

func (e *AuthRequestAddedEvent) Payload() any { return e }

type AuthRequestUserSelectedEvent struct {
	eventstore.BaseEvent

	UserID string `json:"userId"`
}

func NewAuthRequestUserSelectedEvent(ctx context.Context, aggregate *eventstore.Aggregate, userID string) *AuthRequestUserSelectedEvent {
	return &AuthRequestUserSelectedEvent{
		BaseEvent: *eventstore.NewBaseEvent(ctx, aggregate, AuthRequestUserSelectedType),
		UserID:    userID,
	}
}

func (e *AuthRequestUserSelectedEvent) Payload() any { return e }

type AuthRequestPasswordCheckedEvent struct {
	eventstore.BaseEvent
}

func NewAuthRequestPasswordCheckedEvent(ctx context.Context, aggregate *eventstore.Aggregate) *AuthRequestPasswordCheckedEvent {
	return &AuthRequestPasswordCheckedEvent{BaseEvent: *eventstore.NewBaseEvent(ctx, aggregate, AuthRequestPasswordCheckedType)}
}

// AuthRequestPasswordCheckFailedEvent records a failed attempt without
// moving the request forward.
type AuthRequestPasswordCheckFailedEvent struct {
	eventstore.BaseEvent
}

func NewAuthRequestPasswordCheckFailedEvent(ctx context.Context, aggregate *eventstore.Aggregate) *AuthRequestPasswordCheckFailedEvent {
	return &AuthRequestPasswordCheckFailedEvent{BaseEvent: *eventstore.NewBaseEvent(ctx, aggregate, AuthRequestPasswordCheckFailedType)}
}

type AuthRequestTOTPCheckedEvent struct {
	eventstore.BaseEvent
}

func NewAuthRequestTOTPCheckedEvent(ctx context.Context, aggregate *eventstore.Aggregate) *AuthRequestTOTPCheckedEvent {
	return &AuthRequestTOTPCheckedEvent{BaseEvent: *eventstore.NewBaseEvent(ctx, aggregate, AuthRequestTOTPCheckedType)}
}

type AuthRequestCodeAddedEvent struct {
	eventstore.BaseEvent

	Code string `json:"code"`
}

func NewAuthRequestCodeAddedEvent(ctx context.Context, aggregate *eventstore.Aggregate, code string) *AuthRequestCodeAddedEvent {
	return &AuthRequestCodeAddedEvent{
		BaseEvent: *eventstore.NewBaseEvent(ctx, aggregate, AuthRequestCodeAddedType),
		Code:      code,
	}
}

func (e *AuthRequestCodeAddedEvent) Payload() any { return e }

type AuthRequestSucceededEvent struct {
	eventstore.BaseEvent
}

func NewAuthRequestSucceededEvent(ctx context.Context, aggregate *eventstore.Aggregate) *AuthRequestSucceededEvent {
	return &AuthRequestSucceededEvent{BaseEvent: *eventstore.NewBaseEvent(ctx, aggregate, AuthRequestSucceededType)}
}

type AuthRequestFailedEvent struct {
	eventstore.BaseEvent

	Reason string `json:"reason,omitempty"`
}

func NewAuthRequestFailedEvent(ctx context.Context, aggregate *eventstore.Aggregate, reason string) *AuthRequestFailedEvent {
	return &AuthRequestFailedEvent{
		BaseEvent: *eventstore.NewBaseEvent(ctx, aggregate, AuthRequestFailedType),
		Reason:    reason,
	}
}

func (e *AuthRequestFailedEvent) Payload() any { return e }
