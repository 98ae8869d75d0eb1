package command

import (
	"context"
	"time"

	"github.com/identra/identra/pkg/domain"
	"github.com/identra/identra/pkg/eventstore"
)

const UserAggregateType eventstore.AggregateType = "user"

const (
	HumanAddedType      eventstore.EventType = "user.human.added"
	MachineAddedType    eventstore.EventType = "user.machine.added"
	UsernameChangedType eventstore.EventType = "user.username.changed"
	UserDeactivatedType eventstore.EventType = "user.deactivated"
	UserReactivatedType eventstore.EventType = "user.reactivated"
	UserLockedType      eventstore.EventType = "user.locked"
	UserUnlockedType    eventstore.EventType = "user.unlocked"
	UserRemovedType     eventstore.EventType = "user.removed"
	PasswordChangedType eventstore.EventType = "user.password.changed"

	MachineKeyAddedType   eventstore.EventType = "user.machine.key.added"
	MachineKeyRemovedType eventstore.EventType = "user.machine.key.removed"

	WebAuthnAddedType    eventstore.EventType = "user.human.webauthn.added"
	WebAuthnVerifiedType eventstore.EventType = "user.human.webauthn.verified"
	WebAuthnRemovedType  eventstore.EventType = "user.human.webauthn.removed"

	TOTPAddedType eventstore.EventType = "user.human.otp.added"
)

// UniqueUsername is claimed per instance on user creation, swapped on
// username change, and released on removal.
const UniqueUsername = "usernames"

func init() {
	eventstore.RegisterEventMapper(HumanAddedType, eventstore.GenericEventMapper[HumanAddedEvent])
	eventstore.RegisterEventMapper(MachineAddedType, eventstore.GenericEventMapper[MachineAddedEvent])
	eventstore.RegisterEventMapper(UsernameChangedType, eventstore.GenericEventMapper[UsernameChangedEvent])
	eventstore.RegisterEventMapper(UserDeactivatedType, eventstore.GenericEventMapper[UserDeactivatedEvent])
	eventstore.RegisterEventMapper(UserReactivatedType, eventstore.GenericEventMapper[UserReactivatedEvent])
	eventstore.RegisterEventMapper(UserLockedType, eventstore.GenericEventMapper[UserLockedEvent])
	eventstore.RegisterEventMapper(UserUnlockedType, eventstore.GenericEventMapper[UserUnlockedEvent])
	eventstore.RegisterEventMapper(UserRemovedType, eventstore.GenericEventMapper[UserRemovedEvent])
	eventstore.RegisterEventMapper(PasswordChangedType, eventstore.GenericEventMapper[PasswordChangedEvent])
	eventstore.RegisterEventMapper(MachineKeyAddedType, eventstore.GenericEventMapper[MachineKeyAddedEvent])
	eventstore.RegisterEventMapper(MachineKeyRemovedType, eventstore.GenericEventMapper[MachineKeyRemovedEvent])
	eventstore.RegisterEventMapper(WebAuthnAddedType, eventstore.GenericEventMapper[WebAuthnAddedEvent])
	eventstore.RegisterEventMapper(WebAuthnVerifiedType, eventstore.GenericEventMapper[WebAuthnVerifiedEvent])
	eventstore.RegisterEventMapper(WebAuthnRemovedType, eventstore.GenericEventMapper[WebAuthnRemovedEvent])
	eventstore.RegisterEventMapper(TOTPAddedType, eventstore.GenericEventMapper[TOTPAddedEvent])
}

type HumanAddedEvent struct {
	eventstore.BaseEvent

	Username  string `json:"username"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email"`

	// PasswordHash is the bcrypt hash; the plaintext never enters the log.
	PasswordHash string `json:"passwordHash,omitempty"`
}

func NewHumanAddedEvent(ctx context.Context, aggregate *eventstore.Aggregate, username, firstName, lastName, email, passwordHash string) *HumanAddedEvent {
	return &HumanAddedEvent{
		BaseEvent:    *eventstore.NewBaseEvent(ctx, aggregate, HumanAddedType),
		Username:     username,
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: passwordHash,
	}
}

func (e *HumanAddedEvent) Payload() any { return e }

func (e *HumanAddedEvent) UniqueConstraints() []*eventstore.UniqueConstraint {
	return []*eventstore.UniqueConstraint{
		eventstore.NewAddUniqueConstraint(UniqueUsername, domain.NormalizeIdentifier(e.Username), "COMMAND-User01"),
	}
}

type MachineAddedEvent struct {
	eventstore.BaseEvent

	Username    string `json:"username"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func NewMachineAddedEvent(ctx context.Context, aggregate *eventstore.Aggregate, username, name, description string) *MachineAddedEvent {
	return &MachineAddedEvent{
		BaseEvent:   *eventstore.NewBaseEvent(ctx, aggregate, MachineAddedType),
		Username:    username,
		Name:        name,
		Description: description,
	}
}

func (e *MachineAddedEvent) Payload() any { return e }

func (e *MachineAddedEvent) UniqueConstraints() []*eventstore.UniqueConstraint {
	return []*eventstore.UniqueConstraint{
		eventstore.NewAddUniqueConstraint(UniqueUsername, domain.NormalizeIdentifier(e.Username), "COMMAND-User01"),
	}
}

type UsernameChangedEvent struct {
	eventstore.BaseEvent

	Username string `json:"username"`

	oldUsername string
}

func NewUsernameChangedEvent(ctx context.Context, aggregate *eventstore.Aggregate, oldUsername, newUsername string) *UsernameChangedEvent {
	return &UsernameChangedEvent{
		BaseEvent:   *eventstore.NewBaseEvent(ctx, aggregate, UsernameChangedType),
		Username:    newUsername,
		oldUsername: oldUsername,
	}
}

func (e *UsernameChangedEvent) Payload() any { return e }

func (e *UsernameChangedEvent) UniqueConstraints() []*eventstore.UniqueConstraint {
	return []*eventstore.UniqueConstraint{
		eventstore.NewRemoveUniqueConstraint(UniqueUsername, domain.NormalizeIdentifier(e.oldUsername)),
		eventstore.NewAddUniqueConstraint(UniqueUsername, domain.NormalizeIdentifier(e.Username), "COMMAND-User01"),
	}
}

type UserDeactivatedEvent struct {
	eventstore.BaseEvent
}

func NewUserDeactivatedEvent(ctx context.Context, aggregate *eventstore.Aggregate) *UserDeactivatedEvent {
	return &UserDeactivatedEvent{BaseEvent: *eventstore.NewBaseEvent(ctx, aggregate, UserDeactivatedType)}
}

type UserReactivatedEvent struct {
	eventstore.BaseEvent
}

func NewUserReactivatedEvent(ctx context.Context, aggregate *eventstore.Aggregate) *UserReactivatedEvent {
	return &UserReactivatedEvent{BaseEvent: *eventstore.NewBaseEvent(ctx, aggregate, UserReactivatedType)}
}

type UserLockedEvent struct {
	eventstore.BaseEvent
}

func NewUserLockedEvent(ctx context.Context, aggregate *eventstore.Aggregate) *UserLockedEvent {
	return &UserLockedEvent{BaseEvent: *eventstore.NewBaseEvent(ctx, aggregate, UserLockedType)}
}

type UserUnlockedEvent struct {
	eventstore.BaseEvent
}

func NewUserUnlockedEvent(ctx context.Context, aggregate *eventstore.Aggregate) *UserUnlockedEvent {
	return &UserUnlockedEvent{BaseEvent: *eventstore.NewBaseEvent(ctx, aggregate, UserUnlockedType)}
}

type UserRemovedEvent struct {
	eventstore.BaseEvent

	username string
}

func NewUserRemovedEvent(ctx context.Context, aggregate *eventstore.Aggregate, username string) *UserRemovedEvent {
	return &UserRemovedEvent{
		BaseEvent: *eventstore.NewBaseEvent(ctx, aggregate, UserRemovedType),
		username:  username,
	}
}

func (e *UserRemovedEvent) UniqueConstraints() []*eventstore.UniqueConstraint {
	return []*eventstore.UniqueConstraint{
		eventstore.NewRemoveUniqueConstraint(UniqueUsername, domain.NormalizeIdentifier(e.username)),
	}
}

type PasswordChangedEvent struct {
	eventstore.BaseEvent

	PasswordHash string `json:"passwordHash"`
}

func NewPasswordChangedEvent(ctx context.Context, aggregate *eventstore.Aggregate, passwordHash string) *PasswordChangedEvent {
	return &PasswordChangedEvent{
		BaseEvent:    *eventstore.NewBaseEvent(ctx, aggregate, PasswordChangedType),
		PasswordHash: passwordHash,
	}
}

func (e *PasswordChangedEvent) Payload() any { return e }

type MachineKeyAddedEvent struct {
	eventstore.BaseEvent

	KeyID          string    `json:"keyId"`
	ExpirationDate time.Time `json:"expirationDate"`
}

func NewMachineKeyAddedEvent(ctx context.Context, aggregate *eventstore.Aggregate, keyID string, expirationDate time.Time) *MachineKeyAddedEvent {
	return &MachineKeyAddedEvent{
		BaseEvent:      *eventstore.NewBaseEvent(ctx, aggregate, MachineKeyAddedType),
		KeyID:          keyID,
		ExpirationDate: expirationDate,
	}
}

func (e *MachineKeyAddedEvent) Payload() any { return e }

type MachineKeyRemovedEvent struct {
	eventstore.BaseEvent

	KeyID string `json:"keyId"`
}

func NewMachineKeyRemovedEvent(ctx context.Context, aggregate *eventstore.Aggregate, keyID string) *MachineKeyRemovedEvent {
	return &MachineKeyRemovedEvent{
		BaseEvent: *eventstore.NewBaseEvent(ctx, aggregate, MachineKeyRemovedType),
		KeyID:     keyID,
	}
}

func (e *MachineKeyRemovedEvent) Payload() any { return e }

type WebAuthnAddedEvent struct {
	eventstore.BaseEvent

	WebAuthnID string `json:"webAuthnId"`
	Challenge  string `json:"challenge"`
}

func NewWebAuthnAddedEvent(ctx context.Context, aggregate *eventstore.Aggregate, webAuthnID, challenge string) *WebAuthnAddedEvent {
	return &WebAuthnAddedEvent{
		BaseEvent:  *eventstore.NewBaseEvent(ctx, aggregate, WebAuthnAddedType),
		WebAuthnID: webAuthnID,
		Challenge:  challenge,
	}
}

func (e *WebAuthnAddedEvent) Payload() any { return e }

type WebAuthnVerifiedEvent struct {
	eventstore.BaseEvent

	WebAuthnID string `json:"webAuthnId"`
	KeyID      string `json:"keyId"`
	PublicKey  []byte `json:"publicKey"`
}

func NewWebAuthnVerifiedEvent(ctx context.Context, aggregate *eventstore.Aggregate, webAuthnID, keyID string, publicKey []byte) *WebAuthnVerifiedEvent {
	return &WebAuthnVerifiedEvent{
		BaseEvent:  *eventstore.NewBaseEvent(ctx, aggregate, WebAuthnVerifiedType),
		WebAuthnID: webAuthnID,
		KeyID:      keyID,
		PublicKey:  publicKey,
	}
}

func (e *WebAuthnVerifiedEvent) Payload() any { return e }

type WebAuthnRemovedEvent struct {
	eventstore.BaseEvent

	WebAuthnID string `json:"webAuthnId"`
}

func NewWebAuthnRemovedEvent(ctx context.Context, aggregate *eventstore.Aggregate, webAuthnID string) *WebAuthnRemovedEvent {
	return &WebAuthnRemovedEvent{
		BaseEvent:  *eventstore.NewBaseEvent(ctx, aggregate, WebAuthnRemovedType),
		WebAuthnID: webAuthnID,
	}
}

func (e *WebAuthnRemovedEvent) Payload() any { return e }

type TOTPAddedEvent struct {
	eventstore.BaseEvent

	// EncryptedSecret is the keeper-encrypted TOTP seed; the plaintext
	// seed leaves the server exactly once, inside the provisioning URI.
	EncryptedSecret string `json:"encryptedSecret"`
}

func NewTOTPAddedEvent(ctx context.Context, aggregate *eventstore.Aggregate, encryptedSecret string) *TOTPAddedEvent {
	return &TOTPAddedEvent{
		BaseEvent:       *eventstore.NewBaseEvent(ctx, aggregate, TOTPAddedType),
		EncryptedSecret: encryptedSecret,
	}
}

func (e *TOTPAddedEvent) Payload() any { return e }
