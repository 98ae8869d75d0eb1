package command

import (
	"context"
	"time"

	"github.com/identra/identra/pkg/domain"
	"github.com/identra/identra/pkg/eventstore"
)

// UserWriteModel folds the user aggregate's lifecycle, username, and
// credentials.
type UserWriteModel struct {
	eventstore.WriteModel

	Username     string
	UserType     domain.UserType
	State        domain.UserState
	Email        string
	PasswordHash string

	TOTPSecret string
	TOTPState  domain.OTPState
}

func NewUserWriteModel(userID, resourceOwner string) *UserWriteModel {
	return &UserWriteModel{
		WriteModel: eventstore.WriteModel{
			AggregateID:   userID,
			ResourceOwner: resourceOwner,
		},
	}
}

func (wm *UserWriteModel) Reduce() error {
	for _, event := range wm.Events {
		switch e := event.(type) {
		case *HumanAddedEvent:
			wm.Username = e.Username
			wm.Email = e.Email
			wm.PasswordHash = e.PasswordHash
			wm.UserType = domain.UserTypeHuman
			wm.State = domain.UserStateActive
		case *MachineAddedEvent:
			wm.Username = e.Username
			wm.UserType = domain.UserTypeMachine
			wm.State = domain.UserStateActive
		case *UsernameChangedEvent:
			wm.Username = e.Username
		case *UserDeactivatedEvent:
			wm.State = domain.UserStateInactive
		case *UserReactivatedEvent:
			wm.State = domain.UserStateActive
		case *UserLockedEvent:
			wm.State = domain.UserStateLocked
		case *UserUnlockedEvent:
			wm.State = domain.UserStateActive
		case *UserRemovedEvent:
			wm.State = domain.UserStateRemoved
		case *PasswordChangedEvent:
			wm.PasswordHash = e.PasswordHash
		case *TOTPAddedEvent:
			wm.TOTPSecret = e.EncryptedSecret
			wm.TOTPState = domain.OTPStateReady
		}
	}
	return wm.WriteModel.Reduce()
}

func (c *Commands) userWriteModelByID(ctx context.Context, userID, resourceOwner string) (*UserWriteModel, error) {
	wm := NewUserWriteModel(userID, resourceOwner)
	if err := c.loadWriteModel(ctx, wm, UserAggregateType, userID, resourceOwner); err != nil {
		return nil, err
	}
	return wm, nil
}

// MachineKeyWriteModel folds one key of a machine user, sub-filtered by
// key id. Events for other keys advance the sequence only.
type MachineKeyWriteModel struct {
	eventstore.WriteModel

	KeyID          string
	State          domain.MachineKeyState
	ExpirationDate time.Time

	UserType  domain.UserType
	UserState domain.UserState
}

func NewMachineKeyWriteModel(userID, resourceOwner, keyID string) *MachineKeyWriteModel {
	return &MachineKeyWriteModel{
		WriteModel: eventstore.WriteModel{
			AggregateID:   userID,
			ResourceOwner: resourceOwner,
		},
		KeyID: keyID,
	}
}

func (wm *MachineKeyWriteModel) Reduce() error {
	for _, event := range wm.Events {
		switch e := event.(type) {
		case *MachineAddedEvent:
			wm.UserType = domain.UserTypeMachine
			wm.UserState = domain.UserStateActive
		case *HumanAddedEvent:
			wm.UserType = domain.UserTypeHuman
			wm.UserState = domain.UserStateActive
		case *UserRemovedEvent:
			wm.UserState = domain.UserStateRemoved
		case *MachineKeyAddedEvent:
			if e.KeyID != wm.KeyID {
				continue
			}
			wm.State = domain.MachineKeyStateActive
			wm.ExpirationDate = e.ExpirationDate
		case *MachineKeyRemovedEvent:
			if e.KeyID != wm.KeyID {
				continue
			}
			wm.State = domain.MachineKeyStateRemoved
		}
	}
	return wm.WriteModel.Reduce()
}

func (c *Commands) machineKeyWriteModel(ctx context.Context, userID, resourceOwner, keyID string) (*MachineKeyWriteModel, error) {
	wm := NewMachineKeyWriteModel(userID, resourceOwner, keyID)
	if err := c.loadWriteModel(ctx, wm, UserAggregateType, userID, resourceOwner); err != nil {
		return nil, err
	}
	return wm, nil
}

// WebAuthnWriteModel folds one WebAuthn token, sub-filtered by token id.
type WebAuthnWriteModel struct {
	eventstore.WriteModel

	WebAuthnID string
	State      domain.WebAuthnState
	Challenge  string
	KeyID      string
	PublicKey  []byte

	UserType  domain.UserType
	UserState domain.UserState
}

func NewWebAuthnWriteModel(userID, resourceOwner, webAuthnID string) *WebAuthnWriteModel {
	return &WebAuthnWriteModel{
		WriteModel: eventstore.WriteModel{
			AggregateID:   userID,
			ResourceOwner: resourceOwner,
		},
		WebAuthnID: webAuthnID,
	}
}

func (wm *WebAuthnWriteModel) Reduce() error {
	for _, event := range wm.Events {
		switch e := event.(type) {
		case *HumanAddedEvent:
			wm.UserType = domain.UserTypeHuman
			wm.UserState = domain.UserStateActive
		case *MachineAddedEvent:
			wm.UserType = domain.UserTypeMachine
			wm.UserState = domain.UserStateActive
		case *UserRemovedEvent:
			wm.UserState = domain.UserStateRemoved
		case *WebAuthnAddedEvent:
			if e.WebAuthnID != wm.WebAuthnID {
				continue
			}
			wm.State = domain.WebAuthnStateNotReady
			wm.Challenge = e.Challenge
		case *WebAuthnVerifiedEvent:
			if e.WebAuthnID != wm.WebAuthnID {
				continue
			}
			wm.State = domain.WebAuthnStateReady
			wm.KeyID = e.KeyID
			wm.PublicKey = e.PublicKey
		case *WebAuthnRemovedEvent:
			if e.WebAuthnID != wm.WebAuthnID {
				continue
			}
			wm.State = domain.WebAuthnStateRemoved
		}
	}
	return wm.WriteModel.Reduce()
}

func (c *Commands) webAuthnWriteModel(ctx context.Context, userID, resourceOwner, webAuthnID string) (*WebAuthnWriteModel, error) {
	wm := NewWebAuthnWriteModel(userID, resourceOwner, webAuthnID)
	if err := c.loadWriteModel(ctx, wm, UserAggregateType, userID, resourceOwner); err != nil {
		return nil, err
	}
	return wm, nil
}
