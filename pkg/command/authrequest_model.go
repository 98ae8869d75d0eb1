package command

import (
	"context"

	"github.com/identra/identra/pkg/domain"
	"github.com/identra/identra/pkg/eventstore"
)

// AuthRequestWriteModel folds the strictly forward auth request flow.
// Failed password checks are recorded but do not advance the state.
type AuthRequestWriteModel struct {
	eventstore.WriteModel

	State        domain.AuthRequestState
	ClientID     string
	ResponseType domain.OIDCResponseType
	UserID       string
	Code         string

	FailedPasswordChecks int
}

func NewAuthRequestWriteModel(authRequestID string) *AuthRequestWriteModel {
	return &AuthRequestWriteModel{
		WriteModel: eventstore.WriteModel{AggregateID: authRequestID},
	}
}

func (wm *AuthRequestWriteModel) Reduce() error {
	for _, event := range wm.Events {
		switch e := event.(type) {
		case *AuthRequestAddedEvent:
			wm.State = domain.AuthRequestStateAdded
			wm.ClientID = e.ClientID
			wm.ResponseType = e.ResponseType
		case *AuthRequestUserSelectedEvent:
			wm.State = domain.AuthRequestStateUserSelected
			wm.UserID = e.UserID
		case *AuthRequestPasswordCheckedEvent:
			wm.State = domain.AuthRequestStatePasswordChecked
		case *AuthRequestPasswordCheckFailedEvent:
			wm.FailedPasswordChecks++
		case *AuthRequestTOTPCheckedEvent:
			wm.State = domain.AuthRequestStateMFAChecked
		case *AuthRequestCodeAddedEvent:
			wm.Code = e.Code
		case *AuthRequestSucceededEvent:
			wm.State = domain.AuthRequestStateSucceeded
		case *AuthRequestFailedEvent:
			wm.State = domain.AuthRequestStateFailed
		}
	}
	return wm.WriteModel.Reduce()
}

func (c *Commands) authRequestWriteModel(ctx context.Context, authRequestID string) (*AuthRequestWriteModel, error) {
	wm := NewAuthRequestWriteModel(authRequestID)
	if err := c.loadWriteModel(ctx, wm, AuthRequestAggregateType, authRequestID, ""); err != nil {
		return nil, err
	}
	return wm, nil
}
