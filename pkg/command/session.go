package command

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"

	"github.com/identra/identra/pkg/apperror"
	"github.com/identra/identra/pkg/authz"
	"github.com/identra/identra/pkg/domain"
	"github.com/identra/identra/pkg/eventstore"
)

// SessionWriteModel folds a session's lifecycle.
type SessionWriteModel struct {
	eventstore.WriteModel

	State     domain.SessionState
	UserID    string
	TokenHash string
}

func NewSessionWriteModel(sessionID string) *SessionWriteModel {
	return &SessionWriteModel{
		WriteModel: eventstore.WriteModel{AggregateID: sessionID},
	}
}

func (wm *SessionWriteModel) Reduce() error {
	for _, event := range wm.Events {
		switch e := event.(type) {
		case *SessionAddedEvent:
			wm.State = domain.SessionStateActive
			wm.UserID = e.UserID
			wm.TokenHash = e.TokenHash
		case *SessionTerminatedEvent:
			wm.State = domain.SessionStateTerminated
		}
	}
	return wm.WriteModel.Reduce()
}

func (c *Commands) sessionWriteModel(ctx context.Context, sessionID string) (*SessionWriteModel, error) {
	wm := NewSessionWriteModel(sessionID)
	if err := c.loadWriteModel(ctx, wm, SessionAggregateType, sessionID, ""); err != nil {
		return nil, err
	}
	return wm, nil
}

// CreateSession opens a session for an active user. The returned token is
// handed out once; only its hash is persisted.
func (c *Commands) CreateSession(ctx context.Context, userID string) (sessionID, token string, details *domain.ObjectDetails, err error) {
	if userID == "" {
		return "", "", nil, apperror.ThrowInvalidArgument(nil, "COMMAND-Sess10", "user id must not be empty")
	}
	if err := c.checker.Check(ctx, authz.PermissionSessionWrite, ""); err != nil {
		return "", "", nil, err
	}

	user, err := c.userWriteModelByID(ctx, userID, "")
	if err != nil {
		return "", "", nil, err
	}
	if user.State != domain.UserStateActive {
		return "", "", nil, apperror.ThrowPreconditionFailed(nil, "COMMAND-Sess11", "user is not active")
	}

	sessionID, err = c.idGen.Next()
	if err != nil {
		return "", "", nil, apperror.ThrowInternal(err, "COMMAND-Sess12", "generating session id")
	}
	token = uuid.NewString()
	digest := sha256.Sum256([]byte(token))

	wm := NewSessionWriteModel(sessionID)
	aggregate := eventstore.NewAggregate(ctx, sessionID, SessionAggregateType, "")
	if err := c.pushAppendAndReduce(ctx, wm, NewSessionAddedEvent(ctx, aggregate, userID, hex.EncodeToString(digest[:]))); err != nil {
		return "", "", nil, err
	}
	return sessionID, token, writeModelToObjectDetails(&wm.WriteModel), nil
}

func (c *Commands) TerminateSession(ctx context.Context, sessionID string) (*domain.ObjectDetails, error) {
	if err := c.checker.Check(ctx, authz.PermissionSessionWrite, ""); err != nil {
		return nil, err
	}

	wm, err := c.sessionWriteModel(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if wm.State == domain.SessionStateUnspecified {
		return nil, apperror.ThrowNotFound(nil, "COMMAND-Sess20", "session not found")
	}
	if wm.State == domain.SessionStateTerminated {
		return nil, apperror.ThrowPreconditionFailed(nil, "COMMAND-Sess21", "session already terminated")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, SessionAggregateType)
	if err := c.pushAppendAndReduce(ctx, wm, NewSessionTerminatedEvent(ctx, aggregate)); err != nil {
		return nil, err
	}
	return writeModelToObjectDetails(&wm.WriteModel), nil
}
