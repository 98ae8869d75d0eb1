package command

import (
	"context"
	"strings"

	"github.com/asaskevich/govalidator"

	"github.com/identra/identra/pkg/apperror"
	"github.com/identra/identra/pkg/authz"
	"github.com/identra/identra/pkg/domain"
	"github.com/identra/identra/pkg/eventstore"
)

// AddHumanUser creates a human user with a per-instance unique username
// and a strength-checked, bcrypt-hashed password.
func (c *Commands) AddHumanUser(ctx context.Context, orgID, username, firstName, lastName, email, password string) (string, *domain.ObjectDetails, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", nil, apperror.ThrowInvalidArgument(nil, "COMMAND-User10", "username must not be empty")
	}
	if email == "" || !govalidator.IsEmail(email) {
		return "", nil, apperror.ThrowInvalidArgument(nil, "COMMAND-User11", "email is invalid")
	}
	if orgID == "" {
		return "", nil, apperror.ThrowInvalidArgument(nil, "COMMAND-User12", "org id must not be empty")
	}
	if err := c.checker.Check(ctx, authz.PermissionUserWrite, orgID); err != nil {
		return "", nil, err
	}

	var passwordHash string
	if password != "" {
		if err := c.hasher.ValidateStrength(password); err != nil {
			return "", nil, err
		}
		var err error
		passwordHash, err = c.hasher.Hash(password)
		if err != nil {
			return "", nil, err
		}
	}

	userID, err := c.idGen.Next()
	if err != nil {
		return "", nil, apperror.ThrowInternal(err, "COMMAND-User13", "generating user id")
	}

	wm := NewUserWriteModel(userID, orgID)
	aggregate := eventstore.NewAggregate(ctx, userID, UserAggregateType, orgID)
	event := NewHumanAddedEvent(ctx, aggregate, username, firstName, lastName, email, passwordHash)
	if err := c.pushAppendAndReduce(ctx, wm, event); err != nil {
		return "", nil, err
	}
	return userID, writeModelToObjectDetails(&wm.WriteModel), nil
}

// AddMachineUser creates a service user.
func (c *Commands) AddMachineUser(ctx context.Context, orgID, username, name, description string) (string, *domain.ObjectDetails, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", nil, apperror.ThrowInvalidArgument(nil, "COMMAND-User14", "username must not be empty")
	}
	if name == "" {
		return "", nil, apperror.ThrowInvalidArgument(nil, "COMMAND-User15", "machine name must not be empty")
	}
	if orgID == "" {
		return "", nil, apperror.ThrowInvalidArgument(nil, "COMMAND-User16", "org id must not be empty")
	}
	if err := c.checker.Check(ctx, authz.PermissionUserWrite, orgID); err != nil {
		return "", nil, err
	}

	userID, err := c.idGen.Next()
	if err != nil {
		return "", nil, apperror.ThrowInternal(err, "COMMAND-User17", "generating user id")
	}

	wm := NewUserWriteModel(userID, orgID)
	aggregate := eventstore.NewAggregate(ctx, userID, UserAggregateType, orgID)
	if err := c.pushAppendAndReduce(ctx, wm, NewMachineAddedEvent(ctx, aggregate, username, name, description)); err != nil {
		return "", nil, err
	}
	return userID, writeModelToObjectDetails(&wm.WriteModel), nil
}

// ChangeUsername swaps the username constraint in one push: the old value
// is released and the new one claimed atomically.
func (c *Commands) ChangeUsername(ctx context.Context, orgID, userID, username string) (*domain.ObjectDetails, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperror.ThrowInvalidArgument(nil, "COMMAND-User20", "username must not be empty")
	}
	if err := c.checker.Check(ctx, authz.PermissionUserWrite, orgID); err != nil {
		return nil, err
	}

	wm, err := c.userWriteModelByID(ctx, userID, orgID)
	if err != nil {
		return nil, err
	}
	if !wm.State.Exists() {
		return nil, apperror.ThrowNotFound(nil, "COMMAND-User21", "user not found")
	}
	if wm.Username == username {
		return nil, apperror.ThrowPreconditionFailed(nil, "COMMAND-User22", "username unchanged")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, UserAggregateType)
	if err := c.pushAppendAndReduce(ctx, wm, NewUsernameChangedEvent(ctx, aggregate, wm.Username, username)); err != nil {
		return nil, err
	}
	return writeModelToObjectDetails(&wm.WriteModel), nil
}

func (c *Commands) DeactivateUser(ctx context.Context, orgID, userID string) (*domain.ObjectDetails, error) {
	if err := c.checker.Check(ctx, authz.PermissionUserWrite, orgID); err != nil {
		return nil, err
	}

	wm, err := c.userWriteModelByID(ctx, userID, orgID)
	if err != nil {
		return nil, err
	}
	if !wm.State.Exists() {
		return nil, apperror.ThrowNotFound(nil, "COMMAND-User30", "user not found")
	}
	if wm.State != domain.UserStateActive {
		return nil, apperror.ThrowPreconditionFailed(nil, "COMMAND-User31", "user is not active")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, UserAggregateType)
	if err := c.pushAppendAndReduce(ctx, wm, NewUserDeactivatedEvent(ctx, aggregate)); err != nil {
		return nil, err
	}
	return writeModelToObjectDetails(&wm.WriteModel), nil
}

func (c *Commands) ReactivateUser(ctx context.Context, orgID, userID string) (*domain.ObjectDetails, error) {
	if err := c.checker.Check(ctx, authz.PermissionUserWrite, orgID); err != nil {
		return nil, err
	}

	wm, err := c.userWriteModelByID(ctx, userID, orgID)
	if err != nil {
		return nil, err
	}
	if !wm.State.Exists() {
		return nil, apperror.ThrowNotFound(nil, "COMMAND-User40", "user not found")
	}
	if wm.State != domain.UserStateInactive {
		return nil, apperror.ThrowPreconditionFailed(nil, "COMMAND-User41", "user is not inactive")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, UserAggregateType)
	if err := c.pushAppendAndReduce(ctx, wm, NewUserReactivatedEvent(ctx, aggregate)); err != nil {
		return nil, err
	}
	return writeModelToObjectDetails(&wm.WriteModel), nil
}

func (c *Commands) LockUser(ctx context.Context, orgID, userID string) (*domain.ObjectDetails, error) {
	if err := c.checker.Check(ctx, authz.PermissionUserWrite, orgID); err != nil {
		return nil, err
	}

	wm, err := c.userWriteModelByID(ctx, userID, orgID)
	if err != nil {
		return nil, err
	}
	if !wm.State.Exists() {
		return nil, apperror.ThrowNotFound(nil, "COMMAND-User50", "user not found")
	}
	if wm.State == domain.UserStateLocked {
		return nil, apperror.ThrowPreconditionFailed(nil, "COMMAND-User51", "user is already locked")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, UserAggregateType)
	if err := c.pushAppendAndReduce(ctx, wm, NewUserLockedEvent(ctx, aggregate)); err != nil {
		return nil, err
	}
	return writeModelToObjectDetails(&wm.WriteModel), nil
}

func (c *Commands) UnlockUser(ctx context.Context, orgID, userID string) (*domain.ObjectDetails, error) {
	if err := c.checker.Check(ctx, authz.PermissionUserWrite, orgID); err != nil {
		return nil, err
	}

	wm, err := c.userWriteModelByID(ctx, userID, orgID)
	if err != nil {
		return nil, err
	}
	if !wm.State.Exists() {
		return nil, apperror.ThrowNotFound(nil, "COMMAND-User60", "user not found")
	}
	if wm.State != domain.UserStateLocked {
		return nil, apperror.ThrowPreconditionFailed(nil, "COMMAND-User61", "user is not locked")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, UserAggregateType)
	if err := c.pushAppendAndReduce(ctx, wm, NewUserUnlockedEvent(ctx, aggregate)); err != nil {
		return nil, err
	}
	return writeModelToObjectDetails(&wm.WriteModel), nil
}

// RemoveUser removes the user and releases the username for reuse.
func (c *Commands) RemoveUser(ctx context.Context, orgID, userID string) (*domain.ObjectDetails, error) {
	if err := c.checker.Check(ctx, authz.PermissionUserDelete, orgID); err != nil {
		return nil, err
	}

	wm, err := c.userWriteModelByID(ctx, userID, orgID)
	if err != nil {
		return nil, err
	}
	if !wm.State.Exists() {
		return nil, apperror.ThrowNotFound(nil, "COMMAND-User70", "user not found")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, UserAggregateType)
	if err := c.pushAppendAndReduce(ctx, wm, NewUserRemovedEvent(ctx, aggregate, wm.Username)); err != nil {
		return nil, err
	}
	return writeModelToObjectDetails(&wm.WriteModel), nil
}

// SetPassword replaces the user's password after a strength check.
func (c *Commands) SetPassword(ctx context.Context, orgID, userID, password string) (*domain.ObjectDetails, error) {
	if err := c.checker.Check(ctx, authz.PermissionUserCredWrite, orgID); err != nil {
		return nil, err
	}
	if err := c.hasher.ValidateStrength(password); err != nil {
		return nil, err
	}

	wm, err := c.userWriteModelByID(ctx, userID, orgID)
	if err != nil {
		return nil, err
	}
	if !wm.State.Exists() {
		return nil, apperror.ThrowNotFound(nil, "COMMAND-User80", "user not found")
	}
	if wm.UserType != domain.UserTypeHuman {
		return nil, apperror.ThrowPreconditionFailed(nil, "COMMAND-User81", "machine users have no password")
	}

	passwordHash, err := c.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, UserAggregateType)
	if err := c.pushAppendAndReduce(ctx, wm, NewPasswordChangedEvent(ctx, aggregate, passwordHash)); err != nil {
		return nil, err
	}
	return writeModelToObjectDetails(&wm.WriteModel), nil
}
