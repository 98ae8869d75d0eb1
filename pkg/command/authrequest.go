package command

import (
	"context"

	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"

	"github.com/identra/identra/pkg/apperror"
	"github.com/identra/identra/pkg/crypto"
	"github.com/identra/identra/pkg/domain"
	"github.com/identra/identra/pkg/eventstore"
)

// AddAuthRequest opens an authentication flow for an OIDC client.
func (c *Commands) AddAuthRequest(ctx context.Context, clientID, redirectURI string, responseType domain.OIDCResponseType) (string, *domain.ObjectDetails, error) {
	if clientID == "" {
		return "", nil, apperror.ThrowInvalidArgument(nil, "COMMAND-Auth10", "client id must not be empty")
	}
	if !govalidator.IsRequestURL(redirectURI) {
		return "", nil, apperror.ThrowInvalidArgument(nil, "COMMAND-Auth11", "redirect uri is invalid")
	}

	authRequestID, err := c.idGen.Next()
	if err != nil {
		return "", nil, apperror.ThrowInternal(err, "COMMAND-Auth12", "generating auth request id")
	}

	wm := NewAuthRequestWriteModel(authRequestID)
	aggregate := eventstore.NewAggregate(ctx, authRequestID, AuthRequestAggregateType, "")
	if err := c.pushAppendAndReduce(ctx, wm, NewAuthRequestAddedEvent(ctx, aggregate, clientID, redirectURI, responseType)); err != nil {
		return "", nil, err
	}
	return authRequestID, writeModelToObjectDetails(&wm.WriteModel), nil
}

// SelectUser binds the flow to an existing user.
func (c *Commands) SelectUser(ctx context.Context, authRequestID, userID string) (*domain.ObjectDetails, error) {
	wm, err := c.authRequestWriteModel(ctx, authRequestID)
	if err != nil {
		return nil, err
	}
	if wm.State == domain.AuthRequestStateUnspecified {
		return nil, apperror.ThrowNotFound(nil, "COMMAND-Auth20", "auth request not found")
	}
	if wm.State != domain.AuthRequestStateAdded {
		return nil, apperror.ThrowPreconditionFailed(nil, "COMMAND-Auth21", "auth request does not await user selection")
	}

	user, err := c.userWriteModelByID(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	if !user.State.Exists() {
		return nil, apperror.ThrowPreconditionFailed(nil, "COMMAND-Auth22", "user not found")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, AuthRequestAggregateType)
	if err := c.pushAppendAndReduce(ctx, wm, NewAuthRequestUserSelectedEvent(ctx, aggregate, userID)); err != nil {
		return nil, err
	}
	return writeModelToObjectDetails(&wm.WriteModel), nil
}

// CheckPassword verifies the selected user's password. A mismatch is
// recorded as a failed check and reported in the returned details; the
// request only advances on a match.
func (c *Commands) CheckPassword(ctx context.Context, authRequestID, password string) (*domain.ObjectDetails, error) {
	wm, err := c.authRequestWriteModel(ctx, authRequestID)
	if err != nil {
		return nil, err
	}
	if wm.State == domain.AuthRequestStateUnspecified {
		return nil, apperror.ThrowNotFound(nil, "COMMAND-Auth30", "auth request not found")
	}
	if wm.State != domain.AuthRequestStateUserSelected {
		return nil, apperror.ThrowPreconditionFailed(nil, "COMMAND-Auth31", "auth request does not await a password check")
	}

	user, err := c.userWriteModelByID(ctx, wm.UserID, "")
	if err != nil {
		return nil, err
	}
	if !user.State.Exists() || user.PasswordHash == "" {
		return nil, apperror.ThrowPreconditionFailed(nil, "COMMAND-Auth32", "user has no password")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, AuthRequestAggregateType)
	var event eventstore.Command
	if err := c.hasher.Verify(user.PasswordHash, password); err != nil {
		event = NewAuthRequestPasswordCheckFailedEvent(ctx, aggregate)
	} else {
		event = NewAuthRequestPasswordCheckedEvent(ctx, aggregate)
	}
	if err := c.pushAppendAndReduce(ctx, wm, event); err != nil {
		return nil, err
	}
	return writeModelToObjectDetails(&wm.WriteModel), nil
}

// CheckTOTP verifies a 6-digit code against the user's provisioned seed.
func (c *Commands) CheckTOTP(ctx context.Context, authRequestID, code string) (*domain.ObjectDetails, error) {
	if c.encrypter == nil {
		return nil, apperror.ThrowPreconditionFailed(nil, "COMMAND-Auth33", "secret encryption is not configured")
	}

	wm, err := c.authRequestWriteModel(ctx, authRequestID)
	if err != nil {
		return nil, err
	}
	if wm.State == domain.AuthRequestStateUnspecified {
		return nil, apperror.ThrowNotFound(nil, "COMMAND-Auth34", "auth request not found")
	}
	if wm.State != domain.AuthRequestStatePasswordChecked {
		return nil, apperror.ThrowPreconditionFailed(nil, "COMMAND-Auth35", "auth request does not await a second factor")
	}

	user, err := c.userWriteModelByID(ctx, wm.UserID, "")
	if err != nil {
		return nil, err
	}
	if user.TOTPState != domain.OTPStateReady {
		return nil, apperror.ThrowPreconditionFailed(nil, "COMMAND-Auth36", "user has no totp configured")
	}

	secret, err := c.encrypter.DecryptString(ctx, user.TOTPSecret)
	if err != nil {
		return nil, apperror.ThrowInternal(err, "COMMAND-Auth37", "decrypting totp secret")
	}
	ok, err := crypto.VerifyTOTP(secret, code, eventstore.Now())
	if err != nil {
		return nil, apperror.ThrowInternal(err, "COMMAND-Auth38", "verifying totp code")
	}
	if !ok {
		return nil, apperror.ThrowInvalidArgument(nil, "COMMAND-Auth39", "totp code is invalid")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, AuthRequestAggregateType)
	if err := c.pushAppendAndReduce(ctx, wm, NewAuthRequestTOTPCheckedEvent(ctx, aggregate)); err != nil {
		return nil, err
	}
	return writeModelToObjectDetails(&wm.WriteModel), nil
}

// SucceedAuthRequest finishes an authenticated flow. For the code
// response type the returned auth code is minted in the same push as the
// success event.
func (c *Commands) SucceedAuthRequest(ctx context.Context, authRequestID string) (string, *domain.ObjectDetails, error) {
	wm, err := c.authRequestWriteModel(ctx, authRequestID)
	if err != nil {
		return "", nil, err
	}
	if wm.State == domain.AuthRequestStateUnspecified {
		return "", nil, apperror.ThrowNotFound(nil, "COMMAND-Auth40", "auth request not found")
	}
	if wm.State.Terminal() {
		return "", nil, apperror.ThrowPreconditionFailed(nil, "COMMAND-Auth41", "auth request already finished")
	}
	if wm.State != domain.AuthRequestStatePasswordChecked && wm.State != domain.AuthRequestStateMFAChecked {
		return "", nil, apperror.ThrowPreconditionFailed(nil, "COMMAND-Auth42", "auth request is not authenticated")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, AuthRequestAggregateType)
	commands := make([]eventstore.Command, 0, 2)
	var authCode string
	if wm.ResponseType == domain.OIDCResponseTypeCode {
		authCode = uuid.NewString()
		commands = append(commands, NewAuthRequestCodeAddedEvent(ctx, aggregate, authCode))
	}
	commands = append(commands, NewAuthRequestSucceededEvent(ctx, aggregate))
	if err := c.pushAppendAndReduce(ctx, wm, commands...); err != nil {
		return "", nil, err
	}
	return authCode, writeModelToObjectDetails(&wm.WriteModel), nil
}

// FailAuthRequest terminates the flow unsuccessfully.
func (c *Commands) FailAuthRequest(ctx context.Context, authRequestID, reason string) (*domain.ObjectDetails, error) {
	wm, err := c.authRequestWriteModel(ctx, authRequestID)
	if err != nil {
		return nil, err
	}
	if wm.State == domain.AuthRequestStateUnspecified {
		return nil, apperror.ThrowNotFound(nil, "COMMAND-Auth50", "auth request not found")
	}
	if wm.State.Terminal() {
		return nil, apperror.ThrowPreconditionFailed(nil, "COMMAND-Auth51", "auth request already finished")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, AuthRequestAggregateType)
	if err := c.pushAppendAndReduce(ctx, wm, NewAuthRequestFailedEvent(ctx, aggregate, reason)); err != nil {
		return nil, err
	}
	return writeModelToObjectDetails(&wm.WriteModel), nil
}
