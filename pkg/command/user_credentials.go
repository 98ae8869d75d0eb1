package command

import (
	"context"
	"time"

	"github.com/identra/identra/pkg/apperror"
	"github.com/identra/identra/pkg/authz"
	"github.com/identra/identra/pkg/crypto"
	"github.com/identra/identra/pkg/domain"
	"github.com/identra/identra/pkg/eventstore"
)

// totpIssuer is the issuer rendered into provisioning URIs.
const totpIssuer = "Identra"

// AddMachineKey registers an authentication key on a machine user. The
// expiration must be strictly in the future.
func (c *Commands) AddMachineKey(ctx context.Context, orgID, userID string, expirationDate time.Time) (string, *domain.ObjectDetails, error) {
	if !expirationDate.After(eventstore.Now()) {
		return "", nil, apperror.ThrowInvalidArgument(nil, "COMMAND-Key10", "expiration date must be in the future")
	}
	if err := c.checker.Check(ctx, authz.PermissionUserCredWrite, orgID); err != nil {
		return "", nil, err
	}

	keyID, err := c.idGen.Next()
	if err != nil {
		return "", nil, apperror.ThrowInternal(err, "COMMAND-Key11", "generating key id")
	}

	wm, err := c.machineKeyWriteModel(ctx, userID, orgID, keyID)
	if err != nil {
		return "", nil, err
	}
	if !wm.UserState.Exists() {
		return "", nil, apperror.ThrowNotFound(nil, "COMMAND-Key12", "user not found")
	}
	if wm.UserType != domain.UserTypeMachine {
		return "", nil, apperror.ThrowPreconditionFailed(nil, "COMMAND-Key13", "user is not a machine user")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, UserAggregateType)
	if err := c.pushAppendAndReduce(ctx, wm, NewMachineKeyAddedEvent(ctx, aggregate, keyID, expirationDate)); err != nil {
		return "", nil, err
	}
	return keyID, writeModelToObjectDetails(&wm.WriteModel), nil
}

func (c *Commands) RemoveMachineKey(ctx context.Context, orgID, userID, keyID string) (*domain.ObjectDetails, error) {
	if err := c.checker.Check(ctx, authz.PermissionUserCredWrite, orgID); err != nil {
		return nil, err
	}

	wm, err := c.machineKeyWriteModel(ctx, userID, orgID, keyID)
	if err != nil {
		return nil, err
	}
	if wm.State != domain.MachineKeyStateActive {
		return nil, apperror.ThrowNotFound(nil, "COMMAND-Key20", "machine key not found")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, UserAggregateType)
	if err := c.pushAppendAndReduce(ctx, wm, NewMachineKeyRemovedEvent(ctx, aggregate, keyID)); err != nil {
		return nil, err
	}
	return writeModelToObjectDetails(&wm.WriteModel), nil
}

// AddHumanWebAuthn begins a WebAuthn registration: the returned challenge
// must be signed by the authenticator and passed to VerifyHumanWebAuthn.
func (c *Commands) AddHumanWebAuthn(ctx context.Context, orgID, userID string) (webAuthnID, challenge string, details *domain.ObjectDetails, err error) {
	if err := c.checker.Check(ctx, authz.PermissionUserCredWrite, orgID); err != nil {
		return "", "", nil, err
	}

	webAuthnID, err = c.idGen.Next()
	if err != nil {
		return "", "", nil, apperror.ThrowInternal(err, "COMMAND-Wa10", "generating token id")
	}
	challenge, err = crypto.GenerateSecret(32)
	if err != nil {
		return "", "", nil, apperror.ThrowInternal(err, "COMMAND-Wa11", "generating challenge")
	}

	wm, err := c.webAuthnWriteModel(ctx, userID, orgID, webAuthnID)
	if err != nil {
		return "", "", nil, err
	}
	if !wm.UserState.Exists() {
		return "", "", nil, apperror.ThrowNotFound(nil, "COMMAND-Wa12", "user not found")
	}
	if wm.UserType != domain.UserTypeHuman {
		return "", "", nil, apperror.ThrowPreconditionFailed(nil, "COMMAND-Wa13", "user is not a human user")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, UserAggregateType)
	if err := c.pushAppendAndReduce(ctx, wm, NewWebAuthnAddedEvent(ctx, aggregate, webAuthnID, challenge)); err != nil {
		return "", "", nil, err
	}
	return webAuthnID, challenge, writeModelToObjectDetails(&wm.WriteModel), nil
}

// VerifyHumanWebAuthn completes a registration with the authenticator's
// credential. The token must still await verification.
func (c *Commands) VerifyHumanWebAuthn(ctx context.Context, orgID, userID, webAuthnID, keyID string, publicKey []byte) (*domain.ObjectDetails, error) {
	if keyID == "" || len(publicKey) == 0 {
		return nil, apperror.ThrowInvalidArgument(nil, "COMMAND-Wa20", "credential is incomplete")
	}
	if err := c.checker.Check(ctx, authz.PermissionUserCredWrite, orgID); err != nil {
		return nil, err
	}

	wm, err := c.webAuthnWriteModel(ctx, userID, orgID, webAuthnID)
	if err != nil {
		return nil, err
	}
	if wm.State == domain.WebAuthnStateUnspecified || wm.State == domain.WebAuthnStateRemoved {
		return nil, apperror.ThrowNotFound(nil, "COMMAND-Wa21", "webauthn token not found")
	}
	if wm.State != domain.WebAuthnStateNotReady {
		return nil, apperror.ThrowPreconditionFailed(nil, "COMMAND-Wa22", "webauthn token is already verified")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, UserAggregateType)
	if err := c.pushAppendAndReduce(ctx, wm, NewWebAuthnVerifiedEvent(ctx, aggregate, webAuthnID, keyID, publicKey)); err != nil {
		return nil, err
	}
	return writeModelToObjectDetails(&wm.WriteModel), nil
}

func (c *Commands) RemoveHumanWebAuthn(ctx context.Context, orgID, userID, webAuthnID string) (*domain.ObjectDetails, error) {
	if err := c.checker.Check(ctx, authz.PermissionUserCredWrite, orgID); err != nil {
		return nil, err
	}

	wm, err := c.webAuthnWriteModel(ctx, userID, orgID, webAuthnID)
	if err != nil {
		return nil, err
	}
	if wm.State == domain.WebAuthnStateUnspecified || wm.State == domain.WebAuthnStateRemoved {
		return nil, apperror.ThrowNotFound(nil, "COMMAND-Wa30", "webauthn token not found")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, UserAggregateType)
	if err := c.pushAppendAndReduce(ctx, wm, NewWebAuthnRemovedEvent(ctx, aggregate, webAuthnID)); err != nil {
		return nil, err
	}
	return writeModelToObjectDetails(&wm.WriteModel), nil
}

// AddHumanTOTP provisions a TOTP authenticator. The provisioning URI is
// returned exactly once; only the keeper-encrypted seed is persisted.
func (c *Commands) AddHumanTOTP(ctx context.Context, orgID, userID string) (uri string, details *domain.ObjectDetails, err error) {
	if c.encrypter == nil {
		return "", nil, apperror.ThrowPreconditionFailed(nil, "COMMAND-TOTP10", "secret encryption is not configured")
	}
	if err := c.checker.Check(ctx, authz.PermissionUserCredWrite, orgID); err != nil {
		return "", nil, err
	}

	wm, err := c.userWriteModelByID(ctx, userID, orgID)
	if err != nil {
		return "", nil, err
	}
	if !wm.State.Exists() {
		return "", nil, apperror.ThrowNotFound(nil, "COMMAND-TOTP11", "user not found")
	}
	if wm.UserType != domain.UserTypeHuman {
		return "", nil, apperror.ThrowPreconditionFailed(nil, "COMMAND-TOTP12", "user is not a human user")
	}
	if wm.TOTPState == domain.OTPStateReady {
		return "", nil, apperror.ThrowAlreadyExists(nil, "COMMAND-TOTP13", "totp already configured")
	}

	secret, err := crypto.GenerateTOTPSecret()
	if err != nil {
		return "", nil, apperror.ThrowInternal(err, "COMMAND-TOTP14", "generating totp secret")
	}
	encrypted, err := c.encrypter.EncryptString(ctx, secret)
	if err != nil {
		return "", nil, apperror.ThrowInternal(err, "COMMAND-TOTP15", "encrypting totp secret")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, UserAggregateType)
	if err := c.pushAppendAndReduce(ctx, wm, NewTOTPAddedEvent(ctx, aggregate, encrypted)); err != nil {
		return "", nil, err
	}
	return crypto.TOTPURI(totpIssuer, wm.Username, secret), writeModelToObjectDetails(&wm.WriteModel), nil
}
