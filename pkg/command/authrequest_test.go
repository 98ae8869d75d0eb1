package command_test

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identra/identra/pkg/apperror"
	"github.com/identra/identra/pkg/crypto"
	"github.com/identra/identra/pkg/domain"
)

func TestAuthRequestFlow(t *testing.T) {
	c := newTestCommands(t)
	ctx := adminCtx("inst-1")

	orgID, _, err := c.AddOrg(ctx, "Acme")
	require.NoError(t, err)
	userID, _, err := c.AddHumanUser(ctx, orgID, "john", "John", "Doe", "john@example.com", "longenough")
	require.NoError(t, err)

	authRequestID, _, err := c.AddAuthRequest(ctx, "client-1", "https://app.example.com/callback", domain.OIDCResponseTypeCode)
	require.NoError(t, err)

	_, err = c.SelectUser(ctx, authRequestID, userID)
	require.NoError(t, err)

	// Finishing before the password check fails its precondition.
	_, _, err = c.SucceedAuthRequest(ctx, authRequestID)
	require.Error(t, err)
	assert.True(t, apperror.IsPreconditionFailed(err))

	// A wrong password is recorded but does not advance the flow, so the
	// next check still runs against the user-selected state.
	_, err = c.CheckPassword(ctx, authRequestID, "short")
	require.NoError(t, err)

	_, err = c.CheckPassword(ctx, authRequestID, "longenough")
	require.NoError(t, err)

	authCode, _, err := c.SucceedAuthRequest(ctx, authRequestID)
	require.NoError(t, err)
	require.NotEmpty(t, authCode)

	// The flow is terminal now.
	_, _, err = c.SucceedAuthRequest(ctx, authRequestID)
	require.Error(t, err)
	assert.True(t, apperror.IsPreconditionFailed(err))
	assert.Equal(t, "COMMAND-Auth41", apperror.Code(err))
}

func TestAddAuthRequest_Validation(t *testing.T) {
	c := newTestCommands(t)
	ctx := adminCtx("inst-1")

	_, _, err := c.AddAuthRequest(ctx, "", "https://app.example.com/callback", domain.OIDCResponseTypeCode)
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidArgument(err))

	_, _, err = c.AddAuthRequest(ctx, "client-1", "not a url", domain.OIDCResponseTypeCode)
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidArgument(err))
}

func TestSelectUser_Preconditions(t *testing.T) {
	c := newTestCommands(t)
	ctx := adminCtx("inst-1")

	orgID, _, err := c.AddOrg(ctx, "Acme")
	require.NoError(t, err)
	userID, _, err := c.AddHumanUser(ctx, orgID, "john", "John", "Doe", "john@example.com", "longenough")
	require.NoError(t, err)

	_, err = c.SelectUser(ctx, "missing", userID)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))

	authRequestID, _, err := c.AddAuthRequest(ctx, "client-1", "https://app.example.com/callback", domain.OIDCResponseTypeCode)
	require.NoError(t, err)

	_, err = c.SelectUser(ctx, authRequestID, "missing-user")
	require.Error(t, err)
	assert.True(t, apperror.IsPreconditionFailed(err))

	_, err = c.SelectUser(ctx, authRequestID, userID)
	require.NoError(t, err)

	// User selection happens exactly once.
	_, err = c.SelectUser(ctx, authRequestID, userID)
	require.Error(t, err)
	assert.True(t, apperror.IsPreconditionFailed(err))
}

func TestFailAuthRequest(t *testing.T) {
	c := newTestCommands(t)
	ctx := adminCtx("inst-1")

	authRequestID, _, err := c.AddAuthRequest(ctx, "client-1", "https://app.example.com/callback", domain.OIDCResponseTypeIDToken)
	require.NoError(t, err)

	_, err = c.FailAuthRequest(ctx, authRequestID, "user cancelled")
	require.NoError(t, err)

	_, err = c.FailAuthRequest(ctx, authRequestID, "again")
	require.Error(t, err)
	assert.True(t, apperror.IsPreconditionFailed(err))
}

func TestSucceedAuthRequest_ImplicitFlowHasNoCode(t *testing.T) {
	c := newTestCommands(t)
	ctx := adminCtx("inst-1")

	orgID, _, err := c.AddOrg(ctx, "Acme")
	require.NoError(t, err)
	userID, _, err := c.AddHumanUser(ctx, orgID, "john", "John", "Doe", "john@example.com", "longenough")
	require.NoError(t, err)

	authRequestID, _, err := c.AddAuthRequest(ctx, "client-1", "https://app.example.com/callback", domain.OIDCResponseTypeIDToken)
	require.NoError(t, err)
	_, err = c.SelectUser(ctx, authRequestID, userID)
	require.NoError(t, err)
	_, err = c.CheckPassword(ctx, authRequestID, "longenough")
	require.NoError(t, err)

	authCode, _, err := c.SucceedAuthRequest(ctx, authRequestID)
	require.NoError(t, err)
	assert.Empty(t, authCode)
}

func TestCheckTOTP(t *testing.T) {
	c := newTestCommands(t)
	ctx := adminCtx("inst-1")

	orgID, _, err := c.AddOrg(ctx, "Acme")
	require.NoError(t, err)
	userID, _, err := c.AddHumanUser(ctx, orgID, "john", "John", "Doe", "john@example.com", "longenough")
	require.NoError(t, err)

	uri, _, err := c.AddHumanTOTP(ctx, orgID, userID)
	require.NoError(t, err)
	parsed, err := url.Parse(uri)
	require.NoError(t, err)
	secret := parsed.Query().Get("secret")
	require.NotEmpty(t, secret)

	authRequestID, _, err := c.AddAuthRequest(ctx, "client-1", "https://app.example.com/callback", domain.OIDCResponseTypeCode)
	require.NoError(t, err)
	_, err = c.SelectUser(ctx, authRequestID, userID)
	require.NoError(t, err)
	_, err = c.CheckPassword(ctx, authRequestID, "longenough")
	require.NoError(t, err)

	_, err = c.CheckTOTP(ctx, authRequestID, "000000")
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidArgument(err))

	code, err := crypto.TOTPCode(secret, time.Now())
	require.NoError(t, err)
	_, err = c.CheckTOTP(ctx, authRequestID, code)
	require.NoError(t, err)

	authCode, _, err := c.SucceedAuthRequest(ctx, authRequestID)
	require.NoError(t, err)
	require.NotEmpty(t, authCode)
}
