package command_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identra/identra/pkg/apperror"
)

func TestSessionLifecycle(t *testing.T) {
	c := newTestCommands(t)
	ctx := adminCtx("inst-1")

	orgID, _, err := c.AddOrg(ctx, "Acme")
	require.NoError(t, err)
	userID, _, err := c.AddHumanUser(ctx, orgID, "john", "John", "Doe", "john@example.com", "longenough")
	require.NoError(t, err)

	sessionID, token, _, err := c.CreateSession(ctx, userID)
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)
	require.NotEmpty(t, token)

	// Tokens are unique per session.
	_, otherToken, _, err := c.CreateSession(ctx, userID)
	require.NoError(t, err)
	assert.NotEqual(t, token, otherToken)

	_, err = c.TerminateSession(ctx, sessionID)
	require.NoError(t, err)
	_, err = c.TerminateSession(ctx, sessionID)
	require.Error(t, err)
	assert.True(t, apperror.IsPreconditionFailed(err))
}

func TestCreateSession_Preconditions(t *testing.T) {
	c := newTestCommands(t)
	ctx := adminCtx("inst-1")

	_, _, _, err := c.CreateSession(ctx, "")
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidArgument(err))

	orgID, _, err := c.AddOrg(ctx, "Acme")
	require.NoError(t, err)
	userID, _, err := c.AddHumanUser(ctx, orgID, "john", "John", "Doe", "john@example.com", "longenough")
	require.NoError(t, err)
	_, err = c.DeactivateUser(ctx, orgID, userID)
	require.NoError(t, err)

	_, _, _, err = c.CreateSession(ctx, userID)
	require.Error(t, err)
	assert.True(t, apperror.IsPreconditionFailed(err))

	_, err = c.TerminateSession(ctx, "missing")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}
