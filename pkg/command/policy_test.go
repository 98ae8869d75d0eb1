package command_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identra/identra/pkg/apperror"
)

func TestLoginPolicy(t *testing.T) {
	c := newTestCommands(t)
	ctx := adminCtx("inst-1")

	orgID, _, err := c.AddOrg(ctx, "Acme")
	require.NoError(t, err)

	// Before an org policy exists, changing or removing it reports the
	// inherited default as not found.
	_, err = c.ChangeLoginPolicy(ctx, orgID, true, true)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
	_, err = c.RemoveLoginPolicy(ctx, orgID)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))

	_, err = c.AddLoginPolicy(ctx, orgID, true, false)
	require.NoError(t, err)
	_, err = c.AddLoginPolicy(ctx, orgID, true, false)
	require.Error(t, err)
	assert.True(t, apperror.IsAlreadyExists(err))

	_, err = c.ChangeLoginPolicy(ctx, orgID, true, false)
	require.Error(t, err)
	assert.True(t, apperror.IsPreconditionFailed(err))
	_, err = c.ChangeLoginPolicy(ctx, orgID, true, true)
	require.NoError(t, err)

	// Removal reverts to the default; the org can opt out again later.
	_, err = c.RemoveLoginPolicy(ctx, orgID)
	require.NoError(t, err)
	_, err = c.AddLoginPolicy(ctx, orgID, false, true)
	require.NoError(t, err)
}
