package command_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identra/identra/pkg/apperror"
	"github.com/identra/identra/pkg/command"
)

func setupRequest() *command.SetupRequest {
	return &command.SetupRequest{
		InstanceName:   "identra",
		OrgName:        "Acme",
		AdminUsername:  "admin",
		AdminFirstName: "Ada",
		AdminLastName:  "Admin",
		AdminEmail:     "admin@example.com",
		AdminPassword:  "longenough",
	}
}

func TestSetupInstance(t *testing.T) {
	c := newTestCommands(t)

	result, err := c.SetupInstance(context.Background(), setupRequest())
	require.NoError(t, err)
	require.NotEmpty(t, result.InstanceID)
	require.NotEmpty(t, result.OrgID)
	require.NotEmpty(t, result.AdminUserID)

	ctx := adminCtx(result.InstanceID)

	// The default org exists and is usable.
	_, err = c.DeactivateOrg(ctx, result.OrgID)
	require.NoError(t, err)

	// The admin's username and the org name are claimed.
	_, _, err = c.AddHumanUser(ctx, result.OrgID, "admin", "A", "B", "second@example.com", "")
	require.Error(t, err)
	assert.True(t, apperror.IsUniqueConstraintViolation(err))
	_, _, err = c.AddOrg(ctx, "Acme")
	require.Error(t, err)
	assert.True(t, apperror.IsUniqueConstraintViolation(err))
}

func TestSetupInstance_Validation(t *testing.T) {
	c := newTestCommands(t)

	req := setupRequest()
	req.AdminEmail = "nope"
	_, err := c.SetupInstance(context.Background(), req)
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidArgument(err))

	req = setupRequest()
	req.AdminPassword = "short"
	_, err = c.SetupInstance(context.Background(), req)
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidArgument(err))

	req = setupRequest()
	req.OrgName = ""
	_, err = c.SetupInstance(context.Background(), req)
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidArgument(err))
}

func TestSetupInstance_IsAtomic(t *testing.T) {
	c := newTestCommands(t)

	first, err := c.SetupInstance(context.Background(), setupRequest())
	require.NoError(t, err)

	// Two instances never share state: the same seed works again.
	second, err := c.SetupInstance(context.Background(), setupRequest())
	require.NoError(t, err)
	assert.NotEqual(t, first.InstanceID, second.InstanceID)
}

func TestRemoveInstance(t *testing.T) {
	c := newTestCommands(t)

	result, err := c.SetupInstance(context.Background(), setupRequest())
	require.NoError(t, err)

	ctx := adminCtx(result.InstanceID)
	_, err = c.RemoveInstance(ctx, result.InstanceID)
	require.NoError(t, err)

	_, err = c.RemoveInstance(ctx, result.InstanceID)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))

	_, err = c.RemoveInstance(ctx, "missing")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}
