package command_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identra/identra/pkg/apperror"
)

func TestOrgLifecycle(t *testing.T) {
	c := newTestCommands(t)
	ctx := adminCtx("inst-1")

	orgID, details, err := c.AddOrg(ctx, "Acme")
	require.NoError(t, err)
	require.NotEmpty(t, orgID)
	assert.Equal(t, uint64(1), details.Sequence)
	assert.Equal(t, orgID, details.ResourceOwner)

	details, err = c.DeactivateOrg(ctx, orgID)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), details.Sequence)

	// Deactivating an already inactive org fails its precondition.
	_, err = c.DeactivateOrg(ctx, orgID)
	require.Error(t, err)
	assert.True(t, apperror.IsPreconditionFailed(err))
	assert.Equal(t, "COMMAND-Org31", apperror.Code(err))

	details, err = c.ReactivateOrg(ctx, orgID)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), details.Sequence)
}

func TestAddOrg_Validation(t *testing.T) {
	c := newTestCommands(t)

	_, _, err := c.AddOrg(adminCtx("inst-1"), "   ")
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidArgument(err))
}

func TestAddOrg_NameTaken(t *testing.T) {
	c := newTestCommands(t)
	ctx := adminCtx("inst-1")

	_, _, err := c.AddOrg(ctx, "Acme")
	require.NoError(t, err)

	_, _, err = c.AddOrg(ctx, "Acme")
	require.Error(t, err)
	assert.True(t, apperror.IsUniqueConstraintViolation(err))

	// Removing the org releases the name.
	orgID, _, err := c.AddOrg(ctx, "Umbrella")
	require.NoError(t, err)
	_, err = c.RemoveOrg(ctx, orgID)
	require.NoError(t, err)
	_, _, err = c.AddOrg(ctx, "Umbrella")
	require.NoError(t, err)
}

func TestChangeOrg_SwapsNameConstraint(t *testing.T) {
	c := newTestCommands(t)
	ctx := adminCtx("inst-1")

	orgID, _, err := c.AddOrg(ctx, "Acme")
	require.NoError(t, err)

	_, err = c.ChangeOrg(ctx, orgID, "Acme Corp")
	require.NoError(t, err)

	// The old name is free again, the new one is taken.
	_, _, err = c.AddOrg(ctx, "Acme")
	require.NoError(t, err)
	_, _, err = c.AddOrg(ctx, "Acme Corp")
	require.Error(t, err)
	assert.True(t, apperror.IsUniqueConstraintViolation(err))

	// Unchanged name is rejected before anything is pushed.
	_, err = c.ChangeOrg(ctx, orgID, "Acme Corp")
	require.Error(t, err)
	assert.True(t, apperror.IsPreconditionFailed(err))
}

func TestOrgDomains(t *testing.T) {
	c := newTestCommands(t)
	ctx := adminCtx("inst-1")

	orgID, _, err := c.AddOrg(ctx, "Acme")
	require.NoError(t, err)

	_, err = c.AddOrgDomain(ctx, orgID, "acme.example.com")
	require.NoError(t, err)

	t.Run("invalid domain rejected", func(t *testing.T) {
		_, err := c.AddOrgDomain(ctx, orgID, "not a domain")
		require.Error(t, err)
		assert.True(t, apperror.IsInvalidArgument(err))
	})

	t.Run("duplicate domain rejected", func(t *testing.T) {
		_, err := c.AddOrgDomain(ctx, orgID, "acme.example.com")
		require.Error(t, err)
		assert.True(t, apperror.IsAlreadyExists(err))
	})

	t.Run("primary requires verification", func(t *testing.T) {
		_, err := c.SetPrimaryOrgDomain(ctx, orgID, "acme.example.com")
		require.Error(t, err)
		assert.True(t, apperror.IsPreconditionFailed(err))

		_, err = c.VerifyOrgDomain(ctx, orgID, "acme.example.com")
		require.NoError(t, err)
		_, err = c.SetPrimaryOrgDomain(ctx, orgID, "acme.example.com")
		require.NoError(t, err)
	})

	t.Run("primary domain cannot be removed", func(t *testing.T) {
		_, err := c.RemoveOrgDomain(ctx, orgID, "acme.example.com")
		require.Error(t, err)
		assert.True(t, apperror.IsPreconditionFailed(err))
	})

	t.Run("verified domain is claimed instance wide", func(t *testing.T) {
		otherOrg, _, err := c.AddOrg(ctx, "Umbrella")
		require.NoError(t, err)
		_, err = c.AddOrgDomain(ctx, otherOrg, "acme.example.com")
		require.NoError(t, err)
		_, err = c.VerifyOrgDomain(ctx, otherOrg, "acme.example.com")
		require.Error(t, err)
		assert.True(t, apperror.IsUniqueConstraintViolation(err))
	})
}
