package command_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identra/identra/pkg/apperror"
	"github.com/identra/identra/pkg/command"
	"github.com/identra/identra/pkg/domain"
)

func newOIDCAppRequest() *command.OIDCAppRequest {
	return &command.OIDCAppRequest{
		Name:         "web-login",
		RedirectURIs: []string{"https://app.example.com/callback"},
		ResponseType: domain.OIDCResponseTypeCode,
		GrantTypes:   []domain.OIDCGrantType{domain.OIDCGrantTypeAuthorizationCode},
		AppType:      domain.OIDCAppTypeWeb,
		AuthMethod:   domain.OIDCAuthMethodTypeBasic,
	}
}

func TestProjectLifecycle(t *testing.T) {
	c := newTestCommands(t)
	ctx := adminCtx("inst-1")

	orgID, _, err := c.AddOrg(ctx, "Acme")
	require.NoError(t, err)

	projectID, details, err := c.AddProject(ctx, orgID, "crm")
	require.NoError(t, err)
	require.NotEmpty(t, projectID)
	assert.Equal(t, orgID, details.ResourceOwner)

	_, err = c.DeactivateProject(ctx, orgID, projectID)
	require.NoError(t, err)
	_, err = c.DeactivateProject(ctx, orgID, projectID)
	require.Error(t, err)
	assert.True(t, apperror.IsPreconditionFailed(err))

	_, err = c.ReactivateProject(ctx, orgID, projectID)
	require.NoError(t, err)

	_, err = c.RemoveProject(ctx, orgID, projectID)
	require.NoError(t, err)
	_, err = c.DeactivateProject(ctx, orgID, projectID)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestAddProjectRole(t *testing.T) {
	c := newTestCommands(t)
	ctx := adminCtx("inst-1")

	orgID, _, err := c.AddOrg(ctx, "Acme")
	require.NoError(t, err)
	projectID, _, err := c.AddProject(ctx, orgID, "crm")
	require.NoError(t, err)

	_, err = c.AddProjectRole(ctx, orgID, projectID, "admin", "Administrator")
	require.NoError(t, err)

	// Role keys are unique per project.
	_, err = c.AddProjectRole(ctx, orgID, projectID, "admin", "Administrator")
	require.Error(t, err)
	assert.True(t, apperror.IsUniqueConstraintViolation(err))
	assert.Equal(t, "COMMAND-Role11", apperror.Code(err))

	// The same key is free on another project.
	otherProject, _, err := c.AddProject(ctx, orgID, "erp")
	require.NoError(t, err)
	_, err = c.AddProjectRole(ctx, orgID, otherProject, "admin", "Administrator")
	require.NoError(t, err)
}

func TestAddProjectGrant(t *testing.T) {
	c := newTestCommands(t)
	ctx := adminCtx("inst-1")

	orgID, _, err := c.AddOrg(ctx, "Acme")
	require.NoError(t, err)
	grantedOrgID, _, err := c.AddOrg(ctx, "Umbrella")
	require.NoError(t, err)
	projectID, _, err := c.AddProject(ctx, orgID, "crm")
	require.NoError(t, err)
	_, err = c.AddProjectRole(ctx, orgID, projectID, "reader", "")
	require.NoError(t, err)

	_, _, err = c.AddProjectGrant(ctx, orgID, projectID, grantedOrgID, []string{"writer"})
	require.Error(t, err)
	assert.True(t, apperror.IsPreconditionFailed(err))

	grantID, _, err := c.AddProjectGrant(ctx, orgID, projectID, grantedOrgID, []string{"reader"})
	require.NoError(t, err)
	require.NotEmpty(t, grantID)

	// One grant per granted org.
	_, _, err = c.AddProjectGrant(ctx, orgID, projectID, grantedOrgID, []string{"reader"})
	require.Error(t, err)
	assert.True(t, apperror.IsUniqueConstraintViolation(err))
}

func TestAddOIDCApp(t *testing.T) {
	c := newTestCommands(t)
	ctx := adminCtx("inst-1")

	orgID, _, err := c.AddOrg(ctx, "Acme")
	require.NoError(t, err)
	projectID, _, err := c.AddProject(ctx, orgID, "crm")
	require.NoError(t, err)

	t.Run("empty redirect uris rejected", func(t *testing.T) {
		req := newOIDCAppRequest()
		req.RedirectURIs = nil
		_, err := c.AddOIDCApp(ctx, orgID, projectID, req)
		require.Error(t, err)
		assert.True(t, apperror.IsInvalidArgument(err))
		assert.Equal(t, "COMMAND-App10", apperror.Code(err))
	})

	t.Run("invalid redirect uri rejected", func(t *testing.T) {
		req := newOIDCAppRequest()
		req.RedirectURIs = []string{"not a url"}
		_, err := c.AddOIDCApp(ctx, orgID, projectID, req)
		require.Error(t, err)
		assert.True(t, apperror.IsInvalidArgument(err))
	})

	t.Run("inactive project rejected", func(t *testing.T) {
		_, err := c.DeactivateProject(ctx, orgID, projectID)
		require.NoError(t, err)

		_, err = c.AddOIDCApp(ctx, orgID, projectID, newOIDCAppRequest())
		require.Error(t, err)
		assert.True(t, apperror.IsNotFound(err))
		assert.Equal(t, "COMMAND-App11", apperror.Code(err))

		_, err = c.ReactivateProject(ctx, orgID, projectID)
		require.NoError(t, err)
	})

	t.Run("confidential client gets a one-time secret", func(t *testing.T) {
		created, err := c.AddOIDCApp(ctx, orgID, projectID, newOIDCAppRequest())
		require.NoError(t, err)
		require.NotEmpty(t, created.AppID)
		require.NotEmpty(t, created.ClientID)
		require.NotEmpty(t, created.ClientSecret)
	})

	t.Run("public client gets no secret", func(t *testing.T) {
		req := newOIDCAppRequest()
		req.AuthMethod = domain.OIDCAuthMethodTypeNone
		created, err := c.AddOIDCApp(ctx, orgID, projectID, req)
		require.NoError(t, err)
		assert.Empty(t, created.ClientSecret)
	})
}

func TestAppLifecycle(t *testing.T) {
	c := newTestCommands(t)
	ctx := adminCtx("inst-1")

	orgID, _, err := c.AddOrg(ctx, "Acme")
	require.NoError(t, err)
	projectID, _, err := c.AddProject(ctx, orgID, "crm")
	require.NoError(t, err)
	created, err := c.AddOIDCApp(ctx, orgID, projectID, newOIDCAppRequest())
	require.NoError(t, err)

	_, err = c.DeactivateApp(ctx, orgID, projectID, created.AppID)
	require.NoError(t, err)
	_, err = c.DeactivateApp(ctx, orgID, projectID, created.AppID)
	require.Error(t, err)
	assert.True(t, apperror.IsPreconditionFailed(err))

	_, err = c.RemoveApp(ctx, orgID, projectID, created.AppID)
	require.NoError(t, err)
	_, err = c.RemoveApp(ctx, orgID, projectID, created.AppID)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}
