package command

import (
	"context"
	"slices"
	"strings"

	"github.com/asaskevich/govalidator"

	"github.com/identra/identra/pkg/apperror"
	"github.com/identra/identra/pkg/authz"
	"github.com/identra/identra/pkg/crypto"
	"github.com/identra/identra/pkg/domain"
	"github.com/identra/identra/pkg/eventstore"
)

// AddProject creates a project owned by the given org.
func (c *Commands) AddProject(ctx context.Context, orgID, name string) (string, *domain.ObjectDetails, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil, apperror.ThrowInvalidArgument(nil, "COMMAND-Proj10", "project name must not be empty")
	}
	if orgID == "" {
		return "", nil, apperror.ThrowInvalidArgument(nil, "COMMAND-Proj11", "org id must not be empty")
	}
	if err := c.checker.Check(ctx, authz.PermissionProjectWrite, orgID); err != nil {
		return "", nil, err
	}

	projectID, err := c.idGen.Next()
	if err != nil {
		return "", nil, apperror.ThrowInternal(err, "COMMAND-Proj12", "generating project id")
	}

	wm := NewProjectWriteModel(projectID, orgID)
	aggregate := eventstore.NewAggregate(ctx, projectID, ProjectAggregateType, orgID)
	if err := c.pushAppendAndReduce(ctx, wm, NewProjectAddedEvent(ctx, aggregate, name)); err != nil {
		return "", nil, err
	}
	return projectID, writeModelToObjectDetails(&wm.WriteModel), nil
}

func (c *Commands) DeactivateProject(ctx context.Context, orgID, projectID string) (*domain.ObjectDetails, error) {
	if err := c.checker.Check(ctx, authz.PermissionProjectWrite, orgID); err != nil {
		return nil, err
	}

	wm, err := c.projectWriteModelByID(ctx, projectID, orgID)
	if err != nil {
		return nil, err
	}
	if !wm.State.Exists() {
		return nil, apperror.ThrowNotFound(nil, "COMMAND-Proj20", "project not found")
	}
	if wm.State != domain.ProjectStateActive {
		return nil, apperror.ThrowPreconditionFailed(nil, "COMMAND-Proj21", "project is not active")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, ProjectAggregateType)
	if err := c.pushAppendAndReduce(ctx, wm, NewProjectDeactivatedEvent(ctx, aggregate)); err != nil {
		return nil, err
	}
	return writeModelToObjectDetails(&wm.WriteModel), nil
}

func (c *Commands) ReactivateProject(ctx context.Context, orgID, projectID string) (*domain.ObjectDetails, error) {
	if err := c.checker.Check(ctx, authz.PermissionProjectWrite, orgID); err != nil {
		return nil, err
	}

	wm, err := c.projectWriteModelByID(ctx, projectID, orgID)
	if err != nil {
		return nil, err
	}
	if !wm.State.Exists() {
		return nil, apperror.ThrowNotFound(nil, "COMMAND-Proj30", "project not found")
	}
	if wm.State != domain.ProjectStateInactive {
		return nil, apperror.ThrowPreconditionFailed(nil, "COMMAND-Proj31", "project is not inactive")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, ProjectAggregateType)
	if err := c.pushAppendAndReduce(ctx, wm, NewProjectReactivatedEvent(ctx, aggregate)); err != nil {
		return nil, err
	}
	return writeModelToObjectDetails(&wm.WriteModel), nil
}

// RemoveProject removes the project and releases its role and grant
// constraints.
func (c *Commands) RemoveProject(ctx context.Context, orgID, projectID string) (*domain.ObjectDetails, error) {
	if err := c.checker.Check(ctx, authz.PermissionProjectDelete, orgID); err != nil {
		return nil, err
	}

	wm, err := c.projectWriteModelByID(ctx, projectID, orgID)
	if err != nil {
		return nil, err
	}
	if !wm.State.Exists() {
		return nil, apperror.ThrowNotFound(nil, "COMMAND-Proj40", "project not found")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, ProjectAggregateType)
	if err := c.pushAppendAndReduce(ctx, wm, NewProjectRemovedEvent(ctx, aggregate, wm.RoleKeys, wm.GrantedOrgs)); err != nil {
		return nil, err
	}
	return writeModelToObjectDetails(&wm.WriteModel), nil
}

// AddProjectRole registers a role key, unique within the project.
func (c *Commands) AddProjectRole(ctx context.Context, orgID, projectID, key, displayName string) (*domain.ObjectDetails, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, apperror.ThrowInvalidArgument(nil, "COMMAND-Role10", "role key must not be empty")
	}
	if err := c.checker.Check(ctx, authz.PermissionProjectWrite, orgID); err != nil {
		return nil, err
	}

	wm, err := c.projectWriteModelByID(ctx, projectID, orgID)
	if err != nil {
		return nil, err
	}
	if !wm.State.Exists() {
		return nil, apperror.ThrowNotFound(nil, "COMMAND-Role12", "project not found")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, ProjectAggregateType)
	if err := c.pushAppendAndReduce(ctx, wm, NewProjectRoleAddedEvent(ctx, aggregate, key, displayName)); err != nil {
		return nil, err
	}
	return writeModelToObjectDetails(&wm.WriteModel), nil
}

// AddProjectGrant shares the project's roles with another org. One grant
// per granted org.
func (c *Commands) AddProjectGrant(ctx context.Context, orgID, projectID, grantedOrgID string, roleKeys []string) (string, *domain.ObjectDetails, error) {
	if grantedOrgID == "" {
		return "", nil, apperror.ThrowInvalidArgument(nil, "COMMAND-Grant10", "granted org id must not be empty")
	}
	if err := c.checker.Check(ctx, authz.PermissionGrantWrite, orgID); err != nil {
		return "", nil, err
	}

	wm, err := c.projectWriteModelByID(ctx, projectID, orgID)
	if err != nil {
		return "", nil, err
	}
	if !wm.State.Exists() {
		return "", nil, apperror.ThrowNotFound(nil, "COMMAND-Grant12", "project not found")
	}
	for _, key := range roleKeys {
		if !slices.Contains(wm.RoleKeys, key) {
			return "", nil, apperror.ThrowPreconditionFailed(nil, "COMMAND-Grant13", "role key does not exist on project")
		}
	}

	grantID, err := c.idGen.Next()
	if err != nil {
		return "", nil, apperror.ThrowInternal(err, "COMMAND-Grant14", "generating grant id")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, ProjectAggregateType)
	if err := c.pushAppendAndReduce(ctx, wm, NewProjectGrantAddedEvent(ctx, aggregate, grantID, grantedOrgID, roleKeys)); err != nil {
		return "", nil, err
	}
	return grantID, writeModelToObjectDetails(&wm.WriteModel), nil
}

// OIDCAppRequest carries the caller-chosen OIDC configuration of a new
// application.
type OIDCAppRequest struct {
	Name         string
	RedirectURIs []string
	ResponseType domain.OIDCResponseType
	GrantTypes   []domain.OIDCGrantType
	AppType      domain.OIDCAppType
	AuthMethod   domain.OIDCAuthMethodType
}

// OIDCAppCreated is the one-time answer of AddOIDCApp. ClientSecret is
// empty for public clients and never readable again for confidential
// ones.
type OIDCAppCreated struct {
	AppID        string
	ClientID     string
	ClientSecret string
	Details      *domain.ObjectDetails
}

// AddOIDCApp creates an application and its OIDC configuration in one
// transaction. The project must be active.
func (c *Commands) AddOIDCApp(ctx context.Context, orgID, projectID string, req *OIDCAppRequest) (*OIDCAppCreated, error) {
	if len(req.RedirectURIs) == 0 {
		return nil, apperror.ThrowInvalidArgument(nil, "COMMAND-App10", "redirect uris must not be empty")
	}
	for _, uri := range req.RedirectURIs {
		if !govalidator.IsRequestURL(uri) {
			return nil, apperror.ThrowInvalidArgument(nil, "COMMAND-App12", "redirect uri is invalid")
		}
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperror.ThrowInvalidArgument(nil, "COMMAND-App13", "application name must not be empty")
	}
	if err := c.checker.Check(ctx, authz.PermissionAppWrite, orgID); err != nil {
		return nil, err
	}

	appID, err := c.idGen.Next()
	if err != nil {
		return nil, apperror.ThrowInternal(err, "COMMAND-App14", "generating app id")
	}

	wm, err := c.appWriteModel(ctx, projectID, orgID, appID)
	if err != nil {
		return nil, err
	}
	if wm.ProjectState != domain.ProjectStateActive {
		return nil, apperror.ThrowNotFound(nil, "COMMAND-App11", "project not found or not active")
	}

	clientID, err := c.idGen.Next()
	if err != nil {
		return nil, apperror.ThrowInternal(err, "COMMAND-App15", "generating client id")
	}

	var clientSecret, clientSecretHash string
	if req.AuthMethod == domain.OIDCAuthMethodTypeBasic || req.AuthMethod == domain.OIDCAuthMethodTypePost {
		clientSecret, err = crypto.GenerateSecret(32)
		if err != nil {
			return nil, apperror.ThrowInternal(err, "COMMAND-App16", "generating client secret")
		}
		clientSecretHash, err = c.hasher.Hash(clientSecret)
		if err != nil {
			return nil, apperror.ThrowInternal(err, "COMMAND-App17", "hashing client secret")
		}
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, ProjectAggregateType)
	config := &AppOIDCConfigAddedEvent{
		AppID:            appID,
		ClientID:         clientID,
		RedirectURIs:     req.RedirectURIs,
		ResponseType:     req.ResponseType,
		GrantTypes:       req.GrantTypes,
		AppType:          req.AppType,
		AuthMethod:       req.AuthMethod,
		ClientSecretHash: clientSecretHash,
	}
	err = c.pushAppendAndReduce(ctx, wm,
		NewAppAddedEvent(ctx, aggregate, appID, req.Name),
		NewAppOIDCConfigAddedEvent(ctx, aggregate, config),
	)
	if err != nil {
		return nil, err
	}
	return &OIDCAppCreated{
		AppID:        appID,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Details:      writeModelToObjectDetails(&wm.WriteModel),
	}, nil
}

func (c *Commands) DeactivateApp(ctx context.Context, orgID, projectID, appID string) (*domain.ObjectDetails, error) {
	if err := c.checker.Check(ctx, authz.PermissionAppWrite, orgID); err != nil {
		return nil, err
	}

	wm, err := c.appWriteModel(ctx, projectID, orgID, appID)
	if err != nil {
		return nil, err
	}
	if wm.State == domain.AppStateUnspecified || wm.State == domain.AppStateRemoved {
		return nil, apperror.ThrowNotFound(nil, "COMMAND-App20", "application not found")
	}
	if wm.State != domain.AppStateActive {
		return nil, apperror.ThrowPreconditionFailed(nil, "COMMAND-App21", "application is not active")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, ProjectAggregateType)
	if err := c.pushAppendAndReduce(ctx, wm, NewAppDeactivatedEvent(ctx, aggregate, appID)); err != nil {
		return nil, err
	}
	return writeModelToObjectDetails(&wm.WriteModel), nil
}

func (c *Commands) RemoveApp(ctx context.Context, orgID, projectID, appID string) (*domain.ObjectDetails, error) {
	if err := c.checker.Check(ctx, authz.PermissionAppWrite, orgID); err != nil {
		return nil, err
	}

	wm, err := c.appWriteModel(ctx, projectID, orgID, appID)
	if err != nil {
		return nil, err
	}
	if wm.State == domain.AppStateUnspecified || wm.State == domain.AppStateRemoved {
		return nil, apperror.ThrowNotFound(nil, "COMMAND-App30", "application not found")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, ProjectAggregateType)
	if err := c.pushAppendAndReduce(ctx, wm, NewAppRemovedEvent(ctx, aggregate, appID)); err != nil {
		return nil, err
	}
	return writeModelToObjectDetails(&wm.WriteModel), nil
}
