package command

import (
	"context"

	"github.com/identra/identra/pkg/domain"
	"github.com/identra/identra/pkg/eventstore"
)

const ProjectAggregateType eventstore.AggregateType = "project"

const (
	ProjectAddedType       eventstore.EventType = "project.added"
	ProjectDeactivatedType eventstore.EventType = "project.deactivated"
	ProjectReactivatedType eventstore.EventType = "project.reactivated"
	ProjectRemovedType     eventstore.EventType = "project.removed"
	ProjectRoleAddedType   eventstore.EventType = "project.role.added"
	ProjectGrantAddedType  eventstore.EventType = "project.grant.added"

	AppAddedType           eventstore.EventType = "project.application.added"
	AppOIDCConfigAddedType eventstore.EventType = "project.application.config.oidc.added"
	AppDeactivatedType     eventstore.EventType = "project.application.deactivated"
	AppRemovedType         eventstore.EventType = "project.application.removed"
)

// Unique-constraint index names of the project aggregate. Role keys are
// unique per project, grants unique per (project, granted org).
const (
	UniqueProjectRole  = "project_roles"
	UniqueProjectGrant = "project_grants"
)

func init() {
	eventstore.RegisterEventMapper(ProjectAddedType, eventstore.GenericEventMapper[ProjectAddedEvent])
	eventstore.RegisterEventMapper(ProjectDeactivatedType, eventstore.GenericEventMapper[ProjectDeactivatedEvent])
	eventstore.RegisterEventMapper(ProjectReactivatedType, eventstore.GenericEventMapper[ProjectReactivatedEvent])
	eventstore.RegisterEventMapper(ProjectRemovedType, eventstore.GenericEventMapper[ProjectRemovedEvent])
	eventstore.RegisterEventMapper(ProjectRoleAddedType, eventstore.GenericEventMapper[ProjectRoleAddedEvent])
	eventstore.RegisterEventMapper(ProjectGrantAddedType, eventstore.GenericEventMapper[ProjectGrantAddedEvent])
	eventstore.RegisterEventMapper(AppAddedType, eventstore.GenericEventMapper[AppAddedEvent])
	eventstore.RegisterEventMapper(AppOIDCConfigAddedType, eventstore.GenericEventMapper[AppOIDCConfigAddedEvent])
	eventstore.RegisterEventMapper(AppDeactivatedType, eventstore.GenericEventMapper[AppDeactivatedEvent])
	eventstore.RegisterEventMapper(AppRemovedType, eventstore.GenericEventMapper[AppRemovedEvent])
}

type ProjectAddedEvent struct {
	eventstore.BaseEvent

	Name string `json:"name"`
}

func NewProjectAddedEvent(ctx context.Context, aggregate *eventstore.Aggregate, name string) *ProjectAddedEvent {
	return &ProjectAddedEvent{
		BaseEvent: *eventstore.NewBaseEvent(ctx, aggregate, ProjectAddedType),
		Name:      name,
	}
}

func (e *ProjectAddedEvent) Payload() any { return e }

type ProjectDeactivatedEvent struct {
	eventstore.BaseEvent
}

func NewProjectDeactivatedEvent(ctx context.Context, aggregate *eventstore.Aggregate) *ProjectDeactivatedEvent {
	return &ProjectDeactivatedEvent{BaseEvent: *eventstore.NewBaseEvent(ctx, aggregate, ProjectDeactivatedType)}
}

type ProjectReactivatedEvent struct {
	eventstore.BaseEvent
}

func NewProjectReactivatedEvent(ctx context.Context, aggregate *eventstore.Aggregate) *ProjectReactivatedEvent {
	return &ProjectReactivatedEvent{BaseEvent: *eventstore.NewBaseEvent(ctx, aggregate, ProjectReactivatedType)}
}

type ProjectRemovedEvent struct {
	eventstore.BaseEvent

	roleKeys    []string
	grantedOrgs []string
}

// NewProjectRemovedEvent releases the project's role and grant
// constraints.
func NewProjectRemovedEvent(ctx context.Context, aggregate *eventstore.Aggregate, roleKeys, grantedOrgs []string) *ProjectRemovedEvent {
	return &ProjectRemovedEvent{
		BaseEvent:   *eventstore.NewBaseEvent(ctx, aggregate, ProjectRemovedType),
		roleKeys:    roleKeys,
		grantedOrgs: grantedOrgs,
	}
}

func (e *ProjectRemovedEvent) UniqueConstraints() []*eventstore.UniqueConstraint {
	var constraints []*eventstore.UniqueConstraint
	for _, key := range e.roleKeys {
		constraints = append(constraints,
			eventstore.NewRemoveUniqueConstraint(UniqueProjectRole, e.Aggregate().ID+":"+key))
	}
	for _, orgID := range e.grantedOrgs {
		constraints = append(constraints,
			eventstore.NewRemoveUniqueConstraint(UniqueProjectGrant, e.Aggregate().ID+":"+orgID))
	}
	return constraints
}

type ProjectRoleAddedEvent struct {
	eventstore.BaseEvent

	Key         string `json:"key"`
	DisplayName string `json:"displayName,omitempty"`
}

func NewProjectRoleAddedEvent(ctx context.Context, aggregate *eventstore.Aggregate, key, displayName string) *ProjectRoleAddedEvent {
	return &ProjectRoleAddedEvent{
		BaseEvent:   *eventstore.NewBaseEvent(ctx, aggregate, ProjectRoleAddedType),
		Key:         key,
		DisplayName: displayName,
	}
}

func (e *ProjectRoleAddedEvent) Payload() any { return e }

func (e *ProjectRoleAddedEvent) UniqueConstraints() []*eventstore.UniqueConstraint {
	return []*eventstore.UniqueConstraint{
		eventstore.NewAddUniqueConstraint(UniqueProjectRole, e.Aggregate().ID+":"+e.Key, "COMMAND-Role11"),
	}
}

type ProjectGrantAddedEvent struct {
	eventstore.BaseEvent

	GrantID      string   `json:"grantId"`
	GrantedOrgID string   `json:"grantedOrgId"`
	RoleKeys     []string `json:"roleKeys,omitempty"`
}

func NewProjectGrantAddedEvent(ctx context.Context, aggregate *eventstore.Aggregate, grantID, grantedOrgID string, roleKeys []string) *ProjectGrantAddedEvent {
	return &ProjectGrantAddedEvent{
		BaseEvent:    *eventstore.NewBaseEvent(ctx, aggregate, ProjectGrantAddedType),
		GrantID:      grantID,
		GrantedOrgID: grantedOrgID,
		RoleKeys:     roleKeys,
	}
}

func (e *ProjectGrantAddedEvent) Payload() any { return e }

func (e *ProjectGrantAddedEvent) UniqueConstraints() []*eventstore.UniqueConstraint {
	return []*eventstore.UniqueConstraint{
		eventstore.NewAddUniqueConstraint(UniqueProjectGrant, e.Aggregate().ID+":"+e.GrantedOrgID, "COMMAND-Grant11"),
	}
}

type AppAddedEvent struct {
	eventstore.BaseEvent

	AppID string `json:"appId"`
	Name  string `json:"name"`
}

func NewAppAddedEvent(ctx context.Context, aggregate *eventstore.Aggregate, appID, name string) *AppAddedEvent {
	return &AppAddedEvent{
		BaseEvent: *eventstore.NewBaseEvent(ctx, aggregate, AppAddedType),
		AppID:     appID,
		Name:      name,
	}
}

func (e *AppAddedEvent) Payload() any { return e }

type AppOIDCConfigAddedEvent struct {
	eventstore.BaseEvent

	AppID        string                    `json:"appId"`
	ClientID     string                    `json:"clientId"`
	RedirectURIs []string                  `json:"redirectUris"`
	ResponseType domain.OIDCResponseType   `json:"responseType"`
	GrantTypes   []domain.OIDCGrantType    `json:"grantTypes,omitempty"`
	AppType      domain.OIDCAppType        `json:"appType"`
	AuthMethod   domain.OIDCAuthMethodType `json:"authMethod"`

	// ClientSecretHash is stored; the plaintext secret is returned to the
	// caller exactly once.
	ClientSecretHash string `json:"clientSecretHash,omitempty"`
}

func NewAppOIDCConfigAddedEvent(ctx context.Context, aggregate *eventstore.Aggregate, cfg *AppOIDCConfigAddedEvent) *AppOIDCConfigAddedEvent {
	cfg.BaseEvent = *eventstore.NewBaseEvent(ctx, aggregate, AppOIDCConfigAddedType)
	return cfg
}

func (e *AppOIDCConfigAddedEvent) Payload() any { return e }

type AppDeactivatedEvent struct {
	eventstore.BaseEvent

	AppID string `json:"appId"`
}

func NewAppDeactivatedEvent(ctx context.Context, aggregate *eventstore.Aggregate, appID string) *AppDeactivatedEvent {
	return &AppDeactivatedEvent{
		BaseEvent: *eventstore.NewBaseEvent(ctx, aggregate, AppDeactivatedType),
		AppID:     appID,
	}
}

func (e *AppDeactivatedEvent) Payload() any { return e }

type AppRemovedEvent struct {
	eventstore.BaseEvent

	AppID string `json:"appId"`
}

func NewAppRemovedEvent(ctx context.Context, aggregate *eventstore.Aggregate, appID string) *AppRemovedEvent {
	return &AppRemovedEvent{
		BaseEvent: *eventstore.NewBaseEvent(ctx, aggregate, AppRemovedType),
		AppID:     appID,
	}
}

func (e *AppRemovedEvent) Payload() any { return e }
