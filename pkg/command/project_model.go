package command

import (
	"context"

	"github.com/identra/identra/pkg/domain"
	"github.com/identra/identra/pkg/eventstore"
)

// ProjectWriteModel folds the project lifecycle plus the role keys and
// granted orgs needed to release constraints on removal.
type ProjectWriteModel struct {
	eventstore.WriteModel

	Name  string
	State domain.ProjectState

	RoleKeys    []string
	GrantedOrgs []string
}

func NewProjectWriteModel(projectID, resourceOwner string) *ProjectWriteModel {
	return &ProjectWriteModel{
		WriteModel: eventstore.WriteModel{
			AggregateID:   projectID,
			ResourceOwner: resourceOwner,
		},
	}
}

func (wm *ProjectWriteModel) Reduce() error {
	for _, event := range wm.Events {
		switch e := event.(type) {
		case *ProjectAddedEvent:
			wm.Name = e.Name
			wm.State = domain.ProjectStateActive
		case *ProjectDeactivatedEvent:
			wm.State = domain.ProjectStateInactive
		case *ProjectReactivatedEvent:
			wm.State = domain.ProjectStateActive
		case *ProjectRemovedEvent:
			wm.State = domain.ProjectStateRemoved
		case *ProjectRoleAddedEvent:
			wm.RoleKeys = append(wm.RoleKeys, e.Key)
		case *ProjectGrantAddedEvent:
			wm.GrantedOrgs = append(wm.GrantedOrgs, e.GrantedOrgID)
		}
	}
	return wm.WriteModel.Reduce()
}

func (c *Commands) projectWriteModelByID(ctx context.Context, projectID, resourceOwner string) (*ProjectWriteModel, error) {
	wm := NewProjectWriteModel(projectID, resourceOwner)
	if err := c.loadWriteModel(ctx, wm, ProjectAggregateType, projectID, resourceOwner); err != nil {
		return nil, err
	}
	return wm, nil
}

// AppWriteModel folds one application of a project, sub-filtered by app
// id. The project's own lifecycle is folded alongside so commands can
// require an active project.
type AppWriteModel struct {
	eventstore.WriteModel

	AppID    string
	Name     string
	State    domain.AppState
	ClientID string

	ProjectState domain.ProjectState
}

func NewAppWriteModel(projectID, resourceOwner, appID string) *AppWriteModel {
	return &AppWriteModel{
		WriteModel: eventstore.WriteModel{
			AggregateID:   projectID,
			ResourceOwner: resourceOwner,
		},
		AppID: appID,
	}
}

func (wm *AppWriteModel) Reduce() error {
	for _, event := range wm.Events {
		switch e := event.(type) {
		case *ProjectAddedEvent:
			wm.ProjectState = domain.ProjectStateActive
		case *ProjectDeactivatedEvent:
			wm.ProjectState = domain.ProjectStateInactive
		case *ProjectReactivatedEvent:
			wm.ProjectState = domain.ProjectStateActive
		case *ProjectRemovedEvent:
			wm.ProjectState = domain.ProjectStateRemoved
		case *AppAddedEvent:
			if e.AppID != wm.AppID {
				continue
			}
			wm.Name = e.Name
			wm.State = domain.AppStateActive
		case *AppOIDCConfigAddedEvent:
			if e.AppID != wm.AppID {
				continue
			}
			wm.ClientID = e.ClientID
		case *AppDeactivatedEvent:
			if e.AppID != wm.AppID {
				continue
			}
			wm.State = domain.AppStateInactive
		case *AppRemovedEvent:
			if e.AppID != wm.AppID {
				continue
			}
			wm.State = domain.AppStateRemoved
		}
	}
	return wm.WriteModel.Reduce()
}

func (c *Commands) appWriteModel(ctx context.Context, projectID, resourceOwner, appID string) (*AppWriteModel, error) {
	wm := NewAppWriteModel(projectID, resourceOwner, appID)
	if err := c.loadWriteModel(ctx, wm, ProjectAggregateType, projectID, resourceOwner); err != nil {
		return nil, err
	}
	return wm, nil
}
