package projection

import (
	"context"
	"database/sql"

	"github.com/identra/identra/pkg/command"
	"github.com/identra/identra/pkg/domain"
	"github.com/identra/identra/pkg/eventstore"
)

const (
	createProjectsTableStmt = `CREATE TABLE IF NOT EXISTS projections_projects (
		instance_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		org_id TEXT NOT NULL,
		name TEXT NOT NULL,
		state INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		changed_at INTEGER NOT NULL,
		sequence INTEGER NOT NULL,
		PRIMARY KEY (instance_id, project_id)
	)`

	createAppsTableStmt = `CREATE TABLE IF NOT EXISTS projections_apps (
		instance_id TEXT NOT NULL,
		app_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		name TEXT NOT NULL,
		state INTEGER NOT NULL,
		client_id TEXT NOT NULL DEFAULT '',
		changed_at INTEGER NOT NULL,
		PRIMARY KEY (instance_id, app_id)
	)`

	upsertProjectStmt = `INSERT INTO projections_projects
			(instance_id, project_id, org_id, name, state, created_at, changed_at, sequence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (instance_id, project_id) DO UPDATE SET
			name = excluded.name,
			changed_at = excluded.changed_at,
			sequence = excluded.sequence`

	updateProjectStateStmt = `UPDATE projections_projects
		SET state = ?, changed_at = ?, sequence = ?
		WHERE instance_id = ? AND project_id = ?`

	deleteProjectStmt = `DELETE FROM projections_projects
		WHERE instance_id = ? AND project_id = ?`

	upsertAppStmt = `INSERT INTO projections_apps
			(instance_id, app_id, project_id, name, state, changed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (instance_id, app_id) DO UPDATE SET
			name = excluded.name,
			changed_at = excluded.changed_at`

	setAppClientIDStmt = `UPDATE projections_apps
		SET client_id = ?, changed_at = ?
		WHERE instance_id = ? AND app_id = ?`

	updateAppStateStmt = `UPDATE projections_apps
		SET state = ?, changed_at = ?
		WHERE instance_id = ? AND app_id = ?`

	deleteAppStmt = `DELETE FROM projections_apps
		WHERE instance_id = ? AND app_id = ?`

	deleteProjectAppsStmt = `DELETE FROM projections_apps
		WHERE instance_id = ? AND project_id = ?`
)

// ProjectProjection maintains one row per project and one per
// application.
type ProjectProjection struct{}

func NewProjectProjection() *ProjectProjection { return &ProjectProjection{} }

func (*ProjectProjection) Name() string { return "projects" }

func (*ProjectProjection) Init(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createProjectsTableStmt); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, createAppsTableStmt)
	return err
}

func (*ProjectProjection) Reducers() map[eventstore.AggregateType][]eventstore.EventType {
	return map[eventstore.AggregateType][]eventstore.EventType{
		command.ProjectAggregateType: {
			command.ProjectAddedType,
			command.ProjectDeactivatedType,
			command.ProjectReactivatedType,
			command.ProjectRemovedType,
			command.AppAddedType,
			command.AppOIDCConfigAddedType,
			command.AppDeactivatedType,
			command.AppRemovedType,
		},
		command.InstanceAggregateType: {
			command.InstanceRemovedType,
		},
	}
}

func (p *ProjectProjection) Reduce(ctx context.Context, tx *sql.Tx, event eventstore.Event) error {
	aggregate := event.Aggregate()
	changedAt := event.CreatedAt().UnixNano()

	switch e := event.(type) {
	case *command.ProjectAddedEvent:
		_, err := tx.ExecContext(ctx, upsertProjectStmt,
			aggregate.InstanceID, aggregate.ID, aggregate.ResourceOwner,
			e.Name, domain.ProjectStateActive, changedAt, changedAt, event.Sequence())
		return err
	case *command.ProjectDeactivatedEvent:
		_, err := tx.ExecContext(ctx, updateProjectStateStmt,
			domain.ProjectStateInactive, changedAt, event.Sequence(), aggregate.InstanceID, aggregate.ID)
		return err
	case *command.ProjectReactivatedEvent:
		_, err := tx.ExecContext(ctx, updateProjectStateStmt,
			domain.ProjectStateActive, changedAt, event.Sequence(), aggregate.InstanceID, aggregate.ID)
		return err
	case *command.ProjectRemovedEvent:
		if _, err := tx.ExecContext(ctx, deleteProjectAppsStmt, aggregate.InstanceID, aggregate.ID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, deleteProjectStmt, aggregate.InstanceID, aggregate.ID)
		return err
	case *command.AppAddedEvent:
		_, err := tx.ExecContext(ctx, upsertAppStmt,
			aggregate.InstanceID, e.AppID, aggregate.ID, e.Name, domain.AppStateActive, changedAt)
		return err
	case *command.AppOIDCConfigAddedEvent:
		_, err := tx.ExecContext(ctx, setAppClientIDStmt,
			e.ClientID, changedAt, aggregate.InstanceID, e.AppID)
		return err
	case *command.AppDeactivatedEvent:
		_, err := tx.ExecContext(ctx, updateAppStateStmt,
			domain.AppStateInactive, changedAt, aggregate.InstanceID, e.AppID)
		return err
	case *command.AppRemovedEvent:
		_, err := tx.ExecContext(ctx, deleteAppStmt, aggregate.InstanceID, e.AppID)
		return err
	}
	return nil
}

func (*ProjectProjection) CleanupInstance(ctx context.Context, tx *sql.Tx, instanceID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM projections_apps WHERE instance_id = ?`, instanceID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM projections_projects WHERE instance_id = ?`, instanceID)
	return err
}

func (*ProjectProjection) Reset(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM projections_apps`); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM projections_projects`)
	return err
}
