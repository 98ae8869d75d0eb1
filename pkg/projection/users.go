package projection

import (
	"context"
	"database/sql"

	"github.com/identra/identra/pkg/command"
	"github.com/identra/identra/pkg/domain"
	"github.com/identra/identra/pkg/eventstore"
)

const (
	createUsersTableStmt = `CREATE TABLE IF NOT EXISTS projections_users (
		instance_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		org_id TEXT NOT NULL,
		username TEXT NOT NULL,
		user_type INTEGER NOT NULL,
		state INTEGER NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		changed_at INTEGER NOT NULL,
		sequence INTEGER NOT NULL,
		PRIMARY KEY (instance_id, user_id)
	)`

	upsertUserStmt = `INSERT INTO projections_users
			(instance_id, user_id, org_id, username, user_type, state, email, created_at, changed_at, sequence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (instance_id, user_id) DO UPDATE SET
			username = excluded.username,
			email = excluded.email,
			changed_at = excluded.changed_at,
			sequence = excluded.sequence`

	updateUserStateStmt = `UPDATE projections_users
		SET state = ?, changed_at = ?, sequence = ?
		WHERE instance_id = ? AND user_id = ?`

	updateUsernameStmt = `UPDATE projections_users
		SET username = ?, changed_at = ?, sequence = ?
		WHERE instance_id = ? AND user_id = ?`

	deleteUserStmt = `DELETE FROM projections_users
		WHERE instance_id = ? AND user_id = ?`
)

// UserProjection maintains one row per user.
type UserProjection struct{}

func NewUserProjection() *UserProjection { return &UserProjection{} }

func (*UserProjection) Name() string { return "users" }

func (*UserProjection) Init(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, createUsersTableStmt)
	return err
}

func (*UserProjection) Reducers() map[eventstore.AggregateType][]eventstore.EventType {
	return map[eventstore.AggregateType][]eventstore.EventType{
		command.UserAggregateType: {
			command.HumanAddedType,
			command.MachineAddedType,
			command.UsernameChangedType,
			command.UserDeactivatedType,
			command.UserReactivatedType,
			command.UserLockedType,
			command.UserUnlockedType,
			command.UserRemovedType,
		},
		command.InstanceAggregateType: {
			command.InstanceRemovedType,
		},
	}
}

func (p *UserProjection) Reduce(ctx context.Context, tx *sql.Tx, event eventstore.Event) error {
	aggregate := event.Aggregate()
	changedAt := event.CreatedAt().UnixNano()

	switch e := event.(type) {
	case *command.HumanAddedEvent:
		_, err := tx.ExecContext(ctx, upsertUserStmt,
			aggregate.InstanceID, aggregate.ID, aggregate.ResourceOwner,
			e.Username, domain.UserTypeHuman, domain.UserStateActive, e.Email,
			changedAt, changedAt, event.Sequence())
		return err
	case *command.MachineAddedEvent:
		_, err := tx.ExecContext(ctx, upsertUserStmt,
			aggregate.InstanceID, aggregate.ID, aggregate.ResourceOwner,
			e.Username, domain.UserTypeMachine, domain.UserStateActive, "",
			changedAt, changedAt, event.Sequence())
		return err
	case *command.UsernameChangedEvent:
		_, err := tx.ExecContext(ctx, updateUsernameStmt,
			e.Username, changedAt, event.Sequence(), aggregate.InstanceID, aggregate.ID)
		return err
	case *command.UserDeactivatedEvent:
		return p.setState(ctx, tx, event, domain.UserStateInactive)
	case *command.UserReactivatedEvent:
		return p.setState(ctx, tx, event, domain.UserStateActive)
	case *command.UserLockedEvent:
		return p.setState(ctx, tx, event, domain.UserStateLocked)
	case *command.UserUnlockedEvent:
		return p.setState(ctx, tx, event, domain.UserStateActive)
	case *command.UserRemovedEvent:
		_, err := tx.ExecContext(ctx, deleteUserStmt, aggregate.InstanceID, aggregate.ID)
		return err
	}
	return nil
}

func (*UserProjection) setState(ctx context.Context, tx *sql.Tx, event eventstore.Event, state domain.UserState) error {
	aggregate := event.Aggregate()
	_, err := tx.ExecContext(ctx, updateUserStateStmt,
		state, event.CreatedAt().UnixNano(), event.Sequence(), aggregate.InstanceID, aggregate.ID)
	return err
}

func (*UserProjection) CleanupInstance(ctx context.Context, tx *sql.Tx, instanceID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM projections_users WHERE instance_id = ?`, instanceID)
	return err
}

func (*UserProjection) Reset(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM projections_users`)
	return err
}
