package projection

import (
	"context"
	"database/sql"

	"github.com/identra/identra/pkg/command"
	"github.com/identra/identra/pkg/domain"
	"github.com/identra/identra/pkg/eventstore"
)

const (
	createAuthRequestsTableStmt = `CREATE TABLE IF NOT EXISTS projections_auth_requests (
		instance_id TEXT NOT NULL,
		auth_request_id TEXT NOT NULL,
		client_id TEXT NOT NULL,
		state INTEGER NOT NULL,
		user_id TEXT NOT NULL DEFAULT '',
		changed_at INTEGER NOT NULL,
		PRIMARY KEY (instance_id, auth_request_id)
	)`

	upsertAuthRequestStmt = `INSERT INTO projections_auth_requests
			(instance_id, auth_request_id, client_id, state, changed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (instance_id, auth_request_id) DO UPDATE SET
			changed_at = excluded.changed_at`

	updateAuthRequestStateStmt = `UPDATE projections_auth_requests
		SET state = ?, changed_at = ?
		WHERE instance_id = ? AND auth_request_id = ?`

	selectUserAuthRequestStmt = `UPDATE projections_auth_requests
		SET state = ?, user_id = ?, changed_at = ?
		WHERE instance_id = ? AND auth_request_id = ?`
)

// AuthRequestProjection tracks in-flight and finished authentication
// flows.
type AuthRequestProjection struct{}

func NewAuthRequestProjection() *AuthRequestProjection { return &AuthRequestProjection{} }

func (*AuthRequestProjection) Name() string { return "auth_requests" }

func (*AuthRequestProjection) Init(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, createAuthRequestsTableStmt)
	return err
}

func (*AuthRequestProjection) Reducers() map[eventstore.AggregateType][]eventstore.EventType {
	return map[eventstore.AggregateType][]eventstore.EventType{
		command.AuthRequestAggregateType: nil,
		command.InstanceAggregateType: {
			command.InstanceRemovedType,
		},
	}
}

func (p *AuthRequestProjection) Reduce(ctx context.Context, tx *sql.Tx, event eventstore.Event) error {
	aggregate := event.Aggregate()
	changedAt := event.CreatedAt().UnixNano()

	switch e := event.(type) {
	case *command.AuthRequestAddedEvent:
		_, err := tx.ExecContext(ctx, upsertAuthRequestStmt,
			aggregate.InstanceID, aggregate.ID, e.ClientID, domain.AuthRequestStateAdded, changedAt)
		return err
	case *command.AuthRequestUserSelectedEvent:
		_, err := tx.ExecContext(ctx, selectUserAuthRequestStmt,
			domain.AuthRequestStateUserSelected, e.UserID, changedAt, aggregate.InstanceID, aggregate.ID)
		return err
	case *command.AuthRequestPasswordCheckedEvent:
		return p.setState(ctx, tx, event, domain.AuthRequestStatePasswordChecked)
	case *command.AuthRequestTOTPCheckedEvent:
		return p.setState(ctx, tx, event, domain.AuthRequestStateMFAChecked)
	case *command.AuthRequestSucceededEvent:
		return p.setState(ctx, tx, event, domain.AuthRequestStateSucceeded)
	case *command.AuthRequestFailedEvent:
		return p.setState(ctx, tx, event, domain.AuthRequestStateFailed)
	}
	// Failed password checks and minted codes leave the row unchanged.
	return nil
}

func (*AuthRequestProjection) setState(ctx context.Context, tx *sql.Tx, event eventstore.Event, state domain.AuthRequestState) error {
	aggregate := event.Aggregate()
	_, err := tx.ExecContext(ctx, updateAuthRequestStateStmt,
		state, event.CreatedAt().UnixNano(), aggregate.InstanceID, aggregate.ID)
	return err
}

func (*AuthRequestProjection) CleanupInstance(ctx context.Context, tx *sql.Tx, instanceID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM projections_auth_requests WHERE instance_id = ?`, instanceID)
	return err
}

func (*AuthRequestProjection) Reset(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM projections_auth_requests`)
	return err
}
