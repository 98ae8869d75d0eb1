package projection

import (
	"context"
	"database/sql"

	"github.com/identra/identra/pkg/command"
	"github.com/identra/identra/pkg/domain"
	"github.com/identra/identra/pkg/eventstore"
)

const (
	createSessionsTableStmt = `CREATE TABLE IF NOT EXISTS projections_sessions (
		instance_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		token_hash TEXT NOT NULL,
		state INTEGER NOT NULL,
		changed_at INTEGER NOT NULL,
		PRIMARY KEY (instance_id, session_id)
	)`

	upsertSessionStmt = `INSERT INTO projections_sessions
			(instance_id, session_id, user_id, token_hash, state, changed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (instance_id, session_id) DO UPDATE SET
			changed_at = excluded.changed_at`

	terminateSessionStmt = `UPDATE projections_sessions
		SET state = ?, changed_at = ?
		WHERE instance_id = ? AND session_id = ?`
)

// SessionProjection maintains active sessions, keyed by token hash for
// lookups on API calls.
type SessionProjection struct{}

func NewSessionProjection() *SessionProjection { return &SessionProjection{} }

func (*SessionProjection) Name() string { return "sessions" }

func (*SessionProjection) Init(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createSessionsTableStmt); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_sessions_token_hash ON projections_sessions (instance_id, token_hash)`)
	return err
}

func (*SessionProjection) Reducers() map[eventstore.AggregateType][]eventstore.EventType {
	return map[eventstore.AggregateType][]eventstore.EventType{
		command.SessionAggregateType: {
			command.SessionAddedType,
			command.SessionTerminatedType,
		},
		command.InstanceAggregateType: {
			command.InstanceRemovedType,
		},
	}
}

func (p *SessionProjection) Reduce(ctx context.Context, tx *sql.Tx, event eventstore.Event) error {
	aggregate := event.Aggregate()
	changedAt := event.CreatedAt().UnixNano()

	switch e := event.(type) {
	case *command.SessionAddedEvent:
		_, err := tx.ExecContext(ctx, upsertSessionStmt,
			aggregate.InstanceID, aggregate.ID, e.UserID, e.TokenHash,
			domain.SessionStateActive, changedAt)
		return err
	case *command.SessionTerminatedEvent:
		_, err := tx.ExecContext(ctx, terminateSessionStmt,
			domain.SessionStateTerminated, changedAt, aggregate.InstanceID, aggregate.ID)
		return err
	}
	return nil
}

func (*SessionProjection) CleanupInstance(ctx context.Context, tx *sql.Tx, instanceID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM projections_sessions WHERE instance_id = ?`, instanceID)
	return err
}

func (*SessionProjection) Reset(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM projections_sessions`)
	return err
}
