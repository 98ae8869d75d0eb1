// Package projection derives read-optimized tables from the event log.
// Each projection tracks its own checkpoint per instance and advances it
// in the same transaction as its table writes, so a crash never skips or
// double-applies an event as long as reduces are idempotent.
package projection

import (
	"context"
	"database/sql"

	"github.com/identra/identra/pkg/eventstore"
)

// Projection folds events into its own tables. Implementations must be
// idempotent per event: the handler may deliver an event again after a
// crash between commit and checkpoint bookkeeping elsewhere.
type Projection interface {
	// Name identifies the projection in the checkpoint table. Renaming a
	// projection makes it rebuild from the beginning.
	Name() string

	// Init creates the projection's tables. Called once on start, must be
	// idempotent.
	Init(ctx context.Context, db *sql.DB) error

	// Reducers declares which events the projection consumes, keyed by
	// aggregate type. A nil event-type list accepts every event of that
	// aggregate type.
	Reducers() map[eventstore.AggregateType][]eventstore.EventType

	// Reduce applies one event inside the handler's transaction.
	Reduce(ctx context.Context, tx *sql.Tx, event eventstore.Event) error

	// CleanupInstance deletes the projection's rows for a removed
	// instance.
	CleanupInstance(ctx context.Context, tx *sql.Tx, instanceID string) error
}

// Resetter is implemented by projections that support rebuilds. Reset
// empties the projection's tables; the handler then replays from the
// start of the log.
type Resetter interface {
	Reset(ctx context.Context, tx *sql.Tx) error
}

const (
	getCheckpointStmt = `SELECT last_position, last_in_tx_order FROM projection_state
		WHERE projection_name = ? AND instance_id = ?`

	setCheckpointStmt = `INSERT INTO projection_state
			(projection_name, instance_id, last_position, last_in_tx_order, last_tick_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (projection_name, instance_id) DO UPDATE SET
			last_position = excluded.last_position,
			last_in_tx_order = excluded.last_in_tx_order,
			last_tick_at = excluded.last_tick_at`

	deleteCheckpointStmt = `DELETE FROM projection_state
		WHERE projection_name = ? AND instance_id = ?`

	resetCheckpointsStmt = `DELETE FROM projection_state WHERE projection_name = ?`
)

// CheckpointStore persists per-(projection, instance) progress in the
// projection_state table next to the event tables.
type CheckpointStore struct {
	db *sql.DB
}

func NewCheckpointStore(db *sql.DB) *CheckpointStore {
	return &CheckpointStore{db: db}
}

// Get returns the last processed position, or the zero position for a
// projection that has not run yet.
func (s *CheckpointStore) Get(ctx context.Context, projectionName, instanceID string) (eventstore.Position, error) {
	var pos eventstore.Position
	err := s.db.QueryRowContext(ctx, getCheckpointStmt, projectionName, instanceID).
		Scan(&pos.Position, &pos.InTxOrder)
	if err == sql.ErrNoRows {
		return eventstore.Position{}, nil
	}
	if err != nil {
		return eventstore.Position{}, err
	}
	return pos, nil
}

// SetInTx advances the checkpoint inside the caller's transaction so it
// commits atomically with the projection's table writes.
func (s *CheckpointStore) SetInTx(ctx context.Context, tx *sql.Tx, projectionName, instanceID string, pos eventstore.Position) error {
	_, err := tx.ExecContext(ctx, setCheckpointStmt,
		projectionName, instanceID, pos.Position, pos.InTxOrder, eventstore.Now().UnixNano())
	return err
}

// DeleteInTx drops the checkpoint of one instance, used when the
// instance is removed.
func (s *CheckpointStore) DeleteInTx(ctx context.Context, tx *sql.Tx, projectionName, instanceID string) error {
	_, err := tx.ExecContext(ctx, deleteCheckpointStmt, projectionName, instanceID)
	return err
}

// ResetInTx drops every checkpoint of the projection, forcing a full
// replay.
func (s *CheckpointStore) ResetInTx(ctx context.Context, tx *sql.Tx, projectionName string) error {
	_, err := tx.ExecContext(ctx, resetCheckpointsStmt, projectionName)
	return err
}
