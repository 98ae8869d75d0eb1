package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/identra/identra/pkg/apperror"
	"github.com/identra/identra/pkg/eventstore"
)

// globalConstraintScope is the instance id under which global unique
// constraints are stored so they collide across every instance.
const globalConstraintScope = ""

const (
	selectMaxVersionStmt = `SELECT COALESCE(MAX(aggregate_version), 0)
		FROM events WHERE instance_id = ? AND aggregate_id = ?`

	nextPositionStmt = `INSERT INTO positions (instance_id, position) VALUES (?, 1)
		ON CONFLICT (instance_id) DO UPDATE SET position = position + 1
		RETURNING position`

	insertEventStmt = `INSERT INTO events (
			instance_id, aggregate_type, aggregate_id, aggregate_version,
			event_type, payload, owner, creator, created_at, position, in_tx_order
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectConstraintStmt = `SELECT error_code FROM unique_constraints
		WHERE instance_id = ? AND constraint_type = ? AND value = ?`

	insertConstraintStmt = `INSERT INTO unique_constraints
		(instance_id, constraint_type, value, error_code) VALUES (?, ?, ?, ?)`

	deleteConstraintStmt = `DELETE FROM unique_constraints
		WHERE instance_id = ? AND constraint_type = ? AND value = ?`
)

// Push appends all commands in one transaction. Events of the batch share
// one position per instance and are tie-broken by their index in the
// batch. Constraint intents run in command order; the first colliding add
// rolls everything back.
func (s *Store) Push(ctx context.Context, commands ...eventstore.Command) ([]eventstore.Event, error) {
	payloads, err := marshalPayloads(commands)
	if err != nil {
		return nil, err
	}

	s.pushMu.Lock()
	defer s.pushMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapError(err, "SQLITE-Push01", "beginning push transaction")
	}
	defer tx.Rollback()

	now := eventstore.Now()
	versions := make(map[string]uint64)
	positions := make(map[string]uint64)
	events := make([]eventstore.Event, 0, len(commands))

	for i, command := range commands {
		aggregate := command.Aggregate()
		versionKey := aggregate.InstanceID + "|" + aggregate.ID

		current, known := versions[versionKey]
		if !known {
			err := tx.QueryRowContext(ctx, selectMaxVersionStmt, aggregate.InstanceID, aggregate.ID).Scan(&current)
			if err != nil {
				return nil, mapError(err, "SQLITE-Push02", "reading aggregate version")
			}
		}
		if required, ok := command.RequiredSequence(); ok && required != current {
			return nil, apperror.ThrowConcurrencyConflict(nil, "SQLITE-Push03",
				fmt.Sprintf("aggregate %s is at sequence %d, caller expected %d", aggregate.ID, current, required))
		}
		sequence := current + 1
		versions[versionKey] = sequence

		position, known := positions[aggregate.InstanceID]
		if !known {
			err := tx.QueryRowContext(ctx, nextPositionStmt, aggregate.InstanceID).Scan(&position)
			if err != nil {
				return nil, mapError(err, "SQLITE-Push04", "allocating position")
			}
			positions[aggregate.InstanceID] = position
		}

		var payload any
		if payloads[i] != nil {
			payload = string(payloads[i])
		}
		_, err := tx.ExecContext(ctx, insertEventStmt,
			aggregate.InstanceID, aggregate.Type, aggregate.ID, sequence,
			command.Type(), payload, aggregate.ResourceOwner, command.Creator(),
			now.UnixNano(), position, i,
		)
		if err != nil {
			if isKeyConflict(err) {
				return nil, apperror.ThrowConcurrencyConflict(err, "SQLITE-Push05",
					fmt.Sprintf("aggregate %s was modified by a concurrent writer", aggregate.ID))
			}
			return nil, mapError(err, "SQLITE-Push06", "inserting event")
		}

		if err := applyConstraints(ctx, tx, aggregate.InstanceID, command.UniqueConstraints()); err != nil {
			return nil, err
		}

		base := eventstore.NewBaseEventFromStorage(
			aggregate, command.Type(), sequence,
			eventstore.Position{Position: position, InTxOrder: uint32(i)},
			now, command.Creator(), payloads[i],
		)
		event, err := eventstore.MapEvent(base)
		if err != nil {
			return nil, apperror.ThrowInternal(err, "SQLITE-Push07", "mapping stored event")
		}
		events = append(events, event)
	}

	if err := tx.Commit(); err != nil {
		return nil, mapError(err, "SQLITE-Push08", "committing push transaction")
	}
	return events, nil
}

// marshalPayloads encodes every command payload up front so a marshal
// failure rejects the push before a transaction is opened. SQLite TEXT
// silently truncates at NUL, so payloads containing null bytes in either
// raw or escaped form are rejected.
func marshalPayloads(commands []eventstore.Command) ([][]byte, error) {
	payloads := make([][]byte, len(commands))
	for i, command := range commands {
		value := command.Payload()
		if value == nil {
			continue
		}
		data, err := json.Marshal(value)
		if err != nil {
			return nil, apperror.ThrowInvalidArgument(err, "SQLITE-Pay01",
				fmt.Sprintf("marshaling %s payload", command.Type()))
		}
		if bytes.Contains(data, []byte{0}) || bytes.Contains(data, []byte("\\u0000")) {
			return nil, apperror.ThrowInvalidArgument(nil, "SQLITE-Pay02",
				fmt.Sprintf("%s payload contains null bytes", command.Type()))
		}
		payloads[i] = data
	}
	return payloads, nil
}

func applyConstraints(ctx context.Context, tx *sql.Tx, instanceID string, constraints []*eventstore.UniqueConstraint) error {
	for _, constraint := range constraints {
		scope := instanceID
		if constraint.Global {
			scope = globalConstraintScope
		}

		switch constraint.Action {
		case eventstore.ConstraintAdd:
			var existingCode string
			err := tx.QueryRowContext(ctx, selectConstraintStmt,
				scope, constraint.ConstraintType, constraint.Value).Scan(&existingCode)
			if err == nil {
				return constraintViolation(constraint)
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return mapError(err, "SQLITE-Uniq01", "checking unique constraint")
			}
			_, err = tx.ExecContext(ctx, insertConstraintStmt,
				scope, constraint.ConstraintType, constraint.Value, constraint.ErrorCode)
			if err != nil {
				if isKeyConflict(err) {
					return constraintViolation(constraint)
				}
				return mapError(err, "SQLITE-Uniq02", "reserving unique value")
			}

		case eventstore.ConstraintRemove:
			_, err := tx.ExecContext(ctx, deleteConstraintStmt,
				scope, constraint.ConstraintType, constraint.Value)
			if err != nil {
				return mapError(err, "SQLITE-Uniq03", "releasing unique value")
			}
		}
	}
	return nil
}

func constraintViolation(constraint *eventstore.UniqueConstraint) error {
	code := constraint.ErrorCode
	if code == "" {
		code = "SQLITE-Uniq04"
	}
	return apperror.ThrowUniqueConstraintViolation(
		constraint.ConstraintType, constraint.Value, code,
		fmt.Sprintf("%s %q already taken", constraint.ConstraintType, constraint.Value),
	)
}
