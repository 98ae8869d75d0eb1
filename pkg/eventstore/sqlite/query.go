package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/identra/identra/pkg/eventstore"
)

const selectEventsStmt = `SELECT
		instance_id, aggregate_type, aggregate_id, aggregate_version,
		event_type, payload, owner, creator, created_at, position, in_tx_order
	FROM events`

// Filter returns the events matching the builder, ordered by
// (position, in_tx_order).
func (s *Store) Filter(ctx context.Context, builder *eventstore.SearchQueryBuilder) ([]eventstore.Event, error) {
	query, args := buildFilterQuery(builder)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "SQLITE-Filt01", "querying events")
	}
	defer rows.Close()

	var events []eventstore.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "SQLITE-Filt02", "iterating events")
	}
	return events, nil
}

// LatestPosition returns the position of the newest matching event, or
// the zero position when nothing matches.
func (s *Store) LatestPosition(ctx context.Context, builder *eventstore.SearchQueryBuilder) (eventstore.Position, error) {
	query := "SELECT position, in_tx_order FROM events"
	conditions, args := filterConditions(builder)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY position DESC, in_tx_order DESC LIMIT 1"

	var pos eventstore.Position
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&pos.Position, &pos.InTxOrder)
	if errors.Is(err, sql.ErrNoRows) {
		return eventstore.Position{}, nil
	}
	if err != nil {
		return eventstore.Position{}, mapError(err, "SQLITE-Filt03", "querying latest position")
	}
	return pos, nil
}

// InstanceIDs lists every instance that has at least one event.
func (s *Store) InstanceIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT instance_id FROM events ORDER BY instance_id")
	if err != nil {
		return nil, mapError(err, "SQLITE-Filt04", "querying instances")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mapError(err, "SQLITE-Filt05", "scanning instance id")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanEvent(rows *sql.Rows) (eventstore.Event, error) {
	var (
		aggregate eventstore.Aggregate
		eventType string
		sequence  uint64
		payload   sql.NullString
		creator   string
		createdAt int64
		pos       eventstore.Position
	)
	err := rows.Scan(
		&aggregate.InstanceID, &aggregate.Type, &aggregate.ID, &sequence,
		&eventType, &payload, &aggregate.ResourceOwner, &creator,
		&createdAt, &pos.Position, &pos.InTxOrder,
	)
	if err != nil {
		return nil, mapError(err, "SQLITE-Scan01", "scanning event row")
	}

	var data []byte
	if payload.Valid {
		data = []byte(payload.String)
	}
	base := eventstore.NewBaseEventFromStorage(
		&aggregate, eventstore.EventType(eventType), sequence, pos,
		time.Unix(0, createdAt).UTC(), creator, data,
	)
	return eventstore.MapEvent(base)
}

func buildFilterQuery(builder *eventstore.SearchQueryBuilder) (string, []any) {
	var sb strings.Builder
	sb.WriteString(selectEventsStmt)

	conditions, args := filterConditions(builder)
	if len(conditions) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conditions, " AND "))
	}

	if builder.IsDesc() {
		sb.WriteString(" ORDER BY position DESC, in_tx_order DESC")
	} else {
		sb.WriteString(" ORDER BY position, in_tx_order")
	}

	if limit := builder.GetLimit(); limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, limit)
	}
	return sb.String(), args
}

func filterConditions(builder *eventstore.SearchQueryBuilder) ([]string, []any) {
	var (
		conditions []string
		args       []any
	)

	if instanceID := builder.GetInstanceID(); instanceID != "" {
		conditions = append(conditions, "instance_id = ?")
		args = append(args, instanceID)
	}
	if owner := builder.GetResourceOwner(); owner != "" {
		conditions = append(conditions, "owner = ?")
		args = append(args, owner)
	}
	if after := builder.GetPositionAfter(); !after.IsZero() {
		conditions = append(conditions, "(position > ? OR (position = ? AND in_tx_order > ?))")
		args = append(args, after.Position, after.Position, after.InTxOrder)
	}
	if before := builder.GetPositionBefore(); before > 0 {
		conditions = append(conditions, "position < ?")
		args = append(args, before)
	}

	if types := builder.GetExcludeAggregateTypes(); len(types) > 0 {
		conditions = append(conditions, "aggregate_type NOT IN ("+placeholders(len(types))+")")
		for _, t := range types {
			args = append(args, string(t))
		}
	}
	if ids := builder.GetExcludeAggregateIDs(); len(ids) > 0 {
		conditions = append(conditions, "aggregate_id NOT IN ("+placeholders(len(ids))+")")
		for _, id := range ids {
			args = append(args, id)
		}
	}
	if types := builder.GetExcludeEventTypes(); len(types) > 0 {
		conditions = append(conditions, "event_type NOT IN ("+placeholders(len(types))+")")
		for _, t := range types {
			args = append(args, string(t))
		}
	}

	var branches []string
	for _, query := range builder.GetQueries() {
		branch, branchArgs := branchConditions(query)
		if branch == "" {
			continue
		}
		branches = append(branches, branch)
		args = append(args, branchArgs...)
	}
	if len(branches) > 0 {
		conditions = append(conditions, "("+strings.Join(branches, " OR ")+")")
	}

	return conditions, args
}

func branchConditions(query *eventstore.SearchQuery) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	if types := query.GetAggregateTypes(); len(types) > 0 {
		conditions = append(conditions, "aggregate_type IN ("+placeholders(len(types))+")")
		for _, t := range types {
			args = append(args, string(t))
		}
	}
	if ids := query.GetAggregateIDs(); len(ids) > 0 {
		conditions = append(conditions, "aggregate_id IN ("+placeholders(len(ids))+")")
		for _, id := range ids {
			args = append(args, id)
		}
	}
	if types := query.GetEventTypes(); len(types) > 0 {
		conditions = append(conditions, "event_type IN ("+placeholders(len(types))+")")
		for _, t := range types {
			args = append(args, string(t))
		}
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return "(" + strings.Join(conditions, " AND ") + ")", args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
