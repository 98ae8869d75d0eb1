package eventstore

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/identra/identra/pkg/apperror"
	"github.com/identra/identra/pkg/telemetry"
)

// DefaultQueryBatchSize is how many events FilterToReducer streams per
// round trip.
const DefaultQueryBatchSize = 100

// Storage is the relational adapter behind the store. Implementations
// must guarantee that no event becomes visible before its transaction
// commits and that committed events are never modified.
type Storage interface {
	Health(ctx context.Context) error

	// Push atomically appends all commands in one transaction and returns
	// the stored events with their assigned sequence, position, and
	// creation time, in command order.
	Push(ctx context.Context, commands ...Command) ([]Event, error)

	// Filter returns events matching the builder, ordered by
	// (position, in-tx order).
	Filter(ctx context.Context, builder *SearchQueryBuilder) ([]Event, error)

	// LatestPosition returns the position of the newest matching event,
	// or the zero position.
	LatestPosition(ctx context.Context, builder *SearchQueryBuilder) (Position, error)

	// InstanceIDs lists the instances that have events.
	InstanceIDs(ctx context.Context) ([]string, error)
}

// Eventstore is the process-wide facade over storage, adding post-commit
// fan-out and instrumentation. Safe for concurrent use.
type Eventstore struct {
	storage Storage
	pubsub  *PubSub
	logger  *slog.Logger
	metrics *telemetry.Metrics

	batchSize uint64
}

// Option configures an Eventstore.
type Option func(*Eventstore)

// WithPubSub enables post-commit fan-out. Without it, appends are silent;
// replicas and tests that must not cross-talk leave the bus off.
func WithPubSub(pubsub *PubSub) Option {
	return func(es *Eventstore) {
		es.pubsub = pubsub
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(es *Eventstore) {
		es.logger = logger
	}
}

func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(es *Eventstore) {
		es.metrics = metrics
	}
}

// WithQueryBatchSize overrides the FilterToReducer batch size.
func WithQueryBatchSize(size uint64) Option {
	return func(es *Eventstore) {
		if size > 0 {
			es.batchSize = size
		}
	}
}

func New(storage Storage, opts ...Option) *Eventstore {
	es := &Eventstore{
		storage:   storage,
		logger:    slog.Default(),
		batchSize: DefaultQueryBatchSize,
	}
	for _, opt := range opts {
		opt(es)
	}
	return es
}

// PubSub returns the configured bus, nil when disabled.
func (es *Eventstore) PubSub() *PubSub { return es.pubsub }

// Push appends all commands in one transaction. After commit the events
// are published to the bus in position order. On conflict nothing is
// stored and nothing is published.
func (es *Eventstore) Push(ctx context.Context, commands ...Command) ([]Event, error) {
	if len(commands) == 0 {
		return nil, apperror.ThrowInvalidArgument(nil, "EVENT-Push01", "push requires at least one command")
	}
	for _, command := range commands {
		if command.Aggregate() == nil || command.Aggregate().ID == "" {
			return nil, apperror.ThrowInvalidArgument(nil, "EVENT-Push02", "command misses aggregate")
		}
		if command.Aggregate().InstanceID == "" {
			return nil, apperror.ThrowInvalidArgument(nil, "EVENT-Push03", "command misses instance")
		}
		if command.Type() == "" {
			return nil, apperror.ThrowInvalidArgument(nil, "EVENT-Push04", "command misses event type")
		}
	}

	ctx, span := telemetry.StartSpan(ctx, "eventstore.push",
		attribute.Int("commands", len(commands)),
	)
	start := time.Now()

	events, err := es.storage.Push(ctx, commands...)
	telemetry.EndSpan(span, err)

	if es.metrics != nil {
		es.metrics.PushDuration.Record(ctx, time.Since(start).Seconds())
		if err == nil {
			es.metrics.EventsAppended.Add(ctx, int64(len(events)))
		} else if apperror.IsConcurrencyConflict(err) || apperror.IsUniqueConstraintViolation(err) {
			es.metrics.PushConflicts.Add(ctx, 1)
		}
	}
	if err != nil {
		return nil, err
	}

	if es.pubsub != nil {
		es.pubsub.Publish(events...)
	}
	return events, nil
}

// Filter returns the events matching the builder.
func (es *Eventstore) Filter(ctx context.Context, builder *SearchQueryBuilder) ([]Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "eventstore.filter")
	start := time.Now()

	events, err := es.storage.Filter(ctx, builder)
	telemetry.EndSpan(span, err)

	if es.metrics != nil {
		es.metrics.QueryDuration.Record(ctx, time.Since(start).Seconds())
	}
	return events, err
}

// FilterToReducer streams matching events to the reducer in ascending
// order, in batches. Each batch is appended synchronously, then reduced;
// a reducer error stops the stream, and no batch is replayed.
func (es *Eventstore) FilterToReducer(ctx context.Context, builder *SearchQueryBuilder, reducer Reducer) error {
	cursor := builder.clone().OrderAsc()
	for {
		batch := cursor.clone().Limit(es.batchSize)
		events, err := es.storage.Filter(ctx, batch)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		reducer.AppendEvents(events...)
		if err := reducer.Reduce(); err != nil {
			return err
		}

		if uint64(len(events)) < es.batchSize {
			return nil
		}
		cursor = cursor.PositionAfter(events[len(events)-1].Position())
	}
}

// LatestPosition returns the position of the newest event matching the
// filter, or the zero position when none match.
func (es *Eventstore) LatestPosition(ctx context.Context, builder *SearchQueryBuilder) (Position, error) {
	return es.storage.LatestPosition(ctx, builder)
}

// EventsAfterPosition returns events strictly after pos matching the
// optional builder, ascending. This is the projection catch-up path.
func (es *Eventstore) EventsAfterPosition(ctx context.Context, pos Position, builder *SearchQueryBuilder) ([]Event, error) {
	if builder == nil {
		builder = NewSearchQueryBuilder()
	}
	return es.Filter(ctx, builder.clone().PositionAfter(pos).OrderAsc())
}

// InstanceIDs lists instances present in the store.
func (es *Eventstore) InstanceIDs(ctx context.Context) ([]string, error) {
	return es.storage.InstanceIDs(ctx)
}

func (es *Eventstore) Health(ctx context.Context) error {
	return es.storage.Health(ctx)
}
