package projection

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/identra/identra/pkg/apperror"
	"github.com/identra/identra/pkg/eventstore"
	"github.com/identra/identra/pkg/telemetry"
)

const (
	// DefaultTickInterval is the fallback catch-up cadence. The bus wakes
	// the handler earlier when events arrive, the ticker covers dropped
	// signals and events committed before the handler started.
	DefaultTickInterval = 10 * time.Second

	// DefaultBatchLimit caps how many events one transaction applies.
	DefaultBatchLimit = 200

	defaultMaxRetries = 3
)

// instanceRemovedType triggers projection cleanup for the instance.
const instanceRemovedType eventstore.EventType = "instance.removed"

// Handler drives one projection: it catches up from the checkpoint on a
// ticker and whenever the bus signals new events for the projection's
// aggregate types.
type Handler struct {
	projection  Projection
	es          *eventstore.Eventstore
	db          *sql.DB
	checkpoints *CheckpointStore
	logger      *slog.Logger
	metrics     *telemetry.Metrics

	interval   time.Duration
	batchLimit uint64
	maxRetries uint64

	trigger chan struct{}
	sub     *eventstore.Subscription

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}

	// mu serializes catch-up runs; Trigger may race the tick loop.
	mu sync.Mutex
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

func WithTickInterval(interval time.Duration) HandlerOption {
	return func(h *Handler) {
		if interval > 0 {
			h.interval = interval
		}
	}
}

func WithBatchLimit(limit uint64) HandlerOption {
	return func(h *Handler) {
		if limit > 0 {
			h.batchLimit = limit
		}
	}
}

func WithMaxRetries(retries uint64) HandlerOption {
	return func(h *Handler) {
		h.maxRetries = retries
	}
}

func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

func WithHandlerMetrics(metrics *telemetry.Metrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = metrics
	}
}

func NewHandler(projection Projection, es *eventstore.Eventstore, db *sql.DB, opts ...HandlerOption) *Handler {
	h := &Handler{
		projection:  projection,
		es:          es,
		db:          db,
		checkpoints: NewCheckpointStore(db),
		logger:      slog.Default(),
		interval:    DefaultTickInterval,
		batchLimit:  DefaultBatchLimit,
		maxRetries:  defaultMaxRetries,
		trigger:     make(chan struct{}, 1),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("projection", projection.Name())
	return h
}

// Init creates the projection's tables without starting the background
// loop. Start does this implicitly; Init exists for one-shot callers
// that only want Trigger or Rebuild.
func (h *Handler) Init(ctx context.Context) error {
	return h.projection.Init(ctx, h.db)
}

// Start initializes the projection's tables, runs one catch-up, then
// keeps catching up in the background until Stop or ctx cancellation.
func (h *Handler) Start(ctx context.Context) error {
	if err := h.projection.Init(ctx, h.db); err != nil {
		return err
	}
	if err := h.Trigger(ctx); err != nil {
		h.logger.Error("initial catch-up failed", "error", err)
	}

	h.startOnce.Do(func() {
		if ps := h.es.PubSub(); ps != nil {
			h.sub = ps.SubscribeEventTypes(0, h.projection.Reducers())
			go h.forwardSignals()
		}
		go h.run(ctx)
	})
	return nil
}

// Stop terminates the background loop and waits for it to finish.
func (h *Handler) Stop() {
	h.stopOnce.Do(func() {
		if h.sub != nil {
			h.sub.Unsubscribe()
		}
		close(h.stop)
	})
	<-h.done
}

// forwardSignals collapses bus deliveries into a single pending wake-up.
// The events themselves are not consumed from the bus; the catch-up
// always reads from the store so bus drops are harmless.
func (h *Handler) forwardSignals() {
	for range h.sub.Events {
		select {
		case h.trigger <- struct{}{}:
		default:
		}
	}
}

func (h *Handler) run(ctx context.Context) {
	defer close(h.done)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stop:
			return
		case <-ticker.C:
		case <-h.trigger:
		}

		if err := h.Trigger(ctx); err != nil {
			if h.metrics != nil {
				h.metrics.ProjectionErrors.Add(ctx, 1)
			}
			h.logger.Error("catch-up failed", "error", err)
		}
	}
}

// Trigger runs one synchronous catch-up over all instances, retrying
// transient failures with exponential backoff.
func (h *Handler) Trigger(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), h.maxRetries), ctx)
	return backoff.Retry(func() error {
		return h.catchUp(ctx)
	}, policy)
}

func (h *Handler) catchUp(ctx context.Context) error {
	instanceIDs, err := h.es.InstanceIDs(ctx)
	if err != nil {
		return err
	}
	for _, instanceID := range instanceIDs {
		if err := h.catchUpInstance(ctx, instanceID); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) catchUpInstance(ctx context.Context, instanceID string) error {
	ctx, span := telemetry.StartSpan(ctx, "projection.catchup")
	var err error
	defer func() { telemetry.EndSpan(span, err) }()

	for {
		var checkpoint eventstore.Position
		checkpoint, err = h.checkpoints.Get(ctx, h.projection.Name(), instanceID)
		if err != nil {
			return err
		}

		var events []eventstore.Event
		events, err = h.es.Filter(ctx, h.searchBuilder(instanceID).
			PositionAfter(checkpoint).
			Limit(h.batchLimit))
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		if err = h.applyBatch(ctx, instanceID, events); err != nil {
			return err
		}
		if h.metrics != nil {
			h.metrics.ProjectionEvents.Add(ctx, int64(len(events)))
		}
		if uint64(len(events)) < h.batchLimit {
			return nil
		}
	}
}

// applyBatch reduces one batch and advances the checkpoint in the same
// transaction.
func (h *Handler) applyBatch(ctx context.Context, instanceID string, events []eventstore.Event) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, event := range events {
		if event.Type() == instanceRemovedType {
			if err := h.projection.CleanupInstance(ctx, tx, instanceID); err != nil {
				return err
			}
			continue
		}
		if err := h.projection.Reduce(ctx, tx, event); err != nil {
			return err
		}
	}

	last := events[len(events)-1].Position()
	if err := h.checkpoints.SetInTx(ctx, tx, h.projection.Name(), instanceID, last); err != nil {
		return err
	}
	return tx.Commit()
}

func (h *Handler) searchBuilder(instanceID string) *eventstore.SearchQueryBuilder {
	builder := eventstore.NewSearchQueryBuilder().InstanceID(instanceID).OrderAsc()
	for aggregateType, eventTypes := range h.projection.Reducers() {
		builder.AddQuery().AggregateTypes(aggregateType).EventTypes(eventTypes...)
	}
	return builder
}

// Rebuild empties the projection and its checkpoints, then replays the
// whole log. Only projections implementing Resetter can rebuild.
func (h *Handler) Rebuild(ctx context.Context) error {
	h.mu.Lock()

	err := func() error {
		resetter, ok := h.projection.(Resetter)
		if !ok {
			return errNotResettable(h.projection.Name())
		}
		if err := h.projection.Init(ctx, h.db); err != nil {
			return err
		}

		tx, err := h.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if err := resetter.Reset(ctx, tx); err != nil {
			return err
		}
		if err := h.checkpoints.ResetInTx(ctx, tx, h.projection.Name()); err != nil {
			return err
		}
		return tx.Commit()
	}()
	h.mu.Unlock()

	if err != nil {
		return err
	}
	return h.Trigger(ctx)
}

func errNotResettable(name string) error {
	return apperror.ThrowPreconditionFailed(nil, "PROJ-Rst01",
		fmt.Sprintf("projection %s does not support rebuilds", name))
}
