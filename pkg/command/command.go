// Package command implements the write side: every mutation validates its
// inputs, loads a write model, checks preconditions against the folded
// state, and appends events in one transaction. Commands return object
// details (sequence, event date, resource owner) and, where applicable,
// one-time secrets that are never readable afterwards.
package command

import (
	"context"
	"log/slog"

	"github.com/identra/identra/pkg/authz"
	"github.com/identra/identra/pkg/crypto"
	"github.com/identra/identra/pkg/domain"
	"github.com/identra/identra/pkg/eventstore"
	"github.com/identra/identra/pkg/id"
)

// Commands bundles the services every command handler needs. Safe for
// concurrent use; write models are created per call and never shared.
type Commands struct {
	es        *eventstore.Eventstore
	idGen     id.Generator
	checker   authz.Checker
	hasher    *crypto.Hasher
	encrypter *crypto.Encrypter
	logger    *slog.Logger
}

// Option configures Commands.
type Option func(*Commands)

func WithIDGenerator(gen id.Generator) Option {
	return func(c *Commands) {
		c.idGen = gen
	}
}

func WithPermissionChecker(checker authz.Checker) Option {
	return func(c *Commands) {
		c.checker = checker
	}
}

func WithHasher(hasher *crypto.Hasher) Option {
	return func(c *Commands) {
		c.hasher = hasher
	}
}

// WithEncrypter enables commands that persist recoverable secrets (TOTP
// seeds). Without it those commands fail their precondition check.
func WithEncrypter(encrypter *crypto.Encrypter) Option {
	return func(c *Commands) {
		c.encrypter = encrypter
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Commands) {
		c.logger = logger
	}
}

func NewCommands(es *eventstore.Eventstore, opts ...Option) *Commands {
	c := &Commands{
		es:      es,
		idGen:   id.NewGenerator(),
		checker: authz.NewRoleChecker(),
		hasher:  crypto.NewHasher(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// pushAppendAndReduce pushes the commands and folds the stored events into
// the model, so the caller's object details reflect the post-push state.
func (c *Commands) pushAppendAndReduce(ctx context.Context, model eventstore.Reducer, commands ...eventstore.Command) error {
	events, err := c.es.Push(ctx, commands...)
	if err != nil {
		return err
	}
	return eventstore.AppendAndReduce(model, events...)
}

func writeModelToObjectDetails(wm *eventstore.WriteModel) *domain.ObjectDetails {
	return &domain.ObjectDetails{
		Sequence:      wm.ProcessedSequence,
		EventDate:     wm.ChangeDate,
		ResourceOwner: wm.ResourceOwner,
	}
}

// aggregateFromWriteModel rebuilds the aggregate coordinates of a loaded
// write model for follow-up events.
func aggregateFromWriteModel(ctx context.Context, wm *eventstore.WriteModel, typ eventstore.AggregateType) *eventstore.Aggregate {
	instanceID := wm.InstanceID
	if instanceID == "" {
		instanceID = authz.InstanceID(ctx)
	}
	return &eventstore.Aggregate{
		ID:            wm.AggregateID,
		Type:          typ,
		ResourceOwner: wm.ResourceOwner,
		InstanceID:    instanceID,
	}
}

// loadWriteModel streams the aggregate's events into the model.
func (c *Commands) loadWriteModel(ctx context.Context, model eventstore.Reducer, aggregateType eventstore.AggregateType, aggregateID, resourceOwner string) error {
	builder := eventstore.NewSearchQueryBuilder().
		InstanceID(authz.InstanceID(ctx)).
		ResourceOwner(resourceOwner).
		OrderAsc()
	builder.AddQuery().
		AggregateTypes(aggregateType).
		AggregateIDs(aggregateID)
	return c.es.FilterToReducer(ctx, builder, model)
}
