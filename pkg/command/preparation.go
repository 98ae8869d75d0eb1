package command

import (
	"context"

	"github.com/identra/identra/pkg/eventstore"
)

// FilterFunc reads committed events during preparation. Steps use it for
// referential checks against state that existed before the composite
// command started.
type FilterFunc func(ctx context.Context, builder *eventstore.SearchQueryBuilder) ([]eventstore.Event, error)

// Step produces the next slice of commands of a composite operation. It
// sees everything earlier steps produced via pending, so later steps can
// validate against intermediate state without anything being committed
// yet.
type Step func(ctx context.Context, filter FilterFunc, pending []eventstore.Command) ([]eventstore.Command, error)

// prepareCommands threads a growing pending list through all steps in
// order. Nothing is pushed here; the caller pushes the returned commands
// in one transaction, which keeps composite operations atomic.
func (c *Commands) prepareCommands(ctx context.Context, steps ...Step) ([]eventstore.Command, error) {
	var pending []eventstore.Command
	for _, step := range steps {
		commands, err := step(ctx, c.es.Filter, pending)
		if err != nil {
			return nil, err
		}
		pending = append(pending, commands...)
	}
	return pending, nil
}
