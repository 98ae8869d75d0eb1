package eventstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identra/identra/pkg/apperror"
)

// stubStorage serves canned events and records pushed commands.
type stubStorage struct {
	events  []Event
	pushed  []Command
	filters []*SearchQueryBuilder
}

func (s *stubStorage) Health(context.Context) error { return nil }

func (s *stubStorage) Push(_ context.Context, commands ...Command) ([]Event, error) {
	s.pushed = append(s.pushed, commands...)
	return s.events, nil
}

func (s *stubStorage) Filter(_ context.Context, builder *SearchQueryBuilder) ([]Event, error) {
	s.filters = append(s.filters, builder)

	matching := make([]Event, 0, len(s.events))
	for _, event := range s.events {
		if after := builder.GetPositionAfter(); !after.IsZero() && !event.Position().After(after) {
			continue
		}
		matching = append(matching, event)
	}
	if limit := builder.GetLimit(); limit > 0 && uint64(len(matching)) > limit {
		matching = matching[:limit]
	}
	return matching, nil
}

func (s *stubStorage) LatestPosition(context.Context, *SearchQueryBuilder) (Position, error) {
	if len(s.events) == 0 {
		return Position{}, nil
	}
	return s.events[len(s.events)-1].Position(), nil
}

func (s *stubStorage) InstanceIDs(context.Context) ([]string, error) {
	return []string{"inst-1"}, nil
}

func storedEvents(n int) []Event {
	events := make([]Event, n)
	for i := range events {
		events[i] = NewBaseEventFromStorage(
			&Aggregate{ID: "agg-1", Type: "org", ResourceOwner: "org-1", InstanceID: "inst-1"},
			"org.changed", uint64(i+1), Position{Position: uint64(i + 1)},
			time.Now(), "tester", nil,
		)
	}
	return events
}

func TestEventstore_PushValidation(t *testing.T) {
	es := New(&stubStorage{})
	ctx := context.Background()

	t.Run("empty batch", func(t *testing.T) {
		_, err := es.Push(ctx)
		assert.True(t, apperror.IsInvalidArgument(err))
	})

	t.Run("missing aggregate id", func(t *testing.T) {
		cmd := NewBaseEventFromStorage(&Aggregate{Type: "org", InstanceID: "inst-1"}, "org.added", 0, Position{}, time.Time{}, "", nil)
		_, err := es.Push(ctx, cmd)
		assert.True(t, apperror.IsInvalidArgument(err))
	})

	t.Run("missing instance", func(t *testing.T) {
		cmd := NewBaseEventFromStorage(&Aggregate{ID: "agg-1", Type: "org"}, "org.added", 0, Position{}, time.Time{}, "", nil)
		_, err := es.Push(ctx, cmd)
		assert.True(t, apperror.IsInvalidArgument(err))
	})

	t.Run("missing event type", func(t *testing.T) {
		cmd := NewBaseEventFromStorage(&Aggregate{ID: "agg-1", Type: "org", InstanceID: "inst-1"}, "", 0, Position{}, time.Time{}, "", nil)
		_, err := es.Push(ctx, cmd)
		assert.True(t, apperror.IsInvalidArgument(err))
	})
}

func TestEventstore_PushPublishes(t *testing.T) {
	storage := &stubStorage{events: storedEvents(2)}
	ps := NewPubSub()
	es := New(storage, WithPubSub(ps))

	sub := ps.SubscribeAggregates(10, "org")
	defer sub.Unsubscribe()

	cmd := NewBaseEventFromStorage(
		&Aggregate{ID: "agg-1", Type: "org", ResourceOwner: "org-1", InstanceID: "inst-1"},
		"org.changed", 0, Position{}, time.Time{}, "tester", nil,
	)
	events, err := es.Push(context.Background(), cmd)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, uint64(1), receive(t, sub).Sequence())
	assert.Equal(t, uint64(2), receive(t, sub).Sequence())
}

func TestEventstore_FilterToReducer(t *testing.T) {
	storage := &stubStorage{events: storedEvents(25)}
	es := New(storage, WithQueryBatchSize(10))

	wm := &WriteModel{}
	err := es.FilterToReducer(context.Background(), NewSearchQueryBuilder().InstanceID("inst-1"), wm)
	require.NoError(t, err)

	assert.Equal(t, uint64(25), wm.EventsApplied)
	assert.Equal(t, uint64(25), wm.ProcessedSequence)

	// Three round trips: 10, 10, 5.
	require.Len(t, storage.filters, 3)
	assert.True(t, storage.filters[0].GetPositionAfter().IsZero())
	assert.Equal(t, uint64(10), storage.filters[1].GetPositionAfter().Position)
	assert.Equal(t, uint64(20), storage.filters[2].GetPositionAfter().Position)
}

func TestEventstore_FilterToReducerDoesNotMutateBuilder(t *testing.T) {
	storage := &stubStorage{events: storedEvents(5)}
	es := New(storage, WithQueryBatchSize(2))

	builder := NewSearchQueryBuilder().InstanceID("inst-1").Limit(99)
	require.NoError(t, es.FilterToReducer(context.Background(), builder, &WriteModel{}))

	assert.Equal(t, uint64(99), builder.GetLimit())
	assert.True(t, builder.GetPositionAfter().IsZero())
}

func TestEventstore_EventsAfterPosition(t *testing.T) {
	storage := &stubStorage{events: storedEvents(5)}
	es := New(storage)

	events, err := es.EventsAfterPosition(context.Background(), Position{Position: 3}, nil)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, uint64(4), events[0].Position().Position)
}
