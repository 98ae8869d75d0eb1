package eventstore

import "time"

// Reducer folds batches of events into state. FilterToReducer appends each
// batch, then calls Reduce; the final batch may be smaller than the batch
// size.
type Reducer interface {
	AppendEvents(...Event)
	Reduce() error
}

// WriteModel is the in-memory fold a command checks its preconditions
// against. Concrete write models embed it, add their state fields, and
// override Reduce to fold their typed events before delegating here.
//
// A write model is created empty, loaded once, used by a single command,
// and discarded. It is never shared between concurrent operations.
type WriteModel struct {
	AggregateID       string
	InstanceID        string
	ResourceOwner     string
	ProcessedSequence uint64
	ChangeDate        time.Time
	Position          Position

	// EventsApplied counts folded events, for debugging only.
	EventsApplied uint64

	// Events buffers appended-but-not-yet-reduced events.
	Events []Event
}

func (wm *WriteModel) AppendEvents(events ...Event) {
	wm.Events = append(wm.Events, events...)
}

// Reduce advances the envelope bookkeeping over the buffered events and
// clears the buffer. Concrete write models call it last in their own
// Reduce.
func (wm *WriteModel) Reduce() error {
	if len(wm.Events) == 0 {
		return nil
	}

	last := wm.Events[len(wm.Events)-1]
	if wm.AggregateID == "" {
		wm.AggregateID = last.Aggregate().ID
	}
	if wm.ResourceOwner == "" {
		wm.ResourceOwner = last.Aggregate().ResourceOwner
	}
	wm.InstanceID = last.Aggregate().InstanceID
	wm.ProcessedSequence = last.Sequence()
	wm.ChangeDate = last.CreatedAt()
	wm.Position = last.Position()
	wm.EventsApplied += uint64(len(wm.Events))

	wm.Events = wm.Events[:0]
	return nil
}

// AppendAndReduce folds freshly pushed events into the write model so the
// returned object details reflect the post-push state without a reload.
func AppendAndReduce(model Reducer, events ...Event) error {
	model.AppendEvents(events...)
	return model.Reduce()
}
