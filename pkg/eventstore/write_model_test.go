package eventstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteModel_Reduce(t *testing.T) {
	wm := &WriteModel{}
	require.NoError(t, wm.Reduce())
	assert.Zero(t, wm.ProcessedSequence)

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	aggregate := &Aggregate{ID: "org-1", Type: "org", ResourceOwner: "org-1", InstanceID: "inst-1"}

	wm.AppendEvents(
		NewBaseEventFromStorage(aggregate, "org.added", 1, Position{Position: 7}, created, "tester", nil),
		NewBaseEventFromStorage(aggregate, "org.changed", 2, Position{Position: 7, InTxOrder: 1}, created, "tester", nil),
	)
	require.NoError(t, wm.Reduce())

	assert.Equal(t, "org-1", wm.AggregateID)
	assert.Equal(t, "inst-1", wm.InstanceID)
	assert.Equal(t, "org-1", wm.ResourceOwner)
	assert.Equal(t, uint64(2), wm.ProcessedSequence)
	assert.Equal(t, created, wm.ChangeDate)
	assert.Equal(t, Position{Position: 7, InTxOrder: 1}, wm.Position)
	assert.Equal(t, uint64(2), wm.EventsApplied)
	assert.Empty(t, wm.Events)

	// A later fold advances the envelope.
	wm.AppendEvents(
		NewBaseEventFromStorage(aggregate, "org.deactivated", 3, Position{Position: 9}, created.Add(time.Minute), "tester", nil),
	)
	require.NoError(t, wm.Reduce())
	assert.Equal(t, uint64(3), wm.ProcessedSequence)
	assert.Equal(t, uint64(3), wm.EventsApplied)
}

func TestAppendAndReduce(t *testing.T) {
	aggregate := &Aggregate{ID: "org-1", Type: "org", ResourceOwner: "org-1", InstanceID: "inst-1"}
	wm := &WriteModel{}

	err := AppendAndReduce(wm,
		NewBaseEventFromStorage(aggregate, "org.added", 1, Position{Position: 3}, time.Now(), "tester", nil),
	)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), wm.ProcessedSequence)
}
