package eventstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widgetAddedEvent struct {
	BaseEvent

	Name  string `json:"name"`
	Count int    `json:"count,omitempty"`
}

func TestMapEvent(t *testing.T) {
	RegisterEventMapper("widget.added", GenericEventMapper[widgetAddedEvent])

	aggregate := &Aggregate{ID: "widget-1", Type: "widget", ResourceOwner: "org-1", InstanceID: "inst-1"}

	t.Run("registered type hydrates the typed struct", func(t *testing.T) {
		base := NewBaseEventFromStorage(aggregate, "widget.added", 1, Position{Position: 1},
			time.Now(), "tester", []byte(`{"name":"gear","count":3}`))

		event, err := MapEvent(base)
		require.NoError(t, err)

		added, ok := event.(*widgetAddedEvent)
		require.True(t, ok)
		assert.Equal(t, "gear", added.Name)
		assert.Equal(t, 3, added.Count)
		assert.Equal(t, uint64(1), added.Sequence())
		assert.Equal(t, aggregate, added.Aggregate())
	})

	t.Run("unknown payload fields are tolerated", func(t *testing.T) {
		base := NewBaseEventFromStorage(aggregate, "widget.added", 2, Position{Position: 2},
			time.Now(), "tester", []byte(`{"name":"gear","added_later":true}`))

		event, err := MapEvent(base)
		require.NoError(t, err)
		assert.Equal(t, "gear", event.(*widgetAddedEvent).Name)
	})

	t.Run("unregistered type falls back to the bare envelope", func(t *testing.T) {
		base := NewBaseEventFromStorage(aggregate, "widget.retired", 3, Position{Position: 3},
			time.Now(), "tester", []byte(`{"reason":"worn"}`))

		event, err := MapEvent(base)
		require.NoError(t, err)
		assert.Same(t, base, event)
		assert.Equal(t, EventType("widget.retired"), event.Type())
	})

	t.Run("invalid payload fails", func(t *testing.T) {
		base := NewBaseEventFromStorage(aggregate, "widget.added", 4, Position{Position: 4},
			time.Now(), "tester", []byte(`not json`))

		_, err := MapEvent(base)
		require.Error(t, err)
	})
}
