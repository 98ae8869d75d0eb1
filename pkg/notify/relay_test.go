package notify_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identra/identra/pkg/authz"
	"github.com/identra/identra/pkg/command"
	"github.com/identra/identra/pkg/eventstore"
	"github.com/identra/identra/pkg/eventstore/sqlite"
	"github.com/identra/identra/pkg/notify"
)

func TestRelay_PublishesCommittedEvents(t *testing.T) {
	srv, err := notify.StartEmbeddedServer(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(srv.Shutdown)

	store, err := sqlite.New(sqlite.WithInMemory())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	es := eventstore.New(store, eventstore.WithPubSub(eventstore.NewPubSub()))

	config := notify.DefaultConfig()
	config.URL = srv.URL()
	relay, err := notify.NewRelay(config)
	require.NoError(t, err)
	t.Cleanup(relay.Close)
	require.NoError(t, relay.Start(context.Background(), es, config))

	// Consume from JetStream what the relay forwards.
	nc, err := nats.Connect(srv.URL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)
	js, err := nc.JetStream()
	require.NoError(t, err)
	sub, err := js.SubscribeSync("events.user.>", nats.BindStream(notify.DefaultStreamName))
	require.NoError(t, err)

	ctx := authz.WithContext(context.Background(), authz.Context{
		InstanceID: "inst-1",
		ActorID:    "tester",
	})
	aggregate := eventstore.NewAggregate(ctx, "user-1", command.UserAggregateType, "org-1")
	_, err = es.Push(ctx, command.NewHumanAddedEvent(ctx, aggregate, "john", "John", "Doe", "john@example.com", ""))
	require.NoError(t, err)

	msg, err := sub.NextMsg(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "events.user.user.human.added", msg.Subject)

	var envelope notify.Envelope
	require.NoError(t, json.Unmarshal(msg.Data, &envelope))
	assert.Equal(t, "inst-1", envelope.InstanceID)
	assert.Equal(t, "user-1", envelope.AggregateID)
	assert.Equal(t, uint64(1), envelope.Sequence)
	assert.Equal(t, "tester", envelope.Creator)

	var payload struct {
		Username string `json:"username"`
	}
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.Equal(t, "john", payload.Username)
}

func TestRelay_StartWithoutBusFails(t *testing.T) {
	srv, err := notify.StartEmbeddedServer(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(srv.Shutdown)

	store, err := sqlite.New(sqlite.WithInMemory())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	config := notify.DefaultConfig()
	config.URL = srv.URL()
	relay, err := notify.NewRelay(config)
	require.NoError(t, err)
	t.Cleanup(relay.Close)

	// The store was built without a bus, so there is nothing to relay.
	err = relay.Start(context.Background(), eventstore.New(store), config)
	assert.ErrorIs(t, err, notify.ErrNoPubSub)
}
