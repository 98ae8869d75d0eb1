package projection_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identra/identra/pkg/authz"
	"github.com/identra/identra/pkg/command"
	"github.com/identra/identra/pkg/eventstore"
	"github.com/identra/identra/pkg/eventstore/sqlite"
	"github.com/identra/identra/pkg/projection"
)

type testEnv struct {
	es *eventstore.Eventstore
	db *sql.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := sqlite.New(sqlite.WithInMemory())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return &testEnv{es: eventstore.New(store), db: store.DB()}
}

func testCtx(instanceID string) context.Context {
	return authz.WithContext(context.Background(), authz.Context{
		InstanceID: instanceID,
		ActorID:    "tester",
	})
}

// pushUsers appends count user.human.added events, one aggregate each.
func pushUsers(t *testing.T, es *eventstore.Eventstore, ctx context.Context, offset, count int) {
	t.Helper()
	commands := make([]eventstore.Command, 0, count)
	for i := offset; i < offset+count; i++ {
		userID := fmt.Sprintf("user-%04d", i)
		aggregate := eventstore.NewAggregate(ctx, userID, command.UserAggregateType, "org-1")
		commands = append(commands, command.NewHumanAddedEvent(ctx, aggregate,
			fmt.Sprintf("user%04d", i), "Jane", "Doe", fmt.Sprintf("u%04d@example.com", i), ""))
	}
	_, err := es.Push(ctx, commands...)
	require.NoError(t, err)
}

func countRows(t *testing.T, db *sql.DB, table, instanceID string) int {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM `+table+` WHERE instance_id = ?`, instanceID).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestHandler_CatchUpInBatches(t *testing.T) {
	env := newTestEnv(t)
	ctx := testCtx("inst-1")

	pushUsers(t, env.es, ctx, 0, 100)
	pushUsers(t, env.es, ctx, 100, 100)
	pushUsers(t, env.es, ctx, 200, 50)

	p := projection.NewUserProjection()
	h := projection.NewHandler(p, env.es, env.db, projection.WithBatchLimit(100))
	require.NoError(t, p.Init(ctx, env.db))

	require.NoError(t, h.Trigger(ctx))
	assert.Equal(t, 250, countRows(t, env.db, "projections_users", "inst-1"))

	// The checkpoint sits at the log's head.
	checkpoints := projection.NewCheckpointStore(env.db)
	pos, err := checkpoints.Get(ctx, p.Name(), "inst-1")
	require.NoError(t, err)
	head, err := env.es.LatestPosition(ctx, eventstore.NewSearchQueryBuilder().InstanceID("inst-1"))
	require.NoError(t, err)
	assert.Equal(t, head, pos)

	// New events after a pause are picked up exactly once.
	pushUsers(t, env.es, ctx, 250, 10)
	require.NoError(t, h.Trigger(ctx))
	assert.Equal(t, 260, countRows(t, env.db, "projections_users", "inst-1"))

	// A re-run with nothing new changes nothing.
	require.NoError(t, h.Trigger(ctx))
	assert.Equal(t, 260, countRows(t, env.db, "projections_users", "inst-1"))
}

func TestHandler_LiveWakeup(t *testing.T) {
	env := newTestEnv(t)
	ctx := testCtx("inst-1")

	p := projection.NewUserProjection()
	h := projection.NewHandler(p, env.es, env.db,
		projection.WithTickInterval(100*time.Millisecond))
	require.NoError(t, h.Start(ctx))
	defer h.Stop()

	pushUsers(t, env.es, ctx, 0, 3)

	// Within two tick intervals every pushed event must be reflected.
	require.Eventually(t, func() bool {
		return countRows(t, env.db, "projections_users", "inst-1") == 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_ReduceIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := testCtx("inst-1")

	pushUsers(t, env.es, ctx, 0, 1)
	events, err := env.es.Filter(ctx, eventstore.NewSearchQueryBuilder().
		InstanceID("inst-1").OrderAsc())
	require.NoError(t, err)
	require.Len(t, events, 1)

	p := projection.NewUserProjection()
	require.NoError(t, p.Init(ctx, env.db))

	apply := func() {
		tx, err := env.db.BeginTx(ctx, nil)
		require.NoError(t, err)
		require.NoError(t, p.Reduce(ctx, tx, events[0]))
		require.NoError(t, tx.Commit())
	}
	apply()
	apply()

	assert.Equal(t, 1, countRows(t, env.db, "projections_users", "inst-1"))
	var username string
	require.NoError(t, env.db.QueryRow(
		`SELECT username FROM projections_users WHERE instance_id = ? AND user_id = ?`,
		"inst-1", "user-0000").Scan(&username))
	assert.Equal(t, "user0000", username)
}

func TestHandler_Rebuild(t *testing.T) {
	env := newTestEnv(t)
	ctx := testCtx("inst-1")

	pushUsers(t, env.es, ctx, 0, 5)

	p := projection.NewUserProjection()
	h := projection.NewHandler(p, env.es, env.db)
	require.NoError(t, p.Init(ctx, env.db))
	require.NoError(t, h.Trigger(ctx))
	require.Equal(t, 5, countRows(t, env.db, "projections_users", "inst-1"))

	// Corrupt the table, then rebuild from the log.
	_, err := env.db.Exec(`UPDATE projections_users SET username = 'garbage'`)
	require.NoError(t, err)

	require.NoError(t, h.Rebuild(ctx))
	assert.Equal(t, 5, countRows(t, env.db, "projections_users", "inst-1"))
	var username string
	require.NoError(t, env.db.QueryRow(
		`SELECT username FROM projections_users WHERE user_id = 'user-0000'`).Scan(&username))
	assert.Equal(t, "user0000", username)
}

func TestHandler_InstanceCleanup(t *testing.T) {
	env := newTestEnv(t)
	ctxA := testCtx("inst-a")
	ctxB := testCtx("inst-b")

	pushUsers(t, env.es, ctxA, 0, 3)
	pushUsers(t, env.es, ctxB, 0, 2)

	p := projection.NewUserProjection()
	h := projection.NewHandler(p, env.es, env.db)
	require.NoError(t, p.Init(ctxA, env.db))
	require.NoError(t, h.Trigger(ctxA))
	require.Equal(t, 3, countRows(t, env.db, "projections_users", "inst-a"))
	require.Equal(t, 2, countRows(t, env.db, "projections_users", "inst-b"))

	// Removing instance A drops its rows and leaves B untouched.
	aggregate := eventstore.NewAggregate(ctxA, "inst-a", command.InstanceAggregateType, "inst-a")
	_, err := env.es.Push(ctxA, command.NewInstanceRemovedEvent(ctxA, aggregate))
	require.NoError(t, err)

	require.NoError(t, h.Trigger(ctxA))
	assert.Equal(t, 0, countRows(t, env.db, "projections_users", "inst-a"))
	assert.Equal(t, 2, countRows(t, env.db, "projections_users", "inst-b"))
}
