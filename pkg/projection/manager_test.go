package projection_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identra/identra/pkg/apperror"
	"github.com/identra/identra/pkg/projection"
)

func TestManager(t *testing.T) {
	env := newTestEnv(t)
	ctx := testCtx("inst-1")

	m := projection.NewManager(env.es, env.db)
	m.Register(projection.NewUserProjection())
	m.Register(projection.NewOrgProjection())
	assert.Equal(t, []string{"users", "orgs"}, m.Names())

	require.NoError(t, m.Start(ctx))
	defer m.Stop()

	pushUsers(t, env.es, ctx, 0, 4)

	require.NoError(t, m.Trigger(ctx, "users"))
	assert.Equal(t, 4, countRows(t, env.db, "projections_users", "inst-1"))

	// An empty name triggers every projection.
	require.NoError(t, m.Trigger(ctx, ""))

	err := m.Trigger(ctx, "missing")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))

	require.NoError(t, m.Rebuild(ctx, "users"))
	assert.Equal(t, 4, countRows(t, env.db, "projections_users", "inst-1"))
}

func TestManager_RegisterDuplicatePanics(t *testing.T) {
	env := newTestEnv(t)

	m := projection.NewManager(env.es, env.db)
	m.Register(projection.NewUserProjection())
	assert.Panics(t, func() { m.Register(projection.NewUserProjection()) })
}
