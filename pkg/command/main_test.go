package command_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/identra/identra/pkg/authz"
	"github.com/identra/identra/pkg/command"
	"github.com/identra/identra/pkg/crypto"
	"github.com/identra/identra/pkg/eventstore"
	"github.com/identra/identra/pkg/eventstore/sqlite"
)

// testKeeperURL is a throwaway local key, for tests only.
const testKeeperURL = "base64key://smGbjm71Nxd1Ig5FS0wj9SlbzAIrnolCz9bQQ6uAhl4="

func newTestCommands(t *testing.T) *command.Commands {
	t.Helper()

	store, err := sqlite.New(sqlite.WithInMemory())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	encrypter, err := crypto.NewEncrypter(context.Background(), testKeeperURL)
	require.NoError(t, err)
	t.Cleanup(func() { encrypter.Close() })

	// Minimum bcrypt cost keeps the suite fast; the lowered entropy floor
	// accepts the plain test passwords while still rejecting "short".
	hasher := crypto.NewHasher(crypto.WithCost(crypto.MinCost), crypto.WithMinEntropyBits(30))

	return command.NewCommands(eventstore.New(store),
		command.WithEncrypter(encrypter),
		command.WithHasher(hasher),
	)
}

func adminCtx(instanceID string) context.Context {
	return authz.WithContext(context.Background(), authz.Context{
		InstanceID: instanceID,
		ActorID:    "admin-1",
		Roles:      []string{authz.RoleSystem},
	})
}
