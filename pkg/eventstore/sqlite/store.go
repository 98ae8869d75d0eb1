// Package sqlite is the SQLite storage adapter behind the event store. It
// keeps events, unique constraints, per-instance positions, and projection
// checkpoints in one database so a push and its constraint intents commit
// atomically and projections can advance their checkpoint in the same
// transaction as their table writes.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/identra/identra/pkg/eventstore"
	"github.com/identra/identra/pkg/eventstore/sqlite/migrate"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationTable = "schema_migrations"

// Store implements eventstore.Storage on SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	// pushMu serializes push transactions. SQLite allows one writer at a
	// time; taking the lock in-process avoids SQLITE_BUSY churn between
	// concurrent appenders.
	pushMu sync.Mutex
}

type config struct {
	dsn          string
	maxOpenConns int
	autoMigrate  bool
	logger       *slog.Logger
}

// Option configures a Store.
type Option func(*config)

// WithDSN points the store at a database file, e.g. "file:identra.db".
func WithDSN(dsn string) Option {
	return func(c *config) {
		c.dsn = dsn
	}
}

// WithInMemory uses an in-memory database. The connection pool is capped
// at one connection so every query sees the same database.
func WithInMemory() Option {
	return func(c *config) {
		c.dsn = "file::memory:"
		c.maxOpenConns = 1
	}
}

// WithMaxOpenConns caps the connection pool. Ignored for in-memory
// databases.
func WithMaxOpenConns(n int) Option {
	return func(c *config) {
		if n > 0 && !strings.Contains(c.dsn, ":memory:") {
			c.maxOpenConns = n
		}
	}
}

// WithoutAutoMigrate skips running migrations in New. Callers then run
// Migrate themselves, typically from the migrate CLI command.
func WithoutAutoMigrate() Option {
	return func(c *config) {
		c.autoMigrate = false
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// New opens the database, applies pragmas, and unless disabled runs all
// pending migrations.
func New(opts ...Option) (*Store, error) {
	cfg := &config{
		dsn:          "file:identra.db",
		maxOpenConns: 4,
		autoMigrate:  true,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	db, err := sql.Open("sqlite", withPragmas(cfg.dsn))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	db.SetMaxOpenConns(cfg.maxOpenConns)

	store := &Store{db: db, logger: cfg.logger}
	if cfg.autoMigrate {
		if err := store.Migrate(); err != nil {
			db.Close()
			return nil, err
		}
	}
	return store, nil
}

// withPragmas appends the connection pragmas so every pooled connection
// gets them, not only the one an Exec would run on.
func withPragmas(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join([]string{
		"_pragma=journal_mode(WAL)",
		"_pragma=busy_timeout(5000)",
		"_pragma=synchronous(NORMAL)",
		"_pragma=foreign_keys(1)",
	}, "&")
}

// Migrate applies all pending schema migrations.
func (s *Store) Migrate() error {
	migrator := migrate.New(s.db, migrationTable)
	if err := migrator.LoadFromFS(migrationsFS, "migrations"); err != nil {
		return err
	}
	return migrator.Up()
}

// DB exposes the underlying handle. Projections use it to write their
// tables and checkpoint in one transaction.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var _ eventstore.Storage = (*Store)(nil)
