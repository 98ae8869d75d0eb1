package projection

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/identra/identra/pkg/apperror"
	"github.com/identra/identra/pkg/eventstore"
)

// Manager owns the handlers of all registered projections and starts and
// stops them together.
type Manager struct {
	es       *eventstore.Eventstore
	db       *sql.DB
	handlers map[string]*Handler
	order    []string
	started  bool
}

func NewManager(es *eventstore.Eventstore, db *sql.DB) *Manager {
	return &Manager{
		es:       es,
		db:       db,
		handlers: make(map[string]*Handler),
	}
}

// Register adds a projection. Must be called before Start.
func (m *Manager) Register(projection Projection, opts ...HandlerOption) {
	name := projection.Name()
	if _, exists := m.handlers[name]; exists {
		panic(fmt.Sprintf("projection %q registered twice", name))
	}
	m.handlers[name] = NewHandler(projection, m.es, m.db, opts...)
	m.order = append(m.order, name)
}

// Init creates the tables of one projection, or of every registered
// projection when the name is empty.
func (m *Manager) Init(ctx context.Context, name string) error {
	if name == "" {
		for _, n := range m.order {
			if err := m.handlers[n].Init(ctx); err != nil {
				return fmt.Errorf("initializing projection %s: %w", n, err)
			}
		}
		return nil
	}

	handler, err := m.handler(name)
	if err != nil {
		return err
	}
	return handler.Init(ctx)
}

// Start launches every handler in registration order.
func (m *Manager) Start(ctx context.Context) error {
	for _, name := range m.order {
		if err := m.handlers[name].Start(ctx); err != nil {
			return fmt.Errorf("starting projection %s: %w", name, err)
		}
	}
	m.started = true
	return nil
}

// Stop terminates all handlers and waits for them.
func (m *Manager) Stop() {
	if !m.started {
		return
	}
	for _, name := range m.order {
		m.handlers[name].Stop()
	}
	m.started = false
}

// Trigger runs one synchronous catch-up. With an empty name every
// registered projection catches up.
func (m *Manager) Trigger(ctx context.Context, name string) error {
	if name == "" {
		for _, n := range m.order {
			if err := m.handlers[n].Trigger(ctx); err != nil {
				return err
			}
		}
		return nil
	}

	handler, err := m.handler(name)
	if err != nil {
		return err
	}
	return handler.Trigger(ctx)
}

// Rebuild resets one projection and replays it from the beginning of the
// log.
func (m *Manager) Rebuild(ctx context.Context, name string) error {
	handler, err := m.handler(name)
	if err != nil {
		return err
	}
	return handler.Rebuild(ctx)
}

// Names lists the registered projections in registration order.
func (m *Manager) Names() []string {
	names := make([]string, len(m.order))
	copy(names, m.order)
	return names
}

func (m *Manager) handler(name string) (*Handler, error) {
	handler, ok := m.handlers[name]
	if !ok {
		return nil, apperror.ThrowNotFound(nil, "PROJ-Mgr01", fmt.Sprintf("projection %s is not registered", name))
	}
	return handler, nil
}
