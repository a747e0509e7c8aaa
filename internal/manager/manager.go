package manager

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/guildscript/internal/cache"
	"github.com/roach88/guildscript/internal/ir"
	"github.com/roach88/guildscript/internal/surface"
)

// DefaultSweepInterval is how often idle tenants are considered for eviction.
const DefaultSweepInterval = 5 * time.Minute

// Store is the persistence collaborator. store.Store implements it.
type Store interface {
	FetchAll(ctx context.Context, tenant string) ([]ir.Record, error)
	Upsert(ctx context.Context, tenant string, rec ir.Record) error
	Remove(ctx context.Context, tenant, name string) error
	ClearTenant(ctx context.Context, tenant string) error
	RecordExecution(ctx context.Context, exec ir.Execution) (int64, error)
	ListExecutions(ctx context.Context, tenant string, limit int) ([]ir.Execution, error)
}

// Manager owns every tenant's commands, sandbox and lock.
//
// Thread-safety: all methods are safe for concurrent use. Operations on the
// same tenant serialize; operations on different tenants run in parallel.
type Manager struct {
	store     Store
	publisher surface.Publisher
	tenants   *cache.Cache[string, tenantState]

	logger        *slog.Logger
	ids           IDGenerator
	maxCommands   int
	timeout       time.Duration
	sweepInterval time.Duration
	group         string
}

// Option configures a Manager.
type Option func(*Manager)

// WithMaxCommands sets the per-tenant command limit.
//
// Default: 25 (DefaultMaxCommands)
func WithMaxCommands(n int) Option {
	return func(m *Manager) {
		m.maxCommands = n
	}
}

// WithExecutionTimeout bounds each guest call. Zero means no limit beyond
// the caller's context.
func WithExecutionTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.timeout = d
	}
}

// WithSweepInterval sets the interval used by Run.
func WithSweepInterval(d time.Duration) Option {
	return func(m *Manager) {
		m.sweepInterval = d
	}
}

// WithIDGenerator sets the execution id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(m *Manager) {
		m.ids = g
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithGroupName sets the name of the published grouping command.
//
// Default: "custom" (surface.DefaultGroup)
func WithGroupName(name string) Option {
	return func(m *Manager) {
		m.group = name
	}
}

// New creates a Manager backed by st, publishing through pub.
func New(st Store, pub surface.Publisher, opts ...Option) *Manager {
	m := &Manager{
		store:         st,
		publisher:     pub,
		logger:        slog.Default(),
		ids:           UUIDv7Generator{},
		maxCommands:   DefaultMaxCommands,
		sweepInterval: DefaultSweepInterval,
		group:         surface.DefaultGroup,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.tenants = cache.New(
		func(id string) *tenantState {
			return newTenantState(id, m.logger)
		},
		cache.WithOnEvict(func(id string, t *tenantState) {
			t.sandbox.Close()
			m.logger.Debug("tenant evicted", "tenant", id)
		}),
	)
	return m
}

// Run evicts idle tenants every sweep interval until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	m.logger.Info("tenant sweeper starting", "interval", m.sweepInterval)
	m.tenants.Run(ctx, m.sweepInterval)
	m.logger.Info("tenant sweeper stopping")
}

// Sweep runs one eviction pass and returns the number of tenants evicted.
func (m *Manager) Sweep() int {
	return m.tenants.Sweep()
}

// Tenants returns the number of tenants with a live runtime.
func (m *Manager) Tenants() int {
	return m.tenants.Len()
}

// Close drops every tenant's runtime.
func (m *Manager) Close() {
	m.tenants.Close()
}

// GroupName returns the name of the published grouping command.
func (m *Manager) GroupName() string {
	return m.group
}

// withTenant runs fn holding tenant's lock. The cache handle is held for the
// duration so the tenant cannot be evicted mid-operation.
func (m *Manager) withTenant(ctx context.Context, tenant string, fn func(*tenantState) error) error {
	h := m.tenants.Get(tenant)
	defer h.Release()
	t := h.Value()

	if err := t.lock.Lock(ctx); err != nil {
		return err
	}
	defer t.lock.Unlock()

	return fn(t)
}

// hydrate loads the tenant's registry from the store if needed.
func (m *Manager) hydrate(ctx context.Context, t *tenantState) error {
	err := t.sandbox.Hydrate(ctx, func(ctx context.Context) ([]ir.Record, error) {
		return m.store.FetchAll(ctx, t.id)
	})
	if err != nil {
		return newError(CodePersistenceFailure, t.id, "", err, "load commands")
	}
	return nil
}

// republish publishes or retracts the grouping command for the current registry.
func (m *Manager) republish(ctx context.Context, t *tenantState) error {
	records := t.sandbox.Registry().Records()
	if err := surface.Sync(ctx, m.publisher, t.id, m.group, records); err != nil {
		m.logger.Error("grouping command sync failed", "tenant", t.id, "error", err)
		return newError(CodePlatformSyncError, t.id, "", err, "sync grouping command")
	}
	m.logger.Debug("grouping command synced", "tenant", t.id, "commands", len(records))
	return nil
}

// Republish publishes the tenant's grouping command, or retracts it if the
// tenant has no commands. Idempotent.
func (m *Manager) Republish(ctx context.Context, tenant string) error {
	return m.withTenant(ctx, tenant, func(t *tenantState) error {
		if err := m.hydrate(ctx, t); err != nil {
			return err
		}
		return m.republish(ctx, t)
	})
}
