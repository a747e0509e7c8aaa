package manager

import (
	"context"
)

// Restart drops the tenant's runtime and compiled commands together. The
// registry is reloaded from the store on next use.
//
// With force, an Execute holding the tenant is released first and returns
// GUEST_RUNTIME_ERROR wrapping script.ErrAbandoned. If its guest was already
// running, the guest's context is cancelled and it stops at its next
// instruction on the retired runtime; otherwise it never starts.
func (m *Manager) Restart(ctx context.Context, tenant string, force bool) error {
	h := m.tenants.Get(tenant)
	defer h.Release()
	t := h.Value()

	if force && t.abandonExecution() {
		m.logger.Warn("abandoning running execution", "tenant", tenant)
	}

	if err := t.lock.Lock(ctx); err != nil {
		return err
	}
	defer t.lock.Unlock()

	t.sandbox.Restart()
	m.logger.Info("tenant restarted", "tenant", tenant, "force", force)
	return nil
}

// ClearTenant deletes every command and the execution history of tenant.
//
// The tenant lock is held for the whole store transaction and the registry
// is pinned empty (not unhydrated) before the lock is released, so no
// execution can observe or reload data mid-clear.
func (m *Manager) ClearTenant(ctx context.Context, tenant string) error {
	return m.withTenant(ctx, tenant, func(t *tenantState) error {
		if err := m.store.ClearTenant(ctx, tenant); err != nil {
			// The transaction rolled back; reload on next use.
			t.sandbox.Restart()
			return newError(CodePersistenceFailure, tenant, "", err, "clear tenant")
		}
		t.sandbox.Clear()
		m.logger.Info("tenant cleared", "tenant", tenant)

		return m.republish(ctx, t)
	})
}
