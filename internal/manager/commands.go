package manager

import (
	"context"

	"github.com/roach88/guildscript/internal/ir"
	"github.com/roach88/guildscript/internal/script"
)

// prepare normalises and validates a submitted definition.
func prepare(tenant string, def ir.Definition, origin string) (ir.Record, error) {
	def = ir.NormalizeDefinition(def)
	if err := ir.ValidateDefinition(def); err != nil {
		return ir.Record{}, newError(CodeSubmissionRejected, tenant, def.Name, err, "invalid definition")
	}
	rec := def.Record(origin)
	// Throwaway compile: no runtime, no execution, nothing written.
	if _, err := script.Validate(rec.Label(), rec.Source); err != nil {
		return ir.Record{}, newError(CodeSubmissionRejected, tenant, rec.Name, err, "source does not compile")
	}
	return rec, nil
}

// Prepare checks a definition the way Register does, without a tenant or
// a store. The returned record is normalised.
func Prepare(def ir.Definition, origin string) (ir.Record, error) {
	return prepare("", def, origin)
}

// Register adds a new command to tenant.
//
// Fails with SUBMISSION_REJECTED when the tenant is at its command limit,
// the name is taken, the definition is invalid or the source does not
// compile. On success the command is persisted, added to the registry and
// the grouping command is republished.
func (m *Manager) Register(ctx context.Context, tenant string, def ir.Definition, origin string) error {
	return m.withTenant(ctx, tenant, func(t *tenantState) error {
		if err := m.hydrate(ctx, t); err != nil {
			return err
		}
		reg := t.sandbox.Registry()
		name := ir.NormalizeName(def.Name)

		if err := checkQuota(tenant, reg.Len(), m.maxCommands); err != nil {
			return newError(CodeSubmissionRejected, tenant, name, err, "command limit reached")
		}
		if _, exists := reg.Get(name); exists {
			return newError(CodeSubmissionRejected, tenant, name, nil, "command %q already exists", name)
		}

		rec, err := prepare(tenant, def, origin)
		if err != nil {
			return err
		}

		if err := m.store.Upsert(ctx, tenant, rec); err != nil {
			return newError(CodePersistenceFailure, tenant, rec.Name, err, "persist command")
		}
		reg.Put(rec)
		m.logger.Info("command registered",
			"tenant", tenant,
			"command", rec.Name,
			"origin", origin,
			"digest", ir.ShortDigest(ir.SourceDigest(rec.Source)))

		return m.republish(ctx, t)
	})
}

// Update replaces an existing command. The definition's name must match
// name; an empty definition name means name. Renames are rejected.
func (m *Manager) Update(ctx context.Context, tenant, name string, def ir.Definition, origin string) error {
	name = ir.NormalizeName(name)
	if def.Name == "" {
		def.Name = name
	}
	if got := ir.NormalizeName(def.Name); got != name {
		return newError(CodeSubmissionRejected, tenant, name, nil, "cannot rename command to %q", got)
	}

	return m.withTenant(ctx, tenant, func(t *tenantState) error {
		if err := m.hydrate(ctx, t); err != nil {
			return err
		}
		reg := t.sandbox.Registry()
		if _, exists := reg.Get(name); !exists {
			return newError(CodeNotFound, tenant, name, nil, "command %q does not exist", name)
		}

		rec, err := prepare(tenant, def, origin)
		if err != nil {
			return err
		}

		if err := m.store.Upsert(ctx, tenant, rec); err != nil {
			return newError(CodePersistenceFailure, tenant, name, err, "persist command")
		}
		reg.Put(rec) // drops the compiled handle
		m.logger.Info("command updated",
			"tenant", tenant,
			"command", name,
			"origin", origin,
			"digest", ir.ShortDigest(ir.SourceDigest(rec.Source)))

		return m.republish(ctx, t)
	})
}

// Delete removes a command and republishes.
func (m *Manager) Delete(ctx context.Context, tenant, name string) error {
	name = ir.NormalizeName(name)
	return m.withTenant(ctx, tenant, func(t *tenantState) error {
		if err := m.hydrate(ctx, t); err != nil {
			return err
		}
		reg := t.sandbox.Registry()
		if _, exists := reg.Get(name); !exists {
			return newError(CodeNotFound, tenant, name, nil, "command %q does not exist", name)
		}

		if err := m.store.Remove(ctx, tenant, name); err != nil {
			return newError(CodePersistenceFailure, tenant, name, err, "remove command")
		}
		reg.Remove(name)
		m.logger.Info("command deleted", "tenant", tenant, "command", name)

		return m.republish(ctx, t)
	})
}

// List returns the tenant's commands ordered by name.
func (m *Manager) List(ctx context.Context, tenant string) ([]ir.Record, error) {
	var records []ir.Record
	err := m.withTenant(ctx, tenant, func(t *tenantState) error {
		if err := m.hydrate(ctx, t); err != nil {
			return err
		}
		records = t.sandbox.Registry().Records()
		return nil
	})
	return records, err
}

// Get returns one command.
func (m *Manager) Get(ctx context.Context, tenant, name string) (ir.Record, error) {
	name = ir.NormalizeName(name)
	var rec ir.Record
	err := m.withTenant(ctx, tenant, func(t *tenantState) error {
		if err := m.hydrate(ctx, t); err != nil {
			return err
		}
		var ok bool
		rec, ok = t.sandbox.Registry().Get(name)
		if !ok {
			return newError(CodeNotFound, tenant, name, nil, "command %q does not exist", name)
		}
		return nil
	})
	return rec, err
}
