package script

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/guildscript/internal/ir"
)

// FetchFunc loads every command record of one tenant.
type FetchFunc func(ctx context.Context) ([]ir.Record, error)

type entry struct {
	record   ir.Record
	compiled *Compiled
}

// Registry is the in-memory map of a tenant's commands. It is unhydrated
// until the first successful Hydrate; a hydrated registry may be empty.
type Registry struct {
	entries map[string]*entry // nil while unhydrated
}

// NewRegistry returns an unhydrated registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Hydrated reports whether the registry has been loaded.
func (r *Registry) Hydrated() bool {
	return r.entries != nil
}

// Hydrate loads the registry from fetch unless it is already hydrated.
// On failure the registry stays unhydrated and the next call retries.
func (r *Registry) Hydrate(ctx context.Context, fetch FetchFunc) error {
	if r.entries != nil {
		return nil
	}
	records, err := fetch(ctx)
	if err != nil {
		return fmt.Errorf("hydrate registry: %w", err)
	}
	entries := make(map[string]*entry, len(records))
	for _, rec := range records {
		entries[rec.Name] = &entry{record: rec}
	}
	r.entries = entries
	return nil
}

// Get returns the record stored under name.
func (r *Registry) Get(name string) (ir.Record, bool) {
	e, ok := r.entries[name]
	if !ok {
		return ir.Record{}, false
	}
	return e.record, true
}

// Put inserts or replaces a record. Replacing discards any compiled handle.
// Put on an unhydrated registry hydrates it with just this record.
func (r *Registry) Put(rec ir.Record) {
	if r.entries == nil {
		r.entries = make(map[string]*entry)
	}
	r.entries[rec.Name] = &entry{record: rec}
}

// Remove deletes name and reports whether it was present.
func (r *Registry) Remove(name string) bool {
	if _, ok := r.entries[name]; !ok {
		return false
	}
	delete(r.entries, name)
	return true
}

// Len returns the number of commands.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Names returns the command names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Records returns every record ordered by name.
func (r *Registry) Records() []ir.Record {
	records := make([]ir.Record, 0, len(r.entries))
	for _, name := range r.Names() {
		records = append(records, r.entries[name].record)
	}
	return records
}

// Pin marks the registry as hydrated and empty.
func (r *Registry) Pin() {
	r.entries = make(map[string]*entry)
}

// Reset returns the registry to the unhydrated state.
func (r *Registry) Reset() {
	r.entries = nil
}

// DropCompiled discards every compiled handle, keeping the records.
func (r *Registry) DropCompiled() {
	for _, e := range r.entries {
		e.compiled = nil
	}
}
