package script

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/guildscript/internal/ir"
)

// Sandbox pairs a tenant's Registry with its Host.
type Sandbox struct {
	registry *Registry
	host     *Host
	compiles int
}

// NewSandbox returns an unhydrated sandbox with no runtime.
func NewSandbox(tenant string, logger *slog.Logger) *Sandbox {
	return &Sandbox{registry: NewRegistry(), host: NewHost(tenant, logger)}
}

// Registry returns the command registry.
func (s *Sandbox) Registry() *Registry {
	return s.registry
}

// Host returns the runtime host.
func (s *Sandbox) Host() *Host {
	return s.host
}

// Hydrate loads the registry if it has not been loaded yet.
func (s *Sandbox) Hydrate(ctx context.Context, fetch FetchFunc) error {
	return s.registry.Hydrate(ctx, fetch)
}

// Compile returns the cached compiled handle for name, compiling the
// record's source into the runtime if needed. A failed compile leaves the
// registry unchanged.
func (s *Sandbox) Compile(name string) (*Compiled, error) {
	e, ok := s.registry.entries[name]
	if !ok {
		return nil, fmt.Errorf("compile %q: %w", name, ErrUnknownCommand)
	}
	if s.host.current(e.compiled) {
		return e.compiled, nil
	}
	c, err := s.host.Load(e.record)
	if err != nil {
		return nil, err
	}
	e.compiled = c
	s.compiles++
	return c, nil
}

// compileCount returns how many times a source was compiled into a runtime.
func (s *Sandbox) compileCount() int {
	return s.compiles
}

// Call runs a compiled command. See Host.Call.
func (s *Sandbox) Call(ctx context.Context, c *Compiled, ec *ExecutionContext, args ir.Object, abandon <-chan struct{}) error {
	return s.host.Call(ctx, c, ec, args, abandon)
}

// Restart drops the registry and the runtime together. The registry becomes
// unhydrated so the next access reloads it.
func (s *Sandbox) Restart() {
	s.registry.Reset()
	s.host.Reset()
}

// Clear pins the registry empty and drops the runtime.
func (s *Sandbox) Clear() {
	s.registry.Pin()
	s.host.Reset()
}

// Close drops the runtime.
func (s *Sandbox) Close() {
	s.registry.DropCompiled()
	s.host.Reset()
}
