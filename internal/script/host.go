package script

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/roach88/guildscript/internal/bridge"
	"github.com/roach88/guildscript/internal/ir"
)

// Compiled is a command compiled into a specific runtime.
type Compiled struct {
	Label  string
	Digest string

	fn *lua.LFunction
	rt *runtime
}

// Host owns the guest runtime of one tenant.
type Host struct {
	tenant string
	logger *slog.Logger
	rt     *runtime
}

// NewHost creates a host without a runtime.
func NewHost(tenant string, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{tenant: tenant, logger: logger}
}

// live reports whether a runtime currently exists.
func (h *Host) live() bool {
	return h.rt != nil
}

func (h *Host) runtime() *runtime {
	if h.rt == nil {
		h.rt = newRuntime(h.tenant, h.logger)
		h.logger.Debug("guest runtime created", "tenant", h.tenant)
	}
	return h.rt
}

// Reset drops the runtime. A runtime still running an abandoned call is
// closed when that call returns.
func (h *Host) Reset() {
	if h.rt == nil {
		return
	}
	h.rt.retire()
	h.rt = nil
	h.logger.Debug("guest runtime dropped", "tenant", h.tenant)
}

// Load compiles rec into the live runtime.
func (h *Host) Load(rec ir.Record) (*Compiled, error) {
	label := rec.Label()
	proto, err := Validate(label, rec.Source)
	if err != nil {
		return nil, err
	}
	rt := h.runtime()
	c := &Compiled{
		Label:  label,
		Digest: ir.SourceDigest(rec.Source),
		fn:     rt.L.NewFunctionFromProto(proto),
		rt:     rt,
	}
	h.logger.Debug("command compiled", "tenant", h.tenant, "command", rec.Name, "digest", ir.ShortDigest(c.Digest))
	return c, nil
}

// current reports whether c belongs to the live runtime.
func (h *Host) current(c *Compiled) bool {
	return c != nil && h.rt != nil && c.rt == h.rt
}

// Call runs c with a fresh execution context and the argument table. The
// call happens on its own goroutine bound to ctx; Call returns early with
// ErrAbandoned if abandon is closed first.
func (h *Host) Call(ctx context.Context, c *Compiled, ec *ExecutionContext, args ir.Object, abandon <-chan struct{}) error {
	rt := c.rt
	if err := rt.begin(); err != nil {
		return err
	}

	L := rt.L
	done := make(chan error, 1)
	go func() {
		defer rt.end()
		L.SetContext(ctx)
		defer L.RemoveContext()
		defer L.SetTop(0)
		done <- L.CallByParam(lua.P{Fn: c.fn, NRet: 0, Protect: true}, ec.userData(L), bridge.FromObject(L, args))
	}()

	select {
	case err := <-done:
		if err != nil {
			gerr := runError(c.Label, err)
			if ctxErr := ctx.Err(); ctxErr != nil {
				gerr.Err = ctxErr
			}
			return gerr
		}
		return nil
	case <-abandon:
		return fmt.Errorf("%s: %w", c.Label, ErrAbandoned)
	}
}

// Validate compiles source without a runtime and without running it.
func Validate(label, source string) (*lua.FunctionProto, error) {
	chunk, err := parse.Parse(strings.NewReader(source), label)
	if err != nil {
		return nil, &GuestError{Phase: PhaseCompile, Label: label, Message: err.Error(), Err: err}
	}
	proto, err := lua.Compile(chunk, label)
	if err != nil {
		return nil, &GuestError{Phase: PhaseCompile, Label: label, Message: err.Error(), Err: err}
	}
	return proto, nil
}
