package manager

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/guildscript/internal/bridge"
	"github.com/roach88/guildscript/internal/ir"
	"github.com/roach88/guildscript/internal/script"
)

// argsRoot is the path prefix for argument marshal errors.
const argsRoot = "args"

// Execute runs a command with the given arguments, forwarding the guest's
// reply (if any) to replier. It returns whether the guest replied.
//
// Only declared parameters reach the guest; other keys in args are ignored.
// A missing required argument or one of the wrong type fails with
// MARSHAL_ERROR before any guest code runs. Compile failures and errors
// raised by the guest fail with GUEST_RUNTIME_ERROR; replied still reports
// whether a reply was sent before the error.
//
// The tenant stays locked until the guest returns, unless a forced Restart
// abandons the call first. An abandoned guest has its context cancelled and
// can no longer reply.
func (m *Manager) Execute(ctx context.Context, tenant, name string, args ir.Object, replier script.Replier) (bool, error) {
	name = ir.NormalizeName(name)
	var replied bool

	err := m.withTenant(ctx, tenant, func(t *tenantState) error {
		// Installed before any other work so a forced Restart arriving
		// during hydration or compilation is not lost.
		abandon := t.beginExecution()
		defer t.endExecution()

		if err := m.hydrate(ctx, t); err != nil {
			return err
		}
		rec, ok := t.sandbox.Registry().Get(name)
		if !ok {
			return newError(CodeNotFound, tenant, name, nil, "command %q does not exist", name)
		}

		guestArgs, err := declaredArgs(rec, args)
		if err != nil {
			return newError(CodeMarshalError, tenant, name, err, "invalid arguments")
		}

		compiled, err := t.sandbox.Compile(name)
		if err != nil {
			return newError(CodeGuestRuntimeError, tenant, name, err, "compile command")
		}

		select {
		case <-abandon:
			m.logger.Warn("execution abandoned before start", "tenant", tenant, "command", name)
			return newError(CodeGuestRuntimeError, tenant, name, script.ErrAbandoned, "execute command")
		default:
		}

		callCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if m.timeout > 0 {
			var cancelTimeout context.CancelFunc
			callCtx, cancelTimeout = context.WithTimeout(callCtx, m.timeout)
			defer cancelTimeout()
		}

		ec := script.NewExecutionContext(callCtx, replier)
		callErr := t.sandbox.Call(callCtx, compiled, ec, guestArgs, abandon)

		if errors.Is(callErr, script.ErrAbandoned) {
			// Stop the orphaned guest; it still owns the old runtime.
			cancel()
			t.sandbox.Restart()
			m.logger.Warn("execution abandoned", "tenant", tenant, "command", name)
		}
		ec.Close()
		replied = ec.Replied()

		m.recordExecution(ctx, tenant, name, replied, callErr)

		if callErr != nil {
			return newError(CodeGuestRuntimeError, tenant, name, callErr, "execute command")
		}
		return nil
	})
	return replied, err
}

// declaredArgs builds the guest argument table from the declared parameters.
func declaredArgs(rec ir.Record, args ir.Object) (ir.Object, error) {
	out := make(ir.Object, len(rec.Parameters))
	for _, p := range rec.Parameters {
		path := argsRoot + "." + p.Name
		v, ok := args[p.Name]
		if _, isNull := v.(ir.Null); !ok || isNull {
			if p.Required {
				return nil, &bridge.MarshalError{Kind: bridge.KindShape, Path: path, Reason: "missing required argument"}
			}
			continue
		}
		if err := ir.Validate(v); err != nil {
			return nil, &bridge.MarshalError{Kind: bridge.KindType, Path: path, Reason: err.Error()}
		}
		if !p.Type.Accepts(v) {
			return nil, &bridge.MarshalError{
				Kind:   bridge.KindType,
				Path:   path,
				Reason: fmt.Sprintf("expected %s, got %s", p.Type, ir.TypeName(v)),
			}
		}
		out[p.Name] = v
	}
	return out, nil
}

// recordExecution appends to the execution history. Failures are logged:
// history is an audit trail and never fails the execution itself.
func (m *Manager) recordExecution(ctx context.Context, tenant, name string, replied bool, callErr error) {
	exec := ir.Execution{
		ID:      m.ids.Generate(),
		Tenant:  tenant,
		Command: name,
		Replied: replied,
	}
	if callErr != nil {
		exec.Error = callErr.Error()
	}

	seq, err := m.store.RecordExecution(ctx, exec)
	if err != nil {
		m.logger.Warn("execution history write failed",
			"tenant", tenant,
			"command", name,
			"execution_id", exec.ID,
			"error", err)
		return
	}
	m.logger.Info("command executed",
		"tenant", tenant,
		"command", name,
		"execution_id", exec.ID,
		"seq", seq,
		"replied", replied,
		"failed", callErr != nil)
}

// History returns the tenant's most recent executions, oldest first.
func (m *Manager) History(ctx context.Context, tenant string, limit int) ([]ir.Execution, error) {
	var execs []ir.Execution
	err := m.withTenant(ctx, tenant, func(*tenantState) error {
		var err error
		execs, err = m.store.ListExecutions(ctx, tenant, limit)
		if err != nil {
			return newError(CodePersistenceFailure, tenant, "", err, "list executions")
		}
		return nil
	})
	return execs, err
}
