package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/guildscript/internal/compiler"
	"github.com/roach88/guildscript/internal/ir"
	"github.com/roach88/guildscript/internal/manager"
	"github.com/roach88/guildscript/internal/store"
	"github.com/roach88/guildscript/internal/surface"
	"github.com/roach88/guildscript/internal/testutil"
)

// Harness runs one scenario against a private Manager.
type Harness struct {
	scenario  *Scenario
	manager   *manager.Manager
	publisher *surface.MemoryPublisher
	seq       *testutil.Sequence
	logger    *slog.Logger
}

// Run executes a scenario and returns its result. An error is returned only
// when the scenario itself cannot be carried out (unreadable definition
// file, unrepresentable arguments); failed expectations are reported in
// the Result.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pub := surface.NewMemoryPublisher()

	timeout := scenario.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	opts := []manager.Option{
		manager.WithIDGenerator(testutil.NewSequentialIDs("exec")),
		manager.WithLogger(logger),
		manager.WithExecutionTimeout(timeout),
	}
	if scenario.MaxCommands > 0 {
		opts = append(opts, manager.WithMaxCommands(scenario.MaxCommands))
	}
	m := manager.New(st, pub, opts...)
	defer m.Close()

	h := &Harness{
		scenario:  scenario,
		manager:   m,
		publisher: pub,
		seq:       testutil.NewSequence(),
		logger:    logger,
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.runStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("steps[%d] (%s): %w", i, step.Op, err)
		}
	}

	for _, msg := range h.evaluateAssertions(ctx, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) tenant(override string) string {
	switch {
	case override != "":
		return override
	case h.scenario.Tenant != "":
		return h.scenario.Tenant
	default:
		return DefaultTenant
	}
}

func (h *Harness) origin() string {
	return "scenario/" + h.scenario.Name
}

func (h *Harness) runStep(ctx context.Context, i int, step Step, result *Result) error {
	ev := TraceEvent{
		Seq:    h.seq.Next(),
		Op:     step.Op,
		Tenant: h.tenant(step.Tenant),
	}

	var err error
	switch step.Op {
	case OpRegister:
		defs, lerr := definitions(step)
		if lerr != nil {
			return lerr
		}
		names := make([]string, 0, len(defs))
		for _, def := range defs {
			names = append(names, def.Name)
			if err = h.manager.Register(ctx, ev.Tenant, def, h.origin()); err != nil {
				break
			}
		}
		ev.Command = strings.Join(names, ",")

	case OpUpdate:
		def := step.Command.Definition()
		ev.Command = step.Name
		if ev.Command == "" {
			ev.Command = def.Name
		}
		err = h.manager.Update(ctx, ev.Tenant, ev.Command, def, h.origin())

	case OpDelete:
		ev.Command = step.Name
		err = h.manager.Delete(ctx, ev.Tenant, step.Name)

	case OpExecute:
		args, cerr := toObject(step.Args)
		if cerr != nil {
			return fmt.Errorf("convert args: %w", cerr)
		}
		rec := &testutil.RecordingReplier{}
		var replied bool
		replied, err = h.manager.Execute(ctx, ev.Tenant, step.Name, args, rec)
		ev.Command = step.Name
		ev.Args = args
		ev.Replied = &replied
		ev.Replies = rec.Replies()

	case OpRestart:
		err = h.manager.Restart(ctx, ev.Tenant, step.Force)

	case OpClear:
		err = h.manager.ClearTenant(ctx, ev.Tenant)

	case OpSweep:
		n := h.manager.Sweep()
		ev.Tenant = ""
		ev.Evicted = &n
	}

	ev.Outcome = outcome(err)
	result.Trace = append(result.Trace, ev)

	for _, msg := range checkExpect(i, step, ev, err) {
		result.AddError(msg)
	}

	h.logger.Info("scenario step completed",
		"step", i,
		"op", step.Op,
		"tenant", ev.Tenant,
		"outcome", ev.Outcome,
	)
	return nil
}

func definitions(step Step) ([]ir.Definition, error) {
	if step.Command != nil {
		return []ir.Definition{step.Command.Definition()}, nil
	}
	return compiler.LoadFile(step.File)
}

func outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if code := manager.CodeOf(err); code != "" {
		return string(code)
	}
	return "ERROR"
}

// checkExpect compares a step's actual outcome with its expect clause.
func checkExpect(i int, step Step, ev TraceEvent, err error) []string {
	var msgs []string
	prefix := fmt.Sprintf("steps[%d] %s", i, step.Op)

	want := ""
	if step.Expect != nil {
		want = step.Expect.Error
	}
	switch {
	case want == "" && err != nil:
		msgs = append(msgs, fmt.Sprintf("%s: unexpected error: %v", prefix, err))
	case want != "" && ev.Outcome != want:
		msgs = append(msgs, fmt.Sprintf("%s: expected error %s, got %s", prefix, want, ev.Outcome))
	}

	if step.Expect == nil || ev.Replied == nil {
		return msgs
	}

	if exp := step.Expect.Replied; exp != nil && *exp != *ev.Replied {
		msgs = append(msgs, fmt.Sprintf("%s: expected replied=%t, got %t", prefix, *exp, *ev.Replied))
	}

	if step.Expect.Replies != nil {
		wantReplies, cerr := ir.FromAny(step.Expect.Replies)
		if cerr != nil {
			msgs = append(msgs, fmt.Sprintf("%s: invalid expected replies: %v", prefix, cerr))
		} else if !ir.Equal(wantReplies, ir.Array(ev.Replies)) {
			msgs = append(msgs, fmt.Sprintf("%s: expected replies %s, got %s",
				prefix, canonical(wantReplies), canonical(ir.Array(ev.Replies))))
		}
	}
	return msgs
}

func toObject(args map[string]any) (ir.Object, error) {
	if args == nil {
		return ir.Object{}, nil
	}
	v, err := ir.FromAny(args)
	if err != nil {
		return nil, err
	}
	return v.(ir.Object), nil
}

func canonical(v ir.Value) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(data)
}
