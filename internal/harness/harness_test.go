package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/guildscript/internal/compiler"
	"github.com/roach88/guildscript/internal/ir"
)

func boolPtr(b bool) *bool { return &b }

const replyPong = "local ctx = ...\nctx:reply(\"pong\")\n"

func TestScenarioGoldens(t *testing.T) {
	for _, name := range []string{"greet_roundtrip", "quota_and_clear"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)
			assert.Equal(t, name, scenario.Name)

			require.NoError(t, RunWithGolden(t, scenario))
		})
	}
}

func TestRunIsDeterministic(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "greet_roundtrip.yaml"))
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := MarshalTrace(scenario.Name, first)
	require.NoError(t, err)
	b, err := MarshalTrace(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRunReportsFailedExpectations(t *testing.T) {
	scenario := &Scenario{
		Name:        "mismatch",
		Description: "expectations that do not hold",
		Steps: []Step{
			{Op: OpRegister, Command: &compiler.CommandDoc{Name: "ping", Source: replyPong}},
			{Op: OpExecute, Name: "ping", Expect: &Expect{Replies: []any{"pang"}}},
			{Op: OpExecute, Name: "ping", Expect: &Expect{Replied: boolPtr(false)}},
			{Op: OpDelete, Name: "ping", Expect: &Expect{Error: "NOT_FOUND"}},
			{Op: OpDelete, Name: "ping"},
		},
		Assertions: []Assertion{
			{Type: AssertCommandCount, Count: 3},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], `expected replies ["pang"], got ["pong"]`)
	assert.Contains(t, result.Errors[1], "expected replied=false, got true")
	assert.Contains(t, result.Errors[2], "expected error NOT_FOUND, got ok")
	assert.Contains(t, result.Errors[3], "unexpected error")
	assert.Contains(t, result.Errors[4], "expected 3 commands")
}

func TestRunGuestError(t *testing.T) {
	scenario := &Scenario{
		Name:        "guest_error",
		Description: "guest raises after replying",
		Tenant:      "t1",
		Steps: []Step{
			{Op: OpRegister, Command: &compiler.CommandDoc{
				Name:   "boom",
				Source: "local ctx = ...\nctx:reply(\"partial\")\nerror(\"boom\")\n",
			}},
			{Op: OpExecute, Name: "boom", Expect: &Expect{
				Error:   "GUEST_RUNTIME_ERROR",
				Replied: boolPtr(true),
				Replies: []any{"partial"},
			}},
		},
		Assertions: []Assertion{
			{Type: AssertHistoryCount, Count: 1},
			{Type: AssertPublished, Commands: []string{"boom"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	ev := result.Trace[1]
	assert.Equal(t, "GUEST_RUNTIME_ERROR", ev.Outcome)
	assert.Equal(t, []ir.Value{ir.String("partial")}, ev.Replies)
}

func TestRunSweepEvictsIdleTenant(t *testing.T) {
	scenario := &Scenario{
		Name:        "sweep",
		Description: "tenants survive one sweep and are evicted by the next",
		Steps: []Step{
			{Op: OpRegister, Command: &compiler.CommandDoc{Name: "ping", Source: replyPong}},
			{Op: OpSweep},
			{Op: OpSweep},
			{Op: OpExecute, Name: "ping", Expect: &Expect{Replies: []any{"pong"}}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	require.NotNil(t, result.Trace[1].Evicted)
	assert.Equal(t, 0, *result.Trace[1].Evicted)
	require.NotNil(t, result.Trace[2].Evicted)
	assert.Equal(t, 1, *result.Trace[2].Evicted)
	assert.Empty(t, result.Trace[2].Tenant)
}

func TestRunTenantsAreIsolated(t *testing.T) {
	scenario := &Scenario{
		Name:        "isolation",
		Description: "commands are per tenant",
		Tenant:      "g1",
		Steps: []Step{
			{Op: OpRegister, Command: &compiler.CommandDoc{Name: "ping", Source: replyPong}},
			{Op: OpExecute, Tenant: "g2", Name: "ping", Expect: &Expect{Error: "NOT_FOUND"}},
		},
		Assertions: []Assertion{
			{Type: AssertPublished, Commands: []string{"ping"}},
			{Type: AssertRetracted, Tenant: "g2"},
			{Type: AssertCommandCount, Tenant: "g2", Count: 0},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "g2", result.Trace[1].Tenant)
}

func TestRunRegisterFromFile(t *testing.T) {
	dir := t.TempDir()
	defs := "commands:\n  - name: ping\n    source: |\n      local ctx = ...\n      ctx:reply(\"pong\")\n  - name: pong\n    source: return\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "defs.yaml"), []byte(defs), 0o644))

	scenarioYAML := `
name: from_file
description: register every command in a definition document
steps:
  - op: register
    file: defs.yaml
  - op: execute
    name: ping
    expect:
      replies: [pong]
assertions:
  - type: published
    commands: [ping, pong]
`
	path := filepath.Join(dir, "from_file.yaml")
	require.NoError(t, os.WriteFile(path, []byte(scenarioYAML), 0o644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "defs.yaml"), scenario.Steps[0].File)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "ping,pong", result.Trace[0].Command)
}

func TestRunMissingDefinitionFile(t *testing.T) {
	scenario := &Scenario{
		Name:        "missing_file",
		Description: "definition file does not exist",
		Steps:       []Step{{Op: OpRegister, File: filepath.Join(t.TempDir(), "nope.yaml")}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "steps[0] (register)")
}
