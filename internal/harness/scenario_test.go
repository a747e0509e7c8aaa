package harness

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "quota_and_clear.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "guild-2", s.Tenant)
	assert.Equal(t, 2, s.MaxCommands)
	require.Len(t, s.Steps, 10)
	assert.Equal(t, OpRestart, s.Steps[5].Op)
	assert.True(t, s.Steps[5].Force)
	assert.Equal(t, "SUBMISSION_REJECTED", s.Steps[2].Expect.Error)
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenarioTimeout(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: t
description: d
timeout: 150ms
steps:
  - op: clear
`))
	require.NoError(t, err)
	assert.Equal(t, 150*time.Millisecond, s.Timeout)
}

func TestParseScenarioRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown field", "name: x\ndescription: d\nstep: []\n", "field step not found"},
		{"missing name", "description: d\nsteps: [{op: clear}]\n", "name is required"},
		{"missing description", "name: x\nsteps: [{op: clear}]\n", "description is required"},
		{"no steps", "name: x\ndescription: d\n", "steps list is required"},
		{"unknown op", "name: x\ndescription: d\nsteps: [{op: reboot}]\n", `unknown op "reboot"`},
		{"register without command", "name: x\ndescription: d\nsteps: [{op: register}]\n", "exactly one of command or file"},
		{"execute without name", "name: x\ndescription: d\nsteps: [{op: execute}]\n", "execute needs name"},
		{"args on delete", "name: x\ndescription: d\nsteps: [{op: delete, name: a, args: {x: 1}}]\n", "args only apply to execute"},
		{"force on clear", "name: x\ndescription: d\nsteps: [{op: clear, force: true}]\n", "force only applies to restart"},
		{"unknown code", "name: x\ndescription: d\nsteps: [{op: clear, expect: {error: OOPS}}]\n", `unknown error code "OOPS"`},
		{"replies on clear", "name: x\ndescription: d\nsteps: [{op: clear, expect: {replies: [1]}}]\n", "only apply to execute"},
		{"unknown assertion", "name: x\ndescription: d\nsteps: [{op: clear}]\nassertions: [{type: vibes}]\n", `unknown assertion type "vibes"`},
		{"published without commands", "name: x\ndescription: d\nsteps: [{op: clear}]\nassertions: [{type: published}]\n", "commands is required"},
		{"unknown command field", "name: x\ndescription: d\nsteps: [{op: register, command: {name: a, source: s, body: b}}]\n", "field body not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
