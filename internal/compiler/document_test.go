package compiler

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/guildscript/internal/ir"
)

func TestParseYAML(t *testing.T) {
	doc := []byte(`
commands:
  - name: greet
    description: Greets someone
    parameters:
      - name: name
        type: string
        required: true
    source: |
      local ctx, args = ...
      ctx:reply("Hello " .. args.name)
  - name: ping
    source: |
      local ctx = ...
      ctx:reply("pong")
`)

	defs, err := ParseYAML(doc, "commands.yaml")
	require.NoError(t, err)
	require.Len(t, defs, 2)

	assert.Equal(t, "greet", defs[0].Name)
	assert.Equal(t, "Greets someone", defs[0].Description)
	assert.Equal(t, []ir.Parameter{{Name: "name", Type: ir.ParamString, Required: true}}, defs[0].Parameters)
	assert.Contains(t, defs[0].Source, "args.name")

	assert.Equal(t, "ping", defs[1].Name)
	assert.Empty(t, defs[1].Parameters)
}

func TestParseYAMLSchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "no commands",
			doc:  "commands: []\n",
			want: "/commands",
		},
		{
			name: "missing source",
			doc:  "commands:\n  - name: greet\n",
			want: "/commands/0",
		},
		{
			name: "unknown parameter type",
			doc:  "commands:\n  - name: greet\n    source: x\n    parameters:\n      - name: who\n        type: user\n",
			want: "/commands/0/parameters/0/type",
		},
		{
			name: "unknown field",
			doc:  "commands:\n  - name: greet\n    source: x\n    code: y\n",
			want: "/commands/0",
		},
		{
			name: "name too long",
			doc:  "commands:\n  - name: abcdefghijklmnopqrstuvwxyz0123456789\n    source: x\n",
			want: "/commands/0/name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tt.doc), "bad.yaml")
			require.Error(t, err)

			var derr *DocumentError
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, "bad.yaml", derr.Filename)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseYAMLSyntaxError(t *testing.T) {
	_, err := ParseYAML([]byte("commands: [\n"), "broken.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.yaml: parse yaml")
}

func TestSchemaShape(t *testing.T) {
	data, err := Schema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))

	assert.Equal(t, "guildscript command definitions", schema["title"])
	assert.Equal(t, "object", schema["type"])
	assert.Contains(t, schema, "$defs")

	defs := schema["$defs"].(map[string]any)
	assert.Contains(t, defs, "CommandDoc")
	assert.Contains(t, defs, "ParameterDoc")
}
