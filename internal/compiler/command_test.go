package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/guildscript/internal/ir"
)

func TestCompileCommandBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		command: greet: {
			description: "Greets someone"
			parameters: [
				{name: "name", type: "string", required: true},
				{name: "times", type: "integer", description: "How often"},
			]
			source: """
				local ctx, args = ...
				ctx:reply("Hello " .. args.name)
				"""
		}
	`)
	require.NoError(t, v.Err())

	def, err := CompileCommand(v.LookupPath(cue.ParsePath("command.greet")))
	require.NoError(t, err)

	assert.Equal(t, "greet", def.Name)
	assert.Equal(t, "Greets someone", def.Description)
	assert.Contains(t, def.Source, `ctx:reply("Hello " .. args.name)`)
	require.Len(t, def.Parameters, 2)
	assert.Equal(t, ir.Parameter{Name: "name", Type: ir.ParamString, Required: true}, def.Parameters[0])
	assert.Equal(t, ir.Parameter{Name: "times", Type: ir.ParamInteger, Description: "How often"}, def.Parameters[1])
}

func TestCompileCommandQuotedLabel(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		command: "roll-dice": {
			source: "return"
		}
	`)
	require.NoError(t, v.Err())

	def, err := CompileCommand(v.LookupPath(cue.MakePath(cue.Str("command"), cue.Str("roll-dice"))))
	require.NoError(t, err)
	assert.Equal(t, "roll-dice", def.Name)
	assert.Empty(t, def.Parameters)
}

func TestCompileCommandMissingSource(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		command: bad: {
			description: "no body"
		}
	`)
	require.NoError(t, v.Err())

	_, err := CompileCommand(v.LookupPath(cue.ParsePath("command.bad")))
	require.Error(t, err)

	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "source", cerr.Field)
}

func TestCompileCommandRejectsUnknownParamType(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		command: bad: {
			parameters: [{name: "who", type: "user"}]
			source: "return"
		}
	`)
	require.NoError(t, v.Err())

	_, err := CompileCommand(v.LookupPath(cue.ParsePath("command.bad")))
	require.Error(t, err)

	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "parameters[0].type", cerr.Field)
	assert.Contains(t, cerr.Message, `"user"`)
}

func TestCompileCommandParamMissingName(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		command: bad: {
			parameters: [{type: "string"}]
			source: "return"
		}
	`)
	require.NoError(t, v.Err())

	_, err := CompileCommand(v.LookupPath(cue.ParsePath("command.bad")))
	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "parameters[0].name", cerr.Field)
}

func TestCompileCommandWrongFieldKind(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		command: bad: {
			source: 42
		}
	`)
	require.NoError(t, v.Err())

	_, err := CompileCommand(v.LookupPath(cue.ParsePath("command.bad")))
	require.Error(t, err)
}

func TestCompileCommandsDeclarationOrder(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		command: zeta: source: "return"
		command: alpha: source: "return"
	`)
	require.NoError(t, v.Err())

	defs, err := CompileCommands(v)
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "zeta", defs[0].Name)
	assert.Equal(t, "alpha", defs[1].Name)
}

func TestCompileCommandsEmpty(t *testing.T) {
	ctx := cuecontext.New()

	_, err := CompileCommands(ctx.CompileString(`other: 1`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no commands defined")

	_, err = CompileCommands(ctx.CompileString(`command: {}`))
	require.Error(t, err)
}

func TestCompileCommandsNamesFailingCommand(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		command: ok: source: "return"
		command: broken: description: "x"
	`)
	require.NoError(t, v.Err())

	_, err := CompileCommands(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command broken")
}
