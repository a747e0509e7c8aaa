package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/guildscript/internal/ir"
)

// CompileCommands compiles every field under "command" in root, in
// declaration order. A root without commands is an error.
func CompileCommands(root cue.Value) ([]ir.Definition, error) {
	if err := root.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	cmds := root.LookupPath(cue.ParsePath("command"))
	if !cmds.Exists() {
		return nil, &CompileError{Field: "command", Message: "no commands defined", Pos: root.Pos()}
	}

	iter, err := cmds.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var defs []ir.Definition
	for iter.Next() {
		def, err := CompileCommand(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("command %s: %w", iter.Selector().Unquoted(), err)
		}
		defs = append(defs, *def)
	}
	if len(defs) == 0 {
		return nil, &CompileError{Field: "command", Message: "no commands defined", Pos: cmds.Pos()}
	}
	return defs, nil
}

// CompileCommand parses a CUE command struct into a Definition.
// The command name is the struct's label, e.g. for
//
//	v.LookupPath(cue.ParsePath("command.greet"))
//
// the name is "greet".
func CompileCommand(v cue.Value) (*ir.Definition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &ir.Definition{}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		sel := labels[len(labels)-1]
		if sel.LabelType() == cue.StringLabel {
			def.Name = sel.Unquoted() // "my-cmd": {...}
		} else {
			def.Name = sel.String()
		}
	}

	var err error
	def.Description, err = optionalString(v, "description")
	if err != nil {
		return nil, err
	}

	sourceVal := v.LookupPath(cue.ParsePath("source"))
	if !sourceVal.Exists() {
		return nil, &CompileError{
			Field:   "source",
			Message: "source is required",
			Pos:     v.Pos(),
		}
	}
	def.Source, err = sourceVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}

	def.Parameters, err = parseParameters(v)
	if err != nil {
		return nil, err
	}

	return def, nil
}

// parseParameters parses the optional ordered parameter list.
func parseParameters(v cue.Value) ([]ir.Parameter, error) {
	paramsVal := v.LookupPath(cue.ParsePath("parameters"))
	if !paramsVal.Exists() {
		return nil, nil
	}

	iter, err := paramsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var params []ir.Parameter
	for i := 0; iter.Next(); i++ {
		p, err := parseParameter(iter.Value(), i)
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return params, nil
}

func parseParameter(v cue.Value, idx int) (ir.Parameter, error) {
	field := fmt.Sprintf("parameters[%d]", idx)
	var p ir.Parameter

	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return p, &CompileError{Field: field + ".name", Message: "name is required", Pos: v.Pos()}
	}
	name, err := nameVal.String()
	if err != nil {
		return p, formatCUEError(err)
	}
	p.Name = name

	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return p, &CompileError{Field: field + ".type", Message: "type is required", Pos: v.Pos()}
	}
	typ, err := typeVal.String()
	if err != nil {
		return p, formatCUEError(err)
	}
	if !ir.ValidParamTypes[ir.ParamType(typ)] {
		return p, &CompileError{
			Field:   field + ".type",
			Message: fmt.Sprintf("unsupported type %q (want bool, integer, number or string)", typ),
			Pos:     typeVal.Pos(),
		}
	}
	p.Type = ir.ParamType(typ)

	p.Description, err = optionalString(v, "description")
	if err != nil {
		return p, err
	}

	reqVal := v.LookupPath(cue.ParsePath("required"))
	if reqVal.Exists() {
		p.Required, err = reqVal.Bool()
		if err != nil {
			return p, formatCUEError(err)
		}
	}

	return p, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
