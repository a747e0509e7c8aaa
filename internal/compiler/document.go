package compiler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/guildscript/internal/ir"
)

// Document is the YAML definition document.
type Document struct {
	Commands []CommandDoc `json:"commands" yaml:"commands" jsonschema:"minItems=1"`
}

// CommandDoc is one command in a Document.
type CommandDoc struct {
	Name        string         `json:"name" yaml:"name" jsonschema:"minLength=1,maxLength=32"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty" jsonschema:"maxLength=100"`
	Parameters  []ParameterDoc `json:"parameters,omitempty" yaml:"parameters,omitempty" jsonschema:"maxItems=25"`
	Source      string         `json:"source" yaml:"source" jsonschema:"minLength=1"`
}

// ParameterDoc is one declared parameter in a CommandDoc.
type ParameterDoc struct {
	Name        string `json:"name" yaml:"name" jsonschema:"minLength=1,maxLength=32"`
	Type        string `json:"type" yaml:"type" jsonschema:"enum=bool,enum=integer,enum=number,enum=string"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" jsonschema:"maxLength=100"`
	Required    bool   `json:"required,omitempty" yaml:"required,omitempty"`
}

// Definition converts c.
func (c CommandDoc) Definition() ir.Definition {
	def := ir.Definition{
		Name:        c.Name,
		Description: c.Description,
		Source:      c.Source,
	}
	for _, p := range c.Parameters {
		def.Parameters = append(def.Parameters, ir.Parameter{
			Name:        p.Name,
			Type:        ir.ParamType(p.Type),
			Description: p.Description,
			Required:    p.Required,
		})
	}
	return def
}

// DocumentError lists schema violations in a YAML document.
type DocumentError struct {
	Filename string
	Problems []string // "<instance location>: <message>"
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s: invalid definition document: %s", e.Filename, strings.Join(e.Problems, "; "))
}

// ParseYAML parses a YAML definition document. The document is validated
// against Schema first, then decoded strictly.
func ParseYAML(data []byte, filename string) ([]ir.Definition, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%s: parse yaml: %w", filename, err)
	}
	if err := validateDocument(raw, filename); err != nil {
		return nil, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: decode yaml: %w", filename, err)
	}

	defs := make([]ir.Definition, len(doc.Commands))
	for i, c := range doc.Commands {
		defs[i] = c.Definition()
	}
	return defs, nil
}

// toJSONValue converts a decoded YAML tree into the types produced by
// encoding/json, which the schema validator expects.
func toJSONValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
