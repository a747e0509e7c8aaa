package compiler

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	schemavalidator "github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaResource = "guildscript-document.json"

// Schema returns the JSON Schema (draft 2020-12) for YAML definition documents.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(&Document{})
	schema.Title = "guildscript command definitions"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}

var (
	compiledOnce   sync.Once
	compiledSchema *schemavalidator.Schema
	compiledErr    error
)

func documentSchema() (*schemavalidator.Schema, error) {
	compiledOnce.Do(func() {
		data, err := Schema()
		if err != nil {
			compiledErr = err
			return
		}
		c := schemavalidator.NewCompiler()
		if err := c.AddResource(schemaResource, strings.NewReader(string(data))); err != nil {
			compiledErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, compiledErr = c.Compile(schemaResource)
	})
	return compiledSchema, compiledErr
}

// validateDocument checks a decoded YAML document against Schema.
func validateDocument(raw any, filename string) error {
	sch, err := documentSchema()
	if err != nil {
		return err
	}
	doc, err := toJSONValue(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}

	err = sch.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *schemavalidator.ValidationError
	if !errors.As(err, &ve) {
		return fmt.Errorf("%s: %w", filename, err)
	}
	derr := &DocumentError{Filename: filename}
	collectProblems(ve, &derr.Problems)
	return derr
}

// collectProblems flattens the leaf causes of a validation error.
func collectProblems(ve *schemavalidator.ValidationError, out *[]string) {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		*out = append(*out, fmt.Sprintf("%s: %s", loc, ve.Message))
		return
	}
	for _, c := range ve.Causes {
		collectProblems(c, out)
	}
}
