package ir

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is a package-level singleton; validator caches struct metadata.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("cmdname", func(fl validator.FieldLevel) bool {
		return IsValidName(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("ir: register cmdname validation: %v", err))
	}
	return v
}

// FieldError describes one invalid field of a definition.
type FieldError struct {
	Field   string
	Message string
}

// DefinitionError lists every problem found in a submitted definition.
type DefinitionError struct {
	Name   string
	Fields []FieldError
}

func (e *DefinitionError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	if e.Name != "" {
		return fmt.Sprintf("invalid definition %q: %s", e.Name, strings.Join(parts, "; "))
	}
	return "invalid definition: " + strings.Join(parts, "; ")
}

// ValidateDefinition checks a (normalised) definition against the rules of the
// external command surface: name syntax, description length, at most 25
// parameters with unique names, and required parameters declared before
// optional ones.
func ValidateDefinition(d Definition) error {
	derr := &DefinitionError{Name: d.Name}

	if err := validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			derr.Fields = append(derr.Fields, FieldError{
				Field:   fieldPath(fe.Namespace()),
				Message: describeTag(fe),
			})
		}
	}

	seen := make(map[string]bool, len(d.Parameters))
	optionalSeen := false
	for i, p := range d.Parameters {
		field := fmt.Sprintf("parameters[%d]", i)
		if seen[p.Name] {
			derr.Fields = append(derr.Fields, FieldError{Field: field + ".name", Message: fmt.Sprintf("duplicate parameter %q", p.Name)})
		}
		seen[p.Name] = true
		if !p.Required {
			optionalSeen = true
		} else if optionalSeen {
			derr.Fields = append(derr.Fields, FieldError{Field: field, Message: "required parameters must precede optional ones"})
		}
	}

	if len(derr.Fields) > 0 {
		return derr
	}
	return nil
}

// fieldPath turns a validator namespace ("Definition.Parameters[0].Name") into
// the document path used in messages ("parameters[0].name").
func fieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		if idx := strings.IndexByte(p, '['); idx > 0 {
			parts[i] = strings.ToLower(p[:idx]) + p[idx:]
		} else {
			parts[i] = strings.ToLower(p)
		}
	}
	return strings.Join(parts, ".")
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "cmdname":
		return fmt.Sprintf("%q must be 1-%d lower-case letters, digits, '-' or '_'", fe.Value(), MaxNameLength)
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("%v is not one of %s", fe.Value(), fe.Param())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
