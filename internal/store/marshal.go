package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/guildscript/internal/ir"
)

// marshalParameters converts declared parameters to JSON TEXT.
// HTML escaping is disabled so descriptions are stored as written.
func marshalParameters(params []ir.Parameter) (string, error) {
	if params == nil {
		params = []ir.Parameter{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(params); err != nil {
		return "", fmt.Errorf("marshal parameters: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalParameters parses stored parameter JSON. Unknown fields are
// rejected so schema drift shows up as an error rather than silent loss.
func unmarshalParameters(data string) ([]ir.Parameter, error) {
	if data == "" || data == "[]" {
		return []ir.Parameter{}, nil
	}
	dec := json.NewDecoder(strings.NewReader(data))
	dec.DisallowUnknownFields()
	var params []ir.Parameter
	if err := dec.Decode(&params); err != nil {
		return nil, fmt.Errorf("unmarshal parameters: %w", err)
	}
	return params, nil
}
