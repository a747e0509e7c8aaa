package ir

// ParamType is the declared type of a command parameter.
type ParamType string

const (
	ParamBool    ParamType = "bool"
	ParamInteger ParamType = "integer"
	ParamNumber  ParamType = "number"
	ParamString  ParamType = "string"
)

// ValidParamTypes defines allowed parameter types.
var ValidParamTypes = map[ParamType]bool{
	ParamBool:    true,
	ParamInteger: true,
	ParamNumber:  true,
	ParamString:  true,
}

// Accepts reports whether v is an acceptable argument for a parameter of type t.
func (t ParamType) Accepts(v Value) bool {
	switch t {
	case ParamBool:
		_, ok := v.(Bool)
		return ok
	case ParamInteger:
		n, ok := v.(Number)
		return ok && n.IsInteger()
	case ParamNumber:
		_, ok := v.(Number)
		return ok
	case ParamString:
		_, ok := v.(String)
		return ok
	default:
		return false
	}
}

// Parameter describes one declared argument of a custom command.
type Parameter struct {
	Name        string    `json:"name" yaml:"name" validate:"required,cmdname"`
	Type        ParamType `json:"type" yaml:"type" validate:"required,oneof=bool integer number string"`
	Description string    `json:"description" yaml:"description" validate:"max=100"`
	Required    bool      `json:"required" yaml:"required"`
}

// Definition is the shape accepted by register and update.
type Definition struct {
	Name        string      `json:"name" yaml:"name" validate:"required,cmdname"`
	Description string      `json:"description" yaml:"description" validate:"max=100"`
	Parameters  []Parameter `json:"parameters,omitempty" yaml:"parameters,omitempty" validate:"max=25,dive"`
	Source      string      `json:"source" yaml:"source" validate:"required"`
}

// Record is a persisted custom command: a definition plus the label of
// where it came from. The compiled function is derived state and never stored.
type Record struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
	Source      string      `json:"source"`
	Origin      string      `json:"origin"`
}

// Record builds the record stored for d.
func (d Definition) Record(origin string) Record {
	params := make([]Parameter, len(d.Parameters))
	copy(params, d.Parameters)
	return Record{
		Name:        d.Name,
		Description: d.Description,
		Parameters:  params,
		Source:      d.Source,
		Origin:      origin,
	}
}

// Definition returns the submitted shape of r.
func (r Record) Definition() Definition {
	params := make([]Parameter, len(r.Parameters))
	copy(params, r.Parameters)
	return Definition{
		Name:        r.Name,
		Description: r.Description,
		Parameters:  params,
		Source:      r.Source,
	}
}

// Label is the diagnostic chunk name used when compiling the record's source.
func (r Record) Label() string {
	if r.Origin == "" {
		return r.Name
	}
	return r.Origin + ":" + r.Name
}

// Parameter returns the declared parameter called name.
func (r Record) Parameter(name string) (Parameter, bool) {
	for _, p := range r.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// Execution is one entry of a tenant's execution history.
type Execution struct {
	ID      string `json:"id"`
	Tenant  string `json:"tenant"`
	Command string `json:"command"`
	Replied bool   `json:"replied"`
	Error   string `json:"error,omitempty"`
	Seq     int64  `json:"seq"`
}
