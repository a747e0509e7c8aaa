package harness

import "github.com/roach88/guildscript/internal/ir"

// OutcomeOK is the trace outcome of a step that returned no error.
const OutcomeOK = "ok"

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Op      string `json:"op"`
	Tenant  string `json:"tenant,omitempty"`
	Command string `json:"command,omitempty"`

	// Outcome is OutcomeOK or the manager error code.
	Outcome string `json:"outcome"`

	Args    ir.Object  `json:"args,omitempty"`
	Replied *bool      `json:"replied,omitempty"`
	Replies []ir.Value `json:"replies,omitempty"`
	Evicted *int       `json:"evicted,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass   bool         `json:"pass"`
	Trace  []TraceEvent `json:"trace"`
	Errors []string     `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
