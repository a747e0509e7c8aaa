package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/guildscript/internal/compiler"
	"github.com/roach88/guildscript/internal/manager"
)

// DefaultTenant is used when neither the scenario nor a step names one.
const DefaultTenant = "scenario"

// Scenario is one executable conformance scenario.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Tenant is the default tenant for steps and assertions.
	Tenant string `yaml:"tenant,omitempty"`

	// MaxCommands overrides the per-tenant quota when positive.
	MaxCommands int `yaml:"max_commands,omitempty"`

	// Timeout bounds each execution. Zero means DefaultTimeout.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// DefaultTimeout bounds executions in scenarios that set no timeout.
const DefaultTimeout = 2 * time.Second

// Step operations.
const (
	OpRegister = "register"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpExecute  = "execute"
	OpRestart  = "restart"
	OpClear    = "clear"
	OpSweep    = "sweep"
)

// Step is one manager operation.
type Step struct {
	Op     string `yaml:"op"`
	Tenant string `yaml:"tenant,omitempty"`

	// Command is an inline definition for register and update.
	Command *compiler.CommandDoc `yaml:"command,omitempty"`

	// File is a definition document for register; every command in it is
	// registered. Relative paths resolve against the scenario file.
	File string `yaml:"file,omitempty"`

	// Name selects the command for update, delete and execute.
	Name string `yaml:"name,omitempty"`

	Args  map[string]any `yaml:"args,omitempty"`
	Force bool           `yaml:"force,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the outcome of a step.
type Expect struct {
	// Error is a manager error code, e.g. SUBMISSION_REJECTED.
	Error string `yaml:"error,omitempty"`

	// Replied and Replies apply to execute.
	Replied *bool `yaml:"replied,omitempty"`
	Replies []any `yaml:"replies,omitempty"`
}

// Assertion types.
const (
	AssertCommandCount = "command_count"
	AssertPublished    = "published"
	AssertRetracted    = "retracted"
	AssertHistoryCount = "history_count"
)

// Assertion checks final state after all steps.
type Assertion struct {
	Type   string `yaml:"type"`
	Tenant string `yaml:"tenant,omitempty"`

	// Count is used by command_count and history_count.
	Count int `yaml:"count,omitempty"`

	// Commands lists the published option names, in order (published).
	Commands []string `yaml:"commands,omitempty"`
}

// LoadScenario reads a scenario file. Unknown fields are rejected and file
// references are resolved relative to the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	for i := range s.Steps {
		if f := s.Steps[i].File; f != "" && !filepath.IsAbs(f) {
			s.Steps[i].File = filepath.Join(base, f)
		}
	}
	return s, nil
}

// ParseScenario decodes and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step Step) error {
	switch step.Op {
	case OpRegister:
		if (step.Command == nil) == (step.File == "") {
			return fmt.Errorf("steps[%d]: register needs exactly one of command or file", i)
		}
	case OpUpdate:
		if step.Command == nil {
			return fmt.Errorf("steps[%d]: update needs command", i)
		}
	case OpDelete, OpExecute:
		if step.Name == "" {
			return fmt.Errorf("steps[%d]: %s needs name", i, step.Op)
		}
	case OpRestart, OpClear, OpSweep:
	case "":
		return fmt.Errorf("steps[%d]: op is required", i)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
	}

	if step.Op != OpExecute && step.Args != nil {
		return fmt.Errorf("steps[%d]: args only apply to execute", i)
	}
	if step.Force && step.Op != OpRestart {
		return fmt.Errorf("steps[%d]: force only applies to restart", i)
	}

	if e := step.Expect; e != nil {
		if e.Error != "" && !knownCodes[manager.ErrorCode(e.Error)] {
			return fmt.Errorf("steps[%d].expect: unknown error code %q", i, e.Error)
		}
		if (e.Replied != nil || e.Replies != nil) && step.Op != OpExecute {
			return fmt.Errorf("steps[%d].expect: replied and replies only apply to execute", i)
		}
	}
	return nil
}

var knownCodes = map[manager.ErrorCode]bool{
	manager.CodeSubmissionRejected: true,
	manager.CodeNotFound:           true,
	manager.CodePersistenceFailure: true,
	manager.CodeMarshalError:       true,
	manager.CodeGuestRuntimeError:  true,
	manager.CodePlatformSyncError:  true,
}

func validateAssertion(i int, a Assertion) error {
	switch a.Type {
	case AssertCommandCount, AssertHistoryCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", i)
		}
	case AssertPublished:
		if len(a.Commands) == 0 {
			return fmt.Errorf("assertions[%d]: commands is required for published", i)
		}
	case AssertRetracted:
	case "":
		return fmt.Errorf("assertions[%d]: type is required", i)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
	}
	return nil
}
