package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/guildscript/internal/manager"
)

// ValidationIssue is one rejected definition.
type ValidationIssue struct {
	Command string `json:"command"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Commands []string          `json:"commands"`
	Errors   []ValidationIssue `json:"errors,omitempty"`
}

func (r ValidationResult) renderText(w io.Writer) {
	if r.Valid {
		fmt.Fprintf(w, "\u2713 %d command(s) valid\n", len(r.Commands))
		return
	}
	fmt.Fprintln(w, "\u2717 Validation failed")
	fmt.Fprintln(w)
	for _, issue := range r.Errors {
		fmt.Fprintf(w, "  %s: %s\n", issue.Command, issue.Message)
	}
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <path>",
		Short: "Check definitions without registering them",
		Long: `Check command definitions without touching any tenant or database.

Runs the same checks as register: name rules, description and parameter
limits, and a syntax check of the Lua source. Every definition is checked;
all failures are reported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd, args[0])
		},
	}
}

func runValidate(opts *RootOptions, cmd *cobra.Command, path string) error {
	formatter := opts.formatter(cmd)

	defs, err := LoadDefinitions(path)
	if err != nil {
		return formatter.Fail(err)
	}

	origin := filepath.Base(path)
	result := ValidationResult{Valid: true, Commands: []string{}}
	for _, def := range defs {
		formatter.VerboseLog("Validating command: %s", def.Name)
		rec, err := manager.Prepare(def, origin)
		if err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, ValidationIssue{Command: def.Name, Message: err.Error()})
			continue
		}
		result.Commands = append(result.Commands, rec.Name)
	}

	if err := formatter.Success(result); err != nil {
		return err
	}
	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}
	return nil
}
