package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/guildscript/internal/ir"
	"github.com/roach88/guildscript/internal/surface"
)

// SurfaceResult is the output of surface.
type SurfaceResult struct {
	Tenant    string                `json:"tenant"`
	Published bool                  `json:"published"`
	Command   *surface.GroupCommand `json:"command,omitempty"`
}

func (r SurfaceResult) renderText(w io.Writer) {
	if !r.Published {
		fmt.Fprintf(w, "Tenant %s has no commands; the grouping command is retracted.\n", r.Tenant)
		return
	}
	data, err := json.MarshalIndent(r.Command, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "%v\n", r.Command)
		return
	}
	fmt.Fprintln(w, string(data))
}

// NewSurfaceCommand creates the surface command.
func NewSurfaceCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "surface <tenant>",
		Short: "Print the grouping command published for a tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return formatter.Fail(err)
			}
			defer a.Close()

			records, err := a.manager.List(cmd.Context(), args[0])
			if err != nil {
				return formatter.Fail(err)
			}
			result := SurfaceResult{Tenant: args[0]}
			if group, ok := surface.Build(a.manager.GroupName(), records); ok {
				result.Published = true
				result.Command = &group
			}
			return formatter.Success(result)
		},
	}
}

// ClearOptions holds flags for the clear command.
type ClearOptions struct {
	*RootOptions
	Yes bool
}

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClearOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "clear <tenant>",
		Short: "Delete every command and the execution history of a tenant",
		Long: `Delete every command and the execution history of a tenant, and retract
its grouping command. This cannot be undone; pass --yes to confirm.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := opts.formatter(cmd)
			if !opts.Yes {
				return formatter.Fail(NewExitError(ExitCommandError, "refusing to clear without --yes"))
			}

			a, err := openApp(opts.RootOptions, cmd)
			if err != nil {
				return formatter.Fail(err)
			}
			defer a.Close()

			if err := a.manager.ClearTenant(cmd.Context(), args[0]); err != nil {
				return formatter.Fail(err)
			}
			return formatter.Success(fmt.Sprintf("cleared tenant %s", args[0]))
		},
	}

	cmd.Flags().BoolVar(&opts.Yes, "yes", false, "confirm the destructive clear")

	return cmd
}

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit int
}

// HistoryResult is the output of history.
type HistoryResult struct {
	Tenant     string         `json:"tenant"`
	Executions []ir.Execution `json:"executions"`
}

func (r HistoryResult) renderText(w io.Writer) {
	if len(r.Executions) == 0 {
		fmt.Fprintf(w, "No executions for tenant %s.\n", r.Tenant)
		return
	}
	for _, e := range r.Executions {
		status := "ok"
		if e.Error != "" {
			status = "error: " + e.Error
		}
		fmt.Fprintf(w, "%6d  %s  %-32s replied=%-5t %s\n", e.Seq, e.ID, e.Command, e.Replied, status)
	}
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history <tenant>",
		Short: "Show recent executions of a tenant's commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := opts.formatter(cmd)
			a, err := openApp(opts.RootOptions, cmd)
			if err != nil {
				return formatter.Fail(err)
			}
			defer a.Close()

			execs, err := a.manager.History(cmd.Context(), args[0], opts.Limit)
			if err != nil {
				return formatter.Fail(err)
			}
			if execs == nil {
				execs = []ir.Execution{}
			}
			return formatter.Success(HistoryResult{Tenant: args[0], Executions: execs})
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "number of most recent executions, 0 for all")

	return cmd
}
