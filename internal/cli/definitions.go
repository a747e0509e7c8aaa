package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/guildscript/internal/ir"
)

// CommandsResult lists the commands touched by register or update.
type CommandsResult struct {
	Tenant   string   `json:"tenant"`
	Action   string   `json:"action"`
	Commands []string `json:"commands"`
}

func (r CommandsResult) renderText(w io.Writer) {
	for _, name := range r.Commands {
		fmt.Fprintf(w, "%s %s (tenant %s)\n", r.Action, name, r.Tenant)
	}
}

// NewRegisterCommand creates the register command.
func NewRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "register <tenant> <path>",
		Short: "Register commands from a definition file or directory",
		Long: `Register every command defined in a .cue, .yaml or .yml document, or in
a directory of them. Registration stops at the first rejected command;
commands registered before it are kept.

Example:
  guildscript register guild-1 ./commands/greet.cue`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return submitDefinitions(rootOpts, cmd, args[0], args[1], false)
		},
	}
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update <tenant> <path>",
		Short: "Replace existing commands from a definition file or directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return submitDefinitions(rootOpts, cmd, args[0], args[1], true)
		},
	}
}

func submitDefinitions(opts *RootOptions, cmd *cobra.Command, tenant, path string, update bool) error {
	formatter := opts.formatter(cmd)

	defs, err := LoadDefinitions(path)
	if err != nil {
		return formatter.Fail(err)
	}
	formatter.VerboseLog("Loaded %d definition(s) from %s", len(defs), path)

	a, err := openApp(opts, cmd)
	if err != nil {
		return formatter.Fail(err)
	}
	defer a.Close()

	origin := filepath.Base(path)
	result := CommandsResult{Tenant: tenant, Action: "registered", Commands: []string{}}
	if update {
		result.Action = "updated"
	}

	ctx := cmd.Context()
	for _, def := range defs {
		if update {
			err = a.manager.Update(ctx, tenant, def.Name, def, origin)
		} else {
			err = a.manager.Register(ctx, tenant, def, origin)
		}
		if err != nil {
			return formatter.Fail(err)
		}
		result.Commands = append(result.Commands, ir.NormalizeName(def.Name))
	}
	return formatter.Success(result)
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <tenant> <name>",
		Short: "Delete a command",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return formatter.Fail(err)
			}
			defer a.Close()

			if err := a.manager.Delete(cmd.Context(), args[0], args[1]); err != nil {
				return formatter.Fail(err)
			}
			return formatter.Success(CommandsResult{
				Tenant:   args[0],
				Action:   "deleted",
				Commands: []string{ir.NormalizeName(args[1])},
			})
		},
	}
}

// CommandSummary is one row of list output.
type CommandSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  int    `json:"parameters"`
	Origin      string `json:"origin"`
}

// ListResult is the output of list.
type ListResult struct {
	Tenant   string           `json:"tenant"`
	Commands []CommandSummary `json:"commands"`
}

func (r ListResult) renderText(w io.Writer) {
	if len(r.Commands) == 0 {
		fmt.Fprintf(w, "No commands for tenant %s.\n", r.Tenant)
		return
	}
	for _, c := range r.Commands {
		desc := c.Description
		if desc == "" {
			desc = "-"
		}
		fmt.Fprintf(w, "%-32s %2d param(s)  %s\n", c.Name, c.Parameters, desc)
	}
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <tenant>",
		Short: "List a tenant's commands",
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
			result := ListResult{Tenant: args[0], Commands: make([]CommandSummary, len(records))}
			for i, rec := range records {
				result.Commands[i] = CommandSummary{
					Name:        rec.Name,
					Description: rec.Description,
					Parameters:  len(rec.Parameters),
					Origin:      rec.Origin,
				}
			}
			return formatter.Success(result)
		},
	}
}

// ShowResult is the output of show.
type ShowResult struct {
	Tenant  string    `json:"tenant"`
	Command ir.Record `json:"command"`
	Digest  string    `json:"digest"`
}

func (r ShowResult) renderText(w io.Writer) {
	c := r.Command
	fmt.Fprintf(w, "Name:        %s\n", c.Name)
	fmt.Fprintf(w, "Description: %s\n", c.Description)
	fmt.Fprintf(w, "Origin:      %s\n", c.Origin)
	fmt.Fprintf(w, "Digest:      %s\n", ir.ShortDigest(r.Digest))
	if len(c.Parameters) > 0 {
		fmt.Fprintln(w, "Parameters:")
		for _, p := range c.Parameters {
			req := "optional"
			if p.Required {
				req = "required"
			}
			fmt.Fprintf(w, "  %s (%s, %s) %s\n", p.Name, p.Type, req, p.Description)
		}
	}
	fmt.Fprintln(w, "Source:")
	fmt.Fprintln(w, c.Source)
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <tenant> <name>",
		Short: "Show one command's definition",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return formatter.Fail(err)
			}
			defer a.Close()

			rec, err := a.manager.Get(cmd.Context(), args[0], args[1])
			if err != nil {
				return formatter.Fail(err)
			}
			// The stored digest is what was persisted at write time.
			digest, err := a.store.Digest(cmd.Context(), args[0], rec.Name)
			if err != nil {
				return formatter.Fail(&LoadError{Code: ErrCodeDatabase, Message: err.Error()})
			}
			if digest == "" {
				digest = ir.SourceDigest(rec.Source)
			}
			return formatter.Success(ShowResult{
				Tenant:  args[0],
				Command: rec,
				Digest:  digest,
			})
		},
	}
}
