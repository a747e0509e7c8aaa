package cli

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/guildscript/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Database   string
	Group      string
	Timeout    time.Duration

	// Config is the resolved configuration: defaults, then the --config
	// file, then explicitly set flags. Filled in before any RunE.
	Config config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the guildscript CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "guildscript",
		Short: "guildscript - per-tenant custom commands in sandboxed Lua",
		Long: `Manage and run tenant-defined custom commands.

Each tenant registers commands written in a sandboxed Lua dialect. Commands
are persisted in SQLite, published as one grouping command per tenant and
executed on demand with typed arguments.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	// Global flags
	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	pf.StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	pf.StringVar(&opts.Group, "group", "", "name of the published grouping command (overrides config)")
	pf.DurationVar(&opts.Timeout, "timeout", 0, "execution timeout, 0 disables (overrides config)")

	// Add subcommands
	cmd.AddCommand(NewRegisterCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewExecCommand(opts))
	cmd.AddCommand(NewSurfaceCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))

	return cmd
}

// resolve layers the config file and explicitly set flags over defaults.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	cfg := config.Default()
	if o.ConfigPath != "" {
		loaded, err := config.Load(o.ConfigPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Format = o.Format
	}
	if flags.Changed("db") {
		cfg.Database = o.Database
	}
	if flags.Changed("group") {
		cfg.Group = o.Group
	}
	if flags.Changed("timeout") {
		cfg.ExecutionTimeout = o.Timeout
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}

	if !isValidFormat(cfg.Format) {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("invalid format %q: must be one of %v", cfg.Format, ValidFormats))
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid settings", err)
	}

	o.Format = cfg.Format
	o.Config = cfg
	return nil
}

// formatter builds the OutputFormatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// logger returns a text logger on the command's stderr.
func (o *RootOptions) logger(cmd *cobra.Command) *slog.Logger {
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: o.Config.SlogLevel(),
	}))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
