package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/guildscript/internal/manager"
	"github.com/roach88/guildscript/internal/store"
	"github.com/roach88/guildscript/internal/surface"
)

// app is the wiring shared by every command that touches tenant data.
type app struct {
	store   *store.Store
	manager *manager.Manager
	logger  *slog.Logger
	closers []io.Closer
}

// openApp opens the configured store and builds a Manager over it.
func openApp(opts *RootOptions, cmd *cobra.Command) (*app, error) {
	cfg := opts.Config
	logger := opts.logger(cmd)

	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeDatabase, Message: fmt.Sprintf("open database %s: %v", cfg.Database, err)}
	}
	if err := st.Ping(cmd.Context()); err != nil {
		st.Close()
		return nil, &LoadError{Code: ErrCodeDatabase, Message: fmt.Sprintf("database %s unreachable: %v", cfg.Database, err)}
	}
	a := &app{store: st, logger: logger}

	var publishTo io.Writer
	switch cfg.PublishLog {
	case "":
		publishTo = io.Discard
	case "-":
		publishTo = cmd.OutOrStdout()
	default:
		f, err := os.OpenFile(cfg.PublishLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			st.Close()
			return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("open publish log: %v", err)}
		}
		publishTo = f
		a.closers = append(a.closers, f)
	}

	a.manager = manager.New(st, surface.NewWriterPublisher(publishTo),
		manager.WithLogger(logger),
		manager.WithGroupName(cfg.Group),
		manager.WithExecutionTimeout(cfg.ExecutionTimeout),
		manager.WithMaxCommands(cfg.MaxCommands),
		manager.WithSweepInterval(cfg.SweepInterval),
	)
	return a, nil
}

// Close releases the manager, the store and any open log file.
func (a *app) Close() {
	a.manager.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", "error", err)
	}
	for _, c := range a.closers {
		_ = c.Close()
	}
}
