package cli

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/roach88/guildscript/internal/ir"
	"github.com/roach88/guildscript/internal/script"
)

// ExecOptions holds flags for the exec command.
type ExecOptions struct {
	*RootOptions
	Args string
}

// ExecResult is the output of exec.
type ExecResult struct {
	Tenant  string `json:"tenant"`
	Command string `json:"command"`
	Replied bool   `json:"replied"`
	Reply   any    `json:"reply,omitempty"`
}

func (r ExecResult) renderText(w io.Writer) {
	if !r.Replied {
		fmt.Fprintln(w, "(no reply)")
		return
	}
	if s, ok := r.Reply.(string); ok {
		fmt.Fprintln(w, s)
		return
	}
	data, err := ir.MarshalCanonical(r.Reply)
	if err != nil {
		fmt.Fprintf(w, "%v\n", r.Reply)
		return
	}
	fmt.Fprintln(w, string(data))
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exec <tenant> <name>",
		Short: "Execute a command",
		Long: `Execute a tenant's command with arguments given as a JSON object.

Only declared parameters are passed to the command; other keys are ignored.

Example:
  guildscript exec guild-1 greet --args '{"name":"Ada"}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(opts, cmd, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&opts.Args, "args", "{}", "command arguments as a JSON object")

	return cmd
}

func runExec(opts *ExecOptions, cmd *cobra.Command, tenant, name string) error {
	formatter := opts.formatter(cmd)

	args, err := ir.UnmarshalObject([]byte(opts.Args))
	if err != nil {
		return formatter.Fail(&LoadError{Code: ErrCodeBadArgs, Message: fmt.Sprintf("invalid --args JSON: %v", err)})
	}

	a, err := openApp(opts.RootOptions, cmd)
	if err != nil {
		return formatter.Fail(err)
	}
	defer a.Close()

	var (
		mu    sync.Mutex
		reply ir.Value
	)
	replier := script.ReplierFunc(func(_ context.Context, v ir.Value) error {
		mu.Lock()
		defer mu.Unlock()
		reply = v
		return nil
	})

	replied, err := a.manager.Execute(cmd.Context(), tenant, name, args, replier)
	result := ExecResult{Tenant: tenant, Command: ir.NormalizeName(name), Replied: replied}
	mu.Lock()
	if reply != nil {
		result.Reply = ir.ToAny(reply)
	}
	mu.Unlock()

	if err != nil {
		if replied {
			// The guest replied before failing; show what it sent.
			_ = formatter.Success(result)
		}
		return formatter.Fail(err)
	}
	return formatter.Success(result)
}
