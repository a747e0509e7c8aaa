package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/guildscript/internal/ir"
	"github.com/roach88/guildscript/internal/manager"
	"github.com/roach88/guildscript/internal/script"
)

// maxRequestLine bounds one request line on stdin.
const maxRequestLine = 1 << 20

// Request is one JSON line read by run.
type Request struct {
	ID         string          `json:"id,omitempty"`
	Op         string          `json:"op"` // register|update|delete|execute|list|restart|clear|history
	Tenant     string          `json:"tenant"`
	Name       string          `json:"name,omitempty"`
	Definition *ir.Definition  `json:"definition,omitempty"`
	Args       json.RawMessage `json:"args,omitempty"`
	Force      bool            `json:"force,omitempty"`
	Limit      int             `json:"limit,omitempty"`
}

// Response is one JSON line written by run, correlated by ID.
type Response struct {
	ID      string    `json:"id,omitempty"`
	OK      bool      `json:"ok"`
	Replied *bool     `json:"replied,omitempty"`
	Reply   any       `json:"reply,omitempty"`
	Result  any       `json:"result,omitempty"`
	Error   *CLIError `json:"error,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Serve JSON-line requests on stdin",
		Long: `Serve requests read from stdin, one JSON object per line, until EOF or
an interrupt. Requests for different tenants run in parallel; requests for
one tenant run in the order they were read. Each response
line carries the request's id. A restart with "force":true is handled at
once, so it can abandon an execution that is stuck. Idle tenants are evicted
in the background.

Example:
  echo '{"id":"1","op":"execute","tenant":"guild-1","name":"greet","args":{"name":"Ada"}}' \
    | guildscript run --db ./guildscript.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(rootOpts, cmd)
		},
	}
}

func runServer(opts *RootOptions, cmd *cobra.Command) error {
	a, err := openApp(opts, cmd)
	if err != nil {
		return opts.formatter(cmd).Fail(err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			a.logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		a.manager.Run(ctx)
	}()

	a.logger.Info("serving requests", "db", opts.Config.Database)
	err = serve(ctx, a.manager, a.logger, cmd.InOrStdin(), cmd.OutOrStdout())
	cancel()
	<-sweeperDone

	if err != nil {
		return WrapExitError(ExitCommandError, "reading requests", err)
	}
	a.logger.Info("stopped gracefully", "tenants", a.manager.Tenants())
	return nil
}

// tenantQueue is the backlog of one tenant's worker.
const tenantQueue = 16

// server dispatches requests to a Manager and writes responses. Each tenant
// gets a worker so its requests run in input order.
type server struct {
	manager *manager.Manager
	logger  *slog.Logger

	mu  sync.Mutex
	enc *json.Encoder

	queues map[string]chan Request
	wg     sync.WaitGroup
}

// serve handles every line of r until EOF or ctx is done, then waits for
// queued requests to finish.
func serve(ctx context.Context, m *manager.Manager, logger *slog.Logger, r io.Reader, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	s := &server{manager: m, logger: logger, enc: enc, queues: make(map[string]chan Request)}

	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), maxRequestLine)
		for sc.Scan() {
			line := append([]byte(nil), sc.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	defer s.drain()
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			var req Request
			if err := json.Unmarshal(line, &req); err != nil {
				s.write(failure("", &LoadError{Code: ErrCodeBadArgs, Message: fmt.Sprintf("invalid request: %v", err)}))
				continue
			}
			if req.Tenant == "" {
				s.write(failure(req.ID, &LoadError{Code: ErrCodeBadArgs, Message: "tenant is required"}))
				continue
			}
			s.enqueue(ctx, req)
		}
	}
}

func (s *server) enqueue(ctx context.Context, req Request) {
	if req.Op == "restart" && req.Force {
		// A forced restart must reach a tenant whose worker is stuck in
		// Execute, so it skips the queue.
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.write(s.handle(ctx, req))
		}()
		return
	}

	q, ok := s.queues[req.Tenant]
	if !ok {
		q = make(chan Request, tenantQueue)
		s.queues[req.Tenant] = q
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for req := range q {
				s.write(s.handle(ctx, req))
			}
		}()
	}
	q <- req
}

// drain closes every queue and waits for the workers to empty them.
func (s *server) drain() {
	for _, q := range s.queues {
		close(q)
	}
	s.wg.Wait()
}

func (s *server) write(resp Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(resp); err != nil {
		s.logger.Error("writing response", "id", resp.ID, "error", err)
	}
}

func (s *server) handle(ctx context.Context, req Request) Response {
	m := s.manager
	resp := Response{ID: req.ID, OK: true}
	var err error

	switch req.Op {
	case "register", "update":
		if req.Definition == nil {
			return failure(req.ID, &LoadError{Code: ErrCodeBadArgs, Message: req.Op + " needs definition"})
		}
		if req.Op == "register" {
			err = m.Register(ctx, req.Tenant, *req.Definition, "run")
		} else {
			name := req.Name
			if name == "" {
				name = req.Definition.Name
			}
			err = m.Update(ctx, req.Tenant, name, *req.Definition, "run")
		}

	case "delete":
		err = m.Delete(ctx, req.Tenant, req.Name)

	case "execute":
		args := ir.Object{}
		if len(req.Args) > 0 {
			args, err = ir.UnmarshalObject(req.Args)
			if err != nil {
				return failure(req.ID, &LoadError{Code: ErrCodeBadArgs, Message: fmt.Sprintf("invalid args: %v", err)})
			}
		}
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
		var replied bool
		replied, err = m.Execute(ctx, req.Tenant, req.Name, args, replier)
		resp.Replied = &replied
		mu.Lock()
		if reply != nil {
			resp.Reply = ir.ToAny(reply)
		}
		mu.Unlock()

	case "list":
		var records []ir.Record
		records, err = m.List(ctx, req.Tenant)
		resp.Result = records

	case "restart":
		err = m.Restart(ctx, req.Tenant, req.Force)

	case "clear":
		err = m.ClearTenant(ctx, req.Tenant)

	case "history":
		var execs []ir.Execution
		execs, err = m.History(ctx, req.Tenant, req.Limit)
		resp.Result = execs

	default:
		return failure(req.ID, &LoadError{Code: ErrCodeBadArgs, Message: fmt.Sprintf("unknown op %q", req.Op)})
	}

	if err != nil {
		f := failure(req.ID, err)
		f.Replied, f.Reply = resp.Replied, resp.Reply
		return f
	}
	return resp
}

func failure(id string, err error) Response {
	code := ErrCodeGeneric
	if c := manager.CodeOf(err); c != "" {
		code = string(c)
	} else if le, ok := err.(*LoadError); ok {
		code = le.Code
	}
	return Response{ID: id, Error: &CLIError{Code: code, Message: err.Error()}}
}
