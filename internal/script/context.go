package script

import (
	"context"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/roach88/guildscript/internal/bridge"
	"github.com/roach88/guildscript/internal/ir"
)

// contextTypeName is the registry key of the execution context metatable.
const contextTypeName = "guildscript.context"

// Replier delivers a guest reply to whoever invoked the command.
type Replier interface {
	Reply(ctx context.Context, content ir.Value) error
}

// ReplierFunc adapts a function to Replier.
type ReplierFunc func(ctx context.Context, content ir.Value) error

// Reply implements Replier.
func (f ReplierFunc) Reply(ctx context.Context, content ir.Value) error {
	return f(ctx, content)
}

// DiscardReplier accepts and drops every reply.
var DiscardReplier Replier = ReplierFunc(func(context.Context, ir.Value) error { return nil })

// ExecutionContext is the capability handed to guest code for one invocation.
// It exposes a single action, reply, usable at most once.
type ExecutionContext struct {
	ctx     context.Context
	replier Replier

	mu      sync.Mutex
	replied bool
	closed  bool
}

// NewExecutionContext creates a context that forwards its reply to r.
func NewExecutionContext(ctx context.Context, r Replier) *ExecutionContext {
	if r == nil {
		r = DiscardReplier
	}
	return &ExecutionContext{ctx: ctx, replier: r}
}

// Replied reports whether the reply capability was used.
func (ec *ExecutionContext) Replied() bool {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.replied
}

// Reply records and forwards content. A second call fails, as does any call
// after Close.
func (ec *ExecutionContext) Reply(content ir.Value) error {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	switch {
	case ec.closed:
		return errExecutionEnded
	case ec.replied:
		return errAlreadyReplied
	}
	ec.replied = true
	return ec.replier.Reply(ec.ctx, content)
}

// Close ends the invocation. It waits for a reply in progress; later replies
// are refused and never reach the Replier.
func (ec *ExecutionContext) Close() {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.closed = true
}

type replyError string

func (e replyError) Error() string { return string(e) }

const (
	errAlreadyReplied = replyError("already replied")
	errExecutionEnded = replyError("execution has ended")
)

// userData wraps ec for the guest.
func (ec *ExecutionContext) userData(L *lua.LState) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = ec
	L.SetMetatable(ud, L.GetTypeMetatable(contextTypeName))
	return ud
}

// registerContextType installs the execution context metatable in L.
func registerContextType(L *lua.LState) {
	mt := L.NewTypeMetatable(contextTypeName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"reply": contextReply,
	}))
	// Hide the metatable from getmetatable/setmetatable.
	L.SetField(mt, "__metatable", lua.LFalse)
}

// contextReply implements ctx:reply(content).
func contextReply(L *lua.LState) int {
	ud := L.CheckUserData(1)
	ec, ok := ud.Value.(*ExecutionContext)
	if !ok {
		L.ArgError(1, "execution context expected")
		return 0
	}

	content, err := bridge.ToValueAt(L.CheckAny(2), "reply")
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}

	if err := ec.Reply(content); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}
