package script

import (
	"fmt"
	"log/slog"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// Guest runtime limits.
const (
	callStackSize = 200
	registrySize  = 1024 * 20
)

// removedGlobals are base library functions that reach outside the sandbox
// or load code at runtime.
var removedGlobals = []string{
	"dofile",
	"loadfile",
	"load",
	"loadstring",
	"require",
	"module",
	"collectgarbage",
	"getfenv",
	"setfenv",
	"newproxy",
	"_printregs",
}

// newSandboxState creates a Lua state with the restricted library set.
func newSandboxState(tenant string, logger *slog.Logger) *lua.LState {
	L := lua.NewState(lua.Options{
		SkipOpenLibs:        true,
		CallStackSize:       callStackSize,
		RegistrySize:        registrySize,
		IncludeGoStackTrace: false,
	})

	// Only pure libraries: no os, io, package, debug, coroutine or channel.
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range removedGlobals {
		L.SetGlobal(name, lua.LNil)
	}

	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		top := L.GetTop()
		parts := make([]string, 0, top)
		for i := 1; i <= top; i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		logger.Debug("guest print", "tenant", tenant, "output", strings.Join(parts, "\t"))
		return 0
	}))

	registerContextType(L)
	return L
}

// runtime is one live guest state. A runtime retired while a call is still
// running closes itself when that call returns.
type runtime struct {
	L       *lua.LState
	busy    bool
	retired bool
	closed  bool
	mu      chanMutex
}

// chanMutex is a mutex usable from the orphaned call goroutine and the
// owning tenant without sharing the tenant lock.
type chanMutex chan struct{}

func newChanMutex() chanMutex {
	return make(chanMutex, 1)
}

func (m chanMutex) lock()   { m <- struct{}{} }
func (m chanMutex) unlock() { <-m }

func newRuntime(tenant string, logger *slog.Logger) *runtime {
	return &runtime{L: newSandboxState(tenant, logger), mu: newChanMutex()}
}

// begin marks the runtime busy. Fails if it is busy or retired.
func (rt *runtime) begin() error {
	rt.mu.lock()
	defer rt.mu.unlock()
	if rt.busy || rt.retired {
		return fmt.Errorf("begin call: %w", ErrRuntimeBusy)
	}
	rt.busy = true
	return nil
}

// end clears the busy flag, closing the state if it was retired meanwhile.
func (rt *runtime) end() {
	rt.mu.lock()
	defer rt.mu.unlock()
	rt.busy = false
	if rt.retired {
		rt.closeLocked()
	}
}

// retire detaches the runtime from its host.
func (rt *runtime) retire() {
	rt.mu.lock()
	defer rt.mu.unlock()
	rt.retired = true
	if !rt.busy {
		rt.closeLocked()
	}
}

func (rt *runtime) closeLocked() {
	if rt.closed {
		return
	}
	rt.closed = true
	rt.L.Close()
}

// isClosed reports whether the underlying state has been closed.
func (rt *runtime) isClosed() bool {
	rt.mu.lock()
	defer rt.mu.unlock()
	return rt.closed
}
