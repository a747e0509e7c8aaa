package manager

import (
	"log/slog"
	"sync"

	"github.com/roach88/guildscript/internal/script"
)

// tenantState is the cached per-tenant container.
type tenantState struct {
	id      string
	lock    tenantLock
	sandbox *script.Sandbox // guarded by lock

	// abandon is closed by a forced restart to release a waiting Execute.
	// It is read without the tenant lock, hence its own mutex.
	abandonMu sync.Mutex
	abandon   chan struct{}
}

func newTenantState(id string, logger *slog.Logger) *tenantState {
	return &tenantState{
		id:      id,
		lock:    newTenantLock(),
		sandbox: script.NewSandbox(id, logger),
	}
}

// beginExecution installs a fresh abandon channel for the running call.
func (t *tenantState) beginExecution() <-chan struct{} {
	t.abandonMu.Lock()
	defer t.abandonMu.Unlock()
	t.abandon = make(chan struct{})
	return t.abandon
}

// endExecution clears the abandon channel.
func (t *tenantState) endExecution() {
	t.abandonMu.Lock()
	defer t.abandonMu.Unlock()
	t.abandon = nil
}

// abandonExecution releases the waiting Execute, if any. Reports whether
// an execution was abandoned.
func (t *tenantState) abandonExecution() bool {
	t.abandonMu.Lock()
	defer t.abandonMu.Unlock()
	if t.abandon == nil {
		return false
	}
	close(t.abandon)
	t.abandon = nil
	return true
}
