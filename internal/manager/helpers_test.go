package manager

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/guildscript/internal/ir"
	"github.com/roach88/guildscript/internal/script"
	"github.com/roach88/guildscript/internal/store"
	"github.com/roach88/guildscript/internal/surface"
)

const greetSource = `local ctx, args = ...
ctx:reply("Hello " .. args.name)`

const silentSource = `local ctx, args = ...`

// spinSource replies, then loops until its context ends.
const spinSource = `local ctx = ...
ctx:reply("started")
while true do end`

func greetDef() ir.Definition {
	return ir.Definition{
		Name:        "greet",
		Description: "Greets someone",
		Parameters: []ir.Parameter{
			{Name: "name", Type: ir.ParamString, Description: "Who to greet", Required: true},
		},
		Source: greetSource,
	}
}

func def(name, source string) ir.Definition {
	return ir.Definition{Name: name, Source: source}
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// newTestManager creates a manager over a temporary SQLite store.
func newTestManager(t *testing.T, opts ...Option) (*Manager, *store.Store, *surface.MemoryPublisher) {
	t.Helper()
	st := openStore(t)
	pub := surface.NewMemoryPublisher()
	m := New(st, pub, opts...)
	t.Cleanup(m.Close)
	return m, st, pub
}

// replies collects replies forwarded to a replier.
type replies struct {
	mu     sync.Mutex
	values []ir.Value
}

func (r *replies) Reply(_ context.Context, v ir.Value) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
	return nil
}

func (r *replies) All() []ir.Value {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ir.Value(nil), r.values...)
}

// signalReplier closes started on the first reply.
func signalReplier() (script.Replier, <-chan struct{}) {
	started := make(chan struct{})
	var once sync.Once
	return script.ReplierFunc(func(context.Context, ir.Value) error {
		once.Do(func() { close(started) })
		return nil
	}), started
}

func args(name string) ir.Object {
	return ir.NewObject(ir.O("name", ir.String(name)))
}

// waitFor fails the test if ch is not closed within a second.
func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

// instrumentedStore wraps a Store to count fetches, inject failures and
// stall FetchAll or ClearTenant.
type instrumentedStore struct {
	Store

	mu         sync.Mutex
	fetches    int
	fetchErr   error
	upsertErr  error
	clearEnter chan struct{} // closed when ClearTenant starts
	clearGate  chan struct{} // ClearTenant waits for this before running
	fetchEnter chan struct{} // closed when the first FetchAll starts
	fetchGate  chan struct{} // FetchAll waits for this before running
	fetchOnce  sync.Once
}

func (s *instrumentedStore) FetchAll(ctx context.Context, tenant string) ([]ir.Record, error) {
	s.mu.Lock()
	s.fetches++
	err := s.fetchErr
	s.mu.Unlock()
	if s.fetchEnter != nil {
		s.fetchOnce.Do(func() { close(s.fetchEnter) })
	}
	if s.fetchGate != nil {
		<-s.fetchGate
	}
	if err != nil {
		return nil, err
	}
	return s.Store.FetchAll(ctx, tenant)
}

func (s *instrumentedStore) Upsert(ctx context.Context, tenant string, rec ir.Record) error {
	s.mu.Lock()
	err := s.upsertErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Store.Upsert(ctx, tenant, rec)
}

func (s *instrumentedStore) ClearTenant(ctx context.Context, tenant string) error {
	if s.clearEnter != nil {
		close(s.clearEnter)
	}
	if s.clearGate != nil {
		<-s.clearGate
	}
	return s.Store.ClearTenant(ctx, tenant)
}

func (s *instrumentedStore) Fetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

// executionPending reports whether an Execute on tenant can still be
// abandoned.
func executionPending(m *Manager, tenant string) bool {
	h := m.tenants.Get(tenant)
	defer h.Release()
	t := h.Value()
	t.abandonMu.Lock()
	defer t.abandonMu.Unlock()
	return t.abandon != nil
}

func commandNames(t *testing.T, m *Manager, tenant string) []string {
	t.Helper()
	recs, err := m.List(context.Background(), tenant)
	require.NoError(t, err)
	names := make([]string, len(recs))
	for i, r := range recs {
		names[i] = r.Name
	}
	return names
}

func numbered(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%02d", prefix, i+1)
	}
	return out
}
