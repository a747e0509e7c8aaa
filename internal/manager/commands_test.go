package manager

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/guildscript/internal/ir"
	"github.com/roach88/guildscript/internal/script"
	"github.com/roach88/guildscript/internal/surface"
)

func TestRegister_QuotaRejects26thCommand(t *testing.T) {
	m, st, _ := newTestManager(t)
	ctx := context.Background()

	names := numbered("cmd", DefaultMaxCommands)
	for _, name := range names {
		require.NoError(t, m.Register(ctx, "g1", def(name, silentSource), "test"))
	}

	err := m.Register(ctx, "g1", def("one-too-many", silentSource), "test")
	require.Error(t, err)
	assert.True(t, IsSubmissionRejected(err))

	var qerr *QuotaExceededError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, 25, qerr.Count)
	assert.Equal(t, 25, qerr.Limit)

	assert.Equal(t, names, commandNames(t, m, "g1"), "registry unchanged")
	stored, err := st.FetchAll(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, stored, DefaultMaxCommands)
}

func TestRegister_QuotaIsPerTenant(t *testing.T) {
	m, _, _ := newTestManager(t, WithMaxCommands(1))
	ctx := context.Background()

	require.NoError(t, m.Register(ctx, "g1", def("a", silentSource), "test"))
	require.NoError(t, m.Register(ctx, "g2", def("a", silentSource), "test"))
	assert.True(t, IsSubmissionRejected(m.Register(ctx, "g1", def("b", silentSource), "test")))
}

func TestRegister_DuplicateDoesNotMutate(t *testing.T) {
	m, st, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Register(ctx, "g1", greetDef(), "test"))

	dup := ir.Definition{
		Name:       "GREET", // normalises to the same name
		Parameters: []ir.Parameter{{Name: "other", Type: ir.ParamBool}},
		Source:     silentSource,
	}
	err := m.Register(ctx, "g1", dup, "test")
	require.Error(t, err)
	assert.True(t, IsSubmissionRejected(err))
	assert.Contains(t, err.Error(), "already exists")

	rec, err := m.Get(ctx, "g1", "greet")
	require.NoError(t, err)
	assert.Equal(t, greetSource, rec.Source)
	assert.Equal(t, greetDef().Parameters, rec.Parameters)

	stored, err := st.FetchAll(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, greetSource, stored[0].Source)
}

func TestRegister_CompileFailureWritesNothing(t *testing.T) {
	m, st, pub := newTestManager(t)
	ctx := context.Background()

	err := m.Register(ctx, "g1", def("broken", "local x = "), "test")
	require.Error(t, err)
	assert.True(t, IsSubmissionRejected(err))
	assert.True(t, script.IsGuestError(err))

	stored, err := st.FetchAll(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.Empty(t, commandNames(t, m, "g1"))
	assert.Equal(t, 0, pub.Publishes())
}

func TestRegister_InvalidDefinition(t *testing.T) {
	m, _, _ := newTestManager(t)

	bad := ir.Definition{
		Name:   "has space",
		Source: silentSource,
		Parameters: []ir.Parameter{
			{Name: "opt", Type: ir.ParamString},
			{Name: "req", Type: "date", Required: true},
		},
	}
	err := m.Register(context.Background(), "g1", bad, "test")
	require.Error(t, err)
	assert.True(t, IsSubmissionRejected(err))

	var derr *ir.DefinitionError
	require.ErrorAs(t, err, &derr)
	fields := make([]string, len(derr.Fields))
	for i, f := range derr.Fields {
		fields[i] = f.Field
	}
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "parameters[1].type")
	assert.Contains(t, fields, "parameters[1]")
}

func TestRegister_PublishesGroupingCommand(t *testing.T) {
	m, _, pub := newTestManager(t, WithGroupName("tools"))
	ctx := context.Background()

	require.NoError(t, m.Register(ctx, "g1", greetDef(), "test"))

	cmd, ok := pub.Published("g1")
	require.True(t, ok)
	assert.Equal(t, "tools", cmd.Name)
	require.Len(t, cmd.Options, 1)
	assert.Equal(t, "greet", cmd.Options[0].Name)
	require.Len(t, cmd.Options[0].Options, 1)
	assert.Equal(t, surface.OptionString, cmd.Options[0].Options[0].Type)
	assert.True(t, cmd.Options[0].Options[0].Required)
}

func TestRegister_PersistenceFailureLeavesRegistryUnchanged(t *testing.T) {
	st := &instrumentedStore{Store: openStore(t), upsertErr: errors.New("disk gone")}
	m := New(st, surface.NewMemoryPublisher())
	t.Cleanup(m.Close)

	err := m.Register(context.Background(), "g1", greetDef(), "test")
	require.Error(t, err)
	assert.True(t, IsPersistenceFailure(err))
	assert.Empty(t, commandNames(t, m, "g1"))
}

func TestRegister_SyncFailureKeepsCommandUntilRepublish(t *testing.T) {
	m, _, pub := newTestManager(t)
	ctx := context.Background()

	pub.FailNext(errors.New("platform unavailable"))
	err := m.Register(ctx, "g1", greetDef(), "test")
	require.Error(t, err)
	assert.True(t, IsPlatformSyncError(err))

	var serr *surface.SyncError
	require.ErrorAs(t, err, &serr)

	// Registered and persisted, just not published.
	assert.Equal(t, []string{"greet"}, commandNames(t, m, "g1"))
	_, ok := pub.Published("g1")
	assert.False(t, ok)

	require.NoError(t, m.Republish(ctx, "g1"))
	_, ok = pub.Published("g1")
	assert.True(t, ok)

	// Idempotent.
	require.NoError(t, m.Republish(ctx, "g1"))
	assert.Equal(t, 2, pub.Publishes())
}

func TestHydrate_FailureIsRetried(t *testing.T) {
	st := &instrumentedStore{Store: openStore(t), fetchErr: errors.New("connection refused")}
	m := New(st, surface.NewMemoryPublisher())
	t.Cleanup(m.Close)
	ctx := context.Background()

	_, err := m.List(ctx, "g1")
	require.Error(t, err)
	assert.True(t, IsPersistenceFailure(err))

	st.mu.Lock()
	st.fetchErr = nil
	st.mu.Unlock()

	_, err = m.List(ctx, "g1")
	require.NoError(t, err)
	_, err = m.List(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 2, st.Fetches(), "one failed fetch, one successful, no refetch after hydration")
}

func TestUpdate_NotFound(t *testing.T) {
	m, _, _ := newTestManager(t)

	err := m.Update(context.Background(), "g1", "ghost", def("ghost", silentSource), "test")
	assert.True(t, IsNotFound(err))
}

func TestUpdate_RejectsRename(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, m.Register(ctx, "g1", greetDef(), "test"))

	err := m.Update(ctx, "g1", "greet", def("hello", silentSource), "test")
	assert.True(t, IsSubmissionRejected(err))
	assert.Equal(t, []string{"greet"}, commandNames(t, m, "g1"))
}

func TestUpdate_CompileFailureKeepsOldSource(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, m.Register(ctx, "g1", greetDef(), "test"))

	bad := greetDef()
	bad.Source = "ctx:reply("
	err := m.Update(ctx, "g1", "greet", bad, "test")
	assert.True(t, IsSubmissionRejected(err))

	rec, err := m.Get(ctx, "g1", "greet")
	require.NoError(t, err)
	assert.Equal(t, greetSource, rec.Source)
}

func TestDelete_LastCommandRetracts(t *testing.T) {
	m, st, pub := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, m.Register(ctx, "g1", greetDef(), "test"))

	require.NoError(t, m.Delete(ctx, "g1", "greet"))

	_, ok := pub.Published("g1")
	assert.False(t, ok)
	assert.Equal(t, 1, pub.Retracts())

	stored, err := st.FetchAll(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, stored)

	assert.True(t, IsNotFound(m.Delete(ctx, "g1", "greet")))
}

func TestConcurrentRegister_SameNameOneWins(t *testing.T) {
	m, st, _ := newTestManager(t)
	ctx := context.Background()

	sources := []string{
		`local ctx = ... ctx:reply("first")`,
		`local ctx = ... ctx:reply("second")`,
	}
	errs := make([]error, len(sources))
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src string) {
			defer wg.Done()
			errs[i] = m.Register(ctx, "g1", def("race", src), "test")
		}(i, src)
	}
	wg.Wait()

	winners := 0
	var winner string
	for i, err := range errs {
		if err == nil {
			winners++
			winner = sources[i]
		} else {
			assert.True(t, IsSubmissionRejected(err), "loser sees the winner's committed command: %v", err)
		}
	}
	require.Equal(t, 1, winners)

	stored, err := st.FetchAll(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, winner, stored[0].Source)
}

func TestConcurrentRegister_DistinctNamesAllLand(t *testing.T) {
	m, _, pub := newTestManager(t)
	ctx := context.Background()

	names := numbered("c", 10)
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			assert.NoError(t, m.Register(ctx, "g1", def(name, silentSource), "test"))
		}(name)
	}
	wg.Wait()

	assert.Equal(t, names, commandNames(t, m, "g1"))
	cmd, ok := pub.Published("g1")
	require.True(t, ok)
	assert.Len(t, cmd.Options, 10, "last publish reflects every committed command")
}

func TestPrepare(t *testing.T) {
	d := greetDef()
	d.Name = "  Greet "

	rec, err := Prepare(d, "cli")
	require.NoError(t, err)
	assert.Equal(t, "greet", rec.Name)
	assert.Equal(t, "cli", rec.Origin)

	_, err = Prepare(def("broken", "local x = "), "cli")
	require.Error(t, err)
	assert.True(t, IsSubmissionRejected(err))
	assert.True(t, script.IsGuestError(err))

	_, err = Prepare(def("Bad Name!", "return"), "cli")
	require.Error(t, err)
	assert.True(t, IsSubmissionRejected(err))
}
