package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/guildscript/internal/ir"
)

func TestFetchAll_EmptyTenant(t *testing.T) {
	s := createTestStore(t)

	recs, err := s.FetchAll(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestUpsert_RoundTripsRecord(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	rec := createTestRecord("greet", `local ctx, args = ... ctx:reply("Hello " .. args.name)`)
	rec.Description = "says <hello> & more"

	require.NoError(t, s.Upsert(ctx, "g1", rec))

	got, ok, err := fetchRecord(ctx, s, "g1", "greet")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec, got)
}

func TestUpsert_ReplacesExisting(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "g1", createTestRecord("greet", "v1")))
	updated := createTestRecord("greet", "v2")
	updated.Parameters = nil
	updated.Origin = "edit"
	require.NoError(t, s.Upsert(ctx, "g1", updated))

	recs, err := s.FetchAll(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "v2", recs[0].Source)
	assert.Equal(t, "edit", recs[0].Origin)
	assert.Empty(t, recs[0].Parameters)

	digest, err := s.Digest(ctx, "g1", "greet")
	require.NoError(t, err)
	assert.Equal(t, ir.SourceDigest("v2"), digest)
}

func TestFetchAll_OrderedByNameAndScopedToTenant(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, s.Upsert(ctx, "g1", createTestRecord(name, "x")))
	}
	require.NoError(t, s.Upsert(ctx, "g2", createTestRecord("other", "x")))

	recs, err := s.FetchAll(ctx, "g1")
	require.NoError(t, err)

	names := make([]string, len(recs))
	for i, r := range recs {
		names[i] = r.Name
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)
}

func TestRemove(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "g1", createTestRecord("greet", "x")))
	require.NoError(t, s.Remove(ctx, "g1", "greet"))
	require.NoError(t, s.Remove(ctx, "g1", "greet"), "removing a missing command is not an error")

	_, ok, err := fetchRecord(ctx, s, "g1", "greet")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClearTenant_RemovesCommandsAndHistory(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "g1", createTestRecord("a", "x")))
	require.NoError(t, s.Upsert(ctx, "g1", createTestRecord("b", "x")))
	require.NoError(t, s.Upsert(ctx, "g2", createTestRecord("a", "x")))
	_, err := s.RecordExecution(ctx, ir.Execution{ID: "e1", Tenant: "g1", Command: "a"})
	require.NoError(t, err)
	_, err = s.RecordExecution(ctx, ir.Execution{ID: "e2", Tenant: "g2", Command: "a"})
	require.NoError(t, err)

	require.NoError(t, s.ClearTenant(ctx, "g1"))

	recs, err := s.FetchAll(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, recs)
	execs, err := s.ListExecutions(ctx, "g1", 0)
	require.NoError(t, err)
	assert.Empty(t, execs)

	// Other tenants are untouched.
	recs, err = s.FetchAll(ctx, "g2")
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	execs, err = s.ListExecutions(ctx, "g2", 0)
	require.NoError(t, err)
	assert.Len(t, execs, 1)
}

func TestFetchAll_CorruptParametersIsLogicError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.db.Exec(`
		INSERT INTO custom_commands (tenant_id, name, parameters, source, source_digest)
		VALUES ('g1', 'bad', '{"not":"a list"}', 'x', 'd')
	`)
	require.NoError(t, err)

	_, err = s.FetchAll(ctx, "g1")
	require.Error(t, err)

	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindLogic, se.Kind)
	assert.False(t, IsConnectivity(err))
}
