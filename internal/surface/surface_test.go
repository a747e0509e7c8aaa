package surface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/guildscript/internal/ir"
)

func testRecords() []ir.Record {
	return []ir.Record{
		{
			Name:        "greet",
			Description: "Greets someone",
			Parameters: []ir.Parameter{
				{Name: "name", Type: ir.ParamString, Description: "Who to greet", Required: true},
				{Name: "shout", Type: ir.ParamBool},
			},
			Source: "local ctx = ...",
		},
		{
			Name: "roll",
			Parameters: []ir.Parameter{
				{Name: "sides", Type: ir.ParamInteger, Description: "Number of sides", Required: true},
				{Name: "weight", Type: ir.ParamNumber, Description: "Bias"},
			},
			Source: "local ctx = ...",
		},
	}
}

func TestBuild_Golden(t *testing.T) {
	cmd, ok := Build("", testRecords())
	require.True(t, ok)

	data, err := json.MarshalIndent(cmd, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "two_commands", append(data, '\n'))
}

func TestBuild_EmptyMeansRetract(t *testing.T) {
	cmd, ok := Build("tools", nil)
	assert.False(t, ok)
	assert.Equal(t, "tools", cmd.Name)
	assert.Empty(t, cmd.Options)
}

func TestBuild_TruncatesLongDescriptions(t *testing.T) {
	long := strings.Repeat("\u00e9", 150)
	cmd, ok := Build("custom", []ir.Record{{Name: "x", Description: long}})
	require.True(t, ok)
	assert.Equal(t, 100, len([]rune(cmd.Options[0].Description)))
}

func TestSync_PublishesAndRetracts(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPublisher()

	require.NoError(t, Sync(ctx, p, "g1", "custom", testRecords()))
	cmd, ok := p.Published("g1")
	require.True(t, ok)
	assert.Len(t, cmd.Options, 2)

	require.NoError(t, Sync(ctx, p, "g1", "custom", nil))
	_, ok = p.Published("g1")
	assert.False(t, ok, "empty command set retracts the grouping command")
	assert.Equal(t, 1, p.Publishes())
	assert.Equal(t, 1, p.Retracts())
}

func TestSync_WrapsFailures(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPublisher()
	boom := errors.New("rate limited")

	p.FailNext(boom)
	err := Sync(ctx, p, "g1", "custom", testRecords())

	var serr *SyncError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "publish", serr.Op)
	assert.Equal(t, "g1", serr.Tenant)
	assert.ErrorIs(t, err, boom)

	p.FailNext(boom)
	err = Sync(ctx, p, "g1", "custom", nil)
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "retract", serr.Op)

	// Failure is one-shot.
	require.NoError(t, Sync(ctx, p, "g1", "custom", nil))
}

func TestWriterPublisher_JSONLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewWriterPublisher(&buf)
	ctx := context.Background()

	require.NoError(t, Sync(ctx, p, "g1", "custom", testRecords()[:1]))
	require.NoError(t, p.Retract(ctx, "g1"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first struct {
		Op      string       `json:"op"`
		Tenant  string       `json:"tenant"`
		Command GroupCommand `json:"command"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "publish", first.Op)
	assert.Equal(t, "greet", first.Command.Options[0].Name)

	assert.Equal(t, `{"op":"retract","tenant":"g1"}`, lines[1])
}
