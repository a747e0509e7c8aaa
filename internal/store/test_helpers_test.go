package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/roach88/guildscript/internal/ir"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRecord creates a command record with one required parameter.
func createTestRecord(name, source string) ir.Record {
	return ir.Record{
		Name:        name,
		Description: "test command " + name,
		Parameters: []ir.Parameter{
			{Name: "name", Type: ir.ParamString, Description: "who", Required: true},
		},
		Source: source,
		Origin: "test",
	}
}

// fetchRecord reads one command directly. The boolean is false if it does
// not exist.
func fetchRecord(ctx context.Context, s *Store, tenant, name string) (ir.Record, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, description, parameters, source, origin
		FROM custom_commands
		WHERE tenant_id = ? AND name = ?
	`, tenant, name)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return ir.Record{}, false, nil
	}
	if err != nil {
		return ir.Record{}, false, err
	}
	return rec, true, nil
}
