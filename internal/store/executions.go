package store

import (
	"context"
	"fmt"

	"github.com/roach88/guildscript/internal/ir"
)

// RecordExecution appends exec to the history and returns its seq.
// Uses ON CONFLICT(id) DO NOTHING for idempotency; a duplicate ID returns
// the seq of the existing row.
func (s *Store) RecordExecution(ctx context.Context, exec ir.Execution) (int64, error) {
	replied := 0
	if exec.Replied {
		replied = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO executions (id, tenant_id, command, replied, error)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, exec.ID, exec.Tenant, exec.Command, replied, exec.Error)
	if err != nil {
		return 0, wrap("record execution", err)
	}

	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT seq FROM executions WHERE id = ?`, exec.ID).Scan(&seq); err != nil {
		return 0, wrap("record execution", fmt.Errorf("read seq: %w", err))
	}
	return seq, nil
}

// ListExecutions returns the most recent limit executions of tenant in seq
// order. A limit <= 0 returns the whole history.
func (s *Store) ListExecutions(ctx context.Context, tenant string, limit int) ([]ir.Execution, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, tenant_id, command, replied, error FROM (
			SELECT seq, id, tenant_id, command, replied, error
			FROM executions
			WHERE tenant_id = ?
			ORDER BY seq DESC
			LIMIT ?
		)
		ORDER BY seq ASC
	`, tenant, limit)
	if err != nil {
		return nil, wrap("list executions", err)
	}
	defer rows.Close()

	execs := []ir.Execution{}
	for rows.Next() {
		var e ir.Execution
		var replied int
		if err := rows.Scan(&e.Seq, &e.ID, &e.Tenant, &e.Command, &replied, &e.Error); err != nil {
			return nil, wrap("list executions", fmt.Errorf("scan execution: %w", err))
		}
		e.Replied = replied != 0
		execs = append(execs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list executions", fmt.Errorf("iterate executions: %w", err))
	}
	return execs, nil
}
