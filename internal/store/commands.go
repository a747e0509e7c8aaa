package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/guildscript/internal/ir"
)

// FetchAll returns every command of tenant ordered by name.
// Returns an empty slice (not nil) if the tenant has none.
func (s *Store) FetchAll(ctx context.Context, tenant string) ([]ir.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, description, parameters, source, origin
		FROM custom_commands
		WHERE tenant_id = ?
		ORDER BY name COLLATE BINARY ASC
	`, tenant)
	if err != nil {
		return nil, wrap("fetch commands", err)
	}
	defer rows.Close()

	records := []ir.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, wrap("fetch commands", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("fetch commands", fmt.Errorf("iterate commands: %w", err))
	}
	return records, nil
}

// Upsert inserts rec or replaces the stored command with the same name.
func (s *Store) Upsert(ctx context.Context, tenant string, rec ir.Record) error {
	params, err := marshalParameters(rec.Parameters)
	if err != nil {
		return wrap("upsert command", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO custom_commands
		(tenant_id, name, description, parameters, source, origin, source_digest)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, name) DO UPDATE SET
			description = excluded.description,
			parameters = excluded.parameters,
			source = excluded.source,
			origin = excluded.origin,
			source_digest = excluded.source_digest
	`,
		tenant,
		rec.Name,
		rec.Description,
		params,
		rec.Source,
		rec.Origin,
		ir.SourceDigest(rec.Source),
	)
	if err != nil {
		return wrap("upsert command", err)
	}
	return nil
}

// Remove deletes a command. Removing a missing command is not an error.
func (s *Store) Remove(ctx context.Context, tenant, name string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM custom_commands WHERE tenant_id = ? AND name = ?
	`, tenant, name)
	if err != nil {
		return wrap("remove command", err)
	}
	return nil
}

// ClearTenant deletes every command and the execution history of tenant in
// one transaction.
func (s *Store) ClearTenant(ctx context.Context, tenant string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("clear tenant", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM custom_commands WHERE tenant_id = ?`, tenant); err != nil {
		return wrap("clear tenant", fmt.Errorf("delete commands: %w", err))
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM executions WHERE tenant_id = ?`, tenant); err != nil {
		return wrap("clear tenant", fmt.Errorf("delete executions: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return wrap("clear tenant", err)
	}
	return nil
}

// Digest returns the stored source digest of a command, or "" if absent.
func (s *Store) Digest(ctx context.Context, tenant, name string) (string, error) {
	var digest string
	err := s.db.QueryRowContext(ctx, `
		SELECT source_digest FROM custom_commands WHERE tenant_id = ? AND name = ?
	`, tenant, name).Scan(&digest)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", wrap("read digest", err)
	}
	return digest, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (ir.Record, error) {
	var rec ir.Record
	var params string
	if err := row.Scan(&rec.Name, &rec.Description, &params, &rec.Source, &rec.Origin); err != nil {
		if err == sql.ErrNoRows {
			return ir.Record{}, err
		}
		return ir.Record{}, fmt.Errorf("scan command: %w", err)
	}
	p, err := unmarshalParameters(params)
	if err != nil {
		return ir.Record{}, fmt.Errorf("command %q: %w", rec.Name, err)
	}
	rec.Parameters = p
	return rec, nil
}
