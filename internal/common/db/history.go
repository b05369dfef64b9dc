package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ridership3d/pkg/ridership/models"
)

// History stores one row per pipeline load.
type History struct {
	db *DB
}

func NewHistory(db *DB) *History {
	return &History{db: db}
}

func (h *History) RecordLoad(ctx context.Context, run models.LoadRun) error {
	query := h.db.Rebind(`
		INSERT INTO load_runs (
			run_id, source, source_name, schema_kind, null_policy, digest, encoding,
			input_rows, retained_rows, dropped_rows, zero_filled, distinct_lines,
			cached, error_kind, error_message, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := h.db.conn.ExecContext(ctx, query,
		run.ID,
		string(run.Source),
		run.SourceName,
		string(run.Schema),
		string(run.Policy),
		run.Digest,
		nullString(run.Encoding),
		run.InputRows,
		run.RetainedRows,
		run.DroppedRows,
		run.ZeroFilled,
		run.DistinctLines,
		run.Cached,
		nullString(run.ErrorKind),
		nullString(run.ErrorMessage),
		run.DurationMS,
		run.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("inserting load run: %w", err)
	}

	h.db.logger.Debug("Recorded load run", "run_id", run.ID, "error_kind", run.ErrorKind)
	return nil
}

// ListRecent returns up to limit runs, newest first.
func (h *History) ListRecent(ctx context.Context, limit int) ([]models.LoadRun, error) {
	query := h.db.Rebind(`
		SELECT run_id, source, source_name, schema_kind, null_policy, digest, encoding,
			input_rows, retained_rows, dropped_rows, zero_filled, distinct_lines,
			cached, error_kind, error_message, duration_ms, created_at
		FROM load_runs
		ORDER BY created_at DESC, run_id
		LIMIT ?
	`)

	rows, err := h.db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying load runs: %w", err)
	}
	defer rows.Close()

	runs := []models.LoadRun{}
	for rows.Next() {
		var (
			run                       models.LoadRun
			source, schema, policy    string
			encoding, errKind, errMsg sql.NullString
			createdAt                 int64
		)
		err := rows.Scan(
			&run.ID,
			&source,
			&run.SourceName,
			&schema,
			&policy,
			&run.Digest,
			&encoding,
			&run.InputRows,
			&run.RetainedRows,
			&run.DroppedRows,
			&run.ZeroFilled,
			&run.DistinctLines,
			&run.Cached,
			&errKind,
			&errMsg,
			&run.DurationMS,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning load run: %w", err)
		}
		run.Source = models.SourceKind(source)
		run.Schema = models.SchemaKind(schema)
		run.Policy = models.NullPolicy(policy)
		run.Encoding = encoding.String
		run.ErrorKind = errKind.String
		run.ErrorMessage = errMsg.String
		run.CreatedAt = time.UnixMilli(createdAt).UTC()
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating load runs: %w", err)
	}
	return runs, nil
}

// DeleteOlderThan removes runs created before cutoff.
func (h *History) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := h.db.conn.ExecContext(ctx, h.db.Rebind(`DELETE FROM load_runs WHERE created_at < ?`), cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("deleting load runs: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	return deleted, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
