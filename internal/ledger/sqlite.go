package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Lllllllleong/noticeflow/internal/models"
)

// SQLiteLedger is a file-backed ledger for local runs.
type SQLiteLedger struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the ledger database at path.
func OpenSQLite(path string) (*SQLiteLedger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	l := &SQLiteLedger{db: db}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate ledger: %w", err)
	}
	return l, nil
}

func (l *SQLiteLedger) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			notice_type TEXT NOT NULL,
			source TEXT NOT NULL,
			source_hash TEXT,
			status TEXT NOT NULL,
			error_details TEXT,
			parsed_count INTEGER NOT NULL DEFAULT 0,
			skipped_count INTEGER NOT NULL DEFAULT 0,
			generated_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			completed_at DATETIME
		);

		CREATE TABLE IF NOT EXISTS notices (
			run_id TEXT NOT NULL,
			source_row INTEGER NOT NULL,
			output_name TEXT NOT NULL,
			property_code TEXT,
			unit_number TEXT,
			enriched INTEGER NOT NULL,
			pages INTEGER NOT NULL DEFAULT 0,
			generated_at DATETIME NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(run_id)
		);

		CREATE INDEX IF NOT EXISTS idx_runs_source_hash ON runs(source_hash);
		CREATE INDEX IF NOT EXISTS idx_notices_run ON notices(run_id);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Close closes the database.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

func (l *SQLiteLedger) StartRun(ctx context.Context, run models.RunDocument) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, notice_type, source, source_hash, status, parsed_count, skipped_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.NoticeType, run.Source, run.SourceHash, run.Status,
		run.ParsedCount, run.SkippedCount, run.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.RunID, err)
	}
	return nil
}

func (l *SQLiteLedger) UpdateCounts(ctx context.Context, runID string, parsed, skipped int) error {
	res, err := l.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, parsed_count = ?, skipped_count = ?
		WHERE run_id = ?`,
		models.StatusGenerating, parsed, skipped, runID)
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

func (l *SQLiteLedger) RecordNotice(ctx context.Context, doc models.NoticeDocument) error {
	if doc.GeneratedAt.IsZero() {
		doc.GeneratedAt = time.Now()
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO notices (run_id, source_row, output_name, property_code, unit_number, enriched, pages, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.RunID, doc.Row, doc.OutputName, doc.PropertyCode, doc.UnitNumber,
		doc.Enriched, doc.Pages, doc.GeneratedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record notice %s: %w", doc.OutputName, err)
	}
	return nil
}

func (l *SQLiteLedger) FinishRun(ctx context.Context, runID string, result Result) error {
	res, err := l.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, generated_count = ?, error_details = ?, completed_at = ?
		WHERE run_id = ?`,
		result.Status, result.GeneratedCount, result.ErrorDetails, time.Now().UTC(), runID)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

func (l *SQLiteLedger) FindBySourceHash(ctx context.Context, hash string) (*models.RunDocument, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT run_id, notice_type, source, source_hash, status,
			COALESCE(error_details, ''), parsed_count, skipped_count, generated_count,
			created_at, completed_at
		FROM runs
		WHERE source_hash = ? AND status = ?
		ORDER BY created_at DESC
		LIMIT 1`, hash, models.StatusCompleted)

	var run models.RunDocument
	var completed sql.NullTime
	err := row.Scan(&run.RunID, &run.NoticeType, &run.Source, &run.SourceHash, &run.Status,
		&run.ErrorDetails, &run.ParsedCount, &run.SkippedCount, &run.GeneratedCount,
		&run.CreatedAt, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query runs by source hash: %w", err)
	}
	run.CompletedAt = completed.Time
	return &run, nil
}

// Notices lists the notices recorded for a run in generation order.
func (l *SQLiteLedger) Notices(ctx context.Context, runID string) ([]models.NoticeDocument, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT run_id, source_row, output_name, COALESCE(property_code, ''), COALESCE(unit_number, ''),
			enriched, pages, generated_at
		FROM notices
		WHERE run_id = ?
		ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notices: %w", err)
	}
	defer rows.Close()

	var docs []models.NoticeDocument
	for rows.Next() {
		var d models.NoticeDocument
		if err := rows.Scan(&d.RunID, &d.Row, &d.OutputName, &d.PropertyCode, &d.UnitNumber,
			&d.Enriched, &d.Pages, &d.GeneratedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notice: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
