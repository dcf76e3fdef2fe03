package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/bkyoung/review-quorum/internal/domain"
)

// Store persists review results to SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore opens (or creates) a SQLite database at the given path.
// Use ":memory:" for an in-memory database (useful for testing).
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db, now: time.Now}

	if err := s.createSchema(); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return s, nil
}

// createSchema creates all tables and indexes if they don't exist.
func (s *Store) createSchema() error {
	schema := `
	-- One row per review call
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		path TEXT NOT NULL,
		language TEXT NOT NULL,
		total_findings INTEGER NOT NULL DEFAULT 0,
		agreement_score REAL NOT NULL DEFAULT 0.0,
		total_cost REAL NOT NULL DEFAULT 0.0,
		total_duration_ms INTEGER NOT NULL DEFAULT 0,
		aggregation TEXT NOT NULL,
		meta TEXT NOT NULL
	);

	-- One row per provider outcome within a run
	CREATE TABLE IF NOT EXISTS provider_outcomes (
		outcome_id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		provider TEXT NOT NULL,
		finding_count INTEGER NOT NULL DEFAULT 0,
		findings TEXT NOT NULL,
		error TEXT,
		FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_outcomes_run ON provider_outcomes(run_id);
	CREATE INDEX IF NOT EXISTS idx_outcomes_provider ON provider_outcomes(provider);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_runs_path ON runs(path);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveResult stores a review result and its per-provider outcomes in a
// single transaction.
func (s *Store) SaveResult(ctx context.Context, result domain.MultiProviderReviewResult) error {
	aggregation, err := json.Marshal(result.Aggregation)
	if err != nil {
		return fmt.Errorf("failed to marshal aggregation: %w", err)
	}

	meta, err := json.Marshal(result.Meta)
	if err != nil {
		return fmt.Errorf("failed to marshal meta: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	runID := uuid.New().String()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, created_at, path, language, total_findings, agreement_score, total_cost, total_duration_ms, aggregation, meta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID,
		s.now().Unix(),
		result.CodeContext.Path,
		result.CodeContext.Language,
		result.Aggregation.TotalFindings,
		result.Aggregation.AgreementScore,
		result.Meta.TotalEstimatedCost,
		result.Meta.TotalDuration.Milliseconds(),
		string(aggregation),
		string(meta),
	); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO provider_outcomes (run_id, provider, finding_count, findings, error)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for provider, findings := range result.Results {
		encoded, err := json.Marshal(findings)
		if err != nil {
			return fmt.Errorf("failed to marshal findings for %s: %w", provider, err)
		}

		var outcomeErr sql.NullString
		if msg, ok := result.Meta.ErrorsByProvider[provider]; ok {
			outcomeErr = sql.NullString{String: msg, Valid: true}
		}

		if _, err := stmt.ExecContext(ctx, runID, provider, len(findings), string(encoded), outcomeErr); err != nil {
			return fmt.Errorf("failed to insert outcome for %s: %w", provider, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Run is a stored review run.
type Run struct {
	RunID          string
	CreatedAt      time.Time
	Path           string
	Language       string
	TotalFindings  int
	AgreementScore float64
	TotalCost      float64
	TotalDuration  time.Duration
	Aggregation    domain.AggregationResult
	Meta           domain.UsageMeta
}

// ProviderRecord is one provider's stored outcome within a run.
type ProviderRecord struct {
	RunID    string
	Provider string
	Findings []domain.Finding
	Error    string
}

// ListRuns retrieves the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, created_at, path, language, total_findings, agreement_score, total_cost, total_duration_ms, aggregation, meta
		FROM runs
		ORDER BY created_at DESC, run_id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, runID string) (Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, created_at, path, language, total_findings, agreement_score, total_cost, total_duration_ms, aggregation, meta
		FROM runs
		WHERE run_id = ?
	`, runID)
	if err != nil {
		return Run{}, fmt.Errorf("failed to get run: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Run{}, fmt.Errorf("failed to get run: %w", err)
		}
		return Run{}, fmt.Errorf("run not found: %s", runID)
	}

	return scanRun(rows)
}

// GetOutcomesByRun retrieves all provider outcomes for a given run,
// ordered by provider for determinism.
func (s *Store) GetOutcomesByRun(ctx context.Context, runID string) ([]ProviderRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, provider, findings, error
		FROM provider_outcomes
		WHERE run_id = ?
		ORDER BY provider ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get outcomes by run: %w", err)
	}
	defer rows.Close()

	var records []ProviderRecord
	for rows.Next() {
		var record ProviderRecord
		var findings string
		var outcomeErr sql.NullString

		if err := rows.Scan(&record.RunID, &record.Provider, &findings, &outcomeErr); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}

		if err := json.Unmarshal([]byte(findings), &record.Findings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal findings: %w", err)
		}
		record.Error = outcomeErr.String

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outcomes: %w", err)
	}

	return records, nil
}

func scanRun(rows *sql.Rows) (Run, error) {
	var run Run
	var createdAt, durationMs int64
	var aggregation, meta string

	if err := rows.Scan(
		&run.RunID,
		&createdAt,
		&run.Path,
		&run.Language,
		&run.TotalFindings,
		&run.AgreementScore,
		&run.TotalCost,
		&durationMs,
		&aggregation,
		&meta,
	); err != nil {
		return Run{}, fmt.Errorf("failed to scan run: %w", err)
	}

	run.CreatedAt = time.Unix(createdAt, 0)
	run.TotalDuration = time.Duration(durationMs) * time.Millisecond

	if err := json.Unmarshal([]byte(aggregation), &run.Aggregation); err != nil {
		return Run{}, fmt.Errorf("failed to unmarshal aggregation: %w", err)
	}
	if err := json.Unmarshal([]byte(meta), &run.Meta); err != nil {
		return Run{}, fmt.Errorf("failed to unmarshal meta: %w", err)
	}

	return run, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
