package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cotejo/matching"
)

// RunStatus состояние запуска
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunCancelled RunStatus = "cancelled"
	RunFailed    RunStatus = "failed"
)

// Run запись о запуске сверки
type Run struct {
	ID          string             `json:"id"`
	Status      RunStatus          `json:"status"`
	SourceName  string             `json:"source_name"`
	TargetName  string             `json:"target_name"`
	Options     matching.Options   `json:"options"`
	Schema      matching.Schema    `json:"schema"`
	Stats       *matching.RunStats `json:"stats,omitempty"`
	Error       string             `json:"error,omitempty"`
	StartedAt   time.Time          `json:"started_at"`
	FinishedAt  *time.Time         `json:"finished_at,omitempty"`
	ResultCount int                `json:"result_count"`
}

// CreateRun регистрирует новый запуск со статусом running
func (s *Store) CreateRun(ctx context.Context, sourceName, targetName string, schema matching.Schema, opts matching.Options) (*Run, error) {
	optionsJSON, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode options: %w", err)
	}
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to encode schema: %w", err)
	}

	run := &Run{
		ID:         uuid.NewString(),
		Status:     RunRunning,
		SourceName: sourceName,
		TargetName: targetName,
		Options:    opts,
		Schema:     schema,
		StartedAt:  s.now().UTC(),
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO runs (id, status, source_name, target_name, options, schema, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Status, run.SourceName, run.TargetName, string(optionsJSON), string(schemaJSON), run.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// FinishRun сохраняет результаты и статистику запуска.
// Частичный отчет прерванного запуска тоже сохраняется.
func (s *Store) FinishRun(ctx context.Context, id string, report *matching.Report, runErr error) error {
	status := RunCompleted
	errText := ""
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		status = RunCancelled
		errText = runErr.Error()
	default:
		status = RunFailed
		errText = runErr.Error()
	}

	var statsJSON sql.NullString
	var results []matching.MatchResult
	if report != nil {
		data, err := json.Marshal(report.Stats)
		if err != nil {
			return fmt.Errorf("failed to encode stats: %w", err)
		}
		statsJSON = sql.NullString{String: string(data), Valid: true}
		results = report.Results
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE runs SET status = ?, stats = ?, error = ?, finished_at = ? WHERE id = ?
	`, status, statsJSON, errText, s.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_results WHERE run_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear results: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_results (run_id, position, source_id, target_id, source_description,
			target_description, target_status, similarity_pct, arbiter_confidence_pct, arbiter_rationale)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, r := range results {
		var confidence sql.NullInt64
		if r.ArbiterConfidence != nil {
			confidence = sql.NullInt64{Int64: int64(*r.ArbiterConfidence), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, id, i, r.SourceID, r.TargetID, r.SourceDescription,
			r.TargetDescription, r.TargetStatus, r.Similarity, confidence, r.ArbiterRationale); err != nil {
			return fmt.Errorf("failed to insert result %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

const runColumns = `r.id, r.status, r.source_name, r.target_name, r.options, r.schema, r.stats, r.error,
	r.started_at, r.finished_at, (SELECT COUNT(*) FROM run_results rr WHERE rr.run_id = r.id)`

// ListRuns возвращает последние запуски, новые первыми; limit <= 0 = без ограничения
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs r ORDER BY r.started_at DESC, r.rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun возвращает запуск по идентификатору
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs r WHERE r.id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return run, err
}

// GetResults возвращает результаты запуска в порядке выдачи
func (s *Store) GetResults(ctx context.Context, id string) ([]matching.MatchResult, error) {
	if _, err := s.GetRun(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT source_id, target_id, source_description, target_description, target_status,
			similarity_pct, arbiter_confidence_pct, arbiter_rationale
		FROM run_results WHERE run_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	results := []matching.MatchResult{}
	for rows.Next() {
		var r matching.MatchResult
		var sourceDesc, targetDesc, status, rationale sql.NullString
		var confidence sql.NullInt64
		if err := rows.Scan(&r.SourceID, &r.TargetID, &sourceDesc, &targetDesc, &status,
			&r.Similarity, &confidence, &rationale); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.SourceDescription = nullString(sourceDesc)
		r.TargetDescription = nullString(targetDesc)
		r.TargetStatus = nullString(status)
		if confidence.Valid {
			c := int(confidence.Int64)
			r.ArbiterConfidence = &c
			r.ArbiterRationale = nullString(rationale)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// DeleteRun удаляет запуск вместе с результатами
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var status string
	var sourceName, targetName, stats, errText sql.NullString
	var optionsJSON, schemaJSON string
	var finishedAt sql.NullTime

	if err := row.Scan(&run.ID, &status, &sourceName, &targetName, &optionsJSON, &schemaJSON,
		&stats, &errText, &run.StartedAt, &finishedAt, &run.ResultCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.Status = RunStatus(status)
	run.SourceName = nullString(sourceName)
	run.TargetName = nullString(targetName)
	run.Error = nullString(errText)
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	if err := json.Unmarshal([]byte(optionsJSON), &run.Options); err != nil {
		return nil, fmt.Errorf("failed to decode options: %w", err)
	}
	if err := json.Unmarshal([]byte(schemaJSON), &run.Schema); err != nil {
		return nil, fmt.Errorf("failed to decode schema: %w", err)
	}
	if stats.Valid {
		run.Stats = &matching.RunStats{}
		if err := json.Unmarshal([]byte(stats.String), run.Stats); err != nil {
			return nil, fmt.Errorf("failed to decode stats: %w", err)
		}
	}
	return &run, nil
}
