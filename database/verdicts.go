package database

import (
	"context"
	"fmt"
	"strings"

	"cotejo/matching"
)

// ограничение SQLite на число параметров запроса
const maxQueryParams = 500

// LoadVerdicts возвращает сохраненные решения арбитра для известных ключей
func (s *Store) LoadVerdicts(ctx context.Context, keys []string) (map[string]matching.Verdict, error) {
	found := make(map[string]matching.Verdict, len(keys))

	for start := 0; start < len(keys); start += maxQueryParams {
		chunk := keys[start:min(start+maxQueryParams, len(keys))]
		args := make([]any, len(chunk))
		for i, key := range chunk {
			args[i] = key
		}

		query := `SELECT key, is_match, confidence, rationale FROM verdict_cache WHERE key IN (?` +
			strings.Repeat(",?", len(chunk)-1) + `)`
		rows, err := s.conn.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to load verdicts: %w", err)
		}

		for rows.Next() {
			var key string
			var verdict matching.Verdict
			var rationale *string
			if err := rows.Scan(&key, &verdict.IsMatch, &verdict.Confidence, &rationale); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan verdict: %w", err)
			}
			if rationale != nil {
				verdict.Rationale = *rationale
			}
			found[key] = verdict
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return found, nil
}

// SaveVerdicts сохраняет решения; существующие ключи перезаписываются
func (s *Store) SaveVerdicts(ctx context.Context, verdicts map[string]matching.Verdict) error {
	if len(verdicts) == 0 {
		return nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO verdict_cache (key, is_match, confidence, rationale, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := s.now().UTC()
	for key, verdict := range verdicts {
		if _, err := stmt.ExecContext(ctx, key, verdict.IsMatch, verdict.Confidence, verdict.Rationale, now); err != nil {
			return fmt.Errorf("failed to save verdict: %w", err)
		}
	}
	return tx.Commit()
}

// CountVerdicts возвращает размер кэша решений
func (s *Store) CountVerdicts(ctx context.Context) (int, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM verdict_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count verdicts: %w", err)
	}
	return n, nil
}

// ClearVerdicts очищает кэш решений
func (s *Store) ClearVerdicts(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM verdict_cache`); err != nil {
		return fmt.Errorf("failed to clear verdicts: %w", err)
	}
	return nil
}
