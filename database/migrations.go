package database

import (
	"database/sql"
	"fmt"
)

const migrationsTableName = "schema_migrations"

type migration struct {
	name string
	up   func(*sql.Tx) error
}

var migrations = []migration{
	{name: "001_runs", up: createRunsTables},
	{name: "002_verdict_cache", up: createVerdictCacheTable},
}

// migrate применяет недостающие миграции по порядку, каждую в своей транзакции
func (s *Store) migrate() error {
	if err := s.ensureMigrationTable(); err != nil {
		return err
	}
	for _, m := range migrations {
		if err := s.ensureMigrationApplied(m); err != nil {
			return err
		}
	}
	return nil
}

// ensureMigrationTable создает таблицу schema_migrations при необходимости
func (s *Store) ensureMigrationTable() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			name TEXT PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`, migrationsTableName)

	if _, err := s.conn.Exec(query); err != nil {
		return fmt.Errorf("failed to ensure %s table: %w", migrationsTableName, err)
	}
	return nil
}

// isMigrationApplied проверяет, была ли уже применена миграция
func (s *Store) isMigrationApplied(name string) (bool, error) {
	var appliedAt sql.NullTime
	query := fmt.Sprintf(`SELECT applied_at FROM %s WHERE name = ?`, migrationsTableName)
	err := s.conn.QueryRow(query, name).Scan(&appliedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check migration %s: %w", name, err)
	}
	return appliedAt.Valid, nil
}

// ensureMigrationApplied выполняет миграцию только один раз
func (s *Store) ensureMigrationApplied(m migration) error {
	applied, err := s.isMigrationApplied(m.name)
	if err != nil {
		return err
	}
	if applied {
		s.logger.Debug("migration already applied", "name", m.name)
		return nil
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin migration %s: %w", m.name, err)
	}
	if err := m.up(tx); err != nil {
		tx.Rollback()
		return fmt.Errorf("migration %s: %w", m.name, err)
	}
	query := fmt.Sprintf(`INSERT OR REPLACE INTO %s(name, applied_at) VALUES(?, ?)`, migrationsTableName)
	if _, err := tx.Exec(query, m.name, s.now().UTC()); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to mark migration %s as applied: %w", m.name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", m.name, err)
	}

	s.logger.Info("migration applied", "name", m.name)
	return nil
}

func createRunsTables(tx *sql.Tx) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			source_name TEXT,
			target_name TEXT,
			options TEXT NOT NULL,
			schema TEXT NOT NULL,
			stats TEXT,
			error TEXT,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
		`CREATE TABLE IF NOT EXISTS run_results (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			source_id TEXT NOT NULL,
			target_id TEXT NOT NULL,
			source_description TEXT,
			target_description TEXT,
			target_status TEXT,
			similarity_pct INTEGER NOT NULL,
			arbiter_confidence_pct INTEGER,
			arbiter_rationale TEXT,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_results_source ON run_results(run_id, source_id)`,
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func createVerdictCacheTable(tx *sql.Tx) error {
	_, err := tx.Exec(`CREATE TABLE IF NOT EXISTS verdict_cache (
		key TEXT PRIMARY KEY,
		is_match INTEGER NOT NULL,
		confidence REAL NOT NULL,
		rationale TEXT,
		created_at TIMESTAMP NOT NULL
	)`)
	return err
}
