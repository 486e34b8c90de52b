// Package database хранит историю запусков сверки, их результаты и кэш решений арбитра в SQLite
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound запись не найдена
var ErrNotFound = errors.New("not found")

// Config параметры пула соединений
type Config struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Logger          *slog.Logger
}

// Store обертка над базой данных сверок
type Store struct {
	conn   *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// Open открывает (или создает) базу по пути; ":memory:" для базы в памяти
func Open(dbPath string) (*Store, error) {
	return OpenWithConfig(dbPath, Config{})
}

// isInMemory определяет, что путь относится к in-memory SQLite
func isInMemory(dbPath string) bool {
	if dbPath == ":memory:" {
		return true
	}
	return strings.HasPrefix(dbPath, "file:") && strings.Contains(dbPath, "mode=memory")
}

// withForeignKeys включает внешние ключи через DSN: PRAGMA действует только
// на одно соединение пула, а параметр DSN применяется к каждому новому.
func withForeignKeys(dbPath string) string {
	if strings.Contains(dbPath, "_foreign_keys=") || strings.Contains(dbPath, "_fk=") {
		return dbPath
	}
	if strings.Contains(dbPath, "?") {
		return dbPath + "&_foreign_keys=on"
	}
	return dbPath + "?_foreign_keys=on"
}

// OpenWithConfig открывает базу с настройками пула и применяет миграции
func OpenWithConfig(dbPath string, config Config) (*Store, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// каждое новое соединение с :memory: получает пустую базу
	if isInMemory(dbPath) {
		config.MaxOpenConns = 1
		config.MaxIdleConns = 1
	}

	conn, err := sql.Open("sqlite3", withForeignKeys(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if config.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(config.MaxOpenConns)
	} else {
		conn.SetMaxOpenConns(10)
	}
	if config.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(config.MaxIdleConns)
	} else {
		conn.SetMaxIdleConns(3)
	}
	if config.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(config.ConnMaxLifetime)
	} else if !isInMemory(dbPath) {
		conn.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if !isInMemory(dbPath) {
		if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
			logger.Warn("failed to enable WAL mode", "error", err)
		}
	}

	store := &Store{conn: conn, logger: logger, now: time.Now}
	if err := store.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close закрывает подключение
func (s *Store) Close() error {
	return s.conn.Close()
}

// Ping проверяет подключение
func (s *Store) Ping() error {
	return s.conn.Ping()
}

// DB возвращает *sql.DB для прямого доступа
func (s *Store) DB() *sql.DB {
	return s.conn
}

func nullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}
