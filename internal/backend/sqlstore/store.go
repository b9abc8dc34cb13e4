// Package sqlstore implements service.Service on SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // pure Go driver, registers "sqlite"

	"hillchart/internal/progress"
	"hillchart/internal/service"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const migrationsTable = "schema_migrations"

//go:embed migrations/*.sql
var migrationFS embed.FS

// Options configures a Store.
type Options struct {
	// Policy decides how completion and position interact on update.
	Policy progress.CompletionPolicy

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// Store implements service.Service using database/sql and SQLite.
type Store struct {
	db     *sql.DB
	path   string
	policy progress.CompletionPolicy
	now    func() time.Time
	log    *zap.Logger
}

var _ service.Service = (*Store)(nil)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open opens or creates the database at path. Call Migrate before use.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is empty")
	}
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps :memory: databases alive and serialises writers.
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{
		db:     db,
		path:   path,
		policy: opts.Policy,
		now:    opts.Now,
		log:    opts.Logger,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

// Migrate applies every embedded migration that has not run yet, each in
// its own transaction, and returns the IDs it applied.
func (s *Store) Migrate(ctx context.Context) ([]string, error) {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS `+migrationsTable+` (
			id TEXT PRIMARY KEY,
			applied_at DATETIME NOT NULL
		)`); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := s.Applied(ctx)
	if err != nil {
		return nil, err
	}
	done := make(map[string]bool, len(applied))
	for _, id := range applied {
		done[id] = true
	}

	names, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(names)

	var ran []string
	for _, name := range names {
		id := strings.TrimSuffix(filepath.Base(name), ".sql")
		if done[id] {
			s.log.Debug("migration already applied", zap.String("id", id))
			continue
		}
		body, err := migrationFS.ReadFile(name)
		if err != nil {
			return ran, fmt.Errorf("failed to read migration %s: %w", id, err)
		}
		if err := s.runMigration(ctx, id, string(body)); err != nil {
			return ran, err
		}
		s.log.Info("applied migration", zap.String("id", id))
		ran = append(ran, id)
	}
	return ran, nil
}

func (s *Store) runMigration(ctx context.Context, id, body string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, body); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO `+migrationsTable+` (id, applied_at) VALUES (?, ?)`, id, s.timestamp()); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", id, err)
		}
		return nil
	})
}

// Applied returns the IDs of applied migrations in order.
func (s *Store) Applied(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM `+migrationsTable+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Drop removes every table, including the migrations table.
func (s *Store) Drop(ctx context.Context) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{
			"task_assignees", "feature_assignees", "tasks", "assignees", "features", migrationsTable,
		} {
			if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+table); err != nil {
				return fmt.Errorf("failed to drop %s: %w", table, err)
			}
		}
		return nil
	})
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.log.Warn("rollback failed", zap.Error(rbErr))
			}
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// classify maps SQLite constraint failures onto service errors.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", service.ErrConflict, err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"),
		strings.Contains(msg, "CHECK constraint failed"):
		return fmt.Errorf("%w: %v", service.ErrInvalid, err)
	}
	return err
}

func notFound(kind string, id int64) error {
	return fmt.Errorf("%w: %s %d", service.ErrNotFound, kind, id)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
