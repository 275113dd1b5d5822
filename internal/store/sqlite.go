package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Fixed width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteStore struct {
	conn   *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

func NewSQLite(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	s := &SQLiteStore{conn: conn, logger: logger, now: func() time.Time { return time.Now().UTC() }}

	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := s.markInterruptedExports(); err != nil && logger != nil {
		logger.Warn("failed to mark interrupted exports", "error", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

func (s *SQLiteStore) Conn() *sql.DB {
	return s.conn
}

func (s *SQLiteStore) migrate() error {
	migrations, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	for _, m := range migrations {
		if m.IsDir() {
			continue
		}

		name := m.Name()

		if s.isMigrationApplied(name) {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		if _, err := s.conn.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", name, err)
		}

		if _, err := s.conn.Exec("INSERT INTO _migrations (name) VALUES (?)", name); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", name, err)
		}

		if s.logger != nil {
			s.logger.Info("applied migration", "name", name)
		}
	}

	return nil
}

func (s *SQLiteStore) isMigrationApplied(name string) bool {
	var exists int
	err := s.conn.QueryRow("SELECT 1 FROM sqlite_master WHERE type='table' AND name='_migrations'").Scan(&exists)
	if err != nil {
		return false
	}

	var applied int
	err = s.conn.QueryRow("SELECT 1 FROM _migrations WHERE name = ?", name).Scan(&applied)
	return err == nil && applied == 1
}

func (s *SQLiteStore) markInterruptedExports() error {
	_, err := s.conn.ExecContext(context.Background(),
		`UPDATE exports SET status = ?, error = 'interrupted by restart', updated_at = ? WHERE status = ?`,
		ExportFailed, s.now().Format(timeLayout), ExportRunning)
	return err
}

func (s *SQLiteStore) Save(ctx context.Context, rec *Record) (*Record, error) {
	out, body, err := prepare(rec, s.now())
	if err != nil {
		return nil, err
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO compositions (id, title, body, total_frames, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			body = excluded.body,
			total_frames = excluded.total_frames,
			updated_at = excluded.updated_at`,
		out.ID, out.Title, string(body), out.TotalFrames,
		out.CreatedAt.Format(timeLayout), out.UpdatedAt.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("save composition %s: %w", out.ID, err)
	}
	// created_at survives an update
	return s.Get(ctx, out.ID)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		rec                  Record
		body                 string
		createdAt, updatedAt string
	)
	if err := row.Scan(&rec.ID, &rec.Title, &body, &rec.TotalFrames, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	comp, err := decodeBody([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("composition %s: %w", rec.ID, err)
	}
	rec.Composition = comp
	rec.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	rec.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return &rec, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT id, title, body, total_frames, created_at, updated_at FROM compositions WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("composition %s: %w", id, ErrNotFound)
	}
	return rec, err
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, title, body, total_frames, created_at, updated_at FROM compositions
		 ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM compositions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("composition %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) SaveExport(ctx context.Context, exp *Export) (*Export, error) {
	out := prepareExport(exp, s.now())
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO exports (id, composition_id, status, output, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			output = excluded.output,
			error = excluded.error,
			updated_at = excluded.updated_at`,
		out.ID, out.CompositionID, out.Status, out.Output, out.Error,
		out.CreatedAt.Format(timeLayout), out.UpdatedAt.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("save export %s: %w", out.ID, err)
	}
	return s.GetExport(ctx, out.ID)
}

func scanExport(row scanner) (*Export, error) {
	var (
		exp                  Export
		createdAt, updatedAt string
	)
	if err := row.Scan(&exp.ID, &exp.CompositionID, &exp.Status, &exp.Output, &exp.Error, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	exp.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	exp.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return &exp, nil
}

func (s *SQLiteStore) GetExport(ctx context.Context, id string) (*Export, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT id, composition_id, status, output, error, created_at, updated_at FROM exports WHERE id = ?`, id)
	exp, err := scanExport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("export %s: %w", id, ErrNotFound)
	}
	return exp, err
}

func (s *SQLiteStore) ListExports(ctx context.Context, compositionID string) ([]*Export, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, composition_id, status, output, error, created_at, updated_at FROM exports
		 WHERE composition_id = ? ORDER BY created_at DESC`, compositionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Export
	for rows.Next() {
		exp, err := scanExport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, exp)
	}
	return out, rows.Err()
}
