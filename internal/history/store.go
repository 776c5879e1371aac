// Package history persists translation runs to a local SQLite database so
// past activity can be inspected from the CLI and the HTTP API.
package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/subforge/srt-translator/internal/batch"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Run is one recorded invocation of the batch translator.
type Run struct {
	ID         int64
	TargetLang string
	Style      string
	Model      string
	Endpoint   string
	State      string
	FilesDone  int
	FilesTotal int
	StartedAt  time.Time
	FinishedAt *time.Time
}

// FileRecord is the per-file outcome of a run.
type FileRecord struct {
	ID         int64
	RunID      int64
	Path       string
	Status     string
	Detail     string
	RecordedAt time.Time
}

type Store struct {
	db *sql.DB
}

var _ batch.Recorder = (*Store)(nil)

func NewStore(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	// Bootstrap schema_migrations table so we can track applied versions.
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile(filepath.Join("migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

func (s *Store) BeginRun(ctx context.Context, job batch.Job) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (target_lang, style, model, endpoint, state, files_total, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.Target.Code,
		job.Style.String(),
		job.Model,
		job.Endpoint,
		batch.StateRunning.String(),
		len(job.Files),
		time.Now().UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) RecordFile(ctx context.Context, runID int64, path, status, detail string) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO run_files (run_id, path, status, detail, recorded_at)
		 VALUES (?, ?, ?, ?, ?)`,
		runID,
		path,
		status,
		detail,
		time.Now().UTC(),
	)
	return err
}

func (s *Store) FinishRun(ctx context.Context, runID int64, state batch.State, done, total int) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE runs
		 SET state = ?, files_done = ?, files_total = ?, finished_at = ?
		 WHERE id = ?`,
		state.String(),
		done,
		total,
		time.Now().UTC(),
		runID,
	)
	return err
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, target_lang, style, model, endpoint, state, files_done, files_total, started_at, finished_at
		 FROM runs
		 ORDER BY started_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]Run, 0)
	for rows.Next() {
		var item Run
		var finished sql.NullTime
		if err := rows.Scan(
			&item.ID,
			&item.TargetLang,
			&item.Style,
			&item.Model,
			&item.Endpoint,
			&item.State,
			&item.FilesDone,
			&item.FilesTotal,
			&item.StartedAt,
			&finished,
		); err != nil {
			return nil, err
		}
		if finished.Valid {
			t := finished.Time
			item.FinishedAt = &t
		}
		ret = append(ret, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

// ListFiles returns the per-file records of a run in the order they were recorded.
func (s *Store) ListFiles(ctx context.Context, runID int64) ([]FileRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, run_id, path, status, detail, recorded_at
		 FROM run_files
		 WHERE run_id = ?
		 ORDER BY id ASC`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]FileRecord, 0)
	for rows.Next() {
		var item FileRecord
		if err := rows.Scan(&item.ID, &item.RunID, &item.Path, &item.Status, &item.Detail, &item.RecordedAt); err != nil {
			return nil, err
		}
		ret = append(ret, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}
