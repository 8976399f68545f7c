package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5

	kindSource = "source"
	kindTarget = "target"

	// Fixed width so text order matches time order.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun stores run and its file lists. A missing ID or timestamp is filled
// in and the stored ID is returned.
func (s *Store) SaveRun(run Run) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(run.Builder) == "" {
		return "", fmt.Errorf("run builder must not be empty")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Time.IsZero() {
		run.Time = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = StatusOK
	}

	err := s.withRetry("save run", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			`INSERT INTO runs (id, ts_utc, builder, status, error, duration_ms, command_count) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID,
			run.Time.UTC().Format(timeLayout),
			run.Builder,
			string(run.Status),
			run.Error,
			run.Duration.Milliseconds(),
			run.Commands,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := insertFiles(tx, run.ID, kindSource, run.Sources); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := insertFiles(tx, run.ID, kindTarget, run.Targets); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

func insertFiles(tx *sql.Tx, runID, kind string, paths []string) error {
	for i, p := range paths {
		if _, err := tx.Exec(`INSERT INTO run_files (run_id, kind, position, path) VALUES (?, ?, ?, ?)`, runID, kind, i, p); err != nil {
			return err
		}
	}
	return nil
}

// LoadRuns returns runs at or after since, newest first. A limit of zero or
// less means no limit.
func (s *Store) LoadRuns(since time.Time, limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT id, ts_utc, builder, status, error, duration_ms, command_count FROM runs`
	args := make([]any, 0, 2)
	if !since.IsZero() {
		query += " WHERE ts_utc >= ?"
		args = append(args, since.UTC().Format(timeLayout))
	}
	query += " ORDER BY ts_utc DESC, id ASC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows *sql.Rows
	err := s.withRetry("load runs", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}

	runs := make([]Run, 0)
	for rows.Next() {
		var (
			run        Run
			tsRaw      string
			status     string
			durationMS int64
		)
		if err := rows.Scan(&run.ID, &tsRaw, &run.Builder, &status, &run.Error, &durationMS, &run.Commands); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		ts, err := time.Parse(timeLayout, tsRaw)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("parse run timestamp %q: %w", tsRaw, err)
		}
		run.Time = ts.UTC()
		run.Status = Status(status)
		run.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	rows.Close()

	for i := range runs {
		if err := s.loadFiles(&runs[i]); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (s *Store) loadFiles(run *Run) error {
	var rows *sql.Rows
	err := s.withRetry("load run files", func() error {
		var qErr error
		rows, qErr = s.db.Query(`SELECT kind, path FROM run_files WHERE run_id = ? ORDER BY kind, position`, run.ID)
		return qErr
	})
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var kind, path string
		if err := rows.Scan(&kind, &path); err != nil {
			return fmt.Errorf("scan run file row: %w", err)
		}
		switch kind {
		case kindSource:
			run.Sources = append(run.Sources, path)
		case kindTarget:
			run.Targets = append(run.Targets, path)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate run file rows: %w", err)
	}
	return nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}
