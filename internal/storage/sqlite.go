package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/MPokrovsky18/homework-bot/pkg/logx"
)

const schema = `
CREATE TABLE IF NOT EXISTS state (
  key   TEXT PRIMARY KEY,
  value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS sent_errors (
  text TEXT PRIMARY KEY,
  at   INTEGER NOT NULL
);
`

const cursorKey = "cursor"

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	log.Debug("sqlite store opened", logx.String("path", cfg.Path))
	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Cursor(ctx context.Context) (int64, bool, error) {
	if s == nil || s.db == nil {
		return 0, false, ErrDisabled
	}
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM state WHERE key = ?`, cursorKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt cursor value %q: %w", raw, err)
	}
	return ts, true, nil
}

func (s *sqliteStore) PutCursor(ctx context.Context, ts int64) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO state(key, value) VALUES(?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		cursorKey, strconv.FormatInt(ts, 10),
	)
	return err
}

func (s *sqliteStore) SeenError(ctx context.Context, text string) (bool, error) {
	if s == nil || s.db == nil {
		return false, ErrDisabled
	}
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM sent_errors WHERE text = ?`, text).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *sqliteStore) PutError(ctx context.Context, text string) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if text == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sent_errors(text, at) VALUES(?, ?)
		 ON CONFLICT(text) DO NOTHING`,
		text, time.Now().Unix(),
	)
	return err
}
