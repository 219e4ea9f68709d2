// Package storage persists the poll cursor and the set of already-sent
// error notifications, so a restart neither replays the whole history
// nor re-spams errors that were delivered before.
package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MPokrovsky18/homework-bot/pkg/logx"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// Store is the persistence API used by the poller and the notifier.
// All methods on a nil Store are expected to be guarded by the caller.
type Store interface {
	// Cursor returns the persisted poll cursor; ok is false when none
	// has been stored yet.
	Cursor(ctx context.Context) (ts int64, ok bool, err error)
	PutCursor(ctx context.Context, ts int64) error

	// SeenError reports whether an error notification with this exact
	// text was already delivered.
	SeenError(ctx context.Context, text string) (bool, error)
	PutError(ctx context.Context, text string) error

	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
