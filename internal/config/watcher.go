package config

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"

	"github.com/MPokrovsky18/homework-bot/pkg/logx"
)

// EnvWatcher watches the env file and picks up an externally rotated
// PRACTICUM_TOKEN without a restart. Auth failures are retried on the
// normal poll schedule, so a rotation takes effect on the next cycle.
type EnvWatcher struct {
	path  string
	token *TokenSource
	log   logx.Logger
}

func NewEnvWatcher(path string, token *TokenSource, log logx.Logger) *EnvWatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &EnvWatcher{path: path, token: token, log: log}
}

// Run blocks until ctx is cancelled. Watches the directory rather than
// the file itself: editors and secret managers typically replace the
// file, which drops an inode-level watch.
func (w *EnvWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	w.log.Debug("env file watcher started", logx.String("path", w.path))

	// Debounce: editors fire several events per save.
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(200 * time.Millisecond)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(200 * time.Millisecond)
			}
		case <-timerC:
			w.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("env file watcher error", logx.Err(err))
		}
	}
}

// reload re-reads the env file and swaps the token if it changed.
func (w *EnvWatcher) reload() {
	vars, err := godotenv.Read(w.path)
	if err != nil {
		w.log.Warn("env file reload failed", logx.String("path", w.path), logx.Err(err))
		return
	}
	tok := strings.TrimSpace(vars[EnvPracticumToken])
	if tok == "" {
		w.log.Warn("env file reloaded but " + EnvPracticumToken + " is empty; keeping current token")
		return
	}
	if tok == w.token.Get() {
		w.log.Debug("env file reloaded, token unchanged")
		return
	}
	w.token.Set(tok)
	w.log.Info("practicum token rotated via env file")
}
