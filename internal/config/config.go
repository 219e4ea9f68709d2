// Package config loads homework-bot configuration: required tokens from
// the process environment (with optional .env file), plus an optional
// YAML settings file for everything tunable.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"

	"github.com/MPokrovsky18/homework-bot/internal/storage"
	"github.com/MPokrovsky18/homework-bot/pkg/logx"
)

// Required environment variables. Missing or empty values are a fatal
// configuration error reported before anything touches the network.
const (
	EnvPracticumToken = "PRACTICUM_TOKEN"
	EnvTelegramToken  = "TELEGRAM_TOKEN"
	EnvTelegramChatID = "TELEGRAM_CHAT_ID"
)

const (
	defaultRetryPeriod    = 600 * time.Second
	defaultRequestTimeout = 30 * time.Second
)

// TokenSource hands out the current Practicum OAuth token. The env-file
// watcher swaps the value when the token is rotated externally.
type TokenSource struct {
	v atomic.Value // string
}

func NewTokenSource(token string) *TokenSource {
	ts := &TokenSource{}
	ts.v.Store(token)
	return ts
}

func (t *TokenSource) Get() string { v, _ := t.v.Load().(string); return v }

func (t *TokenSource) Set(token string) { t.v.Store(token) }

// Config is the fully resolved bot configuration.
type Config struct {
	PracticumToken *TokenSource
	TelegramToken  string
	TelegramChatID int64

	Schedule       Schedule
	RequestTimeout time.Duration
	Endpoint       string

	Storage storage.Config
	Logging logx.Config

	NotifyRatePerSec int
	DedupMaxEntries  int
}

// fileSettings is the raw shape of the optional settings file. Durations
// are Go duration strings ("30s", "10m"). Unknown keys are rejected so
// typos surface at startup instead of silently using defaults.
type fileSettings struct {
	Schedule       string `json:"schedule,omitempty"`
	RequestTimeout string `json:"request_timeout,omitempty"`
	Endpoint       string `json:"endpoint,omitempty"`

	Storage struct {
		Driver      string `json:"driver,omitempty"`
		Path        string `json:"path,omitempty"`
		BusyTimeout string `json:"busy_timeout,omitempty"`
	} `json:"storage,omitempty"`

	Logging struct {
		Level string `json:"level,omitempty"`
		File  struct {
			Enabled bool   `json:"enabled,omitempty"`
			Path    string `json:"path,omitempty"`
		} `json:"file,omitempty"`
	} `json:"logging,omitempty"`

	Notifier struct {
		RatePerSec      int `json:"rate_per_sec,omitempty"`
		DedupMaxEntries int `json:"dedup_max_entries,omitempty"`
	} `json:"notifier,omitempty"`
}

// Load resolves the full configuration.
//
// envPath, when non-empty and present on disk, is loaded into the process
// environment first (existing variables win, matching dotenv semantics).
// settingsPath, when non-empty, must parse cleanly.
func Load(envPath, settingsPath string) (*Config, error) {
	if envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				return nil, fmt.Errorf("load env file %s: %w", envPath, err)
			}
		}
	}

	cfg := &Config{
		Schedule:       Schedule{Every: defaultRetryPeriod},
		RequestTimeout: defaultRequestTimeout,
		Logging:        logx.Config{Level: "info", Console: true},
	}

	if err := cfg.readTokens(); err != nil {
		return nil, err
	}

	if settingsPath != "" {
		if err := cfg.applySettingsFile(settingsPath); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (c *Config) readTokens() error {
	practicum := os.Getenv(EnvPracticumToken)
	telegram := os.Getenv(EnvTelegramToken)
	chatID := os.Getenv(EnvTelegramChatID)

	var missing []string
	for key, val := range map[string]string{
		EnvPracticumToken: practicum,
		EnvTelegramToken:  telegram,
		EnvTelegramChatID: chatID,
	} {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("required environment variables missing or empty: %s", strings.Join(missing, ", "))
	}

	id, err := strconv.ParseInt(strings.TrimSpace(chatID), 10, 64)
	if err != nil {
		return fmt.Errorf("%s is not a valid chat id: %w", EnvTelegramChatID, err)
	}

	c.PracticumToken = NewTokenSource(practicum)
	c.TelegramToken = telegram
	c.TelegramChatID = id
	return nil
}

func (c *Config) applySettingsFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read settings file: %w", err)
	}
	jb, err := coerceToJSONBytes(path, b)
	if err != nil {
		return fmt.Errorf("settings file %s: %w", path, err)
	}

	var fs fileSettings
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fs); err != nil {
		return fmt.Errorf("settings file %s: %w", path, err)
	}
	// reject trailing tokens (e.g. concatenated documents)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return fmt.Errorf("settings file %s: trailing data", path)
		}
		return fmt.Errorf("settings file %s: %w", path, err)
	}

	if fs.Schedule != "" {
		sched, err := ParseSchedule(fs.Schedule)
		if err != nil {
			return fmt.Errorf("settings file %s: %w", path, err)
		}
		c.Schedule = sched
	}
	if fs.RequestTimeout != "" {
		d, err := time.ParseDuration(fs.RequestTimeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("settings file %s: invalid request_timeout %q", path, fs.RequestTimeout)
		}
		c.RequestTimeout = d
	}
	if fs.Endpoint != "" {
		c.Endpoint = fs.Endpoint
	}

	c.Storage.Driver = fs.Storage.Driver
	c.Storage.Path = fs.Storage.Path
	if fs.Storage.BusyTimeout != "" {
		d, err := time.ParseDuration(fs.Storage.BusyTimeout)
		if err != nil || d < 0 {
			return fmt.Errorf("settings file %s: invalid storage.busy_timeout %q", path, fs.Storage.BusyTimeout)
		}
		c.Storage.BusyTimeout = d
	}

	if fs.Logging.Level != "" {
		c.Logging.Level = fs.Logging.Level
	}
	c.Logging.File.Enabled = fs.Logging.File.Enabled
	c.Logging.File.Path = fs.Logging.File.Path

	c.NotifyRatePerSec = fs.Notifier.RatePerSec
	c.DedupMaxEntries = fs.Notifier.DedupMaxEntries
	return nil
}
