package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/MPokrovsky18/homework-bot/internal/config"
	"github.com/MPokrovsky18/homework-bot/internal/notify"
	"github.com/MPokrovsky18/homework-bot/internal/poller"
	"github.com/MPokrovsky18/homework-bot/internal/practicum"
	"github.com/MPokrovsky18/homework-bot/internal/storage"
	"github.com/MPokrovsky18/homework-bot/pkg/logx"
)

func main() {
	var (
		envPath      string
		settingsPath string
	)
	flag.StringVar(&envPath, "env", ".env", "path to env file (optional)")
	flag.StringVar(&settingsPath, "config", "", "path to settings yaml/json (optional)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, envPath, settingsPath); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, envPath, settingsPath string) error {
	boot := logx.NewConsole("info")

	cfg, err := config.Load(envPath, settingsPath)
	if err != nil {
		// Configuration errors are unrecoverable: report and stop
		// before anything touches the network.
		boot.Error("configuration check failed", logx.Err(err))
		return err
	}

	log, closeLog := logx.New(cfg.Logging)
	defer closeLog()

	store, err := storage.Open(cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	if store != nil {
		defer store.Close()
	}

	sender, err := notify.NewTelegramSender(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("telegram bot: %w", err)
	}

	notifier := notify.New(notify.Config{
		ChatID:          cfg.TelegramChatID,
		RatePerSec:      cfg.NotifyRatePerSec,
		DedupMaxEntries: cfg.DedupMaxEntries,
	}, sender, store, log)

	client := practicum.NewClient(practicum.ClientConfig{
		Endpoint: cfg.Endpoint,
		Token:    cfg.PracticumToken.Get,
		Timeout:  cfg.RequestTimeout,
	}, log)

	// Pick up externally rotated tokens without a restart.
	if envPath != "" {
		if _, statErr := os.Stat(envPath); statErr == nil {
			watcher := config.NewEnvWatcher(envPath, cfg.PracticumToken, log)
			go func() {
				if err := watcher.Run(ctx); err != nil {
					log.Warn("env file watcher stopped", logx.Err(err))
				}
			}()
		}
	}

	p := poller.New(client, notifier, cfg.Schedule, store, log)

	notifyReady(ctx, log)

	return p.Run(ctx)
}

// notifyReady reports readiness to systemd and keeps the watchdog fed
// when one is configured. No-op outside systemd.
func notifyReady(ctx context.Context, log logx.Logger) {
	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Warn("sd_notify failed", logx.Err(err))
	} else if ok {
		log.Debug("systemd readiness notified")
	}

	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
			}
		}
	}()
}
