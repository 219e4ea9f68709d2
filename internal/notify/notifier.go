// Package notify delivers bot messages to one fixed Telegram chat.
//
// Status-change notifications are sent unconditionally. Error
// notifications are deduplicated: each distinct error text is delivered
// at most once per process lifetime (and across restarts when storage
// is enabled).
package notify

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/MPokrovsky18/homework-bot/internal/storage"
	"github.com/MPokrovsky18/homework-bot/pkg/logx"
)

// Config controls the notifier.
type Config struct {
	ChatID int64

	// RatePerSec caps outgoing sends (Telegram throttles bots).
	// Defaults to 3.
	RatePerSec int

	// DedupMaxEntries caps the in-memory dedup set. Past the cap, new
	// error texts are still sent but no longer recorded. Defaults to 2000.
	DedupMaxEntries int
}

// Notifier owns the dedup set and the send path. All dependencies are
// injected at construction; there is no post-construction wiring.
type Notifier struct {
	sender  Sender
	chatID  int64
	log     logx.Logger
	limiter *rate.Limiter
	store   storage.Store

	maxEntries int

	mu   sync.Mutex
	sent map[string]struct{}
}

func New(cfg Config, sender Sender, store storage.Store, log logx.Logger) *Notifier {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 3
	}
	if cfg.DedupMaxEntries <= 0 {
		cfg.DedupMaxEntries = 2000
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Notifier{
		sender:     sender,
		chatID:     cfg.ChatID,
		log:        log,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
		store:      store,
		maxEntries: cfg.DedupMaxEntries,
		sent:       map[string]struct{}{},
	}
}

// Send delivers a status-change notification. Never deduplicated.
// Returns false on failure; a send failure is logged, never raised.
func (n *Notifier) Send(ctx context.Context, text string) bool {
	return n.deliver(ctx, text)
}

// SendError delivers an error notification unless an identical text was
// already delivered. Suppressed duplicates are still logged.
func (n *Notifier) SendError(ctx context.Context, text string) bool {
	if n.seen(ctx, text) {
		n.log.Debug("duplicate error notification suppressed", logx.String("text", text))
		return false
	}
	if !n.deliver(ctx, text) {
		// Not recorded: a later cycle may retry the same text.
		return false
	}
	n.record(ctx, text)
	return true
}

func (n *Notifier) deliver(ctx context.Context, text string) bool {
	n.log.Debug("sending notification", logx.String("text", text))
	if err := n.limiter.Wait(ctx); err != nil {
		n.log.Warn("notification cancelled before send", logx.Err(err))
		return false
	}
	if err := n.sender.Send(ctx, n.chatID, text); err != nil {
		n.log.Error("failed to send notification", logx.Err(err), logx.String("text", text))
		return false
	}
	n.log.Debug("notification sent", logx.String("text", text))
	return true
}

func (n *Notifier) seen(ctx context.Context, text string) bool {
	n.mu.Lock()
	_, ok := n.sent[text]
	n.mu.Unlock()
	if ok {
		return true
	}
	if n.store != nil {
		seen, err := n.store.SeenError(ctx, text)
		if err != nil {
			n.log.Warn("dedup store lookup failed", logx.Err(err))
			return false
		}
		if seen {
			// Cache so the next duplicate skips the store.
			n.remember(text)
			return true
		}
	}
	return false
}

func (n *Notifier) record(ctx context.Context, text string) {
	n.remember(text)
	if n.store != nil {
		if err := n.store.PutError(ctx, text); err != nil {
			n.log.Warn("dedup store write failed", logx.Err(err))
		}
	}
}

func (n *Notifier) remember(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) >= n.maxEntries {
		return
	}
	n.sent[text] = struct{}{}
}
