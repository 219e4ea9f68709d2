// Package poller runs the fetch -> validate -> process -> sleep cycle.
//
// One cycle runs to completion before the next begins; the cursor and
// the notifier are owned by the loop and never shared.
package poller

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MPokrovsky18/homework-bot/internal/config"
	"github.com/MPokrovsky18/homework-bot/internal/practicum"
	"github.com/MPokrovsky18/homework-bot/internal/storage"
	"github.com/MPokrovsky18/homework-bot/pkg/logx"
)

// failurePreamble prefixes every cycle-failure notification, matching
// the status-change texts in language.
const failurePreamble = "Сбой в работе программы: "

// API is the homework-status source.
type API interface {
	HomeworkStatuses(ctx context.Context, from int64) (*practicum.StatusResponse, error)
}

// Notifier is the outbound message channel.
type Notifier interface {
	Send(ctx context.Context, text string) bool
	SendError(ctx context.Context, text string) bool
}

type Poller struct {
	api      API
	notifier Notifier
	schedule config.Schedule
	store    storage.Store
	log      logx.Logger

	// cursor is the lower bound of the next query window. It only
	// advances after a fully successful cycle and never decreases.
	cursor int64

	now func() time.Time
}

func New(api API, notifier Notifier, schedule config.Schedule, store storage.Store, log logx.Logger) *Poller {
	if log.IsZero() {
		log = logx.Nop()
	}
	p := &Poller{
		api:      api,
		notifier: notifier,
		schedule: schedule,
		store:    store,
		log:      log,
		now:      time.Now,
	}
	p.restoreCursor()
	return p
}

func (p *Poller) restoreCursor() {
	if p.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ts, ok, err := p.store.Cursor(ctx)
	if err != nil {
		p.log.Warn("failed to restore cursor, starting from 0", logx.Err(err))
		return
	}
	if ok {
		p.cursor = ts
		p.log.Info("cursor restored", logx.Int64("cursor", ts))
	}
}

// Run loops until ctx is cancelled. Cycle failures never stop the loop.
func (p *Poller) Run(ctx context.Context) error {
	p.log.Info("poller started",
		logx.String("schedule", p.schedule.String()),
		logx.Int64("cursor", p.cursor))

	for {
		p.cycle(ctx)

		next := p.schedule.Next(p.now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			p.log.Info("poller stopped")
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// cycle runs one fetch -> validate -> process pass.
func (p *Poller) cycle(ctx context.Context) {
	log := p.log.With(logx.String("cycle", uuid.NewString()))

	resp, err := p.api.HomeworkStatuses(ctx, p.cursor)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.fail(ctx, log, err)
		return
	}

	if len(resp.Homeworks) == 0 {
		log.Debug("no new homework statuses")
		p.advance(ctx, log, resp.CurrentDate)
		return
	}

	for _, hw := range resp.Homeworks {
		msg, err := practicum.ParseStatus(hw)
		if err != nil {
			p.fail(ctx, log, err)
			return
		}
		if !p.notifier.Send(ctx, msg) {
			// Delivery failed: keep the cursor so the change is
			// retried next cycle.
			log.Warn("status notification not delivered, cursor kept", logx.String("homework", hw.Name))
			return
		}
		log.Info("status change notified",
			logx.String("homework", hw.Name),
			logx.String("status", hw.Status))
	}

	p.advance(ctx, log, resp.CurrentDate)
}

// advance moves the cursor forward, never backward, and persists it.
func (p *Poller) advance(ctx context.Context, log logx.Logger, ts int64) {
	if ts <= p.cursor {
		if ts < p.cursor {
			log.Warn("API returned a current_date behind the cursor, keeping cursor",
				logx.Int64("cursor", p.cursor), logx.Int64("current_date", ts))
		}
		return
	}
	p.cursor = ts
	log.Debug("cursor advanced", logx.Int64("cursor", ts))
	if p.store != nil {
		if err := p.store.PutCursor(ctx, ts); err != nil {
			log.Warn("failed to persist cursor", logx.Err(err))
		}
	}
}

// fail handles a cycle-level failure: log it, notify once per distinct
// text, keep the cursor.
func (p *Poller) fail(ctx context.Context, log logx.Logger, err error) {
	log.Error("cycle failed", logx.Err(err), logx.String("kind", classify(err)))
	p.notifier.SendError(ctx, failurePreamble+err.Error())
}

// classify maps a cycle error to its taxonomy bucket for logging.
func classify(err error) string {
	var (
		authErr  *practicum.AuthError
		badReq   *practicum.BadRequestError
		statErr  *practicum.StatusError
		shapeErr *practicum.ShapeError
		itemErr  *practicum.ItemError
	)
	switch {
	case errors.As(err, &authErr):
		return "auth"
	case errors.As(err, &badReq):
		return "bad_request"
	case errors.As(err, &statErr):
		return "http"
	case errors.As(err, &shapeErr):
		return "shape"
	case errors.As(err, &itemErr):
		return "item"
	default:
		return "transport"
	}
}
