package poller

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MPokrovsky18/homework-bot/internal/config"
	"github.com/MPokrovsky18/homework-bot/internal/practicum"
	"github.com/MPokrovsky18/homework-bot/pkg/logx"
)

type fakeAPI struct {
	resp *practicum.StatusResponse
	err  error
	from []int64
}

func (f *fakeAPI) HomeworkStatuses(ctx context.Context, from int64) (*practicum.StatusResponse, error) {
	f.from = append(f.from, from)
	return f.resp, f.err
}

type fakeNotifier struct {
	sent     []string
	errs     []string
	sendFail bool
}

func (f *fakeNotifier) Send(ctx context.Context, text string) bool {
	if f.sendFail {
		return false
	}
	f.sent = append(f.sent, text)
	return true
}

func (f *fakeNotifier) SendError(ctx context.Context, text string) bool {
	f.errs = append(f.errs, text)
	return true
}

func newTestPoller(api API, n Notifier) *Poller {
	sched, _ := config.ParseSchedule("10m")
	return New(api, n, sched, nil, logx.Nop())
}

func TestCycleSuccessAdvancesCursor(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{resp: &practicum.StatusResponse{
		Homeworks: []practicum.Homework{
			{Name: "hw01", Status: "approved"},
			{Name: "hw02", Status: "rejected"},
		},
		CurrentDate: 1700000100,
	}}
	n := &fakeNotifier{}
	p := newTestPoller(api, n)
	p.cursor = 1700000000

	p.cycle(context.Background())

	if p.cursor != 1700000100 {
		t.Fatalf("cursor = %d, want 1700000100", p.cursor)
	}
	if len(api.from) != 1 || api.from[0] != 1700000000 {
		t.Fatalf("from_date calls = %v", api.from)
	}
	if len(n.sent) != 2 {
		t.Fatalf("sent %d notifications, want 2", len(n.sent))
	}
	if !strings.Contains(n.sent[0], "hw01") || !strings.Contains(n.sent[1], "hw02") {
		t.Fatalf("unexpected notifications: %v", n.sent)
	}
	if len(n.errs) != 0 {
		t.Fatalf("unexpected error notifications: %v", n.errs)
	}
}

func TestCycleEmptyBatchAdvancesSilently(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{resp: &practicum.StatusResponse{CurrentDate: 1700000100}}
	n := &fakeNotifier{}
	p := newTestPoller(api, n)
	p.cursor = 1700000000

	p.cycle(context.Background())

	if p.cursor != 1700000100 {
		t.Fatalf("cursor = %d, want advance on empty batch", p.cursor)
	}
	if len(n.sent) != 0 || len(n.errs) != 0 {
		t.Fatalf("empty batch must not notify: sent=%v errs=%v", n.sent, n.errs)
	}
}

func TestCycleFetchErrorKeepsCursor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
	}{
		{name: "auth", err: &practicum.AuthError{}},
		{name: "bad request", err: &practicum.BadRequestError{}},
		{name: "http", err: &practicum.StatusError{Code: 500, Status: "500 Internal Server Error"}},
		{name: "shape", err: &practicum.ShapeError{Reason: `key "current_date" not found`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{err: tt.err}
			n := &fakeNotifier{}
			p := newTestPoller(api, n)
			p.cursor = 1700000000

			p.cycle(context.Background())

			if p.cursor != 1700000000 {
				t.Fatalf("cursor moved on failure: %d", p.cursor)
			}
			if len(n.errs) != 1 {
				t.Fatalf("error notifications = %v, want 1", n.errs)
			}
			if !strings.HasPrefix(n.errs[0], failurePreamble) {
				t.Fatalf("error text %q missing preamble", n.errs[0])
			}
			if !strings.Contains(n.errs[0], tt.err.Error()) {
				t.Fatalf("error text %q does not carry the cause", n.errs[0])
			}
		})
	}
}

func TestCycleBadItemAbortsBatch(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{resp: &practicum.StatusResponse{
		Homeworks: []practicum.Homework{
			{Name: "hw01", Status: "approved"},
			{Name: "hw02", Status: "unknowable"},
		},
		CurrentDate: 1700000100,
	}}
	n := &fakeNotifier{}
	p := newTestPoller(api, n)
	p.cursor = 1700000000

	p.cycle(context.Background())

	if p.cursor != 1700000000 {
		t.Fatalf("cursor advanced past a failed batch: %d", p.cursor)
	}
	if len(n.sent) != 1 {
		t.Fatalf("sent = %v, want only the item before the failure", n.sent)
	}
	if len(n.errs) != 1 {
		t.Fatalf("error notifications = %v, want 1", n.errs)
	}
}

func TestCycleSendFailureKeepsCursor(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{resp: &practicum.StatusResponse{
		Homeworks:   []practicum.Homework{{Name: "hw01", Status: "approved"}},
		CurrentDate: 1700000100,
	}}
	n := &fakeNotifier{sendFail: true}
	p := newTestPoller(api, n)
	p.cursor = 1700000000

	p.cycle(context.Background())

	if p.cursor != 1700000000 {
		t.Fatalf("cursor advanced despite undelivered notification: %d", p.cursor)
	}
}

func TestCursorNeverDecreases(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{resp: &practicum.StatusResponse{CurrentDate: 1600000000}}
	n := &fakeNotifier{}
	p := newTestPoller(api, n)
	p.cursor = 1700000000

	p.cycle(context.Background())

	if p.cursor != 1700000000 {
		t.Fatalf("cursor decreased to %d", p.cursor)
	}
}

func TestRunSurvivesFailuresAndStopsOnCancel(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{err: &practicum.StatusError{Code: 500, Status: "500 Internal Server Error"}}
	n := &fakeNotifier{}
	sched, err := config.ParseSchedule("5ms")
	if err != nil {
		t.Fatal(err)
	}
	p := New(api, n, sched, nil, logx.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	if err := p.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run returned %v, want context deadline", err)
	}
	if len(api.from) < 2 {
		t.Fatalf("loop stopped retrying after a failure: %d cycles", len(api.from))
	}
	if p.cursor != 0 {
		t.Fatalf("cursor moved on failures: %d", p.cursor)
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want string
	}{
		{err: &practicum.AuthError{}, want: "auth"},
		{err: &practicum.BadRequestError{}, want: "bad_request"},
		{err: &practicum.StatusError{Code: 503}, want: "http"},
		{err: &practicum.ShapeError{Reason: "x"}, want: "shape"},
		{err: &practicum.ItemError{Reason: "x"}, want: "item"},
		{err: context.DeadlineExceeded, want: "transport"},
	}
	for _, tt := range tests {
		if got := classify(tt.err); got != tt.want {
			t.Fatalf("classify(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
