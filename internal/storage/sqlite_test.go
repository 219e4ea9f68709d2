package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/MPokrovsky18/homework-bot/pkg/logx"
)

func openTestStore(t *testing.T, path string) Store {
	t.Helper()
	st, err := Open(Config{Driver: "sqlite", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if st == nil {
		t.Fatal("expected a store")
	}
	return st
}

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none"} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil {
			t.Fatalf("Open(%q): %v", driver, err)
		}
		if st != nil {
			t.Fatalf("Open(%q) returned a store", driver)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "postgres"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestCursorRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := openTestStore(t, filepath.Join(t.TempDir(), "bot.db"))
	defer st.Close()

	if _, ok, err := st.Cursor(ctx); err != nil || ok {
		t.Fatalf("fresh store cursor: ok=%v err=%v", ok, err)
	}

	if err := st.PutCursor(ctx, 1700000000); err != nil {
		t.Fatalf("PutCursor: %v", err)
	}
	ts, ok, err := st.Cursor(ctx)
	if err != nil || !ok || ts != 1700000000 {
		t.Fatalf("Cursor = (%d, %v, %v)", ts, ok, err)
	}

	// Overwrite wins.
	if err := st.PutCursor(ctx, 1700000500); err != nil {
		t.Fatalf("PutCursor: %v", err)
	}
	ts, _, _ = st.Cursor(ctx)
	if ts != 1700000500 {
		t.Fatalf("Cursor = %d, want 1700000500", ts)
	}
}

func TestSentErrorsRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := openTestStore(t, filepath.Join(t.TempDir(), "bot.db"))
	defer st.Close()

	seen, err := st.SeenError(ctx, "boom")
	if err != nil || seen {
		t.Fatalf("fresh store SeenError = (%v, %v)", seen, err)
	}
	if err := st.PutError(ctx, "boom"); err != nil {
		t.Fatalf("PutError: %v", err)
	}
	// Idempotent insert.
	if err := st.PutError(ctx, "boom"); err != nil {
		t.Fatalf("PutError repeat: %v", err)
	}
	seen, err = st.SeenError(ctx, "boom")
	if err != nil || !seen {
		t.Fatalf("SeenError = (%v, %v), want true", seen, err)
	}
}

func TestStateSurvivesReopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bot.db")

	st := openTestStore(t, path)
	if err := st.PutCursor(ctx, 1700000000); err != nil {
		t.Fatal(err)
	}
	if err := st.PutError(ctx, "boom"); err != nil {
		t.Fatal(err)
	}
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}

	st = openTestStore(t, path)
	defer st.Close()
	ts, ok, err := st.Cursor(ctx)
	if err != nil || !ok || ts != 1700000000 {
		t.Fatalf("Cursor after reopen = (%d, %v, %v)", ts, ok, err)
	}
	seen, err := st.SeenError(ctx, "boom")
	if err != nil || !seen {
		t.Fatalf("SeenError after reopen = (%v, %v)", seen, err)
	}
}
