package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hray3182/remindbot/internal/config"
	"github.com/rs/zerolog"
)

func openSQLiteStore(t *testing.T) ReminderStore {
	t.Helper()
	store, err := Open(context.Background(), config.StoreConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "reminders.db"),
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func openPostgresStore(t *testing.T) ReminderStore {
	t.Helper()
	uri := os.Getenv("TEST_DATABASE_URI")
	if uri == "" {
		t.Skip("TEST_DATABASE_URI not set")
	}
	ctx := context.Background()
	store, err := Open(ctx, config.StoreConfig{Driver: config.DriverPostgres, DatabaseURI: uri}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open postgres store: %v", err)
	}
	repo := store.(*ReminderRepository)
	if _, err := repo.db.Pool.Exec(ctx, "TRUNCATE reminders"); err != nil {
		t.Fatalf("truncate reminders: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore(t *testing.T) {
	runStoreContract(t, openSQLiteStore)
}

func TestPostgresStore(t *testing.T) {
	runStoreContract(t, openPostgresStore)
}

func runStoreContract(t *testing.T, open func(t *testing.T) ReminderStore) {
	base := time.Date(2024, 12, 2, 10, 0, 0, 0, time.UTC)

	t.Run("create then list upcoming", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		due := base.Add(10 * time.Minute)
		if err := store.Create(ctx, 7, due, "Call mom"); err != nil {
			t.Fatalf("Create: %v", err)
		}

		got, err := store.ListUpcoming(ctx, 7, base)
		if err != nil {
			t.Fatalf("ListUpcoming: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("len = %d, want 1", len(got))
		}
		if got[0].Text != "Call mom" || !got[0].DueTime.Equal(due) || got[0].Sent {
			t.Fatalf("unexpected reminder: %+v", got[0])
		}
	})

	t.Run("list upcoming filters and orders", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		mustCreate(t, store, 1, base.Add(30*time.Minute), "third")
		mustCreate(t, store, 1, base.Add(-time.Minute), "past")
		mustCreate(t, store, 1, base.Add(5*time.Minute), "first")
		mustCreate(t, store, 1, base, "exactly now")
		mustCreate(t, store, 2, base.Add(10*time.Minute), "other owner")
		mustCreate(t, store, 1, base.Add(10*time.Minute), "second")

		got, err := store.ListUpcoming(ctx, 1, base)
		if err != nil {
			t.Fatalf("ListUpcoming: %v", err)
		}
		want := []string{"first", "second", "third"}
		if len(got) != len(want) {
			t.Fatalf("got %d reminders, want %d: %+v", len(got), len(want), got)
		}
		for i, r := range got {
			if r.Text != want[i] {
				t.Fatalf("got[%d] = %q, want %q", i, r.Text, want[i])
			}
		}
	})

	t.Run("list upcoming empty", func(t *testing.T) {
		store := open(t)
		got, err := store.ListUpcoming(context.Background(), 99, base)
		if err != nil {
			t.Fatalf("ListUpcoming: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("expected no reminders, got %+v", got)
		}
	})

	t.Run("scan due spans owners and skips sent and future", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		mustCreate(t, store, 1, base.Add(-2*time.Minute), "a")
		mustCreate(t, store, 2, base, "b")
		mustCreate(t, store, 3, base.Add(time.Minute), "future")
		mustCreate(t, store, 4, base.Add(-time.Hour), "sent")
		if err := store.MarkSent(ctx, 4, base.Add(-time.Hour)); err != nil {
			t.Fatalf("MarkSent: %v", err)
		}

		got, err := store.ScanDue(ctx, base)
		if err != nil {
			t.Fatalf("ScanDue: %v", err)
		}
		texts := map[string]bool{}
		for _, r := range got {
			texts[r.Text] = true
			if !r.IsDue(base) {
				t.Fatalf("ScanDue returned ineligible reminder %+v", r)
			}
		}
		if len(got) != 2 || !texts["a"] || !texts["b"] {
			t.Fatalf("ScanDue = %+v, want a and b", got)
		}
	})

	t.Run("past due time is immediately due", func(t *testing.T) {
		store := open(t)
		mustCreate(t, store, 42, base.Add(-24*time.Hour), "late")
		got, err := store.ScanDue(context.Background(), base)
		if err != nil {
			t.Fatalf("ScanDue: %v", err)
		}
		if len(got) != 1 || got[0].OwnerID != 42 {
			t.Fatalf("ScanDue = %+v", got)
		}
	})

	t.Run("mark sent is idempotent", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		due := base.Add(-time.Minute)
		mustCreate(t, store, 5, due, "once")

		for i := 0; i < 2; i++ {
			if err := store.MarkSent(ctx, 5, due); err != nil {
				t.Fatalf("MarkSent call %d: %v", i+1, err)
			}
		}
		got, err := store.ScanDue(ctx, base)
		if err != nil {
			t.Fatalf("ScanDue: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("sent reminder still due: %+v", got)
		}
	})

	t.Run("mark sent unknown key is a no-op", func(t *testing.T) {
		store := open(t)
		if err := store.MarkSent(context.Background(), 123, base); err != nil {
			t.Fatalf("MarkSent: %v", err)
		}
	})

	t.Run("same key overwrites", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		due := base.Add(-time.Minute)
		mustCreate(t, store, 9, due, "old")
		if err := store.MarkSent(ctx, 9, due); err != nil {
			t.Fatalf("MarkSent: %v", err)
		}
		mustCreate(t, store, 9, due, "new")

		got, err := store.ScanDue(ctx, base)
		if err != nil {
			t.Fatalf("ScanDue: %v", err)
		}
		if len(got) != 1 || got[0].Text != "new" || got[0].Sent {
			t.Fatalf("ScanDue = %+v, want single unsent 'new'", got)
		}
	})

	t.Run("sub-microsecond due time round trips", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		due := base.Add(-time.Minute).Add(1234567 * time.Nanosecond).In(time.FixedZone("UTC+2", 7200))
		mustCreate(t, store, 11, due, "precise")

		got, err := store.ScanDue(ctx, base)
		if err != nil {
			t.Fatalf("ScanDue: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("ScanDue = %+v", got)
		}
		if err := store.MarkSent(ctx, got[0].OwnerID, got[0].DueTime); err != nil {
			t.Fatalf("MarkSent: %v", err)
		}
		again, err := store.ScanDue(ctx, base)
		if err != nil {
			t.Fatalf("ScanDue: %v", err)
		}
		if len(again) != 0 {
			t.Fatalf("reminder not marked via its scanned key: %+v", again)
		}
	})

	t.Run("scenario: delay ten minutes", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		tNow := base
		mustCreate(t, store, 7, tNow.Add(10*time.Minute), "Call mom")

		upcoming, err := store.ListUpcoming(ctx, 7, tNow.Add(time.Minute))
		if err != nil || len(upcoming) != 1 {
			t.Fatalf("ListUpcoming = %+v, %v", upcoming, err)
		}
		due, err := store.ScanDue(ctx, tNow.Add(time.Minute))
		if err != nil || len(due) != 0 {
			t.Fatalf("ScanDue(T+1m) = %+v, %v", due, err)
		}
		due, err = store.ScanDue(ctx, tNow.Add(11*time.Minute))
		if err != nil || len(due) != 1 || due[0].Text != "Call mom" {
			t.Fatalf("ScanDue(T+11m) = %+v, %v", due, err)
		}
	})
}

func TestStorageErrorOnClosedStore(t *testing.T) {
	store := openSQLiteStore(t)
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	err := store.Create(context.Background(), 1, time.Now(), "x")
	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("Create error = %v, want *StorageError", err)
	}
	if se.Op != "create" {
		t.Fatalf("Op = %q, want create", se.Op)
	}

	if _, err := store.ScanDue(context.Background(), time.Now()); !errors.As(err, &se) {
		t.Fatalf("ScanDue error = %v, want *StorageError", err)
	}
	if err := store.MarkSent(context.Background(), 1, time.Now()); !errors.As(err, &se) {
		t.Fatalf("MarkSent error = %v, want *StorageError", err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	_, err := Open(context.Background(), config.StoreConfig{Driver: "dynamodb"}, zerolog.Nop())
	if !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("Open error = %v, want ErrUnknownDriver", err)
	}
}

func mustCreate(t *testing.T, store ReminderStore, owner int64, due time.Time, text string) {
	t.Helper()
	if err := store.Create(context.Background(), owner, due, text); err != nil {
		t.Fatalf("Create(%d, %v, %q): %v", owner, due, text, err)
	}
}

