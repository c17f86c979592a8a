package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hray3182/remindbot/internal/config"
	"github.com/hray3182/remindbot/internal/database"
	"github.com/hray3182/remindbot/internal/models"
	"github.com/rs/zerolog"
)

// ReminderStore persists reminders keyed by (owner, due time).
type ReminderStore interface {
	// Create stores a new unsent reminder. Past due times are accepted.
	Create(ctx context.Context, ownerID int64, dueTime time.Time, text string) error
	// ListUpcoming returns the owner's reminders due strictly after now, soonest first.
	ListUpcoming(ctx context.Context, ownerID int64, now time.Time) ([]*models.Reminder, error)
	// ScanDue returns unsent reminders of every owner due at or before now.
	ScanDue(ctx context.Context, now time.Time) ([]*models.Reminder, error)
	// MarkSent flags the reminder as delivered. Unknown or already sent keys are a no-op.
	MarkSent(ctx context.Context, ownerID int64, dueTime time.Time) error
	Close() error
}

// ErrUnknownDriver is returned by Open for an unsupported store driver.
var ErrUnknownDriver = errors.New("unknown store driver")

// StorageError reports a failed persistence operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// Open connects to the configured backend and applies its migrations.
func Open(ctx context.Context, cfg config.StoreConfig, log zerolog.Logger) (ReminderStore, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := database.New(ctx, cfg.DatabaseURI, log)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return NewReminderRepository(db), nil
	case config.DriverSQLite:
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := database.MigrateSQLite(ctx, db, log); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return NewSQLiteReminderRepository(db), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
