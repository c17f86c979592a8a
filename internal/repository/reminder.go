package repository

import (
	"context"
	"time"

	"github.com/hray3182/remindbot/internal/database"
	"github.com/hray3182/remindbot/internal/models"
	"github.com/jackc/pgx/v5"
)

var _ ReminderStore = (*ReminderRepository)(nil)

// ReminderRepository is the Postgres reminder store.
type ReminderRepository struct {
	db *database.DB
}

func NewReminderRepository(db *database.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

func (r *ReminderRepository) Create(ctx context.Context, ownerID int64, dueTime time.Time, text string) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO reminders (owner_id, due_time, text, sent)
		 VALUES ($1, $2, $3, false)
		 ON CONFLICT (owner_id, due_time) DO UPDATE SET text = EXCLUDED.text, sent = false`,
		ownerID, models.NormalizeDueTime(dueTime), text,
	)
	return storageErr("create", err)
}

func (r *ReminderRepository) ListUpcoming(ctx context.Context, ownerID int64, now time.Time) ([]*models.Reminder, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT owner_id, due_time, text, sent, created_at
		 FROM reminders WHERE owner_id = $1 AND due_time > $2
		 ORDER BY due_time ASC`,
		ownerID, now.UTC(),
	)
	if err != nil {
		return nil, storageErr("list upcoming", err)
	}
	reminders, err := scanReminders(rows)
	return reminders, storageErr("list upcoming", err)
}

func (r *ReminderRepository) ScanDue(ctx context.Context, now time.Time) ([]*models.Reminder, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT owner_id, due_time, text, sent, created_at
		 FROM reminders WHERE sent = false AND due_time <= $1
		 ORDER BY due_time ASC`,
		now.UTC(),
	)
	if err != nil {
		return nil, storageErr("scan due", err)
	}
	reminders, err := scanReminders(rows)
	return reminders, storageErr("scan due", err)
}

func (r *ReminderRepository) MarkSent(ctx context.Context, ownerID int64, dueTime time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE reminders SET sent = true WHERE owner_id = $1 AND due_time = $2`,
		ownerID, models.NormalizeDueTime(dueTime),
	)
	return storageErr("mark sent", err)
}

func (r *ReminderRepository) Close() error {
	r.db.Close()
	return nil
}

func scanReminders(rows pgx.Rows) ([]*models.Reminder, error) {
	defer rows.Close()

	reminders := []*models.Reminder{}
	for rows.Next() {
		reminder := &models.Reminder{}
		if err := rows.Scan(&reminder.OwnerID, &reminder.DueTime, &reminder.Text, &reminder.Sent, &reminder.CreatedAt); err != nil {
			return nil, err
		}
		reminder.DueTime = reminder.DueTime.UTC()
		reminders = append(reminders, reminder)
	}
	return reminders, rows.Err()
}
