package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hray3182/remindbot/internal/models"
)

var _ ReminderStore = (*SQLiteReminderRepository)(nil)

// SQLiteReminderRepository stores reminders in SQLite. Times are kept as
// unix microseconds so the (owner_id, due_time) key compares exactly.
type SQLiteReminderRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteReminderRepository(db *sql.DB) *SQLiteReminderRepository {
	return &SQLiteReminderRepository{db: db, now: time.Now}
}

func (r *SQLiteReminderRepository) Create(ctx context.Context, ownerID int64, dueTime time.Time, text string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reminders (owner_id, due_time, text, sent, created_at)
		 VALUES (?, ?, ?, 0, ?)
		 ON CONFLICT (owner_id, due_time) DO UPDATE SET text = excluded.text, sent = 0`,
		ownerID, models.NormalizeDueTime(dueTime).UnixMicro(), text, r.now().UnixMicro(),
	)
	return storageErr("create", err)
}

func (r *SQLiteReminderRepository) ListUpcoming(ctx context.Context, ownerID int64, now time.Time) ([]*models.Reminder, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT owner_id, due_time, text, sent, created_at
		 FROM reminders WHERE owner_id = ? AND due_time > ?
		 ORDER BY due_time ASC`,
		ownerID, now.UnixMicro(),
	)
	if err != nil {
		return nil, storageErr("list upcoming", err)
	}
	reminders, err := scanSQLiteReminders(rows)
	return reminders, storageErr("list upcoming", err)
}

func (r *SQLiteReminderRepository) ScanDue(ctx context.Context, now time.Time) ([]*models.Reminder, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT owner_id, due_time, text, sent, created_at
		 FROM reminders WHERE sent = 0 AND due_time <= ?
		 ORDER BY due_time ASC`,
		now.UnixMicro(),
	)
	if err != nil {
		return nil, storageErr("scan due", err)
	}
	reminders, err := scanSQLiteReminders(rows)
	return reminders, storageErr("scan due", err)
}

func (r *SQLiteReminderRepository) MarkSent(ctx context.Context, ownerID int64, dueTime time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE reminders SET sent = 1 WHERE owner_id = ? AND due_time = ?`,
		ownerID, models.NormalizeDueTime(dueTime).UnixMicro(),
	)
	return storageErr("mark sent", err)
}

func (r *SQLiteReminderRepository) Close() error {
	return r.db.Close()
}

func scanSQLiteReminders(rows *sql.Rows) ([]*models.Reminder, error) {
	defer rows.Close()

	reminders := []*models.Reminder{}
	for rows.Next() {
		var (
			reminder           models.Reminder
			dueMicro, createdMicro int64
			sent               int
		)
		if err := rows.Scan(&reminder.OwnerID, &dueMicro, &reminder.Text, &sent, &createdMicro); err != nil {
			return nil, err
		}
		reminder.DueTime = time.UnixMicro(dueMicro).UTC()
		reminder.CreatedAt = time.UnixMicro(createdMicro).UTC()
		reminder.Sent = sent != 0
		reminders = append(reminders, &reminder)
	}
	return reminders, rows.Err()
}
