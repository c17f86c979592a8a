package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hray3182/remindbot/internal/models"
	"github.com/hray3182/remindbot/internal/notifier"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DueStore is the part of the reminder store a sweep needs.
type DueStore interface {
	ScanDue(ctx context.Context, now time.Time) ([]*models.Reminder, error)
	MarkSent(ctx context.Context, ownerID int64, dueTime time.Time) error
}

// Result summarizes one sweep.
type Result struct {
	RunID        string
	Due          int
	Delivered    int
	NotifyFailed int
	MarkFailed   int
	ScanErr      error
	Took         time.Duration
}

// Dispatcher delivers due reminders and marks them sent.
//
// Overlapping sweeps are not coordinated: two sweeps may both deliver the
// same reminder before either marks it. Delivery is at-least-once.
type Dispatcher struct {
	store       DueStore
	notifier    notifier.Notifier
	concurrency int
	now         func() time.Time
	log         zerolog.Logger
}

func NewDispatcher(store DueStore, n notifier.Notifier, concurrency int, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		store:       store,
		notifier:    n,
		concurrency: concurrency,
		now:         time.Now,
		log:         log,
	}
}

// Sweep runs one delivery pass. Failures are logged and counted per
// reminder; they never stop the rest of the batch.
func (d *Dispatcher) Sweep(ctx context.Context) Result {
	start := d.now()
	res := Result{RunID: uuid.NewString()}
	log := d.log.With().Str("run_id", res.RunID).Logger()

	due, err := d.store.ScanDue(ctx, start)
	if err != nil {
		log.Error().Err(err).Msg("failed to scan due reminders")
		res.ScanErr = err
		res.Took = time.Since(start)
		return res
	}
	res.Due = len(due)
	if len(due) == 0 {
		res.Took = time.Since(start)
		return res
	}

	var delivered, notifyFailed, markFailed atomic.Int64
	var g errgroup.Group
	if d.concurrency > 0 {
		g.SetLimit(d.concurrency)
	}
	for _, reminder := range due {
		g.Go(func() error {
			rlog := log.With().Int64("owner_id", reminder.OwnerID).Time("due_time", reminder.DueTime).Logger()
			defer func() {
				if r := recover(); r != nil {
					notifyFailed.Add(1)
					rlog.Error().Interface("panic", r).Msg("reminder delivery panicked")
				}
			}()

			if err := d.notifier.Send(ctx, reminder.OwnerID, reminder.Text); err != nil {
				notifyFailed.Add(1)
				rlog.Warn().Err(err).Msg("failed to send reminder")
				return nil
			}
			if err := d.store.MarkSent(ctx, reminder.OwnerID, reminder.DueTime); err != nil {
				markFailed.Add(1)
				rlog.Error().Err(err).Msg("reminder sent but not marked, it will be sent again")
				return nil
			}
			delivered.Add(1)
			rlog.Info().Msg("sent reminder")
			return nil
		})
	}
	_ = g.Wait()

	res.Delivered = int(delivered.Load())
	res.NotifyFailed = int(notifyFailed.Load())
	res.MarkFailed = int(markFailed.Load())
	res.Took = time.Since(start)

	log.Info().
		Int("due", res.Due).
		Int("delivered", res.Delivered).
		Int("notify_failed", res.NotifyFailed).
		Int("mark_failed", res.MarkFailed).
		Dur("took", res.Took).
		Msg("sweep finished")
	return res
}
