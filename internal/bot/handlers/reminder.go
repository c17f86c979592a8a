package handlers

import (
	"context"

	"github.com/hray3182/remindbot/internal/command"
	"github.com/hray3182/remindbot/internal/format"
	"github.com/rs/zerolog"
)

func (h *Handlers) handleRemember(ctx context.Context, env Envelope, c command.Remember, log zerolog.Logger) {
	due := c.DueTime(h.now())
	if err := h.store.Create(ctx, env.OwnerID, due, c.Text); err != nil {
		log.Error().Err(err).Msg("failed to create reminder")
		h.sendMessage(env.OwnerID, msgFailure)
		return
	}

	log.Info().Time("due_time", due).Int("delay_minutes", c.DelayMinutes).Msg("reminder created")
	h.sendMessage(env.OwnerID, msgSaved)

	if c.DelayMinutes == 0 && h.trigger != nil {
		h.trigger.Notify()
	}
}

func (h *Handlers) handleRecall(ctx context.Context, env Envelope, log zerolog.Logger) {
	reminders, err := h.store.ListUpcoming(ctx, env.OwnerID, h.now())
	if err != nil {
		log.Error().Err(err).Msg("failed to list reminders")
		h.sendMessage(env.OwnerID, msgFailure)
		return
	}

	if len(reminders) == 0 {
		h.sendMessage(env.OwnerID, format.NoUpcoming)
		return
	}
	h.sendFormatted(env.OwnerID, format.BoldFirstLine(h.formatter.Upcoming(reminders)))
}
