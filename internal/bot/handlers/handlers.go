package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hray3182/remindbot/internal/command"
	"github.com/hray3182/remindbot/internal/dedup"
	"github.com/hray3182/remindbot/internal/format"
	"github.com/hray3182/remindbot/internal/models"
	"github.com/hray3182/remindbot/internal/notifier"
	"github.com/rs/zerolog"
)

// ReminderStore is the part of the store the handlers use.
type ReminderStore interface {
	Create(ctx context.Context, ownerID int64, dueTime time.Time, text string) error
	ListUpcoming(ctx context.Context, ownerID int64, now time.Time) ([]*models.Reminder, error)
}

// Trigger asks the scheduler for an immediate sweep.
type Trigger interface {
	Notify()
}

// ReminderExtractor reads a reminder out of free-form text.
type ReminderExtractor interface {
	ExtractReminder(ctx context.Context, text string) (command.Remember, bool, error)
}

// Envelope is one inbound chat message.
type Envelope struct {
	UpdateID  int
	OwnerID   int64
	FirstName string
	Text      string
}

// FromUpdate extracts the envelope of a text message update.
func FromUpdate(update tgbotapi.Update) (Envelope, bool) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return Envelope{}, false
	}
	env := Envelope{
		UpdateID:  update.UpdateID,
		OwnerID:   msg.Chat.ID,
		FirstName: msg.Chat.FirstName,
		Text:      msg.Text,
	}
	if env.FirstName == "" && msg.From != nil {
		env.FirstName = msg.From.FirstName
	}
	return env, true
}

type Handlers struct {
	api       notifier.Sender
	store     ReminderStore
	parser    command.Parser
	formatter *format.Formatter
	trigger   Trigger
	ai        ReminderExtractor
	dedup     dedup.Deduper
	now       func() time.Time
	log       zerolog.Logger
}

// Options holds the optional collaborators. Nil fields disable the feature.
type Options struct {
	Trigger Trigger
	AI      ReminderExtractor
	Dedup   dedup.Deduper
}

func New(api notifier.Sender, store ReminderStore, parser command.Parser, formatter *format.Formatter, opts Options, log zerolog.Logger) *Handlers {
	return &Handlers{
		api:       api,
		store:     store,
		parser:    parser,
		formatter: formatter,
		trigger:   opts.Trigger,
		ai:        opts.AI,
		dedup:     opts.Dedup,
		now:       time.Now,
		log:       log,
	}
}

const (
	msgSaved   = "Reminder saved."
	msgFailure = "Sorry, something went wrong. Please try again later."
	msgHelp    = `I can remind you of things.

/remember <minutes> <text> - remind me after the given number of minutes
/recall - list your upcoming reminders
/help - show this message`
)

// Handle processes one message. It never fails: problems are logged and,
// where possible, reported to the user.
func (h *Handlers) Handle(ctx context.Context, env Envelope) {
	log := h.log.With().Int64("owner_id", env.OwnerID).Int("update_id", env.UpdateID).Logger()

	if h.dedup != nil && env.UpdateID != 0 {
		seen, err := h.dedup.Seen(ctx, strconv.Itoa(env.UpdateID))
		if err != nil {
			log.Warn().Err(err).Msg("dedup check failed, processing anyway")
		} else if seen {
			log.Debug().Msg("duplicate update ignored")
			return
		}
	}

	cmd, err := h.parser.Parse(env.Text)
	if err != nil {
		var verr *command.ValidationError
		if errors.As(err, &verr) {
			log.Info().Str("reason", verr.Reason).Msg("invalid command")
			h.sendMessage(env.OwnerID, fmt.Sprintf("Sorry, I couldn't read that: %s.\n\n%s", verr.Reason, command.RememberUsage))
			return
		}
		log.Error().Err(err).Msg("failed to parse message")
		h.sendMessage(env.OwnerID, msgFailure)
		return
	}

	switch c := cmd.(type) {
	case command.Start:
		h.sendMessage(env.OwnerID, fmt.Sprintf("Nice to meet you, %s!", displayName(env.FirstName)))
	case command.Help:
		h.sendFormatted(env.OwnerID, format.BoldFirstLine(msgHelp))
	case command.Remember:
		h.handleRemember(ctx, env, c, log)
	case command.Recall:
		h.handleRecall(ctx, env, log)
	case command.Unknown:
		h.handleUnknown(ctx, env, log)
	}
}

func (h *Handlers) handleUnknown(ctx context.Context, env Envelope, log zerolog.Logger) {
	if h.ai != nil && env.Text != "" {
		remember, ok, err := h.ai.ExtractReminder(ctx, env.Text)
		if err != nil {
			log.Warn().Err(err).Msg("natural language parse failed")
		} else if ok {
			h.handleRemember(ctx, env, remember, log)
			return
		}
	}
	h.sendMessage(env.OwnerID, fmt.Sprintf("Very interesting, %s", displayName(env.FirstName)))
}

func (h *Handlers) sendMessage(chatID int64, text string) {
	h.sendFormatted(chatID, format.ParseResult{Text: text})
}

func (h *Handlers) sendFormatted(chatID int64, parsed format.ParseResult) {
	msg := tgbotapi.NewMessage(chatID, parsed.Text)
	msg.Entities = parsed.Entities
	if _, err := h.api.Send(msg); err != nil {
		h.log.Warn().Err(err).Int64("owner_id", chatID).Msg("failed to send reply")
	}
}

func displayName(firstName string) string {
	if firstName == "" {
		return "there"
	}
	return firstName
}
