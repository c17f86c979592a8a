package bot

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hray3182/remindbot/internal/bot/handlers"
	"github.com/rs/zerolog"
)

// MessageHandler processes one inbound message.
type MessageHandler interface {
	Handle(ctx context.Context, env handlers.Envelope)
}

// Updater is the long-polling part of the Telegram client.
type Updater interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Bot struct {
	api     Updater
	handler MessageHandler
	log     zerolog.Logger
	wg      sync.WaitGroup
}

func New(api Updater, handler MessageHandler, log zerolog.Logger) *Bot {
	return &Bot{api: api, handler: handler, log: log}
}

// HandleUpdate routes a single update. Updates without a message are ignored.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	env, ok := handlers.FromUpdate(update)
	if !ok {
		b.log.Debug().Int("update_id", update.UpdateID).Msg("ignoring update without message")
		return
	}
	b.handler.Handle(ctx, env)
}

// Start long-polls for updates until ctx is done, then waits for in-flight
// handlers to finish.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.wg.Wait()
	defer b.api.StopReceivingUpdates()

	b.log.Info().Msg("polling for updates")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.HandleUpdate(context.WithoutCancel(ctx), update)
			}()
		}
	}
}
