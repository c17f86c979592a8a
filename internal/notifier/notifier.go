// Package notifier delivers reminder text to Telegram chats.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Notifier sends a message to a recipient.
type Notifier interface {
	Send(ctx context.Context, recipientID int64, text string) error
}

// Sender is the part of tgbotapi.BotAPI used for delivery.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// NotificationError reports a failed delivery to one recipient.
type NotificationError struct {
	RecipientID int64
	Code        int // Telegram error code, 0 for transport errors
	Err         error
}

func (e *NotificationError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("notify %d: telegram %d: %v", e.RecipientID, e.Code, e.Err)
	}
	return fmt.Sprintf("notify %d: %v", e.RecipientID, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

const emptyText = "⏰ (empty reminder)"

type Options struct {
	// RatePerSec caps outgoing messages per second across all chats.
	RatePerSec int
}

// Telegram implements Notifier on the Bot API.
type Telegram struct {
	api     Sender
	limiter *rate.Limiter
	log     zerolog.Logger
}

var _ Notifier = (*Telegram)(nil)

func NewTelegram(api Sender, opts Options, log zerolog.Logger) *Telegram {
	rps := opts.RatePerSec
	if rps <= 0 {
		rps = 25
	}
	return &Telegram{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		log:     log,
	}
}

func (t *Telegram) Send(ctx context.Context, recipientID int64, text string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return &NotificationError{RecipientID: recipientID, Err: err}
	}
	if text == "" {
		text = emptyText
	}

	msg := tgbotapi.NewMessage(recipientID, text)
	if _, err := t.api.Send(msg); err != nil {
		nerr := &NotificationError{RecipientID: recipientID, Err: err}
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) {
			nerr.Code = apiErr.Code
		}
		return nerr
	}

	t.log.Debug().Int64("recipient_id", recipientID).Msg("message sent")
	return nil
}

// NewBotAPI creates a Bot API client whose HTTP calls time out after timeout.
// An empty endpoint means the public Telegram endpoint.
func NewBotAPI(token, endpoint string, timeout time.Duration) (*tgbotapi.BotAPI, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return api, nil
}
