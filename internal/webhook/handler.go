// Package webhook exposes the HTTP trigger surface: Telegram updates,
// timer-style sweeps and scheduler control.
package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hray3182/remindbot/internal/scheduler"
	"github.com/rs/zerolog"
)

// SecretHeader carries the secret configured with setWebhook.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

const maxUpdateBytes = 1 << 20

// UpdateHandler processes one decoded Telegram update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
}

// SchedulerController abstracts scheduler operations for handlers.
type SchedulerController interface {
	Start(ctx context.Context) error
	Stop() error
	IsRunning() bool
}

type Handler struct {
	updates UpdateHandler
	sweeper scheduler.Sweeper
	control SchedulerController
	secret  string
	log     zerolog.Logger
}

// NewHandler builds the HTTP handlers. control may be nil, which disables
// the /control routes.
func NewHandler(updates UpdateHandler, sweeper scheduler.Sweeper, control SchedulerController, secret string, log zerolog.Logger) *Handler {
	return &Handler{
		updates: updates,
		sweeper: sweeper,
		control: control,
		secret:  secret,
		log:     log,
	}
}

// Update handles POST /webhook. Telegram retries on anything but 2xx, so
// every outcome is acknowledged with 200.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	defer writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})

	if h.secret != "" {
		got := r.Header.Get(SecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			h.log.Warn().Str("remote_addr", r.RemoteAddr).Msg("webhook secret mismatch, update dropped")
			return
		}
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBytes)).Decode(&update); err != nil {
		h.log.Warn().Err(err).Msg("failed to decode update")
		return
	}

	h.updates.HandleUpdate(context.WithoutCancel(r.Context()), update)
}

// Sweep handles POST /sweep by running one delivery pass to completion.
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	res := h.sweeper.Sweep(context.WithoutCancel(r.Context()))
	h.log.Info().
		Str("run_id", res.RunID).
		Int("due", res.Due).
		Int("delivered", res.Delivered).
		Msg("sweep requested over http")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Start triggers the scheduler loop.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	if err := h.control.Start(context.WithoutCancel(r.Context())); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, scheduler.ErrAlreadyRunning) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

// Stop halts the scheduler loop.
func (h *Handler) Stop(w http.ResponseWriter, r *http.Request) {
	if err := h.control.Stop(); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, scheduler.ErrNotRunning) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"status": "ok"}
	if h.control != nil {
		body["scheduler_running"] = h.control.IsRunning()
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
