package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/hray3182/remindbot/internal/ai"
	"github.com/hray3182/remindbot/internal/bot"
	"github.com/hray3182/remindbot/internal/bot/handlers"
	"github.com/hray3182/remindbot/internal/command"
	"github.com/hray3182/remindbot/internal/config"
	"github.com/hray3182/remindbot/internal/dedup"
	"github.com/hray3182/remindbot/internal/format"
	"github.com/hray3182/remindbot/internal/logging"
	"github.com/hray3182/remindbot/internal/notifier"
	"github.com/hray3182/remindbot/internal/repository"
	"github.com/hray3182/remindbot/internal/scheduler"
	"github.com/hray3182/remindbot/internal/webhook"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Long polling holds a getUpdates request open for up to 60s.
const pollClientTimeout = 75 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logging.New("info", "console")
		l.Fatal().Err(err).Msg("failed to load config")
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		go watchLogLevel(ctx, path, log)
	}

	store, err := repository.Open(ctx, cfg.Store, logging.Component(log, "store"))
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open reminder store")
	}
	defer store.Close()
	log.Info().Str("driver", cfg.Store.Driver).Msg("reminder store ready")

	tgAPI, err := notifier.NewBotAPI(cfg.Telegram.Token, "", cfg.Notify.Timeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Telegram API")
	}
	log.Info().Str("account", tgAPI.Self.UserName).Msg("authorized on Telegram")

	sender := notifier.NewTelegram(tgAPI, notifier.Options{RatePerSec: cfg.Notify.RatePerSec}, logging.Component(log, "notifier"))
	dispatcher := scheduler.NewDispatcher(store, sender, cfg.Sweep.Concurrency, logging.Component(log, "dispatcher"))

	sched, err := scheduler.New(dispatcher, cfg.Sweep.Schedule, logging.Component(log, "scheduler"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create scheduler")
	}
	if err := sched.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer func() {
		if err := sched.Stop(); err != nil && !errors.Is(err, scheduler.ErrNotRunning) {
			log.Error().Err(err).Msg("failed to stop scheduler")
		}
	}()

	opts := handlers.Options{
		Trigger: sched,
		Dedup:   newDeduper(ctx, cfg.Redis, log),
	}
	if cfg.AI.APIKey != "" {
		opts.AI = ai.New(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model)
		log.Info().Str("model", cfg.AI.Model).Msg("natural language reminders enabled")
	} else {
		log.Info().Msg("AI client not configured, natural language reminders disabled")
	}

	h := handlers.New(
		tgAPI,
		store,
		command.Parser{DefaultDelay: cfg.Command.DefaultDelay},
		format.NewFormatter(cfg.Display.UTCOffset),
		opts,
		logging.Component(log, "handlers"),
	)

	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Warn().Err(err).Msg("failed to notify systemd")
	}
	defer daemon.SdNotify(false, daemon.SdNotifyStopping)

	switch cfg.Telegram.Mode {
	case config.ModePoll:
		pollAPI, err := notifier.NewBotAPI(cfg.Telegram.Token, "", pollClientTimeout)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create polling client")
		}
		b := bot.New(pollAPI, h, logging.Component(log, "bot"))
		if err := b.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("bot stopped")
		}
	default:
		b := bot.New(tgAPI, h, logging.Component(log, "bot"))
		serveWebhook(ctx, cfg, webhook.NewHandler(b, dispatcher, sched, cfg.Telegram.WebhookSecret, logging.Component(log, "http")), log)
	}

	log.Info().Msg("shutting down")
}

func serveWebhook(ctx context.Context, cfg *config.Config, h *webhook.Handler, log zerolog.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           webhook.NewRouter(h, logging.Component(log, "http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("listening for webhook updates")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// watchLogLevel applies LOG_LEVEL changes made to the config file. Other
// settings need a restart.
func watchLogLevel(ctx context.Context, path string, log zerolog.Logger) {
	err := config.Watch(ctx, path,
		func(c *config.Config) {
			logging.SetLevel(c.Log.Level)
			log.Info().Str("level", c.Log.Level).Msg("config reloaded")
		},
		func(err error) {
			log.Warn().Err(err).Msg("config reload failed")
		},
	)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("config watch disabled")
	}
}

func newDeduper(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) dedup.Deduper {
	if cfg.Addr == "" {
		return dedup.NewMemory(cfg.DedupTTL)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Addr).Msg("redis unavailable, using in-memory update dedup")
		_ = client.Close()
		return dedup.NewMemory(cfg.DedupTTL)
	}
	log.Info().Str("addr", cfg.Addr).Msg("redis update dedup enabled")
	return dedup.NewRedis(client, cfg.DedupTTL)
}
