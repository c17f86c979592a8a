package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	yaml "go.yaml.in/yaml/v3"
)

type Config struct {
	Telegram TelegramConfig
	HTTP     HTTPConfig
	Store    StoreConfig
	Sweep    SweepConfig
	Notify   NotifyConfig
	Display  DisplayConfig
	Command  CommandConfig
	Redis    RedisConfig
	AI       AIConfig
	Log      LogConfig
	Server   ServerConfig
}

type TelegramConfig struct {
	Token         string
	Mode          string // "webhook" or "poll"
	WebhookSecret string
}

type HTTPConfig struct {
	Addr string
}

// StoreConfig selects and configures the reminder store backend.
type StoreConfig struct {
	Driver      string // "postgres" or "sqlite"
	DatabaseURI string
	SQLitePath  string
}

type SweepConfig struct {
	Schedule    string // cron spec, e.g. "@every 1m"
	Concurrency int    // 0 means one goroutine per due reminder
}

type NotifyConfig struct {
	RatePerSec int
	Timeout    time.Duration
}

// DisplayConfig holds the fixed offset used when rendering due times.
type DisplayConfig struct {
	UTCOffset time.Duration
}

type CommandConfig struct {
	// DefaultDelay is used when /remember has no numeric delay. Zero rejects such input.
	DefaultDelay time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	DedupTTL time.Duration
}

type AIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type LogConfig struct {
	Level  string
	Format string // "console" or "json"
}

type ServerConfig struct {
	ShutdownTimeout time.Duration
}

const (
	ModeWebhook = "webhook"
	ModePoll    = "poll"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Load reads configuration from the process environment, an optional .env
// file and an optional YAML file named by CONFIG_FILE. Environment values
// win over the YAML file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// .env file is optional in production
	}

	src := source{file: map[string]string{}}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		file, err := readYAML(path)
		if err != nil {
			return nil, err
		}
		src.file = file
	}

	cfg := &Config{
		Telegram: TelegramConfig{
			Token:         src.str("TELEGRAM_TOKEN", ""),
			Mode:          strings.ToLower(src.str("BOT_MODE", ModeWebhook)),
			WebhookSecret: src.str("WEBHOOK_SECRET", ""),
		},
		HTTP: HTTPConfig{
			Addr: src.str("HTTP_ADDR", ":8080"),
		},
		Store: StoreConfig{
			Driver:      strings.ToLower(src.str("STORE_DRIVER", DriverPostgres)),
			DatabaseURI: src.str("DATABASE_URI", ""),
			SQLitePath:  src.str("SQLITE_PATH", "data/reminders.db"),
		},
		Sweep: SweepConfig{
			Schedule: src.str("SWEEP_SCHEDULE", "@every 1m"),
		},
		AI: AIConfig{
			APIKey:  src.str("AI_API_KEY", ""),
			BaseURL: src.str("AI_BASE_URL", "https://openrouter.ai/api/v1"),
			Model:   src.str("AI_MODEL", "openai/gpt-4o-mini"),
		},
		Redis: RedisConfig{
			Addr:     src.str("REDIS_ADDR", ""),
			Password: src.str("REDIS_PASSWORD", ""),
		},
		Log: LogConfig{
			Level:  strings.ToLower(src.str("LOG_LEVEL", "info")),
			Format: strings.ToLower(src.str("LOG_FORMAT", "console")),
		},
	}

	var err error
	if cfg.Sweep.Concurrency, err = src.integer("SWEEP_CONCURRENCY", 8); err != nil {
		return nil, err
	}
	if cfg.Notify.RatePerSec, err = src.integer("NOTIFY_RATE_PER_SEC", 25); err != nil {
		return nil, err
	}
	if cfg.Redis.DB, err = src.integer("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.Notify.Timeout, err = src.duration("NOTIFY_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.Display.UTCOffset, err = src.duration("DISPLAY_UTC_OFFSET", 2*time.Hour); err != nil {
		return nil, err
	}
	if cfg.Command.DefaultDelay, err = src.duration("DEFAULT_DELAY", 0); err != nil {
		return nil, err
	}
	if cfg.Redis.DedupTTL, err = src.duration("DEDUP_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.Server.ShutdownTimeout, err = src.duration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	if cfg.Sweep.Concurrency < 0 {
		cfg.Sweep.Concurrency = 0
	}
	if cfg.Notify.RatePerSec <= 0 {
		cfg.Notify.RatePerSec = 25
	}

	return cfg, nil
}

// Validate reports missing or inconsistent required settings.
func (c *Config) Validate() error {
	var errs []error
	if c.Telegram.Token == "" {
		errs = append(errs, errors.New("TELEGRAM_TOKEN is required"))
	}
	switch c.Telegram.Mode {
	case ModeWebhook, ModePoll:
	default:
		errs = append(errs, fmt.Errorf("BOT_MODE must be %q or %q, got %q", ModeWebhook, ModePoll, c.Telegram.Mode))
	}
	switch c.Store.Driver {
	case DriverPostgres:
		if c.Store.DatabaseURI == "" {
			errs = append(errs, errors.New("DATABASE_URI is required for the postgres store"))
		}
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver))
	}
	if c.Display.UTCOffset <= -24*time.Hour || c.Display.UTCOffset >= 24*time.Hour {
		errs = append(errs, fmt.Errorf("DISPLAY_UTC_OFFSET out of range: %s", c.Display.UTCOffset))
	}
	if c.Command.DefaultDelay < 0 {
		errs = append(errs, errors.New("DEFAULT_DELAY must not be negative"))
	}
	if c.Command.DefaultDelay%time.Minute != 0 {
		errs = append(errs, fmt.Errorf("DEFAULT_DELAY must be a whole number of minutes, got %s", c.Command.DefaultDelay))
	}
	if c.Redis.DedupTTL <= 0 {
		errs = append(errs, errors.New("DEDUP_TTL must be positive"))
	}
	return errors.Join(errs...)
}

type source struct {
	file map[string]string
}

func (s source) str(key, def string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if value, ok := s.file[key]; ok && value != "" {
		return value
	}
	return def
}

func (s source) integer(key string, def int) (int, error) {
	raw := s.str(key, "")
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func (s source) duration(key string, def time.Duration) (time.Duration, error) {
	raw := s.str(key, "")
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

// readYAML loads a flat KEY: value YAML file. Keys use the same names as
// the environment variables.
func readYAML(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		out[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return out, nil
}
