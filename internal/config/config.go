// Package config loads process configuration from the environment, with an
// optional .env file for local runs.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	BotToken      string        `env:"BOT_TOKEN,required,notEmpty"`
	OwnerID       int64         `env:"OWNER_ID,required"`
	BotMode       string        `env:"BOT_MODE" envDefault:"poll"`
	HTTPAddr      string        `env:"HTTP_ADDR" envDefault:":8080"`
	WebhookSecret string        `env:"WEBHOOK_SECRET"`
	TelegramAPI   string        `env:"TELEGRAM_API_URL" envDefault:"https://api.telegram.org"`
	CardTitle     string        `env:"CARD_TITLE"`
	StoreDriver   string        `env:"STORE_DRIVER" envDefault:"memory"`
	DatabaseURL   string        `env:"DATABASE_URL"`
	SQLitePath    string        `env:"SQLITE_PATH" envDefault:"lobby.db"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string        `env:"LOG_FORMAT" envDefault:"json"`
	PendingTTL    time.Duration `env:"PENDING_TTL" envDefault:"10m"`
	SendAttempts  int           `env:"SEND_ATTEMPTS" envDefault:"3"`
	SendBackoff   time.Duration `env:"SEND_BACKOFF" envDefault:"500ms"`
	Concurrency   int           `env:"FANOUT_CONCURRENCY" envDefault:"4"`
	PollTimeout   time.Duration `env:"POLL_TIMEOUT" envDefault:"30s"`
}

// Load reads .env when present (it never overrides variables already set)
// and parses the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.BotMode {
	case "poll":
	case "webhook":
		if c.WebhookSecret == "" {
			return errors.New("BOT_MODE=webhook requires WEBHOOK_SECRET")
		}
	default:
		return fmt.Errorf("BOT_MODE %q: want poll or webhook", c.BotMode)
	}

	switch c.StoreDriver {
	case "memory", "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("STORE_DRIVER=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("STORE_DRIVER %q: want memory, postgres or sqlite", c.StoreDriver)
	}

	if c.SendAttempts < 1 {
		return fmt.Errorf("SEND_ATTEMPTS must be at least 1, got %d", c.SendAttempts)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("FANOUT_CONCURRENCY must be at least 1, got %d", c.Concurrency)
	}
	return nil
}
