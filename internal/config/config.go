package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds everything the server needs at startup
type Config struct {
	// Mode selects the logger preset: "dev" or "prod"
	Mode string `env:"APP_MODE" envDefault:"dev"`
	// Address the HTTP server listens on
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	// Allowed CORS origins
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173"`

	// Database driver: "sqlite3" or "postgres"
	DBType string `env:"DB_TYPE" envDefault:"sqlite3"`
	// DSN for postgres, or file path for sqlite
	DBDSN string `env:"DB_DSN" envDefault:"data/hablo.db"`

	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"72h"`

	// Optional Redis address for the logout denylist
	RedisAddr string `env:"REDIS_ADDR"`

	// Optional Telegram token for streak reminders
	TelegramToken string `env:"TELEGRAM_BOT_TOKEN"`

	// Enables server-side transcription through Google Cloud Speech
	SpeechEnabled         bool   `env:"SPEECH_ENABLED" envDefault:"false"`
	SpeechCredentialsFile string `env:"GOOGLE_APPLICATION_CREDENTIALS"`

	DictionaryURL string `env:"DICTIONARY_API_URL" envDefault:"https://api.dictionaryapi.dev/api/v2/entries/es"`

	Scheduler SchedulerConfig
}

// SchedulerConfig controls the background jobs
type SchedulerConfig struct {
	Enabled bool `env:"ENABLE_SCHEDULER" envDefault:"true"`
	// Hours (0-23) between which reminders may be sent
	NotificationStartHour int `env:"NOTIFICATION_START_HOUR" envDefault:"8"`
	NotificationEndHour   int `env:"NOTIFICATION_END_HOUR" envDefault:"22"`
	// Sessions idle for longer than this are dropped
	SessionIdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"30m"`
	// Time of day (HH:MM, UTC) when stale streaks are reset
	StreakSweepAt string `env:"STREAK_SWEEP_AT" envDefault:"00:05"`
}

// Load reads an optional .env file and then binds the environment into Config
func Load() (*Config, error) {
	cfg, err := parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadStorage is Load for commands that only touch the database
func LoadStorage() (*Config, error) {
	cfg, err := parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.validateStorage(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parse() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

func (c *Config) validateStorage() error {
	switch c.DBType {
	case "sqlite3", "postgres":
		return nil
	default:
		return fmt.Errorf("unsupported DB_TYPE %q", c.DBType)
	}
}

// Validate checks values env tags cannot express
func (c *Config) Validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is not set")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	s := c.Scheduler
	if s.NotificationStartHour < 0 || s.NotificationStartHour > 23 ||
		s.NotificationEndHour < 0 || s.NotificationEndHour > 23 {
		return fmt.Errorf("notification hours must be within 0-23")
	}
	return nil
}
