package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	HTTPAddr             string   `koanf:"http_addr"`
	DatabaseURL          string   `koanf:"database_url"`
	CORSOrigins          string   `koanf:"cors_allowed_origins"`
	CORSAllowedOrigins   []string `koanf:"-"`
	CORSAllowCredentials bool     `koanf:"cors_allow_credentials"`

	JWTSecret string `koanf:"jwt_secret"`

	Timezone           string        `koanf:"timezone"`
	WorkerID           string        `koanf:"worker_id"`
	WorkerPollInterval time.Duration `koanf:"worker_poll_interval"`
	RecoveryDelay      time.Duration `koanf:"recovery_delay"`
	ReconcileCron      string        `koanf:"reconcile_cron"`

	NotificationsEnabled bool   `koanf:"notifications_enabled"`
	TelegramBotToken     string `koanf:"telegram_bot_token"`
	TelegramChatID       string `koanf:"telegram_chat_id"`

	MCPUserID uint64 `koanf:"mcp_user_id"`

	location *time.Location
}

func defaults() map[string]any {
	return map[string]any{
		"http_addr":              ":8080",
		"cors_allow_credentials": false,
		"timezone":               "Local",
		"worker_poll_interval":   "800ms",
		"recovery_delay":         "5s",
		"reconcile_cron":         "0 */6 * * *",
		"notifications_enabled":  true,
		"mcp_user_id":            1,
	}
}

// Load reads .env, then defaults, then the YAML file named by path (or
// RECUERDITO_CONFIG), then the environment. Later sources win.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = strings.TrimSpace(os.Getenv("RECUERDITO_CONFIG"))
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	known := defaults()
	for _, key := range []string{"database_url", "cors_allowed_origins", "jwt_secret", "worker_id", "telegram_bot_token", "telegram_chat_id"} {
		known[key] = nil
	}
	if err := k.Load(env.Provider("", ".", func(s string) string {
		key := strings.ToLower(s)
		if _, ok := known[key]; !ok {
			return ""
		}
		return key
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.finish(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) finish() error {
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.JWTSecret = strings.TrimSpace(c.JWTSecret)

	c.CORSAllowedOrigins = nil
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			c.CORSAllowedOrigins = append(c.CORSAllowedOrigins, o)
		}
	}

	if c.WorkerID == "" {
		c.WorkerID = "worker-" + uuid.NewString()[:8]
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	c.location = loc

	if c.WorkerPollInterval <= 0 {
		return errors.New("worker_poll_interval must be positive")
	}
	if c.RecoveryDelay < 0 {
		return errors.New("recovery_delay must not be negative")
	}
	return nil
}

// Location is the zone reminders' dates and times are read in.
func (c Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// RequireDatabase fails when no DATABASE_URL is configured.
func (c Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return errors.New("missing env: DATABASE_URL")
	}
	return nil
}

// RequireServe checks what the HTTP server needs on top of the database.
func (c Config) RequireServe() error {
	if err := c.RequireDatabase(); err != nil {
		return err
	}
	if c.JWTSecret == "" {
		return errors.New("missing env: JWT_SECRET")
	}
	return nil
}
