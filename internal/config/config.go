// Package config manages collector configuration from environment variables,
// an optional .env file, an optional config file and default values.
package config

import "time"

// Transport names accepted by Config.Transport.
const (
	TransportMTProto = "mtproto"
	TransportBotAPI  = "botapi"
)

// Config defines the collector configuration. Every key can be set through the
// environment by upper-casing it and replacing dots with underscores
// (telegram.api_id -> TELEGRAM_API_ID).
type Config struct {
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Log       LogConfig       `mapstructure:"log"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// TelegramConfig holds the credentials and session location for the remote service.
type TelegramConfig struct {
	APIID       int    `mapstructure:"api_id"       validate:"gte=0"`
	APIHash     string `mapstructure:"api_hash"`
	PhoneNumber string `mapstructure:"phone_number"`
	SessionPath string `mapstructure:"session_path" validate:"required"`

	// BotToken selects the Bot API transport instead of a user account.
	BotToken string `mapstructure:"bot_token"`

	// LoginCode and Password answer the login prompts without a terminal.
	LoginCode string `mapstructure:"login_code"`
	Password  string `mapstructure:"password"`
}

// DatabaseConfig addresses the relational store. URL is either a SQLite file
// path or a postgres:// connection string.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"               validate:"required"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"    validate:"gte=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// IngestConfig tunes the polling loop.
type IngestConfig struct {
	PollTimeout time.Duration `mapstructure:"poll_timeout" validate:"min=100ms,max=5m"`
	ErrorDelay  time.Duration `mapstructure:"error_delay"  validate:"min=0,max=1m"`
	BufferSize  int           `mapstructure:"buffer_size"  validate:"gte=1"`
}

// LogConfig selects the log level and encoding.
type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// SchedulerConfig lists background maintenance tasks keyed by task name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig enables a task and gives its cron schedule (seconds field included).
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// Transport returns the transport implied by the credentials: the Bot API when
// a bot token is present, MTProto otherwise.
func (c *Config) Transport() string {
	if c.Telegram.BotToken != "" {
		return TransportBotAPI
	}
	return TransportMTProto
}

// IsTelegramConfigured reports whether enough credentials are present to ingest.
// Its absence is a supported degraded mode, not an error.
func (c *Config) IsTelegramConfigured() bool {
	if c.Telegram.BotToken != "" {
		return true
	}
	return c.Telegram.APIID != 0 &&
		c.Telegram.APIHash != "" &&
		c.Telegram.PhoneNumber != ""
}

// MissingTelegramSettings names the environment variables that are unset for the
// MTProto transport, in a stable order, for operator-facing warnings.
func (c *Config) MissingTelegramSettings() []string {
	var missing []string
	if c.Telegram.APIID == 0 {
		missing = append(missing, "TELEGRAM_API_ID")
	}
	if c.Telegram.APIHash == "" {
		missing = append(missing, "TELEGRAM_API_HASH")
	}
	if c.Telegram.PhoneNumber == "" {
		missing = append(missing, "TELEGRAM_PHONE_NUMBER")
	}
	return missing
}
