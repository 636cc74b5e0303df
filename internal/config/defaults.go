package config

import "time"

// Default values for configuration
const (
	// Log defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	// Telegram defaults
	DefaultSessionPath = "session.session"

	// Database defaults
	DefaultDatabaseURL       = "collector.db"
	DefaultDBMaxOpenConns    = 10
	DefaultDBConnMaxLifetime = time.Hour

	// Ingest defaults
	DefaultPollTimeout = 10 * time.Second
	DefaultErrorDelay  = time.Second
	DefaultBufferSize  = 256

	// Scheduler defaults
	TaskSQLMaintenance           = "sql_maintenance"
	TaskIngestStats              = "ingest_stats"
	DefaultSQLMaintenanceSchedule = "0 0 4 * * *"
	DefaultIngestStatsSchedule    = "0 */5 * * * *"
)

// defaults is applied to viper before any other source is read. Every key
// that may come from the environment must appear here so AutomaticEnv sees it.
var defaults = map[string]any{
	"telegram.api_id":       0,
	"telegram.api_hash":     "",
	"telegram.phone_number": "",
	"telegram.session_path": DefaultSessionPath,
	"telegram.bot_token":    "",
	"telegram.login_code":   "",
	"telegram.password":     "",

	"database.url":               DefaultDatabaseURL,
	"database.max_open_conns":    DefaultDBMaxOpenConns,
	"database.conn_max_lifetime": DefaultDBConnMaxLifetime,

	"ingest.poll_timeout": DefaultPollTimeout,
	"ingest.error_delay":  DefaultErrorDelay,
	"ingest.buffer_size":  DefaultBufferSize,

	"log.level":  DefaultLogLevel,
	"log.format": DefaultLogFormat,

	"scheduler.tasks." + TaskSQLMaintenance + ".enabled":  true,
	"scheduler.tasks." + TaskSQLMaintenance + ".schedule": DefaultSQLMaintenanceSchedule,
	"scheduler.tasks." + TaskIngestStats + ".enabled":     true,
	"scheduler.tasks." + TaskIngestStats + ".schedule":    DefaultIngestStatsSchedule,
}
