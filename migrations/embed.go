// Package migrations embeds SQL migration files for database schema management.
// Each supported dialect keeps its own numbered sequence in a subdirectory.
package migrations

import "embed"

// Dialect subdirectories inside FS.
const (
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// FS holds the embedded SQL migration files.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
