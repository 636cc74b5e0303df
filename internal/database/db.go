// Package database provides database setup, models, and data access layer (Store).
package database

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/edgard/tgcollector/internal/errs"
	"github.com/edgard/tgcollector/internal/logger"
	"github.com/edgard/tgcollector/migrations"

	_ "github.com/jackc/pgx/v5/stdlib" //revive:disable:blank-imports
	_ "modernc.org/sqlite"             //revive:disable:blank-imports
)

// Driver names registered with database/sql.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

func init() {
	// sqlx does not know the modernc driver name; named queries need '?' binds.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// PoolConfig tunes the connection pool. SQLite ignores MaxOpenConns.
type PoolConfig struct {
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// DriverForDSN picks the database/sql driver for a DSN: postgres URLs use pgx,
// everything else is treated as a SQLite file path.
func DriverForDSN(dsn string) string {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DriverPostgres
	}
	return DriverSQLite
}

// Open connects to the database addressed by dsn without touching its schema.
func Open(dsn string, pool PoolConfig) (*sqlx.DB, error) {
	driver := DriverForDSN(dsn)

	connStr := dsn
	if driver == DriverSQLite {
		connStr = sqliteDSN(dsn)
	}

	db, err := sqlx.Connect(driver, connStr)
	if err != nil {
		return nil, errs.NewStorageError("failed to connect to database", err)
	}

	if driver == DriverSQLite {
		// SQLite doesn't support concurrent writes, so max open conns = 1
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
		db.SetMaxIdleConns(pool.MaxOpenConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	return db, nil
}

// NewDB applies migrations, then connects and returns a new database connection pool.
func NewDB(dsn string, pool PoolConfig, log *zap.Logger) (*sqlx.DB, error) {
	log = logger.OrNop(log).Named("database")

	if err := ApplyMigrations(dsn, log); err != nil {
		return nil, err
	}

	db, err := Open(dsn, pool)
	if err != nil {
		return nil, err
	}

	log.Info("Database connected and migrations applied successfully",
		zap.String("driver", db.DriverName()), zap.String("dsn", RedactDSN(dsn)))
	return db, nil
}

// CloseDB closes the database connection pool.
func CloseDB(db *sqlx.DB, log *zap.Logger) {
	if db == nil {
		return
	}
	log = logger.OrNop(log).Named("database")
	if err := db.Close(); err != nil {
		log.Error("Error closing database connection", zap.Error(err))
	} else {
		log.Info("Database connection closed successfully")
	}
}

// ApplyMigrations runs all pending up migrations for the dialect of dsn.
func ApplyMigrations(dsn string, log *zap.Logger) error {
	log = logger.OrNop(log)

	return withMigrator(dsn, log, func(migrator *migrate.Migrate) error {
		log.Info("Applying database migrations", zap.String("driver", DriverForDSN(dsn)))

		if err := migrator.Up(); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				log.Info("No database migrations to apply")
				return nil
			}
			return errs.NewStorageError("failed to apply migrations", err)
		}

		log.Info("Database migrations applied successfully")
		return nil
	})
}

// RollbackMigrations reverts the most recent migration step.
func RollbackMigrations(dsn string, log *zap.Logger) error {
	log = logger.OrNop(log)

	return withMigrator(dsn, log, func(migrator *migrate.Migrate) error {
		if err := migrator.Steps(-1); err != nil {
			return errs.NewStorageError("failed to roll back migration", err)
		}

		log.Info("Rolled back one database migration", zap.String("driver", DriverForDSN(dsn)))
		return nil
	})
}

// MigrationVersion reports the applied schema version and whether the last
// migration left the schema dirty. Version 0 means nothing is applied.
func MigrationVersion(dsn string) (uint, bool, error) {
	var (
		version uint
		dirty   bool
	)
	err := withMigrator(dsn, nil, func(migrator *migrate.Migrate) error {
		var err error
		version, dirty, err = migrator.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			version, dirty = 0, false
			return nil
		}
		if err != nil {
			return errs.NewStorageError("failed to read migration version", err)
		}
		return nil
	})
	return version, dirty, err
}

// withMigrator runs fn against a migrator bound to its own single-connection
// pool, which is closed together with the migrator when fn returns.
func withMigrator(dsn string, log *zap.Logger, fn func(*migrate.Migrate) error) error {
	log = logger.OrNop(log)

	db, err := Open(dsn, PoolConfig{MaxOpenConns: 1})
	if err != nil {
		return err
	}

	migrator, err := newMigrator(db)
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Warn("Error closing migration connection", zap.Error(closeErr))
		}
		return err
	}
	defer func() {
		sourceErr, dbErr := migrator.Close()
		if sourceErr != nil || dbErr != nil {
			log.Warn("Error closing migrator", zap.NamedError("source_error", sourceErr), zap.NamedError("db_error", dbErr))
		}
	}()

	return fn(migrator)
}

func newMigrator(db *sqlx.DB) (*migrate.Migrate, error) {
	dir := migrations.SQLite
	if db.DriverName() == DriverPostgres {
		dir = migrations.Postgres
	}

	sourceDriver, err := iofs.New(migrations.FS, dir)
	if err != nil {
		return nil, errs.NewStorageError("failed to create embed source driver instance", err)
	}

	dbDriver, driverName, err := migrationDriver(db)
	if err != nil {
		return nil, errs.NewStorageError("failed to create migration database driver", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", sourceDriver, driverName, dbDriver)
	if err != nil {
		return nil, errs.NewStorageError("failed to create migrate instance", err)
	}
	return migrator, nil
}

// migrationDriver wraps db for golang-migrate. Closing the driver closes db.
func migrationDriver(db *sqlx.DB) (database.Driver, string, error) {
	if db.DriverName() == DriverPostgres {
		drv, err := migratepgx.WithInstance(db.DB, &migratepgx.Config{})
		return drv, "pgx5", err
	}
	drv, err := migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	return drv, "sqlite", err
}

// sqliteDSN adds the pragmas the store relies on unless the caller set them.
func sqliteDSN(path string) string {
	if strings.Contains(path, "_pragma=") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// RedactDSN hides the password of a postgres URL for logging.
func RedactDSN(dsn string) string {
	if DriverForDSN(dsn) != DriverPostgres {
		return dsn
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "postgres://invalid"
	}
	return u.Redacted()
}
