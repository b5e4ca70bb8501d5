package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	// msPerSecond converts seconds to milliseconds.
	msPerSecond = 1000

	// connectionTimeout is the timeout for verifying database connectivity.
	connectionTimeout = 5 * time.Second

	// connMaxIdleTime is how long idle connections are kept open.
	connMaxIdleTime = 30 * time.Minute
)

// ErrNotFound is returned when the recorder database file does not exist.
// The recorder owns the file; huewatch never creates it.
var ErrNotFound = errors.New("recorder database not found")

// DB wraps a read-only sql.DB connection to the recorder database.
type DB struct {
	*sql.DB
	path string
}

// Config contains recorder database options.
// These map to the history section of config.yaml.
type Config struct {
	// Path is the filesystem path to the recorder's SQLite file.
	Path string

	// BusyTimeout is the maximum time to wait for a database lock (seconds).
	BusyTimeout int
}

// Open connects to an existing recorder database in read-only mode.
//
// The file must already exist; the recorder process creates and writes it.
// The connection is verified with a ping before being returned.
func Open(cfg Config) (*DB, error) {
	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, cfg.Path)
	}

	// mode=ro rejects writes at the driver level, so a bug here can never
	// corrupt the recorder's data.
	connStr := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=%d",
		cfg.Path,
		cfg.BusyTimeout*msPerSecond,
	)

	sqlDB, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening recorder database: %w", err)
	}

	// Readers are cheap; a small pool covers concurrent graph requests.
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	db := &DB{
		DB:   sqlDB,
		path: cfg.Path,
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		sqlDB.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("verifying recorder database connection: %w", err)
	}

	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// HealthCheck verifies the database connection is alive.
func (db *DB) HealthCheck(ctx context.Context) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("recorder database health check: %w", err)
	}
	return nil
}
