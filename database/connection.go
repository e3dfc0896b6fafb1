package database

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ridoystarlord/rapidgen/logger"
	"github.com/ridoystarlord/rapidgen/sqlite"
	"github.com/ridoystarlord/rapidgen/utils"
)

var (
	db     *sqlite.Database
	dbOnce sync.Once
	dbErr  error
	dbPath string
)

// ResolvePath picks the database file: the --database flag, then
// DATABASE_URL (after loading .env), then the project file's value.
func ResolvePath(flag, configured string) string {
	if flag != "" {
		return flag
	}
	utils.LoadEnv()
	if url := utils.GetDatabaseURL(); url != "" {
		return url
	}
	return configured
}

// SetPath sets the file GetDatabase opens. It has no effect once the
// database is open.
func SetPath(path string) {
	dbPath = path
}

// GetDatabase returns the process-wide database handle, opening it on first use.
func GetDatabase(ctx context.Context) (*sqlite.Database, error) {
	dbOnce.Do(func() {
		if dbPath == "" {
			dbErr = errors.New("no database configured: set database in rapidgen.yaml, DATABASE_URL, or --database")
			return
		}
		db, dbErr = Open(ctx, dbPath)
	})
	return db, dbErr
}

// Open opens a SQLite file with foreign keys enabled and statement tracing
// on the global logger.
func Open(ctx context.Context, path string) (*sqlite.Database, error) {
	l := logger.L().With().Str("database", path).Logger()
	conn, err := sqlite.Open(ctx, path, sqlite.WithLogger(l))
	if err != nil {
		return nil, fmt.Errorf("unable to open database %s: %w", path, err)
	}
	l.Debug("database opened")
	return conn, nil
}

// Close closes the process-wide handle (should be called on application shutdown)
func Close() {
	if db != nil {
		if err := db.Close(); err != nil {
			logger.Warnf("closing database: %v", err)
		}
	}
}
