package runner

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ridoystarlord/rapidgen/logger"
	"github.com/ridoystarlord/rapidgen/sqlite"
)

const (
	upMarker   = "-- migrate:up"
	downMarker = "-- migrate:down"

	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// ErrFailedMigrations blocks Apply while a failed migration is unchanged on disk.
var ErrFailedMigrations = errors.New("failed migrations detected")

// MigrationRecord is a row of schema_migrations.
type MigrationRecord struct {
	ID            int64
	MigrationName string
	ExecutedAt    time.Time
	ExecutionTime time.Duration
	ExecutedBy    string
	Status        string
	ErrorMessage  string
	Checksum      string
}

// MigrationLog is a row of migration_logs.
type MigrationLog struct {
	ID            int64
	Timestamp     time.Time
	Level         string
	Message       string
	User          string
	Details       string
	MigrationName string
}

// Migration is a parsed migration file.
type Migration struct {
	Name     string
	Up       string
	Down     string
	Checksum string
}

// StatusReport groups migration files by state.
type StatusReport struct {
	Applied []string
	Pending []string
	Failed  []MigrationRecord
	// Modified lists applied migrations whose up script changed since they ran.
	Modified []string
}

type Runner struct {
	db   *sqlite.Database
	dir  string
	log  *logger.Logger
	now  func() time.Time
	user func() string
}

type Option func(*Runner)

func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithUser overrides the name recorded as executed_by.
func WithUser(name string) Option {
	return func(r *Runner) { r.user = func() string { return name } }
}

func WithLogger(l *logger.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// New returns a runner for the .sql files in dir.
func New(db *sqlite.Database, dir string, opts ...Option) *Runner {
	r := &Runner{
		db:   db,
		dir:  dir,
		log:  logger.L().With().Str("component", "runner").Logger(),
		now:  time.Now,
		user: getCurrentUser,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func getCurrentUser() string {
	currentUser, err := user.Current()
	if err != nil {
		return "unknown"
	}
	return currentUser.Username
}

func calculateChecksum(content string) string {
	hash := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%x", hash)
}

func (r *Runner) ensureMigrationsTable(ctx context.Context) error {
	r.log.Debug("ensuring migration tables exist")
	err := r.db.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT NOT NULL UNIQUE,
		applied_at TEXT NOT NULL,
		execution_ms INTEGER NOT NULL DEFAULT 0,
		executed_by TEXT,
		status TEXT NOT NULL DEFAULT 'success',
		error_message TEXT,
		checksum TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS migration_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		level TEXT NOT NULL,
		message TEXT NOT NULL,
		user_name TEXT,
		details TEXT,
		migration_name TEXT
	);`)
	if err != nil {
		return fmt.Errorf("failed to create migration tables: %w", err)
	}
	return nil
}

func (r *Runner) logMigrationActivity(ctx context.Context, level, message, migrationName, details string) {
	_, err := r.db.Run(ctx, sqlite.SQL(
		`INSERT INTO migration_logs (timestamp, level, message, user_name, migration_name, details) VALUES (?, ?, ?, ?, ?, ?)`,
		sqlite.FormatDate(r.now()), level, message, r.user(), migrationName, details,
	))
	if err != nil {
		r.log.Warnf("recording migration log for %s: %v", migrationName, err)
	}
}

func (r *Runner) records(ctx context.Context, q sqlite.Template) ([]MigrationRecord, error) {
	rows, err := r.db.All(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query migrations: %w", err)
	}
	out := make([]MigrationRecord, 0, len(rows))
	for _, row := range rows {
		rd := sqlite.NewRowReader(row)
		rec := MigrationRecord{
			ID:            rd.Int("id"),
			MigrationName: rd.String("filename"),
			ExecutedAt:    rd.Date("applied_at"),
			ExecutionTime: time.Duration(rd.Int("execution_ms")) * time.Millisecond,
			Status:        rd.String("status"),
			Checksum:      rd.String("checksum"),
		}
		if by := sqlite.ReadNullable(rd, "executed_by", rd.String); by != nil {
			rec.ExecutedBy = *by
		}
		if msg := sqlite.ReadNullable(rd, "error_message", rd.String); msg != nil {
			rec.ErrorMessage = *msg
		}
		if err := rd.Err(); err != nil {
			return nil, fmt.Errorf("scan migration record: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

const recordColumns = `id, filename, applied_at, execution_ms, executed_by, status, error_message, checksum`

func (r *Runner) recordsByStatus(ctx context.Context, status string) ([]MigrationRecord, error) {
	return r.records(ctx, sqlite.SQL(`SELECT `+recordColumns+` FROM schema_migrations WHERE status = ? ORDER BY id`, status))
}

func (r *Runner) getMigrationFiles() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var filenames []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			filenames = append(filenames, e.Name())
		}
	}
	sort.Strings(filenames)
	return filenames, nil
}

// ParseMigration splits a migration file into its up and down scripts.
func ParseMigration(name, content string) (Migration, error) {
	up := strings.Index(content, upMarker)
	if up == -1 {
		return Migration{}, fmt.Errorf("migration file %s does not contain a %q section", name, upMarker)
	}
	down := strings.Index(content, downMarker)
	if down == -1 {
		return Migration{}, fmt.Errorf("migration file %s does not contain a %q section", name, downMarker)
	}
	if down < up {
		return Migration{}, fmt.Errorf("migration file %s has its rollback section before the up section", name)
	}

	m := Migration{
		Name: name,
		Up:   strings.TrimSpace(content[up+len(upMarker) : down]),
		Down: strings.TrimSpace(content[down+len(downMarker):]),
	}
	m.Checksum = calculateChecksum(m.Up)
	return m, nil
}

func (r *Runner) readMigration(name string) (Migration, error) {
	content, err := os.ReadFile(filepath.Join(r.dir, name))
	if err != nil {
		return Migration{}, fmt.Errorf("read file %s: %w", name, err)
	}
	return ParseMigration(name, string(content))
}

var beginRe = regexp.MustCompile(`(?im)^\s*BEGIN\b`)

// execute runs script and, when it succeeds, record. Scripts that manage
// their own transaction, such as table rebuilds, cannot be nested in one.
func (r *Runner) execute(ctx context.Context, script string, record sqlite.Template) error {
	if beginRe.MatchString(script) {
		if err := r.executeRebuild(ctx, script); err != nil {
			return err
		}
		_, err := r.db.Run(ctx, record)
		return err
	}
	return r.db.Tx(ctx, func(tx *sqlite.Database) error {
		if strings.TrimSpace(script) != "" {
			if err := tx.Exec(ctx, script); err != nil {
				return err
			}
		}
		_, err := tx.Run(ctx, record)
		return err
	})
}

// executeRebuild runs a self-transacting script with foreign key enforcement
// off, as SQLite requires for dropping and renaming a referenced table. The
// pragma has no effect inside a transaction, so it wraps the script.
func (r *Runner) executeRebuild(ctx context.Context, script string) (err error) {
	if err := r.db.Exec(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("disable foreign keys: %w", err)
	}
	defer func() {
		if onErr := r.db.Exec(ctx, "PRAGMA foreign_keys = ON"); onErr != nil && err == nil {
			err = fmt.Errorf("enable foreign keys: %w", onErr)
		}
	}()

	if err := r.db.Exec(ctx, script); err != nil {
		// the script may have failed inside its own transaction
		_ = r.db.Exec(ctx, "ROLLBACK")
		return err
	}

	violations, err := r.db.All(ctx, sqlite.Raw("PRAGMA foreign_key_check"))
	if err != nil {
		return fmt.Errorf("foreign key check: %w", err)
	}
	if len(violations) > 0 {
		return fmt.Errorf("migration leaves %d rows violating foreign keys", len(violations))
	}
	return nil
}

func (r *Runner) applyMigration(ctx context.Context, m Migration) error {
	startTime := r.now()
	r.logMigrationActivity(ctx, "INFO", fmt.Sprintf("Starting migration: %s", m.Name), m.Name, "Migration execution started")

	record := func(status string, elapsed time.Duration, errMsg any) sqlite.Template {
		return sqlite.SQL(
			`INSERT INTO schema_migrations (filename, applied_at, execution_ms, executed_by, status, error_message, checksum) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			m.Name, sqlite.FormatDate(startTime), elapsed.Milliseconds(), r.user(), status, errMsg, m.Checksum,
		)
	}

	err := r.execute(ctx, m.Up, record(StatusSuccess, 0, nil))
	elapsed := r.now().Sub(startTime)
	if err != nil {
		r.logMigrationActivity(ctx, "ERROR", fmt.Sprintf("Migration failed: %s", m.Name), m.Name, err.Error())
		if _, insertErr := r.db.Run(ctx, record(StatusFailed, elapsed, err.Error())); insertErr != nil {
			return fmt.Errorf("recording failed migration %s: %w", m.Name, insertErr)
		}
		return fmt.Errorf("executing migration %s: %w", m.Name, err)
	}

	if _, err := r.db.Run(ctx, sqlite.SQL(`UPDATE schema_migrations SET execution_ms = ? WHERE filename = ?`, elapsed.Milliseconds(), m.Name)); err != nil {
		r.log.Warnf("recording execution time of %s: %v", m.Name, err)
	}
	r.logMigrationActivity(ctx, "SUCCESS", fmt.Sprintf("Migration completed: %s", m.Name), m.Name, fmt.Sprintf("Execution time: %v", elapsed))
	return nil
}

func (r *Runner) rollbackMigration(ctx context.Context, m Migration) error {
	r.logMigrationActivity(ctx, "INFO", fmt.Sprintf("Starting rollback: %s", m.Name), m.Name, "Rollback execution started")

	err := r.execute(ctx, m.Down, sqlite.SQL(`DELETE FROM schema_migrations WHERE filename = ?`, m.Name))
	if err != nil {
		r.logMigrationActivity(ctx, "ERROR", fmt.Sprintf("Rollback failed: %s", m.Name), m.Name, err.Error())
		return fmt.Errorf("executing rollback for %s: %w", m.Name, err)
	}

	r.logMigrationActivity(ctx, "SUCCESS", fmt.Sprintf("Rollback completed: %s", m.Name), m.Name, "")
	return nil
}

// pending returns the unapplied migrations in file order. A failed migration
// whose file was edited since it failed is pending again; an unchanged one
// is returned in blocked.
func (r *Runner) pending(ctx context.Context) (pending []Migration, blocked []MigrationRecord, err error) {
	if err := r.ensureMigrationsTable(ctx); err != nil {
		return nil, nil, err
	}
	applied, err := r.recordsByStatus(ctx, StatusSuccess)
	if err != nil {
		return nil, nil, err
	}
	failed, err := r.recordsByStatus(ctx, StatusFailed)
	if err != nil {
		return nil, nil, err
	}
	done := map[string]bool{}
	for _, rec := range applied {
		done[rec.MigrationName] = true
	}
	failedByName := map[string]MigrationRecord{}
	for _, rec := range failed {
		failedByName[rec.MigrationName] = rec
	}

	files, err := r.getMigrationFiles()
	if err != nil {
		return nil, nil, err
	}
	for _, f := range files {
		if done[f] {
			continue
		}
		m, err := r.readMigration(f)
		if err != nil {
			return nil, nil, err
		}
		if rec, ok := failedByName[f]; ok && rec.Checksum == m.Checksum {
			blocked = append(blocked, rec)
			continue
		}
		pending = append(pending, m)
	}
	return pending, blocked, nil
}

// ApplyMigrations runs every pending migration in file order and returns the
// names applied. It stops at the first failure.
func (r *Runner) ApplyMigrations(ctx context.Context) ([]string, error) {
	pending, blocked, err := r.pending(ctx)
	if err != nil {
		return nil, err
	}
	if len(blocked) > 0 {
		names := make([]string, len(blocked))
		for i, rec := range blocked {
			names[i] = fmt.Sprintf("%s: %s", rec.MigrationName, rec.ErrorMessage)
		}
		return nil, fmt.Errorf("%w; fix and edit the files before applying again:\n  %s", ErrFailedMigrations, strings.Join(names, "\n  "))
	}

	var applied []string
	for _, m := range pending {
		if _, err := r.db.Run(ctx, sqlite.SQL(`DELETE FROM schema_migrations WHERE filename = ? AND status = ?`, m.Name, StatusFailed)); err != nil {
			return applied, fmt.Errorf("clearing failed record of %s: %w", m.Name, err)
		}
		r.log.Infof("applying %s", m.Name)
		if err := r.applyMigration(ctx, m); err != nil {
			return applied, err
		}
		applied = append(applied, m.Name)
	}
	return applied, nil
}

// RollbackMigrations reverts the steps most recently applied migrations,
// newest first, and returns their names.
func (r *Runner) RollbackMigrations(ctx context.Context, steps int) ([]string, error) {
	if steps < 1 {
		return nil, fmt.Errorf("steps must be at least 1, got %d", steps)
	}
	if err := r.ensureMigrationsTable(ctx); err != nil {
		return nil, err
	}
	applied, err := r.records(ctx, sqlite.SQL(`SELECT `+recordColumns+` FROM schema_migrations WHERE status = ? ORDER BY id DESC LIMIT ?`, StatusSuccess, steps))
	if err != nil {
		return nil, err
	}
	if len(applied) < steps {
		r.log.Warnf("only %d migrations applied, rolling back all of them", len(applied))
	}

	var rolledBack []string
	for _, rec := range applied {
		m, err := r.readMigration(rec.MigrationName)
		if err != nil {
			return rolledBack, err
		}
		r.log.Infof("rolling back %s", m.Name)
		if err := r.rollbackMigration(ctx, m); err != nil {
			return rolledBack, err
		}
		rolledBack = append(rolledBack, m.Name)
	}
	return rolledBack, nil
}

// Status compares the migrations directory with schema_migrations.
func (r *Runner) Status(ctx context.Context) (StatusReport, error) {
	var report StatusReport
	if err := r.ensureMigrationsTable(ctx); err != nil {
		return report, err
	}
	applied, err := r.recordsByStatus(ctx, StatusSuccess)
	if err != nil {
		return report, err
	}
	if report.Failed, err = r.recordsByStatus(ctx, StatusFailed); err != nil {
		return report, err
	}

	files, err := r.getMigrationFiles()
	if err != nil {
		return report, err
	}
	onDisk := map[string]bool{}
	for _, f := range files {
		onDisk[f] = true
	}
	done := map[string]bool{}
	for _, rec := range applied {
		done[rec.MigrationName] = true
		report.Applied = append(report.Applied, rec.MigrationName)
		if !onDisk[rec.MigrationName] {
			continue
		}
		m, err := r.readMigration(rec.MigrationName)
		if err != nil {
			return report, err
		}
		if m.Checksum != rec.Checksum {
			report.Modified = append(report.Modified, rec.MigrationName)
		}
	}
	for _, f := range files {
		if !done[f] {
			report.Pending = append(report.Pending, f)
		}
	}
	return report, nil
}

// PreviewMigrations returns the pending migrations without applying them.
func (r *Runner) PreviewMigrations(ctx context.Context) ([]Migration, error) {
	pending, _, err := r.pending(ctx)
	return pending, err
}

// GetMigrationHistory lists executions newest first. limit <= 0 means all.
func (r *Runner) GetMigrationHistory(ctx context.Context, limit int, nameFilter string) ([]MigrationRecord, error) {
	if err := r.ensureMigrationsTable(ctx); err != nil {
		return nil, err
	}
	parts := []sqlite.Template{sqlite.Raw(`SELECT ` + recordColumns + ` FROM schema_migrations`)}
	if nameFilter != "" {
		parts = append(parts, sqlite.SQL(`WHERE filename LIKE ?`, "%"+nameFilter+"%"))
	}
	parts = append(parts, sqlite.Raw(`ORDER BY id DESC`))
	if limit > 0 {
		parts = append(parts, sqlite.SQL(`LIMIT ?`, limit))
	}
	return r.records(ctx, sqlite.Join(parts, " "))
}

// GetMigrationLogs lists log entries newest first. limit <= 0 means all.
func (r *Runner) GetMigrationLogs(ctx context.Context, limit int) ([]MigrationLog, error) {
	if err := r.ensureMigrationsTable(ctx); err != nil {
		return nil, err
	}
	q := sqlite.Raw(`SELECT id, timestamp, level, message, user_name, details, migration_name FROM migration_logs ORDER BY id DESC`)
	if limit > 0 {
		q = sqlite.SQL(`? LIMIT ?`, q, limit)
	}
	rows, err := r.db.All(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query migration logs: %w", err)
	}

	logs := make([]MigrationLog, 0, len(rows))
	for _, row := range rows {
		rd := sqlite.NewRowReader(row)
		entry := MigrationLog{
			ID:        rd.Int("id"),
			Timestamp: rd.Date("timestamp"),
			Level:     rd.String("level"),
			Message:   rd.String("message"),
		}
		for column, dst := range map[string]*string{"user_name": &entry.User, "details": &entry.Details, "migration_name": &entry.MigrationName} {
			if v := sqlite.ReadNullable(rd, column, rd.String); v != nil {
				*dst = *v
			}
		}
		if err := rd.Err(); err != nil {
			return nil, fmt.Errorf("scan migration log: %w", err)
		}
		logs = append(logs, entry)
	}
	return logs, nil
}
