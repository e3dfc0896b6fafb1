package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ridoystarlord/rapidgen/logger"

	_ "modernc.org/sqlite"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// Row is one result row keyed by column name.
type Row map[string]any

// RunResult reports the effect of a statement.
type RunResult struct {
	Changes         int64 `json:"changes"`
	LastInsertRowID int64 `json:"lastInsertRowid"`
}

// Executor runs parameterized statements. *Database implements it, and so
// does the value passed to Database.Tx callbacks.
type Executor interface {
	Run(ctx context.Context, q Template) (RunResult, error)
	Get(ctx context.Context, q Template) (Row, error)
	All(ctx context.Context, q Template) ([]Row, error)
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Database is a thin wrapper around *sql.DB that understands Templates.
type Database struct {
	db  *sql.DB
	q   queryer
	log *logger.Logger
}

type Option func(*Database)

// WithLogger logs every statement at debug level.
func WithLogger(l *logger.Logger) Option {
	return func(d *Database) { d.log = l }
}

// DSN turns a file name into a modernc DSN with foreign keys enabled.
func DSN(filename string) string {
	if filename == "" || filename == ":memory:" {
		return "file::memory:?_pragma=foreign_keys(1)"
	}
	if strings.HasPrefix(filename, "file:") {
		sep := "?"
		if strings.Contains(filename, "?") {
			sep = "&"
		}
		return filename + sep + "_pragma=foreign_keys(1)"
	}
	return "file:" + filename + "?_pragma=foreign_keys(1)"
}

// Open opens filename (":memory:" for a private in-memory database).
// SQLite has a single writer, so the pool is limited to one connection;
// that also keeps in-memory databases from splitting across connections.
func Open(ctx context.Context, filename string, opts ...Option) (*Database, error) {
	db, err := sql.Open(DriverName, DSN(filename))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filename, err)
	}
	db.SetMaxOpenConns(1)

	d := New(db, opts...)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return d, nil
}

// New wraps an already configured *sql.DB.
func New(db *sql.DB, opts ...Option) *Database {
	d := &Database{db: db, q: db, log: logger.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DB exposes the underlying handle.
func (d *Database) DB() *sql.DB { return d.db }

func (d *Database) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *Database) trace(q Template) {
	d.log.DebugWith("sql", map[string]any{"query": q.SQL(), "args": len(q.Values())})
}

// Exec runs a script of one or more statements without parameters.
func (d *Database) Exec(ctx context.Context, script string) error {
	d.trace(Raw(script))
	_, err := d.q.ExecContext(ctx, script)
	return err
}

// Run executes q and reports changes and the last inserted rowid.
func (d *Database) Run(ctx context.Context, q Template) (RunResult, error) {
	d.trace(q)
	res, err := d.q.ExecContext(ctx, q.SQL(), bindValues(q.Values())...)
	if err != nil {
		return RunResult{}, err
	}
	var out RunResult
	if out.Changes, err = res.RowsAffected(); err != nil {
		return RunResult{}, err
	}
	if out.LastInsertRowID, err = res.LastInsertId(); err != nil {
		return RunResult{}, err
	}
	return out, nil
}

// Get returns the first row, or nil when there is none.
func (d *Database) Get(ctx context.Context, q Template) (Row, error) {
	var first Row
	err := d.Iterate(ctx, q, func(r Row) error {
		first = r
		return errStop
	})
	if err != nil {
		return nil, err
	}
	return first, nil
}

// All returns every row.
func (d *Database) All(ctx context.Context, q Template) ([]Row, error) {
	var rows []Row
	err := d.Iterate(ctx, q, func(r Row) error {
		rows = append(rows, r)
		return nil
	})
	return rows, err
}

var errStop = errors.New("stop iteration")

// Iterate calls fn for each row until fn returns an error.
func (d *Database) Iterate(ctx context.Context, q Template, fn func(Row) error) error {
	d.trace(q)
	rows, err := d.q.QueryContext(ctx, q.SQL(), bindValues(q.Values())...)
	if err != nil {
		return err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	for rows.Next() {
		dest := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			row[c] = dest[i]
		}
		if err := fn(row); err != nil {
			if errors.Is(err, errStop) {
				return nil
			}
			return err
		}
	}
	return rows.Err()
}

// PluckOne returns the first column of the first row, or nil.
func (d *Database) PluckOne(ctx context.Context, q Template) (any, error) {
	var v any
	err := d.iterateFirstColumn(ctx, q, func(x any) error {
		v = x
		return errStop
	})
	return v, err
}

// PluckAll returns the first column of every row.
func (d *Database) PluckAll(ctx context.Context, q Template) ([]any, error) {
	var out []any
	err := d.iterateFirstColumn(ctx, q, func(x any) error {
		out = append(out, x)
		return nil
	})
	return out, err
}

func (d *Database) iterateFirstColumn(ctx context.Context, q Template, fn func(any) error) error {
	d.trace(q)
	rows, err := d.q.QueryContext(ctx, q.SQL(), bindValues(q.Values())...)
	if err != nil {
		return err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return fmt.Errorf("query returns no columns")
	}
	for rows.Next() {
		dest := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		if err := fn(dest[0]); err != nil {
			if errors.Is(err, errStop) {
				return nil
			}
			return err
		}
	}
	return rows.Err()
}

// Tx runs fn inside a transaction. fn's Database shares the logger and
// commits when fn returns nil.
func (d *Database) Tx(ctx context.Context, fn func(tx *Database) error) error {
	sqlTx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	tx := &Database{db: d.db, q: sqlTx, log: d.log}
	if err := fn(tx); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	return sqlTx.Commit()
}
