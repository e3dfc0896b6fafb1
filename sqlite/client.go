package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Env supplies the clock and uuid generator used to fill create and update data.
type Env struct {
	Now     func() time.Time
	NewUUID func() string
}

type ClientOption func(*Env)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ClientOption {
	return func(e *Env) { e.Now = now }
}

// WithUUIDGenerator replaces uuid.NewString.
func WithUUIDGenerator(gen func() string) ClientOption {
	return func(e *Env) { e.NewUUID = gen }
}

func NewEnv(opts ...ClientOption) Env {
	env := Env{Now: time.Now, NewUUID: uuid.NewString}
	for _, opt := range opts {
		opt(&env)
	}
	return env
}

// Model describes one generated model to ModelClient. T is the row type,
// W the filter, O the sort clause and D the create/update data.
type Model[T any, W any, O OrderClause, D any] struct {
	Table   string
	Columns []string
	// RowID names the column that aliases the SQLite rowid.
	RowID string

	Where      func(*W, Namespace) Template
	Parse      func(Row) (*T, error)
	Serialize  func(D) (Values, error)
	FillCreate func(D, Env) D
	FillUpdate func(D, Env) D
}

type FindFirstArgs[W any, O any] struct {
	Where   *W            `json:"where,omitempty"`
	OrderBy MaybeArray[O] `json:"orderBy,omitempty"`
	Offset  *int          `json:"offset,omitempty"`
}

type FindManyArgs[W any, O any] struct {
	Where   *W            `json:"where,omitempty"`
	OrderBy MaybeArray[O] `json:"orderBy,omitempty"`
	Limit   *int          `json:"limit,omitempty"`
	Offset  *int          `json:"offset,omitempty"`
}

type CreateArgs[D any] struct {
	Data D `json:"data"`
}

type CreateManyArgs[D any] struct {
	Data []D `json:"data"`
}

type UpdateManyArgs[W any, O any, D any] struct {
	Data    D             `json:"data"`
	Where   *W            `json:"where,omitempty"`
	OrderBy MaybeArray[O] `json:"orderBy,omitempty"`
	Limit   *int          `json:"limit,omitempty"`
	Offset  *int          `json:"offset,omitempty"`
}

type DeleteManyArgs[W any, O any] struct {
	Where   *W            `json:"where,omitempty"`
	OrderBy MaybeArray[O] `json:"orderBy,omitempty"`
	Limit   *int          `json:"limit,omitempty"`
	Offset  *int          `json:"offset,omitempty"`
}

// ModelClient implements the CRUD surface of a generated model. Every
// method issues exactly one parameterized statement, except Create, which
// reads the inserted row back.
type ModelClient[T any, W any, O OrderClause, D any] struct {
	db    Executor
	model *Model[T, W, O, D]
	env   Env
}

func NewModelClient[T any, W any, O OrderClause, D any](db Executor, model *Model[T, W, O, D], env Env) *ModelClient[T, W, O, D] {
	return &ModelClient[T, W, O, D]{db: db, model: model, env: env}
}

func (c *ModelClient[T, W, O, D]) table() Template { return ID(c.model.Table) }

func (c *ModelClient[T, W, O, D]) selectFrom() Template {
	cols := make([]Template, len(c.model.Columns))
	for i, col := range c.model.Columns {
		cols[i] = ID(col)
	}
	return SQL("SELECT ? FROM ?", Join(cols, ", "), c.table())
}

func (c *ModelClient[T, W, O, D]) whereClause(where *W) Template {
	if where == nil {
		return Empty
	}
	return SQL("WHERE ?", c.model.Where(where, RootNamespace(c.model.Table)))
}

func limitOffset(limit, offset *int) []Template {
	if limit == nil && offset == nil {
		return nil
	}
	n := -1
	if limit != nil {
		n = *limit
	}
	parts := []Template{SQL("LIMIT ?", n)}
	if offset != nil {
		parts = append(parts, SQL("OFFSET ?", *offset))
	}
	return parts
}

// FindFirst returns the first matching row, or nil when nothing matches.
func (c *ModelClient[T, W, O, D]) FindFirst(ctx context.Context, args FindFirstArgs[W, O]) (*T, error) {
	orderBy, err := MakeOrderBy([]O(args.OrderBy))
	if err != nil {
		return nil, err
	}
	parts := []Template{c.selectFrom(), c.whereClause(args.Where), orderBy, Raw("LIMIT 1")}
	if args.Offset != nil {
		parts = append(parts, SQL("OFFSET ?", *args.Offset))
	}
	row, err := c.db.Get(ctx, JoinNonEmpty(parts, " "))
	if err != nil || row == nil {
		return nil, err
	}
	return c.model.Parse(row)
}

func (c *ModelClient[T, W, O, D]) FindMany(ctx context.Context, args FindManyArgs[W, O]) ([]*T, error) {
	orderBy, err := MakeOrderBy([]O(args.OrderBy))
	if err != nil {
		return nil, err
	}
	parts := []Template{c.selectFrom(), c.whereClause(args.Where), orderBy}
	parts = append(parts, limitOffset(args.Limit, args.Offset)...)

	rows, err := c.db.All(ctx, JoinNonEmpty(parts, " "))
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(rows))
	for _, row := range rows {
		v, err := c.model.Parse(row)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (c *ModelClient[T, W, O, D]) createValues(data D) (Values, error) {
	if c.model.FillCreate != nil {
		data = c.model.FillCreate(data, c.env)
	}
	return c.model.Serialize(data)
}

// Create inserts one row and returns it as stored.
func (c *ModelClient[T, W, O, D]) Create(ctx context.Context, args CreateArgs[D]) (*T, error) {
	values, err := c.createValues(args.Data)
	if err != nil {
		return nil, err
	}
	insert, err := MakeInsert(c.model.Table, []Values{values})
	if err != nil {
		return nil, err
	}
	res, err := c.db.Run(ctx, insert)
	if err != nil {
		return nil, err
	}
	row, err := c.db.Get(ctx, SQL("? WHERE ? = ?", c.selectFrom(), ID(c.model.RowID), res.LastInsertRowID))
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("%s: inserted row %d not found", c.model.Table, res.LastInsertRowID)
	}
	return c.model.Parse(row)
}

func (c *ModelClient[T, W, O, D]) CreateMany(ctx context.Context, args CreateManyArgs[D]) (RunResult, error) {
	rows := make([]Values, len(args.Data))
	for i, data := range args.Data {
		values, err := c.createValues(data)
		if err != nil {
			return RunResult{}, err
		}
		rows[i] = values
	}
	insert, err := MakeInsert(c.model.Table, rows)
	if err != nil {
		return RunResult{}, err
	}
	return c.db.Run(ctx, insert)
}

// restrict narrows a statement to the matching rows. With a limit or
// offset, rows are chosen through a rowid subquery ordered by orderBy,
// or by rowid when no order is given.
func (c *ModelClient[T, W, O, D]) restrict(where *W, orderBy []O, limit, offset *int) (Template, error) {
	order, err := MakeOrderBy(orderBy)
	if err != nil {
		return Empty, err
	}
	page := limitOffset(limit, offset)
	if page == nil {
		return c.whereClause(where), nil
	}
	if order.IsEmpty() {
		order = SQL("ORDER BY ?", ID(c.model.RowID))
	}
	parts := []Template{
		SQL("SELECT ? FROM ?", ID(c.model.RowID), c.table()),
		c.whereClause(where),
		order,
	}
	parts = append(parts, page...)
	return SQL("WHERE ? IN ( ? )", ID(c.model.RowID), JoinNonEmpty(parts, " ")), nil
}

func (c *ModelClient[T, W, O, D]) UpdateMany(ctx context.Context, args UpdateManyArgs[W, O, D]) (RunResult, error) {
	data := args.Data
	if c.model.FillUpdate != nil {
		data = c.model.FillUpdate(data, c.env)
	}
	values, err := c.model.Serialize(data)
	if err != nil {
		return RunResult{}, err
	}
	update, err := MakeUpdate(c.model.Table, values)
	if err != nil {
		return RunResult{}, err
	}
	filter, err := c.restrict(args.Where, args.OrderBy, args.Limit, args.Offset)
	if err != nil {
		return RunResult{}, err
	}
	res, err := c.db.Run(ctx, JoinNonEmpty([]Template{update, filter}, " "))
	if err != nil {
		return RunResult{}, err
	}
	return RunResult{Changes: res.Changes}, nil
}

func (c *ModelClient[T, W, O, D]) DeleteMany(ctx context.Context, args DeleteManyArgs[W, O]) (RunResult, error) {
	filter, err := c.restrict(args.Where, args.OrderBy, args.Limit, args.Offset)
	if err != nil {
		return RunResult{}, err
	}
	res, err := c.db.Run(ctx, JoinNonEmpty([]Template{SQL("DELETE FROM ?", c.table()), filter}, " "))
	if err != nil {
		return RunResult{}, err
	}
	return RunResult{Changes: res.Changes}, nil
}
