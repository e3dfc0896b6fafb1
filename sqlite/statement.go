package sqlite

import (
	"errors"
)

var (
	ErrNoValues        = errors.New("no values")
	ErrColumnsMismatch = errors.New("columns must be identical in all values")
)

// Assignment is one column value for INSERT or UPDATE. A Template value is
// spliced in as SQL; anything else is bound.
type Assignment struct {
	Column string
	Value  any
}

// Values is an ordered set of column assignments.
type Values []Assignment

// Set appends an assignment.
func (v Values) Set(column string, value any) Values {
	return append(v, Assignment{Column: column, Value: value})
}

func (v Values) lookup(column string) (any, bool) {
	for _, a := range v {
		if a.Column == column {
			return a.Value, true
		}
	}
	return nil, false
}

func valueTemplate(v any) Template {
	if t, ok := v.(Template); ok {
		return t
	}
	return Param(v)
}

// MakeInsert builds a multi-row INSERT. Column order comes from the first
// row; every other row must assign the same set of columns.
func MakeInsert(table string, rows []Values) (Template, error) {
	if len(rows) == 0 {
		return Empty, ErrNoValues
	}
	columns := make([]string, len(rows[0]))
	for i, a := range rows[0] {
		columns[i] = a.Column
	}

	fragments := make([]Template, len(rows))
	for i, row := range rows {
		if len(row) != len(columns) {
			return Empty, ErrColumnsMismatch
		}
		parts := make([]Template, len(columns))
		for j, col := range columns {
			v, ok := row.lookup(col)
			if !ok {
				return Empty, ErrColumnsMismatch
			}
			parts[j] = valueTemplate(v)
		}
		fragments[i] = SQL("( ? )", Join(parts, ", "))
	}

	ids := make([]Template, len(columns))
	for i, col := range columns {
		ids[i] = ID(col)
	}
	return SQL("INSERT INTO ? ( ? ) VALUES ?", ID(table), Join(ids, ", "), Join(fragments, ", ")), nil
}

// MakeUpdate builds UPDATE ... SET without a WHERE clause.
func MakeUpdate(table string, values Values) (Template, error) {
	if len(values) == 0 {
		return Empty, ErrNoValues
	}
	exprs := make([]Template, len(values))
	for i, a := range values {
		exprs[i] = SQL("? = ?", ID(a.Column), valueTemplate(a.Value))
	}
	return SQL("UPDATE ? SET ?", ID(table), Join(exprs, ", ")), nil
}
