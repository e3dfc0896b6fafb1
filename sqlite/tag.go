// Package sqlite is the runtime shared by generated clients: parameterized
// SQL templates, the WHERE compiler, statement builders and a small executor
// over database/sql.
package sqlite

import (
	"fmt"
	"strings"
)

// Template is a SQL fragment with "?" placeholders and the values bound to
// them, in order. The zero value is the empty fragment.
type Template struct {
	sql    string
	values []any
}

// SQL returns the statement text.
func (t Template) SQL() string { return t.sql }

// Values returns the bound values in placeholder order.
func (t Template) Values() []any { return t.values }

// IsEmpty reports whether the fragment has no text.
func (t Template) IsEmpty() bool { return t.sql == "" }

// String renders the fragment with values inlined. Meant for logs and
// previews, never for execution.
func (t Template) String() string {
	s, err := t.Inline()
	if err != nil {
		return t.sql
	}
	return s
}

// Inline replaces every placeholder with the literal form of its value.
func (t Template) Inline() (string, error) {
	var b strings.Builder
	next := 0
	for i := 0; i < len(t.sql); i++ {
		ch := t.sql[i]
		if ch != '?' {
			b.WriteByte(ch)
			continue
		}
		if next >= len(t.values) {
			return "", fmt.Errorf("template has more placeholders than values")
		}
		lit, err := Literal(t.values[next])
		if err != nil {
			return "", err
		}
		b.WriteString(lit)
		next++
	}
	return b.String(), nil
}

// Empty is the fragment with no text and no values.
var Empty = Template{}

// Raw wraps trusted SQL text.
func Raw(sql string) Template {
	return Template{sql: sql}
}

// Param binds a single value.
func Param(v any) Template {
	return Template{sql: "?", values: []any{v}}
}

// QuoteIdentifier wraps name in double quotes, doubling embedded quotes.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ID is a quoted identifier fragment.
func ID(name string) Template {
	return Raw(QuoteIdentifier(name))
}

// SQL builds a fragment from a constant format. Every "?" in format consumes
// one argument: a Template is spliced in, anything else is bound as a value.
// A mismatch between placeholders and arguments is a programming error.
func SQL(format string, args ...any) Template {
	var b strings.Builder
	var values []any
	next := 0
	for i := 0; i < len(format); i++ {
		ch := format[i]
		if ch != '?' {
			b.WriteByte(ch)
			continue
		}
		if next >= len(args) {
			panic(fmt.Sprintf("sqlite: not enough arguments for %q", format))
		}
		switch a := args[next].(type) {
		case Template:
			b.WriteString(a.sql)
			values = append(values, a.values...)
		default:
			b.WriteByte('?')
			values = append(values, a)
		}
		next++
	}
	if next != len(args) {
		panic(fmt.Sprintf("sqlite: too many arguments for %q", format))
	}
	return Template{sql: b.String(), values: values}
}

// Join concatenates fragments with sep between them.
func Join(parts []Template, sep string) Template {
	var b strings.Builder
	var values []any
	for i, p := range parts {
		if i > 0 {
			b.WriteString(sep)
		}
		b.WriteString(p.sql)
		values = append(values, p.values...)
	}
	return Template{sql: b.String(), values: values}
}

// JoinNonEmpty is Join that skips empty fragments.
func JoinNonEmpty(parts []Template, sep string) Template {
	kept := make([]Template, 0, len(parts))
	for _, p := range parts {
		if !p.IsEmpty() {
			kept = append(kept, p)
		}
	}
	return Join(kept, sep)
}
