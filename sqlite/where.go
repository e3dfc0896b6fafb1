package sqlite

import (
	"time"
)

// Nullable is a comparison operand that may be SQL NULL.
type Nullable[T any] struct {
	Value T
	Null  bool
}

// Val is a non-null operand.
func Val[T any](v T) *Nullable[T] {
	return &Nullable[T]{Value: v}
}

// Null is the NULL operand.
func Null[T any]() *Nullable[T] {
	return &Nullable[T]{Null: true}
}

// Ptr returns a pointer to v, for the ordering operands.
func Ptr[T any](v T) *T {
	return &v
}

// WhereScalar filters one column. Each set field adds one comparison and
// the comparisons are ANDed in field order.
type WhereScalar[T any] struct {
	Equals *Nullable[T] `json:"equals,omitempty"`
	Not    *Nullable[T] `json:"not,omitempty"`
	GT     *T           `json:"gt,omitempty"`
	LT     *T           `json:"lt,omitempty"`
	GTE    *T           `json:"gte,omitempty"`
	LTE    *T           `json:"lte,omitempty"`
	In     []T          `json:"in,omitempty"`
	NotIn  []T          `json:"notIn,omitempty"`
}

// Eq is the bare-value shorthand: the column equals v.
func Eq[T any](v T) *WhereScalar[T] {
	return &WhereScalar[T]{Equals: Val(v)}
}

// IsNull is the null shorthand: the column IS NULL.
func IsNull[T any]() *WhereScalar[T] {
	return &WhereScalar[T]{Equals: Null[T]()}
}

type WhereString struct {
	WhereScalar[string]
	Like *string `json:"like,omitempty"`
}

// StringEq is the bare-value shorthand for text columns.
func StringEq(v string) *WhereString {
	return &WhereString{WhereScalar: WhereScalar[string]{Equals: Val(v)}}
}

// StringIsNull is the null shorthand for text columns.
func StringIsNull() *WhereString {
	return &WhereString{WhereScalar: WhereScalar[string]{Equals: Null[string]()}}
}

type (
	WhereNumber = WhereScalar[int64]
	WhereDate   = WhereScalar[time.Time]
	WhereUUID   = WhereScalar[string]
	WhereBlob   = WhereScalar[[]byte]
)

// WhereBoolean filters an integer-stored boolean. true compiles to != 0,
// false to = 0.
type WhereBoolean struct {
	Equals *Nullable[bool] `json:"equals,omitempty"`
	Not    *Nullable[bool] `json:"not,omitempty"`
}

// BoolEq is the bare-value shorthand for boolean columns.
func BoolEq(v bool) *WhereBoolean {
	return &WhereBoolean{Equals: Val(v)}
}

// BoolIsNull is the null shorthand for boolean columns.
func BoolIsNull() *WhereBoolean {
	return &WhereBoolean{Equals: Null[bool]()}
}

var tautology = Raw("1 = 1")

func orTautology(parts []Template) Template {
	if len(parts) == 0 {
		return tautology
	}
	return Join(parts, " AND ")
}

var comparisonOps = [...]string{">", "<", ">=", "<="}

func makeWhereScalar[T any](column Template, where *WhereScalar[T], bind func(T) any) []Template {
	if where == nil {
		return nil
	}
	var parts []Template
	if where.Equals != nil {
		if where.Equals.Null {
			parts = append(parts, SQL("? IS NULL", column))
		} else {
			parts = append(parts, SQL("? = ?", column, bind(where.Equals.Value)))
		}
	}
	if where.Not != nil {
		if where.Not.Null {
			parts = append(parts, SQL("? IS NOT NULL", column))
		} else {
			parts = append(parts, SQL("? != ?", column, bind(where.Not.Value)))
		}
	}
	for i, operand := range [...]*T{where.GT, where.LT, where.GTE, where.LTE} {
		if operand != nil {
			parts = append(parts, SQL("? ? ?", column, Raw(comparisonOps[i]), bind(*operand)))
		}
	}
	if where.In != nil {
		parts = append(parts, SQL("? IN ( ? )", column, bindList(where.In, bind)))
	}
	if where.NotIn != nil {
		parts = append(parts, SQL("? NOT IN ( ? )", column, bindList(where.NotIn, bind)))
	}
	return parts
}

func bindList[T any](values []T, bind func(T) any) Template {
	params := make([]Template, len(values))
	for i, v := range values {
		params[i] = Param(bind(v))
	}
	return Join(params, ", ")
}

func identity[T any](v T) any { return v }

func bindDate(t time.Time) any { return FormatDate(t) }

// MakeWhereString compiles a text filter. column is usually ns.ID(name).
func MakeWhereString(column Template, where *WhereString) Template {
	if where == nil {
		return tautology
	}
	parts := makeWhereScalar(column, &where.WhereScalar, identity[string])
	if where.Like != nil {
		parts = append(parts, SQL("? LIKE ?", column, *where.Like))
	}
	return orTautology(parts)
}

func MakeWhereNumber(column Template, where *WhereNumber) Template {
	return orTautology(makeWhereScalar(column, where, identity[int64]))
}

// MakeWhereDate compiles a date filter; operands are bound as ISO strings.
func MakeWhereDate(column Template, where *WhereDate) Template {
	return orTautology(makeWhereScalar(column, where, bindDate))
}

func MakeWhereUUID(column Template, where *WhereUUID) Template {
	return orTautology(makeWhereScalar(column, where, identity[string]))
}

func MakeWhereBlob(column Template, where *WhereBlob) Template {
	return orTautology(makeWhereScalar(column, where, identity[[]byte]))
}

func MakeWhereBoolean(column Template, where *WhereBoolean) Template {
	if where == nil {
		return tautology
	}
	var parts []Template
	if where.Equals != nil {
		parts = append(parts, booleanTest(column, where.Equals, false))
	}
	if where.Not != nil {
		parts = append(parts, booleanTest(column, where.Not, true))
	}
	return orTautology(parts)
}

func booleanTest(column Template, operand *Nullable[bool], negate bool) Template {
	if operand.Null {
		if negate {
			return SQL("? IS NOT NULL", column)
		}
		return SQL("? IS NULL", column)
	}
	if operand.Value != negate {
		return SQL("? != 0", column)
	}
	return SQL("? = 0", column)
}
