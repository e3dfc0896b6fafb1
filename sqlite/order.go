package sqlite

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidOrderBy   = errors.New("invalid orderBy clause")
	ErrInvalidSortOrder = errors.New("invalid sort order")
)

type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// OrderTerm sorts by one column.
type OrderTerm struct {
	Column string
	Order  SortOrder
}

// OrderClause is implemented by generated sort types. A clause must name
// exactly one column.
type OrderClause interface {
	OrderTerms() []OrderTerm
}

// MakeOrderBy renders ORDER BY for clauses, or Empty when there are none.
func MakeOrderBy[O OrderClause](clauses []O) (Template, error) {
	if len(clauses) == 0 {
		return Empty, nil
	}
	terms := make([]Template, len(clauses))
	for i, clause := range clauses {
		t := clause.OrderTerms()
		if len(t) != 1 {
			return Empty, ErrInvalidOrderBy
		}
		term, err := orderTerm(t[0])
		if err != nil {
			return Empty, err
		}
		terms[i] = term
	}
	return SQL("ORDER BY ?", Join(terms, ", ")), nil
}

func orderTerm(t OrderTerm) (Template, error) {
	switch t.Order {
	case Asc:
		return ID(t.Column), nil
	case Desc:
		return SQL("? DESC", ID(t.Column)), nil
	default:
		return Empty, fmt.Errorf("%w %q for %s", ErrInvalidSortOrder, t.Order, t.Column)
	}
}

// Terms is a ready-made OrderClause, mostly for tests and hand-written models.
type Terms []OrderTerm

func (t Terms) OrderTerms() []OrderTerm { return t }

// By is a single-column clause.
func By(column string, order SortOrder) Terms {
	return Terms{{Column: column, Order: order}}
}
