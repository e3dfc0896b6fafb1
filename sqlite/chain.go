package sqlite

import (
	"bytes"
	"encoding/json"
)

// MaybeArray decodes either a single JSON value or an array of them.
type MaybeArray[T any] []T

func (m *MaybeArray[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*m = nil
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		*m = items
		return nil
	}
	var item T
	if err := json.Unmarshal(trimmed, &item); err != nil {
		return err
	}
	*m = MaybeArray[T]{item}
	return nil
}

// Chainable is implemented by model filters that accept AND, OR and NOT
// sub-filters. Implementations must accept a nil receiver.
type Chainable[W any] interface {
	Chain() (and, or, not []W)
}

// MakeWhereChained compiles where with its AND/OR/NOT sub-filters.
//
// The component's own predicates and every AND sub-filter are joined with
// AND. The OR sub-filters are joined with OR inside one parenthesized group
// that is then ANDed in, so OR never becomes a top-level disjunction. Each
// NOT sub-filter is wrapped in NOT ( ... ) and ANDed in. A filter that
// produces nothing compiles to 1 = 1.
func MakeWhereChained[W Chainable[W]](where W, ns Namespace, component func(W, Namespace) []Template) Template {
	parts := component(where, ns)
	and, or, not := where.Chain()
	for _, sub := range and {
		parts = append(parts, MakeWhereChained(sub, ns, component))
	}
	if len(or) > 0 {
		alternatives := make([]Template, len(or))
		for i, sub := range or {
			alternatives[i] = MakeWhereChained(sub, ns, component)
		}
		parts = append(parts, SQL("( ? )", Join(alternatives, " OR ")))
	}
	for _, sub := range not {
		parts = append(parts, SQL("NOT ( ? )", MakeWhereChained(sub, ns, component)))
	}
	return orTautology(parts)
}

// MakeWhereChainable returns a compiler bound to component.
func MakeWhereChainable[W Chainable[W]](component func(W, Namespace) []Template) func(W, Namespace) Template {
	return func(where W, ns Namespace) Template {
		return MakeWhereChained(where, ns, component)
	}
}
