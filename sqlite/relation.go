package sqlite

// Namespace tracks the table alias used at one level of relation traversal.
// Each traversal gets an alias derived from the relation path, so nested and
// self-referencing subqueries never shadow each other.
type Namespace struct {
	alias string
	scope string
}

// RootNamespace aliases the statement's own table by its name.
func RootNamespace(table string) Namespace {
	return Namespace{alias: table}
}

// Alias is the unquoted alias of the current table.
func (n Namespace) Alias() string { return n.alias }

// AliasID is the quoted alias.
func (n Namespace) AliasID() Template { return ID(n.alias) }

// ID qualifies column with the current alias.
func (n Namespace) ID(column string) Template {
	return Raw(QuoteIdentifier(n.alias) + "." + QuoteIdentifier(column))
}

// ReferenceTable returns the namespace for the table reached through relation.
func (n Namespace) ReferenceTable(relation string) Namespace {
	alias := relation
	if n.scope != "" {
		alias = n.scope + "_" + relation
	}
	return Namespace{alias: alias, scope: alias}
}

// RelationRef is what the compiler needs to know about a relation.
type RelationRef struct {
	Name          string
	LocalColumn   string
	ForeignTable  string
	ForeignColumn string
}

// WhereOneRelated filters on a belongsTo or hasOne relation.
type WhereOneRelated[W any] struct {
	Is    *W `json:"is,omitempty"`
	IsNot *W `json:"isNot,omitempty"`
}

// WhereManyRelated filters on a hasMany relation.
type WhereManyRelated[W any] struct {
	Some *W `json:"some,omitempty"`
	None *W `json:"none,omitempty"`
}

func relatedSubquery[W any](ns Namespace, rel RelationRef, where *W, compile func(*W, Namespace) Template) Template {
	child := ns.ReferenceTable(rel.Name)
	return SQL("SELECT 1 FROM ? AS ? WHERE ? = ? AND ? LIMIT 1",
		ID(rel.ForeignTable),
		child.AliasID(),
		ns.ID(rel.LocalColumn),
		child.ID(rel.ForeignColumn),
		compile(where, child),
	)
}

func makeWhereRelated[W any](ns Namespace, rel RelationRef, exists, missing *W, compile func(*W, Namespace) Template) Template {
	var parts []Template
	if exists != nil {
		parts = append(parts, SQL("1 = ( ? )", relatedSubquery(ns, rel, exists, compile)))
	}
	// The subquery yields NULL when no row matches.
	if missing != nil {
		parts = append(parts, SQL("NULL IS ( ? )", relatedSubquery(ns, rel, missing, compile)))
	}
	return orTautology(parts)
}

// MakeWhereOneRelated compiles is/isNot into correlated subqueries.
func MakeWhereOneRelated[W any](ns Namespace, rel RelationRef, where *WhereOneRelated[W], compile func(*W, Namespace) Template) Template {
	if where == nil {
		return tautology
	}
	return makeWhereRelated(ns, rel, where.Is, where.IsNot, compile)
}

// MakeWhereManyRelated compiles some/none into correlated subqueries.
func MakeWhereManyRelated[W any](ns Namespace, rel RelationRef, where *WhereManyRelated[W], compile func(*W, Namespace) Template) Template {
	if where == nil {
		return tautology
	}
	return makeWhereRelated(ns, rel, where.Some, where.None, compile)
}
