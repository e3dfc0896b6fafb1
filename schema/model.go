package schema

import "fmt"

// ColumnType is the closed set of logical column types.
type ColumnType string

const (
	Text    ColumnType = "text"
	Integer ColumnType = "integer"
	Date    ColumnType = "date"
	UUID    ColumnType = "uuid"
	JSON    ColumnType = "json"
	Boolean ColumnType = "boolean"
	Blob    ColumnType = "blob"
)

// ColumnTypes lists every ColumnType in declaration order.
var ColumnTypes = []ColumnType{Text, Integer, Date, UUID, JSON, Boolean, Blob}

// Valid reports whether t is one of the known column types.
func (t ColumnType) Valid() bool {
	for _, known := range ColumnTypes {
		if t == known {
			return true
		}
	}
	return false
}

// UnsupportedType is the panic value used by exhaustive switches over ColumnType.
func UnsupportedType(t ColumnType) string {
	return fmt.Sprintf("unsupported column type %s", t)
}

type PrimaryKind int

const (
	NotPrimary PrimaryKind = iota
	PrimaryKey
	PrimaryAutoincrement
)

type DateMode string

const (
	NoMode        DateMode = ""
	CreatedAtMode DateMode = "createdAt"
	UpdatedAtMode DateMode = "updatedAt"
)

// Literal wraps a typed default value so that an explicit nil JSON default
// can be told apart from no default at all.
type Literal struct {
	Value any
}

type Column struct {
	Name         string
	Type         ColumnType
	Nullable     bool
	Unique       bool
	Primary      PrimaryKind
	Default      *Literal
	GeneratedAs  string
	Mode         DateMode
	Autogenerate bool
}

// IsPrimary reports whether the column is part of the primary key.
func (c *Column) IsPrimary() bool {
	return c.Primary != NotPrimary
}

type RelationType string

const (
	RelBelongsTo RelationType = "belongsTo"
	RelHasOne    RelationType = "hasOne"
	RelHasMany   RelationType = "hasMany"
)

type Relation struct {
	Name          string
	Type          RelationType
	LocalColumn   string
	ForeignModel  string
	ForeignColumn string

	// Target is resolved by Build and points at the model named by
	// ForeignModel inside the same Database. It is never owned by the relation.
	Target *Model
}

type Model struct {
	Name      string
	TableName string
	Columns   []*Column
	Relations []*Relation

	columns map[string]*Column
}

// Column looks a column up by name.
func (m *Model) Column(name string) (*Column, bool) {
	c, ok := m.columns[name]
	return c, ok
}

// Relation looks a relation up by name.
func (m *Model) Relation(name string) (*Relation, bool) {
	for _, r := range m.Relations {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// AutoincrementColumn returns the integer autoincrement primary key, if any.
// SQLite aliases such a column to the rowid.
func (m *Model) AutoincrementColumn() (*Column, bool) {
	for _, c := range m.Columns {
		if c.Type == Integer && c.Primary == PrimaryAutoincrement {
			return c, true
		}
	}
	return nil, false
}

type Database struct {
	Models []*Model

	byName map[string]*Model
}

// Model looks a model up by name.
func (d *Database) Model(name string) (*Model, bool) {
	m, ok := d.byName[name]
	return m, ok
}
