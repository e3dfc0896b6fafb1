package diff

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ridoystarlord/rapidgen/schema"
)

type OperationType string

const (
	CreateTable  OperationType = "CREATE_TABLE"
	DropTable    OperationType = "DROP_TABLE"
	AddColumn    OperationType = "ADD_COLUMN"
	DropColumn   OperationType = "DROP_COLUMN"
	RebuildTable OperationType = "REBUILD_TABLE"
)

type Operation struct {
	Type      OperationType
	TableName string
	Model     *schema.Model  // target model for CREATE_TABLE and REBUILD_TABLE
	From      *schema.Model  // current model for REBUILD_TABLE
	Column    *schema.Column // for ADD_COLUMN
	// ColumnName is set for DROP_COLUMN.
	ColumnName string
}

// Describe renders a one-line summary of the operation.
func (op Operation) Describe() string {
	switch op.Type {
	case CreateTable:
		return fmt.Sprintf("create table %s (%d columns)", op.TableName, len(op.Model.Columns))
	case DropTable:
		return fmt.Sprintf("drop table %s", op.TableName)
	case AddColumn:
		return fmt.Sprintf("add column %s.%s", op.TableName, op.Column.Name)
	case DropColumn:
		return fmt.Sprintf("drop column %s.%s", op.TableName, op.ColumnName)
	case RebuildTable:
		return fmt.Sprintf("rebuild table %s", op.TableName)
	}
	return string(op.Type)
}

// SQLType maps a column type onto its storage class.
func SQLType(t schema.ColumnType) string {
	switch t {
	case schema.Text, schema.UUID, schema.Date, schema.JSON:
		return "TEXT"
	case schema.Integer, schema.Boolean:
		return "INTEGER"
	case schema.Blob:
		return "BLOB"
	}
	panic(schema.UnsupportedType(t))
}

// ColumnDefinition renders a column the way CREATE TABLE and ADD COLUMN
// spell it. Two columns are unchanged exactly when their definitions are
// equal, so the constraint order is fixed.
func ColumnDefinition(c *schema.Column) string {
	parts := []string{quote(c.Name), SQLType(c.Type)}
	switch c.Primary {
	case schema.PrimaryKey:
		parts = append(parts, "PRIMARY KEY")
	case schema.PrimaryAutoincrement:
		parts = append(parts, "PRIMARY KEY AUTOINCREMENT")
	}
	if c.Unique {
		parts = append(parts, "UNIQUE")
	}
	if !c.Nullable {
		parts = append(parts, "NOT NULL")
	}
	if c.GeneratedAs != "" {
		parts = append(parts, fmt.Sprintf("GENERATED ALWAYS AS (%s)", c.GeneratedAs))
	}
	return strings.Join(parts, " ")
}

// ForeignKeys renders the FOREIGN KEY clauses declared by the model's
// belongsTo relations, in declaration order.
func ForeignKeys(m *schema.Model) []string {
	var keys []string
	for _, rel := range m.Relations {
		if rel.Type != schema.RelBelongsTo || rel.Target == nil {
			continue
		}
		keys = append(keys, fmt.Sprintf("FOREIGN KEY ( %s ) REFERENCES %s ( %s )",
			quote(rel.LocalColumn), quote(rel.Target.TableName), quote(rel.ForeignColumn)))
	}
	return keys
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func sameForeignKeys(from, to *schema.Model) bool {
	a, b := ForeignKeys(from), ForeignKeys(to)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}

// byTable indexes models by physical table, keeping first-seen order.
func byTable(db *schema.Database) ([]string, map[string]*schema.Model) {
	var order []string
	tables := map[string]*schema.Model{}
	if db == nil {
		return order, tables
	}
	for _, m := range db.Models {
		if _, seen := tables[m.TableName]; !seen {
			order = append(order, m.TableName)
		}
		tables[m.TableName] = m
	}
	return order, tables
}

// Diff computes the operations that move a database shaped like from into
// one shaped like to. Models are matched by table name, so renaming a model
// without changing its table is not a change.
func Diff(from, to *schema.Database) []Operation {
	var ops []Operation

	fromOrder, fromTables := byTable(from)
	toOrder, toTables := byTable(to)

	for _, table := range fromOrder {
		current := fromTables[table]
		target, exists := toTables[table]
		if !exists {
			ops = append(ops, Operation{Type: DropTable, TableName: table})
			continue
		}
		ops = append(ops, diffModel(current, target)...)
	}

	for _, table := range toOrder {
		if _, exists := fromTables[table]; !exists {
			ops = append(ops, Operation{Type: CreateTable, TableName: table, Model: toTables[table]})
		}
	}

	return ops
}

func diffModel(from, to *schema.Model) []Operation {
	rebuild := []Operation{{Type: RebuildTable, TableName: from.TableName, Model: to, From: from}}
	if !sameForeignKeys(from, to) {
		return rebuild
	}

	var ops []Operation
	for _, col := range from.Columns {
		next, ok := to.Column(col.Name)
		switch {
		case !ok:
			ops = append(ops, Operation{Type: DropColumn, TableName: from.TableName, ColumnName: col.Name})
		case ColumnDefinition(col) != ColumnDefinition(next):
			return rebuild
		}
	}
	for _, col := range to.Columns {
		if _, ok := from.Column(col.Name); !ok {
			ops = append(ops, Operation{Type: AddColumn, TableName: from.TableName, Column: col})
		}
	}
	return ops
}

// SharedColumns lists the columns whose data a rebuild copies: present in
// both models and not generated in the target.
func SharedColumns(from, to *schema.Model) []string {
	var shared []string
	for _, col := range from.Columns {
		next, ok := to.Column(col.Name)
		if !ok || next.GeneratedAs != "" {
			continue
		}
		shared = append(shared, col.Name)
	}
	return shared
}
