package codegen

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/dave/jennifer/jen"

	"github.com/ridoystarlord/rapidgen/schema"
	"github.com/ridoystarlord/rapidgen/sqlite"
)

// column is a schema column with the Go names the generators need.
type column struct {
	*schema.Column
	Field string
	// implicit marks the rowid column added to models without an integer
	// autoincrement primary key. It is read and filtered but never written.
	implicit bool
}

func (c column) writable() bool {
	return !c.implicit && c.GeneratedAs == ""
}

func (c column) filterable() bool {
	return c.Type != schema.JSON
}

// pointer reports whether the row field is a pointer. json columns hold any,
// which already admits nil.
func (c column) pointer() bool {
	return c.Nullable && c.Type != schema.JSON
}

// modelColumns lists the model's columns, led by the implicit rowid when
// the model has no integer autoincrement primary key.
func modelColumns(m *schema.Model) ([]column, string) {
	var cols []column
	rowid := "rowid"
	if c, ok := m.AutoincrementColumn(); ok {
		rowid = c.Name
	} else {
		cols = append(cols, column{
			Column:   &schema.Column{Name: "rowid", Type: schema.Integer, Primary: schema.PrimaryKey},
			Field:    "Rowid",
			implicit: true,
		})
	}
	for _, c := range m.Columns {
		cols = append(cols, column{Column: c, Field: FieldName(c.Name)})
	}
	return cols, rowid
}

func (g *generator) baseType(c column) *jen.Statement {
	switch c.Type {
	case schema.Text, schema.UUID:
		return jen.String()
	case schema.Integer:
		return jen.Int64()
	case schema.Date:
		return jen.Qual("time", "Time")
	case schema.Boolean:
		return jen.Bool()
	case schema.Blob:
		return jen.Index().Byte()
	case schema.JSON:
		return jen.Any()
	}
	panic(schema.UnsupportedType(c.Type))
}

func (g *generator) goType(c column) *jen.Statement {
	if c.pointer() {
		return jen.Op("*").Add(g.baseType(c))
	}
	return g.baseType(c)
}

// readExpr reads the column out of the RowReader r.
func (g *generator) readExpr(c column) *jen.Statement {
	var method string
	switch c.Type {
	case schema.Text, schema.UUID:
		method = "String"
	case schema.Integer:
		method = "Int"
	case schema.Date:
		method = "Date"
	case schema.Boolean:
		method = "Bool"
	case schema.Blob:
		method = "Blob"
	case schema.JSON:
		return jen.Id("r").Dot("JSON").Call(jen.Lit(c.Name))
	default:
		panic(schema.UnsupportedType(c.Type))
	}
	if c.pointer() {
		return g.rt("ReadNullable").Call(jen.Id("r"), jen.Lit(c.Name), jen.Id("r").Dot(method))
	}
	return jen.Id("r").Dot(method).Call(jen.Lit(c.Name))
}

// whereFilter names the runtime filter type and compiler for the column.
func whereFilter(c column) (typ, compile string) {
	switch c.Type {
	case schema.Text:
		return "WhereString", "MakeWhereString"
	case schema.UUID:
		return "WhereUUID", "MakeWhereUUID"
	case schema.Integer:
		return "WhereNumber", "MakeWhereNumber"
	case schema.Date:
		return "WhereDate", "MakeWhereDate"
	case schema.Boolean:
		return "WhereBoolean", "MakeWhereBoolean"
	case schema.Blob:
		return "WhereBlob", "MakeWhereBlob"
	case schema.JSON:
		return "", ""
	}
	panic(schema.UnsupportedType(c.Type))
}

// some wraps a value of the column's base type into the Optional the data
// struct holds.
func (g *generator) some(c column, value jen.Code) *jen.Statement {
	switch {
	case c.Type == schema.JSON:
		return g.rt("Some").Types(jen.Any()).Call(value)
	case c.pointer():
		return g.rt("Some").Call(g.rt("Ptr").Call(value))
	}
	return g.rt("Some").Call(value)
}

// defaultExpr renders a column default as a Go expression of the base type.
func (g *generator) defaultExpr(c column) (*jen.Statement, error) {
	v := c.Default.Value
	switch c.Type {
	case schema.Text, schema.UUID:
		return jen.Lit(v.(string)), nil
	case schema.Boolean:
		return jen.Lit(v.(bool)), nil
	case schema.Integer:
		n, err := toInt64(v)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.Name, err)
		}
		return jen.Lit(n), nil
	case schema.Date:
		return g.rt("MustParseDate").Call(jen.Lit(sqlite.FormatDate(v.(time.Time)))), nil
	case schema.Blob:
		return jen.Index().Byte().ValuesFunc(func(group *jen.Group) {
			for _, b := range v.([]byte) {
				group.Op(fmt.Sprintf("0x%02x", b))
			}
		}), nil
	case schema.JSON:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("column %s: encoding default: %w", c.Name, err)
		}
		return jen.Qual("encoding/json", "RawMessage").Call(jen.Lit(string(raw))), nil
	}
	panic(schema.UnsupportedType(c.Type))
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, fmt.Errorf("default %d overflows int64", n)
		}
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("default %d overflows int64", n)
		}
		return int64(n), nil
	case *big.Int:
		if !n.IsInt64() {
			return 0, fmt.Errorf("default %s overflows int64", n)
		}
		return n.Int64(), nil
	}
	return 0, fmt.Errorf("default %v is not an integer", v)
}
