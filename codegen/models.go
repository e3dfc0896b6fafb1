package codegen

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/dave/jennifer/jen"

	"github.com/ridoystarlord/rapidgen/loader"
	"github.com/ridoystarlord/rapidgen/schema"
	"github.com/ridoystarlord/rapidgen/sqlite"
)

// GenerateModels renders the schema as Go structs with rapid tags, the form
// the tag loader reads back. The output is meant to be edited, so it carries
// no generated banner.
func GenerateModels(db *schema.Database, opts Options) ([]byte, error) {
	f := jen.NewFile(opts.modelsPkg())
	for _, m := range db.Models {
		fields, err := modelFields(m)
		if err != nil {
			return nil, err
		}
		f.Type().Id(schema.UpperFirst(m.Name)).Struct(fields...)
		f.Line()
	}
	return render(f)
}

func (o Options) modelsPkg() string {
	if o.Package == "" {
		return "models"
	}
	return o.Package
}

func modelFields(m *schema.Model) ([]jen.Code, error) {
	var fields []jen.Code
	if m.TableName != schema.DefaultTableName(m.Name) {
		fields = append(fields, jen.Id("_").Struct().Tag(map[string]string{loader.TagName: "table:" + m.TableName}))
	}

	for _, c := range m.Columns {
		tag, err := columnTag(c)
		if err != nil {
			return nil, fmt.Errorf("model %s: column %s: %w", m.Name, c.Name, err)
		}
		typ := modelFieldType(c)
		field := FieldName(c.Name)
		fields = append(fields, jen.Id(field).Add(typ).Tag(map[string]string{loader.TagName: withColumn(field, c.Name, tag)}))
	}

	for _, r := range m.Relations {
		target := jen.Op("*").Id(schema.UpperFirst(r.ForeignModel))
		if r.Type == schema.RelHasMany {
			target = jen.Index().Op("*").Id(schema.UpperFirst(r.ForeignModel))
		}
		tag := fmt.Sprintf("relation:%s;local:%s;foreign:%s", r.Type, r.LocalColumn, r.ForeignColumn)
		field := FieldName(r.Name)
		fields = append(fields, jen.Id(field).Add(target).Tag(map[string]string{loader.TagName: withColumn(field, r.Name, []string{tag})}))
	}
	return fields, nil
}

// withColumn prefixes the tag with column: when the loader would not derive
// name from the field, or when the tag would otherwise be empty.
func withColumn(field, name string, tag []string) string {
	if loader.ColumnName(field) != name || len(tag) == 0 {
		tag = append([]string{"column:" + name}, tag...)
	}
	return strings.Join(tag, ";")
}

// modelFieldType is the field type the tag loader infers back to c.Type.
// Nullable blob and json columns keep their plain type and say nullable in
// the tag.
func modelFieldType(c *schema.Column) *jen.Statement {
	var typ *jen.Statement
	switch c.Type {
	case schema.Text, schema.UUID:
		typ = jen.String()
	case schema.Integer:
		typ = jen.Int64()
	case schema.Date:
		typ = jen.Qual("time", "Time")
	case schema.Boolean:
		typ = jen.Bool()
	case schema.Blob:
		return jen.Index().Byte()
	case schema.JSON:
		return jen.Any()
	default:
		panic(schema.UnsupportedType(c.Type))
	}
	if c.Nullable {
		return jen.Op("*").Add(typ)
	}
	return typ
}

func columnTag(c *schema.Column) ([]string, error) {
	tag := []string{}
	if c.Type == schema.UUID {
		tag = append(tag, "type:uuid")
	}
	switch c.Primary {
	case schema.PrimaryAutoincrement:
		tag = append(tag, "autoincrement")
	case schema.PrimaryKey:
		tag = append(tag, "primary")
	}
	if c.Nullable && (c.Type == schema.Blob || c.Type == schema.JSON) {
		tag = append(tag, "nullable")
	}
	if c.Unique {
		tag = append(tag, "unique")
	}
	if c.Autogenerate {
		tag = append(tag, "autogenerate")
	}
	if c.Mode != schema.NoMode {
		tag = append(tag, "mode:"+string(c.Mode))
	}
	if c.GeneratedAs != "" {
		if strings.Contains(c.GeneratedAs, ";") {
			return nil, fmt.Errorf("generated expression %q cannot be written as a tag", c.GeneratedAs)
		}
		tag = append(tag, "generated:"+c.GeneratedAs)
	}
	if c.Default != nil {
		v, err := tagDefault(c.Type, c.Default.Value)
		if err != nil {
			return nil, err
		}
		if strings.Contains(v, ";") {
			return nil, fmt.Errorf("default %q cannot be written as a tag", v)
		}
		tag = append(tag, "default:"+v)
	}
	return tag, nil
}

func tagDefault(t schema.ColumnType, v any) (string, error) {
	switch t {
	case schema.Text, schema.UUID:
		return v.(string), nil
	case schema.Integer:
		if n, ok := v.(*big.Int); ok {
			return n.String(), nil
		}
		return fmt.Sprint(v), nil
	case schema.Boolean:
		return fmt.Sprint(v.(bool)), nil
	case schema.Date:
		return sqlite.FormatDate(v.(time.Time)), nil
	case schema.Blob:
		return hex.EncodeToString(v.([]byte)), nil
	case schema.JSON:
		raw, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("encoding default: %w", err)
		}
		return string(raw), nil
	}
	panic(schema.UnsupportedType(t))
}
