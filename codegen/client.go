package codegen

import (
	"bytes"
	"fmt"

	"github.com/dave/jennifer/jen"

	"github.com/ridoystarlord/rapidgen/schema"
)

const (
	// RuntimePackage is imported by generated clients.
	RuntimePackage = "github.com/ridoystarlord/rapidgen/sqlite"
	// RPCPackage is imported by generated server scaffolds.
	RPCPackage = "github.com/ridoystarlord/rapidgen/rpc"
	ginPackage = "github.com/gin-gonic/gin"
)

// Options controls the emitted package.
type Options struct {
	// Package is the package clause of the generated file. Defaults to "db".
	Package string
	// ClientPackage is the import path of the generated client, for a server
	// generated into a different package. Empty means the same package.
	ClientPackage string
}

func (o Options) pkg() string {
	if o.Package == "" {
		return "db"
	}
	return o.Package
}

type generator struct {
	db   *schema.Database
	opts Options
}

func (g *generator) newFile() *jen.File {
	f := jen.NewFile(g.opts.pkg())
	f.HeaderComment(generatedBanner)
	f.ImportName(RuntimePackage, "sqlite")
	return f
}

// rt qualifies a runtime identifier.
func (g *generator) rt(name string) *jen.Statement {
	return jen.Qual(RuntimePackage, name)
}

func render(f *jen.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, fmt.Errorf("rendering generated code: %w", err)
	}
	return buf.Bytes(), nil
}

// methods of the generated filter and sort types, which columns must not shadow.
var reservedFields = map[string]bool{"Chain": true, "UnmarshalJSON": true, "OrderTerms": true, "AND": true, "OR": true, "NOT": true}

func checkFields(m *schema.Model, cols []column) error {
	seen := map[string]string{}
	for _, c := range cols {
		if reservedFields[c.Field] {
			return fmt.Errorf("model %s: column %s collides with generated field %s", m.Name, c.Name, c.Field)
		}
		if other, ok := seen[c.Field]; ok {
			return fmt.Errorf("model %s: columns %s and %s both map to field %s", m.Name, other, c.Name, c.Field)
		}
		seen[c.Field] = c.Name
	}
	for _, r := range m.Relations {
		field := FieldName(r.Name)
		if reservedFields[field] {
			return fmt.Errorf("model %s: relation %s collides with generated field %s", m.Name, r.Name, field)
		}
		if other, ok := seen[field]; ok {
			return fmt.Errorf("model %s: relation %s and column %s both map to field %s", m.Name, r.Name, other, field)
		}
		seen[field] = r.Name
	}
	return nil
}

// GenerateClient emits the typed client for every model in db.
func GenerateClient(db *schema.Database, opts Options) ([]byte, error) {
	g := &generator{db: db, opts: opts}
	f := g.newFile()

	for _, m := range db.Models {
		if err := g.genModel(f, m); err != nil {
			return nil, err
		}
	}
	g.genClient(f)

	return render(f)
}

func (g *generator) genModel(f *jen.File, m *schema.Model) error {
	n := modelNames(m)
	cols, rowid := modelColumns(m)
	if err := checkFields(m, cols); err != nil {
		return err
	}

	g.genRowType(f, m, n, cols)
	g.genDataType(f, n, cols)
	g.genWhereType(f, m, n, cols)
	g.genOrderType(f, n, cols)
	g.genArgAliases(f, n)
	g.genFormatWhere(f, m, n, cols)
	g.genParse(f, n, cols)
	g.genSerialize(f, n, cols)
	hasCreate, err := g.genFillCreate(f, n, cols)
	if err != nil {
		return err
	}
	hasUpdate := g.genFillUpdate(f, n, cols)
	g.genDescriptor(f, m, n, cols, rowid, hasCreate, hasUpdate)
	return nil
}

func (g *generator) genRowType(f *jen.File, m *schema.Model, n names, cols []column) {
	f.Commentf("%s is a row of the %s table.", n.Type, m.TableName)
	f.Type().Id(n.Type).StructFunc(func(group *jen.Group) {
		for _, c := range cols {
			group.Id(c.Field).Add(g.goType(c)).Tag(map[string]string{"json": c.Name})
		}
	})
}

func (g *generator) genDataType(f *jen.File, n names, cols []column) {
	f.Commentf("%s holds the columns written by create and update. Unset fields are left out.", n.Data)
	f.Type().Id(n.Data).StructFunc(func(group *jen.Group) {
		for _, c := range cols {
			if !c.writable() {
				continue
			}
			group.Id(c.Field).Add(g.rt("Optional").Types(g.goType(c))).Tag(map[string]string{"json": c.Name})
		}
	})
}

func (g *generator) genWhereType(f *jen.File, m *schema.Model, n names, cols []column) {
	f.Type().Id(n.Where).StructFunc(func(group *jen.Group) {
		for _, c := range cols {
			typ, _ := whereFilter(c)
			if typ == "" {
				continue
			}
			group.Id(c.Field).Op("*").Add(g.rt(typ)).Tag(map[string]string{"json": c.Name + ",omitempty"})
		}
		for _, r := range m.Relations {
			target := modelNames(r.Target)
			filter := "WhereOneRelated"
			if r.Type == schema.RelHasMany {
				filter = "WhereManyRelated"
			}
			group.Id(FieldName(r.Name)).Op("*").Add(g.rt(filter).Types(jen.Id(target.Where))).
				Tag(map[string]string{"json": r.Name + ",omitempty"})
		}
		for _, op := range []string{"AND", "OR", "NOT"} {
			group.Id(op).Add(g.rt("MaybeArray").Types(jen.Op("*").Id(n.Where))).Tag(map[string]string{"json": op + ",omitempty"})
		}
	})

	recv := jen.Id("w").Op("*").Id(n.Where)
	f.Func().Params(recv).Id("Chain").Params().Params(
		jen.List(jen.Id("and"), jen.Id("or"), jen.Id("not")).Index().Op("*").Id(n.Where),
	).Block(
		jen.If(jen.Id("w").Op("==").Nil()).Block(jen.Return(jen.Nil(), jen.Nil(), jen.Nil())),
		jen.Return(jen.Id("w").Dot("AND"), jen.Id("w").Dot("OR"), jen.Id("w").Dot("NOT")),
	)

	f.Func().Params(recv.Clone()).Id("UnmarshalJSON").Params(jen.Id("data").Index().Byte()).Error().Block(
		jen.Type().Id("plain").Id(n.Where),
		jen.Return(g.rt("UnmarshalWhere").Call(
			jen.Id("data"),
			jen.Parens(jen.Op("*").Id("plain")).Parens(jen.Id("w")),
			jen.Func().Params(jen.Id("key").String()).BlockFunc(func(body *jen.Group) {
				body.Switch(jen.Id("key")).BlockFunc(func(cases *jen.Group) {
					for _, c := range cols {
						null := g.isNull(c)
						if null == nil {
							continue
						}
						cases.Case(jen.Lit(c.Name)).Block(jen.Id("w").Dot(c.Field).Op("=").Add(null))
					}
				})
			}),
		)),
	)
}

// isNull is the filter matching rows where the column IS NULL, or nil for
// columns that are not filterable.
func (g *generator) isNull(c column) *jen.Statement {
	switch typ, _ := whereFilter(c); typ {
	case "WhereString":
		return g.rt("StringIsNull").Call()
	case "WhereBoolean":
		return g.rt("BoolIsNull").Call()
	case "WhereNumber":
		return g.rt("IsNull").Types(jen.Int64()).Call()
	case "WhereDate":
		return g.rt("IsNull").Types(jen.Qual("time", "Time")).Call()
	case "WhereUUID":
		return g.rt("IsNull").Types(jen.String()).Call()
	case "WhereBlob":
		return g.rt("IsNull").Types(jen.Index().Byte()).Call()
	}
	return nil
}

func (g *generator) genOrderType(f *jen.File, n names, cols []column) {
	f.Type().Id(n.Order).StructFunc(func(group *jen.Group) {
		for _, c := range cols {
			if !c.filterable() {
				continue
			}
			group.Id(c.Field).Op("*").Add(g.rt("SortOrder")).Tag(map[string]string{"json": c.Name + ",omitempty"})
		}
	})

	f.Func().Params(jen.Id("o").Id(n.Order)).Id("OrderTerms").Params().Index().Add(g.rt("OrderTerm")).BlockFunc(func(body *jen.Group) {
		body.Var().Id("terms").Index().Add(g.rt("OrderTerm"))
		for _, c := range cols {
			if !c.filterable() {
				continue
			}
			body.If(jen.Id("o").Dot(c.Field).Op("!=").Nil()).Block(
				jen.Id("terms").Op("=").Append(jen.Id("terms"), g.rt("OrderTerm").Values(jen.Dict{
					jen.Id("Column"): jen.Lit(c.Name),
					jen.Id("Order"):  jen.Op("*").Id("o").Dot(c.Field),
				})),
			)
		}
		body.Return(jen.Id("terms"))
	})
}

func (g *generator) genArgAliases(f *jen.File, n names) {
	where, order, data := jen.Id(n.Where), jen.Id(n.Order), jen.Id(n.Data)
	f.Type().Defs(
		jen.Id(n.Client).Op("=").Add(g.rt("ModelClient").Types(jen.Id(n.Type), where, order, data)),
		jen.Id(n.FindFirstArgs).Op("=").Add(g.rt("FindFirstArgs").Types(where, order)),
		jen.Id(n.FindManyArgs).Op("=").Add(g.rt("FindManyArgs").Types(where, order)),
		jen.Id(n.CreateArgs).Op("=").Add(g.rt("CreateArgs").Types(data)),
		jen.Id(n.CreateManyArgs).Op("=").Add(g.rt("CreateManyArgs").Types(data)),
		jen.Id(n.UpdateManyArgs).Op("=").Add(g.rt("UpdateManyArgs").Types(where, order, data)),
		jen.Id(n.DeleteManyArgs).Op("=").Add(g.rt("DeleteManyArgs").Types(where, order)),
	)
}

// genFormatWhere emits the filter compiler as two functions rather than a
// package variable, since a self-referencing relation would otherwise be an
// initialization cycle.
func (g *generator) genFormatWhere(f *jen.File, m *schema.Model, n names, cols []column) {
	ns := jen.Id("ns").Add(g.rt("Namespace"))

	f.Func().Id(n.formatWhere).Params(jen.Id("w").Op("*").Id(n.Where), ns.Clone()).Add(g.rt("Template")).Block(
		jen.Return(g.rt("MakeWhereChained").Call(jen.Id("w"), jen.Id("ns"), jen.Id(n.whereComponents))),
	)

	f.Func().Id(n.whereComponents).Params(jen.Id("w").Op("*").Id(n.Where), ns.Clone()).Index().Add(g.rt("Template")).BlockFunc(func(body *jen.Group) {
		body.If(jen.Id("w").Op("==").Nil()).Block(jen.Return(jen.Nil()))
		body.Var().Id("parts").Index().Add(g.rt("Template"))
		for _, c := range cols {
			_, compile := whereFilter(c)
			if compile == "" {
				continue
			}
			body.If(jen.Id("w").Dot(c.Field).Op("!=").Nil()).Block(
				jen.Id("parts").Op("=").Append(jen.Id("parts"),
					g.rt(compile).Call(jen.Id("ns").Dot("ID").Call(jen.Lit(c.Name)), jen.Id("w").Dot(c.Field))),
			)
		}
		for _, r := range m.Relations {
			target := modelNames(r.Target)
			compile := "MakeWhereOneRelated"
			if r.Type == schema.RelHasMany {
				compile = "MakeWhereManyRelated"
			}
			ref := g.rt("RelationRef").Values(jen.Dict{
				jen.Id("Name"):          jen.Lit(r.Name),
				jen.Id("LocalColumn"):   jen.Lit(r.LocalColumn),
				jen.Id("ForeignTable"):  jen.Lit(r.Target.TableName),
				jen.Id("ForeignColumn"): jen.Lit(r.ForeignColumn),
			})
			field := FieldName(r.Name)
			body.If(jen.Id("w").Dot(field).Op("!=").Nil()).Block(
				jen.Id("parts").Op("=").Append(jen.Id("parts"),
					g.rt(compile).Call(jen.Id("ns"), ref, jen.Id("w").Dot(field), jen.Id(target.formatWhere))),
			)
		}
		body.Return(jen.Id("parts"))
	})
}

func (g *generator) genParse(f *jen.File, n names, cols []column) {
	f.Func().Id(n.parse).Params(jen.Id("row").Add(g.rt("Row"))).Params(jen.Op("*").Id(n.Type), jen.Error()).Block(
		jen.Id("r").Op(":=").Add(g.rt("NewRowReader")).Call(jen.Id("row")),
		jen.Id("v").Op(":=").Op("&").Id(n.Type).Values(jen.DictFunc(func(d jen.Dict) {
			for _, c := range cols {
				d[jen.Id(c.Field)] = g.readExpr(c)
			}
		})),
		jen.Return(jen.Id("v"), jen.Id("r").Dot("Err").Call()),
	)
}

func (g *generator) genSerialize(f *jen.File, n names, cols []column) {
	f.Func().Id(n.serialize).Params(jen.Id("d").Id(n.Data)).Params(g.rt("Values"), jen.Error()).BlockFunc(func(body *jen.Group) {
		body.Var().Id("v").Add(g.rt("Values"))
		for _, c := range cols {
			if !c.writable() {
				continue
			}
			value := jen.Id("d").Dot(c.Field).Dot("Value")
			set := func(v jen.Code) jen.Code {
				return jen.Id("v").Op("=").Id("v").Dot("Set").Call(jen.Lit(c.Name), v)
			}
			if c.Type != schema.JSON {
				body.If(jen.Id("d").Dot(c.Field).Dot("Valid")).Block(set(value))
				continue
			}
			encode := "EncodeJSON"
			if c.Nullable {
				encode = "EncodeNullableJSON"
			}
			body.If(jen.Id("d").Dot(c.Field).Dot("Valid")).Block(
				jen.List(jen.Id("encoded"), jen.Err()).Op(":=").Add(g.rt(encode)).Call(value),
				jen.If(jen.Err().Op("!=").Nil()).Block(
					jen.Return(jen.Nil(), jen.Qual("fmt", "Errorf").Call(jen.Lit(c.Name+": %w"), jen.Err())),
				),
				set(jen.Id("encoded")),
			)
		}
		body.Return(jen.Id("v"), jen.Nil())
	})
}

// genFillCreate emits the create defaults: timestamps, autogenerated uuids
// and column defaults, each applied only where the caller left the column
// unset. It reports false when the model has nothing to fill.
func (g *generator) genFillCreate(f *jen.File, n names, cols []column) (bool, error) {
	var stmts []jen.Code
	needsNow := false
	for _, c := range cols {
		if !c.writable() {
			continue
		}
		var value jen.Code
		switch {
		case c.Type == schema.Date && c.Mode != schema.NoMode:
			value = jen.Id("now")
			needsNow = true
		case c.Type == schema.UUID && c.Autogenerate:
			value = jen.Id("env").Dot("NewUUID").Call()
		case c.Default != nil && c.Default.Value != nil:
			expr, err := g.defaultExpr(c)
			if err != nil {
				return false, err
			}
			value = expr
		default:
			continue
		}
		stmts = append(stmts, jen.If(jen.Op("!").Id("d").Dot(c.Field).Dot("Valid")).Block(
			jen.Id("d").Dot(c.Field).Op("=").Add(g.some(c, value)),
		))
	}
	if len(stmts) == 0 {
		return false, nil
	}
	f.Func().Id(n.fillCreate).Params(jen.Id("d").Id(n.Data), jen.Id("env").Add(g.rt("Env"))).Id(n.Data).BlockFunc(func(body *jen.Group) {
		if needsNow {
			body.Id("now").Op(":=").Id("env").Dot("Now").Call()
		}
		for _, s := range stmts {
			body.Add(s)
		}
		body.Return(jen.Id("d"))
	})
	return true, nil
}

func (g *generator) genFillUpdate(f *jen.File, n names, cols []column) bool {
	var stamps []column
	for _, c := range cols {
		if c.writable() && c.Type == schema.Date && c.Mode == schema.UpdatedAtMode {
			stamps = append(stamps, c)
		}
	}
	if len(stamps) == 0 {
		return false
	}
	f.Func().Id(n.fillUpdate).Params(jen.Id("d").Id(n.Data), jen.Id("env").Add(g.rt("Env"))).Id(n.Data).BlockFunc(func(body *jen.Group) {
		body.Id("now").Op(":=").Id("env").Dot("Now").Call()
		for _, c := range stamps {
			body.If(jen.Op("!").Id("d").Dot(c.Field).Dot("Valid")).Block(
				jen.Id("d").Dot(c.Field).Op("=").Add(g.some(c, jen.Id("now"))),
			)
		}
		body.Return(jen.Id("d"))
	})
	return true
}

func (g *generator) genDescriptor(f *jen.File, m *schema.Model, n names, cols []column, rowid string, hasCreate, hasUpdate bool) {
	f.Var().Id(n.descriptor).Op("=").Op("&").Add(g.rt("Model").Types(jen.Id(n.Type), jen.Id(n.Where), jen.Id(n.Order), jen.Id(n.Data))).Values(jen.DictFunc(func(d jen.Dict) {
		d[jen.Id("Table")] = jen.Lit(m.TableName)
		d[jen.Id("Columns")] = jen.Index().String().ValuesFunc(func(vals *jen.Group) {
			for _, c := range cols {
				vals.Lit(c.Name)
			}
		})
		d[jen.Id("RowID")] = jen.Lit(rowid)
		d[jen.Id("Where")] = jen.Id(n.formatWhere)
		d[jen.Id("Parse")] = jen.Id(n.parse)
		d[jen.Id("Serialize")] = jen.Id(n.serialize)
		if hasCreate {
			d[jen.Id("FillCreate")] = jen.Id(n.fillCreate)
		}
		if hasUpdate {
			d[jen.Id("FillUpdate")] = jen.Id(n.fillUpdate)
		}
	}))
}

func (g *generator) genClient(f *jen.File) {
	f.Comment("Client exposes one model client per table over a shared executor.")
	f.Type().Id("Client").StructFunc(func(group *jen.Group) {
		group.Id("DB").Add(g.rt("Executor"))
		for _, m := range g.db.Models {
			n := modelNames(m)
			group.Id(n.ClientField).Op("*").Id(n.Client)
		}
	})

	f.Func().Id("NewClient").Params(
		jen.Id("db").Add(g.rt("Executor")),
		jen.Id("opts").Op("...").Add(g.rt("ClientOption")),
	).Op("*").Id("Client").Block(
		jen.Id("env").Op(":=").Add(g.rt("NewEnv")).Call(jen.Id("opts").Op("...")),
		jen.Return(jen.Op("&").Id("Client").Values(jen.DictFunc(func(d jen.Dict) {
			d[jen.Id("DB")] = jen.Id("db")
			for _, m := range g.db.Models {
				n := modelNames(m)
				d[jen.Id(n.ClientField)] = g.rt("NewModelClient").Call(jen.Id("db"), jen.Id(n.descriptor), jen.Id("env"))
			}
		}))),
	)
}
