package loader

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"math/big"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/ridoystarlord/rapidgen/schema"
	"github.com/ridoystarlord/rapidgen/sqlite"
)

// TagName is the struct tag the tag loader reads.
const TagName = "rapid"

// TagLoader loads models from Go structs with rapid tags:
//
//	type User struct {
//		_     struct{} `rapid:"table:people;timestamps"`
//		ID    int64    `rapid:"autoincrement"`
//		Email string   `rapid:"unique"`
//		Bio   *string  `rapid:"column:about"`
//		Posts []Post   `rapid:"relation:hasMany;local:id;foreign:authorId"`
//	}
//
// Fields without the tag are ignored. The blank field carries model options.
type TagLoader struct {
	modelsDir string
}

func NewTagLoader(modelsDir string) *TagLoader {
	return &TagLoader{
		modelsDir: modelsDir,
	}
}

// LoadModelsFromTags loads the models declared under modelsDir.
func LoadModelsFromTags(modelsDir string) ([]schema.ModelBuilder, error) {
	return NewTagLoader(modelsDir).Load()
}

// Load parses every non-test .go file below the models directory in lexical order.
func (tl *TagLoader) Load() ([]schema.ModelBuilder, error) {
	if _, err := os.Stat(tl.modelsDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("models directory '%s' does not exist. Run 'rapidgen init' first", tl.modelsDir)
	}

	var models []schema.ModelBuilder
	err := filepath.WalkDir(tl.modelsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		fileModels, err := tl.parseGoFile(path)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		models = append(models, fileModels...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load models: %w", err)
	}
	return models, nil
}

func (tl *TagLoader) parseGoFile(filePath string) ([]schema.ModelBuilder, error) {
	fset := token.NewFileSet()
	node, err := parser.ParseFile(fset, filePath, nil, parser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}
	return tl.parseFile(fset, node)
}

func (tl *TagLoader) parseFile(fset *token.FileSet, node *ast.File) ([]schema.ModelBuilder, error) {
	var models []schema.ModelBuilder
	var firstErr error
	ast.Inspect(node, func(n ast.Node) bool {
		spec, ok := n.(*ast.TypeSpec)
		if !ok || firstErr != nil {
			return firstErr == nil
		}
		structType, ok := spec.Type.(*ast.StructType)
		if !ok {
			return true
		}
		model, ok, err := tl.parseStruct(spec.Name.Name, structType)
		if err != nil {
			firstErr = fmt.Errorf("%s: struct %s: %w", fset.Position(spec.Pos()), spec.Name.Name, err)
			return false
		}
		if ok {
			models = append(models, model)
		}
		return true
	})
	return models, firstErr
}

// parseStruct reports false for structs without any rapid tag.
func (tl *TagLoader) parseStruct(structName string, structType *ast.StructType) (schema.ModelBuilder, bool, error) {
	var (
		fields     []schema.FieldSpec
		table      string
		timestamps bool
		tagged     bool
	)
	for _, field := range structType.Fields.List {
		if len(field.Names) == 0 {
			continue
		}
		tag, ok := lookupTag(field.Tag)
		if !ok || tag == "-" {
			continue
		}
		tagged = true
		fieldName := field.Names[0].Name
		opts := parseTag(tag)

		if fieldName == "_" {
			table = opts.values["table"]
			timestamps = opts.flags["timestamps"]
			continue
		}
		if !ast.IsExported(fieldName) {
			continue
		}

		name := opts.values["column"]
		if name == "" {
			name = ColumnName(fieldName)
		}
		if rel, ok := opts.values["relation"]; ok {
			fields = append(fields, schema.Edge(name, schema.RelationOf(
				schema.RelationType(rel), opts.values["local"], targetModel(field.Type), opts.values["foreign"])))
			continue
		}

		col, err := columnFromTag(field.Type, opts)
		if err != nil {
			return schema.ModelBuilder{}, false, fmt.Errorf("field %s: %w", fieldName, err)
		}
		fields = append(fields, schema.Field(name, col))
	}
	if !tagged {
		return schema.ModelBuilder{}, false, nil
	}

	model := schema.NewModel(structName, fields...)
	if table != "" {
		model = model.InTable(table)
	}
	if timestamps {
		model = model.WithTimestamps()
	}
	return model, true, nil
}

func lookupTag(lit *ast.BasicLit) (string, bool) {
	if lit == nil {
		return "", false
	}
	raw, err := strconv.Unquote(lit.Value)
	if err != nil {
		return "", false
	}
	return reflect.StructTag(raw).Lookup(TagName)
}

type tagOptions struct {
	values map[string]string
	flags  map[string]bool
}

// parseTag splits "column:user_id;type:uuid;primary;unique". Values may
// contain colons; only the first one separates key and value.
func parseTag(tag string) tagOptions {
	opts := tagOptions{values: map[string]string{}, flags: map[string]bool{}}
	for _, part := range strings.Split(tag, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if key, value, ok := strings.Cut(part, ":"); ok {
			opts.values[strings.TrimSpace(key)] = strings.TrimSpace(value)
		} else {
			opts.flags[part] = true
		}
	}
	return opts
}

func columnFromTag(expr ast.Expr, opts tagOptions) (schema.ColumnBuilder, error) {
	goType, pointer := fieldType(expr)
	t := schema.ColumnType(opts.values["type"])
	if t == "" {
		t = inferDataType(goType)
	}

	col := schema.Of(t)
	switch {
	case opts.flags["autoincrement"]:
		col = col.Autoincrement()
	case opts.flags["primary"]:
		col = col.Primary()
	}
	if pointer || opts.flags["nullable"] {
		col = col.Nullable()
	}
	if opts.flags["unique"] {
		col = col.Unique()
	}
	if opts.flags["autogenerate"] {
		col = col.Autogenerate()
	}
	if expr, ok := opts.values["generated"]; ok {
		col = col.GeneratedAs(expr)
	}
	switch mode := opts.values["mode"]; mode {
	case "":
	case string(schema.CreatedAtMode):
		col = col.CreatedAt()
	case string(schema.UpdatedAtMode):
		col = col.UpdatedAt()
	default:
		return col, fmt.Errorf("unknown mode %q", mode)
	}
	if raw, ok := opts.values["default"]; ok {
		v, err := parseDefault(t, raw)
		if err != nil {
			return col, fmt.Errorf("default: %w", err)
		}
		col = col.Default(v)
	}
	return col, nil
}

// fieldType names the Go type of a field and reports whether it is a pointer.
func fieldType(expr ast.Expr) (string, bool) {
	if star, ok := expr.(*ast.StarExpr); ok {
		name, _ := fieldType(star.X)
		return name, true
	}
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name, false
	case *ast.ArrayType:
		elem, _ := fieldType(t.Elt)
		return "[]" + elem, false
	case *ast.SelectorExpr:
		if x, ok := t.X.(*ast.Ident); ok {
			return x.Name + "." + t.Sel.Name, false
		}
	case *ast.MapType:
		return "map", false
	case *ast.InterfaceType:
		return "any", false
	}
	return "", false
}

// targetModel is the struct a relation field points at: *User, []Post, []*Post.
func targetModel(expr ast.Expr) string {
	name, _ := fieldType(expr)
	name = strings.TrimPrefix(name, "[]")
	if i := strings.LastIndex(name, "."); i != -1 {
		name = name[i+1:]
	}
	return name
}

func inferDataType(goType string) schema.ColumnType {
	switch goType {
	case "string":
		return schema.Text
	case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64":
		return schema.Integer
	case "bool":
		return schema.Boolean
	case "time.Time":
		return schema.Date
	case "uuid.UUID":
		return schema.UUID
	case "[]byte", "[]uint8":
		return schema.Blob
	}
	return schema.JSON
}

// ColumnName lower-cases the first letter and spells a trailing ID as Id:
// ParentID -> parentId.
func ColumnName(fieldName string) string {
	if fieldName == "ID" {
		return "id"
	}
	if strings.HasSuffix(fieldName, "ID") {
		fieldName = strings.TrimSuffix(fieldName, "ID") + "Id"
	}
	return schema.LowerFirst(fieldName)
}

func parseDefault(t schema.ColumnType, raw string) (any, error) {
	switch t {
	case schema.Text, schema.UUID:
		return raw, nil
	case schema.Integer:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n, nil
		}
		wide, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			return nil, fmt.Errorf("%q is not an integer", raw)
		}
		return wide, nil
	case schema.Boolean:
		return strconv.ParseBool(raw)
	case schema.Date:
		return sqlite.ParseDate(raw)
	case schema.Blob:
		return hex.DecodeString(raw)
	case schema.JSON:
		var v any
		err := json.Unmarshal([]byte(raw), &v)
		return v, err
	}
	return raw, nil
}
