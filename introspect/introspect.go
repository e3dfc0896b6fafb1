package introspect

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/ridoystarlord/rapidgen/logger"
	"github.com/ridoystarlord/rapidgen/schema"
	"github.com/ridoystarlord/rapidgen/sqlite"
)

type ExistingTable struct {
	TableName   string
	SQL         string
	Columns     []ExistingColumn
	ForeignKeys []ExistingForeignKey
}

type ExistingColumn struct {
	ColumnName      string
	DataType        string
	IsNullable      bool
	ColumnDefault   *string // raw SQL literal
	IsPrimaryKey    bool
	IsAutoincrement bool
	IsUnique        bool
	GeneratedAs     string
}

type ExistingForeignKey struct {
	ColumnName       string
	ReferencesTable  string
	ReferencesColumn string
}

var tablesQuery = sqlite.Raw(`SELECT name, sql FROM sqlite_master WHERE type = 'table' AND name NOT IN ( 'sqlite_sequence', 'schema_migrations', 'migration_logs' ) AND name NOT LIKE 'sqlite\_%' ESCAPE '\'`)

var generatedRe = regexp.MustCompile(`(?is)GENERATED\s+ALWAYS\s+AS\s*\((.*)\)`)

// IntrospectDatabase reads every user table's CREATE statement. Only DDL of
// the shape rapidgen itself emits is understood.
func IntrospectDatabase(ctx context.Context, db sqlite.Executor) ([]ExistingTable, error) {
	rows, err := db.All(ctx, tablesQuery)
	if err != nil {
		return nil, fmt.Errorf("querying tables: %w", err)
	}

	var tables []ExistingTable
	for _, row := range rows {
		name, _ := row["name"].(string)
		ddl, _ := row["sql"].(string)
		table, err := ParseTable(name, ddl)
		if err != nil {
			return nil, err
		}
		logger.Debugf("introspected table %s: %d columns, %d foreign keys", name, len(table.Columns), len(table.ForeignKeys))
		tables = append(tables, table)
	}
	return tables, nil
}

// Database introspects db and rebuilds the schema it was migrated to.
func Database(ctx context.Context, db sqlite.Executor) (*schema.Database, error) {
	tables, err := IntrospectDatabase(ctx, db)
	if err != nil {
		return nil, err
	}
	models, err := Models(tables)
	if err != nil {
		return nil, err
	}
	return schema.Build(models...)
}

// ParseTable parses one CREATE TABLE statement.
func ParseTable(name, ddl string) (ExistingTable, error) {
	table := ExistingTable{TableName: name, SQL: ddl}
	open, end := strings.Index(ddl, "("), strings.LastIndex(ddl, ")")
	if open == -1 || end < open {
		return table, fmt.Errorf("table %s: no column list in %q", name, ddl)
	}

	for _, def := range splitDefinitions(ddl[open+1 : end]) {
		tokens, err := tokenize(def)
		if err != nil {
			return table, fmt.Errorf("table %s: %w", name, err)
		}
		if len(tokens) == 0 {
			continue
		}
		if len(tokens) > 1 && strings.EqualFold(tokens[0], "FOREIGN") && strings.EqualFold(tokens[1], "KEY") {
			fk, err := parseForeignKey(tokens)
			if err != nil {
				return table, fmt.Errorf("table %s: %w", name, err)
			}
			table.ForeignKeys = append(table.ForeignKeys, fk)
			continue
		}
		col, err := parseColumn(def, tokens)
		if err != nil {
			return table, fmt.Errorf("table %s: %w", name, err)
		}
		table.Columns = append(table.Columns, col)
	}
	return table, nil
}

func parseColumn(def string, tokens []string) (ExistingColumn, error) {
	if len(tokens) < 2 {
		return ExistingColumn{}, fmt.Errorf("column %s has no type", tokens[0])
	}
	col := ExistingColumn{
		ColumnName: tokens[0],
		DataType:   strings.ToUpper(tokens[1]),
	}
	opts := tokens[2:]

	col.IsAutoincrement = hasWords(opts, "AUTOINCREMENT")
	col.IsPrimaryKey = col.IsAutoincrement || hasWords(opts, "PRIMARY", "KEY")
	col.IsUnique = hasWords(opts, "UNIQUE")
	col.IsNullable = !hasWords(opts, "NOT", "NULL")

	for i, tok := range opts {
		if !strings.EqualFold(tok, "DEFAULT") {
			continue
		}
		if i+1 == len(opts) || strings.HasPrefix(opts[i+1], "(") {
			return col, fmt.Errorf("unsupported default value on %s", col.ColumnName)
		}
		v := opts[i+1]
		col.ColumnDefault = &v
		break
	}
	if m := generatedRe.FindStringSubmatch(def); m != nil {
		col.GeneratedAs = strings.TrimSpace(m[1])
	}
	return col, nil
}

// parseForeignKey accepts FOREIGN KEY ( local ) REFERENCES table ( column ).
func parseForeignKey(tokens []string) (ExistingForeignKey, error) {
	if len(tokens) != 10 || tokens[2] != "(" || tokens[4] != ")" ||
		!strings.EqualFold(tokens[5], "REFERENCES") || tokens[7] != "(" || tokens[9] != ")" {
		return ExistingForeignKey{}, fmt.Errorf("unsupported foreign key: %s", strings.Join(tokens, " "))
	}
	return ExistingForeignKey{
		ColumnName:       tokens[3],
		ReferencesTable:  tokens[6],
		ReferencesColumn: tokens[8],
	}, nil
}

// ModelName is the model an introspected table becomes: users -> User.
func ModelName(table string) string {
	return schema.UpperFirst(inflect.Singularize(table))
}

// Models converts introspected tables to model builders. Storage classes map
// back to blob, integer and text; foreign keys become belongsTo relations
// named relation0, relation1 and so on.
func Models(tables []ExistingTable) ([]schema.ModelBuilder, error) {
	models := make([]schema.ModelBuilder, 0, len(tables))
	for _, t := range tables {
		var fields []schema.FieldSpec
		for _, c := range t.Columns {
			col, err := columnBuilder(c)
			if err != nil {
				return nil, fmt.Errorf("table %s: %w", t.TableName, err)
			}
			fields = append(fields, schema.Field(c.ColumnName, col))
		}
		for i, fk := range t.ForeignKeys {
			fields = append(fields, schema.Edge(fmt.Sprintf("relation%d", i),
				schema.BelongsTo(fk.ColumnName, ModelName(fk.ReferencesTable), fk.ReferencesColumn)))
		}
		models = append(models, schema.NewModel(ModelName(t.TableName), fields...).InTable(t.TableName))
	}
	return models, nil
}

func columnBuilder(c ExistingColumn) (schema.ColumnBuilder, error) {
	var col schema.ColumnBuilder
	switch c.DataType {
	case "BLOB":
		col = schema.BlobColumn()
	case "INTEGER":
		col = schema.IntegerColumn()
	case "TEXT":
		col = schema.TextColumn()
	default:
		return col, fmt.Errorf("unsupported column type on %s: %s", c.ColumnName, c.DataType)
	}

	switch {
	case c.IsAutoincrement:
		col = col.Autoincrement()
	case c.IsPrimaryKey:
		col = col.Primary()
	}
	if c.IsUnique {
		col = col.Unique()
	}
	if c.IsNullable {
		col = col.Nullable()
	}
	if c.ColumnDefault != nil {
		v, err := parseDefault(c.DataType, *c.ColumnDefault)
		if err != nil {
			return col, fmt.Errorf("default of %s: %w", c.ColumnName, err)
		}
		col = col.Default(v)
	}
	if c.GeneratedAs != "" {
		col = col.GeneratedAs(c.GeneratedAs)
	}
	return col, nil
}

func parseDefault(dataType, raw string) (any, error) {
	switch dataType {
	case "BLOB":
		if len(raw) < 3 || (raw[0] != 'x' && raw[0] != 'X') || raw[1] != '\'' || raw[len(raw)-1] != '\'' {
			return nil, fmt.Errorf("invalid blob literal %s", raw)
		}
		return hex.DecodeString(raw[2 : len(raw)-1])
	case "INTEGER":
		n, err := strconv.ParseInt(raw, 10, 64)
		if err == nil {
			return n, nil
		}
		wide, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			return nil, fmt.Errorf("invalid integer literal %s", raw)
		}
		return wide, nil
	case "TEXT":
		if len(raw) < 2 || raw[0] != '\'' || raw[len(raw)-1] != '\'' {
			return nil, fmt.Errorf("invalid text literal %s", raw)
		}
		return strings.ReplaceAll(raw[1:len(raw)-1], "''", "'"), nil
	}
	return nil, fmt.Errorf("unsupported column type %s", dataType)
}

// hasWords reports whether words appear consecutively in tokens, ignoring case.
func hasWords(tokens []string, words ...string) bool {
	for i := 0; i+len(words) <= len(tokens); i++ {
		match := true
		for j, w := range words {
			if !strings.EqualFold(tokens[i+j], w) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// splitDefinitions splits a column list on commas outside parentheses and quotes.
func splitDefinitions(body string) []string {
	var (
		defs  []string
		depth int
		quote byte
		start int
	)
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == ',' && depth == 0:
			defs = append(defs, strings.TrimSpace(body[start:i]))
			start = i + 1
		}
	}
	if rest := strings.TrimSpace(body[start:]); rest != "" {
		defs = append(defs, rest)
	}
	return defs
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// tokenize splits a definition into words. Double-quoted identifiers are
// unquoted; single-quoted strings are kept verbatim with their quotes.
func tokenize(def string) ([]string, error) {
	var tokens []string
	for i := 0; i < len(def); {
		c := def[i]
		switch {
		case isSpace(c):
			i++
		case c == '"':
			var b strings.Builder
			j := i + 1
			for ; ; j++ {
				if j >= len(def) {
					return nil, fmt.Errorf("unterminated identifier in %q", def)
				}
				if def[j] == '"' {
					if j+1 < len(def) && def[j+1] == '"' {
						b.WriteByte('"')
						j++
						continue
					}
					break
				}
				b.WriteByte(def[j])
			}
			tokens = append(tokens, b.String())
			i = j + 1
		case c == '\'':
			j := i + 1
			for ; ; j++ {
				if j >= len(def) {
					return nil, fmt.Errorf("unterminated string in %q", def)
				}
				if def[j] == '\'' {
					if j+1 < len(def) && def[j+1] == '\'' {
						j++
						continue
					}
					break
				}
			}
			tokens = append(tokens, def[i:j+1])
			i = j + 1
		default:
			j := i
			for j < len(def) && !isSpace(def[j]) {
				j++
			}
			tokens = append(tokens, def[i:j])
			i = j
		}
	}
	return tokens, nil
}
