package schema

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/go-openapi/inflect"
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether name can be used unquoted as a model,
// table, column or relation name.
func ValidIdentifier(name string) bool {
	return identifierRe.MatchString(name)
}

// Issue is one validation problem, addressed by a path into the schema such as
// ["models", "User", "relations", "posts", "foreignColumn"].
type Issue struct {
	Path    []string `json:"path"`
	Message string   `json:"message"`
}

func (i Issue) String() string {
	return strings.Join(i.Path, ".") + ": " + i.Message
}

// Error is returned by Build and carries every issue found.
type Error struct {
	Issues []Issue
}

func (e *Error) Error() string {
	lines := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		lines[i] = is.String()
	}
	return fmt.Sprintf("invalid schema (%d issues):\n  %s", len(e.Issues), strings.Join(lines, "\n  "))
}

// DefaultTableName pluralizes the lower-first model name: User -> users.
func DefaultTableName(modelName string) string {
	return inflect.Pluralize(LowerFirst(modelName))
}

func LowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToLower(r)) + s[n:]
}

func UpperFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

// Build validates the models as one unit and returns the resolved Database.
// Either every check passes or no Database is returned.
func Build(models ...ModelBuilder) (*Database, error) {
	db, issues := Validate(models...)
	if len(issues) > 0 {
		return nil, &Error{Issues: issues}
	}
	return db, nil
}

// MustBuild is Build that panics on error. Intended for schemas declared in code.
func MustBuild(models ...ModelBuilder) *Database {
	db, err := Build(models...)
	if err != nil {
		panic(err)
	}
	return db
}

// Validate collects all issues instead of stopping at the first one. The
// Database is nil whenever issues is non-empty.
func Validate(models ...ModelBuilder) (*Database, []Issue) {
	var issues []Issue
	add := func(msg string, path ...string) {
		issues = append(issues, Issue{Path: path, Message: msg})
	}

	db := &Database{byName: make(map[string]*Model, len(models))}

	// Phase 1: materialize models and columns by value.
	for _, mb := range models {
		m := &Model{
			Name:      mb.name,
			TableName: mb.tableName,
			columns:   make(map[string]*Column),
		}
		if m.TableName == "" {
			m.TableName = DefaultTableName(m.Name)
		}

		if !ValidIdentifier(m.Name) {
			add("model name cannot be used as an identifier ", "models", m.Name, "name")
		}
		if !ValidIdentifier(m.TableName) {
			add("table name cannot be used as an identifier ", "models", m.Name, "tableName")
		}
		if _, dup := db.byName[m.Name]; dup {
			add("Duplicate model name", "models", m.Name, "name")
		}

		for _, f := range mb.fields {
			if f.column == nil {
				continue
			}
			c := *f.column
			if !ValidIdentifier(c.Name) {
				add("column name cannot be used as an identifier ", "models", m.Name, "columns", c.Name, "name")
			}
			if _, dup := m.columns[c.Name]; dup {
				add("Duplicate column name", "models", m.Name, "columns", c.Name, "name")
				continue
			}
			for _, is := range checkColumn(&c) {
				add(is.Message, append([]string{"models", m.Name, "columns", c.Name}, is.Path...)...)
			}
			m.Columns = append(m.Columns, &c)
			m.columns[c.Name] = &c
		}

		for _, f := range mb.fields {
			if f.relation == nil {
				continue
			}
			r := *f.relation
			if !ValidIdentifier(r.Name) {
				add("relation name cannot be used as an identifier ", "models", m.Name, "relations", r.Name, "name")
			}
			if _, clash := m.columns[r.Name]; clash {
				add("Relation name collides with column name", "models", m.Name, "relations", r.Name, "name")
			}
			if _, dup := m.Relation(r.Name); dup {
				add("Duplicate relation name", "models", m.Name, "relations", r.Name, "name")
				continue
			}
			m.Relations = append(m.Relations, &r)
		}

		if _, dup := db.byName[m.Name]; !dup {
			db.byName[m.Name] = m
			db.Models = append(db.Models, m)
		}
	}

	// Phase 2: resolve relations against the finished lookup table.
	for _, m := range db.Models {
		for _, r := range m.Relations {
			path := func(field string) []string {
				return []string{"models", m.Name, "relations", r.Name, field}
			}
			switch r.Type {
			case RelBelongsTo, RelHasOne, RelHasMany:
			default:
				add(fmt.Sprintf("Invalid relation type %q", r.Type), path("type")...)
			}

			local, hasLocal := m.Column(r.LocalColumn)
			if !hasLocal {
				add("Invalid local column", path("localColumn")...)
			}
			target, ok := db.Model(r.ForeignModel)
			if !ok {
				add("Invalid foreign model", path("foreignModel")...)
				continue
			}
			foreign, ok := target.Column(r.ForeignColumn)
			if !ok {
				add("Invalid foreign column", path("foreignColumn")...)
				continue
			}
			if hasLocal && local.Type != foreign.Type {
				add("Local and foreign columns have different types", path("foreignColumn")...)
			}
			r.Target = target
		}
	}

	if len(issues) > 0 {
		return nil, issues
	}
	return db, nil
}

// checkColumn returns issues with paths relative to the column.
func checkColumn(c *Column) []Issue {
	var issues []Issue
	add := func(field, msg string) {
		issues = append(issues, Issue{Path: []string{field}, Message: msg})
	}

	if !c.Type.Valid() {
		add("type", UnsupportedType(c.Type))
		return issues
	}
	if c.Primary == PrimaryAutoincrement && c.Type != Integer {
		add("primary", "autoincrement is only valid on integer columns")
	}
	if c.Mode != NoMode {
		if c.Type != Date {
			add("mode", "mode is only valid on date columns")
		} else if c.Mode != CreatedAtMode && c.Mode != UpdatedAtMode {
			add("mode", fmt.Sprintf("unknown mode %q", c.Mode))
		}
	}
	if c.Autogenerate && c.Type != UUID {
		add("autogenerate", "autogenerate is only valid on uuid columns")
	}
	if c.Default != nil && !defaultMatches(c.Type, c.Default.Value) {
		add("default", fmt.Sprintf("default value %v (%T) does not match column type %s", c.Default.Value, c.Default.Value, c.Type))
	}
	return issues
}

func defaultMatches(t ColumnType, v any) bool {
	switch t {
	case Text, UUID:
		_, ok := v.(string)
		return ok
	case Integer:
		switch v.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, *big.Int:
			return true
		}
		return false
	case Date:
		_, ok := v.(time.Time)
		return ok
	case Boolean:
		_, ok := v.(bool)
		return ok
	case Blob:
		_, ok := v.([]byte)
		return ok
	case JSON:
		return true
	default:
		panic(UnsupportedType(t))
	}
}
