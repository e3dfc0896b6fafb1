package validator

import (
	"context"
	"fmt"
	"strings"

	"github.com/ridoystarlord/rapidgen/introspect"
	"github.com/ridoystarlord/rapidgen/logger"
	"github.com/ridoystarlord/rapidgen/schema"
	"github.com/ridoystarlord/rapidgen/sqlite"
)

const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// ValidationError represents a validation finding with details
type ValidationError struct {
	Type     string `json:"type"`
	Model    string `json:"model,omitempty"`
	Table    string `json:"table,omitempty"`
	Column   string `json:"column,omitempty"`
	Path     string `json:"path,omitempty"`
	Message  string `json:"message"`
	Severity string `json:"severity"` // "error", "warning", "info"
}

// ValidationResult contains all validation results
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationError `json:"errors"`
	Warnings []ValidationError `json:"warnings"`
	Info     []ValidationError `json:"info"`
}

func (r *ValidationResult) add(e ValidationError) {
	switch e.Severity {
	case SeverityError:
		r.Errors = append(r.Errors, e)
	case SeverityWarning:
		r.Warnings = append(r.Warnings, e)
	default:
		r.Info = append(r.Info, e)
	}
}

// reservedWords are SQLite keywords that are legal once quoted but awkward
// in hand-written SQL.
var reservedWords = map[string]bool{
	"all": true, "and": true, "as": true, "between": true, "by": true,
	"case": true, "check": true, "column": true, "default": true, "delete": true,
	"from": true, "group": true, "having": true, "in": true, "index": true,
	"insert": true, "is": true, "join": true, "key": true, "limit": true,
	"not": true, "null": true, "offset": true, "on": true, "or": true,
	"order": true, "primary": true, "references": true, "select": true, "set": true,
	"table": true, "to": true, "transaction": true, "union": true, "unique": true,
	"update": true, "values": true, "view": true, "when": true, "where": true,
}

// SchemaValidator validates models, optionally against an existing database.
type SchemaValidator struct {
	db sqlite.Executor
}

// NewSchemaValidator returns a validator. db may be nil, in which case
// database checks are skipped.
func NewSchemaValidator(db sqlite.Executor) *SchemaValidator {
	return &SchemaValidator{db: db}
}

// ValidateSchema validates the models as one unit. Structural problems found
// by schema validation are errors; the lints on top of a valid schema are
// warnings and info.
func (v *SchemaValidator) ValidateSchema(ctx context.Context, models []schema.ModelBuilder) (*ValidationResult, error) {
	result := &ValidationResult{
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
		Info:     []ValidationError{},
	}

	db, issues := schema.Validate(models...)
	for _, is := range issues {
		result.add(issueError(is))
	}

	if db != nil {
		for _, m := range db.Models {
			v.validateModel(m, result)
		}
		if v.db != nil {
			if err := v.validateAgainstDatabase(ctx, db, result); err != nil {
				return nil, fmt.Errorf("failed to validate against database: %w", err)
			}
		}
	}

	result.Valid = len(result.Errors) == 0
	logger.Debugf("validation finished: %d errors, %d warnings, %d info", len(result.Errors), len(result.Warnings), len(result.Info))
	return result, nil
}

// issueError turns a schema issue into a finding. Paths look like
// models.User.columns.email.default.
func issueError(is schema.Issue) ValidationError {
	e := ValidationError{
		Type:     "schema",
		Path:     strings.Join(is.Path, "."),
		Message:  is.Message,
		Severity: SeverityError,
	}
	if len(is.Path) > 1 && is.Path[0] == "models" {
		e.Model = is.Path[1]
	}
	if len(is.Path) > 3 && is.Path[2] == "columns" {
		e.Column = is.Path[3]
	}
	return e
}

func (v *SchemaValidator) validateModel(m *schema.Model, result *ValidationResult) {
	if len(m.Columns) == 0 {
		result.add(ValidationError{
			Type:     "no_columns",
			Model:    m.Name,
			Table:    m.TableName,
			Message:  fmt.Sprintf("Model '%s' has no columns", m.Name),
			Severity: SeverityError,
		})
		return
	}

	if reservedWords[strings.ToLower(m.TableName)] {
		result.add(ValidationError{
			Type:     "reserved_word",
			Model:    m.Name,
			Table:    m.TableName,
			Message:  fmt.Sprintf("Table name '%s' is an SQL keyword and must always be quoted", m.TableName),
			Severity: SeverityWarning,
		})
	}

	var primary []string
	for _, c := range m.Columns {
		if c.IsPrimary() {
			primary = append(primary, c.Name)
		}
		if reservedWords[strings.ToLower(c.Name)] {
			result.add(ValidationError{
				Type:     "reserved_word",
				Model:    m.Name,
				Table:    m.TableName,
				Column:   c.Name,
				Message:  fmt.Sprintf("Column name '%s' is an SQL keyword and must always be quoted", c.Name),
				Severity: SeverityWarning,
			})
		}
		if c.GeneratedAs != "" && c.Default != nil {
			result.add(ValidationError{
				Type:     "generated_default",
				Model:    m.Name,
				Table:    m.TableName,
				Column:   c.Name,
				Message:  fmt.Sprintf("Column '%s' is generated; its default is never used", c.Name),
				Severity: SeverityWarning,
			})
		}
	}

	switch {
	case len(primary) == 0:
		result.add(ValidationError{
			Type:     "no_primary_key",
			Model:    m.Name,
			Table:    m.TableName,
			Message:  fmt.Sprintf("Table '%s' has no primary key; rows are addressed by the implicit rowid", m.TableName),
			Severity: SeverityWarning,
		})
	case len(primary) > 1:
		result.add(ValidationError{
			Type:     "multiple_primary_keys",
			Model:    m.Name,
			Table:    m.TableName,
			Message:  fmt.Sprintf("Table '%s' marks %s as primary; SQLite accepts one column-level primary key", m.TableName, strings.Join(primary, ", ")),
			Severity: SeverityError,
		})
	}

	v.validateRelations(m, result)
}

func (v *SchemaValidator) validateRelations(m *schema.Model, result *ValidationResult) {
	for _, r := range m.Relations {
		if r.Type != schema.RelHasOne || r.Target == nil {
			continue
		}
		foreign, ok := r.Target.Column(r.ForeignColumn)
		if !ok || foreign.Unique || foreign.IsPrimary() {
			continue
		}
		result.add(ValidationError{
			Type:     "has_one_not_unique",
			Model:    m.Name,
			Table:    m.TableName,
			Path:     strings.Join([]string{"models", m.Name, "relations", r.Name}, "."),
			Message:  fmt.Sprintf("Relation '%s' is hasOne but %s.%s is not unique; the first matching row is returned", r.Name, r.ForeignModel, r.ForeignColumn),
			Severity: SeverityWarning,
		})
	}
}

func (v *SchemaValidator) validateAgainstDatabase(ctx context.Context, db *schema.Database, result *ValidationResult) error {
	tables, err := introspect.IntrospectDatabase(ctx, v.db)
	if err != nil {
		return err
	}

	existing := make(map[string]bool, len(tables))
	for _, t := range tables {
		existing[t.TableName] = true
	}
	declared := make(map[string]bool, len(db.Models))
	for _, m := range db.Models {
		declared[m.TableName] = true
		if existing[m.TableName] {
			result.add(ValidationError{
				Type:     "table_exists",
				Model:    m.Name,
				Table:    m.TableName,
				Message:  fmt.Sprintf("Table '%s' already exists in database", m.TableName),
				Severity: SeverityInfo,
			})
		}
	}
	for _, t := range tables {
		if !declared[t.TableName] {
			result.add(ValidationError{
				Type:     "table_not_declared",
				Table:    t.TableName,
				Message:  fmt.Sprintf("Table '%s' exists in database but no model declares it; the next migration drops it", t.TableName),
				Severity: SeverityWarning,
			})
		}
	}
	return nil
}
