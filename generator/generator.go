package generator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ridoystarlord/rapidgen/diff"
	"github.com/ridoystarlord/rapidgen/schema"
)

// Migration renders the SQL that moves from into to. It is empty when the
// two databases declare the same tables.
func Migration(from, to *schema.Database) string {
	return GenerateSQL(diff.Diff(from, to))
}

// GenerateSQL converts a list of Operations into one SQL script. Each
// operation becomes a block and blocks are separated by a blank line.
func GenerateSQL(ops []diff.Operation) string {
	var blocks []string

	for _, op := range ops {
		var stmt string
		switch op.Type {
		case diff.CreateTable:
			stmt = generateCreateTable(op.TableName, op.Model)

		case diff.DropTable:
			stmt = fmt.Sprintf(`DROP TABLE %s;`, quote(op.TableName))

		case diff.AddColumn:
			stmt = fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s;`,
				quote(op.TableName),
				diff.ColumnDefinition(op.Column),
			)

		case diff.DropColumn:
			stmt = fmt.Sprintf(`ALTER TABLE %s DROP COLUMN %s;`,
				quote(op.TableName),
				quote(op.ColumnName),
			)

		case diff.RebuildTable:
			stmt = generateRebuild(op.From, op.Model)

		default:
			panic(fmt.Sprintf("unsupported operation: %s", op.Type))
		}
		if stmt != "" {
			blocks = append(blocks, stmt)
		}
	}

	return strings.Join(blocks, "\n\n")
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func tableBody(m *schema.Model) string {
	lines := make([]string, 0, len(m.Columns))
	for _, col := range m.Columns {
		lines = append(lines, "  "+diff.ColumnDefinition(col))
	}
	for _, fk := range diff.ForeignKeys(m) {
		lines = append(lines, "  "+fk)
	}
	return strings.Join(lines, ",\n")
}

func generateCreateTable(table string, m *schema.Model) string {
	return fmt.Sprintf("CREATE TABLE %s (\n%s\n);", quote(table), tableBody(m))
}

// generateRebuild copies the table into a new one with the target shape.
// SQLite cannot change a column's type or constraints, or a table's foreign
// keys, in place.
func generateRebuild(from, to *schema.Model) string {
	transfer := "transfer" + to.TableName
	lines := []string{
		"BEGIN EXCLUSIVE TRANSACTION;",
		generateCreateTable(transfer, to),
	}

	shared := diff.SharedColumns(from, to)
	if len(shared) > 0 {
		quoted := make([]string, len(shared))
		for i, col := range shared {
			quoted[i] = quote(col)
		}
		cols := strings.Join(quoted, ", ")
		lines = append(lines,
			fmt.Sprintf("INSERT INTO %s ( %s )", transfer, cols),
			fmt.Sprintf("  SELECT %s", cols),
			fmt.Sprintf("  FROM %s;", quote(from.TableName)),
		)
	}

	lines = append(lines,
		fmt.Sprintf("DROP TABLE %s;", from.TableName),
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s;", transfer, to.TableName),
		"COMMIT TRANSACTION;",
	)
	return strings.Join(lines, "\n")
}

// MigrationFileName names a migration file after its creation time.
func MigrationFileName(now time.Time) string {
	return now.Format("20060102150405") + "_migration.sql"
}

// MigrationContent lays out the up and down scripts in the sections the
// runner reads back.
func MigrationContent(up, down string) string {
	return "-- migrate:up\n" + up + "\n\n-- migrate:down\n" + down + "\n"
}

// WriteMigrationFile saves the up and down scripts into a timestamped .sql
// file under dir and returns its path.
func WriteMigrationFile(dir, up, down string, now time.Time) (string, error) {
	// Ensure migrations folder exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating migrations folder: %v", err)
	}

	filename := filepath.Join(dir, MigrationFileName(now))
	if _, err := os.Stat(filename); err == nil {
		return "", fmt.Errorf("migration %s already exists", filename)
	}

	if err := os.WriteFile(filename, []byte(MigrationContent(up, down)), 0644); err != nil {
		return "", fmt.Errorf("writing migration file: %v", err)
	}

	return filename, nil
}
