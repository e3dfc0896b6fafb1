package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/rapidgen/diff"
	"github.com/ridoystarlord/rapidgen/schema"
)

var diffVisual bool

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show differences between schema and database",
	Long: `Show the operations that would move the current database to the schema.

Examples:
  rapidgen diff               # Show differences in text format
  rapidgen diff --visual      # Show differences in tree format with colors
  rapidgen diff -c app.yaml   # Use another project file
`,
	Run: func(cmd *cobra.Command, args []string) {
		plan := mustPlan(cmd)

		if len(plan.ops) == 0 {
			fmt.Println("✅ No differences found between schema and database")
			return
		}

		if diffVisual {
			showVisualDiff(plan.ops)
		} else {
			showTextDiff(plan.ops)
		}
	},
}

func showVisualDiff(operations []diff.Operation) {
	fmt.Println("🌳 Schema Changes (Visual Diff)")
	fmt.Println(strings.Repeat("=", 50))

	showTableChanges(operations)
	showColumnChanges(operations)
	showRebuilds(operations)
}

func showTableChanges(operations []diff.Operation) {
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)

	fmt.Println("\n📋 Tables:")

	modified := map[string]bool{}
	for _, op := range operations {
		switch op.Type {
		case diff.CreateTable:
			green.Printf("  ➕ CREATE %s\n", op.TableName)
		case diff.DropTable:
			red.Printf("  ❌ DROP %s\n", op.TableName)
		default:
			if !modified[op.TableName] {
				modified[op.TableName] = true
				yellow.Printf("  ⚡ MODIFY %s\n", op.TableName)
			}
		}
	}
}

func showColumnChanges(operations []diff.Operation) {
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)

	var tables []string
	tableOps := make(map[string][]diff.Operation)
	for _, op := range operations {
		if op.Type == diff.AddColumn || op.Type == diff.DropColumn {
			if _, seen := tableOps[op.TableName]; !seen {
				tables = append(tables, op.TableName)
			}
			tableOps[op.TableName] = append(tableOps[op.TableName], op)
		}
	}
	if len(tables) == 0 {
		return
	}

	fmt.Println("\n📝 Columns:")
	for _, table := range tables {
		fmt.Printf("  📋 %s:\n", table)
		for _, op := range tableOps[table] {
			switch op.Type {
			case diff.AddColumn:
				green.Printf("    ➕ ADD %s %s\n", op.Column.Name, diff.ColumnDefinition(op.Column))
			case diff.DropColumn:
				red.Printf("    ❌ DROP %s\n", op.ColumnName)
			}
		}
	}
}

func showRebuilds(operations []diff.Operation) {
	blue := color.New(color.FgBlue, color.Bold)
	cyan := color.New(color.FgCyan)
	magenta := color.New(color.FgMagenta)

	var rebuilds []diff.Operation
	for _, op := range operations {
		if op.Type == diff.RebuildTable {
			rebuilds = append(rebuilds, op)
		}
	}
	if len(rebuilds) == 0 {
		return
	}

	fmt.Println("\n🔄 Rebuilds:")
	for _, op := range rebuilds {
		blue.Printf("  📋 %s (%s)\n", op.TableName, strings.Join(diff.SharedColumns(op.From, op.Model), ", "))
		for _, change := range columnChanges(op.From, op.Model) {
			cyan.Printf("    %s\n", change)
		}
		before, after := diff.ForeignKeys(op.From), diff.ForeignKeys(op.Model)
		if strings.Join(before, "\n") != strings.Join(after, "\n") {
			for _, fk := range before {
				magenta.Printf("    🔗 was %s\n", fk)
			}
			for _, fk := range after {
				magenta.Printf("    🔗 now %s\n", fk)
			}
		}
	}
}

// columnChanges describes how each column changes in a rebuild.
func columnChanges(from, to *schema.Model) []string {
	var changes []string
	for _, col := range from.Columns {
		next, ok := to.Column(col.Name)
		if !ok {
			changes = append(changes, fmt.Sprintf("❌ DROP %s", col.Name))
			continue
		}
		before, after := diff.ColumnDefinition(col), diff.ColumnDefinition(next)
		if before != after {
			changes = append(changes, fmt.Sprintf("🔧 %s: %s → %s", col.Name, before, after))
		}
	}
	for _, col := range to.Columns {
		if _, ok := from.Column(col.Name); !ok {
			changes = append(changes, fmt.Sprintf("➕ ADD %s %s", col.Name, diff.ColumnDefinition(col)))
		}
	}
	return changes
}

func showTextDiff(operations []diff.Operation) {
	fmt.Println("📋 Schema Changes (Text Format)")
	fmt.Println(strings.Repeat("=", 40))

	for i, op := range operations {
		fmt.Printf("%d. %s\n", i+1, op.Describe())
	}
}

func init() {
	diffCmd.Flags().BoolVarP(&diffVisual, "visual", "v", false, "Show changes in visual tree format")
}
