package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/rapidgen/diff"
	"github.com/ridoystarlord/rapidgen/generator"
	"github.com/ridoystarlord/rapidgen/introspect"
	"github.com/ridoystarlord/rapidgen/loader"
	"github.com/ridoystarlord/rapidgen/schema"
	"github.com/ridoystarlord/rapidgen/sqlite"
)

var dryRunMigrate bool

// plan is the difference between the database and the declared schema.
type plan struct {
	project *loader.Project
	db      *sqlite.Database
	current *schema.Database
	target  *schema.Database
	ops     []diff.Operation
}

func mustPlan(cmd *cobra.Command) *plan {
	p := mustLoadProject()
	target, err := p.Schema()
	if err != nil {
		fmt.Println("❌ Loading schema:", err)
		os.Exit(1)
	}

	db := mustOpenDatabase(cmd.Context(), p)
	current, err := introspect.Database(cmd.Context(), db)
	if err != nil {
		fmt.Println("❌ Introspecting database:", err)
		os.Exit(1)
	}

	return &plan{
		project: p,
		db:      db,
		current: current,
		target:  target,
		ops:     diff.Diff(current, target),
	}
}

// writeMigration writes the plan as a migration file and returns its path.
// It refuses while migration files are pending, since the database would
// not yet reflect them.
func writeMigration(cmd *cobra.Command, pl *plan) (string, bool) {
	report, err := newRunner(pl.db, pl.project).Status(cmd.Context())
	if err != nil {
		fmt.Println("❌ Reading migration status:", err)
		os.Exit(1)
	}
	if len(report.Pending) > 0 {
		fmt.Printf("❌ %d migration files are not applied yet; run 'rapidgen apply' first\n", len(report.Pending))
		os.Exit(1)
	}

	if len(pl.ops) == 0 {
		fmt.Println("✅ No changes detected.")
		return "", false
	}

	up := generator.GenerateSQL(pl.ops)
	down := generator.Migration(pl.target, pl.current)

	if dryRunMigrate {
		fmt.Println("\n================ DRY RUN: Migration Preview ================")
		fmt.Println("-- Up Migration SQL --")
		fmt.Println(up)
		fmt.Println("\n-- Down Migration (Rollback) SQL --")
		fmt.Println(down)
		fmt.Println("============================================================")
		fmt.Println("(Dry run only. No files were written.)")
		return "", false
	}

	filename, err := generator.WriteMigrationFile(pl.project.Path(pl.project.Migrations.Dir), up, down, time.Now())
	if err != nil {
		fmt.Println("❌ Writing migration file:", err)
		os.Exit(1)
	}
	fmt.Println("✅ Migration generated:", filename)
	return filename, true
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Generate a migration file from the schema",
	Long: `Compare the schema with the current database and write the difference
as a migration file with up and down sections.

Examples:
  rapidgen migrate             # Write a new migration file
  rapidgen migrate --dry-run   # Print the SQL without writing files
`,
	Run: func(cmd *cobra.Command, args []string) {
		writeMigration(cmd, mustPlan(cmd))
	},
}

var automigrateCmd = &cobra.Command{
	Use:   "automigrate",
	Short: "Generate a migration file and apply it",
	Long: `Run migrate followed by apply.

Examples:
  rapidgen automigrate
  rapidgen automigrate --dry-run
`,
	Run: func(cmd *cobra.Command, args []string) {
		pl := mustPlan(cmd)
		if _, ok := writeMigration(cmd, pl); !ok {
			return
		}
		applyPending(cmd, pl.db, pl.project)
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&dryRunMigrate, "dry-run", false, "Preview the SQL that would be generated without writing files")
	automigrateCmd.Flags().BoolVar(&dryRunMigrate, "dry-run", false, "Preview the SQL that would be generated without writing or applying files")
}
