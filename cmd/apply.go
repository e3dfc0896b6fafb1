package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/rapidgen/loader"
	"github.com/ridoystarlord/rapidgen/runner"
	"github.com/ridoystarlord/rapidgen/sqlite"
)

var dryRunApply bool

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply pending migrations",
	Long: `Apply every pending migration file in order.

A migration that failed is not retried until its file is edited.

Examples:
  rapidgen apply             # Apply pending migrations
  rapidgen apply --dry-run   # Print the SQL that would be executed
`,
	Run: func(cmd *cobra.Command, args []string) {
		p := mustLoadProject()
		db := mustOpenDatabase(cmd.Context(), p)

		if dryRunApply {
			previewPending(cmd, db, p)
			return
		}
		applyPending(cmd, db, p)
	},
}

func previewPending(cmd *cobra.Command, db *sqlite.Database, p *loader.Project) {
	pending, err := newRunner(db, p).PreviewMigrations(cmd.Context())
	if err != nil {
		fmt.Println("❌ Dry run failed:", err)
		os.Exit(1)
	}
	if len(pending) == 0 {
		fmt.Println("✅ No pending migrations.")
		return
	}

	fmt.Println("\n================ DRY RUN: Pending Migrations ================")
	for _, m := range pending {
		fmt.Printf("\n-- %s --\n", m.Name)
		fmt.Println(m.Up)
	}
	fmt.Println("=============================================================")
	fmt.Printf("(Dry run only. %d migrations would be applied.)\n", len(pending))
}

func applyPending(cmd *cobra.Command, db *sqlite.Database, p *loader.Project) {
	applied, err := newRunner(db, p).ApplyMigrations(cmd.Context())
	for _, name := range applied {
		fmt.Println("✅ Applied", name)
	}
	if err != nil {
		fmt.Println("❌ Migration failed:", err)
		if errors.Is(err, runner.ErrFailedMigrations) {
			fmt.Println("💡 Fix the failed migration file, then run 'rapidgen apply' again")
		}
		os.Exit(1)
	}
	if len(applied) == 0 {
		fmt.Println("✅ No pending migrations.")
	}
}

func init() {
	applyCmd.Flags().BoolVar(&dryRunApply, "dry-run", false, "Preview the SQL that would be executed without applying migrations")
}
