package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var steps int

func init() {
	rollbackCmd.Flags().IntVarP(&steps, "steps", "s", 1, "Number of migrations to rollback")
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Rollback migrations",
	Long: `Rollback the last migration or multiple migrations by running their
down sections, newest first.

Examples:
  rapidgen rollback           # Rollback the last migration
  rapidgen rollback --steps=3 # Rollback the last 3 migrations
  rapidgen rollback -s 5      # Rollback the last 5 migrations
`,
	Run: func(cmd *cobra.Command, args []string) {
		if steps < 1 {
			fmt.Println("❌ Steps must be at least 1")
			os.Exit(1)
		}

		p := mustLoadProject()
		db := mustOpenDatabase(cmd.Context(), p)
		rolledBack, err := newRunner(db, p).RollbackMigrations(cmd.Context(), steps)
		for _, name := range rolledBack {
			fmt.Println("↩️  Rolled back", name)
		}
		if err != nil {
			fmt.Println("❌ Rollback failed:", err)
			os.Exit(1)
		}

		switch len(rolledBack) {
		case 0:
			fmt.Println("ℹ️  Nothing to roll back.")
		case 1:
			fmt.Println("✅ Rolled back 1 migration.")
		default:
			fmt.Printf("✅ Rolled back %d migrations.\n", len(rolledBack))
		}
	},
}
