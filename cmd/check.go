package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/rapidgen/diff"
	"github.com/ridoystarlord/rapidgen/introspect"
	"github.com/ridoystarlord/rapidgen/loader"
	"github.com/ridoystarlord/rapidgen/runner"
	"github.com/ridoystarlord/rapidgen/sqlite"
)

var checkTimeout time.Duration

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check database connectivity and migration state",
	Long: `Check the current state of your database and migrations.

This command will:
- Verify the database file can be opened and queried
- Report pending, failed and modified migrations
- Compare the database with the schema when every migration is applied

It exits with status 1 when a migration failed or changed since it ran,
or when the schema has changes no migration file covers yet.

Examples:
  rapidgen check                    # Check current state
  rapidgen check --timeout 10s      # Set custom timeout
`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
		defer cancel()

		p := mustLoadProject()
		db := mustOpenDatabase(ctx, p)

		report, err := checkProject(ctx, db, p)
		if err != nil {
			fmt.Printf("❌ Check failed: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("✅ Database is accessible")
		fmt.Printf("📊 Found %d applied migrations\n", report.Applied)
		if len(report.Pending) > 0 {
			fmt.Printf("🕒 %d pending migrations; run 'rapidgen apply'\n", len(report.Pending))
		}
		for _, f := range report.Failed {
			fmt.Printf("❌ Failed migration %s: %s\n", f.MigrationName, f.ErrorMessage)
		}
		for _, f := range report.Modified {
			fmt.Printf("⚠️  %s changed since it was applied\n", f)
		}
		if len(report.Drift) > 0 {
			fmt.Printf("⚠️  The schema has %d changes without a migration; run 'rapidgen migrate'\n", len(report.Drift))
			for _, op := range report.Drift {
				fmt.Println("   -", op.Describe())
			}
		}

		if !report.healthy() {
			os.Exit(1)
		}
		fmt.Println("✅ Database schema is consistent")
	},
}

func init() {
	checkCmd.Flags().DurationVarP(&checkTimeout, "timeout", "t", 10*time.Second, "Timeout for the check")
}

// checkReport is the migration state of a project database.
type checkReport struct {
	Applied  int
	Pending  []string
	Failed   []runner.MigrationRecord
	Modified []string
	// Drift is what the next migration would contain. It is only computed
	// when no migration file is pending.
	Drift []diff.Operation
}

func (r *checkReport) healthy() bool {
	return len(r.Failed) == 0 && len(r.Modified) == 0 && len(r.Drift) == 0
}

func checkProject(ctx context.Context, db *sqlite.Database, p *loader.Project) (*checkReport, error) {
	if err := db.DB().PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	status, err := newRunner(db, p).Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration status: %w", err)
	}
	report := &checkReport{
		Applied:  len(status.Applied),
		Pending:  status.Pending,
		Failed:   status.Failed,
		Modified: status.Modified,
	}
	if len(status.Pending) > 0 {
		return report, nil
	}

	target, err := p.Schema()
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	current, err := introspect.Database(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to introspect database: %w", err)
	}
	report.Drift = diff.Diff(current, target)
	return report, nil
}
