package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/rapidgen/runner"
)

var (
	historyLimit    int
	historyName     string
	historyDetailed bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show detailed migration history",
	Long: `Show every recorded migration execution, newest first, with execution
times and the user who ran it.

Examples:
  rapidgen history                  # Show all migration history
  rapidgen history --limit 10       # Show the last 10 executions
  rapidgen history --name users     # Only migrations whose file name contains "users"
  rapidgen history --detailed       # Show detailed information
`,
	Run: func(cmd *cobra.Command, args []string) {
		p := mustLoadProject()
		db := mustOpenDatabase(cmd.Context(), p)

		history, err := newRunner(db, p).GetMigrationHistory(cmd.Context(), historyLimit, historyName)
		if err != nil {
			fmt.Printf("❌ Error getting migration history: %v\n", err)
			os.Exit(1)
		}

		if len(history) == 0 {
			fmt.Println("📋 No migration history found")
			return
		}

		fmt.Println("📋 Migration History")
		fmt.Println(strings.Repeat("=", 60))
		if historyDetailed {
			showDetailedHistory(history)
		} else {
			showSummaryHistory(history)
		}
	},
}

func statusMark(status string) string {
	switch status {
	case runner.StatusSuccess:
		return color.New(color.FgGreen, color.Bold).Sprint("✅")
	case runner.StatusFailed:
		return color.New(color.FgRed, color.Bold).Sprint("❌")
	}
	return color.New(color.FgYellow, color.Bold).Sprint("⚠️")
}

func showDetailedHistory(history []runner.MigrationRecord) {
	red := color.New(color.FgRed, color.Bold)
	blue := color.New(color.FgBlue, color.Bold)
	cyan := color.New(color.FgCyan)

	for i, record := range history {
		fmt.Printf("\n%d. %s ", i+1, statusMark(record.Status))
		blue.Printf("%s\n", record.MigrationName)

		cyan.Printf("   📅 Executed: %s\n", record.ExecutedAt.Local().Format("2006-01-02 15:04:05"))
		if record.ExecutionTime > 0 {
			cyan.Printf("   ⏱️  Duration: %v\n", record.ExecutionTime)
		}
		if record.ExecutedBy != "" {
			cyan.Printf("   👤 User: %s\n", record.ExecutedBy)
		}
		cyan.Printf("   📊 Status: %s\n", record.Status)
		if record.Status == runner.StatusFailed && record.ErrorMessage != "" {
			red.Printf("   💥 Error: %s\n", record.ErrorMessage)
		}
		if len(record.Checksum) >= 8 {
			cyan.Printf("   🔍 Checksum: %s\n", record.Checksum[:8]+"...")
		}
	}
}

func showSummaryHistory(history []runner.MigrationRecord) {
	blue := color.New(color.FgBlue, color.Bold)

	fmt.Printf("%-4s %-8s %-25s %-12s %-10s %s\n", "ID", "Status", "Migration", "Duration", "User", "Date")
	fmt.Println(strings.Repeat("-", 80))

	var (
		successCount  int
		failedCount   int
		totalDuration time.Duration
	)
	for i, record := range history {
		duration := "N/A"
		if record.ExecutionTime > 0 {
			duration = record.ExecutionTime.String()
			totalDuration += record.ExecutionTime
		}
		user := record.ExecutedBy
		if user == "" {
			user = "N/A"
		}
		name := record.MigrationName
		if len(name) > 23 {
			name = name[:20] + "..."
		}

		switch record.Status {
		case runner.StatusSuccess:
			successCount++
		case runner.StatusFailed:
			failedCount++
		}

		fmt.Printf("%-4d %-8s %-25s %-12s %-10s %s\n",
			i+1,
			statusMark(record.Status),
			blue.Sprint(name),
			duration,
			user,
			record.ExecutedAt.Local().Format("2006-01-02 15:04"),
		)
	}

	fmt.Println(strings.Repeat("-", 80))
	fmt.Printf("📊 Summary: %d total, %d successful, %d failed\n", len(history), successCount, failedCount)
	if totalDuration > 0 {
		fmt.Printf("⏱️  Total execution time: %v\n", totalDuration)
	}
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 0, "Limit number of records to show (0 = all)")
	historyCmd.Flags().StringVarP(&historyName, "name", "n", "", "Filter by migration file name")
	historyCmd.Flags().BoolVarP(&historyDetailed, "detailed", "d", false, "Show detailed information")
}
