package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var logLimit int

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recent migration activities",
	Long: `Show recent migration activities recorded by apply and rollback.

Examples:
  rapidgen log               # Show recent migration logs
  rapidgen log --limit 20    # Show the last 20 log entries
`,
	Run: func(cmd *cobra.Command, args []string) {
		p := mustLoadProject()
		db := mustOpenDatabase(cmd.Context(), p)

		logs, err := newRunner(db, p).GetMigrationLogs(cmd.Context(), logLimit)
		if err != nil {
			fmt.Printf("❌ Error getting migration logs: %v\n", err)
			os.Exit(1)
		}

		if len(logs) == 0 {
			fmt.Println("📋 No migration logs found")
			return
		}

		green := color.New(color.FgGreen, color.Bold)
		yellow := color.New(color.FgYellow, color.Bold)
		red := color.New(color.FgRed, color.Bold)
		blue := color.New(color.FgBlue, color.Bold)
		cyan := color.New(color.FgCyan)

		fmt.Println("📋 Recent Migration Activities")
		fmt.Println(strings.Repeat("=", 60))

		for i, entry := range logs {
			fmt.Printf("\n%d. ", i+1)
			switch entry.Level {
			case "INFO":
				blue.Print("ℹ️  ")
			case "WARN":
				yellow.Print("⚠️  ")
			case "ERROR":
				red.Print("❌ ")
			case "SUCCESS":
				green.Print("✅ ")
			default:
				fmt.Print("📝 ")
			}

			cyan.Printf("[%s] ", entry.Timestamp.Local().Format("2006-01-02 15:04:05"))
			fmt.Print(entry.Message)
			if entry.User != "" {
				fmt.Printf(" (by %s)", entry.User)
			}
			fmt.Println()

			if entry.Details != "" {
				cyan.Printf("   📄 Details: %s\n", entry.Details)
			}
		}

		fmt.Println(strings.Repeat("-", 60))
		fmt.Printf("📊 Showing %d recent log entries\n", len(logs))
	},
}

func init() {
	logCmd.Flags().IntVarP(&logLimit, "limit", "l", 50, "Limit number of log entries to show")
}
