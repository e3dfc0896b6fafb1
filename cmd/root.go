package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/rapidgen/database"
	"github.com/ridoystarlord/rapidgen/loader"
	"github.com/ridoystarlord/rapidgen/logger"
	"github.com/ridoystarlord/rapidgen/runner"
	"github.com/ridoystarlord/rapidgen/sqlite"
)

var (
	configFile   string
	databaseFlag string
	logLevel     string
	logFormat    string
)

var rootCmd = &cobra.Command{
	Use:   "rapidgen",
	Short: "Schema-driven SQLite client generator and migration tool for Go",
	Long: `rapidgen turns a declarative schema into a typed SQLite client, an RPC
server scaffold, and migration scripts.

Examples:

  rapidgen init
  rapidgen generate
  rapidgen migrate
  rapidgen apply
`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetGlobal(logger.New(&logger.Config{
			Level:  logLevel,
			Format: logFormat,
			Output: os.Stderr,
		}))
	},
}

// Execute runs the CLI
func Execute() {
	defer database.Close()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Println("❌", err)
		os.Exit(1)
	}
}

// Register subcommands
func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", loader.DefaultConfigFile, "Project file")
	rootCmd.PersistentFlags().StringVar(&databaseFlag, "database", "", "SQLite database file (overrides DATABASE_URL and the project file)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "Log format: console, json")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(automigrateCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(pullCmd)
}

// mustLoadProject loads the project file or exits.
func mustLoadProject() *loader.Project {
	p, err := loader.LoadProject(configFile)
	if err != nil {
		fmt.Println("❌ Loading project:", err)
		os.Exit(1)
	}
	return p
}

// mustOpenDatabase opens the project database or exits.
func mustOpenDatabase(ctx context.Context, p *loader.Project) *sqlite.Database {
	path := database.ResolvePath(databaseFlag, p.Path(p.Database))
	database.SetPath(path)
	db, err := database.GetDatabase(ctx)
	if err != nil {
		fmt.Println("❌ Opening database:", err)
		os.Exit(1)
	}
	return db
}

func newRunner(db *sqlite.Database, p *loader.Project) *runner.Runner {
	return runner.New(db, p.Path(p.Migrations.Dir))
}
