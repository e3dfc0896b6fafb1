package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/rapidgen/database"
	"github.com/ridoystarlord/rapidgen/sqlite"
	"github.com/ridoystarlord/rapidgen/validator"
)

var (
	validateFormat  string
	validateOffline bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the schema and lint it against best practices",
	Long: `Validate the models of rapidgen.yaml (or the models directory).

This command reports:
- Structural errors (identifiers, column types, defaults, relation targets)
- Tables without a primary key, addressed by the implicit rowid
- hasOne relations whose foreign column is not unique
- Table and column names that are SQL keywords
- Database state (when the database file exists): existing tables and
  tables the next migration would drop

Examples:
  rapidgen validate                  # Validate against the project database
  rapidgen validate --offline        # Skip database checks
  rapidgen validate --format json    # Output validation results as JSON
`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := validateSchema(cmd); err != nil {
			fmt.Printf("❌ Schema validation failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateFormat, "format", "f", "text", "Output format (text, json)")
	validateCmd.Flags().BoolVar(&validateOffline, "offline", false, "Do not open the database")
}

func validateSchema(cmd *cobra.Command) error {
	p := mustLoadProject()
	models, err := p.ModelBuilders()
	if err != nil {
		return fmt.Errorf("failed to load models: %w", err)
	}

	var db sqlite.Executor
	if !validateOffline {
		// validation never creates a database file
		path := database.ResolvePath(databaseFlag, p.Path(p.Database))
		if _, err := os.Stat(path); err == nil {
			db = mustOpenDatabase(cmd.Context(), p)
		}
	}

	result, err := validator.NewSchemaValidator(db).ValidateSchema(cmd.Context(), models)
	if err != nil {
		return err
	}

	if validateFormat == "json" {
		err = outputJSON(result)
	} else {
		err = outputText(result)
	}
	if err == nil && !result.Valid {
		os.Exit(1)
	}
	return err
}

func outputJSON(result *validator.ValidationResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func printFindings(title string, findings []validator.ValidationError) {
	if len(findings) == 0 {
		return
	}
	fmt.Printf("\n%s (%d):\n", title, len(findings))
	for i, f := range findings {
		fmt.Printf("  %d. ", i+1)
		switch {
		case f.Table != "":
			fmt.Printf("[%s]", f.Table)
		case f.Model != "":
			fmt.Printf("[%s]", f.Model)
		}
		if f.Column != "" {
			fmt.Printf(".%s", f.Column)
		}
		if f.Path != "" && f.Type == "schema" {
			fmt.Printf(" (%s)", f.Path)
		}
		fmt.Printf(": %s\n", f.Message)
	}
}

func outputText(result *validator.ValidationResult) error {
	if result.Valid {
		color.Green("✅ Schema validation passed!")
	} else {
		color.Red("❌ Schema validation failed!")
	}

	printFindings("🔴 Errors", result.Errors)
	printFindings("🟡 Warnings", result.Warnings)
	printFindings("🔵 Info", result.Info)

	fmt.Printf("\n📊 Summary:\n")
	fmt.Printf("  • Errors: %d\n", len(result.Errors))
	fmt.Printf("  • Warnings: %d\n", len(result.Warnings))
	fmt.Printf("  • Info: %d\n", len(result.Info))

	if result.Valid {
		fmt.Printf("\n🎉 Your schema is valid and ready for migration generation!\n")
	} else {
		fmt.Printf("\n💡 Fix the errors above before generating migrations.\n")
	}
	return nil
}
