package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/rapidgen/codegen"
	"github.com/ridoystarlord/rapidgen/introspect"
	"github.com/ridoystarlord/rapidgen/loader"
)

var (
	pullOutput  string
	pullPackage string
	pullYAML    bool
	pullForce   bool
)

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Write models from an existing database",
	Long: `Introspect the database and write its tables as models, either as Go
structs with rapid tags or into the models section of the project file.

Examples:
  rapidgen pull                          # Write models/models.go
  rapidgen pull -o internal/models/db.go -p models
  rapidgen pull --yaml                   # Replace the models of rapidgen.yaml
`,
	Run: func(cmd *cobra.Command, args []string) {
		p := mustLoadProject()
		db := mustOpenDatabase(cmd.Context(), p)

		current, err := introspect.Database(cmd.Context(), db)
		if err != nil {
			fmt.Println("❌ Introspecting database:", err)
			os.Exit(1)
		}
		if len(current.Models) == 0 {
			fmt.Println("ℹ️  The database has no tables.")
			return
		}

		if pullYAML {
			if len(p.Models) > 0 && !pullForce {
				fmt.Printf("❌ %s already declares models; use --force to replace them\n", configFile)
				os.Exit(1)
			}
			if p.Models, err = loader.ExportModels(current); err != nil {
				fmt.Println("❌ Exporting models:", err)
				os.Exit(1)
			}
			p.ModelsDir = ""
			if err := loader.WriteProject(configFile, p); err != nil {
				fmt.Println("❌", err)
				os.Exit(1)
			}
			fmt.Printf("✅ Wrote %d models to %s\n", len(current.Models), configFile)
			return
		}

		if _, err := os.Stat(pullOutput); err == nil && !pullForce {
			fmt.Printf("❌ %s already exists; use --force to overwrite it\n", pullOutput)
			os.Exit(1)
		}
		src, err := codegen.GenerateModels(current, codegen.Options{Package: pullPackage})
		if err != nil {
			fmt.Println("❌ Rendering models:", err)
			os.Exit(1)
		}
		if err := os.MkdirAll(filepath.Dir(pullOutput), 0o755); err != nil {
			fmt.Println("❌ Creating output directory:", err)
			os.Exit(1)
		}
		if err := os.WriteFile(pullOutput, src, 0o644); err != nil {
			fmt.Println("❌ Writing models:", err)
			os.Exit(1)
		}
		fmt.Printf("✅ Wrote %d models to %s\n", len(current.Models), pullOutput)
		fmt.Printf("📝 Set modelsDir: %s in %s to use them\n", filepath.Dir(pullOutput), configFile)
	},
}

func init() {
	pullCmd.Flags().StringVarP(&pullOutput, "output", "o", filepath.Join("models", "models.go"), "Output file for generated structs")
	pullCmd.Flags().StringVarP(&pullPackage, "package", "p", "models", "Package name for generated structs")
	pullCmd.Flags().BoolVar(&pullYAML, "yaml", false, "Write models into the project file instead of Go structs")
	pullCmd.Flags().BoolVar(&pullForce, "force", false, "Overwrite existing models")
}
