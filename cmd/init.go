package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/rapidgen/codegen"
	"github.com/ridoystarlord/rapidgen/loader"
	"github.com/ridoystarlord/rapidgen/schema"
)

var initStructs bool

// exampleSchema is the starter schema written by init.
func exampleSchema() (*schema.Database, error) {
	return schema.Build(
		schema.NewModel("User",
			schema.Field("id", schema.IntegerColumn().Autoincrement()),
			schema.Field("email", schema.TextColumn().Unique()),
			schema.Field("name", schema.TextColumn().Nullable()),
			schema.Field("active", schema.BooleanColumn().Default(true)),
			schema.Edge("posts", schema.HasMany("id", "Post", "authorId")),
		).WithTimestamps(),
		schema.NewModel("Post",
			schema.Field("id", schema.UUIDColumn().Primary().Autogenerate()),
			schema.Field("title", schema.TextColumn()),
			schema.Field("body", schema.TextColumn().Default("")),
			schema.Field("meta", schema.JSONColumn().Nullable()),
			schema.Field("authorId", schema.IntegerColumn()),
			schema.Edge("author", schema.BelongsTo("authorId", "User", "id")),
		).WithTimestamps(),
	)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new rapidgen project",
	Long: `Initialize a new rapidgen project with an example schema.

Default: models declared in rapidgen.yaml
Alternative: Go structs with rapid tags in models/ (--structs)

Examples:
  rapidgen init               # Write rapidgen.yaml with example models
  rapidgen init --structs     # Write rapidgen.yaml and models/models.go`,
	Run: func(cmd *cobra.Command, args []string) {
		if _, err := os.Stat(configFile); err == nil {
			fmt.Printf("❌ %s already exists!\n", configFile)
			os.Exit(1)
		}

		example, err := exampleSchema()
		if err != nil {
			fmt.Println("❌ Building example schema:", err)
			os.Exit(1)
		}

		p := loader.DefaultProject()
		if initStructs {
			modelsDir := filepath.Join(filepath.Dir(configFile), "models")
			if _, err := os.Stat(modelsDir); err == nil {
				fmt.Println("❌ models directory already exists!")
				os.Exit(1)
			}
			src, err := codegen.GenerateModels(example, codegen.Options{Package: "models"})
			if err != nil {
				fmt.Println("❌ Rendering example models:", err)
				os.Exit(1)
			}
			if err := os.MkdirAll(modelsDir, 0o755); err != nil {
				fmt.Println("❌ Failed to create models directory:", err)
				os.Exit(1)
			}
			if err := os.WriteFile(filepath.Join(modelsDir, "models.go"), src, 0o644); err != nil {
				fmt.Println("❌ Writing example models:", err)
				os.Exit(1)
			}
			p.ModelsDir = "models"
		} else {
			if p.Models, err = loader.ExportModels(example); err != nil {
				fmt.Println("❌ Exporting example models:", err)
				os.Exit(1)
			}
		}

		if err := loader.WriteProject(configFile, p); err != nil {
			fmt.Println("❌", err)
			os.Exit(1)
		}

		fmt.Printf("✅ Created %s.\n", configFile)
		if initStructs {
			fmt.Println("📝 Edit models/models.go to define your schema")
		} else {
			fmt.Printf("📝 Edit %s to define your schema\n", configFile)
		}
		fmt.Println("🚀 Run 'rapidgen migrate' to create a migration and 'rapidgen generate' for the client")
	},
}

func init() {
	initCmd.Flags().BoolVar(&initStructs, "structs", false, "Declare models as Go structs with rapid tags")
}
