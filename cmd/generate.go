package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/rapidgen/codegen"
	"github.com/ridoystarlord/rapidgen/loader"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the typed client and RPC server from the schema",
	Long: `Generate the typed client and RPC server scaffold configured under
generators in rapidgen.yaml.

Files are only replaced when they carry the rapidgen generated banner.

Examples:
  rapidgen generate                    # Generate from rapidgen.yaml
  rapidgen generate -c other.yaml      # Use another project file
`,
	Run: func(cmd *cobra.Command, args []string) {
		p := mustLoadProject()
		db, err := p.Schema()
		if err != nil {
			fmt.Println("❌ Loading schema:", err)
			os.Exit(1)
		}

		written, err := codegen.Generate(cmd.Context(), db, generatorConfig(p))
		if err != nil {
			var conflict *codegen.FileConflictError
			if errors.As(err, &conflict) {
				fmt.Printf("❌ %s was not generated by rapidgen; move it away or change the output path\n", conflict.Path)
				os.Exit(1)
			}
			fmt.Println("❌ Generating code:", err)
			os.Exit(1)
		}

		if len(written) == 0 {
			fmt.Println("ℹ️  No generators configured.")
			return
		}
		for _, path := range written {
			fmt.Println("✅ Generated", path)
		}
	},
}

func generatorConfig(p *loader.Project) codegen.Config {
	target := func(t *loader.TargetConfig) *codegen.Target {
		if t == nil {
			return nil
		}
		return &codegen.Target{Output: p.Path(t.Output), Package: t.Package}
	}
	return codegen.Config{
		Client:        target(p.Generators.Client),
		Server:        target(p.Generators.Server),
		ClientPackage: p.Generators.ClientPackage,
	}
}
