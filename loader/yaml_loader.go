package loader

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ridoystarlord/rapidgen/schema"
	"github.com/ridoystarlord/rapidgen/sqlite"
)

// DefaultConfigFile is the project file looked up in the working directory.
const DefaultConfigFile = "rapidgen.yaml"

type Project struct {
	// Database is the SQLite file. DATABASE_URL and --database override it.
	Database   string           `yaml:"database"`
	Migrations MigrationsConfig `yaml:"migrations"`
	Generators GeneratorsConfig `yaml:"generators"`
	// ModelsDir switches the model source to Go structs with rapid tags.
	ModelsDir string        `yaml:"modelsDir,omitempty"`
	Models    []ModelConfig `yaml:"models,omitempty"`

	// dir is the directory of the project file; relative paths resolve against it.
	dir string
}

type MigrationsConfig struct {
	Dir string `yaml:"dir"`
}

type GeneratorsConfig struct {
	Client *TargetConfig `yaml:"client,omitempty"`
	Server *TargetConfig `yaml:"server,omitempty"`
	// ClientPackage is the import path of the client package, needed when the
	// server is generated into another package.
	ClientPackage string `yaml:"clientPackage,omitempty"`
}

type TargetConfig struct {
	Output  string `yaml:"output"`
	Package string `yaml:"package"`
}

type ModelConfig struct {
	Name       string           `yaml:"name"`
	Table      string           `yaml:"table,omitempty"`
	Timestamps bool             `yaml:"timestamps,omitempty"`
	Columns    []ColumnConfig   `yaml:"columns"`
	Relations  []RelationConfig `yaml:"relations,omitempty"`
}

type ColumnConfig struct {
	Name          string    `yaml:"name"`
	Type          string    `yaml:"type"`
	Primary       bool      `yaml:"primary,omitempty"`
	Autoincrement bool      `yaml:"autoincrement,omitempty"`
	Nullable      bool      `yaml:"nullable,omitempty"`
	Unique        bool      `yaml:"unique,omitempty"`
	Default       yaml.Node `yaml:"default,omitempty"`
	GeneratedAs   string    `yaml:"generatedAs,omitempty"`
	Mode          string    `yaml:"mode,omitempty"`
	Autogenerate  bool      `yaml:"autogenerate,omitempty"`
}

type RelationConfig struct {
	Name          string `yaml:"name"`
	Type          string `yaml:"type"`
	LocalColumn   string `yaml:"localColumn"`
	ForeignModel  string `yaml:"foreignModel"`
	ForeignColumn string `yaml:"foreignColumn"`
}

// DefaultProject is the configuration used when a field is left out.
func DefaultProject() *Project {
	return &Project{
		Database:   "app.db",
		Migrations: MigrationsConfig{Dir: "migrations"},
		Generators: GeneratorsConfig{
			Client: &TargetConfig{Output: "db/client.go", Package: "db"},
		},
	}
}

// LoadProject reads a project file. Missing fields take DefaultProject values.
func LoadProject(filename string) (*Project, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading project file: %w", err)
	}

	p := DefaultProject()
	p.Generators = GeneratorsConfig{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("unmarshalling YAML: %w", err)
	}
	if p.Generators.Client == nil && p.Generators.Server == nil {
		p.Generators.Client = DefaultProject().Generators.Client
	}
	for _, t := range []*TargetConfig{p.Generators.Client, p.Generators.Server} {
		if t == nil || t.Package != "" {
			continue
		}
		if dir := filepath.Base(filepath.Dir(t.Output)); dir != "." && dir != string(filepath.Separator) {
			t.Package = dir
		}
	}
	p.dir = filepath.Dir(filename)
	return p, nil
}

// Path resolves a path from the project file against the file's directory.
func (p *Project) Path(rel string) string {
	if rel == "" || filepath.IsAbs(rel) || p.dir == "" {
		return rel
	}
	return filepath.Join(p.dir, rel)
}

// ModelBuilders returns the project's models from YAML or, when modelsDir is
// set, from Go struct tags.
func (p *Project) ModelBuilders() ([]schema.ModelBuilder, error) {
	if p.ModelsDir != "" {
		if len(p.Models) > 0 {
			return nil, errors.New("project declares both models and modelsDir")
		}
		return LoadModelsFromTags(p.Path(p.ModelsDir))
	}
	return ModelsFromConfig(p.Models)
}

// Schema loads and validates the project's models.
func (p *Project) Schema() (*schema.Database, error) {
	models, err := p.ModelBuilders()
	if err != nil {
		return nil, err
	}
	return schema.Build(models...)
}

// LoadModelsFromYAML reads the models of a project file.
func LoadModelsFromYAML(filename string) ([]schema.ModelBuilder, error) {
	p, err := LoadProject(filename)
	if err != nil {
		return nil, err
	}
	return p.ModelBuilders()
}

// ModelsFromConfig turns decoded model declarations into builders. Type
// checks beyond decoding defaults are left to schema validation.
func ModelsFromConfig(configs []ModelConfig) ([]schema.ModelBuilder, error) {
	models := make([]schema.ModelBuilder, 0, len(configs))
	for _, mc := range configs {
		var fields []schema.FieldSpec
		for _, cc := range mc.Columns {
			col, err := columnFromConfig(cc)
			if err != nil {
				return nil, fmt.Errorf("model %s, column %s: %w", mc.Name, cc.Name, err)
			}
			fields = append(fields, schema.Field(cc.Name, col))
		}
		for _, rc := range mc.Relations {
			rel := schema.RelationOf(schema.RelationType(rc.Type), rc.LocalColumn, rc.ForeignModel, rc.ForeignColumn)
			fields = append(fields, schema.Edge(rc.Name, rel))
		}

		m := schema.NewModel(mc.Name, fields...)
		if mc.Table != "" {
			m = m.InTable(mc.Table)
		}
		if mc.Timestamps {
			m = m.WithTimestamps()
		}
		models = append(models, m)
	}
	return models, nil
}

func columnFromConfig(cc ColumnConfig) (schema.ColumnBuilder, error) {
	t := schema.ColumnType(cc.Type)
	col := schema.Of(t)
	switch {
	case cc.Autoincrement:
		col = col.Autoincrement()
	case cc.Primary:
		col = col.Primary()
	}
	if cc.Nullable {
		col = col.Nullable()
	}
	if cc.Unique {
		col = col.Unique()
	}
	if cc.GeneratedAs != "" {
		col = col.GeneratedAs(cc.GeneratedAs)
	}
	switch cc.Mode {
	case "":
	case string(schema.CreatedAtMode):
		col = col.CreatedAt()
	case string(schema.UpdatedAtMode):
		col = col.UpdatedAt()
	default:
		return col, fmt.Errorf("unknown mode %q", cc.Mode)
	}
	if cc.Autogenerate {
		col = col.Autogenerate()
	}
	if cc.Default.Kind != 0 {
		v, err := decodeDefault(t, &cc.Default)
		if err != nil {
			return col, fmt.Errorf("line %d: default: %w", cc.Default.Line, err)
		}
		col = col.Default(v)
	}
	return col, nil
}

// decodeDefault decodes a YAML default into the Go value the column type
// takes. Blob defaults are hex strings and date defaults ISO-8601 strings.
func decodeDefault(t schema.ColumnType, node *yaml.Node) (any, error) {
	switch t {
	case schema.Text, schema.UUID:
		var s string
		err := node.Decode(&s)
		return s, err
	case schema.Integer:
		// read from the raw text: values beyond int64 resolve as floats in YAML
		wide, ok := new(big.Int).SetString(node.Value, 0)
		if node.Kind != yaml.ScalarNode || !ok {
			return nil, fmt.Errorf("%q is not an integer", node.Value)
		}
		if wide.IsInt64() {
			return wide.Int64(), nil
		}
		return wide, nil
	case schema.Boolean:
		var b bool
		err := node.Decode(&b)
		return b, err
	case schema.Date:
		var ts time.Time
		if err := node.Decode(&ts); err == nil {
			return ts.UTC(), nil
		}
		return sqlite.ParseDate(node.Value)
	case schema.Blob:
		return hex.DecodeString(node.Value)
	case schema.JSON:
		var v any
		err := node.Decode(&v)
		return v, err
	}
	// unknown types are reported by schema validation
	return node.Value, nil
}
