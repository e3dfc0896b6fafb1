package loader

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ridoystarlord/rapidgen/schema"
	"github.com/ridoystarlord/rapidgen/sqlite"
)

// ExportModels turns a schema back into model declarations that
// ModelsFromConfig accepts.
func ExportModels(db *schema.Database) ([]ModelConfig, error) {
	configs := make([]ModelConfig, 0, len(db.Models))
	for _, m := range db.Models {
		mc := ModelConfig{Name: m.Name}
		if m.TableName != schema.DefaultTableName(m.Name) {
			mc.Table = m.TableName
		}
		for _, c := range m.Columns {
			cc := ColumnConfig{
				Name:          c.Name,
				Type:          string(c.Type),
				Primary:       c.Primary == schema.PrimaryKey,
				Autoincrement: c.Primary == schema.PrimaryAutoincrement,
				Nullable:      c.Nullable,
				Unique:        c.Unique,
				GeneratedAs:   c.GeneratedAs,
				Mode:          string(c.Mode),
				Autogenerate:  c.Autogenerate,
			}
			if c.Default != nil {
				node, err := encodeDefault(c.Type, c.Default.Value)
				if err != nil {
					return nil, fmt.Errorf("model %s, column %s: %w", m.Name, c.Name, err)
				}
				cc.Default = *node
			}
			mc.Columns = append(mc.Columns, cc)
		}
		for _, r := range m.Relations {
			mc.Relations = append(mc.Relations, RelationConfig{
				Name:          r.Name,
				Type:          string(r.Type),
				LocalColumn:   r.LocalColumn,
				ForeignModel:  r.ForeignModel,
				ForeignColumn: r.ForeignColumn,
			})
		}
		configs = append(configs, mc)
	}
	return configs, nil
}

// encodeDefault is the inverse of decodeDefault.
func encodeDefault(t schema.ColumnType, v any) (*yaml.Node, error) {
	switch t {
	case schema.Integer:
		if n, ok := v.(*big.Int); ok {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: n.String()}, nil
		}
	case schema.Date:
		v = sqlite.FormatDate(v.(time.Time))
	case schema.Blob:
		v = hex.EncodeToString(v.([]byte))
	}
	node := &yaml.Node{}
	if err := node.Encode(v); err != nil {
		return nil, fmt.Errorf("encoding default: %w", err)
	}
	return node, nil
}

// WriteProject writes p as YAML. An existing file is replaced.
func WriteProject(filename string, p *Project) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshalling project: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing project file: %w", err)
	}
	return nil
}
