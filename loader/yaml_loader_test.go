package loader

import (
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ridoystarlord/rapidgen/schema"
)

func writeProject(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const projectYAML = `
database: data/app.db
migrations:
  dir: db/migrations
generators:
  client:
    output: internal/store/client.go
  server:
    output: internal/api/server.go
    package: api
  clientPackage: example.com/app/internal/store
models:
  - name: User
    timestamps: true
    columns:
      - name: id
        type: integer
        autoincrement: true
      - name: email
        type: text
        unique: true
      - name: nickname
        type: text
        nullable: true
        default: "it's me"
  - name: Post
    table: articles
    columns:
      - name: id
        type: uuid
        primary: true
        autogenerate: true
      - name: authorId
        type: integer
    relations:
      - name: author
        type: belongsTo
        localColumn: authorId
        foreignModel: User
        foreignColumn: id
`

func TestLoadProject(t *testing.T) {
	path := writeProject(t, projectYAML)
	p, err := LoadProject(path)
	require.NoError(t, err)

	dir := filepath.Dir(path)
	assert.Equal(t, "data/app.db", p.Database)
	assert.Equal(t, filepath.Join(dir, "db/migrations"), p.Path(p.Migrations.Dir))
	assert.Equal(t, "/abs/path", p.Path("/abs/path"))

	require.NotNil(t, p.Generators.Client)
	assert.Equal(t, "store", p.Generators.Client.Package)
	require.NotNil(t, p.Generators.Server)
	assert.Equal(t, "api", p.Generators.Server.Package)
	assert.Equal(t, "example.com/app/internal/store", p.Generators.ClientPackage)

	db, err := p.Schema()
	require.NoError(t, err)
	require.Len(t, db.Models, 2)

	user, ok := db.Model("User")
	require.True(t, ok)
	assert.Equal(t, "users", user.TableName)
	nick, ok := user.Column("nickname")
	require.True(t, ok)
	assert.True(t, nick.Nullable)
	assert.Equal(t, "it's me", nick.Default.Value)
	_, ok = user.Column("updatedAt")
	assert.True(t, ok)

	post, ok := db.Model("Post")
	require.True(t, ok)
	assert.Equal(t, "articles", post.TableName)
	author, ok := post.Relation("author")
	require.True(t, ok)
	assert.Same(t, user, author.Target)
}

func TestLoadProject_Defaults(t *testing.T) {
	p, err := LoadProject(writeProject(t, "models: []\n"))
	require.NoError(t, err)

	assert.Equal(t, "app.db", p.Database)
	assert.Equal(t, "migrations", p.Migrations.Dir)
	require.NotNil(t, p.Generators.Client)
	assert.Equal(t, "db/client.go", p.Generators.Client.Output)
	assert.Equal(t, "db", p.Generators.Client.Package)
	assert.Nil(t, p.Generators.Server)

	p, err = LoadProject(writeProject(t, "generators:\n  server:\n    output: server.go\n"))
	require.NoError(t, err)
	assert.Nil(t, p.Generators.Client)
	assert.Empty(t, p.Generators.Server.Package)
}

func TestLoadProject_Errors(t *testing.T) {
	_, err := LoadProject(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading project file")

	_, err = LoadProject(writeProject(t, "models: [unclosed\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshalling YAML")

	p, err := LoadProject(writeProject(t, "modelsDir: models\nmodels:\n  - name: A\n    columns: []\n"))
	require.NoError(t, err)
	_, err = p.ModelBuilders()
	assert.EqualError(t, err, "project declares both models and modelsDir")
}

func TestLoadProject_ModelsDir(t *testing.T) {
	path := writeProject(t, "modelsDir: models\n")
	modelsDir := filepath.Join(filepath.Dir(path), "models")
	require.NoError(t, os.Mkdir(modelsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(modelsDir, "tag.go"),
		[]byte("package models\n\ntype Tag struct {\n\tID int64 `rapid:\"autoincrement\"`\n}\n"), 0o644))

	p, err := LoadProject(path)
	require.NoError(t, err)
	db, err := p.Schema()
	require.NoError(t, err)
	_, ok := db.Model("Tag")
	assert.True(t, ok)
}

func TestLoadProject_InvalidSchema(t *testing.T) {
	p, err := LoadProject(writeProject(t, `
models:
  - name: A
    columns:
      - name: n
        type: float
`))
	require.NoError(t, err)

	_, err = p.Schema()
	var schemaErr *schema.Error
	require.ErrorAs(t, err, &schemaErr)
	assert.Contains(t, err.Error(), "unsupported column type float")
}

func TestColumnFromConfig_Defaults(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want any
	}{
		{"integer", "- name: c\n  type: integer\n  default: 42\n", int64(42)},
		{"hex integer", "- name: c\n  type: integer\n  default: 0x10\n", int64(16)},
		{"negative integer", "- name: c\n  type: integer\n  default: -7\n", int64(-7)},
		{"wide integer", "- name: c\n  type: integer\n  default: 123456789012345678901234567890\n", func() *big.Int {
			n, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
			return n
		}()},
		{"boolean", "- name: c\n  type: boolean\n  default: false\n", false},
		{"date", "- name: c\n  type: date\n  default: 2024-05-01T12:00:00Z\n", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		{"quoted date", "- name: c\n  type: date\n  default: \"2024-05-01T12:00:00.000Z\"\n", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		{"blob", "- name: c\n  type: blob\n  default: deadbeef\n", []byte{0xde, 0xad, 0xbe, 0xef}},
		{"json", "- name: c\n  type: json\n  default: {tags: [a, b]}\n", map[string]any{"tags": []any{"a", "b"}}},
		{"uuid", "- name: c\n  type: uuid\n  default: 6ba7b810-9dad-11d1-80b4-00c04fd430c8\n", "6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := LoadProject(writeProject(t, "models:\n  - name: A\n    columns:\n"+indent(tt.yaml, "      ")))
			require.NoError(t, err)
			db, err := p.Schema()
			require.NoError(t, err)
			m, _ := db.Model("A")
			c, ok := m.Column("c")
			require.True(t, ok)
			require.NotNil(t, c.Default)
			if want, ok := tt.want.(time.Time); ok {
				got, isTime := c.Default.Value.(time.Time)
				require.True(t, isTime)
				assert.True(t, want.Equal(got), got)
				return
			}
			assert.Equal(t, tt.want, c.Default.Value)
		})
	}
}

func TestColumnConfig_DefaultNode(t *testing.T) {
	var withDefault, without ColumnConfig
	require.NoError(t, yaml.Unmarshal([]byte("name: c\ntype: text\ndefault: abc\n"), &withDefault))
	require.NoError(t, yaml.Unmarshal([]byte("name: c\ntype: text\n"), &without))

	assert.Equal(t, yaml.ScalarNode, withDefault.Default.Kind)
	assert.Equal(t, "abc", withDefault.Default.Value)
	assert.Equal(t, yaml.Kind(0), without.Default.Kind)

	out, err := yaml.Marshal(without)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "default")
}

func TestColumnFromConfig_Errors(t *testing.T) {
	_, err := ModelsFromConfig([]ModelConfig{{Name: "A", Columns: []ColumnConfig{{Name: "c", Type: "date", Mode: "deletedAt"}}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown mode "deletedAt"`)

	p, err := LoadProject(writeProject(t, "models:\n  - name: A\n    columns:\n      - name: c\n        type: blob\n        default: xyz\n"))
	require.NoError(t, err)
	_, err = p.ModelBuilders()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model A, column c: line 6: default")
}

func indent(s, prefix string) string {
	lines := strings.SplitAfter(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "")
}
