package codegen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/rapidgen/loader"
	"github.com/ridoystarlord/rapidgen/schema"
	"github.com/ridoystarlord/rapidgen/sqlite"
)

func TestGenerateModels_Fields(t *testing.T) {
	src, err := GenerateModels(testDatabase(t), Options{})
	require.NoError(t, err)
	assert.NotContains(t, string(src), generatedBanner)

	p := parse(t, src)
	assert.Equal(t, map[string]string{
		"ID":        "string `rapid:\"type:uuid;primary;autogenerate\"`",
		"Content":   "string `rapid:\"column:content\"`",
		"Meta":      "any `rapid:\"nullable\"`",
		"Flag":      "bool `rapid:\"default:false\"`",
		"ParentID":  "*string `rapid:\"type:uuid\"`",
		"CreatedAt": "time.Time `rapid:\"mode:createdAt\"`",
		"UpdatedAt": "time.Time `rapid:\"mode:updatedAt\"`",
		"Parent":    "*Doc `rapid:\"relation:belongsTo;local:parentId;foreign:id\"`",
		"Children":  "[]*Doc `rapid:\"relation:hasMany;local:id;foreign:parentId\"`",
	}, p.fields(t, "Doc"))

	assert.Equal(t, map[string]string{
		"ID":     "int64 `rapid:\"autoincrement\"`",
		"Name":   "string `rapid:\"unique\"`",
		"Avatar": "[]byte `rapid:\"nullable\"`",
		"Score":  "int64 `rapid:\"default:5\"`",
		"Label":  "string `rapid:\"generated:UPPER(name)\"`",
	}, p.fields(t, "User"))
}

func TestGenerateModels_TableAndColumnNames(t *testing.T) {
	db, err := schema.Build(
		schema.NewModel("Person",
			schema.Field("id", schema.IntegerColumn().Autoincrement()),
			schema.Field("full_name", schema.TextColumn()),
		).InTable("people_v2"),
	)
	require.NoError(t, err)

	src, err := GenerateModels(db, Options{Package: "entities"})
	require.NoError(t, err)
	p := parse(t, src)
	assert.Contains(t, string(src), "package entities")
	assert.Equal(t, map[string]string{
		"_":        "struct{} `rapid:\"table:people_v2\"`",
		"ID":       "int64 `rapid:\"autoincrement\"`",
		"FullName": "string `rapid:\"column:full_name\"`",
	}, p.fields(t, "Person"))
}

func TestGenerateModels_RoundTrip(t *testing.T) {
	want := testDatabase(t)
	src, err := GenerateModels(want, Options{})
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "models.go"), src, 0o644))
	models, err := loader.LoadModelsFromTags(dir)
	require.NoError(t, err)
	got, err := schema.Build(models...)
	require.NoError(t, err)

	require.Len(t, got.Models, len(want.Models))
	for i, wm := range want.Models {
		gm := got.Models[i]
		assert.Equal(t, wm.Name, gm.Name)
		assert.Equal(t, wm.TableName, gm.TableName)
		require.Len(t, gm.Columns, len(wm.Columns), wm.Name)
		for j, wc := range wm.Columns {
			gc := gm.Columns[j]
			assert.Equal(t, describeColumn(t, wc), describeColumn(t, gc), "%s.%s", wm.Name, wc.Name)
		}
		require.Len(t, gm.Relations, len(wm.Relations))
		for j, wr := range wm.Relations {
			gr := gm.Relations[j]
			assert.Equal(t, []string{wr.Name, string(wr.Type), wr.LocalColumn, wr.ForeignModel, wr.ForeignColumn},
				[]string{gr.Name, string(gr.Type), gr.LocalColumn, gr.ForeignModel, gr.ForeignColumn})
		}
	}
}

// describeColumn flattens a column with its default rendered as SQL, so int
// and int64 defaults compare equal.
func describeColumn(t *testing.T, c *schema.Column) map[string]any {
	t.Helper()
	d := map[string]any{
		"name":         c.Name,
		"type":         c.Type,
		"nullable":     c.Nullable,
		"unique":       c.Unique,
		"primary":      c.Primary,
		"generated":    c.GeneratedAs,
		"mode":         c.Mode,
		"autogenerate": c.Autogenerate,
	}
	if c.Default != nil {
		lit, err := sqlite.Literal(c.Default.Value)
		require.NoError(t, err)
		d["default"] = lit
	}
	return d
}

func TestGenerateModels_Unrepresentable(t *testing.T) {
	db, err := schema.Build(
		schema.NewModel("Note",
			schema.Field("body", schema.TextColumn().Default("a;b")),
		),
	)
	require.NoError(t, err)

	_, err = GenerateModels(db, Options{})
	assert.EqualError(t, err, `model Note: column body: default "a;b" cannot be written as a tag`)
}
