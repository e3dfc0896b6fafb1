package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/rapidgen/schema"
)

const usersSource = "package models\n\n" +
	"import (\n\t\"time\"\n\n\t\"github.com/google/uuid\"\n)\n\n" +
	"type User struct {\n" +
	"\t_        struct{}  `rapid:\"table:people;timestamps\"`\n" +
	"\tID       int64     `rapid:\"autoincrement\"`\n" +
	"\tEmail    string    `rapid:\"unique\"`\n" +
	"\tBio      *string   `rapid:\"column:about\"`\n" +
	"\tScore    int       `rapid:\"default:5\"`\n" +
	"\tActive   bool      `rapid:\"default:true\"`\n" +
	"\tToken    uuid.UUID `rapid:\"autogenerate\"`\n" +
	"\tSeenAt   time.Time `rapid:\"nullable\"`\n" +
	"\tAvatar   []byte    `rapid:\"nullable;default:cafe\"`\n" +
	"\tSettings map[string]any `rapid:\"default:{\\\"theme\\\":\\\"dark\\\"}\"`\n" +
	"\tLabel    string    `rapid:\"generated:UPPER(email)\"`\n" +
	"\tPosts    []*Post   `rapid:\"relation:hasMany;local:id;foreign:authorId\"`\n" +
	"\tnote     string    `rapid:\"column:note\"`\n" +
	"\tIgnored  string\n" +
	"}\n"

const postsSource = "package models\n\n" +
	"type Post struct {\n" +
	"\tID       string `rapid:\"type:uuid;primary;autogenerate\"`\n" +
	"\tAuthorID int64  `rapid:\"\"`\n" +
	"\tAuthor   *User  `rapid:\"relation:belongsTo;local:authorId;foreign:id\"`\n" +
	"}\n\n" +
	"type helper struct {\n\tName string\n}\n"

func writeModels(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
	}
	return dir
}

func TestLoadModelsFromTags(t *testing.T) {
	dir := writeModels(t, map[string]string{
		"users.go":      usersSource,
		"posts.go":      postsSource,
		"users_test.go": "package models\n\ntype Fixture struct {\n\tID int `rapid:\"primary\"`\n}\n",
		"README.md":     "not go",
	})

	models, err := LoadModelsFromTags(dir)
	require.NoError(t, err)
	require.Len(t, models, 2)
	// lexical file order: posts.go before users.go
	assert.Equal(t, "Post", models[0].Name())
	assert.Equal(t, "User", models[1].Name())

	db, err := schema.Build(models...)
	require.NoError(t, err)

	user, ok := db.Model("User")
	require.True(t, ok)
	assert.Equal(t, "people", user.TableName)

	var names []string
	for _, c := range user.Columns {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"id", "email", "about", "score", "active", "token", "seenAt", "avatar", "settings", "label", "createdAt", "updatedAt"}, names)

	col := func(name string) *schema.Column {
		c, ok := user.Column(name)
		require.True(t, ok, name)
		return c
	}
	assert.Equal(t, schema.PrimaryAutoincrement, col("id").Primary)
	assert.Equal(t, schema.Integer, col("id").Type)
	assert.True(t, col("email").Unique)
	assert.True(t, col("about").Nullable)
	assert.Equal(t, int64(5), col("score").Default.Value)
	assert.Equal(t, true, col("active").Default.Value)
	assert.Equal(t, schema.UUID, col("token").Type)
	assert.True(t, col("token").Autogenerate)
	assert.Equal(t, schema.Date, col("seenAt").Type)
	assert.True(t, col("seenAt").Nullable)
	assert.Equal(t, []byte{0xca, 0xfe}, col("avatar").Default.Value)
	assert.Equal(t, schema.JSON, col("settings").Type)
	assert.Equal(t, map[string]any{"theme": "dark"}, col("settings").Default.Value)
	assert.Equal(t, "UPPER(email)", col("label").GeneratedAs)
	assert.Equal(t, schema.CreatedAtMode, col("createdAt").Mode)

	posts, ok := user.Relation("posts")
	require.True(t, ok)
	assert.Equal(t, schema.RelHasMany, posts.Type)
	assert.Equal(t, "Post", posts.ForeignModel)

	post, ok := db.Model("Post")
	require.True(t, ok)
	id, ok := post.Column("id")
	require.True(t, ok)
	assert.Equal(t, schema.PrimaryKey, id.Primary)
	assert.Equal(t, schema.UUID, id.Type)
	_, ok = post.Column("authorId")
	assert.True(t, ok)
	author, ok := post.Relation("author")
	require.True(t, ok)
	assert.Same(t, user, author.Target)
}

func TestLoadModelsFromTags_Errors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		errMsg string
	}{
		{
			name:   "bad default",
			source: "package models\n\ntype A struct {\n\tN int `rapid:\"default:many\"`\n}\n",
			errMsg: "field N: default",
		},
		{
			name:   "bad mode",
			source: "package models\n\nimport \"time\"\n\ntype A struct {\n\tAt time.Time `rapid:\"mode:deletedAt\"`\n}\n",
			errMsg: `unknown mode "deletedAt"`,
		},
		{
			name:   "syntax error",
			source: "package models\n\ntype A struct {\n",
			errMsg: "failed to parse",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeModels(t, map[string]string{"a.go": tt.source})
			_, err := LoadModelsFromTags(dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	_, err := LoadModelsFromTags(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestColumnName(t *testing.T) {
	tests := map[string]string{
		"ID":        "id",
		"ParentID":  "parentId",
		"Email":     "email",
		"CreatedAt": "createdAt",
		"AvatarURL": "avatarURL",
	}
	for field, want := range tests {
		assert.Equal(t, want, ColumnName(field), field)
	}
}

func TestParseTag(t *testing.T) {
	opts := parseTag(" column:user_id ; type:uuid;primary;;generated:printf('%d:%d', a, b)")
	assert.Equal(t, map[string]string{
		"column":    "user_id",
		"type":      "uuid",
		"generated": "printf('%d:%d', a, b)",
	}, opts.values)
	assert.Equal(t, map[string]bool{"primary": true}, opts.flags)
}
