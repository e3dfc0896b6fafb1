package schema

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"user", true},
		{"User_2", true},
		{"_private", true},
		{"test model", false},
		{"", false},
		{"1x", false},
		{"a-b", false},
		{"dé", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidIdentifier(tt.name))
		})
	}
}

func TestBuild_DefaultTableName(t *testing.T) {
	db := MustBuild(
		NewModel("User", Field("id", IntegerColumn().Autoincrement())),
		NewModel("Category", Field("id", IntegerColumn().Autoincrement())),
		NewModel("Doc", Field("id", IntegerColumn().Autoincrement())).InTable("tbl"),
	)

	require.Len(t, db.Models, 3)
	assert.Equal(t, "users", db.Models[0].TableName)
	assert.Equal(t, "categories", db.Models[1].TableName)
	assert.Equal(t, "tbl", db.Models[2].TableName)
}

func TestBuild_InvalidIdentifiers(t *testing.T) {
	_, err := Build(
		NewModel("test model",
			Field("ok", TextColumn()),
			Field("bad column", TextColumn()),
			Field("1x", TextColumn()),
		),
	)
	require.Error(t, err)

	var schemaErr *Error
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []Issue{
		{Path: []string{"models", "test model", "name"}, Message: "model name cannot be used as an identifier "},
		{Path: []string{"models", "test model", "tableName"}, Message: "table name cannot be used as an identifier "},
		{Path: []string{"models", "test model", "columns", "bad column", "name"}, Message: "column name cannot be used as an identifier "},
		{Path: []string{"models", "test model", "columns", "1x", "name"}, Message: "column name cannot be used as an identifier "},
	}, schemaErr.Issues)
}

func TestBuild_RelationIssuesAreBatched(t *testing.T) {
	_, issues := Validate(
		NewModel("User",
			Field("id", IntegerColumn().Autoincrement()),
			Field("groupId", TextColumn()),
			Edge("missingLocal", BelongsTo("nope", "User", "id")),
			Edge("missingModel", BelongsTo("id", "Ghost", "id")),
			Edge("missingForeign", BelongsTo("id", "User", "nope")),
			Edge("mismatch", BelongsTo("groupId", "User", "id")),
		),
	)

	assert.Equal(t, []Issue{
		{Path: []string{"models", "User", "relations", "missingLocal", "localColumn"}, Message: "Invalid local column"},
		{Path: []string{"models", "User", "relations", "missingModel", "foreignModel"}, Message: "Invalid foreign model"},
		{Path: []string{"models", "User", "relations", "missingForeign", "foreignColumn"}, Message: "Invalid foreign column"},
		{Path: []string{"models", "User", "relations", "mismatch", "foreignColumn"}, Message: "Local and foreign columns have different types"},
	}, issues)
}

func TestBuild_ColumnInvariants(t *testing.T) {
	_, issues := Validate(
		NewModel("Thing",
			Field("a", TextColumn().Autoincrement()),
			Field("b", TextColumn().CreatedAt()),
			Field("c", TextColumn().Autogenerate()),
			Field("d", IntegerColumn().Default("x")),
			Field("e", Of("money")),
			Field("f", DateColumn().Default(time.Unix(0, 0))),
		),
	)

	require.Len(t, issues, 5)
	assert.Equal(t, []string{"models", "Thing", "columns", "a", "primary"}, issues[0].Path)
	assert.Equal(t, []string{"models", "Thing", "columns", "b", "mode"}, issues[1].Path)
	assert.Equal(t, []string{"models", "Thing", "columns", "c", "autogenerate"}, issues[2].Path)
	assert.Equal(t, []string{"models", "Thing", "columns", "d", "default"}, issues[3].Path)
	assert.Equal(t, "unsupported column type money", issues[4].Message)
}

func TestBuild_RelationNameCollidesWithColumn(t *testing.T) {
	_, issues := Validate(
		NewModel("Post",
			Field("id", IntegerColumn().Autoincrement()),
			Field("author", IntegerColumn()),
			Edge("author", BelongsTo("author", "Post", "id")),
		),
	)

	require.Len(t, issues, 1)
	assert.Equal(t, "Relation name collides with column name", issues[0].Message)
	assert.Equal(t, []string{"models", "Post", "relations", "author", "name"}, issues[0].Path)
}

func TestBuild_ResolvesSelfAndMutualRelations(t *testing.T) {
	db := MustBuild(
		NewModel("Node",
			Field("id", IntegerColumn().Autoincrement()),
			Field("parentId", IntegerColumn().Nullable()),
			Edge("parent", BelongsTo("parentId", "Node", "id")),
			Edge("children", HasMany("id", "Node", "parentId")),
			Edge("tag", HasOne("id", "Tag", "nodeId")),
		),
		NewModel("Tag",
			Field("nodeId", IntegerColumn().Unique()),
			Edge("node", BelongsTo("nodeId", "Node", "id")),
		),
	)

	node, ok := db.Model("Node")
	require.True(t, ok)
	tag, ok := db.Model("Tag")
	require.True(t, ok)

	parent, _ := node.Relation("parent")
	assert.Same(t, node, parent.Target)
	tagRel, _ := node.Relation("tag")
	assert.Same(t, tag, tagRel.Target)
	back, _ := tag.Relation("node")
	assert.Same(t, node, back.Target)
}

func TestBuild_DuplicateModel(t *testing.T) {
	_, issues := Validate(
		NewModel("User", Field("id", IntegerColumn())),
		NewModel("User", Field("id", IntegerColumn())),
	)
	require.Len(t, issues, 1)
	assert.Equal(t, "Duplicate model name", issues[0].Message)
}

func TestError_Message(t *testing.T) {
	err := &Error{Issues: []Issue{{Path: []string{"models", "A", "name"}, Message: "bad"}}}
	assert.Contains(t, err.Error(), "models.A.name: bad")
}
