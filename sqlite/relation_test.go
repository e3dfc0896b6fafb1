package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamespace_NestsSafely(t *testing.T) {
	ns := RootNamespace("tbl")
	assert.Equal(t, "tbl", ns.Alias())
	assert.Equal(t, `"tbl"`, ns.AliasID().SQL())

	ns = ns.ReferenceTable("parent")
	assert.Equal(t, "parent", ns.Alias())

	ns = ns.ReferenceTable("parent")
	assert.Equal(t, "parent_parent", ns.Alias())
}

func TestNamespace_SiblingsAreIndependent(t *testing.T) {
	root := RootNamespace("tbl")
	a := root.ReferenceTable("parent")
	b := root.ReferenceTable("children")

	assert.Equal(t, "parent", a.Alias())
	assert.Equal(t, "children", b.Alias())
	assert.Equal(t, "children_parent", b.ReferenceTable("parent").Alias())
	assert.Equal(t, "tbl", root.Alias())
	assert.Equal(t, `"parent"."id"`, a.ID("id").SQL())
}

// whereNode is a self-referencing tree filter.
type whereNode struct {
	Name     *WhereString
	Parent   *WhereOneRelated[whereNode]
	Children *WhereManyRelated[whereNode]
	NOT      []*whereNode
}

func (w *whereNode) Chain() (and, or, not []*whereNode) {
	if w == nil {
		return nil, nil, nil
	}
	return nil, nil, w.NOT
}

var (
	parentRel   = RelationRef{Name: "parent", LocalColumn: "parentId", ForeignTable: "nodes", ForeignColumn: "id"}
	childrenRel = RelationRef{Name: "children", LocalColumn: "id", ForeignTable: "nodes", ForeignColumn: "parentId"}
)

func formatWhereNode(w *whereNode, ns Namespace) Template {
	return MakeWhereChained(w, ns, whereNodeComponents)
}

func whereNodeComponents(w *whereNode, ns Namespace) []Template {
	if w == nil {
		return nil
	}
	var parts []Template
	if w.Name != nil {
		parts = append(parts, MakeWhereString(ns.ID("name"), w.Name))
	}
	if w.Parent != nil {
		parts = append(parts, MakeWhereOneRelated(ns, parentRel, w.Parent, formatWhereNode))
	}
	if w.Children != nil {
		parts = append(parts, MakeWhereManyRelated(ns, childrenRel, w.Children, formatWhereNode))
	}
	return parts
}

func TestMakeWhereOneRelated(t *testing.T) {
	ns := RootNamespace("nodes")

	got := formatWhereNode(&whereNode{Parent: &WhereOneRelated[whereNode]{Is: &whereNode{Name: StringEq("root")}}}, ns)
	assertSQL(t, got,
		`1 = ( SELECT 1 FROM "nodes" AS "parent" WHERE "nodes"."parentId" = "parent"."id" AND "parent"."name" = ? LIMIT 1 )`,
		"root")

	got = formatWhereNode(&whereNode{Parent: &WhereOneRelated[whereNode]{IsNot: &whereNode{}}}, ns)
	assertSQL(t, got,
		`NULL IS ( SELECT 1 FROM "nodes" AS "parent" WHERE "nodes"."parentId" = "parent"."id" AND 1 = 1 LIMIT 1 )`)
}

func TestMakeWhereOneRelated_Empty(t *testing.T) {
	ns := RootNamespace("nodes")
	assertSQL(t, MakeWhereOneRelated(ns, parentRel, &WhereOneRelated[whereNode]{}, formatWhereNode), "1 = 1")
	assertSQL(t, MakeWhereOneRelated[whereNode](ns, parentRel, nil, formatWhereNode), "1 = 1")
}

func TestMakeWhereManyRelated(t *testing.T) {
	ns := RootNamespace("nodes")
	got := formatWhereNode(&whereNode{Children: &WhereManyRelated[whereNode]{
		Some: &whereNode{Name: StringEq("a")},
		None: &whereNode{Name: StringEq("b")},
	}}, ns)
	assertSQL(t, got,
		`1 = ( SELECT 1 FROM "nodes" AS "children" WHERE "nodes"."id" = "children"."parentId" AND "children"."name" = ? LIMIT 1 )`+
			` AND NULL IS ( SELECT 1 FROM "nodes" AS "children" WHERE "nodes"."id" = "children"."parentId" AND "children"."name" = ? LIMIT 1 )`,
		"a", "b")
}

func TestRelatedSubqueries_UseDistinctAliasesWhenNested(t *testing.T) {
	got := formatWhereNode(&whereNode{
		Parent: &WhereOneRelated[whereNode]{Is: &whereNode{
			Parent: &WhereOneRelated[whereNode]{Is: &whereNode{Name: StringEq("grand")}},
		}},
	}, RootNamespace("nodes"))

	assertSQL(t, got,
		`1 = ( SELECT 1 FROM "nodes" AS "parent" WHERE "nodes"."parentId" = "parent"."id" AND `+
			`1 = ( SELECT 1 FROM "nodes" AS "parent_parent" WHERE "parent"."parentId" = "parent_parent"."id" AND "parent_parent"."name" = ? LIMIT 1 )`+
			` LIMIT 1 )`,
		"grand")
}

func TestRelatedSubqueries_InsideNOT(t *testing.T) {
	got := formatWhereNode(&whereNode{
		NOT: []*whereNode{{Parent: &WhereOneRelated[whereNode]{Is: &whereNode{}}}},
	}, RootNamespace("nodes"))

	assertSQL(t, got,
		`NOT ( 1 = ( SELECT 1 FROM "nodes" AS "parent" WHERE "nodes"."parentId" = "parent"."id" AND 1 = 1 LIMIT 1 ) )`)
}
