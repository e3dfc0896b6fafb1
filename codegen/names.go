package codegen

import (
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/ridoystarlord/rapidgen/schema"
)

// FieldName turns a column or relation name into an exported Go field name:
// parentId -> ParentID, created_at -> CreatedAt.
func FieldName(name string) string {
	var b strings.Builder
	for _, part := range strings.Split(name, "_") {
		b.WriteString(schema.UpperFirst(part))
	}
	out := b.String()
	switch {
	case out == "Id":
		return "ID"
	case strings.HasSuffix(out, "Id"):
		return strings.TrimSuffix(out, "Id") + "ID"
	}
	return out
}

// names holds every identifier emitted for one model.
type names struct {
	Type   string // Doc
	Data   string // DocData
	Where  string // WhereDoc
	Order  string // OrderDocBy
	Client string // DocClient

	FindFirstArgs  string
	FindManyArgs   string
	CreateArgs     string
	CreateManyArgs string
	UpdateManyArgs string
	DeleteManyArgs string

	formatWhere     string
	whereComponents string
	parse           string
	serialize       string
	fillCreate      string
	fillUpdate      string
	descriptor      string

	// ClientField is the field on the top-level Client: Docs.
	ClientField string
	// Route is the URL group the scaffold mounts the model under: /docs.
	Route string
}

func modelNames(m *schema.Model) names {
	t := schema.UpperFirst(m.Name)
	plural := inflect.Pluralize(t)
	return names{
		Type:   t,
		Data:   t + "Data",
		Where:  "Where" + t,
		Order:  "Order" + t + "By",
		Client: t + "Client",

		FindFirstArgs:  "FindFirst" + t + "Args",
		FindManyArgs:   "FindMany" + t + "Args",
		CreateArgs:     "Create" + t + "Args",
		CreateManyArgs: "CreateMany" + t + "Args",
		UpdateManyArgs: "UpdateMany" + t + "Args",
		DeleteManyArgs: "DeleteMany" + t + "Args",

		formatWhere:     "formatWhere" + t,
		whereComponents: "where" + t + "Components",
		parse:           "parse" + t,
		serialize:       "serialize" + t + "Data",
		fillCreate:      "fill" + t + "CreateData",
		fillUpdate:      "fill" + t + "UpdateData",
		descriptor:      schema.LowerFirst(t) + "Model",

		ClientField: plural,
		Route:       "/" + schema.LowerFirst(plural),
	}
}
