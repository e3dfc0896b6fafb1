package schema

// ColumnBuilder describes a column. Every method returns a modified copy,
// so a partially configured builder can be reused as a template.
type ColumnBuilder struct {
	col Column
}

func newColumn(t ColumnType) ColumnBuilder {
	return ColumnBuilder{col: Column{Type: t}}
}

// Of starts a column of an arbitrary type. Loaders use it for types read from text.
func Of(t ColumnType) ColumnBuilder { return newColumn(t) }

func TextColumn() ColumnBuilder    { return newColumn(Text) }
func IntegerColumn() ColumnBuilder { return newColumn(Integer) }
func DateColumn() ColumnBuilder    { return newColumn(Date) }
func UUIDColumn() ColumnBuilder    { return newColumn(UUID) }
func JSONColumn() ColumnBuilder    { return newColumn(JSON) }
func BooleanColumn() ColumnBuilder { return newColumn(Boolean) }
func BlobColumn() ColumnBuilder    { return newColumn(Blob) }

func (b ColumnBuilder) Primary() ColumnBuilder {
	b.col.Primary = PrimaryKey
	return b
}

// Autoincrement marks an integer column as PRIMARY KEY AUTOINCREMENT.
func (b ColumnBuilder) Autoincrement() ColumnBuilder {
	b.col.Primary = PrimaryAutoincrement
	return b
}

func (b ColumnBuilder) Nullable() ColumnBuilder {
	b.col.Nullable = true
	return b
}

func (b ColumnBuilder) Unique() ColumnBuilder {
	b.col.Unique = true
	return b
}

// Default sets the value used by create when the caller leaves the column unset.
func (b ColumnBuilder) Default(v any) ColumnBuilder {
	b.col.Default = &Literal{Value: v}
	return b
}

func (b ColumnBuilder) GeneratedAs(expr string) ColumnBuilder {
	b.col.GeneratedAs = expr
	return b
}

// CreatedAt fills a date column with the current time on create.
func (b ColumnBuilder) CreatedAt() ColumnBuilder {
	b.col.Mode = CreatedAtMode
	return b
}

// UpdatedAt fills a date column with the current time on create and update.
func (b ColumnBuilder) UpdatedAt() ColumnBuilder {
	b.col.Mode = UpdatedAtMode
	return b
}

// Autogenerate fills a uuid column with a random uuid on create.
func (b ColumnBuilder) Autogenerate() ColumnBuilder {
	b.col.Autogenerate = true
	return b
}

// Spec returns a copy of the column described so far.
func (b ColumnBuilder) Spec() Column {
	return b.col
}

type RelationBuilder struct {
	rel Relation
}

func newRelation(t RelationType, localColumn, foreignModel, foreignColumn string) RelationBuilder {
	return RelationBuilder{rel: Relation{
		Type:          t,
		LocalColumn:   localColumn,
		ForeignModel:  foreignModel,
		ForeignColumn: foreignColumn,
	}}
}

// BelongsTo declares that localColumn stores a key of foreignModel.foreignColumn.
// It is the only relation type that emits a FOREIGN KEY constraint.
func BelongsTo(localColumn, foreignModel, foreignColumn string) RelationBuilder {
	return newRelation(RelBelongsTo, localColumn, foreignModel, foreignColumn)
}

func HasOne(localColumn, foreignModel, foreignColumn string) RelationBuilder {
	return newRelation(RelHasOne, localColumn, foreignModel, foreignColumn)
}

func HasMany(localColumn, foreignModel, foreignColumn string) RelationBuilder {
	return newRelation(RelHasMany, localColumn, foreignModel, foreignColumn)
}

// RelationOf starts a relation of an arbitrary type.
func RelationOf(t RelationType, localColumn, foreignModel, foreignColumn string) RelationBuilder {
	return newRelation(t, localColumn, foreignModel, foreignColumn)
}

// FieldSpec is one named member of a model: a column or a relation.
type FieldSpec struct {
	name     string
	column   *Column
	relation *Relation
}

// Field names a column inside a model.
func Field(name string, b ColumnBuilder) FieldSpec {
	c := b.col
	c.Name = name
	return FieldSpec{name: name, column: &c}
}

// Edge names a relation inside a model.
func Edge(name string, b RelationBuilder) FieldSpec {
	r := b.rel
	r.Name = name
	return FieldSpec{name: name, relation: &r}
}

// ModelBuilder describes a model. Like ColumnBuilder it never mutates the receiver.
type ModelBuilder struct {
	name      string
	tableName string
	fields    []FieldSpec
}

func NewModel(name string, fields ...FieldSpec) ModelBuilder {
	return ModelBuilder{name: name, fields: append([]FieldSpec(nil), fields...)}
}

// Name returns the model name.
func (b ModelBuilder) Name() string { return b.name }

// InTable overrides the default table name.
func (b ModelBuilder) InTable(name string) ModelBuilder {
	b.tableName = name
	return b
}

// With appends fields.
func (b ModelBuilder) With(fields ...FieldSpec) ModelBuilder {
	next := make([]FieldSpec, 0, len(b.fields)+len(fields))
	next = append(next, b.fields...)
	b.fields = append(next, fields...)
	return b
}

// WithTimestamps adds createdAt and updatedAt date columns. A field of the
// same name is replaced in place.
func (b ModelBuilder) WithTimestamps() ModelBuilder {
	created := Field("createdAt", DateColumn().CreatedAt())
	updated := Field("updatedAt", DateColumn().UpdatedAt())

	next := make([]FieldSpec, 0, len(b.fields)+2)
	var hasCreated, hasUpdated bool
	for _, f := range b.fields {
		switch f.name {
		case created.name:
			f, hasCreated = created, true
		case updated.name:
			f, hasUpdated = updated, true
		}
		next = append(next, f)
	}
	if !hasCreated {
		next = append(next, created)
	}
	if !hasUpdated {
		next = append(next, updated)
	}
	b.fields = next
	return b
}
