package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/rapidgen/generator"
	"github.com/ridoystarlord/rapidgen/schema"
	"github.com/ridoystarlord/rapidgen/sqlite"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	ctx    context.Context
	db     *sqlite.Database
	dir    string
	runner *Runner
	step   int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	dir := t.TempDir()
	return &fixture{
		ctx:    ctx,
		db:     db,
		dir:    dir,
		runner: New(db, dir, WithUser("tester"), WithClock(func() time.Time { return epoch })),
	}
}

// write adds a migration file named after the next second past epoch.
func (f *fixture) write(t *testing.T, up, down string) string {
	t.Helper()
	f.step++
	path, err := generator.WriteMigrationFile(f.dir, up, down, epoch.Add(time.Duration(f.step)*time.Second))
	require.NoError(t, err)
	return filepath.Base(path)
}

func (f *fixture) tables(t *testing.T) []any {
	t.Helper()
	names, err := f.db.PluckAll(f.ctx, sqlite.Raw(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND name NOT IN ('schema_migrations', 'migration_logs') ORDER BY name`))
	require.NoError(t, err)
	return names
}

var (
	usersV1 = schema.MustBuild(schema.NewModel("User",
		schema.Field("id", schema.IntegerColumn().Autoincrement()),
		schema.Field("name", schema.TextColumn()),
	))
	usersV2 = schema.MustBuild(schema.NewModel("User",
		schema.Field("id", schema.IntegerColumn().Autoincrement()),
		schema.Field("name", schema.TextColumn()),
		schema.Field("bio", schema.TextColumn().Nullable()),
	))
	usersV3 = schema.MustBuild(schema.NewModel("User",
		schema.Field("id", schema.IntegerColumn().Autoincrement()),
		schema.Field("name", schema.TextColumn().Unique()),
		schema.Field("bio", schema.TextColumn().Nullable()),
	))
)

func TestParseMigration(t *testing.T) {
	m, err := ParseMigration("1_migration.sql", generator.MigrationContent("CREATE TABLE a (x);", "DROP TABLE a;"))
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE a (x);", m.Up)
	assert.Equal(t, "DROP TABLE a;", m.Down)
	assert.Len(t, m.Checksum, 64)

	tests := map[string]string{
		"missing up":   "-- migrate:down\nDROP TABLE a;",
		"missing down": "-- migrate:up\nCREATE TABLE a (x);",
		"out of order": "-- migrate:down\nDROP TABLE a;\n-- migrate:up\nCREATE TABLE a (x);",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseMigration("bad.sql", content)
			assert.Error(t, err)
		})
	}
}

func TestApplyAndRollback(t *testing.T) {
	f := newFixture(t)
	first := f.write(t, generator.Migration(nil, usersV1), generator.Migration(usersV1, nil))
	second := f.write(t, generator.Migration(usersV1, usersV2), generator.Migration(usersV2, usersV1))

	applied, err := f.runner.ApplyMigrations(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{first, second}, applied)
	assert.Equal(t, []any{"users"}, f.tables(t))

	_, err = f.db.Run(f.ctx, sqlite.SQL(`INSERT INTO "users" ("name", "bio") VALUES (?, ?)`, "ada", "hi"))
	require.NoError(t, err)

	applied, err = f.runner.ApplyMigrations(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, applied, "nothing pending")

	status, err := f.runner.Status(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{first, second}, status.Applied)
	assert.Empty(t, status.Pending)
	assert.Empty(t, status.Modified)

	rolled, err := f.runner.RollbackMigrations(f.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{second}, rolled)

	status, err = f.runner.Status(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{first}, status.Applied)
	assert.Equal(t, []string{second}, status.Pending)

	rolled, err = f.runner.RollbackMigrations(f.ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{first}, rolled)
	assert.Empty(t, f.tables(t))

	_, err = f.runner.RollbackMigrations(f.ctx, 0)
	assert.Error(t, err)
}

func TestApply_RebuildManagesItsOwnTransaction(t *testing.T) {
	f := newFixture(t)
	f.write(t, generator.Migration(nil, usersV2), generator.Migration(usersV2, nil))
	rebuild := f.write(t, generator.Migration(usersV2, usersV3), generator.Migration(usersV3, usersV2))

	_, err := f.runner.ApplyMigrations(f.ctx)
	require.NoError(t, err)

	history, err := f.runner.GetMigrationHistory(f.ctx, 1, "")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, rebuild, history[0].MigrationName)
	assert.Equal(t, StatusSuccess, history[0].Status)
	assert.Equal(t, "tester", history[0].ExecutedBy)
	assert.True(t, epoch.Equal(history[0].ExecutedAt))

	_, err = f.db.Run(f.ctx, sqlite.SQL(`INSERT INTO "users" ("name") VALUES (?), (?)`, "ada", "ada"))
	assert.Error(t, err, "name is unique after the rebuild")

	rolled, err := f.runner.RollbackMigrations(f.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{rebuild}, rolled)
}

func authorsSchema(nullableName bool) *schema.Database {
	name := schema.TextColumn()
	if nullableName {
		name = name.Nullable()
	}
	return schema.MustBuild(
		schema.NewModel("User",
			schema.Field("id", schema.IntegerColumn().Autoincrement()),
			schema.Field("name", name),
		),
		schema.NewModel("Post",
			schema.Field("id", schema.IntegerColumn().Autoincrement()),
			schema.Field("authorId", schema.IntegerColumn()),
			schema.Edge("author", schema.BelongsTo("authorId", "User", "id")),
		),
	)
}

func TestApply_RebuildReferencedTable(t *testing.T) {
	f := newFixture(t)
	before, after := authorsSchema(false), authorsSchema(true)
	f.write(t, generator.Migration(nil, before), generator.Migration(before, nil))
	_, err := f.runner.ApplyMigrations(f.ctx)
	require.NoError(t, err)

	_, err = f.db.Run(f.ctx, sqlite.SQL(`INSERT INTO "users" ("name") VALUES (?)`, "ada"))
	require.NoError(t, err)
	_, err = f.db.Run(f.ctx, sqlite.SQL(`INSERT INTO "posts" ("authorId") VALUES (?)`, 1))
	require.NoError(t, err)

	rebuild := f.write(t, generator.Migration(before, after), generator.Migration(after, before))
	applied, err := f.runner.ApplyMigrations(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{rebuild}, applied)

	names, err := f.db.PluckAll(f.ctx, sqlite.Raw(`SELECT "name" FROM "users"`))
	require.NoError(t, err)
	assert.Equal(t, []any{"ada"}, names)

	_, err = f.db.Run(f.ctx, sqlite.SQL(`INSERT INTO "users" ("name") VALUES (?)`, nil))
	assert.NoError(t, err, "name is nullable after the rebuild")
	_, err = f.db.Run(f.ctx, sqlite.SQL(`INSERT INTO "posts" ("authorId") VALUES (?)`, 99))
	assert.Error(t, err, "foreign keys are enforced again")

	_, err = f.db.Run(f.ctx, sqlite.Raw(`DELETE FROM "users" WHERE "name" IS NULL`))
	require.NoError(t, err)
	rolled, err := f.runner.RollbackMigrations(f.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{rebuild}, rolled)
}

func TestApply_RebuildReportsForeignKeyViolations(t *testing.T) {
	f := newFixture(t)
	schemaV1 := authorsSchema(false)
	f.write(t, generator.Migration(nil, schemaV1), generator.Migration(schemaV1, nil))
	_, err := f.runner.ApplyMigrations(f.ctx)
	require.NoError(t, err)

	_, err = f.db.Run(f.ctx, sqlite.SQL(`INSERT INTO "users" ("name") VALUES (?)`, "ada"))
	require.NoError(t, err)
	_, err = f.db.Run(f.ctx, sqlite.SQL(`INSERT INTO "posts" ("authorId") VALUES (?)`, 1))
	require.NoError(t, err)

	bad := f.write(t, "BEGIN EXCLUSIVE TRANSACTION;\nDELETE FROM \"users\";\nCOMMIT TRANSACTION;", "")
	_, err = f.runner.ApplyMigrations(f.ctx)
	assert.ErrorContains(t, err, bad)
	assert.ErrorContains(t, err, "violating foreign keys")

	status, err := f.runner.Status(f.ctx)
	require.NoError(t, err)
	require.Len(t, status.Failed, 1)

	_, err = f.db.Run(f.ctx, sqlite.SQL(`INSERT INTO "posts" ("authorId") VALUES (?)`, 99))
	assert.Error(t, err, "foreign keys are enforced again")
}

func TestApply_FailedMigrationBlocksUntilEdited(t *testing.T) {
	f := newFixture(t)
	good := f.write(t, `CREATE TABLE "a" ("x" INTEGER);`, `DROP TABLE "a";`)
	bad := f.write(t, `CREATE TABLE "b" ("x" INTEGER); INSERT INTO "missing" VALUES (1);`, `DROP TABLE "b";`)

	applied, err := f.runner.ApplyMigrations(f.ctx)
	assert.ErrorContains(t, err, "executing migration "+bad)
	assert.Equal(t, []string{good}, applied)
	assert.Equal(t, []any{"a"}, f.tables(t), "the failed script is rolled back")

	_, err = f.runner.ApplyMigrations(f.ctx)
	assert.ErrorIs(t, err, ErrFailedMigrations)

	status, err := f.runner.Status(f.ctx)
	require.NoError(t, err)
	require.Len(t, status.Failed, 1)
	assert.Equal(t, bad, status.Failed[0].MigrationName)
	assert.Contains(t, status.Failed[0].ErrorMessage, "missing")

	require.NoError(t, os.WriteFile(filepath.Join(f.dir, bad),
		[]byte(generator.MigrationContent(`CREATE TABLE "b" ("x" INTEGER);`, `DROP TABLE "b";`)), 0o644))

	applied, err = f.runner.ApplyMigrations(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{bad}, applied)

	status, err = f.runner.Status(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, status.Failed)
	assert.Equal(t, []string{good, bad}, status.Applied)
}

func TestApply_FailureInsideScriptTransaction(t *testing.T) {
	f := newFixture(t)
	bad := f.write(t, "BEGIN EXCLUSIVE TRANSACTION;\nCREATE TABLE \"c\" (\"x\");\nINSERT INTO \"missing\" VALUES (1);\nCOMMIT TRANSACTION;", `DROP TABLE "c";`)

	_, err := f.runner.ApplyMigrations(f.ctx)
	assert.ErrorContains(t, err, bad)
	assert.Empty(t, f.tables(t))

	status, err := f.runner.Status(f.ctx)
	require.NoError(t, err)
	require.Len(t, status.Failed, 1)
}

func TestStatus_DetectsModifiedMigrations(t *testing.T) {
	f := newFixture(t)
	name := f.write(t, `CREATE TABLE "a" ("x" INTEGER);`, `DROP TABLE "a";`)
	_, err := f.runner.ApplyMigrations(f.ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(f.dir, name),
		[]byte(generator.MigrationContent(`CREATE TABLE "a" ("x" TEXT);`, `DROP TABLE "a";`)), 0o644))

	status, err := f.runner.Status(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{name}, status.Modified)
}

func TestPreviewMigrations(t *testing.T) {
	f := newFixture(t)
	name := f.write(t, `CREATE TABLE "a" ("x" INTEGER);`, `DROP TABLE "a";`)

	pending, err := f.runner.PreviewMigrations(f.ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, name, pending[0].Name)
	assert.Equal(t, `DROP TABLE "a";`, pending[0].Down)
	assert.Empty(t, f.tables(t), "preview applies nothing")
}

func TestGetMigrationLogs(t *testing.T) {
	f := newFixture(t)
	name := f.write(t, `CREATE TABLE "a" ("x" INTEGER);`, `DROP TABLE "a";`)
	_, err := f.runner.ApplyMigrations(f.ctx)
	require.NoError(t, err)

	logs, err := f.runner.GetMigrationLogs(f.ctx, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "SUCCESS", logs[0].Level)
	assert.Equal(t, "INFO", logs[1].Level)
	assert.Equal(t, name, logs[0].MigrationName)
	assert.Equal(t, "tester", logs[0].User)

	logs, err = f.runner.GetMigrationLogs(f.ctx, 1)
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	history, err := f.runner.GetMigrationHistory(f.ctx, 0, "nope")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestMissingMigrationsDir(t *testing.T) {
	f := newFixture(t)
	r := New(f.db, filepath.Join(f.dir, "absent"))
	_, err := r.ApplyMigrations(f.ctx)
	assert.ErrorContains(t, err, "read migrations dir")
}
