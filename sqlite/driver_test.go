package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Database {
	t.Helper()
	db, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "file::memory:?_pragma=foreign_keys(1)", DSN(":memory:"))
	assert.Equal(t, "file:app.db?_pragma=foreign_keys(1)", DSN("app.db"))
	assert.Equal(t, "file:app.db?mode=ro&_pragma=foreign_keys(1)", DSN("file:app.db?mode=ro"))
}

func TestDatabase_RunGetAll(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)

	require.NoError(t, db.Exec(ctx, `CREATE TABLE "t" ("id" INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL, "name" TEXT)`))

	res, err := db.Run(ctx, SQL(`INSERT INTO "t" ("name") VALUES (?), (?)`, "a", "b"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Changes)
	assert.Equal(t, int64(2), res.LastInsertRowID)

	row, err := db.Get(ctx, SQL(`SELECT "id", "name" FROM "t" WHERE "name" = ?`, "b"))
	require.NoError(t, err)
	assert.Equal(t, Row{"id": int64(2), "name": "b"}, row)

	row, err = db.Get(ctx, SQL(`SELECT "id" FROM "t" WHERE "name" = ?`, "zzz"))
	require.NoError(t, err)
	assert.Nil(t, row)

	rows, err := db.All(ctx, Raw(`SELECT "name" FROM "t" ORDER BY "id"`))
	require.NoError(t, err)
	assert.Equal(t, []Row{{"name": "a"}, {"name": "b"}}, rows)

	one, err := db.PluckOne(ctx, Raw(`SELECT count(*) FROM "t"`))
	require.NoError(t, err)
	assert.Equal(t, int64(2), one)

	all, err := db.PluckAll(ctx, Raw(`SELECT "name" FROM "t" ORDER BY "id" DESC`))
	require.NoError(t, err)
	assert.Equal(t, []any{"b", "a"}, all)
}

func TestDatabase_ForeignKeysEnabled(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)

	on, err := db.PluckOne(ctx, Raw("PRAGMA foreign_keys"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), on)

	require.NoError(t, db.Exec(ctx, `
CREATE TABLE "p" ("id" INTEGER PRIMARY KEY NOT NULL);
CREATE TABLE "c" ("pid" INTEGER NOT NULL, FOREIGN KEY ( "pid" ) REFERENCES "p" ( "id" ));`))
	_, err = db.Run(ctx, SQL(`INSERT INTO "c" ("pid") VALUES (?)`, 9))
	assert.Error(t, err)
}

func TestDatabase_IterateStopsOnError(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)
	boom := errors.New("boom")

	seen := 0
	err := db.Iterate(ctx, Raw("SELECT 1 UNION ALL SELECT 2"), func(Row) error {
		seen++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, seen)
}

func TestDatabase_TxRollsBack(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)
	require.NoError(t, db.Exec(ctx, `CREATE TABLE "t" ("n" INTEGER)`))

	err := db.Tx(ctx, func(tx *Database) error {
		if _, err := tx.Run(ctx, SQL(`INSERT INTO "t" VALUES (?)`, 1)); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	n, err := db.PluckOne(ctx, Raw(`SELECT count(*) FROM "t"`))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestDatabase_BindsConvertedValues(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectExec(`UPDATE "t" SET "flag" = \?`).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	res, err := New(sqlDB).Run(context.Background(), SQL(`UPDATE "t" SET "flag" = ?`, true))
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Changes)
	assert.NoError(t, mock.ExpectationsWereMet())
}
