package localdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "relay.db"), `"WXO_LOG"`)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDB_InsertThenSelect(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for _, stmt := range []string{
		`INSERT INTO "WXO_LOG" ("id", "garoonId", "name", "timestamp", "question", "answer", "isPositive", "categories", "text") VALUES ('a', 'g1', 'Ann', '2026-01-02 03:04:05.006', 'q1', 'it''s fine', 1, '', '')`,
		`INSERT INTO "WXO_LOG" ("id", "garoonId", "name", "timestamp", "question", "answer", "isPositive", "categories", "text") VALUES ('b', 'g2', 'Bob', '2026-01-03 03:04:05.006', 'q2', 'line1
line2', 0, 'wrong, slow', 'meh')`,
	} {
		res, err := db.Run(ctx, stmt, 1, 5)
		require.NoError(t, err)
		assert.Empty(t, res.Error)
		assert.True(t, res.Completed)
		_, err = uuid.Parse(res.JobID)
		assert.NoError(t, err)
	}

	res, err := db.Run(ctx, `SELECT * FROM "WXO_LOG" ORDER BY "timestamp" DESC`, 5000, 10)
	require.NoError(t, err)
	assert.Empty(t, res.Error)
	assert.Equal(t, []string{"id", "garoonId", "name", "timestamp", "question", "answer", "isPositive", "categories", "text"}, res.Columns)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, []string{"b", "g2", "Bob", "2026-01-03 03:04:05.006", "q2", "line1\nline2", "0", "wrong, slow", "meh"}, res.Rows[0])
	assert.Equal(t, "it's fine", res.Rows[1][5])
}

func TestDB_SelectHonoursLimit(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	for range 5 {
		_, err := db.Run(ctx, `INSERT INTO "WXO_LOG" ("id") VALUES ('x')`, 1, 1)
		require.NoError(t, err)
	}

	res, err := db.Run(ctx, `SELECT "id" FROM "WXO_LOG"`, 3, 1)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 3)
}

func TestDB_NullBecomesEmpty(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	_, err := db.Run(ctx, `INSERT INTO "WXO_LOG" ("id") VALUES ('only-id')`, 1, 1)
	require.NoError(t, err)

	res, err := db.Run(ctx, `SELECT "id", "text" FROM "WXO_LOG"`, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"only-id", ""}}, res.Rows)
}

func TestDB_SQLErrorIsReportedInResult(t *testing.T) {
	db := openTestDB(t)

	res, err := db.Run(context.Background(), `INSERT INTO "NO_SUCH_TABLE" ("id") VALUES ('x')`, 1, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Error)
	assert.NotEmpty(t, res.JobID)

	res, err = db.Run(context.Background(), `SELECT nope FROM "WXO_LOG"`, 1, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Error)
}

func TestDB_CanceledContext(t *testing.T) {
	db := openTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := db.Run(ctx, `SELECT 1`, 1, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReturnsRows(t *testing.T) {
	assert.True(t, returnsRows("  select 1"))
	assert.True(t, returnsRows("WITH x AS (SELECT 1) SELECT * FROM x"))
	assert.False(t, returnsRows("INSERT INTO t VALUES (1)"))
	assert.False(t, returnsRows(""))
}
