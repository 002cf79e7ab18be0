// Package localdb runs feedback SQL jobs against a local SQLite file, for
// development and for deployments without Db2 on Cloud.
package localdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/dgallion1/chatrelay/internal/sqljob"
)

var _ sqljob.Runner = (*DB)(nil)

// DB is a sqljob.Runner backed by SQLite.
type DB struct {
	db    *sql.DB
	path  string
	table string
}

// Open opens (or creates) the database at path and ensures the log table
// exists. table is the already-quoted table name.
func Open(ctx context.Context, path, table string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps :memory: databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	d := &DB{db: db, path: path, table: table}
	if err := d.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return d, nil
}

func (d *DB) initSchema(ctx context.Context) error {
	schema := `CREATE TABLE IF NOT EXISTS ` + d.table + ` (
		"id" VARCHAR(64),
		"garoonId" VARCHAR(64),
		"name" VARCHAR(256),
		"timestamp" VARCHAR(32),
		"question" TEXT,
		"answer" TEXT,
		"isPositive" INTEGER,
		"categories" VARCHAR(512),
		"text" TEXT
	)`
	_, err := d.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// Run executes command. SQL errors are reported in Result.Error, the same
// way the Db2 job API reports them; polls is ignored since statements
// complete synchronously.
func (d *DB) Run(ctx context.Context, command string, limit, polls int) (*sqljob.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := &sqljob.Result{JobID: uuid.NewString()}

	if !returnsRows(command) {
		if _, err := d.db.ExecContext(ctx, command); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Error = err.Error()
		}
		res.Completed = true
		return res, nil
	}

	rows, err := d.db.QueryContext(ctx, command)
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.Error = err.Error()
		res.Completed = true
		return res, nil
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return res, fmt.Errorf("read columns: %w", err)
	}
	res.Columns = cols

	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if limit > 0 && len(res.Rows) >= limit {
			break
		}
		if err := rows.Scan(ptrs...); err != nil {
			return res, fmt.Errorf("scan row: %w", err)
		}
		rec := make([]string, len(cols))
		for i, v := range vals {
			rec[i] = sqljob.FormatValue(v)
		}
		res.Rows = append(res.Rows, rec)
	}
	if err := rows.Err(); err != nil {
		res.Error = err.Error()
	}
	res.Completed = true
	return res, nil
}

func returnsRows(command string) bool {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return false
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "WITH", "VALUES", "PRAGMA":
		return true
	}
	return false
}
