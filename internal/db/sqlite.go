package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS items (
	pk   TEXT NOT NULL,
	sk   TEXT NOT NULL,
	body TEXT NOT NULL,
	PRIMARY KEY (pk, sk)
);
`

const upsertItemSQL = `INSERT OR REPLACE INTO items (pk, sk, body) VALUES (?, ?, ?)`

// SQLiteTable stores items as JSON bodies in one SQLite table, keeping the
// same (PK, SK) addressing and sort order as the DynamoDB table.
type SQLiteTable struct {
	db *sqlx.DB
}

func NewSQLiteTable(path string) (*SQLiteTable, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("[SQLite] failed to open database: %w", err)
	}
	// one writer at a time
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("[SQLite] failed to create schema: %w", err)
	}

	slog.Info("[SQLite] Table ready", slog.String("path", path))
	return &SQLiteTable{db: db}, nil
}

func (t *SQLiteTable) Close() error {
	return t.db.Close()
}

func (t *SQLiteTable) Put(ctx context.Context, e Entry) error {
	body, err := json.Marshal(e.Value)
	if err != nil {
		return fmt.Errorf("[SQLite] failed to marshal %s/%s: %w", e.PK, e.SK, err)
	}
	if _, err := t.db.ExecContext(ctx, upsertItemSQL, e.PK, e.SK, string(body)); err != nil {
		return fmt.Errorf("[SQLite] failed to put %s/%s: %w", e.PK, e.SK, err)
	}
	return nil
}

func (t *SQLiteTable) PutBatch(ctx context.Context, entries []Entry) error {
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("[SQLite] failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, upsertItemSQL)
	if err != nil {
		return fmt.Errorf("[SQLite] failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		body, err := json.Marshal(e.Value)
		if err != nil {
			return fmt.Errorf("[SQLite] failed to marshal %s/%s: %w", e.PK, e.SK, err)
		}
		if _, err := stmt.ExecContext(ctx, e.PK, e.SK, string(body)); err != nil {
			return fmt.Errorf("[SQLite] failed to put %s/%s: %w", e.PK, e.SK, err)
		}
	}

	return tx.Commit()
}

type sqliteRow struct {
	PK   string `db:"pk"`
	SK   string `db:"sk"`
	Body string `db:"body"`
}

func (t *SQLiteTable) Get(ctx context.Context, pk, sk string) (Item, bool, error) {
	var row sqliteRow
	err := t.db.GetContext(ctx, &row, `SELECT pk, sk, body FROM items WHERE pk = ? AND sk = ?`, pk, sk)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("[SQLite] failed to get %s/%s: %w", pk, sk, err)
	}
	return sqliteItem(row), true, nil
}

func (t *SQLiteTable) Query(ctx context.Context, pk, skPrefix string, opts QueryOptions) ([]Item, error) {
	order := "ASC"
	if opts.NewestFirst {
		order = "DESC"
	}
	query := `SELECT pk, sk, body FROM items
		WHERE pk = ? AND substr(sk, 1, length(?)) = ?
		ORDER BY sk ` + order
	args := []any{pk, skPrefix, skPrefix}
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	var rows []sqliteRow
	if err := t.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("[SQLite] query on %s failed: %w", pk, err)
	}

	items := make([]Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, sqliteItem(r))
	}
	return items, nil
}

type sqliteItem sqliteRow

func (i sqliteItem) Keys() (string, string) {
	return i.PK, i.SK
}

func (i sqliteItem) Decode(out any) error {
	return json.Unmarshal([]byte(i.Body), out)
}
