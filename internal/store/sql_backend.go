package store

import (
	"context"
	"database/sql"
	"errors"
)

var sqliteDDL = []string{
	`CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		checksum TEXT NOT NULL,
		body BLOB NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshots_name ON snapshots (name, created_at)`,
}

var mysqlDDL = []string{
	`CREATE TABLE IF NOT EXISTS snapshots (
		id CHAR(36) NOT NULL,
		name VARCHAR(255) NOT NULL,
		checksum CHAR(64) NOT NULL,
		body LONGBLOB NOT NULL,
		created_at BIGINT NOT NULL,
		PRIMARY KEY (id),
		KEY idx_snapshots_name (name, created_at)
	)`,
}

// sqlClient is a database/sql connection owned by one of the dialect clients
type sqlClient interface {
	GetDB() *sql.DB
	Close() error
}

// sqlBackend stores snapshots through database/sql with ? placeholders
type sqlBackend struct {
	client sqlClient
	db     *sql.DB
	ddl    []string
}

func newSQLBackend(client sqlClient, ddl []string) *sqlBackend {
	return &sqlBackend{client: client, db: client.GetDB(), ddl: ddl}
}

func (b *sqlBackend) migrate(ctx context.Context) error {
	for _, stmt := range b.ddl {
		if _, err := b.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (b *sqlBackend) insert(ctx context.Context, rec record) error {
	query := `
		INSERT INTO snapshots (id, name, checksum, body, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := b.db.ExecContext(ctx, query, rec.id, rec.name, rec.checksum, rec.body, rec.createdAt)
	return err
}

func (b *sqlBackend) latest(ctx context.Context, name string) (record, error) {
	query := `
		SELECT id, name, checksum, body, created_at
		FROM snapshots
		WHERE name = ?
		ORDER BY created_at DESC
		LIMIT 1
	`
	return b.queryOne(ctx, query, name)
}

func (b *sqlBackend) get(ctx context.Context, id string) (record, error) {
	query := `
		SELECT id, name, checksum, body, created_at
		FROM snapshots
		WHERE id = ?
	`
	return b.queryOne(ctx, query, id)
}

func (b *sqlBackend) queryOne(ctx context.Context, query string, arg string) (record, error) {
	var rec record
	err := b.db.QueryRowContext(ctx, query, arg).Scan(&rec.id, &rec.name, &rec.checksum, &rec.body, &rec.createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return record{}, ErrSnapshotNotFound
	}
	return rec, err
}

func (b *sqlBackend) list(ctx context.Context, name string) ([]record, error) {
	query := `
		SELECT id, name, checksum, created_at
		FROM snapshots
		WHERE name = ?
		ORDER BY created_at DESC
	`

	rows, err := b.db.QueryContext(ctx, query, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []record
	for rows.Next() {
		var rec record
		if err := rows.Scan(&rec.id, &rec.name, &rec.checksum, &rec.createdAt); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}

	return recs, rows.Err()
}

func (b *sqlBackend) close(context.Context) error {
	return b.client.Close()
}
