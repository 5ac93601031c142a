package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// PostgresClient manages the connection to PostgreSQL
type PostgresClient struct {
	conn *pgx.Conn
}

// NewPostgresClient creates a new PostgreSQL client
func NewPostgresClient(ctx context.Context, connString string) (*PostgresClient, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{conn: conn}, nil
}

// Close closes the database connection
func (c *PostgresClient) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

// GetConnection returns the underlying connection
func (c *PostgresClient) GetConnection() *pgx.Conn {
	return c.conn
}

var postgresDDL = []string{
	`CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		checksum TEXT NOT NULL,
		body BYTEA NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshots_name ON snapshots (name, created_at)`,
}

// pgBackend stores snapshots over a native pgx connection
type pgBackend struct {
	client *PostgresClient
}

func (b *pgBackend) migrate(ctx context.Context) error {
	for _, stmt := range postgresDDL {
		if _, err := b.client.GetConnection().Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (b *pgBackend) insert(ctx context.Context, rec record) error {
	query := `
		INSERT INTO snapshots (id, name, checksum, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := b.client.GetConnection().Exec(ctx, query, rec.id, rec.name, rec.checksum, rec.body, rec.createdAt)
	return err
}

func (b *pgBackend) latest(ctx context.Context, name string) (record, error) {
	query := `
		SELECT id, name, checksum, body, created_at
		FROM snapshots
		WHERE name = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return b.queryOne(ctx, query, name)
}

func (b *pgBackend) get(ctx context.Context, id string) (record, error) {
	query := `
		SELECT id, name, checksum, body, created_at
		FROM snapshots
		WHERE id = $1
	`
	return b.queryOne(ctx, query, id)
}

func (b *pgBackend) queryOne(ctx context.Context, query string, arg string) (record, error) {
	var rec record
	err := b.client.GetConnection().QueryRow(ctx, query, arg).Scan(&rec.id, &rec.name, &rec.checksum, &rec.body, &rec.createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return record{}, ErrSnapshotNotFound
	}
	return rec, err
}

func (b *pgBackend) list(ctx context.Context, name string) ([]record, error) {
	query := `
		SELECT id, name, checksum, created_at
		FROM snapshots
		WHERE name = $1
		ORDER BY created_at DESC
	`

	rows, err := b.client.GetConnection().Query(ctx, query, name)
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

func (b *pgBackend) close(ctx context.Context) error {
	return b.client.Close(ctx)
}
