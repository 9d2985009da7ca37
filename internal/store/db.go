package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB is the Postgres handle shared by the repository. The pgx stdlib
// driver keeps the repository on plain database/sql.
type DB struct {
	Client *sql.DB
}

// NewDB opens the attendance database. Pool limits come from config; the
// API and the worker size them differently. A ping failure is returned
// alongside the handle so callers can decide whether to start degraded.
func NewDB(connString string, maxOpen, maxIdle int) (*DB, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(time.Hour)
	return &DB{Client: db}, db.PingContext(context.Background())
}

// Close releases the pool. Safe on a nil handle.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}
