package db

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned by point reads when no row matches
	ErrNotFound = errors.New("not found")
	// ErrConstraint marks a row that violates a schema constraint (null required field)
	ErrConstraint = errors.New("constraint violation")
	// ErrSchemaExists is returned by CreateSchema(ifNotExists=false) when tables are present
	ErrSchemaExists = errors.New("schema already exists")
)

// DB wraps a SQLite database connection
type DB struct {
	conn *sql.DB
	Path string
}

// OpenDB opens a SQLite database with WAL mode and bulk-load friendly pragmas
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []struct{ stmt, what string }{
		// WAL lets query engines read while nothing writes, and keeps reads concurrent
		{"PRAGMA journal_mode=WAL", "setting WAL mode"},
		{"PRAGMA synchronous=NORMAL", "setting synchronous mode"},
		{"PRAGMA busy_timeout=5000", "setting busy timeout"},
		{"PRAGMA temp_store=MEMORY", "setting temp store"},
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p.stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", p.what, err)
		}
	}

	return &DB{conn: conn, Path: path}, nil
}

// OpenMemory opens a private in-memory database. The pool is pinned to one
// connection since every new connection would see an empty database.
func OpenMemory() (*DB, error) {
	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	return &DB{conn: conn, Path: ":memory:"}, nil
}

// Wrap adopts an already open connection (in-memory databases, sqlmock)
func Wrap(conn *sql.DB) *DB {
	return &DB{conn: conn, Path: ":memory:"}
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.conn.Close()
}

// Conn returns the underlying sql.DB for custom queries
func (d *DB) Conn() *sql.DB {
	return d.conn
}

// nullable maps an empty string to NULL
func nullable(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
