package shared

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// MemoryDatabase is the path of a private in-memory database.
const MemoryDatabase = ":memory:"

// NewDatabase opens a connection to a SQLite database at the specified path.
//
// The path can be ":memory:" for an in-memory database, which is pinned to a single connection so every query sees the same data.
// File databases use WAL journaling and a busy timeout so concurrent readers do not fail on a writer.
func NewDatabase(path string) (*sqlx.DB, error) {
	dsn := path
	if path != MemoryDatabase {
		dsn = path + "?_busy_timeout=5000&_journal_mode=WAL"
	}

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path == MemoryDatabase {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// ConfigureDatabase sets connection pool settings for the database.
//
// In-memory databases keep their single connection.
func ConfigureDatabase(db *sqlx.DB, path string, maxOpenConns, maxIdleConns int) {
	if path == MemoryDatabase {
		return
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if maxIdleConns > 0 {
		db.SetMaxIdleConns(maxIdleConns)
	}
}
