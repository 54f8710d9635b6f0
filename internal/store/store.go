package store

import (
	_ "embed"
	"fmt"
	"net/url"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// connParams are go-sqlite3 DSN options applied to every connection.
// WAL lets trace and replay read a journal while a session is writing it.
var connParams = url.Values{
	"_journal_mode": {"WAL"},
	"_synchronous":  {"NORMAL"},
	"_busy_timeout": {"5000"},
	"_foreign_keys": {"on"},
}

// migrations[i] upgrades a journal from user_version i to i+1. Fresh
// journals get schema.sql and then every migration.
var migrations = []struct {
	name string
	sql  string
}{
	{
		name: "index callback outcomes",
		sql:  `CREATE INDEX IF NOT EXISTS idx_wave_callbacks_callback ON wave_callbacks(callback_id)`,
	},
}

// Store is the durable wave journal. It implements dispatch.Journal.
type Store struct {
	db *sqlx.DB
}

// Open creates or opens the journal at path and brings its schema up to
// date. Opening the same path again is safe.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", "file:"+path+"?"+connParams.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}
	// One writer per journal; a single connection also keeps the DSN
	// pragmas in force for every statement.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying handle for direct queries.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

func migrate(db *sqlx.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	var version int
	if err := db.Get(&version, "PRAGMA user_version"); err != nil {
		return fmt.Errorf("failed to read user_version: %w", err)
	}
	for ; version < len(migrations); version++ {
		m := migrations[version]
		if _, err := db.Exec(m.sql); err != nil {
			return fmt.Errorf("migration %d (%s): %w", version+1, m.name, err)
		}
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", version+1)); err != nil {
			return fmt.Errorf("failed to set user_version: %w", err)
		}
	}
	return nil
}

// pragma reads the current value of a SQLite pragma.
func (s *Store) pragma(name string) (string, error) {
	var v string
	if err := s.db.Get(&v, "PRAGMA "+name); err != nil {
		return "", fmt.Errorf("failed to query %s: %w", name, err)
	}
	return v, nil
}
