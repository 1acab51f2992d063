package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/kalambet/ecoswap/internal/items"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore keeps records in an append-only SQLite table. Ordering is by
// insertion sequence, so ReadAll matches the flat-file backend.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) ecoswap.db in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func OpenSQLite(dataDir string) (*SQLiteStore, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, storageErr("creating data directory", err)
		}
		dsn = filepath.Join(dataDir, "ecoswap.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storageErr("opening database", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, storageErr("pinging database", err)
	}

	// A single connection serializes writers and keeps :memory: databases alive.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, storageErr("setting busy timeout", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, storageErr("setting journal mode", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, storageErr("running migrations", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Append(r items.Record) error {
	r = items.Sanitize(r)
	_, err := s.db.Exec(`
		INSERT INTO items (id, product_name, description, contact_name, contact_email, contact_phone, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), r.ProductName, r.Description, r.ContactName, r.ContactEmail, r.ContactPhone,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return storageErr("inserting item", err)
	}
	return nil
}

func (s *SQLiteStore) ReadAll() ([]items.Record, error) {
	rows, err := s.db.Query(`
		SELECT product_name, description, contact_name, contact_email, contact_phone
		FROM items ORDER BY seq ASC`)
	if err != nil {
		return nil, storageErr("querying items", err)
	}
	defer rows.Close()

	records := []items.Record{}
	for rows.Next() {
		var r items.Record
		if err := rows.Scan(&r.ProductName, &r.Description, &r.ContactName, &r.ContactEmail, &r.ContactPhone); err != nil {
			return nil, storageErr("scanning item", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating items", err)
	}
	return records, nil
}

// migrate applies every embedded migration not yet recorded in
// schema_version, in file name order. Each runs in its own transaction.
func (s *SQLiteStore) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	applied, err := s.AppliedMigrations()
	if err != nil {
		return fmt.Errorf("loading applied migrations: %w", err)
	}
	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("listing migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		var version int
		if _, err := fmt.Sscanf(path.Base(name), "%d_", &version); err != nil {
			return fmt.Errorf("migration %s has no version prefix: %w", name, err)
		}
		if done[version] {
			continue
		}
		if err := s.applyMigration(name, version); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) applyMigration(name string, version int) error {
	script, err := migrationsFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("reading migration %s: %w", name, err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("migration %d: %w", version, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(script)); err != nil {
		return fmt.Errorf("applying migration %d: %w", version, err)
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
		return fmt.Errorf("recording migration %d: %w", version, err)
	}
	return tx.Commit()
}

// AppliedMigrations returns the applied migration versions in ascending order.
func (s *SQLiteStore) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}
