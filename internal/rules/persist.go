package rules

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"verdure/internal/logging"
)

// Persister is the persistence boundary: the store hands it an opaque
// serialized blob on every successful mutation and asks for the last one on
// startup. Wire format and storage medium are the persister's concern.
type Persister interface {
	// SaveBlob durably stores the blob, replacing any previous one.
	SaveBlob(blob []byte) error

	// LoadBlob returns the last persisted blob. The bool is false when
	// nothing has been persisted yet.
	LoadBlob() ([]byte, bool, error)
}

// SQLitePersister stores the rule blob in a single-row SQLite table.
type SQLitePersister struct {
	db   *sql.DB
	path string
}

// NewSQLitePersister opens (or creates) the database at path.
func NewSQLitePersister(path string) (*SQLitePersister, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewSQLitePersister")
	defer timer.Stop()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS rule_blobs (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		blob TEXT NOT NULL,
		saved_at INTEGER NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	logging.Store("Rule persistence ready at %s", path)
	return &SQLitePersister{db: db, path: path}, nil
}

// SaveBlob upserts the single blob row.
func (p *SQLitePersister) SaveBlob(blob []byte) error {
	_, err := p.db.Exec(`
		INSERT INTO rule_blobs (id, blob, saved_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET blob = excluded.blob, saved_at = excluded.saved_at`,
		string(blob), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save rule blob: %w", err)
	}
	logging.StoreDebug("Saved rule blob (%d bytes)", len(blob))
	return nil
}

// LoadBlob returns the persisted blob, or (nil, false, nil) when none exists.
func (p *SQLitePersister) LoadBlob() ([]byte, bool, error) {
	var blob string
	err := p.db.QueryRow(`SELECT blob FROM rule_blobs WHERE id = 1`).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load rule blob: %w", err)
	}
	return []byte(blob), true, nil
}

// Path returns the database file path (watched for external replacement).
func (p *SQLitePersister) Path() string {
	return p.path
}

// Close releases the database handle.
func (p *SQLitePersister) Close() error {
	return p.db.Close()
}

// NopPersister discards blobs and never has one to load. Backs tests and
// ephemeral runs.
type NopPersister struct{}

func (NopPersister) SaveBlob([]byte) error          { return nil }
func (NopPersister) LoadBlob() ([]byte, bool, error) { return nil, false, nil }
