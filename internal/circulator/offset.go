package circulator

import (
	"database/sql"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// NoopOffsetManager acks records by recording their IDs in memory. It
// satisfies the idempotence requirement spec.md §7 places on
// OffsetManager (a WorkerShutdownTimeout can cause an abandoned worker's
// commit to race a freshly started one) via a plain set union.
type NoopOffsetManager struct {
	seen sync.Map
}

// NewNoopOffsetManager constructs a NoopOffsetManager.
func NewNoopOffsetManager() *NoopOffsetManager {
	return &NoopOffsetManager{}
}

func (m *NoopOffsetManager) Commit(records []ConnectRecord) error {
	for _, r := range records {
		m.seen.Store(r.ID, struct{}{})
	}
	return nil
}

// Committed reports whether a record ID has been committed, for tests.
func (m *NoopOffsetManager) Committed(id string) bool {
	_, ok := m.seen.Load(id)
	return ok
}

// SQLiteOffsetManager persists commits to a durable ledger, grounded on
// transport/sqlite's database/sql + mattn/go-sqlite3 driver usage. An
// INSERT OR IGNORE keyed on the record ID makes Commit idempotent across
// the abandoned-worker race spec.md §7 describes.
type SQLiteOffsetManager struct {
	db *sql.DB
}

// NewSQLiteOffsetManager opens (and migrates) a durable offset ledger at
// dsn. Use ":memory:" for an ephemeral ledger in tests.
func NewSQLiteOffsetManager(dsn string) (*SQLiteOffsetManager, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS committed_records (
		record_id TEXT PRIMARY KEY,
		runner    TEXT NOT NULL,
		committed_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteOffsetManager{db: db}, nil
}

func (m *SQLiteOffsetManager) Commit(records []ConnectRecord) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO committed_records (record_id, runner) VALUES (?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(r.ID, string(r.Runner)); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// Committed reports whether a record ID has been committed.
func (m *SQLiteOffsetManager) Committed(id string) (bool, error) {
	var count int
	err := m.db.QueryRow(`SELECT COUNT(1) FROM committed_records WHERE record_id = ?`, id).Scan(&count)
	return count > 0, err
}

// Close releases the underlying database handle.
func (m *SQLiteOffsetManager) Close() error {
	return m.db.Close()
}
