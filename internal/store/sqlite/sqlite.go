package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/wirehook/internal/store/sqlstore"
)

const (
	memoryPath = ":memory:"

	// driverName is go-sqlite3 with unicode_lower registered on every connection.
	driverName = "sqlite3_unicode"
	// lowerFunc replaces the built-in LOWER, which only folds ASCII.
	lowerFunc = "unicode_lower"
)

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc(lowerFunc, unicodeLower, true)
		},
	})
}

// unicodeLower lowercases TEXT and BLOB values and passes NULL through.
func unicodeLower(v any) any {
	switch s := v.(type) {
	case string:
		return strings.ToLower(s)
	case []byte:
		return strings.ToLower(string(s))
	default:
		return v
	}
}

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	*sqlstore.Store
}

// New creates a new SQLite store.
// dbPath is the path to the SQLite database file; missing parent directories are created.
func New(dbPath string) (*SQLiteStore, error) {
	if dbPath != memoryPath {
		if dir := filepath.Dir(dbPath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open(driverName, dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// SQLite serializes writers anyway; one connection also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &SQLiteStore{Store: sqlstore.New(db, Dialect{})}, nil
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to prepare the database before use.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open(driverName, dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Set connection pool limits before setup
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{Store: sqlstore.New(db, Dialect{})}, nil
}

// ParseURL extracts the file path from a sqlite:// database URL.
//
//	sqlite:////data/app.db   -> /data/app.db
//	sqlite:///./data/app.db  -> ./data/app.db
//	sqlite://:memory:        -> :memory:
//
// Values without the scheme are returned unchanged.
func ParseURL(databaseURL string) string {
	switch {
	case strings.HasPrefix(databaseURL, "sqlite:///"):
		return strings.TrimPrefix(databaseURL, "sqlite:///")
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return strings.TrimPrefix(databaseURL, "sqlite://")
	default:
		return databaseURL
	}
}

func dsn(dbPath string) string {
	return dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
}

// Dialect is the SQLite flavour of sqlstore.Dialect.
type Dialect struct{}

func (Dialect) Name() string { return "sqlite" }

func (Dialect) Placeholder(int) string { return "?" }

func (Dialect) Schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS messages (
			message_id  TEXT PRIMARY KEY NOT NULL,
			from_msisdn TEXT NOT NULL,
			to_msisdn   TEXT NOT NULL,
			ts          TEXT NOT NULL,
			ts_key      TEXT NOT NULL,
			text        TEXT,
			created_at  TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_ts ON messages(ts_key, message_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_from_ts ON messages(from_msisdn, ts_key, message_id)`,
	}
}

func (Dialect) IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func (Dialect) LowerFunc() string { return lowerFunc }

func (Dialect) TableExistsQuery() string {
	return `SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?`
}

// SnapshotTxOptions returns nil: a deferred SQLite transaction reads one snapshot
// from its first statement on.
func (Dialect) SnapshotTxOptions() *sql.TxOptions {
	return nil
}
