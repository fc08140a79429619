package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lib/pq"

	"github.com/vovakirdan/wirehook/internal/store/sqlstore"
)

// uniqueViolation is the SQLSTATE Postgres reports for a duplicate key.
const uniqueViolation = "23505"

// PostgresStore implements store.Store for PostgreSQL.
type PostgresStore struct {
	*sqlstore.Store
}

// New opens a PostgreSQL store. dsn is a postgres:// or postgresql:// URL.
func New(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresStore{Store: sqlstore.New(db, Dialect{})}, nil
}

// Dialect is the PostgreSQL flavour of sqlstore.Dialect.
type Dialect struct{}

func (Dialect) Name() string { return "postgres" }

func (Dialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

// Schema pins COLLATE "C" on ordered columns so ties sort byte-wise, as in SQLite.
func (Dialect) Schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS messages (
			message_id  TEXT COLLATE "C" PRIMARY KEY,
			from_msisdn TEXT COLLATE "C" NOT NULL,
			to_msisdn   TEXT NOT NULL,
			ts          TEXT NOT NULL,
			ts_key      TEXT COLLATE "C" NOT NULL,
			text        TEXT,
			created_at  TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_ts ON messages(ts_key, message_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_from_ts ON messages(from_msisdn, ts_key, message_id)`,
	}
}

func (Dialect) IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}

func (Dialect) TableExistsQuery() string {
	return `SELECT 1 FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = $1`
}

// LowerFunc returns LOWER, which folds all of Unicode in a UTF8 database.
func (Dialect) LowerFunc() string { return "LOWER" }

func (Dialect) SnapshotTxOptions() *sql.TxOptions {
	return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
}
