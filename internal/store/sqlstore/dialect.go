package sqlstore

import "database/sql"

// Dialect captures what differs between SQL engines.
type Dialect interface {
	// Name identifies the engine in logs and errors.
	Name() string

	// Placeholder returns the bind parameter for the n-th (1-based) argument.
	Placeholder(n int) string

	// Schema returns idempotent DDL statements creating the messages table and its indexes.
	Schema() []string

	// IsUniqueViolation reports whether err is the engine rejecting a duplicate primary key.
	IsUniqueViolation(err error) bool

	// TableExistsQuery returns a query taking the table name as its only argument
	// and yielding a row only when the table exists.
	TableExistsQuery() string

	// LowerFunc names a SQL function lowercasing text across all of Unicode.
	LowerFunc() string

	// SnapshotTxOptions returns options for read transactions that must see one snapshot.
	SnapshotTxOptions() *sql.TxOptions
}
