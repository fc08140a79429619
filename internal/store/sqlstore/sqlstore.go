package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vovakirdan/wirehook/internal/store"
)

const messageColumns = "message_id, from_msisdn, to_msisdn, ts, text, created_at"

// Store implements store.Store on top of database/sql.
type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// New wraps an open database. The schema is not touched; call Migrate for that.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect, now: time.Now}
}

// WithClock replaces the clock used to stamp created_at.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// DB exposes the underlying handle, mostly for tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate applies the idempotent schema.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.Schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply %s schema: %w", s.dialect.Name(), err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping %s: %v", store.ErrUnavailable, s.dialect.Name(), err)
	}
	return nil
}

// Ready checks the database is reachable and the messages table exists.
func (s *Store) Ready(ctx context.Context) error {
	if err := s.Ping(ctx); err != nil {
		return err
	}
	var one int
	err := s.db.QueryRowContext(ctx, s.dialect.TableExistsQuery(), store.TableName).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrSchemaMissing
	}
	if err != nil {
		return fmt.Errorf("%w: check schema: %v", store.ErrUnavailable, err)
	}
	return nil
}

// ==== MessageStore implementation ====

// Insert persists msg; a primary key conflict is reported as store.InsertDuplicate.
func (s *Store) Insert(ctx context.Context, msg store.Message) (store.InsertResult, error) {
	tsKey, err := store.TimestampKey(msg.Timestamp)
	if err != nil {
		return 0, fmt.Errorf("insert message %q: %w", msg.ID, err)
	}

	p := s.dialect.Placeholder
	query := fmt.Sprintf(`
		INSERT INTO messages (message_id, from_msisdn, to_msisdn, ts, ts_key, text, created_at)
		VALUES (%s, %s, %s, %s, %s, %s, %s)
	`, p(1), p(2), p(3), p(4), p(5), p(6), p(7))

	_, err = s.db.ExecContext(ctx, query,
		msg.ID,
		msg.FromAddress,
		msg.ToAddress,
		msg.Timestamp,
		tsKey,
		nullString(msg.Text),
		store.FormatCreatedAt(s.now()),
	)
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return store.InsertDuplicate, nil
		}
		return 0, fmt.Errorf("%w: insert message: %v", store.ErrUnavailable, err)
	}
	return store.InsertCreated, nil
}

// Scan returns a page ordered by (ts, message_id) and the total matching count,
// both read inside one transaction.
func (s *Store) Scan(ctx context.Context, filter store.Filter, limit, offset int) ([]store.Message, int64, error) {
	if limit <= 0 || offset < 0 {
		return nil, 0, fmt.Errorf("scan messages: invalid window limit=%d offset=%d", limit, offset)
	}

	where, args, err := s.buildWhere(filter)
	if err != nil {
		return nil, 0, err
	}

	tx, err := s.db.BeginTx(ctx, s.dialect.SnapshotTxOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("%w: begin scan: %v", store.ErrUnavailable, err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // read-only transaction
	}()

	var total int64
	countQuery := "SELECT COUNT(*) FROM messages" + where
	if err := tx.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: count messages: %v", store.ErrUnavailable, err)
	}

	messages := make([]store.Message, 0)
	if total > int64(offset) {
		messages, err = s.queryPage(ctx, tx, where, args, limit, offset)
		if err != nil {
			return nil, 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("%w: end scan: %v", store.ErrUnavailable, err)
	}
	return messages, total, nil
}

func (s *Store) queryPage(ctx context.Context, tx *sql.Tx, where string, args []any, limit, offset int) ([]store.Message, error) {
	n := len(args)
	query := fmt.Sprintf(
		"SELECT %s FROM messages%s ORDER BY ts_key ASC, message_id ASC LIMIT %s OFFSET %s",
		messageColumns, where, s.dialect.Placeholder(n+1), s.dialect.Placeholder(n+2),
	)
	pageArgs := append(append([]any{}, args...), limit, offset)

	rows, err := tx.QueryContext(ctx, query, pageArgs...)
	if err != nil {
		return nil, fmt.Errorf("%w: query messages: %v", store.ErrUnavailable, err)
	}
	defer rows.Close()

	messages := make([]store.Message, 0, limit)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate messages: %v", store.ErrUnavailable, err)
	}
	return messages, nil
}

// Aggregate computes Stats against one read snapshot.
func (s *Store) Aggregate(ctx context.Context) (store.Stats, error) {
	stats := store.Stats{MessagesPerSender: make([]store.SenderCount, 0)}

	tx, err := s.db.BeginTx(ctx, s.dialect.SnapshotTxOptions())
	if err != nil {
		return stats, fmt.Errorf("%w: begin aggregate: %v", store.ErrUnavailable, err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // read-only transaction
	}()

	totals := `
		SELECT
			COUNT(*),
			COUNT(DISTINCT from_msisdn),
			COUNT(DISTINCT to_msisdn),
			COUNT(CASE WHEN text IS NOT NULL AND text <> '' THEN 1 END)
		FROM messages
	`
	if err := tx.QueryRowContext(ctx, totals).Scan(
		&stats.TotalMessages,
		&stats.SendersCount,
		&stats.RecipientsCount,
		&stats.MessagesWithText,
	); err != nil {
		return stats, fmt.Errorf("%w: count totals: %v", store.ErrUnavailable, err)
	}
	stats.MessagesWithoutText = stats.TotalMessages - stats.MessagesWithText

	if stats.TotalMessages == 0 {
		return stats, tx.Commit()
	}

	topSenders := fmt.Sprintf(`
		SELECT from_msisdn, COUNT(*) AS cnt
		FROM messages
		GROUP BY from_msisdn
		ORDER BY cnt DESC, from_msisdn ASC
		LIMIT %d
	`, store.TopSendersLimit)
	rows, err := tx.QueryContext(ctx, topSenders)
	if err != nil {
		return stats, fmt.Errorf("%w: query senders: %v", store.ErrUnavailable, err)
	}
	for rows.Next() {
		var sc store.SenderCount
		if err := rows.Scan(&sc.FromAddress, &sc.Count); err != nil {
			rows.Close()
			return stats, fmt.Errorf("%w: scan sender: %v", store.ErrUnavailable, err)
		}
		stats.MessagesPerSender = append(stats.MessagesPerSender, sc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("%w: iterate senders: %v", store.ErrUnavailable, err)
	}

	first, err := boundaryTimestamp(ctx, tx, "ASC")
	if err != nil {
		return stats, err
	}
	last, err := boundaryTimestamp(ctx, tx, "DESC")
	if err != nil {
		return stats, err
	}
	stats.FirstMessageTS = &first
	stats.LastMessageTS = &last

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("%w: end aggregate: %v", store.ErrUnavailable, err)
	}
	return stats, nil
}

// boundaryTimestamp returns the caller-supplied ts of the earliest or latest row.
func boundaryTimestamp(ctx context.Context, tx *sql.Tx, direction string) (string, error) {
	query := fmt.Sprintf(
		"SELECT ts FROM messages ORDER BY ts_key %s, message_id %s LIMIT 1",
		direction, direction,
	)
	var ts string
	if err := tx.QueryRowContext(ctx, query).Scan(&ts); err != nil {
		return "", fmt.Errorf("%w: query boundary timestamp: %v", store.ErrUnavailable, err)
	}
	return ts, nil
}

func (s *Store) buildWhere(filter store.Filter) (string, []any, error) {
	var conditions []string
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return s.dialect.Placeholder(len(args))
	}

	if filter.FromAddress != "" {
		conditions = append(conditions, "from_msisdn = "+next(filter.FromAddress))
	}
	if filter.Since != "" {
		key, err := store.TimestampKey(filter.Since)
		if err != nil {
			return "", nil, fmt.Errorf("scan messages: since: %w", err)
		}
		conditions = append(conditions, "ts_key >= "+next(key))
	}
	if filter.TextQuery != "" {
		pattern := "%" + escapeLike(strings.ToLower(filter.TextQuery)) + "%"
		conditions = append(conditions,
			"text IS NOT NULL AND "+s.dialect.LowerFunc()+"(text) LIKE "+next(pattern)+` ESCAPE '\'`)
	}

	if len(conditions) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func scanMessage(rows *sql.Rows) (store.Message, error) {
	var msg store.Message
	var text sql.NullString
	var createdAt string
	if err := rows.Scan(&msg.ID, &msg.FromAddress, &msg.ToAddress, &msg.Timestamp, &text, &createdAt); err != nil {
		return msg, fmt.Errorf("%w: scan message: %v", store.ErrUnavailable, err)
	}
	if text.Valid {
		msg.Text = &text.String
	}
	parsed, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return msg, fmt.Errorf("parse created_at of %q: %w", msg.ID, err)
	}
	msg.CreatedAt = parsed
	return msg, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
