// Package sqlite implements the persistence repositories on SQLite via the
// pure-Go modernc.org/sqlite driver.
//
// SQLite runs every transaction at serializable isolation with a single
// writer, which is what gives the booking repository its atomic
// conflict-check-then-write guarantee: two concurrent creates on the same
// room cannot both observe a free interval and both commit.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store owns the database handle shared by the repositories.
type Store struct {
	db *sql.DB
}

// Open connects to the SQLite database identified by dsn.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// The sqlite driver serializes writers; a single connection avoids
	// SQLITE_BUSY churn under concurrent request load.
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	building TEXT NOT NULL DEFAULT '',
	floor INTEGER NOT NULL DEFAULT 0,
	capacity INTEGER NOT NULL DEFAULT 0,
	amenities TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'available',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS bookings (
	id TEXT PRIMARY KEY,
	room_id TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
	organizer_id TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'confirmed',
	checked_in INTEGER NOT NULL DEFAULT 0,
	checked_in_at TEXT,
	is_recurring INTEGER NOT NULL DEFAULT 0,
	recurrence_type TEXT NOT NULL DEFAULT 'none',
	recurrence_end_date TEXT,
	recurrence_interval INTEGER NOT NULL DEFAULT 0,
	recurrence_weekdays TEXT NOT NULL DEFAULT '',
	recurrence_day_of_month INTEGER NOT NULL DEFAULT 0,
	parent_id TEXT REFERENCES bookings(id) ON DELETE CASCADE,
	reminder_sent INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_bookings_room_window
	ON bookings(room_id, status, start_time, end_time);

CREATE TABLE IF NOT EXISTS booking_attendees (
	booking_id TEXT NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
	user_id TEXT NOT NULL,
	PRIMARY KEY (booking_id, user_id)
);

CREATE TABLE IF NOT EXISTS booking_extensions (
	booking_id TEXT NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	extended_by TEXT NOT NULL,
	minutes INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (booking_id, seq)
);
`

// Migrate creates the schema when it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// withTransaction runs fn inside a transaction, rolling back on error or panic.
func (s *Store) withTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Timestamps are persisted as UTC RFC 3339 strings so that lexicographic
// comparison in SQL matches chronological order.

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", value, err)
	}
	return t.UTC(), nil
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTimePtr(value sql.NullString) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	t, err := parseTime(value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func joinInts(values []int) string {
	if len(values) == 0 {
		return ""
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func splitInts(value string) ([]int, error) {
	if value == "" {
		return nil, nil
	}
	parts := strings.Split(value, ",")
	values := make([]int, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("parse stored int list %q: %w", value, err)
		}
		values = append(values, v)
	}
	return values, nil
}

func joinStrings(values []string) string {
	return strings.Join(values, ",")
}

func splitStrings(value string) []string {
	if value == "" {
		return nil
	}
	return strings.Split(value, ",")
}
