// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Creates the messages audit table on open and appends delivery records

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the database at path and ensures the schema exists.
// Parent directories are created if needed. ":memory:" is accepted for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection keeps ":memory:" databases alive and serialises writers.
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling WAL mode: %w", err)
		}
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the audit table if it doesn't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			date_time TEXT,
			sender_email TEXT,
			receiver_email TEXT,
			message_text TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_messages_date_time ON messages(date_time);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// AppendRecord inserts r into the messages table.
// Timestamp defaults to now; ID is set from the auto-increment column.
func (s *SQLiteStore) AppendRecord(ctx context.Context, r *Record) error {
	if err := r.Validate(); err != nil {
		return err
	}

	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	r.Timestamp = r.Timestamp.UTC().Truncate(time.Second)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (date_time, sender_email, receiver_email, message_text)
		VALUES (?, ?, ?, ?)
	`,
		r.Timestamp.Format(TimestampLayout),
		r.SenderEmail,
		r.ReceiverEmail,
		r.MessageText,
	)
	if err != nil {
		return fmt.Errorf("inserting record: %w", err)
	}

	r.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading record id: %w", err)
	}

	s.logger.Debug("appended audit record",
		"id", r.ID,
		"sender", r.SenderEmail,
		"receiver", r.ReceiverEmail,
	)
	return nil
}

// GetRecord retrieves a record by ID
func (s *SQLiteStore) GetRecord(ctx context.Context, id int64) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, date_time, sender_email, receiver_email, message_text
		FROM messages
		WHERE id = ?
	`, id)

	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListRecords returns the most recent records, newest first.
// A non-positive limit defaults to 50; limits above 1000 are capped.
func (s *SQLiteStore) ListRecords(ctx context.Context, limit int) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date_time, sender_email, receiver_email, message_text
		FROM messages
		ORDER BY id DESC
		LIMIT ?
	`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := []*Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return records, nil
}

// CountRecords returns how many deliveries have been recorded
func (s *SQLiteStore) CountRecords(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM messages").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// normalizeLimit applies default (50) and cap (1000) to list limits.
func normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return 50
	case limit > 1000:
		return 1000
	default:
		return limit
	}
}

// scanRecord scans a row into a Record. Every column except id is nullable
// and NULL reads as the zero value.
func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var r Record
	var ts, sender, receiver, text sql.NullString

	if err := scanner.Scan(&r.ID, &ts, &sender, &receiver, &text); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning record: %w", err)
	}

	r.SenderEmail = sender.String
	r.ReceiverEmail = receiver.String
	r.MessageText = text.String

	if ts.Valid && ts.String != "" {
		parsed, err := time.Parse(TimestampLayout, ts.String)
		if err != nil {
			return nil, fmt.Errorf("parsing date_time %q: %w", ts.String, err)
		}
		r.Timestamp = parsed
	}
	return &r, nil
}
