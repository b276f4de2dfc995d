// ABOUTME: Store interface and data types for coven-mailer audit persistence
// ABOUTME: Defines the delivery Record and the append-only Store contract

package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("not found")

// ErrInvalidRecord is returned when a record is missing required fields
var ErrInvalidRecord = errors.New("invalid record")

// TimestampLayout is the on-disk format of date_time, matching SQLite's datetime('now').
const TimestampLayout = "2006-01-02 15:04:05"

// Record is one row of the delivery audit log.
// Records are written once per successful delivery and never updated.
type Record struct {
	ID            int64     // auto-incremented by the database
	Timestamp     time.Time // when the delivery succeeded (UTC, second precision)
	SenderEmail   string
	ReceiverEmail string
	MessageText   string
}

// Validate checks that the addressing fields are present.
func (r *Record) Validate() error {
	if r.SenderEmail == "" {
		return fmt.Errorf("%w: sender_email is required", ErrInvalidRecord)
	}
	if r.ReceiverEmail == "" {
		return fmt.Errorf("%w: receiver_email is required", ErrInvalidRecord)
	}
	return nil
}

// Store defines the interface for the delivery audit log
type Store interface {
	// AppendRecord inserts a new record, filling in ID and Timestamp.
	AppendRecord(ctx context.Context, r *Record) error

	// GetRecord returns a single record by ID or ErrNotFound.
	GetRecord(ctx context.Context, id int64) (*Record, error)

	// ListRecords returns up to limit records, newest first.
	ListRecords(ctx context.Context, limit int) ([]*Record, error)

	// CountRecords returns the total number of records.
	CountRecords(ctx context.Context) (int, error)

	// Close releases any resources held by the store
	Close() error
}
