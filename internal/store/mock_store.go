// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite and to inject append failures

package store

import (
	"context"
	"sync"
	"time"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu      sync.RWMutex
	records []*Record
	nextID  int64

	// AppendErr, when set, is returned by AppendRecord and nothing is stored.
	AppendErr error
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{nextID: 1}
}

// AppendRecord stores a copy of r.
func (m *MockStore) AppendRecord(ctx context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.AppendErr != nil {
		return m.AppendErr
	}
	if err := r.Validate(); err != nil {
		return err
	}

	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	r.Timestamp = r.Timestamp.UTC().Truncate(time.Second)
	r.ID = m.nextID
	m.nextID++

	c := *r
	m.records = append(m.records, &c)
	return nil
}

// GetRecord retrieves a record by ID.
func (m *MockStore) GetRecord(ctx context.Context, id int64) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.records {
		if r.ID == id {
			c := *r
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

// ListRecords returns copies of the stored records, newest first.
func (m *MockStore) ListRecords(ctx context.Context, limit int) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit = normalizeLimit(limit)
	result := make([]*Record, 0, min(limit, len(m.records)))
	for i := len(m.records) - 1; i >= 0 && len(result) < limit; i-- {
		c := *m.records[i]
		result = append(result, &c)
	}
	return result, nil
}

// CountRecords returns the number of stored records.
func (m *MockStore) CountRecords(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}

// Compile-time interface checks
var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*MockStore)(nil)
)
