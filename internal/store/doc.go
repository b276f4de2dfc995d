// Package store provides the append-only delivery audit log using SQLite.
//
// # Schema
//
// A single table, created idempotently when the store is opened:
//
//	CREATE TABLE IF NOT EXISTS messages (
//		id INTEGER PRIMARY KEY AUTOINCREMENT,
//		date_time TEXT,
//		sender_email TEXT,
//		receiver_email TEXT,
//		message_text TEXT
//	);
//
// date_time uses SQLite's datetime('now') layout ("2006-01-02 15:04:05", UTC)
// so the file stays readable by plain sqlite3 tooling.
//
// # Usage
//
// SQLiteStore is the production implementation. Records are only ever
// appended; there is no update or delete path.
//
//	s, err := store.NewSQLiteStore("/var/lib/coven-mailer/logs.db")
//	err = s.AppendRecord(ctx, &store.Record{SenderEmail: from, ReceiverEmail: to, MessageText: body})
//
// # Testing
//
// Use NewMockStore() for unit tests; set AppendErr to simulate a failing disk.
// Use NewSQLiteStore(":memory:") or a t.TempDir() path for real SQLite.
package store
