// Package exchangelog keeps an optional on-disk record of raw evaluator
// exchanges for debugging. Workspace state itself is never persisted; only
// the request/response payloads of individual calls land here, including the
// opaque raw-model-response the client otherwise ignores.
package exchangelog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	_ "modernc.org/sqlite"
)

// Entry is one recorded evaluator call.
type Entry struct {
	ID        string
	Function  string
	Request   json.RawMessage
	Response  json.RawMessage
	Err       string
	CreatedAt time.Time
}

// Log stores exchanges in a SQLite database using modernc.org/sqlite
// (pure Go, no CGO).
type Log struct {
	db      *sql.DB
	entropy *ulid.MonotonicEntropy
}

// Open opens (or creates) the exchange log at the given path.
func Open(path string) (*Log, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open exchange log: %w", err)
	}

	// SQLite only supports one concurrent writer. A single connection
	// serializes all access through Go's connection pool.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS exchanges (
		id TEXT PRIMARY KEY,
		function TEXT NOT NULL,
		request TEXT NOT NULL,
		response TEXT,
		error TEXT,
		created_at DATETIME NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create exchanges table: %w", err)
	}

	return &Log{
		db:      db,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}, nil
}

// Record appends one exchange.
func (l *Log) Record(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = ulid.MustNew(ulid.Timestamp(time.Now()), l.entropy).String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO exchanges (id, function, request, response, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Function, string(entry.Request), string(entry.Response),
		entry.Err, entry.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record exchange: %w", err)
	}
	return nil
}

// Recent returns up to limit exchanges, newest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, function, request, response, error, created_at
		 FROM exchanges ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list exchanges: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var request, response, createdAt string
		if err := rows.Scan(&entry.ID, &entry.Function, &request, &response, &entry.Err, &createdAt); err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		entry.Request = json.RawMessage(request)
		if response != "" {
			entry.Response = json.RawMessage(response)
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			entry.CreatedAt = t
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Close closes the underlying database.
func (l *Log) Close() error {
	return l.db.Close()
}
