// Package journal persists emitted watchdog events to a SQLite database so
// that state changes survive the process and can be inspected after the
// fact with the history command.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial schema
const currentSchemaVersion = 1

// Journal is an append-only SQLite event log.
// Uses WAL mode so the history command can read while the watchdog writes.
type Journal struct {
	db *sql.DB
}

// Record is one journaled event row.
type Record struct {
	ID          int64
	Session     string
	Seq         int64
	Kind        string
	Rule        string
	Node        string
	Description string
	ElapsedMS   int64
	RecordedAt  time.Time
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and the schema automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// This function is idempotent - safe to call on an existing journal.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Append inserts one event record. The ID field is assigned by the
// database and ignored on input.
func (j *Journal) Append(ctx context.Context, rec Record) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO events
		(session, seq, kind, rule, node, description, elapsed_ms, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.Session,
		rec.Seq,
		rec.Kind,
		rec.Rule,
		rec.Node,
		rec.Description,
		rec.ElapsedMS,
		rec.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// Recent returns the most recent limit records, oldest first, optionally
// filtered to one event kind. An empty kind matches every record; a limit
// of zero or less means no limit.
func (j *Journal) Recent(ctx context.Context, limit int, kind string) ([]Record, error) {
	query := `
		SELECT id, session, seq, kind, rule, node, description, elapsed_ms, recorded_at
		FROM events
	`
	var args []any
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, kind)
	}
	// Newest rows selected by descending insertion id, then reversed so
	// the caller reads them in the order they happened.
	query += " ORDER BY id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	for i, k := 0, len(records)-1; i < k; i, k = i+1, k-1 {
		records[i], records[k] = records[k], records[i]
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// Session returns every record for one session token in emission order.
func (j *Journal) Session(ctx context.Context, session string) ([]Record, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, session, seq, kind, rule, node, description, elapsed_ms, recorded_at
		FROM events
		WHERE session = ?
		ORDER BY seq ASC, id ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("query session events: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session events: %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var rec Record
	var recordedAt string
	if err := rows.Scan(
		&rec.ID,
		&rec.Session,
		&rec.Seq,
		&rec.Kind,
		&rec.Rule,
		&rec.Node,
		&rec.Description,
		&rec.ElapsedMS,
		&recordedAt,
	); err != nil {
		return Record{}, fmt.Errorf("scan event: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, recordedAt)
	if err != nil {
		return Record{}, fmt.Errorf("parse recorded_at %q: %w", recordedAt, err)
	}
	rec.RecordedAt = ts
	return rec, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if needed and stamps the schema version.
// Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}
	return nil
}
