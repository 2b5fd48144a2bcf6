// Package report persists historical session reports: what a finished
// test session did, for later inspection. It is adapted from the
// teacher's store.Store (migrate-on-start SQLite) and audit.PDRWriter
// (one writer, one append-only record per finished unit of work),
// collapsed into a single writer over a single table since a session
// report is this domain's only audit artifact.
//
// This is not live scheduler state: Attach/Detach and the in-memory
// operation/resource tables vanish with the process, by design. A Report
// is written once, when a session ends.
package report

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fentz26/interleave/internal/ids"
	_ "modernc.org/sqlite"
)

// Report is one finished test session's historical record.
type Report struct {
	ID        string
	SessionID string
	Iteration int
	TraceCSV  string
	Strategy  string
	ErrorCode int
	CreatedAt time.Time
}

// Store is the SQLite-backed report store.
type Store struct {
	db *sql.DB
}

// New opens (creating if necessary) the report database at dbPath and
// runs its migration.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open report db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate report db: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		iteration INTEGER NOT NULL,
		trace_csv TEXT NOT NULL,
		strategy TEXT NOT NULL,
		error_code INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_reports_session_id ON reports(session_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record writes one finished session's report and returns it with its
// assigned id and timestamp filled in.
func (s *Store) Record(sessionID string, iteration int, traceCSV, strategyDescription string, errorCode int) (*Report, error) {
	r := &Report{
		ID:        ids.New().String(),
		SessionID: sessionID,
		Iteration: iteration,
		TraceCSV:  traceCSV,
		Strategy:  strategyDescription,
		ErrorCode: errorCode,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO reports (id, session_id, iteration, trace_csv, strategy, error_code, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SessionID, r.Iteration, r.TraceCSV, r.Strategy, r.ErrorCode, r.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert report: %w", err)
	}
	return r, nil
}

// Get fetches a single report by id.
func (s *Store) Get(id string) (*Report, error) {
	row := s.db.QueryRow(
		`SELECT id, session_id, iteration, trace_csv, strategy, error_code, created_at
		 FROM reports WHERE id = ?`, id)
	return scanReport(row)
}

// List returns every report for sessionID in descending creation order.
// An empty sessionID returns every report.
func (s *Store) List(sessionID string) ([]*Report, error) {
	var rows *sql.Rows
	var err error
	if sessionID == "" {
		rows, err = s.db.Query(
			`SELECT id, session_id, iteration, trace_csv, strategy, error_code, created_at
			 FROM reports ORDER BY created_at DESC`)
	} else {
		rows, err = s.db.Query(
			`SELECT id, session_id, iteration, trace_csv, strategy, error_code, created_at
			 FROM reports WHERE session_id = ? ORDER BY created_at DESC`, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []*Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row rowScanner) (*Report, error) {
	r := &Report{}
	err := row.Scan(&r.ID, &r.SessionID, &r.Iteration, &r.TraceCSV, &r.Strategy, &r.ErrorCode, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan report: %w", err)
	}
	return r, nil
}
