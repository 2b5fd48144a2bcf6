package report

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "reports.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create report store: %v", err)
	}
	return s
}

func TestNewCreatesDatabaseFile(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "reports.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create report store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("report database file was not created")
	}
}

func TestRecordAndGet(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	r, err := s.Record("session-1", 3, "1,2,3,0,1", "random", 0)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if r.ID == "" {
		t.Error("expected a non-empty report id")
	}

	got, err := s.Get(r.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.SessionID != "session-1" {
		t.Errorf("expected session-1, got %s", got.SessionID)
	}
	if got.TraceCSV != "1,2,3,0,1" {
		t.Errorf("expected trace to round-trip, got %s", got.TraceCSV)
	}
	if got.Iteration != 3 {
		t.Errorf("expected iteration 3, got %d", got.Iteration)
	}
}

func TestListFiltersBySession(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	if _, err := s.Record("session-a", 0, "1", "random", 0); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if _, err := s.Record("session-a", 1, "2", "random", 0); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if _, err := s.Record("session-b", 0, "3", "pct", 0); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	reports, err := s.List("session-a")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports for session-a, got %d", len(reports))
	}

	all, err := s.List("")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 reports total, got %d", len(all))
	}
}

func TestGetUnknownIDReturnsError(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	if _, err := s.Get("does-not-exist"); err == nil {
		t.Fatal("expected an error for an unknown report id")
	}
}
