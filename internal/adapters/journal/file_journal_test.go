package journal

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestJournal(t *testing.T) *FileJournal {
	t.Helper()
	j, err := NewFileJournal(filepath.Join(t.TempDir(), "oglasi_rs_links.json"))
	if err != nil {
		t.Fatalf("NewFileJournal: %v", err)
	}
	return j
}

func TestFileJournalAddAndContains(t *testing.T) {
	j := newTestJournal(t)
	now := time.Now()

	if j.Contains("https://example.rs/stan-1") {
		t.Error("empty journal must not contain anything")
	}

	if err := j.Add("https://example.rs/stan-1", now); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !j.Contains("https://example.rs/stan-1") {
		t.Error("journal must contain added url")
	}
	if j.Size() != 1 {
		t.Errorf("Size = %d, want 1", j.Size())
	}
}

func TestFileJournalSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "links.json")
	now := time.Now()

	first, err := NewFileJournal(path)
	if err != nil {
		t.Fatalf("NewFileJournal: %v", err)
	}
	if err := first.Add("https://example.rs/stan-1", now); err != nil {
		t.Fatalf("Add: %v", err)
	}

	second, err := NewFileJournal(path)
	if err != nil {
		t.Fatalf("NewFileJournal: %v", err)
	}
	if err := second.Load(now); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !second.Contains("https://example.rs/stan-1") {
		t.Error("journal must survive a restart")
	}
}

func TestFileJournalExpiry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.json")
	now := time.Now()

	j, err := NewFileJournal(path)
	if err != nil {
		t.Fatalf("NewFileJournal: %v", err)
	}
	if err := j.Add("https://example.rs/fresh", now.Add(-23*time.Hour)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := j.Add("https://example.rs/stale", now.Add(-25*time.Hour)); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := j.Load(now); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !j.Contains("https://example.rs/fresh") {
		t.Error("entry inside retention window must survive Load")
	}
	if j.Contains("https://example.rs/stale") {
		t.Error("entry older than retention window must be dropped on Load")
	}
}

func TestFileJournalMissingFile(t *testing.T) {
	j := newTestJournal(t)
	if err := j.Load(time.Now()); err != nil {
		t.Errorf("Load of a missing file must not fail, got %v", err)
	}
	if j.Size() != 0 {
		t.Errorf("Size = %d, want 0", j.Size())
	}
}

func TestFileJournalCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	j, err := NewFileJournal(path)
	if err != nil {
		t.Fatalf("NewFileJournal: %v", err)
	}

	if err := j.Load(time.Now()); err == nil {
		t.Error("Load of a corrupt file must return an error for logging")
	}
	// Система деградирует до пустого множества, не падает.
	if j.Size() != 0 {
		t.Errorf("Size = %d, want 0 after corrupt load", j.Size())
	}
	if err := j.Add("https://example.rs/stan-1", time.Now()); err != nil {
		t.Errorf("Add after corrupt load must work, got %v", err)
	}
}

func TestFileJournalNoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "links.json")

	j, err := NewFileJournal(path)
	if err != nil {
		t.Fatalf("NewFileJournal: %v", err)
	}
	if err := j.Add("https://example.rs/stan-1", time.Now()); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file must be renamed away after Add")
	}
}
