package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestJournalAppendsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	j := NewJournal(path)

	j.Record("t-1", "supervisor", "intent=HR confidence=0.95")
	j.Record("t-1", "completed", "")

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("bad journal line %q: %v", scanner.Text(), err)
		}
		entries = append(entries, e)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Node != "supervisor" || entries[0].ThreadID != "t-1" {
		t.Fatalf("first entry = %+v", entries[0])
	}
	if entries[0].Time.IsZero() {
		t.Fatal("entry has no timestamp")
	}
}

func TestJournalNilAndDisabled(t *testing.T) {
	var j *Journal
	j.Record("t", "node", "nil journal must not panic")

	disabled := NewJournal("")
	disabled.Record("t", "node", "disabled journal must not write")
}
