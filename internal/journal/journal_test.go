package journal

import (
	"path/filepath"
	"testing"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := New(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("failed to create journal: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestRecordAndRecent(t *testing.T) {
	j := newTestJournal(t)

	entries := []Entry{
		{Kind: KindTransition, Detail: "idle -> connecting"},
		{Kind: KindTransition, Detail: "connecting -> open"},
		{Kind: KindTransition, Detail: "open -> closed", Code: 428},
		{Kind: KindRetry, Detail: "reconnect scheduled", Code: 428},
	}
	for i := range entries {
		if err := j.Record(&entries[i]); err != nil {
			t.Fatalf("record %d failed: %v", i, err)
		}
		if entries[i].ID == 0 {
			t.Fatalf("entry %d did not get an id", i)
		}
	}

	got, err := j.Recent(10)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("expected %d entries, got %d", len(entries), len(got))
	}
	// Newest first.
	if got[0].Kind != KindRetry || got[0].Code != 428 {
		t.Fatalf("unexpected newest entry: %+v", got[0])
	}
	if got[len(got)-1].Detail != "idle -> connecting" {
		t.Fatalf("unexpected oldest entry: %+v", got[len(got)-1])
	}
}

func TestRecentLimit(t *testing.T) {
	j := newTestJournal(t)

	for i := 0; i < 5; i++ {
		if err := j.Record(&Entry{Kind: KindSystem, Detail: "tick"}); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}
	got, err := j.Recent(2)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	j := newTestJournal(t)

	if v, err := j.GetSetting("connection_state"); err != nil || v != "" {
		t.Fatalf("expected empty setting, got %q err=%v", v, err)
	}
	if err := j.SetSetting("connection_state", "open"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := j.SetSetting("connection_state", "closed"); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	v, err := j.GetSetting("connection_state")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if v != "closed" {
		t.Fatalf("expected closed, got %q", v)
	}
}
