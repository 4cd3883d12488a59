package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/WaClaw/WaClaw/internal/journal"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestPublishSerializesEntry(t *testing.T) {
	fw := &fakeWriter{}
	m := &Mirror{w: fw, topic: "bot.journal"}

	m.Publish(context.Background(), &journal.Entry{
		TraceID:   "wa-123",
		Timestamp: time.Now(),
		Kind:      journal.KindTransition,
		Detail:    "connecting -> open",
	})

	if len(fw.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(fw.msgs))
	}
	msg := fw.msgs[0]
	if string(msg.Key) != "wa-123" {
		t.Fatalf("key = %q", msg.Key)
	}

	var decoded journal.Entry
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("value is not valid JSON: %v", err)
	}
	if decoded.Detail != "connecting -> open" || decoded.Kind != journal.KindTransition {
		t.Fatalf("decoded entry mismatch: %+v", decoded)
	}
}

func TestPublishKeyFallsBackToKind(t *testing.T) {
	fw := &fakeWriter{}
	m := &Mirror{w: fw, topic: "bot.journal"}

	m.Publish(context.Background(), &journal.Entry{Kind: journal.KindRetry, Detail: "retry scheduled"})

	if len(fw.msgs) != 1 || string(fw.msgs[0].Key) != journal.KindRetry {
		t.Fatalf("expected kind key, got %+v", fw.msgs)
	}
}

func TestWriteFailureIsSwallowed(t *testing.T) {
	m := &Mirror{w: &fakeWriter{err: errors.New("broker down")}, topic: "bot.journal"}
	// Must not panic or propagate.
	m.Publish(context.Background(), &journal.Entry{Kind: journal.KindSystem, Detail: "boot"})
}

func TestRecorderMirrorsAfterJournal(t *testing.T) {
	j, err := journal.New(t.TempDir() + "/journal.db")
	if err != nil {
		t.Fatalf("journal: %v", err)
	}
	defer j.Close()

	fw := &fakeWriter{}
	rec := &Recorder{Journal: j, Mirror: &Mirror{w: fw, topic: "bot.journal"}}

	if err := rec.Record(&journal.Entry{Timestamp: time.Now(), Kind: journal.KindCommand, Detail: "ping"}); err != nil {
		t.Fatalf("record: %v", err)
	}

	entries, err := j.Recent(5)
	if err != nil || len(entries) != 1 {
		t.Fatalf("journal entries = %v, err = %v", entries, err)
	}
	if len(fw.msgs) != 1 {
		t.Fatalf("expected mirrored message, got %d", len(fw.msgs))
	}
}
