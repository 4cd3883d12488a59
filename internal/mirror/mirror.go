// Package mirror streams journal entries to a Kafka topic so an external
// consumer can follow the bot's lifecycle and command activity.
package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/WaClaw/WaClaw/internal/journal"
)

// Options configures the Kafka mirror.
type Options struct {
	Brokers []string
	Topic   string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Mirror forwards journal entries to Kafka. Write failures are logged and
// swallowed; the mirror is an observer and must never block the core.
type Mirror struct {
	w     messageWriter
	topic string
}

// New creates a mirror writing to the given brokers and topic.
func New(opts Options) *Mirror {
	w := &kafka.Writer{
		Addr:         kafka.TCP(opts.Brokers...),
		Topic:        opts.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
	return &Mirror{w: w, topic: opts.Topic}
}

// Publish forwards one journal entry. The entry is serialized as JSON with
// the trace id as the message key so a partition keeps one trace in order.
func (m *Mirror) Publish(ctx context.Context, e *journal.Entry) {
	value, err := json.Marshal(e)
	if err != nil {
		slog.Warn("mirror: marshal failed", "error", err)
		return
	}

	key := e.TraceID
	if key == "" {
		key = e.Kind
	}

	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(e.Kind)},
		},
		Time: e.Timestamp,
	}
	if err := m.w.WriteMessages(writeCtx, msg); err != nil {
		slog.Warn("mirror: write failed", "topic", m.topic, "error", err)
	}
}

// Close flushes and closes the underlying writer.
func (m *Mirror) Close() error {
	if err := m.w.Close(); err != nil {
		return fmt.Errorf("mirror close: %w", err)
	}
	return nil
}

// Recorder wraps a journal so every recorded entry is also mirrored.
// It satisfies the same Record contract the journal does.
type Recorder struct {
	Journal *journal.Journal
	Mirror  *Mirror
}

// Record writes the entry to the journal and, on success, mirrors it.
func (r *Recorder) Record(e *journal.Entry) error {
	if err := r.Journal.Record(e); err != nil {
		return err
	}
	if r.Mirror != nil {
		r.Mirror.Publish(context.Background(), e)
	}
	return nil
}

// SetSetting passes through to the journal; settings are not mirrored.
func (r *Recorder) SetSetting(key, value string) error {
	return r.Journal.SetSetting(key, value)
}
