// Package bus provides the async event bus between the connection provider
// and the session manager.
package bus

import (
	"context"
	"sync"
	"time"
)

// Event is one entry in the single inbound event stream. Exactly one of the
// concrete types below is delivered per entry, in arrival order.
type Event interface {
	eventKind() string
}

// ConnectedEvent signals that the connection to the service is open.
type ConnectedEvent struct {
	Identity string // account JID, if known
}

// DisconnectedEvent signals that the connection closed. Code is the numeric
// reason code from the service, 0 for a plain transport drop.
type DisconnectedEvent struct {
	Code int
}

// LoggedOutEvent signals the service invalidated this session entirely.
type LoggedOutEvent struct {
	Code int
}

// CredentialsEvent signals the provider produced new credential material
// that should be persisted.
type CredentialsEvent struct {
	Identity   string
	Registered bool
	Blob       []byte
}

// MessageEvent is an inbound chat message, already normalized to plain text
// plus mentioned JIDs regardless of the underlying message kind.
type MessageEvent struct {
	MessageID string
	TraceID   string
	SenderID  string
	ChatID    string
	IsGroup   bool
	IsFromMe  bool
	Text      string
	Mentions  []string
	Timestamp time.Time
}

// ReconnectDueEvent is posted by the reconnect timer when the recovery delay
// has elapsed. It is the only event the core generates for itself.
type ReconnectDueEvent struct{}

func (*ConnectedEvent) eventKind() string    { return "connected" }
func (*ReconnectDueEvent) eventKind() string { return "reconnect_due" }
func (*DisconnectedEvent) eventKind() string { return "disconnected" }
func (*LoggedOutEvent) eventKind() string    { return "logged_out" }
func (*CredentialsEvent) eventKind() string  { return "credentials" }
func (*MessageEvent) eventKind() string      { return "message" }

// OutboundMessage is a text reply from the core to a chat.
type OutboundMessage struct {
	Channel string `json:"channel"`
	ChatID  string `json:"chat_id"`
	TraceID string `json:"trace_id"`
	Content string `json:"content"`
}

// EventBus decouples the connection provider from the session manager.
// Inbound events are consumed by a single goroutine, so manager state
// transitions never interleave.
type EventBus struct {
	inbound  chan Event
	outbound chan *OutboundMessage
	subs     map[string][]func(*OutboundMessage)
	mu       sync.RWMutex
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{
		inbound:  make(chan Event, 100),
		outbound: make(chan *OutboundMessage, 100),
		subs:     make(map[string][]func(*OutboundMessage)),
	}
}

// Publish appends an event to the inbound stream.
func (b *EventBus) Publish(evt Event) {
	b.inbound <- evt
}

// Consume blocks until an event is available or the context is cancelled.
func (b *EventBus) Consume(ctx context.Context) (Event, error) {
	select {
	case evt := <-b.inbound:
		return evt, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// PublishOutbound queues a reply for the channel dispatcher.
func (b *EventBus) PublishOutbound(msg *OutboundMessage) {
	b.outbound <- msg
}

// Subscribe registers a callback for outbound messages to a specific channel.
func (b *EventBus) Subscribe(channel string, callback func(*OutboundMessage)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs[channel] = append(b.subs[channel], callback)
}

// DispatchOutbound runs the outbound message dispatcher.
// This should be run as a goroutine.
func (b *EventBus) DispatchOutbound(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-b.outbound:
			b.mu.RLock()
			callbacks := b.subs[msg.Channel]
			b.mu.RUnlock()

			for _, cb := range callbacks {
				cb(msg)
			}
		}
	}
}

// InboundSize returns the number of pending inbound events.
func (b *EventBus) InboundSize() int {
	return len(b.inbound)
}

// OutboundSize returns the number of pending outbound messages.
func (b *EventBus) OutboundSize() int {
	return len(b.outbound)
}
