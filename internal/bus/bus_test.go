package bus

import (
	"context"
	"testing"
	"time"
)

func TestInboundPreservesArrivalOrder(t *testing.T) {
	b := NewEventBus()
	b.Publish(&ConnectedEvent{Identity: "1@s.whatsapp.net"})
	b.Publish(&MessageEvent{MessageID: "m1", Text: "!ping"})
	b.Publish(&DisconnectedEvent{Code: 440})

	ctx := context.Background()
	evt, _ := b.Consume(ctx)
	if _, ok := evt.(*ConnectedEvent); !ok {
		t.Fatalf("first event = %T", evt)
	}
	evt, _ = b.Consume(ctx)
	msg, ok := evt.(*MessageEvent)
	if !ok || msg.MessageID != "m1" {
		t.Fatalf("second event = %T %+v", evt, evt)
	}
	evt, _ = b.Consume(ctx)
	dc, ok := evt.(*DisconnectedEvent)
	if !ok || dc.Code != 440 {
		t.Fatalf("third event = %T %+v", evt, evt)
	}
}

func TestConsumeHonorsContext(t *testing.T) {
	b := NewEventBus()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := b.Consume(ctx); err == nil {
		t.Fatal("expected context error on empty stream")
	}
}

func TestOutboundDispatchReachesSubscriber(t *testing.T) {
	b := NewEventBus()
	got := make(chan *OutboundMessage, 1)
	b.Subscribe("whatsapp", func(msg *OutboundMessage) {
		got <- msg
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.DispatchOutbound(ctx)

	b.PublishOutbound(&OutboundMessage{Channel: "whatsapp", ChatID: "12345@g.us", Content: "pong"})

	select {
	case msg := <-got:
		if msg.Content != "pong" {
			t.Fatalf("content = %q", msg.Content)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("outbound message never dispatched")
	}
}

func TestDispatchSkipsOtherChannels(t *testing.T) {
	b := NewEventBus()
	got := make(chan *OutboundMessage, 2)
	b.Subscribe("whatsapp", func(msg *OutboundMessage) {
		got <- msg
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.DispatchOutbound(ctx)

	b.PublishOutbound(&OutboundMessage{Channel: "slack", Content: "nope"})
	b.PublishOutbound(&OutboundMessage{Channel: "whatsapp", Content: "yes"})

	select {
	case msg := <-got:
		if msg.Content != "yes" {
			t.Fatalf("subscriber saw %q", msg.Content)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("outbound message never dispatched")
	}
}
