package eventlog

import "testing"

func TestBroadcastDropsOldestOnLaggingSubscriber(t *testing.T) {
	b := NewBroadcaster()
	ch := b.subscribe()
	defer b.unsubscribe(ch)

	for i := 0; i < subscriberBufferSize+5; i++ {
		b.Broadcast(HeartbeatCountEvent(i))
	}

	if len(ch) != subscriberBufferSize {
		t.Fatalf("expected channel to stay at capacity %d, got %d", subscriberBufferSize, len(ch))
	}

	var got WsEvent
	for i := 0; i < subscriberBufferSize; i++ {
		got = <-ch
	}
	if got.Count != subscriberBufferSize+4 {
		t.Fatalf("expected the most recent event to survive the drop, got count %d", got.Count)
	}
}

func TestSubscriberCountTracksConnections(t *testing.T) {
	b := NewBroadcaster()
	if b.SubscriberCount() != 0 {
		t.Fatal("expected zero subscribers initially")
	}
	ch1 := b.subscribe()
	ch2 := b.subscribe()
	if b.SubscriberCount() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", b.SubscriberCount())
	}
	b.unsubscribe(ch1)
	if b.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber after unsubscribe, got %d", b.SubscriberCount())
	}
	b.unsubscribe(ch2)
}
