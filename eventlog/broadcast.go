package eventlog

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AMCarbonaro/PULSE/log"
	"github.com/AMCarbonaro/PULSE/types"
)

// subscriberBufferSize is the per-subscriber channel capacity; a slow
// client drops its oldest queued event rather than stalling the
// broadcaster.
const subscriberBufferSize = 16

// WsKind discriminates a WsEvent's payload.
type WsKind string

const (
	WsKindNewBlock       WsKind = "new_block"
	WsKindStats          WsKind = "stats"
	WsKindHeartbeatCount WsKind = "heartbeat_count"
)

// WsEvent is one frame pushed to a connected WebSocket client.
type WsEvent struct {
	Type  WsKind             `json:"type"`
	Block *types.PulseBlock  `json:"block,omitempty"`
	Stats *types.NetworkStats `json:"stats,omitempty"`
	Count int                `json:"count,omitempty"`
}

// NewBlockEvent builds a new_block frame.
func NewBlockEvent(b types.PulseBlock) WsEvent { return WsEvent{Type: WsKindNewBlock, Block: &b} }

// StatsEvent builds a stats frame.
func StatsEvent(s types.NetworkStats) WsEvent { return WsEvent{Type: WsKindStats, Stats: &s} }

// HeartbeatCountEvent builds a heartbeat_count frame.
func HeartbeatCountEvent(count int) WsEvent { return WsEvent{Type: WsKindHeartbeatCount, Count: count} }

// Broadcaster fans WsEvents out to every connected WebSocket client. Each
// subscriber owns a bounded channel; a lagging subscriber has its oldest
// queued event dropped rather than blocking the broadcaster.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[chan WsEvent]struct{}
	upgrader    websocket.Upgrader
}

// NewBroadcaster constructs an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[chan WsEvent]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Broadcast pushes an event to every connected subscriber.
func (b *Broadcaster) Broadcast(e WsEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subscribers {
		select {
		case ch <- e:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- e:
			default:
			}
		}
	}
}

// SubscriberCount returns the number of connected WebSocket clients.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

func (b *Broadcaster) subscribe() chan WsEvent {
	ch := make(chan WsEvent, subscriberBufferSize)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broadcaster) unsubscribe(ch chan WsEvent) {
	b.mu.Lock()
	delete(b.subscribers, ch)
	b.mu.Unlock()
	close(ch)
}

// ServeWS upgrades the request to a WebSocket connection and streams
// broadcast events to it until the client disconnects.
func (b *Broadcaster) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("eventlog: websocket upgrade failed", "err", err)
		return
	}
	log.Info("eventlog: websocket client connected", "total", b.SubscriberCount()+1)

	ch := b.subscribe()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer func() {
		b.unsubscribe(ch)
		conn.Close()
		log.Info("eventlog: websocket client disconnected", "remaining", b.SubscriberCount())
	}()

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
