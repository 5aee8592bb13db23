package network

import (
	"testing"

	"github.com/AMCarbonaro/PULSE/types"
)

func TestHandlePeerBookkeeping(t *testing.T) {
	h := NewHandle("local-peer")
	if h.PeerID() != "local-peer" {
		t.Fatalf("expected PeerID local-peer, got %s", h.PeerID())
	}
	if h.PeerCount() != 0 {
		t.Fatalf("expected 0 peers initially, got %d", h.PeerCount())
	}

	h.addPeer("peer-a")
	h.addPeer("peer-b")
	h.addPeer("peer-a") // duplicate, must not double-count
	if h.PeerCount() != 2 {
		t.Fatalf("expected 2 peers after adds, got %d", h.PeerCount())
	}

	peers := h.ConnectedPeers()
	if len(peers) != 2 {
		t.Fatalf("expected 2 connected peers, got %d", len(peers))
	}

	h.removePeer("peer-a")
	if h.PeerCount() != 1 {
		t.Fatalf("expected 1 peer after remove, got %d", h.PeerCount())
	}
	h.removePeer("peer-a") // already gone, must not go negative
	if h.PeerCount() != 1 {
		t.Fatalf("expected removing an absent peer to be a no-op, got %d", h.PeerCount())
	}
}

func TestBroadcastHeartbeatQueuesCommand(t *testing.T) {
	h := NewHandle("local-peer")
	hb := types.Heartbeat{DevicePubkey: "device-1", HeartRate: 70}
	if ok := h.BroadcastHeartbeat(hb); !ok {
		t.Fatal("expected BroadcastHeartbeat to queue successfully")
	}

	select {
	case cmd := <-h.commands:
		if cmd.kind != cmdPublishHeartbeat {
			t.Fatalf("expected cmdPublishHeartbeat, got %v", cmd.kind)
		}
		if cmd.heartbeat.DevicePubkey != "device-1" {
			t.Fatalf("expected heartbeat payload to round-trip, got %+v", cmd.heartbeat)
		}
	default:
		t.Fatal("expected a queued command")
	}
}

func TestBroadcastBlockAndSyncCommandsQueue(t *testing.T) {
	h := NewHandle("local-peer")
	b := types.PulseBlock{Index: 3}
	h.BroadcastBlock(b)
	h.RequestSync(4)
	h.RespondSync([]types.PulseBlock{b})

	kinds := []commandKind{cmdPublishBlock, cmdPublishSyncRequest, cmdPublishSyncResponse}
	for _, want := range kinds {
		select {
		case cmd := <-h.commands:
			if cmd.kind != want {
				t.Fatalf("expected kind %v, got %v", want, cmd.kind)
			}
		default:
			t.Fatalf("expected a queued command of kind %v", want)
		}
	}
}

func TestSendDropsWhenCommandChannelFull(t *testing.T) {
	h := &Handle{commands: make(chan command, 1), Inbound: make(chan Message, 1), peers: make(map[string]struct{})}
	if !h.send(command{kind: cmdPublishSyncRequest}) {
		t.Fatal("expected first send to succeed")
	}
	if h.send(command{kind: cmdPublishSyncRequest}) {
		t.Fatal("expected second send to be dropped once the buffer is full")
	}
}
