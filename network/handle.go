package network

import (
	"sync"
	"sync/atomic"

	"github.com/AMCarbonaro/PULSE/types"
)

type commandKind int

const (
	cmdPublishHeartbeat commandKind = iota
	cmdPublishBlock
	cmdPublishSyncRequest
	cmdPublishSyncResponse
)

type command struct {
	kind       commandKind
	heartbeat  types.Heartbeat
	block      types.PulseBlock
	fromHeight uint64
	blocks     []types.PulseBlock
}

// Handle is the caller-facing view of a running network node: a pair of
// buffered channels plus peer bookkeeping (an atomic peer count and a
// mutex-guarded peer set). Gossip publishes and inbound messages go
// through these channels, never a shared lock on the swarm; dialing a
// peer is done by Node.Dial, not through the Handle.
type Handle struct {
	localPeerID string

	commands chan command
	Inbound  chan Message

	peerCount atomic.Int32

	peersMu sync.RWMutex
	peers   map[string]struct{}
}

// NewHandle builds a standalone Handle with no backing swarm: its
// broadcast/request methods queue commands that nothing drains. Node uses
// this internally once a real host exists; it is also the seam tests use
// to exercise callers of a Handle without a libp2p host.
func NewHandle(localPeerID string) *Handle {
	return &Handle{
		localPeerID: localPeerID,
		commands:    make(chan command, 256),
		Inbound:     make(chan Message, 256),
		peers:       make(map[string]struct{}),
	}
}

// PeerID returns this node's own libp2p peer ID.
func (h *Handle) PeerID() string { return h.localPeerID }

// PeerCount returns the number of currently connected peers.
func (h *Handle) PeerCount() int32 { return h.peerCount.Load() }

// ConnectedPeers returns a snapshot of connected peer IDs.
func (h *Handle) ConnectedPeers() []string {
	h.peersMu.RLock()
	defer h.peersMu.RUnlock()
	out := make([]string, 0, len(h.peers))
	for id := range h.peers {
		out = append(out, id)
	}
	return out
}

func (h *Handle) addPeer(id string) {
	h.peersMu.Lock()
	if _, ok := h.peers[id]; !ok {
		h.peers[id] = struct{}{}
		h.peerCount.Add(1)
	}
	h.peersMu.Unlock()
}

func (h *Handle) removePeer(id string) {
	h.peersMu.Lock()
	if _, ok := h.peers[id]; ok {
		delete(h.peers, id)
		h.peerCount.Add(-1)
	}
	h.peersMu.Unlock()
}

// BroadcastHeartbeat queues a heartbeat for gossip. Non-blocking: if the
// command channel is full the call is dropped rather than stalling the
// caller, matching the bounded-channel fan-out used for event broadcast.
func (h *Handle) BroadcastHeartbeat(hb types.Heartbeat) bool {
	return h.send(command{kind: cmdPublishHeartbeat, heartbeat: hb})
}

// BroadcastBlock queues a block for gossip.
func (h *Handle) BroadcastBlock(b types.PulseBlock) bool {
	return h.send(command{kind: cmdPublishBlock, block: b})
}

// RequestSync queues a chain-sync request asking peers for blocks from
// fromHeight onward.
func (h *Handle) RequestSync(fromHeight uint64) bool {
	return h.send(command{kind: cmdPublishSyncRequest, fromHeight: fromHeight})
}

// RespondSync queues a chain-sync response carrying blocks.
func (h *Handle) RespondSync(blocks []types.PulseBlock) bool {
	return h.send(command{kind: cmdPublishSyncResponse, blocks: blocks})
}

func (h *Handle) send(c command) bool {
	select {
	case h.commands <- c:
		return true
	default:
		return false
	}
}
