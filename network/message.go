package network

import "github.com/AMCarbonaro/PULSE/types"

// MessageKind tags an inbound Message so the node's ingress goroutine can
// dispatch it without a type switch on every possible payload.
type MessageKind int

const (
	MessageHeartbeat MessageKind = iota
	MessageBlock
	MessageSyncRequest
	MessageSyncResponse
)

// Message is a decoded, verified-at-the-transport-level unit of gossip
// handed from the network goroutine to the node's ingress loop over
// Handle's Inbound channel. Only one of Heartbeat/Block/Blocks is set,
// selected by Kind.
type Message struct {
	Kind       MessageKind
	Heartbeat  types.Heartbeat
	Block      types.PulseBlock
	FromHeight uint64
	Blocks     []types.PulseBlock
	PeerID     string
}
