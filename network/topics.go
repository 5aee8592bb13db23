package network

// Gossip topics, fixed network-wide. Every node subscribes to all three on
// startup.
const (
	HeartbeatTopic = "pulse/heartbeats/1.0.0"
	BlockTopic     = "pulse/blocks/1.0.0"
	ChainSyncTopic = "pulse/chain-sync/1.0.0"
)

// envelopeKind discriminates a chain-sync message: a node asks for blocks
// with a "request" envelope and answers with a "response" envelope on the
// same topic.
type envelopeKind string

const (
	kindRequest  envelopeKind = "request"
	kindResponse envelopeKind = "response"
)

// syncEnvelope is the tagged wire format for ChainSyncTopic.
type syncEnvelope struct {
	Kind       envelopeKind `json:"kind"`
	FromHeight uint64       `json:"from_height,omitempty"`
	Blocks     []byte       `json:"blocks,omitempty"`
}
