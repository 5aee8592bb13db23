// Package eventlog keeps a short rolling history of node activity and fans
// it out live to WebSocket subscribers.
package eventlog

// Kind discriminates a NodeEvent's payload.
type Kind string

const (
	KindHeartbeatReceived    Kind = "heartbeat_received"
	KindBlockCreated         Kind = "block_created"
	KindTransactionReceived  Kind = "transaction_received"
	KindNodeStarted          Kind = "node_started"
)

// NodeEvent is one entry in the activity feed. Only the fields relevant to
// Type are populated; the rest are left at their zero value and omitted
// from JSON.
type NodeEvent struct {
	Type      Kind   `json:"type"`
	Timestamp uint64 `json:"timestamp"`

	// heartbeat_received
	DevicePubkey string  `json:"device_pubkey,omitempty"`
	HeartRate    uint16  `json:"heart_rate,omitempty"`
	Weight       float64 `json:"weight,omitempty"`

	// block_created
	Index              uint64  `json:"index,omitempty"`
	BlockHash          string  `json:"block_hash,omitempty"`
	NLive              int     `json:"n_live,omitempty"`
	TotalWeight        float64 `json:"total_weight,omitempty"`
	Security           float64 `json:"security,omitempty"`
	RewardsDistributed float64 `json:"rewards_distributed,omitempty"`

	// transaction_received
	TxID      string  `json:"tx_id,omitempty"`
	Sender    string  `json:"sender,omitempty"`
	Recipient string  `json:"recipient,omitempty"`
	Amount    float64 `json:"amount,omitempty"`

	// node_started
	Version     string `json:"version,omitempty"`
	ChainHeight uint64 `json:"chain_height,omitempty"`
}

// HeartbeatReceived builds a heartbeat_received event.
func HeartbeatReceived(ts uint64, devicePubkey string, heartRate uint16, weight float64) NodeEvent {
	return NodeEvent{Type: KindHeartbeatReceived, Timestamp: ts, DevicePubkey: devicePubkey, HeartRate: heartRate, Weight: weight}
}

// BlockCreated builds a block_created event.
func BlockCreated(ts, index uint64, blockHash string, nLive int, totalWeight, security, rewardsDistributed float64) NodeEvent {
	return NodeEvent{
		Type: KindBlockCreated, Timestamp: ts, Index: index, BlockHash: blockHash,
		NLive: nLive, TotalWeight: totalWeight, Security: security, RewardsDistributed: rewardsDistributed,
	}
}

// TransactionReceived builds a transaction_received event.
func TransactionReceived(ts uint64, txID, sender, recipient string, amount float64) NodeEvent {
	return NodeEvent{Type: KindTransactionReceived, Timestamp: ts, TxID: txID, Sender: sender, Recipient: recipient, Amount: amount}
}

// NodeStarted builds a node_started event.
func NodeStarted(ts uint64, version string, chainHeight uint64) NodeEvent {
	return NodeEvent{Type: KindNodeStarted, Timestamp: ts, Version: version, ChainHeight: chainHeight}
}
