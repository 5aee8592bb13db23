package types

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
)

// PulseBlock is a block in the Pulse chain: a batch of admitted heartbeats
// and transactions, weighted by their combined biometric contribution.
type PulseBlock struct {
	Index        uint64        `json:"index"`
	Timestamp    uint64        `json:"timestamp"`
	PreviousHash string        `json:"previous_hash"`
	Heartbeats   []Heartbeat   `json:"heartbeats"`
	Transactions []Transaction `json:"transactions"`
	NLive        int           `json:"n_live"`
	TotalWeight  float64       `json:"total_weight"`
	Security     float64       `json:"security"`
	BioEntropy   string        `json:"bio_entropy"`
	BlockHash    string        `json:"block_hash"`
}

// blockHashable mirrors the fields that feed into the block hash, in the
// order the hash is computed over (index, timestamp, previous_hash,
// heartbeats, transactions, n_live, total_weight, security, bio_entropy —
// block_hash itself is excluded).
type blockHashable struct {
	Index        uint64        `json:"index"`
	Timestamp    uint64        `json:"timestamp"`
	PreviousHash string        `json:"previous_hash"`
	Heartbeats   []Heartbeat   `json:"heartbeats"`
	Transactions []Transaction `json:"transactions"`
	NLive        int           `json:"n_live"`
	TotalWeight  float64       `json:"total_weight"`
	Security     float64       `json:"security"`
	BioEntropy   string        `json:"bio_entropy"`
}

// ComputeHash returns the hex-encoded SHA-256 hash of the block's
// hashable fields.
func (b PulseBlock) ComputeHash() (string, error) {
	data, err := json.Marshal(blockHashable{
		Index:        b.Index,
		Timestamp:    b.Timestamp,
		PreviousHash: b.PreviousHash,
		Heartbeats:   b.Heartbeats,
		Transactions: b.Transactions,
		NLive:        b.NLive,
		TotalWeight:  b.TotalWeight,
		Security:     b.Security,
		BioEntropy:   b.BioEntropy,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// ForkProbability returns P_fork = e^(-k*S), the probability this block's
// branch loses a fork resolution given its accumulated security S.
func (b PulseBlock) ForkProbability(k float64) float64 {
	return math.Exp(-k * b.Security)
}
