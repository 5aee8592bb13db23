package types

import "encoding/json"

// Transaction moves PULSE balance from a pulsing sender to a recipient.
type Transaction struct {
	TxID                string  `json:"tx_id"`
	SenderPubkey        string  `json:"sender_pubkey"`
	RecipientPubkey     string  `json:"recipient_pubkey"`
	Amount              float64 `json:"amount"`
	Timestamp           uint64  `json:"timestamp"`
	HeartbeatSignature  string  `json:"heartbeat_signature"`
	Signature           string  `json:"signature"`
}

// transactionSignable mirrors Transaction's signed fields in lexicographic
// key order, excluding the signature.
type transactionSignable struct {
	Amount             float64 `json:"amount"`
	HeartbeatSignature string  `json:"heartbeat_signature"`
	RecipientPubkey    string  `json:"recipient_pubkey"`
	SenderPubkey       string  `json:"sender_pubkey"`
	Timestamp          uint64  `json:"timestamp"`
	TxID               string  `json:"tx_id"`
}

// SignableBytes returns the canonical JSON encoding of the transaction's
// signed fields.
func (t Transaction) SignableBytes() ([]byte, error) {
	return json.Marshal(transactionSignable{
		Amount:             t.Amount,
		HeartbeatSignature: t.HeartbeatSignature,
		RecipientPubkey:    t.RecipientPubkey,
		SenderPubkey:       t.SenderPubkey,
		Timestamp:          t.Timestamp,
		TxID:               t.TxID,
	})
}
