package consensus

import (
	"fmt"

	"github.com/AMCarbonaro/PULSE/log"
	"github.com/AMCarbonaro/PULSE/types"
)

// ReceiveBlock validates and applies a block proposed by a peer. Unlike
// TryCreateBlock, the reward split for a peer block is recomputed purely
// from each heartbeat's self-contained weight (continuity assumed full),
// never from local continuity bookkeeping, so every node that accepts the
// same block replays an identical ledger update.
func (e *Engine) ReceiveBlock(b types.PulseBlock) error {
	if err := validateBlockFields(b); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.receiveBlockLocked(b)
}

func (e *Engine) receiveBlockLocked(b types.PulseBlock) error {
	tip := e.chain[len(e.chain)-1]

	if b.PreviousHash != tip.BlockHash {
		if b.Index > tip.Index+1 {
			return ErrInvalidPreviousHash
		}
		return fmt.Errorf("%w: block %d does not extend tip %d", ErrInvalidPreviousHash, b.Index, tip.Index)
	}
	if b.Index != tip.Index+1 {
		return fmt.Errorf("%w: expected index %d, got %d", ErrInvalidPreviousHash, tip.Index+1, b.Index)
	}

	e.applyBlockLocked(b)
	log.Info("applied peer block", "index", b.Index, "hash", b.BlockHash)
	return nil
}

// validateBlockFields checks everything that does not require engine
// state: the block's own hash and every embedded signature.
func validateBlockFields(b types.PulseBlock) error {
	want, err := b.ComputeHash()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	if want != b.BlockHash {
		return fmt.Errorf("%w: block hash mismatch", ErrInvalidPreviousHash)
	}
	for _, hb := range b.Heartbeats {
		if err := verifyHeartbeatSignature(hb); err != nil {
			return err
		}
	}
	for _, tx := range b.Transactions {
		if err := verifyTransactionSignature(tx); err != nil {
			return err
		}
	}
	return nil
}

// applyBlockLocked mirrors TryCreateBlock's commit steps (reward
// distribution, transaction settlement, chain append, persistence) for a
// block that originated elsewhere. Callers must hold e.mu.
func (e *Engine) applyBlockLocked(b types.PulseBlock) {
	weighted, totalWeight := rewardWeights(b.Heartbeats)

	reward := RewardAtHeight(e.config, b.Index)
	applyRewardsAndTransactions(e.accounts, &e.totalMinted, weighted, totalWeight, reward, b.Transactions)

	e.chain = append(e.chain, b)
	e.cumulativeWeight += b.Security

	if err := e.persistLocked(b); err != nil {
		log.Error("failed to persist peer block", "index", b.Index, "err", err)
	}

	for _, hb := range b.Heartbeats {
		delete(e.heartbeatPool, hb.DevicePubkey)
	}
}
