package consensus

import (
	"encoding/hex"
	"fmt"
	"math"
	"sort"

	"github.com/AMCarbonaro/PULSE/log"
	"github.com/AMCarbonaro/PULSE/types"
)

type weightedHeartbeat struct {
	hb     types.Heartbeat
	weight float64
}

// TryCreateBlock forms a block from the current heartbeat and transaction
// pools if at least NThreshold devices are pulsing. It returns (nil, nil)
// when the threshold is not met, which is not an error: the caller should
// simply wait for the next tick.
func (e *Engine) TryCreateBlock() (*types.PulseBlock, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tryCreateBlockLocked()
}

func (e *Engine) tryCreateBlockLocked() (*types.PulseBlock, error) {
	nLive := len(e.heartbeatPool)
	if nLive < e.config.NThreshold {
		return nil, nil
	}

	now := e.now()
	weighted := make([]weightedHeartbeat, 0, nLive)
	for pubkey, hb := range e.heartbeatPool {
		cont := continuityFactor(now, e.continuityStart[pubkey])
		weighted = append(weighted, weightedHeartbeat{hb: hb, weight: hb.WeightWithContinuity(cont)})
	}
	sort.Slice(weighted, func(i, j int) bool {
		return weighted[i].hb.DevicePubkey < weighted[j].hb.DevicePubkey
	})

	heartbeats := make([]types.Heartbeat, len(weighted))
	var totalWeight float64
	for i, w := range weighted {
		heartbeats[i] = w.hb
		totalWeight += w.weight
	}
	security := totalWeight

	nLiveForK := nLive
	adaptiveK := 2.0
	if nLiveForK > 1 {
		adaptiveK = math.Max(e.config.ForkConstant/math.Log(1+float64(nLiveForK)), 1e-6)
	}
	forkProb := math.Exp(-adaptiveK * security)

	previous := e.chain[len(e.chain)-1]
	transactions := make([]types.Transaction, len(e.txPool))
	copy(transactions, e.txPool)

	block := types.PulseBlock{
		Index:        previous.Index + 1,
		Timestamp:    now,
		PreviousHash: previous.BlockHash,
		Heartbeats:   heartbeats,
		Transactions: transactions,
		NLive:        nLive,
		TotalWeight:  totalWeight,
		Security:     security,
		BioEntropy:   hex.EncodeToString(e.bio.AggregateEntropy()),
	}
	hash, err := block.ComputeHash()
	if err != nil {
		return nil, fmt.Errorf("consensus: compute block hash: %w", err)
	}
	block.BlockHash = hash

	reward := RewardAtHeight(e.config, block.Index)
	rewardWeighted, rewardTotal := rewardWeights(heartbeats)
	applyRewardsAndTransactions(e.accounts, &e.totalMinted, rewardWeighted, rewardTotal, reward, transactions)

	e.chain = append(e.chain, block)
	e.cumulativeWeight += security

	if err := e.persistLocked(block); err != nil {
		log.Error("failed to persist block", "index", block.Index, "err", err)
	}

	e.heartbeatPool = make(map[string]types.Heartbeat)
	e.txPool = nil

	log.Info("pulse block formed", "index", block.Index, "hash", block.BlockHash,
		"n_live", nLive, "total_weight", totalWeight, "security", security,
		"fork_probability", forkProb, "reward", reward)

	return &block, nil
}

// rewardWeights computes the per-heartbeat basis for splitting a block's
// reward: always Weight() (continuity assumed full), never a device's
// locally tracked continuity. total_weight recorded on the block itself
// stays continuity-adjusted for fork-weight purposes, but the reward split
// must use a basis every node can recompute identically from the block's
// own contents alone, or replaying the same block on different nodes
// credits different amounts.
func rewardWeights(heartbeats []types.Heartbeat) ([]weightedHeartbeat, float64) {
	weighted := make([]weightedHeartbeat, len(heartbeats))
	var total float64
	for i, hb := range heartbeats {
		w := hb.Weight()
		weighted[i] = weightedHeartbeat{hb: hb, weight: w}
		total += w
	}
	return weighted, total
}

// applyRewardsAndTransactions mutates accounts and *totalMinted in place.
// It is a free function, not an Engine method, so ReplaceChain can replay
// it against a scratch account map while rebuilding ledger state.
func applyRewardsAndTransactions(accounts map[string]types.Account, totalMinted *float64, weighted []weightedHeartbeat, totalWeight, reward float64, transactions []types.Transaction) {
	if totalWeight > 0 {
		for _, w := range weighted {
			share := (w.weight / totalWeight) * reward
			account := accounts[w.hb.DevicePubkey]
			account.Pubkey = w.hb.DevicePubkey
			account.Balance += share
			account.TotalEarned += share
			account.LastHeartbeat = w.hb.Timestamp
			account.BlocksParticipated++
			accounts[w.hb.DevicePubkey] = account
			*totalMinted += share
		}
	}

	for _, tx := range transactions {
		sender := accounts[tx.SenderPubkey]
		sender.Balance -= tx.Amount
		accounts[tx.SenderPubkey] = sender

		recipient := accounts[tx.RecipientPubkey]
		recipient.Pubkey = tx.RecipientPubkey
		recipient.Balance += tx.Amount
		accounts[tx.RecipientPubkey] = recipient
	}
}

// persistLocked saves the block and every account touched by it, then
// flushes. Callers must hold e.mu. Storage failures are logged and do not
// roll back the in-memory commit: the chain continues, and the operator
// can re-sync on restart.
func (e *Engine) persistLocked(block types.PulseBlock) error {
	if e.store == nil {
		return nil
	}
	if err := e.store.SaveBlock(block); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	for _, hb := range block.Heartbeats {
		if account, ok := e.accounts[hb.DevicePubkey]; ok {
			if err := e.store.SaveAccount(account); err != nil {
				return fmt.Errorf("%w: %v", ErrStorage, err)
			}
		}
	}
	for _, tx := range block.Transactions {
		if account, ok := e.accounts[tx.SenderPubkey]; ok {
			if err := e.store.SaveAccount(account); err != nil {
				return fmt.Errorf("%w: %v", ErrStorage, err)
			}
		}
		if account, ok := e.accounts[tx.RecipientPubkey]; ok {
			if err := e.store.SaveAccount(account); err != nil {
				return fmt.Errorf("%w: %v", ErrStorage, err)
			}
		}
	}
	if err := e.store.Flush(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}
