package consensus

import (
	"fmt"

	"github.com/AMCarbonaro/PULSE/log"
	"github.com/AMCarbonaro/PULSE/types"
)

// ErrLighterChain is returned when a candidate chain's cumulative weight
// does not strictly exceed the local chain's. Heaviest-chain-wins, not
// longest-chain.
var ErrLighterChain = fmt.Errorf("consensus: candidate chain is not heavier than the local chain")

// ReplaceChain evaluates a full candidate chain received from a peer and,
// if it is both valid and strictly heavier than the local chain, replaces
// the local chain and rebuilds every account from scratch by replaying the
// candidate's blocks. Every heartbeat's reward share is recomputed via
// Weight() rather than any locally tracked continuity, so the replay is
// reproducible by any node regardless of its own heartbeat history.
func (e *Engine) ReplaceChain(candidate []types.PulseBlock) error {
	if len(candidate) == 0 {
		return fmt.Errorf("consensus: empty candidate chain")
	}

	for i := 1; i < len(candidate); i++ {
		if candidate[i].Index != candidate[i-1].Index+1 {
			return fmt.Errorf("%w: candidate chain is not contiguous at index %d", ErrInvalidPreviousHash, candidate[i].Index)
		}
		if candidate[i].PreviousHash != candidate[i-1].BlockHash {
			return fmt.Errorf("%w: candidate block %d does not chain to its predecessor", ErrInvalidPreviousHash, candidate[i].Index)
		}
	}
	if candidate[0].Index != 0 {
		return fmt.Errorf("%w: candidate chain does not start from genesis", ErrInvalidPreviousHash)
	}

	var candidateWeight float64
	for _, b := range candidate {
		if err := validateBlockFields(b); err != nil {
			return err
		}
		candidateWeight += b.Security
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if candidateWeight <= e.cumulativeWeight {
		return ErrLighterChain
	}

	accounts := make(map[string]types.Account)
	var totalMinted float64
	for _, b := range candidate {
		if b.Index == 0 {
			continue
		}
		weighted, totalWeight := rewardWeights(b.Heartbeats)
		reward := RewardAtHeight(e.config, b.Index)
		applyRewardsAndTransactions(accounts, &totalMinted, weighted, totalWeight, reward, b.Transactions)
	}

	e.chain = append([]types.PulseBlock(nil), candidate...)
	e.accounts = accounts
	e.totalMinted = totalMinted
	e.cumulativeWeight = candidateWeight
	e.heartbeatPool = make(map[string]types.Heartbeat)
	e.txPool = nil

	if e.store != nil {
		for _, b := range e.chain {
			if err := e.store.SaveBlock(b); err != nil {
				log.Error("failed to persist replacement chain block", "index", b.Index, "err", err)
			}
		}
		for _, a := range e.accounts {
			if err := e.store.SaveAccount(a); err != nil {
				log.Error("failed to persist replacement chain account", "pubkey", a.Pubkey, "err", err)
			}
		}
		if err := e.store.Flush(); err != nil {
			log.Error("failed to flush replacement chain", "err", err)
		}
	}

	log.Info("chain replaced", "new_height", e.chain[len(e.chain)-1].Index,
		"cumulative_weight", e.cumulativeWeight, "blocks", len(e.chain))
	return nil
}
