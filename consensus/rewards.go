package consensus

import "math"

// maxHalvings caps the halving exponent: beyond this many halvings the
// reward has collapsed to the floor regardless of the exact exponent.
const maxHalvings = 64

// RewardAtHeight returns the block reward after halving: initial reward
// divided by 2 every HalvingInterval blocks, floored at MinRewardPerBlock.
func RewardAtHeight(cfg Config, height uint64) float64 {
	halvings := height / cfg.HalvingInterval
	if halvings >= maxHalvings {
		return cfg.MinRewardPerBlock
	}
	reward := cfg.InitialRewardPerBlock / math.Pow(2, float64(halvings))
	if reward < cfg.MinRewardPerBlock {
		return cfg.MinRewardPerBlock
	}
	return reward
}
