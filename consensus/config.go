package consensus

import "github.com/AMCarbonaro/PULSE/params"

// Config tunes Proof-of-Life admission, block timing, and the reward curve.
type Config struct {
	// NThreshold is the minimum heartbeat pool size required before a
	// block may be formed.
	NThreshold int

	// BlockIntervalMs is the block-tick period in milliseconds.
	BlockIntervalMs uint64

	// InitialRewardPerBlock is the reward before any halving is applied.
	InitialRewardPerBlock float64

	// MaxHeartbeatAgeMs is the admission freshness window.
	MaxHeartbeatAgeMs uint64

	// ForkConstant is the base k used in the adaptive fork-probability
	// exponent; informational only, does not gate block formation.
	ForkConstant float64

	// HalvingInterval is the number of blocks between reward halvings.
	HalvingInterval uint64

	// MinRewardPerBlock is the floor the halving curve never drops below.
	MinRewardPerBlock float64

	// InflationSmoothingWindow is reserved for future smoothing of the
	// reward curve; it has no effect on current computations.
	InflationSmoothingWindow uint64
}

// DefaultConfig returns the consensus tuning defaults from params.
func DefaultConfig() Config {
	return Config{
		NThreshold:               params.DefaultNThreshold,
		BlockIntervalMs:          params.DefaultBlockIntervalMs,
		InitialRewardPerBlock:    params.DefaultRewardPerBlock,
		MaxHeartbeatAgeMs:        params.DefaultMaxHeartbeatAgeMs,
		ForkConstant:             params.DefaultForkConstant,
		HalvingInterval:          uint64(params.DefaultHalvingIntervalBlocks),
		MinRewardPerBlock:        params.DefaultMinReward,
		InflationSmoothingWindow: 100,
	}
}
