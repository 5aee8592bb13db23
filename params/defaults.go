package params

// Default network and protocol parameters for a PULSE node. Consensus
// tuning (threshold, interval, reward curve) lives in consensus.Config;
// these are the values cmd/pulse falls back to when a flag is not set.
const (
	DefaultHTTPPort = 8080
	DefaultP2PPort  = 4001
	DefaultDataDir  = "./pulse-data"

	// DefaultNThreshold is the minimum number of live heartbeats required
	// before a block may be formed.
	DefaultNThreshold = 1

	// DefaultBlockIntervalMs is the block production tick, in milliseconds.
	DefaultBlockIntervalMs = 5000

	// DefaultRewardPerBlock is the block reward before any halving is applied.
	DefaultRewardPerBlock = 100.0

	// DefaultHalvingIntervalBlocks is the number of blocks between reward halvings.
	DefaultHalvingIntervalBlocks = 210000

	// DefaultMinReward is the floor the halving curve never drops below.
	DefaultMinReward = 0.01

	// DefaultMaxHeartbeatAgeMs is the admission window for a heartbeat's
	// declared timestamp relative to node time.
	DefaultMaxHeartbeatAgeMs = 30000

	// DefaultForkConstant is the base k of the adaptive fork-probability
	// exponent, which is informational only; fork choice compares
	// cumulative weight alone.
	DefaultForkConstant = 0.5
)
