package types

// Account tracks a device's balance and participation history.
type Account struct {
	Pubkey              string  `json:"pubkey"`
	Balance             float64 `json:"balance"`
	LastHeartbeat       uint64  `json:"last_heartbeat"`
	TotalEarned         float64 `json:"total_earned"`
	BlocksParticipated  uint64  `json:"blocks_participated"`
}

// NetworkStats summarizes the live state of the chain for status endpoints.
type NetworkStats struct {
	ChainLength    uint64  `json:"chain_length"`
	TotalMinted    float64 `json:"total_minted"`
	ActiveAccounts int     `json:"active_accounts"`
	CurrentTPS     float64 `json:"current_tps"`
	AvgBlockTime   float64 `json:"avg_block_time"`
	TotalSecurity  float64 `json:"total_security"`
}
