// Package consensus implements Proof-of-Life: heartbeat and transaction
// admission, biometric-weighted block formation, halving-based rewards,
// and cumulative-weight fork resolution.
package consensus

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/AMCarbonaro/PULSE/biometrics"
	pulsecrypto "github.com/AMCarbonaro/PULSE/crypto"
	"github.com/AMCarbonaro/PULSE/log"
	"github.com/AMCarbonaro/PULSE/storage"
	"github.com/AMCarbonaro/PULSE/types"
)

// genesisPreviousHash is the fixed previous_hash of the genesis block: 64
// '0' characters, the hex width of a SHA-256 digest.
var genesisPreviousHash = strings.Repeat("0", 64)

// continuityWindowMs is the rolling window over which a device's
// continuity factor climbs from 0 to 1.
const continuityWindowMs = 300000

// Engine is the Proof-of-Life consensus state machine. All exported
// methods are safe for concurrent use; a single internal read-write lock
// serializes writers while allowing concurrent readers.
type Engine struct {
	mu sync.RWMutex

	config Config
	store  storage.Store
	bio    *biometrics.Validator

	chain             []types.PulseBlock
	heartbeatPool     map[string]types.Heartbeat
	txPool            []types.Transaction
	accounts          map[string]types.Account
	totalMinted       float64
	cumulativeWeight  float64
	continuityStart   map[string]uint64
	lastHeartbeatHash map[string]string
	lastSeen          map[string]uint64

	nowMs func() uint64
}

// NewEngine constructs an engine with a fresh genesis block. store and bio
// must not be nil; use storage.NewMemStore and biometrics.NewValidator for
// a standalone or test engine.
func NewEngine(config Config, store storage.Store, bio *biometrics.Validator) (*Engine, error) {
	e := &Engine{
		config:            config,
		store:             store,
		bio:               bio,
		heartbeatPool:     make(map[string]types.Heartbeat),
		accounts:          make(map[string]types.Account),
		continuityStart:   make(map[string]uint64),
		lastHeartbeatHash: make(map[string]string),
		lastSeen:          make(map[string]uint64),
		nowMs:             defaultNowMs,
	}
	genesis, err := e.buildGenesisBlock()
	if err != nil {
		return nil, err
	}
	e.chain = []types.PulseBlock{genesis}
	log.Info("genesis block created", "hash", genesis.BlockHash)
	return e, nil
}

// RestoreEngine rebuilds an engine from persisted blocks and accounts,
// recomputing cumulativeWeight and totalMinted from the loaded chain.
func RestoreEngine(config Config, store storage.Store, bio *biometrics.Validator, blocks []types.PulseBlock, accounts []types.Account) (*Engine, error) {
	if len(blocks) == 0 {
		return NewEngine(config, store, bio)
	}
	e := &Engine{
		config:            config,
		store:             store,
		bio:               bio,
		heartbeatPool:     make(map[string]types.Heartbeat),
		accounts:          make(map[string]types.Account),
		continuityStart:   make(map[string]uint64),
		lastHeartbeatHash: make(map[string]string),
		lastSeen:          make(map[string]uint64),
		nowMs:             defaultNowMs,
	}
	sorted := make([]types.PulseBlock, len(blocks))
	copy(sorted, blocks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })
	e.chain = sorted
	for _, b := range sorted {
		e.cumulativeWeight += b.Security
	}
	for _, a := range accounts {
		e.accounts[a.Pubkey] = a
		e.totalMinted += a.TotalEarned
	}
	return e, nil
}

func defaultNowMs() uint64 {
	return uint64(time.Now().UnixMilli())
}

func (e *Engine) buildGenesisBlock() (types.PulseBlock, error) {
	block := types.PulseBlock{
		Index:        0,
		Timestamp:    e.now(),
		PreviousHash: genesisPreviousHash,
		NLive:        0,
		TotalWeight:  0,
		Security:     0,
		BioEntropy:   hex.EncodeToString(e.bio.AggregateEntropy()),
	}
	hash, err := block.ComputeHash()
	if err != nil {
		return types.PulseBlock{}, fmt.Errorf("consensus: compute genesis hash: %w", err)
	}
	block.BlockHash = hash
	return block, nil
}

func (e *Engine) now() uint64 {
	if e.nowMs != nil {
		return e.nowMs()
	}
	return defaultNowMs()
}

// ChainHeight returns the index of the tip block.
func (e *Engine) ChainHeight() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.chain[len(e.chain)-1].Index
}

// LatestBlock returns a copy of the chain tip.
func (e *Engine) LatestBlock() types.PulseBlock {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.chain[len(e.chain)-1]
}

// Blocks returns a copy of the full chain, genesis to tip.
func (e *Engine) Blocks() []types.PulseBlock {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]types.PulseBlock, len(e.chain))
	copy(out, e.chain)
	return out
}

// BlockByIndex returns the block at index, if present.
func (e *Engine) BlockByIndex(index uint64) (types.PulseBlock, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, b := range e.chain {
		if b.Index == index {
			return b, true
		}
	}
	return types.PulseBlock{}, false
}

// Balance returns the current balance for pubkey, 0 if the account does
// not exist.
func (e *Engine) Balance(pubkey string) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.accounts[pubkey].Balance
}

// Accounts returns a copy of every known account.
func (e *Engine) Accounts() []types.Account {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]types.Account, 0, len(e.accounts))
	for _, a := range e.accounts {
		out = append(out, a)
	}
	return out
}

// Stats summarizes live chain state.
func (e *Engine) Stats() types.NetworkStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var totalSecurity float64
	for _, b := range e.chain {
		totalSecurity += b.Security
	}
	return types.NetworkStats{
		ChainLength:    uint64(len(e.chain)),
		TotalMinted:    e.totalMinted,
		ActiveAccounts: len(e.accounts),
		CurrentTPS:     0,
		AvgBlockTime:   float64(e.config.BlockIntervalMs) / 1000.0,
		TotalSecurity:  totalSecurity,
	}
}

// HeartbeatPoolSize returns the number of devices currently pulsing.
func (e *Engine) HeartbeatPoolSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.heartbeatPool)
}

// IsPulsing reports whether pubkey currently has a fresh heartbeat in the
// pool.
func (e *Engine) IsPulsing(pubkey string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.heartbeatPool[pubkey]
	return ok
}

// CumulativeWeight returns the chain-level sum of per-block security.
func (e *Engine) CumulativeWeight() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cumulativeWeight
}

func verifyHeartbeatSignature(hb types.Heartbeat) error {
	signable, err := hb.SignableBytes()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	ok, err := pulsecrypto.VerifySignature(hb.DevicePubkey, signable, hb.Signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	if !ok {
		return ErrInvalidHeartbeatSignature
	}
	return nil
}

func verifyTransactionSignature(tx types.Transaction) error {
	signable, err := tx.SignableBytes()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	ok, err := pulsecrypto.VerifySignature(tx.SenderPubkey, signable, tx.Signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	if !ok {
		return ErrInvalidTransactionSignature
	}
	return nil
}
