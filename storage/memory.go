package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/AMCarbonaro/PULSE/types"
)

// MemStore is a process-lifetime-only Store, used when opening the disk
// backend fails at startup. Flush is a no-op: there is nothing to survive
// a crash with.
type MemStore struct {
	mu       sync.RWMutex
	blocks   map[uint64]types.PulseBlock
	accounts map[string]types.Account
	height   uint64
	hasBlock bool
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		blocks:   make(map[uint64]types.PulseBlock),
		accounts: make(map[string]types.Account),
	}
}

func (m *MemStore) SaveBlock(block types.PulseBlock) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocks[block.Index] = block
	if !m.hasBlock || block.Index > m.height {
		m.height = block.Index
		m.hasBlock = true
	}
	return nil
}

func (m *MemStore) LoadBlock(index uint64) (types.PulseBlock, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	block, ok := m.blocks[index]
	if !ok {
		return types.PulseBlock{}, fmt.Errorf("%w: index %d", ErrBlockNotFound, index)
	}
	return block, nil
}

func (m *MemStore) LoadAllBlocks() ([]types.PulseBlock, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	blocks := make([]types.PulseBlock, 0, len(m.blocks))
	for _, b := range m.blocks {
		blocks = append(blocks, b)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Index < blocks[j].Index })
	return blocks, nil
}

func (m *MemStore) SaveAccount(account types.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.Pubkey] = account
	return nil
}

func (m *MemStore) LoadAccount(pubkey string) (types.Account, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	account, ok := m.accounts[pubkey]
	return account, ok, nil
}

func (m *MemStore) LoadAllAccounts() ([]types.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	accounts := make([]types.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		accounts = append(accounts, a)
	}
	return accounts, nil
}

func (m *MemStore) ChainHeight() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.hasBlock {
		return 0, nil
	}
	return m.height, nil
}

func (m *MemStore) Flush() error { return nil }
func (m *MemStore) Close() error { return nil }
