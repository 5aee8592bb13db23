// Package storage persists the Pulse chain and account ledger to an
// embedded ordered key-value store.
package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/AMCarbonaro/PULSE/types"
)

// Key-prefix bytes for the three logical namespaces layered over one
// goleveldb keyspace.
const (
	prefixBlock    byte = 'b'
	prefixAccount  byte = 'a'
	prefixMetadata byte = 'm'
)

var metadataChainHeightKey = append([]byte{prefixMetadata}, []byte("chain_height")...)

// ErrBlockNotFound is returned by LoadBlock when no block exists at the
// requested index.
var ErrBlockNotFound = errors.New("storage: block not found")

// Store persists blocks and accounts and tracks chain height.
type Store interface {
	SaveBlock(block types.PulseBlock) error
	LoadBlock(index uint64) (types.PulseBlock, error)
	LoadAllBlocks() ([]types.PulseBlock, error)
	SaveAccount(account types.Account) error
	LoadAccount(pubkey string) (types.Account, bool, error)
	LoadAllAccounts() ([]types.Account, error)
	ChainHeight() (uint64, error)
	Flush() error
	Close() error
}

// LevelStore is a goleveldb-backed Store.
type LevelStore struct {
	db *leveldb.DB
}

// Open opens (creating if absent) a LevelStore at path on disk.
func Open(path string) (*LevelStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	return &LevelStore{db: db}, nil
}

// OpenMemory opens a LevelStore backed entirely by memory, for tests.
func OpenMemory() (*LevelStore, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("storage: open memory db: %w", err)
	}
	return &LevelStore{db: db}, nil
}

func blockKey(index uint64) []byte {
	key := make([]byte, 9)
	key[0] = prefixBlock
	binary.BigEndian.PutUint64(key[1:], index)
	return key
}

func accountKey(pubkey string) []byte {
	return append([]byte{prefixAccount}, []byte(pubkey)...)
}

// SaveBlock writes the block and updates the chain_height metadata entry.
// Neither write is synced to disk until Flush is called.
func (s *LevelStore) SaveBlock(block types.PulseBlock) error {
	value, err := json.Marshal(block)
	if err != nil {
		return fmt.Errorf("storage: marshal block %d: %w", block.Index, err)
	}
	batch := new(leveldb.Batch)
	batch.Put(blockKey(block.Index), value)

	var heightBytes [8]byte
	binary.BigEndian.PutUint64(heightBytes[:], block.Index)
	batch.Put(metadataChainHeightKey, heightBytes[:])

	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("storage: save block %d: %w", block.Index, err)
	}
	return nil
}

// LoadBlock reads the block at index.
func (s *LevelStore) LoadBlock(index uint64) (types.PulseBlock, error) {
	var block types.PulseBlock
	value, err := s.db.Get(blockKey(index), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return block, fmt.Errorf("%w: index %d", ErrBlockNotFound, index)
		}
		return block, fmt.Errorf("storage: load block %d: %w", index, err)
	}
	if err := json.Unmarshal(value, &block); err != nil {
		return block, fmt.Errorf("storage: decode block %d: %w", index, err)
	}
	return block, nil
}

// LoadAllBlocks returns every persisted block, sorted by index.
func (s *LevelStore) LoadAllBlocks() ([]types.PulseBlock, error) {
	rng := util.BytesPrefix([]byte{prefixBlock})
	iter := s.db.NewIterator(rng, nil)
	defer iter.Release()

	var blocks []types.PulseBlock
	for iter.Next() {
		var block types.PulseBlock
		value := make([]byte, len(iter.Value()))
		copy(value, iter.Value())
		if err := json.Unmarshal(value, &block); err != nil {
			return nil, fmt.Errorf("storage: decode block: %w", err)
		}
		blocks = append(blocks, block)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("storage: iterate blocks: %w", err)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Index < blocks[j].Index })
	return blocks, nil
}

// ChainHeight returns the index of the highest persisted block, or 0 if
// no block has been saved yet.
func (s *LevelStore) ChainHeight() (uint64, error) {
	value, err := s.db.Get(metadataChainHeightKey, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("storage: load chain height: %w", err)
	}
	if len(value) != 8 {
		return 0, fmt.Errorf("storage: corrupt chain height metadata (%d bytes)", len(value))
	}
	return binary.BigEndian.Uint64(value), nil
}

// SaveAccount writes account state.
func (s *LevelStore) SaveAccount(account types.Account) error {
	value, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("storage: marshal account %s: %w", account.Pubkey, err)
	}
	if err := s.db.Put(accountKey(account.Pubkey), value, nil); err != nil {
		return fmt.Errorf("storage: save account %s: %w", account.Pubkey, err)
	}
	return nil
}

// LoadAccount reads account state for pubkey, returning ok=false if absent.
func (s *LevelStore) LoadAccount(pubkey string) (types.Account, bool, error) {
	var account types.Account
	value, err := s.db.Get(accountKey(pubkey), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return account, false, nil
		}
		return account, false, fmt.Errorf("storage: load account %s: %w", pubkey, err)
	}
	if err := json.Unmarshal(value, &account); err != nil {
		return account, false, fmt.Errorf("storage: decode account %s: %w", pubkey, err)
	}
	return account, true, nil
}

// LoadAllAccounts returns every persisted account.
func (s *LevelStore) LoadAllAccounts() ([]types.Account, error) {
	rng := util.BytesPrefix([]byte{prefixAccount})
	iter := s.db.NewIterator(rng, nil)
	defer iter.Release()

	var accounts []types.Account
	for iter.Next() {
		var account types.Account
		value := make([]byte, len(iter.Value()))
		copy(value, iter.Value())
		if err := json.Unmarshal(value, &account); err != nil {
			return nil, fmt.Errorf("storage: decode account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("storage: iterate accounts: %w", err)
	}
	return accounts, nil
}

// Flush forces a sync write so that all prior writes survive a crash.
func (s *LevelStore) Flush() error {
	batch := new(leveldb.Batch)
	if err := s.db.Write(batch, &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("storage: flush: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *LevelStore) Close() error {
	return s.db.Close()
}
