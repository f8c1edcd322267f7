// Package state persists the TokenLedger, StakePool and LendingMarket account
// spaces in a single keccak256-keyed, RLP-encoded trie, mirroring the
// teacher's core/state.Manager: one trie, prefix-namespaced keys, thin
// KVGet/KVPut helpers. Engine types are RLP-encoded directly, with no
// stored<Type> mirror structs; crypto.Address and Decimal carry their own RLP
// methods (an address encodes as its raw 20 bytes).
package state

import (
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"nhbchain/storage/trie"
)

// Manager provides the persistence surface shared by the token, stakepool and
// lending engines.
type Manager struct {
	trie *trie.Trie
}

// NewManager creates a state manager operating on the provided trie.
func NewManager(tr *trie.Trie) *Manager {
	return &Manager{trie: tr}
}

// Trie exposes the underlying trie for root hashing / commit by the caller's
// block pipeline (out of scope for this module; kept for embedding hosts).
func (m *Manager) Trie() *trie.Trie { return m.trie }

// kvKey hashes a namespaced key the same way the teacher's manager does,
// keeping trie keys a fixed 32 bytes regardless of the logical key's length.
func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

// KVPut RLP-encodes value and stores it under key.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if m == nil || m.trie == nil {
		return fmt.Errorf("state: manager not configured")
	}
	if len(key) == 0 {
		return fmt.Errorf("state: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.trie.Update(kvKey(key), encoded)
}

// KVDelete removes the value stored under key.
func (m *Manager) KVDelete(key []byte) error {
	if m == nil || m.trie == nil {
		return fmt.Errorf("state: manager not configured")
	}
	if len(key) == 0 {
		return fmt.Errorf("state: key must not be empty")
	}
	return m.trie.Update(kvKey(key), nil)
}

// KVGet decodes the value stored under key into out. The boolean result
// reports whether the key existed.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if m == nil || m.trie == nil {
		return false, fmt.Errorf("state: manager not configured")
	}
	if len(key) == 0 {
		return false, fmt.Errorf("state: key must not be empty")
	}
	data, err := m.trie.Get(kvKey(key))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}
