// Package memledger is an in-memory token.Engine state backing used by
// StakePool and LendingMarket tests that need a TokenLedger to mint
// pool-share tokens and collateral receipts against without standing up a
// full core/state.Manager and trie.
package memledger

import (
	"nhbchain/crypto"
	"nhbchain/native/token"
)

// Store is a minimal in-memory implementation of the ledgerState interface
// token.Engine.SetState expects, keyed by bech32 address string.
type Store struct {
	mints     map[string]*token.Mint
	accounts  map[string]*token.Account
	multisigs map[string]*token.Multisig
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		mints:     make(map[string]*token.Mint),
		accounts:  make(map[string]*token.Account),
		multisigs: make(map[string]*token.Multisig),
	}
}

func (s *Store) GetMint(addr crypto.Address) (*token.Mint, error) {
	m, ok := s.mints[addr.String()]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (s *Store) PutMint(addr crypto.Address, mint *token.Mint) error {
	cp := *mint
	s.mints[addr.String()] = &cp
	return nil
}

func (s *Store) GetAccount(addr crypto.Address) (*token.Account, error) {
	a, ok := s.accounts[addr.String()]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (s *Store) PutAccount(addr crypto.Address, account *token.Account) error {
	cp := *account
	s.accounts[addr.String()] = &cp
	return nil
}

func (s *Store) GetMultisig(addr crypto.Address) (*token.Multisig, error) {
	m, ok := s.multisigs[addr.String()]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (s *Store) PutMultisig(addr crypto.Address, multisig *token.Multisig) error {
	cp := *multisig
	s.multisigs[addr.String()] = &cp
	return nil
}

// NewEngine wires a fresh Engine against a fresh Store, a convenience for
// callers (StakePool/LendingMarket tests) that just need a working ledger.
func NewEngine() (*token.Engine, *Store) {
	store := New()
	engine := token.NewEngine()
	engine.SetState(store)
	return engine, store
}
