package state

import (
	"nhbchain/crypto"
	"nhbchain/native/lending"
)

const (
	lendingMarketPrefix     = "lending/market/"
	lendingReservePrefix    = "lending/reserve/"
	lendingObligationPrefix = "lending/obligation/"
)

// GetMarket loads the Market stored at addr, returning (nil, nil) if absent.
func (m *Manager) GetMarket(addr crypto.Address) (*lending.Market, error) {
	var market lending.Market
	ok, err := m.KVGet(tokenKey(lendingMarketPrefix, addr), &market)
	if err != nil || !ok {
		return nil, err
	}
	return &market, nil
}

// PutMarket persists market at addr.
func (m *Manager) PutMarket(addr crypto.Address, market *lending.Market) error {
	return m.KVPut(tokenKey(lendingMarketPrefix, addr), market)
}

// GetReserve loads the Reserve stored at addr, returning (nil, nil) if absent.
func (m *Manager) GetReserve(addr crypto.Address) (*lending.Reserve, error) {
	var reserve lending.Reserve
	ok, err := m.KVGet(tokenKey(lendingReservePrefix, addr), &reserve)
	if err != nil || !ok {
		return nil, err
	}
	return &reserve, nil
}

// PutReserve persists reserve at addr.
func (m *Manager) PutReserve(addr crypto.Address, reserve *lending.Reserve) error {
	return m.KVPut(tokenKey(lendingReservePrefix, addr), reserve)
}

// GetObligation loads the Obligation stored at addr, returning (nil, nil) if absent.
func (m *Manager) GetObligation(addr crypto.Address) (*lending.Obligation, error) {
	var obligation lending.Obligation
	ok, err := m.KVGet(tokenKey(lendingObligationPrefix, addr), &obligation)
	if err != nil || !ok {
		return nil, err
	}
	return &obligation, nil
}

// PutObligation persists obligation at addr.
func (m *Manager) PutObligation(addr crypto.Address, obligation *lending.Obligation) error {
	return m.KVPut(tokenKey(lendingObligationPrefix, addr), obligation)
}
