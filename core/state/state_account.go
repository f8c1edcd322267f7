package state

import (
	"nhbchain/core/types"
	"nhbchain/crypto"
)

const nativeAccountPrefix = "native/account/"

// GetNativeAccount loads the native-currency ledger entry at addr, used for
// lamport-equivalent balances (StakePool reserve/transient/validator stake
// accounts, LendingMarket NHB/ZNHB balances). Returns (nil, nil) if absent.
func (m *Manager) GetNativeAccount(addr crypto.Address) (*types.Account, error) {
	var acct types.Account
	ok, err := m.KVGet(tokenKey(nativeAccountPrefix, addr), &acct)
	if err != nil || !ok {
		return nil, err
	}
	return &acct, nil
}

// PutNativeAccount persists account at addr.
func (m *Manager) PutNativeAccount(addr crypto.Address, account *types.Account) error {
	return m.KVPut(tokenKey(nativeAccountPrefix, addr), account)
}
