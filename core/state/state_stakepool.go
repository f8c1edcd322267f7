package state

import (
	"nhbchain/crypto"
	"nhbchain/native/stakepool"
)

const (
	stakepoolPoolPrefix          = "stakepool/pool/"
	stakepoolValidatorListPrefix = "stakepool/validatorlist/"
)

// GetPool loads the Pool stored at addr, returning (nil, nil) if absent.
func (m *Manager) GetPool(addr crypto.Address) (*stakepool.Pool, error) {
	var pool stakepool.Pool
	ok, err := m.KVGet(tokenKey(stakepoolPoolPrefix, addr), &pool)
	if err != nil || !ok {
		return nil, err
	}
	return &pool, nil
}

// PutPool persists pool at addr.
func (m *Manager) PutPool(addr crypto.Address, pool *stakepool.Pool) error {
	return m.KVPut(tokenKey(stakepoolPoolPrefix, addr), pool)
}

// GetValidatorList loads the ValidatorList stored at addr, returning
// (nil, nil) if absent.
func (m *Manager) GetValidatorList(addr crypto.Address) (*stakepool.ValidatorList, error) {
	var list stakepool.ValidatorList
	ok, err := m.KVGet(tokenKey(stakepoolValidatorListPrefix, addr), &list)
	if err != nil || !ok {
		return nil, err
	}
	return &list, nil
}

// PutValidatorList persists list at addr.
func (m *Manager) PutValidatorList(addr crypto.Address, list *stakepool.ValidatorList) error {
	return m.KVPut(tokenKey(stakepoolValidatorListPrefix, addr), list)
}
