package state

import (
	"nhbchain/crypto"
	"nhbchain/native/token"
)

const (
	tokenMintPrefix     = "token/mint/"
	tokenAccountPrefix  = "token/account/"
	tokenMultisigPrefix = "token/multisig/"
)

func tokenKey(prefix string, addr crypto.Address) []byte {
	return append([]byte(prefix), addr.Bytes()...)
}

// GetMint loads the Mint stored at addr, returning (nil, nil) if absent.
func (m *Manager) GetMint(addr crypto.Address) (*token.Mint, error) {
	var mint token.Mint
	ok, err := m.KVGet(tokenKey(tokenMintPrefix, addr), &mint)
	if err != nil || !ok {
		return nil, err
	}
	return &mint, nil
}

// PutMint persists mint at addr.
func (m *Manager) PutMint(addr crypto.Address, mint *token.Mint) error {
	return m.KVPut(tokenKey(tokenMintPrefix, addr), mint)
}

// GetAccount loads the Account stored at addr, returning (nil, nil) if absent.
func (m *Manager) GetAccount(addr crypto.Address) (*token.Account, error) {
	var acct token.Account
	ok, err := m.KVGet(tokenKey(tokenAccountPrefix, addr), &acct)
	if err != nil || !ok {
		return nil, err
	}
	return &acct, nil
}

// PutAccount persists account at addr.
func (m *Manager) PutAccount(addr crypto.Address, account *token.Account) error {
	return m.KVPut(tokenKey(tokenAccountPrefix, addr), account)
}

// GetMultisig loads the Multisig stored at addr, returning (nil, nil) if absent.
func (m *Manager) GetMultisig(addr crypto.Address) (*token.Multisig, error) {
	var ms token.Multisig
	ok, err := m.KVGet(tokenKey(tokenMultisigPrefix, addr), &ms)
	if err != nil || !ok {
		return nil, err
	}
	return &ms, nil
}

// PutMultisig persists multisig at addr.
func (m *Manager) PutMultisig(addr crypto.Address, multisig *token.Multisig) error {
	return m.KVPut(tokenKey(tokenMultisigPrefix, addr), multisig)
}
