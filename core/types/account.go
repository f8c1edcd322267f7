package types

import "math/big"

// Account is the native-currency ledger entry consumed by StakePool (as the
// lamport-equivalent reserve/validator funding source) and by the
// single-asset lending pool (as the NHB/ZNHB balance pair). It is distinct
// from a TokenLedger Mint/Account, which represents an arbitrary SPL-style
// fungible token rather than the chain's native balance.
type Account struct {
	Nonce       uint64   `json:"nonce"`
	BalanceNHB  *big.Int `json:"balanceNHB"`
	BalanceZNHB *big.Int `json:"balanceZNHB"`
}
