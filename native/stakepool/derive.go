package stakepool

import (
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"nhbchain/crypto"
)

// Seed namespaces the authorities and transient accounts derived from a
// pool's address, matching the fixed seed strings a pool's withdraw and
// transient-stake authorities are derived from.
type Seed string

const (
	SeedWithdraw  Seed = "withdraw"
	SeedTransient Seed = "transient"
)

// DeriveAuthority derives the pool's withdraw authority address: the only
// signer permitted to move lamports out of the pool's stake accounts.
// Deterministic and reproducible from (pool, seed) alone, the same
// program-derived-address contract a PDA provides, implemented here over
// keccak256 since this engine has no on-chain program id / bump-seed search
// of its own.
func DeriveAuthority(pool crypto.Address, seed Seed) crypto.Address {
	digest := ethcrypto.Keccak256([]byte("stakepool-authority"), pool.Bytes(), []byte(seed))
	addr, err := crypto.NewAddress(crypto.NHBPrefix, digest[:20])
	if err != nil {
		return crypto.Address{}
	}
	return addr
}

// DeriveTransientStakeAddress derives the address of the transient stake
// account used while moving stake to/from voteAccount, keyed additionally
// by seedSuffix so a validator can have multiple concurrent transient
// accounts across epochs without colliding.
func DeriveTransientStakeAddress(pool, voteAccount crypto.Address, seedSuffix uint64) crypto.Address {
	suffix := make([]byte, 8)
	for i := 0; i < 8; i++ {
		suffix[i] = byte(seedSuffix >> (8 * (7 - i)))
	}
	digest := ethcrypto.Keccak256([]byte("stakepool-transient"), pool.Bytes(), voteAccount.Bytes(), suffix)
	addr, err := crypto.NewAddress(crypto.NHBPrefix, digest[:20])
	if err != nil {
		return crypto.Address{}
	}
	return addr
}

// DeriveValidatorStakeAddress derives the (non-transient) stake account
// address a pool delegates to voteAccount from, keyed by seedSuffix to
// disambiguate multiple stake accounts against the same validator.
func DeriveValidatorStakeAddress(pool, voteAccount crypto.Address, seedSuffix uint64) crypto.Address {
	suffix := make([]byte, 8)
	for i := 0; i < 8; i++ {
		suffix[i] = byte(seedSuffix >> (8 * (7 - i)))
	}
	digest := ethcrypto.Keccak256([]byte("stakepool-validator"), pool.Bytes(), voteAccount.Bytes(), suffix)
	addr, err := crypto.NewAddress(crypto.NHBPrefix, digest[:20])
	if err != nil {
		return crypto.Address{}
	}
	return addr
}
