package stakepool

import (
	"nhbchain/crypto"
	nativecommon "nhbchain/native/common"
)

// Fee is a numerator/denominator rational, matching the fixed-point fee
// representation used throughout the pool (epoch fee, withdrawal fee,
// deposit fee, referral fee).
type Fee struct {
	Numerator   uint64
	Denominator uint64
}

// Clone returns a deep copy of the fee.
func (f Fee) Clone() Fee { return f }

// apply returns amount*f.Numerator/f.Denominator, rounding down, or zero if
// the fee is unconfigured (Denominator == 0).
func (f Fee) apply(amount uint64) uint64 {
	if f.Denominator == 0 || f.Numerator == 0 {
		return 0
	}
	return amount * f.Numerator / f.Denominator
}

// AccountType distinguishes an uninitialized slot from a live Pool/validator
// list record, mirroring the account-header discriminant every persisted
// stake-pool record carries.
type AccountType uint8

const (
	AccountTypeUninitialized AccountType = iota
	AccountTypePool
	AccountTypeValidatorList
)

// ValidatorStakeInfo is one validator's entry in a pool's ValidatorList.
type ValidatorStakeInfo struct {
	ActiveStakeLamports    uint64
	TransientStakeLamports uint64
	LastUpdateEpoch        uint64
	TransientSeedSuffix    uint64
	// ValidatorSeedSuffix disambiguates multiple stake accounts delegated to
	// the same validator vote address.
	ValidatorSeedSuffix uint64
	// Status reflects the validator's lifecycle: Active while delegated;
	// RemoveValidatorFromPool sets DeactivatingAll, and later update passes
	// move the entry through DeactivatingTransient to ReadyForRemoval once its
	// stake is back in the reserve. This engine never sets
	// ValidatorStatusDeactivatingValidator.
	Status          ValidatorStatus
	VoteAccountAddr crypto.Address
}

// ValidatorStatus is the validator lifecycle state within a pool.
type ValidatorStatus uint8

const (
	ValidatorStatusActive ValidatorStatus = iota
	ValidatorStatusDeactivatingTransient
	ValidatorStatusReadyForRemoval
	ValidatorStatusDeactivatingValidator
	ValidatorStatusDeactivatingAll
)

// ValidatorList is the pool's append-only (until removal) member roster.
type ValidatorList struct {
	AccountType   AccountType
	MaxValidators uint32
	Validators    []ValidatorStakeInfo
}

// find returns the index of the entry for voteAccount, or -1.
func (vl *ValidatorList) find(voteAccount crypto.Address) int {
	for i := range vl.Validators {
		if nativecommon.AddressEqual(vl.Validators[i].VoteAccountAddr, voteAccount) {
			return i
		}
	}
	return -1
}

// Pool is the central stake-pool record: manager authorities, fee
// schedule, pool-token mint, and the fair-share accounting totals refreshed
// by the epoch update pipeline.
type Pool struct {
	AccountType AccountType

	Manager          crypto.Address
	StakingAuthority crypto.Address

	// StakeDepositAuthority, if set, is the only address permitted to call
	// DepositStake; if unset, DepositStake is permissionless. DepositSol is
	// gated by SolDepositAuthority instead.
	StakeDepositAuthority crypto.Address

	// StakeWithdrawBumpSeed is always 0: Initialize sets it so, and
	// DeriveAuthority(pool, SeedWithdraw) uses no bump seed.
	StakeWithdrawBumpSeed uint8

	ValidatorList crypto.Address
	ReserveStake  crypto.Address

	PoolMint          crypto.Address
	ManagerFeeAccount crypto.Address

	TokenProgramMint crypto.Address

	TotalLamports   uint64
	PoolTokenSupply uint64
	LastUpdateEpoch uint64

	Lockup Lockup

	EpochFee                              Fee
	NextEpochFee                          Fee
	PreferredDepositValidatorVoteAddress  crypto.Address
	PreferredWithdrawValidatorVoteAddress crypto.Address

	StakeDepositFee        Fee
	StakeWithdrawalFee     Fee
	NextStakeWithdrawalFee Fee
	StakeReferralFee       uint8

	SolDepositAuthority crypto.Address
	SolDepositFee       Fee
	SolReferralFee      uint8

	SolWithdrawAuthority crypto.Address
	SolWithdrawalFee     Fee
	NextSolWithdrawalFee Fee

	LastEpochPoolTokenSupply uint64
	LastEpochTotalLamports   uint64
}

// Clone returns a deep copy of the pool record.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// Lockup describes a custodial lockup for pool tokens, stored on the Pool
// record as passed to Initialize. The engine does not apply it when minting.
type Lockup struct {
	UnixTimestamp int64
	Epoch         uint64
	Custodian     crypto.Address
}
