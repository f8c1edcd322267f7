package stakepool

import "errors"

// Error sentinels returned verbatim by every mutating operation in this
// package.
var (
	ErrPoolAlreadyInUse          = errors.New("stakepool: pool already in use")
	ErrPoolNotFound              = errors.New("stakepool: pool not found")
	ErrValidatorAlreadyAdded     = errors.New("stakepool: validator already in pool")
	ErrValidatorNotFound         = errors.New("stakepool: validator not found in pool")
	ErrValidatorListOverflow     = errors.New("stakepool: validator list is full")
	ErrWrongPoolMint             = errors.New("stakepool: pool token account is for a different pool")
	ErrMissingRequiredSignature  = errors.New("stakepool: missing required signature")
	ErrInvalidFee                = errors.New("stakepool: fee exceeds 100%")
	ErrFeeIncreaseTooLarge       = errors.New("stakepool: fee increase exceeds the allowed maximum")
	ErrInsufficientStake         = errors.New("stakepool: insufficient active stake")
	ErrTransientStakeInProgress  = errors.New("stakepool: transient stake activity already in progress")
	ErrStaleValidatorListBalance = errors.New("stakepool: validator list balances are stale for this epoch")
	ErrMinimumDelegation         = errors.New("stakepool: amount below minimum delegation")
	ErrSolWithdrawalsUnavailable = errors.New("stakepool: SOL withdrawals are not authorized")
	ErrMathOverflow              = errors.New("stakepool: arithmetic overflow")
	ErrUnexpectedValidatorList   = errors.New("stakepool: validator list account mismatch")
	ErrAlreadyUpdatedThisEpoch   = errors.New("stakepool: pool already updated for this epoch")
	ErrNotUpdatedThisEpoch       = errors.New("stakepool: pool must be updated for the current epoch first")
	ErrInvalidPreferredValidator = errors.New("stakepool: preferred validator not a pool member")
	ErrInvalidInstruction        = errors.New("stakepool: unrecognized instruction tag or argument type")
)
