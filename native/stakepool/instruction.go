package stakepool

import (
	"nhbchain/crypto"
	"nhbchain/native/token"
)

// Instruction tags, one byte each, numbered in the order each operation was
// added to the engine. New operations append to the end; tags are never
// renumbered or reused once assigned.
const (
	TagInitialize uint8 = iota
	TagAddValidatorToPool
	TagRemoveValidatorFromPool
	TagIncreaseValidatorStake
	TagDecreaseValidatorStake
	TagUpdateValidatorListBalance
	TagUpdateStakePoolBalance
	TagCleanupRemovedValidatorEntries
	TagDepositStake
	TagWithdrawStake
	TagDepositSol
	TagWithdrawSol
	TagSetFee
	TagSetManager
	TagSetStakingAuthority
	TagSetStakeDepositAuthority
)

// Instruction is a decoded, ready-to-apply ledger operation together with the
// signer set authorizing it, mirroring native/token's dispatch shape.
type Instruction struct {
	Tag     uint8
	Signers token.SignerSet
	Args    interface{}
}

// Args payload types, one per decodable tag above.
type (
	InitializeArgs struct {
		Pool          crypto.Address
		Data          *Pool
		MaxValidators uint32
	}
	AddValidatorToPoolArgs struct {
		Pool        crypto.Address
		VoteAccount crypto.Address
		SeedSuffix  uint64
	}
	RemoveValidatorFromPoolArgs struct {
		Pool        crypto.Address
		VoteAccount crypto.Address
	}
	IncreaseValidatorStakeArgs struct {
		Pool        crypto.Address
		VoteAccount crypto.Address
		Lamports    uint64
	}
	DecreaseValidatorStakeArgs struct {
		Pool        crypto.Address
		VoteAccount crypto.Address
		Lamports    uint64
	}
	UpdateValidatorListBalanceArgs struct {
		Pool crypto.Address
	}
	UpdateStakePoolBalanceArgs struct {
		Pool crypto.Address
	}
	CleanupRemovedValidatorEntriesArgs struct {
		Pool crypto.Address
	}
	DepositStakeArgs struct {
		Pool             crypto.Address
		VoteAccount      crypto.Address
		PoolTokenAccount crypto.Address
		DepositAmount    uint64
	}
	WithdrawStakeArgs struct {
		Pool                   crypto.Address
		VoteAccount            crypto.Address
		SourcePoolTokenAccount crypto.Address
		DestinationStake       crypto.Address
		PoolTokenAmount        uint64
	}
	DepositSolArgs struct {
		Pool             crypto.Address
		FromAccount      crypto.Address
		PoolTokenAccount crypto.Address
		AmountLamports   uint64
	}
	WithdrawSolArgs struct {
		Pool                   crypto.Address
		SourcePoolTokenAccount crypto.Address
		Destination            crypto.Address
		PoolTokenAmount        uint64
	}
	SetFeeArgs struct {
		Pool       crypto.Address
		IsEpochFee bool
		Next       Fee
	}
	SetManagerArgs struct {
		Pool                 crypto.Address
		NewManager           crypto.Address
		NewManagerFeeAccount crypto.Address
	}
	SetStakingAuthorityArgs struct {
		Pool                crypto.Address
		NewStakingAuthority crypto.Address
	}
	SetStakeDepositAuthorityArgs struct {
		Pool         crypto.Address
		NewAuthority crypto.Address
	}
)

// Dispatch decodes and applies ins against engine e, the single entry point
// expected of a caller with only a raw instruction rather than a typed
// engine method call available.
func (e *Engine) Dispatch(ins Instruction) error {
	switch ins.Tag {
	case TagInitialize:
		a, ok := ins.Args.(InitializeArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.Initialize(a.Pool, a.Data, a.MaxValidators)
	case TagAddValidatorToPool:
		a, ok := ins.Args.(AddValidatorToPoolArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.AddValidatorToPool(a.Pool, a.VoteAccount, a.SeedSuffix, ins.Signers)
	case TagRemoveValidatorFromPool:
		a, ok := ins.Args.(RemoveValidatorFromPoolArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.RemoveValidatorFromPool(a.Pool, a.VoteAccount, ins.Signers)
	case TagIncreaseValidatorStake:
		a, ok := ins.Args.(IncreaseValidatorStakeArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.IncreaseValidatorStake(a.Pool, a.VoteAccount, a.Lamports, ins.Signers)
	case TagDecreaseValidatorStake:
		a, ok := ins.Args.(DecreaseValidatorStakeArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.DecreaseValidatorStake(a.Pool, a.VoteAccount, a.Lamports, ins.Signers)
	case TagUpdateValidatorListBalance:
		a, ok := ins.Args.(UpdateValidatorListBalanceArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.UpdateValidatorListBalance(a.Pool)
	case TagUpdateStakePoolBalance:
		a, ok := ins.Args.(UpdateStakePoolBalanceArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.UpdateStakePoolBalance(a.Pool)
	case TagCleanupRemovedValidatorEntries:
		a, ok := ins.Args.(CleanupRemovedValidatorEntriesArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.CleanupRemovedValidatorEntries(a.Pool)
	case TagDepositStake:
		a, ok := ins.Args.(DepositStakeArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.DepositStake(a.Pool, a.VoteAccount, a.PoolTokenAccount, a.DepositAmount, ins.Signers)
	case TagWithdrawStake:
		a, ok := ins.Args.(WithdrawStakeArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.WithdrawStake(a.Pool, a.VoteAccount, a.SourcePoolTokenAccount, a.DestinationStake, a.PoolTokenAmount, ins.Signers)
	case TagDepositSol:
		a, ok := ins.Args.(DepositSolArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.DepositSol(a.Pool, a.FromAccount, a.PoolTokenAccount, a.AmountLamports, ins.Signers)
	case TagWithdrawSol:
		a, ok := ins.Args.(WithdrawSolArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.WithdrawSol(a.Pool, a.SourcePoolTokenAccount, a.Destination, a.PoolTokenAmount, ins.Signers)
	case TagSetFee:
		a, ok := ins.Args.(SetFeeArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.SetFee(a.Pool, a.IsEpochFee, a.Next, ins.Signers)
	case TagSetManager:
		a, ok := ins.Args.(SetManagerArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.SetManager(a.Pool, a.NewManager, a.NewManagerFeeAccount, ins.Signers)
	case TagSetStakingAuthority:
		a, ok := ins.Args.(SetStakingAuthorityArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.SetStakingAuthority(a.Pool, a.NewStakingAuthority, ins.Signers)
	case TagSetStakeDepositAuthority:
		a, ok := ins.Args.(SetStakeDepositAuthorityArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.SetStakeDepositAuthority(a.Pool, a.NewAuthority, ins.Signers)
	default:
		return ErrInvalidInstruction
	}
}
