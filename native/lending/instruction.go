package lending

import (
	"nhbchain/crypto"
	"nhbchain/native/lending/oracle"
	"nhbchain/native/token"
)

// Instruction tags, one byte each, numbered in the order each operation was
// added to the engine. New operations append to the end; tags are never
// renumbered or reused once assigned.
const (
	TagInitLendingMarket uint8 = iota
	TagInitReserve
	TagRefreshReserve
	TagDepositReserveLiquidity
	TagRedeemReserveCollateral
	TagInitObligation
	TagRefreshObligation
	TagDepositObligationCollateral
	TagWithdrawObligationCollateral
	TagBorrowObligationLiquidity
	TagRepayObligationLiquidity
	TagLiquidateObligation
	TagCollectProtocolFees
	TagFlashLoan
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
	InitLendingMarketArgs struct {
		Market        crypto.Address
		Owner         crypto.Address
		QuoteCurrency string
	}
	InitReserveArgs struct {
		Market                    crypto.Address
		Reserve                   crypto.Address
		Config                    ReserveConfig
		LiquidityMint             crypto.Address
		SupplyVault               crypto.Address
		FeeVault                  crypto.Address
		CollateralMint            crypto.Address
		Depositor                 crypto.Address
		DepositorLiquidityAccount crypto.Address
		DestCollateralAccount     crypto.Address
		InitialLiquidity          uint64
	}
	RefreshReserveArgs struct {
		Reserve crypto.Address
		Oracle  oracle.Source
	}
	DepositReserveLiquidityArgs struct {
		Reserve         crypto.Address
		Depositor       crypto.Address
		SourceLiquidity crypto.Address
		DestCollateral  crypto.Address
		Amount          uint64
	}
	RedeemReserveCollateralArgs struct {
		Reserve          crypto.Address
		Redeemer         crypto.Address
		SourceCollateral crypto.Address
		DestLiquidity    crypto.Address
		CollateralAmount uint64
	}
	InitObligationArgs struct {
		Market     crypto.Address
		Obligation crypto.Address
		Owner      crypto.Address
	}
	RefreshObligationArgs struct {
		Obligation crypto.Address
	}
	DepositObligationCollateralArgs struct {
		Obligation       crypto.Address
		Reserve          crypto.Address
		Depositor        crypto.Address
		SourceCollateral crypto.Address
		ObligationVault  crypto.Address
		Amount           uint64
	}
	WithdrawObligationCollateralArgs struct {
		Obligation      crypto.Address
		Reserve         crypto.Address
		Owner           crypto.Address
		DestCollateral  crypto.Address
		ObligationVault crypto.Address
		Amount          uint64
	}
	BorrowObligationLiquidityArgs struct {
		Obligation    crypto.Address
		Reserve       crypto.Address
		Owner         crypto.Address
		DestLiquidity crypto.Address
		Amount        uint64
	}
	RepayObligationLiquidityArgs struct {
		Obligation      crypto.Address
		Reserve         crypto.Address
		Repayer         crypto.Address
		SourceLiquidity crypto.Address
		Amount          uint64
	}
	LiquidateObligationArgs struct {
		Obligation      crypto.Address
		RepayReserve    crypto.Address
		WithdrawReserve crypto.Address
		Liquidator      crypto.Address
		SourceLiquidity crypto.Address
		DestCollateral  crypto.Address
		ObligationVault crypto.Address
		RepayAmount     uint64
		CloseFactorBps  uint64
	}
	CollectProtocolFeesArgs struct {
		Reserve     crypto.Address
		MarketOwner crypto.Address
	}
	FlashLoanArgs struct {
		Reserve  crypto.Address
		Amount   uint64
		Receiver FlashLoanReceiver
	}
)

// Dispatch decodes and applies ins against engine e, the single entry point
// expected of a caller with only a raw instruction rather than a typed
// engine method call available.
func (e *Engine) Dispatch(ins Instruction) error {
	switch ins.Tag {
	case TagInitLendingMarket:
		a, ok := ins.Args.(InitLendingMarketArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.InitLendingMarket(a.Market, a.Owner, a.QuoteCurrency)
	case TagInitReserve:
		a, ok := ins.Args.(InitReserveArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.InitReserve(
			a.Market, a.Reserve, a.Config,
			a.LiquidityMint, a.SupplyVault, a.FeeVault, a.CollateralMint,
			a.Depositor, a.DepositorLiquidityAccount, a.DestCollateralAccount,
			a.InitialLiquidity, ins.Signers,
		)
	case TagRefreshReserve:
		a, ok := ins.Args.(RefreshReserveArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.RefreshReserve(a.Reserve, a.Oracle)
	case TagDepositReserveLiquidity:
		a, ok := ins.Args.(DepositReserveLiquidityArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.DepositReserveLiquidity(a.Reserve, a.Depositor, a.SourceLiquidity, a.DestCollateral, a.Amount, ins.Signers)
	case TagRedeemReserveCollateral:
		a, ok := ins.Args.(RedeemReserveCollateralArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.RedeemReserveCollateral(a.Reserve, a.Redeemer, a.SourceCollateral, a.DestLiquidity, a.CollateralAmount, ins.Signers)
	case TagInitObligation:
		a, ok := ins.Args.(InitObligationArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.InitObligation(a.Market, a.Obligation, a.Owner)
	case TagRefreshObligation:
		a, ok := ins.Args.(RefreshObligationArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.RefreshObligation(a.Obligation)
	case TagDepositObligationCollateral:
		a, ok := ins.Args.(DepositObligationCollateralArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.DepositObligationCollateral(a.Obligation, a.Reserve, a.Depositor, a.SourceCollateral, a.ObligationVault, a.Amount, ins.Signers)
	case TagWithdrawObligationCollateral:
		a, ok := ins.Args.(WithdrawObligationCollateralArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.WithdrawObligationCollateral(a.Obligation, a.Reserve, a.Owner, a.DestCollateral, a.ObligationVault, a.Amount, ins.Signers)
	case TagBorrowObligationLiquidity:
		a, ok := ins.Args.(BorrowObligationLiquidityArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.BorrowObligationLiquidity(a.Obligation, a.Reserve, a.Owner, a.DestLiquidity, a.Amount, ins.Signers)
	case TagRepayObligationLiquidity:
		a, ok := ins.Args.(RepayObligationLiquidityArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.RepayObligationLiquidity(a.Obligation, a.Reserve, a.Repayer, a.SourceLiquidity, a.Amount, ins.Signers)
	case TagLiquidateObligation:
		a, ok := ins.Args.(LiquidateObligationArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.LiquidateObligation(
			a.Obligation, a.RepayReserve, a.WithdrawReserve,
			a.Liquidator, a.SourceLiquidity, a.DestCollateral, a.ObligationVault,
			a.RepayAmount, a.CloseFactorBps, ins.Signers,
		)
	case TagCollectProtocolFees:
		a, ok := ins.Args.(CollectProtocolFeesArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.CollectProtocolFees(a.Reserve, a.MarketOwner, ins.Signers)
	case TagFlashLoan:
		a, ok := ins.Args.(FlashLoanArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.FlashLoan(a.Reserve, a.Amount, a.Receiver, ins.Signers)
	default:
		return ErrInvalidInstruction
	}
}
