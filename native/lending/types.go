package lending

import (
	"nhbchain/crypto"
	nativecommon "nhbchain/native/common"
)

// Market is the top-level lending market record: an owner authority and the
// quote currency every reserve's oracle price is denominated in. Reserves
// and obligations both carry a back-reference to their owning market.
type Market struct {
	Owner         crypto.Address
	QuoteCurrency string
}

// Clone returns a deep copy of the market record.
func (m *Market) Clone() *Market {
	if m == nil {
		return nil
	}
	clone := *m
	return &clone
}

// ReserveConfig holds the per-reserve risk and fee parameters applied by
// RefreshObligation/BorrowObligationLiquidity/LiquidateObligation.
type ReserveConfig struct {
	// LoanToValueBps is the fraction of a deposit's market value counted
	// towards AllowedBorrowValue.
	LoanToValueBps uint64
	// LiquidationThresholdBps is the fraction of a deposit's market value
	// counted towards UnhealthyBorrowValue; always >= LoanToValueBps.
	LiquidationThresholdBps uint64
	// LiquidationBonusBps is the extra collateral a liquidator receives
	// above the repaid value, expressed in basis points.
	LiquidationBonusBps uint64
	// OptimalUtilizationBps and the three borrow rates define a two-slope
	// linear interest rate curve over reserve utilization, the same shape
	// singlepool's InterestModel uses.
	OptimalUtilizationBps uint64
	MinBorrowRateBps      uint64
	OptimalBorrowRateBps  uint64
	MaxBorrowRateBps      uint64
	// ProtocolTakeRateBps is the share of accrued borrow interest routed to
	// the reserve's FeeVault rather than compounded into supplier value.
	ProtocolTakeRateBps uint64
	// BorrowFeeBps is an origination fee charged on the principal of a new
	// borrow and sent to FeeVault. FlashLoanFeeBps is charged on a flash loan;
	// that fee stays in SupplyVault and is added to AvailableAmount.
	BorrowFeeBps    uint64
	FlashLoanFeeBps uint64
	// OraclePriceKey is the key RefreshReserve passes to the configured
	// oracle.Source to fetch this reserve's quote price.
	OraclePriceKey string
	// MaxOraclePriceAgeSlots bounds how stale a quote may be before
	// RefreshReserve rejects it with ErrOraclePriceStale.
	MaxOraclePriceAgeSlots uint64
}

// Clone returns a deep copy of the reserve configuration.
func (c ReserveConfig) Clone() ReserveConfig { return c }

// ReserveLiquidity tracks a reserve's underlying asset: how much sits
// un-borrowed in SupplyVault, how much is out on loan (in WAD precision so
// interest compounds without losing fractional native units), and the
// cumulative borrow rate index used to accrue interest lazily.
type ReserveLiquidity struct {
	MintAddr    crypto.Address
	SupplyVault crypto.Address
	FeeVault    crypto.Address

	AvailableAmount             uint64
	BorrowedAmountWads          Decimal
	CumulativeBorrowRateWads    Decimal
	MarketPrice                 Decimal
	AccumulatedProtocolFeesWads Decimal
}

// TotalSupply returns the reserve's total liquidity (available + borrowed),
// with the borrowed part rounded up to a native-unit amount.
func (l ReserveLiquidity) TotalSupply() (uint64, error) {
	borrowed, err := l.BorrowedAmountWads.CeilU64()
	if err != nil {
		return 0, err
	}
	return l.AvailableAmount + borrowed, nil
}

// ReserveCollateral tracks the reserve's derivative collateral token: the
// exchange rate between collateral units and underlying liquidity units is
// TotalSupply()/MintTotalSupply, mirroring a stake pool's pool-token rate.
type ReserveCollateral struct {
	MintAddr        crypto.Address
	MintTotalSupply uint64
}

// Reserve is one asset market within a LendingMarket.
type Reserve struct {
	Market         crypto.Address
	LastUpdateSlot uint64
	Liquidity      ReserveLiquidity
	Collateral     ReserveCollateral
	Config         ReserveConfig
}

// Clone returns a deep copy of the reserve record.
func (r *Reserve) Clone() *Reserve {
	if r == nil {
		return nil
	}
	clone := *r
	return &clone
}

// ObligationCollateral is one reserve's collateral deposit within an
// Obligation.
type ObligationCollateral struct {
	ReserveAddr     crypto.Address
	DepositedAmount uint64
	MarketValue     Decimal
}

// ObligationLiquidity is one reserve's outstanding borrow within an
// Obligation. CumulativeBorrowRateWads snapshots the reserve's index at the
// last refresh so the interest owed since then can be computed as
// borrowed * (reserve.index/snapshot.index - 1).
type ObligationLiquidity struct {
	ReserveAddr              crypto.Address
	CumulativeBorrowRateWads Decimal
	BorrowedAmountWads       Decimal
	MarketValue              Decimal
}

// Obligation is a borrower's position: a set of collateral deposits across
// reserves backing a set of borrows across (possibly different) reserves.
type Obligation struct {
	Market crypto.Address
	Owner  crypto.Address

	Deposits []ObligationCollateral
	Borrows  []ObligationLiquidity

	DepositedValue       Decimal
	BorrowedValue        Decimal
	AllowedBorrowValue   Decimal
	UnhealthyBorrowValue Decimal

	LastUpdateSlot uint64
}

// Clone returns a deep copy of the obligation record.
func (o *Obligation) Clone() *Obligation {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Deposits = append([]ObligationCollateral(nil), o.Deposits...)
	clone.Borrows = append([]ObligationLiquidity(nil), o.Borrows...)
	return &clone
}

func (o *Obligation) findDeposit(reserveAddr crypto.Address) int {
	for i := range o.Deposits {
		if nativecommon.AddressEqual(o.Deposits[i].ReserveAddr, reserveAddr) {
			return i
		}
	}
	return -1
}

func (o *Obligation) findBorrow(reserveAddr crypto.Address) int {
	for i := range o.Borrows {
		if nativecommon.AddressEqual(o.Borrows[i].ReserveAddr, reserveAddr) {
			return i
		}
	}
	return -1
}
