package lending

import (
	"math/big"

	"nhbchain/crypto"
	nativecommon "nhbchain/native/common"
	"nhbchain/native/lending/oracle"
	"nhbchain/native/token"
	"nhbchain/observability/metrics"
)

const moduleName = "lending"

// engineState is the persistence interface the multi-reserve engine needs;
// core/state.Manager implements it over state_lending.go's KVGet/KVPut
// wiring, the same shape native/stakepool and native/token use.
type engineState interface {
	GetMarket(addr crypto.Address) (*Market, error)
	PutMarket(addr crypto.Address, market *Market) error
	GetReserve(addr crypto.Address) (*Reserve, error)
	PutReserve(addr crypto.Address, reserve *Reserve) error
	GetObligation(addr crypto.Address) (*Obligation, error)
	PutObligation(addr crypto.Address, obligation *Obligation) error
}

// Engine orchestrates the multi-reserve lending market described by
// SPEC_FULL.md, built over the TokenLedger engine for every liquidity/
// collateral token movement rather than owning its own balance ledger.
type Engine struct {
	state   engineState
	token   *token.Engine
	pauses  nativecommon.PauseView
	slot    uint64
	limiter *nativecommon.RateLimiter
}

// NewEngine constructs an unwired lending engine; SetState/SetTokenLedger
// must be called before use.
func NewEngine() *Engine { return &Engine{} }

// SetState wires the engine to its persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetTokenLedger wires the engine to the TokenLedger engine used for every
// liquidity/collateral mint and transfer.
func (e *Engine) SetTokenLedger(eng *token.Engine) { e.token = eng }

// SetPauses wires the module-pause view consulted by guard().
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetSlot records the current slot/height used to judge reserve/obligation
// staleness and to accrue interest since LastUpdateSlot.
func (e *Engine) SetSlot(slot uint64) { e.slot = slot }

func (e *Engine) guard() error { return nativecommon.Guard(e.pauses, moduleName) }

// SetRateLimiter wires a per-obligation token-bucket limiter over
// BorrowObligationLiquidity/LiquidateObligation, the two operations most
// exposed to rapid repeated calls against a single obligation. A nil
// limiter (the zero value) disables limiting.
func (e *Engine) SetRateLimiter(limiter *nativecommon.RateLimiter) {
	if e == nil {
		return
	}
	e.limiter = limiter
}

func requireSigner(signers token.SignerSet, addr crypto.Address) error {
	if signers == nil || !signers[addr.String()] {
		return ErrMissingRequiredSignature
	}
	return nil
}

// InitLendingMarket creates a new, empty lending market.
func (e *Engine) InitLendingMarket(marketAddr, owner crypto.Address, quoteCurrency string) error {
	if err := e.guard(); err != nil {
		return err
	}
	existing, err := e.state.GetMarket(marketAddr)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrMarketAlreadyInUse
	}
	return e.state.PutMarket(marketAddr, &Market{Owner: owner, QuoteCurrency: quoteCurrency})
}

// InitReserve creates a new reserve within marketAddr and mints the initial
// collateral tokens for the depositor at par (1 collateral unit per
// liquidity unit), the same bootstrap convention a stake pool's first
// deposit uses for its pool token.
func (e *Engine) InitReserve(
	marketAddr, reserveAddr crypto.Address,
	cfg ReserveConfig,
	liquidityMint, supplyVault, feeVault, collateralMint crypto.Address,
	depositor, depositorLiquidityAccount, destCollateralAccount crypto.Address,
	initialLiquidity uint64,
	signers token.SignerSet,
) error {
	if err := e.guard(); err != nil {
		return err
	}
	if initialLiquidity == 0 {
		return ErrZeroAmount
	}
	market, err := e.state.GetMarket(marketAddr)
	if err != nil {
		return err
	}
	if market == nil {
		return ErrMarketNotFound
	}
	if err := requireSigner(signers, market.Owner); err != nil {
		return err
	}
	existing, err := e.state.GetReserve(reserveAddr)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrReserveAlreadyInUse
	}

	if err := e.token.Transfer(depositorLiquidityAccount, supplyVault, initialLiquidity, signers); err != nil {
		return err
	}
	if err := e.token.MintTo(collateralMint, destCollateralAccount, initialLiquidity, signers); err != nil {
		return err
	}

	reserve := &Reserve{
		Market:         marketAddr,
		LastUpdateSlot: e.slot,
		Liquidity: ReserveLiquidity{
			MintAddr:                 liquidityMint,
			SupplyVault:              supplyVault,
			FeeVault:                 feeVault,
			AvailableAmount:          initialLiquidity,
			BorrowedAmountWads:       ZeroDecimal(),
			CumulativeBorrowRateWads: OneDecimal(),
			MarketPrice:              ZeroDecimal(),
		},
		Collateral: ReserveCollateral{
			MintAddr:        collateralMint,
			MintTotalSupply: initialLiquidity,
		},
		Config: cfg.Clone(),
	}
	return e.state.PutReserve(reserveAddr, reserve)
}

// RefreshReserve pulls a fresh quote from src, accrues interest on the
// borrowed balance since LastUpdateSlot using the two-slope utilization
// curve in Config, and adds the protocol's take rate to
// AccumulatedProtocolFeesWads, which CollectProtocolFees later moves to
// FeeVault.
func (e *Engine) RefreshReserve(reserveAddr crypto.Address, src oracle.Source) error {
	if err := e.guard(); err != nil {
		return err
	}
	reserve, err := e.state.GetReserve(reserveAddr)
	if err != nil {
		return err
	}
	if reserve == nil {
		return ErrReserveNotFound
	}

	quote, err := src.GetPrice(reserve.Config.OraclePriceKey)
	if err != nil {
		return ErrInvalidOraclePrice
	}
	if reserve.Config.MaxOraclePriceAgeSlots > 0 && e.slot > quote.Slot &&
		e.slot-quote.Slot > reserve.Config.MaxOraclePriceAgeSlots {
		return ErrOraclePriceStale
	}
	reserve.Liquidity.MarketPrice = DecimalFromWad(quote.Mantissa)

	elapsed := uint64(0)
	if e.slot > reserve.LastUpdateSlot {
		elapsed = e.slot - reserve.LastUpdateSlot
	}
	if elapsed > 0 && reserve.Liquidity.BorrowedAmountWads.Cmp(ZeroDecimal()) > 0 {
		rate := borrowRate(reserve.Liquidity, reserve.Config)
		// Simple-interest accrual over elapsed slots; WAD precision keeps
		// sub-unit interest from rounding away on short intervals.
		interestFactor := rate.Mul(DecimalFromU64(elapsed))
		accrued := reserve.Liquidity.BorrowedAmountWads.Mul(interestFactor)
		reserve.Liquidity.BorrowedAmountWads = reserve.Liquidity.BorrowedAmountWads.Add(accrued)
		reserve.Liquidity.CumulativeBorrowRateWads = reserve.Liquidity.CumulativeBorrowRateWads.Add(
			reserve.Liquidity.CumulativeBorrowRateWads.Mul(interestFactor))

		if reserve.Config.ProtocolTakeRateBps > 0 {
			protocolShare := accrued.Mul(DecimalFromBps(reserve.Config.ProtocolTakeRateBps))
			reserve.Liquidity.AccumulatedProtocolFeesWads = reserve.Liquidity.AccumulatedProtocolFeesWads.Add(protocolShare)
		}
	}
	reserve.LastUpdateSlot = e.slot
	if err := e.state.PutReserve(reserveAddr, reserve); err != nil {
		return err
	}
	metrics.Lending().ObserveReserveRefreshed(reserve.Config.OraclePriceKey)
	return nil
}

// borrowRate evaluates the two-slope utilization curve described by cfg at
// the reserve's current utilization.
func borrowRate(liq ReserveLiquidity, cfg ReserveConfig) Decimal {
	total, err := liq.TotalSupply()
	if err != nil || total == 0 {
		return DecimalFromBps(cfg.MinBorrowRateBps)
	}
	borrowed, err := liq.BorrowedAmountWads.CeilU64()
	if err != nil {
		return DecimalFromBps(cfg.MaxBorrowRateBps)
	}
	utilizationBps := borrowed * 10_000 / total
	optimal := cfg.OptimalUtilizationBps
	if optimal == 0 {
		optimal = 8_000
	}
	if utilizationBps <= optimal {
		span := cfg.OptimalBorrowRateBps - cfg.MinBorrowRateBps
		return DecimalFromBps(cfg.MinBorrowRateBps + span*utilizationBps/optimal)
	}
	span := cfg.MaxBorrowRateBps - cfg.OptimalBorrowRateBps
	over := utilizationBps - optimal
	denom := uint64(10_000) - optimal
	if denom == 0 {
		return DecimalFromBps(cfg.MaxBorrowRateBps)
	}
	return DecimalFromBps(cfg.OptimalBorrowRateBps + span*over/denom)
}

// collateralExchangeRate returns the liquidity-units-per-collateral-unit
// rate (>= 1 once interest has accrued), mirroring a stake pool's fair
// share exchange rate.
func collateralExchangeRate(reserve *Reserve) (Decimal, error) {
	if reserve.Collateral.MintTotalSupply == 0 {
		return OneDecimal(), nil
	}
	total, err := reserve.Liquidity.TotalSupply()
	if err != nil {
		return Decimal{}, err
	}
	return DecimalFromU64(total).Div(DecimalFromU64(reserve.Collateral.MintTotalSupply))
}

// DepositReserveLiquidity deposits amount of the reserve's liquidity token
// and mints the corresponding collateral tokens at the current exchange
// rate.
func (e *Engine) DepositReserveLiquidity(
	reserveAddr, depositor, sourceLiquidity, destCollateral crypto.Address,
	amount uint64,
	signers token.SignerSet,
) error {
	if err := e.guard(); err != nil {
		return err
	}
	if amount == 0 {
		return ErrZeroAmount
	}
	reserve, err := e.state.GetReserve(reserveAddr)
	if err != nil {
		return err
	}
	if reserve == nil {
		return ErrReserveNotFound
	}
	if reserve.LastUpdateSlot != e.slot {
		return ErrReserveStale
	}

	rate, err := collateralExchangeRate(reserve)
	if err != nil {
		return err
	}
	collateralAmount, err := DecimalFromU64(amount).Div(rate)
	if err != nil {
		return err
	}
	minted, err := collateralAmount.FloorU64()
	if err != nil {
		return err
	}
	if minted == 0 {
		return ErrZeroAmount
	}

	if err := e.token.Transfer(sourceLiquidity, reserve.Liquidity.SupplyVault, amount, signers); err != nil {
		return err
	}
	if err := e.token.MintTo(reserve.Collateral.MintAddr, destCollateral, minted, signers); err != nil {
		return err
	}

	reserve.Liquidity.AvailableAmount += amount
	reserve.Collateral.MintTotalSupply += minted
	return e.state.PutReserve(reserveAddr, reserve)
}

// RedeemReserveCollateral burns collateralAmount of the reserve's
// collateral token and returns the corresponding liquidity at the current
// exchange rate.
func (e *Engine) RedeemReserveCollateral(
	reserveAddr, redeemer, sourceCollateral, destLiquidity crypto.Address,
	collateralAmount uint64,
	signers token.SignerSet,
) error {
	if err := e.guard(); err != nil {
		return err
	}
	if collateralAmount == 0 {
		return ErrZeroAmount
	}
	reserve, err := e.state.GetReserve(reserveAddr)
	if err != nil {
		return err
	}
	if reserve == nil {
		return ErrReserveNotFound
	}
	if reserve.LastUpdateSlot != e.slot {
		return ErrReserveStale
	}

	rate, err := collateralExchangeRate(reserve)
	if err != nil {
		return err
	}
	liquidityAmount, err := DecimalFromU64(collateralAmount).Mul(rate).FloorU64()
	if err != nil {
		return err
	}
	if liquidityAmount > reserve.Liquidity.AvailableAmount {
		return ErrInsufficientLiquidity
	}

	if err := e.token.Burn(sourceCollateral, collateralAmount, signers); err != nil {
		return err
	}
	if err := e.token.Transfer(reserve.Liquidity.SupplyVault, destLiquidity, liquidityAmount, signers); err != nil {
		return err
	}

	reserve.Liquidity.AvailableAmount -= liquidityAmount
	reserve.Collateral.MintTotalSupply -= collateralAmount
	return e.state.PutReserve(reserveAddr, reserve)
}

// InitObligation creates a new, empty borrower position within marketAddr.
func (e *Engine) InitObligation(marketAddr, obligationAddr, owner crypto.Address) error {
	if err := e.guard(); err != nil {
		return err
	}
	market, err := e.state.GetMarket(marketAddr)
	if err != nil {
		return err
	}
	if market == nil {
		return ErrMarketNotFound
	}
	existing, err := e.state.GetObligation(obligationAddr)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrObligationAlreadyInUse
	}
	return e.state.PutObligation(obligationAddr, &Obligation{
		Market:         marketAddr,
		Owner:          owner,
		LastUpdateSlot: e.slot,
	})
}

// RefreshObligation recomputes DepositedValue/BorrowedValue/
// AllowedBorrowValue/UnhealthyBorrowValue from the current state of every
// reserve the obligation references, and accrues any interest owed on its
// borrows since each borrow's last snapshot.
func (e *Engine) RefreshObligation(obligationAddr crypto.Address) error {
	if err := e.guard(); err != nil {
		return err
	}
	obligation, err := e.state.GetObligation(obligationAddr)
	if err != nil {
		return err
	}
	if obligation == nil {
		return ErrObligationNotFound
	}

	depositedValue := ZeroDecimal()
	for i := range obligation.Deposits {
		reserve, err := e.state.GetReserve(obligation.Deposits[i].ReserveAddr)
		if err != nil {
			return err
		}
		if reserve == nil {
			return ErrReserveNotFound
		}
		if reserve.LastUpdateSlot != e.slot {
			return ErrReserveStale
		}
		rate, err := collateralExchangeRate(reserve)
		if err != nil {
			return err
		}
		liquidityValue := DecimalFromU64(obligation.Deposits[i].DepositedAmount).Mul(rate)
		marketValue := liquidityValue.Mul(reserve.Liquidity.MarketPrice)
		obligation.Deposits[i].MarketValue = marketValue
		depositedValue = depositedValue.Add(marketValue)
	}

	borrowedValue := ZeroDecimal()
	allowedBorrowValue := ZeroDecimal()
	unhealthyBorrowValue := ZeroDecimal()
	for i := range obligation.Deposits {
		reserve, err := e.state.GetReserve(obligation.Deposits[i].ReserveAddr)
		if err != nil {
			return err
		}
		allowedBorrowValue = allowedBorrowValue.Add(obligation.Deposits[i].MarketValue.Mul(DecimalFromBps(reserve.Config.LoanToValueBps)))
		unhealthyBorrowValue = unhealthyBorrowValue.Add(obligation.Deposits[i].MarketValue.Mul(DecimalFromBps(reserve.Config.LiquidationThresholdBps)))
	}
	for i := range obligation.Borrows {
		reserve, err := e.state.GetReserve(obligation.Borrows[i].ReserveAddr)
		if err != nil {
			return err
		}
		if reserve == nil {
			return ErrReserveNotFound
		}
		if reserve.LastUpdateSlot != e.slot {
			return ErrReserveStale
		}
		if obligation.Borrows[i].CumulativeBorrowRateWads.Cmp(ZeroDecimal()) == 0 {
			obligation.Borrows[i].CumulativeBorrowRateWads = reserve.Liquidity.CumulativeBorrowRateWads
		}
		growth, err := reserve.Liquidity.CumulativeBorrowRateWads.Div(obligation.Borrows[i].CumulativeBorrowRateWads)
		if err != nil {
			return err
		}
		obligation.Borrows[i].BorrowedAmountWads = obligation.Borrows[i].BorrowedAmountWads.Mul(growth)
		obligation.Borrows[i].CumulativeBorrowRateWads = reserve.Liquidity.CumulativeBorrowRateWads

		marketValue := obligation.Borrows[i].BorrowedAmountWads.Mul(reserve.Liquidity.MarketPrice)
		obligation.Borrows[i].MarketValue = marketValue
		borrowedValue = borrowedValue.Add(marketValue)
	}

	obligation.DepositedValue = depositedValue
	obligation.BorrowedValue = borrowedValue
	obligation.AllowedBorrowValue = allowedBorrowValue
	obligation.UnhealthyBorrowValue = unhealthyBorrowValue
	obligation.LastUpdateSlot = e.slot
	if err := e.state.PutObligation(obligationAddr, obligation); err != nil {
		return err
	}
	metrics.Lending().SetObligationHealth(obligationAddr.String(), healthFactor(unhealthyBorrowValue, borrowedValue))
	return nil
}

// healthFactor returns unhealthy/borrowed as a float64 for observability, or
// a large sentinel when the obligation has no outstanding borrows.
func healthFactor(unhealthyBorrowValue, borrowedValue Decimal) float64 {
	if borrowedValue.Cmp(ZeroDecimal()) == 0 {
		return 1e9
	}
	ratio, err := unhealthyBorrowValue.Div(borrowedValue)
	if err != nil {
		return 1e9
	}
	f := new(big.Float).SetInt(ratio.Wad())
	f.Quo(f, new(big.Float).SetInt(big.NewInt(1_000_000_000_000_000_000)))
	out, _ := f.Float64()
	return out
}

// DepositObligationCollateral moves amount of reserveAddr's collateral
// token from the owner into the obligation's custody, recorded as a new or
// incremented deposit entry.
func (e *Engine) DepositObligationCollateral(
	obligationAddr, reserveAddr, depositor, sourceCollateral, obligationVault crypto.Address,
	amount uint64,
	signers token.SignerSet,
) error {
	if err := e.guard(); err != nil {
		return err
	}
	if amount == 0 {
		return ErrZeroAmount
	}
	obligation, err := e.state.GetObligation(obligationAddr)
	if err != nil {
		return err
	}
	if obligation == nil {
		return ErrObligationNotFound
	}
	if err := e.token.Transfer(sourceCollateral, obligationVault, amount, signers); err != nil {
		return err
	}

	if idx := obligation.findDeposit(reserveAddr); idx >= 0 {
		obligation.Deposits[idx].DepositedAmount += amount
	} else {
		obligation.Deposits = append(obligation.Deposits, ObligationCollateral{
			ReserveAddr:     reserveAddr,
			DepositedAmount: amount,
		})
	}
	return e.state.PutObligation(obligationAddr, obligation)
}

// WithdrawObligationCollateral returns amount of reserveAddr's collateral
// token from the obligation's custody to the owner, rejecting any
// withdrawal that would push the obligation's remaining deposits below its
// outstanding AllowedBorrowValue requirement.
func (e *Engine) WithdrawObligationCollateral(
	obligationAddr, reserveAddr, owner, destCollateral, obligationVault crypto.Address,
	amount uint64,
	signers token.SignerSet,
) error {
	if err := e.guard(); err != nil {
		return err
	}
	if amount == 0 {
		return ErrZeroAmount
	}
	obligation, err := e.state.GetObligation(obligationAddr)
	if err != nil {
		return err
	}
	if obligation == nil {
		return ErrObligationNotFound
	}
	if err := requireSigner(signers, owner); err != nil {
		return err
	}
	if obligation.LastUpdateSlot != e.slot {
		return ErrObligationStale
	}

	idx := obligation.findDeposit(reserveAddr)
	if idx < 0 || obligation.Deposits[idx].DepositedAmount < amount {
		return ErrInsufficientCollateral
	}

	reserve, err := e.state.GetReserve(reserveAddr)
	if err != nil {
		return err
	}
	if reserve == nil {
		return ErrReserveNotFound
	}
	rate, err := collateralExchangeRate(reserve)
	if err != nil {
		return err
	}
	withdrawnValue := DecimalFromU64(amount).Mul(rate).Mul(reserve.Liquidity.MarketPrice)
	remainingValue, err := obligation.Deposits[idx].MarketValue.Sub(withdrawnValue)
	if err != nil {
		remainingValue = ZeroDecimal()
	}
	newAllowed, err := obligation.AllowedBorrowValue.Sub(withdrawnValue.Mul(DecimalFromBps(reserve.Config.LoanToValueBps)))
	if err != nil {
		newAllowed = ZeroDecimal()
	}
	if newAllowed.Cmp(obligation.BorrowedValue) < 0 {
		return ErrWithdrawBelowHealthy
	}

	if err := e.token.Transfer(obligationVault, destCollateral, amount, signers); err != nil {
		return err
	}

	obligation.Deposits[idx].DepositedAmount -= amount
	obligation.Deposits[idx].MarketValue = remainingValue
	obligation.AllowedBorrowValue = newAllowed
	obligation.DepositedValue, _ = obligation.DepositedValue.Sub(withdrawnValue)
	return e.state.PutObligation(obligationAddr, obligation)
}

// BorrowObligationLiquidity lends amount of reserveAddr's liquidity token to
// the obligation's owner, charging the reserve's borrow origination fee and
// rejecting any borrow that would exceed AllowedBorrowValue.
func (e *Engine) BorrowObligationLiquidity(
	obligationAddr, reserveAddr, owner, destLiquidity crypto.Address,
	amount uint64,
	signers token.SignerSet,
) error {
	if err := e.guard(); err != nil {
		return err
	}
	if amount == 0 {
		return ErrZeroAmount
	}
	if e.limiter != nil {
		if err := e.limiter.CheckRateLimit(obligationAddr.Bytes()); err != nil {
			metrics.Lending().IncRateLimited("borrow")
			return err
		}
	}
	obligation, err := e.state.GetObligation(obligationAddr)
	if err != nil {
		return err
	}
	if obligation == nil {
		return ErrObligationNotFound
	}
	if err := requireSigner(signers, owner); err != nil {
		return err
	}
	if obligation.LastUpdateSlot != e.slot {
		return ErrObligationStale
	}

	reserve, err := e.state.GetReserve(reserveAddr)
	if err != nil {
		return err
	}
	if reserve == nil {
		return ErrReserveNotFound
	}
	if reserve.LastUpdateSlot != e.slot {
		return ErrReserveStale
	}
	if amount > reserve.Liquidity.AvailableAmount {
		return ErrInsufficientLiquidity
	}

	borrowValue := DecimalFromU64(amount).Mul(reserve.Liquidity.MarketPrice)
	if obligation.BorrowedValue.Add(borrowValue).Cmp(obligation.AllowedBorrowValue) > 0 {
		return ErrBorrowLimitExceeded
	}

	fee := amount * reserve.Config.BorrowFeeBps / 10_000
	disbursed := amount - fee

	if err := e.token.Transfer(reserve.Liquidity.SupplyVault, destLiquidity, disbursed, signers); err != nil {
		return err
	}
	if fee > 0 {
		if err := e.token.Transfer(reserve.Liquidity.SupplyVault, reserve.Liquidity.FeeVault, fee, signers); err != nil {
			return err
		}
	}

	reserve.Liquidity.AvailableAmount -= amount
	reserve.Liquidity.BorrowedAmountWads = reserve.Liquidity.BorrowedAmountWads.Add(DecimalFromU64(amount))
	if err := e.state.PutReserve(reserveAddr, reserve); err != nil {
		return err
	}

	idx := obligation.findBorrow(reserveAddr)
	if idx < 0 {
		obligation.Borrows = append(obligation.Borrows, ObligationLiquidity{
			ReserveAddr:              reserveAddr,
			CumulativeBorrowRateWads: reserve.Liquidity.CumulativeBorrowRateWads,
			BorrowedAmountWads:       DecimalFromU64(amount),
			MarketValue:              borrowValue,
		})
	} else {
		obligation.Borrows[idx].BorrowedAmountWads = obligation.Borrows[idx].BorrowedAmountWads.Add(DecimalFromU64(amount))
		obligation.Borrows[idx].MarketValue = obligation.Borrows[idx].MarketValue.Add(borrowValue)
	}
	obligation.BorrowedValue = obligation.BorrowedValue.Add(borrowValue)
	if err := e.state.PutObligation(obligationAddr, obligation); err != nil {
		return err
	}
	metrics.Lending().ObserveBorrow(reserveAddr.String())
	return nil
}

// RepayObligationLiquidity returns amount of reserveAddr's liquidity token
// from repayer to the reserve's supply vault, reducing the obligation's
// outstanding borrow for that reserve.
func (e *Engine) RepayObligationLiquidity(
	obligationAddr, reserveAddr, repayer, sourceLiquidity crypto.Address,
	amount uint64,
	signers token.SignerSet,
) error {
	if err := e.guard(); err != nil {
		return err
	}
	if amount == 0 {
		return ErrZeroAmount
	}
	obligation, err := e.state.GetObligation(obligationAddr)
	if err != nil {
		return err
	}
	if obligation == nil {
		return ErrObligationNotFound
	}
	idx := obligation.findBorrow(reserveAddr)
	if idx < 0 {
		return ErrObligationBorrowNotFound
	}
	owed, err := obligation.Borrows[idx].BorrowedAmountWads.CeilU64()
	if err != nil {
		return err
	}
	if amount > owed {
		return ErrRepayExceedsBorrow
	}

	reserve, err := e.state.GetReserve(reserveAddr)
	if err != nil {
		return err
	}
	if reserve == nil {
		return ErrReserveNotFound
	}

	if err := e.token.Transfer(sourceLiquidity, reserve.Liquidity.SupplyVault, amount, signers); err != nil {
		return err
	}

	reserve.Liquidity.AvailableAmount += amount
	reserve.Liquidity.BorrowedAmountWads, err = reserve.Liquidity.BorrowedAmountWads.Sub(DecimalFromU64(amount))
	if err != nil {
		reserve.Liquidity.BorrowedAmountWads = ZeroDecimal()
	}
	if err := e.state.PutReserve(reserveAddr, reserve); err != nil {
		return err
	}

	remaining, err := obligation.Borrows[idx].BorrowedAmountWads.Sub(DecimalFromU64(amount))
	if err != nil {
		remaining = ZeroDecimal()
	}
	obligation.Borrows[idx].BorrowedAmountWads = remaining
	if remaining.Cmp(ZeroDecimal()) == 0 {
		obligation.Borrows = append(obligation.Borrows[:idx], obligation.Borrows[idx+1:]...)
	}
	if err := e.state.PutObligation(obligationAddr, obligation); err != nil {
		return err
	}
	metrics.Lending().ObserveRepay(reserveAddr.String())
	return nil
}

// LiquidateObligation repays up to the caller-supplied closeFactorBps of an
// unhealthy obligation's outstanding borrow on repayReserveAddr, seizing the
// equivalent value plus LiquidationBonusBps of withdrawReserveAddr's
// collateral from the obligation.
func (e *Engine) LiquidateObligation(
	obligationAddr, repayReserveAddr, withdrawReserveAddr crypto.Address,
	liquidator, sourceLiquidity, destCollateral crypto.Address,
	obligationVault crypto.Address,
	repayAmount uint64,
	closeFactorBps uint64,
	signers token.SignerSet,
) error {
	if err := e.guard(); err != nil {
		return err
	}
	if repayAmount == 0 {
		return ErrZeroAmount
	}
	if e.limiter != nil {
		if err := e.limiter.CheckRateLimit(obligationAddr.Bytes()); err != nil {
			metrics.Lending().IncRateLimited("liquidate")
			return err
		}
	}
	obligation, err := e.state.GetObligation(obligationAddr)
	if err != nil {
		return err
	}
	if obligation == nil {
		return ErrObligationNotFound
	}
	if obligation.LastUpdateSlot != e.slot {
		return ErrObligationStale
	}
	if obligation.BorrowedValue.Cmp(obligation.UnhealthyBorrowValue) <= 0 {
		return ErrObligationHealthy
	}

	repayIdx := obligation.findBorrow(repayReserveAddr)
	if repayIdx < 0 {
		return ErrObligationBorrowNotFound
	}
	owed, err := obligation.Borrows[repayIdx].BorrowedAmountWads.CeilU64()
	if err != nil {
		return err
	}
	maxRepay := owed * closeFactorBps / 10_000
	if repayAmount > maxRepay {
		return ErrCloseFactorExceeded
	}

	withdrawIdx := obligation.findDeposit(withdrawReserveAddr)
	if withdrawIdx < 0 {
		return ErrObligationDepositNotFound
	}

	repayReserve, err := e.state.GetReserve(repayReserveAddr)
	if err != nil {
		return err
	}
	if repayReserve == nil {
		return ErrReserveNotFound
	}
	withdrawReserve, err := e.state.GetReserve(withdrawReserveAddr)
	if err != nil {
		return err
	}
	if withdrawReserve == nil {
		return ErrReserveNotFound
	}

	repayValue := DecimalFromU64(repayAmount).Mul(repayReserve.Liquidity.MarketPrice)
	bonusValue := repayValue.Mul(OneDecimal().Add(DecimalFromBps(withdrawReserve.Config.LiquidationBonusBps)))
	rate, err := collateralExchangeRate(withdrawReserve)
	if err != nil {
		return err
	}
	underlyingSeized, err := bonusValue.Div(withdrawReserve.Liquidity.MarketPrice)
	if err != nil {
		return err
	}
	collateralSeized, err := underlyingSeized.Div(rate)
	if err != nil {
		return err
	}
	seizedAmount, err := collateralSeized.CeilU64()
	if err != nil {
		return err
	}
	if seizedAmount > obligation.Deposits[withdrawIdx].DepositedAmount {
		seizedAmount = obligation.Deposits[withdrawIdx].DepositedAmount
	}

	if err := e.token.Transfer(sourceLiquidity, repayReserve.Liquidity.SupplyVault, repayAmount, signers); err != nil {
		return err
	}
	if err := e.token.Transfer(obligationVault, destCollateral, seizedAmount, signers); err != nil {
		return err
	}

	repayReserve.Liquidity.AvailableAmount += repayAmount
	repayReserve.Liquidity.BorrowedAmountWads, err = repayReserve.Liquidity.BorrowedAmountWads.Sub(DecimalFromU64(repayAmount))
	if err != nil {
		repayReserve.Liquidity.BorrowedAmountWads = ZeroDecimal()
	}
	if err := e.state.PutReserve(repayReserveAddr, repayReserve); err != nil {
		return err
	}

	remaining, err := obligation.Borrows[repayIdx].BorrowedAmountWads.Sub(DecimalFromU64(repayAmount))
	if err != nil {
		remaining = ZeroDecimal()
	}
	obligation.Borrows[repayIdx].BorrowedAmountWads = remaining
	if remaining.Cmp(ZeroDecimal()) == 0 {
		obligation.Borrows = append(obligation.Borrows[:repayIdx], obligation.Borrows[repayIdx+1:]...)
	}
	obligation.Deposits[withdrawIdx].DepositedAmount -= seizedAmount
	if err := e.state.PutObligation(obligationAddr, obligation); err != nil {
		return err
	}
	metrics.Lending().ObserveLiquidation(repayReserveAddr.String(), withdrawReserveAddr.String())
	return nil
}

// CollectProtocolFees sweeps a reserve's interest-accrued protocol take
// rate out of its supply vault into its fee vault. The swept amount is a
// claim on AvailableAmount rather than a separate pocket of tokens, since
// the interest that funds it only becomes spendable liquidity once
// borrowers repay it.
func (e *Engine) CollectProtocolFees(reserveAddr, marketOwner crypto.Address, signers token.SignerSet) error {
	if err := e.guard(); err != nil {
		return err
	}
	reserve, err := e.state.GetReserve(reserveAddr)
	if err != nil {
		return err
	}
	if reserve == nil {
		return ErrReserveNotFound
	}
	market, err := e.state.GetMarket(reserve.Market)
	if err != nil {
		return err
	}
	if market == nil {
		return ErrMarketNotFound
	}
	if err := requireSigner(signers, market.Owner); err != nil {
		return err
	}

	amount, err := reserve.Liquidity.AccumulatedProtocolFeesWads.FloorU64()
	if err != nil {
		return err
	}
	if amount == 0 {
		return nil
	}
	if amount > reserve.Liquidity.AvailableAmount {
		amount = reserve.Liquidity.AvailableAmount
	}
	if err := e.token.Transfer(reserve.Liquidity.SupplyVault, reserve.Liquidity.FeeVault, amount, signers); err != nil {
		return err
	}
	reserve.Liquidity.AvailableAmount -= amount
	reserve.Liquidity.AccumulatedProtocolFeesWads, err = reserve.Liquidity.AccumulatedProtocolFeesWads.Sub(DecimalFromU64(amount))
	if err != nil {
		reserve.Liquidity.AccumulatedProtocolFeesWads = ZeroDecimal()
	}
	return e.state.PutReserve(reserveAddr, reserve)
}

// FlashLoanReceiver is invoked mid-FlashLoan with the loan amount and fee.
// FlashLoan checks the supply vault balance after it returns rather than
// trusting the receiver's return value alone.
type FlashLoanReceiver interface {
	OnFlashLoan(reserveAddr crypto.Address, amount, fee uint64) error
}

// FlashLoan invokes receiver with amount and the flash loan fee, then
// requires the reserve's supply vault to hold at least its pre-call balance
// plus that fee; on success the fee is added to AvailableAmount. FlashLoan
// does not itself move amount out of the supply vault to the receiver.
func (e *Engine) FlashLoan(reserveAddr crypto.Address, amount uint64, receiver FlashLoanReceiver, signers token.SignerSet) error {
	if err := e.guard(); err != nil {
		return err
	}
	if amount == 0 {
		return ErrZeroAmount
	}
	reserve, err := e.state.GetReserve(reserveAddr)
	if err != nil {
		return err
	}
	if reserve == nil {
		return ErrReserveNotFound
	}
	if amount > reserve.Liquidity.AvailableAmount {
		return ErrInsufficientLiquidity
	}

	fee := amount * reserve.Config.FlashLoanFeeBps / 10_000
	before, err := e.token.AccountBalance(reserve.Liquidity.SupplyVault)
	if err != nil {
		return err
	}

	if err := receiver.OnFlashLoan(reserveAddr, amount, fee); err != nil {
		return err
	}

	after, err := e.token.AccountBalance(reserve.Liquidity.SupplyVault)
	if err != nil {
		return err
	}
	if after < before+fee {
		metrics.Lending().ObserveFlashLoan(reserveAddr.String(), "not_repaid")
		return ErrFlashLoanNotRepaid
	}
	if fee > 0 {
		reserve.Liquidity.AvailableAmount += fee
		if err := e.state.PutReserve(reserveAddr, reserve); err != nil {
			return err
		}
	}
	metrics.Lending().ObserveFlashLoan(reserveAddr.String(), "repaid")
	return nil
}
