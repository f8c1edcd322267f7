package lending_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"nhbchain/crypto"
	"nhbchain/native/lending"
	"nhbchain/native/lending/oracle"
	"nhbchain/native/token"
	"nhbchain/native/token/memledger"
)

func bigFromInt(v int64) *big.Int { return big.NewInt(v) }

type mockState struct {
	markets     map[string]*lending.Market
	reserves    map[string]*lending.Reserve
	obligations map[string]*lending.Obligation
}

func newMockState() *mockState {
	return &mockState{
		markets:     make(map[string]*lending.Market),
		reserves:    make(map[string]*lending.Reserve),
		obligations: make(map[string]*lending.Obligation),
	}
}

func key(addr crypto.Address) string { return string(addr.Bytes()) }

func (m *mockState) GetMarket(addr crypto.Address) (*lending.Market, error) {
	v, ok := m.markets[key(addr)]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (m *mockState) PutMarket(addr crypto.Address, market *lending.Market) error {
	cp := *market
	m.markets[key(addr)] = &cp
	return nil
}

func (m *mockState) GetReserve(addr crypto.Address) (*lending.Reserve, error) {
	v, ok := m.reserves[key(addr)]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (m *mockState) PutReserve(addr crypto.Address, reserve *lending.Reserve) error {
	cp := *reserve
	m.reserves[key(addr)] = &cp
	return nil
}

func (m *mockState) GetObligation(addr crypto.Address) (*lending.Obligation, error) {
	v, ok := m.obligations[key(addr)]
	if !ok {
		return nil, nil
	}
	return v.Clone(), nil
}

func (m *mockState) PutObligation(addr crypto.Address, obligation *lending.Obligation) error {
	m.obligations[key(addr)] = obligation.Clone()
	return nil
}

func newAddr(t *testing.T, seed byte) crypto.Address {
	t.Helper()
	raw := make([]byte, 20)
	raw[19] = seed
	addr, err := crypto.NewAddress(crypto.NHBPrefix, raw)
	require.NoError(t, err)
	return addr
}

type harness struct {
	eng   *lending.Engine
	state *mockState
	tok   *token.Engine

	marketOwner crypto.Address
	marketAddr  crypto.Address
	reserveAddr crypto.Address

	liquidityMint  crypto.Address
	supplyVault    crypto.Address
	feeVault       crypto.Address
	collateralMint crypto.Address
}

func setupMarketAndReserve(t *testing.T) *harness {
	t.Helper()
	tok, _ := memledger.NewEngine()
	state := newMockState()
	eng := lending.NewEngine()
	eng.SetState(state)
	eng.SetTokenLedger(tok)

	marketOwner := newAddr(t, 1)
	marketAddr := newAddr(t, 2)
	reserveAddr := newAddr(t, 3)
	liquidityMint := newAddr(t, 4)
	supplyVault := newAddr(t, 5)
	feeVault := newAddr(t, 6)
	collateralMint := newAddr(t, 7)
	depositor := newAddr(t, 8)
	depositorLiquidityAccount := newAddr(t, 9)
	destCollateralAccount := newAddr(t, 10)

	require.NoError(t, tok.InitializeMint(liquidityMint, 9, token.SomeAddress(depositor), token.NoAddress))
	require.NoError(t, tok.InitializeMint(collateralMint, 9, token.SomeAddress(marketOwner), token.NoAddress))
	require.NoError(t, tok.InitializeAccount(depositorLiquidityAccount, liquidityMint, depositor))
	require.NoError(t, tok.InitializeAccount(supplyVault, liquidityMint, marketOwner))
	require.NoError(t, tok.InitializeAccount(feeVault, liquidityMint, marketOwner))
	require.NoError(t, tok.InitializeAccount(destCollateralAccount, collateralMint, depositor))
	require.NoError(t, tok.MintTo(liquidityMint, depositorLiquidityAccount, 10_000_000, token.NewSignerSet(depositor)))

	require.NoError(t, eng.InitLendingMarket(marketAddr, marketOwner, "USD"))

	cfg := lending.ReserveConfig{
		LoanToValueBps:          7_000,
		LiquidationThresholdBps: 8_000,
		LiquidationBonusBps:     500,
		OptimalUtilizationBps:   8_000,
		MinBorrowRateBps:        100,
		OptimalBorrowRateBps:    1_000,
		MaxBorrowRateBps:        5_000,
		ProtocolTakeRateBps:     1_000,
		BorrowFeeBps:            10,
		FlashLoanFeeBps:         9,
		OraclePriceKey:          "NHB/USD",
		MaxOraclePriceAgeSlots:  100,
	}
	require.NoError(t, eng.InitReserve(
		marketAddr, reserveAddr, cfg,
		liquidityMint, supplyVault, feeVault, collateralMint,
		depositor, depositorLiquidityAccount, destCollateralAccount,
		1_000_000, token.NewSignerSet(depositor, marketOwner),
	))

	return &harness{
		eng: eng, state: state, tok: tok,
		marketOwner: marketOwner, marketAddr: marketAddr, reserveAddr: reserveAddr,
		liquidityMint: liquidityMint, supplyVault: supplyVault, feeVault: feeVault,
		collateralMint: collateralMint,
	}
}

func refresh(t *testing.T, h *harness, slot uint64, priceWad int64) {
	t.Helper()
	src := oracle.NewStatic(map[string]oracle.Price{
		"NHB/USD": {Mantissa: bigFromInt(priceWad), Slot: slot},
	})
	h.eng.SetSlot(slot)
	require.NoError(t, h.eng.RefreshReserve(h.reserveAddr, src))
}

func TestInitReserveMintsCollateralAtPar(t *testing.T) {
	h := setupMarketAndReserve(t)
	reserve, err := h.state.GetReserve(h.reserveAddr)
	require.NoError(t, err)
	require.EqualValues(t, 1_000_000, reserve.Collateral.MintTotalSupply, "expected collateral minted at par")
	require.EqualValues(t, 1_000_000, reserve.Liquidity.AvailableAmount, "expected available liquidity")
}

func TestBorrowAndRepayObligationLiquidity(t *testing.T) {
	h := setupMarketAndReserve(t)
	refresh(t, h, 1, 1_000_000_000_000_000_000) // price = 1.0 USD per unit

	borrower := newAddr(t, 20)
	obligationAddr := newAddr(t, 21)
	obligationVault := newAddr(t, 22)
	borrowerCollateralSource := newAddr(t, 23)
	borrowerLiquidityDest := newAddr(t, 24)

	require.NoError(t, h.tok.InitializeAccount(obligationVault, h.collateralMint, borrower))
	require.NoError(t, h.tok.InitializeAccount(borrowerCollateralSource, h.collateralMint, borrower))
	require.NoError(t, h.tok.InitializeAccount(borrowerLiquidityDest, h.liquidityMint, borrower))
	// Give the borrower some collateral tokens to deposit by minting them
	// directly under the market owner's signature.
	require.NoError(t, h.tok.MintTo(h.collateralMint, borrowerCollateralSource, 500_000, token.NewSignerSet(h.marketOwner)))

	require.NoError(t, h.eng.InitObligation(h.marketAddr, obligationAddr, borrower))
	require.NoError(t, h.eng.DepositObligationCollateral(
		obligationAddr, h.reserveAddr, borrower, borrowerCollateralSource, obligationVault,
		500_000, token.NewSignerSet(borrower),
	))
	require.NoError(t, h.eng.RefreshObligation(obligationAddr))

	require.NoError(t, h.eng.BorrowObligationLiquidity(
		obligationAddr, h.reserveAddr, borrower, borrowerLiquidityDest,
		200_000, token.NewSignerSet(borrower),
	))

	obligation, err := h.state.GetObligation(obligationAddr)
	require.NoError(t, err)
	require.Len(t, obligation.Borrows, 1)

	require.NoError(t, h.eng.RepayObligationLiquidity(
		obligationAddr, h.reserveAddr, borrower, borrowerLiquidityDest,
		200_000, token.NewSignerSet(borrower),
	))
	obligation, err = h.state.GetObligation(obligationAddr)
	require.NoError(t, err)
	require.Empty(t, obligation.Borrows, "expected borrow entry to be cleared after full repay")
}

func TestBorrowLimitExceededRejected(t *testing.T) {
	h := setupMarketAndReserve(t)
	refresh(t, h, 1, 1_000_000_000_000_000_000)

	borrower := newAddr(t, 30)
	obligationAddr := newAddr(t, 31)
	obligationVault := newAddr(t, 32)
	borrowerCollateralSource := newAddr(t, 33)
	borrowerLiquidityDest := newAddr(t, 34)

	require.NoError(t, h.tok.InitializeAccount(obligationVault, h.collateralMint, borrower))
	require.NoError(t, h.tok.InitializeAccount(borrowerCollateralSource, h.collateralMint, borrower))
	require.NoError(t, h.tok.InitializeAccount(borrowerLiquidityDest, h.liquidityMint, borrower))
	require.NoError(t, h.tok.MintTo(h.collateralMint, borrowerCollateralSource, 100_000, token.NewSignerSet(h.marketOwner)))

	require.NoError(t, h.eng.InitObligation(h.marketAddr, obligationAddr, borrower))
	require.NoError(t, h.eng.DepositObligationCollateral(
		obligationAddr, h.reserveAddr, borrower, borrowerCollateralSource, obligationVault,
		100_000, token.NewSignerSet(borrower),
	))
	require.NoError(t, h.eng.RefreshObligation(obligationAddr))

	// LoanToValueBps = 7000 -> allowed borrow value = 70_000; requesting
	// 200_000 must be rejected.
	require.Error(t, h.eng.BorrowObligationLiquidity(
		obligationAddr, h.reserveAddr, borrower, borrowerLiquidityDest,
		200_000, token.NewSignerSet(borrower),
	), "expected ErrBorrowLimitExceeded")
}
