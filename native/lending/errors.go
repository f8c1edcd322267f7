package lending

import "errors"

// Error sentinels returned verbatim by every mutating operation in this
// package; callers compare with errors.Is against the exact sentinel.
var (
	ErrMarketAlreadyInUse        = errors.New("lending: market already initialized")
	ErrMarketNotFound            = errors.New("lending: market not found")
	ErrReserveAlreadyInUse       = errors.New("lending: reserve already initialized")
	ErrReserveNotFound           = errors.New("lending: reserve not found")
	ErrReserveStale              = errors.New("lending: reserve must be refreshed this slot")
	ErrObligationAlreadyInUse    = errors.New("lending: obligation already initialized")
	ErrObligationNotFound        = errors.New("lending: obligation not found")
	ErrObligationStale           = errors.New("lending: obligation must be refreshed this slot")
	ErrObligationDepositNotFound = errors.New("lending: obligation has no deposit for reserve")
	ErrObligationBorrowNotFound  = errors.New("lending: obligation has no borrow for reserve")
	ErrZeroAmount                = errors.New("lending: amount must be positive")
	ErrInsufficientLiquidity     = errors.New("lending: reserve has insufficient available liquidity")
	ErrInsufficientCollateral    = errors.New("lending: insufficient collateral for withdrawal")
	ErrBorrowLimitExceeded       = errors.New("lending: borrow exceeds obligation's allowed borrow value")
	ErrWithdrawBelowHealthy      = errors.New("lending: withdrawal would leave obligation unhealthy")
	ErrObligationHealthy         = errors.New("lending: obligation is not eligible for liquidation")
	ErrObligationUnhealthy       = errors.New("lending: obligation is below the liquidation threshold")
	ErrRepayExceedsBorrow        = errors.New("lending: repay amount exceeds outstanding borrow")
	ErrInvalidOraclePrice        = errors.New("lending: oracle returned an invalid price")
	ErrOraclePriceStale          = errors.New("lending: oracle price exceeds the maximum allowed age")
	ErrMissingRequiredSignature  = errors.New("lending: missing required signature")
	ErrMathOverflow              = errors.New("lending: arithmetic overflow or invalid division")
	ErrCollateralMintMismatch    = errors.New("lending: collateral account does not match reserve's collateral mint")
	ErrLiquidityMintMismatch     = errors.New("lending: liquidity account does not match reserve's liquidity mint")
	ErrFlashLoanNotRepaid        = errors.New("lending: flash loan was not repaid in full before returning")
	ErrCloseFactorExceeded       = errors.New("lending: liquidation repay amount exceeds the close factor")
	ErrInvalidInstruction        = errors.New("lending: unrecognized instruction tag or argument type")
)
