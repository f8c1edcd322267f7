package token

import "errors"

// Error sentinels returned verbatim by every mutating operation in this
// package; none are wrapped or swallowed, so callers can compare with
// errors.Is against the exact sentinel.
var (
	ErrAlreadyInUse              = errors.New("token: account already in use")
	ErrMintMismatch              = errors.New("token: mint mismatch")
	ErrOwnerMismatch             = errors.New("token: owner mismatch")
	ErrMissingRequiredSignature  = errors.New("token: missing required signature")
	ErrInsufficientFunds         = errors.New("token: insufficient funds")
	ErrAccountFrozen             = errors.New("token: account frozen")
	ErrFixedSupply               = errors.New("token: mint has no mint authority")
	ErrInvalidNumberOfSigners    = errors.New("token: invalid number of multisig signers")
	ErrAuthorityTypeNotSupported = errors.New("token: authority type not supported")
	ErrNonNativeHasBalance       = errors.New("token: non-native account has a balance")
	ErrMintCannotFreeze          = errors.New("token: mint has no freeze authority")
	ErrInvalidDecimals           = errors.New("token: decimals mismatch")
	ErrUninitialized             = errors.New("token: account not initialized")
	ErrNotFound                  = errors.New("token: account not found")
	ErrMathOverflow              = errors.New("token: arithmetic overflow")
	ErrNonTransferable           = errors.New("token: mint is non-transferable")
	ErrImmutableOwner            = errors.New("token: account owner is immutable")
	ErrExtensionNotSupported     = errors.New("token: extension not implemented")
	ErrInvalidInstruction        = errors.New("token: invalid instruction payload")
)
