package token

import (
	"nhbchain/crypto"
	nativecommon "nhbchain/native/common"
)

const moduleName = "token"

// ledgerState is the persistence surface the engine needs; callers wire a
// core/state-backed implementation via SetState.
type ledgerState interface {
	GetMint(addr crypto.Address) (*Mint, error)
	PutMint(addr crypto.Address, mint *Mint) error
	GetAccount(addr crypto.Address) (*Account, error)
	PutAccount(addr crypto.Address, account *Account) error
	GetMultisig(addr crypto.Address) (*Multisig, error)
	PutMultisig(addr crypto.Address, multisig *Multisig) error
}

// Engine implements the token ledger's instruction set: mint/account
// lifecycle, transfer/delegate authorization, and supply management.
type Engine struct {
	state  ledgerState
	pauses nativecommon.PauseView
}

// NewEngine constructs an unconfigured token engine; SetState must be called
// before any operation is invoked.
func NewEngine() *Engine {
	return &Engine{}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state ledgerState) {
	if e == nil {
		return
	}
	e.state = state
}

// SetPauses wires the engine to the shared module pause view.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

func (e *Engine) guard() error {
	return nativecommon.Guard(e.pauses, moduleName)
}

// AccountBalance returns the current Amount of the account at addr, used by
// callers (e.g. a lending engine's flash loan verification) that need a
// read-only balance check without going through the ledgerState interface
// directly.
func (e *Engine) AccountBalance(addr crypto.Address) (uint64, error) {
	acct, err := e.state.GetAccount(addr)
	if err != nil {
		return 0, err
	}
	if acct == nil {
		return 0, ErrNotFound
	}
	return acct.Amount, nil
}

func (e *Engine) lookupMultisig(addr crypto.Address) (*Multisig, bool, error) {
	ms, err := e.state.GetMultisig(addr)
	if err != nil {
		return nil, false, err
	}
	if ms == nil || !ms.IsInitialized {
		return nil, false, nil
	}
	return ms, true, nil
}

// InitializeMint creates a new Mint record at mintAddr. It is the caller's
// responsibility to ensure mintAddr is not already in use.
func (e *Engine) InitializeMint(mintAddr crypto.Address, decimals uint8, mintAuthority, freezeAuthority OptionAddress) error {
	if err := e.guard(); err != nil {
		return err
	}
	existing, err := e.state.GetMint(mintAddr)
	if err != nil {
		return err
	}
	if existing != nil && existing.IsInitialized {
		return ErrAlreadyInUse
	}
	mint := &Mint{
		MintAuthority:   mintAuthority,
		Decimals:        decimals,
		IsInitialized:   true,
		FreezeAuthority: freezeAuthority,
	}
	return e.state.PutMint(mintAddr, mint)
}

// InitializeAccount creates a token account at acctAddr for the given mint,
// owned by owner. The account starts in StateInitialized unless the mint
// carries a DefaultAccountState extension, whose state is applied instead.
func (e *Engine) InitializeAccount(acctAddr, mintAddr, owner crypto.Address) error {
	if err := e.guard(); err != nil {
		return err
	}
	existing, err := e.state.GetAccount(acctAddr)
	if err != nil {
		return err
	}
	if existing != nil && existing.State != StateUninitialized {
		return ErrAlreadyInUse
	}
	mint, err := e.state.GetMint(mintAddr)
	if err != nil {
		return err
	}
	if mint == nil || !mint.IsInitialized {
		return ErrUninitialized
	}
	state := StateInitialized
	if rec, ok := findExtension(mint.Extensions, ExtensionDefaultAccountState); ok {
		var das DefaultAccountState
		if err := decodeExtensionData(rec.Data, &das); err == nil {
			state = das.State
		}
	}
	acct := &Account{
		Mint:  mintAddr,
		Owner: owner,
		State: state,
	}
	return e.state.PutAccount(acctAddr, acct)
}

// InitializeMultisig creates an m-of-n multisig authority record.
func (e *Engine) InitializeMultisig(msAddr crypto.Address, m uint8, signers []crypto.Address) error {
	if err := e.guard(); err != nil {
		return err
	}
	n := len(signers)
	if n == 0 || n > MaxMultisigSigners || m == 0 || int(m) > n {
		return ErrInvalidNumberOfSigners
	}
	existing, err := e.state.GetMultisig(msAddr)
	if err != nil {
		return err
	}
	if existing != nil && existing.IsInitialized {
		return ErrAlreadyInUse
	}
	ms := &Multisig{
		M:             m,
		N:             uint8(n),
		IsInitialized: true,
		Signers:       append([]crypto.Address(nil), signers...),
	}
	return e.state.PutMultisig(msAddr, ms)
}

func (e *Engine) loadTransferPair(srcAddr, dstAddr crypto.Address) (*Account, *Account, error) {
	src, err := e.state.GetAccount(srcAddr)
	if err != nil {
		return nil, nil, err
	}
	if src == nil || src.State == StateUninitialized {
		return nil, nil, ErrUninitialized
	}
	if src.State == StateFrozen {
		return nil, nil, ErrAccountFrozen
	}
	dst, err := e.state.GetAccount(dstAddr)
	if err != nil {
		return nil, nil, err
	}
	if dst == nil || dst.State == StateUninitialized {
		return nil, nil, ErrUninitialized
	}
	if dst.State == StateFrozen {
		return nil, nil, ErrAccountFrozen
	}
	if !nativecommon.AddressEqual(src.Mint, dst.Mint) {
		return nil, nil, ErrMintMismatch
	}
	return src, dst, nil
}

// Transfer moves amount from srcAddr to dstAddr, authorized by either the
// source account's Owner or its Delegate (up to DelegatedAmount), or by the
// mint's PermanentDelegate extension if present.
func (e *Engine) Transfer(srcAddr, dstAddr crypto.Address, amount uint64, signers SignerSet) error {
	return e.transfer(srcAddr, dstAddr, amount, nil, signers)
}

// TransferChecked is Transfer with the caller asserting the mint's address
// and decimals, guarding against a client acting on a stale mint reference.
func (e *Engine) TransferChecked(srcAddr, dstAddr, expectMint crypto.Address, amount uint64, expectDecimals uint8, signers SignerSet) error {
	return e.transfer(srcAddr, dstAddr, amount, &checkedArgs{mint: expectMint, decimals: expectDecimals}, signers)
}

type checkedArgs struct {
	mint     crypto.Address
	decimals uint8
}

func (e *Engine) transfer(srcAddr, dstAddr crypto.Address, amount uint64, checked *checkedArgs, signers SignerSet) error {
	if err := e.guard(); err != nil {
		return err
	}
	src, dst, err := e.loadTransferPair(srcAddr, dstAddr)
	if err != nil {
		return err
	}
	mint, err := e.state.GetMint(src.Mint)
	if err != nil {
		return err
	}
	if mint == nil || !mint.IsInitialized {
		return ErrUninitialized
	}
	if hasExtension(mint.Extensions, ExtensionNonTransferable) {
		return ErrNonTransferable
	}
	if checked != nil {
		if !nativecommon.AddressEqual(checked.mint, src.Mint) {
			return ErrMintMismatch
		}
		if checked.decimals != mint.Decimals {
			return ErrInvalidDecimals
		}
	}
	if src.Amount < amount {
		return ErrInsufficientFunds
	}
	usedDelegate, err := e.authorizeTransferSpend(mint, src, amount, signers)
	if err != nil {
		return err
	}
	src.Amount -= amount
	if usedDelegate {
		src.DelegatedAmount -= amount
	}
	dst.Amount += amount
	if err := e.state.PutAccount(srcAddr, src); err != nil {
		return err
	}
	return e.state.PutAccount(dstAddr, dst)
}

func (e *Engine) authorizeTransferSpend(mint *Mint, src *Account, amount uint64, signers SignerSet) (usedDelegate bool, err error) {
	if rec, ok := findExtension(mint.Extensions, ExtensionPermanentDelegate); ok {
		var perm PermanentDelegate
		if err := decodeExtensionData(rec.Data, &perm); err == nil {
			if checkAuthority(perm.Delegate, signers, e.lookupMultisig) == nil {
				return false, nil
			}
		}
	}
	return authorizeSpend(src, amount, signers, e.lookupMultisig)
}

// Approve grants delegate authority over up to amount of acctAddr's balance.
func (e *Engine) Approve(acctAddr, delegate crypto.Address, amount uint64, signers SignerSet) error {
	return e.approve(acctAddr, delegate, amount, nil, signers)
}

// ApproveChecked is Approve with a caller-asserted mint/decimals check.
func (e *Engine) ApproveChecked(acctAddr, delegate, expectMint crypto.Address, amount uint64, expectDecimals uint8, signers SignerSet) error {
	return e.approve(acctAddr, delegate, amount, &checkedArgs{mint: expectMint, decimals: expectDecimals}, signers)
}

func (e *Engine) approve(acctAddr, delegate crypto.Address, amount uint64, checked *checkedArgs, signers SignerSet) error {
	if err := e.guard(); err != nil {
		return err
	}
	acct, err := e.state.GetAccount(acctAddr)
	if err != nil {
		return err
	}
	if acct == nil || acct.State == StateUninitialized {
		return ErrUninitialized
	}
	if acct.State == StateFrozen {
		return ErrAccountFrozen
	}
	if checked != nil {
		mint, err := e.state.GetMint(acct.Mint)
		if err != nil {
			return err
		}
		if mint == nil || !mint.IsInitialized {
			return ErrUninitialized
		}
		if !nativecommon.AddressEqual(checked.mint, acct.Mint) {
			return ErrMintMismatch
		}
		if checked.decimals != mint.Decimals {
			return ErrInvalidDecimals
		}
	}
	if err := checkAuthority(acct.Owner, signers, e.lookupMultisig); err != nil {
		return err
	}
	acct.Delegate = SomeAddress(delegate)
	acct.DelegatedAmount = amount
	return e.state.PutAccount(acctAddr, acct)
}

// Revoke clears any delegate on acctAddr.
func (e *Engine) Revoke(acctAddr crypto.Address, signers SignerSet) error {
	if err := e.guard(); err != nil {
		return err
	}
	acct, err := e.state.GetAccount(acctAddr)
	if err != nil {
		return err
	}
	if acct == nil || acct.State == StateUninitialized {
		return ErrUninitialized
	}
	if err := checkAuthority(acct.Owner, signers, e.lookupMultisig); err != nil {
		return err
	}
	acct.Delegate = NoAddress
	acct.DelegatedAmount = 0
	return e.state.PutAccount(acctAddr, acct)
}

// SetAuthority reassigns one of a Mint's or Account's authority slots.
func (e *Engine) SetAuthority(target crypto.Address, isMint bool, authorityType AuthorityType, current crypto.Address, next OptionAddress, signers SignerSet) error {
	if err := e.guard(); err != nil {
		return err
	}
	if isMint {
		return e.setMintAuthority(target, authorityType, current, next, signers)
	}
	return e.setAccountAuthority(target, authorityType, current, next, signers)
}

func (e *Engine) setMintAuthority(mintAddr crypto.Address, authorityType AuthorityType, current crypto.Address, next OptionAddress, signers SignerSet) error {
	mint, err := e.state.GetMint(mintAddr)
	if err != nil {
		return err
	}
	if mint == nil || !mint.IsInitialized {
		return ErrUninitialized
	}
	switch authorityType {
	case AuthorityMintTokens:
		if !mint.MintAuthority.Valid {
			return ErrFixedSupply
		}
		if err := verifyAuthority(mint.MintAuthority.Address, current, signers, e.lookupMultisig); err != nil {
			return err
		}
		mint.MintAuthority = next
	case AuthorityFreezeAccount:
		if !mint.FreezeAuthority.Valid {
			return ErrMintCannotFreeze
		}
		if err := verifyAuthority(mint.FreezeAuthority.Address, current, signers, e.lookupMultisig); err != nil {
			return err
		}
		mint.FreezeAuthority = next
	default:
		return ErrAuthorityTypeNotSupported
	}
	return e.state.PutMint(mintAddr, mint)
}

func (e *Engine) setAccountAuthority(acctAddr crypto.Address, authorityType AuthorityType, current crypto.Address, next OptionAddress, signers SignerSet) error {
	acct, err := e.state.GetAccount(acctAddr)
	if err != nil {
		return err
	}
	if acct == nil || acct.State == StateUninitialized {
		return ErrUninitialized
	}
	switch authorityType {
	case AuthorityAccountOwner:
		if hasExtension(acct.Extensions, ExtensionImmutableOwner) {
			return ErrImmutableOwner
		}
		if err := verifyAuthority(acct.Owner, current, signers, e.lookupMultisig); err != nil {
			return err
		}
		if !next.Valid {
			return ErrInvalidInstruction
		}
		acct.Owner = next.Address
	case AuthorityCloseAccount:
		closeAuthority := acct.Owner
		if acct.CloseAuthority.Valid {
			closeAuthority = acct.CloseAuthority.Address
		}
		if err := verifyAuthority(closeAuthority, current, signers, e.lookupMultisig); err != nil {
			return err
		}
		acct.CloseAuthority = next
	default:
		return ErrAuthorityTypeNotSupported
	}
	return e.state.PutAccount(acctAddr, acct)
}

// MintTo increases mintAddr's supply and credits acctAddr, authorized by the
// mint's MintAuthority.
func (e *Engine) MintTo(mintAddr, acctAddr crypto.Address, amount uint64, signers SignerSet) error {
	return e.mintTo(mintAddr, acctAddr, amount, nil, signers)
}

// MintToChecked is MintTo with a caller-asserted decimals check.
func (e *Engine) MintToChecked(mintAddr, acctAddr crypto.Address, amount uint64, expectDecimals uint8, signers SignerSet) error {
	return e.mintTo(mintAddr, acctAddr, amount, &expectDecimals, signers)
}

func (e *Engine) mintTo(mintAddr, acctAddr crypto.Address, amount uint64, expectDecimals *uint8, signers SignerSet) error {
	if err := e.guard(); err != nil {
		return err
	}
	mint, err := e.state.GetMint(mintAddr)
	if err != nil {
		return err
	}
	if mint == nil || !mint.IsInitialized {
		return ErrUninitialized
	}
	if !mint.MintAuthority.Valid {
		return ErrFixedSupply
	}
	if expectDecimals != nil && *expectDecimals != mint.Decimals {
		return ErrInvalidDecimals
	}
	if err := checkAuthority(mint.MintAuthority.Address, signers, e.lookupMultisig); err != nil {
		return err
	}
	acct, err := e.state.GetAccount(acctAddr)
	if err != nil {
		return err
	}
	if acct == nil || acct.State == StateUninitialized {
		return ErrUninitialized
	}
	if acct.State == StateFrozen {
		return ErrAccountFrozen
	}
	if !nativecommon.AddressEqual(acct.Mint, mintAddr) {
		return ErrMintMismatch
	}
	newSupply := mint.Supply + amount
	if newSupply < mint.Supply {
		return ErrMathOverflow
	}
	mint.Supply = newSupply
	acct.Amount += amount
	if err := e.state.PutMint(mintAddr, mint); err != nil {
		return err
	}
	return e.state.PutAccount(acctAddr, acct)
}

// Burn destroys amount of acctAddr's balance and decreases the mint's
// supply, authorized the same way a Transfer's source spend is.
func (e *Engine) Burn(acctAddr crypto.Address, amount uint64, signers SignerSet) error {
	return e.burn(acctAddr, amount, nil, signers)
}

// BurnChecked is Burn with a caller-asserted mint/decimals check.
func (e *Engine) BurnChecked(acctAddr, expectMint crypto.Address, amount uint64, expectDecimals uint8, signers SignerSet) error {
	return e.burn(acctAddr, amount, &checkedArgs{mint: expectMint, decimals: expectDecimals}, signers)
}

func (e *Engine) burn(acctAddr crypto.Address, amount uint64, checked *checkedArgs, signers SignerSet) error {
	if err := e.guard(); err != nil {
		return err
	}
	acct, err := e.state.GetAccount(acctAddr)
	if err != nil {
		return err
	}
	if acct == nil || acct.State == StateUninitialized {
		return ErrUninitialized
	}
	if acct.State == StateFrozen {
		return ErrAccountFrozen
	}
	mint, err := e.state.GetMint(acct.Mint)
	if err != nil {
		return err
	}
	if mint == nil || !mint.IsInitialized {
		return ErrUninitialized
	}
	if checked != nil {
		if !nativecommon.AddressEqual(checked.mint, acct.Mint) {
			return ErrMintMismatch
		}
		if checked.decimals != mint.Decimals {
			return ErrInvalidDecimals
		}
	}
	if acct.Amount < amount {
		return ErrInsufficientFunds
	}
	usedDelegate, err := e.authorizeTransferSpend(mint, acct, amount, signers)
	if err != nil {
		return err
	}
	acct.Amount -= amount
	if usedDelegate {
		acct.DelegatedAmount -= amount
	}
	if mint.Supply < amount {
		return ErrMathOverflow
	}
	mint.Supply -= amount
	if err := e.state.PutAccount(acctAddr, acct); err != nil {
		return err
	}
	return e.state.PutMint(acct.Mint, mint)
}

// CloseAccount zeroes out acctAddr, refunding any rent-equivalent balance is
// the caller's concern; the ledger simply removes the account once its
// token Amount is zero and it holds no native SOL-equivalent lamports.
func (e *Engine) CloseAccount(acctAddr, destination crypto.Address, signers SignerSet) error {
	if err := e.guard(); err != nil {
		return err
	}
	acct, err := e.state.GetAccount(acctAddr)
	if err != nil {
		return err
	}
	if acct == nil || acct.State == StateUninitialized {
		return ErrUninitialized
	}
	if acct.Amount != 0 && !acct.IsNative.Valid {
		return ErrNonNativeHasBalance
	}
	closeAuthority := acct.Owner
	if acct.CloseAuthority.Valid {
		closeAuthority = acct.CloseAuthority.Address
	}
	if err := checkAuthority(closeAuthority, signers, e.lookupMultisig); err != nil {
		return err
	}
	return e.state.PutAccount(acctAddr, &Account{})
}

// Freeze sets acctAddr to StateFrozen, authorized by the mint's
// FreezeAuthority.
func (e *Engine) Freeze(acctAddr crypto.Address, signers SignerSet) error {
	return e.setFrozen(acctAddr, StateFrozen, signers)
}

// Thaw returns acctAddr from StateFrozen to StateInitialized.
func (e *Engine) Thaw(acctAddr crypto.Address, signers SignerSet) error {
	return e.setFrozen(acctAddr, StateInitialized, signers)
}

func (e *Engine) setFrozen(acctAddr crypto.Address, next AccountState, signers SignerSet) error {
	if err := e.guard(); err != nil {
		return err
	}
	acct, err := e.state.GetAccount(acctAddr)
	if err != nil {
		return err
	}
	if acct == nil || acct.State == StateUninitialized {
		return ErrUninitialized
	}
	mint, err := e.state.GetMint(acct.Mint)
	if err != nil {
		return err
	}
	if mint == nil || !mint.IsInitialized {
		return ErrUninitialized
	}
	if !mint.FreezeAuthority.Valid {
		return ErrMintCannotFreeze
	}
	if err := checkAuthority(mint.FreezeAuthority.Address, signers, e.lookupMultisig); err != nil {
		return err
	}
	acct.State = next
	return e.state.PutAccount(acctAddr, acct)
}
