package token_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nhbchain/crypto"
	"nhbchain/native/token"
	"nhbchain/native/token/memledger"
)

func newAddr(t *testing.T, seed byte) crypto.Address {
	t.Helper()
	raw := make([]byte, 20)
	raw[19] = seed
	addr, err := crypto.NewAddress(crypto.NHBPrefix, raw)
	require.NoError(t, err)
	return addr
}

func setupMint(t *testing.T, eng *token.Engine, mint, mintAuthority crypto.Address) {
	t.Helper()
	require.NoError(t, eng.InitializeMint(mint, 6, token.SomeAddress(mintAuthority), token.NoAddress))
}

func setupAccount(t *testing.T, eng *token.Engine, acct, mint, owner crypto.Address) {
	t.Helper()
	require.NoError(t, eng.InitializeAccount(acct, mint, owner))
}

// TestTransferDelegatedSpend exercises a delegate draining an allowance
// across two transfers until it is exhausted.
func TestTransferDelegatedSpend(t *testing.T) {
	eng, _ := memledger.NewEngine()

	mintAuthority := newAddr(t, 1)
	owner := newAddr(t, 2)
	delegate := newAddr(t, 3)
	mint := newAddr(t, 4)
	source := newAddr(t, 5)
	dest := newAddr(t, 6)

	setupMint(t, eng, mint, mintAuthority)
	setupAccount(t, eng, source, mint, owner)
	setupAccount(t, eng, dest, mint, owner)

	ownerSigners := token.NewSignerSet(owner)
	require.NoError(t, eng.MintTo(mint, source, 1_000, token.NewSignerSet(mintAuthority)))
	require.NoError(t, eng.Approve(source, delegate, 300, ownerSigners))

	delegateSigners := token.NewSignerSet(delegate)
	require.NoError(t, eng.Transfer(source, dest, 200, delegateSigners))
	require.ErrorIs(t, eng.Transfer(source, dest, 150, delegateSigners), token.ErrInsufficientFunds)
	require.NoError(t, eng.Transfer(source, dest, 100, delegateSigners))

	// The owner can still spend the remaining balance directly; delegate
	// authority never shadows direct owner authority.
	require.NoError(t, eng.Transfer(source, dest, 50, ownerSigners))
}

// TestMultisigTransferRequiresThreshold exercises a 2-of-3 multisig owner:
// fewer than M signatures rejects, M or more succeeds.
func TestMultisigTransferRequiresThreshold(t *testing.T) {
	eng, _ := memledger.NewEngine()

	mintAuthority := newAddr(t, 1)
	signerA := newAddr(t, 10)
	signerB := newAddr(t, 11)
	signerC := newAddr(t, 12)
	multisig := newAddr(t, 13)
	mint := newAddr(t, 20)
	source := newAddr(t, 21)
	dest := newAddr(t, 22)

	require.NoError(t, eng.InitializeMultisig(multisig, 2, []crypto.Address{signerA, signerB, signerC}))
	setupMint(t, eng, mint, mintAuthority)
	setupAccount(t, eng, source, mint, multisig)
	setupAccount(t, eng, dest, mint, multisig)

	require.NoError(t, eng.MintTo(mint, source, 500, token.NewSignerSet(mintAuthority)))

	oneSigner := token.NewSignerSet(signerA)
	require.ErrorIs(t, eng.Transfer(source, dest, 100, oneSigner), token.ErrMissingRequiredSignature)

	twoSigners := token.NewSignerSet(signerA, signerC)
	require.NoError(t, eng.Transfer(source, dest, 100, twoSigners))
}

func TestFreezeBlocksTransfer(t *testing.T) {
	eng, _ := memledger.NewEngine()

	mintAuthority := newAddr(t, 1)
	freezeAuthority := newAddr(t, 2)
	owner := newAddr(t, 3)
	mint := newAddr(t, 4)
	source := newAddr(t, 5)
	dest := newAddr(t, 6)

	require.NoError(t, eng.InitializeMint(mint, 0, token.SomeAddress(mintAuthority), token.SomeAddress(freezeAuthority)))
	setupAccount(t, eng, source, mint, owner)
	setupAccount(t, eng, dest, mint, owner)

	require.NoError(t, eng.MintTo(mint, source, 10, token.NewSignerSet(mintAuthority)))
	require.NoError(t, eng.Freeze(source, token.NewSignerSet(freezeAuthority)))
	owners := token.NewSignerSet(owner)
	require.ErrorIs(t, eng.Transfer(source, dest, 1, owners), token.ErrAccountFrozen)
	require.NoError(t, eng.Thaw(source, token.NewSignerSet(freezeAuthority)))
	require.NoError(t, eng.Transfer(source, dest, 1, owners))
}

func TestBurnReducesSupply(t *testing.T) {
	eng, _ := memledger.NewEngine()

	mintAuthority := newAddr(t, 1)
	owner := newAddr(t, 2)
	mint := newAddr(t, 3)
	acct := newAddr(t, 4)

	setupMint(t, eng, mint, mintAuthority)
	setupAccount(t, eng, acct, mint, owner)

	require.NoError(t, eng.MintTo(mint, acct, 100, token.NewSignerSet(mintAuthority)))
	require.NoError(t, eng.Burn(acct, 40, token.NewSignerSet(owner)))
	require.ErrorIs(t, eng.Burn(acct, 1000, token.NewSignerSet(owner)), token.ErrInsufficientFunds)
}

func TestCloseAccountRejectsNonZeroBalance(t *testing.T) {
	eng, _ := memledger.NewEngine()

	mintAuthority := newAddr(t, 1)
	owner := newAddr(t, 2)
	mint := newAddr(t, 3)
	acct := newAddr(t, 4)
	dest := newAddr(t, 5)

	setupMint(t, eng, mint, mintAuthority)
	setupAccount(t, eng, acct, mint, owner)
	require.NoError(t, eng.MintTo(mint, acct, 5, token.NewSignerSet(mintAuthority)))
	require.ErrorIs(t, eng.CloseAccount(acct, dest, token.NewSignerSet(owner)), token.ErrNonNativeHasBalance)
	require.NoError(t, eng.Burn(acct, 5, token.NewSignerSet(owner)))
	require.NoError(t, eng.CloseAccount(acct, dest, token.NewSignerSet(owner)))
}
