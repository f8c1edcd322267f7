package token

import (
	"nhbchain/crypto"
	nativecommon "nhbchain/native/common"
)

// SignerSet is the set of addresses that signed the current instruction,
// keyed by the address's bech32 string. The prefix is part of that string,
// so the same 20 bytes under the nhb and znhb prefixes are distinct keys.
type SignerSet map[string]bool

// NewSignerSet builds a SignerSet from the given signer addresses.
func NewSignerSet(signers ...crypto.Address) SignerSet {
	set := make(SignerSet, len(signers))
	for _, s := range signers {
		set[s.String()] = true
	}
	return set
}

func (s SignerSet) contains(addr crypto.Address) bool {
	if s == nil {
		return false
	}
	return s[addr.String()]
}

// multisigLookup resolves a Multisig record by address, used when an
// authority slot names a Multisig account rather than a single signer.
type multisigLookup func(addr crypto.Address) (*Multisig, bool, error)

// checkAuthority verifies that the given authority address has signed,
// either directly (a single-signer authority) or, if the address names an
// initialized Multisig, that at least M of its N Signers are present in
// signers.
func checkAuthority(authority crypto.Address, signers SignerSet, lookup multisigLookup) error {
	if lookup != nil {
		if ms, ok, err := lookup(authority); err != nil {
			return err
		} else if ok {
			return checkMultisig(ms, signers)
		}
	}
	if !signers.contains(authority) {
		return ErrMissingRequiredSignature
	}
	return nil
}

func checkMultisig(ms *Multisig, signers SignerSet) error {
	if ms == nil || !ms.IsInitialized {
		return ErrUninitialized
	}
	matched := 0
	for _, signer := range ms.Signers {
		if signers.contains(signer) {
			matched++
		}
	}
	if matched < int(ms.M) {
		return ErrMissingRequiredSignature
	}
	return nil
}

// verifyAuthority checks that provided equals expectedOwner (the field on
// the Mint/Account being authorized against) and that provided has signed,
// resolving multisig membership via lookup.
func verifyAuthority(expectedOwner, provided crypto.Address, signers SignerSet, lookup multisigLookup) error {
	if !nativecommon.AddressEqual(expectedOwner, provided) {
		return ErrOwnerMismatch
	}
	return checkAuthority(provided, signers, lookup)
}

// authorizeSpend resolves whether a Transfer/Burn of amount from acct is
// permitted by signers, preferring the account Owner and falling back to a
// Delegate whose DelegatedAmount covers the request. It returns whether the
// spend consumed (and should decrement) the delegated allowance.
func authorizeSpend(acct *Account, amount uint64, signers SignerSet, lookup multisigLookup) (usedDelegate bool, err error) {
	if err := checkAuthority(acct.Owner, signers, lookup); err == nil {
		return false, nil
	}
	if acct.Delegate.Valid && checkAuthority(acct.Delegate.Address, signers, lookup) == nil {
		if acct.DelegatedAmount < amount {
			return false, ErrInsufficientFunds
		}
		return true, nil
	}
	return false, ErrMissingRequiredSignature
}
