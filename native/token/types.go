package token

import "nhbchain/crypto"

// AccountState is the initialization/freeze lifecycle of a token account.
type AccountState uint8

const (
	StateUninitialized AccountState = iota
	StateInitialized
	StateFrozen
)

// OptionAddress models a present/absent address the way a COption<Pubkey>
// field does on the wire: an explicit flag alongside the value rather than a
// nil-pointer convention, so the encoded layout stays fixed-size.
type OptionAddress struct {
	Valid   bool
	Address crypto.Address
}

// NoAddress is the absent OptionAddress.
var NoAddress = OptionAddress{}

// SomeAddress wraps addr as a present OptionAddress.
func SomeAddress(addr crypto.Address) OptionAddress {
	return OptionAddress{Valid: true, Address: addr}
}

// OptionUint64 models a present/absent u64, used by Account.IsNative.
type OptionUint64 struct {
	Valid bool
	Value uint64
}

// Mint is the fungible token supply record: one per token type, addressed by
// its own account-like address.
type Mint struct {
	MintAuthority   OptionAddress
	Supply          uint64
	Decimals        uint8
	IsInitialized   bool
	FreezeAuthority OptionAddress
	// Extensions carries the TLV tail for mint-level extensions (transfer
	// fee config, interest bearing, default account state, etc).
	Extensions []ExtensionRecord
}

// Account holds a balance of one Mint, owned by a single address (which may
// itself be a Multisig).
type Account struct {
	Mint            crypto.Address
	Owner           crypto.Address
	Amount          uint64
	Delegate        OptionAddress
	DelegatedAmount uint64
	State           AccountState
	IsNative        OptionUint64
	CloseAuthority  OptionAddress
	Extensions      []ExtensionRecord
}

// Multisig is an m-of-n authority record. Any M of the N Signers must sign
// for an operation gated behind this multisig's address to succeed.
type Multisig struct {
	M             uint8
	N             uint8
	IsInitialized bool
	Signers       []crypto.Address
}

// MaxMultisigSigners is the hard cap on Multisig.N.
const MaxMultisigSigners = 11

// AuthorityType enumerates the SetAuthority targets.
type AuthorityType uint8

const (
	AuthorityMintTokens AuthorityType = iota
	AuthorityFreezeAccount
	AuthorityAccountOwner
	AuthorityCloseAccount
	// AuthorityExtensionBase and above address extension-owned authorities
	// (e.g. the transfer-fee withdraw authority); see extension.go.
	AuthorityExtensionBase AuthorityType = 4
)
