package token

import (
	"github.com/ethereum/go-ethereum/rlp"

	"nhbchain/crypto"
)

// ExtensionType tags the payload carried in an ExtensionRecord's Data, the
// same tag-length-value shape the rest of the ledger's wire formats use.
type ExtensionType uint16

const (
	ExtensionNonTransferable ExtensionType = iota + 1
	ExtensionImmutableOwner
	ExtensionPermanentDelegate
	ExtensionMintCloseAuthority
	ExtensionTransferFeeConfig
	ExtensionTransferFeeAmount
	ExtensionInterestBearingConfig
	ExtensionDefaultAccountState
	ExtensionCpiGuard
)

// ExtensionRecord is one TLV entry in a Mint's or Account's extension tail.
// Data holds the RLP-encoded extension-specific struct; decodeExtensionData
// below unpacks it into the concrete type.
type ExtensionRecord struct {
	Type ExtensionType
	Data []byte
}

// NonTransferable marks a mint whose tokens can never change owner outside
// of Burn/CloseAccount. Transfer and TransferChecked reject any mint
// carrying this extension.
type NonTransferable struct{}

// ImmutableOwner marks an account whose owner can never be reassigned via
// SetAuthority(AuthorityAccountOwner).
type ImmutableOwner struct{}

// PermanentDelegate grants Delegate authority over every account of the
// mint, bypassing the normal per-account Approve flow.
type PermanentDelegate struct {
	Delegate crypto.Address
}

// MintCloseAuthority lets CloseAccount be invoked on the mint itself once
// supply reaches zero, returning any rent-equivalent balance to Destination.
// This engine's CloseAccount does not consult it.
type MintCloseAuthority struct {
	CloseAuthority crypto.Address
}

// TransferFeeConfig skims BasisPoints/10000 of every transferred amount
// (capped at MaximumFee) into the receiving account's withheld balance.
// This engine's Transfer does not consult it, so no fee is withheld.
type TransferFeeConfig struct {
	TransferFeeConfigAuthority  OptionAddress
	WithdrawWithheldAuthority   OptionAddress
	WithheldAmount              uint64
	OlderTransferFeeBasisPoints uint16
	OlderMaximumFee             uint64
	NewerTransferFeeBasisPoints uint16
	NewerMaximumFee             uint64
}

// TransferFeeAmount tracks withheld fees accumulated on a single account
// pending TransferFeeConfig.WithdrawWithheldAuthority's withdrawal.
type TransferFeeAmount struct {
	WithheldAmount uint64
}

// InterestBearingConfig accrues a continuously-compounding display rate over
// an Account's Amount without changing the underlying ledger balance; UIs
// compute the accrued amount off RateAuthority-set CurrentRate and
// LastUpdateTimestamp.
type InterestBearingConfig struct {
	RateAuthority           OptionAddress
	InitializationTimestamp int64
	PreUpdateAverageRate    int16
	LastUpdateTimestamp     int64
	CurrentRate             int16
}

// DefaultAccountState forces every newly initialized account of the mint
// into State (typically StateFrozen) until explicitly Thaw'd.
type DefaultAccountState struct {
	State AccountState
}

// CpiGuard, when enabled on an account, rejects Transfer/Burn/Approve/
// CloseAccount invocations made from within a nested call context. This
// engine has no call-depth notion of its own, and neither the engine nor
// Dispatch enforces CpiGuard.
type CpiGuard struct {
	LockCpiGuard bool
}

func findExtension(records []ExtensionRecord, t ExtensionType) (ExtensionRecord, bool) {
	for _, r := range records {
		if r.Type == t {
			return r, true
		}
	}
	return ExtensionRecord{}, false
}

func hasExtension(records []ExtensionRecord, t ExtensionType) bool {
	_, ok := findExtension(records, t)
	return ok
}

func setExtension(records []ExtensionRecord, rec ExtensionRecord) []ExtensionRecord {
	for i := range records {
		if records[i].Type == rec.Type {
			records[i] = rec
			return records
		}
	}
	return append(records, rec)
}

// encodeExtensionData RLP-encodes an extension-specific struct for storage
// in an ExtensionRecord's Data field.
func encodeExtensionData(v interface{}) ([]byte, error) {
	return rlp.EncodeToBytes(v)
}

// decodeExtensionData decodes an ExtensionRecord's Data into the given
// extension-specific struct pointer.
func decodeExtensionData(data []byte, out interface{}) error {
	return rlp.DecodeBytes(data, out)
}
