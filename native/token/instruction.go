package token

import "nhbchain/crypto"

// Instruction tags, one byte each, matching the dispatch table consumed by
// Dispatch. Tags 22 and above address TLV extension instructions. Dispatch
// recognizes every one of them, and SyncNative and GetAccountDataSize, but
// returns ErrExtensionNotSupported for each.
const (
	TagInitializeMint uint8 = iota
	TagInitializeAccount
	TagInitializeMultisig
	TagTransfer
	TagApprove
	TagRevoke
	TagSetAuthority
	TagMintTo
	TagBurn
	TagCloseAccount
	TagFreezeAccount
	TagThawAccount
	TagTransferChecked
	TagApproveChecked
	TagMintToChecked
	TagBurnChecked
	TagInitializeAccount2
	TagSyncNative
	TagInitializeAccount3
	TagInitializeMultisig2
	TagInitializeMint2
	TagGetAccountDataSize
	TagInitializeImmutableOwner
	TagAmountToUiAmount
	TagUiAmountToAmount
	TagInitializeMintCloseAuthority
	TagTransferFeeExtension
	TagConfidentialTransferExtension
	TagDefaultAccountStateExtension
	TagReallocate
	TagMemoTransferExtension
	TagCreateNativeMint
	TagInitializeNonTransferableMint
	TagInterestBearingMintExtension
	TagCpiGuardExtension
	TagInitializePermanentDelegate
	TagTransferHookExtension
	TagConfidentialTransferFeeExtension
	TagWithdrawExcessLamports
	TagMetadataPointerExtension
	TagGroupPointerExtension
	TagGroupMemberPointerExtension
)

// Instruction is a decoded, ready-to-apply ledger operation together with
// the signer set authorizing it. Dispatch builds one of these from the raw
// tag+payload and the caller-supplied signer addresses.
type Instruction struct {
	Tag     uint8
	Signers SignerSet
	Args    interface{}
}

// Args payload types, one per decodable tag above.
type (
	InitializeMintArgs struct {
		Mint            crypto.Address
		Decimals        uint8
		MintAuthority   OptionAddress
		FreezeAuthority OptionAddress
	}
	InitializeAccountArgs struct {
		Account crypto.Address
		Mint    crypto.Address
		Owner   crypto.Address
	}
	InitializeMultisigArgs struct {
		Multisig crypto.Address
		M        uint8
		Signers  []crypto.Address
	}
	TransferArgs struct {
		Source      crypto.Address
		Destination crypto.Address
		Amount      uint64
	}
	TransferCheckedArgs struct {
		Source      crypto.Address
		Mint        crypto.Address
		Destination crypto.Address
		Amount      uint64
		Decimals    uint8
	}
	ApproveArgs struct {
		Account  crypto.Address
		Delegate crypto.Address
		Amount   uint64
	}
	ApproveCheckedArgs struct {
		Account  crypto.Address
		Mint     crypto.Address
		Delegate crypto.Address
		Amount   uint64
		Decimals uint8
	}
	RevokeArgs struct {
		Account crypto.Address
	}
	SetAuthorityArgs struct {
		Target        crypto.Address
		IsMint        bool
		AuthorityType AuthorityType
		Current       crypto.Address
		NewAuthority  OptionAddress
	}
	MintToArgs struct {
		Mint    crypto.Address
		Account crypto.Address
		Amount  uint64
	}
	MintToCheckedArgs struct {
		Mint     crypto.Address
		Account  crypto.Address
		Amount   uint64
		Decimals uint8
	}
	BurnArgs struct {
		Account crypto.Address
		Amount  uint64
	}
	BurnCheckedArgs struct {
		Account  crypto.Address
		Mint     crypto.Address
		Amount   uint64
		Decimals uint8
	}
	CloseAccountArgs struct {
		Account     crypto.Address
		Destination crypto.Address
	}
	FreezeAccountArgs struct {
		Account crypto.Address
	}
	ThawAccountArgs struct {
		Account crypto.Address
	}
)

// Dispatch decodes and applies ins against engine e. It is the single entry
// point expected of a caller that only has a raw instruction rather than a
// typed engine method call available (e.g. a cross-program invocation from
// StakePool or LendingMarket).
func (e *Engine) Dispatch(ins Instruction) error {
	switch ins.Tag {
	case TagInitializeMint, TagInitializeMint2:
		a, ok := ins.Args.(InitializeMintArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.InitializeMint(a.Mint, a.Decimals, a.MintAuthority, a.FreezeAuthority)
	case TagInitializeAccount, TagInitializeAccount2, TagInitializeAccount3:
		a, ok := ins.Args.(InitializeAccountArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.InitializeAccount(a.Account, a.Mint, a.Owner)
	case TagInitializeMultisig, TagInitializeMultisig2:
		a, ok := ins.Args.(InitializeMultisigArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.InitializeMultisig(a.Multisig, a.M, a.Signers)
	case TagTransfer:
		a, ok := ins.Args.(TransferArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.Transfer(a.Source, a.Destination, a.Amount, ins.Signers)
	case TagTransferChecked:
		a, ok := ins.Args.(TransferCheckedArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.TransferChecked(a.Source, a.Destination, a.Mint, a.Amount, a.Decimals, ins.Signers)
	case TagApprove:
		a, ok := ins.Args.(ApproveArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.Approve(a.Account, a.Delegate, a.Amount, ins.Signers)
	case TagApproveChecked:
		a, ok := ins.Args.(ApproveCheckedArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.ApproveChecked(a.Account, a.Delegate, a.Mint, a.Amount, a.Decimals, ins.Signers)
	case TagRevoke:
		a, ok := ins.Args.(RevokeArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.Revoke(a.Account, ins.Signers)
	case TagSetAuthority:
		a, ok := ins.Args.(SetAuthorityArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.SetAuthority(a.Target, a.IsMint, a.AuthorityType, a.Current, a.NewAuthority, ins.Signers)
	case TagMintTo:
		a, ok := ins.Args.(MintToArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.MintTo(a.Mint, a.Account, a.Amount, ins.Signers)
	case TagMintToChecked:
		a, ok := ins.Args.(MintToCheckedArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.MintToChecked(a.Mint, a.Account, a.Amount, a.Decimals, ins.Signers)
	case TagBurn:
		a, ok := ins.Args.(BurnArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.Burn(a.Account, a.Amount, ins.Signers)
	case TagBurnChecked:
		a, ok := ins.Args.(BurnCheckedArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.BurnChecked(a.Account, a.Mint, a.Amount, a.Decimals, ins.Signers)
	case TagCloseAccount:
		a, ok := ins.Args.(CloseAccountArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.CloseAccount(a.Account, a.Destination, ins.Signers)
	case TagFreezeAccount:
		a, ok := ins.Args.(FreezeAccountArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.Freeze(a.Account, ins.Signers)
	case TagThawAccount:
		a, ok := ins.Args.(ThawAccountArgs)
		if !ok {
			return ErrInvalidInstruction
		}
		return e.Thaw(a.Account, ins.Signers)
	case TagGetAccountDataSize, TagAmountToUiAmount, TagUiAmountToAmount, TagSyncNative,
		TagInitializeImmutableOwner, TagInitializeMintCloseAuthority, TagTransferFeeExtension,
		TagConfidentialTransferExtension, TagDefaultAccountStateExtension, TagReallocate,
		TagMemoTransferExtension, TagCreateNativeMint, TagInitializeNonTransferableMint,
		TagInterestBearingMintExtension, TagCpiGuardExtension, TagInitializePermanentDelegate,
		TagTransferHookExtension, TagConfidentialTransferFeeExtension, TagWithdrawExcessLamports,
		TagMetadataPointerExtension, TagGroupPointerExtension, TagGroupMemberPointerExtension:
		return ErrExtensionNotSupported
	default:
		return ErrInvalidInstruction
	}
}
