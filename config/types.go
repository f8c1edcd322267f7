package config

// Governance captures global governance policy knobs that must be validated
// before applying runtime configuration updates.
type Governance struct {
	QuorumBPS        uint32
	PassThresholdBPS uint32
	VotingPeriodSecs uint64
}

// Slashing defines the allowed window bounds for penalty evaluation.
type Slashing struct {
	MinWindowSecs uint64
	MaxWindowSecs uint64
}

// Mempool controls global transaction admission limits.
type Mempool struct {
	MaxBytes int64
}

// Blocks captures block production limits for transaction counts.
type Blocks struct {
	MaxTxs int64
}

// TokenLedgerConfig carries a deployment-wide decimals default for the token
// ledger. It is checked by ValidateConfig and printed by tools/configdump; the
// token engine does not read it, and InitializeMint always takes its decimals
// from the caller.
type TokenLedgerConfig struct {
	DefaultDecimals uint8
}

// StakePoolConfig carries deployment-wide stake pool limits. They are checked
// by ValidateConfig and printed by tools/configdump; the stakepool engine uses
// its own constants and does not read them.
type StakePoolConfig struct {
	MaxValidatorsPerPool uint32
	MinimumDelegationWei uint64
	MinimumReserveWei    uint64
}

// LendingMarketConfig carries protocol-wide lending fee and risk values. They
// are checked by ValidateConfig and printed by tools/configdump; the lending
// engines do not read them.
type LendingMarketConfig struct {
	ProtocolFeeBps   uint64
	ReserveFactorBps uint64
	CloseFactorBps   uint64
}

// Global bundles the runtime configuration values enforced by ValidateConfig.
// No engine reads it.
type Global struct {
	Governance  Governance
	Slashing    Slashing
	Mempool     Mempool
	Blocks      Blocks
	TokenLedger TokenLedgerConfig
	StakePool   StakePoolConfig
	Lending     LendingMarketConfig
}
