package config

import "fmt"

// Defaults for the TokenLedger/StakePool/Lending sections of Global.
const (
	DefaultTokenDecimals        = 9
	DefaultMaxValidatorsPerPool = 2_950
	DefaultMinimumDelegationWei = 1_000_000
	DefaultMinimumReserveWei    = 1_000_000
	DefaultProtocolFeeBps       = 0
	DefaultReserveFactorBps     = 1_000
	DefaultCloseFactorBps       = 5_000
)

// DefaultGlobal returns a Global populated with this package's defaults.
func DefaultGlobal() Global {
	return Global{
		Governance: Governance{
			QuorumBPS:        5_000,
			PassThresholdBPS: 5_000,
			VotingPeriodSecs: MinVotingPeriodSeconds,
		},
		Slashing: Slashing{
			MinWindowSecs: 3_600,
			MaxWindowSecs: 86_400,
		},
		Mempool: Mempool{MaxBytes: 4 << 20},
		Blocks:  Blocks{MaxTxs: 5_000},
		TokenLedger: TokenLedgerConfig{
			DefaultDecimals: DefaultTokenDecimals,
		},
		StakePool: StakePoolConfig{
			MaxValidatorsPerPool: DefaultMaxValidatorsPerPool,
			MinimumDelegationWei: DefaultMinimumDelegationWei,
			MinimumReserveWei:    DefaultMinimumReserveWei,
		},
		Lending: LendingMarketConfig{
			ProtocolFeeBps:   DefaultProtocolFeeBps,
			ReserveFactorBps: DefaultReserveFactorBps,
			CloseFactorBps:   DefaultCloseFactorBps,
		},
	}
}

// applyDefaults returns g with each zero-valued module field (other than
// Lending.ProtocolFeeBps) set to this package's default; non-zero fields are
// kept as they are.
func (g Global) applyDefaults() Global {
	def := DefaultGlobal()
	if g.TokenLedger.DefaultDecimals == 0 {
		g.TokenLedger.DefaultDecimals = def.TokenLedger.DefaultDecimals
	}
	if g.StakePool.MaxValidatorsPerPool == 0 {
		g.StakePool.MaxValidatorsPerPool = def.StakePool.MaxValidatorsPerPool
	}
	if g.StakePool.MinimumDelegationWei == 0 {
		g.StakePool.MinimumDelegationWei = def.StakePool.MinimumDelegationWei
	}
	if g.StakePool.MinimumReserveWei == 0 {
		g.StakePool.MinimumReserveWei = def.StakePool.MinimumReserveWei
	}
	if g.Lending.ReserveFactorBps == 0 {
		g.Lending.ReserveFactorBps = def.Lending.ReserveFactorBps
	}
	if g.Lending.CloseFactorBps == 0 {
		g.Lending.CloseFactorBps = def.Lending.CloseFactorBps
	}
	return g
}

// validateModules checks the TokenLedger/StakePool/Lending sections beyond
// what ValidateConfig already enforces on Governance/Slashing/Mempool/Blocks.
func (g Global) validateModules() error {
	if g.TokenLedger.DefaultDecimals > 19 {
		return fmt.Errorf("token_ledger: default_decimals out of range")
	}
	if g.StakePool.MaxValidatorsPerPool == 0 {
		return fmt.Errorf("stake_pool: max_validators_per_pool must be positive")
	}
	if g.StakePool.MinimumReserveWei == 0 {
		return fmt.Errorf("stake_pool: minimum_reserve_wei must be positive")
	}
	if g.Lending.CloseFactorBps > 10_000 || g.Lending.ReserveFactorBps > 10_000 || g.Lending.ProtocolFeeBps > 10_000 {
		return fmt.Errorf("lending: fee bps fields must not exceed 10000")
	}
	return nil
}
