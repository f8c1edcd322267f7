package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":6001", cfg.ListenAddress)
	require.Equal(t, ":8080", cfg.RPCAddress)
	require.NotEmpty(t, cfg.ValidatorKey, "expected a generated validator key")
	_, err = os.Stat(path)
	require.NoError(t, err, "expected config file to be written")
}

func TestLoadGeneratesValidatorKeyWhenMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `ListenAddress = ":7000"
RPCAddress = ":9000"
DataDir = "./data"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":7000", cfg.ListenAddress)
	require.Equal(t, ":9000", cfg.RPCAddress)
	require.NotEmpty(t, cfg.ValidatorKey, "expected a backfilled validator key")
}

func TestDefaultGlobalPassesValidation(t *testing.T) {
	require.NoError(t, ValidateConfig(DefaultGlobal()))
}

func TestApplyDefaultsFillsZeroModuleFields(t *testing.T) {
	var g Global
	g.Governance = DefaultGlobal().Governance
	g.Slashing = DefaultGlobal().Slashing
	g.Mempool = DefaultGlobal().Mempool
	g.Blocks = DefaultGlobal().Blocks

	g = g.applyDefaults()
	require.EqualValues(t, DefaultTokenDecimals, g.TokenLedger.DefaultDecimals)
	require.EqualValues(t, DefaultMaxValidatorsPerPool, g.StakePool.MaxValidatorsPerPool)
	require.NoError(t, ValidateConfig(g))
}

func TestValidateConfigRejectsOversizedLendingFees(t *testing.T) {
	g := DefaultGlobal()
	g.Lending.CloseFactorBps = 10_001
	require.Error(t, ValidateConfig(g), "expected error for lending close factor above 10000 bps")
}

func TestValidateConfigRejectsZeroStakePoolReserve(t *testing.T) {
	g := DefaultGlobal()
	g.StakePool.MinimumReserveWei = 0
	require.Error(t, ValidateConfig(g), "expected error for zero stake pool minimum reserve")
}
