package config

import (
	"testing"
	"time"

	"github.com/proofhtf/proofhtf-api/internal/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("NODE_RPC_URL", "http://localhost:8545")
	t.Setenv("BUNDLER_URL", "http://localhost:4337")
	t.Setenv("ACCOUNT_FACTORY_ADDRESS", "0x9406Cc6185a346906296840746125a0E44976454")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, constants.StageLocal, cfg.Stage)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, uint64(constants.DefaultChainID), cfg.ChainID)
	assert.Equal(t, constants.DefaultContractAddress, cfg.ContractAddress)
	assert.Equal(t, constants.DefaultEntryPointAddress, cfg.EntryPointAddress)
	assert.Equal(t, "0x9406Cc6185a346906296840746125a0E44976454", cfg.AccountFactoryAddress)
	assert.Equal(t, "100000000000000000", cfg.SessionPeriodAmountWei.String())
	assert.Equal(t, 24*time.Hour, cfg.SessionPeriodDuration)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	// The wallet endpoint falls back to the node endpoint.
	assert.Equal(t, cfg.NodeRPCURL, cfg.WalletRPCURL)
}

func TestLoadRequiresNodeURL(t *testing.T) {
	t.Setenv("NODE_RPC_URL", "")
	t.Setenv("BUNDLER_URL", "http://localhost:4337")

	_, err := Load()
	assert.ErrorContains(t, err, "NODE_RPC_URL")
}

func TestLoadRequiresBundlerURL(t *testing.T) {
	t.Setenv("NODE_RPC_URL", "http://localhost:8545")
	t.Setenv("BUNDLER_URL", "")

	_, err := Load()
	assert.ErrorContains(t, err, "BUNDLER_URL")
}

func TestLoadRequiresFactoryAddress(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ACCOUNT_FACTORY_ADDRESS", "")

	_, err := Load()
	assert.ErrorContains(t, err, "ACCOUNT_FACTORY_ADDRESS")
}

func TestLoadRejectsUnknownStage(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STAGE", "staging")

	_, err := Load()
	assert.ErrorContains(t, err, "invalid STAGE")
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STAGE", constants.StageProd)
	t.Setenv("CHAIN_ID", "1")
	t.Setenv("SESSION_PERIOD_AMOUNT_WEI", "5000")
	t.Setenv("SESSION_TTL_SECONDS", "3600")
	t.Setenv("WALLET_RPC_URL", "http://localhost:9999")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, constants.StageProd, cfg.Stage)
	assert.Equal(t, uint64(1), cfg.ChainID)
	assert.Equal(t, "5000", cfg.SessionPeriodAmountWei.String())
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, "http://localhost:9999", cfg.WalletRPCURL)
}

func TestLoadRejectsBadChainID(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CHAIN_ID", "not-a-number")

	_, err := Load()
	assert.ErrorContains(t, err, "CHAIN_ID")
}
