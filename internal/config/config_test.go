package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Engine.Owner = "0x00000000000000000000000000000000000000a1"
	cfg.Engine.VaultAddress = "0x00000000000000000000000000000000000000a2"
	cfg.Engine.Treasury = "0x00000000000000000000000000000000000000a3"
	cfg.Governance.Address = "0x00000000000000000000000000000000000000a4"
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, 8084, cfg.Server.Port)
	assert.Equal(t, int64(1000), cfg.Engine.FractionsPerAsset)
	assert.Equal(t, 7*24*time.Hour, cfg.Engine.AuctionDuration.Duration)
	assert.Equal(t, 15*time.Minute, cfg.Engine.AntiSnipeWindow.Duration)
	assert.Equal(t, uint64(5), cfg.Engine.RoyaltyPct)
	assert.Equal(t, 72*time.Hour, cfg.Governance.VotingPeriod.Duration)
	assert.Equal(t, 48*time.Hour, cfg.Governance.ExecutionDelay.Duration)
	assert.Equal(t, uint64(10), cfg.Governance.QuorumPct)
	assert.Equal(t, uint64(5), cfg.Governance.ThresholdPct)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	t.Run("missing addresses", func(t *testing.T) {
		cfg := Defaults()
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "engine.owner must not be empty")
		assert.Contains(t, err.Error(), "governance.address must not be empty")
	})

	t.Run("malformed address", func(t *testing.T) {
		cfg := validConfig()
		cfg.Engine.Treasury = "not-an-address"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a hex address")
	})

	t.Run("bad percentages", func(t *testing.T) {
		cfg := validConfig()
		cfg.Engine.RoyaltyPct = 101
		cfg.Governance.QuorumPct = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "royalty_pct")
		assert.Contains(t, err.Error(), "quorum_pct")
	})

	t.Run("non-positive durations", func(t *testing.T) {
		cfg := validConfig()
		cfg.Engine.AuctionDuration = duration{}
		cfg.Governance.VotingPeriod = duration{}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "auction_duration")
		assert.Contains(t, err.Error(), "voting_period")
	})

	t.Run("bad log level", func(t *testing.T) {
		cfg := validConfig()
		cfg.LogLevel = "verbose"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "log_level")
	})

	t.Run("dsn replaces host fields", func(t *testing.T) {
		cfg := validConfig()
		cfg.Postgres.DSN = "postgres://u:p@db:5432/fracvault"
		cfg.Postgres.Host = ""
		cfg.Postgres.Database = ""
		assert.NoError(t, cfg.Validate())
	})
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
log_level = "debug"

[server]
port = 9090

[engine]
owner = "0x00000000000000000000000000000000000000a1"
vault_address = "0x00000000000000000000000000000000000000a2"
treasury = "0x00000000000000000000000000000000000000a3"
auction_duration = "48h"

[governance]
address = "0x00000000000000000000000000000000000000a4"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	t.Setenv("FRACVAULT_SERVER_PORT", "7070")
	t.Setenv("FRACVAULT_ENGINE_ROYALTY_PCT", "8")
	t.Setenv("FRACVAULT_GOVERNANCE_VOTING_PERIOD", "24h")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	// Env beats file beats defaults.
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 48*time.Hour, cfg.Engine.AuctionDuration.Duration)
	assert.Equal(t, uint64(8), cfg.Engine.RoyaltyPct)
	assert.Equal(t, 24*time.Hour, cfg.Governance.VotingPeriod.Duration)

	// Untouched fields keep their defaults.
	assert.Equal(t, 20, cfg.Server.RateLimit)
	assert.Equal(t, int64(1000), cfg.Engine.FractionsPerAsset)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestAddressHelpers(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, common.HexToAddress(cfg.Engine.Owner), cfg.OwnerAddress())
	assert.Equal(t, common.HexToAddress(cfg.Engine.VaultAddress), cfg.VaultAddress())
	assert.Equal(t, common.HexToAddress(cfg.Engine.Treasury), cfg.TreasuryAddress())
	assert.Equal(t, common.HexToAddress(cfg.Governance.Address), cfg.GovernanceAddress())
}
