// Package config defines the top-level configuration for the fracvault engine
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by FRACVAULT_* environment variables.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Engine     EngineConfig     `toml:"engine"`
	Governance GovernanceConfig `toml:"governance"`
	Notify     NotifyConfig     `toml:"notify"`
	LogLevel   string           `toml:"log_level"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port           int      `toml:"port"`
	CORSOrigins    []string `toml:"cors_origins"`
	APIKey         string   `toml:"api_key"`
	RateLimit      int      `toml:"rate_limit"`
	RateWindow     duration `toml:"rate_window"`
	AuctionLockTTL duration `toml:"auction_lock_ttl"`
}

// PostgresConfig holds PostgreSQL connection parameters for the event journal.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for journal exports.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// EngineConfig holds custody vault and auction engine parameters. Addresses
// are hex-encoded; FractionsPerAsset is the claim units minted per locked
// asset. AuctionDuration and RoyaltyPct are the initial values governance can
// later change.
type EngineConfig struct {
	Owner             string   `toml:"owner"`
	VaultAddress      string   `toml:"vault_address"`
	Treasury          string   `toml:"treasury"`
	FractionsPerAsset int64    `toml:"fractions_per_asset"`
	AuctionDuration   duration `toml:"auction_duration"`
	AntiSnipeWindow   duration `toml:"anti_snipe_window"`
	Extension         duration `toml:"extension"`
	RoyaltyPct        uint64   `toml:"royalty_pct"`
}

// GovernanceConfig holds governance controller parameters.
type GovernanceConfig struct {
	Address        string   `toml:"address"`
	VotingPeriod   duration `toml:"voting_period"`
	ExecutionDelay duration `toml:"execution_delay"`
	QuorumPct      uint64   `toml:"quorum_pct"`
	ThresholdPct   uint64   `toml:"threshold_pct"`
}

// NotifyConfig holds notification channel credentials. Events lists the event
// types forwarded to operators; an empty list forwards everything.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "15m", "48h").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "15m" or "48h".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with the reference parameters: 1000
// fractions per asset, 7-day auctions with a 15-minute anti-snipe window and
// extension, 5% royalty, 3-day voting with 10% quorum, 5% proposal threshold,
// and a 48-hour execution delay.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:           8084,
			CORSOrigins:    []string{"*"},
			RateLimit:      20,
			RateWindow:     duration{time.Second},
			AuctionLockTTL: duration{5 * time.Second},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "fracvault",
			User:          "fracvault",
			SSLMode:       "disable",
			PoolMaxConns:  8,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 8,
		},
		Engine: EngineConfig{
			FractionsPerAsset: 1000,
			AuctionDuration:   duration{7 * 24 * time.Hour},
			AntiSnipeWindow:   duration{15 * time.Minute},
			Extension:         duration{15 * time.Minute},
			RoyaltyPct:        5,
		},
		Governance: GovernanceConfig{
			VotingPeriod:   duration{72 * time.Hour},
			ExecutionDelay: duration{48 * time.Hour},
			QuorumPct:      10,
			ThresholdPct:   5,
		},
		Notify: NotifyConfig{
			Events: []string{
				"auction_ended",
				"auction_cancelled",
				"proposal_queued",
				"proposal_executed",
				"parameter_updated",
			},
		},
		LogLevel: "info",
	}
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks the configuration for internal consistency. It returns an
// error listing every problem found, or nil when the config is usable.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}

	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}

	for _, f := range []struct{ name, value string }{
		{"engine.owner", c.Engine.Owner},
		{"engine.vault_address", c.Engine.VaultAddress},
		{"engine.treasury", c.Engine.Treasury},
		{"governance.address", c.Governance.Address},
	} {
		if f.value == "" {
			errs = append(errs, f.name+" must not be empty")
		} else if !common.IsHexAddress(f.value) {
			errs = append(errs, fmt.Sprintf("%s: %q is not a hex address", f.name, f.value))
		}
	}

	if c.Engine.FractionsPerAsset <= 0 {
		errs = append(errs, "engine: fractions_per_asset must be positive")
	}
	if c.Engine.AuctionDuration.Duration <= 0 {
		errs = append(errs, "engine: auction_duration must be positive")
	}
	if c.Engine.AntiSnipeWindow.Duration <= 0 || c.Engine.Extension.Duration <= 0 {
		errs = append(errs, "engine: anti_snipe_window and extension must be positive")
	}
	if c.Engine.RoyaltyPct > 100 {
		errs = append(errs, fmt.Sprintf("engine: royalty_pct must be 0-100, got %d", c.Engine.RoyaltyPct))
	}

	if c.Governance.VotingPeriod.Duration <= 0 {
		errs = append(errs, "governance: voting_period must be positive")
	}
	if c.Governance.ExecutionDelay.Duration < 0 {
		errs = append(errs, "governance: execution_delay must not be negative")
	}
	if c.Governance.QuorumPct == 0 || c.Governance.QuorumPct > 100 {
		errs = append(errs, fmt.Sprintf("governance: quorum_pct must be 1-100, got %d", c.Governance.QuorumPct))
	}
	if c.Governance.ThresholdPct > 100 {
		errs = append(errs, fmt.Sprintf("governance: threshold_pct must be 0-100, got %d", c.Governance.ThresholdPct))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// OwnerAddress returns the parsed engine owner address.
func (c *Config) OwnerAddress() common.Address { return common.HexToAddress(c.Engine.Owner) }

// VaultAddress returns the parsed vault asset-holding address.
func (c *Config) VaultAddress() common.Address { return common.HexToAddress(c.Engine.VaultAddress) }

// TreasuryAddress returns the parsed treasury address.
func (c *Config) TreasuryAddress() common.Address { return common.HexToAddress(c.Engine.Treasury) }

// GovernanceAddress returns the parsed governance identity address.
func (c *Config) GovernanceAddress() common.Address {
	return common.HexToAddress(c.Governance.Address)
}
