package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies FRACVAULT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known FRACVAULT_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setInt(&cfg.Server.Port, "FRACVAULT_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "FRACVAULT_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "FRACVAULT_SERVER_RATE_LIMIT")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "FRACVAULT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "FRACVAULT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "FRACVAULT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "FRACVAULT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "FRACVAULT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "FRACVAULT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "FRACVAULT_POSTGRES_SSLMODE")
	setBool(&cfg.Postgres.RunMigrations, "FRACVAULT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "FRACVAULT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "FRACVAULT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "FRACVAULT_REDIS_DB")
	setBool(&cfg.Redis.TLSEnabled, "FRACVAULT_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "FRACVAULT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "FRACVAULT_S3_REGION")
	setStr(&cfg.S3.Bucket, "FRACVAULT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "FRACVAULT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "FRACVAULT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "FRACVAULT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "FRACVAULT_S3_FORCE_PATH_STYLE")

	// ── Engine ──
	setStr(&cfg.Engine.Owner, "FRACVAULT_ENGINE_OWNER")
	setStr(&cfg.Engine.VaultAddress, "FRACVAULT_ENGINE_VAULT_ADDRESS")
	setStr(&cfg.Engine.Treasury, "FRACVAULT_ENGINE_TREASURY")
	setInt64(&cfg.Engine.FractionsPerAsset, "FRACVAULT_ENGINE_FRACTIONS_PER_ASSET")
	setDuration(&cfg.Engine.AuctionDuration, "FRACVAULT_ENGINE_AUCTION_DURATION")
	setDuration(&cfg.Engine.AntiSnipeWindow, "FRACVAULT_ENGINE_ANTI_SNIPE_WINDOW")
	setDuration(&cfg.Engine.Extension, "FRACVAULT_ENGINE_EXTENSION")
	setUint64(&cfg.Engine.RoyaltyPct, "FRACVAULT_ENGINE_ROYALTY_PCT")

	// ── Governance ──
	setStr(&cfg.Governance.Address, "FRACVAULT_GOVERNANCE_ADDRESS")
	setDuration(&cfg.Governance.VotingPeriod, "FRACVAULT_GOVERNANCE_VOTING_PERIOD")
	setDuration(&cfg.Governance.ExecutionDelay, "FRACVAULT_GOVERNANCE_EXECUTION_DELAY")
	setUint64(&cfg.Governance.QuorumPct, "FRACVAULT_GOVERNANCE_QUORUM_PCT")
	setUint64(&cfg.Governance.ThresholdPct, "FRACVAULT_GOVERNANCE_THRESHOLD_PCT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "FRACVAULT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "FRACVAULT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "FRACVAULT_NOTIFY_DISCORD_WEBHOOK_URL")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "FRACVAULT_LOG_LEVEL")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			dst.Duration = d
		}
	}
}
