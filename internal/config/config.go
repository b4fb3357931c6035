package config

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config aggregates runtime configuration loaded from environment variables.
type Config struct {
	TelegramToken string `env:"TELEGRAM_TOKEN,required"`
	DatabaseURL   string `env:"DATABASE_URL,required"`

	TonEndpoint string `env:"TON_RPC_ENDPOINT" envDefault:"https://testnet.toncenter.com/api/v2/jsonRPC"`
	TonAPIKey   string `env:"TONCENTER_API_KEY"`
	StonAPIBase string `env:"STON_API_BASE" envDefault:"https://api.ston.fi"`

	MasterKeyRaw string `env:"MASTER_KEY,required"`
	MasterKey    []byte `env:"-"`

	HTTPHost string `env:"HOST" envDefault:"0.0.0.0"`
	HTTPPort int    `env:"PORT" envDefault:"8090"`

	HTTPTimeout     time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Orders left PENDING longer than this are failed by the reconciler.
	StaleOrderAfter   time.Duration `env:"STALE_ORDER_AFTER" envDefault:"10m"`
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"1m"`

	LeaderboardLimit int `env:"LEADERBOARD_LIMIT" envDefault:"10"`
}

// Load parses environment variables and produces a Config struct.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	key, err := decodeMasterKey(strings.TrimSpace(cfg.MasterKeyRaw))
	if err != nil {
		return cfg, fmt.Errorf("decode master key: %w", err)
	}
	if len(key) != 32 {
		return cfg, fmt.Errorf("master key must be 32 bytes, got %d", len(key))
	}
	cfg.MasterKey = key
	return cfg, nil
}

func decodeMasterKey(raw string) ([]byte, error) {
	switch {
	case strings.HasPrefix(raw, "base64:"):
		return base64.StdEncoding.DecodeString(raw[7:])
	case strings.HasPrefix(raw, "hex:"):
		return hex.DecodeString(raw[4:])
	default:
		// Bare values are treated as base64.
		return base64.StdEncoding.DecodeString(raw)
	}
}
