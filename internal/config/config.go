package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the trading assistant.
type Config struct {
	General   GeneralConfig   `yaml:"general"`
	Watchlist WatchlistConfig `yaml:"watchlist"`
	Storage   StorageConfig   `yaml:"storage"`
	Providers ProvidersConfig `yaml:"providers"`
	Stream    StreamConfig    `yaml:"stream"`
	Engine    EngineConfig    `yaml:"engine"`
	Portfolio PortfolioConfig `yaml:"portfolio"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type GeneralConfig struct {
	InstanceID  string `yaml:"instance_id"`
	Environment string `yaml:"environment"` // production|staging|development
	DryRun      bool   `yaml:"dry_run"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"` // json|text
}

type WatchlistConfig struct {
	Path string `yaml:"path"`
}

type StorageConfig struct {
	LedgerPath   string `yaml:"ledger_path"`
	DatabasePath string `yaml:"database_path"`
}

type ProvidersConfig struct {
	DexScreenerURL string `yaml:"dexscreener_url"`
	RugCheckURL    string `yaml:"rugcheck_url"`
}

type StreamConfig struct {
	Endpoint         string `yaml:"endpoint"`
	ReconnectDelayMs int    `yaml:"reconnect_delay_ms"`
	MaxReconnects    int    `yaml:"max_reconnects"` // 0 = unlimited
	RetentionHours   int    `yaml:"retention_hours"`
}

type EngineConfig struct {
	// Cron spec for analysis cycles, e.g. "@every 5m".
	CycleSchedule          string  `yaml:"cycle_schedule"`
	MinSmartScore          float64 `yaml:"min_smart_score"`
	SignalConfidenceGate   float64 `yaml:"signal_confidence_gate"`
	CombinedConfidenceGate float64 `yaml:"combined_confidence_gate"`
	SummaryEveryCycles     int     `yaml:"summary_every_cycles"`
}

type PortfolioConfig struct {
	StartingCapitalUSD float64 `yaml:"starting_capital_usd"`
	PositionSizeUSD    float64 `yaml:"position_size_usd"`
	StopLossFactor     float64 `yaml:"stop_loss_factor"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

type MetricsConfig struct {
	PrometheusPort int  `yaml:"prometheus_port"`
	Enabled        bool `yaml:"enabled"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Apply defaults
	applyDefaults(cfg)

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.General.InstanceID == "" {
		cfg.General.InstanceID = "alphatrace-1"
	}
	if cfg.General.Environment == "" {
		cfg.General.Environment = "development"
	}
	if cfg.General.LogLevel == "" {
		cfg.General.LogLevel = "info"
	}
	if cfg.General.LogFormat == "" {
		cfg.General.LogFormat = "json"
	}
	if cfg.Watchlist.Path == "" {
		cfg.Watchlist.Path = "tracked_wallets.txt"
	}
	if cfg.Storage.LedgerPath == "" {
		cfg.Storage.LedgerPath = "trade_history.json"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "alphatrace.db"
	}
	if cfg.Providers.DexScreenerURL == "" {
		cfg.Providers.DexScreenerURL = "https://api.dexscreener.com"
	}
	if cfg.Providers.RugCheckURL == "" {
		cfg.Providers.RugCheckURL = "https://api.rugcheck.xyz"
	}
	if cfg.Stream.ReconnectDelayMs == 0 {
		cfg.Stream.ReconnectDelayMs = 1000
	}
	if cfg.Stream.RetentionHours == 0 {
		cfg.Stream.RetentionHours = 24
	}
	if cfg.Engine.CycleSchedule == "" {
		cfg.Engine.CycleSchedule = "@every 5m"
	}
	if cfg.Engine.MinSmartScore == 0 {
		cfg.Engine.MinSmartScore = 0.8
	}
	if cfg.Engine.SignalConfidenceGate == 0 {
		cfg.Engine.SignalConfidenceGate = 0.85
	}
	if cfg.Engine.CombinedConfidenceGate == 0 {
		cfg.Engine.CombinedConfidenceGate = 0.75
	}
	if cfg.Engine.SummaryEveryCycles == 0 {
		cfg.Engine.SummaryEveryCycles = 10
	}
	if cfg.Portfolio.StartingCapitalUSD == 0 {
		cfg.Portfolio.StartingCapitalUSD = 1000
	}
	if cfg.Portfolio.PositionSizeUSD == 0 {
		cfg.Portfolio.PositionSizeUSD = 50
	}
	if cfg.Portfolio.StopLossFactor == 0 {
		cfg.Portfolio.StopLossFactor = 0.9
	}
	if cfg.Metrics.PrometheusPort == 0 {
		cfg.Metrics.PrometheusPort = 9090
	}
}
