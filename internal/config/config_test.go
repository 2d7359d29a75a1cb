package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	yaml := `
general:
  instance_id: "test-node"
  environment: "development"
  dry_run: true
  log_level: "debug"

watchlist:
  path: "wallets.txt"

storage:
  ledger_path: "history/trades.json"
  database_path: "data/test.db"

stream:
  endpoint: "wss://stream.example.com/swaps"
  reconnect_delay_ms: 500

engine:
  cycle_schedule: "@every 1m"
  min_smart_score: 0.9

portfolio:
  starting_capital_usd: 500
  position_size_usd: 25
`
	tmpFile, err := os.CreateTemp("", "alphatrace-config-*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	_, err = tmpFile.WriteString(yaml)
	require.NoError(t, err)
	tmpFile.Close()

	cfg, err := Load(tmpFile.Name())
	require.NoError(t, err)

	assert.Equal(t, "test-node", cfg.General.InstanceID)
	assert.Equal(t, "development", cfg.General.Environment)
	assert.True(t, cfg.General.DryRun)
	assert.Equal(t, "wallets.txt", cfg.Watchlist.Path)
	assert.Equal(t, "history/trades.json", cfg.Storage.LedgerPath)
	assert.Equal(t, "wss://stream.example.com/swaps", cfg.Stream.Endpoint)
	assert.Equal(t, 500, cfg.Stream.ReconnectDelayMs)
	assert.Equal(t, "@every 1m", cfg.Engine.CycleSchedule)
	assert.Equal(t, 0.9, cfg.Engine.MinSmartScore)
	assert.Equal(t, 500.0, cfg.Portfolio.StartingCapitalUSD)
	assert.Equal(t, 25.0, cfg.Portfolio.PositionSizeUSD)
}

func TestLoadConfigDefaults(t *testing.T) {
	yaml := `
general:
  dry_run: true
`
	tmpFile, err := os.CreateTemp("", "alphatrace-config-*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	_, err = tmpFile.WriteString(yaml)
	require.NoError(t, err)
	tmpFile.Close()

	cfg, err := Load(tmpFile.Name())
	require.NoError(t, err)

	assert.Equal(t, "alphatrace-1", cfg.General.InstanceID)
	assert.Equal(t, "info", cfg.General.LogLevel)
	assert.Equal(t, "tracked_wallets.txt", cfg.Watchlist.Path)
	assert.Equal(t, "trade_history.json", cfg.Storage.LedgerPath)
	assert.Equal(t, "https://api.dexscreener.com", cfg.Providers.DexScreenerURL)
	assert.Equal(t, "@every 5m", cfg.Engine.CycleSchedule)
	assert.Equal(t, 0.8, cfg.Engine.MinSmartScore)
	assert.Equal(t, 0.85, cfg.Engine.SignalConfidenceGate)
	assert.Equal(t, 1000.0, cfg.Portfolio.StartingCapitalUSD)
	assert.Equal(t, 0.9, cfg.Portfolio.StopLossFactor)
}

func TestLoadConfigEnvExpansion(t *testing.T) {
	os.Setenv("TEST_ALPHATRACE_TOKEN", "secret-token")
	defer os.Unsetenv("TEST_ALPHATRACE_TOKEN")

	yaml := `
telegram:
  enabled: true
  bot_token: "${TEST_ALPHATRACE_TOKEN}"
  chat_id: "42"
`
	tmpFile, err := os.CreateTemp("", "alphatrace-config-*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	_, err = tmpFile.WriteString(yaml)
	require.NoError(t, err)
	tmpFile.Close()

	cfg, err := Load(tmpFile.Name())
	require.NoError(t, err)

	assert.True(t, cfg.Telegram.Enabled)
	assert.Equal(t, "secret-token", cfg.Telegram.BotToken)
	assert.Equal(t, "42", cfg.Telegram.ChatID)
}
