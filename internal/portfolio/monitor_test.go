package portfolio

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphatrace-trading/alphatrace/internal/trade"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func pos(asset string, entry, amount float64) OpenPosition {
	e := decimal.NewFromFloat(entry)
	return OpenPosition{
		Asset:      trade.Asset(asset),
		Symbol:     asset,
		EntryTime:  now.Add(-time.Hour),
		EntryPrice: e,
		Amount:     decimal.NewFromFloat(amount),
		StopLoss:   e.Mul(decimal.NewFromFloat(0.85)),
		TakeProfit: e.Mul(decimal.NewFromFloat(1.5)),
	}
}

func TestMonitor_OpenRefusesDuplicate(t *testing.T) {
	m := NewMonitor(decimal.NewFromInt(1000))

	require.NoError(t, m.Open(pos("TOK", 1.0, 100)))
	err := m.Open(pos("TOK", 2.0, 50))
	assert.Error(t, err)

	// The original position is untouched.
	p, ok := m.Position("TOK")
	require.True(t, ok)
	assert.True(t, p.EntryPrice.Equal(decimal.NewFromFloat(1.0)))
}

func TestMonitor_UpdatePrices(t *testing.T) {
	m := NewMonitor(decimal.NewFromInt(1000))
	require.NoError(t, m.Open(pos("TOK", 2.0, 100)))

	m.UpdatePrices(map[trade.Asset]PriceUpdate{
		"TOK": {Price: decimal.NewFromFloat(3.0), MarketCap: decimal.NewFromInt(500_000)},
	}, now)

	p, ok := m.Position("TOK")
	require.True(t, ok)
	// pnl = (3 - 2) * 100 / 2 = 50
	assert.True(t, p.UnrealizedPnL.Equal(decimal.NewFromInt(50)))
	assert.InDelta(t, 50.0, p.UnrealizedPnLPct, 1e-9)
	assert.Equal(t, int64(60), p.HoldMinutes)
}

func TestMonitor_UpdatePricesSkipsMissingAssets(t *testing.T) {
	m := NewMonitor(decimal.NewFromInt(1000))
	require.NoError(t, m.Open(pos("TOK", 2.0, 100)))

	m.UpdatePrices(map[trade.Asset]PriceUpdate{}, now)

	p, _ := m.Position("TOK")
	assert.True(t, p.CurrentPrice.Equal(decimal.NewFromFloat(2.0)))
	assert.True(t, p.UnrealizedPnL.IsZero())
}

func TestMonitor_CloseBooksStats(t *testing.T) {
	m := NewMonitor(decimal.NewFromInt(1000))
	require.NoError(t, m.Open(pos("WIN", 2.0, 100)))
	require.NoError(t, m.Open(pos("LOSS", 10.0, 100)))

	win := m.Close("WIN", decimal.NewFromFloat(3.0), string(ExitTakeProfit), now)
	require.NotNil(t, win)
	// (3 - 2) * 100 / 2 = 50
	assert.True(t, win.PnL.Equal(decimal.NewFromInt(50)))
	assert.True(t, win.IsWin)

	loss := m.Close("LOSS", decimal.NewFromFloat(8.0), string(ExitStopLoss), now)
	require.NotNil(t, loss)
	// (8 - 10) * 100 / 10 = -20
	assert.True(t, loss.PnL.Equal(decimal.NewFromInt(-20)))
	assert.False(t, loss.IsWin)

	stats := m.Stats()
	assert.Equal(t, 2, stats.TotalTrades)
	assert.Equal(t, 1, stats.Wins)
	assert.Equal(t, 1, stats.Losses)
	assert.InDelta(t, 50.0, stats.WinRate, 1e-9)
	// 50 - 20 = 30
	assert.True(t, stats.TotalPnL.Equal(decimal.NewFromInt(30)))
	assert.True(t, stats.PortfolioValue.Equal(decimal.NewFromInt(1030)))
	assert.True(t, stats.BiggestWin.Equal(decimal.NewFromInt(50)))
	assert.True(t, stats.BiggestLoss.Equal(decimal.NewFromInt(-20)))

	assert.Empty(t, m.OpenAssets())

	last, ok := m.LastClosed()
	require.True(t, ok)
	assert.Equal(t, trade.Asset("LOSS"), last.Asset)
}

func TestMonitor_CloseUnknownAsset(t *testing.T) {
	m := NewMonitor(decimal.NewFromInt(1000))
	assert.Nil(t, m.Close("NOPE", decimal.NewFromInt(1), "", now))
}

func TestMonitor_SnapshotsAreCopies(t *testing.T) {
	m := NewMonitor(decimal.NewFromInt(1000))
	require.NoError(t, m.Open(pos("TOK", 2.0, 100)))

	snap := m.OpenPositions()
	require.Len(t, snap, 1)
	snap[0].EntryPrice = decimal.NewFromInt(999)

	p, _ := m.Position("TOK")
	assert.True(t, p.EntryPrice.Equal(decimal.NewFromFloat(2.0)))
}
