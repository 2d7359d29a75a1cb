package wallets

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphatrace-trading/alphatrace/internal/trade"
)

var now = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func closedPos(wallet string, pnl float64, entryAgo time.Duration, amountIn float64, hold float64) trade.Position {
	entryTS := now.Add(-entryAgo)
	exitTS := entryTS.Add(time.Duration(hold) * time.Second)
	p := decimal.NewFromFloat(pnl)
	pct := 0.0
	if amountIn != 0 {
		pct = pnl / amountIn * 100
	}
	return trade.Position{
		ID:     uuid.New(),
		Wallet: trade.Wallet(wallet),
		Asset:  "TOK",
		Entry: trade.Event{
			Wallet:    trade.Wallet(wallet),
			Asset:     "TOK",
			Side:      trade.SideBuy,
			AmountIn:  decimal.NewFromFloat(amountIn),
			Timestamp: entryTS,
		},
		Exit: &trade.Event{
			Side:      trade.SideSell,
			Timestamp: exitTS,
		},
		PnL:         &p,
		PnLPct:      &pct,
		HoldSeconds: &hold,
		Status:      trade.StatusClosed,
	}
}

func openPos(wallet string, entryAgo time.Duration, amountIn float64) trade.Position {
	return trade.Position{
		ID:     uuid.New(),
		Wallet: trade.Wallet(wallet),
		Asset:  "TOK",
		Entry: trade.Event{
			Wallet:    trade.Wallet(wallet),
			Asset:     "TOK",
			Side:      trade.SideBuy,
			AmountIn:  decimal.NewFromFloat(amountIn),
			Timestamp: now.Add(-entryAgo),
		},
		Status: trade.StatusOpen,
	}
}

func event(wallet string, side trade.Side, amountIn float64, ago time.Duration) trade.Event {
	return trade.Event{
		ID:        uuid.New(),
		Wallet:    trade.Wallet(wallet),
		Asset:     "TOK",
		Side:      side,
		AmountIn:  decimal.NewFromFloat(amountIn),
		Timestamp: now.Add(-ago),
	}
}

func TestComputeMetrics_Empty(t *testing.T) {
	m := ComputeMetrics("w1", nil, nil, now)

	assert.Equal(t, 0, m.TotalTrades)
	assert.Equal(t, 0.0, m.WinRate)
	assert.Nil(t, m.SharpeRatio)
	assert.True(t, m.TotalPnL.IsZero())
}

func TestComputeMetrics_WinRateAndPnL(t *testing.T) {
	positions := []trade.Position{
		closedPos("w1", 100, 48*time.Hour, 50, 600),
		closedPos("w1", -40, 36*time.Hour, 50, 1200),
		closedPos("w1", 60, 12*time.Hour, 100, 300),
		// Another wallet's trade must not leak in.
		closedPos("w2", 999, 1*time.Hour, 10, 60),
	}

	m := ComputeMetrics("w1", nil, positions, now)

	assert.Equal(t, 3, m.TotalTrades)
	assert.Equal(t, 2, m.WinningTrades)
	assert.Equal(t, 1, m.LosingTrades)
	// 2 wins of 3 closed = 66.66%
	assert.InDelta(t, 66.6666, m.WinRate, 0.001)
	// 100 - 40 + 60 = 120
	assert.True(t, m.TotalPnL.Equal(decimal.NewFromInt(120)))
	// 120 / 3 = 40
	assert.True(t, m.AvgProfitPerTrade.Equal(decimal.NewFromInt(40)))
	assert.True(t, m.LargestWin.Equal(decimal.NewFromInt(100)))
	assert.True(t, m.LargestLoss.Equal(decimal.NewFromInt(-40)))
	// (600 + 1200 + 300) / 3 = 700
	assert.InDelta(t, 700.0, m.AvgHoldTimeSeconds, 1e-9)
}

func TestComputeMetrics_ZeroPnLNeitherWinNorLoss(t *testing.T) {
	positions := []trade.Position{
		closedPos("w1", 0, time.Hour, 50, 60),
		closedPos("w1", 10, time.Hour, 50, 60),
	}

	m := ComputeMetrics("w1", nil, positions, now)

	assert.Equal(t, 1, m.WinningTrades)
	assert.Equal(t, 0, m.LosingTrades)
	// 1 win of 2 closed = 50%, the flat trade still counts in the denominator.
	assert.InDelta(t, 50.0, m.WinRate, 1e-9)
}

func TestComputeMetrics_ActivityWindows(t *testing.T) {
	events := []trade.Event{
		event("w1", trade.SideBuy, 100, 2*time.Hour),     // inside 24h and 7d
		event("w1", trade.SideSell, 50, 12*time.Hour),    // sells count too
		event("w1", trade.SideBuy, 200, 3*24*time.Hour),  // inside 7d only
		event("w1", trade.SideBuy, 400, 10*24*time.Hour), // outside both
		event("w2", trade.SideBuy, 999, time.Hour),       // other wallet
	}

	m := ComputeMetrics("w1", events, nil, now)

	assert.Equal(t, 2, m.TradesLast24h)
	assert.Equal(t, 3, m.TradesLast7d)
	// 100 + 50
	assert.True(t, m.VolumeLast24h.Equal(decimal.NewFromInt(150)))
	// 100 + 50 + 200
	assert.True(t, m.VolumeLast7d.Equal(decimal.NewFromInt(350)))
}

func TestComputeMetrics_SellLegCountsAsRecentActivity(t *testing.T) {
	// A wallet whose only recent action is exiting an old entry is
	// still active today.
	events := []trade.Event{
		event("w1", trade.SideBuy, 1000, 48*time.Hour),
		event("w1", trade.SideSell, 1000, time.Hour),
	}

	m := ComputeMetrics("w1", events, nil, now)

	assert.Equal(t, 1, m.TradesLast24h)
	assert.True(t, m.VolumeLast24h.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, 2, m.TradesLast7d)
	assert.True(t, m.VolumeLast7d.Equal(decimal.NewFromInt(2000)))
}

func TestComputeMetrics_OpenPositionsExcludedFromTotalTrades(t *testing.T) {
	positions := []trade.Position{
		closedPos("w1", 25, 12*time.Hour, 50, 60),
		openPos("w1", 2*time.Hour, 100),
		openPos("w1", 3*time.Hour, 100),
	}

	m := ComputeMetrics("w1", nil, positions, now)

	assert.Equal(t, 1, m.TotalTrades)
	assert.Equal(t, 1, m.WinningTrades)
}

func TestComputeMetrics_Sharpe(t *testing.T) {
	// PnLs 10, 20, 30: mean 20, population variance ((100+0+100)/3),
	// stddev sqrt(200/3) ~= 8.1649, sharpe ~= 2.4495.
	positions := []trade.Position{
		closedPos("w1", 10, time.Hour, 10, 60),
		closedPos("w1", 20, time.Hour, 10, 60),
		closedPos("w1", 30, time.Hour, 10, 60),
	}

	m := ComputeMetrics("w1", nil, positions, now)

	require.NotNil(t, m.SharpeRatio)
	assert.InDelta(t, 2.4495, *m.SharpeRatio, 0.001)
}

func TestComputeMetrics_SharpeZeroVariance(t *testing.T) {
	positions := []trade.Position{
		closedPos("w1", 10, time.Hour, 10, 60),
		closedPos("w1", 10, time.Hour, 10, 60),
	}

	m := ComputeMetrics("w1", nil, positions, now)

	require.NotNil(t, m.SharpeRatio)
	assert.Equal(t, 0.0, *m.SharpeRatio)
}

func TestComputeMetrics_MaxDrawdown(t *testing.T) {
	// Curve: +100 (peak 100), -60 (cum 40, dd 60%), +10 (cum 50, dd 50%).
	positions := []trade.Position{
		closedPos("w1", 100, 3*time.Hour, 10, 60),
		closedPos("w1", -60, 2*time.Hour, 10, 60),
		closedPos("w1", 10, 1*time.Hour, 10, 60),
	}

	m := ComputeMetrics("w1", nil, positions, now)

	assert.InDelta(t, 60.0, m.MaxDrawdown, 1e-9)
}
