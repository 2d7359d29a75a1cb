package backtest

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphatrace-trading/alphatrace/internal/ledger"
)

func histRecord(symbol string, entry, exit float64, holdMin int64) ledger.ClosedTradeRecord {
	e := decimal.NewFromFloat(entry)
	x := decimal.NewFromFloat(exit)
	pct := 0.0
	if entry != 0 {
		pct = (exit - entry) / entry * 100
	}
	return ledger.ClosedTradeRecord{
		Asset:       symbol,
		Symbol:      symbol,
		EntryTime:   time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		ExitTime:    time.Date(2025, 3, 1, 10, int(holdMin), 0, 0, time.UTC),
		EntryPrice:  e,
		ExitPrice:   x,
		PnL:         x.Sub(e),
		PnLPct:      pct,
		HoldMinutes: holdMin,
		IsWin:       exit > entry,
	}
}

func history(records ...ledger.ClosedTradeRecord) *ledger.TradeHistory {
	h := ledger.New(decimal.NewFromInt(1000))
	h.ClosedTrades = records
	return h
}

func TestRun_EmptyLedger(t *testing.T) {
	b := New(DefaultConfig())

	_, err := b.Run(ledger.New(decimal.NewFromInt(1000)))
	assert.ErrorIs(t, err, ErrEmptyLedger)

	_, err = b.Run(nil)
	assert.ErrorIs(t, err, ErrEmptyLedger)
}

func TestRun_ResizesToConfiguredPositionSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PositionSize = decimal.NewFromInt(100)
	b := New(cfg)

	// +50% and -20% moves on a $100 position: +50 and -20.
	res, err := b.Run(history(
		histRecord("WIN", 1.0, 1.5, 30),
		histRecord("LOSS", 1.0, 0.8, 60),
	))
	require.NoError(t, err)

	assert.Equal(t, 2, res.TotalTrades)
	assert.Equal(t, 1, res.WinningTrades)
	assert.Equal(t, 1, res.LosingTrades)
	assert.InDelta(t, 50.0, res.WinRatePct, 1e-9)
	// 1000 + 50 - 20 = 1030
	assert.True(t, res.EndingCapital.Equal(decimal.NewFromInt(1030)))
	assert.True(t, res.TotalPnL.Equal(decimal.NewFromInt(30)))
	assert.InDelta(t, 3.0, res.ROIPct, 1e-9)
	assert.True(t, res.BiggestWin.Equal(decimal.NewFromInt(50)))
	assert.True(t, res.BiggestLoss.Equal(decimal.NewFromInt(-20)))
	// gross profit 50 / |gross loss 20| = 2.5
	assert.InDelta(t, 2.5, res.ProfitFactor, 1e-9)
	// (30 + 60) / 2
	assert.Equal(t, int64(45), res.AvgHoldMinutes)
}

func TestRun_ProfitFactorZeroWithoutLosses(t *testing.T) {
	b := New(DefaultConfig())

	res, err := b.Run(history(
		histRecord("A", 1.0, 1.2, 10),
		histRecord("B", 1.0, 1.4, 10),
	))
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.ProfitFactor)
}

func TestRun_MaxDrawdown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartingCapital = decimal.NewFromInt(100)
	cfg.PositionSize = decimal.NewFromInt(100)
	b := New(cfg)

	// +100% then -50%: capital 100 -> 200 -> 150.
	// Drawdown from peak 200 to 150 = 25%.
	res, err := b.Run(history(
		histRecord("UP", 1.0, 2.0, 10),
		histRecord("DOWN", 1.0, 0.5, 10),
	))
	require.NoError(t, err)
	assert.InDelta(t, 25.0, res.MaxDrawdownPct, 1e-9)
}

func TestRun_SharpeSingleTradeIsZero(t *testing.T) {
	b := New(DefaultConfig())

	res, err := b.Run(history(histRecord("A", 1.0, 1.5, 10)))
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.SharpeRatio)
}

func TestStrategyRating(t *testing.T) {
	r := &Results{
		WinRatePct:     70,
		ROIPct:         25,
		ProfitFactor:   2.0,
		SharpeRatio:    1.5,
		MaxDrawdownPct: 10,
	}
	assert.Equal(t, 5, r.StrategyRating())
	assert.Equal(t, "EXCELLENT", r.RatingLabel())

	r.MaxDrawdownPct = 50
	r.SharpeRatio = 0.2
	assert.Equal(t, 3, r.StrategyRating())
	assert.Equal(t, "AVERAGE", r.RatingLabel())
}

func TestWriteReport(t *testing.T) {
	b := New(DefaultConfig())
	res, err := b.Run(history(histRecord("TOK", 1.0, 1.5, 30)))
	require.NoError(t, err)

	var buf bytes.Buffer
	res.WriteReport(&buf)

	out := buf.String()
	assert.Contains(t, out, "BACKTEST RESULTS")
	assert.Contains(t, out, "TOK")
	assert.Contains(t, out, "STRATEGY RATING")
}
