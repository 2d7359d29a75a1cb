package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphatrace-trading/alphatrace/internal/portfolio"
)

func record(symbol string, pnl string) ClosedTradeRecord {
	d, _ := decimal.NewFromString(pnl)
	return ClosedTradeRecord{
		Asset:  symbol,
		Symbol: symbol,
		PnL:    d,
		IsWin:  d.IsPositive(),
	}
}

func TestLoad_MissingFileStartsFresh(t *testing.T) {
	h, err := Load(filepath.Join(t.TempDir(), "none.json"), decimal.NewFromInt(500))
	require.NoError(t, err)

	assert.Empty(t, h.ClosedTrades)
	assert.True(t, h.SessionStats.StartingValue.Equal(decimal.NewFromInt(500)))
	assert.True(t, h.SessionStats.PortfolioValue.Equal(decimal.NewFromInt(500)))
}

func TestLoad_CorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(path, decimal.NewFromInt(10))
	assert.Error(t, err)
}

func TestSaveLoad_DecimalsSurviveExactly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")

	h := New(decimal.NewFromInt(1000))
	entry, _ := decimal.NewFromString("0.000001234567891")
	exit, _ := decimal.NewFromString("0.000002469135782")
	pnl, _ := decimal.NewFromString("12.345678901234567")
	h.ClosedTrades = append(h.ClosedTrades, ClosedTradeRecord{
		Asset:      "mint-1",
		Symbol:     "TOK",
		EntryTime:  time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		ExitTime:   time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC),
		EntryPrice: entry,
		ExitPrice:  exit,
		PnL:        pnl,
		PnLPct:     100,
		IsWin:      true,
	})

	require.NoError(t, h.Save(path))

	loaded, err := Load(path, decimal.Zero)
	require.NoError(t, err)
	require.Len(t, loaded.ClosedTrades, 1)

	got := loaded.ClosedTrades[0]
	assert.Equal(t, entry.String(), got.EntryPrice.String())
	assert.Equal(t, exit.String(), got.ExitPrice.String())
	assert.Equal(t, pnl.String(), got.PnL.String())
}

func TestSave_DecimalsAsJSONStrings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")

	h := New(decimal.NewFromInt(10))
	h.ClosedTrades = append(h.ClosedTrades, record("TOK", "1.5"))
	require.NoError(t, h.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	trades := raw["closed_trades"].([]any)
	first := trades[0].(map[string]any)
	// Exactness depends on the string encoding; a float here would be a bug.
	assert.Equal(t, "1.5", first["pnl"])
}

func TestAddClosedTradeAndStats(t *testing.T) {
	h := New(decimal.NewFromInt(100))
	before := h.LastUpdated

	h.AddClosedTrade(portfolio.ClosedTrade{
		Asset:  "TOK",
		Symbol: "TOK",
		PnL:    decimal.NewFromInt(5),
		IsWin:  true,
	})

	require.Len(t, h.ClosedTrades, 1)
	assert.False(t, h.LastUpdated.Before(before))

	h.UpdateStats(portfolio.SessionStats{
		TotalTrades: 1, Wins: 1, WinRate: 100,
		TotalPnL:       decimal.NewFromInt(5),
		PortfolioValue: decimal.NewFromInt(105),
		StartingValue:  decimal.NewFromInt(100),
	})
	assert.Equal(t, 1, h.SessionStats.TotalTrades)
	assert.True(t, h.SessionStats.PortfolioValue.Equal(decimal.NewFromInt(105)))
}

func TestAggregates(t *testing.T) {
	h := New(decimal.NewFromInt(10))
	h.ClosedTrades = []ClosedTradeRecord{
		record("A", "10"),
		record("B", "-4"),
		record("C", "2"),
	}

	assert.Equal(t, 3, h.TotalTrades())
	// 2 wins of 3
	assert.InDelta(t, 66.666, h.WinRate(), 0.01)
	assert.True(t, h.TotalPnL().Equal(decimal.NewFromInt(8)))

	best := h.BestTrades(2)
	require.Len(t, best, 2)
	assert.Equal(t, "A", best[0].Symbol)
	assert.Equal(t, "C", best[1].Symbol)

	worst := h.WorstTrades(1)
	require.Len(t, worst, 1)
	assert.Equal(t, "B", worst[0].Symbol)
}
