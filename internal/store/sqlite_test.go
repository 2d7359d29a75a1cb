package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphatrace-trading/alphatrace/internal/alpha"
	"github.com/alphatrace-trading/alphatrace/internal/wallets"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_SaveAndLoadAnalyses(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.SaveAnalysis(ctx, wallets.Analysis{
			Wallet:          "w1",
			SmartMoneyScore: 0.8 + float64(i)*0.05,
			RiskScore:       0.1,
			IsInsider:       i == 2,
			Metrics: wallets.Metrics{
				TotalTrades: 10 + i,
				WinRate:     75,
				TotalPnL:    decimal.NewFromInt(int64(100 * i)),
			},
			AnalyzedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}
	// Another wallet must not show up in w1's history.
	require.NoError(t, s.SaveAnalysis(ctx, wallets.Analysis{
		Wallet:     "w2",
		AnalyzedAt: base,
		Metrics:    wallets.Metrics{TotalPnL: decimal.Zero},
	}))

	rows, err := s.AnalysisHistory(ctx, "w1", 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// Newest first.
	assert.Equal(t, 12, rows[0].TotalTrades)
	assert.True(t, rows[0].IsInsider)
	assert.Equal(t, "200", rows[0].TotalPnL)
	assert.Equal(t, 10, rows[2].TotalTrades)

	limited, err := s.AnalysisHistory(ctx, "w1", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStore_SaveAndLoadSignals(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveSignal(ctx, alpha.UltraSignal{
		Asset:       "AAA",
		Type:        alpha.SignalConvergence,
		Confidence:  0.95,
		WalletCount: 3,
		TotalVolume: decimal.NewFromInt(600),
		DetectedAt:  base,
	}))
	require.NoError(t, s.SaveSignal(ctx, alpha.UltraSignal{
		Asset:       "BBB",
		Type:        alpha.SignalConvergence,
		Confidence:  0.85,
		WalletCount: 1,
		TotalVolume: decimal.NewFromInt(50),
		DetectedAt:  base.Add(time.Minute),
	}))

	rows, err := s.RecentSignals(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "BBB", string(rows[0].Asset))
	assert.Equal(t, "AAA", string(rows[1].Asset))
	assert.Equal(t, "600", rows[1].TotalVolume)
	assert.InDelta(t, 0.95, rows[1].Confidence, 1e-9)
}

func TestStore_EmptyHistory(t *testing.T) {
	s := openTestStore(t)

	rows, err := s.AnalysisHistory(context.Background(), "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
