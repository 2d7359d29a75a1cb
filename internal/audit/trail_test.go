package audit

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphatrace-trading/alphatrace/internal/alpha"
	"github.com/alphatrace-trading/alphatrace/internal/portfolio"
	"github.com/alphatrace-trading/alphatrace/internal/trade"
)

type captureSink struct {
	entries []Entry
}

func (c *captureSink) WriteEntry(_ context.Context, e Entry) error {
	c.entries = append(c.entries, e)
	return nil
}

func TestTrail_RecordAndQuery(t *testing.T) {
	sink := &captureSink{}
	trail := NewTrail(sink, 10)

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	trail.RecordSignal(alpha.UltraSignal{
		Asset:       "TOK",
		Type:        alpha.SignalConvergence,
		Confidence:  0.95,
		TotalVolume: decimal.NewFromInt(100),
		DetectedAt:  now,
	})
	trail.RecordPositionClose(portfolio.ClosedTrade{
		Asset:    "TOK",
		ExitTime: now.Add(time.Hour),
		Reason:   "TAKE_PROFIT",
		PnL:      decimal.NewFromInt(10),
	})
	trail.RecordSecurityCheck("OTHER", false, nil, now)

	assert.Equal(t, 3, trail.Len())
	require.Len(t, sink.entries, 3)

	tok := trail.Query("TOK")
	require.Len(t, tok, 2)
	assert.Equal(t, EventSignal, tok[0].EventType)
	assert.InDelta(t, 0.95, tok[0].Confidence, 1e-9)
	assert.Equal(t, EventPositionClose, tok[1].EventType)
	assert.Equal(t, "TAKE_PROFIT", tok[1].Decision)

	other := trail.Query("OTHER")
	require.Len(t, other, 1)
	assert.Equal(t, "reject", other[0].Decision)
}

func TestTrail_FIFOEviction(t *testing.T) {
	trail := NewTrail(nil, 2)

	// Each asset is distinct so eviction order is observable; A is
	// recorded first and must be the one evicted.
	now := time.Now()
	for i, asset := range []string{"A", "B", "C"} {
		trail.RecordSecurityCheck(trade.Asset(asset), true, nil, now.Add(time.Duration(i)*time.Second))
	}

	assert.Equal(t, 2, trail.Len())
	entries := trail.Entries()
	assert.Equal(t, "B", entries[0].Asset)
	assert.Equal(t, "C", entries[1].Asset)
}

func TestTrail_ZeroBufferOnlyForwards(t *testing.T) {
	sink := &captureSink{}
	trail := NewTrail(sink, 0)

	trail.RecordSecurityCheck("TOK", true, nil, time.Now())

	assert.Equal(t, 0, trail.Len())
	assert.Len(t, sink.entries, 1)
}
