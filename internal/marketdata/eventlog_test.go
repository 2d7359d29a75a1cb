package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphatrace-trading/alphatrace/internal/trade"
)

var logBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func logEvent(wallet string, minuteOffset int) trade.Event {
	return trade.Event{
		ID:        uuid.New(),
		Wallet:    trade.Wallet(wallet),
		Asset:     "TOK",
		Side:      trade.SideBuy,
		AmountIn:  decimal.NewFromInt(100),
		AmountOut: decimal.NewFromInt(5000),
		Timestamp: logBase.Add(time.Duration(minuteOffset) * time.Minute),
		Venue:     "test-dex",
	}
}

func TestEventLog_RecordAndRead(t *testing.T) {
	l := NewEventLog(time.Hour, 0, func() time.Time { return logBase })

	l.Record(logEvent("w1", -30))
	l.Record(logEvent("w1", -10))
	l.Record(logEvent("w2", -5))

	events, err := l.RecentTrades(context.Background(), "w1")
	require.NoError(t, err)
	assert.Len(t, events, 2)

	events, err = l.RecentTrades(context.Background(), "w2")
	require.NoError(t, err)
	assert.Len(t, events, 1)

	events, err = l.RecentTrades(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEventLog_RetentionFiltersReads(t *testing.T) {
	l := NewEventLog(time.Hour, 0, func() time.Time { return logBase })

	l.Record(logEvent("w1", -90)) // outside the window
	l.Record(logEvent("w1", -30))

	events, err := l.RecentTrades(context.Background(), "w1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, logBase.Add(-30*time.Minute), events[0].Timestamp)

	// The stale event is still buffered until a prune runs.
	assert.Equal(t, 2, l.Len())
	l.Prune()
	assert.Equal(t, 1, l.Len())
}

func TestEventLog_PruneForgetsEmptyWallets(t *testing.T) {
	l := NewEventLog(time.Hour, 0, func() time.Time { return logBase })

	l.Record(logEvent("w1", -120))
	l.Prune()

	assert.Equal(t, 0, l.Len())
}

func TestEventLog_CapEvictsOldest(t *testing.T) {
	l := NewEventLog(24*time.Hour, 3, func() time.Time { return logBase })

	for i := 5; i >= 1; i-- {
		l.Record(logEvent("w1", -i))
	}

	events, err := l.RecentTrades(context.Background(), "w1")
	require.NoError(t, err)
	require.Len(t, events, 3)
	// The three most recently recorded events survive.
	assert.Equal(t, logBase.Add(-3*time.Minute), events[0].Timestamp)
	assert.Equal(t, logBase.Add(-time.Minute), events[2].Timestamp)
}

func TestEventLog_ConsumeDrainsChannel(t *testing.T) {
	l := NewEventLog(time.Hour, 0, func() time.Time { return logBase })

	ch := make(chan trade.Event, 4)
	ch <- logEvent("w1", -1)
	ch <- logEvent("w1", -2)
	close(ch)

	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Consume(context.Background(), ch)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consume did not return after channel close")
	}
	assert.Equal(t, 2, l.Len())
}
