package marketdata

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/alphatrace-trading/alphatrace/internal/trade"
)

// ---------------------------------------------------------------------------
// EventLog — retains streamed swap events and serves them as a TradeSource
// ---------------------------------------------------------------------------

const (
	defaultRetention      = 24 * time.Hour
	defaultMaxPerWallet   = 2000
	eventLogPruneInterval = 10 * time.Minute
)

// EventLog buffers swap events per wallet so the analysis cycle can
// read a wallet's recent history without a backfill RPC. Events older
// than the retention window are pruned. Safe for concurrent use.
type EventLog struct {
	mu        sync.RWMutex
	events    map[trade.Wallet][]trade.Event
	retention time.Duration
	maxEvents int
	now       func() time.Time
}

// NewEventLog creates an event log with the given retention window and
// per-wallet cap. Zero values select the defaults; now defaults to
// time.Now.
func NewEventLog(retention time.Duration, maxPerWallet int, now func() time.Time) *EventLog {
	if retention <= 0 {
		retention = defaultRetention
	}
	if maxPerWallet <= 0 {
		maxPerWallet = defaultMaxPerWallet
	}
	if now == nil {
		now = time.Now
	}
	return &EventLog{
		events:    make(map[trade.Wallet][]trade.Event),
		retention: retention,
		maxEvents: maxPerWallet,
		now:       now,
	}
}

// Record appends one event to its wallet's buffer, evicting the oldest
// entry when the cap is hit.
func (l *EventLog) Record(ev trade.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	buf := append(l.events[ev.Wallet], ev)
	if len(buf) > l.maxEvents {
		buf = buf[len(buf)-l.maxEvents:]
	}
	l.events[ev.Wallet] = buf
}

// Consume drains the stream channel into the log until the channel
// closes or ctx is cancelled. It prunes expired events periodically.
// Blocks; run it in a goroutine.
func (l *EventLog) Consume(ctx context.Context, events <-chan trade.Event) {
	ticker := time.NewTicker(eventLogPruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				log.Info().Msg("eventlog: stream channel closed")
				return
			}
			l.Record(ev)
		case <-ticker.C:
			l.Prune()
		}
	}
}

// RecentTrades returns a copy of the wallet's events inside the
// retention window, oldest first. Implements TradeSource and never
// fails; an unknown wallet yields an empty slice.
func (l *EventLog) RecentTrades(_ context.Context, wallet trade.Wallet) ([]trade.Event, error) {
	cutoff := l.now().Add(-l.retention)

	l.mu.RLock()
	defer l.mu.RUnlock()

	buf := l.events[wallet]
	out := make([]trade.Event, 0, len(buf))
	for _, ev := range buf {
		if ev.Timestamp.Before(cutoff) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// Prune drops events older than the retention window and forgets
// wallets left with nothing.
func (l *EventLog) Prune() {
	cutoff := l.now().Add(-l.retention)

	l.mu.Lock()
	defer l.mu.Unlock()

	for wallet, buf := range l.events {
		kept := buf[:0]
		for _, ev := range buf {
			if !ev.Timestamp.Before(cutoff) {
				kept = append(kept, ev)
			}
		}
		if len(kept) == 0 {
			delete(l.events, wallet)
			continue
		}
		l.events[wallet] = kept
	}
}

// Len returns the total number of buffered events.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, buf := range l.events {
		n += len(buf)
	}
	return n
}
