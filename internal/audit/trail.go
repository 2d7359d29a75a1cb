package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/alphatrace-trading/alphatrace/internal/alpha"
	"github.com/alphatrace-trading/alphatrace/internal/chart"
	"github.com/alphatrace-trading/alphatrace/internal/portfolio"
	"github.com/alphatrace-trading/alphatrace/internal/trade"
)

const (
	// Entry event types.
	EventSignal        = "signal"
	EventChartAnalysis = "chart_analysis"
	EventSecurityCheck = "security_check"
	EventPositionOpen  = "position_open"
	EventPositionClose = "position_close"
)

// Entry is a single audit record. Every trading decision gets one,
// creating a log for replay and debugging.
type Entry struct {
	EventType  string    `json:"event_type"`
	Timestamp  time.Time `json:"ts"`
	Asset      string    `json:"asset,omitempty"`
	Decision   string    `json:"decision,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	Payload    string    `json:"payload"` // JSON of the full event
}

// Sink receives every recorded entry, typically backed by a database.
type Sink interface {
	WriteEntry(ctx context.Context, e Entry) error
}

// Trail records the decision chain of each trading cycle. It keeps an
// in-memory buffer (capped at maxBuf, FIFO eviction) for querying and
// forwards every entry to the sink when one is set.
type Trail struct {
	mu      sync.Mutex
	sink    Sink
	entries []Entry
	maxBuf  int
}

// NewTrail creates a trail. maxBuf caps the in-memory buffer; zero
// means entries are only forwarded to the sink.
func NewTrail(sink Sink, maxBuf int) *Trail {
	if maxBuf < 0 {
		maxBuf = 0
	}
	return &Trail{
		sink:    sink,
		entries: make([]Entry, 0, maxBuf),
		maxBuf:  maxBuf,
	}
}

// RecordSignal logs an emitted convergence signal.
func (t *Trail) RecordSignal(sig alpha.UltraSignal) {
	t.record(Entry{
		EventType:  EventSignal,
		Timestamp:  sig.DetectedAt,
		Asset:      string(sig.Asset),
		Decision:   string(sig.Type),
		Confidence: sig.Confidence,
		Payload:    mustMarshal(sig),
	})
}

// RecordChartAnalysis logs the chart verdict for an asset.
func (t *Trail) RecordChartAnalysis(asset trade.Asset, sig chart.Signal, at time.Time) {
	t.record(Entry{
		EventType:  EventChartAnalysis,
		Timestamp:  at,
		Asset:      string(asset),
		Decision:   string(sig.Action),
		Confidence: sig.Confidence,
		Payload:    mustMarshal(sig),
	})
}

// RecordSecurityCheck logs a screening decision for an asset.
func (t *Trail) RecordSecurityCheck(asset trade.Asset, passed bool, payload any, at time.Time) {
	decision := "reject"
	if passed {
		decision = "allow"
	}
	t.record(Entry{
		EventType: EventSecurityCheck,
		Timestamp: at,
		Asset:     string(asset),
		Decision:  decision,
		Payload:   mustMarshal(payload),
	})
}

// RecordPositionOpen logs a new position.
func (t *Trail) RecordPositionOpen(pos portfolio.OpenPosition) {
	t.record(Entry{
		EventType: EventPositionOpen,
		Timestamp: pos.EntryTime,
		Asset:     string(pos.Asset),
		Payload:   mustMarshal(pos),
	})
}

// RecordPositionClose logs a realised trade with its exit reason.
func (t *Trail) RecordPositionClose(tr portfolio.ClosedTrade) {
	t.record(Entry{
		EventType: EventPositionClose,
		Timestamp: tr.ExitTime,
		Asset:     string(tr.Asset),
		Decision:  tr.Reason,
		Payload:   mustMarshal(tr),
	})
}

// Query returns buffered entries for a given asset.
func (t *Trail) Query(asset trade.Asset) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	var result []Entry
	for _, e := range t.entries {
		if e.Asset == string(asset) {
			result = append(result, e)
		}
	}
	return result
}

// Entries returns a copy of the buffer.
func (t *Trail) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	result := make([]Entry, len(t.entries))
	copy(result, t.entries)
	return result
}

// Len returns the number of buffered entries.
func (t *Trail) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *Trail) record(entry Entry) {
	t.mu.Lock()

	if t.maxBuf > 0 {
		if len(t.entries) >= t.maxBuf {
			// Shift left: discard oldest entry.
			copy(t.entries, t.entries[1:])
			t.entries[len(t.entries)-1] = entry
		} else {
			t.entries = append(t.entries, entry)
		}
	}

	t.mu.Unlock()

	// Forward to the sink outside the lock.
	if t.sink != nil {
		if err := t.sink.WriteEntry(context.Background(), entry); err != nil {
			log.Error().Err(err).
				Str("event_type", entry.EventType).
				Str("asset", entry.Asset).
				Msg("Failed to persist audit entry")
		}
	}
}

// mustMarshal marshals v to JSON, returning "{}" on error.
func mustMarshal(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal audit payload")
		return "{}"
	}
	return string(data)
}
