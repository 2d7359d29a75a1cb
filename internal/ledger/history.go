// Package ledger persists the realised trade history as JSON on disk.
// Monetary fields survive the round trip as exact decimal strings.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/alphatrace-trading/alphatrace/internal/portfolio"
)

// TradeHistory is the on-disk ledger.
type TradeHistory struct {
	ClosedTrades []ClosedTradeRecord `json:"closed_trades"`
	SessionStats SessionStatsRecord  `json:"session_stats"`
	LastUpdated  time.Time           `json:"last_updated"`
}

// ClosedTradeRecord mirrors portfolio.ClosedTrade with decimal fields
// held as decimal.Decimal, which marshal to exact strings.
type ClosedTradeRecord struct {
	Asset       string          `json:"asset"`
	Symbol      string          `json:"symbol"`
	EntryTime   time.Time       `json:"entry_time"`
	ExitTime    time.Time       `json:"exit_time"`
	EntryPrice  decimal.Decimal `json:"entry_price"`
	ExitPrice   decimal.Decimal `json:"exit_price"`
	PnL         decimal.Decimal `json:"pnl"`
	PnLPct      float64         `json:"pnl_pct"`
	HoldMinutes int64           `json:"hold_minutes"`
	IsWin       bool            `json:"is_win"`
	Reason      string          `json:"reason,omitempty"`
}

// SessionStatsRecord is the persisted form of portfolio.SessionStats.
type SessionStatsRecord struct {
	TotalTrades    int             `json:"total_trades"`
	Wins           int             `json:"wins"`
	Losses         int             `json:"losses"`
	WinRate        float64         `json:"win_rate"`
	TotalPnL       decimal.Decimal `json:"total_pnl"`
	BiggestWin     decimal.Decimal `json:"biggest_win"`
	BiggestLoss    decimal.Decimal `json:"biggest_loss"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
	StartingValue  decimal.Decimal `json:"starting_value"`
}

// New returns an empty history seeded with the starting capital.
func New(startingValue decimal.Decimal) *TradeHistory {
	return &TradeHistory{
		SessionStats: SessionStatsRecord{
			TotalPnL:       decimal.Zero,
			BiggestWin:     decimal.Zero,
			BiggestLoss:    decimal.Zero,
			PortfolioValue: startingValue,
			StartingValue:  startingValue,
		},
		LastUpdated: time.Now().UTC(),
	}
}

// Load reads the ledger from path. A missing file is not an error:
// trading starts with a fresh history. A present but unreadable or
// malformed file is an error so a corrupt ledger is never silently
// overwritten.
func Load(path string, startingValue decimal.Decimal) (*TradeHistory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn().Str("path", path).Msg("trade history not found, starting fresh")
			return New(startingValue), nil
		}
		return nil, fmt.Errorf("ledger: read %s: %w", path, err)
	}

	var h TradeHistory
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("ledger: parse %s: %w", path, err)
	}

	log.Info().Str("path", path).Int("trades", len(h.ClosedTrades)).Msg("trade history loaded")
	return &h, nil
}

// Save writes the ledger atomically: to a temp file in the target
// directory, then renamed over the destination.
func (h *TradeHistory) Save(path string) error {
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("ledger: marshal: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ledger: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("ledger: create temp: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("ledger: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("ledger: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("ledger: rename: %w", err)
	}

	log.Debug().Str("path", path).Int("trades", len(h.ClosedTrades)).Msg("trade history saved")
	return nil
}

// AddClosedTrade appends a realised trade and bumps last_updated.
func (h *TradeHistory) AddClosedTrade(tr portfolio.ClosedTrade) {
	h.ClosedTrades = append(h.ClosedTrades, ClosedTradeRecord{
		Asset:       string(tr.Asset),
		Symbol:      tr.Symbol,
		EntryTime:   tr.EntryTime,
		ExitTime:    tr.ExitTime,
		EntryPrice:  tr.EntryPrice,
		ExitPrice:   tr.ExitPrice,
		PnL:         tr.PnL,
		PnLPct:      tr.PnLPct,
		HoldMinutes: tr.HoldMinutes,
		IsWin:       tr.IsWin,
		Reason:      tr.Reason,
	})
	h.LastUpdated = time.Now().UTC()
}

// UpdateStats replaces the persisted session snapshot.
func (h *TradeHistory) UpdateStats(s portfolio.SessionStats) {
	h.SessionStats = SessionStatsRecord{
		TotalTrades:    s.TotalTrades,
		Wins:           s.Wins,
		Losses:         s.Losses,
		WinRate:        s.WinRate,
		TotalPnL:       s.TotalPnL,
		BiggestWin:     s.BiggestWin,
		BiggestLoss:    s.BiggestLoss,
		PortfolioValue: s.PortfolioValue,
		StartingValue:  s.StartingValue,
	}
	h.LastUpdated = time.Now().UTC()
}

// TotalTrades returns the number of recorded trades.
func (h *TradeHistory) TotalTrades() int { return len(h.ClosedTrades) }

// WinRate computes the win percentage over recorded trades.
func (h *TradeHistory) WinRate() float64 {
	if len(h.ClosedTrades) == 0 {
		return 0
	}
	wins := 0
	for i := range h.ClosedTrades {
		if h.ClosedTrades[i].IsWin {
			wins++
		}
	}
	return float64(wins) / float64(len(h.ClosedTrades)) * 100
}

// TotalPnL sums recorded PnL exactly.
func (h *TradeHistory) TotalPnL() decimal.Decimal {
	total := decimal.Zero
	for i := range h.ClosedTrades {
		total = total.Add(h.ClosedTrades[i].PnL)
	}
	return total
}

// BestTrades returns up to limit trades by descending PnL.
func (h *TradeHistory) BestTrades(limit int) []ClosedTradeRecord {
	return h.sortedByPnL(limit, true)
}

// WorstTrades returns up to limit trades by ascending PnL.
func (h *TradeHistory) WorstTrades(limit int) []ClosedTradeRecord {
	return h.sortedByPnL(limit, false)
}

func (h *TradeHistory) sortedByPnL(limit int, desc bool) []ClosedTradeRecord {
	out := make([]ClosedTradeRecord, len(h.ClosedTrades))
	copy(out, h.ClosedTrades)
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return out[i].PnL.GreaterThan(out[j].PnL)
		}
		return out[i].PnL.LessThan(out[j].PnL)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
