// Package portfolio tracks open paper positions, realised trades and
// running session statistics.
package portfolio

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/alphatrace-trading/alphatrace/internal/trade"
)

// OpenPosition is one live holding.
type OpenPosition struct {
	Asset            trade.Asset     `json:"asset"`
	Symbol           string          `json:"symbol"`
	EntryTime        time.Time       `json:"entry_time"`
	EntryPrice       decimal.Decimal `json:"entry_price"`
	EntryMarketCap   decimal.Decimal `json:"entry_market_cap"`
	Amount           decimal.Decimal `json:"amount"`
	CurrentPrice     decimal.Decimal `json:"current_price"`
	CurrentMarketCap decimal.Decimal `json:"current_market_cap"`
	UnrealizedPnL    decimal.Decimal `json:"unrealized_pnl"`
	UnrealizedPnLPct float64         `json:"unrealized_pnl_pct"`
	StopLoss         decimal.Decimal `json:"stop_loss"`
	TakeProfit       decimal.Decimal `json:"take_profit"`
	HoldMinutes      int64           `json:"hold_minutes"`
}

// ClosedTrade is the realised record of a position after exit.
type ClosedTrade struct {
	Asset       trade.Asset     `json:"asset"`
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

// SessionStats aggregates realised results since the monitor was
// created. There is no day rollover; a restart starts a new session.
type SessionStats struct {
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

// Monitor is safe for concurrent use. All accessors return copies.
type Monitor struct {
	mu        sync.RWMutex
	positions map[trade.Asset]*OpenPosition
	closed    []ClosedTrade
	stats     SessionStats
}

// NewMonitor starts a session with the given paper capital.
func NewMonitor(startingCapital decimal.Decimal) *Monitor {
	return &Monitor{
		positions: make(map[trade.Asset]*OpenPosition),
		stats: SessionStats{
			TotalPnL:       decimal.Zero,
			BiggestWin:     decimal.Zero,
			BiggestLoss:    decimal.Zero,
			StartingValue:  startingCapital,
			PortfolioValue: startingCapital,
		},
	}
}

// Open registers a new position. At most one position per asset may
// be open; a second open for the same asset is refused.
func (m *Monitor) Open(pos OpenPosition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.positions[pos.Asset]; exists {
		return fmt.Errorf("portfolio: position already open for %s", pos.Asset)
	}

	pos.CurrentPrice = pos.EntryPrice
	pos.CurrentMarketCap = pos.EntryMarketCap
	pos.UnrealizedPnL = decimal.Zero
	p := pos
	m.positions[pos.Asset] = &p

	log.Info().
		Str("asset", string(pos.Asset)).
		Str("symbol", pos.Symbol).
		Str("entry", pos.EntryPrice.String()).
		Str("amount", pos.Amount.String()).
		Str("stop_loss", pos.StopLoss.String()).
		Str("take_profit", pos.TakeProfit.String()).
		Msg("position opened")
	return nil
}

// PriceUpdate carries a refreshed price and market cap for one asset.
type PriceUpdate struct {
	Price     decimal.Decimal
	MarketCap decimal.Decimal
}

// UpdatePrices refreshes unrealised PnL on every open position that
// has an entry in updates. Assets missing from the map keep their
// last known price.
func (m *Monitor) UpdatePrices(updates map[trade.Asset]PriceUpdate, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for asset, pos := range m.positions {
		upd, ok := updates[asset]
		if !ok {
			continue
		}
		pos.CurrentPrice = upd.Price
		pos.CurrentMarketCap = upd.MarketCap
		pos.UnrealizedPnL, pos.UnrealizedPnLPct = pnlAgainst(pos.EntryPrice, upd.Price, pos.Amount)
		pos.HoldMinutes = int64(now.Sub(pos.EntryTime).Minutes())
	}
}

// Close removes the position for asset and books the realised trade.
// Returns nil when no position is open for the asset.
func (m *Monitor) Close(asset trade.Asset, exitPrice decimal.Decimal, reason string, now time.Time) *ClosedTrade {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[asset]
	if !ok {
		return nil
	}
	delete(m.positions, asset)

	pnl, pnlPct := pnlAgainst(pos.EntryPrice, exitPrice, pos.Amount)
	tr := ClosedTrade{
		Asset:       asset,
		Symbol:      pos.Symbol,
		EntryTime:   pos.EntryTime,
		ExitTime:    now,
		EntryPrice:  pos.EntryPrice,
		ExitPrice:   exitPrice,
		PnL:         pnl,
		PnLPct:      pnlPct,
		HoldMinutes: int64(now.Sub(pos.EntryTime).Minutes()),
		IsWin:       pnl.IsPositive(),
		Reason:      reason,
	}

	m.stats.TotalTrades++
	if tr.IsWin {
		m.stats.Wins++
		if pnl.GreaterThan(m.stats.BiggestWin) {
			m.stats.BiggestWin = pnl
		}
	} else {
		m.stats.Losses++
		if pnl.LessThan(m.stats.BiggestLoss) {
			m.stats.BiggestLoss = pnl
		}
	}
	m.stats.TotalPnL = m.stats.TotalPnL.Add(pnl)
	m.stats.PortfolioValue = m.stats.PortfolioValue.Add(pnl)
	m.stats.WinRate = float64(m.stats.Wins) / float64(m.stats.TotalTrades) * 100

	m.closed = append(m.closed, tr)

	log.Info().
		Str("asset", string(asset)).
		Str("symbol", tr.Symbol).
		Str("pnl", pnl.String()).
		Float64("pnl_pct", pnlPct).
		Str("reason", reason).
		Bool("win", tr.IsWin).
		Msg("position closed")
	return &tr
}

// Position returns a copy of the open position for asset, if any.
func (m *Monitor) Position(asset trade.Asset) (OpenPosition, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pos, ok := m.positions[asset]
	if !ok {
		return OpenPosition{}, false
	}
	return *pos, true
}

// OpenAssets lists assets with a live position, sorted.
func (m *Monitor) OpenAssets() []trade.Asset {
	m.mu.RLock()
	defer m.mu.RUnlock()

	assets := make([]trade.Asset, 0, len(m.positions))
	for a := range m.positions {
		assets = append(assets, a)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i] < assets[j] })
	return assets
}

// OpenPositions returns copies of every live position, sorted by asset.
func (m *Monitor) OpenPositions() []OpenPosition {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]OpenPosition, 0, len(m.positions))
	for _, pos := range m.positions {
		out = append(out, *pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out
}

// ClosedTrades returns a copy of the realised history, oldest first.
func (m *Monitor) ClosedTrades() []ClosedTrade {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ClosedTrade, len(m.closed))
	copy(out, m.closed)
	return out
}

// LastClosed returns the most recent realised trade, if any.
func (m *Monitor) LastClosed() (ClosedTrade, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.closed) == 0 {
		return ClosedTrade{}, false
	}
	return m.closed[len(m.closed)-1], true
}

// Stats returns a copy of the session statistics.
func (m *Monitor) Stats() SessionStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// pnlAgainst computes realised or unrealised PnL for a position sized
// in quote currency: (price - entry) * amount / entry. Zero entry
// collapses to zero rather than dividing.
func pnlAgainst(entry, price, amount decimal.Decimal) (decimal.Decimal, float64) {
	if entry.IsZero() {
		return decimal.Zero, 0
	}
	diff := price.Sub(entry)
	pnl := diff.Mul(amount).Div(entry)
	pct, _ := diff.Div(entry).Mul(decimal.NewFromInt(100)).Float64()
	return pnl, pct
}
