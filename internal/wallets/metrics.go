// Package wallets derives per-wallet performance metrics, scores and
// behavioural flags from reconstructed positions.
package wallets

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alphatrace-trading/alphatrace/internal/trade"
)

// Metrics summarises a wallet's trading record.
type Metrics struct {
	Wallet              trade.Wallet    `json:"wallet"`
	TotalTrades         int             `json:"total_trades"`
	WinningTrades       int             `json:"winning_trades"`
	LosingTrades        int             `json:"losing_trades"`
	WinRate             float64         `json:"win_rate"`
	TotalPnL            decimal.Decimal `json:"total_pnl"`
	AvgHoldTimeSeconds  float64         `json:"avg_hold_time_seconds"`
	AvgProfitPerTrade   decimal.Decimal `json:"avg_profit_per_trade"`
	LargestWin          decimal.Decimal `json:"largest_win"`
	LargestLoss         decimal.Decimal `json:"largest_loss"`
	SharpeRatio         *float64        `json:"sharpe_ratio,omitempty"`
	MaxDrawdown         float64         `json:"max_drawdown"`
	TradesLast24h       int             `json:"trades_last_24h"`
	TradesLast7d        int             `json:"trades_last_7d"`
	VolumeLast24h       decimal.Decimal `json:"volume_last_24h"`
	VolumeLast7d        decimal.Decimal `json:"volume_last_7d"`
}

// ComputeMetrics builds Metrics for one wallet from its raw events and
// reconstructed positions. The caller supplies now so that a whole
// analysis cycle shares one clock reading. Win rate, PnL and drawdown
// come from closed positions; the 24h/7d activity windows count every
// event, buys and sells alike, by event timestamp.
func ComputeMetrics(wallet trade.Wallet, events []trade.Event, positions []trade.Position, now time.Time) Metrics {
	m := Metrics{
		Wallet:            wallet,
		TotalPnL:          decimal.Zero,
		AvgProfitPerTrade: decimal.Zero,
		LargestWin:        decimal.Zero,
		LargestLoss:       decimal.Zero,
		VolumeLast24h:     decimal.Zero,
		VolumeLast7d:      decimal.Zero,
	}

	cutoff24h := now.Add(-24 * time.Hour)
	cutoff7d := now.Add(-7 * 24 * time.Hour)

	for i := range events {
		ev := &events[i]
		if ev.Wallet != wallet {
			continue
		}
		if ev.Timestamp.After(cutoff24h) {
			m.TradesLast24h++
			m.VolumeLast24h = m.VolumeLast24h.Add(ev.AmountIn)
		}
		if ev.Timestamp.After(cutoff7d) {
			m.TradesLast7d++
			m.VolumeLast7d = m.VolumeLast7d.Add(ev.AmountIn)
		}
	}

	var (
		holdSum   float64
		holdCount int
		pnls      []float64
	)

	for i := range positions {
		pos := &positions[i]
		if pos.Wallet != wallet {
			continue
		}
		if pos.Status != trade.StatusClosed || pos.PnL == nil {
			continue
		}
		m.TotalTrades++

		pnl := *pos.PnL
		m.TotalPnL = m.TotalPnL.Add(pnl)
		pnls = append(pnls, pnl.InexactFloat64())

		switch {
		case pnl.IsPositive():
			m.WinningTrades++
			if pnl.GreaterThan(m.LargestWin) {
				m.LargestWin = pnl
			}
		case pnl.IsNegative():
			m.LosingTrades++
			if pnl.LessThan(m.LargestLoss) {
				m.LargestLoss = pnl
			}
		}

		if pos.HoldSeconds != nil {
			holdSum += *pos.HoldSeconds
			holdCount++
		}
	}

	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100
		m.AvgProfitPerTrade = m.TotalPnL.Div(decimal.NewFromInt(int64(m.TotalTrades)))
	}
	if holdCount > 0 {
		m.AvgHoldTimeSeconds = holdSum / float64(holdCount)
	}
	m.SharpeRatio = sharpe(pnls)
	m.MaxDrawdown = maxDrawdown(pnls)

	return m
}

// sharpe returns mean/stddev over per-trade PnL using the population
// standard deviation. Nil when there are no closed trades, zero when
// every trade had the same result.
func sharpe(pnls []float64) *float64 {
	if len(pnls) == 0 {
		return nil
	}
	var sum float64
	for _, p := range pnls {
		sum += p
	}
	mean := sum / float64(len(pnls))

	var variance float64
	for _, p := range pnls {
		d := p - mean
		variance += d * d
	}
	variance /= float64(len(pnls))

	std := math.Sqrt(variance)
	ratio := 0.0
	if std > 0 {
		ratio = mean / std
	}
	return &ratio
}

// maxDrawdown walks the cumulative PnL curve and returns the largest
// peak-to-trough decline as a percentage of the peak. Only positive
// peaks are considered, matching the running-equity interpretation.
func maxDrawdown(pnls []float64) float64 {
	var cum, peak, maxDD float64
	for _, p := range pnls {
		cum += p
		if cum > peak {
			peak = cum
		}
		if peak > 0 {
			dd := (peak - cum) / peak * 100
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}
