package wallets

import (
	"math"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Scoring thresholds
// ---------------------------------------------------------------------------

var (
	insiderAvgProfitFloor = decimal.NewFromInt(1000)
	whaleVolumeFloor      = decimal.NewFromInt(100_000)
)

// SmartMoneyScore rates a wallet's edge in [0, 1]. Weights: win rate
// 40%, profitability 20%, risk-adjusted consistency 20%, drawdown
// discipline 10%, recent activity 10%.
func SmartMoneyScore(m Metrics) float64 {
	score := m.WinRate / 100 * 0.4

	if m.TotalPnL.IsPositive() {
		score += 0.2
	}
	if m.SharpeRatio != nil {
		s := math.Abs(*m.SharpeRatio)
		if s > 2 {
			s = 2
		}
		score += 0.2 * s / 2
	}
	if m.MaxDrawdown < 20 {
		score += 0.1
	}
	if m.TradesLast7d >= 5 {
		score += 0.1
	}

	return clamp01(score)
}

// RiskScore rates how dangerous copying a wallet would be, in [0, 1].
func RiskScore(m Metrics) float64 {
	var score float64

	switch {
	case m.MaxDrawdown > 50:
		score += 0.3
	case m.MaxDrawdown > 30:
		score += 0.2
	}
	if m.WinRate < 40 {
		score += 0.3
	}
	if m.TotalPnL.IsNegative() {
		score += 0.2
	}
	if m.TradesLast24h > 50 {
		score += 0.2
	}

	return clamp01(score)
}

// clamp01 pins a score to [0, 1] so pathological metric inputs, like a
// negative win rate from corrupt upstream data, cannot escape the range.
func clamp01(score float64) float64 {
	return math.Min(math.Max(score, 0), 1)
}

// DetectInsider flags wallets whose record is too good to be organic:
// a sustained win rate above 80% over at least ten trades, or an
// average profit per trade above $1000.
func DetectInsider(m Metrics) bool {
	if m.WinRate > 80 && m.TotalTrades >= 10 {
		return true
	}
	return m.AvgProfitPerTrade.GreaterThan(insiderAvgProfitFloor)
}

// DetectWhale flags wallets moving serious size over the last week.
func DetectWhale(m Metrics) bool {
	return m.VolumeLast7d.GreaterThan(whaleVolumeFloor)
}
