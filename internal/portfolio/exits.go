package portfolio

import (
	"github.com/shopspring/decimal"

	"github.com/alphatrace-trading/alphatrace/internal/chart"
)

// ExitReason explains why a position should close.
type ExitReason string

const (
	ExitStopLoss     ExitReason = "STOP_LOSS"
	ExitTakeProfit   ExitReason = "TAKE_PROFIT"
	ExitStrongSell   ExitReason = "STRONG_SELL"
	ExitChartSell    ExitReason = "CHART_SELL"
	ExitTime         ExitReason = "TIME_EXIT"
	ExitTrailingStop ExitReason = "TRAILING_STOP"
)

var trailingStopFactor = decimal.NewFromFloat(0.85)

// ExitEngine decides when open positions should be closed.
type ExitEngine struct{}

// Evaluate checks the exit rules in priority order against the
// position's current state and the latest chart read. The hard
// stop-loss always wins over every other condition. Returns the
// matched reason, or false when the position should stay open.
func (ExitEngine) Evaluate(pos *OpenPosition, sig chart.Signal, currentPrice decimal.Decimal) (ExitReason, bool) {
	// 1. Hard stop.
	if currentPrice.LessThanOrEqual(pos.StopLoss) {
		return ExitStopLoss, true
	}

	// 2. Target reached.
	if currentPrice.GreaterThanOrEqual(pos.TakeProfit) {
		return ExitTakeProfit, true
	}

	// 3. Chart turned bearish. A plain sell only triggers once the
	// position is already up more than 15%.
	switch sig.Action {
	case chart.ActionStrongSell:
		return ExitStrongSell, true
	case chart.ActionSell:
		if pos.UnrealizedPnLPct > 15 {
			return ExitChartSell, true
		}
	}

	// 4. Stale position going nowhere.
	if pos.HoldMinutes/60 > 24 && pos.UnrealizedPnLPct < 5 {
		return ExitTime, true
	}

	// 5. Big unrealised gain giving back toward the target.
	if pos.UnrealizedPnLPct > 30 &&
		currentPrice.LessThanOrEqual(pos.TakeProfit.Mul(trailingStopFactor)) {
		return ExitTrailingStop, true
	}

	return "", false
}
