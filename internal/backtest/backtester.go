// Package backtest replays the recorded trade ledger under a fixed
// position-sizing policy and scores the strategy.
package backtest

import (
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/alphatrace-trading/alphatrace/internal/ledger"
)

// ErrEmptyLedger is returned when there is no history to replay.
var ErrEmptyLedger = errors.New("backtest: no historical trades to backtest")

// Config sets the simulated account and sizing.
type Config struct {
	StartingCapital decimal.Decimal `yaml:"starting_capital"`
	PositionSize    decimal.Decimal `yaml:"position_size"`
	MaxPositions    int             `yaml:"max_positions"`
	StopLossPct     float64         `yaml:"stop_loss_pct"`
	TakeProfitPct   float64         `yaml:"take_profit_pct"`
}

// DefaultConfig mirrors the live paper-trading defaults.
func DefaultConfig() Config {
	return Config{
		StartingCapital: decimal.NewFromInt(1000),
		PositionSize:    decimal.NewFromInt(50),
		MaxPositions:    5,
		StopLossPct:     15,
		TakeProfitPct:   50,
	}
}

// Trade is one replayed trade.
type Trade struct {
	Symbol      string          `json:"symbol"`
	EntryTime   time.Time       `json:"entry_time"`
	ExitTime    time.Time       `json:"exit_time"`
	EntryPrice  decimal.Decimal `json:"entry_price"`
	ExitPrice   decimal.Decimal `json:"exit_price"`
	PnL         decimal.Decimal `json:"pnl"`
	PnLPct      float64         `json:"pnl_pct"`
	HoldMinutes int64           `json:"hold_minutes"`
	IsWin       bool            `json:"is_win"`
}

// Results holds the aggregate outcome of a replay.
type Results struct {
	StartingCapital decimal.Decimal `json:"starting_capital"`
	EndingCapital   decimal.Decimal `json:"ending_capital"`
	TotalPnL        decimal.Decimal `json:"total_pnl"`
	ROIPct          float64         `json:"roi_pct"`
	TotalTrades     int             `json:"total_trades"`
	WinningTrades   int             `json:"winning_trades"`
	LosingTrades    int             `json:"losing_trades"`
	WinRatePct      float64         `json:"win_rate_pct"`
	AvgWin          decimal.Decimal `json:"avg_win"`
	AvgLoss         decimal.Decimal `json:"avg_loss"`
	BiggestWin      decimal.Decimal `json:"biggest_win"`
	BiggestLoss     decimal.Decimal `json:"biggest_loss"`
	MaxDrawdownPct  float64         `json:"max_drawdown_pct"`
	ProfitFactor    float64         `json:"profit_factor"`
	SharpeRatio     float64         `json:"sharpe_ratio"`
	AvgHoldMinutes  int64           `json:"avg_hold_minutes"`
	Trades          []Trade         `json:"trades"`
}

// Backtester replays a ledger with one sizing config.
type Backtester struct {
	cfg Config
}

func New(cfg Config) *Backtester {
	return &Backtester{cfg: cfg}
}

// Run replays every recorded trade in ledger order, resizing each to
// the configured position size, and aggregates the results.
func (b *Backtester) Run(history *ledger.TradeHistory) (*Results, error) {
	if history == nil || len(history.ClosedTrades) == 0 {
		return nil, ErrEmptyLedger
	}

	log.Info().Int("trades", len(history.ClosedTrades)).Msg("starting backtest")

	capital := b.cfg.StartingCapital
	peak := capital
	var maxDrawdown float64

	trades := make([]Trade, 0, len(history.ClosedTrades))
	returns := make([]float64, 0, len(history.ClosedTrades))

	for i := range history.ClosedTrades {
		tr := b.simulate(&history.ClosedTrades[i])
		capital = capital.Add(tr.PnL)

		if capital.GreaterThan(peak) {
			peak = capital
		} else if peak.IsPositive() {
			dd, _ := peak.Sub(capital).Div(peak).Mul(decimal.NewFromInt(100)).Float64()
			if dd > maxDrawdown {
				maxDrawdown = dd
			}
		}

		returns = append(returns, tr.PnLPct)
		trades = append(trades, tr)
	}

	res := &Results{
		StartingCapital: b.cfg.StartingCapital,
		EndingCapital:   capital,
		TotalPnL:        capital.Sub(b.cfg.StartingCapital),
		TotalTrades:     len(trades),
		MaxDrawdownPct:  maxDrawdown,
		SharpeRatio:     annualizedSharpe(returns),
		AvgWin:          decimal.Zero,
		AvgLoss:         decimal.Zero,
		BiggestWin:      decimal.Zero,
		BiggestLoss:     decimal.Zero,
		Trades:          trades,
	}

	if b.cfg.StartingCapital.IsPositive() {
		res.ROIPct, _ = res.TotalPnL.Div(b.cfg.StartingCapital).Mul(decimal.NewFromInt(100)).Float64()
	}

	grossProfit := decimal.Zero
	grossLoss := decimal.Zero
	var holdSum int64
	for i := range trades {
		tr := &trades[i]
		holdSum += tr.HoldMinutes
		if tr.IsWin {
			res.WinningTrades++
			grossProfit = grossProfit.Add(tr.PnL)
			if tr.PnL.GreaterThan(res.BiggestWin) {
				res.BiggestWin = tr.PnL
			}
		} else {
			res.LosingTrades++
			grossLoss = grossLoss.Add(tr.PnL)
			if tr.PnL.LessThan(res.BiggestLoss) {
				res.BiggestLoss = tr.PnL
			}
		}
	}

	res.WinRatePct = float64(res.WinningTrades) / float64(len(trades)) * 100
	if res.WinningTrades > 0 {
		res.AvgWin = grossProfit.Div(decimal.NewFromInt(int64(res.WinningTrades)))
	}
	if res.LosingTrades > 0 {
		res.AvgLoss = grossLoss.Div(decimal.NewFromInt(int64(res.LosingTrades)))
	}
	if grossLoss.IsNegative() {
		res.ProfitFactor, _ = grossProfit.Div(grossLoss.Abs()).Float64()
	}
	res.AvgHoldMinutes = holdSum / int64(len(trades))

	log.Info().
		Str("ending_capital", res.EndingCapital.String()).
		Float64("roi_pct", res.ROIPct).
		Float64("win_rate", res.WinRatePct).
		Msg("backtest complete")
	return res, nil
}

// simulate resizes one historical trade to the configured position
// size: pnl = ((exit - entry) / entry) * position_size.
func (b *Backtester) simulate(rec *ledger.ClosedTradeRecord) Trade {
	pnl := decimal.Zero
	if rec.EntryPrice.IsPositive() {
		pnl = rec.ExitPrice.Sub(rec.EntryPrice).Div(rec.EntryPrice).Mul(b.cfg.PositionSize)
	}
	return Trade{
		Symbol:      rec.Symbol,
		EntryTime:   rec.EntryTime,
		ExitTime:    rec.ExitTime,
		EntryPrice:  rec.EntryPrice,
		ExitPrice:   rec.ExitPrice,
		PnL:         pnl,
		PnLPct:      rec.PnLPct,
		HoldMinutes: rec.HoldMinutes,
		IsWin:       pnl.IsPositive(),
	}
}

// annualizedSharpe computes mean/sample-stddev over per-trade return
// percentages, annualized by 365. Zero with fewer than two samples.
func annualizedSharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)

	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}
	return (mean * 365) / (std * math.Sqrt(365))
}

// StrategyRating scores the replay 0 to 5: a point each for win rate
// above 60%, ROI above 20%, profit factor above 1.5, sharpe above 1
// and drawdown under 20%.
func (r *Results) StrategyRating() int {
	score := 0
	if r.WinRatePct > 60 {
		score++
	}
	if r.ROIPct > 20 {
		score++
	}
	if r.ProfitFactor > 1.5 {
		score++
	}
	if r.SharpeRatio > 1 {
		score++
	}
	if r.MaxDrawdownPct < 20 {
		score++
	}
	return score
}

// RatingLabel maps the star score to a verdict.
func (r *Results) RatingLabel() string {
	switch r.StrategyRating() {
	case 5:
		return "EXCELLENT"
	case 4:
		return "GOOD"
	case 3:
		return "AVERAGE"
	case 2:
		return "BELOW AVERAGE"
	default:
		return "NEEDS IMPROVEMENT"
	}
}
