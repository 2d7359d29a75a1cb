// Package chart classifies short-horizon price action into trade
// actions using a fixed, ordered rule table over multi-window price
// changes and the volume/liquidity ratio.
package chart

import "github.com/shopspring/decimal"

// TradeAction is the analyzer's verdict.
type TradeAction string

const (
	ActionStrongBuy  TradeAction = "strong_buy"
	ActionBuy        TradeAction = "buy"
	ActionHold       TradeAction = "hold"
	ActionSell       TradeAction = "sell"
	ActionStrongSell TradeAction = "strong_sell"
)

// Snapshot is the market state the analyzer reads. Price changes are
// percentages over the named window.
type Snapshot struct {
	PriceUSD       decimal.Decimal `json:"price_usd"`
	PriceChange5m  float64         `json:"price_change_5m"`
	PriceChange1h  float64         `json:"price_change_1h"`
	PriceChange24h float64         `json:"price_change_24h"`
	Volume24h      decimal.Decimal `json:"volume_24h"`
	LiquidityUSD   decimal.Decimal `json:"liquidity_usd"`
}

// Signal is the classified outcome with suggested levels. Entry is
// zero for sell-side actions where entering makes no sense. RSI is
// carried as context for the audit trail, not as a rule input.
type Signal struct {
	Action         TradeAction     `json:"action"`
	Confidence     float64         `json:"confidence"`
	Reason         string          `json:"reason"`
	RSI            float64         `json:"rsi"`
	SuggestedEntry decimal.Decimal `json:"suggested_entry"`
	SuggestedExit  decimal.Decimal `json:"suggested_exit"`
}

func exitAt(price decimal.Decimal, mult float64) decimal.Decimal {
	return price.Mul(decimal.NewFromFloat(mult))
}

// Analyze classifies a snapshot and annotates the verdict with the
// window-derived RSI estimate.
func Analyze(s Snapshot) Signal {
	sig := classify(s)
	sig.RSI = RSIApprox(s.PriceChange5m, s.PriceChange1h, s.PriceChange24h)
	return sig
}

// classify runs the rule table top to bottom and returns the first
// match. Rule order is part of the contract: an early aggressive
// pattern must win over a later cautious one. Falls through to a
// neutral hold.
func classify(s Snapshot) Signal {
	price := s.PriceUSD
	volume := s.Volume24h
	liquidity := s.LiquidityUSD

	// 1. Strong uptrend across every window, volume above twice liquidity.
	if s.PriceChange5m > 5 && s.PriceChange1h > 10 && s.PriceChange24h > 20 &&
		volume.GreaterThan(liquidity.Mul(decimal.NewFromInt(2))) {
		return Signal{
			Action:         ActionStrongBuy,
			Confidence:     0.85,
			Reason:         "strong uptrend with volume breakout",
			SuggestedEntry: price,
			SuggestedExit:  exitAt(price, 1.5),
		}
	}

	// 2. Shallow pullback inside a daily uptrend.
	if s.PriceChange5m < -2 && s.PriceChange5m > -5 && s.PriceChange24h > 10 {
		return Signal{
			Action:         ActionBuy,
			Confidence:     0.75,
			Reason:         "healthy pullback in uptrend",
			SuggestedEntry: price,
			SuggestedExit:  exitAt(price, 1.3),
		}
	}

	// 3. Flat price with volume at 1.5x liquidity reads as a
	// consolidation about to break.
	if abs(s.PriceChange5m) < 1 && abs(s.PriceChange1h) < 2 &&
		volume.GreaterThan(liquidity.Mul(decimal.NewFromFloat(1.5))) {
		return Signal{
			Action:         ActionBuy,
			Confidence:     0.70,
			Reason:         "consolidation breakout",
			SuggestedEntry: price,
			SuggestedExit:  exitAt(price, 1.25),
		}
	}

	// 4. Early pump: fast short-window move before the daily chart
	// reflects it.
	if s.PriceChange5m > 8 && s.PriceChange1h > 15 && s.PriceChange24h < 30 &&
		volume.GreaterThan(liquidity) {
		return Signal{
			Action:         ActionStrongBuy,
			Confidence:     0.80,
			Reason:         "early pump detected",
			SuggestedEntry: price,
			SuggestedExit:  exitAt(price, 1.4),
		}
	}

	// 5. Overbought, take profits.
	if s.PriceChange5m > 20 && s.PriceChange1h > 50 {
		return Signal{
			Action:         ActionSell,
			Confidence:     0.80,
			Reason:         "overbought, take profits",
			SuggestedEntry: decimal.Zero,
			SuggestedExit:  price,
		}
	}

	// 6. Established downtrend on every window.
	if s.PriceChange5m < -5 && s.PriceChange1h < -10 && s.PriceChange24h < -15 {
		return Signal{
			Action:         ActionStrongSell,
			Confidence:     0.90,
			Reason:         "strong downtrend",
			SuggestedEntry: decimal.Zero,
			SuggestedExit:  price,
		}
	}

	// 7. Volume spike with a modest move, pump may be starting.
	if volume.GreaterThan(liquidity.Mul(decimal.NewFromInt(3))) && s.PriceChange5m > 3 {
		return Signal{
			Action:         ActionBuy,
			Confidence:     0.75,
			Reason:         "unusual volume spike",
			SuggestedEntry: price,
			SuggestedExit:  exitAt(price, 1.35),
		}
	}

	return Signal{
		Action:         ActionHold,
		Confidence:     0.5,
		Reason:         "no clear pattern",
		SuggestedEntry: price,
		SuggestedExit:  exitAt(price, 1.2),
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// RSIApprox estimates RSI from the three window changes rather than a
// candle series. Returns 100 when there are no losing windows.
func RSIApprox(change5m, change1h, change24h float64) float64 {
	var gain, loss float64
	for _, c := range []float64{change5m, change1h, change24h} {
		if c > 0 {
			gain += c
		} else {
			loss += -c
		}
	}
	avgGain := gain / 3
	avgLoss := loss / 3

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

