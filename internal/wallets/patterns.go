package wallets

import "github.com/alphatrace-trading/alphatrace/internal/trade"

// Style labels a recognisable trading rhythm.
type Style string

const (
	StyleScalping Style = "scalping"
	StyleSwing    Style = "swing"
)

// DetectStyles classifies a wallet's rhythm from average hold time
// across closed positions. Under an hour reads as scalping, over a
// day as swing trading. The bands do not overlap so at most one style
// applies; an empty result means the wallet sits in between.
func DetectStyles(positions []trade.Position) []Style {
	var (
		sum   float64
		count int
	)
	for i := range positions {
		if positions[i].HoldSeconds != nil {
			sum += *positions[i].HoldSeconds
			count++
		}
	}
	if count == 0 {
		return nil
	}

	avg := sum / float64(count)
	switch {
	case avg < 3600:
		return []Style{StyleScalping}
	case avg > 86400:
		return []Style{StyleSwing}
	}
	return nil
}
