package trade

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Position Reconstructor
// Matches raw buy/sell events into discrete positions. Matching is LIFO per
// (wallet, asset): a sell closes the most recently opened pending buy. This
// recency-weighted policy is intentional; do not switch to FIFO.
// ---------------------------------------------------------------------------

type pendingKey struct {
	wallet Wallet
	asset  Asset
}

// Reconstruct converts an unordered set of events (mixed wallets, assets and
// order) into positions. Sells with no pending buy for their key are dropped;
// buys left unmatched at the end become Open positions. Empty input yields
// empty output.
func Reconstruct(events []Event) []Position {
	if len(events) == 0 {
		return nil
	}

	// Stable sort keeps the original order for equal timestamps.
	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	positions := make([]Position, 0, len(sorted)/2)
	pending := make(map[pendingKey][]Event)

	for _, ev := range sorted {
		key := pendingKey{wallet: ev.Wallet, asset: ev.Asset}

		switch ev.Side {
		case SideBuy:
			pending[key] = append(pending[key], ev)

		case SideSell:
			stack := pending[key]
			if len(stack) == 0 {
				// No short-position modeling: orphan sells are dropped.
				continue
			}
			entry := stack[len(stack)-1]
			pending[key] = stack[:len(stack)-1]
			positions = append(positions, closePosition(entry, ev))
		}
	}

	// Remaining buys stay open. Collect deterministically by entry time so
	// callers see a reproducible ordering.
	var open []Position
	for key, stack := range pending {
		for _, entry := range stack {
			open = append(open, Position{
				ID:     uuid.New(),
				Wallet: key.wallet,
				Asset:  key.asset,
				Entry:  entry,
				Status: StatusOpen,
			})
		}
	}
	sort.SliceStable(open, func(i, j int) bool {
		if open[i].Entry.Timestamp.Equal(open[j].Entry.Timestamp) {
			return open[i].Asset < open[j].Asset
		}
		return open[i].Entry.Timestamp.Before(open[j].Entry.Timestamp)
	})

	return append(positions, open...)
}

// closePosition builds a Closed position from a matched entry/exit pair.
// PnL = exit.AmountOut - entry.AmountIn, exactly; the percentage collapses
// to zero when the entry amount is zero.
func closePosition(entry, exit Event) Position {
	pnl := exit.AmountOut.Sub(entry.AmountIn)

	pnlPct := 0.0
	if entry.AmountIn.IsPositive() {
		pnlPct, _ = pnl.Div(entry.AmountIn).Mul(decimal.NewFromInt(100)).Float64()
	}

	hold := exit.Timestamp.Sub(entry.Timestamp).Seconds()
	ex := exit

	return Position{
		ID:          uuid.New(),
		Wallet:      entry.Wallet,
		Asset:       entry.Asset,
		Entry:       entry,
		Exit:        &ex,
		PnL:         &pnl,
		PnLPct:      &pnlPct,
		HoldSeconds: &hold,
		Status:      StatusClosed,
	}
}

// Closed filters positions down to the closed subset, preserving order.
func Closed(positions []Position) []Position {
	out := make([]Position, 0, len(positions))
	for _, p := range positions {
		if p.Status == StatusClosed {
			out = append(out, p)
		}
	}
	return out
}
