// Package notify delivers trading alerts to external channels.
package notify

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/alphatrace-trading/alphatrace/internal/alpha"
	"github.com/alphatrace-trading/alphatrace/internal/portfolio"
	"github.com/alphatrace-trading/alphatrace/internal/trade"
)

// Notifier receives the engine's trading events. Implementations must
// tolerate being called from the cycle hot path; a slow or failing
// channel should not stall trading.
type Notifier interface {
	BotStarted(ctx context.Context, startingCapital decimal.Decimal) error
	SignalDetected(ctx context.Context, sig alpha.UltraSignal) error
	ScamDetected(ctx context.Context, asset trade.Asset) error
	PositionOpened(ctx context.Context, pos portfolio.OpenPosition) error
	PositionClosed(ctx context.Context, tr portfolio.ClosedTrade) error
	SessionSummary(ctx context.Context, stats portfolio.SessionStats) error
}

// Noop discards every event.
type Noop struct{}

func (Noop) BotStarted(context.Context, decimal.Decimal) error            { return nil }
func (Noop) SignalDetected(context.Context, alpha.UltraSignal) error      { return nil }
func (Noop) ScamDetected(context.Context, trade.Asset) error              { return nil }
func (Noop) PositionOpened(context.Context, portfolio.OpenPosition) error { return nil }
func (Noop) PositionClosed(context.Context, portfolio.ClosedTrade) error  { return nil }
func (Noop) SessionSummary(context.Context, portfolio.SessionStats) error { return nil }
