package marketdata

import (
	"context"

	"github.com/alphatrace-trading/alphatrace/internal/trade"
)

// MarketSource yields market snapshots for assets.
type MarketSource interface {
	Token(ctx context.Context, asset trade.Asset) (Token, error)
}

// SecuritySource screens assets for scam and bundle risk.
type SecuritySource interface {
	Security(ctx context.Context, asset trade.Asset) (SecurityInfo, error)
}

// TradeSource yields the recent raw swap events for tracked wallets.
type TradeSource interface {
	RecentTrades(ctx context.Context, wallet trade.Wallet) ([]trade.Event, error)
}
