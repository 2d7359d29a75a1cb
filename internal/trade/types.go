package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet identifies a tracked on-chain wallet.
type Wallet string

func (w Wallet) String() string { return string(w) }

// Short returns a truncated form for log output.
func (w Wallet) Short() string {
	if len(w) <= 8 {
		return string(w)
	}
	return string(w[:8])
}

// Asset identifies a traded token.
type Asset string

func (a Asset) String() string { return string(a) }

// Side is the direction of a trade event.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Event is one observed buy or sell. Immutable once recorded; produced by
// the transaction decoding layer and consumed by the reconstructor and the
// metrics engine.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Wallet    Wallet          `json:"wallet"`
	Asset     Asset           `json:"asset"`
	Side      Side            `json:"side"`
	AmountIn  decimal.Decimal `json:"amount_in"`  // amount spent
	AmountOut decimal.Decimal `json:"amount_out"` // amount received
	PriceUSD  decimal.Decimal `json:"price_usd"`
	Timestamp time.Time       `json:"timestamp"`
	Venue     string          `json:"venue"`
}

// PositionStatus is the lifecycle state of a reconstructed position.
type PositionStatus string

const (
	StatusOpen            PositionStatus = "OPEN"
	StatusClosed          PositionStatus = "CLOSED"
	StatusPartiallyFilled PositionStatus = "PARTIALLY_FILLED"
)

// Position is a matched (or still pending) entry/exit pair for one
// wallet+asset. A Closed position always carries an exit event and PnL;
// an Open position carries neither.
type Position struct {
	ID            uuid.UUID        `json:"id"`
	Wallet        Wallet           `json:"wallet"`
	Asset         Asset            `json:"asset"`
	Entry         Event            `json:"entry"`
	Exit          *Event           `json:"exit,omitempty"`
	PnL           *decimal.Decimal `json:"pnl,omitempty"`
	PnLPct        *float64         `json:"pnl_pct,omitempty"`
	HoldSeconds   *float64         `json:"hold_seconds,omitempty"`
	EntryMarketCap decimal.Decimal  `json:"entry_market_cap"`
	ExitMarketCap  *decimal.Decimal `json:"exit_market_cap,omitempty"`
	Status        PositionStatus   `json:"status"`
}

// IsWin reports whether a closed position realized a positive PnL.
func (p *Position) IsWin() bool {
	return p.PnL != nil && p.PnL.IsPositive()
}
