// Package marketdata fetches token market snapshots and security
// reports from external providers.
package marketdata

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/alphatrace-trading/alphatrace/internal/chart"
	"github.com/alphatrace-trading/alphatrace/internal/trade"
)

// RiskLevel orders token risk from safe to critical.
type RiskLevel int

const (
	RiskSafe RiskLevel = iota
	RiskLow
	RiskMedium
	RiskHigh
	RiskCritical
)

func (r RiskLevel) String() string {
	switch r {
	case RiskSafe:
		return "safe"
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	case RiskCritical:
		return "critical"
	}
	return "unknown"
}

// SecurityInfo is the result of a token security screen.
type SecurityInfo struct {
	IsScam               bool      `json:"is_scam"`
	IsBundle             bool      `json:"is_bundle"`
	RugcheckScore        *float64  `json:"rugcheck_score,omitempty"`
	LPLocked             bool      `json:"lp_locked"`
	TopHoldersPercentage float64   `json:"top_holders_percentage"`
	Risk                 RiskLevel `json:"risk_level"`
}

// Token is a snapshot of one asset's market state.
type Token struct {
	Asset     trade.Asset     `json:"asset"`
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name"`
	Market    chart.Snapshot  `json:"market"`
	MarketCap decimal.Decimal `json:"market_cap"`
	Venue     string          `json:"venue,omitempty"`
	FetchedAt time.Time       `json:"fetched_at"`
}
