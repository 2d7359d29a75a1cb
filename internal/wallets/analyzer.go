package wallets

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alphatrace-trading/alphatrace/internal/trade"
)

// MCRange is an observed market-cap band for a wallet's winning
// entries or exits.
type MCRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// Analysis is the full per-wallet record produced each cycle.
type Analysis struct {
	Wallet          trade.Wallet  `json:"wallet"`
	Metrics         Metrics       `json:"metrics"`
	SmartMoneyScore float64       `json:"smart_money_score"`
	RiskScore       float64       `json:"risk_score"`
	IsInsider       bool          `json:"is_insider"`
	IsWhale         bool          `json:"is_whale"`
	TypicalHoldTime float64       `json:"typical_hold_time"`
	BestEntryMC     MCRange       `json:"best_entry_mc_range"`
	BestExitMC      MCRange       `json:"best_exit_mc_range"`
	PreferredAssets []trade.Asset `json:"preferred_assets"`
	Styles          []Style       `json:"styles,omitempty"`
	AnalyzedAt      time.Time     `json:"analyzed_at"`
}

// BuildAnalysis assembles metrics, scores and behavioural flags for a
// wallet from its raw events and reconstructed positions.
func BuildAnalysis(wallet trade.Wallet, events []trade.Event, positions []trade.Position, now time.Time) Analysis {
	m := ComputeMetrics(wallet, events, positions, now)

	entryMC, exitMC := winningMCRanges(wallet, positions)

	return Analysis{
		Wallet:          wallet,
		Metrics:         m,
		SmartMoneyScore: SmartMoneyScore(m),
		RiskScore:       RiskScore(m),
		IsInsider:       DetectInsider(m),
		IsWhale:         DetectWhale(m),
		TypicalHoldTime: m.AvgHoldTimeSeconds,
		BestEntryMC:     entryMC,
		BestExitMC:      exitMC,
		PreferredAssets: preferredAssets(wallet, events, 10),
		Styles:          DetectStyles(positions),
		AnalyzedAt:      now,
	}
}

// winningMCRanges returns the min/max entry and exit market caps seen
// across the wallet's winning closed positions. Zero ranges when the
// wallet has no wins.
func winningMCRanges(wallet trade.Wallet, positions []trade.Position) (entry, exit MCRange) {
	var entryAny, exitAny bool
	for i := range positions {
		pos := &positions[i]
		if pos.Wallet != wallet || !pos.IsWin() {
			continue
		}

		mc := pos.EntryMarketCap
		if !entryAny || mc.LessThan(entry.Min) {
			entry.Min = mc
		}
		if !entryAny || mc.GreaterThan(entry.Max) {
			entry.Max = mc
		}
		entryAny = true

		if pos.ExitMarketCap != nil {
			emc := *pos.ExitMarketCap
			if !exitAny || emc.LessThan(exit.Min) {
				exit.Min = emc
			}
			if !exitAny || emc.GreaterThan(exit.Max) {
				exit.Max = emc
			}
			exitAny = true
		}
	}
	return entry, exit
}

// preferredAssets ranks the wallet's assets by raw event count and
// keeps the top n. Ties break alphabetically for stable output.
func preferredAssets(wallet trade.Wallet, events []trade.Event, n int) []trade.Asset {
	counts := make(map[trade.Asset]int)
	for i := range events {
		if events[i].Wallet == wallet {
			counts[events[i].Asset]++
		}
	}
	if len(counts) == 0 {
		return nil
	}

	assets := make([]trade.Asset, 0, len(counts))
	for a := range counts {
		assets = append(assets, a)
	}
	sort.Slice(assets, func(i, j int) bool {
		if counts[assets[i]] != counts[assets[j]] {
			return counts[assets[i]] > counts[assets[j]]
		}
		return assets[i] < assets[j]
	})

	if len(assets) > n {
		assets = assets[:n]
	}
	return assets
}
