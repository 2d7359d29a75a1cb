// Package alpha finds convergence signals: multiple high-scoring
// wallets buying the same asset inside a short window.
package alpha

import (
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/alphatrace-trading/alphatrace/internal/trade"
	"github.com/alphatrace-trading/alphatrace/internal/wallets"
)

// SignalType classifies how a signal was produced.
type SignalType string

const (
	SignalConvergence  SignalType = "smart_money_convergence"
	SignalHotWallet    SignalType = "hot_wallet_trade"
	SignalVolumeBreak  SignalType = "volume_breakout"
	SignalChartPattern SignalType = "chart_pattern"
)

// UltraSignal is a high-conviction buy signal for one asset.
type UltraSignal struct {
	Asset         trade.Asset     `json:"asset"`
	Confidence    float64         `json:"confidence"`
	WalletCount   int             `json:"wallet_count"`
	Wallets       []trade.Wallet  `json:"wallets"`
	AvgSmartScore float64         `json:"avg_smart_score"`
	TotalVolume   decimal.Decimal `json:"total_volume"`
	Type          SignalType      `json:"type"`
	DetectedAt    time.Time       `json:"detected_at"`
}

// Detector scans recent activity for signal convergence.
type Detector struct {
	// ConvergenceThreshold is the minimum number of distinct smart
	// wallets that must buy an asset before a signal fires.
	ConvergenceThreshold int
	// WindowMinutes bounds how far back buys are considered.
	WindowMinutes int
	// MinScore gates which wallets count as smart money.
	MinScore float64
}

// NewDetector returns a Detector with the standard 3-wallet, 60
// minute configuration.
func NewDetector() *Detector {
	return &Detector{ConvergenceThreshold: 3, WindowMinutes: 60, MinScore: 0.8}
}

type assetActivity struct {
	wallets  []trade.Wallet
	seen     map[trade.Wallet]bool
	volume   decimal.Decimal
	scoreSum float64
}

// FindUltraSignals scans each smart wallet's recent buys and emits a
// signal per asset where at least ConvergenceThreshold distinct
// wallets bought inside the window. A wallet buying the same asset
// repeatedly contributes volume but counts once toward convergence.
// Results are ordered by confidence descending, asset ascending on
// ties, so repeated runs over the same data produce the same slice.
func (d *Detector) FindUltraSignals(analyses map[trade.Wallet]wallets.Analysis, recent map[trade.Wallet][]trade.Event, now time.Time) []UltraSignal {
	cutoff := now.Add(-time.Duration(d.WindowMinutes) * time.Minute)

	activity := make(map[trade.Asset]*assetActivity)

	for wallet, events := range recent {
		analysis, ok := analyses[wallet]
		if !ok || analysis.SmartMoneyScore < d.MinScore {
			continue
		}

		for i := range events {
			ev := &events[i]
			if ev.Side != trade.SideBuy || ev.Timestamp.Before(cutoff) {
				continue
			}

			act := activity[ev.Asset]
			if act == nil {
				act = &assetActivity{seen: make(map[trade.Wallet]bool), volume: decimal.Zero}
				activity[ev.Asset] = act
			}
			act.volume = act.volume.Add(ev.AmountIn)
			if !act.seen[wallet] {
				act.seen[wallet] = true
				act.wallets = append(act.wallets, wallet)
				act.scoreSum += analysis.SmartMoneyScore
			}
		}
	}

	var signals []UltraSignal
	for asset, act := range activity {
		count := len(act.wallets)
		if count < d.ConvergenceThreshold {
			continue
		}

		conf := 0.8 + min(float64(count)*0.05, 0.2)
		sort.Slice(act.wallets, func(i, j int) bool { return act.wallets[i] < act.wallets[j] })

		signals = append(signals, UltraSignal{
			Asset:         asset,
			Confidence:    conf,
			WalletCount:   count,
			Wallets:       act.wallets,
			AvgSmartScore: act.scoreSum / float64(count),
			TotalVolume:   act.volume,
			Type:          SignalConvergence,
			DetectedAt:    now,
		})
	}

	sort.SliceStable(signals, func(i, j int) bool {
		if signals[i].Confidence != signals[j].Confidence {
			return signals[i].Confidence > signals[j].Confidence
		}
		return signals[i].Asset < signals[j].Asset
	})

	if len(signals) > 0 {
		log.Info().Int("signals", len(signals)).Msg("convergence signals detected")
	}
	return signals
}

// HotWallets returns wallets on a streak: active today, winning above
// 80% and scoring above 0.85. Sorted for deterministic output.
func (d *Detector) HotWallets(analyses map[trade.Wallet]wallets.Analysis) []trade.Wallet {
	var hot []trade.Wallet
	for wallet, a := range analyses {
		if a.Metrics.TradesLast24h >= 3 && a.Metrics.WinRate > 80 && a.SmartMoneyScore > 0.85 {
			hot = append(hot, wallet)
		}
	}
	sort.Slice(hot, func(i, j int) bool { return hot[i] < hot[j] })
	return hot
}
