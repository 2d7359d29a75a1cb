package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/alphatrace-trading/alphatrace/internal/alpha"
	"github.com/alphatrace-trading/alphatrace/internal/audit"
	"github.com/alphatrace-trading/alphatrace/internal/chart"
	"github.com/alphatrace-trading/alphatrace/internal/ledger"
	"github.com/alphatrace-trading/alphatrace/internal/marketdata"
	"github.com/alphatrace-trading/alphatrace/internal/notify"
	"github.com/alphatrace-trading/alphatrace/internal/observability"
	"github.com/alphatrace-trading/alphatrace/internal/portfolio"
	"github.com/alphatrace-trading/alphatrace/internal/trade"
	"github.com/alphatrace-trading/alphatrace/internal/wallets"
)

// ---------------------------------------------------------------------------
// Engine — drives one analysis cycle: wallets -> signals -> positions
// ---------------------------------------------------------------------------

// Config tunes the cycle gates.
type Config struct {
	// Analyses below this smart money score are kept for history but
	// never feed signal detection.
	MinSmartScore float64 `yaml:"min_smart_score"`

	// A signal must clear this confidence before any token data is
	// fetched for it.
	SignalConfidenceGate float64 `yaml:"signal_confidence_gate"`

	// (signal + chart) / 2 must clear this before a position opens.
	CombinedConfidenceGate float64 `yaml:"combined_confidence_gate"`

	// USD committed per position.
	PositionSizeUSD float64 `yaml:"position_size_usd"`

	// Stop loss as a fraction of the suggested entry.
	StopLossFactor float64 `yaml:"stop_loss_factor"`

	// A session summary notification goes out every this many cycles.
	SummaryEveryCycles int `yaml:"summary_every_cycles"`
}

// DefaultConfig returns the standard cycle gates.
func DefaultConfig() Config {
	return Config{
		MinSmartScore:          0.8,
		SignalConfidenceGate:   0.85,
		CombinedConfidenceGate: 0.75,
		PositionSizeUSD:        50,
		StopLossFactor:         0.9,
		SummaryEveryCycles:     10,
	}
}

// Archive persists analyses and signals across sessions. *store.Store
// satisfies it; tests supply a stub.
type Archive interface {
	SaveAnalysis(ctx context.Context, a wallets.Analysis) error
	SaveSignal(ctx context.Context, sig alpha.UltraSignal) error
}

// Deps are the engine's collaborators. Archive, Trail, Notifier and
// Metrics may be nil; the engine degrades to not persisting, not
// auditing, not notifying or not counting respectively.
type Deps struct {
	Trades    marketdata.TradeSource
	Market    marketdata.MarketSource
	Security  marketdata.SecuritySource
	Detector  *alpha.Detector
	Portfolio *portfolio.Monitor
	Exits     portfolio.ExitEngine
	History   *ledger.TradeHistory
	Archive   Archive
	Trail     *audit.Trail
	Notifier  notify.Notifier
	Metrics   *observability.Registry
}

// Engine runs the analysis cycle over a fixed watchlist.
type Engine struct {
	config    Config
	deps      Deps
	watchlist []trade.Wallet
	ledgerAt  string
	now       func() time.Time

	cycles atomic.Int64
}

// New creates an Engine. ledgerPath is where trade history is saved
// after each cycle; empty disables saving. now defaults to time.Now.
func New(config Config, deps Deps, watchlist []trade.Wallet, ledgerPath string, now func() time.Time) (*Engine, error) {
	if deps.Trades == nil || deps.Market == nil || deps.Security == nil {
		return nil, errors.New("engine: trade, market and security sources are required")
	}
	if deps.Detector == nil || deps.Portfolio == nil || deps.History == nil {
		return nil, errors.New("engine: detector, portfolio and history are required")
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Noop{}
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{
		config:    config,
		deps:      deps,
		watchlist: watchlist,
		ledgerAt:  ledgerPath,
		now:       now,
	}, nil
}

// Cycles returns how many cycles have completed.
func (e *Engine) Cycles() int64 { return e.cycles.Load() }

// Run executes cycles at the given interval until ctx is cancelled.
// The first cycle runs immediately.
func (e *Engine) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := e.Cycle(ctx); err != nil {
			log.Warn().Err(err).Msg("engine: cycle failed")
			e.count("alphatrace_cycle_errors_total")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Cycle performs one full pass: analyze every watched wallet, detect
// convergence signals, screen and open entries, then walk open
// positions for exits. One clock reading is shared by the whole pass
// so every artifact of a cycle carries the same timestamp.
func (e *Engine) Cycle(ctx context.Context) error {
	start := time.Now()
	now := e.now()
	cycle := e.cycles.Add(1)

	log.Info().
		Int64("cycle", cycle).
		Int("wallets", len(e.watchlist)).
		Msg("engine: cycle start")

	analyses, recent := e.analyzeWallets(ctx, now)
	log.Info().Int("qualified", len(analyses)).Msg("engine: wallet analysis done")

	if len(analyses) > 0 {
		e.scanSignals(ctx, analyses, recent, now)

		hot := e.deps.Detector.HotWallets(analyses)
		if len(hot) > 0 {
			log.Info().Int("count", len(hot)).Msg("engine: hot wallets on a winning streak")
		}
	}

	e.manageExits(ctx, now)
	e.persistLedger()
	e.updateGauges()

	if e.config.SummaryEveryCycles > 0 && cycle%int64(e.config.SummaryEveryCycles) == 0 {
		if err := e.deps.Notifier.SessionSummary(ctx, e.deps.Portfolio.Stats()); err != nil {
			log.Warn().Err(err).Msg("engine: session summary notification failed")
		}
	}

	e.count("alphatrace_cycles_total")
	e.observe("alphatrace_cycle_latency_ms", float64(time.Since(start).Milliseconds()))
	return ctx.Err()
}

// analyzeWallets fetches and analyzes each watched wallet. A failing
// wallet is logged and skipped; one bad RPC response never sinks the
// cycle. Only wallets clearing MinSmartScore feed signal detection.
func (e *Engine) analyzeWallets(ctx context.Context, now time.Time) (map[trade.Wallet]wallets.Analysis, map[trade.Wallet][]trade.Event) {
	analyses := make(map[trade.Wallet]wallets.Analysis)
	recent := make(map[trade.Wallet][]trade.Event)

	for _, w := range e.watchlist {
		if ctx.Err() != nil {
			return analyses, recent
		}

		events, err := e.deps.Trades.RecentTrades(ctx, w)
		if err != nil {
			log.Warn().Err(err).Str("wallet", w.Short()).Msg("engine: trade fetch failed")
			e.count("alphatrace_fetch_errors_total")
			continue
		}
		e.addCount("alphatrace_swap_events_total", float64(len(events)))

		positions := trade.Reconstruct(events)
		analysis := wallets.BuildAnalysis(w, events, positions, now)
		e.count("alphatrace_wallets_analyzed_total")

		if e.deps.Archive != nil {
			if err := e.deps.Archive.SaveAnalysis(ctx, analysis); err != nil {
				log.Warn().Err(err).Str("wallet", w.Short()).Msg("engine: analysis save failed")
			}
		}

		log.Debug().
			Str("wallet", w.Short()).
			Float64("score", analysis.SmartMoneyScore).
			Float64("win_rate", analysis.Metrics.WinRate).
			Int("trades", analysis.Metrics.TotalTrades).
			Msg("engine: wallet analyzed")

		if analysis.SmartMoneyScore >= e.config.MinSmartScore {
			analyses[w] = analysis
			recent[w] = events
		}
	}
	return analyses, recent
}

// scanSignals runs convergence detection and walks each signal through
// the entry funnel: confidence gate, security screen, chart read,
// combined confidence, open.
func (e *Engine) scanSignals(ctx context.Context, analyses map[trade.Wallet]wallets.Analysis, recent map[trade.Wallet][]trade.Event, now time.Time) {
	signals := e.deps.Detector.FindUltraSignals(analyses, recent, now)
	if len(signals) == 0 {
		log.Info().Msg("engine: no convergence signals this cycle")
		return
	}
	log.Info().Int("count", len(signals)).Msg("engine: convergence signals detected")
	e.addCount("alphatrace_signals_total", float64(len(signals)))

	for _, sig := range signals {
		log.Info().
			Str("asset", sig.Asset.String()).
			Float64("confidence", sig.Confidence).
			Int("wallets", sig.WalletCount).
			Str("volume", sig.TotalVolume.String()).
			Msg("engine: ultra signal")

		if e.deps.Trail != nil {
			e.deps.Trail.RecordSignal(sig)
		}
		if e.deps.Archive != nil {
			if err := e.deps.Archive.SaveSignal(ctx, sig); err != nil {
				log.Warn().Err(err).Str("asset", sig.Asset.String()).Msg("engine: signal save failed")
			}
		}
		if err := e.deps.Notifier.SignalDetected(ctx, sig); err != nil {
			log.Warn().Err(err).Msg("engine: signal notification failed")
		}

		if sig.Confidence > e.config.SignalConfidenceGate {
			e.tryOpen(ctx, sig, now)
		}
	}
}

// tryOpen screens one high-confidence signal and opens a position when
// the security and chart checks agree with it.
func (e *Engine) tryOpen(ctx context.Context, sig alpha.UltraSignal, now time.Time) {
	token, err := e.deps.Market.Token(ctx, sig.Asset)
	if err != nil {
		log.Warn().Err(err).Str("asset", sig.Asset.String()).Msg("engine: token fetch failed")
		e.count("alphatrace_fetch_errors_total")
		return
	}

	sec, err := e.deps.Security.Security(ctx, sig.Asset)
	if err != nil {
		log.Warn().Err(err).Str("asset", sig.Asset.String()).Msg("engine: security check failed")
		e.count("alphatrace_fetch_errors_total")
		return
	}
	if e.deps.Trail != nil {
		e.deps.Trail.RecordSecurityCheck(sig.Asset, !sec.IsScam && !sec.IsBundle, sec, now)
	}
	if sec.IsScam {
		log.Error().Str("asset", sig.Asset.String()).Msg("engine: scam detected, skipping")
		e.count("alphatrace_signals_rejected_total")
		if err := e.deps.Notifier.ScamDetected(ctx, sig.Asset); err != nil {
			log.Warn().Err(err).Msg("engine: scam notification failed")
		}
		return
	}
	if sec.IsBundle {
		log.Warn().Str("asset", sig.Asset.String()).Msg("engine: bundle detected, skipping")
		e.count("alphatrace_signals_rejected_total")
		return
	}

	chartSig := chart.Analyze(token.Market)
	if e.deps.Trail != nil {
		e.deps.Trail.RecordChartAnalysis(sig.Asset, chartSig, now)
	}
	log.Info().
		Str("asset", sig.Asset.String()).
		Str("action", string(chartSig.Action)).
		Float64("confidence", chartSig.Confidence).
		Str("reason", chartSig.Reason).
		Msg("engine: chart analysis")

	switch chartSig.Action {
	case chart.ActionBuy, chart.ActionStrongBuy:
	case chart.ActionSell, chart.ActionStrongSell:
		log.Warn().Str("asset", sig.Asset.String()).Msg("engine: chart shows sell, skipping buy")
		return
	default:
		return
	}

	combined := (sig.Confidence + chartSig.Confidence) / 2
	if combined <= e.config.CombinedConfidenceGate {
		return
	}

	pos := portfolio.OpenPosition{
		Asset:            sig.Asset,
		Symbol:           token.Symbol,
		EntryTime:        now,
		EntryPrice:       token.Market.PriceUSD,
		EntryMarketCap:   token.MarketCap,
		Amount:           decimal.NewFromFloat(e.config.PositionSizeUSD),
		CurrentPrice:     token.Market.PriceUSD,
		CurrentMarketCap: token.MarketCap,
		StopLoss:         chartSig.SuggestedEntry.Mul(decimal.NewFromFloat(e.config.StopLossFactor)),
		TakeProfit:       chartSig.SuggestedExit,
	}
	if err := e.deps.Portfolio.Open(pos); err != nil {
		log.Warn().Err(err).Str("asset", sig.Asset.String()).Msg("engine: open refused")
		return
	}

	log.Info().
		Str("asset", sig.Asset.String()).
		Str("entry", pos.EntryPrice.String()).
		Float64("combined_confidence", combined).
		Msg("engine: position opened")
	e.count("alphatrace_positions_opened_total")
	if e.deps.Trail != nil {
		e.deps.Trail.RecordPositionOpen(pos)
	}
	if err := e.deps.Notifier.PositionOpened(ctx, pos); err != nil {
		log.Warn().Err(err).Msg("engine: open notification failed")
	}
}

// manageExits refreshes every open position's price and closes any
// that hit an exit rule. A fetch failure skips only that asset; its
// position is re-checked next cycle.
func (e *Engine) manageExits(ctx context.Context, now time.Time) {
	for _, asset := range e.deps.Portfolio.OpenAssets() {
		token, err := e.deps.Market.Token(ctx, asset)
		if err != nil {
			log.Warn().Err(err).Str("asset", asset.String()).Msg("engine: price refresh failed")
			e.count("alphatrace_fetch_errors_total")
			continue
		}

		e.deps.Portfolio.UpdatePrices(map[trade.Asset]portfolio.PriceUpdate{
			asset: {Price: token.Market.PriceUSD, MarketCap: token.MarketCap},
		}, now)

		pos, ok := e.deps.Portfolio.Position(asset)
		if !ok {
			continue
		}
		chartSig := chart.Analyze(token.Market)

		reason, exit := e.deps.Exits.Evaluate(&pos, chartSig, token.Market.PriceUSD)
		if !exit {
			continue
		}

		closed := e.deps.Portfolio.Close(asset, token.Market.PriceUSD, string(reason), now)
		if closed == nil {
			continue
		}
		log.Info().
			Str("asset", asset.String()).
			Str("reason", string(reason)).
			Str("pnl", closed.PnL.String()).
			Float64("pnl_pct", closed.PnLPct).
			Msg("engine: position closed")
		e.count("alphatrace_positions_closed_total")

		e.deps.History.AddClosedTrade(*closed)
		if e.deps.Trail != nil {
			e.deps.Trail.RecordPositionClose(*closed)
		}
		if err := e.deps.Notifier.PositionClosed(ctx, *closed); err != nil {
			log.Warn().Err(err).Msg("engine: close notification failed")
		}
	}
}

// persistLedger folds current session stats into history and writes it
// out. Failures are logged, not fatal; the next cycle retries.
func (e *Engine) persistLedger() {
	e.deps.History.UpdateStats(e.deps.Portfolio.Stats())
	if e.ledgerAt == "" {
		return
	}
	if err := e.deps.History.Save(e.ledgerAt); err != nil {
		log.Warn().Err(err).Str("path", e.ledgerAt).Msg("engine: ledger save failed")
	}
}

func (e *Engine) updateGauges() {
	if e.deps.Metrics == nil {
		return
	}
	stats := e.deps.Portfolio.Stats()
	if g := e.deps.Metrics.GetGauge("alphatrace_open_positions"); g != nil {
		g.Set(float64(len(e.deps.Portfolio.OpenAssets())))
	}
	if g := e.deps.Metrics.GetGauge("alphatrace_capital_usd"); g != nil {
		g.Set(stats.PortfolioValue.InexactFloat64())
	}
	if g := e.deps.Metrics.GetGauge("alphatrace_realized_pnl_usd"); g != nil {
		g.Set(stats.TotalPnL.InexactFloat64())
	}
	if g := e.deps.Metrics.GetGauge("alphatrace_watchlist_wallets"); g != nil {
		g.Set(float64(len(e.watchlist)))
	}
}

// ---------------------------------------------------------------------------
// Metric helpers (nil-safe)
// ---------------------------------------------------------------------------

func (e *Engine) count(name string) {
	if e.deps.Metrics == nil {
		return
	}
	if c := e.deps.Metrics.GetCounter(name); c != nil {
		c.Inc()
	}
}

func (e *Engine) addCount(name string, delta float64) {
	if e.deps.Metrics == nil {
		return
	}
	if c := e.deps.Metrics.GetCounter(name); c != nil {
		c.Add(delta)
	}
}

func (e *Engine) observe(name string, v float64) {
	if e.deps.Metrics == nil {
		return
	}
	if h := e.deps.Metrics.GetHistogram(name); h != nil {
		h.Observe(v)
	}
}
