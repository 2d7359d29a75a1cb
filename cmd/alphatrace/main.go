package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/alphatrace-trading/alphatrace/internal/alpha"
	"github.com/alphatrace-trading/alphatrace/internal/audit"
	"github.com/alphatrace-trading/alphatrace/internal/config"
	"github.com/alphatrace-trading/alphatrace/internal/engine"
	"github.com/alphatrace-trading/alphatrace/internal/ledger"
	"github.com/alphatrace-trading/alphatrace/internal/marketdata"
	"github.com/alphatrace-trading/alphatrace/internal/notify"
	"github.com/alphatrace-trading/alphatrace/internal/observability"
	"github.com/alphatrace-trading/alphatrace/internal/portfolio"
	"github.com/alphatrace-trading/alphatrace/internal/store"
	"github.com/alphatrace-trading/alphatrace/internal/wallets"
)

func main() {
	// 1. Parse flags. Environment comes first so ${VAR} expansion in
	// the config file sees .env values.
	_ = godotenv.Load()

	configPath := flag.String("config", "config/config.yaml", "Path to configuration file")
	stubMode := flag.Bool("stub", false, "Use stubbed market data (no live stream or APIs)")
	runOnce := flag.Bool("once", false, "Run a single analysis cycle and exit")
	flag.Parse()

	// 2. Load configuration.
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config from %s: %v\n", *configPath, err)
		os.Exit(1)
	}

	// 3. Setup logging.
	setupLogging(cfg.General)

	log.Info().Msg("=============================================")
	log.Info().Msg("AlphaTrace - Smart Money Tracker - Starting")
	log.Info().Msg("TRACK -> CONVERGE -> SCREEN -> ENTER -> EXIT")
	log.Info().Msg("=============================================")

	log.Info().
		Str("instance_id", cfg.General.InstanceID).
		Bool("dry_run", cfg.General.DryRun).
		Bool("stub_mode", *stubMode).
		Str("schedule", cfg.Engine.CycleSchedule).
		Float64("min_smart_score", cfg.Engine.MinSmartScore).
		Float64("starting_capital", cfg.Portfolio.StartingCapitalUSD).
		Float64("position_size", cfg.Portfolio.PositionSizeUSD).
		Msg("Configuration loaded")

	// 4. Load the wallet watchlist.
	watchlist, err := wallets.LoadWatchlist(cfg.Watchlist.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Watchlist.Path).Msg("Failed to load watchlist")
	}
	if len(watchlist) == 0 {
		log.Fatal().Str("path", cfg.Watchlist.Path).Msg("Watchlist is empty, nothing to track")
	}
	log.Info().Int("wallets", len(watchlist)).Msg("Watchlist loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. Open the analysis archive.
	var archive engine.Archive
	var sink audit.Sink
	st, err := store.Open(cfg.Storage.DatabasePath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.Storage.DatabasePath).
			Msg("Archive unavailable, analyses will not be persisted")
	} else {
		defer st.Close()
		archive = st
		sink = st
		log.Info().Str("path", cfg.Storage.DatabasePath).Msg("Archive opened")
	}
	trail := audit.NewTrail(sink, 512)

	// 6. Market data sources.
	var market marketdata.MarketSource
	var security marketdata.SecuritySource
	var trades marketdata.TradeSource
	var stream *marketdata.Stream

	if *stubMode {
		stub := marketdata.NewStubSource()
		market, security, trades = stub, stub, stub
		log.Info().Msg("Market data: STUB mode")
	} else {
		market = marketdata.NewDexScreener(cfg.Providers.DexScreenerURL, nil)
		security = marketdata.NewRugCheck(cfg.Providers.RugCheckURL, nil)

		eventLog := marketdata.NewEventLog(
			time.Duration(cfg.Stream.RetentionHours)*time.Hour, 0, nil)
		trades = eventLog

		if cfg.Stream.Endpoint == "" {
			log.Warn().Msg("No swap stream endpoint configured, wallet activity will be empty")
		} else {
			stream = marketdata.NewStream(marketdata.StreamConfig{
				Endpoint:         cfg.Stream.Endpoint,
				ReconnectDelayMs: cfg.Stream.ReconnectDelayMs,
				MaxReconnects:    cfg.Stream.MaxReconnects,
			}, watchlist)
			events, err := stream.Start(ctx)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to start swap stream")
			}
			go eventLog.Consume(ctx, events)
			log.Info().Str("endpoint", cfg.Stream.Endpoint).Msg("Swap stream started")
		}
	}

	// 7. Notifications.
	var notifier notify.Notifier = notify.Noop{}
	if cfg.Telegram.Enabled && !cfg.General.DryRun {
		notifier = notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, "")
		log.Info().Msg("Telegram notifications ENABLED")
	} else {
		log.Info().Msg("Telegram notifications DISABLED")
	}

	// 8. Portfolio and trade history.
	capital := decimal.NewFromFloat(cfg.Portfolio.StartingCapitalUSD)
	monitor := portfolio.NewMonitor(capital)

	if err := notifier.BotStarted(ctx, capital); err != nil {
		log.Warn().Err(err).Msg("Startup notification failed")
	}

	history, err := ledger.Load(cfg.Storage.LedgerPath, capital)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.Storage.LedgerPath).
			Msg("Trade history unreadable, starting fresh")
		history = ledger.New(capital)
	}
	log.Info().Int("closed_trades", history.TotalTrades()).Msg("Trade history loaded")

	// 9. Metrics and health endpoints.
	metrics := observability.PipelineMetrics()
	if g := metrics.GetGauge("alphatrace_watchlist_wallets"); g != nil {
		g.Set(float64(len(watchlist)))
	}
	health := observability.NewHealthMonitor(30 * time.Second)
	if stream != nil {
		health.Register("swap_stream", streamHealth(stream))
	}
	if cfg.Metrics.Enabled {
		go serveObservability(cfg.Metrics.PrometheusPort, metrics, health)
	}

	// 10. Assemble the engine.
	eng, err := engine.New(engine.Config{
		MinSmartScore:          cfg.Engine.MinSmartScore,
		SignalConfidenceGate:   cfg.Engine.SignalConfidenceGate,
		CombinedConfidenceGate: cfg.Engine.CombinedConfidenceGate,
		PositionSizeUSD:        cfg.Portfolio.PositionSizeUSD,
		StopLossFactor:         cfg.Portfolio.StopLossFactor,
		SummaryEveryCycles:     cfg.Engine.SummaryEveryCycles,
	}, engine.Deps{
		Trades:    trades,
		Market:    market,
		Security:  security,
		Detector:  alpha.NewDetector(),
		Portfolio: monitor,
		History:   history,
		Archive:   archive,
		Trail:     trail,
		Notifier:  notifier,
		Metrics:   metrics,
	}, watchlist, cfg.Storage.LedgerPath, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to assemble engine")
	}

	if *runOnce {
		if err := eng.Cycle(ctx); err != nil {
			log.Fatal().Err(err).Msg("Cycle failed")
		}
		log.Info().Msg("Single cycle complete")
		return
	}

	// 11. Schedule cycles.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Engine.CycleSchedule, func() {
		if err := eng.Cycle(ctx); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Msg("Cycle failed")
		}
	}); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.Engine.CycleSchedule).
			Msg("Invalid cycle schedule")
	}
	scheduler.Start()
	defer scheduler.Stop()

	go health.Start(ctx)
	go logAlerts(ctx, health.Alerts())

	// First cycle runs immediately rather than waiting a full interval.
	go func() {
		if err := eng.Cycle(ctx); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Msg("Initial cycle failed")
		}
	}()

	log.Info().Msg("AlphaTrace - Running")

	// 12. Block until shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("Shutting down...")
	cancel()

	stats := monitor.Stats()
	log.Info().
		Int("total_trades", stats.TotalTrades).
		Int("wins", stats.Wins).
		Int("losses", stats.Losses).
		Float64("win_rate", stats.WinRate).
		Str("total_pnl", stats.TotalPnL.String()).
		Str("portfolio_value", stats.PortfolioValue.String()).
		Int64("cycles", eng.Cycles()).
		Msg("AlphaTrace - Final Statistics")

	log.Info().Msg("AlphaTrace - Shutdown complete")
}

// streamHealth reports the swap stream's connection state.
func streamHealth(stream *marketdata.Stream) observability.HealthCheck {
	return func(ctx context.Context) observability.ComponentHealth {
		if stream.Connected() {
			return observability.ComponentHealth{
				Status: observability.StatusHealthy,
				Details: map[string]any{
					"messages_received": stream.MessagesReceived(),
				},
			}
		}
		return observability.ComponentHealth{
			Status:  observability.StatusDegraded,
			Message: "stream disconnected, reconnecting",
		}
	}
}

// logAlerts mirrors health status transitions into the log.
func logAlerts(ctx context.Context, alerts <-chan observability.Alert) {
	for {
		select {
		case <-ctx.Done():
			return
		case a := <-alerts:
			ev := log.Info()
			switch a.Level {
			case "critical":
				ev = log.Error()
			case "warn":
				ev = log.Warn()
			}
			ev.Str("component", a.Component).Msg(a.Message)
		}
	}
}

// serveObservability exposes /metrics and /health.
func serveObservability(port int, metrics *observability.Registry, health *observability.HealthMonitor) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.NewPrometheusExporter(metrics))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(health.Check(r.Context()))
	})

	addr := fmt.Sprintf(":%d", port)
	log.Info().Str("addr", addr).Msg("Observability endpoints listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("Observability server error")
	}
}

func setupLogging(general config.GeneralConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMicro
	level, err := zerolog.ParseLevel(general.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if general.LogFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Str("service", "alphatrace").
			Str("instance", general.InstanceID).Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).
			With().Timestamp().Str("service", "alphatrace").
			Str("instance", general.InstanceID).Logger()
	}
}
