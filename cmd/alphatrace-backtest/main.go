package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/alphatrace-trading/alphatrace/internal/backtest"
	"github.com/alphatrace-trading/alphatrace/internal/ledger"
)

func main() {
	ledgerPath := flag.String("ledger", "trade_history.json", "Path to the trade history ledger")
	capital := flag.Float64("capital", 1000, "Starting capital in USD")
	positionSize := flag.Float64("position-size", 50, "Position size in USD per replayed trade")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	startingCapital := decimal.NewFromFloat(*capital)

	history, err := ledger.Load(*ledgerPath, startingCapital)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load ledger from %s: %v\n", *ledgerPath, err)
		os.Exit(1)
	}

	cfg := backtest.DefaultConfig()
	cfg.StartingCapital = startingCapital
	cfg.PositionSize = decimal.NewFromFloat(*positionSize)

	results, err := backtest.New(cfg).Run(history)
	if err != nil {
		if errors.Is(err, backtest.ErrEmptyLedger) {
			fmt.Fprintf(os.Stderr, "No closed trades in %s, nothing to replay\n", *ledgerPath)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "FATAL: backtest failed: %v\n", err)
		os.Exit(1)
	}

	results.WriteReport(os.Stdout)
}
