// Command settle runs a single settlement round against the configured
// database and prints the outcome, without the daemon or its schedules.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/avelez/signaldesk/internal/config"
	"github.com/avelez/signaldesk/internal/logger"
	"github.com/avelez/signaldesk/internal/settle"
	"github.com/avelez/signaldesk/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dryRun := flag.Bool("dry-run", false, "evaluate active signals without closing them")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level)

	db, err := storage.NewDatabase(cfg.Database.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database error: %v\n", err)
		os.Exit(1)
	}
	repo := storage.NewRepository(db)

	if *dryRun {
		if err := printPending(repo, cfg.SignalExpiry()); err != nil {
			fmt.Fprintf(os.Stderr, "dry run error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	engine := settle.NewEngine(repo, nil, cfg.SignalExpiry(), log)
	report, err := engine.Run(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "settlement error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Checked %d signal(s): %d closed, %d awaiting prices.\n",
		report.Checked, report.Closed, report.Skipped)
	for _, r := range report.Results {
		note := ""
		if r.Expired {
			note = " (expired)"
		}
		fmt.Printf("  [%s] %s: %+.2f%%%s\n", r.Result, r.Symbol, r.Profit, note)
	}
	for _, e := range report.Errors {
		fmt.Fprintf(os.Stderr, "  [FAIL] %s\n", e)
	}
	if len(report.Errors) > 0 {
		os.Exit(1)
	}
}

func printPending(repo *storage.Repository, expiry time.Duration) error {
	signals, err := repo.ListSignalsByStatus(storage.StatusActive)
	if err != nil {
		return err
	}
	if len(signals) == 0 {
		fmt.Println("No active signals.")
		return nil
	}

	prices, err := repo.ListMarketPrices()
	if err != nil {
		return err
	}
	priceByPair := make(map[string]storage.MarketPrice, len(prices))
	for _, p := range prices {
		priceByPair[p.PairID] = p
	}

	now := time.Now()
	fmt.Printf("Found %d active signal(s):\n\n", len(signals))
	for i := range signals {
		sig := &signals[i]
		price, ok := priceByPair[sig.PairID]
		if !ok {
			fmt.Printf("  %s %s: no price snapshot, would skip\n", sig.SignalType, sig.ID)
			continue
		}

		outcome := settle.Evaluate(sig, price.Price, now, expiry)
		if outcome == nil {
			fmt.Printf("  %s %s @ %g: stays open (price %g)\n",
				sig.SignalType, price.Symbol, sig.EntryPrice, price.Price)
			continue
		}
		note := ""
		if outcome.Expired {
			note = " (expired)"
		}
		fmt.Printf("  %s %s @ %g: would close %s %+.2f%%%s\n",
			sig.SignalType, price.Symbol, sig.EntryPrice,
			outcome.Status, outcome.ProfitPercent, note)
	}

	fmt.Println("\nDry run — nothing closed.")
	return nil
}
