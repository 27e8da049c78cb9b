package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/avelez/signaldesk/internal/ai"
	"github.com/avelez/signaldesk/internal/config"
	"github.com/avelez/signaldesk/internal/history"
	"github.com/avelez/signaldesk/internal/ingest"
	"github.com/avelez/signaldesk/internal/logger"
	"github.com/avelez/signaldesk/internal/market"
	"github.com/avelez/signaldesk/internal/proposer"
	"github.com/avelez/signaldesk/internal/settle"
	"github.com/avelez/signaldesk/internal/storage"
	"github.com/avelez/signaldesk/internal/telegram"
	"github.com/avelez/signaldesk/internal/web"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level)
	log.Info("starting signaldesk")

	db, err := storage.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}
	repo := storage.NewRepository(db)

	if len(cfg.Pairs) > 0 {
		pairs := make([]storage.TradingPair, 0, len(cfg.Pairs))
		for _, p := range cfg.Pairs {
			pairs = append(pairs, storage.TradingPair{
				Symbol:    p.Symbol,
				Name:      p.Name,
				Category:  p.Category,
				IsActive:  true,
				IsPremium: p.IsPremium,
			})
		}
		if err := repo.SeedPairs(pairs); err != nil {
			log.Error("seed pairs failed", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Services
	chain := market.DefaultChain(
		market.NewBinanceSource(cfg.ProviderTimeout()),
		market.NewFrankfurterSource(cfg.ProviderTimeout()),
		market.NewTwelveDataSource(cfg.Providers.TwelveDataAPIKey, cfg.ProviderTimeout()),
	)
	notifier := telegram.NewNotifier(cfg, log)
	ingestSvc := ingest.NewService(repo, chain, cfg.Trading.FetchConcurrency, log)
	aiClient := ai.NewClient(cfg, log)
	proposerSvc := proposer.NewService(repo, aiClient, notifier, cfg.Trading.Timeframes, cfg.Trading.MinConfidence, log)
	engine := settle.NewEngine(repo, notifier, cfg.SignalExpiry(), log)
	aggregator := history.NewAggregator(repo)
	webServer := web.NewServer(ingestSvc, proposerSvc, engine, aggregator, repo, cfg, log)

	// Periodic rounds
	c := cron.New()
	register := func(name, spec string, run func(context.Context) error) {
		if _, err := c.AddFunc(spec, func() {
			if err := run(ctx); err != nil {
				log.Error(name+" round failed", "error", err)
				notifier.NotifyError(name, err)
			}
		}); err != nil {
			log.Error("register cron task failed", "task", name, "spec", spec, "error", err)
			os.Exit(1)
		}
	}
	register("refresh-prices", cfg.Schedules.Prices, func(ctx context.Context) error {
		_, err := ingestSvc.RefreshAll(ctx)
		return err
	})
	register("generate-signals", cfg.Schedules.Signals, func(ctx context.Context) error {
		_, err := proposerSvc.Propose(ctx, proposer.Request{})
		return err
	})
	register("settle-signals", cfg.Schedules.Settle, func(ctx context.Context) error {
		_, err := engine.Run(ctx)
		return err
	})
	c.Start()
	log.Info("scheduler started",
		"prices", cfg.Schedules.Prices,
		"signals", cfg.Schedules.Signals,
		"settle", cfg.Schedules.Settle)

	go func() {
		if err := webServer.Start(); err != nil {
			log.Error("web server error", "error", err)
		}
	}()

	notifier.NotifyStatus("🤖 signaldesk started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutdown signal received", "signal", sig.String())

	cancel()
	<-c.Stop().Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := webServer.Shutdown(shutdownCtx); err != nil {
		log.Error("web server shutdown error", "error", err)
	}

	notifier.NotifyStatus("🛑 signaldesk stopped")
	log.Info("signaldesk stopped")
}
