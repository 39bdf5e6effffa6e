package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vitos/crypto_momentum_bot/internal/config"
	"github.com/vitos/crypto_momentum_bot/internal/infrastructure/exchange"
	"github.com/vitos/crypto_momentum_bot/internal/infrastructure/logger"
	"github.com/vitos/crypto_momentum_bot/internal/infrastructure/notifier"
	"github.com/vitos/crypto_momentum_bot/internal/infrastructure/storage"
	"github.com/vitos/crypto_momentum_bot/internal/scheduler"
	"github.com/vitos/crypto_momentum_bot/internal/usecase"
	"github.com/vitos/crypto_momentum_bot/internal/web"
	"go.uber.org/zap"
)

func main() {
	// 1. Load Config
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Init Logger
	var log *zap.Logger
	if cfg.Logging.File != "" {
		log, err = logger.NewFileLogger(cfg.Logging.File, cfg.Logging.Level)
	} else {
		log, err = logger.NewLogger(cfg.Logging.Level)
	}
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 3. Init Storage
	store, err := storage.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	// 4. Init Exchange (Binance)
	binanceAdapter := exchange.NewBinanceAdapter(
		cfg.Exchange.APIKey,
		cfg.Exchange.APISecret,
		cfg.Exchange.RESTEndpoint,
		cfg.Exchange.QuoteAsset,
		log,
	)

	// 5. Init Services
	signals := usecase.NewSignalEngine()
	risk := usecase.NewRiskManager(
		cfg.Trading.MaxPositionSizePercent,
		cfg.Trading.StopLossPercent,
		cfg.Trading.TakeProfitPercent,
	)
	ledger := usecase.NewPortfolioLedger(store, log)

	archived, err := store.ListTrades(context.Background(), 0)
	if err != nil {
		log.Error("Failed to load trade history", zap.Error(err))
	} else {
		ledger.SeedLifetime(archived)
	}

	engine := usecase.NewTradingEngine(
		usecase.EngineConfig{
			Symbols:          cfg.Trading.Symbols,
			Interval:         cfg.Trading.Interval,
			CandleLimit:      cfg.Trading.CandleLimit,
			MinNotionalUSD:   cfg.Trading.MinNotionalUSD,
			EntryThreshold:   cfg.Trading.EntryThreshold,
			HeatFloor:        cfg.Trading.HeatFloor,
			QuoteAsset:       cfg.Exchange.QuoteAsset,
			DailySummaryTime: cfg.Discord.DailySummaryTime,
		},
		binanceAdapter,
		binanceAdapter,
		binanceAdapter,
		signals,
		risk,
		ledger,
		log,
	)

	// 6. Init Notifiers
	tradingNotifier := notifier.NewDiscordNotifier(cfg.Discord.WebhookTrading, log)
	errorNotifier := notifier.NewDiscordNotifier(cfg.Discord.WebhookErrors, log)
	summaryNotifier := notifier.NewDiscordNotifier(cfg.Discord.WebhookDailySummary, log)

	engine.AddObserver(notifier.NewTradeObserver(tradingNotifier))
	engine.SetErrorSink(errorNotifier)
	engine.SetSummarySink(summaryNotifier)

	state := web.NewDashboardState()
	engine.AddObserver(state)

	// 7. Initialize Engine (account snapshot + position recovery)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := engine.Initialize(ctx); err != nil {
		log.Fatal("Failed to initialize trading engine", zap.Error(err))
	}

	account, err := binanceAdapter.Account(ctx)
	if err != nil {
		log.Error("Failed to fetch account for startup notice", zap.Error(err))
	} else {
		tradingNotifier.SendStartup(account.Equity, cfg.Trading.Symbols)
	}

	// 8. Start Trading Loop
	loop := scheduler.NewLoop(time.Duration(cfg.Trading.CycleSeconds)*time.Second, log)
	go loop.Run(ctx, engine.RunCycle)

	// 9. Start Websocket Hub + Web Server
	hub := web.NewHub(state, engine.Positions, log)
	go hub.Run(ctx, 1*time.Second)

	server := web.NewServer(cfg.Server.Port, state, hub, engine, ledger, store, log)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// 10. Wait for Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)

	account, err = binanceAdapter.Account(shutdownCtx)
	if err != nil {
		log.Error("Failed to fetch account for shutdown notice", zap.Error(err))
		return
	}
	tradingNotifier.SendShutdown(account.Equity, ledger.Stats())
}
