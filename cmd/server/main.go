package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/paper-trader/internal/clients/yahoo"
	"github.com/aristath/paper-trader/internal/config"
	"github.com/aristath/paper-trader/internal/database"
	"github.com/aristath/paper-trader/internal/modules/instruments"
	"github.com/aristath/paper-trader/internal/modules/portfolio"
	"github.com/aristath/paper-trader/internal/modules/trading"
	"github.com/aristath/paper-trader/internal/scheduler"
	"github.com/aristath/paper-trader/internal/server"
	"github.com/aristath/paper-trader/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info"})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting paper trader")

	// The ledger profile fsyncs every write. Cash and trades live here.
	db, err := database.New(database.Config{
		Path:    cfg.DatabasePath,
		Profile: database.ProfileLedger,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Clients and repositories.
	yahooClient := yahoo.NewClient(log)

	instrumentRepo := instruments.NewRepository(db.Conn(), log)
	instrumentService := instruments.NewService(instrumentRepo, yahooClient, log)

	portfolioRepo := portfolio.NewPortfolioRepository(db.Conn(), log)
	holdingRepo := portfolio.NewHoldingRepository(db.Conn(), log)
	snapshotRepo := portfolio.NewSnapshotRepository(db.Conn(), log)
	tradeRepo := trading.NewTradeRepository(db.Conn(), log)

	ctx := context.Background()

	if err := instrumentService.Seed(ctx, instruments.DefaultSeed); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed instruments")
	}

	portfolioID, err := portfolioRepo.EnsureDefault(ctx, cfg.InitialCash)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create default portfolio")
	}

	portfolioService := portfolio.NewService(
		db,
		portfolioRepo,
		holdingRepo,
		snapshotRepo,
		instrumentService,
		tradeRepo,
		portfolioID,
		cfg.InitialCash,
		log,
	)

	engine := trading.NewEngine(trading.EngineConfig{
		DB:                   db,
		Portfolios:           portfolioRepo,
		Holdings:             holdingRepo,
		Trades:               tradeRepo,
		Instruments:          instrumentService,
		PortfolioID:          portfolioID,
		AllowFractionalSells: cfg.AllowFractionalSells,
	}, log)

	// Background jobs.
	sched := scheduler.New(log)
	priceRefreshJob := scheduler.NewPriceRefreshJob(instrumentService, log)
	if err := sched.AddJob(cfg.PriceRefreshSchedule, priceRefreshJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register price refresh job")
	}
	if err := sched.AddJob(cfg.SnapshotSchedule, scheduler.NewSnapshotJob(portfolioService, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register snapshot job")
	}
	sched.Start()
	defer sched.Stop()

	// Warm the price cache so the first portfolio view after a restart
	// does not serve stale prices.
	go func() {
		if err := sched.RunNow(priceRefreshJob); err != nil {
			log.Warn().Err(err).Msg("Startup price refresh failed")
		}
	}()

	srv := server.New(server.Config{
		Log:        log,
		DB:         db,
		Port:       cfg.Port,
		DevMode:    cfg.DevMode,
		Scheduler:  sched,
		Instrument: instruments.NewHandlers(instrumentService, log),
		Portfolio:  portfolio.NewHandlers(portfolioService, log),
		Trading:    trading.NewHandlers(engine, log),
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
