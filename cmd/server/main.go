package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kjannette/satsval-backend/internal/api"
	"github.com/kjannette/satsval-backend/internal/config"
	"github.com/kjannette/satsval-backend/internal/db"
	"github.com/kjannette/satsval-backend/internal/external"
	"github.com/kjannette/satsval-backend/internal/logging"
	"github.com/kjannette/satsval-backend/internal/repository"
	"github.com/kjannette/satsval-backend/internal/valuation"
	"github.com/kjannette/satsval-backend/internal/xpub"
	"github.com/rs/zerolog"
)

const banner = `
╔══════════════════════════════════════╗
║      SATSVAL Wallet Valuation v0.1   ║
║                                      ║
╚══════════════════════════════════════╝
`

func main() {
	fmt.Print(banner)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel, cfg.LogPretty)

	if err := cfg.Validate(log); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	cfg.Print(log)

	// Transaction index and price history
	blockchair := external.NewBlockchairClient(external.BlockchairOptions{
		BaseURL: cfg.BlockchairBaseURL,
		APIKey:  cfg.BlockchairAPIKey,
		Limit:   cfg.BlockchairTxLimit,
	}, log)

	coingecko := external.NewCoinGeckoClient(external.CoinGeckoOptions{
		BaseURL: cfg.CoinGeckoBaseURL,
		APIKey:  cfg.CoinGeckoAPIKey,
	}, log)

	var prices valuation.PriceHistory = coingecko
	deps := api.Deps{Normalizer: xpub.NewCodec(log)}

	// Optional quote cache
	if cfg.QuoteCacheEnabled {
		pool := openQuoteCache(cfg, log)
		defer func() {
			pool.Close()
			log.Info().Str("component", "db").Msg("connection pool closed")
		}()

		quotes := repository.NewQuoteRepo(pool)
		prices = external.NewCachedPriceHistory(coingecko, quotes, "coingecko", log)
		deps.QuoteCache = quotes
	} else {
		log.Info().Msg("quote cache disabled, every lookup goes to CoinGecko")
	}

	deps.Valuer = valuation.NewPipeline(blockchair, prices, log,
		valuation.WithMaxConcurrentLookups(cfg.MaxConcurrentPriceCall),
	)

	// Graceful shutdown context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := api.NewServer(deps, cfg.APIPort, cfg.APIKey, cfg.CORSAllowOrigin, log)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("api server error")
		}
	}()

	log.Info().Msg("all services started successfully")

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info().Msg("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("api shutdown error")
	}
	log.Info().Msg("shutdown complete")
}

func openQuoteCache(cfg *config.Config, log zerolog.Logger) *pgxpool.Pool {
	dbLog := log.With().Str("component", "db").Logger()

	dbLog.Info().Msgf("connecting to %s:%d/%s", cfg.DBHost, cfg.DBPort, cfg.DBName)
	pool, err := db.Connect(cfg.DSN())
	if err != nil {
		dbLog.Fatal().Err(err).Msg("connection failed")
	}

	if err := db.TestConnection(pool, dbLog); err != nil {
		pool.Close()
		dbLog.Fatal().Err(err).Msg("test query failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		dbLog.Fatal().Err(err).Msg("schema setup failed")
	}
	return pool
}
