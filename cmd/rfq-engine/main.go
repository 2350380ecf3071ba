package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/Checker-Finance/rfq-engine/internal/api"
	"github.com/Checker-Finance/rfq-engine/internal/oracle"
	"github.com/Checker-Finance/rfq-engine/internal/orderbook"
	"github.com/Checker-Finance/rfq-engine/internal/predicate"
	"github.com/Checker-Finance/rfq-engine/internal/publisher"
	"github.com/Checker-Finance/rfq-engine/internal/rate"
	"github.com/Checker-Finance/rfq-engine/internal/registry"
	"github.com/Checker-Finance/rfq-engine/internal/rfq"
	"github.com/Checker-Finance/rfq-engine/internal/settlement"
	"github.com/Checker-Finance/rfq-engine/internal/store"
	"github.com/Checker-Finance/rfq-engine/internal/sweeper"
	"github.com/Checker-Finance/rfq-engine/pkg/config"
	"github.com/Checker-Finance/rfq-engine/pkg/logger"
	"github.com/Checker-Finance/rfq-engine/pkg/secrets"
	"github.com/Checker-Finance/rfq-engine/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load()

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer logger.Sync()
	logg := logger.S()
	logg.Info("starting [rfq-engine]...")

	// --- Store ---
	var st store.Store
	switch cfg.StoreBackend {
	case "postgres":
		logg.Info("connection to DSN: ", utils.MaskDSN(cfg.DatabaseURL))
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL, store.PGPoolConfig{
			MaxConns:          int32(cfg.PGMaxConns),
			MinConns:          int32(cfg.PGMinConns),
			MaxConnLifetime:   cfg.PGMaxConnLifetime,
			MaxConnIdleTime:   cfg.PGMaxConnIdleTime,
			HealthCheckPeriod: cfg.PGHealthCheckPeriod,
		}, logger.L())
		if err != nil {
			logg.Fatalw("failed to init postgres store", "error", err)
		}
		st = pg
	default:
		st = store.NewMemory()
	}

	// --- AWS Secrets Manager provider (per-chain oracle feed config) ---
	awsProvider, err := secrets.NewAWSProvider(cfg.AWSRegion)
	if err != nil {
		logg.Fatalw("failed to create AWS Secrets Manager provider", "error", err)
	}

	feedCache := secrets.NewCache[oracle.FeedConfig](cfg.CacheTTL)
	stopCleaner := make(chan struct{})
	go feedCache.StartCleaner(cfg.CleanupFreq, stopCleaner)

	feedResolver := oracle.NewAWSResolver(
		logger.L(),
		cfg.Env,
		awsProvider,
		feedCache,
		cfg.OracleChains,
	)

	// --- Redis price cache + oracle source ---
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		DB:       cfg.RedisDB,
		Password: cfg.RedisPass,
	})
	priceCache := oracle.NewPriceCache(rdb, cfg.OracleCacheTTL, logger.L())

	oracleRate := rate.NewManager(rate.Config{
		RequestsPerSecond: cfg.OracleRPS,
		Burst:             cfg.OracleBurst,
	})
	oracleSource := oracle.NewHTTPSource(feedResolver, priceCache, oracleRate, logger.L())

	// --- Optional websocket price stream keeps the cache warm ---
	var stream *oracle.Stream
	if cfg.OracleStreamOn && len(cfg.OracleStreamFeeds) > 0 && len(cfg.OracleChains) > 0 {
		chainID := cfg.OracleChains[0]
		feedCfg, err := feedResolver.Resolve(ctx, chainID)
		if err != nil || feedCfg.WSURL == "" {
			logg.Warnw("oracle stream disabled", "error", err)
		} else {
			stream = oracle.NewStream(feedCfg.WSURL, feedCfg.APIKey, chainID, cfg.OracleStreamFeeds, priceCache, logger.L())
			if err := stream.Connect(ctx); err != nil {
				logg.Warnw("oracle stream connect failed, continuing on REST only", "error", err)
				stream = nil
			}
		}
	}

	// --- NATS + publisher ---
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		logg.Fatalw("failed to connect to NATS", "error", err)
	}
	pub, err := publisher.New(nc, cfg.ServiceName)
	if err != nil {
		logg.Fatalw("failed to init publisher", "error", err)
	}

	// --- Core components ---
	reg := registry.New(st, logger.L())

	validator := predicate.NewValidator(predicate.Config{
		MinTolerance: cfg.MinTolerance,
		MaxTolerance: cfg.MaxTolerance,
		DefaultTTL:   cfg.PredicateTTL,
	}, st, oracleSource, cfg.OracleChains, logger.L())

	minAmount, err := decimal.NewFromString(cfg.MinAmount)
	if err != nil {
		logg.Fatalw("MIN_AMOUNT is not a decimal", "value", cfg.MinAmount)
	}
	maxAmount, err := decimal.NewFromString(cfg.MaxAmount)
	if err != nil {
		logg.Fatalw("MAX_AMOUNT is not a decimal", "value", cfg.MaxAmount)
	}

	resolverRate := rate.NewManager(rate.Config{
		RequestsPerSecond: cfg.ResolverRPS,
		Burst:             cfg.ResolverBurst,
	})

	engine := rfq.NewEngine(rfq.Config{
		MinAmount:       minAmount,
		MaxAmount:       maxAmount,
		MinSlippage:     cfg.MinSlippage,
		MaxSlippage:     cfg.MaxSlippage,
		RequestExpiry:   cfg.RequestExpiry,
		QuoteValidity:   cfg.QuoteValidity,
		MaxOpenRequests: cfg.MaxOpenRequests,
	}, st, reg, validator, resolverRate, pub, logger.L())

	book := orderbook.NewIndex(orderbook.Config{
		MinOrderAmount:    minAmount,
		MaxOrderAmount:    maxAmount,
		MaxAllowedSenders: 10,
		MinSlippage:       cfg.MinSlippage,
		MaxSlippage:       cfg.MaxSlippage,
	}, st, reg, logger.L())

	// --- Expiry sweeper ---
	sw := sweeper.New(logger.L(), cfg.SweepInterval,
		sweeper.Func{Entity: "rfq", Run: engine.CleanupExpired},
		sweeper.Func{Entity: "orderbook", Run: book.CleanupExpiredOrders},
		sweeper.Func{Entity: "predicate", Run: validator.SweepExpired},
	)
	go sw.Start(ctx)

	// --- Settlement report consumer ---
	consumer, err := settlement.NewConsumer(cfg.RabbitURL, cfg.SettlementQueue, engine, logger.L())
	if err != nil {
		logg.Warnw("settlement consumer disabled", "error", err)
	} else if err := consumer.Start(ctx); err != nil {
		logg.Warnw("settlement consumer failed to start", "error", err)
	}

	// --- Fiber HTTP server ---
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
		BodyLimit:    cfg.HTTPBodyLimit,
	})

	rfqHandler := api.NewRFQHandler(logger.L(), engine)
	orderbookHandler := api.NewOrderbookHandler(logger.L(), book)
	adminHandler := api.NewAdminHandler(logger.L(), reg, validator)
	api.RegisterRoutes(app, nc, st, rfqHandler, orderbookHandler, adminHandler)

	go func() {
		logg.Infof("HTTP API listening on :%d", cfg.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Fatalw("fiber.listen_failed", "error", err)
		}
	}()

	logg.Infow("[rfq-engine] running",
		"nats", cfg.NATSURL,
		"env", cfg.Env,
		"store", cfg.StoreBackend,
		"sweep_interval", cfg.SweepInterval)

	<-ctx.Done()
	logg.Info("shutting down [rfq-engine]...")

	close(stopCleaner)
	sw.Stop()
	if stream != nil {
		if err := stream.Close(); err != nil {
			logg.Warnw("oracle.stream_close_failed", "error", err)
		}
	}
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logg.Warnw("settlement.close_failed", "error", err)
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warnw("fiber.shutdown_failed", "error", err)
	}
	if err := nc.Drain(); err != nil {
		logg.Warnw("nats.drain_failed", "error", err)
	}
	if err := st.Close(); err != nil {
		logg.Warnw("store.close_failed", "error", err)
	}
}
