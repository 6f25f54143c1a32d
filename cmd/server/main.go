// Command server runs the museion ledger: institution registry, token
// custody, marketplace, funds, reward ledger, and the event pipeline behind
// one HTTP API. main only assembles; every rule lives in the internal
// services.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs"
	"golang.org/x/sync/errgroup"

	bankhandler "museion/internal/bank/handler"
	bankservice "museion/internal/bank/service"
	bankaccount "museion/internal/bank/store/account"
	"museion/internal/events"
	"museion/internal/events/archive"
	eventhandler "museion/internal/events/handler"
	eventmetrics "museion/internal/events/metrics"
	"museion/internal/events/relay"
	"museion/internal/events/store/outbox"
	httpapi "museion/internal/http"
	markethandler "museion/internal/market/handler"
	marketmetrics "museion/internal/market/metrics"
	marketservice "museion/internal/market/service"
	"museion/internal/market/store/auction"
	"museion/internal/market/store/listing"
	"museion/internal/platform/config"
	"museion/internal/platform/httpserver"
	"museion/internal/platform/identity"
	"museion/internal/platform/kafka"
	"museion/internal/platform/logger"
	"museion/internal/platform/metrics"
	"museion/internal/platform/postgres"
	"museion/internal/platform/redis"
	"museion/internal/platform/tracing"
	registryhandler "museion/internal/registry/handler"
	registrymetrics "museion/internal/registry/metrics"
	registryservice "museion/internal/registry/service"
	"museion/internal/registry/store/institution"
	rewardhandler "museion/internal/rewards/handler"
	rewardmetrics "museion/internal/rewards/metrics"
	rewardservice "museion/internal/rewards/service"
	rewardaccount "museion/internal/rewards/store/account"
	"museion/internal/rewards/store/ranking"
	tokenhandler "museion/internal/token/handler"
	tokenmetrics "museion/internal/token/metrics"
	tokenservice "museion/internal/token/service"
	tokenstore "museion/internal/token/store/token"
	"museion/pkg/platform/tx"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "museion: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.LogLevel)

	tracingShutdown, err := tracing.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := tracingShutdown(context.Background()); err != nil {
			log.Error("tracing shutdown failed", "error", err)
		}
	}()

	checks := map[string]httpapi.HealthChecker{}

	// Stores: Postgres when a DSN is configured, in-memory otherwise. The
	// runner must match the stores: the SQL runner carries a shared sql.Tx,
	// the serial runner makes in-memory commits atomic by mutual exclusion.
	var (
		db     *sql.DB
		runner tx.Runner

		institutions registryservice.InstitutionStore
		tokens       tokenservice.TokenStore
		accounts     bankservice.AccountStore
		rewardAccts  rewardservice.AccountStore
		listings     marketservice.ListingStore
		auctions     marketservice.AuctionStore
		outboxStore  events.Store
	)
	if cfg.PostgresDSN != "" {
		db, err = postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		checks["postgres"] = sqlHealth{db}

		runner = tx.NewSQLRunner(db)
		institutions = institution.NewPostgres(db)
		tokens = tokenstore.NewPostgres(db)
		accounts = bankaccount.NewPostgres(db)
		rewardAccts = rewardaccount.NewPostgres(db)
		listings = listing.NewPostgres(db)
		auctions = auction.NewPostgres(db)
		outboxStore = outbox.NewPostgres(db)
	} else {
		log.Warn("no postgres DSN configured, running with in-memory stores")
		runner = tx.NewSerialRunner()
		institutions = institution.NewInMemory()
		tokens = tokenstore.NewInMemory()
		accounts = bankaccount.NewInMemory()
		rewardAccts = rewardaccount.NewInMemory()
		listings = listing.NewInMemory()
		auctions = auction.NewInMemory()
		outboxStore = outbox.NewInMemory()
	}

	pipelineMetrics := eventmetrics.New()
	publisher := events.NewOutboxPublisher(outboxStore, log).WithMetrics(pipelineMetrics)

	redisClient, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		checks["redis"] = redisClient
	}

	kafkaClient, err := kafka.New(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		return fmt.Errorf("connect kafka: %w", err)
	}
	if kafkaClient != nil {
		defer kafkaClient.Close()
		checks["kafka"] = kafkaClient
	}

	var eventArchive *archive.Archive
	if cfg.ArchiveDir != "" {
		eventArchive, err = archive.Open(cfg.ArchiveDir)
		if err != nil {
			return fmt.Errorf("open event archive: %w", err)
		}
		defer eventArchive.Close()
	}

	// Services. The reward recorder and registry gate are passed as in-process
	// capabilities so their writes join the caller's transaction.
	registrySvc := registryservice.New(institutions, runner, cfg.Admin(),
		registryservice.WithLogger(log),
		registryservice.WithMetrics(registrymetrics.New()),
		registryservice.WithPublisher(publisher),
	)
	rewardOpts := []rewardservice.Option{
		rewardservice.WithLogger(log),
		rewardservice.WithMetrics(rewardmetrics.New()),
		rewardservice.WithPublisher(publisher),
	}
	if redisClient != nil {
		rewardOpts = append(rewardOpts, rewardservice.WithRankingIndex(ranking.New(redisClient)))
	}
	rewardSvc := rewardservice.New(rewardAccts, rewardOpts...)
	tokenSvc := tokenservice.New(tokens, registrySvc, runner,
		tokenservice.WithLogger(log),
		tokenservice.WithMetrics(tokenmetrics.New()),
		tokenservice.WithPublisher(publisher),
		tokenservice.WithRewardRecorder(rewardSvc),
	)
	bankSvc := bankservice.New(accounts, runner, cfg.Admin(),
		bankservice.WithLogger(log),
	)
	marketSvc := marketservice.New(listings, auctions, tokenSvc, bankSvc, runner, cfg.Treasury(),
		marketservice.WithLogger(log),
		marketservice.WithMetrics(marketmetrics.New()),
		marketservice.WithPublisher(publisher),
		marketservice.WithRewardRecorder(rewardSvc),
	)

	// The event feed reads from the archive when one exists; the outbox is
	// the fallback so the feed works in every deployment shape.
	var feed eventhandler.Reader = outboxStore
	if eventArchive != nil {
		feed = eventArchive
	}

	identitySvc := identity.NewService(cfg.JWTSigningKey, "museion", "museion")

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:         log,
		Metrics:        metrics.New(),
		TokenValidator: identitySvc,
		RequestTimeout: cfg.RequestTimeout,

		Registry: registryhandler.New(registrySvc, log),
		Token:    tokenhandler.New(tokenSvc, log),
		Market:   markethandler.New(marketSvc, log),
		Bank:     bankhandler.New(bankSvc, log),
		Rewards:  rewardhandler.New(rewardSvc, log),
		Events:   eventhandler.New(feed, log),

		Checks: checks,
	})

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if kafkaClient != nil {
		relayOpts := []relay.Option{relay.WithMetrics(pipelineMetrics)}
		if eventArchive != nil {
			relayOpts = append(relayOpts, relay.WithArchive(eventArchive))
		}
		eventRelay := relay.New(outboxStore, kafkaClient, log, relayOpts...)
		group.Go(func() error {
			err := eventRelay.Run(groupCtx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

type sqlHealth struct {
	db *sql.DB
}

func (h sqlHealth) Health(ctx context.Context) error {
	return h.db.PingContext(ctx)
}
