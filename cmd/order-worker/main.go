package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/givefolio/givefolio-backend/internal/allocation"
	"github.com/givefolio/givefolio-backend/internal/audit"
	"github.com/givefolio/givefolio-backend/internal/charity"
	"github.com/givefolio/givefolio-backend/internal/matcher"
	"github.com/givefolio/givefolio-backend/internal/notifications"
	"github.com/givefolio/givefolio-backend/internal/orders"
	"github.com/givefolio/givefolio-backend/internal/portfolio"
	"github.com/givefolio/givefolio-backend/internal/transparency"
	"github.com/givefolio/givefolio-backend/internal/users"
	"github.com/givefolio/givefolio-backend/pkg/config"
	"github.com/givefolio/givefolio-backend/pkg/db"
	"github.com/givefolio/givefolio-backend/pkg/logger"
	"github.com/givefolio/givefolio-backend/pkg/metrics"
	"github.com/givefolio/givefolio-backend/pkg/migrate"
	"github.com/givefolio/givefolio-backend/pkg/pubsub"
	"github.com/givefolio/givefolio-backend/pkg/quotes"
	"github.com/givefolio/givefolio-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "order-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "order-worker"

	logg = logger.New(logger.Options{
		ServiceName: "order-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	quotesClient, err := quotes.NewClient(cfg.Quotes, logg, quotes.WithCache(redisClient))
	if err != nil {
		logg.Error(context.Background(), "failed to create quotes client", err)
		os.Exit(1)
	}

	engine, err := allocation.NewEngine(cfg.Charity, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create allocation engine", err)
		os.Exit(1)
	}

	usersRepo := users.NewRepository(dbClient.DB())
	charityRepo := charity.NewRepository(dbClient.DB())
	allocationRepo := allocation.NewRepository(dbClient.DB())
	auditRecorder := audit.NewRecorder(dbClient.DB(), logg)

	selector, err := charity.NewSelector(charityRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create charity selector", err)
		os.Exit(1)
	}

	transparencyLogger := transparency.NewNoopLogger()
	if cfg.PubSub.TransparencyTopic != "" {
		pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		transparencyLogger = transparency.NewPubSubLogger(pubsubClient.TransparencyPublisher(), logg)
	}

	matcherMetrics := metrics.NewMatcherMetrics(prometheus.DefaultRegisterer)

	portfolioService, err := portfolio.NewService(portfolio.Config{
		DB:           dbClient,
		Repo:         portfolio.NewRepository(dbClient.DB()),
		Users:        usersRepo,
		Charities:    charityRepo,
		Selector:     selector,
		Allocations:  allocationRepo,
		Engine:       engine,
		Transparency: transparencyLogger,
		Quotes:       quotesClient,
		Metrics:      matcherMetrics,
		Logger:       logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create portfolio service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	lock, err := matcher.NewRedisLock(redisClient, redisClient.LockKey("order-matcher"), cfg.Matcher.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create matcher lock", err)
		os.Exit(1)
	}

	service, err := matcher.NewService(matcher.ServiceParams{
		Logger:        logg,
		Lock:          lock,
		Orders:        orders.NewRepository(dbClient.DB()),
		Trades:        portfolioService,
		Quotes:        quotesClient,
		Notifications: notificationsService,
		Audit:         auditRecorder,
		Metrics:       matcherMetrics,
		Interval:      cfg.Matcher.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create matcher service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting order worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "order worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "order worker shutting down gracefully")
}
