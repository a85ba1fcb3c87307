package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/givefolio/givefolio-backend/api/routes"
	"github.com/givefolio/givefolio-backend/internal/allocation"
	"github.com/givefolio/givefolio-backend/internal/audit"
	"github.com/givefolio/givefolio-backend/internal/auth"
	"github.com/givefolio/givefolio-backend/internal/charity"
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
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	authService, err := auth.NewService(auth.ServiceParams{
		Users:          usersRepo,
		Sessions:       redisClient,
		Engine:         engine,
		Audit:          auditRecorder,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	usersService, err := users.NewService(usersRepo, engine, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
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

	var quotesProvider quotes.Provider
	if cfg.Quotes.APIKey != "" {
		quotesClient, err := quotes.NewClient(cfg.Quotes, logg, quotes.WithCache(redisClient))
		if err != nil {
			logg.Error(context.Background(), "failed to create quotes client", err)
			os.Exit(1)
		}
		quotesProvider = quotesClient
	}

	portfolioService, err := portfolio.NewService(portfolio.Config{
		DB:           dbClient,
		Repo:         portfolio.NewRepository(dbClient.DB()),
		Users:        usersRepo,
		Charities:    charityRepo,
		Selector:     selector,
		Allocations:  allocationRepo,
		Engine:       engine,
		Transparency: transparencyLogger,
		Quotes:       quotesProvider,
		Metrics:      metrics.NewAllocationMetrics(prometheus.DefaultRegisterer),
		Logger:       logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create portfolio service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	charityService, err := charity.NewService(charityRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create charity service", err)
		os.Exit(1)
	}

	allocationService, err := allocation.NewService(allocationRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create allocation service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, routes.Services{
			Auth:          authService,
			Users:         usersService,
			Portfolio:     portfolioService,
			Orders:        ordersService,
			Charities:     charityService,
			Allocations:   allocationService,
			Notifications: notificationsService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
