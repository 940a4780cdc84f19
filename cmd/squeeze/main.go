package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/squeeze/internal/cache"
	"github.com/fjod/squeeze/internal/config"
	"github.com/fjod/squeeze/internal/consumer"
	"github.com/fjod/squeeze/internal/directory"
	h "github.com/fjod/squeeze/internal/http"
	"github.com/fjod/squeeze/internal/ledger"
	"github.com/fjod/squeeze/internal/localstore"
	"github.com/fjod/squeeze/internal/logger"
	"github.com/fjod/squeeze/internal/publisher"
	"github.com/fjod/squeeze/internal/qrcode"
	"github.com/fjod/squeeze/internal/repository"
	"github.com/fjod/squeeze/internal/session"
	"github.com/fjod/squeeze/internal/wallet"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type caches interface {
	cache.DirectoryCache
	cache.BalanceCache
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	lg, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer lg.Sync()
	zap.ReplaceGlobals(lg)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// the demo stores share one memory repository so directory and ledger
	// see the same wallets
	memory := repository.NewSeededMemory()

	// Business directory
	var directoryRepo repository.DirectoryRepository = memory
	if cfg.MongoURI != "" {
		mongoDB, err := repository.ConnectMongoDB(ctx, repository.MongoConfig{
			URI:         cfg.MongoURI,
			Database:    cfg.MongoDBName,
			Timeout:     cfg.MongoTimeout,
			MaxPoolSize: cfg.MongoMaxPoolSize,
		})
		if err != nil {
			lg.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		defer mongoDB.Client().Disconnect(context.Background())

		mongoRepo := repository.NewMongoDirectory(mongoDB)
		if err := mongoRepo.CreateIndexes(ctx); err != nil {
			lg.Fatal("Failed to create indexes", zap.Error(err))
		}
		if err := mongoRepo.Seed(ctx, repository.SeedBusinesses(time.Now().UTC())); err != nil {
			lg.Fatal("Failed to seed directory", zap.Error(err))
		}
		directoryRepo = mongoRepo
		lg.Info("Connected to MongoDB", zap.String("database", cfg.MongoDBName))
	}

	// Ledger
	var ledgerRepo repository.LedgerRepository = memory
	if cfg.DBHost != "" {
		cred := &repository.Credentials{
			Host:              cfg.DBHost,
			Port:              cfg.DBPort,
			User:              cfg.DBUser,
			Password:          cfg.DBPassword,
			DBName:            cfg.DBName,
			MigrationsDirPath: cfg.MigrationsPath,
		}
		pg, err := repository.NewPostgresLedger(cred)
		if err != nil {
			lg.Fatal("Failed to connect to Postgres", zap.Error(err))
		}
		defer pg.Close()
		if err := pg.RunMigrations(cred); err != nil {
			lg.Fatal("Failed to run migrations", zap.Error(err))
		}
		ledgerRepo = pg
		lg.Info("Connected to Postgres", zap.String("host", cfg.DBHost))
	}
	if cfg.UsesMemoryStores() {
		lg.Warn("running with in-memory stores, data is lost on restart")
	}

	// Cache
	var c caches = cache.Nop{}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			lg.Fatal("Redis connection failed", zap.Error(err))
		}
		lg.Info("Redis ping succeeded")
		c = cache.NewRedisCache(redisClient)
	}

	// Device-local store
	var local localstore.Store = localstore.NewMemory()
	if cfg.LocalStorePath != "" {
		sqlite, err := localstore.NewSQLiteStore(cfg.LocalStorePath)
		if err != nil {
			lg.Fatal("Failed to open local store", zap.Error(err))
		}
		defer sqlite.Close()
		if err := sqlite.RunMigrations(cfg.LocalMigrationsPath); err != nil {
			lg.Fatal("Failed to migrate local store", zap.Error(err))
		}
		local = sqlite
	}

	settings := ledger.DefaultBreakerSettings()
	settings.FailureThreshold = cfg.BreakerFailures
	settings.Timeout = cfg.BreakerOpenTimeout

	directoryService := directory.NewService(directoryRepo, c, lg.Named("directory"))
	ledgerService := ledger.NewService(ledgerRepo, c, settings, lg.Named("ledger"))

	// Transfer events
	if len(cfg.KafkaBrokers) > 0 {
		poller := publisher.NewOutboxPoller(ledgerRepo, lg.Named("outbox"), cfg.KafkaBrokers...)
		defer poller.Close()
		go poller.Run(ctx)

		invalidator := consumer.NewBalanceInvalidator(c, lg.Named("balance-consumer"), cfg.KafkaBrokers...)
		defer invalidator.Close()
		go invalidator.Run(ctx)
		lg.Info("Kafka enabled", zap.Strings("brokers", cfg.KafkaBrokers))
	}

	manager := session.NewManager(session.Deps{
		Directory: directoryService,
		Payer:     ledgerService,
		Balances:  ledgerService,
		Names:     directoryService,
		Codec:     qrcode.NewCodec(cfg.QRImageEndpoint, cfg.DeepLinkBase),
		Local:     local,
		Auth:      wallet.NewHostClient(cfg.HostAuthURL, cfg.HostAuthTimeout),
		Logger:    lg.Named("session"),
	}, cfg.SessionTTL, cfg.SessionCleanup)
	defer manager.Close()

	router := h.NewRouter(h.RouterConfig{
		Sessions:       h.NewSessionHandler(manager, cfg.RequestTimeout, lg.Named("http")),
		Directory:      h.NewDirectoryHandler(directoryService, cfg.RequestTimeout),
		RequestTimeout: cfg.RequestTimeout,
		Logger:         lg.Named("http"),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		lg.Info("squeeze starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lg.Info("shutting down server...")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("server forced to shutdown", zap.Error(err))
	}
	lg.Info("server exited")
}
