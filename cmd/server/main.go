package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/posware/stock-ledger-service/config"
	"github.com/posware/stock-ledger-service/internal/database"
	"github.com/posware/stock-ledger-service/internal/pkg/broker"
	"github.com/posware/stock-ledger-service/internal/pkg/cache"
	"github.com/posware/stock-ledger-service/internal/pkg/logger"

	resListenerPkg "github.com/posware/stock-ledger-service/internal/reservation/listener"
	resRepoPkg "github.com/posware/stock-ledger-service/internal/reservation/repository"
	resSweeperPkg "github.com/posware/stock-ledger-service/internal/reservation/sweeper"
	resUCPkg "github.com/posware/stock-ledger-service/internal/reservation/usecase"

	stockRepoPkg "github.com/posware/stock-ledger-service/internal/stock/repository"
	stockUCPkg "github.com/posware/stock-ledger-service/internal/stock/usecase"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load() // Load .env file if it exists
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.Config{
		IsDevelopment:     false,
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.Server.AppEnv == "dev" || cfg.Server.AppEnv == "development" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = "console"
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	// 3. Connect to Database
	db, err := database.NewPostgres(&database.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

	// 4. Initialize Redis
	redisClient, err := cache.NewRedisClient(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLogger.Warn("Could not connect to Redis, stock reads will not be cached", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
		appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	// 5. Initialize Kafka Consumer
	kafkaConsumer := broker.NewConsumer(&broker.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	})
	defer kafkaConsumer.Close()
	appLogger.Info("Connected to Kafka Consumer", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))

	// 6. Initialize Repositories
	stockRepo := stockRepoPkg.NewPGRepository(db)
	productDir := stockRepoPkg.NewPGProductDirectory(db)
	resRepo := resRepoPkg.NewPGRepository(db)

	// 7. Initialize UseCases
	stockUC := stockUCPkg.NewStockUseCase(stockRepo, productDir, redisClient, cfg.Redis.StockTTL, appLogger)
	resUC := resUCPkg.NewReservationUseCase(resRepo, stockRepo, cfg.Sweeper.DefaultTTL, appLogger)

	// 8. Start background workers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	saleListener := resListenerPkg.NewSaleListener(kafkaConsumer, resUC, stockUC, appLogger)
	go saleListener.Start(ctx)

	sweeper := resSweeperPkg.NewSweeper(resUC, cfg.Sweeper.Interval, appLogger)
	go sweeper.Start(ctx)

	appLogger.Info("Stock ledger service started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	cancel()
	appLogger.Info("Service stopped")
}
