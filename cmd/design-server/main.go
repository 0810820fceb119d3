// cmd/design-server/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"design-assistant/internal/auth"
	"design-assistant/internal/common/config"
	"design-assistant/internal/common/database"
	"design-assistant/internal/common/logger"
	"design-assistant/internal/common/observability"
	"design-assistant/internal/design"
	"design-assistant/internal/genai"
	"design-assistant/internal/notify"
	"design-assistant/internal/queue"
	"design-assistant/internal/search"
	"design-assistant/internal/server"
	"design-assistant/internal/store"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting design server...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("design-server")
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Generation Backend ---
	generator, err := genai.NewGeminiClient(ctx, cfg.GenAI.APIKey, cfg.GenAI.Model, config.GetDuration(cfg.GenAI.Timeout))
	if err != nil {
		zapLog.Fatal("generation backend init failed", zap.Error(err))
	}
	defer generator.Close()
	zapLog.Info("Generation backend client initialized", zap.String("model", cfg.GenAI.Model))

	// --- Init Notifier (SES/SNS, config-gated) ---
	notifier, err := notify.NewNotifier(ctx, cfg.Alerts, log)
	if err != nil {
		zapLog.Fatal("notifier init failed", zap.Error(err))
	}

	// --- Init Search Index (optional) ---
	var indexer *search.Indexer
	if cfg.Search.Enabled && cfg.Database.Elasticsearch.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		indexer = search.NewIndexer(esClient.Client, cfg.Database.Elasticsearch.Index, log)
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Wire Stores and Services ---
	users := store.NewUserStore(pg.DB)
	designs := store.NewDesignStore(pg.DB)

	producer := queue.NewProducer(redis.Client, cfg.Queue.JobTopic, cfg.Queue.DeadLetterTopic, log).
		WithAlerter(notifier)

	designSvc := design.NewService(users, designs, generator, producer, log).
		WithNotifier(notifier)
	if indexer != nil {
		designSvc = designSvc.WithIndexer(indexer)
	}

	authSvc := auth.NewService(users, cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenExpiry)*time.Minute, log)

	// --- Start Queue Consumer ---
	consumer := queue.NewConsumer(
		redis.Client,
		cfg.Queue.JobTopic,
		cfg.Queue.DeadLetterTopic,
		config.GetDuration(cfg.Queue.PollTimeout),
		designSvc.ProcessQueued,
		log,
	).WithAlerter(notifier)
	go func() {
		if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
			zapLog.Error("consumer stopped unexpectedly", zap.Error(err))
		}
	}()

	// --- Start HTTP Server ---
	srv := server.New(cfg.Server, authSvc, designSvc, indexer, log)
	go func() {
		if err := srv.Start(); err != nil {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http server shutdown failed", zap.Error(err))
	}

	zapLog.Info("Design server stopped gracefully")
}
