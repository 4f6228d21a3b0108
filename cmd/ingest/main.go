package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kestrelhq/pagegen/internal/config"
	"github.com/kestrelhq/pagegen/internal/ingest"
	"github.com/kestrelhq/pagegen/internal/jobstore"
	"github.com/kestrelhq/pagegen/internal/logging"
	"github.com/kestrelhq/pagegen/internal/notify"
	"github.com/kestrelhq/pagegen/internal/queue"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	defer logger.Sync()

	db, err := jobstore.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	repo := jobstore.NewRepo(db)

	publisher, err := queue.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Fatalf("connect queue: %v", err)
	}
	defer publisher.Close()

	sender := notify.NewTelegramSender(cfg.TelegramBotToken)
	dispatcher := notify.New(sender, logger, 4, 256)

	limiter := ingest.NewRateLimiter(cfg.IngressRatePerSecond, cfg.IngressBurst)

	var dedupe *ingest.DedupeCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		dedupe = ingest.NewDedupeCache(rdb, 10*time.Minute)
	}

	handler := ingest.NewHandler(repo, publisher, dispatcher, limiter, dedupe, cfg.TelegramSecretToken, logger)
	router := ingest.NewRouter(handler, logger)

	srv := &http.Server{
		Addr:              cfg.IngestListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("ingest listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
		}
	}()

	<-ctx.Done()
	logger.Info("ingest shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "err", err)
	}
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		logger.Error("notification dispatcher shutdown error", "err", err)
	}
}
