package main

import (
	"context"
	"log"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/kestrelhq/pagegen/internal/bundle"
	"github.com/kestrelhq/pagegen/internal/config"
	"github.com/kestrelhq/pagegen/internal/genmodel"
	"github.com/kestrelhq/pagegen/internal/jobstore"
	"github.com/kestrelhq/pagegen/internal/logging"
	"github.com/kestrelhq/pagegen/internal/notify"
	"github.com/kestrelhq/pagegen/internal/queue"
	"github.com/kestrelhq/pagegen/internal/sanitize"
	"github.com/kestrelhq/pagegen/internal/worker"
)

func workerConcurrency(cfg config.Config) int {
	return cfg.WorkerConcurrency
}

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	defer logger.Sync()

	db, err := jobstore.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	repo := jobstore.NewRepo(db)

	bundles, err := bundle.New(cfg.PreviewsPath)
	if err != nil {
		log.Fatalf("init bundle store: %v", err)
	}

	registry := genmodel.NewRegistry()
	registry.Register("ollama", func(ctx context.Context, model string) (genmodel.Provider, error) {
		m := strings.TrimSpace(model)
		if m == "" {
			m = cfg.OllamaModel
		}
		return genmodel.NewOllamaProvider(cfg.OllamaBaseURL, m, cfg.AITimeout), nil
	})
	registry.Register("openrouter", func(ctx context.Context, model string) (genmodel.Provider, error) {
		m := strings.TrimSpace(model)
		if m == "" {
			m = cfg.OpenRouterModel
		}
		return genmodel.NewOpenRouterProvider(
			cfg.OpenRouterBaseURL,
			cfg.OpenRouterAPIKey,
			m,
			cfg.OpenRouterSiteURL,
			cfg.OpenRouterAppName,
			cfg.AITimeout,
		), nil
	})

	publisher, err := queue.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Fatalf("connect queue publisher: %v", err)
	}
	defer publisher.Close()

	concurrency := workerConcurrency(cfg)
	consumer, err := queue.NewConsumer(cfg.RabbitURL, cfg.RabbitQueue, concurrency)
	if err != nil {
		log.Fatalf("connect queue consumer: %v", err)
	}
	defer consumer.Close()

	sender := notify.NewTelegramSender(cfg.TelegramBotToken)
	dispatcher := notify.New(sender, logger, 4, 256)

	wCfg := worker.Config{
		Provider:       cfg.AIProvider,
		Model:          "",
		ModelTimeout:   cfg.AITimeout,
		MaxRetries:     cfg.MaxRetries,
		RetryBaseDelay: cfg.RetryBaseDelay,
		RetryMaxDelay:  cfg.RetryMaxDelay,
		PreviewBaseURL: cfg.PreviewBaseURL,
	}
	w := worker.New(repo, registry, sanitize.New(), bundles, publisher, dispatcher, logger, wCfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deliveries, err := consumer.Deliveries(ctx)
	if err != nil {
		log.Fatalf("start consuming: %v", err)
	}

	logger.Info("worker started", "queue", cfg.RabbitQueue, "concurrency", concurrency, "max_retries", cfg.MaxRetries)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range deliveries {
				w.Process(ctx, d.Item)
				if err := d.Ack(); err != nil {
					logger.Warn("ack failed", "worker", workerID, "job_id", d.Item.JobID, "err", err)
				}
			}
		}(i)
	}

	<-ctx.Done()
	logger.Info("worker shutting down")
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		logger.Error("notification dispatcher shutdown error", "err", err)
	}
}
