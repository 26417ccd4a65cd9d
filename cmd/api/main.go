package main

import (
	"bookstore-payments/internal/client"
	"bookstore-payments/internal/config"
	"bookstore-payments/internal/event"
	"bookstore-payments/internal/logger"
	"bookstore-payments/internal/repository"
	"bookstore-payments/internal/server"
	"bookstore-payments/internal/service"
	"bookstore-payments/internal/storage"
	apptrace "bookstore-payments/internal/trace"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("service stopped with error", logger.Err(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	if cfg.Tracing.Enabled {
		tp, err := apptrace.InitTracer(ctx, cfg.Tracing.ServiceName)
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				log.Warn("tracer shutdown", logger.Err(err))
			}
		}()
	}

	db, err := client.InitDB(cfg.Database)
	if err != nil {
		return err
	}

	fileStorage, err := storage.NewLocalStorage(cfg.Storage.Dir, cfg.Storage.PublicBaseURL)
	if err != nil {
		return err
	}

	var locker client.Locker = client.NopLocker{}
	if cfg.Redis.Addr != "" {
		rdb := client.NewRedisClient(cfg.Redis)
		defer rdb.Close()
		locker = client.NewRedisLocker(rdb)
	}

	var publisher event.Publisher = event.NopPublisher{}
	if cfg.RabbitMQ.URL != "" {
		rabbit, err := event.NewRabbitPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			return err
		}
		defer rabbit.Close()
		publisher = rabbit
	}

	bookRepo := repository.NewBookRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	proofRepo := repository.NewProofRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	payoutRepo := repository.NewPayoutRepository(db)

	if cfg.Database.Seed {
		if err := bookRepo.Seed(ctx); err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
	}

	statsService := service.NewStatsService(db, bookRepo, reviewRepo, statsRepo, log)
	services := server.Services{
		Catalog: service.NewCatalogService(bookRepo),
		Orders: service.NewOrderService(
			db, bookRepo, orderRepo, notificationRepo, statsRepo, payoutRepo,
			locker, publisher,
			cfg.Payment.StoreBankReference, cfg.Payment.IdempotencyTTL,
			log,
		),
		Payment: service.NewPaymentService(db, notificationRepo, orderRepo, proofRepo, statsRepo, publisher, log),
		Proofs: service.NewProofService(
			db, notificationRepo, orderRepo, proofRepo, statsRepo,
			fileStorage, publisher, cfg.Storage.MaxProofBytes, log,
		),
		Access: service.NewAccessService(bookRepo, orderRepo, statsRepo, log),
		Stats:  statsService,
	}

	go statsService.RunRecompute(ctx, cfg.Stats.RecomputeInterval)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	srv := server.NewServer(cfg, services, log)

	log.Info("starting HTTP server", slog.String("addr", serverAddr))
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	log.Info("signal received, starting graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	return srv.Shutdown(shutdownCtx)
}
