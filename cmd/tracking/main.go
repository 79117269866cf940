package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"

	"github.com/ignite/outbound/internal/config"
	"github.com/ignite/outbound/internal/metrics"
	"github.com/ignite/outbound/internal/pkg/logger"
	"github.com/ignite/outbound/internal/repository/postgres"
	"github.com/ignite/outbound/internal/tracking"
)

// The tracking service answers pixel and click hits on their own host so
// that mail clients never touch the API. Events go to SQS when a queue is
// configured and straight to Postgres otherwise.
func main() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}
	cfg, err := config.LoadFromEnv(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	port := cfg.Server.Port
	if os.Getenv("PORT") == "" {
		port = 8081
	}

	var rec tracking.Recorder
	switch {
	case cfg.Tracking.SQSQueueURL != "":
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.Provider.Region))
		if err != nil {
			log.Fatalf("aws config: %v", err)
		}
		rec = tracking.NewPublisher(sqs.NewFromConfig(awsCfg), cfg.Tracking.SQSQueueURL)
		logger.Info("tracking events published to SQS", "queue", cfg.Tracking.SQSQueueURL)
	case cfg.Database.URL != "":
		db, err := sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		defer db.Close()
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		rec = postgres.NewAnalyticsRepo(db)
		logger.Info("tracking events written to postgres")
	default:
		log.Fatal("SQS_TRACKING_QUEUE_URL or DATABASE_URL is required")
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.HTTPMiddleware)
	tracking.NewHandler(rec).Routes(r)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("tracking service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down tracking service")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}
