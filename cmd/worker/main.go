package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	_ "github.com/lib/pq"

	"github.com/ignite/outbound/internal/config"
	"github.com/ignite/outbound/internal/pkg/logger"
	"github.com/ignite/outbound/internal/repository/postgres"
	"github.com/ignite/outbound/internal/tracking"
)

// The worker drains the tracking queue into email_analytics.
func main() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}
	cfg, err := config.LoadFromEnv(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	if cfg.Tracking.SQSQueueURL == "" {
		log.Fatal("SQS_TRACKING_QUEUE_URL is required")
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime())

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	pingCancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.Provider.Region))
	if err != nil {
		log.Fatalf("aws config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := tracking.NewConsumer(sqs.NewFromConfig(awsCfg), cfg.Tracking.SQSQueueURL, postgres.NewAnalyticsRepo(db))
	consumer.Start(ctx)
	logger.Info("tracking worker running", "queue", cfg.Tracking.SQSQueueURL)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down tracking worker")
	cancel()
	consumer.Stop()
	logger.Info("tracking worker stopped")
}
