package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/outbound/internal/api"
	"github.com/ignite/outbound/internal/auth"
	"github.com/ignite/outbound/internal/config"
	"github.com/ignite/outbound/internal/identity"
	"github.com/ignite/outbound/internal/mailapi"
	"github.com/ignite/outbound/internal/pkg/distlock"
	"github.com/ignite/outbound/internal/pkg/logger"
	"github.com/ignite/outbound/internal/repository/postgres"
	"github.com/ignite/outbound/internal/service/campaign"
	"github.com/ignite/outbound/internal/tracking"
	"github.com/ignite/outbound/internal/webhook"
)

// checkPortAvailable fails fast when another process already holds the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

func configPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config/config.yaml"
}

func main() {
	cfg, err := config.LoadFromEnv(configPath())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	host := cfg.Server.GetHost()
	if err := checkPortAvailable(host, cfg.Server.Port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
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
		logger.Warn("database ping failed at startup", "error", err)
	}
	pingCancel()

	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Invalid REDIS_URL: %v", err)
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
		logger.Info("dispatch locks backed by redis")
	} else {
		logger.Info("dispatch locks backed by postgres advisory locks")
	}

	mailClient, err := mailapi.NewFromConfig(cfg.Provider)
	if err != nil {
		log.Fatalf("Failed to build mail client: %v", err)
	}
	if !cfg.Provider.HasCredentials() {
		logger.Warn("mail provider credentials are not set; sends and domain calls will fail")
	}

	var awsCfg aws.Config
	if cfg.Tracking.SQSQueueURL != "" || cfg.DNS.Route53HostedZoneID != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.DNS.Region))
		if err != nil {
			log.Fatalf("Failed to load AWS config: %v", err)
		}
	}

	analytics := postgres.NewAnalyticsRepo(db)

	var trackRec tracking.Recorder = analytics
	if cfg.Tracking.SQSQueueURL != "" {
		trackRec = tracking.NewPublisher(sqs.NewFromConfig(awsCfg), cfg.Tracking.SQSQueueURL)
		logger.Info("tracking events published to SQS", "queue", cfg.Tracking.SQSQueueURL)
	}

	dispatcher := campaign.NewDispatcher(
		postgres.NewCampaignRepo(db),
		postgres.NewContactRepo(db),
		postgres.NewProfileRepo(db),
		mailClient,
		tracking.NewInjector(cfg.Tracking.BaseURL),
		analytics,
		campaign.Options{
			Concurrency:      cfg.Dispatch.Concurrency,
			DefaultFromEmail: cfg.Provider.DefaultFromEmail,
			DefaultFromName:  cfg.Provider.DefaultFromName,
			Locks:            distlock.NewFactory(rdb, db, cfg.Dispatch.LockTTL()),
			LockTTL:          cfg.Dispatch.LockTTL(),
		},
	)

	hooks := webhook.NewDispatcher(
		postgres.NewWebhookRepo(db),
		postgres.NewWebhookLogRepo(db),
		webhook.Options{Timeout: cfg.Webhook.Timeout(), MaxAttempts: cfg.Webhook.MaxAttempts},
	)

	var dns identity.DNSPublisher
	if cfg.DNS.Route53HostedZoneID != "" {
		dns = identity.NewRoute53Publisher(route53.NewFromConfig(awsCfg), cfg.DNS.Route53HostedZoneID)
		logger.Info("DKIM records published to Route53", "zone", cfg.DNS.Route53HostedZoneID)
	}
	domains := identity.NewManager(postgres.NewIdentityRepo(db), mailClient, dns)

	router := api.NewRouter(api.RouterDeps{
		Handlers:       api.NewHandlers(dispatcher, hooks, domains),
		Health:         api.NewHealthChecker(db, rdb, mailClient),
		Auth:           auth.NewAuthenticator(cfg.Auth.JWTSecret),
		Tracking:       tracking.NewHandler(trackRec),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("outbound server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down outbound server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
