package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	_ "github.com/snowflakedb/gosnowflake"

	"github.com/ignite/adaptive-core/internal/api"
	"github.com/ignite/adaptive-core/internal/config"
	"github.com/ignite/adaptive-core/internal/learning"
	"github.com/ignite/adaptive-core/internal/llm"
	"github.com/ignite/adaptive-core/internal/performance"
	"github.com/ignite/adaptive-core/internal/pkg/distlock"
	"github.com/ignite/adaptive-core/internal/pkg/httpretry"
	"github.com/ignite/adaptive-core/internal/pkg/keylock"
	"github.com/ignite/adaptive-core/internal/pkg/logger"
	"github.com/ignite/adaptive-core/internal/repository/postgres"
	"github.com/ignite/adaptive-core/internal/storage"
	"github.com/ignite/adaptive-core/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(cfg.Logging.RedactPII)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		logger.Error("server exited", "error", err)
		logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.New(reg)

	// Campaign database
	db, err := postgres.Open(ctx, "postgres", cfg.Database.URL, postgres.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetimeMinutes) * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("campaign database: %w", err)
	}
	defer db.Close()
	logger.Info("campaign database connected")

	analyticsDB, err := openAnalytics(ctx, cfg, db)
	if err != nil {
		return err
	}
	if analyticsDB != db {
		defer analyticsDB.Close()
	}

	awsCfg, err := loadAWSConfig(ctx, cfg.AWS)
	if err != nil {
		return fmt.Errorf("aws config: %w", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable at startup", "error", err)
		} else {
			logger.Info("redis connected")
		}
	}

	clients := storage.Clients{RedisPrefix: cfg.Redis.KeyPrefix}
	if redisClient != nil {
		clients.Redis = redisClient
	}
	if cfg.Storage.ProfileBackend == "s3" {
		clients.S3 = s3.NewFromConfig(awsCfg)
	}
	if cfg.Storage.ModelBackend == "dynamodb" {
		clients.DynamoDB = dynamodb.NewFromConfig(awsCfg)
	}
	stores, err := storage.New(cfg.Storage, clients)
	if err != nil {
		return err
	}
	logger.Info("learning storage ready", "profiles", cfg.Storage.ProfileBackend, "models", cfg.Storage.ModelBackend)

	var locks learning.Locker = keylock.New()
	if redisClient != nil {
		locks = distlock.NewKeyLocker(redisClient, cfg.Redis.KeyPrefix+"lock:", cfg.Redis.LockTTL())
	}

	// Insight text generation
	var generator learning.TextGenerator
	var breaker api.BreakerStater
	if gen := newGenerator(cfg.LLM, awsCfg); gen != nil {
		resilient := llm.NewResilient(cfg.LLM.Provider, gen, llm.BreakerSettings{
			Timeout:             cfg.LLM.Timeout(),
			ConsecutiveFailures: uint32(cfg.LLM.BreakerFailures),
			OpenFor:             cfg.LLM.BreakerOpenFor(),
		}, metrics)
		generator, breaker = resilient, resilient
		logger.Info("insight generator enabled", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)
	} else {
		logger.Info("insight generator disabled, using deterministic insights")
	}
	insights, err := learning.NewInsightGenerator(generator, cfg.LLM.Timeout(), metrics)
	if err != nil {
		return err
	}

	campaigns := postgres.NewCampaignRepo(db)
	learningService := learning.NewService(learning.Config{
		MaterialityThresholds: cfg.Learning.MaterialityThresholds,
		Confidence: learning.ConfidenceParams{
			SampleWeightCap:   cfg.Learning.SampleWeightCap,
			MaturityCampaigns: cfg.Learning.MaturityCampaigns,
		},
		EMAAlpha:           cfg.Learning.EMAAlpha,
		BaselinePrediction: cfg.Learning.BaselinePrediction,
	}, learning.Deps{
		Campaigns: campaigns,
		Profiles:  stores.Profiles,
		Models:    stores.Models,
		Locks:     locks,
		Insights:  insights,
		Metrics:   metrics,
	})

	// Performance monitoring and optimization
	analytics, err := postgres.NewAnalyticsRepo(analyticsDB, cfg.Analytics.Driver, cfg.Analytics.Table)
	if err != nil {
		return err
	}
	overrides := make(map[string]performance.Benchmark, len(cfg.Benchmarks))
	for industry, b := range cfg.Benchmarks {
		overrides[industry] = performance.Benchmark{CTR: b.CTR, CPC: b.CPC, ConversionRate: b.ConversionRate}
	}
	monitor := performance.NewMonitor(performance.MonitorConfig{
		Window: cfg.Monitoring.Window(),
		Guarantee: performance.GuaranteeTerms{
			CTRMultiplier: cfg.Guarantee.CTRMultiplier,
			ROIPercent:    cfg.Guarantee.ROIPercent,
		},
		Benchmarks: performance.DefaultBenchmarks().With(overrides),
	}, campaigns, analytics, metrics)

	var executor performance.ActionExecutor
	if cfg.Monitoring.ExecutorURL != "" {
		executor = performance.NewWebhookExecutor(cfg.Monitoring.ExecutorURL, &http.Client{Timeout: cfg.Monitoring.ActionTimeout()})
		logger.Info("optimization actions sent to external executor", "url", cfg.Monitoring.ExecutorURL)
	} else {
		executor = performance.NewQueueExecutor(postgres.NewActionRepo(db))
	}

	var notifier performance.Notifier
	if cfg.Alerts.Enabled {
		ses, err := performance.NewSESNotifier(sesv2.NewFromConfig(awsCfg), cfg.Alerts.FromAddress, cfg.Alerts.Recipients)
		if err != nil {
			return fmt.Errorf("guarantee alerts: %w", err)
		}
		notifier = ses
		logger.Info("guarantee miss alerts enabled", "recipients", len(cfg.Alerts.Recipients))
	}

	optimizer, err := performance.NewOptimizer(performance.OptimizerDeps{
		Monitor:   monitor,
		Campaigns: campaigns,
		Executor:  executor,
		Notifier:  notifier,
		Metrics:   metrics,
	}, cfg.Monitoring.ActionTimeout())
	if err != nil {
		return err
	}
	scheduler := performance.NewScheduler(cfg.Monitoring.InitialDelay(), optimizer.ScheduledCheck)

	var health *api.HealthChecker
	if redisClient != nil {
		health = api.NewHealthChecker(db, redisClient, breaker)
	} else {
		health = api.NewHealthChecker(db, nil, breaker)
	}
	handlers := api.NewHandlers(api.HandlerDeps{
		Learning:  learningService,
		Monitor:   monitor,
		Optimizer: optimizer,
		Scheduler: scheduler,
		Campaigns: campaigns,
	})
	router := api.SetupRoutes(handlers, health, reg, cfg.Server.CORSOrigins)
	server := api.NewServer(cfg.Server, router)

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-done:
		logger.Info("shutting down")
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Warn("scheduled checks still running at shutdown", "error", err)
	}

	logger.Info("server stopped")
	return nil
}

// openAnalytics returns the analytics connection. An empty DSN with the
// postgres driver reuses the campaign database.
func openAnalytics(ctx context.Context, cfg *config.Config, db *sql.DB) (*sql.DB, error) {
	if cfg.Analytics.DSN == "" {
		if cfg.Analytics.Driver != "postgres" {
			return nil, fmt.Errorf("analytics driver %q requires a dsn", cfg.Analytics.Driver)
		}
		return db, nil
	}
	adb, err := postgres.Open(ctx, cfg.Analytics.Driver, cfg.Analytics.DSN, postgres.PoolConfig{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return nil, fmt.Errorf("analytics database: %w", err)
	}
	logger.Info("analytics database connected", "driver", cfg.Analytics.Driver)
	return adb, nil
}

func loadAWSConfig(ctx context.Context, c config.AWSConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(c.Region)}
	if profile := c.GetProfile(); profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	if c.AccessKey != "" && c.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, ""),
		))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// newGenerator returns the configured text generator, or nil when insight
// text comes from the deterministic fallback only.
func newGenerator(c config.LLMConfig, awsCfg aws.Config) learning.TextGenerator {
	switch c.Provider {
	case "bedrock":
		return llm.NewBedrockGenerator(bedrockruntime.NewFromConfig(awsCfg), c.Model, c.MaxTokens)
	case "openai":
		if c.OpenAIAPIKey == "" {
			logger.Warn("openai provider selected without an api key")
			return nil
		}
		client := httpretry.NewRetryClient(&http.Client{Timeout: c.Timeout()}, httpretry.Options{
			MaxRetries: c.MaxRetries,
			BaseDelay:  time.Second,
		})
		return llm.NewOpenAIGenerator(c.OpenAIAPIKey, c.Model, c.OpenAIBaseURL, c.MaxTokens, client)
	case "none", "":
		return nil
	default:
		logger.Warn("unknown llm provider, insight generator disabled", "provider", c.Provider)
		return nil
	}
}
