package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/outbound-lab/internal/api"
	"github.com/ignite/outbound-lab/internal/auth"
	"github.com/ignite/outbound-lab/internal/config"
	"github.com/ignite/outbound-lab/internal/instantly"
	"github.com/ignite/outbound-lab/internal/metrics"
	"github.com/ignite/outbound-lab/internal/pkg/logger"
	"github.com/ignite/outbound-lab/internal/repository/postgres"
	"github.com/ignite/outbound-lab/internal/service/abtest"
	"github.com/ignite/outbound-lab/internal/service/campaign"
	"github.com/ignite/outbound-lab/internal/service/lifecycle"
	"github.com/ignite/outbound-lab/internal/worker"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"
)

func main() {
	log.Println("Starting outbound-lab server...")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Logging.Level == "debug" {
		logger.SetLevel(logger.DEBUG)
	}

	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Minute)

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Connected to database")

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Printf("Redis unavailable, sweep locking falls back to advisory locks: %v", err)
			redisClient = nil
		}
	}

	m := metrics.New()
	metrics.SetGlobal(m)

	abtestRepo := postgres.NewABTestRepo(db)
	lifecycleRepo := postgres.NewLifecycleRepo(db)
	campaignRepo := postgres.NewCampaignRepo(db)

	tests := abtest.NewService(abtestRepo)
	lc := lifecycle.NewService(lifecycleRepo).
		WithWindows(cfg.Lifecycle.Retention(), cfg.Lifecycle.BounceMaxAge())
	campaigns := campaign.NewService(campaignRepo)

	// Background workers
	evaluator := worker.NewTestEvaluator(tests, lc)
	evaluator.SetInterval(cfg.Workers.EvaluatorInterval())
	evaluator.Start()
	defer evaluator.Stop()

	sweeper := worker.NewLifecycleSweeper(lc, db)
	sweeper.SetRedisClient(redisClient)
	sweeper.SetInterval(cfg.Workers.SweepInterval())
	sweeper.Start()
	defer sweeper.Stop()

	if cfg.Instantly.APIKey != "" {
		platform := instantly.NewClient(cfg.Instantly.APIKey, cfg.Instantly.BaseURL)
		sync := worker.NewEngagementSync(platform, abtestRepo, tests, campaigns)
		sync.SetInterval(cfg.Workers.SyncInterval())
		sync.Start()
		defer sync.Stop()
	} else {
		log.Println("INSTANTLY_API_KEY not set, engagement sync disabled")
	}

	var authManager *auth.Manager
	if len(cfg.Auth.Keys) > 0 {
		keys := make([]auth.Key, 0, len(cfg.Auth.Keys))
		for _, k := range cfg.Auth.Keys {
			keys = append(keys, auth.Key{Token: k.Token, Name: k.Name, Role: auth.Role(k.Role)})
		}
		authManager = auth.NewManager(keys)
		log.Printf("API key auth enabled with %d keys", len(keys))
	} else {
		log.Println("No API keys configured, API is open")
	}

	handlers := api.NewHandlers(tests, lc, campaigns)
	server := api.NewServer(cfg.Server, handlers, authManager, m)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s", cfg.Server.Addr())
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("Server error: %v", err)
	case sig := <-sigCh:
		log.Printf("Received %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
