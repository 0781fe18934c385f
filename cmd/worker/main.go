package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/outbound-lab/internal/config"
	"github.com/ignite/outbound-lab/internal/instantly"
	"github.com/ignite/outbound-lab/internal/metrics"
	"github.com/ignite/outbound-lab/internal/repository/postgres"
	"github.com/ignite/outbound-lab/internal/service/abtest"
	"github.com/ignite/outbound-lab/internal/service/campaign"
	"github.com/ignite/outbound-lab/internal/service/lifecycle"
	"github.com/ignite/outbound-lab/internal/worker"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// Standalone worker binary: runs the evaluator, lifecycle sweeper, and
// engagement sync without the HTTP API. Deploy alongside the server when
// background load should be isolated from request serving.
func main() {
	log.Println("Starting outbound-lab workers...")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
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

	metrics.SetGlobal(metrics.New())

	abtestRepo := postgres.NewABTestRepo(db)
	tests := abtest.NewService(abtestRepo)
	lc := lifecycle.NewService(postgres.NewLifecycleRepo(db)).
		WithWindows(cfg.Lifecycle.Retention(), cfg.Lifecycle.BounceMaxAge())
	campaigns := campaign.NewService(postgres.NewCampaignRepo(db))

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

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("Received %s, shutting down", sig)
}
