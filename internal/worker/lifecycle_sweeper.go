package worker

import (
	"context"
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/outbound-lab/internal/metrics"
	"github.com/ignite/outbound-lab/internal/pkg/distlock"
	"github.com/ignite/outbound-lab/internal/service/lifecycle"
)

// DefaultSweepInterval is how often the archival and purge sweeps run.
const DefaultSweepInterval = 1 * time.Hour

// sweepLockTTL caps how long a crashed host can hold the sweep lock.
const sweepLockTTL = 10 * time.Minute

// LifecycleSweeper runs the archival sweep and the bounced-send purge on a
// ticker. Both sweeps are idempotent, but a distributed lock keeps them
// single-flight across hosts so logs and metrics count each batch once.
type LifecycleSweeper struct {
	svc         *lifecycle.Service
	db          *sql.DB
	redisClient *redis.Client // optional; nil falls back to PG advisory locks
	interval    time.Duration

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.RWMutex
	running   bool
	healthy   bool
	lastRunAt time.Time
}

// NewLifecycleSweeper creates a sweeper with the default interval.
func NewLifecycleSweeper(svc *lifecycle.Service, db *sql.DB) *LifecycleSweeper {
	return &LifecycleSweeper{
		svc:      svc,
		db:       db,
		interval: DefaultSweepInterval,
		healthy:  true,
	}
}

// SetRedisClient enables Redis-based locking. If unset, the sweeper uses
// PostgreSQL advisory locks.
func (ls *LifecycleSweeper) SetRedisClient(client *redis.Client) {
	ls.redisClient = client
}

// SetInterval overrides the sweep interval. Call before Start.
func (ls *LifecycleSweeper) SetInterval(d time.Duration) { ls.interval = d }

// Start begins the sweep loop.
func (ls *LifecycleSweeper) Start() {
	ls.mu.Lock()
	if ls.running {
		ls.mu.Unlock()
		return
	}
	ls.running = true
	ls.ctx, ls.cancel = context.WithCancel(context.Background())
	ls.mu.Unlock()

	log.Printf("[LifecycleSweeper] Starting (interval=%s)", ls.interval)

	ls.wg.Add(1)
	go func() {
		defer ls.wg.Done()
		ls.runOnce()

		ticker := time.NewTicker(ls.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ls.ctx.Done():
				log.Println("[LifecycleSweeper] Stopped")
				return
			case <-ticker.C:
				ls.runOnce()
			}
		}
	}()
}

// Stop cancels the loop and waits for the current sweep to finish.
func (ls *LifecycleSweeper) Stop() {
	ls.mu.Lock()
	if !ls.running {
		ls.mu.Unlock()
		return
	}
	ls.running = false
	ls.mu.Unlock()
	ls.cancel()
	ls.wg.Wait()
}

// IsHealthy reports whether the last sweep completed without errors.
func (ls *LifecycleSweeper) IsHealthy() bool {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	return ls.healthy
}

// LastRunAt returns when the last sweep started.
func (ls *LifecycleSweeper) LastRunAt() time.Time {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	return ls.lastRunAt
}

func (ls *LifecycleSweeper) runOnce() {
	ls.mu.Lock()
	ls.lastRunAt = time.Now()
	ls.mu.Unlock()

	ctx, cancel := context.WithTimeout(ls.ctx, 5*time.Minute)
	defer cancel()

	lock := distlock.NewLock(ls.redisClient, ls.db, "lifecycle:sweep", sweepLockTTL)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		log.Printf("[LifecycleSweeper] acquire lock: %v", err)
		ls.setHealthy(false)
		return
	}
	if !acquired {
		log.Println("[LifecycleSweeper] Sweep already running on another host")
		return
	}
	defer lock.Release(ctx)

	ok := true
	archived, err := ls.svc.ArchiveSweep(ctx)
	if err != nil {
		log.Printf("[LifecycleSweeper] archive sweep: %v", err)
		ok = false
	} else {
		metrics.AddTestsArchived(archived)
	}

	purged, err := ls.svc.PurgeBouncedSends(ctx)
	if err != nil {
		log.Printf("[LifecycleSweeper] purge bounced sends: %v", err)
		ok = false
	} else {
		metrics.AddBouncedSendsPurged(purged)
	}

	ls.setHealthy(ok)
}

func (ls *LifecycleSweeper) setHealthy(ok bool) {
	ls.mu.Lock()
	ls.healthy = ok
	ls.mu.Unlock()
}
