package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ignite/outbound-lab/internal/domain"
	"github.com/ignite/outbound-lab/internal/metrics"
	"github.com/ignite/outbound-lab/internal/service/abtest"
	"github.com/ignite/outbound-lab/internal/service/lifecycle"
)

// DefaultEvaluatorInterval is how often running tests are re-evaluated.
const DefaultEvaluatorInterval = 5 * time.Minute

// evaluatorPageSize bounds how many running tests one cycle examines.
const evaluatorPageSize = 200

// TestEvaluator periodically evaluates running tests and completes those
// with a statistically significant winner. Completion loses gracefully to
// concurrent manual stops: the guarded transition in the store makes exactly
// one writer win.
type TestEvaluator struct {
	tests     *abtest.Service
	lifecycle *lifecycle.Service
	interval  time.Duration

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.RWMutex
	running   bool
	healthy   bool
	lastRunAt time.Time
}

// NewTestEvaluator creates an evaluator with the default interval.
func NewTestEvaluator(tests *abtest.Service, lc *lifecycle.Service) *TestEvaluator {
	return &TestEvaluator{
		tests:     tests,
		lifecycle: lc,
		interval:  DefaultEvaluatorInterval,
		healthy:   true,
	}
}

// SetInterval overrides the polling interval. Call before Start.
func (te *TestEvaluator) SetInterval(d time.Duration) { te.interval = d }

// Start begins the evaluation loop.
func (te *TestEvaluator) Start() {
	te.mu.Lock()
	if te.running {
		te.mu.Unlock()
		return
	}
	te.running = true
	te.ctx, te.cancel = context.WithCancel(context.Background())
	te.mu.Unlock()

	log.Printf("[TestEvaluator] Starting (interval=%s)", te.interval)

	te.wg.Add(1)
	go func() {
		defer te.wg.Done()
		te.runOnce()

		ticker := time.NewTicker(te.interval)
		defer ticker.Stop()
		for {
			select {
			case <-te.ctx.Done():
				log.Println("[TestEvaluator] Stopped")
				return
			case <-ticker.C:
				te.runOnce()
			}
		}
	}()
}

// Stop cancels the loop and waits for the current cycle to finish.
func (te *TestEvaluator) Stop() {
	te.mu.Lock()
	if !te.running {
		te.mu.Unlock()
		return
	}
	te.running = false
	te.mu.Unlock()
	te.cancel()
	te.wg.Wait()
}

// IsHealthy reports whether the last cycle completed without errors.
func (te *TestEvaluator) IsHealthy() bool {
	te.mu.RLock()
	defer te.mu.RUnlock()
	return te.healthy
}

// LastRunAt returns when the last cycle started.
func (te *TestEvaluator) LastRunAt() time.Time {
	te.mu.RLock()
	defer te.mu.RUnlock()
	return te.lastRunAt
}

func (te *TestEvaluator) runOnce() {
	te.mu.Lock()
	te.lastRunAt = time.Now()
	te.mu.Unlock()

	ctx, cancel := context.WithTimeout(te.ctx, 2*time.Minute)
	defer cancel()

	tests, _, err := te.tests.ListTests(ctx, abtest.TestFilter{
		Status: domain.TestRunning,
		Limit:  evaluatorPageSize,
	})
	if err != nil {
		log.Printf("[TestEvaluator] list running tests: %v", err)
		te.setHealthy(false)
		return
	}

	ok := true
	for _, t := range tests {
		if err := te.evaluateTest(ctx, t.ID); err != nil {
			log.Printf("[TestEvaluator] evaluate test %s: %v", t.ID, err)
			ok = false
		}
	}
	te.setHealthy(ok)
}

func (te *TestEvaluator) evaluateTest(ctx context.Context, testID string) error {
	sig, err := te.tests.Evaluate(ctx, testID)
	if err != nil {
		return err
	}
	switch {
	case !sig.Eligible:
		metrics.IncEvaluation("ineligible")
		return nil
	case !sig.Significant:
		metrics.IncEvaluation("not_significant")
		return nil
	}
	metrics.IncEvaluation("significant")

	winner, err := te.tests.SelectWinner(ctx, testID)
	if err != nil {
		return err
	}
	if winner.Outcome != abtest.WinnerFound {
		// Significant spread but nobody at minimum sample; next cycle
		// will see it again.
		return nil
	}

	err = te.lifecycle.CompleteWithWinner(ctx, testID, winner.VariantID)
	if err == lifecycle.ErrInvalidTransition {
		// Lost the race to a manual stop or another evaluator.
		log.Printf("[TestEvaluator] Test %s already completed elsewhere", testID)
		return nil
	}
	if err != nil {
		return err
	}

	metrics.IncTestCompleted()
	pv := 0.0
	if sig.PValue != nil {
		pv = *sig.PValue
	}
	log.Printf("[TestEvaluator] Test %s completed: winner=%s reply_rate=%.4f sends=%d p=%.4f",
		testID, winner.VariantID, winner.ReplyRate, winner.Sends, pv)
	return nil
}

func (te *TestEvaluator) setHealthy(ok bool) {
	te.mu.Lock()
	te.healthy = ok
	te.mu.Unlock()
}
