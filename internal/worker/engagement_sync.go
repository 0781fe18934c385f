package worker

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/ignite/outbound-lab/internal/domain"
	"github.com/ignite/outbound-lab/internal/instantly"
	"github.com/ignite/outbound-lab/internal/metrics"
	"github.com/ignite/outbound-lab/internal/service/abtest"
	"github.com/ignite/outbound-lab/internal/service/campaign"
)

// DefaultSyncInterval is how often engagement is pulled from the platform.
const DefaultSyncInterval = 10 * time.Minute

// EventSource is the subset of the platform client the sync worker needs.
type EventSource interface {
	GetLeadActivity(ctx context.Context, campaignID, email, eventType string) ([]instantly.Activity, error)
	AllReplies(ctx context.Context, campaignID string) ([]instantly.Reply, error)
}

// SendResolver maps a platform event back to the local send it belongs to.
type SendResolver interface {
	LatestSendForRecipient(ctx context.Context, campaignID, email string) (*domain.Send, error)
}

// EngagementSync pulls open/reply/bounce events from the sending platform
// and applies them through the tracking service. The platform reports whole
// event histories, not deltas, so re-seeing an event is the normal case;
// at-most-once accounting comes from the service gating on the send's
// nullable engagement timestamps.
type EngagementSync struct {
	source    EventSource
	resolver  SendResolver
	tests     *abtest.Service
	campaigns *campaign.Service
	interval  time.Duration

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.RWMutex
	running   bool
	healthy   bool
	lastRunAt time.Time
}

// NewEngagementSync creates a sync worker with the default interval.
func NewEngagementSync(source EventSource, resolver SendResolver, tests *abtest.Service, campaigns *campaign.Service) *EngagementSync {
	return &EngagementSync{
		source:    source,
		resolver:  resolver,
		tests:     tests,
		campaigns: campaigns,
		interval:  DefaultSyncInterval,
		healthy:   true,
	}
}

// SetInterval overrides the sync interval. Call before Start.
func (es *EngagementSync) SetInterval(d time.Duration) { es.interval = d }

// Start begins the sync loop.
func (es *EngagementSync) Start() {
	es.mu.Lock()
	if es.running {
		es.mu.Unlock()
		return
	}
	es.running = true
	es.ctx, es.cancel = context.WithCancel(context.Background())
	es.mu.Unlock()

	log.Printf("[EngagementSync] Starting (interval=%s)", es.interval)

	es.wg.Add(1)
	go func() {
		defer es.wg.Done()
		es.runOnce()

		ticker := time.NewTicker(es.interval)
		defer ticker.Stop()
		for {
			select {
			case <-es.ctx.Done():
				log.Println("[EngagementSync] Stopped")
				return
			case <-ticker.C:
				es.runOnce()
			}
		}
	}()
}

// Stop cancels the loop and waits for the current cycle to finish.
func (es *EngagementSync) Stop() {
	es.mu.Lock()
	if !es.running {
		es.mu.Unlock()
		return
	}
	es.running = false
	es.mu.Unlock()
	es.cancel()
	es.wg.Wait()
}

// IsHealthy reports whether the last cycle completed without errors.
func (es *EngagementSync) IsHealthy() bool {
	es.mu.RLock()
	defer es.mu.RUnlock()
	return es.healthy
}

// LastRunAt returns when the last cycle started.
func (es *EngagementSync) LastRunAt() time.Time {
	es.mu.RLock()
	defer es.mu.RUnlock()
	return es.lastRunAt
}

func (es *EngagementSync) runOnce() {
	es.mu.Lock()
	es.lastRunAt = time.Now()
	es.mu.Unlock()

	ctx, cancel := context.WithTimeout(es.ctx, 5*time.Minute)
	defer cancel()

	campaigns, _, err := es.campaigns.List(ctx, campaign.ListFilter{
		Status: domain.CampaignActive,
		Limit:  200,
	})
	if err != nil {
		log.Printf("[EngagementSync] list campaigns: %v", err)
		es.setHealthy(false)
		return
	}

	ok := true
	for _, c := range campaigns {
		if c.PlatformCampID == nil {
			continue
		}
		if err := es.syncCampaign(ctx, c.ID, *c.PlatformCampID); err != nil {
			log.Printf("[EngagementSync] sync campaign %s: %v", c.ID, err)
			ok = false
		}
	}
	es.setHealthy(ok)
}

// syncCampaign pulls opens, bounces and replies for one campaign and applies
// each through the tracking service.
func (es *EngagementSync) syncCampaign(ctx context.Context, campaignID, platformID string) error {
	opens, err := es.source.GetLeadActivity(ctx, platformID, "", "opened")
	if err != nil {
		return err
	}
	for _, a := range opens {
		es.applyOpen(ctx, campaignID, a)
	}

	bounces, err := es.source.GetLeadActivity(ctx, platformID, "", "bounced")
	if err != nil {
		return err
	}
	for _, a := range bounces {
		es.applyBounce(ctx, campaignID, a)
	}

	replies, err := es.source.AllReplies(ctx, platformID)
	if err != nil {
		return err
	}
	for _, r := range replies {
		es.applyReply(ctx, campaignID, r)
	}
	return nil
}

func (es *EngagementSync) applyOpen(ctx context.Context, campaignID string, a instantly.Activity) {
	snd, err := es.resolver.LatestSendForRecipient(ctx, campaignID, a.Email)
	if err != nil {
		metrics.IncEngagementEvent("open", "unmatched")
		return
	}
	switch err := es.tests.TrackOpen(ctx, snd.ID, a.Timestamp); {
	case err == nil:
		metrics.IncEngagementEvent("open", "applied")
	case errors.Is(err, abtest.ErrAlreadyRecorded):
		metrics.IncEngagementEvent("open", "duplicate")
	default:
		metrics.IncEngagementEvent("open", "error")
		log.Printf("[EngagementSync] track open for send %s: %v", snd.ID, err)
	}
}

func (es *EngagementSync) applyBounce(ctx context.Context, campaignID string, a instantly.Activity) {
	snd, err := es.resolver.LatestSendForRecipient(ctx, campaignID, a.Email)
	if err != nil {
		metrics.IncEngagementEvent("bounce", "unmatched")
		return
	}
	if err := es.tests.TrackBounce(ctx, snd.ID); err != nil {
		metrics.IncEngagementEvent("bounce", "error")
		log.Printf("[EngagementSync] track bounce for send %s: %v", snd.ID, err)
		return
	}
	metrics.IncEngagementEvent("bounce", "applied")
}

func (es *EngagementSync) applyReply(ctx context.Context, campaignID string, r instantly.Reply) {
	snd, err := es.resolver.LatestSendForRecipient(ctx, campaignID, r.Email)
	if err != nil {
		metrics.IncEngagementEvent("reply", "unmatched")
		return
	}
	switch err := es.tests.TrackReply(ctx, snd.ID, r.Timestamp, mapSentiment(r.Sentiment)); {
	case err == nil:
		metrics.IncEngagementEvent("reply", "applied")
	case errors.Is(err, abtest.ErrAlreadyRecorded):
		metrics.IncEngagementEvent("reply", "duplicate")
	default:
		metrics.IncEngagementEvent("reply", "error")
		log.Printf("[EngagementSync] track reply for send %s: %v", snd.ID, err)
	}
}

// mapSentiment converts the platform's interest label to a local sentiment.
// Unlabeled replies count as neutral, which still moves reply_rate but not
// positive_rate.
func mapSentiment(label string) domain.ReplySentiment {
	switch label {
	case "positive", "interested":
		return domain.SentimentPositive
	case "negative", "not_interested":
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}

func (es *EngagementSync) setHealthy(ok bool) {
	es.mu.Lock()
	es.healthy = ok
	es.mu.Unlock()
}
