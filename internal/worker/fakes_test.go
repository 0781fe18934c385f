package worker

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ignite/outbound-lab/internal/domain"
	"github.com/ignite/outbound-lab/internal/instantly"
	"github.com/ignite/outbound-lab/internal/service/abtest"
	"github.com/ignite/outbound-lab/internal/service/campaign"
	"github.com/ignite/outbound-lab/internal/service/lifecycle"
)

// fakeStore is an in-memory store for worker tests. It implements
// abtest.Repository, lifecycle.Repository and SendResolver.
type fakeStore struct {
	mu       sync.Mutex
	tests    map[string]*domain.Test
	variants map[string]*domain.Variant
	order    []string
	sends    map[string]*domain.Send
	seq      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tests:    make(map[string]*domain.Test),
		variants: make(map[string]*domain.Variant),
		sends:    make(map[string]*domain.Send),
	}
}

func (f *fakeStore) CreateTest(_ context.Context, t *domain.Test) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.tests[t.ID] = &cp
	return nil
}

func (f *fakeStore) CreateVariant(_ context.Context, v *domain.Variant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	cp := *v
	cp.CreatedAt = time.Now().Add(time.Duration(f.seq) * time.Millisecond)
	f.variants[v.ID] = &cp
	f.order = append(f.order, v.ID)
	return nil
}

func (f *fakeStore) GetTest(_ context.Context, id string) (*domain.Test, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tests[id]
	if !ok {
		return nil, abtest.ErrTestNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeStore) ListTests(_ context.Context, filter abtest.TestFilter) ([]domain.Test, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Test
	for _, t := range f.tests {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		out = append(out, *t)
	}
	return out, len(out), nil
}

func (f *fakeStore) DeleteTest(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tests, id)
	return nil
}

func (f *fakeStore) GetVariant(_ context.Context, id string) (*domain.Variant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.variants[id]
	if !ok {
		return nil, abtest.ErrVariantNotFound
	}
	cp := *v
	return &cp, nil
}

func (f *fakeStore) ListVariants(_ context.Context, testID string) ([]domain.Variant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Variant
	for _, id := range f.order {
		v := f.variants[id]
		if v != nil && v.TestID == testID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteVariant(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.variants, id)
	return nil
}

func (f *fakeStore) CreateSend(_ context.Context, s *domain.Send) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.sends[s.ID] = &cp
	return nil
}

func (f *fakeStore) GetSend(_ context.Context, id string) (*domain.Send, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sends[id]
	if !ok {
		return nil, abtest.ErrSendNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) ListSends(_ context.Context, variantID string, limit, offset int) ([]domain.Send, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Send
	for _, s := range f.sends {
		if s.VariantID == variantID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkOpened(_ context.Context, sendID string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sends[sendID]
	if !ok {
		return false, abtest.ErrSendNotFound
	}
	if s.OpenedAt != nil {
		return false, nil
	}
	s.OpenedAt = &at
	return true, nil
}

func (f *fakeStore) MarkReplied(_ context.Context, sendID string, at time.Time, sentiment domain.ReplySentiment) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sends[sendID]
	if !ok {
		return false, abtest.ErrSendNotFound
	}
	if s.RepliedAt != nil {
		return false, nil
	}
	s.RepliedAt = &at
	s.Sentiment = &sentiment
	return true, nil
}

func (f *fakeStore) MarkBounced(_ context.Context, sendID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sends[sendID]
	if !ok {
		return abtest.ErrSendNotFound
	}
	s.Bounced = true
	return nil
}

func (f *fakeStore) IncrementSends(_ context.Context, variantID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.variants[variantID]
	if !ok {
		return abtest.ErrVariantNotFound
	}
	v.Sends++
	return nil
}

func (f *fakeStore) IncrementOpens(_ context.Context, variantID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.variants[variantID]
	if !ok {
		return abtest.ErrVariantNotFound
	}
	v.Opens++
	return nil
}

func (f *fakeStore) IncrementReplies(_ context.Context, variantID string, positive bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.variants[variantID]
	if !ok {
		return abtest.ErrVariantNotFound
	}
	v.Replies++
	if positive {
		v.PositiveReplies++
	}
	return nil
}

// lifecycle.Repository

func (f *fakeStore) UpdateStatus(_ context.Context, id string, from, to domain.TestStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tests[id]
	if !ok {
		return lifecycle.ErrTestNotFound
	}
	if t.Status != from {
		return lifecycle.ErrInvalidTransition
	}
	t.Status = to
	return nil
}

func (f *fakeStore) CompleteWithWinner(_ context.Context, id, variantID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tests[id]
	if !ok {
		return lifecycle.ErrTestNotFound
	}
	if t.Status != domain.TestRunning {
		return lifecycle.ErrInvalidTransition
	}
	v, ok := f.variants[variantID]
	if !ok || v.TestID != id {
		return lifecycle.ErrWinnerNotInTest
	}
	now := time.Now()
	t.Status = domain.TestCompleted
	t.WinnerVariantID = &variantID
	t.CompletedAt = &now
	return nil
}

func (f *fakeStore) ArchiveCompletedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, t := range f.tests {
		if t.Status == domain.TestCompleted && t.CompletedAt != nil && t.CompletedAt.Before(cutoff) {
			t.Status = domain.TestArchived
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) PurgeBouncedSendsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, s := range f.sends {
		if s.Bounced && s.SentAt.Before(cutoff) {
			delete(f.sends, id)
			n++
		}
	}
	return n, nil
}

// SendResolver

func (f *fakeStore) LatestSendForRecipient(_ context.Context, campaignID, email string) (*domain.Send, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *domain.Send
	for _, s := range f.sends {
		if s.CampaignID == nil || *s.CampaignID != campaignID {
			continue
		}
		if !strings.EqualFold(s.RecipientEmail, email) {
			continue
		}
		if best == nil || s.SentAt.After(best.SentAt) {
			best = s
		}
	}
	if best == nil {
		return nil, abtest.ErrSendNotFound
	}
	cp := *best
	return &cp, nil
}

// fakeCampaignRepo serves the campaign listing the sync worker walks.
type fakeCampaignRepo struct {
	campaigns []domain.Campaign
}

func (f *fakeCampaignRepo) CreateCampaign(_ context.Context, c *domain.Campaign) error { return nil }
func (f *fakeCampaignRepo) GetCampaign(_ context.Context, id string) (*domain.Campaign, error) {
	return nil, campaign.ErrCampaignNotFound
}
func (f *fakeCampaignRepo) ListCampaigns(_ context.Context, filter campaign.ListFilter) ([]domain.Campaign, int, error) {
	var out []domain.Campaign
	for _, c := range f.campaigns {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		out = append(out, c)
	}
	return out, len(out), nil
}
func (f *fakeCampaignRepo) UpdateCampaignStatus(_ context.Context, id string, from, to domain.CampaignStatus) error {
	return nil
}
func (f *fakeCampaignRepo) DeleteCampaign(_ context.Context, id string) error { return nil }
func (f *fakeCampaignRepo) RefreshCampaignStats(_ context.Context, id string) (*domain.Campaign, error) {
	return nil, campaign.ErrCampaignNotFound
}
func (f *fakeCampaignRepo) CreateProspect(_ context.Context, p *domain.Prospect) error { return nil }
func (f *fakeCampaignRepo) GetProspect(_ context.Context, id string) (*domain.Prospect, error) {
	return nil, campaign.ErrProspectNotFound
}
func (f *fakeCampaignRepo) GetProspectByEmail(_ context.Context, email string) (*domain.Prospect, error) {
	return nil, campaign.ErrProspectNotFound
}
func (f *fakeCampaignRepo) ListProspects(_ context.Context, limit, offset int) ([]domain.Prospect, int, error) {
	return nil, 0, nil
}
func (f *fakeCampaignRepo) DeleteProspect(_ context.Context, id string) error { return nil }

// fakeEventSource replays fixed platform events.
type fakeEventSource struct {
	opens   []instantly.Activity
	bounces []instantly.Activity
	replies []instantly.Reply
}

func (f *fakeEventSource) GetLeadActivity(_ context.Context, campaignID, email, eventType string) ([]instantly.Activity, error) {
	switch eventType {
	case "opened":
		return f.opens, nil
	case "bounced":
		return f.bounces, nil
	}
	return nil, nil
}

func (f *fakeEventSource) AllReplies(_ context.Context, campaignID string) ([]instantly.Reply, error) {
	return f.replies, nil
}
