package api

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ignite/outbound-lab/internal/domain"
	"github.com/ignite/outbound-lab/internal/service/abtest"
	"github.com/ignite/outbound-lab/internal/service/campaign"
	"github.com/ignite/outbound-lab/internal/service/lifecycle"
)

// memStore is an in-memory experiment store used by the handler tests. It
// implements both the abtest and lifecycle repository contracts.
type memStore struct {
	mu       sync.Mutex
	tests    map[string]*domain.Test
	variants map[string]*domain.Variant
	sends    map[string]*domain.Send
	seq      int
}

func newMemStore() *memStore {
	return &memStore{
		tests:    make(map[string]*domain.Test),
		variants: make(map[string]*domain.Variant),
		sends:    make(map[string]*domain.Send),
	}
}

func (m *memStore) now() time.Time {
	m.seq++
	return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(m.seq) * time.Second)
}

func (m *memStore) CreateTest(_ context.Context, t *domain.Test) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	cp.CreatedAt = m.now()
	cp.UpdatedAt = cp.CreatedAt
	m.tests[cp.ID] = &cp
	return nil
}

func (m *memStore) CreateVariant(_ context.Context, v *domain.Variant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *v
	cp.CreatedAt = m.now()
	cp.UpdatedAt = cp.CreatedAt
	m.variants[cp.ID] = &cp
	return nil
}

func (m *memStore) GetTest(_ context.Context, id string) (*domain.Test, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tests[id]
	if !ok {
		return nil, abtest.ErrTestNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) ListTests(_ context.Context, f abtest.TestFilter) ([]domain.Test, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Test
	for _, t := range m.tests {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Category != "" && t.Category != f.Category {
			continue
		}
		if f.CampaignID != "" && (t.CampaignID == nil || *t.CampaignID != f.CampaignID) {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := len(out)
	if f.Offset > len(out) {
		out = nil
	} else if f.Offset > 0 {
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (m *memStore) DeleteTest(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tests[id]; !ok {
		return abtest.ErrTestNotFound
	}
	delete(m.tests, id)
	for vid, v := range m.variants {
		if v.TestID == id {
			delete(m.variants, vid)
		}
	}
	return nil
}

func (m *memStore) GetVariant(_ context.Context, id string) (*domain.Variant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.variants[id]
	if !ok {
		return nil, abtest.ErrVariantNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *memStore) ListVariants(_ context.Context, testID string) ([]domain.Variant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Variant
	for _, v := range m.variants {
		if v.TestID == testID {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memStore) DeleteVariant(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.variants[id]; !ok {
		return abtest.ErrVariantNotFound
	}
	delete(m.variants, id)
	return nil
}

func (m *memStore) CreateSend(_ context.Context, s *domain.Send) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	if cp.SentAt.IsZero() {
		cp.SentAt = m.now()
	}
	m.sends[cp.ID] = &cp
	return nil
}

func (m *memStore) GetSend(_ context.Context, id string) (*domain.Send, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sends[id]
	if !ok {
		return nil, abtest.ErrSendNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) ListSends(_ context.Context, variantID string, limit, offset int) ([]domain.Send, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Send
	for _, s := range m.sends {
		if s.VariantID == variantID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SentAt.After(out[j].SentAt) })
	if offset > len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) MarkOpened(_ context.Context, sendID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sends[sendID]
	if !ok {
		return false, abtest.ErrSendNotFound
	}
	if s.OpenedAt != nil {
		return false, nil
	}
	s.OpenedAt = &at
	return true, nil
}

func (m *memStore) MarkReplied(_ context.Context, sendID string, at time.Time, sentiment domain.ReplySentiment) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sends[sendID]
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

func (m *memStore) MarkBounced(_ context.Context, sendID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sends[sendID]
	if !ok {
		return abtest.ErrSendNotFound
	}
	s.Bounced = true
	return nil
}

func (m *memStore) IncrementSends(_ context.Context, variantID string) error {
	return m.increment(variantID, func(v *domain.Variant) { v.Sends++ })
}

func (m *memStore) IncrementOpens(_ context.Context, variantID string) error {
	return m.increment(variantID, func(v *domain.Variant) { v.Opens++ })
}

func (m *memStore) IncrementReplies(_ context.Context, variantID string, positive bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.variants[variantID]
	if !ok {
		return abtest.ErrVariantNotFound
	}
	pos := v.PositiveReplies
	if positive {
		pos++
	}
	if pos > v.Replies+1 {
		return abtest.ErrDataInconsistency
	}
	v.Replies++
	v.PositiveReplies = pos
	return nil
}

func (m *memStore) increment(variantID string, fn func(*domain.Variant)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.variants[variantID]
	if !ok {
		return abtest.ErrVariantNotFound
	}
	fn(v)
	return nil
}

// lifecycleView adapts memStore to the lifecycle repository contract.
type lifecycleView struct{ store *memStore }

func (l lifecycleView) GetTest(ctx context.Context, id string) (*domain.Test, error) {
	t, err := l.store.GetTest(ctx, id)
	if err != nil {
		return nil, lifecycle.ErrTestNotFound
	}
	return t, nil
}

func (l lifecycleView) UpdateStatus(_ context.Context, id string, from, to domain.TestStatus) error {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	t, ok := l.store.tests[id]
	if !ok {
		return lifecycle.ErrTestNotFound
	}
	if t.Status != from {
		return lifecycle.ErrInvalidTransition
	}
	t.Status = to
	if to == domain.TestCompleted {
		now := time.Now().UTC()
		t.CompletedAt = &now
	}
	return nil
}

func (l lifecycleView) CompleteWithWinner(_ context.Context, id, variantID string) error {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	t, ok := l.store.tests[id]
	if !ok {
		return lifecycle.ErrTestNotFound
	}
	if t.Status != domain.TestRunning {
		return lifecycle.ErrInvalidTransition
	}
	v, ok := l.store.variants[variantID]
	if !ok || v.TestID != id {
		return lifecycle.ErrWinnerNotInTest
	}
	now := time.Now().UTC()
	t.Status = domain.TestCompleted
	t.WinnerVariantID = &variantID
	t.CompletedAt = &now
	return nil
}

func (l lifecycleView) ArchiveCompletedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	var n int64
	for _, t := range l.store.tests {
		if t.Status == domain.TestCompleted && t.CompletedAt != nil && t.CompletedAt.Before(cutoff) {
			t.Status = domain.TestArchived
			n++
		}
	}
	return n, nil
}

func (l lifecycleView) PurgeBouncedSendsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	var n int64
	for id, s := range l.store.sends {
		if s.Bounced && s.SentAt.Before(cutoff) {
			delete(l.store.sends, id)
			n++
		}
	}
	return n, nil
}

// memCampaignRepo is an in-memory campaign and prospect store.
type memCampaignRepo struct {
	mu        sync.Mutex
	campaigns map[string]*domain.Campaign
	prospects map[string]*domain.Prospect
}

func newMemCampaignRepo() *memCampaignRepo {
	return &memCampaignRepo{
		campaigns: make(map[string]*domain.Campaign),
		prospects: make(map[string]*domain.Prospect),
	}
}

func (m *memCampaignRepo) CreateCampaign(_ context.Context, c *domain.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.campaigns[cp.ID] = &cp
	return nil
}

func (m *memCampaignRepo) GetCampaign(_ context.Context, id string) (*domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, campaign.ErrCampaignNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCampaignRepo) ListCampaigns(_ context.Context, f campaign.ListFilter) ([]domain.Campaign, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Campaign
	for _, c := range m.campaigns {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memCampaignRepo) UpdateCampaignStatus(_ context.Context, id string, from, to domain.CampaignStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return campaign.ErrCampaignNotFound
	}
	if c.Status != from {
		return campaign.ErrInvalidTransition
	}
	c.Status = to
	return nil
}

func (m *memCampaignRepo) DeleteCampaign(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.campaigns[id]; !ok {
		return campaign.ErrCampaignNotFound
	}
	delete(m.campaigns, id)
	return nil
}

func (m *memCampaignRepo) RefreshCampaignStats(ctx context.Context, id string) (*domain.Campaign, error) {
	return m.GetCampaign(ctx, id)
}

func (m *memCampaignRepo) CreateProspect(_ context.Context, p *domain.Prospect) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.prospects {
		if strings.EqualFold(existing.Email, p.Email) {
			return campaign.ErrDuplicateEmail
		}
	}
	cp := *p
	m.prospects[cp.ID] = &cp
	return nil
}

func (m *memCampaignRepo) GetProspect(_ context.Context, id string) (*domain.Prospect, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prospects[id]
	if !ok {
		return nil, campaign.ErrProspectNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memCampaignRepo) GetProspectByEmail(_ context.Context, email string) (*domain.Prospect, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.prospects {
		if strings.EqualFold(p.Email, email) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, campaign.ErrProspectNotFound
}

func (m *memCampaignRepo) ListProspects(_ context.Context, limit, offset int) ([]domain.Prospect, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Prospect
	for _, p := range m.prospects {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	total := len(out)
	if offset > len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *memCampaignRepo) DeleteProspect(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.prospects[id]; !ok {
		return campaign.ErrProspectNotFound
	}
	delete(m.prospects, id)
	return nil
}
