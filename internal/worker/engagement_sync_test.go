package worker

import (
	"context"
	"testing"
	"time"

	"github.com/ignite/outbound-lab/internal/domain"
	"github.com/ignite/outbound-lab/internal/instantly"
	"github.com/ignite/outbound-lab/internal/service/abtest"
	"github.com/ignite/outbound-lab/internal/service/campaign"
)

func seedSyncFixture(t *testing.T, store *fakeStore) {
	t.Helper()
	ctx := context.Background()
	campID := "c1"
	store.CreateTest(ctx, &domain.Test{
		ID: "t1", Name: "cta test", Category: domain.CategoryCTA,
		Status: domain.TestRunning, CampaignID: &campID,
	})
	store.CreateVariant(ctx, &domain.Variant{ID: "va", TestID: "t1", Sends: 1})
	store.CreateSend(ctx, &domain.Send{
		ID:             "s1",
		VariantID:      "va",
		RecipientEmail: "lead@example.com",
		CampaignID:     &campID,
		SentAt:         time.Now().Add(-time.Hour),
	})
}

func newSyncWorker(store *fakeStore, source *fakeEventSource) *EngagementSync {
	platformID := "pc-1"
	campaigns := campaign.NewService(&fakeCampaignRepo{campaigns: []domain.Campaign{
		{ID: "c1", Name: "launch", Status: domain.CampaignActive, PlatformCampID: &platformID},
	}})
	es := NewEngagementSync(source, store, abtest.NewService(store), campaigns)
	es.ctx = context.Background()
	return es
}

func TestEngagementSyncAppliesEventsOnce(t *testing.T) {
	store := newFakeStore()
	seedSyncFixture(t, store)

	now := time.Now()
	source := &fakeEventSource{
		opens:   []instantly.Activity{{Email: "lead@example.com", EventType: "opened", Timestamp: now}},
		replies: []instantly.Reply{{Email: "lead@example.com", Timestamp: now, Sentiment: "interested"}},
	}

	es := newSyncWorker(store, source)
	// The platform replays full histories; two cycles must not double-count.
	es.runOnce()
	es.runOnce()

	v, err := store.GetVariant(context.Background(), "va")
	if err != nil {
		t.Fatalf("GetVariant: %v", err)
	}
	if v.Opens != 1 {
		t.Errorf("opens = %d, want 1", v.Opens)
	}
	if v.Replies != 1 {
		t.Errorf("replies = %d, want 1", v.Replies)
	}
	if v.PositiveReplies != 1 {
		t.Errorf("positive_replies = %d, want 1 (interested maps to positive)", v.PositiveReplies)
	}

	snd, _ := store.GetSend(context.Background(), "s1")
	if snd.OpenedAt == nil || snd.RepliedAt == nil {
		t.Error("send timestamps should be set")
	}
	if !es.IsHealthy() {
		t.Error("sync should be healthy")
	}
}

func TestEngagementSyncRecordsBounce(t *testing.T) {
	store := newFakeStore()
	seedSyncFixture(t, store)

	source := &fakeEventSource{
		bounces: []instantly.Activity{{Email: "lead@example.com", EventType: "bounced", Timestamp: time.Now()}},
	}

	es := newSyncWorker(store, source)
	es.runOnce()

	snd, _ := store.GetSend(context.Background(), "s1")
	if !snd.Bounced {
		t.Error("send should be flagged bounced")
	}
	v, _ := store.GetVariant(context.Background(), "va")
	if v.Opens != 0 || v.Replies != 0 {
		t.Error("bounces must not move engagement counters")
	}
}

func TestEngagementSyncIgnoresUnknownRecipient(t *testing.T) {
	store := newFakeStore()
	seedSyncFixture(t, store)

	source := &fakeEventSource{
		opens: []instantly.Activity{{Email: "stranger@example.com", EventType: "opened", Timestamp: time.Now()}},
	}

	es := newSyncWorker(store, source)
	es.runOnce()

	v, _ := store.GetVariant(context.Background(), "va")
	if v.Opens != 0 {
		t.Errorf("opens = %d, want 0", v.Opens)
	}
	if !es.IsHealthy() {
		t.Error("an unmatched event is not a sync failure")
	}
}

func TestMapSentiment(t *testing.T) {
	cases := map[string]domain.ReplySentiment{
		"interested":     domain.SentimentPositive,
		"positive":       domain.SentimentPositive,
		"not_interested": domain.SentimentNegative,
		"negative":       domain.SentimentNegative,
		"":               domain.SentimentNeutral,
		"out_of_office":  domain.SentimentNeutral,
	}
	for label, want := range cases {
		if got := mapSentiment(label); got != want {
			t.Errorf("mapSentiment(%q) = %q, want %q", label, got, want)
		}
	}
}
