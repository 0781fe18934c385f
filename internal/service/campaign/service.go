package campaign

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/ignite/outbound-lab/internal/domain"
)

// Service implements campaign and prospect business logic. All public
// methods are safe for concurrent use if the underlying repository is
// concurrency-safe.
type Service struct {
	repo Repository
}

// NewService creates a campaign service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput holds the fields for creating a new campaign.
type CreateInput struct {
	Name               string `json:"name"`
	ValueProp          string `json:"value_prop"`
	PlatformCampaignID string `json:"platform_campaign_id"`
}

// Create validates and persists a new campaign in draft status.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Campaign, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("name is required")
	}

	c := &domain.Campaign{
		ID:        uuid.New().String(),
		Name:      input.Name,
		ValueProp: input.ValueProp,
		Status:    domain.CampaignDraft,
	}
	if input.PlatformCampaignID != "" {
		c.PlatformCampID = &input.PlatformCampaignID
	}
	if err := s.repo.CreateCampaign(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns a single campaign.
func (s *Service) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	return s.repo.GetCampaign(ctx, id)
}

// List returns campaigns matching the filter.
func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Campaign, int, error) {
	return s.repo.ListCampaigns(ctx, f)
}

// Activate moves a draft campaign to active.
func (s *Service) Activate(ctx context.Context, id string) error {
	return s.repo.UpdateCampaignStatus(ctx, id, domain.CampaignDraft, domain.CampaignActive)
}

// Complete moves an active campaign to completed.
func (s *Service) Complete(ctx context.Context, id string) error {
	return s.repo.UpdateCampaignStatus(ctx, id, domain.CampaignActive, domain.CampaignCompleted)
}

// Delete removes a campaign.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.DeleteCampaign(ctx, id)
}

// RefreshStats recomputes the denormalized totals and returns the updated
// campaign.
func (s *Service) RefreshStats(ctx context.Context, id string) (*domain.Campaign, error) {
	return s.repo.RefreshCampaignStats(ctx, id)
}

// AddProspect persists a prospect after normalizing its email. Email
// uniqueness is enforced at the store; callers see ErrDuplicateEmail.
func (s *Service) AddProspect(ctx context.Context, p *domain.Prospect) error {
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	if p.Email == "" {
		return fmt.Errorf("email is required")
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return s.repo.CreateProspect(ctx, p)
}

// GetProspect returns a single prospect.
func (s *Service) GetProspect(ctx context.Context, id string) (*domain.Prospect, error) {
	return s.repo.GetProspect(ctx, id)
}

// FindProspectByEmail looks up a prospect by normalized email.
func (s *Service) FindProspectByEmail(ctx context.Context, email string) (*domain.Prospect, error) {
	return s.repo.GetProspectByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// ListProspects returns a page of prospects plus the unpaged total.
func (s *Service) ListProspects(ctx context.Context, limit, offset int) ([]domain.Prospect, int, error) {
	return s.repo.ListProspects(ctx, limit, offset)
}

// RemoveProspect deletes the prospect record. Send history survives with a
// nulled prospect reference.
func (s *Service) RemoveProspect(ctx context.Context, id string) error {
	return s.repo.DeleteProspect(ctx, id)
}
