package campaign

import (
	"context"

	"github.com/ignite/outbound-lab/internal/domain"
)

// Repository defines the data access contract for campaigns and prospects.
// Implementations must be safe for concurrent use.
type Repository interface {
	// CreateCampaign inserts a new campaign in draft status.
	CreateCampaign(ctx context.Context, c *domain.Campaign) error

	// GetCampaign returns ErrCampaignNotFound when the id is unknown.
	GetCampaign(ctx context.Context, id string) (*domain.Campaign, error)

	// ListCampaigns returns campaigns matching the filter plus the unpaged
	// total, ordered by created_at DESC.
	ListCampaigns(ctx context.Context, f ListFilter) ([]domain.Campaign, int, error)

	// UpdateCampaignStatus transitions the campaign's status with the
	// expected current status as a guard.
	UpdateCampaignStatus(ctx context.Context, id string, from, to domain.CampaignStatus) error

	// DeleteCampaign removes a campaign. Tests referencing it keep running;
	// their campaign_id is nulled by the store.
	DeleteCampaign(ctx context.Context, id string) error

	// RefreshCampaignStats recomputes the denormalized totals from current
	// send and prospect data.
	RefreshCampaignStats(ctx context.Context, id string) (*domain.Campaign, error)

	// CreateProspect inserts a prospect. A duplicate email yields
	// ErrDuplicateEmail.
	CreateProspect(ctx context.Context, p *domain.Prospect) error

	// GetProspect returns ErrProspectNotFound when the id is unknown.
	GetProspect(ctx context.Context, id string) (*domain.Prospect, error)

	// GetProspectByEmail looks up by normalized (lowercased) email.
	GetProspectByEmail(ctx context.Context, email string) (*domain.Prospect, error)

	ListProspects(ctx context.Context, limit, offset int) ([]domain.Prospect, int, error)

	// DeleteProspect removes the prospect; prospect_id on its sends is
	// nulled, never deleted.
	DeleteProspect(ctx context.Context, id string) error
}

// ListFilter controls pagination and filtering for campaign lists.
type ListFilter struct {
	Status domain.CampaignStatus
	Limit  int
	Offset int
}
