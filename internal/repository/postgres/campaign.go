package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/ignite/outbound-lab/internal/domain"
	"github.com/ignite/outbound-lab/internal/service/campaign"
)

// CampaignRepo implements campaign.Repository. Prospect methods live in
// prospect.go on the same receiver.
type CampaignRepo struct{ db *sql.DB }

func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

func (r *CampaignRepo) CreateCampaign(ctx context.Context, c *domain.Campaign) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO campaigns (id, name, value_prop, status, platform_campaign_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`, c.ID, c.Name, c.ValueProp, c.Status, c.PlatformCampID)
	if err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}
	return nil
}

func (r *CampaignRepo) GetCampaign(ctx context.Context, id string) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	var platformID sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, value_prop, status, platform_campaign_id,
		       prospects_count, sends_count, opens_count, replies_count,
		       created_at, updated_at
		FROM campaigns
		WHERE id = $1
	`, id).Scan(
		&c.ID, &c.Name, &c.ValueProp, &c.Status, &platformID,
		&c.ProspectsCount, &c.SendsCount, &c.OpensCount, &c.RepliesCount,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, campaign.ErrCampaignNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	if platformID.Valid {
		c.PlatformCampID = &platformID.String
	}
	return c, nil
}

func (r *CampaignRepo) ListCampaigns(ctx context.Context, f campaign.ListFilter) ([]domain.Campaign, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	where := " WHERE 1=1"
	args := []interface{}{}
	if f.Status != "" {
		where += " AND status = $1"
		args = append(args, f.Status)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM campaigns"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count campaigns: %w", err)
	}

	q := `
		SELECT id, name, value_prop, status, platform_campaign_id,
		       prospects_count, sends_count, opens_count, replies_count,
		       created_at, updated_at
		FROM campaigns` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		var c domain.Campaign
		var platformID sql.NullString
		if err := rows.Scan(
			&c.ID, &c.Name, &c.ValueProp, &c.Status, &platformID,
			&c.ProspectsCount, &c.SendsCount, &c.OpensCount, &c.RepliesCount,
			&c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan campaign: %w", err)
		}
		if platformID.Valid {
			c.PlatformCampID = &platformID.String
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *CampaignRepo) UpdateCampaignStatus(ctx context.Context, id string, from, to domain.CampaignStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaigns SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return fmt.Errorf("update campaign status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM campaigns WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check campaign: %w", err)
	}
	if !exists {
		return campaign.ErrCampaignNotFound
	}
	return campaign.ErrInvalidTransition
}

// DeleteCampaign removes the campaign row. Tests and sends referencing it
// have campaign_id nulled via ON DELETE SET NULL.
func (r *CampaignRepo) DeleteCampaign(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return campaign.ErrCampaignNotFound
	}
	return nil
}

// RefreshCampaignStats recomputes the rollup totals from send rows in a
// single statement, then reads the row back.
func (r *CampaignRepo) RefreshCampaignStats(ctx context.Context, id string) (*domain.Campaign, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaigns SET
			prospects_count = (SELECT COUNT(DISTINCT prospect_id) FROM sends
				WHERE campaign_id = $1 AND prospect_id IS NOT NULL),
			sends_count = (SELECT COUNT(*) FROM sends WHERE campaign_id = $1),
			opens_count = (SELECT COUNT(*) FROM sends
				WHERE campaign_id = $1 AND opened_at IS NOT NULL),
			replies_count = (SELECT COUNT(*) FROM sends
				WHERE campaign_id = $1 AND replied_at IS NOT NULL),
			updated_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		return nil, fmt.Errorf("refresh campaign stats: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return nil, campaign.ErrCampaignNotFound
	}
	return r.GetCampaign(ctx, id)
}
