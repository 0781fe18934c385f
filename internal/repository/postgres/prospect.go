package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignite/outbound-lab/internal/domain"
	"github.com/ignite/outbound-lab/internal/service/campaign"
)

// Prospect methods of CampaignRepo. custom_fields is a JSONB column.

func (r *CampaignRepo) CreateProspect(ctx context.Context, p *domain.Prospect) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	fields, err := marshalCustomFields(p.CustomFields)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO prospects (id, email, first_name, last_name, company, title,
			industry, company_size, linkedin_url, custom_fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
	`, p.ID, p.Email, p.FirstName, p.LastName, p.Company, p.Title,
		p.Industry, p.CompanySize, p.LinkedInURL, fields)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return campaign.ErrDuplicateEmail
		}
		return fmt.Errorf("create prospect: %w", err)
	}
	return nil
}

func (r *CampaignRepo) GetProspect(ctx context.Context, id string) (*domain.Prospect, error) {
	return r.scanProspect(r.db.QueryRowContext(ctx, prospectSelect+` WHERE id = $1`, id))
}

func (r *CampaignRepo) GetProspectByEmail(ctx context.Context, email string) (*domain.Prospect, error) {
	return r.scanProspect(r.db.QueryRowContext(ctx, prospectSelect+` WHERE email = $1`, email))
}

const prospectSelect = `
	SELECT id, email, first_name, last_name, company, title,
	       industry, company_size, linkedin_url, custom_fields, created_at, updated_at
	FROM prospects`

func (r *CampaignRepo) scanProspect(row *sql.Row) (*domain.Prospect, error) {
	p := &domain.Prospect{}
	var industry, companySize, linkedin sql.NullString
	var fields []byte
	err := row.Scan(
		&p.ID, &p.Email, &p.FirstName, &p.LastName, &p.Company, &p.Title,
		&industry, &companySize, &linkedin, &fields, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, campaign.ErrProspectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get prospect: %w", err)
	}
	if industry.Valid {
		p.Industry = &industry.String
	}
	if companySize.Valid {
		p.CompanySize = &companySize.String
	}
	if linkedin.Valid {
		p.LinkedInURL = &linkedin.String
	}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &p.CustomFields); err != nil {
			return nil, fmt.Errorf("decode custom fields: %w", err)
		}
	}
	return p, nil
}

func (r *CampaignRepo) ListProspects(ctx context.Context, limit, offset int) ([]domain.Prospect, int, error) {
	if limit <= 0 {
		limit = 100
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM prospects`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count prospects: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		prospectSelect+` ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list prospects: %w", err)
	}
	defer rows.Close()

	var out []domain.Prospect
	for rows.Next() {
		var p domain.Prospect
		var industry, companySize, linkedin sql.NullString
		var fields []byte
		if err := rows.Scan(
			&p.ID, &p.Email, &p.FirstName, &p.LastName, &p.Company, &p.Title,
			&industry, &companySize, &linkedin, &fields, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan prospect: %w", err)
		}
		if industry.Valid {
			p.Industry = &industry.String
		}
		if companySize.Valid {
			p.CompanySize = &companySize.String
		}
		if linkedin.Valid {
			p.LinkedInURL = &linkedin.String
		}
		if len(fields) > 0 {
			if err := json.Unmarshal(fields, &p.CustomFields); err != nil {
				return nil, 0, fmt.Errorf("decode custom fields: %w", err)
			}
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// DeleteProspect removes the prospect row; sends referencing it get
// prospect_id nulled via ON DELETE SET NULL, preserving send history.
func (r *CampaignRepo) DeleteProspect(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM prospects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete prospect: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return campaign.ErrProspectNotFound
	}
	return nil
}

func marshalCustomFields(m map[string]string) ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode custom fields: %w", err)
	}
	return b, nil
}
