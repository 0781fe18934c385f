// Package postgres implements the service repository interfaces against
// PostgreSQL. All writes set updated_at in the statement itself; nothing
// relies on triggers.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/outbound-lab/internal/domain"
	"github.com/ignite/outbound-lab/internal/service/abtest"
)

// ABTestRepo implements abtest.Repository.
//
// Counter increments are single UPDATE statements, so Postgres row locking
// gives the required atomicity per variant without any application-level
// locks; increments on different variant rows proceed independently.
type ABTestRepo struct{ db *sql.DB }

// NewABTestRepo creates a Postgres-backed experiment repository.
func NewABTestRepo(db *sql.DB) *ABTestRepo { return &ABTestRepo{db: db} }

func (r *ABTestRepo) CreateTest(ctx context.Context, t *domain.Test) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ab_tests (id, name, category, status, campaign_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`, t.ID, t.Name, t.Category, t.Status, t.CampaignID)
	if err != nil {
		return fmt.Errorf("create test: %w", err)
	}
	return nil
}

func (r *ABTestRepo) CreateVariant(ctx context.Context, v *domain.Variant) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ab_variants (id, test_id, content, sends, opens, replies, positive_replies, created_at, updated_at)
		VALUES ($1, $2, $3, 0, 0, 0, 0, NOW(), NOW())
	`, v.ID, v.TestID, v.Content)
	if err != nil {
		return fmt.Errorf("create variant: %w", err)
	}
	return nil
}

func (r *ABTestRepo) GetTest(ctx context.Context, id string) (*domain.Test, error) {
	t := &domain.Test{}
	var winner, campaign sql.NullString
	var completedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, category, status, winner_variant_id, campaign_id,
		       created_at, updated_at, completed_at
		FROM ab_tests
		WHERE id = $1
	`, id).Scan(
		&t.ID, &t.Name, &t.Category, &t.Status, &winner, &campaign,
		&t.CreatedAt, &t.UpdatedAt, &completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, abtest.ErrTestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get test: %w", err)
	}
	if winner.Valid {
		t.WinnerVariantID = &winner.String
	}
	if campaign.Valid {
		t.CampaignID = &campaign.String
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	return t, nil
}

func (r *ABTestRepo) ListTests(ctx context.Context, f abtest.TestFilter) ([]domain.Test, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	where := " WHERE 1=1"
	args := []interface{}{}
	idx := 1
	add := func(clause string, val interface{}) {
		where += fmt.Sprintf(" AND %s = $%d", clause, idx)
		args = append(args, val)
		idx++
	}
	if f.Status != "" {
		add("status", f.Status)
	}
	if f.Category != "" {
		add("category", f.Category)
	}
	if f.CampaignID != "" {
		add("campaign_id", f.CampaignID)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ab_tests"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tests: %w", err)
	}

	q := `
		SELECT id, name, category, status, winner_variant_id, campaign_id,
		       created_at, updated_at, completed_at
		FROM ab_tests` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tests: %w", err)
	}
	defer rows.Close()

	var out []domain.Test
	for rows.Next() {
		var t domain.Test
		var winner, campaign sql.NullString
		var completedAt sql.NullTime
		if err := rows.Scan(
			&t.ID, &t.Name, &t.Category, &t.Status, &winner, &campaign,
			&t.CreatedAt, &t.UpdatedAt, &completedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan test: %w", err)
		}
		if winner.Valid {
			t.WinnerVariantID = &winner.String
		}
		if campaign.Valid {
			t.CampaignID = &campaign.String
		}
		if completedAt.Valid {
			t.CompletedAt = &completedAt.Time
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

// DeleteTest removes the test row; variants and sends go with it via
// ON DELETE CASCADE foreign keys (see migrations).
func (r *ABTestRepo) DeleteTest(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ab_tests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete test: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return abtest.ErrTestNotFound
	}
	return nil
}

func (r *ABTestRepo) GetVariant(ctx context.Context, id string) (*domain.Variant, error) {
	v := &domain.Variant{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, test_id, content, sends, opens, replies, positive_replies, created_at, updated_at
		FROM ab_variants
		WHERE id = $1
	`, id).Scan(
		&v.ID, &v.TestID, &v.Content, &v.Sends, &v.Opens, &v.Replies, &v.PositiveReplies,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, abtest.ErrVariantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get variant: %w", err)
	}
	return v, nil
}

// ListVariants orders by created_at then id so winner tie-breaks are
// stable even for variants created in the same microsecond.
func (r *ABTestRepo) ListVariants(ctx context.Context, testID string) ([]domain.Variant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, test_id, content, sends, opens, replies, positive_replies, created_at, updated_at
		FROM ab_variants
		WHERE test_id = $1
		ORDER BY created_at ASC, id ASC
	`, testID)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()

	var out []domain.Variant
	for rows.Next() {
		var v domain.Variant
		if err := rows.Scan(
			&v.ID, &v.TestID, &v.Content, &v.Sends, &v.Opens, &v.Replies, &v.PositiveReplies,
			&v.CreatedAt, &v.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *ABTestRepo) DeleteVariant(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ab_variants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete variant: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return abtest.ErrVariantNotFound
	}
	return nil
}

func (r *ABTestRepo) CreateSend(ctx context.Context, s *domain.Send) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.SentAt.IsZero() {
		s.SentAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sends (id, variant_id, prospect_id, recipient_email, campaign_id, sent_at, bounced)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)
	`, s.ID, s.VariantID, s.ProspectID, s.RecipientEmail, s.CampaignID, s.SentAt)
	if err != nil {
		return fmt.Errorf("create send: %w", err)
	}
	return nil
}

func (r *ABTestRepo) GetSend(ctx context.Context, id string) (*domain.Send, error) {
	s := &domain.Send{}
	var prospectID, campaignID, sentiment sql.NullString
	var openedAt, repliedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT id, variant_id, prospect_id, recipient_email, campaign_id,
		       sent_at, opened_at, replied_at, reply_sentiment, bounced
		FROM sends
		WHERE id = $1
	`, id).Scan(
		&s.ID, &s.VariantID, &prospectID, &s.RecipientEmail, &campaignID,
		&s.SentAt, &openedAt, &repliedAt, &sentiment, &s.Bounced,
	)
	if err == sql.ErrNoRows {
		return nil, abtest.ErrSendNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get send: %w", err)
	}
	if prospectID.Valid {
		s.ProspectID = &prospectID.String
	}
	if campaignID.Valid {
		s.CampaignID = &campaignID.String
	}
	if openedAt.Valid {
		s.OpenedAt = &openedAt.Time
	}
	if repliedAt.Valid {
		s.RepliedAt = &repliedAt.Time
	}
	if sentiment.Valid {
		v := domain.ReplySentiment(sentiment.String)
		s.Sentiment = &v
	}
	return s, nil
}

func (r *ABTestRepo) ListSends(ctx context.Context, variantID string, limit, offset int) ([]domain.Send, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, variant_id, prospect_id, recipient_email, campaign_id,
		       sent_at, opened_at, replied_at, reply_sentiment, bounced
		FROM sends
		WHERE variant_id = $1
		ORDER BY sent_at DESC
		LIMIT $2 OFFSET $3
	`, variantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list sends: %w", err)
	}
	defer rows.Close()

	var out []domain.Send
	for rows.Next() {
		var s domain.Send
		var prospectID, campaignID, sentiment sql.NullString
		var openedAt, repliedAt sql.NullTime
		if err := rows.Scan(
			&s.ID, &s.VariantID, &prospectID, &s.RecipientEmail, &campaignID,
			&s.SentAt, &openedAt, &repliedAt, &sentiment, &s.Bounced,
		); err != nil {
			return nil, fmt.Errorf("scan send: %w", err)
		}
		if prospectID.Valid {
			s.ProspectID = &prospectID.String
		}
		if campaignID.Valid {
			s.CampaignID = &campaignID.String
		}
		if openedAt.Valid {
			s.OpenedAt = &openedAt.Time
		}
		if repliedAt.Valid {
			s.RepliedAt = &repliedAt.Time
		}
		if sentiment.Valid {
			v := domain.ReplySentiment(sentiment.String)
			s.Sentiment = &v
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// MarkOpened only matches while opened_at is still null, so concurrent
// deliveries of the same open event collapse to a single set.
func (r *ABTestRepo) MarkOpened(ctx context.Context, sendID string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sends SET opened_at = $2 WHERE id = $1 AND opened_at IS NULL
	`, sendID, at)
	if err != nil {
		return false, fmt.Errorf("mark opened: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		return true, nil
	}
	return false, r.sendExists(ctx, sendID)
}

func (r *ABTestRepo) MarkReplied(ctx context.Context, sendID string, at time.Time, sentiment domain.ReplySentiment) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sends SET replied_at = $2, reply_sentiment = $3
		WHERE id = $1 AND replied_at IS NULL
	`, sendID, at, sentiment)
	if err != nil {
		return false, fmt.Errorf("mark replied: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		return true, nil
	}
	return false, r.sendExists(ctx, sendID)
}

func (r *ABTestRepo) MarkBounced(ctx context.Context, sendID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sends SET bounced = TRUE WHERE id = $1
	`, sendID)
	if err != nil {
		return fmt.Errorf("mark bounced: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return abtest.ErrSendNotFound
	}
	return nil
}

func (r *ABTestRepo) sendExists(ctx context.Context, sendID string) error {
	var exists bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM sends WHERE id = $1)`, sendID).Scan(&exists); err != nil {
		return fmt.Errorf("check send: %w", err)
	}
	if !exists {
		return abtest.ErrSendNotFound
	}
	return nil
}

// LatestSendForRecipient resolves a platform engagement event back to the
// most recent send for that recipient in the campaign. Platform events only
// carry campaign and lead email, never the local send id.
func (r *ABTestRepo) LatestSendForRecipient(ctx context.Context, campaignID, email string) (*domain.Send, error) {
	s := &domain.Send{}
	var prospectID, cID, sentiment sql.NullString
	var openedAt, repliedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT id, variant_id, prospect_id, recipient_email, campaign_id,
		       sent_at, opened_at, replied_at, reply_sentiment, bounced
		FROM sends
		WHERE campaign_id = $1 AND LOWER(recipient_email) = LOWER($2)
		ORDER BY sent_at DESC
		LIMIT 1
	`, campaignID, email).Scan(
		&s.ID, &s.VariantID, &prospectID, &s.RecipientEmail, &cID,
		&s.SentAt, &openedAt, &repliedAt, &sentiment, &s.Bounced,
	)
	if err == sql.ErrNoRows {
		return nil, abtest.ErrSendNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve send: %w", err)
	}
	if prospectID.Valid {
		s.ProspectID = &prospectID.String
	}
	if cID.Valid {
		s.CampaignID = &cID.String
	}
	if openedAt.Valid {
		s.OpenedAt = &openedAt.Time
	}
	if repliedAt.Valid {
		s.RepliedAt = &repliedAt.Time
	}
	if sentiment.Valid {
		v := domain.ReplySentiment(sentiment.String)
		s.Sentiment = &v
	}
	return s, nil
}

func (r *ABTestRepo) IncrementSends(ctx context.Context, variantID string) error {
	return r.increment(ctx, variantID, `
		UPDATE ab_variants SET sends = sends + 1, updated_at = NOW() WHERE id = $1
	`)
}

func (r *ABTestRepo) IncrementOpens(ctx context.Context, variantID string) error {
	return r.increment(ctx, variantID, `
		UPDATE ab_variants SET opens = opens + 1, updated_at = NOW() WHERE id = $1
	`)
}

func (r *ABTestRepo) increment(ctx context.Context, variantID, q string) error {
	res, err := r.db.ExecContext(ctx, q, variantID)
	if err != nil {
		return fmt.Errorf("increment counter: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return abtest.ErrVariantNotFound
	}
	return nil
}

// IncrementReplies guards positive_replies <= replies inside the statement:
// if the update would break the invariant it matches no rows and the
// pre-update state is untouched.
func (r *ABTestRepo) IncrementReplies(ctx context.Context, variantID string, positive bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE ab_variants
		SET replies = replies + 1,
		    positive_replies = positive_replies + CASE WHEN $2 THEN 1 ELSE 0 END,
		    updated_at = NOW()
		WHERE id = $1
		  AND positive_replies + CASE WHEN $2 THEN 1 ELSE 0 END <= replies + 1
	`, variantID, positive)
	if err != nil {
		return fmt.Errorf("increment replies: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM ab_variants WHERE id = $1)`, variantID).Scan(&exists); err != nil {
		return fmt.Errorf("check variant: %w", err)
	}
	if !exists {
		return abtest.ErrVariantNotFound
	}
	return abtest.ErrDataInconsistency
}
