package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/ignite/adaptive-core/internal/domain"
	"github.com/ignite/adaptive-core/internal/performance"
)

// historyLimit caps how many past campaigns feed one analysis.
const historyLimit = 200

const campaignColumns = `
		id, user_id, name, COALESCE(industry,''), COALESCE(content_type,''),
		COALESCE(visual_style,''), COALESCE(caption,''), hashtags, platforms,
		demographics, COALESCE(objective,''), budget, status,
		roi, ctr, conversion_rate, engagement_rate, launched_at, created_at`

// CampaignRepo reads campaigns and appends optimization annotations. It never
// writes a campaign's core fields.
type CampaignRepo struct{ db *sql.DB }

// NewCampaignRepo creates a Postgres-backed campaign repository.
func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCampaign(row rowScanner) (*domain.CampaignRecord, error) {
	c := &domain.CampaignRecord{}
	var status string
	var launched sql.NullTime
	err := row.Scan(
		&c.ID, &c.UserID, &c.Name, &c.Industry, &c.ContentType,
		&c.VisualStyle, &c.Caption, pq.Array(&c.Hashtags), pq.Array(&c.Platforms),
		pq.Array(&c.Demographics), &c.Objective, &c.Budget, &status,
		&c.ROI, &c.CTR, &c.ConversionRate, &c.EngagementRate, &launched, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Status = domain.CampaignStatus(status)
	if launched.Valid {
		t := launched.Time
		c.LaunchedAt = &t
	}
	return c, nil
}

func (r *CampaignRepo) GetCampaign(ctx context.Context, id string) (*domain.CampaignRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT`+campaignColumns+`
		FROM campaigns
		WHERE id = $1
	`, id)
	c, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, performance.ErrCampaignNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

// GetUserHistoricalCampaigns returns the user's launched campaigns, newest
// first.
func (r *CampaignRepo) GetUserHistoricalCampaigns(ctx context.Context, userID string) ([]domain.CampaignRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT`+campaignColumns+`
		FROM campaigns
		WHERE user_id = $1 AND status <> 'draft'
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("list historical campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.CampaignRecord
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaigns: %w", err)
	}
	return out, nil
}

// UpdateCampaignAnnotation appends note to the campaign's optimization notes.
func (r *CampaignRepo) UpdateCampaignAnnotation(ctx context.Context, id, note string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaigns
		SET optimization_notes = array_append(COALESCE(optimization_notes, '{}'), $2),
		    updated_at = NOW()
		WHERE id = $1
	`, id, note)
	if err != nil {
		return fmt.Errorf("annotate campaign: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("annotate campaign: %w", err)
	}
	if n == 0 {
		return performance.ErrCampaignNotFound
	}
	return nil
}
