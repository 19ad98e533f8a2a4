package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/ignite/adaptive-core/internal/domain"
)

// DefaultAnalyticsTable holds per-window campaign reporting rows.
const DefaultAnalyticsTable = "campaign_analytics"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*){0,2}$`)

// AnalyticsRepo reads analytics snapshots from PostgreSQL or Snowflake.
type AnalyticsRepo struct {
	db    *sql.DB
	query string
	now   func() time.Time
}

// NewAnalyticsRepo builds a reader for driver ("postgres" or "snowflake").
// table may be schema-qualified.
func NewAnalyticsRepo(db *sql.DB, driver, table string) (*AnalyticsRepo, error) {
	if table == "" {
		table = DefaultAnalyticsTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid analytics table name %q", table)
	}

	var p1, p2 string
	switch driver {
	case "postgres", "":
		p1, p2 = "$1", "$2"
	case "snowflake":
		p1, p2 = "?", "?"
	default:
		return nil, fmt.Errorf("unsupported analytics driver %q", driver)
	}

	q := fmt.Sprintf(`
		SELECT campaign_id, impressions, clicks, spend, conversions, ctr, cpc, roi, recorded_at
		FROM %s
		WHERE campaign_id = %s AND recorded_at >= %s
		ORDER BY recorded_at`, table, p1, p2)
	return &AnalyticsRepo{db: db, query: q, now: time.Now}, nil
}

func (r *AnalyticsRepo) GetRecentCampaignAnalytics(ctx context.Context, campaignID string, window time.Duration) ([]domain.AnalyticsSnapshot, error) {
	since := r.now().UTC().Add(-window)
	rows, err := r.db.QueryContext(ctx, r.query, campaignID, since)
	if err != nil {
		return nil, fmt.Errorf("query analytics: %w", err)
	}
	defer rows.Close()

	var out []domain.AnalyticsSnapshot
	for rows.Next() {
		var s domain.AnalyticsSnapshot
		if err := rows.Scan(&s.CampaignID, &s.Impressions, &s.Clicks, &s.Spend, &s.Conversions,
			&s.CTR, &s.CPC, &s.ROI, &s.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan analytics: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analytics: %w", err)
	}
	return out, nil
}
