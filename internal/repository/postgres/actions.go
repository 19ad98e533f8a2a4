package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignite/adaptive-core/internal/domain"
)

// ActionRepo is the queue of optimization actions awaiting the content and
// campaign workers.
type ActionRepo struct{ db *sql.DB }

func NewActionRepo(db *sql.DB) *ActionRepo { return &ActionRepo{db: db} }

func (r *ActionRepo) RecordAction(ctx context.Context, campaignID, userID string, a domain.OptimizationAction) (string, error) {
	id := uuid.New().String()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO optimization_actions
			(id, campaign_id, user_id, action_type, priority, description,
			 estimated_impact, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'queued', NOW())
	`, id, campaignID, userID, string(a.ActionType), a.Priority, a.Description, a.EstimatedImpact)
	if err != nil {
		return "", fmt.Errorf("record optimization action: %w", err)
	}
	return id, nil
}
