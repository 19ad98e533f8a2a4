package performance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ignite/adaptive-core/internal/domain"
	"github.com/ignite/adaptive-core/internal/pkg/httpretry"
)

// ActionExecutor carries out one optimization action. The returned details
// are attached to the action's outcome.
type ActionExecutor interface {
	Execute(ctx context.Context, action domain.OptimizationAction, campaignID, userID string) (map[string]interface{}, error)
}

// ActionRecorder persists an action for downstream workers and returns its ID.
type ActionRecorder interface {
	RecordAction(ctx context.Context, campaignID, userID string, action domain.OptimizationAction) (string, error)
}

// QueueExecutor executes actions by recording them in the action queue that
// the content and campaign workers consume.
type QueueExecutor struct {
	recorder ActionRecorder
}

func NewQueueExecutor(recorder ActionRecorder) *QueueExecutor {
	return &QueueExecutor{recorder: recorder}
}

func (q *QueueExecutor) Execute(ctx context.Context, action domain.OptimizationAction, campaignID, userID string) (map[string]interface{}, error) {
	id, err := q.recorder.RecordAction(ctx, campaignID, userID, action)
	if err != nil {
		return nil, fmt.Errorf("queue %s: %w", action.ActionType, err)
	}
	return map[string]interface{}{
		"action_id": id,
		"queued":    true,
	}, nil
}

// WebhookExecutor delegates actions to an external executor over HTTP.
type WebhookExecutor struct {
	url    string
	client *httpretry.RetryClient
}

type webhookRequest struct {
	CampaignID string                    `json:"campaign_id"`
	UserID     string                    `json:"user_id"`
	Action     domain.OptimizationAction `json:"action"`
}

func NewWebhookExecutor(url string, client httpretry.HTTPDoer) *WebhookExecutor {
	return &WebhookExecutor{
		url:    url,
		client: httpretry.NewRetryClient(client, httpretry.Options{MaxRetries: 2, BaseDelay: 500 * time.Millisecond}),
	}
}

func (w *WebhookExecutor) Execute(ctx context.Context, action domain.OptimizationAction, campaignID, userID string) (map[string]interface{}, error) {
	body, err := json.Marshal(webhookRequest{CampaignID: campaignID, UserID: userID, Action: action})
	if err != nil {
		return nil, fmt.Errorf("marshal action: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute %s: %w", action.ActionType, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("executor returned status %d: %s", resp.StatusCode, string(respBody))
	}

	details := map[string]interface{}{"status_code": resp.StatusCode}
	if len(bytes.TrimSpace(respBody)) > 0 {
		var decoded map[string]interface{}
		if err := json.Unmarshal(respBody, &decoded); err == nil {
			for k, v := range decoded {
				details[k] = v
			}
		}
	}
	return details, nil
}
