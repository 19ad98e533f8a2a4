package performance

import "errors"

var (
	ErrCampaignNotFound  = errors.New("campaign not found")
	ErrMissingCampaignID = errors.New("campaign_id is required")
)
