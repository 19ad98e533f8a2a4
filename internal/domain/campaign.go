package domain

import (
	"time"
)

// CampaignStatus enumerates the lifecycle states of a marketing campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignRunning   CampaignStatus = "running"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
)

// CampaignRecord is one marketing campaign's static configuration plus its
// outcome metrics. The core reads records but never writes their core fields.
type CampaignRecord struct {
	ID             string         `json:"id" db:"id"`
	UserID         string         `json:"user_id" db:"user_id"`
	Name           string         `json:"name" db:"name"`
	Industry       string         `json:"industry" db:"industry"`
	ContentType    string         `json:"content_type" db:"content_type"`
	VisualStyle    string         `json:"visual_style" db:"visual_style"`
	Caption        string         `json:"caption" db:"caption"`
	Hashtags       []string       `json:"hashtags" db:"hashtags"`
	Platforms      []string       `json:"platforms" db:"platforms"`
	Demographics   []string       `json:"demographics" db:"demographics"`
	Objective      string         `json:"objective" db:"objective"`
	Budget         float64        `json:"budget" db:"budget"`
	Status         CampaignStatus `json:"status" db:"status"`
	ROI            float64        `json:"roi" db:"roi"`
	CTR            float64        `json:"ctr" db:"ctr"`
	ConversionRate float64        `json:"conversion_rate" db:"conversion_rate"`
	EngagementRate float64        `json:"engagement_rate" db:"engagement_rate"`
	LaunchedAt     *time.Time     `json:"launched_at,omitempty" db:"launched_at"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}

// Metric returns the named outcome metric and whether the name is known.
func (c CampaignRecord) Metric(name string) (float64, bool) {
	switch name {
	case MetricROI:
		return c.ROI, true
	case MetricCTR:
		return c.CTR, true
	case MetricConversionRate:
		return c.ConversionRate, true
	case MetricEngagementRate:
		return c.EngagementRate, true
	}
	return 0, false
}

// Outcome metric names shared by insights, prediction models and records.
const (
	MetricROI            = "roi"
	MetricCTR            = "ctr"
	MetricConversionRate = "conversion_rate"
	MetricEngagementRate = "engagement_rate"
)

// TrackedMetrics lists the metrics the learning engine looks for deltas in,
// in evaluation order.
var TrackedMetrics = []string{MetricROI, MetricCTR, MetricConversionRate, MetricEngagementRate}

// AnalyticsSnapshot is one reporting window read from the analytics store.
type AnalyticsSnapshot struct {
	CampaignID  string    `json:"campaign_id" db:"campaign_id"`
	Impressions int64     `json:"impressions" db:"impressions"`
	Clicks      int64     `json:"clicks" db:"clicks"`
	Spend       float64   `json:"spend" db:"spend"`
	Conversions int64     `json:"conversions" db:"conversions"`
	CTR         float64   `json:"ctr" db:"ctr"`
	CPC         float64   `json:"cpc" db:"cpc"`
	ROI         float64   `json:"roi" db:"roi"`
	RecordedAt  time.Time `json:"recorded_at" db:"recorded_at"`
}
