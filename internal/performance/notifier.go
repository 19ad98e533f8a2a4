package performance

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/osteele/liquid"

	"github.com/ignite/adaptive-core/internal/domain"
	"github.com/ignite/adaptive-core/internal/pkg/logger"
)

// Notifier reports campaigns that miss the performance guarantee.
type Notifier interface {
	NotifyGuaranteeMiss(ctx context.Context, userID string, m domain.PerformanceMetrics) error
}

// SESAPI is the subset of the SES v2 client used for alerts.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

const guaranteeMissTemplate = `Performance guarantee alert
===========================

Campaign:     {{ campaign_id }}
User:         {{ user_id }}
Industry:     {{ industry }}
Checked:      {{ checked_at }}
Status:       {{ status }} (score {{ score }}/100)

CTR:          {{ ctr }}% (benchmark {{ benchmark_ctr }}%)
CPC:          ${{ cpc }} (benchmark ${{ benchmark_cpc }})
Conversion:   {{ conversion_rate }}%
ROI:          {{ roi }}%

The campaign has not met the guaranteed CTR improvement and ROI thresholds.
{% if needs_optimization %}Automatic optimization has been triggered.{% endif %}
`

// SESNotifier e-mails guarantee misses to a fixed recipient list.
type SESNotifier struct {
	client     SESAPI
	from       string
	recipients []string
	body       *liquid.Template
}

func NewSESNotifier(client SESAPI, from string, recipients []string) (*SESNotifier, error) {
	if from == "" {
		return nil, fmt.Errorf("ses notifier: from address is required")
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("ses notifier: at least one recipient is required")
	}
	tpl, err := liquid.NewEngine().ParseString(guaranteeMissTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse alert template: %w", err)
	}
	return &SESNotifier{client: client, from: from, recipients: recipients, body: tpl}, nil
}

func (n *SESNotifier) NotifyGuaranteeMiss(ctx context.Context, userID string, m domain.PerformanceMetrics) error {
	body, err := n.body.RenderString(map[string]interface{}{
		"campaign_id":        m.CampaignID,
		"user_id":            userID,
		"industry":           m.Industry,
		"checked_at":         m.CheckedAt.Format("2006-01-02 15:04 MST"),
		"status":             string(m.PerformanceStatus),
		"score":              m.PerformanceScore,
		"ctr":                fmt.Sprintf("%.2f", m.CTR),
		"benchmark_ctr":      fmt.Sprintf("%.2f", m.IndustryBenchmarkCTR),
		"cpc":                fmt.Sprintf("%.2f", m.CPC),
		"benchmark_cpc":      fmt.Sprintf("%.2f", m.IndustryBenchmarkCPC),
		"conversion_rate":    fmt.Sprintf("%.2f", m.ConversionRate),
		"roi":                fmt.Sprintf("%.1f", m.ROI),
		"needs_optimization": m.NeedsOptimization,
	})
	if err != nil {
		return fmt.Errorf("render alert: %w", err)
	}

	subject := fmt.Sprintf("[%s] Guarantee missed: campaign %s", strings.ToUpper(string(m.PerformanceStatus)), m.CampaignID)
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(n.from),
		Destination:      &types.Destination{ToAddresses: n.recipients},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
				},
			},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("alert_type"), Value: aws.String("guarantee_miss")},
		},
	}

	out, sendErr := n.client.SendEmail(ctx, input)
	if sendErr != nil {
		return fmt.Errorf("ses send: %w", sendErr)
	}
	logger.Info("guarantee miss alert sent",
		"campaign_id", m.CampaignID,
		"message_id", aws.ToString(out.MessageId),
		"recipients", len(n.recipients))
	return nil
}
