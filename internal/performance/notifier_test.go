package performance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/adaptive-core/internal/domain"
)

type fakeSES struct {
	inputs []*sesv2.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func missedMetrics() domain.PerformanceMetrics {
	return domain.PerformanceMetrics{
		CampaignID:           "c1",
		Industry:             "finance",
		CTR:                  1.2,
		CPC:                  4.4,
		ConversionRate:       1.5,
		ROI:                  80,
		IndustryBenchmarkCTR: 2.91,
		IndustryBenchmarkCPC: 3.77,
		PerformanceScore:     10,
		PerformanceStatus:    domain.StatusCritical,
		NeedsOptimization:    true,
		CheckedAt:            time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestSESNotifier_NotifyGuaranteeMiss(t *testing.T) {
	ses := &fakeSES{}
	n, err := NewSESNotifier(ses, "alerts@example.com", []string{"ops@example.com", "am@example.com"})
	require.NoError(t, err)

	require.NoError(t, n.NotifyGuaranteeMiss(context.Background(), "u1", missedMetrics()))
	require.Len(t, ses.inputs, 1)

	in := ses.inputs[0]
	assert.Equal(t, "alerts@example.com", aws.ToString(in.FromEmailAddress))
	assert.Equal(t, []string{"ops@example.com", "am@example.com"}, in.Destination.ToAddresses)
	assert.Equal(t, "[CRITICAL] Guarantee missed: campaign c1", aws.ToString(in.Content.Simple.Subject.Data))

	body := aws.ToString(in.Content.Simple.Body.Text.Data)
	assert.Contains(t, body, "c1")
	assert.Contains(t, body, "1.20% (benchmark 2.91%)")
	assert.Contains(t, body, "80.0%")
	assert.Contains(t, body, "2026-03-01 09:30 UTC")
	assert.Contains(t, body, "Automatic optimization has been triggered.")
}

func TestSESNotifier_SendError(t *testing.T) {
	n, err := NewSESNotifier(&fakeSES{err: errors.New("throttled")}, "alerts@example.com", []string{"ops@example.com"})
	require.NoError(t, err)

	err = n.NotifyGuaranteeMiss(context.Background(), "u1", missedMetrics())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestNewSESNotifier_Validation(t *testing.T) {
	_, err := NewSESNotifier(&fakeSES{}, "", []string{"ops@example.com"})
	assert.Error(t, err)
	_, err = NewSESNotifier(&fakeSES{}, "alerts@example.com", nil)
	assert.Error(t, err)
}
