package performance

import (
	"time"

	"github.com/ignite/adaptive-core/internal/domain"
)

// GuaranteeTerms are the platform's CTR-improvement and ROI promise.
type GuaranteeTerms struct {
	// CTRMultiplier is the promised CTR as a multiple of benchmark; the
	// guarantee requires ctr ≥ benchmark×(CTRMultiplier−1).
	CTRMultiplier float64
	// ROIPercent is the minimum ROI in percent.
	ROIPercent float64
}

// DefaultGuaranteeTerms returns the standard guarantee.
func DefaultGuaranteeTerms() GuaranteeTerms {
	return GuaranteeTerms{CTRMultiplier: 2.0, ROIPercent: 200}
}

func ratio(v, benchmark float64) float64 {
	if benchmark <= 0 {
		return 0
	}
	return v / benchmark
}

func ctrPoints(ctr, benchmark float64) int {
	switch r := ratio(ctr, benchmark); {
	case r >= 1.5:
		return 30
	case r >= 1.0:
		return 20
	case r >= 0.8:
		return 10
	}
	return 0
}

// cpcPoints rewards a CPC below benchmark. A zero or negative CPC carries no
// signal and scores nothing.
func cpcPoints(cpc, benchmark float64) int {
	if cpc <= 0 || benchmark <= 0 {
		return 0
	}
	switch r := cpc / benchmark; {
	case r <= 0.7:
		return 20
	case r <= 1.0:
		return 14
	case r <= 1.3:
		return 7
	}
	return 0
}

func conversionPoints(conv, benchmark float64) int {
	switch r := ratio(conv, benchmark); {
	case r >= 1.5:
		return 25
	case r >= 1.0:
		return 18
	case r >= 0.8:
		return 10
	}
	return 0
}

func roiPoints(roi float64) int {
	switch {
	case roi >= 300:
		return 25
	case roi >= 200:
		return 18
	case roi >= 100:
		return 10
	}
	return 0
}

// ScorePerformance returns the 0-100 rubric score: CTR up to 30, CPC up to 20,
// conversion rate up to 25 and ROI up to 25.
func ScorePerformance(ctr, cpc, conversionRate, roi float64, b Benchmark) int {
	return ctrPoints(ctr, b.CTR) + cpcPoints(cpc, b.CPC) + conversionPoints(conversionRate, b.ConversionRate) + roiPoints(roi)
}

// StatusForScore buckets a rubric score.
func StatusForScore(score int) domain.PerformanceStatus {
	switch {
	case score >= 80:
		return domain.StatusExcellent
	case score >= 60:
		return domain.StatusGood
	case score >= 30:
		return domain.StatusPoor
	}
	return domain.StatusCritical
}

// NeedsOptimization reports whether a graded campaign should be optimised.
func NeedsOptimization(status domain.PerformanceStatus, ctr, benchmarkCTR float64) bool {
	if status == domain.StatusPending {
		return false
	}
	return status == domain.StatusPoor || status == domain.StatusCritical || ctr < 0.8*benchmarkCTR
}

// GuaranteeMet requires both conjuncts: the CTR improvement and the ROI floor.
func GuaranteeMet(ctr, roi, benchmarkCTR float64, terms GuaranteeTerms) bool {
	ctrOK := ctr >= benchmarkCTR*(terms.CTRMultiplier-1)
	roiOK := roi >= terms.ROIPercent
	return ctrOK && roiOK
}

// Evaluate grades a campaign from its analytics snapshots. With no snapshots
// the result is pending and nothing is scored.
func Evaluate(campaignID, industry string, snaps []domain.AnalyticsSnapshot, b Benchmark, terms GuaranteeTerms, now time.Time) domain.PerformanceMetrics {
	m := domain.PerformanceMetrics{
		CampaignID:            campaignID,
		Industry:              industry,
		IndustryBenchmarkCTR:  b.CTR,
		IndustryBenchmarkCPC:  b.CPC,
		IndustryBenchmarkConv: b.ConversionRate,
		DataPoints:            len(snaps),
		CheckedAt:             now,
	}
	if len(snaps) == 0 {
		m.PerformanceStatus = domain.StatusPending
		return m
	}

	var ctrSum, cpcSum, roiSum float64
	var clicks, conversions int64
	for _, s := range snaps {
		ctrSum += s.CTR
		cpcSum += s.CPC
		roiSum += s.ROI
		clicks += s.Clicks
		conversions += s.Conversions
	}
	n := float64(len(snaps))
	m.CTR = ctrSum / n
	m.CPC = cpcSum / n
	m.ROI = roiSum / n
	if clicks > 0 {
		m.ConversionRate = float64(conversions) / float64(clicks) * 100
	}

	m.PerformanceScore = ScorePerformance(m.CTR, m.CPC, m.ConversionRate, m.ROI, b)
	m.PerformanceStatus = StatusForScore(m.PerformanceScore)
	m.NeedsOptimization = NeedsOptimization(m.PerformanceStatus, m.CTR, b.CTR)
	m.GuaranteeThresholdMet = GuaranteeMet(m.CTR, m.ROI, b.CTR, terms)
	return m
}
