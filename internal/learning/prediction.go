package learning

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/adaptive-core/internal/domain"
)

// DefaultBaseline is the "no information" prediction.
const DefaultBaseline = 5.0

// Update bounds. Observations outside the range are clamped before they can
// move a model, and weights stay within [minWeight, maxWeight].
const (
	minObservation = -1000.0
	maxObservation = 10000.0
	minWeight      = 0.1
	maxWeight      = 2.0
	initialWeight  = 1.0
	DefaultAlpha   = 0.2
)

// NewPredictionModel returns an untrained model whose predictions equal the
// baseline for every input.
func NewPredictionModel(userID, metric string, baseline float64, now time.Time) *domain.PredictionModel {
	weights := make(map[string]float64, len(domain.FeatureKeys))
	for _, k := range domain.FeatureKeys {
		weights[k] = initialWeight
	}
	return &domain.PredictionModel{
		ModelID:         uuid.New().String(),
		UserID:          userID,
		ModelType:       metric,
		FeatureWeights:  weights,
		ValueEffects:    make(map[string]float64),
		BaselineMetrics: map[string]float64{metric: baseline},
		UpdatedAt:       now,
	}
}

// Baseline returns the model's scalar for "no information".
func Baseline(model *domain.PredictionModel) float64 {
	if model == nil {
		return DefaultBaseline
	}
	if b, ok := model.BaselineMetrics[model.ModelType]; ok && !math.IsNaN(b) {
		return b
	}
	return DefaultBaseline
}

func effectKey(feature, value string) string { return feature + ":" + value }

// PredictPerformance estimates the model's metric for a feature set. Unknown
// features and empty values contribute nothing; with no usable feature the
// baseline is returned unchanged.
func PredictPerformance(features domain.FeatureSet, model *domain.PredictionModel) float64 {
	baseline := Baseline(model)
	if len(features) == 0 || model == nil {
		return baseline
	}

	var sum, weightTotal float64
	for feature, value := range features {
		if value == "" {
			continue
		}
		w, ok := model.FeatureWeights[feature]
		if !ok || w <= 0 {
			continue
		}
		sum += w * encode(model, feature, value, baseline)
		weightTotal += w
	}
	if weightTotal == 0 {
		return baseline
	}
	return sum / weightTotal
}

// encode returns the learned expectation for a feature value, defaulting to
// the baseline for values the model has not seen.
func encode(model *domain.PredictionModel, feature, value string, baseline float64) float64 {
	if e, ok := model.ValueEffects[effectKey(feature, value)]; ok {
		return e
	}
	return baseline
}

// UpdateModel nudges the model toward an observed outcome with an
// exponential moving average. It is incremental; nothing is retrained.
func UpdateModel(model *domain.PredictionModel, features domain.FeatureSet, observed, alpha float64, now time.Time) {
	if model == nil || math.IsNaN(observed) {
		return
	}
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultAlpha
	}
	if model.FeatureWeights == nil {
		model.FeatureWeights = make(map[string]float64)
	}
	if model.ValueEffects == nil {
		model.ValueEffects = make(map[string]float64)
	}
	if model.BaselineMetrics == nil {
		model.BaselineMetrics = make(map[string]float64)
	}

	observed = clamp(observed, minObservation, maxObservation)
	baseline := Baseline(model)
	predicted := PredictPerformance(features, model)
	scale := math.Max(math.Abs(observed), 1)

	for feature, value := range features {
		if value == "" {
			continue
		}
		w, ok := model.FeatureWeights[feature]
		if !ok {
			continue
		}
		key := effectKey(feature, value)
		prev := encode(model, feature, value, baseline)
		fit := 1 / (1 + math.Abs(observed-prev)/scale)
		model.FeatureWeights[feature] = clamp(w+alpha*(maxWeight*fit-w), minWeight, maxWeight)
		model.ValueEffects[key] = prev + alpha*(observed-prev)
	}

	model.BaselineMetrics[model.ModelType] = baseline + alpha*(observed-baseline)

	accuracy := 1 / (1 + math.Abs(observed-predicted)/scale)
	if model.TrainingSampleSize == 0 {
		model.AccuracyScore = accuracy
	} else {
		model.AccuracyScore += alpha * (accuracy - model.AccuracyScore)
	}
	model.TrainingSampleSize++
	model.UpdatedAt = now
}
