package behavior

import (
	"math"

	"github.com/banshee-data/railguard/internal/tracking"
)

// Risk fusion weights. The five factors sum to 1 before confidence scaling.
const (
	riskWeightTTC         = 0.35
	riskWeightIntent      = 0.25
	riskWeightDistraction = 0.15
	riskWeightCategory    = 0.10
	riskWeightQuality     = 0.15

	// DefaultRiskAlpha weights the current frame when smoothing against the
	// previous frame's risk for the same track.
	DefaultRiskAlpha = 0.7
)

// intentRiskWeights ranks intent states by hazard.
var intentRiskWeights = map[IntentState]float64{
	IntentStatic:      0.1,
	IntentLeaving:     0.2,
	IntentApproaching: 0.7,
	IntentCrossing:    1.0,
}

// categoryRiskWeights ranks object categories: persons always dominate.
var categoryRiskWeights = map[tracking.Category]float64{
	tracking.CategoryPerson:  1.0,
	tracking.CategoryKnown:   0.7,
	tracking.CategoryUnknown: 0.3,
}

// ComputeRisk fuses collision time, intent, distraction, category and track
// quality into a single score in [0,1]. Low TTC confidence scales the score
// up (uncertainty is treated as danger), and the result is smoothed against
// the previous frame's risk when available.
func ComputeRisk(track *tracking.Track, intent Intent, ttc TTCResult, prevRisk *float64, alpha float64) float64 {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultRiskAlpha
	}

	ttcFactor := 0.0
	if !math.IsInf(ttc.Min, 1) {
		ttcFactor = 1.0 - math.Min(ttc.Min/10.0, 1.0)
	}

	intentFactor, ok := intentRiskWeights[intent.State]
	if !ok {
		intentFactor = 0.5
	}

	categoryFactor, ok := categoryRiskWeights[track.Category]
	if !ok {
		categoryFactor = 0.5
	}

	// Low-quality tracks carry more uncertainty, so they score higher.
	qualityFactor := 1.0 - track.QualityScore

	raw := riskWeightTTC*ttcFactor +
		riskWeightIntent*intentFactor +
		riskWeightDistraction*intent.DistractionProb +
		riskWeightCategory*categoryFactor +
		riskWeightQuality*qualityFactor

	adjusted := raw * (2.0 - ttc.Confidence)

	final := adjusted
	if prevRisk != nil {
		final = alpha*adjusted + (1-alpha)*(*prevRisk)
	}

	return math.Max(0, math.Min(1, final))
}
