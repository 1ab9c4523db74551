package behavior

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// TTC parameters.
const (
	// EmergencyTTC is the horizon below which a single candidate aborts the
	// search: correctness under time pressure beats exhaustive evaluation.
	EmergencyTTC = 1.0 // seconds
	// MaxTracksTTC bounds how many tracks are evaluated per frame, nearest
	// first. An explicit latency/accuracy trade-off.
	MaxTracksTTC = 30
	// DistractionMarginMultiplier widens the margin for distracted persons.
	DistractionMarginMultiplier = 1.25
)

// safetyMargins is the intent-dependent minimum tolerable separation.
var safetyMargins = map[IntentState]float64{
	IntentStatic:      5.0,
	IntentLeaving:     4.0,
	IntentApproaching: 7.5,
	IntentCrossing:    10.0,
}

// defaultSafetyMargin applies when no intent is available.
const defaultSafetyMargin = 5.0

// TTCResult is the time-to-collision distribution over all scenario branches.
// Min ≤ Mean ≤ Max; +Inf everywhere means no predicted collision within the
// forecast horizon. Confidence is in [0.3, 1.0], except the early-exit value
// 0.99.
type TTCResult struct {
	Min        float64
	Mean       float64
	Max        float64
	Confidence float64
}

// IsInf reports whether no collision candidate was found.
func (r TTCResult) IsInf() bool { return math.IsInf(r.Min, 1) }

// noCollision is the defined conservative output for an empty candidate set.
func noCollision() TTCResult {
	inf := math.Inf(1)
	return TTCResult{Min: inf, Mean: inf, Max: inf, Confidence: 1.0}
}

// SafetyMargin returns the separation threshold for an intent, widened when
// the person is likely distracted.
func SafetyMargin(intent *Intent) float64 {
	if intent == nil {
		return defaultSafetyMargin
	}
	margin, ok := safetyMargins[intent.State]
	if !ok {
		margin = defaultSafetyMargin
	}
	if intent.DistractionProb > 0.5 {
		margin *= DistractionMarginMultiplier
	}
	return margin
}

// ComputeTTC compares the vehicle's extrapolated position against every
// trajectory sample of the nearest maxTracks predictions. A sample whose
// separation falls inside the intent-dependent margin becomes a collision
// candidate at that sample's timestamp. Any candidate below EmergencyTTC
// returns immediately with confidence 0.99; otherwise candidates are
// aggregated to {min, mean, max} with a spread-derived confidence.
func ComputeTTC(vehicle VehicleState, predictions []*Prediction, maxTracks int) TTCResult {
	if len(predictions) == 0 {
		return noCollision()
	}
	if maxTracks <= 0 {
		maxTracks = MaxTracksTTC
	}

	// Nearest tracks first so the early exit fires on the most urgent ones.
	ordered := make([]*Prediction, len(predictions))
	copy(ordered, predictions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return firstPointDistance(ordered[i], vehicle.Position) < firstPointDistance(ordered[j], vehicle.Position)
	})
	if len(ordered) > maxTracks {
		ordered = ordered[:maxTracks]
	}

	var candidates []float64
	for _, pred := range ordered {
		margin := SafetyMargin(&pred.Intent)
		for _, scenario := range Scenarios {
			for _, pt := range pred.Trajectories[scenario] {
				var vp [3]float64
				for i := 0; i < 3; i++ {
					vp[i] = vehicle.Position[i] + vehicle.Velocity[i]*pt.Timestamp
				}
				if dist3(pt.Position, vp) < margin {
					if pt.Timestamp < EmergencyTTC {
						return TTCResult{Min: pt.Timestamp, Mean: pt.Timestamp, Max: pt.Timestamp, Confidence: 0.99}
					}
					candidates = append(candidates, pt.Timestamp)
				}
			}
		}
	}

	if len(candidates) == 0 {
		return noCollision()
	}

	min := floats.Min(candidates)
	max := floats.Max(candidates)
	mean := stat.Mean(candidates, nil)

	spread := max - min
	confidence := 1.0 - spread/10.0
	if confidence < 0.3 {
		confidence = 0.3
	} else if confidence > 1.0 {
		confidence = 1.0
	}

	return TTCResult{Min: min, Mean: mean, Max: max, Confidence: confidence}
}

// firstPointDistance ranks a prediction by its nominal position now-ish.
func firstPointDistance(pred *Prediction, pos [3]float64) float64 {
	nominal := pred.Nominal()
	if len(nominal) == 0 {
		return math.Inf(1)
	}
	return dist3(nominal[0].Position, pos)
}

func dist3(a, b [3]float64) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	dz := a[2] - b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
