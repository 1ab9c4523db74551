package behavior

import (
	"math"

	"github.com/banshee-data/railguard/internal/tracking"
)

// IntentState is the latent intent of a person-track relative to the rail
// corridor.
type IntentState string

const (
	IntentStatic      IntentState = "STATIC"
	IntentLeaving     IntentState = "LEAVING"
	IntentApproaching IntentState = "APPROACHING"
	IntentCrossing    IntentState = "CROSSING"
)

// IntentStates lists the states in canonical order; argmax ties break toward
// the earlier state so inference stays deterministic.
var IntentStates = []IntentState{IntentStatic, IntentLeaving, IntentApproaching, IntentCrossing}

// neutralDistraction is the distraction probability assumed when no pose data
// is available.
const neutralDistraction = 0.3

// Intent is the posterior over intent states plus the derived distraction and
// awareness probabilities. Probs always sums to 1.
type Intent struct {
	State            IntentState
	Probs            map[IntentState]float64
	ActionConfidence float64 // posterior mass of the selected state
	DistractionProb  float64
	AwarenessProb    float64
	Smoothed         bool
}

// InferIntent runs one frame of Bayesian intent inference for a track:
// context priors are reweighted multiplicatively by motion and pose
// observations, renormalised, then temporally smoothed against the previous
// frame to suppress oscillation.
func InferIntent(track *tracking.Track, pose *PoseForecast, scene SceneContext, history []Intent, alpha float64) Intent {
	priors := ContextPriors(scene)

	vel := track.Velocity
	speed := math.Sqrt(vel[0]*vel[0] + vel[1]*vel[1] + vel[2]*vel[2])
	facing := facingScore(pose)
	towards := movingTowardsCorridor(vel)
	distraction := computeDistraction(track)
	awareness := computeAwareness(track, pose)

	posterior := reweight(priors, speed, facing, towards, pose)

	state, conf := argmaxIntent(posterior)
	raw := Intent{
		State:            state,
		Probs:            posterior,
		ActionConfidence: conf,
		DistractionProb:  distraction,
		AwarenessProb:    awareness,
	}

	return SmoothIntent(raw, history, alpha)
}

// facingScore maps the angle to the corridor to [0,1]; 1 means squarely
// facing it. Without pose data the score is neutral.
func facingScore(pose *PoseForecast) float64 {
	if pose == nil {
		return 0.5
	}
	return 1 - pose.FacingAngle/math.Pi
}

// movingTowardsCorridor scores the corridor-ward velocity component: negative
// Z approaches the vehicle's path.
func movingTowardsCorridor(vel [3]float64) float64 {
	switch {
	case vel[2] < -0.1:
		return 1.0
	case vel[2] > 0.1:
		return 0.0
	default:
		return 0.5
	}
}

// reweight applies the fixed observation heuristics to the priors and
// renormalises so the posterior sums to 1.
func reweight(priors map[IntentState]float64, speed, facing, towards float64, pose *PoseForecast) map[IntentState]float64 {
	post := make(map[IntentState]float64, len(priors))
	for k, v := range priors {
		post[k] = v
	}

	if speed < 0.1 {
		post[IntentStatic] *= 2.0
		post[IntentCrossing] *= 0.5
	}
	if towards > 0.7 {
		post[IntentApproaching] *= 2.0
		post[IntentLeaving] *= 0.3
	}
	if towards < 0.3 {
		post[IntentLeaving] *= 2.0
		post[IntentApproaching] *= 0.3
	}
	if speed > 0.5 && facing > 0.7 {
		post[IntentCrossing] *= 2.0
	}
	// A person turning toward the corridor is drifting out of STATIC/LEAVING
	// even before the velocity shows it.
	if pose != nil && pose.RotatingToward {
		post[IntentApproaching] *= 1.25
		post[IntentCrossing] *= 1.25
	}

	var total float64
	for _, v := range post {
		total += v
	}
	if total <= 0 {
		// Degenerate priors; fall back to uniform.
		for _, s := range IntentStates {
			post[s] = 1.0 / float64(len(IntentStates))
		}
		return post
	}
	for k := range post {
		post[k] /= total
	}
	return post
}

func argmaxIntent(probs map[IntentState]float64) (IntentState, float64) {
	best := IntentStates[0]
	bestP := probs[best]
	for _, s := range IntentStates[1:] {
		if probs[s] > bestP {
			best, bestP = s, probs[s]
		}
	}
	return best, bestP
}

// computeDistraction equal-weights four pose-derived indicators: head down,
// arm raised to ear, irregular gait and a carried object. Tracks without pose
// data get the neutral default.
func computeDistraction(track *tracking.Track) float64 {
	if track.Pose == nil {
		return neutralDistraction
	}
	headDown := 0.0
	if track.Pose.HeadTilt() > 0.3 {
		headDown = 1.0
	}
	return 0.25*headDown +
		0.25*armAtEar(track.Pose) +
		0.25*irregularGait(track.History) +
		0.25*carriedObject(track.Pose)
}

// armAtEar checks the arm pose components (indices 48-59) for a raised-arm
// posture consistent with a phone call.
func armAtEar(pose *tracking.PoseParams) float64 {
	if pose == nil || len(pose.BodyPose) < 60 {
		return 0
	}
	var sum float64
	for _, v := range pose.BodyPose[48:60] {
		sum += math.Abs(v)
	}
	if sum/12 > 1.0 {
		return 1.0
	}
	return 0
}

// irregularGait scores step-length variability over the position history; an
// erratic stride suggests inattention. Needs at least 5 samples.
func irregularGait(history []tracking.TrackPoint) float64 {
	if len(history) < 5 {
		return 0
	}
	steps := make([]float64, 0, len(history)-1)
	var mean float64
	for i := 1; i < len(history); i++ {
		dx := history[i].X - history[i-1].X
		dz := history[i].Z - history[i-1].Z
		step := math.Sqrt(dx*dx + dz*dz)
		steps = append(steps, step)
		mean += step
	}
	mean /= float64(len(steps))
	if mean < 1e-6 {
		return 0
	}
	var variance float64
	for _, s := range steps {
		variance += (s - mean) * (s - mean)
	}
	variance /= float64(len(steps))
	cv := math.Sqrt(variance) / mean
	if cv > 1 {
		cv = 1
	}
	return cv
}

// carriedObject checks for a sustained one-arm-forward asymmetry.
func carriedObject(pose *tracking.PoseParams) float64 {
	if pose == nil || len(pose.BodyPose) < 60 {
		return 0
	}
	var left, right float64
	for _, v := range pose.BodyPose[48:54] {
		left += math.Abs(v)
	}
	for _, v := range pose.BodyPose[54:60] {
		right += math.Abs(v)
	}
	if math.Abs(left-right) > 0.8 {
		return 0.5
	}
	return 0
}

// computeAwareness estimates the probability the person has seen the vehicle:
// facing the corridor with the head up. Without pose data it stays neutral.
func computeAwareness(track *tracking.Track, pose *PoseForecast) float64 {
	if track.Pose == nil || pose == nil {
		return 0.5
	}
	headDown := 0.0
	if track.Pose.HeadTilt() > 0.3 {
		headDown = 1.0
	}
	return facingScore(pose) * (1 - headDown)
}
