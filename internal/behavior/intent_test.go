package behavior

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/railguard/internal/tracking"
)

func personTrack(vel [3]float64) *tracking.Track {
	return &tracking.Track{
		ID:       1,
		State:    tracking.TrackActive,
		Category: tracking.CategoryPerson,
		Velocity: vel,
		Age:      10,
	}
}

func TestInferIntentStationaryOnPlatform(t *testing.T) {
	tr := personTrack([3]float64{0, 0, 0})

	intent := InferIntent(tr, nil, ScenePlatform, nil, DefaultIntentAlpha)

	assert.Equal(t, IntentStatic, intent.State)
	assert.Equal(t, neutralDistraction, intent.DistractionProb)
}

func TestInferIntentApproachingAtCrossing(t *testing.T) {
	// Walking firmly toward the corridor (negative Z).
	tr := personTrack([3]float64{0, 0, -1.2})

	intent := InferIntent(tr, nil, SceneLevelCrossing, nil, DefaultIntentAlpha)

	assert.Equal(t, IntentApproaching, intent.State)
}

func TestInferIntentLeavingBoostsWhenWalkingAway(t *testing.T) {
	tr := personTrack([3]float64{0, 0, 1.0})

	intent := InferIntent(tr, nil, SceneLevelCrossing, nil, DefaultIntentAlpha)

	assert.Equal(t, IntentLeaving, intent.State)
}

func TestInferIntentPosteriorSumsToOne(t *testing.T) {
	cases := []struct {
		name  string
		vel   [3]float64
		scene SceneContext
	}{
		{"stationary platform", [3]float64{0, 0, 0}, ScenePlatform},
		{"approaching crossing", [3]float64{0, 0, -1}, SceneLevelCrossing},
		{"fast parallel open track", [3]float64{2, 0, 0}, SceneOpenTrack},
		{"unknown scene", [3]float64{0, 0, 0}, SceneContext("DEPOT")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			intent := InferIntent(personTrack(tc.vel), nil, tc.scene, nil, DefaultIntentAlpha)

			var sum float64
			for _, s := range IntentStates {
				p := intent.Probs[s]
				assert.GreaterOrEqual(t, p, 0.0)
				assert.LessOrEqual(t, p, 1.0)
				sum += p
			}
			assert.InDelta(t, 1.0, sum, 1e-9)
			assert.Equal(t, intent.Probs[intent.State], intent.ActionConfidence)
		})
	}
}

func TestInferIntentRotatingTowardRaisesApproach(t *testing.T) {
	tr := personTrack([3]float64{0.3, 0, 0})

	base := InferIntent(tr, nil, SceneOpenTrack, nil, DefaultIntentAlpha)
	rotating := InferIntent(tr, &PoseForecast{
		FacingAngle:     1.0,
		PredictedFacing: 0.5,
		RotatingToward:  true,
	}, SceneOpenTrack, nil, DefaultIntentAlpha)

	assert.Greater(t, rotating.Probs[IntentApproaching], base.Probs[IntentApproaching])
}

func TestSmoothIntentSuppressesFlip(t *testing.T) {
	// A long STATIC history should keep a single ambiguous frame from
	// flipping the reported state.
	staticIntent := Intent{
		State: IntentStatic,
		Probs: map[IntentState]float64{
			IntentStatic: 0.85, IntentLeaving: 0.05, IntentApproaching: 0.05, IntentCrossing: 0.05,
		},
		ActionConfidence: 0.85,
		DistractionProb:  0.2,
	}
	flicker := Intent{
		State: IntentApproaching,
		Probs: map[IntentState]float64{
			IntentStatic: 0.30, IntentLeaving: 0.10, IntentApproaching: 0.40, IntentCrossing: 0.20,
		},
		ActionConfidence: 0.40,
		DistractionProb:  0.2,
	}

	out := SmoothIntent(flicker, []Intent{staticIntent}, 0.5)

	assert.Equal(t, IntentStatic, out.State)
	assert.True(t, out.Smoothed)

	var sum float64
	for _, s := range IntentStates {
		sum += out.Probs[s]
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestSmoothIntentFirstFramePassesThrough(t *testing.T) {
	raw := Intent{
		State:            IntentCrossing,
		Probs:            map[IntentState]float64{IntentCrossing: 1},
		ActionConfidence: 1,
	}
	out := SmoothIntent(raw, nil, DefaultIntentAlpha)
	assert.Equal(t, IntentCrossing, out.State)
	assert.True(t, out.Smoothed)
}

func TestContextPriorsCopySafe(t *testing.T) {
	a := ContextPriors(ScenePlatform)
	a[IntentStatic] = 0

	b := ContextPriors(ScenePlatform)
	require.Equal(t, 0.55, b[IntentStatic], "caller mutation leaked into the shared priors")
}

func TestComputeAwarenessWithoutPose(t *testing.T) {
	tr := personTrack([3]float64{0, 0, 0})
	intent := InferIntent(tr, nil, ScenePlatform, nil, DefaultIntentAlpha)
	assert.Equal(t, 0.5, intent.AwarenessProb)
}

func TestInferWalkDirection(t *testing.T) {
	cases := []struct {
		name string
		vel  [3]float64
		want WalkDirection
	}{
		{"stationary", [3]float64{0.01, 0, 0.01}, WalkStationary},
		{"towards", [3]float64{0.1, 0, -1}, WalkTowards},
		{"away", [3]float64{0.1, 0, 1}, WalkAway},
		{"parallel", [3]float64{1, 0, 0.2}, WalkParallel},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, inferWalkDirection(tc.vel))
		})
	}
}

func TestForecastPoseRotation(t *testing.T) {
	// Yaw swinging from 1.0 rad toward 0 across one frame: the predicted
	// angle to the corridor shrinks, so the person is rotating toward it.
	prev := &tracking.PoseParams{BodyPose: []float64{0, 0.81}}
	cur := &tracking.PoseParams{BodyPose: []float64{0, 0.80}}

	pf := ForecastPose(cur, []*tracking.PoseParams{prev}, [3]float64{0, 0, 0}, 1.0/30)
	require.NotNil(t, pf)

	assert.Less(t, pf.AngularVelocity, 0.0)
	assert.True(t, pf.RotatingToward)
	assert.Less(t, pf.PredictedFacing, pf.FacingAngle)
}

func TestForecastPoseNilPose(t *testing.T) {
	assert.Nil(t, ForecastPose(nil, nil, [3]float64{}, 1.0/30))
}
