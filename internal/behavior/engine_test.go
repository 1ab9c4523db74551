package behavior

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/railguard/internal/tracking"
)

func engineTrack(id int64, pos, vel [3]float64) *tracking.Track {
	return &tracking.Track{
		ID:           id,
		State:        tracking.TrackActive,
		Category:     tracking.CategoryPerson,
		Box:          tracking.BBox3D{X: pos[0], Y: pos[1], Z: pos[2], Width: 0.5, Height: 1.8, Depth: 0.5},
		Velocity:     vel,
		Age:          10,
		MatchCount:   10,
		Confidence:   0.9,
		QualityScore: 0.8,
	}
}

func TestEngineProcessEmptyFrame(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())

	res := e.Process(nil, VehicleState{}, SceneOpenTrack, nil, 1.0/30)

	assert.Empty(t, res.Predictions)
	assert.True(t, res.TTC.IsInf())
	assert.Equal(t, ValidationOK, res.ValidationStatus)
	assert.Equal(t, 0.0, res.MaxRisk())
	assert.Equal(t, 0, res.CriticalCount())
}

func TestEngineProcessProducesPredictionPerTrack(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())
	tracks := []*tracking.Track{
		engineTrack(1, [3]float64{2, 0, 30}, [3]float64{0, 0, -0.5}),
		engineTrack(2, [3]float64{-5, 0, 60}, [3]float64{0, 0, 0}),
	}

	res := e.Process(tracks, VehicleState{Velocity: [3]float64{0, 0, 10}}, SceneOpenTrack, nil, 1.0/30)

	require.Len(t, res.Predictions, 2)
	require.Len(t, res.RiskScores, 2)
	for _, pred := range res.Predictions {
		for _, s := range Scenarios {
			assert.Len(t, pred.Trajectories[s], len(DefaultHorizons))
		}
		risk := res.RiskScores[pred.TrackID]
		assert.GreaterOrEqual(t, risk, 0.0)
		assert.LessOrEqual(t, risk, 1.0)
		assert.Equal(t, risk, pred.RiskScore)
	}
}

func TestEngineImminentCollisionRaisesRisk(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())
	vehicle := VehicleState{Velocity: [3]float64{0, 0, 10}}

	// Person standing in the corridor 20 m ahead of a 10 m/s vehicle.
	inPath := e.Process([]*tracking.Track{
		engineTrack(1, [3]float64{0, 0, 20}, [3]float64{0, 0, 0}),
	}, vehicle, SceneOpenTrack, nil, 1.0/30)

	e.Reset()
	clear := e.Process([]*tracking.Track{
		engineTrack(1, [3]float64{500, 0, 500}, [3]float64{0, 0, 0}),
	}, vehicle, SceneOpenTrack, nil, 1.0/30)

	require.False(t, inPath.TTC.IsInf())
	assert.True(t, clear.TTC.IsInf())
	assert.Greater(t, inPath.MaxRisk(), clear.MaxRisk())
}

func TestEngineValidationStatusAggregation(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())
	vehicle := VehicleState{}

	// A stationary track's kinematic velocity is zero, matching a zero flow
	// field, so its prediction validates.
	stationary := engineTrack(1, [3]float64{5, 5, 10}, [3]float64{0, 0, 0})
	// A fast track diverges from the same zero flow.
	fast := engineTrack(2, [3]float64{5, 5, 10}, [3]float64{3, 0, 0})

	flow := uniformFlow(20, 20, 0, 0)

	t.Run("all validated", func(t *testing.T) {
		res := e.Process([]*tracking.Track{stationary}, vehicle, SceneOpenTrack, flow, 1.0/30)
		assert.Equal(t, ValidationValidated, res.ValidationStatus)
	})
	t.Run("partial", func(t *testing.T) {
		res := e.Process([]*tracking.Track{stationary, fast}, vehicle, SceneOpenTrack, flow, 1.0/30)
		assert.Equal(t, ValidationPartial, res.ValidationStatus)
	})
	t.Run("uncertain", func(t *testing.T) {
		res := e.Process([]*tracking.Track{fast}, vehicle, SceneOpenTrack, flow, 1.0/30)
		assert.Equal(t, ValidationUncertain, res.ValidationStatus)
	})
	t.Run("no flow reports ok", func(t *testing.T) {
		res := e.Process([]*tracking.Track{fast}, vehicle, SceneOpenTrack, nil, 1.0/30)
		assert.Equal(t, ValidationOK, res.ValidationStatus)
	})
}

func TestEngineSafetyMarginWorstIntent(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())
	vehicle := VehicleState{Velocity: [3]float64{0, 0, 10}}

	// Walking toward the corridor: intent lands on APPROACHING, margin 1.5×.
	res := e.Process([]*tracking.Track{
		engineTrack(1, [3]float64{10, 0, 50}, [3]float64{0, 0, -1.2}),
	}, vehicle, SceneLevelCrossing, nil, 1.0/30)

	assert.InDelta(t, 7.5, res.SafetyMargin, 1e-9)
}

func TestEngineRiskSmoothingAcrossFrames(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())
	vehicle := VehicleState{Velocity: [3]float64{0, 0, 10}}

	mk := func(z float64) []*tracking.Track {
		return []*tracking.Track{engineTrack(1, [3]float64{0, 0, z}, [3]float64{0, 0, 0})}
	}

	// Far and harmless for a while, then suddenly in the path: smoothing
	// keeps the second frame's risk below the raw in-path value.
	e.Process(mk(500), vehicle, SceneOpenTrack, nil, 1.0/30)
	smoothed := e.Process(mk(20), vehicle, SceneOpenTrack, nil, 1.0/30)

	fresh := NewEngine(DefaultEngineConfig())
	raw := fresh.Process(mk(20), vehicle, SceneOpenTrack, nil, 1.0/30)

	assert.Less(t, smoothed.MaxRisk(), raw.MaxRisk())
}

func TestEngineCriticalCount(t *testing.T) {
	res := Result{RiskScores: map[int64]float64{1: 0.9, 2: 0.85, 3: 0.5, 4: 0.81}}
	assert.Equal(t, 3, res.CriticalCount())
	assert.Equal(t, 0.9, res.MaxRisk())
}
