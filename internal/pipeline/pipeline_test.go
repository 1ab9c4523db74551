package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/railguard/internal/behavior"
	"github.com/banshee-data/railguard/internal/safety"
	"github.com/banshee-data/railguard/internal/tracking"
)

func goodSignals() safety.ConfidenceSignals {
	return safety.ConfidenceSignals{
		RailVisibility:        0.95,
		CalibrationConfidence: 0.92,
		DepthConfidence:       0.90,
		DetectionConfidence:   0.93,
	}
}

func personDet(x, y, z float64) tracking.Detection {
	return tracking.Detection{
		Box:        tracking.BBox3D{X: x, Y: y, Z: z, Width: 0.5, Height: 1.8, Depth: 0.5},
		Category:   tracking.CategoryPerson,
		Confidence: 0.9,
	}
}

func frameAt(ts int64, dets ...tracking.Detection) FrameInput {
	return FrameInput{
		TSUnixNanos: ts,
		Detections:  dets,
		Vehicle:     behavior.VehicleState{Velocity: [3]float64{0, 0, 10}},
		Scene:       behavior.SceneOpenTrack,
		Confidence:  goodSignals(),
	}
}

const frameNanos = int64(33_333_333) // ~30 fps

func TestPipelineEmptyTrackIsClear(t *testing.T) {
	p := New(nil, Options{})

	res := p.ProcessFrame(frameAt(frameNanos))

	assert.Equal(t, safety.ActionClear, res.Decision.Action)
	assert.Empty(t, res.Tracks)
	assert.True(t, res.Behavior.TTC.IsInf())
}

func TestPipelineTracksAndDecides(t *testing.T) {
	p := New(nil, Options{})

	// Person standing in the corridor 40 m ahead of a 10 m/s vehicle:
	// collision in 4 s, which lands in the caution band.
	var res FrameResult
	ts := frameNanos
	for i := 0; i < 5; i++ {
		res = p.ProcessFrame(frameAt(ts, personDet(0, 0, 40)))
		ts += frameNanos
	}

	require.Len(t, res.Tracks, 1)
	assert.Equal(t, tracking.TrackActive, res.Tracks[0].State)
	require.False(t, res.Behavior.TTC.IsInf())
	assert.Equal(t, safety.ActionCaution, res.Decision.Action)
	assert.Equal(t, safety.ModeNominal, res.Mode.Mode)
}

func TestPipelineMissingBatchCoasts(t *testing.T) {
	p := New(nil, Options{})

	ts := frameNanos
	for i := 0; i < 3; i++ {
		p.ProcessFrame(frameAt(ts, personDet(0, 0, 40)))
		ts += frameNanos
	}

	// A dropped detection batch is an empty frame, not an error: the track
	// ghosts but the frame still decides.
	res := p.ProcessFrame(frameAt(ts))
	require.Len(t, res.Tracks, 1)
	assert.Equal(t, tracking.TrackGhost, res.Tracks[0].State)
}

func TestPipelineDegradedModeNeverBrakes(t *testing.T) {
	p := New(nil, Options{})

	in := frameAt(frameNanos, personDet(0, 0, 5))
	in.Confidence = safety.ConfidenceSignals{
		RailVisibility:        0.5,
		CalibrationConfidence: 0.6,
		DepthConfidence:       0.6,
		DetectionConfidence:   0.6,
	}

	ts := frameNanos
	var res FrameResult
	for i := 0; i < safety.ConfidenceWindow; i++ {
		in.TSUnixNanos = ts
		res = p.ProcessFrame(in)
		ts += frameNanos
	}

	assert.Equal(t, safety.ModeDegraded, res.Mode.Mode)
	assert.False(t, res.Decision.Action.IsBraking())
}

func TestPipelineFrameIndexAdvances(t *testing.T) {
	p := New(nil, Options{})

	first := p.ProcessFrame(frameAt(frameNanos))
	second := p.ProcessFrame(frameAt(2 * frameNanos))

	assert.Equal(t, int64(0), first.FrameIndex)
	assert.Equal(t, int64(1), second.FrameIndex)
}

func TestPipelineReset(t *testing.T) {
	p := New(nil, Options{})

	ts := frameNanos
	for i := 0; i < 3; i++ {
		p.ProcessFrame(frameAt(ts, personDet(0, 0, 40)))
		ts += frameNanos
	}
	require.Equal(t, 1, p.Registry().Len())

	p.Reset()
	assert.Equal(t, 0, p.Registry().Len())

	res := p.ProcessFrame(frameAt(ts))
	assert.Empty(t, res.Tracks)
}

func TestPipelineTimingRecorded(t *testing.T) {
	p := New(nil, Options{})

	res := p.ProcessFrame(frameAt(frameNanos, personDet(0, 0, 40)))

	assert.GreaterOrEqual(t, int64(res.Timing.Tracking), int64(0))
	assert.GreaterOrEqual(t, int64(res.Timing.Behavior), int64(0))
	assert.GreaterOrEqual(t, int64(res.Timing.Safety), int64(0))
}
