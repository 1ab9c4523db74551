package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feed(d *Detector, sig ConfidenceSignals, n int) ModeStatus {
	var status ModeStatus
	for i := 0; i < n; i++ {
		status = d.Update(sig)
	}
	return status
}

func TestDetectorNominalWindow(t *testing.T) {
	d := NewDetector(0, 0)
	status := feed(d, ConfidenceSignals{
		RailVisibility:        0.95,
		CalibrationConfidence: 0.90,
		DepthConfidence:       0.88,
		DetectionConfidence:   0.92,
	}, ConfidenceWindow)

	assert.Equal(t, ModeNominal, status.Mode)
	assert.Equal(t, ReasonNone, status.DegradedReason)
	assert.Equal(t, RecommendNormalOperation, status.Recommendation)
	assert.Equal(t, 0.95, status.PAlertCorrect)
	assert.Less(t, status.PMiss, 0.01)
}

func TestDetectorFaultWindow(t *testing.T) {
	d := NewDetector(0, 0)
	status := feed(d, ConfidenceSignals{
		RailVisibility:        0.10,
		CalibrationConfidence: 0.15,
		DepthConfidence:       0.20,
		DetectionConfidence:   0.25,
	}, ConfidenceWindow)

	assert.Equal(t, ModeFault, status.Mode)
	assert.Equal(t, RecommendManualControl, status.Recommendation)
	assert.Equal(t, 0.40, status.PMiss)
}

func TestDetectorDegradedBand(t *testing.T) {
	d := NewDetector(0, 0)
	status := feed(d, ConfidenceSignals{
		RailVisibility:        0.60,
		CalibrationConfidence: 0.60,
		DepthConfidence:       0.60,
		DetectionConfidence:   0.60,
	}, ConfidenceWindow)

	require.Equal(t, ModeDegraded, status.Mode)
	assert.Equal(t, RecommendOperatorVigilance, status.Recommendation)
	assert.InDelta(t, 0.60, status.ConfidenceScore, 1e-9)
	assert.InDelta(t, 0.50+0.60*0.40, status.PAlertCorrect, 1e-9)
	assert.InDelta(t, 0.05+0.40*0.20, status.PMiss, 1e-9)
}

// TestDetectorPMissOrdering checks the monotonic safety claim: the miss
// probability only worsens as the mode degrades.
func TestDetectorPMissOrdering(t *testing.T) {
	nominal := feed(NewDetector(0, 0), ConfidenceSignals{0.9, 0.9, 0.9, 0.9}, ConfidenceWindow)
	degraded := feed(NewDetector(0, 0), ConfidenceSignals{0.6, 0.6, 0.6, 0.6}, ConfidenceWindow)
	fault := feed(NewDetector(0, 0), ConfidenceSignals{0.2, 0.2, 0.2, 0.2}, ConfidenceWindow)

	assert.Less(t, nominal.PMiss, degraded.PMiss)
	assert.Less(t, degraded.PMiss, fault.PMiss)
}

// TestDetectorSmoothingLag verifies a single bad frame cannot flip a healthy
// window out of NOMINAL.
func TestDetectorSmoothingLag(t *testing.T) {
	d := NewDetector(0, 0)
	good := ConfidenceSignals{0.95, 0.95, 0.95, 0.95}
	feed(d, good, ConfidenceWindow)

	status := d.Update(ConfidenceSignals{})
	assert.Equal(t, ModeNominal, status.Mode, "one dropout frame must not flip the mode")

	// A sustained outage does flip it.
	status = feed(d, ConfidenceSignals{}, ConfidenceWindow)
	assert.Equal(t, ModeFault, status.Mode)
}

func TestDetectorDegradedReasonTracksWorstSignal(t *testing.T) {
	cases := []struct {
		name string
		sig  ConfidenceSignals
		want DegradedReason
	}{
		{"occluded rails", ConfidenceSignals{0.30, 0.90, 0.80, 0.80}, ReasonRailOcclusion},
		{"calibration drift", ConfidenceSignals{0.90, 0.30, 0.80, 0.80}, ReasonCalibrationDrift},
		{"low contrast", ConfidenceSignals{0.90, 0.80, 0.30, 0.80}, ReasonLowContrast},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status := feed(NewDetector(0, 0), tc.sig, ConfidenceWindow)
			require.Equal(t, ModeDegraded, status.Mode)
			assert.Equal(t, tc.want, status.DegradedReason)
		})
	}
}

func TestDetectorReset(t *testing.T) {
	d := NewDetector(0, 0)
	feed(d, ConfidenceSignals{}, ConfidenceWindow)

	d.Reset()

	status := d.Update(ConfidenceSignals{0.95, 0.95, 0.95, 0.95})
	assert.Equal(t, ModeNominal, status.Mode, "reset must clear the poisoned window")
}

func TestDetectorRecoveryAsWindowRolls(t *testing.T) {
	d := NewDetector(0, 0)
	feed(d, ConfidenceSignals{}, ConfidenceWindow)
	status := feed(d, ConfidenceSignals{0.95, 0.95, 0.95, 0.95}, ConfidenceWindow)

	assert.Equal(t, ModeNominal, status.Mode)
}
