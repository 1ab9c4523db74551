// Package safety holds the last stage of the decision core: the degraded-mode
// detector that converts perception confidence into an operating mode, and
// the decision engine that maps collision time and risk into an actuation
// decision while enforcing the mode veto.
package safety

// SystemMode is the operating mode derived from perception confidence.
type SystemMode string

const (
	// ModeNominal enables full functionality including automatic braking.
	ModeNominal SystemMode = "nominal"
	// ModeDegraded disables automatic braking; only advisory alerts issue.
	ModeDegraded SystemMode = "degraded"
	// ModeFault defers entirely to manual operator control.
	ModeFault SystemMode = "fault"
)

// DegradedReason names the dominant cause of a degraded mode.
type DegradedReason string

const (
	ReasonNone             DegradedReason = "none"
	ReasonTunnelDark       DegradedReason = "tunnel_dark"
	ReasonRailOcclusion    DegradedReason = "rail_occlusion"
	ReasonLowContrast      DegradedReason = "low_contrast"
	ReasonCalibrationDrift DegradedReason = "calibration_drift"
)

// Operator recommendations per mode.
const (
	RecommendNormalOperation   = "NORMAL_OPERATION"
	RecommendOperatorVigilance = "OPERATOR_VIGILANCE_REQUIRED"
	RecommendManualControl     = "MANUAL_CONTROL_REQUIRED"
)

// ConfidenceSignals are the four perception confidence scalars in [0,1]
// consumed each frame.
type ConfidenceSignals struct {
	RailVisibility        float64 `json:"rail_visibility"`
	CalibrationConfidence float64 `json:"calibration_confidence"`
	DepthConfidence       float64 `json:"depth_confidence"`
	DetectionConfidence   float64 `json:"detection_confidence"`
}

// ModeStatus is the smoothed operating mode with its safety probabilities.
// PMiss, the probability of missing a real obstacle, is the critical metric
// and worsens monotonically NOMINAL < DEGRADED < FAULT.
type ModeStatus struct {
	Mode            SystemMode
	ConfidenceScore float64
	DegradedReason  DegradedReason
	PAlertCorrect   float64
	PMiss           float64
	Recommendation  string
}

// Confidence blend weights and mode thresholds.
const (
	weightRailVisibility = 0.30
	weightCalibration    = 0.30
	weightDepth          = 0.20
	weightDetection      = 0.20

	// DefaultNominalThreshold and DefaultDegradedThreshold split the smoothed
	// confidence into NOMINAL / DEGRADED / FAULT.
	DefaultNominalThreshold  = 0.80
	DefaultDegradedThreshold = 0.40

	// ConfidenceWindow is the smoothing window, about one second at 30 fps.
	ConfidenceWindow = 30
)

// Detector converts the four confidence signals into a smoothed SystemMode.
// It is deliberately independent of the tracking and behavior state so a
// perception failure cannot hide behind a healthy-looking track set.
type Detector struct {
	nominalThreshold  float64
	degradedThreshold float64

	history []float64
}

// NewDetector creates a detector with the given thresholds; zero values fall
// back to the defaults.
func NewDetector(nominalThreshold, degradedThreshold float64) *Detector {
	if nominalThreshold <= 0 {
		nominalThreshold = DefaultNominalThreshold
	}
	if degradedThreshold <= 0 {
		degradedThreshold = DefaultDegradedThreshold
	}
	return &Detector{
		nominalThreshold:  nominalThreshold,
		degradedThreshold: degradedThreshold,
		history:           make([]float64, 0, ConfidenceWindow),
	}
}

// Update folds one frame of confidence signals into the rolling window and
// returns the resulting mode status.
func (d *Detector) Update(sig ConfidenceSignals) ModeStatus {
	overall := sig.RailVisibility*weightRailVisibility +
		sig.CalibrationConfidence*weightCalibration +
		sig.DepthConfidence*weightDepth +
		sig.DetectionConfidence*weightDetection

	d.history = append(d.history, overall)
	if len(d.history) > ConfidenceWindow {
		d.history = d.history[1:]
	}

	var sum float64
	for _, v := range d.history {
		sum += v
	}
	avg := sum / float64(len(d.history))

	switch {
	case avg >= d.nominalThreshold:
		return ModeStatus{
			Mode:            ModeNominal,
			ConfidenceScore: avg,
			DegradedReason:  ReasonNone,
			PAlertCorrect:   0.95,
			PMiss:           0.001,
			Recommendation:  RecommendNormalOperation,
		}
	case avg >= d.degradedThreshold:
		return ModeStatus{
			Mode:            ModeDegraded,
			ConfidenceScore: avg,
			DegradedReason:  inferReason(sig),
			PAlertCorrect:   0.50 + avg*0.40,
			PMiss:           0.05 + (1-avg)*0.20,
			Recommendation:  RecommendOperatorVigilance,
		}
	default:
		return ModeStatus{
			Mode:            ModeFault,
			ConfidenceScore: avg,
			DegradedReason:  ReasonCalibrationDrift,
			PAlertCorrect:   0.30,
			PMiss:           0.40,
			Recommendation:  RecommendManualControl,
		}
	}
}

// Reset clears the confidence history. Operator-triggered; recovery is
// otherwise automatic as the window rolls.
func (d *Detector) Reset() {
	d.history = d.history[:0]
}

// inferReason picks the degraded cause from the lowest input factor.
func inferReason(sig ConfidenceSignals) DegradedReason {
	type factor struct {
		reason DegradedReason
		value  float64
	}
	tunnel := sig.RailVisibility
	if sig.DepthConfidence < tunnel {
		tunnel = sig.DepthConfidence
	}
	factors := []factor{
		{ReasonRailOcclusion, sig.RailVisibility},
		{ReasonCalibrationDrift, sig.CalibrationConfidence},
		{ReasonLowContrast, sig.DepthConfidence},
		{ReasonTunnelDark, tunnel},
	}
	best := factors[0]
	for _, f := range factors[1:] {
		if f.value < best.value {
			best = f
		}
	}
	return best.reason
}
