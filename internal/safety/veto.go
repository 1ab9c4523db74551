package safety

import (
	"math"

	"github.com/banshee-data/railguard/internal/behavior"
	"github.com/banshee-data/railguard/internal/monitoring"
)

// Action is the actuation decision, ordered from most to least severe.
type Action string

const (
	ActionEmergencyBrake Action = "EMERGENCY_BRAKE"
	ActionServiceBrake   Action = "SERVICE_BRAKE"
	ActionWarning        Action = "WARNING"
	ActionCaution        Action = "CAUTION"
	ActionClear          Action = "CLEAR"
)

// Decision ladder thresholds, in seconds of effective collision time.
const (
	EmergencyBrakeTTC = 1.0
	ServiceBrakeTTC   = 2.0
	WarningTTC        = 3.0
	CautionTTC        = 5.0

	// CriticalRiskThreshold marks a track as critical; three or more critical
	// tracks force an emergency brake regardless of collision time.
	CriticalRiskThreshold = 0.8
	CriticalTrackCount    = 3

	// lowTTCConfidence switches the effective collision time from the mean to
	// the conservative minimum.
	lowTTCConfidence = 0.7
)

// Decision is the per-frame output of the decision engine.
type Decision struct {
	Action       Action
	EffectiveTTC float64
	Confidence   float64
	Mode         SystemMode
	Reason       string
}

// BrakeFunc commands the hardwired brake line. Implementations must tolerate
// repeated invocation.
type BrakeFunc func() error

// Veto maps behavior output to an actuation decision while enforcing the
// operating-mode veto: braking actions are only ever issued in NOMINAL mode.
type Veto struct {
	brake BrakeFunc
}

// NewVeto creates the decision engine. brake may be nil when no hardwired
// brake line is attached (replay, tests).
func NewVeto(brake BrakeFunc) *Veto {
	return &Veto{brake: brake}
}

// Decide evaluates one frame. The emergency brake command, when issued, is
// dispatched fire-and-forget so a slow or faulted brake line can never stall
// the decision loop.
func (v *Veto) Decide(res behavior.Result, status ModeStatus) Decision {
	ttc, conf := effectiveTTC(res)

	d := Decision{
		EffectiveTTC: ttc,
		Confidence:   conf,
		Mode:         status.Mode,
	}

	switch status.Mode {
	case ModeFault:
		// The decision core cannot be trusted; actuation defers to the
		// operator per the mode recommendation.
		d.Action = ActionClear
		d.Reason = status.Recommendation
		return d
	case ModeDegraded:
		d.Action = degradedAction(ttc)
		d.Reason = "degraded mode: advisory only"
		return d
	}

	d.Action, d.Reason = nominalAction(ttc, res)
	if d.Action == ActionEmergencyBrake {
		v.fireBrake()
	}
	return d
}

// effectiveTTC picks the operative collision time: the mean of the scenario
// distribution, or the conservative minimum when validation or confidence
// undermines it.
func effectiveTTC(res behavior.Result) (float64, float64) {
	ttc := res.TTC
	if res.ValidationStatus == behavior.ValidationUncertain || ttc.Confidence < lowTTCConfidence {
		return ttc.Min, 0.5
	}
	return ttc.Mean, ttc.Confidence
}

func nominalAction(ttc float64, res behavior.Result) (Action, string) {
	switch {
	case ttc < EmergencyBrakeTTC:
		return ActionEmergencyBrake, "collision imminent"
	case res.CriticalCount() >= CriticalTrackCount:
		return ActionEmergencyBrake, "multiple critical tracks"
	case ttc < ServiceBrakeTTC && res.MaxRisk() > CriticalRiskThreshold:
		return ActionServiceBrake, "high risk at close range"
	case ttc < WarningTTC:
		return ActionWarning, "collision time below warning threshold"
	case ttc < CautionTTC:
		return ActionCaution, "collision time below caution threshold"
	case res.ValidationStatus == behavior.ValidationUncertain:
		return ActionCaution, "prediction validation uncertain"
	default:
		return ActionClear, ""
	}
}

// degradedAction is the advisory-only ladder: each braking rung maps to the
// strongest non-braking alert instead.
func degradedAction(ttc float64) Action {
	switch {
	case ttc < EmergencyBrakeTTC:
		return ActionWarning
	case ttc < ServiceBrakeTTC:
		return ActionWarning
	case ttc < WarningTTC:
		return ActionCaution
	default:
		return ActionClear
	}
}

// fireBrake dispatches the hardwired brake command without waiting on it.
func (v *Veto) fireBrake() {
	if v.brake == nil {
		return
	}
	brake := v.brake
	go func() {
		if err := brake(); err != nil {
			monitoring.Logf("safety: emergency brake command failed: %v", err)
		}
	}()
}

// IsBraking reports whether an action commands the brakes.
func (a Action) IsBraking() bool {
	return a == ActionEmergencyBrake || a == ActionServiceBrake
}

// Severity orders actions for comparison; higher is more severe.
func (a Action) Severity() int {
	switch a {
	case ActionEmergencyBrake:
		return 4
	case ActionServiceBrake:
		return 3
	case ActionWarning:
		return 2
	case ActionCaution:
		return 1
	default:
		return 0
	}
}

// NoCollision reports whether the effective collision time is unbounded.
func (d Decision) NoCollision() bool { return math.IsInf(d.EffectiveTTC, 1) }
