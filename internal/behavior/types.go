// Package behavior turns tracked objects into forward-looking estimates:
// multi-scenario trajectory forecasts, Bayesian intent inference, collision
// time and fused risk. It reads tracking state and never mutates it.
package behavior

// SceneContext describes the rail environment the vehicle is moving through.
// It shifts the intent priors; unknown contexts fall back to open track.
type SceneContext string

const (
	ScenePlatform      SceneContext = "PLATFORM"
	SceneLevelCrossing SceneContext = "LEVEL_CROSSING"
	SceneCrossing      SceneContext = "CROSSING" // alias for level crossing
	SceneOpenTrack     SceneContext = "OPEN_TRACK"
)

// VehicleState is the rail vehicle's current dynamics, supplied externally.
type VehicleState struct {
	Position     [3]float64 `json:"position"`
	Velocity     [3]float64 `json:"velocity"`
	Acceleration [3]float64 `json:"acceleration"`
	Heading      float64    `json:"heading"`
}

// Scenario names one branch of the bracketed trajectory forecast.
type Scenario string

const (
	ScenarioOptimistic  Scenario = "optimistic"  // object recedes faster than nominal
	ScenarioNominal     Scenario = "nominal"     // filter state propagated as-is
	ScenarioPessimistic Scenario = "pessimistic" // object approaches faster than nominal
)

// Scenarios lists the forecast branches in evaluation order.
var Scenarios = []Scenario{ScenarioOptimistic, ScenarioNominal, ScenarioPessimistic}

// TrajectoryPoint is a predicted position at a future offset, with
// uncertainty growing quadratically in time.
type TrajectoryPoint struct {
	Position    [3]float64
	Timestamp   float64 // seconds from now
	Uncertainty float64 // meters, 1-sigma
}

// Trajectory is an ordered list of forecast points.
type Trajectory []TrajectoryPoint

// TrackValidation is the per-prediction outcome of optical-flow
// cross-validation.
type TrackValidation string

const (
	TrackValidated   TrackValidation = "VALIDATED"
	TrackUncertain   TrackValidation = "UNCERTAIN"
	TrackUnvalidated TrackValidation = "UNVALIDATED"
)

// ValidationStatus aggregates per-prediction validation over the frame.
type ValidationStatus string

const (
	ValidationOK        ValidationStatus = "OK" // no flow supplied, nothing to validate
	ValidationValidated ValidationStatus = "VALIDATED"
	ValidationPartial   ValidationStatus = "PARTIAL"
	ValidationUncertain ValidationStatus = "UNCERTAIN"
)

// Prediction is the per-track output of the behavior engine. Predictions are
// recomputed every frame and not retained beyond the bounded smoothing
// history.
type Prediction struct {
	TrackID      int64
	Trajectories map[Scenario]Trajectory
	Intent       Intent
	Pose         *PoseForecast // persons with pose data only
	Validation   TrackValidation
	RiskScore    float64
}

// Nominal returns the nominal trajectory, or nil when absent.
func (p *Prediction) Nominal() Trajectory {
	if p == nil {
		return nil
	}
	return p.Trajectories[ScenarioNominal]
}
