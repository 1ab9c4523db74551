package behavior

import (
	"github.com/banshee-data/railguard/internal/tracking"
)

// EngineConfig holds the tuning parameters for the behavior engine.
type EngineConfig struct {
	Horizons         []float64 // forecast horizons in seconds
	ScenarioSpread   float64   // optimistic/pessimistic bracketing fraction
	IntentAlpha      float64   // intent smoothing weight for the current frame
	RiskAlpha        float64   // risk smoothing weight for the current frame
	MaxTracksTTC     int       // nearest-track bound for TTC evaluation
	BaseSafetyMargin float64   // meters, before intent multipliers
}

// DefaultEngineConfig returns the default behavior configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Horizons:         DefaultHorizons,
		ScenarioSpread:   DefaultScenarioSpread,
		IntentAlpha:      DefaultIntentAlpha,
		RiskAlpha:        DefaultRiskAlpha,
		MaxTracksTTC:     MaxTracksTTC,
		BaseSafetyMargin: defaultSafetyMargin,
	}
}

// marginMultipliers widen the reported safety margin per intent state.
var marginMultipliers = map[IntentState]float64{
	IntentStatic:      1.0,
	IntentLeaving:     0.8,
	IntentApproaching: 1.5,
	IntentCrossing:    2.0,
}

// Result is the behavior engine's per-frame output, recomputed every frame.
type Result struct {
	Predictions      []*Prediction
	RiskScores       map[int64]float64
	TTC              TTCResult
	SafetyMargin     float64
	ValidationStatus ValidationStatus
}

// MaxRisk returns the highest per-track risk, or 0 with no tracks.
func (r *Result) MaxRisk() float64 {
	var max float64
	for _, v := range r.RiskScores {
		if v > max {
			max = v
		}
	}
	return max
}

// CriticalCount returns the number of tracks with risk above 0.8.
func (r *Result) CriticalCount() int {
	var n int
	for _, v := range r.RiskScores {
		if v > 0.8 {
			n++
		}
	}
	return n
}

// Engine runs the per-frame behavior pass: forecast, intent, cross-validation,
// collision time and risk. It keeps only the bounded rolling state needed for
// temporal smoothing (last intents and previous risk per track ID).
type Engine struct {
	cfg EngineConfig

	prevIntents map[int64][]Intent
	prevRisks   map[int64]float64
}

// NewEngine creates a behavior engine.
func NewEngine(cfg EngineConfig) *Engine {
	if len(cfg.Horizons) == 0 {
		cfg.Horizons = DefaultHorizons
	}
	if cfg.ScenarioSpread <= 0 {
		cfg.ScenarioSpread = DefaultScenarioSpread
	}
	if cfg.IntentAlpha <= 0 {
		cfg.IntentAlpha = DefaultIntentAlpha
	}
	if cfg.RiskAlpha <= 0 {
		cfg.RiskAlpha = DefaultRiskAlpha
	}
	if cfg.MaxTracksTTC <= 0 {
		cfg.MaxTracksTTC = MaxTracksTTC
	}
	if cfg.BaseSafetyMargin <= 0 {
		cfg.BaseSafetyMargin = defaultSafetyMargin
	}
	return &Engine{
		cfg:         cfg,
		prevIntents: make(map[int64][]Intent),
		prevRisks:   make(map[int64]float64),
	}
}

// Reset drops all smoothing history.
func (e *Engine) Reset() {
	e.prevIntents = make(map[int64][]Intent)
	e.prevRisks = make(map[int64]float64)
}

// Process generates predictions and risk for every track. Tracks are read,
// never mutated. dt is the frame interval used for pose angular velocity.
func (e *Engine) Process(tracks []*tracking.Track, vehicle VehicleState, scene SceneContext, flow *FlowField, dt float64) Result {
	res := Result{
		Predictions: make([]*Prediction, 0, len(tracks)),
		RiskScores:  make(map[int64]float64, len(tracks)),
	}

	seen := make(map[int64]bool, len(tracks))
	for _, tr := range tracks {
		seen[tr.ID] = true

		// Kinematics: the motion filter is constant-velocity, so forecast
		// acceleration is zero unless a future filter provides it.
		traj := Forecast(tr.Position(), tr.Velocity, [3]float64{}, e.cfg.Horizons, e.cfg.ScenarioSpread)

		var poseFc *PoseForecast
		if tr.Category == tracking.CategoryPerson && tr.Pose != nil {
			poseFc = ForecastPose(tr.Pose, tr.PoseHistory, tr.Velocity, dt)
		}

		intent := InferIntent(tr, poseFc, scene, e.prevIntents[tr.ID], e.cfg.IntentAlpha)
		e.prevIntents[tr.ID] = appendIntent(e.prevIntents[tr.ID], intent)

		pred := &Prediction{
			TrackID:      tr.ID,
			Trajectories: traj,
			Intent:       intent,
			Pose:         poseFc,
			Validation:   TrackUnvalidated,
		}
		if flow != nil {
			pred.Validation = CrossValidate(traj[ScenarioNominal], flow, tr.Box)
		}

		res.Predictions = append(res.Predictions, pred)
	}

	res.TTC = ComputeTTC(vehicle, res.Predictions, e.cfg.MaxTracksTTC)

	for i, pred := range res.Predictions {
		tr := tracks[i]
		var prev *float64
		if v, ok := e.prevRisks[tr.ID]; ok {
			prev = &v
		}
		risk := ComputeRisk(tr, pred.Intent, res.TTC, prev, e.cfg.RiskAlpha)
		pred.RiskScore = risk
		res.RiskScores[tr.ID] = risk
		e.prevRisks[tr.ID] = risk
	}

	res.ValidationStatus = e.validationStatus(res.Predictions, flow)
	res.SafetyMargin = e.safetyMargin(res.Predictions)

	// Smoothing history for vanished tracks is discarded with them.
	for id := range e.prevIntents {
		if !seen[id] {
			delete(e.prevIntents, id)
		}
	}
	for id := range e.prevRisks {
		if !seen[id] {
			delete(e.prevRisks, id)
		}
	}

	return res
}

// validationStatus aggregates per-prediction validation. Without flow there
// is nothing to validate and the frame reports OK rather than a downgrade.
func (e *Engine) validationStatus(preds []*Prediction, flow *FlowField) ValidationStatus {
	if flow == nil || len(preds) == 0 {
		return ValidationOK
	}
	validated := 0
	for _, p := range preds {
		if p.Validation == TrackValidated {
			validated++
		}
	}
	switch {
	case validated == len(preds):
		return ValidationValidated
	case validated > 0:
		return ValidationPartial
	default:
		return ValidationUncertain
	}
}

// safetyMargin reports the frame's adjusted margin: base times the worst
// intent multiplier, widened for distraction.
func (e *Engine) safetyMargin(preds []*Prediction) float64 {
	maxMult := 1.0
	for _, p := range preds {
		mult, ok := marginMultipliers[p.Intent.State]
		if !ok {
			mult = 1.0
		}
		if p.Intent.DistractionProb > 0.5 {
			mult *= DistractionMarginMultiplier
		}
		if mult > maxMult {
			maxMult = mult
		}
	}
	return e.cfg.BaseSafetyMargin * maxMult
}
