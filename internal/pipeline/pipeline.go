// Package pipeline composes the decision core: track registry, behavior
// engine, degraded-mode detector and decision engine, with an optional audit
// sink. One ProcessFrame call runs one sensor frame end to end.
package pipeline

import (
	"encoding/json"
	"time"

	"github.com/banshee-data/railguard/internal/audit"
	"github.com/banshee-data/railguard/internal/behavior"
	"github.com/banshee-data/railguard/internal/config"
	"github.com/banshee-data/railguard/internal/monitoring"
	"github.com/banshee-data/railguard/internal/safety"
	"github.com/banshee-data/railguard/internal/tracking"
)

// Per-stage latency budgets. Overruns are logged and fed back as a perception
// confidence penalty; they never abort the frame.
const (
	TrackingBudget = 5 * time.Millisecond
	BehaviorBudget = 5 * time.Millisecond
	SafetyBudget   = 7 * time.Millisecond

	// overrunPenalty is subtracted from the detection confidence signal on
	// the frame after a budget overrun, nudging the mode detector toward
	// DEGRADED when the core itself is struggling.
	overrunPenalty = 0.2
)

// FrameInput is one sensor frame. A missing detection batch is represented by
// an empty Detections slice; the pipeline still runs so tracks coast and the
// mode detector keeps its window current.
type FrameInput struct {
	TSUnixNanos int64
	Detections  []tracking.Detection
	Vehicle     behavior.VehicleState
	Scene       behavior.SceneContext
	Confidence  safety.ConfidenceSignals
	Flow        *behavior.FlowField
}

// StageTiming records per-stage wall time for one frame.
type StageTiming struct {
	Tracking time.Duration `json:"tracking_ns"`
	Behavior time.Duration `json:"behavior_ns"`
	Safety   time.Duration `json:"safety_ns"`
	Overrun  bool          `json:"overrun"`
}

// FrameResult is the pipeline output for one frame.
type FrameResult struct {
	FrameIndex int64
	Decision   safety.Decision
	Mode       safety.ModeStatus
	Behavior   behavior.Result
	Tracks     []*tracking.Track
	Timing     StageTiming
}

// Pipeline owns all rolling state of the decision core. It is not safe for
// concurrent use; frames are strictly sequential.
type Pipeline struct {
	registry *tracking.Registry
	engine   *behavior.Engine
	detector *safety.Detector
	veto     *safety.Veto
	recorder *audit.Recorder

	runID      string
	frameIndex int64
	lastTS     int64
	overrun    bool
}

// Options carries the pipeline's external attachments.
type Options struct {
	// Brake is the hardwired emergency brake line; nil for replay and tests.
	Brake safety.BrakeFunc
	// Recorder receives one audit record per frame; nil disables audit.
	Recorder *audit.Recorder
	// RunID tags audit records; ignored when Recorder is nil.
	RunID string
}

// New builds a pipeline from a tuning config. cfg may be empty; all values
// then fall back to defaults.
func New(cfg *config.TuningConfig, opts Options) *Pipeline {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	regCfg := tracking.DefaultRegistryConfig()
	regCfg.MaxTracks = cfg.GetMaxTracks()
	regCfg.MaxDetectionsPerFrame = cfg.GetMaxDetectionsPerFrame()
	regCfg.GhostMaxAge = cfg.GetGhostMaxAge()
	regCfg.HitsToConfirm = cfg.GetHitsToConfirm()
	regCfg.IoUThreshold = cfg.GetIoUThreshold()
	regCfg.ReIDThreshold = cfg.GetReIDThreshold()
	regCfg.EmbeddingAlpha = cfg.GetEmbeddingAlpha()
	engCfg := behavior.EngineConfig{
		Horizons:         cfg.GetForecastHorizons(),
		ScenarioSpread:   cfg.GetScenarioSpread(),
		IntentAlpha:      cfg.GetIntentAlpha(),
		RiskAlpha:        cfg.GetRiskAlpha(),
		MaxTracksTTC:     cfg.GetMaxTracksTTC(),
		BaseSafetyMargin: cfg.GetBaseSafetyMargin(),
	}
	return &Pipeline{
		registry: tracking.NewRegistry(regCfg),
		engine:   behavior.NewEngine(engCfg),
		detector: safety.NewDetector(cfg.GetNominalThreshold(), cfg.GetDegradedThreshold()),
		veto:     safety.NewVeto(opts.Brake),
		recorder: opts.Recorder,
		runID:    opts.RunID,
	}
}

// ProcessFrame runs one frame through tracking, behavior and safety in order.
func (p *Pipeline) ProcessFrame(in FrameInput) FrameResult {
	dt := p.frameDt(in.TSUnixNanos)

	sig := in.Confidence
	if p.overrun {
		sig.DetectionConfidence -= overrunPenalty
		if sig.DetectionConfidence < 0 {
			sig.DetectionConfidence = 0
		}
		p.overrun = false
	}

	start := time.Now()
	tracks, _ := p.registry.Update(in.Detections, dt)
	trackingDur := time.Since(start)

	start = time.Now()
	behaviorRes := p.engine.Process(tracks, in.Vehicle, in.Scene, in.Flow, dt)
	behaviorDur := time.Since(start)

	start = time.Now()
	mode := p.detector.Update(sig)
	decision := p.veto.Decide(behaviorRes, mode)
	safetyDur := time.Since(start)

	timing := StageTiming{
		Tracking: trackingDur,
		Behavior: behaviorDur,
		Safety:   safetyDur,
	}
	if trackingDur > TrackingBudget || behaviorDur > BehaviorBudget || safetyDur > SafetyBudget {
		timing.Overrun = true
		p.overrun = true
		monitoring.Logf("pipeline: frame %d budget overrun (tracking=%v behavior=%v safety=%v)",
			p.frameIndex, trackingDur, behaviorDur, safetyDur)
	}

	res := FrameResult{
		FrameIndex: p.frameIndex,
		Decision:   decision,
		Mode:       mode,
		Behavior:   behaviorRes,
		Tracks:     tracks,
		Timing:     timing,
	}

	if p.recorder != nil {
		p.recorder.Record(p.auditRecord(in, &res))
	}

	p.frameIndex++
	return res
}

// Reset clears all rolling state: tracks, smoothing history and the mode
// confidence window. Operator-triggered.
func (p *Pipeline) Reset() {
	p.registry.Reset()
	p.engine.Reset()
	p.detector.Reset()
	p.lastTS = 0
	p.overrun = false
}

// Registry exposes the track registry for inspection.
func (p *Pipeline) Registry() *tracking.Registry { return p.registry }

// frameDt derives the frame interval from timestamps, defaulting to ~30 fps
// on the first frame or a non-monotonic clock.
func (p *Pipeline) frameDt(ts int64) float64 {
	const defaultDt = 1.0 / 30.0
	if p.lastTS == 0 || ts <= p.lastTS {
		p.lastTS = ts
		return defaultDt
	}
	dt := float64(ts-p.lastTS) / 1e9
	p.lastTS = ts
	if dt <= 0 || dt > 1 {
		return defaultDt
	}
	return dt
}

func (p *Pipeline) auditRecord(in FrameInput, res *FrameResult) *audit.FrameRecord {
	risksJSON, err := json.Marshal(res.Behavior.RiskScores)
	if err != nil {
		risksJSON = nil
	}
	timingJSON, err := json.Marshal(res.Timing)
	if err != nil {
		timingJSON = nil
	}
	return &audit.FrameRecord{
		RunID:       p.runID,
		TSUnixNanos: in.TSUnixNanos,
		FrameIndex:  res.FrameIndex,

		Mode:           string(res.Mode.Mode),
		ModeConfidence: res.Mode.ConfidenceScore,
		DegradedReason: string(res.Mode.DegradedReason),
		PAlertCorrect:  res.Mode.PAlertCorrect,
		PMiss:          res.Mode.PMiss,

		Action:        string(res.Decision.Action),
		ActionReason:  res.Decision.Reason,
		EffectiveTTC:  res.Decision.EffectiveTTC,
		TTCMin:        res.Behavior.TTC.Min,
		TTCMean:       res.Behavior.TTC.Mean,
		TTCMax:        res.Behavior.TTC.Max,
		TTCConfidence: res.Behavior.TTC.Confidence,

		TrackCount:       len(res.Tracks),
		MaxRisk:          res.Behavior.MaxRisk(),
		CriticalCount:    res.Behavior.CriticalCount(),
		SafetyMargin:     res.Behavior.SafetyMargin,
		ValidationStatus: string(res.Behavior.ValidationStatus),

		RisksJSON:  string(risksJSON),
		TimingJSON: string(timingJSON),
	}
}
