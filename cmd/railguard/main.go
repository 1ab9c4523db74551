// Command railguard replays a recorded frame stream (JSONL, one frame per
// line) through the decision pipeline and persists the audit trail.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/banshee-data/railguard/internal/audit"
	"github.com/banshee-data/railguard/internal/behavior"
	"github.com/banshee-data/railguard/internal/config"
	"github.com/banshee-data/railguard/internal/pipeline"
	"github.com/banshee-data/railguard/internal/safety"
	"github.com/banshee-data/railguard/internal/tracking"

	_ "modernc.org/sqlite"
)

// frameJSON is the wire form of one frame in the replay file.
type frameJSON struct {
	TSUnixNanos int64                   `json:"ts_unix_nanos"`
	Detections  []tracking.Detection    `json:"detections"`
	Vehicle     behavior.VehicleState   `json:"vehicle"`
	Scene       string                  `json:"scene,omitempty"`
	Confidence  safety.ConfidenceSignals `json:"confidence"`
	Flow        *behavior.FlowField     `json:"flow,omitempty"`
}

func main() {
	var (
		framesPath = flag.String("frames", "", "JSONL frame stream to replay (default stdin)")
		configPath = flag.String("config", "", "optional tuning config JSON")
		dbPath     = flag.String("db", "", "audit database path (default from config)")
		scene      = flag.String("scene", string(behavior.SceneOpenTrack), "default scene context (PLATFORM, LEVEL_CROSSING, CROSSING, OPEN_TRACK)")
		runID      = flag.String("run-id", "", "audit run ID (default: generated)")
		verbose    = flag.Bool("v", false, "log every decision, not just transitions")
	)
	flag.Parse()

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		loaded, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}

	path := *dbPath
	if path == "" {
		path = cfg.GetAuditDBPath()
	}
	store, err := audit.NewStore(path)
	if err != nil {
		log.Fatalf("open audit store: %v", err)
	}
	defer store.Close()

	id, err := store.BeginRun(*runID, *scene)
	if err != nil {
		log.Fatalf("begin audit run: %v", err)
	}
	recorder := audit.NewRecorder(store, cfg.GetAuditBufferSize())
	defer recorder.Close()

	var in io.Reader = os.Stdin
	if *framesPath != "" {
		f, err := os.Open(*framesPath)
		if err != nil {
			log.Fatalf("open frames: %v", err)
		}
		defer f.Close()
		in = f
	}

	p := pipeline.New(cfg, pipeline.Options{
		Recorder: recorder,
		RunID:    id,
	})

	log.Printf("replaying into run %s (audit db %s)", id, path)
	if err := replay(p, in, behavior.SceneContext(*scene), *verbose); err != nil {
		log.Fatalf("replay: %v", err)
	}
}

func replay(p *pipeline.Pipeline, r io.Reader, defaultScene behavior.SceneContext, verbose bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1<<20), 16<<20)

	var frames int
	lastAction := safety.ActionClear
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var fj frameJSON
		if err := json.Unmarshal(line, &fj); err != nil {
			return fmt.Errorf("frame %d: %w", frames, err)
		}
		scene := defaultScene
		if fj.Scene != "" {
			scene = behavior.SceneContext(fj.Scene)
		}

		res := p.ProcessFrame(pipeline.FrameInput{
			TSUnixNanos: fj.TSUnixNanos,
			Detections:  fj.Detections,
			Vehicle:     fj.Vehicle,
			Scene:       scene,
			Confidence:  fj.Confidence,
			Flow:        fj.Flow,
		})
		frames++

		if verbose || res.Decision.Action != lastAction {
			log.Printf("frame %d: action=%s mode=%s ttc=%.2f risk=%.2f tracks=%d",
				res.FrameIndex, res.Decision.Action, res.Mode.Mode,
				res.Decision.EffectiveTTC, res.Behavior.MaxRisk(), len(res.Tracks))
		}
		lastAction = res.Decision.Action
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	log.Printf("replayed %d frames", frames)
	return nil
}
