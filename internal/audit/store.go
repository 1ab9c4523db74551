// Package audit persists one record per processed frame so that every issued
// decision can be reconstructed after an incident: the operating mode, the
// collision-time distribution, the per-track risks and the action taken.
package audit

import (
	"database/sql"
	_ "embed"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

//go:embed schema.sql
var schemaSQL string

// FrameRecord is one frame's worth of audit state.
type FrameRecord struct {
	RunID       string `json:"run_id"`
	TSUnixNanos int64  `json:"ts_unix_nanos"`
	FrameIndex  int64  `json:"frame_index"`

	Mode           string  `json:"mode"`
	ModeConfidence float64 `json:"mode_confidence"`
	DegradedReason string  `json:"degraded_reason"`
	PAlertCorrect  float64 `json:"p_alert_correct"`
	PMiss          float64 `json:"p_miss"`

	Action        string  `json:"action"`
	ActionReason  string  `json:"action_reason"`
	EffectiveTTC  float64 `json:"effective_ttc"`
	TTCMin        float64 `json:"ttc_min"`
	TTCMean       float64 `json:"ttc_mean"`
	TTCMax        float64 `json:"ttc_max"`
	TTCConfidence float64 `json:"ttc_confidence"`

	TrackCount       int     `json:"track_count"`
	MaxRisk          float64 `json:"max_risk"`
	CriticalCount    int     `json:"critical_count"`
	SafetyMargin     float64 `json:"safety_margin"`
	ValidationStatus string  `json:"validation_status"`

	RisksJSON  string `json:"risks_json,omitempty"`
	TimingJSON string `json:"timing_json,omitempty"`
}

// Store provides SQLite persistence for audit runs and frames.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the audit database at path and applies the
// schema. The caller must have imported an sqlite driver registered as
// "sqlite".
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply audit schema: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an already-open database, applying the schema. Used by
// tests and by callers that manage the connection themselves.
func NewStoreWithDB(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("apply audit schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// BeginRun registers a new run and returns its ID. An empty runID generates a
// UUID.
func (s *Store) BeginRun(runID, sceneContext string) (string, error) {
	if runID == "" {
		runID = uuid.New().String()
	}
	_, err := s.db.Exec(`
		INSERT INTO audit_runs (run_id, started_unix_nanos, scene_context)
		VALUES (?, ?, ?)`,
		runID, time.Now().UnixNano(), sceneContext)
	if err != nil {
		return "", fmt.Errorf("insert audit run: %w", err)
	}
	return runID, nil
}

// InsertFrame persists one frame record.
func (s *Store) InsertFrame(rec *FrameRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO audit_frames (
			run_id, ts_unix_nanos, frame_index,
			mode, mode_confidence, degraded_reason, p_alert_correct, p_miss,
			action, action_reason, effective_ttc, ttc_min, ttc_mean, ttc_max, ttc_confidence,
			track_count, max_risk, critical_count, safety_margin, validation_status,
			risks_json, timing_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.TSUnixNanos, rec.FrameIndex,
		rec.Mode, rec.ModeConfidence, rec.DegradedReason, rec.PAlertCorrect, rec.PMiss,
		rec.Action, rec.ActionReason,
		finiteOrNil(rec.EffectiveTTC), finiteOrNil(rec.TTCMin), finiteOrNil(rec.TTCMean), finiteOrNil(rec.TTCMax),
		rec.TTCConfidence,
		rec.TrackCount, rec.MaxRisk, rec.CriticalCount, rec.SafetyMargin, rec.ValidationStatus,
		nullIfEmpty(rec.RisksJSON), nullIfEmpty(rec.TimingJSON),
	)
	if err != nil {
		return fmt.Errorf("insert audit frame: %w", err)
	}
	return nil
}

// FramesInRange returns a run's frames between startNanos and endNanos
// inclusive, oldest first. limit <= 0 means no limit.
func (s *Store) FramesInRange(runID string, startNanos, endNanos int64, limit int) ([]*FrameRecord, error) {
	query := `
		SELECT run_id, ts_unix_nanos, frame_index,
		       mode, mode_confidence, degraded_reason, p_alert_correct, p_miss,
		       action, action_reason, effective_ttc, ttc_min, ttc_mean, ttc_max, ttc_confidence,
		       track_count, max_risk, critical_count, safety_margin, validation_status,
		       risks_json, timing_json
		FROM audit_frames
		WHERE run_id = ? AND ts_unix_nanos >= ? AND ts_unix_nanos <= ?
		ORDER BY ts_unix_nanos ASC`
	args := []interface{}{runID, startNanos, endNanos}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit frames: %w", err)
	}
	defer rows.Close()

	var recs []*FrameRecord
	for rows.Next() {
		rec, err := scanFrame(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Frames returns all frames for a run, oldest first.
func (s *Store) Frames(runID string) ([]*FrameRecord, error) {
	return s.FramesInRange(runID, 0, 1<<62, 0)
}

// Runs lists run IDs ordered by start time descending.
func (s *Store) Runs() ([]string, error) {
	rows, err := s.db.Query(`SELECT run_id FROM audit_runs ORDER BY started_unix_nanos DESC`)
	if err != nil {
		return nil, fmt.Errorf("query audit runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanFrame(rows *sql.Rows) (*FrameRecord, error) {
	var rec FrameRecord
	var effTTC, ttcMin, ttcMean, ttcMax sql.NullFloat64
	var risks, timing sql.NullString
	err := rows.Scan(
		&rec.RunID, &rec.TSUnixNanos, &rec.FrameIndex,
		&rec.Mode, &rec.ModeConfidence, &rec.DegradedReason, &rec.PAlertCorrect, &rec.PMiss,
		&rec.Action, &rec.ActionReason, &effTTC, &ttcMin, &ttcMean, &ttcMax, &rec.TTCConfidence,
		&rec.TrackCount, &rec.MaxRisk, &rec.CriticalCount, &rec.SafetyMargin, &rec.ValidationStatus,
		&risks, &timing,
	)
	if err != nil {
		return nil, fmt.Errorf("scan audit frame: %w", err)
	}
	rec.EffectiveTTC = nullToInf(effTTC)
	rec.TTCMin = nullToInf(ttcMin)
	rec.TTCMean = nullToInf(ttcMean)
	rec.TTCMax = nullToInf(ttcMax)
	rec.RisksJSON = risks.String
	rec.TimingJSON = timing.String
	return &rec, nil
}

// finiteOrNil maps +Inf (no collision) to NULL; SQLite has no Inf literal.
func finiteOrNil(v float64) interface{} {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return v
}

func nullToInf(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.Inf(1)
	}
	return v.Float64
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
