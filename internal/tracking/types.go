// Package tracking owns object identity for the decision core: it ingests
// per-frame detections produced by the perception stack and maintains stable
// tracks with lifecycle states, adaptive motion filtering, two-stage
// association and quality scoring.
package tracking

// TrackState represents the lifecycle state of a track.
type TrackState string

const (
	TrackTentative TrackState = "tentative" // New track, needs confirmation
	TrackActive    TrackState = "active"    // Confirmed, matched this frame
	TrackGhost     TrackState = "ghost"     // Temporarily unmatched, retained pending reappearance
	TrackDeleted   TrackState = "deleted"   // Removed; never revived
)

// Category is the object class reported by the detector.
type Category string

const (
	CategoryPerson  Category = "PERSON"
	CategoryKnown   Category = "KNOWN"
	CategoryUnknown Category = "UNKNOWN"
)

// BBox3D is an axis-aligned bounding volume in the vehicle frame (meters).
// X is lateral, Y vertical, Z along the corridor.
type BBox3D struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Depth  float64 `json:"depth"`
}

// PoseParams carries the body pose vector estimated for PERSON detections.
// Index 1 is the yaw (facing) component, index 15 the head tilt. Absent pose
// is represented by a nil pointer, never a zero vector.
type PoseParams struct {
	BodyPose []float64 `json:"body_pose"`
}

// FacingAngle returns the yaw component of the body pose, or 0 when the
// vector is too short.
func (p *PoseParams) FacingAngle() float64 {
	if p == nil || len(p.BodyPose) < 2 {
		return 0
	}
	return p.BodyPose[1]
}

// HeadTilt returns the head pitch component, or 0 when absent.
func (p *PoseParams) HeadTilt() float64 {
	if p == nil || len(p.BodyPose) < 16 {
		return 0
	}
	return p.BodyPose[15]
}

// Detection is one externally produced measurement for the current frame.
type Detection struct {
	Box        BBox3D      `json:"box"`
	Category   Category    `json:"category"`
	Confidence float64     `json:"confidence"`
	Embedding  []float64   `json:"embedding,omitempty"` // appearance vector, unit length when present
	Pose       *PoseParams `json:"pose,omitempty"`
}

// TrackPoint is one position sample in a track's bounded history.
type TrackPoint struct {
	X, Y, Z  float64
	FrameAge int // track age at the time of the sample
}

// Track is a single tracked object. Tracks are owned exclusively by the
// Registry; other components reference them by ID only.
type Track struct {
	ID       int64
	State    TrackState
	Category Category

	// Spatial state, maintained by the motion filter.
	Box      BBox3D
	Velocity [3]float64

	// Lifecycle counters. TimeSinceUpdate resets to 0 only on a successful
	// association and increments by exactly 1 on every other frame.
	Age             int
	TimeSinceUpdate int
	Hits            int
	MatchCount      int

	// Appearance embedding, EMA-updated (see UpdateEmbedding).
	Embedding []float64

	// Quality metrics.
	Confidence   float64
	QualityScore float64

	// Pose, present only for PERSON tracks with pose data.
	Pose        *PoseParams
	PoseHistory []*PoseParams

	History []TrackPoint

	filter *MotionFilter
}

// MatchFrequency is the fraction of the track's lifetime frames that produced
// a successful association.
func (t *Track) MatchFrequency() float64 {
	if t.Age < 1 {
		return 0
	}
	f := float64(t.MatchCount) / float64(t.Age)
	if f > 1 {
		f = 1
	}
	return f
}

// ComputeQualityScore recomputes and stores the composite track quality:
// age maturity, match frequency, measurement confidence and recency, each
// bounded so the result stays in [0,1].
func (t *Track) ComputeQualityScore() float64 {
	ageFactor := float64(t.Age) / 30.0
	if ageFactor > 1 {
		ageFactor = 1
	}
	recency := 1.0 - float64(t.TimeSinceUpdate)/30.0
	if recency < 0 {
		recency = 0
	}
	t.QualityScore = 0.3*ageFactor + 0.3*t.MatchFrequency() + 0.2*t.Confidence + 0.2*recency
	return t.QualityScore
}

// Position returns the filtered center position.
func (t *Track) Position() [3]float64 {
	return [3]float64{t.Box.X, t.Box.Y, t.Box.Z}
}

// PositionUncertainty returns the filter's diagonal positional standard
// deviations, or zeros when the track has no filter yet.
func (t *Track) PositionUncertainty() [3]float64 {
	if t.filter == nil {
		return [3]float64{}
	}
	return t.filter.PositionUncertainty()
}
