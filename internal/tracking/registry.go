package tracking

import (
	"github.com/banshee-data/railguard/internal/monitoring"
)

// Registry configuration defaults.
const (
	DefaultMaxTracks             = 50
	DefaultMaxDetectionsPerFrame = 30
	DefaultGhostMaxAge           = 30 // frames a ghost survives before deletion
	DefaultHitsToConfirm         = 3
	DefaultHistoryLength         = 10
	DefaultPoseHistoryLength     = 5
	// DefaultConfidenceDecay shrinks track confidence on every missed frame.
	DefaultConfidenceDecay = 0.95
)

// RegistryConfig holds the tuning parameters for track lifecycle management.
type RegistryConfig struct {
	MaxTracks             int     // Capacity before eviction
	MaxDetectionsPerFrame int     // Detections beyond this are ignored
	GhostMaxAge           int     // Misses before a ghost is deleted
	HitsToConfirm         int     // Consecutive matches to confirm a tentative track
	IoUThreshold          float64 // Stage-1 acceptance
	ReIDThreshold         float64 // Stage-2 acceptance
	EmbeddingAlpha        float64 // EMA weight for the existing embedding
	HistoryLength         int     // Position history bound
	PoseHistoryLength     int     // Pose history bound
	ConfidenceDecay       float64 // Per-miss confidence multiplier
}

// DefaultRegistryConfig returns the default registry configuration.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		MaxTracks:             DefaultMaxTracks,
		MaxDetectionsPerFrame: DefaultMaxDetectionsPerFrame,
		GhostMaxAge:           DefaultGhostMaxAge,
		HitsToConfirm:         DefaultHitsToConfirm,
		IoUThreshold:          DefaultIoUThreshold,
		ReIDThreshold:         DefaultReIDThreshold,
		EmbeddingAlpha:        EmbeddingAlpha,
		HistoryLength:         DefaultHistoryLength,
		PoseHistoryLength:     DefaultPoseHistoryLength,
		ConfidenceDecay:       DefaultConfidenceDecay,
	}
}

// Registry exclusively owns all Track records. Everything downstream refers to
// tracks by integer ID. The registry is single-writer: one frame is processed
// at a time and Update must not be called concurrently.
type Registry struct {
	tracks map[int64]*Track
	// admission holds track IDs in admission order, oldest first; eviction
	// candidates are drawn from its older half only.
	admission []int64
	nextID    int64
	cfg       RegistryConfig
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	return &Registry{
		tracks: make(map[int64]*Track),
		nextID: 1,
		cfg:    cfg,
	}
}

// Reset drops all tracks. Track IDs keep counting up; IDs are never reused.
func (r *Registry) Reset() {
	r.tracks = make(map[int64]*Track)
	r.admission = nil
}

// Update ingests one frame of detections and advances every track's
// lifecycle. dt is the elapsed time since the previous frame in seconds.
// Empty input is not an error: all tracks age and ghost as usual.
func (r *Registry) Update(dets []Detection, dt float64) ([]*Track, Assignment) {
	if len(dets) > r.cfg.MaxDetectionsPerFrame {
		dets = dets[:r.cfg.MaxDetectionsPerFrame]
	}

	// Predict all live tracks to the current frame before matching.
	live := make([]*Track, 0, len(r.tracks))
	for _, id := range r.admission {
		tr := r.tracks[id]
		if tr == nil || tr.State == TrackDeleted {
			continue
		}
		if tr.filter != nil {
			pos, _ := tr.filter.Predict(dt, tr.Confidence)
			tr.Box.X, tr.Box.Y, tr.Box.Z = pos[0], pos[1], pos[2]
			tr.Velocity = tr.filter.Velocity()
			tr.Box.Width, tr.Box.Height = tr.filter.Size()
		}
		tr.Age++
		live = append(live, tr)
	}

	assign := Associate(dets, live, r.cfg.IoUThreshold, r.cfg.ReIDThreshold)

	for detIdx, trackID := range assign.Matches {
		r.applyMatch(r.tracks[trackID], dets[detIdx])
	}

	for _, trackID := range assign.UnmatchedTrackIDs {
		r.applyMiss(r.tracks[trackID])
	}

	for _, detIdx := range assign.UnmatchedDetections {
		r.admit(dets[detIdx])
	}

	return r.ActiveTracks(), assign
}

// applyMatch folds a matched detection into a track. A filter whose
// covariance has gone singular is evicted rather than propagated.
func (r *Registry) applyMatch(tr *Track, det Detection) {
	if tr == nil {
		return
	}

	meas := [5]float64{det.Box.X, det.Box.Y, det.Box.Z, det.Box.Width, det.Box.Height}
	if tr.filter == nil {
		tr.filter = NewMotionFilter(meas)
	} else if err := tr.filter.Update(meas); err != nil {
		monitoring.Logf("tracking: evicting track %d: %v", tr.ID, err)
		r.remove(tr.ID)
		return
	}

	pos := tr.filter.Position()
	tr.Box.X, tr.Box.Y, tr.Box.Z = pos[0], pos[1], pos[2]
	tr.Box.Width, tr.Box.Height = tr.filter.Size()
	tr.Box.Depth = det.Box.Depth
	tr.Velocity = tr.filter.Velocity()

	tr.TimeSinceUpdate = 0
	tr.Hits++
	tr.MatchCount++
	if tr.Category == CategoryUnknown && det.Category != CategoryUnknown {
		tr.Category = det.Category
	}

	switch tr.State {
	case TrackTentative:
		if tr.Hits >= r.cfg.HitsToConfirm {
			tr.State = TrackActive
		}
	case TrackGhost:
		tr.State = TrackActive
	case TrackActive:
		// stays active
	}

	// Measurement confidence, steadied by appearance stability when an
	// embedding is available.
	conf := det.Confidence
	if len(det.Embedding) > 0 && len(tr.Embedding) > 0 {
		conf = 0.8*conf + 0.2*EmbeddingStability(tr.Embedding, det.Embedding)
	}
	tr.Confidence = conf

	if len(det.Embedding) > 0 {
		tr.Embedding = UpdateEmbedding(tr.Embedding, det.Embedding, r.cfg.EmbeddingAlpha)
	}

	if det.Pose != nil {
		if tr.Pose != nil {
			tr.PoseHistory = append(tr.PoseHistory, tr.Pose)
			if len(tr.PoseHistory) > r.cfg.PoseHistoryLength {
				tr.PoseHistory = tr.PoseHistory[1:]
			}
		}
		tr.Pose = det.Pose
	}

	tr.History = append(tr.History, TrackPoint{X: tr.Box.X, Y: tr.Box.Y, Z: tr.Box.Z, FrameAge: tr.Age})
	if len(tr.History) > r.cfg.HistoryLength {
		tr.History = tr.History[1:]
	}

	tr.ComputeQualityScore()
}

// applyMiss ages an unmatched track: any miss ghosts an active track, and a
// ghost past GhostMaxAge is deleted and removed for good.
func (r *Registry) applyMiss(tr *Track) {
	if tr == nil {
		return
	}

	tr.TimeSinceUpdate++
	tr.Hits = 0
	tr.Confidence *= r.cfg.ConfidenceDecay

	if tr.State == TrackActive || tr.State == TrackTentative {
		tr.State = TrackGhost
	}

	if tr.TimeSinceUpdate > r.cfg.GhostMaxAge {
		tr.State = TrackDeleted
		r.remove(tr.ID)
		return
	}

	tr.ComputeQualityScore()
}

// admit creates a new tentative track for an unmatched detection, evicting
// the lowest-quality track from the oldest half when at capacity.
func (r *Registry) admit(det Detection) {
	if len(r.tracks) >= r.cfg.MaxTracks {
		r.evictOne()
	}

	id := r.nextID
	r.nextID++

	tr := &Track{
		ID:              id,
		State:           TrackTentative,
		Category:        det.Category,
		Box:             det.Box,
		Age:             1,
		TimeSinceUpdate: 0,
		Hits:            1,
		MatchCount:      1,
		Confidence:      det.Confidence,
		Pose:            det.Pose,
		filter:          NewMotionFilter([5]float64{det.Box.X, det.Box.Y, det.Box.Z, det.Box.Width, det.Box.Height}),
	}
	if len(det.Embedding) > 0 {
		tr.Embedding = make([]float64, len(det.Embedding))
		copy(tr.Embedding, det.Embedding)
	}
	tr.History = []TrackPoint{{X: det.Box.X, Y: det.Box.Y, Z: det.Box.Z, FrameAge: 1}}
	tr.ComputeQualityScore()

	r.tracks[id] = tr
	r.admission = append(r.admission, id)
}

// evictOne removes the lowest quality_score track among the oldest half
// (⌊n/2⌋+1 entries) of the admission order. Newer tracks are never eviction
// candidates.
func (r *Registry) evictOne() {
	if len(r.admission) == 0 {
		return
	}
	n := len(r.admission)/2 + 1
	if n > len(r.admission) {
		n = len(r.admission)
	}

	evictID := int64(-1)
	minQuality := 2.0
	for _, id := range r.admission[:n] {
		tr := r.tracks[id]
		if tr == nil {
			continue
		}
		if tr.QualityScore < minQuality {
			minQuality = tr.QualityScore
			evictID = id
		}
	}
	if evictID >= 0 {
		r.remove(evictID)
	}
}

// remove deletes a track from the registry and the admission order.
func (r *Registry) remove(id int64) {
	if tr := r.tracks[id]; tr != nil {
		tr.State = TrackDeleted
	}
	delete(r.tracks, id)
	for i, aid := range r.admission {
		if aid == id {
			r.admission = append(r.admission[:i], r.admission[i+1:]...)
			break
		}
	}
}

// Get returns a track by ID, or nil if not found.
func (r *Registry) Get(id int64) *Track {
	return r.tracks[id]
}

// ActiveTracks returns all non-deleted tracks in admission order.
func (r *Registry) ActiveTracks() []*Track {
	out := make([]*Track, 0, len(r.tracks))
	for _, id := range r.admission {
		if tr := r.tracks[id]; tr != nil && tr.State != TrackDeleted {
			out = append(out, tr)
		}
	}
	return out
}

// ConfirmedTracks returns tracks that have been confirmed (active or ghost).
func (r *Registry) ConfirmedTracks() []*Track {
	out := make([]*Track, 0, len(r.tracks))
	for _, id := range r.admission {
		if tr := r.tracks[id]; tr != nil && (tr.State == TrackActive || tr.State == TrackGhost) {
			out = append(out, tr)
		}
	}
	return out
}

// Len returns the number of tracks currently held.
func (r *Registry) Len() int { return len(r.tracks) }

// Counts returns the number of tracks per lifecycle state.
func (r *Registry) Counts() (tentative, active, ghost int) {
	for _, tr := range r.tracks {
		switch tr.State {
		case TrackTentative:
			tentative++
		case TrackActive:
			active++
		case TrackGhost:
			ghost++
		}
	}
	return
}
