package tracking

import "sort"

// Association thresholds. Stage one accepts geometric matches with IoU at or
// above IoUThreshold; stage two accepts appearance matches with cosine
// distance at or below ReIDThreshold.
const (
	DefaultIoUThreshold  = 0.3
	DefaultReIDThreshold = 0.4
)

// Assignment is the result of one frame's association pass.
type Assignment struct {
	// Matches maps detection index to track ID.
	Matches map[int]int64
	// UnmatchedDetections are detection indices that seed new tracks.
	UnmatchedDetections []int
	// UnmatchedTrackIDs are tracks that missed this frame.
	UnmatchedTrackIDs []int64
}

// IoU3D returns the intersection-over-union of two axis-aligned bounding
// volumes. Boxes with no overlap, or with zero total volume, score 0.
func IoU3D(a, b BBox3D) float64 {
	ix := axisOverlap(a.X, a.Width, b.X, b.Width)
	iy := axisOverlap(a.Y, a.Height, b.Y, b.Height)
	iz := axisOverlap(a.Z, a.Depth, b.Z, b.Depth)

	inter := ix * iy * iz
	if inter <= 0 {
		return 0
	}
	va := a.Width * a.Height * a.Depth
	vb := b.Width * b.Height * b.Depth
	union := va + vb - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func axisOverlap(ca, ea, cb, eb float64) float64 {
	lo := maxf(ca-ea/2, cb-eb/2)
	hi := minf(ca+ea/2, cb+eb/2)
	if hi <= lo {
		return 0
	}
	return hi - lo
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// Associate runs the two-stage matching protocol: optimal bipartite
// assignment on 1−IoU over predicted boxes, then a second assignment on
// embedding cosine distance for whatever both stages left unmatched.
//
// Track order is fixed by ascending ID so identical inputs always produce
// identical assignments.
func Associate(dets []Detection, tracks []*Track, iouThreshold, reidThreshold float64) Assignment {
	out := Assignment{Matches: make(map[int]int64)}

	ordered := make([]*Track, len(tracks))
	copy(ordered, tracks)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	if len(ordered) == 0 {
		for i := range dets {
			out.UnmatchedDetections = append(out.UnmatchedDetections, i)
		}
		return out
	}
	if len(dets) == 0 {
		for _, tr := range ordered {
			out.UnmatchedTrackIDs = append(out.UnmatchedTrackIDs, tr.ID)
		}
		return out
	}

	// Stage 1: geometric.
	cost := make([][]float64, len(dets))
	for i, det := range dets {
		cost[i] = make([]float64, len(ordered))
		for j, tr := range ordered {
			iou := IoU3D(det.Box, tr.Box)
			if iou < iouThreshold {
				cost[i][j] = forbiddenCost
			} else {
				cost[i][j] = 1 - iou
			}
		}
	}
	assign := HungarianAssign(cost)

	matchedTracks := make(map[int]bool)
	var remDets []int
	for i, j := range assign {
		if j >= 0 {
			out.Matches[i] = ordered[j].ID
			matchedTracks[j] = true
		} else {
			remDets = append(remDets, i)
		}
	}
	var remTracks []int
	for j := range ordered {
		if !matchedTracks[j] {
			remTracks = append(remTracks, j)
		}
	}

	// Stage 2: appearance, only for items both stages can describe.
	if len(remDets) > 0 && len(remTracks) > 0 {
		cost2 := make([][]float64, len(remDets))
		for ri, di := range remDets {
			cost2[ri] = make([]float64, len(remTracks))
			for rj, tj := range remTracks {
				d := CosineDistance(dets[di].Embedding, ordered[tj].Embedding)
				if len(dets[di].Embedding) == 0 || len(ordered[tj].Embedding) == 0 || d > reidThreshold {
					cost2[ri][rj] = forbiddenCost
				} else {
					cost2[ri][rj] = d
				}
			}
		}
		assign2 := HungarianAssign(cost2)

		var stillDets []int
		taken := make(map[int]bool)
		for ri, rj := range assign2 {
			if rj >= 0 {
				out.Matches[remDets[ri]] = ordered[remTracks[rj]].ID
				taken[rj] = true
			} else {
				stillDets = append(stillDets, remDets[ri])
			}
		}
		remDets = stillDets
		var stillTracks []int
		for rj, tj := range remTracks {
			if !taken[rj] {
				stillTracks = append(stillTracks, tj)
			}
		}
		remTracks = stillTracks
	}

	out.UnmatchedDetections = append(out.UnmatchedDetections, remDets...)
	for _, tj := range remTracks {
		out.UnmatchedTrackIDs = append(out.UnmatchedTrackIDs, ordered[tj].ID)
	}
	return out
}
