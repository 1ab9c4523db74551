package behavior

import (
	"math"

	"github.com/banshee-data/railguard/internal/tracking"
)

// ValidationThreshold is the kinematic-vs-flow velocity divergence (m/s)
// beyond which a prediction is downgraded to UNCERTAIN.
const ValidationThreshold = 1.5

// flowFocalLength is the assumed focal length for the pinhole conversion of
// image-plane flow to metric velocity.
const flowFocalLength = 500.0

// FlowField is a dense optical flow sampled on the image grid, supplied
// externally and used only for cross-validation.
type FlowField struct {
	Width, Height int
	// Vectors holds (u, v) pixel displacements, row-major.
	Vectors [][2]float64
}

// At returns the flow vector at pixel (x, y) and whether it is in bounds.
func (f *FlowField) At(x, y int) ([2]float64, bool) {
	if f == nil || x < 0 || x >= f.Width || y < 0 || y >= f.Height {
		return [2]float64{}, false
	}
	idx := y*f.Width + x
	if idx >= len(f.Vectors) {
		return [2]float64{}, false
	}
	return f.Vectors[idx], true
}

// CrossValidate compares the velocity implied by the nominal trajectory with
// the flow-derived velocity at the object's location. Agreement validates the
// prediction; divergence beyond ValidationThreshold downgrades it; anything
// that prevents the comparison leaves it unvalidated.
func CrossValidate(nominal Trajectory, flow *FlowField, box tracking.BBox3D) TrackValidation {
	if flow == nil {
		return TrackUnvalidated
	}
	if len(nominal) < 2 {
		return TrackUnvalidated
	}

	fv, ok := flow.At(int(box.X), int(box.Y))
	if !ok {
		return TrackUnvalidated
	}
	flowVel := flowToVelocity(fv, box.Z)

	p0, p1 := nominal[0], nominal[1]
	dt := p1.Timestamp - p0.Timestamp
	if dt == 0 {
		dt = 1
	}
	kx := (p1.Position[0] - p0.Position[0]) / dt
	ky := (p1.Position[1] - p0.Position[1]) / dt

	dx := kx - flowVel[0]
	dy := ky - flowVel[1]
	if math.Sqrt(dx*dx+dy*dy) > ValidationThreshold {
		return TrackUncertain
	}
	return TrackValidated
}

// flowToVelocity converts an image-plane flow vector to a metric velocity via
// the pinhole model; depth changes are not observable from flow alone, so the
// Z component stays zero.
func flowToVelocity(flow [2]float64, depth float64) [2]float64 {
	return [2]float64{
		flow[0] * depth / flowFocalLength,
		flow[1] * depth / flowFocalLength,
	}
}
