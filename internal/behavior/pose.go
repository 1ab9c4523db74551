package behavior

import (
	"math"

	"github.com/banshee-data/railguard/internal/tracking"
)

// poseLookahead is how far ahead the facing direction is extrapolated when
// judging whether a person is rotating toward the corridor.
const poseLookahead = 0.5 // seconds

// WalkDirection classifies gross motion relative to the corridor.
type WalkDirection string

const (
	WalkTowards    WalkDirection = "towards_track"
	WalkAway       WalkDirection = "away_from_track"
	WalkParallel   WalkDirection = "parallel"
	WalkStationary WalkDirection = "stationary"
)

// PoseForecast is the pose-based refinement for PERSON tracks. It feeds the
// intent inference only; the kinematic trajectory never consumes it.
type PoseForecast struct {
	FacingAngle     float64 // radians to the corridor direction, 0 = facing it
	PredictedFacing float64 // facing angle extrapolated poseLookahead ahead
	AngularVelocity float64 // rad/s of the yaw component
	RotatingToward  bool    // predicted angle closing on the corridor
	WalkDirection   WalkDirection
}

// angleToCorridor maps a body yaw to the angle between the facing vector and
// the corridor direction (+Z). 0 means squarely facing the corridor.
func angleToCorridor(yaw float64) float64 {
	// facing = [sin(yaw), 0, cos(yaw)], corridor = [0, 0, 1]
	dot := math.Cos(yaw)
	if dot > 1 {
		dot = 1
	} else if dot < -1 {
		dot = -1
	}
	return math.Acos(dot)
}

// ForecastPose estimates where a person's facing direction is heading. The
// facing-angle delta across the pose history gives an angular velocity, which
// is extrapolated poseLookahead seconds forward; a predicted angle smaller
// than the current one means the person is turning toward the corridor.
// Angles here measure distance from the corridor direction, so "rotating
// toward" is a decreasing angle.
func ForecastPose(pose *tracking.PoseParams, history []*tracking.PoseParams, velocity [3]float64, dt float64) *PoseForecast {
	if pose == nil {
		return nil
	}

	yaw := pose.FacingAngle()
	facing := angleToCorridor(yaw)

	pf := &PoseForecast{
		FacingAngle:     facing,
		PredictedFacing: facing,
		WalkDirection:   inferWalkDirection(velocity),
	}

	if len(history) >= 1 && dt > 0 {
		prevYaw := history[len(history)-1].FacingAngle()
		pf.AngularVelocity = (yaw - prevYaw) / dt
		predictedYaw := yaw + pf.AngularVelocity*poseLookahead
		pf.PredictedFacing = angleToCorridor(predictedYaw)
		pf.RotatingToward = pf.PredictedFacing < pf.FacingAngle
	}

	return pf
}

// inferWalkDirection classifies the velocity vector relative to the corridor.
// Negative Z points toward the vehicle's path.
func inferWalkDirection(velocity [3]float64) WalkDirection {
	speed := math.Sqrt(velocity[0]*velocity[0] + velocity[1]*velocity[1] + velocity[2]*velocity[2])
	if speed < 0.1 {
		return WalkStationary
	}
	if math.Abs(velocity[2]) > math.Abs(velocity[0]) {
		if velocity[2] < 0 {
			return WalkTowards
		}
		return WalkAway
	}
	return WalkParallel
}
