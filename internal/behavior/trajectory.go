package behavior

// Default forecast parameters.
var DefaultHorizons = []float64{1, 2, 3, 4, 5}

const (
	// DefaultScenarioSpread is the fractional bracketing applied to the
	// optimistic and pessimistic scenarios. It is a tunable heuristic, not a
	// physical constant.
	DefaultScenarioSpread = 0.1
	// uncertaintyGrowth scales the quadratic growth of forecast uncertainty.
	uncertaintyGrowth = 0.1
)

// Forecast produces the three bracketed trajectories for one object under a
// constant-acceleration model, p(t) = p₀ + v·t + ½·a·t².
//
// The nominal branch propagates the filter state directly. The optimistic
// branch scales lateral components down and the approach (corridor) component
// up, modelling an object receding from the corridor; the pessimistic branch
// mirrors this toward approach. The bracket is what gives the collision-time
// estimate its confidence interval.
func Forecast(pos, vel, accel [3]float64, horizons []float64, spread float64) map[Scenario]Trajectory {
	if len(horizons) == 0 {
		horizons = DefaultHorizons
	}
	if spread <= 0 {
		spread = DefaultScenarioSpread
	}

	out := map[Scenario]Trajectory{
		ScenarioOptimistic:  make(Trajectory, 0, len(horizons)),
		ScenarioNominal:     make(Trajectory, 0, len(horizons)),
		ScenarioPessimistic: make(Trajectory, 0, len(horizons)),
	}

	for _, t := range horizons {
		var p [3]float64
		for i := 0; i < 3; i++ {
			p[i] = pos[i] + vel[i]*t + 0.5*accel[i]*t*t
		}
		sigma := uncertaintyGrowth * t * t

		out[ScenarioNominal] = append(out[ScenarioNominal], TrajectoryPoint{
			Position: p, Timestamp: t, Uncertainty: sigma,
		})
		out[ScenarioOptimistic] = append(out[ScenarioOptimistic], TrajectoryPoint{
			Position:    [3]float64{p[0] * (1 - spread), p[1] * (1 - spread), p[2] * (1 + spread)},
			Timestamp:   t,
			Uncertainty: sigma,
		})
		out[ScenarioPessimistic] = append(out[ScenarioPessimistic], TrajectoryPoint{
			Position:    [3]float64{p[0] * (1 + spread), p[1] * (1 + spread), p[2] * (1 - spread)},
			Timestamp:   t,
			Uncertainty: sigma,
		})
	}

	return out
}
