package builtin

import (
	"math"

	"github.com/simba-sim/simba/internal/module"
	"github.com/simba-sim/simba/internal/simtime"
)

// PerfectEstimator passes a GNSS observation straight through as the
// world estimate, with no additional filtering. Paired with a
// zero-noise GNSS sensor it isolates navigator/controller behavior from
// estimation error, matching scenario S1 (spec §8, "Perfect estimator
// period 0.1"). Heading is carried forward from the last GNSS fix's
// direction of travel rather than measured directly, since spec §3's
// GNSSObservation only reports position.
type PerfectEstimator struct {
	period float64
	world  module.WorldState
}

// NewPerfectEstimator builds a state estimator with no process or
// measurement noise.
func NewPerfectEstimator(period float64) *PerfectEstimator {
	return &PerfectEstimator{period: period, world: module.NewWorldState()}
}

func (e *PerfectEstimator) Name() string { return "perfect" }

func (e *PerfectEstimator) NextTimeStep(now simtime.Time) simtime.Time {
	return now.Add(e.period)
}

// Predict is a no-op: a perfect estimator carries no belief to advance
// between corrections.
func (e *PerfectEstimator) Predict(ctx *module.Context, now simtime.Time, lastCommand module.Command) error {
	return nil
}

// Correct folds GNSS, robot, and landmark observations straight into
// the world estimate, trusting each verbatim.
func (e *PerfectEstimator) Correct(ctx *module.Context, now simtime.Time, observations []module.Observation) error {
	for _, obs := range observations {
		switch obs.Kind {
		case module.ObservationGNSS:
			next := module.Pose{X: obs.GNSS.X, Y: obs.GNSS.Y}
			if e.world.Self != nil {
				dx, dy := next.X-e.world.Self.X, next.Y-e.world.Self.Y
				if dx != 0 || dy != 0 {
					next.Theta = math.Atan2(dy, dx)
				} else {
					next.Theta = e.world.Self.Theta
				}
			}
			e.world.Self = &next
		case module.ObservationLandmark:
			e.world.Landmarks[obs.Landmark.LandmarkID] = obs.Landmark
		case module.ObservationRobot:
			if e.world.Self == nil {
				continue
			}
			bearing := e.world.Self.Theta + obs.Robot.Bearing
			e.world.Foreign[obs.Robot.RobotName] = module.Pose{
				X: e.world.Self.X + obs.Robot.Range*math.Cos(bearing),
				Y: e.world.Self.Y + obs.Robot.Range*math.Sin(bearing),
			}
		}
	}
	return nil
}

func (e *PerfectEstimator) WorldState() module.WorldState { return e.world }
