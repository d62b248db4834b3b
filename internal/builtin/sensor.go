package builtin

import (
	"math"

	"github.com/simba-sim/simba/internal/geom"
	"github.com/simba-sim/simba/internal/module"
	"github.com/simba-sim/simba/internal/simtime"
)

// GNSSSensor samples the robot's own absolute position, before any
// Faults inject noise (spec §3, §4.3 step 3).
type GNSSSensor struct {
	name   string
	period float64
	sendTo []string
}

// NewGNSSSensor builds a GNSS sensor sampling every period seconds and
// additionally publishing to sendTo, per a sensor's send_to list.
func NewGNSSSensor(name string, period float64, sendTo ...string) *GNSSSensor {
	return &GNSSSensor{name: name, period: period, sendTo: sendTo}
}

func (s *GNSSSensor) Name() string { return s.name }

func (s *GNSSSensor) NextTimeStep(now simtime.Time) simtime.Time {
	return now.Add(s.period)
}

func (s *GNSSSensor) SendTo() []string { return s.sendTo }

func (s *GNSSSensor) Sample(ctx *module.Context, now simtime.Time, pose module.Pose, vel module.Velocity) (module.Observation, error) {
	return module.Observation{
		SensorName: s.name,
		Observer:   ctx.Origin,
		Time:       now,
		Kind:       module.ObservationGNSS,
		GNSS:       module.GNSSObservation{X: pose.X, Y: pose.Y},
	}, nil
}

// RangeBearingSensor observes another robot's relative range and
// bearing, resolved through the directory snapshot rather than the
// bus, matching a scenario's proximity-style spatial queries (spec §5).
type RangeBearingSensor struct {
	name    string
	period  float64
	target  string
	sendTo  []string
	maxSeen float64
}

// NewRangeBearingSensor builds a sensor tracking target. When the target
// is out of maxRange or not alive, the observation still names the
// target but carries zero Range and Bearing.
func NewRangeBearingSensor(name, target string, maxRange, period float64, sendTo ...string) *RangeBearingSensor {
	return &RangeBearingSensor{name: name, period: period, target: target, sendTo: sendTo, maxSeen: maxRange}
}

func (s *RangeBearingSensor) Name() string { return s.name }

func (s *RangeBearingSensor) NextTimeStep(now simtime.Time) simtime.Time {
	return now.Add(s.period)
}

func (s *RangeBearingSensor) SendTo() []string { return s.sendTo }

func (s *RangeBearingSensor) Sample(ctx *module.Context, now simtime.Time, pose module.Pose, vel module.Velocity) (module.Observation, error) {
	obs := module.Observation{
		SensorName: s.name,
		Observer:   ctx.Origin,
		Time:       now,
		Kind:       module.ObservationRobot,
		Robot:      module.RobotObservation{RobotName: s.target},
	}
	info, ok := ctx.RealState(s.target)
	if !ok || !info.Alive {
		return obs, nil
	}
	dx := info.Position.X - pose.X
	dy := info.Position.Y - pose.Y
	dist := math.Hypot(dx, dy)
	if dist > s.maxSeen {
		return obs, nil
	}
	obs.Robot.Range = dist
	obs.Robot.Bearing = geom.NormalizeAngle(math.Atan2(dy, dx) - pose.Theta)
	return obs, nil
}
