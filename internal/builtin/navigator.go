package builtin

import (
	"math"

	"github.com/simba-sim/simba/internal/bus"
	"github.com/simba-sim/simba/internal/geom"
	"github.com/simba-sim/simba/internal/module"
	"github.com/simba-sim/simba/internal/simtime"
	"github.com/simba-sim/simba/internal/trajectory"
)

// GoToNavigator drives toward a single fixed target point, publishing a
// tracking error decomposed into forward, lateral, and heading terms
// (spec §4.3 step 5, scenario S1).
type GoToNavigator struct {
	period       float64
	target       geom.Vector2
	stopDistance float64
}

// NewGoToNavigator builds a navigator targeting target; once within
// stopDistance the tracking error collapses to zero.
func NewGoToNavigator(target geom.Vector2, stopDistance, period float64) *GoToNavigator {
	return &GoToNavigator{period: period, target: target, stopDistance: stopDistance}
}

func (g *GoToNavigator) Name() string { return "goto" }

func (g *GoToNavigator) NextTimeStep(now simtime.Time) simtime.Time {
	return now.Add(g.period)
}

// SetTarget updates the tracked point, matching the /navigator/goto
// channel payload of spec §6.
func (g *GoToNavigator) SetTarget(target geom.Vector2) { g.target = target }

// HandleMessage accepts a GoTo(target) update published on the node's
// navigator/goto channel (spec §6).
func (g *GoToNavigator) HandleMessage(ctx *module.Context, env *bus.Envelope) (bool, error) {
	target, ok := env.Payload.(geom.Vector2)
	if !ok {
		return false, nil
	}
	g.SetTarget(target)
	return true, nil
}

func (g *GoToNavigator) ComputeError(ctx *module.Context, now simtime.Time, world module.WorldState) (module.ControllerError, error) {
	if world.Self == nil {
		return module.ControllerError{}, nil
	}
	self := *world.Self
	dx := g.target.X - self.X
	dy := g.target.Y - self.Y
	dist := math.Hypot(dx, dy)
	if dist <= g.stopDistance {
		return module.ControllerError{}, nil
	}
	heading := math.Atan2(dy, dx)
	thetaErr := geom.NormalizeAngle(heading - self.Theta)
	return module.ControllerError{
		Longitudinal: dist,
		Theta:        thetaErr,
	}, nil
}

// TrajectoryNavigator follows a preloaded sequence of waypoints,
// optionally looping (SPEC_FULL.md Supplemented Features, grounded on
// original_source's trajectory-follower navigator).
type TrajectoryNavigator struct {
	period       float64
	path         *trajectory.Path
	index        int
	stopDistance float64
}

// NewTrajectoryNavigator builds a navigator that advances along path,
// switching to the next waypoint once within stopDistance of the current
// one.
func NewTrajectoryNavigator(path *trajectory.Path, stopDistance, period float64) *TrajectoryNavigator {
	return &TrajectoryNavigator{period: period, path: path, stopDistance: stopDistance}
}

func (t *TrajectoryNavigator) Name() string { return "trajectory" }

func (t *TrajectoryNavigator) NextTimeStep(now simtime.Time) simtime.Time {
	return now.Add(t.period)
}

func (t *TrajectoryNavigator) ComputeError(ctx *module.Context, now simtime.Time, world module.WorldState) (module.ControllerError, error) {
	if world.Self == nil || t.path.Len() == 0 {
		return module.ControllerError{}, nil
	}
	self := *world.Self
	target := t.path.At(t.index)
	dx := target.X - self.X
	dy := target.Y - self.Y
	dist := math.Hypot(dx, dy)
	if dist <= t.stopDistance {
		next, ok := t.path.Advance(t.index)
		if !ok {
			return module.ControllerError{}, nil
		}
		t.index = next
		target = t.path.At(t.index)
		dx = target.X - self.X
		dy = target.Y - self.Y
		dist = math.Hypot(dx, dy)
	}
	heading := math.Atan2(dy, dx)
	thetaErr := geom.NormalizeAngle(heading - self.Theta)
	return module.ControllerError{Longitudinal: dist, Theta: thetaErr}, nil
}
